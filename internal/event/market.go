package event

// MarketAdded is emitted when the protocol deploys a new market. A market
// key matching the v2 naming convention additionally triggers dynamic
// registration of the market address with the ingestion layer.
type MarketAdded struct {
	ChainPos
	Market    string // market contract address (hex)
	Asset     string
	MarketKey string
}

func (e *MarketAdded) EventType() Type { return TypeMarketAdded }

// MarketRemoved is emitted when a market is torn down.
type MarketRemoved struct {
	ChainPos
	Market string
}

func (e *MarketRemoved) EventType() Type { return TypeMarketRemoved }

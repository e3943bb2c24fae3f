package event

// SmartMarginAccountCreated registers a smart-margin proxy account and its
// owner. Account resolution consults this mapping on every event.
type SmartMarginAccountCreated struct {
	ChainPos
	Proxy string
	Owner string
}

func (e *SmartMarginAccountCreated) EventType() Type { return TypeSmartMarginAccountCreated }

// ConditionalOrderPlaced records the order-type flag a smart-margin
// conditional order leaves for the delayed-order fill it will produce.
type ConditionalOrderPlaced struct {
	ChainPos
	Proxy     string // smart-margin proxy address
	Market    string
	OrderType string // "Limit" or "StopMarket"
}

func (e *ConditionalOrderPlaced) EventType() Type { return TypeConditionalOrderPlaced }

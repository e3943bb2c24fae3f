// Package entity defines the persistent entities derived from the on-chain
// event stream. All monetary and size fields are 18-decimal fixed-point
// values held in *big.Int; keys are the deterministic composite strings
// built by internal/keys.
package entity

import "math/big"

// Type discriminates entities in the store.
type Type string

const (
	TypeMarket             Type = "Market"
	TypePosition           Type = "Position"
	TypeTrade              Type = "Trade"
	TypeMarginTransfer     Type = "MarginTransfer"
	TypeMarginAccount      Type = "MarginAccount"
	TypeFuturesStat        Type = "FuturesStat"
	TypeCumulativeStat     Type = "FuturesCumulativeStat"
	TypeAggregateStat      Type = "FuturesAggregateStat"
	TypeFundingRateUpdate  Type = "FundingRateUpdate"
	TypeFundingRatePeriod  Type = "FundingRatePeriod"
	TypeFundingPayment     Type = "FundingPayment"
	TypeFuturesOrder       Type = "FuturesOrder"
	TypeSmartMarginAccount Type = "SmartMarginAccount"
	TypeProcessedEvent     Type = "ProcessedEvent"
)

// Entity is anything the store can persist.
type Entity interface {
	EntityType() Type
	Key() string
}

// New returns a zero value of the entity for a type, used by the store to
// decode persisted rows. Returns false for unknown types.
func New(t Type) (Entity, bool) {
	switch t {
	case TypeMarket:
		return &Market{}, true
	case TypePosition:
		return &Position{}, true
	case TypeTrade:
		return &Trade{}, true
	case TypeMarginTransfer:
		return &MarginTransfer{}, true
	case TypeMarginAccount:
		return &MarginAccount{}, true
	case TypeFuturesStat:
		return &FuturesStat{}, true
	case TypeCumulativeStat:
		return &FuturesCumulativeStat{}, true
	case TypeAggregateStat:
		return &FuturesAggregateStat{}, true
	case TypeFundingRateUpdate:
		return &FundingRateUpdate{}, true
	case TypeFundingRatePeriod:
		return &FundingRatePeriod{}, true
	case TypeFundingPayment:
		return &FundingPayment{}, true
	case TypeFuturesOrder:
		return &FuturesOrder{}, true
	case TypeSmartMarginAccount:
		return &SmartMarginAccount{}, true
	case TypeProcessedEvent:
		return &ProcessedEvent{}, true
	default:
		return nil, false
	}
}

// Market is one trading market, keyed by its contract address.
type Market struct {
	ID              string `json:"id"` // market address (hex)
	Asset           string `json:"asset"`
	MarketKey       string `json:"market_key"`
	CumulativeStats string `json:"cumulative_stats"` // key of the per-market FuturesCumulativeStat
	Timestamp       int64  `json:"timestamp"`
}

func (m *Market) EntityType() Type { return TypeMarket }
func (m *Market) Key() string      { return m.ID }

// Position is one trader's open or closed position in one market,
// keyed "<market>-<positionID>".
type Position struct {
	ID              string      `json:"id"`
	Market          string      `json:"market"`
	Asset           string      `json:"asset"`
	MarketKey       string      `json:"market_key"`
	Account         string      `json:"account"`          // logical account (proxy owner for smart margin)
	AbstractAccount string      `json:"abstract_account"` // raw transacting address
	AccountType     AccountType `json:"account_type"`
	IsOpen          bool        `json:"is_open"`
	IsLiquidated    bool        `json:"is_liquidated"`

	Size          *big.Int `json:"size"` // signed
	AvgEntryPrice *big.Int `json:"avg_entry_price"`
	EntryPrice    *big.Int `json:"entry_price"`
	LastPrice     *big.Int `json:"last_price"`
	ExitPrice     *big.Int `json:"exit_price"`

	Margin          *big.Int `json:"margin"`
	InitialMargin   *big.Int `json:"initial_margin"`
	NetTransfers    *big.Int `json:"net_transfers"`
	TotalDeposits   *big.Int `json:"total_deposits"`
	NetFunding      *big.Int `json:"net_funding"`
	FeesPaid        *big.Int `json:"fees_paid"`
	Pnl             *big.Int `json:"pnl"`
	PnlWithFeesPaid *big.Int `json:"pnl_with_fees_paid"`

	TotalVolume *big.Int `json:"total_volume"`
	TradeCount  int64    `json:"trade_count"`

	// FundingIndex tracks the last funding checkpoint applied to the position.
	FundingIndex int64 `json:"funding_index"`

	OpenTimestamp  int64  `json:"open_timestamp"`
	CloseTimestamp int64  `json:"close_timestamp"`
	Timestamp      int64  `json:"timestamp"`
	LastTxHash     string `json:"last_tx_hash"`
}

func (p *Position) EntityType() Type { return TypePosition }
func (p *Position) Key() string      { return p.ID }

// Trade is one atomic size-changing or liquidation event on a position,
// keyed "<txHash>-<logIndex>". Immutable once its originating event is
// processed, except for fields patched by a later liquidation or order-fill
// handler that reaches it via logIndex-1.
type Trade struct {
	ID              string      `json:"id"`
	Market          string      `json:"market"`
	Asset           string      `json:"asset"`
	MarketKey       string      `json:"market_key"`
	Account         string      `json:"account"`
	AbstractAccount string      `json:"abstract_account"`
	AccountType     AccountType `json:"account_type"`
	PositionID      string      `json:"position_id"`

	Size           *big.Int `json:"size"` // signed trade-size delta
	PositionSize   *big.Int `json:"position_size"`
	Price          *big.Int `json:"price"`
	Margin         *big.Int `json:"margin"`
	Pnl            *big.Int `json:"pnl"`
	FeesPaid       *big.Int `json:"fees_paid"`
	KeeperFeesPaid *big.Int `json:"keeper_fees_paid"`
	FundingAccrued *big.Int `json:"funding_accrued"`

	OrderType      OrderType `json:"order_type"`
	TrackingCode   string    `json:"tracking_code"`
	PositionClosed bool      `json:"position_closed"`
	Timestamp      int64     `json:"timestamp"`
	BlockNumber    int64     `json:"block_number"`
	TxHash         string    `json:"tx_hash"`
}

func (t *Trade) EntityType() Type { return TypeTrade }
func (t *Trade) Key() string      { return t.ID }

// MarginTransfer is a pure margin deposit or withdrawal, keyed
// "<market>-<txHash>-<logIndex>". The position-modified handler probes the
// same key pattern at logIndex-1 to tell transfers from liquidations.
type MarginTransfer struct {
	ID        string   `json:"id"`
	Market    string   `json:"market"`
	Account   string   `json:"account"`
	Size      *big.Int `json:"size"` // signed
	Timestamp int64    `json:"timestamp"`
	TxHash    string   `json:"tx_hash"`
}

func (m *MarginTransfer) EntityType() Type { return TypeMarginTransfer }
func (m *MarginTransfer) Key() string      { return m.ID }

// MarginAccount is the per-account, per-market margin balance, keyed
// "<account>-<market>".
type MarginAccount struct {
	ID          string   `json:"id"`
	Account     string   `json:"account"`
	Market      string   `json:"market"`
	Asset       string   `json:"asset"`
	Margin      *big.Int `json:"margin"`
	Deposits    *big.Int `json:"deposits"`
	Withdrawals *big.Int `json:"withdrawals"`
	Timestamp   int64    `json:"timestamp"`
}

func (m *MarginAccount) EntityType() Type { return TypeMarginAccount }
func (m *MarginAccount) Key() string      { return m.ID }

// FuturesStat is the lifetime per-trader rollup, keyed by account.
type FuturesStat struct {
	ID                string   `json:"id"` // account
	Account           string   `json:"account"`
	FeesPaid          *big.Int `json:"fees_paid"`
	Pnl               *big.Int `json:"pnl"`
	PnlWithFeesPaid   *big.Int `json:"pnl_with_fees_paid"`
	Liquidations      int64    `json:"liquidations"`
	TotalTrades       int64    `json:"total_trades"`
	TotalVolume       *big.Int `json:"total_volume"`
	SmartMarginVolume *big.Int `json:"smart_margin_volume"`
}

func (s *FuturesStat) EntityType() Type { return TypeFuturesStat }
func (s *FuturesStat) Key() string      { return s.ID }

// CumulativeStatGlobalKey addresses the single global running-totals row.
const CumulativeStatGlobalKey = "0"

// FuturesCumulativeStat holds running totals, keyed "0" for the global row
// or by marketKey for a per-market row.
type FuturesCumulativeStat struct {
	ID                string   `json:"id"`
	TotalTrades       int64    `json:"total_trades"`
	TotalVolume       *big.Int `json:"total_volume"`
	TotalTraders      int64    `json:"total_traders"`
	TotalLiquidations int64    `json:"total_liquidations"`
	AverageTradeSize  *big.Int `json:"average_trade_size"`
}

func (s *FuturesCumulativeStat) EntityType() Type { return TypeCumulativeStat }
func (s *FuturesCumulativeStat) Key() string      { return s.ID }

// FuturesAggregateStat is one time-bucket rollup, keyed
// "<bucketStart>-<period>-<asset>" (empty asset = all markets).
type FuturesAggregateStat struct {
	ID                      string   `json:"id"`
	Period                  int64    `json:"period"`
	Timestamp               int64    `json:"timestamp"` // bucket start
	Asset                   string   `json:"asset"`
	Trades                  int64    `json:"trades"`
	Volume                  *big.Int `json:"volume"`
	FeesSynthetix           *big.Int `json:"fees_synthetix"`
	FeesKwenta              *big.Int `json:"fees_kwenta"`
	FeesCrossMarginAccounts *big.Int `json:"fees_cross_margin_accounts"`
}

func (s *FuturesAggregateStat) EntityType() Type { return TypeAggregateStat }
func (s *FuturesAggregateStat) Key() string      { return s.ID }

// FundingRateUpdate is one funding-recompute checkpoint, keyed
// "<market>-<fundingIndex>". Append-only.
type FundingRateUpdate struct {
	ID           string   `json:"id"`
	Market       string   `json:"market"`
	Asset        string   `json:"asset"`
	FundingIndex int64    `json:"funding_index"`
	Funding      *big.Int `json:"funding"` // cumulative
	FundingRate  *big.Int `json:"funding_rate"`
	Timestamp    int64    `json:"timestamp"`
}

func (f *FundingRateUpdate) EntityType() Type { return TypeFundingRateUpdate }
func (f *FundingRateUpdate) Key() string      { return f.ID }

// FundingRatePeriod is the latest funding rate observed within one coarse
// time bucket, keyed "<asset>-<periodType>-<bucketStart>".
type FundingRatePeriod struct {
	ID          string     `json:"id"`
	Asset       string     `json:"asset"`
	Period      PeriodType `json:"period"`
	Timestamp   int64      `json:"timestamp"` // bucket start
	FundingRate *big.Int   `json:"funding_rate"`
}

func (f *FundingRatePeriod) EntityType() Type { return TypeFundingRatePeriod }
func (f *FundingRatePeriod) Key() string      { return f.ID }

// FundingPayment records funding accrued to a position between two
// checkpoints, keyed "<txHash>-<logIndex>-<account>".
type FundingPayment struct {
	ID         string   `json:"id"`
	Market     string   `json:"market"`
	Asset      string   `json:"asset"`
	Account    string   `json:"account"`
	PositionID string   `json:"position_id"`
	Amount     *big.Int `json:"amount"` // signed; positive = received by the position
	Timestamp  int64    `json:"timestamp"`
}

func (f *FundingPayment) EntityType() Type { return TypeFundingPayment }
func (f *FundingPayment) Key() string      { return f.ID }

// FuturesOrder is one delayed/off-chain order, keyed
// "D-<asset>-<account>-<targetRoundID>".
type FuturesOrder struct {
	ID              string      `json:"id"`
	Market          string      `json:"market"`
	Asset           string      `json:"asset"`
	Account         string      `json:"account"`
	AbstractAccount string      `json:"abstract_account"`
	Size            *big.Int    `json:"size"`
	TargetRoundID   int64       `json:"target_round_id"`
	OrderType       OrderType   `json:"order_type"`
	Status          OrderStatus `json:"status"`
	Keeper          string      `json:"keeper"`
	Timestamp       int64       `json:"timestamp"`
}

func (o *FuturesOrder) EntityType() Type { return TypeFuturesOrder }
func (o *FuturesOrder) Key() string      { return o.ID }

// SmartMarginAccount maps a smart-margin proxy address to its registered
// owner, keyed by the proxy address. PendingOrderType carries the order-type
// flag a conditional order left behind for the next delayed-order fill.
type SmartMarginAccount struct {
	ID               string     `json:"id"` // proxy address
	Owner            string     `json:"owner"`
	PendingOrderType *OrderType `json:"pending_order_type"`
	Timestamp        int64      `json:"timestamp"`
}

func (s *SmartMarginAccount) EntityType() Type { return TypeSmartMarginAccount }
func (s *SmartMarginAccount) Key() string      { return s.ID }

// ProcessedEvent marks a delivered event as applied, keyed
// "<txHash>-<logIndex>". Delivery is at-least-once: a crash between the
// flush and the broker ack redelivers the event, and the marker, committed
// atomically with the event's writes, makes the replay a no-op.
type ProcessedEvent struct {
	ID          string `json:"id"`
	EventType   string `json:"event_type"`
	BlockNumber int64  `json:"block_number"`
}

func (p *ProcessedEvent) EntityType() Type { return TypeProcessedEvent }
func (p *ProcessedEvent) Key() string      { return p.ID }

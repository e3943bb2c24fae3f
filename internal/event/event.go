// Package event defines the decoded blockchain log events the engine
// consumes. The upstream feed delivers them exactly once, in emission order;
// every event carries its chain position (block, transaction hash, log
// index) because handlers correlate adjacent events through logIndex-1.
package event

import "strconv"

// Type discriminates event payloads.
type Type int32

const (
	TypeUnknown Type = iota
	TypeMarketAdded
	TypeMarketRemoved
	TypePositionModified
	TypePositionLiquidated
	TypeMarginTransferred
	TypeFundingRecomputed
	TypeDelayedOrderSubmitted
	TypeDelayedOrderRemoved
	TypeSmartMarginAccountCreated
	TypeConditionalOrderPlaced
)

func (t Type) String() string {
	switch t {
	case TypeMarketAdded:
		return "MarketAdded"
	case TypeMarketRemoved:
		return "MarketRemoved"
	case TypePositionModified:
		return "PositionModified"
	case TypePositionLiquidated:
		return "PositionLiquidated"
	case TypeMarginTransferred:
		return "MarginTransferred"
	case TypeFundingRecomputed:
		return "FundingRecomputed"
	case TypeDelayedOrderSubmitted:
		return "DelayedOrderSubmitted"
	case TypeDelayedOrderRemoved:
		return "DelayedOrderRemoved"
	case TypeSmartMarginAccountCreated:
		return "SmartMarginAccountCreated"
	case TypeConditionalOrderPlaced:
		return "ConditionalOrderPlaced"
	default:
		return "Unknown"
	}
}

// Event is the interface all decoded log events implement.
type Event interface {
	// EventType returns the discriminator.
	EventType() Type

	// IdempotencyKey returns the stable dedup key ("<txHash>-<logIndex>").
	IdempotencyKey() string

	// SourceSequence returns the block number. The ingestion loop flags
	// deliveries whose sequence moves backward on their subject.
	SourceSequence() int64
}

// ChainPos is the on-chain position every event carries. Embedded by the
// concrete event structs; LogIndex adjacency is the join key between a
// position-modified event and its liquidation/order-fill follow-up.
type ChainPos struct {
	BlockNumber int64
	TxHash      string
	LogIndex    int64
	Timestamp   int64 // block timestamp, unix seconds
}

func (c ChainPos) IdempotencyKey() string {
	return c.TxHash + "-" + strconv.FormatInt(c.LogIndex, 10)
}

func (c ChainPos) SourceSequence() int64 {
	return c.BlockNumber
}

package event

import "math/big"

// DelayedOrderSubmitted opens (or replaces) a delayed/off-chain order for
// an account targeting a price-feed round.
type DelayedOrderSubmitted struct {
	ChainPos
	Market        string
	Account       string
	SizeDelta     *big.Int
	TargetRoundID int64
	IsOffchain    bool
}

func (e *DelayedOrderSubmitted) EventType() Type { return TypeDelayedOrderSubmitted }

// DelayedOrderRemoved terminates a delayed order. Whether it filled or was
// cancelled is decided by probing for a Trade at logIndex-1. TxSender is the
// transaction origin and becomes the keeper on a fill.
type DelayedOrderRemoved struct {
	ChainPos
	Market        string
	Account       string
	TargetRoundID int64
	KeeperDeposit *big.Int
	TrackingCode  string
	TxSender      string
}

func (e *DelayedOrderRemoved) EventType() Type { return TypeDelayedOrderRemoved }

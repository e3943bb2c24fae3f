package event

import "math/big"

// PositionModified is the canonical internal record for a market
// interaction: any size, margin, or funding change on one position. Two
// wire layouts exist (the newer one carries an extra skew field the engine
// ignores); the parser normalizes both into this struct before dispatch.
type PositionModified struct {
	ChainPos
	Market       string
	Account      string // raw transacting address
	PositionID   int64
	Size         *big.Int // new absolute (signed) position size
	Margin       *big.Int // new remaining margin
	LastPrice    *big.Int
	TradeSize    *big.Int // signed size delta for this event; zero for pure margin changes
	Fee          *big.Int
	FundingIndex int64
}

func (e *PositionModified) EventType() Type { return TypePositionModified }

// MarginTransferred is a pure margin deposit (positive delta) or
// withdrawal (negative delta) on a market.
type MarginTransferred struct {
	ChainPos
	Market      string
	Account     string
	MarginDelta *big.Int // signed
}

func (e *MarginTransferred) EventType() Type { return TypeMarginTransferred }

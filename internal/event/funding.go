package event

import "math/big"

// FundingRecomputed is one funding-rate checkpoint. Index is the
// protocol-assigned, monotonically increasing sequence number; Funding is
// the cumulative funding value at that checkpoint.
type FundingRecomputed struct {
	ChainPos
	Market      string
	Index       int64
	Funding     *big.Int // cumulative
	FundingRate *big.Int // instantaneous
}

func (e *FundingRecomputed) EventType() Type { return TypeFundingRecomputed }

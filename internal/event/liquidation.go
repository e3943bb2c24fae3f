package event

import "math/big"

// PositionLiquidated corrects the trade/position pair recorded by the
// immediately preceding PositionModified event (logIndex-1). The newer wire
// layout reports three sub-fees (flagger, liquidator, stakers); the parser
// sums them into Fee so the handler sees one canonical total.
type PositionLiquidated struct {
	ChainPos
	Market     string
	Account    string
	PositionID int64
	Size       *big.Int
	Fee        *big.Int
}

func (e *PositionLiquidated) EventType() Type { return TypePositionLiquidated }

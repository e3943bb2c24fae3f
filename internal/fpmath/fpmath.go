package fpmath

import (
	"fmt"
	"math/big"
)

// UnitDecimals is the fixed-point precision used by the protocol for all
// monetary and size quantities (18-decimal "wei" scale).
const UnitDecimals = 18

// UNIT is 10^18. Treat as read-only.
var UNIT = new(big.Int).Exp(big.NewInt(10), big.NewInt(UnitDecimals), nil)

// Zero returns a fresh zero value. Every helper in this package returns a
// freshly allocated big.Int so callers never share mutable state.
func Zero() *big.Int {
	return new(big.Int)
}

// FromUnits converts a whole-unit value to 18-decimal scale, e.g.
// FromUnits(5) == 5 * 10^18.
func FromUnits(v int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(v), UNIT)
}

// Parse decodes a decimal-string integer as emitted on the wire.
func Parse(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer literal %q", s)
	}
	return v, nil
}

// Add returns a + b.
func Add(a, b *big.Int) *big.Int {
	return new(big.Int).Add(a, b)
}

// Sub returns a - b.
func Sub(a, b *big.Int) *big.Int {
	return new(big.Int).Sub(a, b)
}

// Neg returns -a.
func Neg(a *big.Int) *big.Int {
	return new(big.Int).Neg(a)
}

// Abs returns |a|.
func Abs(a *big.Int) *big.Int {
	return new(big.Int).Abs(a)
}

// Mul returns a * b / UNIT, the fixed-point product of two 18-decimal values.
func Mul(a, b *big.Int) *big.Int {
	p := new(big.Int).Mul(a, b)
	return p.Quo(p, UNIT)
}

// Div returns a * UNIT / b, the fixed-point quotient of two 18-decimal values.
// b must be non-zero.
func Div(a, b *big.Int) *big.Int {
	p := new(big.Int).Mul(a, UNIT)
	return p.Quo(p, b)
}

// Eq reports a == b.
func Eq(a, b *big.Int) bool {
	return a.Cmp(b) == 0
}

// IsZero reports a == 0.
func IsZero(a *big.Int) bool {
	return a.Sign() == 0
}

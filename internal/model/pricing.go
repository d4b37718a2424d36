package model

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Discount reports whether current undercuts base and by how many whole
// percent. It is derived on every call and never stored.
func Discount(base, current decimal.Decimal) (bool, int) {
	if !base.IsPositive() || !current.IsPositive() || !current.LessThan(base) {
		return false, 0
	}
	pct := decimal.NewFromInt(1).Sub(current.Div(base)).Mul(hundred).Round(0)
	return true, int(pct.IntPart())
}

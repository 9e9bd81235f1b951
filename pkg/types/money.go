package types

import "github.com/shopspring/decimal"

// DisplayAmount renders a paise amount as a rupee string with two decimal
// places, e.g. 12999 -> "129.99". Arithmetic stays in integer paise; decimal
// is only used at the display boundary.
func DisplayAmount(paise int) string {
	return decimal.NewFromInt(int64(paise)).Div(decimal.NewFromInt(100)).StringFixed(2)
}

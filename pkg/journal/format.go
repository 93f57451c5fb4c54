package journal

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// FormatAUD renders an amount as Australian dollars, e.g. "$1,234.50".
func FormatAUD(d decimal.Decimal) string {
	cents := d.Shift(2).Round(0).IntPart()
	return money.New(cents, "AUD").Display()
}

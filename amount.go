package main

import (
	"strings"

	"github.com/shopspring/decimal"
)

// coerceAmount parses a debit or credit cell. Blank cells are zero and
// thousands separators are tolerated. row is the 1-based sheet row, used only
// for the error message along with the column label.
func coerceAmount(raw string, row, col int, label string) (decimal.Decimal, error) {
	s := strings.ReplaceAll(cellText(raw), ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, formatErrorf(row, col, "%q is not a valid number: %q", label, raw)
	}
	return d, nil
}

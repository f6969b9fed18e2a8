// Package numeric converts between human decimal values and the 18-decimal
// fixed-point integers (X18) used on the wire by both venues.
package numeric

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Decimals is the fixed-point scale shared by Nado and Lighter.
const Decimals = 18

// ToX18 scales d by 10^18. Digits beyond the 18th decimal are truncated
// toward zero.
func ToX18(d decimal.Decimal) *big.Int {
	return d.Shift(Decimals).Truncate(0).BigInt()
}

// ToX18String is ToX18 rendered as a base-10 integer string.
func ToX18String(d decimal.Decimal) string {
	return ToX18(d).String()
}

// FromX18Int converts a scaled integer back to a decimal.
func FromX18Int(v *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(v, -Decimals)
}

// FromX18 parses a base-10 integer string and unscales it. An empty string
// is treated as zero.
func FromX18(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return decimal.Zero, fmt.Errorf("numeric: invalid x18 integer %q", s)
	}
	return FromX18Int(v), nil
}

// ParseDecimal parses a human-readable decimal string.
func ParseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("numeric: invalid decimal %q: %w", s, err)
	}
	return d, nil
}

package totals

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// DiscountType says how a discount value is read.
type DiscountType string

const (
	DiscountPercentage DiscountType = "PERCENTAGE"
	DiscountFixed      DiscountType = "FIXED"
)

// ParseDiscountType normalizes the spellings sent by the different forms.
// Empty or unknown values fall back to PERCENTAGE, the form default.
func ParseDiscountType(s string) DiscountType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fixed", "amount", "montant", "€", "eur":
		return DiscountFixed
	default:
		return DiscountPercentage
	}
}

// Normalize returns the canonical form of t.
func (t DiscountType) Normalize() DiscountType { return ParseDiscountType(string(t)) }

func (t DiscountType) String() string { return string(t.Normalize()) }

func (t *DiscountType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		*t = DiscountPercentage
		return nil
	}
	*t = ParseDiscountType(s)
	return nil
}

// discountAmount returns how much of base the discount removes. The result
// is never negative and never larger than base.
func discountAmount(base, discount decimal.Decimal, t DiscountType) decimal.Decimal {
	if !discount.IsPositive() || !base.IsPositive() {
		return decimal.Zero
	}
	if t.Normalize() == DiscountFixed {
		return decimal.Min(discount, base)
	}
	return percentOf(base, decimal.Min(discount, hundred))
}

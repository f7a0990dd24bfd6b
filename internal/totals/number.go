package totals

import (
	"encoding/json"
	"math"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Number is an optional decimal read leniently from user input.
// The zero value is unset. Malformed input never fails: it is read as unset
// and the calculator substitutes the field's default.
type Number struct {
	value decimal.Decimal
	set   bool
}

// Accepted magnitudes. Anything outside is read as unset so that rounding
// and encoding stay cheap whatever the input exponent.
const (
	maxExponent = 15
	minExponent = -32
	maxScale    = 12
	maxDigits   = 64
)

var maxMagnitude = decimal.New(1, maxExponent)

// Num returns a set Number from a float.
func Num(f float64) Number {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Number{}
	}
	return Dec(decimal.NewFromFloat(f))
}

// Dec returns a set Number from a decimal, or an unset one when |d| is not
// below 1e15. Digits beyond 12 decimal places are rounded off.
func Dec(d decimal.Decimal) Number {
	exp := d.Exponent()
	if exp > maxExponent || exp < minExponent {
		return Number{}
	}
	if exp < -maxScale {
		d = d.Round(maxScale)
	}
	if d.Abs().GreaterThanOrEqual(maxMagnitude) {
		return Number{}
	}
	return Number{value: d, set: true}
}

// DecPtr returns an unset Number for nil, a set one otherwise.
func DecPtr(d *decimal.Decimal) Number {
	if d == nil {
		return Number{}
	}
	return Dec(*d)
}

func (n Number) IsSet() bool { return n.set }

// Or returns the value, or def when unset.
func (n Number) Or(def decimal.Decimal) decimal.Decimal {
	if !n.set {
		return def
	}
	return n.value
}

// Decimal returns the value, zero when unset.
func (n Number) Decimal() decimal.Decimal { return n.value }

func (n Number) String() string {
	if !n.set {
		return ""
	}
	return n.value.String()
}

// ParseNumber reads any scalar the dashboard may send (numbers, numeric
// strings in French or English notation, json.Number). Everything else is unset.
func ParseNumber(v any) Number {
	switch x := v.(type) {
	case nil:
		return Number{}
	case Number:
		return x
	case decimal.Decimal:
		return Dec(x)
	case *decimal.Decimal:
		return DecPtr(x)
	case float64:
		return Num(x)
	case float32:
		return Num(float64(x))
	case int:
		return Dec(decimal.NewFromInt(int64(x)))
	case int32:
		return Dec(decimal.NewFromInt(int64(x)))
	case int64:
		return Dec(decimal.NewFromInt(x))
	case uint:
		return Dec(decimal.NewFromInt(int64(x)))
	case uint64:
		if x > math.MaxInt64 {
			return Number{}
		}
		return Dec(decimal.NewFromInt(int64(x)))
	case json.Number:
		return parseNumberString(string(x))
	case string:
		return parseNumberString(x)
	}
	return Number{}
}

// parseNumberString accepts "12.5", "12,5", "1 234,56 €", "1,234.56", "20 %".
func parseNumberString(s string) Number {
	if len(s) > 4*maxDigits {
		return Number{}
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= '0' && r <= '9', r == '-', r == '.', r == ',':
			b.WriteRune(r)
		case r == '+':
		case unicode.IsSpace(r), r == '€', r == '%', r == '$':
		default:
			return Number{}
		}
	}
	clean := b.String()
	if strings.Contains(clean, ",") {
		lastComma := strings.LastIndex(clean, ",")
		lastDot := strings.LastIndex(clean, ".")
		switch {
		case lastDot > lastComma:
			// 1,234.56
			clean = strings.ReplaceAll(clean, ",", "")
		case lastDot >= 0:
			// 1.234,56
			clean = strings.ReplaceAll(clean, ".", "")
			clean = strings.Replace(clean, ",", ".", 1)
		case strings.Count(clean, ",") == 1:
			clean = strings.Replace(clean, ",", ".", 1)
		default:
			return Number{}
		}
	}
	if clean == "" || len(clean) > maxDigits {
		return Number{}
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return Number{}
	}
	return Dec(d)
}

// UnmarshalJSON never returns an error: unreadable values become unset.
func (n *Number) UnmarshalJSON(b []byte) error {
	*n = Number{}
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		return nil
	}
	if s[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return nil
		}
		*n = parseNumberString(str)
		return nil
	}
	if len(s) > maxDigits {
		return nil
	}
	if d, err := decimal.NewFromString(s); err == nil {
		*n = Dec(d)
	}
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.set {
		return []byte("null"), nil
	}
	return []byte(n.value.String()), nil
}

package totals

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   any
		want string // empty means unset
	}{
		{nil, ""},
		{12, "12"},
		{int64(-4), "-4"},
		{uint(7), "7"},
		{12.5, "12.5"},
		{float32(0.5), "0.5"},
		{math.NaN(), ""},
		{math.Inf(1), ""},
		{"12.5", "12.5"},
		{"12,5", "12.5"},
		{" 1 234,56 € ", "1234.56"},
		{"1 234,56", "1234.56"},
		{"1,234.56", "1234.56"},
		{"1.234,56", "1234.56"},
		{"20 %", "20"},
		{"+3", "3"},
		{"-3,5", "-3.5"},
		{"1,2,3", ""},
		{"abc", ""},
		{"12abc", ""},
		{"", ""},
		{"   ", ""},
		{json.Number("42.1"), "42.1"},
		{decimal.RequireFromString("9.99"), "9.99"},
		{(*decimal.Decimal)(nil), ""},
		{true, ""},
		{[]int{1}, ""},
	}
	for _, tt := range tests {
		n := ParseNumber(tt.in)
		if tt.want == "" {
			assert.Falsef(t, n.IsSet(), "ParseNumber(%#v) should be unset, got %s", tt.in, n)
			continue
		}
		require.Truef(t, n.IsSet(), "ParseNumber(%#v) should be set", tt.in)
		assert.Truef(t, decimal.RequireFromString(tt.want).Equal(n.Decimal()), "ParseNumber(%#v) = %s, want %s", tt.in, n, tt.want)
	}
}

func TestNumber_Or(t *testing.T) {
	def := decimal.NewFromInt(20)
	assert.True(t, Number{}.Or(def).Equal(def))
	assert.True(t, Num(0).Or(def).IsZero())
	assert.True(t, Num(5.5).Or(def).Equal(decimal.RequireFromString("5.5")))
}

func TestNumber_JSON(t *testing.T) {
	var v struct {
		A Number `json:"a"`
		B Number `json:"b"`
		C Number `json:"c"`
		D Number `json:"d"`
		E Number `json:"e"`
	}
	err := json.Unmarshal([]byte(`{"a": 1.25, "b": "3,5", "c": null, "d": [1], "e": "x"}`), &v)
	require.NoError(t, err)
	assert.Equal(t, "1.25", v.A.String())
	assert.Equal(t, "3.5", v.B.String())
	assert.False(t, v.C.IsSet())
	assert.False(t, v.D.IsSet())
	assert.False(t, v.E.IsSet())

	out, err := json.Marshal(struct {
		A Number `json:"a"`
		B Number `json:"b"`
	}{A: Num(2.5)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 2.5, "b": null}`, string(out))
}

func TestNumber_OutOfRangeIsUnset(t *testing.T) {
	var v struct {
		Huge     Number `json:"huge"`
		Tiny     Number `json:"tiny"`
		Big      Number `json:"big"`
		Long     Number `json:"long"`
		Edge     Number `json:"edge"`
		Fine     Number `json:"fine"`
		Precise  Number `json:"precise"`
		Negative Number `json:"negative"`
	}
	body := `{"huge": 1e999999, "tiny": 1e-2000000000, "big": 1000000000000000, "long": "` +
		strings.Repeat("9", 100) + `", "edge": 999999999999999, "fine": 1e3, "precise": 0.1234567890123456,
		"negative": -1e20}`
	require.NoError(t, json.Unmarshal([]byte(body), &v))

	assert.False(t, v.Huge.IsSet())
	assert.False(t, v.Tiny.IsSet())
	assert.False(t, v.Big.IsSet())
	assert.False(t, v.Long.IsSet())
	assert.False(t, v.Negative.IsSet())
	assert.Equal(t, "999999999999999", v.Edge.String())
	assert.Equal(t, "1000", v.Fine.String())
	assert.Equal(t, "0.123456789012", v.Precise.String())

	assert.False(t, Num(1e300).IsSet())
	assert.False(t, ParseNumber(decimal.New(1, 40)).IsSet())
}

func TestCalculate_HugeInputStaysCheap(t *testing.T) {
	var in Input
	require.NoError(t, json.Unmarshal([]byte(`{"items":[{"quantity":1e999999,"unit_price":1e999999,"vat_rate":1e999999}],"discount":1e999999}`), &in))

	res := Calculate(in).Round(2)
	// quantity falls back to 1, price to 0, rate to 20
	assert.True(t, res.TotalTTC.IsZero(), res.TotalTTC.String())
	out, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Less(t, len(out), 2048)
}

func TestParseDiscountType(t *testing.T) {
	for in, want := range map[string]DiscountType{
		"PERCENTAGE": DiscountPercentage,
		"percentage": DiscountPercentage,
		"Percent":    DiscountPercentage,
		"":           DiscountPercentage,
		"bogus":      DiscountPercentage,
		"FIXED":      DiscountFixed,
		"fixed":      DiscountFixed,
		" Fixed ":    DiscountFixed,
		"amount":     DiscountFixed,
		"montant":    DiscountFixed,
	} {
		assert.Equalf(t, want, ParseDiscountType(in), "ParseDiscountType(%q)", in)
	}
}

func TestDiscountType_UnmarshalJSON(t *testing.T) {
	var d DiscountType
	require.NoError(t, json.Unmarshal([]byte(`"fixed"`), &d))
	assert.Equal(t, DiscountFixed, d)
	require.NoError(t, json.Unmarshal([]byte(`12`), &d))
	assert.Equal(t, DiscountPercentage, d)
}

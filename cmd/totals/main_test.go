package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diewo77/invoice-totals/internal/totals"
)

const input = `{
  "items": [
    {"quantity": 10, "unit_price": "100", "vat_rate": 20},
    {"quantity": "1", "unit_price": "50", "vat_rate": "5,5"}
  ],
  "retenue_garantie": 5
}`

// decodeResult splits the output into the JSON result and the summary line.
func decodeResult(t *testing.T, out string) (totals.Result, string) {
	t.Helper()
	out = strings.TrimRight(out, "\n")
	i := strings.LastIndex(out, "\n")
	require.Positive(t, i)

	var res totals.Result
	require.NoError(t, json.Unmarshal([]byte(out[:i]), &res))
	return res, out[i+1:]
}

func TestRunFromStdin(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"-lang", "en"}, strings.NewReader(input), &out))

	res, summary := decodeResult(t, out.String())
	assert.True(t, decimal.RequireFromString("1252.75").Equal(res.TotalTTC), res.TotalTTC.String())
	assert.Len(t, res.VATBreakdown, 2)
	assert.Equal(t,
		"Total excl. VAT: €1,050.00 | VAT: €202.75 | Total incl. VAT: €1,252.75 | Net to pay: €1,190.11",
		summary)
}

func TestRunFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invoice.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"items":[{"quantity":3,"unit_price":"0.333","vat_rate":0}]}`), 0o600))

	var out bytes.Buffer
	require.NoError(t, run([]string{"-f", path, "-round", "-1", "-lang", "en", "-currency", "USD"}, nil, &out))

	res, summary := decodeResult(t, out.String())
	assert.Equal(t, "0.999", res.TotalTTC.String())
	assert.Equal(t, "Total excl. VAT: $1.00 | VAT: $0.00 | Total incl. VAT: $1.00", summary)
}

func TestRunErrors(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, run(nil, strings.NewReader("{"), &out))
	assert.Error(t, run([]string{"-f", filepath.Join(t.TempDir(), "missing.json")}, nil, &out))
	assert.Error(t, run([]string{"-unknown"}, nil, &out))
}

// Package export writes invoice listings for accountants: CSV and Excel
// spreadsheets, and the FEC journal required by the French tax office.
//
// Every amount comes from totals.Calculate, never from arithmetic here.
package export

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/diewo77/invoice-totals/i18n"
	"github.com/diewo77/invoice-totals/internal/models"
	"github.com/diewo77/invoice-totals/internal/totals"
)

// ErrNothingToExport is returned when no invoice falls in the requested range.
var ErrNothingToExport = errors.New("no invoice to export")

// ErrUnknownFormat is returned by ParseFormat.
var ErrUnknownFormat = errors.New("unknown export format")

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatFEC  Format = "fec"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatXLSX, FormatFEC:
		return f, nil
	case "":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatFEC:
		return "text/plain; charset=utf-8"
	}
	return "text/csv; charset=utf-8"
}

func (f Format) extension() string {
	if f == FormatFEC {
		return "txt"
	}
	return string(f)
}

// DateRange bounds an export by issue date. Both ends are whole days and
// inclusive; a zero end is open.
type DateRange struct {
	From time.Time
	To   time.Time
}

func (r DateRange) IsZero() bool { return r.From.IsZero() && r.To.IsZero() }

// Contains reports whether the calendar day of t lies within the range.
func (r DateRange) Contains(t time.Time) bool {
	if r.IsZero() {
		return true
	}
	if t.IsZero() {
		return false
	}
	day := dayOf(t)
	if !r.From.IsZero() && day.Before(dayOf(r.From)) {
		return false
	}
	if !r.To.IsZero() && day.After(dayOf(r.To)) {
		return false
	}
	return true
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FilterByDateRange keeps the invoices issued within r, in order. Invoices
// without an issue date are dropped when a range is set.
func FilterByDateRange(invoices []models.Invoice, r DateRange) []models.Invoice {
	if r.IsZero() {
		return invoices
	}
	out := make([]models.Invoice, 0, len(invoices))
	for _, inv := range invoices {
		if r.Contains(inv.IssueDate) {
			out = append(out, inv)
		}
	}
	return out
}

// Filename names an export: factures_2025-01-01_au_2025-01-31.csv for a
// closed range, factures_export_<timestamp>.csv otherwise. FEC files use
// the FEC prefix and a .txt extension.
func Filename(f Format, r DateRange, now time.Time) string {
	prefix := "factures"
	if f == FormatFEC {
		prefix = "FEC"
	}
	if !r.From.IsZero() && !r.To.IsZero() {
		return fmt.Sprintf("%s_%s_au_%s.%s", prefix, r.From.Format("2006-01-02"), r.To.Format("2006-01-02"), f.extension())
	}
	return fmt.Sprintf("%s_export_%s.%s", prefix, now.Format("2006-01-02_15-04-05"), f.extension())
}

const bom = "\uFEFF"

// Headers of the CSV and Excel exports, in column order.
var Headers = []string{
	"Numéro",
	"N° Bon de commande",
	"Client",
	"Email client",
	"SIRET client",
	"N° TVA client",
	"Type client",
	"Date d'émission",
	"Date d'échéance",
	"Date de création",
	"Total HT (€)",
	"Total TVA (€)",
	"Total TTC (€)",
	"Remise (%)",
	"Remise (€)",
	"Montant remise (€)",
	"Statut",
	"Type",
	"Adresse client",
	"Code postal client",
	"Ville client",
	"Pays client",
}

// row is one invoice flattened for the spreadsheet exports. Amounts stay
// decimals so each writer picks its own representation.
type row struct {
	text    []string
	amounts map[int]decimal.Decimal
}

// amount columns, indexes into Headers
const (
	colTotalHT = iota + 10
	colTotalVAT
	colTotalTTC
	colDiscountPct
	colDiscountFixed
	colDiscountAmount
)

func buildRow(inv *models.Invoice) row {
	res := totals.Calculate(inv.TotalsInput()).Round(2)
	c := inv.Client
	if c == nil {
		c = &models.Client{}
	}

	clientType := ""
	if inv.Client != nil {
		clientType = i18n.ClientTypeLabel("fr", string(models.ClientTypeIndividual))
		if c.Type == models.ClientTypeCompany {
			clientType = i18n.ClientTypeLabel("fr", string(models.ClientTypeCompany))
		}
	}
	kind := i18n.T("fr", "invoice_full")
	if inv.IsDeposit {
		kind = i18n.T("fr", "invoice_deposit")
	}

	r := row{
		text: []string{
			inv.Number,
			inv.PurchaseOrderNumber,
			c.Name,
			c.Email,
			c.SIRET,
			c.VATNumber,
			clientType,
			formatDate(inv.IssueDate, "02/01/2006"),
			formatDate(inv.DueDate, "02/01/2006"),
			formatDate(inv.CreatedAt, "02/01/2006 15:04"),
			"", "", "", "", "", "",
			i18n.StatusLabel("fr", string(inv.Status)),
			kind,
			joinNonEmpty(", ", c.Address, c.PostalCode, c.City, c.Country),
			c.PostalCode,
			c.City,
			c.Country,
		},
		amounts: map[int]decimal.Decimal{
			colTotalHT:        res.TotalHT,
			colTotalVAT:       res.TotalVAT,
			colTotalTTC:       res.TotalTTC,
			colDiscountAmount: res.DiscountAmount,
		},
	}
	switch inv.DiscountType.Normalize() {
	case totals.DiscountFixed:
		r.amounts[colDiscountFixed] = inv.Discount.Round(2)
	default:
		r.amounts[colDiscountPct] = inv.Discount.Round(2)
	}
	return r
}

// values renders the row with amounts as "1234.50".
func (r row) values() []string {
	out := make([]string, len(r.text))
	copy(out, r.text)
	for col, amt := range r.amounts {
		out[col] = amt.StringFixed(2)
	}
	return out
}

func formatDate(t time.Time, layout string) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(layout)
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

package export

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/diewo77/invoice-totals/internal/models"
	"github.com/diewo77/invoice-totals/internal/totals"
)

const (
	journalCode     = "VTE"
	journalLib      = "Ventes"
	accountClients  = "411000"
	accountServices = "706000"
	unknownClient   = "Client inconnu"
	fecFieldMax     = 255
)

// FECColumns is the legal column order. The file itself carries no header.
var FECColumns = []string{
	"JournalCode", "JournalLib", "EcritureNum", "EcritureDate", "CompteNum", "CompteLib",
	"CompAuxNum", "CompAuxLib", "PieceRef", "PieceDate", "EcritureLib", "Debit", "Credit",
	"EcritureLet", "DateLet", "ValidDate", "Montantdevise", "Idevise",
}

var vatAccounts = []struct {
	rate    decimal.Decimal
	account string
}{
	{decimal.NewFromInt(20), "445710"},
	{decimal.NewFromInt(10), "445711"},
	{decimal.RequireFromString("5.5"), "445712"},
	{decimal.RequireFromString("2.1"), "445713"},
	{decimal.Zero, "445714"},
}

// VATAccount returns the collected-VAT account for a French rate. Unknown
// rates book on the standard-rate account.
func VATAccount(rate decimal.Decimal) string {
	for _, a := range vatAccounts {
		if a.rate.Equal(rate) {
			return a.account
		}
	}
	return "445710"
}

// Entry is one FEC journal line.
type Entry struct {
	EcritureNum string
	Date        string
	Account     string
	AccountLib  string
	AuxNum      string
	AuxLib      string
	PieceRef    string
	Label       string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	ValidDate   string
}

func (e Entry) fields() []string {
	return []string{
		journalCode, journalLib, e.EcritureNum, e.Date, e.Account, e.AccountLib,
		e.AuxNum, e.AuxLib, e.PieceRef, e.Date, e.Label,
		e.Debit.StringFixed(2), e.Credit.StringFixed(2),
		"", "", e.ValidDate, "", "",
	}
}

// Entries builds the balanced journal of each invoice: the client debit on
// 411000 against one 706000 credit and one VAT credit per rate of the VAT
// breakdown. The debit is the sum of the rounded credits so every
// EcritureNum balances to the cent. Invoices without an issue date are
// skipped.
func Entries(invoices []models.Invoice) []Entry {
	var entries []Entry
	seq := 1
	for i := range invoices {
		inv := &invoices[i]
		if inv.IssueDate.IsZero() {
			continue
		}
		num := fmt.Sprintf("%s%08d", journalCode, seq)
		seq++

		date := inv.IssueDate.Format("20060102")
		valid := date
		if !inv.CreatedAt.IsZero() {
			valid = inv.CreatedAt.Format("20060102")
		}
		ref := SanitizeFEC(inv.Number)
		client := unknownClient
		aux := ref
		if inv.Client != nil {
			if name := SanitizeFEC(inv.Client.Name); name != "" {
				client = name
			}
			if siret := SanitizeFEC(inv.Client.SIRET); siret != "" {
				aux = siret
			}
		}

		var credits []Entry
		debit := decimal.Zero
		res := totals.Calculate(inv.TotalsInput()).Round(2)
		for _, b := range res.VATBreakdown {
			if !b.BaseHT.IsPositive() {
				continue
			}
			rate := b.Rate.String()
			label := SanitizeFEC(fmt.Sprintf("%s - TVA %s%%", client, rate))
			credits = append(credits, Entry{
				Account:    accountServices,
				AccountLib: "Prestations de services",
				Label:      label,
				Credit:     b.BaseHT,
			})
			debit = debit.Add(b.BaseHT)
			if b.VAT.IsPositive() {
				credits = append(credits, Entry{
					Account:    VATAccount(b.Rate),
					AccountLib: SanitizeFEC(fmt.Sprintf("TVA collectée %s%%", rate)),
					Label:      label,
					Credit:     b.VAT,
				})
				debit = debit.Add(b.VAT)
			}
		}

		entries = append(entries, Entry{
			Account:    accountClients,
			AccountLib: "Clients",
			AuxNum:     aux,
			AuxLib:     client,
			Label:      SanitizeFEC(fmt.Sprintf("Facture %s - %s", ref, client)),
			Debit:      debit,
		})
		entries = append(entries, credits...)
		for j := len(entries) - 1 - len(credits); j < len(entries); j++ {
			entries[j].EcritureNum = num
			entries[j].Date = date
			entries[j].PieceRef = ref
			entries[j].ValidDate = valid
		}
	}
	return entries
}

// WriteFEC writes the journal as '|'-separated lines, BOM first, no header.
func WriteFEC(w io.Writer, invoices []models.Invoice) error {
	entries := Entries(invoices)
	if len(entries) == 0 {
		return ErrNothingToExport
	}
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = strings.Join(e.fields(), "|")
	}
	_, err := io.WriteString(w, bom+strings.Join(lines, "\n"))
	return err
}

var controlChars = regexp.MustCompile(`[\x00-\x1F\x7F]`)

// SanitizeFEC makes a value safe for a FEC field: line breaks and tabs
// become spaces, pipes become dashes, other control characters are dropped
// and the result is cut to 255 characters.
func SanitizeFEC(v string) string {
	v = strings.NewReplacer("\r", " ", "\n", " ", "\t", " ", "|", "-").Replace(v)
	v = controlChars.ReplaceAllString(v, "")
	if r := []rune(v); len(r) > fecFieldMax {
		v = string(r[:fecFieldMax])
	}
	return strings.TrimSpace(v)
}

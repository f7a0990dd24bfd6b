// Package i18n holds the fr/en message catalog, language negotiation and
// money formatting.
package i18n

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const DefaultLang = "fr"

var (
	supported = []language.Tag{language.French, language.English}
	matcher   = language.NewMatcher(supported)
)

var messages = map[string]map[string]string{
	"fr": {
		"required":               "Requis",
		"must_be_positive":       "Doit être positif",
		"out_of_range":           "Hors limites",
		"invalid":                "Valeur invalide",
		"invalid_json":           "Corps JSON invalide",
		"invalid_id":             "Identifiant invalide",
		"invalid_date":           "Date invalide (AAAA-MM-JJ)",
		"invalid_format":         "Format d'export inconnu",
		"validation_failed":      "Données invalides",
		"not_found":              "Introuvable",
		"client_in_use":          "Ce client a encore des factures",
		"not_editable":           "La facture n'est plus un brouillon",
		"empty_invoice":          "Le document ne contient aucune ligne",
		"invalid_transition":     "Changement de statut impossible",
		"not_creditable":         "Cette facture ne peut pas recevoir d'avoir",
		"credit_exceeds_invoice": "Le montant de l'avoir dépasse le reste de la facture",
		"nothing_to_export":      "Aucune facture à exporter pour cette période",
		"unauthorized":           "Authentification requise",
		"rate_limited":           "Trop de requêtes",
		"internal_error":         "Erreur interne",

		"status_DRAFT":     "Brouillon",
		"status_PENDING":   "En attente",
		"status_COMPLETED": "Payée",
		"status_OVERDUE":   "En retard",
		"status_CANCELED":  "Annulée",

		"credit_CORRECTION":         "Correction",
		"credit_COMMERCIAL_GESTURE": "Geste commercial",
		"credit_REFUND":             "Remboursement",
		"credit_STOCK_SHORTAGE":     "Rupture de stock",

		"refund_NEXT_INVOICE":  "Déduction sur la prochaine facture",
		"refund_BANK_TRANSFER": "Virement",
		"refund_CHECK":         "Chèque",
		"refund_VOUCHER":       "Bon d'achat",
		"refund_CASH":          "Espèces",

		"client_COMPANY":    "Entreprise",
		"client_INDIVIDUAL": "Particulier",

		"invoice_deposit": "Acompte",
		"invoice_full":    "Facture complète",

		"total_ht":   "Total HT",
		"total_vat":  "TVA",
		"total_ttc":  "Total TTC",
		"net_to_pay": "Net à payer",
	},
	"en": {
		"required":               "Required",
		"must_be_positive":       "Must be positive",
		"out_of_range":           "Out of range",
		"invalid":                "Invalid value",
		"invalid_json":           "Invalid JSON body",
		"invalid_id":             "Invalid identifier",
		"invalid_date":           "Invalid date (YYYY-MM-DD)",
		"invalid_format":         "Unknown export format",
		"validation_failed":      "Validation failed",
		"not_found":              "Not found",
		"client_in_use":          "This client still has invoices",
		"not_editable":           "The invoice is no longer a draft",
		"empty_invoice":          "The document has no items",
		"invalid_transition":     "Status change not allowed",
		"not_creditable":         "This invoice cannot be credited",
		"credit_exceeds_invoice": "The credit note exceeds the amount left on the invoice",
		"nothing_to_export":      "No invoice to export for this period",
		"unauthorized":           "Authentication required",
		"rate_limited":           "Too many requests",
		"internal_error":         "Internal error",

		"status_DRAFT":     "Draft",
		"status_PENDING":   "Pending",
		"status_COMPLETED": "Paid",
		"status_OVERDUE":   "Overdue",
		"status_CANCELED":  "Canceled",

		"credit_CORRECTION":         "Correction",
		"credit_COMMERCIAL_GESTURE": "Commercial gesture",
		"credit_REFUND":             "Refund",
		"credit_STOCK_SHORTAGE":     "Stock shortage",

		"refund_NEXT_INVOICE":  "Deducted from next invoice",
		"refund_BANK_TRANSFER": "Bank transfer",
		"refund_CHECK":         "Check",
		"refund_VOUCHER":       "Voucher",
		"refund_CASH":          "Cash",

		"client_COMPANY":    "Company",
		"client_INDIVIDUAL": "Individual",

		"invoice_deposit": "Deposit",
		"invoice_full":    "Full invoice",

		"total_ht":   "Total excl. VAT",
		"total_vat":  "VAT",
		"total_ttc":  "Total incl. VAT",
		"net_to_pay": "Net to pay",
	},
}

// DetectLanguage picks fr or en from an Accept-Language header. Anything
// else, including an empty header, is fr.
func DetectLanguage(acceptLanguage string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return DefaultLang
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return DefaultLang
	}
	base, _ := supported[idx].Base()
	return base.String()
}

// Normalize returns lang if it is supported, fr otherwise.
func Normalize(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if _, ok := messages[lang]; ok {
		return lang
	}
	return DefaultLang
}

// T translates code. Unknown languages fall back to fr, unknown codes to the code itself.
func T(lang, code string) string {
	if msg, ok := messages[Normalize(lang)][code]; ok {
		return msg
	}
	if msg, ok := messages[DefaultLang][code]; ok {
		return msg
	}
	return code
}

func label(lang, prefix, value string) string {
	key := prefix + value
	if msg := T(lang, key); msg != key {
		return msg
	}
	return value
}

// StatusLabel returns the display name of an invoice status.
func StatusLabel(lang, status string) string { return label(lang, "status_", status) }

// CreditTypeLabel returns the display name of a credit note type.
func CreditTypeLabel(lang, creditType string) string { return label(lang, "credit_", creditType) }

// RefundMethodLabel returns the display name of a refund method.
func RefundMethodLabel(lang, method string) string { return label(lang, "refund_", method) }

// ClientTypeLabel returns the display name of a client type.
func ClientTypeLabel(lang, clientType string) string { return label(lang, "client_", clientType) }

type ctxKey struct{}

func WithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, ctxKey{}, Normalize(lang))
}

// LangFromContext returns the request language, fr when unset.
func LangFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKey{}).(string); ok && v != "" {
		return v
	}
	return DefaultLang
}

var symbols = map[string]string{
	"EUR": "€",
	"USD": "$",
	"GBP": "£",
	"CHF": "CHF",
}

// FormatMoney formats amount in the currency's standard precision with the
// language's separators: "1 234,50 €" in fr, "€1,234.50" in en. Unknown
// currency codes are formatted as EUR.
func FormatMoney(lang string, amount decimal.Decimal, currencyCode string) string {
	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		unit = currency.EUR
	}
	scale, _ := currency.Standard.Rounding(unit)

	lang = Normalize(lang)
	tag := language.French
	if lang == "en" {
		tag = language.English
	}
	p := message.NewPrinter(tag)

	rounded := amount.Round(int32(scale))
	digits := p.Sprint(number.Decimal(rounded.Abs().InexactFloat64(), number.Scale(scale)))

	sym, ok := symbols[unit.String()]
	if !ok {
		sym = unit.String()
	}
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
	}
	if lang == "en" {
		return sign + sym + digits
	}
	return sign + digits + " " + sym
}

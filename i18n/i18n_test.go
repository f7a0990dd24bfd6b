package i18n

import (
	"context"
	"strings"
	"testing"
	"unicode"

	"github.com/shopspring/decimal"
)

func TestDetectLanguage(t *testing.T) {
	if DetectLanguage("en-US,en;q=0.9") != "en" {
		t.Fatalf("expected en")
	}
	if DetectLanguage("EN-gb") != "en" {
		t.Fatalf("expected en for EN-gb")
	}
	if DetectLanguage("fr-FR,fr;q=0.8") != "fr" {
		t.Fatalf("expected fr fallback")
	}
	if DetectLanguage("") != "fr" {
		t.Fatalf("expected default fr")
	}
}

func TestTranslations(t *testing.T) {
	if T("en", "required") != "Required" {
		t.Fatalf("expected Required")
	}
	if T("fr", "required") != "Requis" {
		t.Fatalf("expected Requis")
	}
	// unknown code -> fallback to code
	if T("en", "__nope__") != "__nope__" {
		t.Fatalf("expected fallback to code")
	}
	// unknown language -> fallback to fr translation if exists
	if T("es", "required") != "Requis" {
		t.Fatalf("expected fr fallback for es lang")
	}
}

func TestLabels(t *testing.T) {
	cases := []struct {
		got, want string
	}{
		{StatusLabel("fr", "COMPLETED"), "Payée"},
		{StatusLabel("en", "OVERDUE"), "Overdue"},
		{StatusLabel("fr", "UNKNOWN"), "UNKNOWN"},
		{CreditTypeLabel("fr", "COMMERCIAL_GESTURE"), "Geste commercial"},
		{RefundMethodLabel("en", "BANK_TRANSFER"), "Bank transfer"},
		{ClientTypeLabel("fr", "INDIVIDUAL"), "Particulier"},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Errorf("got %q, want %q", c.got, c.want)
		}
	}
}

func TestLangContext(t *testing.T) {
	ctx := context.Background()
	if LangFromContext(ctx) != "fr" {
		t.Fatalf("expected fr default")
	}
	if LangFromContext(WithLang(ctx, "EN")) != "en" {
		t.Fatalf("expected en")
	}
	if LangFromContext(WithLang(ctx, "de")) != "fr" {
		t.Fatalf("unsupported language should normalize to fr")
	}
}

// digitsOnly drops grouping spaces, whatever rune the locale uses for them.
func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) || r == ',' || r == '.' || r == '-' {
			return r
		}
		return -1
	}, s)
}

func TestFormatMoney(t *testing.T) {
	amount := decimal.RequireFromString("1234.5")

	fr := FormatMoney("fr", amount, "EUR")
	if digitsOnly(fr) != "1234,50" || !strings.HasSuffix(fr, " €") {
		t.Fatalf("fr: got %q", fr)
	}
	en := FormatMoney("en", amount, "EUR")
	if en != "€1,234.50" {
		t.Fatalf("en: got %q", en)
	}
	neg := FormatMoney("en", decimal.RequireFromString("-12.345"), "USD")
	if neg != "-$12.35" {
		t.Fatalf("negative: got %q", neg)
	}
	if got := FormatMoney("en", decimal.NewFromInt(5), "nope"); got != "€5.00" {
		t.Fatalf("unknown currency: got %q", got)
	}
}

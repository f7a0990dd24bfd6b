// Command totals computes invoice totals from a JSON document without the
// server:
//
//	totals [-f invoice.json] [-lang fr] [-round 2] [-currency EUR]
//
// The input is read from stdin when -f is omitted.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/diewo77/invoice-totals/i18n"
	"github.com/diewo77/invoice-totals/internal/totals"
)

func main() {
	_ = godotenv.Load()
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		logrus.WithError(err).Fatal("totals")
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("totals", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	file := fs.String("f", "", "input JSON file (default stdin)")
	lang := fs.String("lang", i18n.DefaultLang, "summary language (fr, en)")
	places := fs.Int("round", 2, "decimal places, negative keeps full precision")
	currency := fs.String("currency", envOr("CURRENCY", "EUR"), "ISO 4217 currency of the summary")
	if err := fs.Parse(args); err != nil {
		return err
	}

	in := stdin
	if *file != "" && *file != "-" {
		f, err := os.Open(*file)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	var input totals.Input
	if err := json.NewDecoder(in).Decode(&input); err != nil {
		return fmt.Errorf("decode input: %w", err)
	}

	res := totals.Calculate(input)
	if *places >= 0 {
		res = res.Round(int32(*places))
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return err
	}
	_, err := fmt.Fprintln(stdout, summary(i18n.Normalize(*lang), *currency, res))
	return err
}

func summary(lang, currency string, res totals.Result) string {
	parts := []string{
		i18n.T(lang, "total_ht") + ": " + i18n.FormatMoney(lang, res.TotalHT, currency),
		i18n.T(lang, "total_vat") + ": " + i18n.FormatMoney(lang, res.TotalVAT, currency),
		i18n.T(lang, "total_ttc") + ": " + i18n.FormatMoney(lang, res.TotalTTC, currency),
	}
	if !res.NetToPay.Equal(res.TotalTTC) {
		parts = append(parts, i18n.T(lang, "net_to_pay")+": "+i18n.FormatMoney(lang, res.NetToPay, currency))
	}
	return strings.Join(parts, " | ")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

package export

import (
	"encoding/csv"
	"io"

	"github.com/diewo77/invoice-totals/internal/models"
)

// WriteCSV writes one ';'-separated line per invoice after a header line,
// prefixed with a UTF-8 BOM so spreadsheet tools detect the encoding.
func WriteCSV(w io.Writer, invoices []models.Invoice) error {
	if len(invoices) == 0 {
		return ErrNothingToExport
	}
	if _, err := io.WriteString(w, bom); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	if err := cw.Write(Headers); err != nil {
		return err
	}
	for i := range invoices {
		if err := cw.Write(buildRow(&invoices[i]).values()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

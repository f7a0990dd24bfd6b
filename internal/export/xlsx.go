package export

import (
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/diewo77/invoice-totals/internal/models"
)

// SheetName is the worksheet holding the invoice listing.
const SheetName = "Factures"

// WriteXLSX writes the same columns as WriteCSV into an Excel workbook.
// Amounts are stored as numbers.
func WriteXLSX(w io.Writer, invoices []models.Invoice) error {
	if len(invoices) == 0 {
		return ErrNothingToExport
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return err
	}
	for col, h := range Headers {
		if err := setCell(f, col, 1, h); err != nil {
			return err
		}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(SheetName, 1, 1, bold); err != nil {
		return err
	}

	for i := range invoices {
		r := buildRow(&invoices[i])
		for col, v := range r.text {
			var value interface{} = v
			if amt, ok := r.amounts[col]; ok {
				value = amt.InexactFloat64()
			}
			if err := setCell(f, col, i+2, value); err != nil {
				return err
			}
		}
	}
	return f.Write(w)
}

func setCell(f *excelize.File, col, rowNo int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col+1, rowNo)
	if err != nil {
		return err
	}
	return f.SetCellValue(SheetName, cell, value)
}

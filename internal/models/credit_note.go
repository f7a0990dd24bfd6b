package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/diewo77/invoice-totals/internal/totals"
)

// CreditNotePrefix is the numbering prefix of avoirs.
const CreditNotePrefix = "AV"

type CreditNoteType string

const (
	CreditNoteCorrection        CreditNoteType = "CORRECTION"
	CreditNoteCommercialGesture CreditNoteType = "COMMERCIAL_GESTURE"
	CreditNoteRefund            CreditNoteType = "REFUND"
	CreditNoteStockShortage     CreditNoteType = "STOCK_SHORTAGE"
)

func (t CreditNoteType) Valid() bool {
	switch t {
	case CreditNoteCorrection, CreditNoteCommercialGesture, CreditNoteRefund, CreditNoteStockShortage:
		return true
	}
	return false
}

type RefundMethod string

const (
	RefundNextInvoice  RefundMethod = "NEXT_INVOICE"
	RefundBankTransfer RefundMethod = "BANK_TRANSFER"
	RefundCheck        RefundMethod = "CHECK"
	RefundVoucher      RefundMethod = "VOUCHER"
	RefundCash         RefundMethod = "CASH"
)

func (m RefundMethod) Valid() bool {
	switch m {
	case RefundNextInvoice, RefundBankTransfer, RefundCheck, RefundVoucher, RefundCash:
		return true
	}
	return false
}

// CreditNote (avoir) cancels all or part of an issued invoice. Amounts are
// stored positive; they are subtracted from the invoice.
type CreditNote struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	WorkspaceID uint   `gorm:"index;not null;uniqueIndex:idx_credit_ws_number" json:"workspace_id"`
	Number      string `gorm:"size:50;not null;uniqueIndex:idx_credit_ws_number" json:"number"`

	InvoiceID uint `gorm:"index;not null" json:"invoice_id"`

	IssueDate    time.Time      `gorm:"not null" json:"issue_date"`
	CreditType   CreditNoteType `gorm:"size:30;not null" json:"credit_type"`
	RefundMethod RefundMethod   `gorm:"size:30;not null" json:"refund_method"`
	Reason       string         `gorm:"type:text" json:"reason,omitempty"`

	Discount        decimal.Decimal     `gorm:"type:decimal(12,2);not null;default:0" json:"discount"`
	DiscountType    totals.DiscountType `gorm:"size:20;not null;default:'PERCENTAGE'" json:"discount_type"`
	IsReverseCharge bool                `json:"is_reverse_charge"`

	TotalHT  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total_ht"`
	TotalVAT decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total_vat"`
	TotalTTC decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total_ttc"`

	Items []CreditNoteItem `gorm:"foreignKey:CreditNoteID;constraint:OnDelete:CASCADE" json:"items"`
}

// CreditNoteItem is one credited line.
type CreditNoteItem struct {
	ID           uint             `gorm:"primaryKey" json:"id"`
	CreditNoteID uint             `gorm:"index;not null" json:"credit_note_id"`
	Description  string           `gorm:"size:500;not null" json:"description"`
	Quantity     decimal.Decimal  `gorm:"type:decimal(12,3);not null;default:1" json:"quantity"`
	UnitPrice    decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0" json:"unit_price"`
	VATRate      *decimal.Decimal `gorm:"type:decimal(5,2)" json:"vat_rate"`
	Position     int              `gorm:"default:0" json:"position"`
}

// TotalsInput converts the credit note into calculator input. Unit prices
// are taken in absolute value so a note entered with negative prices gives
// the same totals as one entered with positive prices.
func (c *CreditNote) TotalsInput() totals.Input {
	in := totals.Input{
		Items:           make([]totals.LineItem, len(c.Items)),
		Discount:        totals.Dec(c.Discount),
		DiscountType:    c.DiscountType.Normalize(),
		IsReverseCharge: c.IsReverseCharge,
	}
	for n, item := range c.Items {
		in.Items[n] = totals.LineItem{
			Description: item.Description,
			Quantity:    totals.Dec(item.Quantity.Abs()),
			UnitPrice:   totals.Dec(item.UnitPrice.Abs()),
			VATRate:     totals.DecPtr(item.VATRate),
		}
	}
	return in
}

// ApplyTotals copies the rounded figures into the stored columns.
func (c *CreditNote) ApplyTotals(res totals.Result) {
	r := res.Round(2)
	c.TotalHT = r.TotalHT
	c.TotalVAT = r.TotalVAT
	c.TotalTTC = r.TotalTTC
}

// GenerateCreditNoteNumber returns the next avoir number (AV-YYYY-NNNN).
func GenerateCreditNoteNumber(db *gorm.DB, workspaceID uint, year int) (string, error) {
	return nextNumber(db, &CreditNote{}, workspaceID, CreditNotePrefix, year)
}

package models

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/diewo77/invoice-totals/internal/totals"
)

// InvoiceStatus represents the status of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "DRAFT"
	InvoiceStatusPending   InvoiceStatus = "PENDING"
	InvoiceStatusCompleted InvoiceStatus = "COMPLETED"
	InvoiceStatusCanceled  InvoiceStatus = "CANCELED"

	// InvoiceStatusOverdue is never stored. It is derived from a pending
	// invoice whose due date has passed.
	InvoiceStatusOverdue InvoiceStatus = "OVERDUE"
)

// Valid reports whether s is a storable status.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusPending, InvoiceStatusCompleted, InvoiceStatusCanceled:
		return true
	}
	return false
}

// DefaultInvoicePrefix is used when a workspace has no custom prefix.
const DefaultInvoicePrefix = "F"

// Shipping is embedded in Invoice with a shipping_ column prefix.
type Shipping struct {
	BillShipping bool            `json:"bill_shipping"`
	AmountHT     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"amount_ht"`
	// VATRate nil means the default rate.
	VATRate *decimal.Decimal `gorm:"type:decimal(5,2)" json:"vat_rate"`
}

// Invoice represents a billing invoice.
type Invoice struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	// WorkspaceID scopes every query (multi-tenant isolation)
	WorkspaceID uint `gorm:"index;not null;uniqueIndex:idx_invoice_ws_number" json:"workspace_id"`

	// Invoice identification
	Number              string `gorm:"size:50;not null;uniqueIndex:idx_invoice_ws_number" json:"number"`
	Prefix              string `gorm:"size:10" json:"prefix,omitempty"`
	PurchaseOrderNumber string `gorm:"size:100" json:"purchase_order_number,omitempty"`

	// Client relationship
	ClientID *uint   `gorm:"index" json:"client_id,omitempty"`
	Client   *Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`

	// Invoice dates
	IssueDate time.Time  `gorm:"not null" json:"issue_date"`
	DueDate   time.Time  `gorm:"not null" json:"due_date"`
	PaidDate  *time.Time `json:"paid_date,omitempty"`

	Status    InvoiceStatus `gorm:"size:20;not null;default:'DRAFT';index" json:"status"`
	IsDeposit bool          `json:"is_deposit"`

	// Pricing terms
	Discount        decimal.Decimal     `gorm:"type:decimal(12,2);not null;default:0" json:"discount"`
	DiscountType    totals.DiscountType `gorm:"size:20;not null;default:'PERCENTAGE'" json:"discount_type"`
	Escompte        decimal.Decimal     `gorm:"type:decimal(5,2);not null;default:0" json:"escompte"`
	RetenueGarantie decimal.Decimal     `gorm:"type:decimal(5,2);not null;default:0" json:"retenue_garantie"`
	IsReverseCharge bool                `json:"is_reverse_charge"`
	Shipping        Shipping            `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping"`

	// Notes and terms
	Notes        string `gorm:"type:text" json:"notes,omitempty"`
	PaymentTerms string `gorm:"size:500" json:"payment_terms,omitempty"`

	// Denormalized totals, refreshed by ApplyTotals on every write.
	DiscountAmount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"discount_amount"`
	TotalHT        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total_ht"`
	TotalVAT       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total_vat"`
	TotalTTC       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total_ttc"`
	NetToPay       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"net_to_pay"`

	Items       []InvoiceItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items"`
	CreditNotes []CreditNote  `gorm:"foreignKey:InvoiceID" json:"credit_notes,omitempty"`
}

// IsDraft returns true if the invoice is in draft status.
func (i *Invoice) IsDraft() bool {
	return i.Status == InvoiceStatusDraft
}

// IsFinal returns true if the invoice has been issued.
func (i *Invoice) IsFinal() bool {
	return i.Status == InvoiceStatusPending || i.Status == InvoiceStatusCompleted
}

// CanEdit returns true if the invoice can still be edited.
func (i *Invoice) CanEdit() bool {
	return i.Status == InvoiceStatusDraft
}

// IsOverdue reports whether a pending invoice is past its due day at now.
func (i *Invoice) IsOverdue(now time.Time) bool {
	if i.Status != InvoiceStatusPending || i.DueDate.IsZero() {
		return false
	}
	y, m, d := i.DueDate.Date()
	endOfDue := time.Date(y, m, d, 0, 0, 0, 0, i.DueDate.Location()).AddDate(0, 0, 1)
	return now.After(endOfDue) || now.Equal(endOfDue)
}

// DisplayStatus is Status, with PENDING reported as OVERDUE when late.
func (i *Invoice) DisplayStatus(now time.Time) InvoiceStatus {
	if i.IsOverdue(now) {
		return InvoiceStatusOverdue
	}
	return i.Status
}

// TotalsInput converts the invoice into calculator input. Items are taken in
// slice order; callers load them ordered by position.
func (i *Invoice) TotalsInput() totals.Input {
	in := totals.Input{
		Items:           make([]totals.LineItem, len(i.Items)),
		Discount:        totals.Dec(i.Discount),
		DiscountType:    i.DiscountType.Normalize(),
		Escompte:        totals.Dec(i.Escompte),
		RetenueGarantie: totals.Dec(i.RetenueGarantie),
		IsReverseCharge: i.IsReverseCharge,
		Shipping: &totals.Shipping{
			BillShipping:     i.Shipping.BillShipping,
			ShippingAmountHT: totals.Dec(i.Shipping.AmountHT),
			ShippingVatRate:  totals.DecPtr(i.Shipping.VATRate),
		},
	}
	for n := range i.Items {
		in.Items[n] = i.Items[n].LineItem()
	}
	return in
}

// ApplyTotals copies the calculator result into the denormalized columns,
// rounded to cents.
func (i *Invoice) ApplyTotals(res totals.Result) {
	r := res.Round(2)
	i.DiscountAmount = r.DiscountAmount
	i.TotalHT = r.TotalHT
	i.TotalVAT = r.TotalVAT
	i.TotalTTC = r.TotalTTC
	i.NetToPay = r.NetToPay
}

// InvoiceItem represents a line item on an invoice.
type InvoiceItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Parent invoice
	InvoiceID uint `gorm:"index;not null" json:"invoice_id"`

	Description string          `gorm:"size:500;not null" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:decimal(12,3);not null;default:1" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"unit_price"`
	Unit        string          `gorm:"size:50;default:'unit'" json:"unit"`

	// VATRate nil means the default rate (20). Zero means exempt.
	VATRate          *decimal.Decimal `gorm:"type:decimal(5,2)" json:"vat_rate"`
	VATExemptionText string           `gorm:"size:255" json:"vat_exemption_text,omitempty"`

	Discount     decimal.Decimal     `gorm:"type:decimal(12,2);not null;default:0" json:"discount"`
	DiscountType totals.DiscountType `gorm:"size:20;not null;default:'PERCENTAGE'" json:"discount_type"`

	// ProgressPercentage nil means 100 (fully billed).
	ProgressPercentage *decimal.Decimal `gorm:"type:decimal(5,2)" json:"progress_percentage"`

	// Position for ordering
	Position int `gorm:"default:0" json:"position"`
}

// LineItem converts the row into calculator input.
func (item *InvoiceItem) LineItem() totals.LineItem {
	return totals.LineItem{
		Description:        item.Description,
		Quantity:           totals.Dec(item.Quantity),
		UnitPrice:          totals.Dec(item.UnitPrice),
		ProgressPercentage: totals.DecPtr(item.ProgressPercentage),
		Discount:           totals.Dec(item.Discount),
		DiscountType:       item.DiscountType.Normalize(),
		VATRate:            totals.DecPtr(item.VATRate),
	}
}

// GenerateInvoiceNumber returns the next issued number for the workspace.
// Format: <prefix>-YYYY-NNNN (e.g., F-2025-0001)
func GenerateInvoiceNumber(db *gorm.DB, workspaceID uint, prefix string, year int) (string, error) {
	if prefix == "" {
		prefix = DefaultInvoicePrefix
	}
	return nextNumber(db, &Invoice{}, workspaceID, prefix, year)
}

// DraftNumber is the placeholder number a draft carries until finalized.
func DraftNumber(now time.Time) string {
	return "DRAFT-" + strconv.FormatInt(now.UnixNano(), 10)
}

func nextNumber(db *gorm.DB, model any, workspaceID uint, prefix string, year int) (string, error) {
	var count int64
	err := db.Unscoped().Model(model).
		Where("workspace_id = ? AND number LIKE ?", workspaceID, fmt.Sprintf("%s-%d-%%", prefix, year)).
		Count(&count).Error
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%d-%04d", prefix, year, count+1), nil
}

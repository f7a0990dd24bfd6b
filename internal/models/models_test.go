package models

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/diewo77/invoice-totals/internal/totals"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestClient_FullAddress(t *testing.T) {
	tests := []struct {
		name   string
		client Client
		want   string
	}{
		{
			name: "full address",
			client: Client{
				Address:    "123 Main St",
				PostalCode: "75001",
				City:       "Paris",
				Country:    "France",
			},
			want: "123 Main St\n75001 Paris\nFrance",
		},
		{
			name: "only city",
			client: Client{
				City: "Paris",
			},
			want: "Paris",
		},
		{
			name: "address and city",
			client: Client{
				Address: "123 Main St",
				City:    "Paris",
			},
			want: "123 Main St\nParis",
		},
		{
			name:   "empty",
			client: Client{},
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.client.FullAddress(); got != tt.want {
				t.Errorf("FullAddress() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInvoice_Status(t *testing.T) {
	tests := []struct {
		name    string
		status  InvoiceStatus
		isDraft bool
		isFinal bool
		canEdit bool
	}{
		{"draft", InvoiceStatusDraft, true, false, true},
		{"pending", InvoiceStatusPending, false, true, false},
		{"completed", InvoiceStatusCompleted, false, true, false},
		{"canceled", InvoiceStatusCanceled, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &Invoice{Status: tt.status}
			if got := inv.IsDraft(); got != tt.isDraft {
				t.Errorf("IsDraft() = %v, want %v", got, tt.isDraft)
			}
			if got := inv.IsFinal(); got != tt.isFinal {
				t.Errorf("IsFinal() = %v, want %v", got, tt.isFinal)
			}
			if got := inv.CanEdit(); got != tt.canEdit {
				t.Errorf("CanEdit() = %v, want %v", got, tt.canEdit)
			}
		})
	}
	assert.False(t, InvoiceStatusOverdue.Valid())
	assert.True(t, InvoiceStatusCanceled.Valid())
}

func TestInvoice_IsOverdue(t *testing.T) {
	due := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	inv := &Invoice{Status: InvoiceStatusPending, DueDate: due}

	assert.False(t, inv.IsOverdue(due.Add(23*time.Hour)), "due day itself is not late")
	assert.True(t, inv.IsOverdue(due.AddDate(0, 0, 1)))
	assert.Equal(t, InvoiceStatusOverdue, inv.DisplayStatus(due.AddDate(0, 1, 0)))

	inv.Status = InvoiceStatusCompleted
	assert.False(t, inv.IsOverdue(due.AddDate(1, 0, 0)))
	assert.Equal(t, InvoiceStatusCompleted, inv.DisplayStatus(due.AddDate(1, 0, 0)))
}

func TestInvoice_TotalsInput(t *testing.T) {
	inv := &Invoice{
		Items: []InvoiceItem{
			{Quantity: dec("2"), UnitPrice: dec("100"), VATRate: decPtr("20")},  // HT: 200, VAT: 40
			{Quantity: dec("1"), UnitPrice: dec("50"), VATRate: decPtr("10")},   // HT: 50, VAT: 5
			{Quantity: dec("3"), UnitPrice: dec("10"), VATRate: decPtr("5.5")},  // HT: 30, VAT: 1.65
			{Quantity: dec("1"), UnitPrice: dec("10"), DiscountType: "fixed", Discount: dec("10")}, // HT: 0
		},
		Shipping: Shipping{BillShipping: true, AmountHT: dec("20")}, // HT: 20, VAT: 4 at the default rate
	}

	res := totals.Calculate(inv.TotalsInput())
	assert.True(t, res.TotalHT.Equal(dec("300")), "TotalHT = %s", res.TotalHT)
	assert.True(t, res.TotalVAT.Equal(dec("50.65")), "TotalVAT = %s", res.TotalVAT)
	assert.True(t, res.TotalTTC.Equal(dec("350.65")), "TotalTTC = %s", res.TotalTTC)

	inv.ApplyTotals(res)
	assert.Equal(t, "350.65", inv.TotalTTC.StringFixed(2))
	assert.Equal(t, "350.65", inv.NetToPay.StringFixed(2))
}

func TestInvoiceItem_NilRatesUseDefaults(t *testing.T) {
	item := &InvoiceItem{Quantity: dec("5"), UnitPrice: dec("20")}
	li := item.LineItem()
	assert.False(t, li.VATRate.IsSet())
	assert.False(t, li.ProgressPercentage.IsSet())
	assert.Equal(t, totals.DiscountPercentage, li.DiscountType)

	res := totals.Calculate(totals.Input{Items: []totals.LineItem{li}})
	assert.True(t, res.TotalVAT.Equal(dec("20")))
}

func TestCreditNote_TotalsInputUsesAbsolutePrices(t *testing.T) {
	positive := &CreditNote{Items: []CreditNoteItem{{Quantity: dec("1"), UnitPrice: dec("50"), VATRate: decPtr("20")}}}
	negative := &CreditNote{Items: []CreditNoteItem{{Quantity: dec("1"), UnitPrice: dec("-50"), VATRate: decPtr("20")}}}

	a := totals.Calculate(positive.TotalsInput())
	b := totals.Calculate(negative.TotalsInput())
	assert.True(t, a.TotalTTC.Equal(dec("60")))
	assert.True(t, a.TotalTTC.Equal(b.TotalTTC))

	negative.ApplyTotals(b)
	assert.Equal(t, "60.00", negative.TotalTTC.StringFixed(2))
}

func TestCreditNoteEnums(t *testing.T) {
	assert.True(t, CreditNoteRefund.Valid())
	assert.False(t, CreditNoteType("GIFT").Valid())
	assert.True(t, RefundCash.Valid())
	assert.False(t, RefundMethod("").Valid())
}

func TestNumbering(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Client{}, &Invoice{}, &InvoiceItem{}, &CreditNote{}, &CreditNoteItem{}))

	n, err := GenerateInvoiceNumber(db, 1, "", 2025)
	require.NoError(t, err)
	assert.Equal(t, "F-2025-0001", n)

	now := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.Create(&Invoice{WorkspaceID: 1, Number: n, IssueDate: now, DueDate: now, Status: InvoiceStatusPending}).Error)
	require.NoError(t, db.Create(&Invoice{WorkspaceID: 1, Number: DraftNumber(now), IssueDate: now, DueDate: now}).Error)
	require.NoError(t, db.Create(&Invoice{WorkspaceID: 2, Number: "F-2025-0001", IssueDate: now, DueDate: now}).Error)

	n, err = GenerateInvoiceNumber(db, 1, "F", 2025)
	require.NoError(t, err)
	assert.Equal(t, "F-2025-0002", n)

	n, err = GenerateInvoiceNumber(db, 1, "F", 2026)
	require.NoError(t, err)
	assert.Equal(t, "F-2026-0001", n)

	n, err = GenerateCreditNoteNumber(db, 1, 2025)
	require.NoError(t, err)
	assert.Equal(t, "AV-2025-0001", n)
}

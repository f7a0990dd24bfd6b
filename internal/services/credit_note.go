package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/diewo77/invoice-totals/internal/models"
	"github.com/diewo77/invoice-totals/internal/totals"
)

// CreditNoteService issues avoirs against issued invoices.
type CreditNoteService struct {
	db       *gorm.DB
	invoices *InvoiceService
}

func NewCreditNoteService(db *gorm.DB, invoices *InvoiceService) *CreditNoteService {
	return &CreditNoteService{db: db, invoices: invoices}
}

// Create stores note against the invoice. The credited TTC of all notes
// together can never exceed the invoice TTC.
func (s *CreditNoteService) Create(ctx context.Context, workspaceID, invoiceID uint, note *models.CreditNote) error {
	if !note.CreditType.Valid() {
		return fmt.Errorf("%w: credit type %q", ErrInvalidInput, note.CreditType)
	}
	if !note.RefundMethod.Valid() {
		return fmt.Errorf("%w: refund method %q", ErrInvalidInput, note.RefundMethod)
	}
	if len(note.Items) == 0 {
		return ErrEmptyInvoice
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := loadInvoice(tx, workspaceID, invoiceID)
		if err != nil {
			return err
		}
		if !inv.IsFinal() {
			return fmt.Errorf("%w: invoice is %s", ErrNotCreditable, inv.Status)
		}

		now := s.invoices.now()
		note.ID = 0
		note.WorkspaceID = workspaceID
		note.InvoiceID = inv.ID
		note.IsReverseCharge = inv.IsReverseCharge
		note.DiscountType = note.DiscountType.Normalize()
		if note.IssueDate.IsZero() {
			note.IssueDate = now
		}
		for i := range note.Items {
			note.Items[i].ID = 0
			note.Items[i].CreditNoteID = 0
			note.Items[i].Position = i
		}
		note.ApplyTotals(totals.Calculate(note.TotalsInput()))

		remaining := s.remaining(inv)
		if note.TotalTTC.Abs().GreaterThan(remaining) {
			return fmt.Errorf("%w: %s requested, %s left", ErrCreditExceedsInvoice, note.TotalTTC.Abs().StringFixed(2), remaining.StringFixed(2))
		}

		number, err := models.GenerateCreditNoteNumber(tx, workspaceID, note.IssueDate.Year())
		if err != nil {
			return err
		}
		note.Number = number
		return tx.Create(note).Error
	})
	if err != nil {
		return err
	}
	s.invoices.invalidate(ctx, workspaceID)
	return nil
}

// ListByInvoice returns the credit notes of an invoice, oldest first.
func (s *CreditNoteService) ListByInvoice(ctx context.Context, workspaceID, invoiceID uint) ([]models.CreditNote, error) {
	inv, err := loadInvoice(s.db.WithContext(ctx), workspaceID, invoiceID)
	if err != nil {
		return nil, err
	}
	return inv.CreditNotes, nil
}

func (s *CreditNoteService) Get(ctx context.Context, workspaceID, id uint) (*models.CreditNote, error) {
	var note models.CreditNote
	err := s.db.WithContext(ctx).
		Where("workspace_id = ? AND id = ?", workspaceID, id).
		Preload("Items", orderByPosition).
		First(&note).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("credit note %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &note, nil
}

func (s *CreditNoteService) Delete(ctx context.Context, workspaceID, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("workspace_id = ? AND id = ?", workspaceID, id).Delete(&models.CreditNote{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("credit note %d: %w", id, ErrNotFound)
		}
		return tx.Where("credit_note_id = ?", id).Delete(&models.CreditNoteItem{}).Error
	})
	if err != nil {
		return err
	}
	s.invoices.invalidate(ctx, workspaceID)
	return nil
}

// Reconciliation is an invoice balance after its credit notes.
type Reconciliation struct {
	InvoiceID      uint            `json:"invoice_id"`
	Totals         totals.Result   `json:"totals"`
	CreditNotes    int             `json:"credit_notes"`
	CreditedTTC    decimal.Decimal `json:"credited_ttc"`
	RemainingTTC   decimal.Decimal `json:"remaining_ttc"`
	NetToPay       decimal.Decimal `json:"net_to_pay"`
	RemainingToPay decimal.Decimal `json:"remaining_to_pay"`
}

// Balance reconciles an invoice with its credit notes.
func (s *CreditNoteService) Balance(ctx context.Context, workspaceID, invoiceID uint) (*Reconciliation, error) {
	inv, err := loadInvoice(s.db.WithContext(ctx), workspaceID, invoiceID)
	if err != nil {
		return nil, err
	}
	res := s.invoices.ComputeTotals(inv).Round(2)
	credited := creditedTTC(inv)

	rec := &Reconciliation{
		InvoiceID:    inv.ID,
		Totals:       res,
		CreditNotes:  len(inv.CreditNotes),
		CreditedTTC:  credited,
		RemainingTTC: res.TotalTTC.Sub(credited),
		NetToPay:     res.NetToPay,
	}
	rec.RemainingToPay = decimal.Max(decimal.Zero, res.NetToPay.Sub(credited))
	return rec, nil
}

func (s *CreditNoteService) remaining(inv *models.Invoice) decimal.Decimal {
	ttc := s.invoices.ComputeTotals(inv).Round(2).TotalTTC
	return ttc.Sub(creditedTTC(inv))
}

func creditedTTC(inv *models.Invoice) decimal.Decimal {
	sum := decimal.Zero
	for _, cn := range inv.CreditNotes {
		sum = sum.Add(cn.TotalTTC.Abs())
	}
	return sum
}

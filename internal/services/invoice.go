// Package services holds the invoice and credit note workflows. Every stored
// total is produced by the totals package through ComputeTotals.
package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/diewo77/invoice-totals/internal/cache"
	"github.com/diewo77/invoice-totals/internal/models"
	"github.com/diewo77/invoice-totals/internal/totals"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	defaultDueDays  = 30
)

type InvoiceService struct {
	db    *gorm.DB
	cache *cache.Cache
	log   logrus.FieldLogger
	now   func() time.Time
}

func NewInvoiceService(db *gorm.DB, c *cache.Cache, log logrus.FieldLogger) *InvoiceService {
	return &InvoiceService{db: db, cache: c, log: log, now: time.Now}
}

// SetClock replaces time.Now, for tests.
func (s *InvoiceService) SetClock(now func() time.Time) { s.now = now }

// ComputeTotals derives every figure of inv from its stored fields.
func (s *InvoiceService) ComputeTotals(inv *models.Invoice) totals.Result {
	return totals.Calculate(inv.TotalsInput())
}

// Create stores inv as a new draft of the workspace.
func (s *InvoiceService) Create(ctx context.Context, workspaceID uint, inv *models.Invoice) error {
	now := s.now()
	inv.ID = 0
	inv.WorkspaceID = workspaceID
	inv.Status = models.InvoiceStatusDraft
	inv.Number = models.DraftNumber(now)
	inv.PaidDate = nil
	s.prepare(inv, now)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkClient(tx, workspaceID, inv.ClientID); err != nil {
			return err
		}
		return tx.Create(inv).Error
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, workspaceID)
	return nil
}

// Update replaces the editable fields and the items of a draft.
func (s *InvoiceService) Update(ctx context.Context, workspaceID, id uint, patch *models.Invoice) (*models.Invoice, error) {
	var out *models.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := loadInvoice(tx, workspaceID, id)
		if err != nil {
			return err
		}
		if !inv.CanEdit() {
			return ErrNotEditable
		}
		if err := checkClient(tx, workspaceID, patch.ClientID); err != nil {
			return err
		}

		inv.ClientID = patch.ClientID
		inv.Client = nil
		inv.Prefix = patch.Prefix
		inv.PurchaseOrderNumber = patch.PurchaseOrderNumber
		inv.IssueDate = patch.IssueDate
		inv.DueDate = patch.DueDate
		inv.IsDeposit = patch.IsDeposit
		inv.Discount = patch.Discount
		inv.DiscountType = patch.DiscountType
		inv.Escompte = patch.Escompte
		inv.RetenueGarantie = patch.RetenueGarantie
		inv.IsReverseCharge = patch.IsReverseCharge
		inv.Shipping = patch.Shipping
		inv.Notes = patch.Notes
		inv.PaymentTerms = patch.PaymentTerms
		inv.Items = patch.Items
		s.prepare(inv, s.now())

		if err := tx.Where("invoice_id = ?", inv.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(inv).Error; err != nil {
			return err
		}
		if len(inv.Items) > 0 {
			if err := tx.Create(&inv.Items).Error; err != nil {
				return err
			}
		}
		out = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, workspaceID)
	return out, nil
}

// Get loads one invoice with its items, client and credit notes.
func (s *InvoiceService) Get(ctx context.Context, workspaceID, id uint) (*models.Invoice, error) {
	return loadInvoice(s.db.WithContext(ctx), workspaceID, id)
}

// ListFilter narrows List. Status may be OVERDUE.
type ListFilter struct {
	Query  string
	Status models.InvoiceStatus
	From   *time.Time
	To     *time.Time
	Page   int
	Limit  int
}

// ListResult is one page of invoices.
type ListResult struct {
	Invoices []models.Invoice `json:"invoices"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	Limit    int              `json:"limit"`
}

// List returns the workspace invoices, newest first.
func (s *InvoiceService) List(ctx context.Context, workspaceID uint, f ListFilter) (*ListResult, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}

	q := s.db.WithContext(ctx).Model(&models.Invoice{}).Where("workspace_id = ?", workspaceID).Session(&gorm.Session{})
	switch f.Status {
	case "":
	case models.InvoiceStatusOverdue:
		y, m, d := s.now().Date()
		today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		q = q.Where("status = ? AND due_date < ?", models.InvoiceStatusPending, today)
	default:
		q = q.Where("status = ?", f.Status)
	}
	if query := strings.TrimSpace(f.Query); query != "" {
		like := "%" + query + "%"
		q = q.Where(
			"number LIKE ? OR purchase_order_number LIKE ? OR client_id IN (?)",
			like, like,
			s.db.Model(&models.Client{}).Select("id").Where("workspace_id = ? AND name LIKE ?", workspaceID, like),
		)
	}
	if f.From != nil {
		q = q.Where("issue_date >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("issue_date < ?", f.To.AddDate(0, 0, 1))
	}

	res := &ListResult{Page: f.Page, Limit: f.Limit}
	if err := q.Count(&res.Total).Error; err != nil {
		return nil, err
	}
	err := q.Preload("Items", orderByPosition).Preload("Client").
		Order("issue_date DESC, id DESC").
		Offset((f.Page - 1) * f.Limit).Limit(f.Limit).
		Find(&res.Invoices).Error
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ListForExport returns every non-draft invoice of the workspace, oldest first.
func (s *InvoiceService) ListForExport(ctx context.Context, workspaceID uint) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := s.db.WithContext(ctx).
		Where("workspace_id = ? AND status <> ?", workspaceID, models.InvoiceStatusDraft).
		Preload("Items", orderByPosition).Preload("Client").
		Order("issue_date ASC, id ASC").
		Find(&invoices).Error
	return invoices, err
}

// Delete removes a draft.
func (s *InvoiceService) Delete(ctx context.Context, workspaceID, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := loadInvoice(tx, workspaceID, id)
		if err != nil {
			return err
		}
		if !inv.CanEdit() {
			return ErrNotEditable
		}
		if err := tx.Where("invoice_id = ?", inv.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(inv).Error
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, workspaceID)
	return nil
}

// Finalize issues a draft: DRAFT -> PENDING with a definitive number.
func (s *InvoiceService) Finalize(ctx context.Context, workspaceID, id uint) (*models.Invoice, error) {
	return s.transition(ctx, workspaceID, id, func(tx *gorm.DB, inv *models.Invoice) error {
		if !inv.IsDraft() {
			return fmt.Errorf("%w: cannot finalize a %s invoice", ErrInvalidTransition, inv.Status)
		}
		if len(inv.Items) == 0 {
			return ErrEmptyInvoice
		}
		number, err := models.GenerateInvoiceNumber(tx, workspaceID, inv.Prefix, inv.IssueDate.Year())
		if err != nil {
			return err
		}
		inv.Number = number
		inv.Status = models.InvoiceStatusPending
		inv.ApplyTotals(s.ComputeTotals(inv))
		return nil
	})
}

// MarkPaid records payment: PENDING -> COMPLETED.
func (s *InvoiceService) MarkPaid(ctx context.Context, workspaceID, id uint) (*models.Invoice, error) {
	return s.transition(ctx, workspaceID, id, func(_ *gorm.DB, inv *models.Invoice) error {
		if inv.Status != models.InvoiceStatusPending {
			return fmt.Errorf("%w: cannot mark a %s invoice as paid", ErrInvalidTransition, inv.Status)
		}
		paid := s.now()
		inv.Status = models.InvoiceStatusCompleted
		inv.PaidDate = &paid
		return nil
	})
}

// Cancel moves a draft or pending invoice to CANCELED.
func (s *InvoiceService) Cancel(ctx context.Context, workspaceID, id uint) (*models.Invoice, error) {
	return s.transition(ctx, workspaceID, id, func(_ *gorm.DB, inv *models.Invoice) error {
		switch inv.Status {
		case models.InvoiceStatusDraft, models.InvoiceStatusPending:
			inv.Status = models.InvoiceStatusCanceled
			return nil
		}
		return fmt.Errorf("%w: cannot cancel a %s invoice", ErrInvalidTransition, inv.Status)
	})
}

func (s *InvoiceService) transition(ctx context.Context, workspaceID, id uint, apply func(*gorm.DB, *models.Invoice) error) (*models.Invoice, error) {
	var out *models.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := loadInvoice(tx, workspaceID, id)
		if err != nil {
			return err
		}
		if err := apply(tx, inv); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(inv).Error; err != nil {
			return err
		}
		out = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, workspaceID)
	return out, nil
}

// Revenue is what the workspace has collected: completed invoices, net of
// retenue, minus the credit notes issued against them.
type Revenue struct {
	Invoiced     decimal.Decimal `json:"invoiced"`
	Credited     decimal.Decimal `json:"credited"`
	Net          decimal.Decimal `json:"net"`
	InvoiceCount int             `json:"invoice_count"`
}

// Revenue is read through the cache.
func (s *InvoiceService) Revenue(ctx context.Context, workspaceID uint) (Revenue, error) {
	var (
		rev     Revenue
		loadErr error
	)
	load := func(ctx context.Context) (any, error) {
		r, err := s.computeRevenue(ctx, workspaceID)
		loadErr = err
		return r, err
	}
	err := s.cache.FetchJSON(ctx, revenueKey(workspaceID), &rev, load)
	if err == nil {
		return rev, nil
	}
	if loadErr != nil || ctx.Err() != nil {
		return Revenue{}, err
	}
	// cache unavailable: answer from the database
	s.log.WithError(err).WithField("workspace_id", workspaceID).Warn("revenue cache unavailable")
	return s.computeRevenue(ctx, workspaceID)
}

func (s *InvoiceService) computeRevenue(ctx context.Context, workspaceID uint) (Revenue, error) {
	var invoices []models.Invoice
	err := s.db.WithContext(ctx).
		Where("workspace_id = ? AND status = ?", workspaceID, models.InvoiceStatusCompleted).
		Preload("Items", orderByPosition).
		Preload("CreditNotes").
		Find(&invoices).Error
	if err != nil {
		return Revenue{}, err
	}

	var rev Revenue
	for i := range invoices {
		inv := &invoices[i]
		rev.Invoiced = rev.Invoiced.Add(s.ComputeTotals(inv).Round(2).NetToPay)
		for _, cn := range inv.CreditNotes {
			rev.Credited = rev.Credited.Add(cn.TotalTTC.Abs())
		}
	}
	rev.InvoiceCount = len(invoices)
	rev.Net = rev.Invoiced.Sub(rev.Credited)
	return rev, nil
}

func (s *InvoiceService) invalidate(ctx context.Context, workspaceID uint) {
	if err := s.cache.Invalidate(ctx, revenueKey(workspaceID)); err != nil {
		s.log.WithError(err).WithField("workspace_id", workspaceID).Warn("revenue cache invalidation failed")
	}
}

// prepare fills defaults and refreshes the stored totals.
func (s *InvoiceService) prepare(inv *models.Invoice, now time.Time) {
	if inv.IssueDate.IsZero() {
		inv.IssueDate = now
	}
	if inv.DueDate.IsZero() {
		inv.DueDate = inv.IssueDate.AddDate(0, 0, defaultDueDays)
	}
	inv.DiscountType = inv.DiscountType.Normalize()
	for i := range inv.Items {
		item := &inv.Items[i]
		item.ID = 0
		item.InvoiceID = inv.ID
		item.Position = i
		item.DiscountType = item.DiscountType.Normalize()
	}
	inv.ApplyTotals(s.ComputeTotals(inv))
}

func revenueKey(workspaceID uint) string {
	return cache.Key("revenue", "ws", strconv.FormatUint(uint64(workspaceID), 10))
}

func orderByPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC, id ASC")
}

func loadInvoice(tx *gorm.DB, workspaceID, id uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := tx.Where("workspace_id = ? AND id = ?", workspaceID, id).
		Preload("Items", orderByPosition).
		Preload("Client").
		Preload("CreditNotes", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("CreditNotes.Items", orderByPosition).
		First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("invoice %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func checkClient(tx *gorm.DB, workspaceID uint, clientID *uint) error {
	if clientID == nil {
		return nil
	}
	var count int64
	if err := tx.Model(&models.Client{}).Where("workspace_id = ? AND id = ?", workspaceID, *clientID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("client %d: %w", *clientID, ErrNotFound)
	}
	return nil
}

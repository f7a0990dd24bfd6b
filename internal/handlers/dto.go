package handlers

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/diewo77/invoice-totals/i18n"
	"github.com/diewo77/invoice-totals/internal/models"
	"github.com/diewo77/invoice-totals/internal/totals"
	"github.com/diewo77/invoice-totals/validation"
)

// Numbers in request bodies are totals.Number: a malformed amount is read as
// unset and takes its default instead of rejecting the request.

type itemRequest struct {
	Description        string              `json:"description" validate:"required,max=500"`
	Quantity           totals.Number       `json:"quantity"`
	UnitPrice          totals.Number       `json:"unit_price"`
	Unit               string              `json:"unit" validate:"max=50"`
	VATRate            totals.Number       `json:"vat_rate"`
	VATExemptionText   string              `json:"vat_exemption_text" validate:"max=255"`
	Discount           totals.Number       `json:"discount"`
	DiscountType       totals.DiscountType `json:"discount_type"`
	ProgressPercentage totals.Number       `json:"progress_percentage"`
}

type invoiceRequest struct {
	ClientID            *uint               `json:"client_id"`
	Prefix              string              `json:"prefix" validate:"omitempty,alphanum,max=10"`
	PurchaseOrderNumber string              `json:"purchase_order_number" validate:"max=100"`
	IssueDate           string              `json:"issue_date"`
	DueDate             string              `json:"due_date"`
	IsDeposit           bool                `json:"is_deposit"`
	Discount            totals.Number       `json:"discount"`
	DiscountType        totals.DiscountType `json:"discount_type"`
	Escompte            totals.Number       `json:"escompte"`
	RetenueGarantie     totals.Number       `json:"retenue_garantie"`
	IsReverseCharge     bool                `json:"is_reverse_charge"`
	Shipping            *totals.Shipping    `json:"shipping"`
	Notes               string              `json:"notes"`
	PaymentTerms        string              `json:"payment_terms" validate:"max=500"`
	Items               []itemRequest       `json:"items" validate:"dive"`
}

var one = decimal.NewFromInt(1)

// maxAmount bounds values stored in decimal(12,2) and decimal(12,3) columns.
var maxAmount = decimal.New(1, 10)

func numPtr(n totals.Number) *decimal.Decimal {
	if !n.IsSet() {
		return nil
	}
	d := n.Decimal()
	return &d
}

// numbers normalizes request numbers to the scale of their columns and
// records the ones a column cannot hold.
type numbers struct {
	v validation.Violations
}

// percent rounds a percentage to 2 places; it must lie within [0, 100].
func (c numbers) percent(field string, n totals.Number) totals.Number {
	if !n.IsSet() {
		return n
	}
	d := n.Decimal().Round(2)
	f, _ := d.Float64()
	validation.RangeFloat(field, f, 0, 100, c.v)
	return totals.Dec(d)
}

// amount rounds a money value to cents.
func (c numbers) amount(field string, n totals.Number) totals.Number {
	if !n.IsSet() {
		return n
	}
	d := n.Decimal().Round(2)
	if d.Abs().GreaterThanOrEqual(maxAmount) {
		c.v[field] = "out_of_range"
	}
	return totals.Dec(d)
}

func (c numbers) quantity(field string, n totals.Number) totals.Number {
	if !n.IsSet() {
		return n
	}
	d := n.Decimal().Round(3)
	if d.Abs().GreaterThanOrEqual(maxAmount) {
		c.v[field] = "out_of_range"
	}
	return totals.Dec(d)
}

func (c numbers) discount(field string, n totals.Number, t totals.DiscountType) totals.Number {
	if t.Normalize() == totals.DiscountFixed {
		return c.amount(field, n)
	}
	return c.percent(field, n)
}

// checkTotals rejects documents whose totals would not fit the total columns.
func (c numbers) checkTotals(res totals.Result) {
	for _, d := range []decimal.Decimal{res.TotalHT, res.TotalTTC, res.NetToPay} {
		if d.Abs().GreaterThanOrEqual(maxAmount) {
			c.v["items"] = "out_of_range"
			return
		}
	}
}

// normalize rounds every number of the request in place.
func (req *invoiceRequest) normalize() validation.Violations {
	c := numbers{v: validation.Violations{}}
	req.Discount = c.discount("discount", req.Discount, req.DiscountType)
	req.Escompte = c.percent("escompte", req.Escompte)
	req.RetenueGarantie = c.percent("retenue_garantie", req.RetenueGarantie)
	if s := req.Shipping; s != nil {
		s.ShippingAmountHT = c.amount("shipping.shipping_amount_ht", s.ShippingAmountHT)
		s.ShippingVatRate = c.percent("shipping.shipping_vat_rate", s.ShippingVatRate)
	}
	for i := range req.Items {
		it := &req.Items[i]
		at := func(f string) string { return fmt.Sprintf("items[%d].%s", i, f) }
		it.Quantity = c.quantity(at("quantity"), it.Quantity)
		it.UnitPrice = c.amount(at("unit_price"), it.UnitPrice)
		it.VATRate = c.percent(at("vat_rate"), it.VATRate)
		it.Discount = c.discount(at("discount"), it.Discount, it.DiscountType)
		it.ProgressPercentage = c.percent(at("progress_percentage"), it.ProgressPercentage)
	}
	return c.v
}

func (req *invoiceRequest) toModel() (*models.Invoice, validation.Violations) {
	v := validation.Struct(req)
	v.Merge(req.normalize())

	issue, err := parseDate(req.IssueDate)
	if err != nil {
		v["issue_date"] = "invalid_date"
	}
	due, err := parseDate(req.DueDate)
	if err != nil {
		v["due_date"] = "invalid_date"
	}
	if !issue.IsZero() && !due.IsZero() && due.Before(issue) {
		v["due_date"] = "out_of_range"
	}
	if !v.Empty() {
		return nil, v
	}

	inv := &models.Invoice{
		ClientID:            req.ClientID,
		Prefix:              req.Prefix,
		PurchaseOrderNumber: req.PurchaseOrderNumber,
		IssueDate:           issue,
		DueDate:             due,
		IsDeposit:           req.IsDeposit,
		Discount:            req.Discount.Or(decimal.Zero),
		DiscountType:        req.DiscountType.Normalize(),
		Escompte:            req.Escompte.Or(decimal.Zero),
		RetenueGarantie:     req.RetenueGarantie.Or(decimal.Zero),
		IsReverseCharge:     req.IsReverseCharge,
		Notes:               req.Notes,
		PaymentTerms:        req.PaymentTerms,
		Items:               make([]models.InvoiceItem, len(req.Items)),
	}
	if s := req.Shipping; s != nil {
		inv.Shipping = models.Shipping{
			BillShipping: s.BillShipping,
			AmountHT:     s.ShippingAmountHT.Or(decimal.Zero),
			VATRate:      numPtr(s.ShippingVatRate),
		}
	}
	for i, it := range req.Items {
		inv.Items[i] = models.InvoiceItem{
			Description:        it.Description,
			Quantity:           it.Quantity.Or(one),
			UnitPrice:          it.UnitPrice.Or(decimal.Zero),
			Unit:               it.Unit,
			VATRate:            numPtr(it.VATRate),
			VATExemptionText:   it.VATExemptionText,
			Discount:           it.Discount.Or(decimal.Zero),
			DiscountType:       it.DiscountType.Normalize(),
			ProgressPercentage: numPtr(it.ProgressPercentage),
		}
		if inv.Items[i].Unit == "" {
			inv.Items[i].Unit = "unit"
		}
	}
	numbers{v: v}.checkTotals(totals.Calculate(inv.TotalsInput()))
	if !v.Empty() {
		return nil, v
	}
	return inv, v
}

type creditItemRequest struct {
	Description string        `json:"description" validate:"required,max=500"`
	Quantity    totals.Number `json:"quantity"`
	UnitPrice   totals.Number `json:"unit_price"`
	VATRate     totals.Number `json:"vat_rate"`
}

type creditNoteRequest struct {
	CreditType   models.CreditNoteType `json:"credit_type" validate:"required,oneof=CORRECTION COMMERCIAL_GESTURE REFUND STOCK_SHORTAGE"`
	RefundMethod models.RefundMethod   `json:"refund_method" validate:"required,oneof=NEXT_INVOICE BANK_TRANSFER CHECK VOUCHER CASH"`
	Reason       string                `json:"reason" validate:"max=2000"`
	IssueDate    string                `json:"issue_date"`
	Discount     totals.Number         `json:"discount"`
	DiscountType totals.DiscountType   `json:"discount_type"`
	Items        []creditItemRequest   `json:"items" validate:"min=1,dive"`
}

func (req *creditNoteRequest) toModel() (*models.CreditNote, validation.Violations) {
	v := validation.Struct(req)
	c := numbers{v: validation.Violations{}}
	req.Discount = c.discount("discount", req.Discount, req.DiscountType)
	for i := range req.Items {
		it := &req.Items[i]
		at := func(f string) string { return fmt.Sprintf("items[%d].%s", i, f) }
		it.Quantity = c.quantity(at("quantity"), it.Quantity)
		it.UnitPrice = c.amount(at("unit_price"), it.UnitPrice)
		it.VATRate = c.percent(at("vat_rate"), it.VATRate)
	}
	v.Merge(c.v)

	issue, err := parseDate(req.IssueDate)
	if err != nil {
		v["issue_date"] = "invalid_date"
	}
	if !v.Empty() {
		return nil, v
	}

	note := &models.CreditNote{
		CreditType:   req.CreditType,
		RefundMethod: req.RefundMethod,
		Reason:       req.Reason,
		IssueDate:    issue,
		Discount:     req.Discount.Or(decimal.Zero),
		DiscountType: req.DiscountType.Normalize(),
		Items:        make([]models.CreditNoteItem, len(req.Items)),
	}
	for i, it := range req.Items {
		note.Items[i] = models.CreditNoteItem{
			Description: it.Description,
			Quantity:    it.Quantity.Or(one),
			UnitPrice:   it.UnitPrice.Or(decimal.Zero),
			VATRate:     numPtr(it.VATRate),
		}
	}
	numbers{v: v}.checkTotals(totals.Calculate(note.TotalsInput()))
	if !v.Empty() {
		return nil, v
	}
	return note, v
}

type clientRequest struct {
	Type       models.ClientType `json:"type" validate:"omitempty,oneof=COMPANY INDIVIDUAL"`
	Name       string            `json:"name" validate:"required,max=255"`
	Email      string            `json:"email" validate:"omitempty,email,max=255"`
	Phone      string            `json:"phone" validate:"max=50"`
	Address    string            `json:"address" validate:"max=500"`
	City       string            `json:"city" validate:"max=100"`
	PostalCode string            `json:"postal_code" validate:"max=20"`
	Country    string            `json:"country" validate:"max=100"`
	SIRET      string            `json:"siret" validate:"omitempty,numeric,len=14"`
	VATNumber  string            `json:"vat_number" validate:"max=20"`
}

func (req *clientRequest) toModel() (*models.Client, validation.Violations) {
	v := validation.Struct(req)
	if !v.Empty() {
		return nil, v
	}
	return &models.Client{
		Type:       req.Type,
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		Address:    req.Address,
		City:       req.City,
		PostalCode: req.PostalCode,
		Country:    req.Country,
		SIRET:      req.SIRET,
		VATNumber:  req.VATNumber,
	}, v
}

// invoiceResponse is an invoice with its live totals and display status.
type invoiceResponse struct {
	*models.Invoice
	DisplayStatus models.InvoiceStatus `json:"display_status"`
	StatusLabel   string               `json:"status_label"`
	Totals        totals.Result        `json:"totals"`
}

func (h *Handler) invoiceResponse(lang string, inv *models.Invoice, now time.Time) invoiceResponse {
	status := inv.DisplayStatus(now)
	return invoiceResponse{
		Invoice:       inv,
		DisplayStatus: status,
		StatusLabel:   i18n.StatusLabel(lang, string(status)),
		Totals:        h.invoices.ComputeTotals(inv).Round(2),
	}
}

type creditNoteResponse struct {
	*models.CreditNote
	CreditTypeLabel   string `json:"credit_type_label"`
	RefundMethodLabel string `json:"refund_method_label"`
}

func newCreditNoteResponse(lang string, note *models.CreditNote) creditNoteResponse {
	return creditNoteResponse{
		CreditNote:        note,
		CreditTypeLabel:   i18n.CreditTypeLabel(lang, string(note.CreditType)),
		RefundMethodLabel: i18n.RefundMethodLabel(lang, string(note.RefundMethod)),
	}
}

// money is an amount with its localized rendering.
type money struct {
	Amount    decimal.Decimal `json:"amount"`
	Formatted string          `json:"formatted"`
}

func (h *Handler) money(lang string, d decimal.Decimal) money {
	return money{Amount: d.Round(2), Formatted: i18n.FormatMoney(lang, d, h.currency)}
}

func idString(id uint) string { return fmt.Sprint(id) }

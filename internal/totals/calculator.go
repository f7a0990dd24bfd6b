// Package totals computes the monetary totals of an invoice or credit note:
// HT, TVA, TTC, escompte, retenue de garantie and net to pay.
//
// Calculate is the only place these figures are derived. It is pure: no I/O,
// no shared state, input is never mutated and it never fails. Malformed
// numeric input is read as unset and replaced by the field default.
package totals

import (
	"sort"

	"github.com/shopspring/decimal"
)

var (
	one            = decimal.NewFromInt(1)
	hundred        = decimal.NewFromInt(100)
	defaultVATRate = decimal.NewFromInt(20)
)

// LineItem is one billable row.
type LineItem struct {
	Description        string       `json:"description,omitempty"`
	Quantity           Number       `json:"quantity"`
	UnitPrice          Number       `json:"unit_price"`
	ProgressPercentage Number       `json:"progress_percentage"`
	Discount           Number       `json:"discount"`
	DiscountType       DiscountType `json:"discount_type"`
	VATRate            Number       `json:"vat_rate"`
}

// Shipping is billed only when BillShipping is set and the amount is positive.
type Shipping struct {
	BillShipping     bool   `json:"bill_shipping"`
	ShippingAmountHT Number `json:"shipping_amount_ht"`
	ShippingVatRate  Number `json:"shipping_vat_rate"`
}

// Input is an invoice-like snapshot.
type Input struct {
	Items           []LineItem   `json:"items"`
	Discount        Number       `json:"discount"`
	DiscountType    DiscountType `json:"discount_type"`
	Escompte        Number       `json:"escompte"`
	RetenueGarantie Number       `json:"retenue_garantie"`
	IsReverseCharge bool         `json:"is_reverse_charge"`
	Shipping        *Shipping    `json:"shipping,omitempty"`
}

// LineTotals is the breakdown of one line, in input order.
type LineTotals struct {
	// Gross is quantity × unit price.
	Gross decimal.Decimal `json:"gross"`
	// Progressed is Gross scaled by the progress percentage.
	Progressed     decimal.Decimal `json:"progressed"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	SubtotalHT     decimal.Decimal `json:"subtotal_ht"`
	// GlobalDiscountShare is the part of the document discount allocated to
	// this line, proportional to its share of the subtotal.
	GlobalDiscountShare decimal.Decimal `json:"global_discount_share"`
	TaxableHT           decimal.Decimal `json:"taxable_ht"`
	// VATRate is the rate actually applied (0 under reverse charge).
	VATRate  decimal.Decimal `json:"vat_rate"`
	VAT      decimal.Decimal `json:"vat"`
	TotalTTC decimal.Decimal `json:"total_ttc"`
}

// VATBucket groups taxable base and VAT by rate. Shipping is included.
type VATBucket struct {
	Rate   decimal.Decimal `json:"rate"`
	BaseHT decimal.Decimal `json:"base_ht"`
	VAT    decimal.Decimal `json:"vat"`
}

// Result holds every figure derived from an Input.
//
// TotalTTC = TotalHT + TotalVAT always holds. The escompte and retenue
// figures are a later stage and never feed back into TotalHT or TotalVAT.
type Result struct {
	SubtotalHT     decimal.Decimal `json:"subtotal_ht"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	ShippingHT     decimal.Decimal `json:"shipping_ht"`
	ShippingVAT    decimal.Decimal `json:"shipping_vat"`
	TotalHT        decimal.Decimal `json:"total_ht"`
	TotalVAT       decimal.Decimal `json:"total_vat"`
	TotalTTC       decimal.Decimal `json:"total_ttc"`

	EscompteAmount   decimal.Decimal `json:"escompte_amount"`
	HTAfterEscompte  decimal.Decimal `json:"ht_after_escompte"`
	VATAfterEscompte decimal.Decimal `json:"tva_after_escompte"`
	TTCAfterEscompte decimal.Decimal `json:"ttc_after_escompte"`
	RetenueAmount    decimal.Decimal `json:"retenue_amount"`
	NetToPay         decimal.Decimal `json:"net_to_pay"`

	Lines        []LineTotals `json:"lines"`
	VATBreakdown []VATBucket  `json:"vat_breakdown"`
}

// Calculate derives all totals from in.
func Calculate(in Input) Result {
	res := Result{Lines: make([]LineTotals, len(in.Items))}

	for i, item := range in.Items {
		res.Lines[i] = lineSubtotal(item, in.IsReverseCharge)
		res.SubtotalHT = res.SubtotalHT.Add(res.Lines[i].SubtotalHT)
	}

	res.DiscountAmount = discountAmount(res.SubtotalHT, in.Discount.Or(decimal.Zero), in.DiscountType)

	buckets := vatBuckets{}
	for i := range res.Lines {
		l := &res.Lines[i]
		if res.DiscountAmount.IsPositive() && res.SubtotalHT.IsPositive() {
			l.GlobalDiscountShare = res.DiscountAmount.Mul(l.SubtotalHT).Div(res.SubtotalHT)
		}
		l.TaxableHT = l.SubtotalHT.Sub(l.GlobalDiscountShare)
		l.VAT = percentOf(l.TaxableHT, l.VATRate)
		l.TotalTTC = l.TaxableHT.Add(l.VAT)
		res.TotalVAT = res.TotalVAT.Add(l.VAT)
		buckets.add(l.VATRate, l.TaxableHT, l.VAT)
	}
	res.TotalHT = res.SubtotalHT.Sub(res.DiscountAmount)

	if s := in.Shipping; s != nil && s.BillShipping {
		if amount := s.ShippingAmountHT.Or(decimal.Zero); amount.IsPositive() {
			rate := effectiveVATRate(s.ShippingVatRate, in.IsReverseCharge)
			res.ShippingHT = amount
			res.ShippingVAT = percentOf(amount, rate)
			buckets.add(rate, amount, res.ShippingVAT)
		}
	}
	res.TotalHT = res.TotalHT.Add(res.ShippingHT)
	res.TotalVAT = res.TotalVAT.Add(res.ShippingVAT)
	res.TotalTTC = res.TotalHT.Add(res.TotalVAT)

	applyEscompte(&res, clampPercent(in.Escompte.Or(decimal.Zero)), in.IsReverseCharge)
	applyRetenue(&res, clampPercent(in.Escompte.Or(decimal.Zero)), clampPercent(in.RetenueGarantie.Or(decimal.Zero)))

	res.VATBreakdown = buckets.sorted()
	return res
}

func lineSubtotal(item LineItem, reverseCharge bool) LineTotals {
	qty := item.Quantity.Or(one)
	if qty.IsNegative() {
		qty = one
	}
	price := item.UnitPrice.Or(decimal.Zero)
	progress := clampPercent(item.ProgressPercentage.Or(hundred))

	var l LineTotals
	l.Gross = qty.Mul(price)
	l.Progressed = percentOf(l.Gross, progress)
	l.DiscountAmount = discountAmount(l.Progressed, item.Discount.Or(decimal.Zero), item.DiscountType)
	l.SubtotalHT = l.Progressed.Sub(l.DiscountAmount)
	if l.SubtotalHT.IsNegative() {
		l.SubtotalHT = decimal.Zero
	}
	l.VATRate = effectiveVATRate(item.VATRate, reverseCharge)
	return l
}

// applyEscompte rescales VAT linearly with the HT reduction. This is exact
// only for single-rate documents.
func applyEscompte(res *Result, rate decimal.Decimal, reverseCharge bool) {
	res.EscompteAmount = percentOf(res.TotalHT, rate)
	res.HTAfterEscompte = res.TotalHT.Sub(res.EscompteAmount)
	switch {
	case reverseCharge:
		res.VATAfterEscompte = decimal.Zero
	case rate.IsZero(), res.TotalHT.IsZero():
		res.VATAfterEscompte = res.TotalVAT
	default:
		res.VATAfterEscompte = res.TotalVAT.Mul(res.HTAfterEscompte).Div(res.TotalHT)
	}
	res.TTCAfterEscompte = res.HTAfterEscompte.Add(res.VATAfterEscompte)
}

func applyRetenue(res *Result, escompte, retenue decimal.Decimal) {
	base := res.TotalTTC
	if escompte.IsPositive() {
		base = res.TTCAfterEscompte
	}
	res.RetenueAmount = percentOf(base, retenue)
	res.NetToPay = base.Sub(res.RetenueAmount)
}

// effectiveVATRate defaults an unset rate to 20. Zero is a real "exempt" rate.
func effectiveVATRate(n Number, reverseCharge bool) decimal.Decimal {
	if reverseCharge {
		return decimal.Zero
	}
	rate := n.Or(defaultVATRate)
	if rate.IsNegative() {
		return decimal.Zero
	}
	return rate
}

func percentOf(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Shift(-2)
}

func clampPercent(p decimal.Decimal) decimal.Decimal {
	if p.IsNegative() {
		return decimal.Zero
	}
	return decimal.Min(p, hundred)
}

type vatBuckets map[string]*VATBucket

func (b vatBuckets) add(rate, base, vat decimal.Decimal) {
	key := rate.String()
	bucket, ok := b[key]
	if !ok {
		bucket = &VATBucket{Rate: rate}
		b[key] = bucket
	}
	bucket.BaseHT = bucket.BaseHT.Add(base)
	bucket.VAT = bucket.VAT.Add(vat)
}

func (b vatBuckets) sorted() []VATBucket {
	out := make([]VATBucket, 0, len(b))
	for _, bucket := range b {
		out = append(out, *bucket)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rate.LessThan(out[j].Rate) })
	return out
}

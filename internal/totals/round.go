package totals

import "github.com/shopspring/decimal"

// Round returns a copy of r with every amount rounded to places decimals,
// half away from zero. It is meant for display and persistence, never for
// intermediate steps of Calculate.
//
// HT and VAT figures are rounded; TTC figures are the sum of the rounded
// parts and the net to pay is the rounded base minus the rounded retenue, so
// a rounded Result is Balanced whenever the raw one is.
func (r Result) Round(places int32) Result {
	rd := func(d decimal.Decimal) decimal.Decimal { return d.Round(places) }

	out := Result{
		SubtotalHT:       rd(r.SubtotalHT),
		DiscountAmount:   rd(r.DiscountAmount),
		ShippingHT:       rd(r.ShippingHT),
		ShippingVAT:      rd(r.ShippingVAT),
		TotalHT:          rd(r.TotalHT),
		TotalVAT:         rd(r.TotalVAT),
		EscompteAmount:   rd(r.EscompteAmount),
		HTAfterEscompte:  rd(r.HTAfterEscompte),
		VATAfterEscompte: rd(r.VATAfterEscompte),
		RetenueAmount:    rd(r.RetenueAmount),
		Lines:            make([]LineTotals, len(r.Lines)),
		VATBreakdown:     make([]VATBucket, len(r.VATBreakdown)),
	}
	out.TotalTTC = out.TotalHT.Add(out.TotalVAT)
	out.TTCAfterEscompte = out.HTAfterEscompte.Add(out.VATAfterEscompte)
	base := out.TotalTTC
	if !r.TTCAfterEscompte.Equal(r.TotalTTC) {
		base = out.TTCAfterEscompte
	}
	out.NetToPay = base.Sub(out.RetenueAmount)

	for i, l := range r.Lines {
		lt := LineTotals{
			Gross:               rd(l.Gross),
			Progressed:          rd(l.Progressed),
			DiscountAmount:      rd(l.DiscountAmount),
			SubtotalHT:          rd(l.SubtotalHT),
			GlobalDiscountShare: rd(l.GlobalDiscountShare),
			TaxableHT:           rd(l.TaxableHT),
			VATRate:             l.VATRate,
			VAT:                 rd(l.VAT),
		}
		lt.TotalTTC = lt.TaxableHT.Add(lt.VAT)
		out.Lines[i] = lt
	}
	for i, b := range r.VATBreakdown {
		out.VATBreakdown[i] = VATBucket{Rate: b.Rate, BaseHT: rd(b.BaseHT), VAT: rd(b.VAT)}
	}
	return out
}

// Balanced reports whether TotalTTC equals TotalHT + TotalVAT.
func (r Result) Balanced() bool {
	return r.TotalHT.Add(r.TotalVAT).Equal(r.TotalTTC)
}

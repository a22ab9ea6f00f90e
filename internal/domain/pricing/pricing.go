// Package pricing turns order lines and pricing parameters into a complete
// price breakdown. Every function is pure: inputs are never mutated and each
// call returns freshly allocated results.
package pricing

import (
	"github.com/shopspring/decimal"
)

// Line is a single product entry of an order, as seen by the calculator.
type Line struct {
	Quantity        int
	UnitPrice       decimal.Decimal
	DiscountPercent decimal.Decimal
}

// Offer is a volume discount applied to the whole order once the summed line
// quantity reaches MinimumQuantity. DiscountRate is a percentage.
type Offer struct {
	Code            string
	MinimumQuantity int
	DiscountRate    decimal.Decimal
}

// TaxComponent is one named tax applied to the discounted subtotal, e.g.
// {SGST, 9}. Rate is a percentage.
type TaxComponent struct {
	Name string
	Rate decimal.Decimal
}

// TaxAmount is the computed amount of a single TaxComponent.
type TaxAmount struct {
	Name   string
	Rate   decimal.Decimal
	Amount decimal.Decimal
}

// Params holds the order-level pricing configuration. Taxes are applied in
// order; Offer is optional and must already be the one the caller selected.
type Params struct {
	Taxes       []TaxComponent
	ShippingFee decimal.Decimal
	Offer       *Offer
}

// Result is the full price breakdown of an order.
//
// Invariants:
//
//	DiscountedSubtotal = Subtotal - OfferDiscount
//	Tax                = sum(Taxes[i].Amount)
//	Total              = DiscountedSubtotal + Tax + Shipping
type Result struct {
	LineSubtotals      []decimal.Decimal
	TotalQuantity      int
	Subtotal           decimal.Decimal
	OfferApplied       bool
	OfferDiscount      decimal.Decimal
	DiscountedSubtotal decimal.Decimal
	Taxes              []TaxAmount
	Tax                decimal.Decimal
	Shipping           decimal.Decimal
	Total              decimal.Decimal
}

// Rounded returns a copy of r with every monetary field rounded to two
// decimal places. It is meant for presentation only; never feed a rounded
// result back into further computation.
func (r Result) Rounded() Result {
	out := r
	out.LineSubtotals = make([]decimal.Decimal, len(r.LineSubtotals))
	for i, v := range r.LineSubtotals {
		out.LineSubtotals[i] = v.Round(2)
	}
	out.Taxes = make([]TaxAmount, len(r.Taxes))
	for i, t := range r.Taxes {
		out.Taxes[i] = TaxAmount{Name: t.Name, Rate: t.Rate, Amount: t.Amount.Round(2)}
	}
	out.Subtotal = r.Subtotal.Round(2)
	out.OfferDiscount = r.OfferDiscount.Round(2)
	out.DiscountedSubtotal = r.DiscountedSubtotal.Round(2)
	out.Tax = r.Tax.Round(2)
	out.Shipping = r.Shipping.Round(2)
	out.Total = r.Total.Round(2)
	return out
}

// SingleRate returns a tax list holding one component named "Tax".
func SingleRate(rate decimal.Decimal) []TaxComponent {
	return []TaxComponent{{Name: "Tax", Rate: rate}}
}

// LineSubtotal returns quantity * unitPrice * (1 - discountPercent/100).
// It does not validate its input; Compute does.
func LineSubtotal(l Line) decimal.Decimal {
	gross := l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
	return gross.Sub(percentOf(gross, l.DiscountPercent))
}

// TotalQuantity returns the summed quantity of all lines.
func TotalQuantity(lines []Line) int {
	total := 0
	for _, l := range lines {
		total += l.Quantity
	}
	return total
}

// percentOf returns v * rate / 100. Shift keeps the division exact.
func percentOf(v, rate decimal.Decimal) decimal.Decimal {
	return v.Mul(rate).Shift(-2)
}

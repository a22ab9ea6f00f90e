package pricing

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/xenking/hospital-orders/internal/domain/validation"
)

// Compute prices the given lines.
//
// All inputs are validated before any arithmetic happens, so an invalid line
// or parameter yields a *validation.InvalidInputError and no result at all.
// Amounts are kept at full precision; see Result.Rounded.
func Compute(lines []Line, p Params) (Result, error) {
	if err := validate(lines, p); err != nil {
		return Result{}, err
	}

	subtotals := make([]decimal.Decimal, len(lines))
	subtotal := decimal.Zero
	for i, l := range lines {
		subtotals[i] = LineSubtotal(l)
		subtotal = subtotal.Add(subtotals[i])
	}

	qty := TotalQuantity(lines)

	// Offer applies only once the summed quantity reaches the threshold.
	offerDiscount := decimal.Zero
	applied := false
	if p.Offer != nil && qty >= p.Offer.MinimumQuantity {
		offerDiscount = percentOf(subtotal, p.Offer.DiscountRate)
		applied = true
	}
	discounted := subtotal.Sub(offerDiscount)

	taxes := make([]TaxAmount, len(p.Taxes))
	tax := decimal.Zero
	for i, c := range p.Taxes {
		amount := percentOf(discounted, c.Rate)
		taxes[i] = TaxAmount{Name: c.Name, Rate: c.Rate, Amount: amount}
		tax = tax.Add(amount)
	}

	return Result{
		LineSubtotals:      subtotals,
		TotalQuantity:      qty,
		Subtotal:           subtotal,
		OfferApplied:       applied,
		OfferDiscount:      offerDiscount,
		DiscountedSubtotal: discounted,
		Taxes:              taxes,
		Tax:                tax,
		Shipping:           p.ShippingFee,
		Total:              discounted.Add(tax).Add(p.ShippingFee),
	}, nil
}

// ComputeTotals prices lines with a single tax rate. It is shorthand for
// Compute with SingleRate(taxRatePercent).
func ComputeTotals(lines []Line, taxRatePercent, shippingFee decimal.Decimal, offer *Offer) (Result, error) {
	return Compute(lines, Params{
		Taxes:       SingleRate(taxRatePercent),
		ShippingFee: shippingFee,
		Offer:       offer,
	})
}

func validate(lines []Line, p Params) error {
	total := 0
	for i, l := range lines {
		if err := validation.NonNegativeInt(i, "quantity", l.Quantity); err != nil {
			return err
		}
		// TotalQuantity must not wrap, or the offer threshold comparison breaks.
		if l.Quantity > math.MaxInt-total {
			return validation.New(i, "quantity", "total quantity out of range")
		}
		total += l.Quantity
		if err := amount(i, "unitPrice", l.UnitPrice); err != nil {
			return err
		}
		if err := validation.Percent(i, "discountPercent", l.DiscountPercent); err != nil {
			return err
		}
	}

	for i, c := range p.Taxes {
		if err := amount(validation.NoLine, fmt.Sprintf("taxes[%d].rate", i), c.Rate); err != nil {
			return err
		}
	}
	if err := amount(validation.NoLine, "shippingFee", p.ShippingFee); err != nil {
		return err
	}

	if p.Offer != nil {
		if err := validation.NonNegativeInt(validation.NoLine, "offer.minimumQuantity", p.Offer.MinimumQuantity); err != nil {
			return err
		}
		if err := validation.Percent(validation.NoLine, "offer.discountRate", p.Offer.DiscountRate); err != nil {
			return err
		}
	}

	return nil
}

func amount(line int, field string, v decimal.Decimal) error {
	if err := validation.NonNegative(line, field, v); err != nil {
		return err
	}
	return validation.InRange(line, field, v)
}

package handler

import (
	"fmt"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xenking/hospital-orders/internal/domain/pricing"
	"github.com/xenking/hospital-orders/internal/domain/validation"
)

// fullPrecision reports whether the caller asked for unrounded amounts with
// ?precision=full.
func fullPrecision(r *http.Request) bool {
	return r.URL.Query().Get("precision") == "full"
}

// ComputeQuote prices the lines of the request body with the given tax
// components, shipping fee and optional offer.
func (h *Handler) ComputeQuote(w http.ResponseWriter, r *http.Request) {
	var (
		lines    []pricing.Line
		params   pricing.Params
		taxRate  *decimal.Decimal
		hasTaxes bool
	)
	err := decodeBody(w, r, func(d *jx.Decoder, key string) error {
		switch key {
		case "lines":
			return decodeArray(d, func(d *jx.Decoder, idx int) error {
				l, err := decodePricingLine(d, idx)
				lines = append(lines, l)
				return err
			})
		case "taxRatePercent":
			v, err := decodeDecimal(d, validation.NoLine, "taxRatePercent")
			taxRate = &v
			return err
		case "taxes":
			hasTaxes = true
			return decodeArray(d, func(d *jx.Decoder, idx int) error {
				c, err := decodeTaxComponent(d, idx)
				params.Taxes = append(params.Taxes, c)
				return err
			})
		case "shippingFee":
			v, err := decodeDecimal(d, validation.NoLine, "shippingFee")
			params.ShippingFee = v
			return err
		case "offer":
			if d.Next() == jx.Null {
				return d.Null()
			}
			o, err := decodeOffer(d)
			params.Offer = o
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if taxRate != nil {
		if hasTaxes {
			writeError(w, r, &MalformedError{Err: errors.New("taxRatePercent and taxes are mutually exclusive")})
			return
		}
		params.Taxes = pricing.SingleRate(*taxRate)
	}

	res, err := pricing.Compute(lines, params)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.quotes.Add(r.Context(), 1, metric.WithAttributes(
		attribute.String("source", "pricing"),
		attribute.Bool("offer_applied", res.OfferApplied),
	))

	full := fullPrecision(r)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeResult(e, res, full)
	})
}

func decodePricingLine(d *jx.Decoder, idx int) (pricing.Line, error) {
	var l pricing.Line
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "quantity":
			l.Quantity, err = decodeQuantity(d, idx, "quantity")
		case "unitPrice":
			l.UnitPrice, err = decodeDecimal(d, idx, "unitPrice")
		case "discountPercent":
			l.DiscountPercent, err = decodeDecimal(d, idx, "discountPercent")
		default:
			err = d.Skip()
		}
		return err
	})
	return l, err
}

func decodeTaxComponent(d *jx.Decoder, idx int) (pricing.TaxComponent, error) {
	var c pricing.TaxComponent
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			c.Name, err = d.Str()
		case "rate":
			c.Rate, err = decodeDecimal(d, validation.NoLine, fmt.Sprintf("taxes[%d].rate", idx))
		default:
			err = d.Skip()
		}
		return err
	})
	return c, err
}

func decodeOffer(d *jx.Decoder) (*pricing.Offer, error) {
	o := &pricing.Offer{}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "code":
			o.Code, err = d.Str()
		case "minimumQuantity":
			o.MinimumQuantity, err = decodeQuantity(d, validation.NoLine, "offer.minimumQuantity")
		case "discountRate":
			o.DiscountRate, err = decodeDecimal(d, validation.NoLine, "offer.discountRate")
		default:
			err = d.Skip()
		}
		return err
	})
	return o, err
}

// encodeResult writes a price breakdown, rounded to cents unless full is set.
func encodeResult(e *jx.Encoder, res pricing.Result, full bool) {
	e.Obj(func(e *jx.Encoder) {
		encodeResultFields(e, res, full)
	})
}

func encodeResultFields(e *jx.Encoder, res pricing.Result, full bool) {
	e.Field("lineSubtotals", func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, v := range res.LineSubtotals {
				encodeMoney(e, v, full)
			}
		})
	})
	e.Field("totalQuantity", func(e *jx.Encoder) { e.Int(res.TotalQuantity) })
	e.Field("subtotal", func(e *jx.Encoder) { encodeMoney(e, res.Subtotal, full) })
	e.Field("offerApplied", func(e *jx.Encoder) { e.Bool(res.OfferApplied) })
	e.Field("offerDiscount", func(e *jx.Encoder) { encodeMoney(e, res.OfferDiscount, full) })
	e.Field("discountedSubtotal", func(e *jx.Encoder) { encodeMoney(e, res.DiscountedSubtotal, full) })
	e.Field("taxes", func(e *jx.Encoder) { encodeTaxes(e, res.Taxes, full) })
	e.Field("tax", func(e *jx.Encoder) { encodeMoney(e, res.Tax, full) })
	e.Field("shipping", func(e *jx.Encoder) { encodeMoney(e, res.Shipping, full) })
	e.Field("total", func(e *jx.Encoder) { encodeMoney(e, res.Total, full) })
}

func encodeTaxes(e *jx.Encoder, taxes []pricing.TaxAmount, full bool) {
	e.Arr(func(e *jx.Encoder) {
		for _, t := range taxes {
			e.Obj(func(e *jx.Encoder) {
				e.Field("name", func(e *jx.Encoder) { e.Str(t.Name) })
				e.Field("rate", func(e *jx.Encoder) { encodeExact(e, t.Rate) })
				e.Field("amount", func(e *jx.Encoder) { encodeMoney(e, t.Amount, full) })
			})
		}
	})
}

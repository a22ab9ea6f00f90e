package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/hospital-orders/internal/domain/order"
	"github.com/xenking/hospital-orders/internal/domain/validation"
)

// ListOrders returns every order.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	full := fullPrecision(r)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for i := range orders {
				encodeOrder(e, &orders[i], full)
			}
		})
	})
}

// GetOrder returns a single order.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := orderID(r)
	o, err := h.orders.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOrder(w, r, http.StatusOK, o)
}

// CreateOrder validates, prices and stores a new order.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req order.CreateRequest
	err := decodeBody(w, r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "kind":
			var kind string
			kind, err = d.Str()
			req.Kind = order.Kind(kind)
		case "counterparty":
			req.Counterparty, err = d.Str()
		case "lines":
			req.Lines, err = decodeLineInputs(d)
		case "offerCode":
			req.OfferCode, err = decodeOptionalStr(d)
		case "shippingFee":
			req.ShippingFee, err = decodeDecimal(d, validation.NoLine, "shippingFee")
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	o, err := h.orders.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("order.id", o.ID))
	writeOrder(w, r, http.StatusCreated, o)
}

// QuoteOrder prices order lines with the tax policy and offer selection of
// the requested kind, without storing anything.
func (h *Handler) QuoteOrder(w http.ResponseWriter, r *http.Request) {
	var req order.QuoteRequest
	err := decodeBody(w, r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "kind":
			var kind string
			kind, err = d.Str()
			req.Kind = order.Kind(kind)
		case "lines":
			req.Lines, err = decodeLineInputs(d)
		case "offerCode":
			req.OfferCode, err = decodeOptionalStr(d)
		case "shippingFee":
			req.ShippingFee, err = decodeDecimal(d, validation.NoLine, "shippingFee")
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	q, err := h.orders.Quote(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.quotes.Add(r.Context(), 1, metric.WithAttributes(
		attribute.String("source", "order"),
		attribute.String("kind", string(req.Kind)),
		attribute.Bool("offer_applied", q.Result.OfferApplied),
	))

	full := fullPrecision(r)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("offerCode", func(e *jx.Encoder) { e.Str(q.OfferCode) })
			encodeResultFields(e, q.Result, full)
		})
	})
}

// UpdateOrder applies a partial update. Absent fields are left unchanged.
func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	var patch order.Patch
	err := decodeBody(w, r, func(d *jx.Decoder, key string) error {
		switch key {
		case "counterparty":
			v, err := d.Str()
			patch.Counterparty = &v
			return err
		case "lines":
			v, err := decodeLineInputs(d)
			patch.Lines = &v
			return err
		case "offerCode":
			v, err := decodeOptionalStr(d)
			patch.OfferCode = &v
			return err
		case "shippingFee":
			v, err := decodeDecimal(d, validation.NoLine, "shippingFee")
			patch.ShippingFee = &v
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	o, err := h.orders.Update(r.Context(), orderID(r), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOrder(w, r, http.StatusOK, o)
}

// ReceiveOrder records receiving-desk counts for order lines.
func (h *Handler) ReceiveOrder(w http.ResponseWriter, r *http.Request) {
	var counts []order.Count
	err := decodeBody(w, r, func(d *jx.Decoder, key string) error {
		if key != "counts" {
			return d.Skip()
		}
		return decodeArray(d, func(d *jx.Decoder, idx int) error {
			c, err := decodeCount(d, idx)
			counts = append(counts, c)
			return err
		})
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	o, err := h.orders.Receive(r.Context(), orderID(r), counts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.receipts.Add(r.Context(), int64(len(counts)))
	for _, l := range o.Lines {
		h.statuses.Add(r.Context(), 1, metric.WithAttributes(attribute.String("status", l.Status.String())))
	}
	writeOrder(w, r, http.StatusOK, o)
}

// DeleteOrder removes an order.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.Delete(r.Context(), orderID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func orderID(r *http.Request) string {
	id := r.PathValue("id")
	trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("order.id", id))
	return id
}

func decodeOptionalStr(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

func decodeLineInputs(d *jx.Decoder) ([]order.LineInput, error) {
	lines := []order.LineInput{}
	err := decodeArray(d, func(d *jx.Decoder, idx int) error {
		var l order.LineInput
		err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "productId":
				l.ProductID, err = d.Str()
			case "productName":
				l.ProductName, err = d.Str()
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
		lines = append(lines, l)
		return err
	})
	return lines, err
}

// decodeCount reads the count at position idx of the request. Range errors
// name the count, since its line index may not be known yet.
func decodeCount(d *jx.Decoder, idx int) (order.Count, error) {
	var c order.Count
	field := func(name string) string { return fmt.Sprintf("counts[%d].%s", idx, name) }
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "line":
			c.Line, err = decodeQuantity(d, validation.NoLine, field("line"))
		case "received":
			c.Received, err = decodeQuantity(d, validation.NoLine, field("received"))
		case "damaged":
			c.Damaged, err = decodeQuantity(d, validation.NoLine, field("damaged"))
		case "missing":
			c.Missing, err = decodeQuantity(d, validation.NoLine, field("missing"))
		default:
			err = d.Skip()
		}
		return err
	})
	return c, err
}

func writeOrder(w http.ResponseWriter, r *http.Request, status int, o *order.Order) {
	full := fullPrecision(r)
	writeJSON(w, status, func(e *jx.Encoder) {
		encodeOrder(e, o, full)
	})
}

func encodeOrder(e *jx.Encoder, o *order.Order, full bool) {
	str := func(name, v string) {
		e.Field(name, func(e *jx.Encoder) { e.Str(v) })
	}
	money := func(name string, v decimal.Decimal) {
		e.Field(name, func(e *jx.Encoder) { encodeMoney(e, v, full) })
	}

	e.ObjStart()
	str("id", o.ID)
	str("number", o.Number)
	str("kind", string(o.Kind))
	str("counterparty", o.Counterparty)
	str("offerCode", o.OfferCode)
	e.Field("offerAuto", func(e *jx.Encoder) { e.Bool(o.OfferAuto) })
	money("shippingFee", o.ShippingFee)
	e.Field("lines", func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, l := range o.Lines {
				encodeLine(e, l, full)
			}
		})
	})
	e.Field("totals", func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			t := o.Totals
			e.Field("subtotal", func(e *jx.Encoder) { encodeMoney(e, t.Subtotal, full) })
			e.Field("offerDiscount", func(e *jx.Encoder) { encodeMoney(e, t.OfferDiscount, full) })
			e.Field("discountedSubtotal", func(e *jx.Encoder) { encodeMoney(e, t.DiscountedSubtotal, full) })
			e.Field("taxes", func(e *jx.Encoder) { encodeTaxes(e, t.Taxes, full) })
			e.Field("tax", func(e *jx.Encoder) { encodeMoney(e, t.Tax, full) })
			e.Field("shipping", func(e *jx.Encoder) { encodeMoney(e, t.Shipping, full) })
			e.Field("total", func(e *jx.Encoder) { encodeMoney(e, t.Total, full) })
		})
	})
	str("fulfillmentStatus", o.FulfillmentStatus.String())
	str("createdAt", o.CreatedAt.UTC().Format(time.RFC3339Nano))
	str("updatedAt", o.UpdatedAt.UTC().Format(time.RFC3339Nano))
	e.ObjEnd()
}

func encodeLine(e *jx.Encoder, l order.Line, full bool) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("productId", func(e *jx.Encoder) { e.Str(l.ProductID) })
		e.Field("productName", func(e *jx.Encoder) { e.Str(l.ProductName) })
		e.Field("quantity", func(e *jx.Encoder) { e.Int(l.Quantity) })
		e.Field("unitPrice", func(e *jx.Encoder) { encodeExact(e, l.UnitPrice) })
		e.Field("discountPercent", func(e *jx.Encoder) { encodeExact(e, l.DiscountPercent) })
		e.Field("received", func(e *jx.Encoder) { e.Int(l.Received) })
		e.Field("damaged", func(e *jx.Encoder) { e.Int(l.Damaged) })
		e.Field("missing", func(e *jx.Encoder) { e.Int(l.Missing) })
		e.Field("counted", func(e *jx.Encoder) { e.Bool(l.Counted) })
		e.Field("subtotal", func(e *jx.Encoder) { encodeMoney(e, l.Subtotal, full) })
		e.Field("status", func(e *jx.Encoder) { e.Str(l.Status.String()) })
	})
}

// Package handler exposes the pricing, fulfillment and order operations over
// HTTP with a jx-based JSON codec.
package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/hospital-orders/internal/domain/offer"
	"github.com/xenking/hospital-orders/internal/domain/order"
	"github.com/xenking/hospital-orders/internal/domain/validation"
)

// Handler serves the HTTP API, delegating business logic to the order
// service and the pure pricing and fulfillment engines.
type Handler struct {
	orders *order.Service

	quotes   metric.Int64Counter
	receipts metric.Int64Counter
	statuses metric.Int64Counter
}

// NewHandler constructs a Handler. Instruments are created on meter.
func NewHandler(orders *order.Service, meter metric.Meter) (*Handler, error) {
	h := &Handler{orders: orders}

	var err error
	if h.quotes, err = meter.Int64Counter("orders.quotes",
		metric.WithDescription("Price computations served"),
	); err != nil {
		return nil, errors.Wrap(err, "quotes counter")
	}
	if h.receipts, err = meter.Int64Counter("orders.receipts",
		metric.WithDescription("Receiving-desk counts recorded"),
	); err != nil {
		return nil, errors.Wrap(err, "receipts counter")
	}
	if h.statuses, err = meter.Int64Counter("fulfillment.line_statuses",
		metric.WithDescription("Resolved line statuses by status"),
	); err != nil {
		return nil, errors.Wrap(err, "statuses counter")
	}

	return h, nil
}

// Register mounts every API route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/pricing/quote", h.ComputeQuote)
	mux.HandleFunc("POST /api/fulfillment/resolve", h.ResolveFulfillment)

	mux.HandleFunc("GET /api/orders", h.ListOrders)
	mux.HandleFunc("POST /api/orders", h.CreateOrder)
	mux.HandleFunc("POST /api/orders/quote", h.QuoteOrder)
	mux.HandleFunc("GET /api/orders/{id}", h.GetOrder)
	mux.HandleFunc("PATCH /api/orders/{id}", h.UpdateOrder)
	mux.HandleFunc("DELETE /api/orders/{id}", h.DeleteOrder)
	mux.HandleFunc("POST /api/orders/{id}/receipts", h.ReceiveOrder)
}

// writeError maps domain errors to HTTP statuses. Unexpected errors are
// logged and reported as 500 without details.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		inErr  *validation.InvalidInputError
		malErr *MalformedError
		status int
	)
	switch {
	case errors.As(err, &inErr):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &malErr),
		errors.Is(err, order.ErrEmptyLines),
		errors.Is(err, order.ErrInvalidKind),
		errors.Is(err, order.ErrEmptyCounterparty):
		status = http.StatusBadRequest
	case errors.Is(err, order.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, offer.ErrUnknownOffer),
		errors.Is(err, offer.ErrOfferExpired),
		errors.Is(err, order.ErrOfferNotApplicable):
		status = http.StatusUnprocessableEntity
	default:
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		status = http.StatusInternalServerError
	}

	message := err.Error()
	switch {
	case inErr != nil:
		message = inErr.Error()
	case status == http.StatusNotFound:
		message = "order not found"
	case status == http.StatusInternalServerError:
		message = "internal error"
	}

	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("error", func(e *jx.Encoder) {
				e.Obj(func(e *jx.Encoder) {
					e.Field("code", func(e *jx.Encoder) { e.Int(status) })
					e.Field("message", func(e *jx.Encoder) { e.Str(message) })
					if inErr == nil {
						return
					}
					if inErr.Line != validation.NoLine {
						e.Field("line", func(e *jx.Encoder) { e.Int(inErr.Line) })
					}
					e.Field("field", func(e *jx.Encoder) { e.Str(inErr.Field) })
					e.Field("reason", func(e *jx.Encoder) { e.Str(inErr.Reason) })
				})
			})
		})
	})
}

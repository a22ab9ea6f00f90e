package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xenking/hospital-orders/internal/domain/fulfillment"
)

// ResolveFulfillment derives line and order statuses from the quantities in
// the request body. Lines count as entered unless "counted" is false.
func (h *Handler) ResolveFulfillment(w http.ResponseWriter, r *http.Request) {
	var lines []fulfillment.Line
	err := decodeBody(w, r, func(d *jx.Decoder, key string) error {
		if key != "lines" {
			return d.Skip()
		}
		return decodeArray(d, func(d *jx.Decoder, idx int) error {
			l, err := decodeReceivingLine(d, idx)
			lines = append(lines, l)
			return err
		})
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	statuses, err := fulfillment.ResolveLines(lines)
	if err != nil {
		writeError(w, r, err)
		return
	}
	for _, s := range statuses {
		h.statuses.Add(r.Context(), 1, metric.WithAttributes(attribute.String("status", s.String())))
	}
	status := fulfillment.Aggregate(statuses)

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("lines", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, s := range statuses {
						e.Str(s.String())
					}
				})
			})
			e.Field("status", func(e *jx.Encoder) { e.Str(status.String()) })
		})
	})
}

func decodeReceivingLine(d *jx.Decoder, idx int) (fulfillment.Line, error) {
	l := fulfillment.Line{Counted: true}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "orderedQuantity":
			l.Ordered, err = decodeQuantity(d, idx, "orderedQuantity")
		case "receivedQuantity":
			l.Received, err = decodeQuantity(d, idx, "receivedQuantity")
		case "damagedQuantity":
			l.Damaged, err = decodeQuantity(d, idx, "damagedQuantity")
		case "missingQuantity":
			l.Missing, err = decodeQuantity(d, idx, "missingQuantity")
		case "counted":
			l.Counted, err = d.Bool()
		default:
			err = d.Skip()
		}
		return err
	})
	return l, err
}

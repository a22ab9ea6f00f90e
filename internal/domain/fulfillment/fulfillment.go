// Package fulfillment derives receiving statuses from ordered, received,
// damaged and missing quantities.
//
// Statuses are projections of the quantities and are recomputed on every
// change; they are never stored as independent state.
package fulfillment

import (
	"github.com/xenking/hospital-orders/internal/domain/validation"
)

// LineStatus is the derived receiving status of a single order line.
type LineStatus string

const (
	LinePending   LineStatus = "pending"
	LineFulfilled LineStatus = "fulfilled"
	LinePartial   LineStatus = "partial"
	LineDamaged   LineStatus = "damaged"
	LineMissing   LineStatus = "missing"
)

// Valid reports whether s is a known line status.
func (s LineStatus) Valid() bool {
	switch s {
	case LinePending, LineFulfilled, LinePartial, LineDamaged, LineMissing:
		return true
	}
	return false
}

// IsDeviation reports whether s records any difference from a clean full
// receipt.
func (s LineStatus) IsDeviation() bool {
	return s == LinePartial || s == LineDamaged || s == LineMissing
}

func (s LineStatus) String() string {
	return string(s)
}

// OrderStatus summarizes the line statuses of an order.
type OrderStatus string

const (
	OrderPending            OrderStatus = "Pending"
	OrderPartiallyFulfilled OrderStatus = "Partially Fulfilled"
	OrderFulfilled          OrderStatus = "Fulfilled"
)

func (s OrderStatus) String() string {
	return string(s)
}

// Line holds the receiving quantities of one order line. Ordered is fixed at
// order creation; the others are entered at the receiving desk.
type Line struct {
	Ordered  int
	Received int
	Damaged  int
	Missing  int
	// Counted is set once the receiving desk has entered counts.
	Counted bool
}

// NewLine returns the initial state of a line: everything assumed received,
// nothing counted yet.
func NewLine(ordered int) Line {
	return Line{Ordered: ordered, Received: ordered}
}

// Record returns a copy of l carrying the entered counts.
func (l Line) Record(received, damaged, missing int) Line {
	l.Received = received
	l.Damaged = damaged
	l.Missing = missing
	l.Counted = true
	return l
}

// Validate checks that ordered is positive and every count lies in
// [0, ordered]. idx is reported as the line index of the error.
func (l Line) Validate(idx int) error {
	if l.Ordered <= 0 {
		return validation.New(idx, "orderedQuantity", "must be positive")
	}
	counts := []struct {
		field string
		v     int
	}{
		{"receivedQuantity", l.Received},
		{"damagedQuantity", l.Damaged},
		{"missingQuantity", l.Missing},
	}
	for _, c := range counts {
		if c.v < 0 {
			return validation.New(idx, c.field, "must not be negative")
		}
		if c.v > l.Ordered {
			return validation.New(idx, c.field, "must not exceed ordered quantity")
		}
	}
	return nil
}

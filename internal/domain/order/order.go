package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/hospital-orders/internal/domain/fulfillment"
	"github.com/xenking/hospital-orders/internal/domain/pricing"
)

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// Kind distinguishes the order flows sharing the Order aggregate.
type Kind string

const (
	KindPurchase Kind = "purchase"
	KindSales    Kind = "sales"
	KindTransfer Kind = "transfer"
)

// Valid reports whether k is a known order kind.
func (k Kind) Valid() bool {
	switch k {
	case KindPurchase, KindSales, KindTransfer:
		return true
	}
	return false
}

func (k Kind) prefix() string {
	switch k {
	case KindPurchase:
		return "PO"
	case KindSales:
		return "SO"
	default:
		return "ST"
	}
}

// Line is a single product entry of an order together with its receiving
// counts. Subtotal and Status are derived and recomputed on every change.
type Line struct {
	ProductID       string                 `json:"product_id"`
	ProductName     string                 `json:"product_name"`
	Quantity        int                    `json:"quantity"`
	UnitPrice       decimal.Decimal        `json:"unit_price"`
	DiscountPercent decimal.Decimal        `json:"discount_percent"`
	Received        int                    `json:"received"`
	Damaged         int                    `json:"damaged"`
	Missing         int                    `json:"missing"`
	Counted         bool                   `json:"counted"`
	Subtotal        decimal.Decimal        `json:"subtotal"`
	Status          fulfillment.LineStatus `json:"status"`
}

func (l Line) pricingLine() pricing.Line {
	return pricing.Line{
		Quantity:        l.Quantity,
		UnitPrice:       l.UnitPrice,
		DiscountPercent: l.DiscountPercent,
	}
}

func (l Line) receivingLine() fulfillment.Line {
	return fulfillment.Line{
		Ordered:  l.Quantity,
		Received: l.Received,
		Damaged:  l.Damaged,
		Missing:  l.Missing,
		Counted:  l.Counted,
	}
}

// Totals is the stored price breakdown of an order, at full precision.
type Totals struct {
	Subtotal           decimal.Decimal
	OfferDiscount      decimal.Decimal
	DiscountedSubtotal decimal.Decimal
	Taxes              []pricing.TaxAmount
	Tax                decimal.Decimal
	Shipping           decimal.Decimal
	Total              decimal.Decimal
}

// Order is a purchase order, sales order or stock transfer.
type Order struct {
	ID                string
	Number            string
	Kind              Kind
	Counterparty      string
	Lines             []Line
	OfferCode         string
	// OfferAuto is set when OfferCode was picked as the best eligible offer
	// rather than named by the caller. Such offers are re-picked on every
	// recomputation.
	OfferAuto         bool
	ShippingFee       decimal.Decimal
	Totals            Totals
	FulfillmentStatus fulfillment.OrderStatus
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// LineInput is the caller-editable part of a Line.
type LineInput struct {
	ProductID       string
	ProductName     string
	Quantity        int
	UnitPrice       decimal.Decimal
	DiscountPercent decimal.Decimal
}

// Patch describes a partial order update. A nil field means "no change".
// Derived values cannot be patched. Setting OfferCode to "" returns the order
// to automatic offer selection.
type Patch struct {
	Counterparty *string
	Lines        *[]LineInput
	OfferCode    *string
	ShippingFee  *decimal.Decimal
}

// Count is a receiving-desk entry for the line at index Line.
type Count struct {
	Line     int
	Received int
	Damaged  int
	Missing  int
}

// Repository defines persistence operations for orders.
type Repository interface {
	List(ctx context.Context) ([]Order, error)
	Get(ctx context.Context, id string) (*Order, error)
	Create(ctx context.Context, o *Order) error
	Update(ctx context.Context, o *Order) error
	Delete(ctx context.Context, id string) error
}

package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/hospital-orders/internal/domain/fulfillment"
	"github.com/xenking/hospital-orders/internal/domain/offer"
	"github.com/xenking/hospital-orders/internal/domain/pricing"
	"github.com/xenking/hospital-orders/internal/domain/validation"
)

// Sentinel errors for order validation.
var (
	ErrEmptyLines         = errors.New("lines required")
	ErrInvalidKind        = errors.New("invalid order kind")
	ErrOfferNotApplicable = errors.New("offers apply to purchase orders only")
	ErrEmptyCounterparty  = errors.New("counterparty required")
)

// QuoteRequest holds the input for pricing lines without persisting them.
type QuoteRequest struct {
	Kind        Kind
	Lines       []LineInput
	OfferCode   string
	ShippingFee decimal.Decimal
}

// Quote is the price breakdown of a QuoteRequest.
type Quote struct {
	Result pricing.Result
	// OfferCode is the code of the offer evaluated, empty when none was.
	OfferCode string
}

// CreateRequest holds the input for creating an order.
type CreateRequest struct {
	Kind         Kind
	Counterparty string
	Lines        []LineInput
	OfferCode    string
	ShippingFee  decimal.Decimal
}

// Service encapsulates order pricing and receiving business logic.
type Service struct {
	orders Repository
	offers offer.Selector
	taxes  TaxPolicy
	now    func() time.Time
}

// NewService creates an order Service with the required domain dependencies.
func NewService(orders Repository, offers offer.Selector, taxes TaxPolicy) *Service {
	return &Service{
		orders: orders,
		offers: offers,
		taxes:  taxes,
		now:    time.Now,
	}
}

// Quote prices the request lines with the tax policy of its kind.
func (s *Service) Quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	if !req.Kind.Valid() {
		return nil, ErrInvalidKind
	}
	lines := newLines(req.Lines)
	res, code, err := s.price(ctx, req.Kind, lines, req.OfferCode, req.ShippingFee)
	if err != nil {
		return nil, err
	}
	return &Quote{Result: res, OfferCode: code}, nil
}

// Create validates and prices a new order, initializes the receiving state of
// its lines and persists it.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Order, error) {
	if !req.Kind.Valid() {
		return nil, ErrInvalidKind
	}
	if strings.TrimSpace(req.Counterparty) == "" {
		return nil, ErrEmptyCounterparty
	}
	if len(req.Lines) == 0 {
		return nil, ErrEmptyLines
	}

	now := s.now().UTC()
	id := uuid.New()
	o := &Order{
		ID:           id.String(),
		Number:       orderNumber(req.Kind, id),
		Kind:         req.Kind,
		Counterparty: strings.TrimSpace(req.Counterparty),
		Lines:        newLines(req.Lines),
		OfferCode:    req.OfferCode,
		ShippingFee:  req.ShippingFee,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.recompute(ctx, o); err != nil {
		return nil, err
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	return o, nil
}

// Get returns the order with the given id.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "get order")
	}
	return o, nil
}

// List returns all orders.
func (s *Service) List(ctx context.Context) ([]Order, error) {
	orders, err := s.orders.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// Delete removes the order with the given id.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.orders.Delete(ctx, id); err != nil {
		return errors.Wrap(err, "delete order")
	}
	return nil
}

// Update applies patch to the order and recomputes its derived values.
// Replaced lines keep their receiving counts only when product and quantity
// are unchanged.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (*Order, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "get order")
	}

	if patch.Counterparty != nil {
		if strings.TrimSpace(*patch.Counterparty) == "" {
			return nil, ErrEmptyCounterparty
		}
		o.Counterparty = strings.TrimSpace(*patch.Counterparty)
	}
	if patch.Lines != nil {
		if len(*patch.Lines) == 0 {
			return nil, ErrEmptyLines
		}
		o.Lines = replaceLines(o.Lines, *patch.Lines)
	}
	if patch.OfferCode != nil {
		o.OfferCode = *patch.OfferCode
		o.OfferAuto = false
	}
	if patch.ShippingFee != nil {
		o.ShippingFee = *patch.ShippingFee
	}

	if err := s.recompute(ctx, o); err != nil {
		return nil, err
	}
	o.UpdatedAt = s.now().UTC()

	if err := s.orders.Update(ctx, o); err != nil {
		return nil, errors.Wrap(err, "update order")
	}
	return o, nil
}

// Receive records receiving-desk counts and re-resolves line and order
// statuses. Either every count is applied or none is.
func (s *Service) Receive(ctx context.Context, id string, counts []Count) (*Order, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "get order")
	}

	lines := make([]Line, len(o.Lines))
	copy(lines, o.Lines)
	for i, c := range counts {
		if c.Line < 0 {
			// A negative index would read as NoLine; name the count instead.
			return nil, validation.New(validation.NoLine, fmt.Sprintf("counts[%d].line", i), "must not be negative")
		}
		if c.Line >= len(lines) {
			return nil, validation.New(c.Line, "line", "no such line")
		}
		l := &lines[c.Line]
		rl := l.receivingLine().Record(c.Received, c.Damaged, c.Missing)
		l.Received, l.Damaged, l.Missing, l.Counted = rl.Received, rl.Damaged, rl.Missing, rl.Counted
	}

	if err := resolveStatuses(lines); err != nil {
		return nil, err
	}
	o.Lines = lines
	o.FulfillmentStatus = aggregate(lines)
	o.UpdatedAt = s.now().UTC()

	if err := s.orders.Update(ctx, o); err != nil {
		return nil, errors.Wrap(err, "update order")
	}
	return o, nil
}

// recompute refreshes every derived value of o: line subtotals, totals, line
// statuses and the order status. A named offer is evaluated as is; an
// automatic one is picked again for the current lines.
func (s *Service) recompute(ctx context.Context, o *Order) error {
	named := o.OfferCode
	if o.OfferAuto {
		named = ""
	}
	res, code, err := s.price(ctx, o.Kind, o.Lines, named, o.ShippingFee)
	if err != nil {
		return err
	}
	if named == "" {
		o.OfferCode = code
		o.OfferAuto = code != ""
	}
	for i := range o.Lines {
		o.Lines[i].Subtotal = res.LineSubtotals[i]
	}
	o.Totals = Totals{
		Subtotal:           res.Subtotal,
		OfferDiscount:      res.OfferDiscount,
		DiscountedSubtotal: res.DiscountedSubtotal,
		Taxes:              res.Taxes,
		Tax:                res.Tax,
		Shipping:           res.Shipping,
		Total:              res.Total,
	}

	if err := resolveStatuses(o.Lines); err != nil {
		return err
	}
	o.FulfillmentStatus = aggregate(o.Lines)
	return nil
}

// price selects the offer for kind and runs the calculator. Purchase orders
// evaluate the named offer, or the best eligible one when no code is given;
// other kinds skip the offer step.
func (s *Service) price(
	ctx context.Context,
	kind Kind,
	lines []Line,
	offerCode string,
	shipping decimal.Decimal,
) (pricing.Result, string, error) {
	in := make([]pricing.Line, len(lines))
	for i, l := range lines {
		in[i] = l.pricingLine()
	}

	var (
		selected *pricing.Offer
		err      error
	)
	switch {
	case kind != KindPurchase:
		if offerCode != "" {
			return pricing.Result{}, "", ErrOfferNotApplicable
		}
	case offerCode != "":
		selected, err = s.offers.Select(ctx, offerCode)
		if err != nil {
			return pricing.Result{}, "", errors.Wrap(err, "select offer")
		}
	default:
		selected, err = s.offers.Best(ctx, pricing.TotalQuantity(in))
		if err != nil {
			return pricing.Result{}, "", errors.Wrap(err, "select offer")
		}
	}

	res, err := pricing.Compute(in, pricing.Params{
		Taxes:       s.taxes.For(kind),
		ShippingFee: shipping,
		Offer:       selected,
	})
	if err != nil {
		return pricing.Result{}, "", err
	}

	code := ""
	if selected != nil {
		code = selected.Code
	}
	return res, code, nil
}

func resolveStatuses(lines []Line) error {
	in := make([]fulfillment.Line, len(lines))
	for i, l := range lines {
		in[i] = l.receivingLine()
	}
	statuses, err := fulfillment.ResolveLines(in)
	if err != nil {
		return err
	}
	for i := range lines {
		lines[i].Status = statuses[i]
	}
	return nil
}

func aggregate(lines []Line) fulfillment.OrderStatus {
	statuses := make([]fulfillment.LineStatus, len(lines))
	for i, l := range lines {
		statuses[i] = l.Status
	}
	return fulfillment.Aggregate(statuses)
}

func newLines(in []LineInput) []Line {
	lines := make([]Line, len(in))
	for i, li := range in {
		lines[i] = newLine(li)
	}
	return lines
}

func newLine(in LineInput) Line {
	rl := fulfillment.NewLine(in.Quantity)
	return Line{
		ProductID:       in.ProductID,
		ProductName:     in.ProductName,
		Quantity:        in.Quantity,
		UnitPrice:       in.UnitPrice,
		DiscountPercent: in.DiscountPercent,
		Received:        rl.Received,
		Damaged:         rl.Damaged,
		Missing:         rl.Missing,
		Counted:         rl.Counted,
	}
}

func replaceLines(old []Line, in []LineInput) []Line {
	lines := make([]Line, len(in))
	for i, li := range in {
		lines[i] = newLine(li)
		if i < len(old) && old[i].ProductID == li.ProductID && old[i].Quantity == li.Quantity {
			lines[i].Received = old[i].Received
			lines[i].Damaged = old[i].Damaged
			lines[i].Missing = old[i].Missing
			lines[i].Counted = old[i].Counted
		}
	}
	return lines
}

func orderNumber(k Kind, id uuid.UUID) string {
	short := strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:10])
	return k.prefix() + "-" + short
}

package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/hospital-orders/internal/domain/fulfillment"
	"github.com/xenking/hospital-orders/internal/domain/order"
	"github.com/xenking/hospital-orders/internal/domain/pricing"
)

const (
	orderColumns = `id, number, kind, counterparty, lines, offer_code, offer_auto, shipping_fee,
		subtotal, offer_discount, discounted_subtotal, taxes, tax, total,
		fulfillment_status, created_at, updated_at`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC, id`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	listOrderIDsSQL = `SELECT id FROM orders`

	createOrderSQL = `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	updateOrderSQL = `UPDATE orders SET
		counterparty = $2, lines = $3, offer_code = $4, offer_auto = $5, shipping_fee = $6,
		subtotal = $7, offer_discount = $8, discounted_subtotal = $9,
		taxes = $10, tax = $11, total = $12, fulfillment_status = $13, updated_at = $14
		WHERE id = $1`

	deleteOrderSQL = `DELETE FROM orders WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// taxRecord is the JSONB representation of a computed tax component.
type taxRecord struct {
	Name   string          `json:"name"`
	Rate   decimal.Decimal `json:"rate"`
	Amount decimal.Decimal `json:"amount"`
}

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// List returns every order, newest first.
func (r *OrderRepository) List(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}

	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return orders, nil
}

// Get returns the order with the given id, or order.ErrNotFound.
func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

// IDs returns the ids of all stored orders.
func (r *OrderRepository) IDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, listOrderIDsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing order ids: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("listing order ids: %w", err)
	}
	return ids, nil
}

// Create persists a new order. Lines and tax components are serialized to
// JSON for storage in JSONB columns.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	linesJSON, taxesJSON, err := marshalOrder(o)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.Number, string(o.Kind), o.Counterparty, linesJSON, o.OfferCode, o.OfferAuto, o.ShippingFee,
		o.Totals.Subtotal, o.Totals.OfferDiscount, o.Totals.DiscountedSubtotal,
		taxesJSON, o.Totals.Tax, o.Totals.Total,
		string(o.FulfillmentStatus), o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	return nil
}

// Update replaces the mutable columns of an existing order.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	linesJSON, taxesJSON, err := marshalOrder(o)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, updateOrderSQL,
		o.ID, o.Counterparty, linesJSON, o.OfferCode, o.OfferAuto, o.ShippingFee,
		o.Totals.Subtotal, o.Totals.OfferDiscount, o.Totals.DiscountedSubtotal,
		taxesJSON, o.Totals.Tax, o.Totals.Total,
		string(o.FulfillmentStatus), o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating order %q: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}

	return nil
}

// Delete removes an order, returning order.ErrNotFound when it does not exist.
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteOrderSQL, id)
	if err != nil {
		return fmt.Errorf("deleting order %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func marshalOrder(o *order.Order) (linesJSON, taxesJSON []byte, err error) {
	linesJSON, err = json.Marshal(o.Lines)
	if err != nil {
		return nil, nil, fmt.Errorf("marshaling order lines: %w", err)
	}

	taxes := make([]taxRecord, len(o.Totals.Taxes))
	for i, t := range o.Totals.Taxes {
		taxes[i] = taxRecord{Name: t.Name, Rate: t.Rate, Amount: t.Amount}
	}
	taxesJSON, err = json.Marshal(taxes)
	if err != nil {
		return nil, nil, fmt.Errorf("marshaling order taxes: %w", err)
	}
	return linesJSON, taxesJSON, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o         order.Order
		kind      string
		status    string
		linesJSON []byte
		taxesJSON []byte
	)
	err := row.Scan(
		&o.ID, &o.Number, &kind, &o.Counterparty, &linesJSON, &o.OfferCode, &o.OfferAuto, &o.ShippingFee,
		&o.Totals.Subtotal, &o.Totals.OfferDiscount, &o.Totals.DiscountedSubtotal,
		&taxesJSON, &o.Totals.Tax, &o.Totals.Total,
		&status, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return o, err
	}
	o.Kind = order.Kind(kind)
	o.FulfillmentStatus = fulfillment.OrderStatus(status)
	o.Totals.Shipping = o.ShippingFee

	if err := json.Unmarshal(linesJSON, &o.Lines); err != nil {
		return o, fmt.Errorf("unmarshaling order lines: %w", err)
	}

	var taxes []taxRecord
	if err := json.Unmarshal(taxesJSON, &taxes); err != nil {
		return o, fmt.Errorf("unmarshaling order taxes: %w", err)
	}
	o.Totals.Taxes = make([]pricing.TaxAmount, len(taxes))
	for i, t := range taxes {
		o.Totals.Taxes[i] = pricing.TaxAmount{Name: t.Name, Rate: t.Rate, Amount: t.Amount}
	}
	return o, nil
}

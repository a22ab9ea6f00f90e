package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/hospital-orders/internal/domain/offer"
)

const (
	offerColumns = `code, minimum_quantity, discount_rate, description, valid_from, valid_until, active`

	getOfferByCodeSQL = `SELECT ` + offerColumns + ` FROM offers WHERE UPPER(code) = UPPER($1)`

	listActiveOffersSQL = `SELECT ` + offerColumns + ` FROM offers WHERE active = TRUE ORDER BY code`

	upsertOfferSQL = `INSERT INTO offers (` + offerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (code) DO UPDATE SET
			minimum_quantity = EXCLUDED.minimum_quantity,
			discount_rate    = EXCLUDED.discount_rate,
			description      = EXCLUDED.description,
			valid_from       = EXCLUDED.valid_from,
			valid_until      = EXCLUDED.valid_until,
			active           = EXCLUDED.active`
)

var _ offer.Repository = (*OfferRepository)(nil)

// OfferRepository implements offer.Repository backed by PostgreSQL.
type OfferRepository struct {
	pool *pgxpool.Pool
}

// NewOfferRepository returns an OfferRepository that uses the given pool.
func NewOfferRepository(pool *pgxpool.Pool) *OfferRepository {
	return &OfferRepository{pool: pool}
}

// FindByCode looks up an offer by its code (case-insensitive), active or not.
// Returns offer.ErrUnknownOffer when no such offer exists.
func (r *OfferRepository) FindByCode(ctx context.Context, code string) (*offer.Rule, error) {
	rows, err := r.pool.Query(ctx, getOfferByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding offer by code %q: %w", code, err)
	}

	rule, err := pgx.CollectExactlyOneRow(rows, scanOfferRule)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, offer.ErrUnknownOffer
		}
		return nil, fmt.Errorf("finding offer by code %q: %w", code, err)
	}
	return &rule, nil
}

// ListActive returns every offer flagged active. Validity windows are checked
// by the caller.
func (r *OfferRepository) ListActive(ctx context.Context) ([]offer.Rule, error) {
	rows, err := r.pool.Query(ctx, listActiveOffersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing active offers: %w", err)
	}

	rules, err := pgx.CollectRows(rows, scanOfferRule)
	if err != nil {
		return nil, fmt.Errorf("listing active offers: %w", err)
	}
	return rules, nil
}

// Upsert inserts the rule or replaces the stored one with the same code.
func (r *OfferRepository) Upsert(ctx context.Context, rule offer.Rule) error {
	_, err := r.pool.Exec(ctx, upsertOfferSQL,
		rule.Code, rule.MinimumQuantity, rule.DiscountRate, rule.Description,
		rule.ValidFrom, rule.ValidUntil, rule.Active,
	)
	if err != nil {
		return fmt.Errorf("upserting offer %q: %w", rule.Code, err)
	}
	return nil
}

func scanOfferRule(row pgx.CollectableRow) (offer.Rule, error) {
	var (
		rule   offer.Rule
		minQty int32
	)
	err := row.Scan(
		&rule.Code, &minQty, &rule.DiscountRate, &rule.Description,
		&rule.ValidFrom, &rule.ValidUntil, &rule.Active,
	)
	rule.MinimumQuantity = int(minQty)
	return rule, err
}

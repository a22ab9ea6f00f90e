package offer

import (
	"context"
	"sort"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/hospital-orders/internal/domain/pricing"
)

var (
	// ErrUnknownOffer is returned when an offer code is not found or inactive.
	ErrUnknownOffer = errors.New("unknown offer code")
	// ErrOfferExpired is returned when an offer is outside its valid time window.
	ErrOfferExpired = errors.New("offer expired")
)

// Rule defines a volume offer: DiscountRate percent off the whole order once
// its summed quantity reaches MinimumQuantity.
type Rule struct {
	Code            string
	MinimumQuantity int
	DiscountRate    decimal.Decimal
	Description     string
	ValidFrom       *time.Time
	ValidUntil      *time.Time
	Active          bool
}

// ActiveAt reports whether the rule is active and inside its valid window.
func (r *Rule) ActiveAt(now time.Time) bool {
	if !r.Active {
		return false
	}
	if r.ValidFrom != nil && now.Before(*r.ValidFrom) {
		return false
	}
	if r.ValidUntil != nil && now.After(*r.ValidUntil) {
		return false
	}
	return true
}

// Offer converts the rule into the calculator's input.
func (r *Rule) Offer() *pricing.Offer {
	return &pricing.Offer{
		Code:            r.Code,
		MinimumQuantity: r.MinimumQuantity,
		DiscountRate:    r.DiscountRate,
	}
}

// Repository provides lookup of offer rules.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Rule, error)
	ListActive(ctx context.Context) ([]Rule, error)
}

// Pick returns the best rule for an order of totalQuantity units, or nil when
// none is eligible. The highest rate wins; ties go to the higher threshold,
// then to the lexically smaller code.
func Pick(rules []Rule, totalQuantity int, now time.Time) *Rule {
	eligible := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r.ActiveAt(now) && totalQuantity >= r.MinimumQuantity {
			eligible = append(eligible, r)
		}
	}
	if len(eligible) == 0 {
		return nil
	}

	sort.Slice(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if c := a.DiscountRate.Cmp(b.DiscountRate); c != 0 {
			return c > 0
		}
		if a.MinimumQuantity != b.MinimumQuantity {
			return a.MinimumQuantity > b.MinimumQuantity
		}
		return a.Code < b.Code
	})
	return &eligible[0]
}

package offer

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/hospital-orders/internal/domain/pricing"
)

// Selector pre-selects the single offer a pricing computation evaluates.
type Selector interface {
	// Select returns the offer registered under code.
	Select(ctx context.Context, code string) (*pricing.Offer, error)
	// Best returns the best eligible offer for the given quantity, or nil.
	Best(ctx context.Context, totalQuantity int) (*pricing.Offer, error)
}

// RepoSelector implements Selector on top of a Repository.
type RepoSelector struct {
	repo Repository
	now  func() time.Time
}

// NewRepoSelector creates a RepoSelector backed by the given Repository.
func NewRepoSelector(repo Repository) *RepoSelector {
	return &RepoSelector{repo: repo, now: time.Now}
}

// Select looks up the rule for code and checks that it is currently valid.
// The quantity threshold is not checked here; the calculator applies it.
func (s *RepoSelector) Select(ctx context.Context, code string) (*pricing.Offer, error) {
	rule, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrUnknownOffer) {
			return nil, ErrUnknownOffer
		}
		return nil, errors.Wrap(err, "lookup offer")
	}
	if !rule.Active {
		return nil, ErrUnknownOffer
	}
	if !rule.ActiveAt(s.now()) {
		return nil, ErrOfferExpired
	}
	return rule.Offer(), nil
}

// Best lists the active rules and picks the best eligible one.
func (s *RepoSelector) Best(ctx context.Context, totalQuantity int) (*pricing.Offer, error) {
	rules, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list offers")
	}
	r := Pick(rules, totalQuantity, s.now())
	if r == nil {
		return nil, nil
	}
	return r.Offer(), nil
}

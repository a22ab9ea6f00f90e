package offer

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockOfferRepo struct {
	rule    *Rule
	rules   []Rule
	err     error
	listErr error
}

func (m *mockOfferRepo) FindByCode(_ context.Context, _ string) (*Rule, error) {
	return m.rule, m.err
}

func (m *mockOfferRepo) ListActive(_ context.Context) ([]Rule, error) {
	return m.rules, m.listErr
}

func TestRepoSelector_Select(t *testing.T) {
	fixedNow := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	pastTime := fixedNow.Add(-24 * time.Hour)
	futureTime := fixedNow.Add(24 * time.Hour)

	tests := []struct {
		name     string
		repo     *mockOfferRepo
		wantRate decimal.Decimal
		wantMin  int
		wantErr  error
	}{
		{
			name: "active offer",
			repo: &mockOfferRepo{rule: &Rule{
				Code: "BULK100", MinimumQuantity: 100, DiscountRate: decimal.NewFromInt(5), Active: true,
			}},
			wantRate: decimal.NewFromInt(5),
			wantMin:  100,
		},
		{
			name:    "unknown code",
			repo:    &mockOfferRepo{err: ErrUnknownOffer},
			wantErr: ErrUnknownOffer,
		},
		{
			name: "inactive offer",
			repo: &mockOfferRepo{rule: &Rule{
				Code: "OLD", DiscountRate: decimal.NewFromInt(5),
			}},
			wantErr: ErrUnknownOffer,
		},
		{
			name: "past valid window",
			repo: &mockOfferRepo{rule: &Rule{
				Code: "Q1", DiscountRate: decimal.NewFromInt(5), ValidUntil: &pastTime, Active: true,
			}},
			wantErr: ErrOfferExpired,
		},
		{
			name: "not yet valid",
			repo: &mockOfferRepo{rule: &Rule{
				Code: "Q3", DiscountRate: decimal.NewFromInt(5), ValidFrom: &futureTime, Active: true,
			}},
			wantErr: ErrOfferExpired,
		},
		{
			name: "inside valid window",
			repo: &mockOfferRepo{rule: &Rule{
				Code: "Q2", MinimumQuantity: 10, DiscountRate: decimal.NewFromInt(3),
				ValidFrom: &pastTime, ValidUntil: &futureTime, Active: true,
			}},
			wantRate: decimal.NewFromInt(3),
			wantMin:  10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewRepoSelector(tt.repo)
			s.now = func() time.Time { return fixedNow }

			got, err := s.Select(context.Background(), "ANY")

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, got)
			assert.True(t, tt.wantRate.Equal(got.DiscountRate))
			assert.Equal(t, tt.wantMin, got.MinimumQuantity)
		})
	}
}

func TestRepoSelector_SelectRepoError(t *testing.T) {
	s := NewRepoSelector(&mockOfferRepo{err: errors.New("db down")})

	_, err := s.Select(context.Background(), "BULK")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lookup offer")
}

func TestPick(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	expired := now.Add(-time.Hour)

	rules := []Rule{
		{Code: "SMALL", MinimumQuantity: 10, DiscountRate: decimal.NewFromInt(2), Active: true},
		{Code: "MID", MinimumQuantity: 50, DiscountRate: decimal.NewFromInt(5), Active: true},
		{Code: "MIDB", MinimumQuantity: 60, DiscountRate: decimal.NewFromInt(5), Active: true},
		{Code: "BIG", MinimumQuantity: 100, DiscountRate: decimal.NewFromInt(8), Active: true},
		{Code: "GONE", MinimumQuantity: 1, DiscountRate: decimal.NewFromInt(50), ValidUntil: &expired, Active: true},
	}

	tests := []struct {
		name     string
		quantity int
		want     string
	}{
		{name: "below every threshold", quantity: 9, want: ""},
		{name: "only small", quantity: 10, want: "SMALL"},
		{name: "equal rate prefers higher threshold", quantity: 75, want: "MIDB"},
		{name: "best rate", quantity: 100, want: "BIG"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Pick(rules, tt.quantity, now)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Code)
		})
	}
}

func TestRepoSelector_Best(t *testing.T) {
	repo := &mockOfferRepo{rules: []Rule{
		{Code: "VOL100", MinimumQuantity: 100, DiscountRate: decimal.NewFromInt(10), Active: true},
	}}
	s := NewRepoSelector(repo)

	got, err := s.Best(context.Background(), 99)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = s.Best(context.Background(), 100)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "VOL100", got.Code)

	_, err = NewRepoSelector(&mockOfferRepo{listErr: errors.New("boom")}).Best(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list offers")
}

package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/burger-alley/api/internal/domain"
)

type fakeRepoError struct {
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e *fakeRepoError) Error() string      { return "repository error" }
func (e *fakeRepoError) IsNotFound() bool    { return e.notFound }
func (e *fakeRepoError) IsConflict() bool    { return e.conflict }
func (e *fakeRepoError) IsUnavailable() bool { return e.unavailable }

type stubPromotionRepo struct {
	findByCodeFn func(ctx context.Context, code string) (domain.Promotion, error)
}

func (s *stubPromotionRepo) FindByCode(ctx context.Context, code string) (domain.Promotion, error) {
	return s.findByCodeFn(ctx, code)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestPromotionService(t *testing.T, repo *stubPromotionRepo, now time.Time) DiscountResolver {
	t.Helper()
	svc, err := NewPromotionService(PromotionServiceDeps{
		Promotions: repo,
		Clock:      fixedClock(now),
	})
	if err != nil {
		t.Fatalf("NewPromotionService returned error: %v", err)
	}
	return svc
}

func TestPromotionServiceResolvePercent(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	repo := &stubPromotionRepo{
		findByCodeFn: func(_ context.Context, code string) (domain.Promotion, error) {
			if code != "welcome10" {
				t.Fatalf("expected folded code, got %q", code)
			}
			return domain.Promotion{
				ID:     "welcome10",
				Code:   "welcome10",
				Type:   domain.PromotionTypePercent,
				Value:  1000,
				Active: true,
			}, nil
		},
	}
	svc := newTestPromotionService(t, repo, now)

	discount, err := svc.Resolve(context.Background(), "  WELCOME10 ", 2598)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	// 10% of 2598 = 259.8 rounds to 260.
	if discount.Amount != 260 {
		t.Fatalf("expected amount 260, got %d", discount.Amount)
	}
	if discount.Code != "welcome10" {
		t.Fatalf("expected code welcome10, got %q", discount.Code)
	}
}

func TestPromotionServiceResolveFixedClampsToSubtotal(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	repo := &stubPromotionRepo{
		findByCodeFn: func(_ context.Context, _ string) (domain.Promotion, error) {
			return domain.Promotion{
				Code:   "fiveoff",
				Type:   domain.PromotionTypeFixed,
				Value:  500,
				Active: true,
			}, nil
		},
	}
	svc := newTestPromotionService(t, repo, now)

	discount, err := svc.Resolve(context.Background(), "FIVEOFF", 300)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if discount.Amount != 300 {
		t.Fatalf("expected clamp to subtotal 300, got %d", discount.Amount)
	}
}

func TestPromotionServiceResolveRejections(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name  string
		promo domain.Promotion
		err   error
	}{
		{
			name:  "inactive",
			promo: domain.Promotion{Code: "x", Type: domain.PromotionTypeFixed, Value: 100, Active: false},
		},
		{
			name: "not started",
			promo: domain.Promotion{
				Code: "x", Type: domain.PromotionTypeFixed, Value: 100, Active: true,
				StartsAt: now.Add(24 * time.Hour),
			},
		},
		{
			name: "expired",
			promo: domain.Promotion{
				Code: "x", Type: domain.PromotionTypeFixed, Value: 100, Active: true,
				EndsAt: now.Add(-time.Hour),
			},
		},
		{
			name: "below minimum subtotal",
			promo: domain.Promotion{
				Code: "x", Type: domain.PromotionTypeFixed, Value: 100, Active: true,
				MinSubtotal: 5000,
			},
		},
		{
			name: "not found",
			err:  &fakeRepoError{notFound: true},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &stubPromotionRepo{
				findByCodeFn: func(_ context.Context, _ string) (domain.Promotion, error) {
					if tc.err != nil {
						return domain.Promotion{}, tc.err
					}
					return tc.promo, nil
				},
			}
			svc := newTestPromotionService(t, repo, now)

			_, err := svc.Resolve(context.Background(), "X", 2000)
			if !errors.Is(err, ErrPromotionInvalid) {
				t.Fatalf("expected ErrPromotionInvalid, got %v", err)
			}
		})
	}
}

func TestPromotionServiceResolvePropagatesStoreFailure(t *testing.T) {
	boom := &fakeRepoError{unavailable: true}
	repo := &stubPromotionRepo{
		findByCodeFn: func(_ context.Context, _ string) (domain.Promotion, error) {
			return domain.Promotion{}, boom
		},
	}
	svc := newTestPromotionService(t, repo, time.Now())

	_, err := svc.Resolve(context.Background(), "X", 2000)
	if errors.Is(err, ErrPromotionInvalid) {
		t.Fatalf("store failure must not masquerade as an invalid code")
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected store failure to propagate, got %v", err)
	}
}

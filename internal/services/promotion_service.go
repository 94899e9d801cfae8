package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"

	domain "github.com/burger-alley/api/internal/domain"
	"github.com/burger-alley/api/internal/repositories"
)

// PromotionServiceDeps bundles collaborators for the promotion service.
type PromotionServiceDeps struct {
	Promotions repositories.PromotionRepository
	Clock      func() time.Time
	Logger     func(ctx context.Context, event string, fields map[string]any)
}

type promotionService struct {
	promotions repositories.PromotionRepository
	clock      func() time.Time
	logger     func(context.Context, string, map[string]any)
	folder     cases.Caser
}

// NewPromotionService wires dependencies into a DiscountResolver backed by the
// promotion repository.
func NewPromotionService(deps PromotionServiceDeps) (DiscountResolver, error) {
	if deps.Promotions == nil {
		return nil, errors.New("promotion service: promotion repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &promotionService{
		promotions: deps.Promotions,
		clock:      clock,
		logger:     logger,
		folder:     cases.Fold(),
	}, nil
}

// Resolve looks up the code, checks eligibility against the current time and
// subtotal, and converts the promotion into a concrete deduction. The computed
// amount never exceeds the subtotal.
func (s *promotionService) Resolve(ctx context.Context, code string, subtotal int64) (Discount, error) {
	normalized := s.NormalizeCode(code)
	if normalized == "" {
		return Discount{}, fmt.Errorf("%w: empty code", ErrPromotionInvalid)
	}
	if subtotal < 0 {
		return Discount{}, errors.New("promotion resolve: subtotal must not be negative")
	}

	promo, err := s.promotions.FindByCode(ctx, normalized)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return Discount{}, fmt.Errorf("%w: %s", ErrPromotionInvalid, normalized)
		}
		return Discount{}, err
	}

	now := s.clock().UTC()
	if reason := s.ineligibleReason(promo, now, subtotal); reason != "" {
		s.logger(ctx, "promotion.rejected", map[string]any{
			"code":   normalized,
			"reason": reason,
		})
		return Discount{}, fmt.Errorf("%w: %s %s", ErrPromotionInvalid, normalized, reason)
	}

	amount, err := discountAmount(promo, subtotal)
	if err != nil {
		return Discount{}, err
	}
	return Discount{
		Amount: amount,
		Code:   promo.Code,
		Reason: promo.Description,
	}, nil
}

// NormalizeCode trims and case-folds a customer-supplied promotion code so
// lookups are case-insensitive across scripts.
func (s *promotionService) NormalizeCode(code string) string {
	return s.folder.String(strings.TrimSpace(code))
}

func (s *promotionService) ineligibleReason(promo domain.Promotion, now time.Time, subtotal int64) string {
	if !promo.Active {
		return "is inactive"
	}
	if !promo.StartsAt.IsZero() && now.Before(promo.StartsAt) {
		return "has not started"
	}
	if !promo.EndsAt.IsZero() && now.After(promo.EndsAt) {
		return "has expired"
	}
	if promo.MinSubtotal > 0 && subtotal < promo.MinSubtotal {
		return "requires a larger subtotal"
	}
	return ""
}

func discountAmount(promo domain.Promotion, subtotal int64) (int64, error) {
	if promo.Value < 0 {
		return 0, fmt.Errorf("promotion %s has negative value", promo.Code)
	}
	var amount int64
	switch promo.Type {
	case domain.PromotionTypePercent:
		amount = roundBps(subtotal, promo.Value)
	case domain.PromotionTypeFixed:
		amount = promo.Value
	default:
		return 0, fmt.Errorf("promotion %s has unknown type %q", promo.Code, promo.Type)
	}
	if amount > subtotal {
		amount = subtotal
	}
	return amount, nil
}

package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/burger-alley/api/internal/domain"
	pfirestore "github.com/burger-alley/api/internal/platform/firestore"
)

const promotionsCollection = "promotions"

type promotionDocument struct {
	Code        string    `firestore:"code"`
	Type        string    `firestore:"type"`
	Value       int64     `firestore:"value"`
	Description string    `firestore:"description,omitempty"`
	Active      bool      `firestore:"active"`
	StartsAt    time.Time `firestore:"startsAt,omitempty"`
	EndsAt      time.Time `firestore:"endsAt,omitempty"`
	MinSubtotal int64     `firestore:"minSubtotal,omitempty"`
}

// PromotionRepository implements repositories.PromotionRepository backed by
// Firestore. Documents are keyed by the normalised promotion code.
type PromotionRepository struct {
	provider   *pfirestore.Provider
	promotions *pfirestore.BaseRepository[promotionDocument]
}

// NewPromotionRepository constructs a Firestore-backed promotion repository.
func NewPromotionRepository(provider *pfirestore.Provider) (*PromotionRepository, error) {
	if provider == nil {
		return nil, errors.New("promotion repository requires firestore provider")
	}
	promotions := pfirestore.NewBaseRepository[promotionDocument](provider, promotionsCollection, nil, nil)
	return &PromotionRepository{provider: provider, promotions: promotions}, nil
}

// FindByCode loads the promotion stored under the given code.
func (r *PromotionRepository) FindByCode(ctx context.Context, code string) (domain.Promotion, error) {
	if r == nil || r.provider == nil {
		return domain.Promotion{}, errors.New("promotion repository not initialised")
	}
	id := strings.TrimSpace(code)
	if id == "" {
		return domain.Promotion{}, errors.New("promotion find: code is required")
	}
	doc, err := r.promotions.Get(ctx, id)
	if err != nil {
		return domain.Promotion{}, pfirestore.WrapError("promotions.find", err)
	}
	return domain.Promotion{
		ID:          doc.ID,
		Code:        doc.Data.Code,
		Type:        domain.PromotionType(doc.Data.Type),
		Value:       doc.Data.Value,
		Description: doc.Data.Description,
		Active:      doc.Data.Active,
		StartsAt:    doc.Data.StartsAt,
		EndsAt:      doc.Data.EndsAt,
		MinSubtotal: doc.Data.MinSubtotal,
	}, nil
}

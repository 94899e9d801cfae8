package firestore

import (
	"context"
	"errors"
	"strings"

	domain "github.com/burger-alley/api/internal/domain"
	pfirestore "github.com/burger-alley/api/internal/platform/firestore"
)

const locationsCollection = "locations"

type locationDocument struct {
	Name    string          `firestore:"name"`
	Active  bool            `firestore:"active"`
	Address addressDocument `firestore:"address"`
}

// LocationRepository implements repositories.LocationRepository backed by Firestore.
type LocationRepository struct {
	provider  *pfirestore.Provider
	locations *pfirestore.BaseRepository[locationDocument]
}

// NewLocationRepository constructs a Firestore-backed location repository.
func NewLocationRepository(provider *pfirestore.Provider) (*LocationRepository, error) {
	if provider == nil {
		return nil, errors.New("location repository requires firestore provider")
	}
	locations := pfirestore.NewBaseRepository[locationDocument](provider, locationsCollection, nil, nil)
	return &LocationRepository{provider: provider, locations: locations}, nil
}

// FindByID loads a pickup location.
func (r *LocationRepository) FindByID(ctx context.Context, locationID string) (domain.PickupLocation, error) {
	if r == nil || r.provider == nil {
		return domain.PickupLocation{}, errors.New("location repository not initialised")
	}
	id := strings.TrimSpace(locationID)
	if id == "" {
		return domain.PickupLocation{}, errors.New("location find: location id is required")
	}
	doc, err := r.locations.Get(ctx, id)
	if err != nil {
		return domain.PickupLocation{}, pfirestore.WrapError("locations.find", err)
	}
	return domain.PickupLocation{
		ID:     id,
		Name:   doc.Data.Name,
		Active: doc.Data.Active,
		Address: domain.Address{
			Line1:      doc.Data.Address.Line1,
			Line2:      doc.Data.Address.Line2,
			City:       doc.Data.Address.City,
			State:      doc.Data.Address.State,
			PostalCode: doc.Data.Address.PostalCode,
		},
	}, nil
}

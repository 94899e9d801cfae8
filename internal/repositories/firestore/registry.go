package firestore

import (
	"context"
	"errors"
	"fmt"

	pfirestore "github.com/burger-alley/api/internal/platform/firestore"
	"github.com/burger-alley/api/internal/repositories"
)

// Registry bundles the Firestore-backed repositories behind the
// repositories.Registry contract so the DI container can stay storage-agnostic.
type Registry struct {
	provider   *pfirestore.Provider
	orders     *OrderRepository
	products   *ProductRepository
	locations  *LocationRepository
	promotions *PromotionRepository
	counters   *CounterRepository
	health     repositories.HealthRepository
}

var _ repositories.Registry = (*Registry)(nil)

// RegistryOption customises optional registry collaborators.
type RegistryOption func(*Registry)

// WithHealthRepository attaches the readiness probe repository. Without it
// Health() returns nil and the system service is not assembled.
func WithHealthRepository(health repositories.HealthRepository) RegistryOption {
	return func(r *Registry) {
		r.health = health
	}
}

// NewRegistry constructs every Firestore repository against the shared provider.
func NewRegistry(provider *pfirestore.Provider, opts ...RegistryOption) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("registry requires firestore provider")
	}

	orders, err := NewOrderRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("build order repository: %w", err)
	}
	products, err := NewProductRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("build product repository: %w", err)
	}
	locations, err := NewLocationRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("build location repository: %w", err)
	}
	promotions, err := NewPromotionRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("build promotion repository: %w", err)
	}
	counters, err := NewCounterRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("build counter repository: %w", err)
	}

	registry := &Registry{
		provider:   provider,
		orders:     orders,
		products:   products,
		locations:  locations,
		promotions: promotions,
		counters:   counters,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(registry)
		}
	}
	return registry, nil
}

// Close releases the underlying Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Close(ctx)
}

func (r *Registry) Orders() repositories.OrderRepository {
	if r == nil || r.orders == nil {
		return nil
	}
	return r.orders
}

func (r *Registry) Products() repositories.ProductRepository {
	if r == nil || r.products == nil {
		return nil
	}
	return r.products
}

func (r *Registry) Locations() repositories.LocationRepository {
	if r == nil || r.locations == nil {
		return nil
	}
	return r.locations
}

func (r *Registry) Promotions() repositories.PromotionRepository {
	if r == nil || r.promotions == nil {
		return nil
	}
	return r.promotions
}

func (r *Registry) Counters() repositories.CounterRepository {
	if r == nil || r.counters == nil {
		return nil
	}
	return r.counters
}

func (r *Registry) Health() repositories.HealthRepository {
	if r == nil {
		return nil
	}
	return r.health
}

// RunInTx executes fn as a single mutation scope. Each repository mutation is
// already transactional in Firestore, so the scope runs fn directly; the stock
// movement ledger keyed by order ID keeps replays idempotent when a later step
// fails.
func (r *Registry) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if fn == nil {
		return errors.New("registry: transaction function is required")
	}
	return fn(ctx)
}

package repositories

import (
	"context"
	"time"

	domain "github.com/burger-alley/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Orders() OrderRepository
	Products() ProductRepository
	Locations() LocationRepository
	Promotions() PromotionRepository
	Counters() CounterRepository
	Health() HealthRepository
	UnitOfWork
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UnitOfWork groups repository mutations into a single transaction scope.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// OrderRepository persists order aggregates. Insert returns IsConflict when
// the order number is already taken.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	Update(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	FindByNumber(ctx context.Context, orderNumber string) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[domain.Order], error)
	CountByStatus(ctx context.Context, filter OrderStatsFilter) ([]domain.OrderStatusCount, error)
}

// ProductRepository reads catalog products and adjusts their stock counts.
// Stock mutations are conditional: a decrement that would take stock below
// zero fails with InventoryErrorInsufficientStock and leaves every line
// untouched.
type ProductRepository interface {
	FindByID(ctx context.Context, productID string) (domain.Product, error)
	FindByIDs(ctx context.Context, productIDs []string) (map[string]domain.Product, error)
	// DecrementStocks applies all lines atomically and records a stock
	// movement keyed by order ID. A second call for the same order is a
	// no-op returning the recorded movement.
	DecrementStocks(ctx context.Context, req StockDecrementRequest) (domain.StockMovement, error)
	// RestoreStocks reverses the movement recorded for the order. Calling it
	// again after a restore is a no-op.
	RestoreStocks(ctx context.Context, orderID string) (domain.StockMovement, error)
}

// LocationRepository resolves pickup locations referenced by orders.
type LocationRepository interface {
	FindByID(ctx context.Context, locationID string) (domain.PickupLocation, error)
}

// PromotionRepository resolves discount codes to promotion records.
type PromotionRepository interface {
	FindByCode(ctx context.Context, code string) (domain.Promotion, error)
}

// CounterRepository provides atomic monotonically increasing counters.
type CounterRepository interface {
	Next(ctx context.Context, counterID string, step int64) (int64, error)
	Configure(ctx context.Context, counterID string, cfg CounterConfig) error
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}

// Filter DTOs shared across repositories ------------------------------------

type OrderListFilter struct {
	UserID     string
	Status     []domain.OrderStatus
	From       *time.Time
	To         *time.Time
	Pagination domain.Pagination
}

type OrderStatsFilter struct {
	From *time.Time
	To   *time.Time
}

// StockDecrementRequest carries the per-order stock lines to apply.
type StockDecrementRequest struct {
	OrderID string
	Lines   []domain.StockLine
}

// CounterConfig customises increment behaviour and bounds for a counter.
type CounterConfig struct {
	Step         int64
	MaxValue     *int64
	InitialValue *int64
}

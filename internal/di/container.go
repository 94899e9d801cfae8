package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/burger-alley/api/internal/payments"
	"github.com/burger-alley/api/internal/platform/config"
	"github.com/burger-alley/api/internal/repositories"
	"github.com/burger-alley/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon. Concrete implementations
// are assembled via dependency injection in NewContainer.
type Services struct {
	Orders    services.OrderService
	Pricing   services.PricingService
	Inventory services.InventoryService
	Discounts services.DiscountResolver
	Counters  services.CounterService
	System    services.SystemService
}

// Deps carries infrastructure built by the caller (payment gateway, event
// publisher, logger) that the service layer consumes. Every field is optional;
// missing pieces degrade to local no-op behaviour.
type Deps struct {
	Payments *payments.Manager
	Events   services.OrderEventPublisher
	Logger   *zap.Logger
	Build    services.BuildInfo
}

// Container wires repositories, services, and background infrastructure for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// NewContainer constructs the runtime dependencies. Production wiring provides real
// implementations, while tests can supply in-memory registries.
func NewContainer(ctx context.Context, cfg config.Config, reg repositories.Registry, deps Deps) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}

	svc, err := buildServices(ctx, reg, cfg, deps)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: reg,
		Services:     svc,
	}, nil
}

// Close releases resources such as repository clients, background workers, or caches.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(ctx context.Context, reg repositories.Registry, cfg config.Config, deps Deps) (Services, error) {
	var svc Services

	logFn := eventLogger(deps.Logger)

	if productsRepo := reg.Products(); productsRepo != nil {
		inventorySvc, err := services.NewInventoryService(services.InventoryServiceDeps{
			Products: productsRepo,
			Logger:   logFn,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build inventory service: %w", err)
		}
		svc.Inventory = inventorySvc
	}

	if promotionsRepo := reg.Promotions(); promotionsRepo != nil && cfg.Features.EnablePromotions {
		discounts, err := services.NewPromotionService(services.PromotionServiceDeps{
			Promotions: promotionsRepo,
			Clock:      time.Now,
			Logger:     logFn,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build promotion service: %w", err)
		}
		svc.Discounts = discounts
	}

	if productsRepo := reg.Products(); productsRepo != nil {
		pricingSvc, err := services.NewPricingService(services.PricingServiceDeps{
			Catalog:      productsRepo,
			Discounts:    svc.Discounts,
			DeliveryFees: services.FlatDeliveryFee{Cents: cfg.Orders.DeliveryFeeCents},
			TaxRateBps:   cfg.Orders.TaxRateBps,
			Logger:       logFn,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build pricing service: %w", err)
		}
		svc.Pricing = pricingSvc
	}

	counterRepo := reg.Counters()
	if counterRepo != nil {
		counterSvc, err := services.NewCounterService(services.CounterServiceDeps{
			Repository: counterRepo,
			Clock:      time.Now,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build counter service: %w", err)
		}
		svc.Counters = counterSvc
	}

	if healthRepo := reg.Health(); healthRepo != nil {
		build := deps.Build
		if build.Environment == "" {
			build.Environment = cfg.Security.Environment
		}
		if build.StartedAt.IsZero() {
			build.StartedAt = time.Now().UTC()
		}
		systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
			HealthRepository: healthRepo,
			Clock:            time.Now,
			Build:            build,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build system service: %w", err)
		}
		svc.System = systemSvc
	}

	if ordersRepo := reg.Orders(); ordersRepo != nil && svc.Inventory != nil && svc.Pricing != nil && svc.Counters != nil {
		orderDeps := services.OrderServiceDeps{
			Orders:     ordersRepo,
			Locations:  reg.Locations(),
			Inventory:  svc.Inventory,
			Pricing:    svc.Pricing,
			Counters:   svc.Counters,
			UnitOfWork: reg,
			Clock:      time.Now,
			Events:     deps.Events,
			Logger:     logFn,
		}
		if deps.Payments != nil && cfg.Features.EnablePaymentIntents {
			orderDeps.Payments = deps.Payments
		}
		orderSvc, err := services.NewOrderService(orderDeps)
		if err != nil {
			return Services{}, fmt.Errorf("build order service: %w", err)
		}
		svc.Orders = orderSvc
	}

	return svc, nil
}

// eventLogger adapts zap to the event-style logger the services accept.
func eventLogger(base *zap.Logger) func(ctx context.Context, event string, fields map[string]any) {
	if base == nil {
		return func(context.Context, string, map[string]any) {}
	}
	return func(_ context.Context, event string, fields map[string]any) {
		zapFields := make([]zap.Field, 0, len(fields))
		for key, value := range fields {
			zapFields = append(zapFields, zap.Any(key, value))
		}
		base.Info(event, zapFields...)
	}
}

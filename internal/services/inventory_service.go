package services

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/burger-alley/api/internal/domain"
	"github.com/burger-alley/api/internal/repositories"
)

var (
	// ErrStockUnavailable indicates at least one line could not be applied.
	ErrStockUnavailable = errors.New("inventory: stock unavailable")
	// ErrStockProductNotFound indicates a referenced product does not exist.
	ErrStockProductNotFound = errors.New("inventory: product not found")
	// ErrStockMovementConflict indicates the recorded movement is in a state
	// that does not permit the requested operation.
	ErrStockMovementConflict = errors.New("inventory: movement conflict")
)

// InventoryServiceDeps bundles collaborators for the inventory service.
type InventoryServiceDeps struct {
	Products repositories.ProductRepository
	Logger   func(ctx context.Context, event string, fields map[string]any)
}

type inventoryService struct {
	products repositories.ProductRepository
	logger   func(context.Context, string, map[string]any)
}

// NewInventoryService wires dependencies into a concrete InventoryService.
func NewInventoryService(deps InventoryServiceDeps) (InventoryService, error) {
	if deps.Products == nil {
		return nil, errors.New("inventory service: product repository is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &inventoryService{products: deps.Products, logger: logger}, nil
}

// ApplyOrderStocks decrements stock for every line of the order in one atomic
// step. Replaying the call for an order that already holds a movement returns
// the recorded movement without touching stock again.
func (s *inventoryService) ApplyOrderStocks(ctx context.Context, cmd StockApplyCommand) (StockMovement, error) {
	if cmd.OrderID == "" {
		return StockMovement{}, errors.New("inventory apply: order id is required")
	}
	if len(cmd.Lines) == 0 {
		return StockMovement{}, errors.New("inventory apply: at least one line is required")
	}
	for _, line := range cmd.Lines {
		if line.ProductID == "" || line.Quantity < 1 {
			return StockMovement{}, fmt.Errorf("inventory apply: invalid line for product %q", line.ProductID)
		}
	}

	movement, err := s.products.DecrementStocks(ctx, repositories.StockDecrementRequest{
		OrderID: cmd.OrderID,
		Lines:   cmd.Lines,
	})
	if err != nil {
		return StockMovement{}, mapInventoryError(err)
	}
	s.logger(ctx, "inventory.stocks.applied", map[string]any{
		"orderId": cmd.OrderID,
		"lines":   len(movement.Lines),
	})
	return movement, nil
}

// RestoreOrderStocks reverses the stock movement recorded for the order. An
// order without a movement, or whose movement was already restored, is a
// no-op so cancellation paths can retry safely.
func (s *inventoryService) RestoreOrderStocks(ctx context.Context, orderID string) (StockMovement, error) {
	if orderID == "" {
		return StockMovement{}, errors.New("inventory restore: order id is required")
	}

	movement, err := s.products.RestoreStocks(ctx, orderID)
	if err != nil {
		var invErr *repositories.InventoryError
		if errors.As(err, &invErr) && invErr.Code == repositories.InventoryErrorMovementNotFound {
			s.logger(ctx, "inventory.stocks.restore.skipped", map[string]any{"orderId": orderID})
			return StockMovement{OrderID: orderID, State: domain.StockMovementRestored}, nil
		}
		return StockMovement{}, mapInventoryError(err)
	}
	s.logger(ctx, "inventory.stocks.restored", map[string]any{
		"orderId": orderID,
		"lines":   len(movement.Lines),
	})
	return movement, nil
}

// GetProducts loads a catalog snapshot for the given product IDs. Missing
// products are absent from the result rather than an error.
func (s *inventoryService) GetProducts(ctx context.Context, productIDs []string) (map[string]Product, error) {
	if len(productIDs) == 0 {
		return map[string]Product{}, nil
	}
	products, err := s.products.FindByIDs(ctx, productIDs)
	if err != nil {
		return nil, mapInventoryError(err)
	}
	return products, nil
}

func mapInventoryError(err error) error {
	var invErr *repositories.InventoryError
	if errors.As(err, &invErr) {
		switch invErr.Code {
		case repositories.InventoryErrorInsufficientStock:
			return fmt.Errorf("%w: %s", ErrStockUnavailable, invErr.Message)
		case repositories.InventoryErrorProductNotFound:
			return fmt.Errorf("%w: %s", ErrStockProductNotFound, invErr.Message)
		case repositories.InventoryErrorInvalidMovementState:
			return fmt.Errorf("%w: %s", ErrStockMovementConflict, invErr.Message)
		}
	}
	return err
}

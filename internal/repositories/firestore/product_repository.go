package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/burger-alley/api/internal/domain"
	pfirestore "github.com/burger-alley/api/internal/platform/firestore"
	"github.com/burger-alley/api/internal/repositories"
)

const (
	productsCollection       = "products"
	stockMovementsCollection = "stockMovements"
)

type productDocument struct {
	Name             string    `firestore:"name"`
	Price            int64     `firestore:"price"`
	Active           bool      `firestore:"active"`
	Stock            int       `firestore:"stockCount"`
	Reserved         int       `firestore:"reserved"`
	MaxOrderQuantity int       `firestore:"maxOrderQuantity"`
	UpdatedAt        time.Time `firestore:"updatedAt"`
}

func (d productDocument) toDomain(id string) domain.Product {
	return domain.Product{
		ID:               id,
		Name:             d.Name,
		Price:            d.Price,
		Active:           d.Active,
		Stock:            d.Stock,
		Reserved:         d.Reserved,
		MaxOrderQuantity: d.MaxOrderQuantity,
	}
}

type movementDocument struct {
	OrderRef   string                 `firestore:"orderRef"`
	State      string                 `firestore:"state"`
	Lines      []movementLineDocument `firestore:"lines"`
	AppliedAt  time.Time              `firestore:"appliedAt"`
	RestoredAt *time.Time             `firestore:"restoredAt,omitempty"`
}

type movementLineDocument struct {
	ProductRef string `firestore:"productRef"`
	Quantity   int    `firestore:"qty"`
}

func (d movementDocument) toDomain(orderID string) domain.StockMovement {
	lines := make([]domain.StockLine, len(d.Lines))
	for i, line := range d.Lines {
		lines[i] = domain.StockLine{ProductID: line.ProductRef, Quantity: line.Quantity}
	}
	return domain.StockMovement{
		OrderID:    orderID,
		Lines:      lines,
		State:      domain.StockMovementState(d.State),
		AppliedAt:  d.AppliedAt,
		RestoredAt: d.RestoredAt,
	}
}

// ProductRepository implements repositories.ProductRepository backed by Firestore.
// Stock math runs inside transactions; each order's decrement is recorded as a
// movement document keyed by the order ID so the matching restore is applied
// exactly once.
type ProductRepository struct {
	provider  *pfirestore.Provider
	products  *pfirestore.BaseRepository[productDocument]
	movements *pfirestore.BaseRepository[movementDocument]
}

// NewProductRepository constructs a Firestore-backed product repository.
func NewProductRepository(provider *pfirestore.Provider) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("product repository requires firestore provider")
	}
	products := pfirestore.NewBaseRepository[productDocument](provider, productsCollection, nil, nil)
	movements := pfirestore.NewBaseRepository[movementDocument](provider, stockMovementsCollection, nil, nil)
	return &ProductRepository{provider: provider, products: products, movements: movements}, nil
}

// FindByID loads a single product.
func (r *ProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	if r == nil || r.provider == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}
	id := strings.TrimSpace(productID)
	if id == "" {
		return domain.Product{}, repositories.NewInventoryError(repositories.InventoryErrorProductNotFound, "product id is required", nil)
	}
	doc, err := r.products.Get(ctx, id)
	if err != nil {
		return domain.Product{}, wrapInventoryError("products.find", err)
	}
	return doc.Data.toDomain(id), nil
}

// FindByIDs loads the referenced products, skipping missing IDs.
func (r *ProductRepository) FindByIDs(ctx context.Context, productIDs []string) (map[string]domain.Product, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("product repository not initialised")
	}
	result := make(map[string]domain.Product, len(productIDs))
	seen := make(map[string]struct{}, len(productIDs))
	for _, productID := range productIDs {
		id := strings.TrimSpace(productID)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		doc, err := r.products.Get(ctx, id)
		if err != nil {
			var repoErr repositories.RepositoryError
			if errors.As(err, &repoErr) && repoErr.IsNotFound() {
				continue
			}
			return nil, wrapInventoryError("products.findByIds", err)
		}
		result[id] = doc.Data.toDomain(id)
	}
	return result, nil
}

// DecrementStocks applies the order's stock lines as one transaction. All
// lines succeed or none do, and a movement document records the decrement so
// a repeated call for the same order returns the prior result unchanged.
func (r *ProductRepository) DecrementStocks(ctx context.Context, req repositories.StockDecrementRequest) (domain.StockMovement, error) {
	if r == nil || r.provider == nil {
		return domain.StockMovement{}, errors.New("product repository not initialised")
	}
	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		return domain.StockMovement{}, errors.New("stock decrement: order id is required")
	}
	if len(req.Lines) == 0 {
		return domain.StockMovement{}, errors.New("stock decrement: at least one line is required")
	}

	var movement domain.StockMovement
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		movementRef, err := r.movements.DocumentRef(ctx, orderID)
		if err != nil {
			return err
		}

		if snap, err := tx.Get(movementRef); err == nil {
			var existing movementDocument
			if err := snap.DataTo(&existing); err != nil {
				return fmt.Errorf("decode stock movement %s: %w", orderID, err)
			}
			movement = existing.toDomain(orderID)
			return nil
		} else if status.Code(err) != codes.NotFound {
			return err
		}

		// The Firestore client forbids reads once the transaction has buffered
		// a write, so every product is read and validated before the first set.
		now := time.Now().UTC()
		type productWrite struct {
			ref *firestore.DocumentRef
			doc productDocument
		}
		writes := make([]productWrite, 0, len(req.Lines))
		lines := make([]movementLineDocument, 0, len(req.Lines))
		for _, line := range req.Lines {
			productID := strings.TrimSpace(line.ProductID)
			if productID == "" {
				return repositories.NewInventoryError(repositories.InventoryErrorProductNotFound, "stock decrement: product id is required", nil)
			}
			if line.Quantity <= 0 {
				return repositories.NewInventoryError(repositories.InventoryErrorUnknown, fmt.Sprintf("stock decrement: quantity for %s must be > 0", productID), nil)
			}

			productRef, err := r.products.DocumentRef(ctx, productID)
			if err != nil {
				return err
			}
			snap, err := tx.Get(productRef)
			if err != nil {
				if status.Code(err) == codes.NotFound {
					return repositories.NewInventoryError(repositories.InventoryErrorProductNotFound, fmt.Sprintf("product %s not found", productID), err)
				}
				return err
			}
			var productDoc productDocument
			if err := snap.DataTo(&productDoc); err != nil {
				return fmt.Errorf("decode product %s: %w", productID, err)
			}
			if productDoc.Stock < line.Quantity {
				return repositories.NewInventoryError(repositories.InventoryErrorInsufficientStock, fmt.Sprintf("insufficient stock for %s", productID), nil)
			}
			productDoc.Stock -= line.Quantity
			productDoc.UpdatedAt = now
			writes = append(writes, productWrite{ref: productRef, doc: productDoc})
			lines = append(lines, movementLineDocument{ProductRef: productID, Quantity: line.Quantity})
		}
		for _, write := range writes {
			if err := tx.Set(write.ref, write.doc); err != nil {
				return err
			}
		}

		movementDoc := movementDocument{
			OrderRef:  orderID,
			State:     string(domain.StockMovementApplied),
			Lines:     lines,
			AppliedAt: now,
		}
		if err := tx.Create(movementRef, movementDoc); err != nil {
			return err
		}
		movement = movementDoc.toDomain(orderID)
		return nil
	})
	if err != nil {
		return domain.StockMovement{}, wrapInventoryError("products.decrementStocks", err)
	}
	return movement, nil
}

// RestoreStocks reverses the movement recorded for the order. A movement that
// was already restored is left alone, making compensation idempotent.
func (r *ProductRepository) RestoreStocks(ctx context.Context, orderID string) (domain.StockMovement, error) {
	if r == nil || r.provider == nil {
		return domain.StockMovement{}, errors.New("product repository not initialised")
	}
	id := strings.TrimSpace(orderID)
	if id == "" {
		return domain.StockMovement{}, errors.New("stock restore: order id is required")
	}

	var movement domain.StockMovement
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		movementRef, err := r.movements.DocumentRef(ctx, id)
		if err != nil {
			return err
		}
		snap, err := tx.Get(movementRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return repositories.NewInventoryError(repositories.InventoryErrorMovementNotFound, fmt.Sprintf("no stock movement for order %s", id), err)
			}
			return err
		}
		var movementDoc movementDocument
		if err := snap.DataTo(&movementDoc); err != nil {
			return fmt.Errorf("decode stock movement %s: %w", id, err)
		}
		if movementDoc.State == string(domain.StockMovementRestored) {
			movement = movementDoc.toDomain(id)
			return nil
		}

		now := time.Now().UTC()
		type productWrite struct {
			ref *firestore.DocumentRef
			doc productDocument
		}
		writes := make([]productWrite, 0, len(movementDoc.Lines))
		for _, line := range movementDoc.Lines {
			productRef, err := r.products.DocumentRef(ctx, line.ProductRef)
			if err != nil {
				return err
			}
			productSnap, err := tx.Get(productRef)
			if err != nil {
				if status.Code(err) == codes.NotFound {
					return repositories.NewInventoryError(repositories.InventoryErrorProductNotFound, fmt.Sprintf("product %s not found", line.ProductRef), err)
				}
				return err
			}
			var productDoc productDocument
			if err := productSnap.DataTo(&productDoc); err != nil {
				return fmt.Errorf("decode product %s: %w", line.ProductRef, err)
			}
			productDoc.Stock += line.Quantity
			productDoc.UpdatedAt = now
			writes = append(writes, productWrite{ref: productRef, doc: productDoc})
		}
		for _, write := range writes {
			if err := tx.Set(write.ref, write.doc); err != nil {
				return err
			}
		}

		movementDoc.State = string(domain.StockMovementRestored)
		movementDoc.RestoredAt = &now
		if err := tx.Set(movementRef, movementDoc); err != nil {
			return err
		}
		movement = movementDoc.toDomain(id)
		return nil
	})
	if err != nil {
		return domain.StockMovement{}, wrapInventoryError("products.restoreStocks", err)
	}
	return movement, nil
}

func wrapInventoryError(op string, err error) error {
	if err == nil {
		return nil
	}
	var invErr *repositories.InventoryError
	if errors.As(err, &invErr) {
		if invErr.Op == "" {
			invErr.Op = op
		}
		return invErr
	}
	return pfirestore.WrapError(op, err)
}

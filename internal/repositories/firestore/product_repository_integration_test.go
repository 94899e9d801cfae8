//go:build integration

package firestore

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"testing"
	"time"

	domain "github.com/burger-alley/api/internal/domain"
	pconfig "github.com/burger-alley/api/internal/platform/config"
	pfirestore "github.com/burger-alley/api/internal/platform/firestore"
	"github.com/burger-alley/api/internal/repositories"
)

func TestProductRepositoryStockMovementIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}

	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not available: " + err.Error())
	}

	ensureDockerDaemon(t)

	port := freePort(t)
	endpoint := fmt.Sprintf("127.0.0.1:%d", port)
	containerID := startFirestoreEmulator(t, port)
	t.Cleanup(func() { stopContainer(containerID) })

	waitForEndpoint(t, endpoint, 30*time.Second)

	cfg := pconfig.FirestoreConfig{
		ProjectID:    "product-test",
		EmulatorHost: endpoint,
	}

	provider := pfirestore.NewProvider(cfg)
	t.Cleanup(func() {
		_ = provider.Close(context.Background())
	})

	repo, err := NewProductRepository(provider)
	if err != nil {
		t.Fatalf("new product repository: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	now := time.Now().UTC()
	seed := map[string]productDocument{
		"prod_burger": {Name: "Burger", Price: 1000, Active: true, Stock: 10, UpdatedAt: now},
		"prod_fries":  {Name: "Fries", Price: 400, Active: true, Stock: 5, UpdatedAt: now},
		"prod_shake":  {Name: "Shake", Price: 600, Active: true, Stock: 3, UpdatedAt: now},
	}
	for id, doc := range seed {
		if _, err := repo.products.Set(ctx, id, doc); err != nil {
			t.Fatalf("seed product %s: %v", id, err)
		}
	}

	// A multi-product cart must decrement every line in one transaction.
	movement, err := repo.DecrementStocks(ctx, repositories.StockDecrementRequest{
		OrderID: "ord_multi",
		Lines: []domain.StockLine{
			{ProductID: "prod_burger", Quantity: 2},
			{ProductID: "prod_fries", Quantity: 1},
			{ProductID: "prod_shake", Quantity: 3},
		},
	})
	if err != nil {
		t.Fatalf("decrement multi-product order: %v", err)
	}
	if movement.State != domain.StockMovementApplied || len(movement.Lines) != 3 {
		t.Fatalf("unexpected movement: %+v", movement)
	}

	expectStock := func(productID string, want int) {
		t.Helper()
		product, err := repo.FindByID(ctx, productID)
		if err != nil {
			t.Fatalf("find %s: %v", productID, err)
		}
		if product.Stock != want {
			t.Fatalf("expected %s stock %d, got %d", productID, want, product.Stock)
		}
	}
	expectStock("prod_burger", 8)
	expectStock("prod_fries", 4)
	expectStock("prod_shake", 0)

	// Replaying the same order returns the recorded movement without
	// decrementing again.
	replay, err := repo.DecrementStocks(ctx, repositories.StockDecrementRequest{
		OrderID: "ord_multi",
		Lines: []domain.StockLine{
			{ProductID: "prod_burger", Quantity: 2},
			{ProductID: "prod_fries", Quantity: 1},
			{ProductID: "prod_shake", Quantity: 3},
		},
	})
	if err != nil {
		t.Fatalf("replay decrement: %v", err)
	}
	if replay.State != domain.StockMovementApplied || len(replay.Lines) != 3 {
		t.Fatalf("unexpected replayed movement: %+v", replay)
	}
	expectStock("prod_burger", 8)
	expectStock("prod_fries", 4)
	expectStock("prod_shake", 0)

	// One short line fails the whole transaction, leaving earlier lines intact.
	_, err = repo.DecrementStocks(ctx, repositories.StockDecrementRequest{
		OrderID: "ord_short",
		Lines: []domain.StockLine{
			{ProductID: "prod_burger", Quantity: 1},
			{ProductID: "prod_shake", Quantity: 1},
		},
	})
	var invErr *repositories.InventoryError
	if !errors.As(err, &invErr) || invErr.Code != repositories.InventoryErrorInsufficientStock {
		t.Fatalf("expected insufficient stock error, got %v", err)
	}
	expectStock("prod_burger", 8)
	expectStock("prod_shake", 0)

	// Restore puts every line back and is idempotent.
	restored, err := repo.RestoreStocks(ctx, "ord_multi")
	if err != nil {
		t.Fatalf("restore stocks: %v", err)
	}
	if restored.State != domain.StockMovementRestored || restored.RestoredAt == nil {
		t.Fatalf("unexpected restored movement: %+v", restored)
	}
	expectStock("prod_burger", 10)
	expectStock("prod_fries", 5)
	expectStock("prod_shake", 3)

	again, err := repo.RestoreStocks(ctx, "ord_multi")
	if err != nil {
		t.Fatalf("second restore: %v", err)
	}
	if again.State != domain.StockMovementRestored {
		t.Fatalf("expected restored state, got %+v", again)
	}
	expectStock("prod_burger", 10)
	expectStock("prod_fries", 5)
	expectStock("prod_shake", 3)
}

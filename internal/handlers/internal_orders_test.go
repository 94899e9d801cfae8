package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	domain "github.com/burger-alley/api/internal/domain"
	"github.com/burger-alley/api/internal/platform/auth"
	"github.com/burger-alley/api/internal/services"
)

func newInternalRouter(svc services.OrderService) chi.Router {
	router := chi.NewRouter()
	router.Route("/internal", NewInternalOrderHandlers(svc).Routes)
	return router
}

func TestInternalOrderHandlersGetOrder(t *testing.T) {
	svc := &fakeOrderService{
		getFn: func(_ context.Context, orderID string) (services.Order, error) {
			if orderID != "ord_001" {
				return services.Order{}, services.ErrOrderNotFound
			}
			return sampleOrder("ord_001"), nil
		},
	}
	router := newInternalRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/internal/orders/ord_001", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestInternalOrderHandlersUpdateStatusOIDCActor(t *testing.T) {
	var captured services.UpdateOrderStatusCommand
	svc := &fakeOrderService{
		updateStatusFn: func(_ context.Context, cmd services.UpdateOrderStatusCommand) (services.Order, error) {
			captured = cmd
			order := sampleOrder("ord_001")
			order.Status = domain.OrderStatusReady
			return order, nil
		},
	}
	router := newInternalRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/internal/orders/ord_001:status", bytes.NewReader([]byte(`{"status":"ready"}`)))
	req = req.WithContext(auth.WithServiceIdentity(req.Context(), &auth.ServiceIdentity{
		Subject: "kitchen-display",
		Email:   "kitchen@burger-alley.iam.gserviceaccount.com",
	}))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.Target != domain.OrderStatusReady {
		t.Fatalf("unexpected target status %q", captured.Target)
	}
	if captured.ActorID != "kitchen@burger-alley.iam.gserviceaccount.com" {
		t.Fatalf("expected service account actor, got %q", captured.ActorID)
	}
}

func TestInternalOrderHandlersSetNotesHMACActor(t *testing.T) {
	var captured services.SetOrderNotesCommand
	svc := &fakeOrderService{
		setNotesFn: func(_ context.Context, cmd services.SetOrderNotesCommand) (services.Order, error) {
			captured = cmd
			return sampleOrder("ord_001"), nil
		},
	}
	router := newInternalRouter(svc)

	req := httptest.NewRequest(http.MethodPut, "/internal/orders/ord_001/notes", bytes.NewReader([]byte(`{"driver":"left at reception"}`)))
	req = req.WithContext(auth.WithHMACMetadata(req.Context(), &auth.HMACMetadata{SecretName: "courier-dispatch"}))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.ActorID != "courier-dispatch" {
		t.Fatalf("expected hmac secret actor, got %q", captured.ActorID)
	}
	if captured.Driver == nil || *captured.Driver != "left at reception" {
		t.Fatalf("unexpected driver note: %v", captured.Driver)
	}
}

func TestInternalActorFallback(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if actor := internalActor(req); actor != "internal" {
		t.Fatalf("expected fallback actor, got %q", actor)
	}
}

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/burger-alley/api/internal/domain"
	"github.com/burger-alley/api/internal/platform/auth"
	"github.com/burger-alley/api/internal/services"
)

func newAdminRouter(svc services.OrderService) chi.Router {
	router := chi.NewRouter()
	router.Route("/admin", NewAdminOrderHandlers(nil, svc).Routes)
	return router
}

func adminRequest(method, target string, body []byte) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	return req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{
		UID:   "staff_1",
		Roles: []string{auth.RoleAdmin},
	}))
}

func TestAdminOrderHandlersListFiltersByUser(t *testing.T) {
	var captured services.OrderListFilter
	svc := &fakeOrderService{
		listFn: func(_ context.Context, filter services.OrderListFilter) (domain.CursorPage[services.Order], error) {
			captured = filter
			return domain.CursorPage[services.Order]{Items: []services.Order{sampleOrder("ord_001")}}, nil
		},
	}
	router := newAdminRouter(svc)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, adminRequest(http.MethodGet, "/admin/orders/?user_id=user_9&status=preparing", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.UserID != "user_9" {
		t.Fatalf("expected user filter user_9, got %q", captured.UserID)
	}
	if len(captured.Status) != 1 || captured.Status[0] != domain.OrderStatusPreparing {
		t.Fatalf("unexpected status filter: %+v", captured.Status)
	}
}

func TestAdminOrderHandlersStats(t *testing.T) {
	var captured services.OrderStatsFilter
	svc := &fakeOrderService{
		statsFn: func(_ context.Context, filter services.OrderStatsFilter) ([]services.OrderStatusCount, error) {
			captured = filter
			return []services.OrderStatusCount{
				{Status: domain.OrderStatusDelivered, Count: 12, Revenue: 40860},
				{Status: domain.OrderStatusCancelled, Count: 2, Revenue: 0},
			}, nil
		},
	}
	router := newAdminRouter(svc)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, adminRequest(http.MethodGet, "/admin/orders/stats?from=2025-03-01T00:00:00Z&to=2025-03-31T00:00:00Z", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.From == nil || !captured.From.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected from bound: %v", captured.From)
	}
	if captured.To == nil || !captured.To.Equal(time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected to bound: %v", captured.To)
	}

	var body orderStatsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(body.Items) != 2 || body.Items[0].Status != "delivered" || body.Items[0].Revenue != 40860 {
		t.Fatalf("unexpected stats payload: %+v", body.Items)
	}
}

func TestAdminOrderHandlersStatsRejectsBadTimestamp(t *testing.T) {
	router := newAdminRouter(&fakeOrderService{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, adminRequest(http.MethodGet, "/admin/orders/stats?from=yesterday", nil))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestAdminOrderHandlersUpdateStatus(t *testing.T) {
	var captured services.UpdateOrderStatusCommand
	svc := &fakeOrderService{
		updateStatusFn: func(_ context.Context, cmd services.UpdateOrderStatusCommand) (services.Order, error) {
			captured = cmd
			order := sampleOrder("ord_001")
			order.Status = domain.OrderStatusPreparing
			return order, nil
		},
	}
	router := newAdminRouter(svc)

	body := []byte(`{"status": "Preparing", "note": "<i>on the grill</i>"}`)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, adminRequest(http.MethodPost, "/admin/orders/ord_001:status", body))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.OrderID != "ord_001" || captured.Target != domain.OrderStatusPreparing {
		t.Fatalf("unexpected status command: %+v", captured)
	}
	if captured.Note != "on the grill" {
		t.Fatalf("expected sanitized note, got %q", captured.Note)
	}
	if captured.ActorID != "staff_1" {
		t.Fatalf("expected staff actor, got %q", captured.ActorID)
	}
}

func TestAdminOrderHandlersRefund(t *testing.T) {
	var captured services.RefundOrderCommand
	svc := &fakeOrderService{
		refundFn: func(_ context.Context, cmd services.RefundOrderCommand) (services.Order, error) {
			captured = cmd
			order := sampleOrder("ord_001")
			order.Payment.Status = domain.PaymentStatusRefunded
			return order, nil
		},
	}
	router := newAdminRouter(svc)

	body := []byte(`{"amount": 1000, "reason": "cold food"}`)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, adminRequest(http.MethodPost, "/admin/orders/ord_001:refund", body))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.Amount == nil || *captured.Amount != 1000 {
		t.Fatalf("expected partial amount 1000, got %v", captured.Amount)
	}
	if captured.Reason != "cold food" || captured.ActorID != "staff_1" {
		t.Fatalf("unexpected refund command: %+v", captured)
	}

	var payload struct {
		Order struct {
			Payment struct {
				Status string `json:"status"`
			} `json:"payment"`
		} `json:"order"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if payload.Order.Payment.Status != "refunded" {
		t.Fatalf("expected refunded payment, got %q", payload.Order.Payment.Status)
	}
}

func TestAdminOrderHandlersSetNotes(t *testing.T) {
	var captured services.SetOrderNotesCommand
	svc := &fakeOrderService{
		setNotesFn: func(_ context.Context, cmd services.SetOrderNotesCommand) (services.Order, error) {
			captured = cmd
			return sampleOrder("ord_001"), nil
		},
	}
	router := newAdminRouter(svc)

	body := []byte(`{"kitchen": "no pickles", "driver": "gate code 4421"}`)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, adminRequest(http.MethodPut, "/admin/orders/ord_001/notes", body))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.Kitchen == nil || *captured.Kitchen != "no pickles" {
		t.Fatalf("unexpected kitchen note: %v", captured.Kitchen)
	}
	if captured.Driver == nil || *captured.Driver != "gate code 4421" {
		t.Fatalf("unexpected driver note: %v", captured.Driver)
	}
}

func TestAdminOrderHandlersRequireIdentity(t *testing.T) {
	router := newAdminRouter(&fakeOrderService{})

	// No identity on the context: mutating endpoints refuse to attribute the change.
	req := httptest.NewRequest(http.MethodPost, "/admin/orders/ord_001:status", bytes.NewReader([]byte(`{"status":"preparing"}`)))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
}

package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/burger-alley/api/internal/domain"
	"github.com/burger-alley/api/internal/platform/auth"
	"github.com/burger-alley/api/internal/platform/httpx"
	"github.com/burger-alley/api/internal/services"
)

// AdminOrderHandlers exposes the staff-facing order management endpoints.
type AdminOrderHandlers struct {
	authn  *auth.Authenticator
	orders services.OrderService
}

// NewAdminOrderHandlers constructs admin order handlers.
func NewAdminOrderHandlers(authn *auth.Authenticator, orders services.OrderService) *AdminOrderHandlers {
	return &AdminOrderHandlers{authn: authn, orders: orders}
}

// Routes registers the admin order endpoints.
func (h *AdminOrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth(auth.RoleAdmin))
	}
	r.Route("/orders", func(rt chi.Router) {
		rt.Get("/", h.listOrders)
		rt.Get("/stats", h.orderStats)
		rt.Get("/{orderID}", h.getOrder)
		rt.Post("/{orderID}:status", h.updateStatus)
		rt.Post("/{orderID}:refund", h.refundOrder)
		rt.Put("/{orderID}/notes", h.setNotes)
	})
}

type updateOrderStatusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note,omitempty"`
}

type refundOrderRequest struct {
	Amount *int64 `json:"amount,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type setOrderNotesRequest struct {
	Kitchen *string `json:"kitchen,omitempty"`
	Driver  *string `json:"driver,omitempty"`
}

type orderStatsResponse struct {
	Items []orderStatPayload `json:"items"`
}

type orderStatPayload struct {
	Status  string `json:"status"`
	Count   int    `json:"count"`
	Revenue int64  `json:"revenue"`
}

func (h *AdminOrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.serviceReady(w, r) {
		return
	}

	filter, ok := parseOrderListQuery(ctx, w, r)
	if !ok {
		return
	}
	filter.UserID = strings.TrimSpace(r.URL.Query().Get("user_id"))

	page, err := h.orders.List(ctx, filter)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeOrderPage(w, page)
}

func (h *AdminOrderHandlers) orderStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.serviceReady(w, r) {
		return
	}

	var filter services.OrderStatsFilter
	query := r.URL.Query()
	if raw := strings.TrimSpace(query.Get("from")); raw != "" {
		ts, err := parseTimeParam(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "from must be a valid RFC3339 timestamp", http.StatusBadRequest))
			return
		}
		filter.From = &ts
	}
	if raw := strings.TrimSpace(query.Get("to")); raw != "" {
		ts, err := parseTimeParam(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "to must be a valid RFC3339 timestamp", http.StatusBadRequest))
			return
		}
		filter.To = &ts
	}

	counts, err := h.orders.Stats(ctx, filter)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	items := make([]orderStatPayload, 0, len(counts))
	for _, count := range counts {
		items = append(items, orderStatPayload{
			Status:  string(count.Status),
			Count:   count.Count,
			Revenue: count.Revenue,
		})
	}
	writeJSONResponse(w, http.StatusOK, orderStatsResponse{Items: items})
}

func (h *AdminOrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.serviceReady(w, r) {
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	order, err := h.orders.Get(ctx, orderID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *AdminOrderHandlers) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.serviceReady(w, r) {
		return
	}
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	var req updateOrderStatusRequest
	if !decodeJSONBody(ctx, w, r, &req) {
		return
	}

	order, err := h.orders.UpdateStatus(ctx, services.UpdateOrderStatusCommand{
		OrderID: orderID,
		Target:  domain.OrderStatus(strings.ToLower(strings.TrimSpace(req.Status))),
		Note:    sanitizeText(req.Note),
		ActorID: identity.UID,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *AdminOrderHandlers) refundOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.serviceReady(w, r) {
		return
	}
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	var req refundOrderRequest
	if !decodeJSONBody(ctx, w, r, &req) {
		return
	}

	order, err := h.orders.Refund(ctx, services.RefundOrderCommand{
		OrderID: orderID,
		Amount:  req.Amount,
		Reason:  sanitizeText(req.Reason),
		ActorID: identity.UID,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *AdminOrderHandlers) setNotes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.serviceReady(w, r) {
		return
	}
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	var req setOrderNotesRequest
	if !decodeJSONBody(ctx, w, r, &req) {
		return
	}

	cmd := services.SetOrderNotesCommand{OrderID: orderID, ActorID: identity.UID}
	if req.Kitchen != nil {
		cleaned := sanitizeText(*req.Kitchen)
		cmd.Kitchen = &cleaned
	}
	if req.Driver != nil {
		cleaned := sanitizeText(*req.Driver)
		cmd.Driver = &cleaned
	}

	order, err := h.orders.SetNotes(ctx, cmd)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *AdminOrderHandlers) serviceReady(w http.ResponseWriter, r *http.Request) bool {
	if h.orders == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return false
	}
	return true
}

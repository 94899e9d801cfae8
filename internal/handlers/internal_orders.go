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

// InternalOrderHandlers serves the kitchen and courier systems. Authentication
// (OIDC service tokens or HMAC signatures) is applied as group middleware on
// the /internal mount, not here.
type InternalOrderHandlers struct {
	orders services.OrderService
}

// NewInternalOrderHandlers constructs the internal order endpoints.
func NewInternalOrderHandlers(orders services.OrderService) *InternalOrderHandlers {
	return &InternalOrderHandlers{orders: orders}
}

// Routes registers the internal order endpoints.
func (h *InternalOrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Route("/orders", func(rt chi.Router) {
		rt.Get("/{orderID}", h.getOrder)
		rt.Post("/{orderID}:status", h.updateStatus)
		rt.Put("/{orderID}/notes", h.setNotes)
	})
}

func (h *InternalOrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
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

func (h *InternalOrderHandlers) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
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
		ActorID: internalActor(r),
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *InternalOrderHandlers) setNotes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	var req setOrderNotesRequest
	if !decodeJSONBody(ctx, w, r, &req) {
		return
	}

	cmd := services.SetOrderNotesCommand{OrderID: orderID, ActorID: internalActor(r)}
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

// internalActor names the calling service for the status history trail.
func internalActor(r *http.Request) string {
	if identity, ok := auth.ServiceIdentityFromContext(r.Context()); ok && identity != nil {
		if identity.Email != "" {
			return identity.Email
		}
		if identity.Subject != "" {
			return identity.Subject
		}
	}
	if meta, ok := auth.HMACMetadataFromContext(r.Context()); ok && meta != nil && meta.SecretName != "" {
		return meta.SecretName
	}
	return "internal"
}

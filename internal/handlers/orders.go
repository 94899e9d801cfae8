package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/burger-alley/api/internal/domain"
	"github.com/burger-alley/api/internal/platform/auth"
	"github.com/burger-alley/api/internal/platform/httpx"
	"github.com/burger-alley/api/internal/services"
)

const (
	defaultOrderPageSize = 20
	maxOrderPageSize     = 100
	maxOrderBodySize     = 64 * 1024

	orderCreateRateLimit  = 10
	orderCreateRateWindow = time.Minute
)

// OrderHandlers exposes the customer-facing order endpoints.
type OrderHandlers struct {
	authn   *auth.Authenticator
	orders  services.OrderService
	limiter rateLimiter
}

// NewOrderHandlers constructs a new OrderHandlers instance.
func NewOrderHandlers(authn *auth.Authenticator, orders services.OrderService) *OrderHandlers {
	return &OrderHandlers{
		authn:   authn,
		orders:  orders,
		limiter: newSimpleRateLimiter(orderCreateRateLimit, orderCreateRateWindow, nil),
	}
}

// Routes registers the /orders endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	r.Post("/", h.createOrder)
	r.Get("/", h.listOrders)
	r.Get("/{orderID}", h.getOrder)
	r.Get("/number/{orderNumber}", h.getOrderByNumber)
	r.Post("/{orderID}:cancel", h.cancelOrder)
	r.Post("/{orderID}:rate", h.rateOrder)
	r.Post("/{orderID}:reorder", h.reorder)
	r.Post("/{orderID}:payment-intent", h.createPaymentIntent)
}

type orderItemRequest struct {
	ProductID    string `json:"product_id"`
	Quantity     int    `json:"quantity"`
	Instructions string `json:"instructions,omitempty"`
}

type orderAddressRequest struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
}

type orderDeliveryRequest struct {
	Mode       string               `json:"mode"`
	Address    *orderAddressRequest `json:"address,omitempty"`
	LocationID string               `json:"location_id,omitempty"`
}

type orderCustomerRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
}

type createOrderRequest struct {
	Items         []orderItemRequest   `json:"items"`
	Customer      orderCustomerRequest `json:"customer"`
	Delivery      orderDeliveryRequest `json:"delivery"`
	PaymentMethod string               `json:"payment_method"`
	DiscountCode  string               `json:"discount_code,omitempty"`
	Note          string               `json:"note,omitempty"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason,omitempty"`
}

type rateOrderRequest struct {
	Overall  int    `json:"overall"`
	Food     *int   `json:"food,omitempty"`
	Delivery *int   `json:"delivery,omitempty"`
	Comment  string `json:"comment,omitempty"`
}

func (h *OrderHandlers) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireIdentity(ctx, w)
	if !ok {
		return
	}

	if h.limiter != nil && !h.limiter.Allow(identity.UID) {
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many orders, slow down", http.StatusTooManyRequests))
		return
	}

	var req createOrderRequest
	if !decodeJSONBody(ctx, w, r, &req) {
		return
	}

	items := make([]services.CartItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, services.CartItemInput{
			ProductID:    strings.TrimSpace(item.ProductID),
			Quantity:     item.Quantity,
			Instructions: sanitizeText(item.Instructions),
		})
	}

	cmd := services.CreateOrderCommand{
		UserID: identity.UID,
		Items:  items,
		Customer: services.CustomerInfo{
			FirstName: sanitizeText(req.Customer.FirstName),
			LastName:  sanitizeText(req.Customer.LastName),
			Email:     strings.TrimSpace(req.Customer.Email),
			Phone:     strings.TrimSpace(req.Customer.Phone),
		},
		Delivery: services.DeliveryInput{
			Mode:       domain.DeliveryMode(strings.ToLower(strings.TrimSpace(req.Delivery.Mode))),
			LocationID: strings.TrimSpace(req.Delivery.LocationID),
		},
		PaymentMethod: domain.PaymentMethod(strings.ToLower(strings.TrimSpace(req.PaymentMethod))),
		DiscountCode:  strings.TrimSpace(req.DiscountCode),
		CustomerNote:  sanitizeText(req.Note),
		ActorID:       identity.UID,
	}
	if req.Delivery.Address != nil {
		cmd.Delivery.Address = &services.Address{
			Line1:      sanitizeText(req.Delivery.Address.Line1),
			Line2:      sanitizeText(req.Delivery.Address.Line2),
			City:       sanitizeText(req.Delivery.Address.City),
			State:      sanitizeText(req.Delivery.Address.State),
			PostalCode: strings.TrimSpace(req.Delivery.Address.PostalCode),
		}
	}

	order, err := h.orders.Create(ctx, cmd)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireIdentity(ctx, w)
	if !ok {
		return
	}

	filter, ok := parseOrderListQuery(ctx, w, r)
	if !ok {
		return
	}
	filter.UserID = identity.UID

	page, err := h.orders.List(ctx, filter)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeOrderPage(w, page)
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireIdentity(ctx, w)
	if !ok {
		return
	}

	order, ok := h.loadOwnedOrder(ctx, w, r, identity)
	if !ok {
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) getOrderByNumber(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireIdentity(ctx, w)
	if !ok {
		return
	}

	orderNumber := strings.TrimSpace(chi.URLParam(r, "orderNumber"))
	if orderNumber == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order number is required", http.StatusBadRequest))
		return
	}

	order, err := h.orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	if !strings.EqualFold(strings.TrimSpace(order.UserID), strings.TrimSpace(identity.UID)) {
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireIdentity(ctx, w)
	if !ok {
		return
	}

	order, ok := h.loadOwnedOrder(ctx, w, r, identity)
	if !ok {
		return
	}

	var req cancelOrderRequest
	body, err := readLimitedBody(r, maxOrderBodySize)
	switch {
	case err == nil:
		if jsonErr := json.Unmarshal(body, &req); jsonErr != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
			return
		}
	case errors.Is(err, errEmptyBody):
		// cancellation without a reason is fine
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
		return
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	cancelled, err := h.orders.Cancel(ctx, services.CancelOrderCommand{
		OrderID: order.ID,
		Reason:  sanitizeText(req.Reason),
		ActorID: identity.UID,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(cancelled)})
}

func (h *OrderHandlers) rateOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireIdentity(ctx, w)
	if !ok {
		return
	}

	order, ok := h.loadOwnedOrder(ctx, w, r, identity)
	if !ok {
		return
	}

	var req rateOrderRequest
	if !decodeJSONBody(ctx, w, r, &req) {
		return
	}

	rated, err := h.orders.Rate(ctx, services.RateOrderCommand{
		OrderID:  order.ID,
		Overall:  req.Overall,
		Food:     req.Food,
		Delivery: req.Delivery,
		Comment:  sanitizeText(req.Comment),
		ActorID:  identity.UID,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(rated)})
}

func (h *OrderHandlers) reorder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireIdentity(ctx, w)
	if !ok {
		return
	}

	order, ok := h.loadOwnedOrder(ctx, w, r, identity)
	if !ok {
		return
	}

	result, err := h.orders.Reorder(ctx, services.ReorderCommand{
		OrderID: order.ID,
		ActorID: identity.UID,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, reorderResponse{
		Order:        buildOrderPayload(result.Order),
		DroppedItems: result.DroppedItems,
	})
}

type paymentIntentResponse struct {
	IntentID     string       `json:"intent_id"`
	ClientSecret string       `json:"client_secret"`
	Amount       int64        `json:"amount"`
	Currency     string       `json:"currency"`
	Order        orderPayload `json:"order"`
}

func (h *OrderHandlers) createPaymentIntent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireIdentity(ctx, w)
	if !ok {
		return
	}

	order, ok := h.loadOwnedOrder(ctx, w, r, identity)
	if !ok {
		return
	}

	result, err := h.orders.CreatePaymentIntent(ctx, services.CreatePaymentIntentCommand{
		OrderID: order.ID,
		ActorID: identity.UID,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, paymentIntentResponse{
		IntentID:     result.IntentID,
		ClientSecret: result.ClientSecret,
		Amount:       result.Amount,
		Currency:     result.Currency,
		Order:        buildOrderPayload(result.Order),
	})
}

func (h *OrderHandlers) requireIdentity(ctx context.Context, w http.ResponseWriter) (*auth.Identity, bool) {
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return nil, false
	}
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return nil, false
	}
	return identity, true
}

func (h *OrderHandlers) loadOwnedOrder(ctx context.Context, w http.ResponseWriter, r *http.Request, identity *auth.Identity) (services.Order, bool) {
	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return services.Order{}, false
	}
	order, err := h.orders.Get(ctx, orderID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return services.Order{}, false
	}
	if !strings.EqualFold(strings.TrimSpace(order.UserID), strings.TrimSpace(identity.UID)) {
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
		return services.Order{}, false
	}
	return order, true
}

// parseOrderListQuery translates list query parameters shared by the customer
// and admin listings.
func parseOrderListQuery(ctx context.Context, w http.ResponseWriter, r *http.Request) (services.OrderListFilter, bool) {
	query := r.URL.Query()

	var filter services.OrderListFilter
	for _, raw := range parseFilterValues(query["status"]) {
		status := domain.OrderStatus(raw)
		if _, ok := orderStateTransitionsKnown[status]; !ok {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "unknown status filter "+raw, http.StatusBadRequest))
			return services.OrderListFilter{}, false
		}
		filter.Status = append(filter.Status, status)
	}

	if raw := strings.TrimSpace(query.Get("created_after")); raw != "" {
		ts, err := parseTimeParam(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "created_after must be a valid RFC3339 timestamp", http.StatusBadRequest))
			return services.OrderListFilter{}, false
		}
		filter.From = &ts
	}
	if raw := strings.TrimSpace(query.Get("created_before")); raw != "" {
		ts, err := parseTimeParam(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "created_before must be a valid RFC3339 timestamp", http.StatusBadRequest))
			return services.OrderListFilter{}, false
		}
		filter.To = &ts
	}

	pageSize := defaultOrderPageSize
	if sizeRaw := strings.TrimSpace(query.Get("page_size")); sizeRaw != "" {
		size, err := strconv.Atoi(sizeRaw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "page_size must be an integer", http.StatusBadRequest))
			return services.OrderListFilter{}, false
		}
		switch {
		case size <= 0:
			pageSize = defaultOrderPageSize
		case size > maxOrderPageSize:
			pageSize = maxOrderPageSize
		default:
			pageSize = size
		}
	}
	filter.Pagination = domain.Pagination{
		Limit: pageSize,
		Token: strings.TrimSpace(query.Get("page_token")),
	}
	return filter, true
}

// orderStateTransitionsKnown mirrors the lifecycle statuses accepted in filters.
var orderStateTransitionsKnown = map[domain.OrderStatus]struct{}{
	domain.OrderStatusPending:        {},
	domain.OrderStatusConfirmed:      {},
	domain.OrderStatusPreparing:      {},
	domain.OrderStatusReady:          {},
	domain.OrderStatusOutForDelivery: {},
	domain.OrderStatusDelivered:      {},
	domain.OrderStatusCompleted:      {},
	domain.OrderStatusCancelled:      {},
}

func writeOrderPage(w http.ResponseWriter, page domain.CursorPage[services.Order]) {
	items := make([]orderSummaryPayload, 0, len(page.Items))
	for _, order := range page.Items {
		items = append(items, buildOrderSummary(order))
	}
	writeJSONResponse(w, http.StatusOK, orderListResponse{
		Items:         items,
		NextPageToken: page.NextToken,
	})
}

type orderListResponse struct {
	Items         []orderSummaryPayload `json:"items"`
	NextPageToken string                `json:"next_page_token,omitempty"`
}

type orderSummaryPayload struct {
	ID               string `json:"id"`
	OrderNumber      string `json:"order_number"`
	Status           string `json:"status"`
	Mode             string `json:"mode"`
	Total            int64  `json:"total"`
	EstimatedMinutes int    `json:"estimated_minutes,omitempty"`
	CreatedAt        string `json:"created_at"`
}

type orderResponse struct {
	Order orderPayload `json:"order"`
}

type reorderResponse struct {
	Order        orderPayload `json:"order"`
	DroppedItems []string     `json:"dropped_items,omitempty"`
}

type orderPayload struct {
	ID            string                 `json:"id"`
	OrderNumber   string                 `json:"order_number"`
	UserID        string                 `json:"user_id"`
	Status        string                 `json:"status"`
	Items         []orderItemPayload     `json:"items"`
	Pricing       orderPricingPayload    `json:"pricing"`
	Customer      orderCustomerPayload   `json:"customer"`
	Delivery      orderDeliveryPayload   `json:"delivery"`
	Payment       orderPaymentPayload    `json:"payment"`
	StatusHistory []orderHistoryPayload  `json:"status_history"`
	Tracking      *orderTrackingPayload  `json:"tracking,omitempty"`
	Rating        *orderRatingPayload    `json:"rating,omitempty"`
	Notes         *orderNotesPayload     `json:"notes,omitempty"`
	CancelReason  string                 `json:"cancel_reason,omitempty"`
	CancelledAt   string                 `json:"cancelled_at,omitempty"`
	Metadata      map[string]string      `json:"metadata,omitempty"`
	CreatedAt     string                 `json:"created_at"`
	UpdatedAt     string                 `json:"updated_at,omitempty"`
}

type orderItemPayload struct {
	ProductID    string `json:"product_id"`
	Name         string `json:"name"`
	UnitPrice    int64  `json:"unit_price"`
	Quantity     int    `json:"quantity"`
	Subtotal     int64  `json:"subtotal"`
	Instructions string `json:"instructions,omitempty"`
}

type orderPricingPayload struct {
	Subtotal     int64  `json:"subtotal"`
	Tax          int64  `json:"tax"`
	DeliveryFee  int64  `json:"delivery_fee"`
	Discount     int64  `json:"discount"`
	DiscountCode string `json:"discount_code,omitempty"`
	Total        int64  `json:"total"`
}

type orderCustomerPayload struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
}

type orderAddressPayload struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
}

type orderDeliveryPayload struct {
	Mode             string               `json:"mode"`
	Address          *orderAddressPayload `json:"address,omitempty"`
	LocationID       string               `json:"location_id,omitempty"`
	EstimatedMinutes int                  `json:"estimated_minutes"`
	ActualMinutes    *int                 `json:"actual_minutes,omitempty"`
}

type orderPaymentPayload struct {
	Method        string `json:"method"`
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id,omitempty"`
	PaidAt        string `json:"paid_at,omitempty"`
	RefundedAt    string `json:"refunded_at,omitempty"`
	RefundAmount  int64  `json:"refund_amount,omitempty"`
}

type orderHistoryPayload struct {
	Status string `json:"status"`
	At     string `json:"at"`
	Note   string `json:"note,omitempty"`
	Actor  string `json:"actor,omitempty"`
}

type orderTrackingPayload struct {
	PickupTime         string `json:"pickup_time,omitempty"`
	ActualDeliveryTime string `json:"actual_delivery_time,omitempty"`
}

type orderRatingPayload struct {
	Overall  int    `json:"overall"`
	Food     *int   `json:"food,omitempty"`
	Delivery *int   `json:"delivery,omitempty"`
	Comment  string `json:"comment,omitempty"`
	RatedAt  string `json:"rated_at,omitempty"`
}

type orderNotesPayload struct {
	Customer string `json:"customer,omitempty"`
	Kitchen  string `json:"kitchen,omitempty"`
	Driver   string `json:"driver,omitempty"`
}

func buildOrderSummary(order services.Order) orderSummaryPayload {
	return orderSummaryPayload{
		ID:               order.ID,
		OrderNumber:      order.OrderNumber,
		Status:           string(order.Status),
		Mode:             string(order.Delivery.Mode),
		Total:            order.Pricing.Total,
		EstimatedMinutes: order.Delivery.EstimatedMinutes,
		CreatedAt:        formatTime(order.CreatedAt),
	}
}

func buildOrderPayload(order services.Order) orderPayload {
	payload := orderPayload{
		ID:          order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Status:      string(order.Status),
		Items:       make([]orderItemPayload, 0, len(order.Items)),
		Pricing: orderPricingPayload{
			Subtotal:     order.Pricing.Subtotal,
			Tax:          order.Pricing.Tax,
			DeliveryFee:  order.Pricing.DeliveryFee,
			Discount:     order.Pricing.Discount.Amount,
			DiscountCode: order.Pricing.Discount.Code,
			Total:        order.Pricing.Total,
		},
		Customer: orderCustomerPayload{
			FirstName: order.Customer.FirstName,
			LastName:  order.Customer.LastName,
			Email:     order.Customer.Email,
			Phone:     order.Customer.Phone,
		},
		Delivery: orderDeliveryPayload{
			Mode:             string(order.Delivery.Mode),
			LocationID:       order.Delivery.LocationID,
			EstimatedMinutes: order.Delivery.EstimatedMinutes,
			ActualMinutes:    order.Delivery.ActualMinutes,
		},
		Payment: orderPaymentPayload{
			Method:        string(order.Payment.Method),
			Status:        string(order.Payment.Status),
			TransactionID: order.Payment.TransactionID,
			PaidAt:        formatTime(pointerTime(order.Payment.PaidAt)),
			RefundedAt:    formatTime(pointerTime(order.Payment.RefundedAt)),
			RefundAmount:  order.Payment.RefundAmount,
		},
		StatusHistory: make([]orderHistoryPayload, 0, len(order.StatusHistory)),
		CancelReason:  order.CancelReason,
		CancelledAt:   formatTime(pointerTime(order.CancelledAt)),
		Metadata:      order.Metadata,
		CreatedAt:     formatTime(order.CreatedAt),
		UpdatedAt:     formatTime(order.UpdatedAt),
	}

	for _, item := range order.Items {
		payload.Items = append(payload.Items, orderItemPayload{
			ProductID:    item.ProductID,
			Name:         item.Name,
			UnitPrice:    item.UnitPrice,
			Quantity:     item.Quantity,
			Subtotal:     item.UnitPrice * int64(item.Quantity),
			Instructions: item.Instructions,
		})
	}

	if order.Delivery.Address != nil {
		payload.Delivery.Address = &orderAddressPayload{
			Line1:      order.Delivery.Address.Line1,
			Line2:      order.Delivery.Address.Line2,
			City:       order.Delivery.Address.City,
			State:      order.Delivery.Address.State,
			PostalCode: order.Delivery.Address.PostalCode,
		}
	}

	for _, change := range order.StatusHistory {
		payload.StatusHistory = append(payload.StatusHistory, orderHistoryPayload{
			Status: string(change.Status),
			At:     formatTime(change.At),
			Note:   change.Note,
			Actor:  change.Actor,
		})
	}

	if order.Tracking.PickupTime != nil || order.Tracking.ActualDeliveryTime != nil {
		payload.Tracking = &orderTrackingPayload{
			PickupTime:         formatTime(pointerTime(order.Tracking.PickupTime)),
			ActualDeliveryTime: formatTime(pointerTime(order.Tracking.ActualDeliveryTime)),
		}
	}

	if order.Rating != nil {
		payload.Rating = &orderRatingPayload{
			Overall:  order.Rating.Overall,
			Food:     order.Rating.Food,
			Delivery: order.Rating.Delivery,
			Comment:  order.Rating.Comment,
			RatedAt:  formatTime(order.Rating.RatedAt),
		}
	}

	if order.Notes != (domain.OrderNotes{}) {
		payload.Notes = &orderNotesPayload{
			Customer: order.Notes.Customer,
			Kitchen:  order.Notes.Kitchen,
			Driver:   order.Notes.Driver,
		}
	}

	return payload
}

func writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrOrderInvalidInput),
		errors.Is(err, services.ErrPricingInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrProductUnavailable),
		errors.Is(err, services.ErrNoItemsAvailable):
		httpx.WriteError(ctx, w, httpx.NewError("product_unavailable", err.Error(), http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrInsufficientStock),
		errors.Is(err, services.ErrStockUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("insufficient_stock", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrQuantityExceedsLimit):
		httpx.WriteError(ctx, w, httpx.NewError("quantity_limit", err.Error(), http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrOrderAlreadyRated):
		httpx.WriteError(ctx, w, httpx.NewError("order_already_rated", "order has already been rated", http.StatusConflict))
	case errors.Is(err, services.ErrOrderAlreadyRefunded):
		httpx.WriteError(ctx, w, httpx.NewError("order_already_refunded", "order has already been refunded", http.StatusConflict))
	case errors.Is(err, services.ErrOrderNotCancellable):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_cancellable", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderNotDeliverable),
		errors.Is(err, services.ErrOrderInvalidState):
		httpx.WriteError(ctx, w, httpx.NewError("order_invalid_state", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderConflict),
		errors.Is(err, services.ErrOrderNumberConflict):
		httpx.WriteError(ctx, w, httpx.NewError("order_conflict", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderPaymentFailed):
		httpx.WriteError(ctx, w, httpx.NewError("payment_gateway_error", "payment gateway rejected the request", http.StatusBadGateway))
	case errors.Is(err, services.ErrOrderUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order storage unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("order_error", "failed to process order request", http.StatusInternalServerError))
	}
}

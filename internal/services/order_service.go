package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"

	domain "github.com/burger-alley/api/internal/domain"
	"github.com/burger-alley/api/internal/payments"
	"github.com/burger-alley/api/internal/repositories"
)

const (
	orderIDPrefix = "ord_"

	// orderNumberAttempts bounds retries when a freshly issued order number
	// loses the race for its uniqueness claim.
	orderNumberAttempts = 3

	ratingMin           = 1
	ratingMax           = 5
	ratingCommentLimit  = 500
	cancelReasonLimit   = 500
	instructionsLimit   = 280
	customerNoteLimit   = 500
	eventOrderCreated   = "order.created"
	eventOrderStatus    = "order.status.changed"
	eventOrderCancelled = "order.cancelled"
	eventOrderRefunded  = "order.refunded"
	eventPaymentFailed  = "order.payment.failed"

	defaultPaymentCurrency = "USD"
)

var (
	// ErrOrderInvalidInput indicates the caller supplied malformed parameters.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order does not exist.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderInvalidState indicates the requested transition is not allowed
	// from the order's current status.
	ErrOrderInvalidState = errors.New("order: invalid state")
	// ErrOrderNotCancellable indicates the order is past the point of cancellation.
	ErrOrderNotCancellable = errors.New("order: not cancellable")
	// ErrOrderNotDeliverable indicates the order has not been delivered the way
	// the operation requires: a courier transition requested for a pickup order
	// (or vice versa), or a rating before the order reached delivered.
	ErrOrderNotDeliverable = errors.New("order: not deliverable in current state")
	// ErrOrderAlreadyRated indicates a rating already exists for the order.
	ErrOrderAlreadyRated = errors.New("order: already rated")
	// ErrOrderAlreadyRefunded indicates the payment was already refunded.
	ErrOrderAlreadyRefunded = errors.New("order: already refunded")
	// ErrOrderNumberConflict indicates order number generation kept colliding.
	ErrOrderNumberConflict = errors.New("order: order number conflict")
	// ErrOrderConflict indicates a concurrent modification clashed with this one.
	ErrOrderConflict = errors.New("order: conflict")
	// ErrOrderUnavailable indicates the order store is temporarily unreachable.
	ErrOrderUnavailable = errors.New("order: storage unavailable")
	// ErrNoItemsAvailable indicates every item of a reorder source is gone from
	// the catalog.
	ErrNoItemsAvailable = errors.New("order: no items available")
	// ErrOrderPaymentFailed indicates the payment gateway rejected or could not
	// complete a charge or refund.
	ErrOrderPaymentFailed = errors.New("order: payment gateway error")
)

// orderStateTransitions encodes the lifecycle graph. ready fans out by
// delivery mode; completed and cancelled are terminal.
var orderStateTransitions = map[domain.OrderStatus][]domain.OrderStatus{
	domain.OrderStatusPending:        {domain.OrderStatusConfirmed, domain.OrderStatusCancelled},
	domain.OrderStatusConfirmed:      {domain.OrderStatusPreparing, domain.OrderStatusCancelled},
	domain.OrderStatusPreparing:      {domain.OrderStatusReady},
	domain.OrderStatusReady:          {domain.OrderStatusOutForDelivery, domain.OrderStatusDelivered},
	domain.OrderStatusOutForDelivery: {domain.OrderStatusDelivered},
	domain.OrderStatusDelivered:      {domain.OrderStatusCompleted},
	domain.OrderStatusCompleted:      {},
	domain.OrderStatusCancelled:      {},
}

// OrderEventPublisher emits lifecycle events for downstream consumers.
// Publishing is best-effort: failures are logged, never surfaced to callers.
type OrderEventPublisher interface {
	Publish(ctx context.Context, event string, payload map[string]any) error
}

// orderPaymentGateway abstracts payments.Manager for easier testing.
type orderPaymentGateway interface {
	CreateIntent(ctx context.Context, paymentCtx payments.PaymentContext, req payments.IntentRequest) (payments.Intent, error)
	Refund(ctx context.Context, paymentCtx payments.PaymentContext, req payments.RefundRequest) (payments.Intent, error)
}

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders      repositories.OrderRepository
	Locations   repositories.LocationRepository
	Inventory   InventoryService
	Pricing     PricingService
	Counters    CounterService
	UnitOfWork  repositories.UnitOfWork
	Payments    orderPaymentGateway
	Clock       func() time.Time
	IDGenerator func() string
	Events      OrderEventPublisher
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders    repositories.OrderRepository
	locations repositories.LocationRepository
	inventory InventoryService
	pricing   PricingService
	counters  CounterService
	uow       repositories.UnitOfWork
	payments  orderPaymentGateway
	clock     func() time.Time
	idgen     func() string
	events    OrderEventPublisher
	logger    func(context.Context, string, map[string]any)
}

type noopUnitOfWork struct{}

func (noopUnitOfWork) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Inventory == nil {
		return nil, errors.New("order service: inventory service is required")
	}
	if deps.Pricing == nil {
		return nil, errors.New("order service: pricing service is required")
	}
	if deps.Counters == nil {
		return nil, errors.New("order service: counter service is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idgen := deps.IDGenerator
	if idgen == nil {
		idgen = func() string { return orderIDPrefix + ulid.Make().String() }
	}
	uow := deps.UnitOfWork
	if uow == nil {
		uow = noopUnitOfWork{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &orderService{
		orders:    deps.Orders,
		locations: deps.Locations,
		inventory: deps.Inventory,
		pricing:   deps.Pricing,
		counters:  deps.Counters,
		uow:       uow,
		payments:  deps.Payments,
		clock: func() time.Time {
			return clock().UTC()
		},
		idgen:  idgen,
		events: deps.Events,
		logger: logger,
	}, nil
}

// Create validates the cart, prices it, applies stock, and persists a pending
// order under a fresh per-day order number. Stock is compensated if the order
// ultimately cannot be inserted.
func (s *orderService) Create(ctx context.Context, cmd CreateOrderCommand) (Order, error) {
	if err := s.validateCreate(ctx, cmd); err != nil {
		return Order{}, err
	}

	quote, err := s.pricing.Quote(ctx, PricingQuoteCommand{
		Items:        cmd.Items,
		Mode:         cmd.Delivery.Mode,
		Address:      cmd.Delivery.Address,
		DiscountCode: cmd.DiscountCode,
	})
	if err != nil {
		return Order{}, err
	}

	orderID := s.idgen()
	now := s.clock()

	if _, err := s.inventory.ApplyOrderStocks(ctx, StockApplyCommand{
		OrderID: orderID,
		Lines:   stockLinesFromInputs(cmd.Items),
	}); err != nil {
		return Order{}, err
	}

	order := s.assembleOrder(orderID, cmd, quote, now)

	insertErr := error(nil)
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		number, err := s.counters.NextOrderNumber(ctx)
		if err != nil {
			insertErr = err
			break
		}
		order.OrderNumber = number

		err = s.orders.Insert(ctx, order)
		if err == nil {
			insertErr = nil
			break
		}
		insertErr = err
		if !isRepositoryConflict(err) {
			break
		}
		s.logger(ctx, "order.number.retry", map[string]any{
			"orderId":     orderID,
			"orderNumber": number,
			"attempt":     attempt + 1,
		})
	}
	if insertErr != nil {
		if _, restoreErr := s.inventory.RestoreOrderStocks(ctx, orderID); restoreErr != nil {
			s.logger(ctx, "order.create.restore_failed", map[string]any{
				"orderId": orderID,
				"error":   restoreErr.Error(),
			})
		}
		if isRepositoryConflict(insertErr) {
			return Order{}, fmt.Errorf("%w: after %d attempts", ErrOrderNumberConflict, orderNumberAttempts)
		}
		return Order{}, s.mapRepositoryError(insertErr)
	}

	s.publishEvent(ctx, eventOrderCreated, map[string]any{
		"orderId":     order.ID,
		"orderNumber": order.OrderNumber,
		"userId":      order.UserID,
		"total":       order.Pricing.Total,
	})
	return order, nil
}

func (s *orderService) Get(ctx context.Context, orderID string) (Order, error) {
	if strings.TrimSpace(orderID) == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	return order, nil
}

func (s *orderService) GetByNumber(ctx context.Context, orderNumber string) (Order, error) {
	if strings.TrimSpace(orderNumber) == "" {
		return Order{}, fmt.Errorf("%w: order number is required", ErrOrderInvalidInput)
	}
	order, err := s.orders.FindByNumber(ctx, orderNumber)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	return order, nil
}

func (s *orderService) List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[Order], error) {
	page, err := s.orders.List(ctx, filter)
	if err != nil {
		return domain.CursorPage[Order]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

func (s *orderService) Stats(ctx context.Context, filter OrderStatsFilter) ([]OrderStatusCount, error) {
	counts, err := s.orders.CountByStatus(ctx, filter)
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return counts, nil
}

// UpdateStatus moves the order along the lifecycle graph. Cancellation,
// completion, and payment transitions go through their dedicated operations.
func (s *orderService) UpdateStatus(ctx context.Context, cmd UpdateOrderStatusCommand) (Order, error) {
	switch cmd.Target {
	case domain.OrderStatusCancelled:
		return Order{}, fmt.Errorf("%w: use cancel to cancel an order", ErrOrderInvalidInput)
	case domain.OrderStatusCompleted:
		return Order{}, fmt.Errorf("%w: orders complete through rating", ErrOrderInvalidInput)
	}

	order, err := s.Get(ctx, cmd.OrderID)
	if err != nil {
		return Order{}, err
	}
	if err := canTransition(order, cmd.Target); err != nil {
		return Order{}, err
	}

	from := order.Status
	s.applyStatusTransition(&order, cmd.Target, cmd.Note, cmd.ActorID)
	if err := s.orders.Update(ctx, order); err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	s.publishEvent(ctx, eventOrderStatus, map[string]any{
		"orderId": order.ID,
		"from":    string(from),
		"to":      string(order.Status),
	})
	return order, nil
}

// Cancel cancels a pending or confirmed order and returns its stock to the
// shelf. Both legs are idempotent, so a retry after a partial failure
// converges.
func (s *orderService) Cancel(ctx context.Context, cmd CancelOrderCommand) (Order, error) {
	if utf8.RuneCountInString(cmd.Reason) > cancelReasonLimit {
		return Order{}, fmt.Errorf("%w: cancel reason exceeds %d characters", ErrOrderInvalidInput, cancelReasonLimit)
	}

	order, err := s.Get(ctx, cmd.OrderID)
	if err != nil {
		return Order{}, err
	}
	if order.Status == domain.OrderStatusCancelled {
		// A cancel that failed between the status write and the restore
		// converges here: re-drive the restore, a no-op once applied.
		if _, err := s.inventory.RestoreOrderStocks(ctx, order.ID); err != nil {
			return Order{}, err
		}
		return order, nil
	}
	if err := canTransition(order, domain.OrderStatusCancelled); err != nil {
		return Order{}, fmt.Errorf("%w: cannot cancel order in status %s", ErrOrderNotCancellable, order.Status)
	}

	now := s.clock()
	order.CancelReason = strings.TrimSpace(cmd.Reason)
	order.CancelledAt = &now
	order.CancelledBy = cmd.ActorID
	s.applyStatusTransition(&order, domain.OrderStatusCancelled, order.CancelReason, cmd.ActorID)

	// The status write goes first: if the restore leg then fails, the order is
	// already cancelled and the retry path above re-drives the restore. The
	// reverse ordering could strand restored stock on a still-active order.
	txErr := s.uow.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.orders.Update(ctx, order); err != nil {
			return s.mapRepositoryError(err)
		}
		if _, err := s.inventory.RestoreOrderStocks(ctx, order.ID); err != nil {
			return err
		}
		return nil
	})
	if txErr != nil {
		return Order{}, txErr
	}

	s.publishEvent(ctx, eventOrderCancelled, map[string]any{
		"orderId": order.ID,
		"reason":  order.CancelReason,
	})
	return order, nil
}

// Rate records the one-time customer rating and completes the order.
func (s *orderService) Rate(ctx context.Context, cmd RateOrderCommand) (Order, error) {
	if cmd.Overall < ratingMin || cmd.Overall > ratingMax {
		return Order{}, fmt.Errorf("%w: overall rating must be between %d and %d", ErrOrderInvalidInput, ratingMin, ratingMax)
	}
	for _, optional := range []*int{cmd.Food, cmd.Delivery} {
		if optional != nil && (*optional < ratingMin || *optional > ratingMax) {
			return Order{}, fmt.Errorf("%w: ratings must be between %d and %d", ErrOrderInvalidInput, ratingMin, ratingMax)
		}
	}
	if utf8.RuneCountInString(cmd.Comment) > ratingCommentLimit {
		return Order{}, fmt.Errorf("%w: comment exceeds %d characters", ErrOrderInvalidInput, ratingCommentLimit)
	}

	order, err := s.Get(ctx, cmd.OrderID)
	if err != nil {
		return Order{}, err
	}
	if order.Rating != nil {
		return Order{}, ErrOrderAlreadyRated
	}
	if order.Status != domain.OrderStatusDelivered {
		return Order{}, fmt.Errorf("%w: only delivered orders can be rated", ErrOrderNotDeliverable)
	}

	order.Rating = &domain.Rating{
		Overall:  cmd.Overall,
		Food:     cmd.Food,
		Delivery: cmd.Delivery,
		Comment:  strings.TrimSpace(cmd.Comment),
		RatedAt:  s.clock(),
	}
	s.applyStatusTransition(&order, domain.OrderStatusCompleted, "order rated", cmd.ActorID)

	if err := s.orders.Update(ctx, order); err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	s.publishEvent(ctx, eventOrderStatus, map[string]any{
		"orderId": order.ID,
		"from":    string(domain.OrderStatusDelivered),
		"to":      string(domain.OrderStatusCompleted),
	})
	return order, nil
}

// Reorder builds a new cart from a past order, dropping items that are no
// longer sold, and creates a fresh pending order from it.
func (s *orderService) Reorder(ctx context.Context, cmd ReorderCommand) (ReorderResult, error) {
	source, err := s.Get(ctx, cmd.OrderID)
	if err != nil {
		return ReorderResult{}, err
	}

	productIDs := make([]string, 0, len(source.Items))
	for _, item := range source.Items {
		productIDs = append(productIDs, item.ProductID)
	}
	products, err := s.inventory.GetProducts(ctx, productIDs)
	if err != nil {
		return ReorderResult{}, err
	}

	items := make([]CartItemInput, 0, len(source.Items))
	dropped := make([]string, 0)
	for _, item := range source.Items {
		product, ok := products[item.ProductID]
		if !ok || !product.Active {
			dropped = append(dropped, item.Name)
			continue
		}
		items = append(items, CartItemInput{
			ProductID:    item.ProductID,
			Quantity:     item.Quantity,
			Instructions: item.Instructions,
		})
	}
	if len(items) == 0 {
		return ReorderResult{}, ErrNoItemsAvailable
	}

	order, err := s.Create(ctx, CreateOrderCommand{
		UserID:   source.UserID,
		Items:    items,
		Customer: source.Customer,
		Delivery: DeliveryInput{
			Mode:       source.Delivery.Mode,
			Address:    cloneAddress(source.Delivery.Address),
			LocationID: source.Delivery.LocationID,
		},
		PaymentMethod: source.Payment.Method,
		CustomerNote:  source.Notes.Customer,
		ActorID:       cmd.ActorID,
		Metadata:      map[string]string{"reorderedFrom": source.ID},
	})
	if err != nil {
		return ReorderResult{}, err
	}
	return ReorderResult{Order: order, DroppedItems: dropped}, nil
}

// Refund refunds a completed payment, force-cancels the order regardless of
// its fulfilment progress, and returns any remaining stock hold.
func (s *orderService) Refund(ctx context.Context, cmd RefundOrderCommand) (Order, error) {
	order, err := s.Get(ctx, cmd.OrderID)
	if err != nil {
		return Order{}, err
	}
	if order.Payment.Status == domain.PaymentStatusRefunded {
		return Order{}, ErrOrderAlreadyRefunded
	}
	if order.Payment.Status != domain.PaymentStatusCompleted {
		return Order{}, fmt.Errorf("%w: payment is %s, only completed payments can be refunded", ErrOrderInvalidState, order.Payment.Status)
	}

	amount := order.Pricing.Total
	if cmd.Amount != nil {
		amount = *cmd.Amount
	}
	if amount <= 0 || amount > order.Pricing.Total {
		return Order{}, fmt.Errorf("%w: refund amount must be between 1 and the order total", ErrOrderInvalidInput)
	}

	// The gateway leg goes first: if the PSP rejects the refund, nothing local
	// has been touched yet.
	if s.payments != nil && order.Payment.TransactionID != "" && order.Payment.Method != domain.PaymentMethodCash {
		refundAmount := amount
		if _, err := s.payments.Refund(ctx, payments.PaymentContext{Currency: defaultPaymentCurrency}, payments.RefundRequest{
			IntentID:       order.Payment.TransactionID,
			Amount:         &refundAmount,
			Reason:         strings.TrimSpace(cmd.Reason),
			IdempotencyKey: order.ID + ":refund",
			Metadata:       map[string]string{payments.MetadataOrderIDKey: order.ID},
		}); err != nil {
			s.logger(ctx, "order.refund.gateway_failed", map[string]any{
				"orderId": order.ID,
				"error":   err.Error(),
			})
			return Order{}, fmt.Errorf("%w: %v", ErrOrderPaymentFailed, err)
		}
	}

	if _, err := s.inventory.RestoreOrderStocks(ctx, order.ID); err != nil {
		return Order{}, err
	}

	now := s.clock()
	order.Payment.Status = domain.PaymentStatusRefunded
	order.Payment.RefundedAt = &now
	order.Payment.RefundAmount = amount

	if order.Status != domain.OrderStatusCancelled {
		note := "refunded"
		if reason := strings.TrimSpace(cmd.Reason); reason != "" {
			note = "refunded: " + reason
		}
		order.CancelReason = note
		order.CancelledAt = &now
		order.CancelledBy = cmd.ActorID
		// Refund overrides the lifecycle graph: a refunded order ends up
		// cancelled even when it was already delivered.
		s.applyStatusTransition(&order, domain.OrderStatusCancelled, note, cmd.ActorID)
	}

	if err := s.orders.Update(ctx, order); err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	s.publishEvent(ctx, eventOrderRefunded, map[string]any{
		"orderId": order.ID,
		"amount":  amount,
	})
	return order, nil
}

// SetNotes updates the staff-facing note fields without touching the lifecycle.
func (s *orderService) SetNotes(ctx context.Context, cmd SetOrderNotesCommand) (Order, error) {
	if cmd.Kitchen == nil && cmd.Driver == nil {
		return Order{}, fmt.Errorf("%w: at least one note must be provided", ErrOrderInvalidInput)
	}

	order, err := s.Get(ctx, cmd.OrderID)
	if err != nil {
		return Order{}, err
	}
	if cmd.Kitchen != nil {
		order.Notes.Kitchen = strings.TrimSpace(*cmd.Kitchen)
	}
	if cmd.Driver != nil {
		order.Notes.Driver = strings.TrimSpace(*cmd.Driver)
	}
	order.UpdatedAt = s.clock()

	if err := s.orders.Update(ctx, order); err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	return order, nil
}

// CreatePaymentIntent opens a gateway payment intent covering the order total.
// Only pending orders paying through the card gateway qualify; retrying after
// a failed charge issues a fresh intent and overwrites the transaction ref.
func (s *orderService) CreatePaymentIntent(ctx context.Context, cmd CreatePaymentIntentCommand) (PaymentIntentResult, error) {
	if s.payments == nil {
		return PaymentIntentResult{}, fmt.Errorf("%w: gateway not configured", ErrOrderPaymentFailed)
	}

	order, err := s.Get(ctx, cmd.OrderID)
	if err != nil {
		return PaymentIntentResult{}, err
	}
	if order.Status != domain.OrderStatusPending {
		return PaymentIntentResult{}, fmt.Errorf("%w: only pending orders can open a payment intent", ErrOrderInvalidState)
	}
	switch order.Payment.Method {
	case domain.PaymentMethodCard, domain.PaymentMethodApplePay, domain.PaymentMethodGooglePay:
	default:
		return PaymentIntentResult{}, fmt.Errorf("%w: payment method %s is not charged through the card gateway", ErrOrderInvalidInput, order.Payment.Method)
	}
	if order.Payment.Status == domain.PaymentStatusCompleted {
		return PaymentIntentResult{}, fmt.Errorf("%w: payment already completed", ErrOrderInvalidState)
	}

	intent, err := s.payments.CreateIntent(ctx, payments.PaymentContext{Currency: defaultPaymentCurrency}, payments.IntentRequest{
		Amount:         order.Pricing.Total,
		Currency:       defaultPaymentCurrency,
		CustomerEmail:  order.Customer.Email,
		Description:    "Order " + order.OrderNumber,
		IdempotencyKey: order.ID,
		Metadata: map[string]string{
			payments.MetadataOrderIDKey: order.ID,
			"orderNumber":               order.OrderNumber,
		},
	})
	if err != nil {
		s.logger(ctx, "order.payment.intent_failed", map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
		return PaymentIntentResult{}, fmt.Errorf("%w: %v", ErrOrderPaymentFailed, err)
	}

	order.Payment.Status = domain.PaymentStatusProcessing
	order.Payment.TransactionID = intent.ID
	order.UpdatedAt = s.clock()

	if err := s.orders.Update(ctx, order); err != nil {
		return PaymentIntentResult{}, s.mapRepositoryError(err)
	}

	s.logger(ctx, "order.payment.intent_created", map[string]any{
		"orderId":       order.ID,
		"paymentIntent": intent.ID,
		"amount":        intent.Amount,
	})

	return PaymentIntentResult{
		Order:        order,
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		Amount:       intent.Amount,
		Currency:     intent.Currency,
	}, nil
}

// HandlePaymentConfirmed confirms a pending order after the gateway reports a
// successful charge. Replays for orders already past pending return the order
// unchanged.
func (s *orderService) HandlePaymentConfirmed(ctx context.Context, cmd PaymentConfirmedCommand) (Order, error) {
	order, err := s.Get(ctx, cmd.OrderID)
	if err != nil {
		return Order{}, err
	}
	if order.Status != domain.OrderStatusPending {
		s.logger(ctx, "order.payment.confirmed.replay", map[string]any{
			"orderId": order.ID,
			"status":  string(order.Status),
		})
		return order, nil
	}

	order.Payment.TransactionID = cmd.TransactionID
	s.applyStatusTransition(&order, domain.OrderStatusConfirmed, "payment confirmed", "payment-gateway")

	if err := s.orders.Update(ctx, order); err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	s.publishEvent(ctx, eventOrderStatus, map[string]any{
		"orderId": order.ID,
		"from":    string(domain.OrderStatusPending),
		"to":      string(domain.OrderStatusConfirmed),
	})
	return order, nil
}

// HandlePaymentFailed marks the payment leg failed. The order itself stays
// pending so the customer can retry with another method.
func (s *orderService) HandlePaymentFailed(ctx context.Context, cmd PaymentFailedCommand) (Order, error) {
	order, err := s.Get(ctx, cmd.OrderID)
	if err != nil {
		return Order{}, err
	}
	if order.Status != domain.OrderStatusPending || order.Payment.Status == domain.PaymentStatusFailed {
		return order, nil
	}

	order.Payment.Status = domain.PaymentStatusFailed
	order.UpdatedAt = s.clock()

	if err := s.orders.Update(ctx, order); err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	s.publishEvent(ctx, eventPaymentFailed, map[string]any{
		"orderId": order.ID,
		"reason":  cmd.Reason,
	})
	return order, nil
}

// --- internals --------------------------------------------------------------

func (s *orderService) validateCreate(ctx context.Context, cmd CreateOrderCommand) error {
	if strings.TrimSpace(cmd.UserID) == "" {
		return fmt.Errorf("%w: user id is required", ErrOrderInvalidInput)
	}
	if len(cmd.Items) == 0 {
		return fmt.Errorf("%w: at least one item is required", ErrOrderInvalidInput)
	}
	for _, item := range cmd.Items {
		if utf8.RuneCountInString(item.Instructions) > instructionsLimit {
			return fmt.Errorf("%w: instructions exceed %d characters", ErrOrderInvalidInput, instructionsLimit)
		}
	}
	if utf8.RuneCountInString(cmd.CustomerNote) > customerNoteLimit {
		return fmt.Errorf("%w: customer note exceeds %d characters", ErrOrderInvalidInput, customerNoteLimit)
	}
	if strings.TrimSpace(cmd.Customer.FirstName) == "" {
		return fmt.Errorf("%w: customer first name is required", ErrOrderInvalidInput)
	}
	if !strings.Contains(cmd.Customer.Email, "@") {
		return fmt.Errorf("%w: customer email is invalid", ErrOrderInvalidInput)
	}
	switch cmd.PaymentMethod {
	case domain.PaymentMethodCard, domain.PaymentMethodPayPal, domain.PaymentMethodCash,
		domain.PaymentMethodApplePay, domain.PaymentMethodGooglePay:
	default:
		return fmt.Errorf("%w: unknown payment method %q", ErrOrderInvalidInput, cmd.PaymentMethod)
	}

	switch cmd.Delivery.Mode {
	case domain.DeliveryModeDelivery:
		addr := cmd.Delivery.Address
		if addr == nil || strings.TrimSpace(addr.Line1) == "" || strings.TrimSpace(addr.City) == "" || strings.TrimSpace(addr.PostalCode) == "" {
			return fmt.Errorf("%w: delivery orders require a street address", ErrOrderInvalidInput)
		}
	case domain.DeliveryModePickup:
		if strings.TrimSpace(cmd.Delivery.LocationID) == "" {
			return fmt.Errorf("%w: pickup orders require a location", ErrOrderInvalidInput)
		}
		if s.locations != nil {
			location, err := s.locations.FindByID(ctx, cmd.Delivery.LocationID)
			if err != nil {
				if isRepositoryNotFound(err) {
					return fmt.Errorf("%w: pickup location %s does not exist", ErrOrderInvalidInput, cmd.Delivery.LocationID)
				}
				return err
			}
			if !location.Active {
				return fmt.Errorf("%w: pickup location %s is closed", ErrOrderInvalidInput, cmd.Delivery.LocationID)
			}
		}
	default:
		return fmt.Errorf("%w: unknown delivery mode %q", ErrOrderInvalidInput, cmd.Delivery.Mode)
	}
	return nil
}

func (s *orderService) assembleOrder(orderID string, cmd CreateOrderCommand, quote PricingQuote, now time.Time) Order {
	items := make([]domain.OrderItem, 0, len(quote.Lines))
	for i, line := range quote.Lines {
		instructions := ""
		if i < len(cmd.Items) {
			instructions = strings.TrimSpace(cmd.Items[i].Instructions)
		}
		items = append(items, domain.OrderItem{
			ProductID:    line.ProductID,
			Name:         line.Name,
			UnitPrice:    line.UnitPrice,
			Quantity:     line.Quantity,
			Instructions: instructions,
		})
	}

	delivery := domain.DeliveryInfo{
		Mode:             cmd.Delivery.Mode,
		Address:          cloneAddress(cmd.Delivery.Address),
		LocationID:       strings.TrimSpace(cmd.Delivery.LocationID),
		EstimatedMinutes: quote.EstimatedMinutes,
	}

	actor := cmd.ActorID
	if actor == "" {
		actor = cmd.UserID
	}

	return Order{
		ID:       orderID,
		UserID:   cmd.UserID,
		Items:    items,
		Pricing:  quote.Pricing,
		Customer: cmd.Customer,
		Delivery: delivery,
		Payment: domain.Payment{
			Method: cmd.PaymentMethod,
			Status: domain.PaymentStatusPending,
		},
		Status: domain.OrderStatusPending,
		StatusHistory: []domain.StatusChange{{
			Status: domain.OrderStatusPending,
			At:     now,
			Note:   "order created",
			Actor:  actor,
		}},
		Notes:     domain.OrderNotes{Customer: strings.TrimSpace(cmd.CustomerNote)},
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  maps.Clone(cmd.Metadata),
	}
}

// canTransition checks the lifecycle graph plus the delivery-mode guard on the
// ready fan-out.
func canTransition(order domain.Order, target domain.OrderStatus) error {
	allowed := false
	for _, candidate := range orderStateTransitions[order.Status] {
		if candidate == target {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: %s -> %s is not a valid transition", ErrOrderInvalidState, order.Status, target)
	}
	if order.Status == domain.OrderStatusReady {
		switch target {
		case domain.OrderStatusOutForDelivery:
			if order.Delivery.Mode != domain.DeliveryModeDelivery {
				return fmt.Errorf("%w: pickup orders are handed over as delivered", ErrOrderNotDeliverable)
			}
		case domain.OrderStatusDelivered:
			if order.Delivery.Mode != domain.DeliveryModePickup {
				return fmt.Errorf("%w: courier orders go out for delivery first", ErrOrderNotDeliverable)
			}
		}
	}
	return nil
}

// applyStatusTransition mutates the order for the target status, stamping the
// per-status side effects and appending exactly one history entry.
func (s *orderService) applyStatusTransition(order *domain.Order, target domain.OrderStatus, note, actor string) {
	now := s.clock()
	order.Status = target
	order.UpdatedAt = now

	switch target {
	case domain.OrderStatusConfirmed:
		order.Payment.Status = domain.PaymentStatusCompleted
		order.Payment.PaidAt = &now
	case domain.OrderStatusOutForDelivery:
		order.Tracking.PickupTime = &now
	case domain.OrderStatusDelivered:
		order.Tracking.ActualDeliveryTime = &now
		minutes := int(now.Sub(order.CreatedAt).Minutes())
		order.Delivery.ActualMinutes = &minutes
	}

	order.StatusHistory = append(order.StatusHistory, domain.StatusChange{
		Status: target,
		At:     now,
		Note:   note,
		Actor:  actor,
	})
}

func (s *orderService) publishEvent(ctx context.Context, event string, payload map[string]any) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event, payload); err != nil {
		s.logger(ctx, "order.event.publish_failed", map[string]any{
			"event": event,
			"error": err.Error(),
		})
	}
}

func (s *orderService) mapRepositoryError(err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %s", ErrOrderNotFound, repoErr.Error())
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %s", ErrOrderConflict, repoErr.Error())
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %s", ErrOrderUnavailable, repoErr.Error())
		}
	}
	return err
}

func isRepositoryConflict(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsConflict()
}

func isRepositoryNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

func stockLinesFromInputs(items []CartItemInput) []domain.StockLine {
	byProduct := make(map[string]int, len(items))
	ordered := make([]string, 0, len(items))
	for _, item := range items {
		id := strings.TrimSpace(item.ProductID)
		if _, seen := byProduct[id]; !seen {
			ordered = append(ordered, id)
		}
		byProduct[id] += item.Quantity
	}
	lines := make([]domain.StockLine, 0, len(ordered))
	for _, id := range ordered {
		lines = append(lines, domain.StockLine{ProductID: id, Quantity: byProduct[id]})
	}
	return lines
}

func cloneAddress(addr *domain.Address) *domain.Address {
	if addr == nil {
		return nil
	}
	clone := *addr
	return &clone
}

package services

import (
	"context"
	"time"

	domain "github.com/burger-alley/api/internal/domain"
	"github.com/burger-alley/api/internal/repositories"
)

// Domain aliases re-exported so handlers can depend on the service package alone.
type (
	Order            = domain.Order
	OrderItem        = domain.OrderItem
	OrderStatus      = domain.OrderStatus
	Pricing          = domain.Pricing
	PricingQuote     = domain.PricingQuote
	CustomerInfo     = domain.CustomerInfo
	DeliveryInfo     = domain.DeliveryInfo
	Address          = domain.Address
	Rating           = domain.Rating
	StatusChange     = domain.StatusChange
	Product          = domain.Product
	Promotion        = domain.Promotion
	Discount         = domain.Discount
	StockMovement    = domain.StockMovement
	OrderStatusCount = domain.OrderStatusCount

	SystemHealthReport = domain.SystemHealthReport

	OrderListFilter  = repositories.OrderListFilter
	OrderStatsFilter = repositories.OrderStatsFilter
)

// OrderService is the public surface of the order core: creation, lifecycle
// transitions, compensation, rating, and reorder.
type OrderService interface {
	Create(ctx context.Context, cmd CreateOrderCommand) (Order, error)
	Get(ctx context.Context, orderID string) (Order, error)
	GetByNumber(ctx context.Context, orderNumber string) (Order, error)
	List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[Order], error)
	UpdateStatus(ctx context.Context, cmd UpdateOrderStatusCommand) (Order, error)
	Cancel(ctx context.Context, cmd CancelOrderCommand) (Order, error)
	Rate(ctx context.Context, cmd RateOrderCommand) (Order, error)
	Reorder(ctx context.Context, cmd ReorderCommand) (ReorderResult, error)
	Refund(ctx context.Context, cmd RefundOrderCommand) (Order, error)
	SetNotes(ctx context.Context, cmd SetOrderNotesCommand) (Order, error)
	Stats(ctx context.Context, filter OrderStatsFilter) ([]OrderStatusCount, error)
	CreatePaymentIntent(ctx context.Context, cmd CreatePaymentIntentCommand) (PaymentIntentResult, error)

	// Payment gateway callbacks. Both are idempotent: replaying an event for
	// an order that already absorbed it returns the order unchanged.
	HandlePaymentConfirmed(ctx context.Context, cmd PaymentConfirmedCommand) (Order, error)
	HandlePaymentFailed(ctx context.Context, cmd PaymentFailedCommand) (Order, error)
}

// PricingService validates a cart against the live catalog and computes the
// order pricing breakdown plus the preparation estimate.
type PricingService interface {
	Quote(ctx context.Context, cmd PricingQuoteCommand) (PricingQuote, error)
}

// InventoryService applies and compensates per-order stock adjustments.
type InventoryService interface {
	ApplyOrderStocks(ctx context.Context, cmd StockApplyCommand) (StockMovement, error)
	// RestoreOrderStocks is idempotent; restoring an order without an applied
	// movement is a no-op.
	RestoreOrderStocks(ctx context.Context, orderID string) (StockMovement, error)
	GetProducts(ctx context.Context, productIDs []string) (map[string]Product, error)
}

// DiscountResolver turns a promo code into a concrete deduction for a given
// subtotal. Implementations return ErrPromotionInvalid for unknown, inactive,
// or inapplicable codes.
type DiscountResolver interface {
	Resolve(ctx context.Context, code string, subtotal int64) (Discount, error)
}

// DeliveryFeeStrategy prices the delivery leg. The flat strategy covers the
// current storefront; zone-based fees can plug in without touching the
// pricing service.
type DeliveryFeeStrategy interface {
	Fee(ctx context.Context, mode domain.DeliveryMode, address *Address) (int64, error)
}

// CounterService issues order numbers and generic formatted sequences.
type CounterService interface {
	Next(ctx context.Context, scope, name string, opts CounterGenerationOptions) (CounterValue, error)
	NextOrderNumber(ctx context.Context) (string, error)
}

// SystemService reports aggregate service health for readiness probes.
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
}

// Command DTOs --------------------------------------------------------------

// CartItemInput is one requested line before validation and snapshotting.
type CartItemInput struct {
	ProductID    string
	Quantity     int
	Instructions string
}

// DeliveryInput selects the fulfilment variant for a new order.
type DeliveryInput struct {
	Mode       domain.DeliveryMode
	Address    *Address
	LocationID string
}

type CreateOrderCommand struct {
	UserID        string
	Items         []CartItemInput
	Customer      CustomerInfo
	Delivery      DeliveryInput
	PaymentMethod domain.PaymentMethod
	DiscountCode  string
	CustomerNote  string
	ActorID       string
	Metadata      map[string]string
}

type UpdateOrderStatusCommand struct {
	OrderID string
	Target  domain.OrderStatus
	Note    string
	ActorID string
}

type CancelOrderCommand struct {
	OrderID string
	Reason  string
	ActorID string
}

type RateOrderCommand struct {
	OrderID  string
	Overall  int
	Food     *int
	Delivery *int
	Comment  string
	ActorID  string
}

type ReorderCommand struct {
	OrderID string
	ActorID string
}

// ReorderResult reports the created order and the names of original items
// that were dropped because they are no longer available.
type ReorderResult struct {
	Order        Order
	DroppedItems []string
}

type RefundOrderCommand struct {
	OrderID string
	// Amount in cents; nil refunds the full order total.
	Amount  *int64
	Reason  string
	ActorID string
}

type SetOrderNotesCommand struct {
	OrderID string
	Kitchen *string
	Driver  *string
	ActorID string
}

type CreatePaymentIntentCommand struct {
	OrderID string
	ActorID string
}

// PaymentIntentResult carries the gateway handle the client needs to collect
// the card payment, plus the updated order.
type PaymentIntentResult struct {
	Order        Order
	IntentID     string
	ClientSecret string
	Amount       int64
	Currency     string
}

type PaymentConfirmedCommand struct {
	OrderID       string
	TransactionID string
}

type PaymentFailedCommand struct {
	OrderID string
	Reason  string
}

type PricingQuoteCommand struct {
	Items        []CartItemInput
	Mode         domain.DeliveryMode
	Address      *Address
	DiscountCode string
}

type StockApplyCommand struct {
	OrderID string
	Lines   []domain.StockLine
}

// CounterGenerationOptions controls how counter values are incremented and formatted.
type CounterGenerationOptions struct {
	Step         int64
	MaxValue     *int64
	InitialValue *int64
	Prefix       string
	Suffix       string
	PadLength    int
	Formatter    func(now time.Time, value int64) string
}

// CounterValue is the raw and formatted result of a counter increment.
type CounterValue struct {
	Value     int64
	Formatted string
}

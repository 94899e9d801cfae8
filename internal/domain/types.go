package domain

import "time"

// OrderStatus enumerates the lifecycle states an order can be in.
type OrderStatus string

const (
	// OrderStatusPending marks an order that has been created but not yet confirmed.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusConfirmed marks an order whose payment has been acknowledged.
	OrderStatusConfirmed OrderStatus = "confirmed"
	// OrderStatusPreparing marks an order the kitchen is working on.
	OrderStatusPreparing OrderStatus = "preparing"
	// OrderStatusReady marks an order ready for handoff.
	OrderStatusReady OrderStatus = "ready"
	// OrderStatusOutForDelivery marks an order picked up by a driver.
	OrderStatusOutForDelivery OrderStatus = "out-for-delivery"
	// OrderStatusDelivered marks an order that reached the customer.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCompleted marks a delivered order the customer has rated.
	OrderStatusCompleted OrderStatus = "completed"
	// OrderStatusCancelled marks a terminally cancelled order.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// DeliveryMode distinguishes courier delivery from in-store pickup.
type DeliveryMode string

const (
	// DeliveryModeDelivery routes the order to a courier.
	DeliveryModeDelivery DeliveryMode = "delivery"
	// DeliveryModePickup keeps the order at a store location for collection.
	DeliveryModePickup DeliveryMode = "pickup"
)

// PaymentStatus tracks the payment leg of an order.
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusCompleted  PaymentStatus = "completed"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

// PaymentMethod enumerates the accepted tender types.
type PaymentMethod string

const (
	PaymentMethodCard      PaymentMethod = "card"
	PaymentMethodPayPal    PaymentMethod = "paypal"
	PaymentMethodCash      PaymentMethod = "cash"
	PaymentMethodApplePay  PaymentMethod = "apple-pay"
	PaymentMethodGooglePay PaymentMethod = "google-pay"
)

// Order is the aggregate root for a customer order. Item and customer data are
// snapshots taken at creation time and never re-read from the catalog.
type Order struct {
	ID            string
	OrderNumber   string
	UserID        string
	Items         []OrderItem
	Pricing       Pricing
	Customer      CustomerInfo
	Delivery      DeliveryInfo
	Payment       Payment
	Status        OrderStatus
	StatusHistory []StatusChange
	Tracking      Tracking
	Rating        *Rating
	Notes         OrderNotes
	CancelReason  string
	CancelledAt   *time.Time
	CancelledBy   string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Metadata      map[string]string
}

// OrderItem is one line of an order with a unit price snapshot in cents.
type OrderItem struct {
	ProductID    string
	Name         string
	UnitPrice    int64
	Quantity     int
	Instructions string
}

// CustomerInfo snapshots contact details so the order survives account edits.
type CustomerInfo struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// DeliveryInfo is a tagged variant: exactly one of Address (delivery) or
// LocationID (pickup) is set, selected by Mode.
type DeliveryInfo struct {
	Mode             DeliveryMode
	Address          *Address
	LocationID       string
	EstimatedMinutes int
	ActualMinutes    *int
}

// NewDeliveryInfo builds the courier variant of DeliveryInfo.
func NewDeliveryInfo(address Address) DeliveryInfo {
	return DeliveryInfo{Mode: DeliveryModeDelivery, Address: &address}
}

// NewPickupInfo builds the store-pickup variant of DeliveryInfo.
func NewPickupInfo(locationID string) DeliveryInfo {
	return DeliveryInfo{Mode: DeliveryModePickup, LocationID: locationID}
}

// Address is a postal delivery destination.
type Address struct {
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
}

// Payment records the payment leg attached to an order.
type Payment struct {
	Method        PaymentMethod
	Status        PaymentStatus
	TransactionID string
	PaidAt        *time.Time
	RefundedAt    *time.Time
	RefundAmount  int64
}

// StatusChange is one append-only history entry recorded per transition.
type StatusChange struct {
	Status OrderStatus
	At     time.Time
	Note   string
	Actor  string
}

// Tracking captures handoff timestamps along the fulfilment path.
type Tracking struct {
	PickupTime         *time.Time
	ActualDeliveryTime *time.Time
}

// Rating is set at most once, after delivery. Food and Delivery are optional.
type Rating struct {
	Overall  int
	Food     *int
	Delivery *int
	Comment  string
	RatedAt  time.Time
}

// OrderNotes carries free-text notes scoped by audience.
type OrderNotes struct {
	Customer string
	Kitchen  string
	Driver   string
}

// Product is the catalog view the order core reads; only its stock count is
// ever adjusted from here.
type Product struct {
	ID               string
	Name             string
	Price            int64
	Active           bool
	Stock            int
	Reserved         int
	MaxOrderQuantity int
}

// PickupLocation is a store branch orders can be collected from.
type PickupLocation struct {
	ID      string
	Name    string
	Active  bool
	Address Address
}

// StockMovementState tracks whether an order's stock adjustment is currently
// applied or has been compensated.
type StockMovementState string

const (
	StockMovementApplied  StockMovementState = "applied"
	StockMovementRestored StockMovementState = "restored"
)

// StockMovement records the per-order stock decrement so the matching restore
// runs exactly once.
type StockMovement struct {
	OrderID    string
	Lines      []StockLine
	State      StockMovementState
	AppliedAt  time.Time
	RestoredAt *time.Time
}

// StockLine is a single product quantity within a stock movement.
type StockLine struct {
	ProductID string
	Quantity  int
}

// OrderStatusCount aggregates order volume and revenue for one status.
type OrderStatusCount struct {
	Status  OrderStatus
	Count   int
	Revenue int64
}

// Pagination controls cursor-based list traversal.
type Pagination struct {
	Limit int
	Token string
}

// CursorPage carries one page of results plus the token for the next page.
type CursorPage[T any] struct {
	Items     []T
	NextToken string
}

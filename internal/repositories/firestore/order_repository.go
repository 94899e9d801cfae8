package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/burger-alley/api/internal/domain"
	pfirestore "github.com/burger-alley/api/internal/platform/firestore"
	"github.com/burger-alley/api/internal/platform/pagination"
	"github.com/burger-alley/api/internal/repositories"
)

const (
	ordersCollection       = "orders"
	orderNumbersCollection = "orderNumbers"

	defaultOrderPageSize = 20
	maxOrderPageSize     = 100
)

type orderDocument struct {
	OrderNumber   string                 `firestore:"orderNumber"`
	UserRef       string                 `firestore:"userRef"`
	Items         []orderItemDocument    `firestore:"items"`
	Pricing       orderPricingDocument   `firestore:"pricing"`
	Customer      customerInfoDocument   `firestore:"customerInfo"`
	Delivery      deliveryInfoDocument   `firestore:"deliveryInfo"`
	Payment       paymentDocument        `firestore:"payment"`
	Status        string                 `firestore:"status"`
	StatusHistory []statusChangeDocument `firestore:"statusHistory"`
	Tracking      trackingDocument       `firestore:"tracking"`
	Rating        *ratingDocument        `firestore:"rating,omitempty"`
	Notes         orderNotesDocument     `firestore:"notes"`
	CancelReason  string                 `firestore:"cancelReason,omitempty"`
	CancelledAt   *time.Time             `firestore:"cancelledAt,omitempty"`
	CancelledBy   string                 `firestore:"cancelledBy,omitempty"`
	CreatedAt     time.Time              `firestore:"createdAt"`
	UpdatedAt     time.Time              `firestore:"updatedAt"`
	Metadata      map[string]string      `firestore:"metadata,omitempty"`
}

type orderItemDocument struct {
	ProductRef   string `firestore:"productRef"`
	Name         string `firestore:"name"`
	UnitPrice    int64  `firestore:"unitPrice"`
	Quantity     int    `firestore:"qty"`
	Instructions string `firestore:"instructions,omitempty"`
}

type orderPricingDocument struct {
	Subtotal       int64  `firestore:"subtotal"`
	Tax            int64  `firestore:"tax"`
	DeliveryFee    int64  `firestore:"deliveryFee"`
	DiscountAmount int64  `firestore:"discountAmount"`
	DiscountCode   string `firestore:"discountCode,omitempty"`
	DiscountReason string `firestore:"discountReason,omitempty"`
	Total          int64  `firestore:"total"`
}

type customerInfoDocument struct {
	FirstName string `firestore:"firstName"`
	LastName  string `firestore:"lastName"`
	Email     string `firestore:"email"`
	Phone     string `firestore:"phone"`
}

type deliveryInfoDocument struct {
	Mode             string           `firestore:"mode"`
	Address          *addressDocument `firestore:"address,omitempty"`
	LocationRef      string           `firestore:"locationRef,omitempty"`
	EstimatedMinutes int              `firestore:"estimatedMinutes"`
	ActualMinutes    *int             `firestore:"actualMinutes,omitempty"`
}

type addressDocument struct {
	Line1      string `firestore:"line1"`
	Line2      string `firestore:"line2,omitempty"`
	City       string `firestore:"city"`
	State      string `firestore:"state,omitempty"`
	PostalCode string `firestore:"postalCode"`
}

type paymentDocument struct {
	Method        string     `firestore:"method"`
	Status        string     `firestore:"status"`
	TransactionID string     `firestore:"transactionId,omitempty"`
	PaidAt        *time.Time `firestore:"paidAt,omitempty"`
	RefundedAt    *time.Time `firestore:"refundedAt,omitempty"`
	RefundAmount  int64      `firestore:"refundAmount,omitempty"`
}

type statusChangeDocument struct {
	Status string    `firestore:"status"`
	At     time.Time `firestore:"at"`
	Note   string    `firestore:"note,omitempty"`
	Actor  string    `firestore:"actor,omitempty"`
}

type trackingDocument struct {
	PickupTime         *time.Time `firestore:"pickupTime,omitempty"`
	ActualDeliveryTime *time.Time `firestore:"actualDeliveryTime,omitempty"`
}

type ratingDocument struct {
	Overall  int       `firestore:"overall"`
	Food     *int      `firestore:"food,omitempty"`
	Delivery *int      `firestore:"delivery,omitempty"`
	Comment  string    `firestore:"comment,omitempty"`
	RatedAt  time.Time `firestore:"ratedAt"`
}

type orderNotesDocument struct {
	Customer string `firestore:"customer,omitempty"`
	Kitchen  string `firestore:"kitchen,omitempty"`
	Driver   string `firestore:"driver,omitempty"`
}

type orderNumberClaim struct {
	OrderRef  string    `firestore:"orderRef"`
	CreatedAt time.Time `firestore:"createdAt"`
}

// OrderRepository implements repositories.OrderRepository backed by Firestore.
// Order-number uniqueness is enforced with a claim document created in the
// same transaction as the order itself.
type OrderRepository struct {
	provider *pfirestore.Provider
	orders   *pfirestore.BaseRepository[orderDocument]
	numbers  *pfirestore.BaseRepository[orderNumberClaim]
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	orders := pfirestore.NewBaseRepository[orderDocument](provider, ordersCollection, nil, nil)
	numbers := pfirestore.NewBaseRepository[orderNumberClaim](provider, orderNumbersCollection, nil, nil)
	return &OrderRepository{provider: provider, orders: orders, numbers: numbers}, nil
}

// Insert persists a new order and claims its order number atomically.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if r == nil || r.provider == nil {
		return errors.New("order repository not initialised")
	}
	orderID := strings.TrimSpace(order.ID)
	if orderID == "" {
		return errors.New("order insert: order id is required")
	}
	orderNumber := strings.TrimSpace(order.OrderNumber)
	if orderNumber == "" {
		return errors.New("order insert: order number is required")
	}

	doc := newOrderDocument(order)
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		orderRef, err := r.orders.DocumentRef(ctx, orderID)
		if err != nil {
			return err
		}
		numberRef, err := r.numbers.DocumentRef(ctx, orderNumber)
		if err != nil {
			return err
		}
		claim := orderNumberClaim{OrderRef: orderID, CreatedAt: doc.CreatedAt}
		if err := tx.Create(numberRef, claim); err != nil {
			return err
		}
		return tx.Create(orderRef, doc)
	})
	if err != nil {
		return pfirestore.WrapError("orders.insert", err)
	}
	return nil
}

// Update overwrites the stored order document.
func (r *OrderRepository) Update(ctx context.Context, order domain.Order) error {
	if r == nil || r.provider == nil {
		return errors.New("order repository not initialised")
	}
	orderID := strings.TrimSpace(order.ID)
	if orderID == "" {
		return errors.New("order update: order id is required")
	}
	if _, err := r.orders.Set(ctx, orderID, newOrderDocument(order)); err != nil {
		return pfirestore.WrapError("orders.update", err)
	}
	return nil
}

// FindByID loads one order by its document ID.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.provider == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	id := strings.TrimSpace(orderID)
	if id == "" {
		return domain.Order{}, errors.New("order find: order id is required")
	}
	doc, err := r.orders.Get(ctx, id)
	if err != nil {
		return domain.Order{}, pfirestore.WrapError("orders.find", err)
	}
	return doc.Data.toDomain(id), nil
}

// FindByNumber loads one order by its human-readable order number.
func (r *OrderRepository) FindByNumber(ctx context.Context, orderNumber string) (domain.Order, error) {
	if r == nil || r.provider == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	number := strings.TrimSpace(orderNumber)
	if number == "" {
		return domain.Order{}, errors.New("order find: order number is required")
	}
	claim, err := r.numbers.Get(ctx, number)
	if err != nil {
		return domain.Order{}, pfirestore.WrapError("orders.findByNumber", err)
	}
	return r.FindByID(ctx, claim.Data.OrderRef)
}

// List returns a page of orders ordered by creation time, newest first.
func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if r == nil || r.provider == nil {
		return domain.CursorPage[domain.Order]{}, errors.New("order repository not initialised")
	}

	limit := filter.Pagination.Limit
	if limit <= 0 {
		limit = defaultOrderPageSize
	}
	if limit > maxOrderPageSize {
		limit = maxOrderPageSize
	}

	var token *orderPageToken
	if strings.TrimSpace(filter.Pagination.Token) != "" {
		decoded, err := decodeOrderPageToken(filter.Pagination.Token)
		if err != nil {
			return domain.CursorPage[domain.Order]{}, err
		}
		token = decoded
	}

	docs, err := r.orders.Query(ctx, func(query firestore.Query) firestore.Query {
		if userID := strings.TrimSpace(filter.UserID); userID != "" {
			query = query.Where("userRef", "==", userID)
		}
		if len(filter.Status) > 0 {
			statuses := make([]string, len(filter.Status))
			for i, s := range filter.Status {
				statuses[i] = string(s)
			}
			query = query.Where("status", "in", statuses)
		}
		if filter.From != nil {
			query = query.Where("createdAt", ">=", filter.From.UTC())
		}
		if filter.To != nil {
			query = query.Where("createdAt", "<", filter.To.UTC())
		}
		query = query.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if token != nil {
			query = query.StartAfter(token.CreatedAt, token.OrderID)
		}
		return query.Limit(limit + 1)
	})
	if err != nil {
		return domain.CursorPage[domain.Order]{}, pfirestore.WrapError("orders.list", err)
	}

	page := domain.CursorPage[domain.Order]{}
	for i, doc := range docs {
		if i == limit {
			last := docs[limit-1]
			next, err := encodeOrderPageToken(orderPageToken{OrderID: last.ID, CreatedAt: last.Data.CreatedAt})
			if err != nil {
				return domain.CursorPage[domain.Order]{}, err
			}
			page.NextToken = next
			break
		}
		page.Items = append(page.Items, doc.Data.toDomain(doc.ID))
	}
	return page, nil
}

// CountByStatus aggregates order counts and revenue per status in the window.
func (r *OrderRepository) CountByStatus(ctx context.Context, filter repositories.OrderStatsFilter) ([]domain.OrderStatusCount, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("order repository not initialised")
	}

	docs, err := r.orders.Query(ctx, func(query firestore.Query) firestore.Query {
		if filter.From != nil {
			query = query.Where("createdAt", ">=", filter.From.UTC())
		}
		if filter.To != nil {
			query = query.Where("createdAt", "<", filter.To.UTC())
		}
		return query
	})
	if err != nil {
		return nil, pfirestore.WrapError("orders.countByStatus", err)
	}

	byStatus := make(map[domain.OrderStatus]*domain.OrderStatusCount)
	order := make([]domain.OrderStatus, 0, 8)
	for _, doc := range docs {
		statusKey := domain.OrderStatus(doc.Data.Status)
		bucket, ok := byStatus[statusKey]
		if !ok {
			bucket = &domain.OrderStatusCount{Status: statusKey}
			byStatus[statusKey] = bucket
			order = append(order, statusKey)
		}
		bucket.Count++
		bucket.Revenue += doc.Data.Pricing.Total
	}

	result := make([]domain.OrderStatusCount, 0, len(order))
	for _, statusKey := range order {
		result = append(result, *byStatus[statusKey])
	}
	return result, nil
}

type orderPageToken struct {
	OrderID   string
	CreatedAt time.Time
}

func encodeOrderPageToken(token orderPageToken) (string, error) {
	return pagination.EncodeToken(pagination.Cursor{
		StartAfter: []any{token.CreatedAt.UTC().Format(time.RFC3339Nano), token.OrderID},
	})
}

func decodeOrderPageToken(encoded string) (*orderPageToken, error) {
	cursor, err := pagination.DecodeToken(encoded)
	if err != nil {
		return nil, err
	}
	if len(cursor.StartAfter) != 2 {
		return nil, fmt.Errorf("%w: malformed order cursor", pagination.ErrInvalidPageToken)
	}
	rawCreatedAt, ok := cursor.StartAfter[0].(string)
	if !ok {
		return nil, fmt.Errorf("%w: malformed order cursor", pagination.ErrInvalidPageToken)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, rawCreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pagination.ErrInvalidPageToken, err)
	}
	orderID, ok := cursor.StartAfter[1].(string)
	if !ok || orderID == "" {
		return nil, fmt.Errorf("%w: malformed order cursor", pagination.ErrInvalidPageToken)
	}
	return &orderPageToken{OrderID: orderID, CreatedAt: createdAt}, nil
}

func newOrderDocument(order domain.Order) orderDocument {
	items := make([]orderItemDocument, len(order.Items))
	for i, item := range order.Items {
		items[i] = orderItemDocument{
			ProductRef:   strings.TrimSpace(item.ProductID),
			Name:         item.Name,
			UnitPrice:    item.UnitPrice,
			Quantity:     item.Quantity,
			Instructions: item.Instructions,
		}
	}
	history := make([]statusChangeDocument, len(order.StatusHistory))
	for i, change := range order.StatusHistory {
		history[i] = statusChangeDocument{
			Status: string(change.Status),
			At:     change.At.UTC(),
			Note:   change.Note,
			Actor:  change.Actor,
		}
	}

	var address *addressDocument
	if order.Delivery.Address != nil {
		address = &addressDocument{
			Line1:      order.Delivery.Address.Line1,
			Line2:      order.Delivery.Address.Line2,
			City:       order.Delivery.Address.City,
			State:      order.Delivery.Address.State,
			PostalCode: order.Delivery.Address.PostalCode,
		}
	}

	var rating *ratingDocument
	if order.Rating != nil {
		rating = &ratingDocument{
			Overall:  order.Rating.Overall,
			Food:     order.Rating.Food,
			Delivery: order.Rating.Delivery,
			Comment:  order.Rating.Comment,
			RatedAt:  order.Rating.RatedAt.UTC(),
		}
	}

	return orderDocument{
		OrderNumber: strings.TrimSpace(order.OrderNumber),
		UserRef:     strings.TrimSpace(order.UserID),
		Items:       items,
		Pricing: orderPricingDocument{
			Subtotal:       order.Pricing.Subtotal,
			Tax:            order.Pricing.Tax,
			DeliveryFee:    order.Pricing.DeliveryFee,
			DiscountAmount: order.Pricing.Discount.Amount,
			DiscountCode:   order.Pricing.Discount.Code,
			DiscountReason: order.Pricing.Discount.Reason,
			Total:          order.Pricing.Total,
		},
		Customer: customerInfoDocument{
			FirstName: order.Customer.FirstName,
			LastName:  order.Customer.LastName,
			Email:     order.Customer.Email,
			Phone:     order.Customer.Phone,
		},
		Delivery: deliveryInfoDocument{
			Mode:             string(order.Delivery.Mode),
			Address:          address,
			LocationRef:      strings.TrimSpace(order.Delivery.LocationID),
			EstimatedMinutes: order.Delivery.EstimatedMinutes,
			ActualMinutes:    order.Delivery.ActualMinutes,
		},
		Payment: paymentDocument{
			Method:        string(order.Payment.Method),
			Status:        string(order.Payment.Status),
			TransactionID: order.Payment.TransactionID,
			PaidAt:        order.Payment.PaidAt,
			RefundedAt:    order.Payment.RefundedAt,
			RefundAmount:  order.Payment.RefundAmount,
		},
		Status:        string(order.Status),
		StatusHistory: history,
		Tracking: trackingDocument{
			PickupTime:         order.Tracking.PickupTime,
			ActualDeliveryTime: order.Tracking.ActualDeliveryTime,
		},
		Rating: rating,
		Notes: orderNotesDocument{
			Customer: order.Notes.Customer,
			Kitchen:  order.Notes.Kitchen,
			Driver:   order.Notes.Driver,
		},
		CancelReason: order.CancelReason,
		CancelledAt:  order.CancelledAt,
		CancelledBy:  order.CancelledBy,
		CreatedAt:    order.CreatedAt.UTC(),
		UpdatedAt:    order.UpdatedAt.UTC(),
		Metadata:     order.Metadata,
	}
}

func (d orderDocument) toDomain(id string) domain.Order {
	items := make([]domain.OrderItem, len(d.Items))
	for i, item := range d.Items {
		items[i] = domain.OrderItem{
			ProductID:    item.ProductRef,
			Name:         item.Name,
			UnitPrice:    item.UnitPrice,
			Quantity:     item.Quantity,
			Instructions: item.Instructions,
		}
	}
	history := make([]domain.StatusChange, len(d.StatusHistory))
	for i, change := range d.StatusHistory {
		history[i] = domain.StatusChange{
			Status: domain.OrderStatus(change.Status),
			At:     change.At,
			Note:   change.Note,
			Actor:  change.Actor,
		}
	}

	var address *domain.Address
	if d.Delivery.Address != nil {
		address = &domain.Address{
			Line1:      d.Delivery.Address.Line1,
			Line2:      d.Delivery.Address.Line2,
			City:       d.Delivery.Address.City,
			State:      d.Delivery.Address.State,
			PostalCode: d.Delivery.Address.PostalCode,
		}
	}

	var rating *domain.Rating
	if d.Rating != nil {
		rating = &domain.Rating{
			Overall:  d.Rating.Overall,
			Food:     d.Rating.Food,
			Delivery: d.Rating.Delivery,
			Comment:  d.Rating.Comment,
			RatedAt:  d.Rating.RatedAt,
		}
	}

	return domain.Order{
		ID:          id,
		OrderNumber: d.OrderNumber,
		UserID:      d.UserRef,
		Items:       items,
		Pricing: domain.Pricing{
			Subtotal:    d.Pricing.Subtotal,
			Tax:         d.Pricing.Tax,
			DeliveryFee: d.Pricing.DeliveryFee,
			Discount: domain.Discount{
				Amount: d.Pricing.DiscountAmount,
				Code:   d.Pricing.DiscountCode,
				Reason: d.Pricing.DiscountReason,
			},
			Total: d.Pricing.Total,
		},
		Customer: domain.CustomerInfo{
			FirstName: d.Customer.FirstName,
			LastName:  d.Customer.LastName,
			Email:     d.Customer.Email,
			Phone:     d.Customer.Phone,
		},
		Delivery: domain.DeliveryInfo{
			Mode:             domain.DeliveryMode(d.Delivery.Mode),
			Address:          address,
			LocationID:       d.Delivery.LocationRef,
			EstimatedMinutes: d.Delivery.EstimatedMinutes,
			ActualMinutes:    d.Delivery.ActualMinutes,
		},
		Payment: domain.Payment{
			Method:        domain.PaymentMethod(d.Payment.Method),
			Status:        domain.PaymentStatus(d.Payment.Status),
			TransactionID: d.Payment.TransactionID,
			PaidAt:        d.Payment.PaidAt,
			RefundedAt:    d.Payment.RefundedAt,
			RefundAmount:  d.Payment.RefundAmount,
		},
		Status:        domain.OrderStatus(d.Status),
		StatusHistory: history,
		Tracking: domain.Tracking{
			PickupTime:         d.Tracking.PickupTime,
			ActualDeliveryTime: d.Tracking.ActualDeliveryTime,
		},
		Rating: rating,
		Notes: domain.OrderNotes{
			Customer: d.Notes.Customer,
			Kitchen:  d.Notes.Kitchen,
			Driver:   d.Notes.Driver,
		},
		CancelReason: d.CancelReason,
		CancelledAt:  d.CancelledAt,
		CancelledBy:  d.CancelledBy,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
		Metadata:     d.Metadata,
	}
}

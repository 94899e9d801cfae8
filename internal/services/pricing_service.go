package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	domain "github.com/burger-alley/api/internal/domain"
)

const (
	defaultTaxRateBps           = 800
	defaultDeliveryFeeCents     = 599
	defaultBasePrepMinutes      = 30
	defaultPerItemPrepMinutes   = 2
	defaultDeliveryExtraMinutes = 20
)

var (
	// ErrPricingInvalidInput signals malformed cart input.
	ErrPricingInvalidInput = errors.New("pricing: invalid input")
	// ErrProductUnavailable indicates a referenced product is missing or inactive.
	ErrProductUnavailable = errors.New("pricing: product unavailable")
	// ErrInsufficientStock indicates the requested quantity exceeds current stock.
	ErrInsufficientStock = errors.New("pricing: insufficient stock")
	// ErrQuantityExceedsLimit indicates the requested quantity exceeds the product's per-order cap.
	ErrQuantityExceedsLimit = errors.New("pricing: quantity exceeds limit")
	// ErrInvalidPricing indicates the assembled totals are inconsistent.
	ErrInvalidPricing = errors.New("pricing: invalid total")
)

// ProductCatalog is the slice of the inventory surface the pricing pass reads.
type ProductCatalog interface {
	FindByIDs(ctx context.Context, productIDs []string) (map[string]domain.Product, error)
}

// FlatDeliveryFee charges a fixed fee for courier delivery and nothing for pickup.
type FlatDeliveryFee struct {
	Cents int64
}

// Fee implements DeliveryFeeStrategy.
func (f FlatDeliveryFee) Fee(_ context.Context, mode domain.DeliveryMode, _ *Address) (int64, error) {
	if mode == domain.DeliveryModePickup {
		return 0, nil
	}
	return f.Cents, nil
}

// PricingServiceDeps bundles collaborators required to construct the pricing service.
type PricingServiceDeps struct {
	Catalog              ProductCatalog
	Discounts            DiscountResolver
	DeliveryFees         DeliveryFeeStrategy
	TaxRateBps           int64
	BasePrepMinutes      int
	PerItemPrepMinutes   int
	DeliveryExtraMinutes int
	Logger               func(ctx context.Context, event string, fields map[string]any)
}

type pricingService struct {
	catalog      ProductCatalog
	discounts    DiscountResolver
	deliveryFees DeliveryFeeStrategy
	taxRateBps   int64
	baseMinutes  int
	itemMinutes  int
	extraMinutes int
	logger       func(context.Context, string, map[string]any)
}

// NewPricingService wires dependencies into a concrete PricingService implementation.
func NewPricingService(deps PricingServiceDeps) (PricingService, error) {
	if deps.Catalog == nil {
		return nil, errors.New("pricing service: product catalog is required")
	}

	fees := deps.DeliveryFees
	if fees == nil {
		fees = FlatDeliveryFee{Cents: defaultDeliveryFeeCents}
	}

	taxRate := deps.TaxRateBps
	if taxRate <= 0 {
		taxRate = defaultTaxRateBps
	}

	base := deps.BasePrepMinutes
	if base <= 0 {
		base = defaultBasePrepMinutes
	}
	perItem := deps.PerItemPrepMinutes
	if perItem <= 0 {
		perItem = defaultPerItemPrepMinutes
	}
	extra := deps.DeliveryExtraMinutes
	if extra <= 0 {
		extra = defaultDeliveryExtraMinutes
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &pricingService{
		catalog:      deps.Catalog,
		discounts:    deps.Discounts,
		deliveryFees: fees,
		taxRateBps:   taxRate,
		baseMinutes:  base,
		itemMinutes:  perItem,
		extraMinutes: extra,
		logger:       logger,
	}, nil
}

// Quote runs the full pricing pass: availability, stock and limit checks,
// then subtotal, tax, delivery fee, discount, and total assembly. The quote
// fails before any side effect, so callers can abort creation cleanly.
func (s *pricingService) Quote(ctx context.Context, cmd PricingQuoteCommand) (PricingQuote, error) {
	if len(cmd.Items) == 0 {
		return PricingQuote{}, fmt.Errorf("%w: cart must contain at least one item", ErrPricingInvalidInput)
	}
	switch cmd.Mode {
	case domain.DeliveryModeDelivery, domain.DeliveryModePickup:
	default:
		return PricingQuote{}, fmt.Errorf("%w: unknown delivery mode %q", ErrPricingInvalidInput, cmd.Mode)
	}

	productIDs := make([]string, 0, len(cmd.Items))
	requested := make(map[string]int, len(cmd.Items))
	for _, item := range cmd.Items {
		productID := strings.TrimSpace(item.ProductID)
		if productID == "" {
			return PricingQuote{}, fmt.Errorf("%w: product id is required", ErrPricingInvalidInput)
		}
		if item.Quantity < 1 {
			return PricingQuote{}, fmt.Errorf("%w: quantity for %s must be at least 1", ErrPricingInvalidInput, productID)
		}
		if _, seen := requested[productID]; !seen {
			productIDs = append(productIDs, productID)
		}
		requested[productID] += item.Quantity
	}

	products, err := s.catalog.FindByIDs(ctx, productIDs)
	if err != nil {
		return PricingQuote{}, err
	}

	for _, productID := range productIDs {
		product, ok := products[productID]
		if !ok || !product.Active {
			return PricingQuote{}, fmt.Errorf("%w: %s", ErrProductUnavailable, productID)
		}
		quantity := requested[productID]
		if quantity > product.Stock {
			return PricingQuote{}, fmt.Errorf("%w: %s has %d left", ErrInsufficientStock, productID, product.Stock)
		}
		if product.MaxOrderQuantity > 0 && quantity > product.MaxOrderQuantity {
			return PricingQuote{}, fmt.Errorf("%w: %s is limited to %d per order", ErrQuantityExceedsLimit, productID, product.MaxOrderQuantity)
		}
	}

	// Subtotal accumulates unrounded cent amounts; rounding happens only when
	// tax and total are assembled below.
	var subtotal int64
	lines := make([]domain.LinePricing, 0, len(cmd.Items))
	for _, item := range cmd.Items {
		productID := strings.TrimSpace(item.ProductID)
		product := products[productID]

		lineSubtotal, err := multiplyCents(product.Price, int64(item.Quantity))
		if err != nil {
			return PricingQuote{}, fmt.Errorf("%w: line %s overflows", ErrInvalidPricing, productID)
		}
		next, err := addCents(subtotal, lineSubtotal)
		if err != nil {
			return PricingQuote{}, fmt.Errorf("%w: subtotal overflows", ErrInvalidPricing)
		}
		subtotal = next

		lines = append(lines, domain.LinePricing{
			ProductID: productID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  item.Quantity,
			Subtotal:  lineSubtotal,
		})
	}

	tax := roundBps(subtotal, s.taxRateBps)

	deliveryFee, err := s.deliveryFees.Fee(ctx, cmd.Mode, cmd.Address)
	if err != nil {
		return PricingQuote{}, err
	}
	if deliveryFee < 0 {
		return PricingQuote{}, fmt.Errorf("%w: delivery fee is negative", ErrInvalidPricing)
	}

	discount := Discount{}
	if code := strings.TrimSpace(cmd.DiscountCode); code != "" && s.discounts != nil {
		resolved, err := s.discounts.Resolve(ctx, code, subtotal)
		switch {
		case err == nil:
			discount = resolved
		case errors.Is(err, ErrPromotionInvalid):
			s.logger(ctx, "pricing.discount.invalid", map[string]any{"code": code})
		default:
			return PricingQuote{}, err
		}
	}
	if discount.Amount < 0 {
		return PricingQuote{}, fmt.Errorf("%w: discount is negative", ErrInvalidPricing)
	}

	total := subtotal + tax + deliveryFee - discount.Amount
	if total < 0 {
		return PricingQuote{}, fmt.Errorf("%w: total is negative", ErrInvalidPricing)
	}

	estimated := s.baseMinutes
	for _, item := range cmd.Items {
		estimated += item.Quantity * s.itemMinutes
	}
	if cmd.Mode == domain.DeliveryModeDelivery {
		estimated += s.extraMinutes
	}

	return PricingQuote{
		Pricing: Pricing{
			Subtotal:    subtotal,
			Tax:         tax,
			DeliveryFee: deliveryFee,
			Discount:    discount,
			Total:       total,
		},
		Lines:            lines,
		EstimatedMinutes: estimated,
	}, nil
}

// roundBps applies a basis-point rate with half-up rounding on cents.
func roundBps(amount int64, bps int64) int64 {
	return (amount*bps + 5000) / 10000
}

func multiplyCents(a, b int64) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	if a > math.MaxInt64/b {
		return 0, errors.New("pricing: amount overflow")
	}
	return a * b, nil
}

func addCents(a, b int64) (int64, error) {
	if a > math.MaxInt64-b {
		return 0, errors.New("pricing: amount overflow")
	}
	return a + b, nil
}

package services

import (
	"context"
	"errors"
	"testing"

	domain "github.com/burger-alley/api/internal/domain"
)

type stubCatalog struct {
	findByIDsFn func(ctx context.Context, productIDs []string) (map[string]domain.Product, error)
}

func (s *stubCatalog) FindByIDs(ctx context.Context, productIDs []string) (map[string]domain.Product, error) {
	if s.findByIDsFn == nil {
		return map[string]domain.Product{}, nil
	}
	return s.findByIDsFn(ctx, productIDs)
}

type stubDiscounts struct {
	resolveFn func(ctx context.Context, code string, subtotal int64) (Discount, error)
}

func (s *stubDiscounts) Resolve(ctx context.Context, code string, subtotal int64) (Discount, error) {
	return s.resolveFn(ctx, code, subtotal)
}

func burgerCatalog() *stubCatalog {
	return &stubCatalog{
		findByIDsFn: func(_ context.Context, _ []string) (map[string]domain.Product, error) {
			return map[string]domain.Product{
				"prod_burger": {ID: "prod_burger", Name: "Classic Burger", Price: 899, Active: true, Stock: 10},
				"prod_fries":  {ID: "prod_fries", Name: "Fries", Price: 800, Active: true, Stock: 10},
				"prod_soda":   {ID: "prod_soda", Name: "Soda", Price: 250, Active: true, Stock: 2, MaxOrderQuantity: 2},
			}, nil
		},
	}
}

func newTestPricingService(t *testing.T, deps PricingServiceDeps) PricingService {
	t.Helper()
	if deps.Catalog == nil {
		deps.Catalog = burgerCatalog()
	}
	svc, err := NewPricingService(deps)
	if err != nil {
		t.Fatalf("NewPricingService returned error: %v", err)
	}
	return svc
}

func TestPricingServiceQuoteDeliveryBreakdown(t *testing.T) {
	svc := newTestPricingService(t, PricingServiceDeps{})

	quote, err := svc.Quote(context.Background(), PricingQuoteCommand{
		Items: []CartItemInput{
			{ProductID: "prod_burger", Quantity: 2},
			{ProductID: "prod_fries", Quantity: 1},
		},
		Mode: domain.DeliveryModeDelivery,
	})
	if err != nil {
		t.Fatalf("Quote returned error: %v", err)
	}

	if quote.Pricing.Subtotal != 2598 {
		t.Fatalf("expected subtotal 2598, got %d", quote.Pricing.Subtotal)
	}
	if quote.Pricing.Tax != 208 {
		t.Fatalf("expected tax 208, got %d", quote.Pricing.Tax)
	}
	if quote.Pricing.DeliveryFee != 599 {
		t.Fatalf("expected delivery fee 599, got %d", quote.Pricing.DeliveryFee)
	}
	if quote.Pricing.Total != 3405 {
		t.Fatalf("expected total 3405, got %d", quote.Pricing.Total)
	}
	if len(quote.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(quote.Lines))
	}
	if quote.Lines[0].Name != "Classic Burger" || quote.Lines[0].Subtotal != 1798 {
		t.Fatalf("unexpected first line: %+v", quote.Lines[0])
	}
	// 30 base + 3 items x 2 + 20 delivery.
	if quote.EstimatedMinutes != 56 {
		t.Fatalf("expected estimate 56 minutes, got %d", quote.EstimatedMinutes)
	}
}

func TestPricingServiceQuotePickupSkipsDeliveryCharges(t *testing.T) {
	svc := newTestPricingService(t, PricingServiceDeps{})

	quote, err := svc.Quote(context.Background(), PricingQuoteCommand{
		Items: []CartItemInput{{ProductID: "prod_burger", Quantity: 1}},
		Mode:  domain.DeliveryModePickup,
	})
	if err != nil {
		t.Fatalf("Quote returned error: %v", err)
	}
	if quote.Pricing.DeliveryFee != 0 {
		t.Fatalf("expected pickup fee 0, got %d", quote.Pricing.DeliveryFee)
	}
	if quote.EstimatedMinutes != 32 {
		t.Fatalf("expected estimate 32 minutes, got %d", quote.EstimatedMinutes)
	}
}

func TestPricingServiceQuoteRejectsBadCarts(t *testing.T) {
	svc := newTestPricingService(t, PricingServiceDeps{})
	ctx := context.Background()

	cases := []struct {
		name string
		cmd  PricingQuoteCommand
		want error
	}{
		{
			name: "empty cart",
			cmd:  PricingQuoteCommand{Mode: domain.DeliveryModePickup},
			want: ErrPricingInvalidInput,
		},
		{
			name: "zero quantity",
			cmd: PricingQuoteCommand{
				Items: []CartItemInput{{ProductID: "prod_burger", Quantity: 0}},
				Mode:  domain.DeliveryModePickup,
			},
			want: ErrPricingInvalidInput,
		},
		{
			name: "unknown product",
			cmd: PricingQuoteCommand{
				Items: []CartItemInput{{ProductID: "prod_missing", Quantity: 1}},
				Mode:  domain.DeliveryModePickup,
			},
			want: ErrProductUnavailable,
		},
		{
			name: "insufficient stock across duplicate lines",
			cmd: PricingQuoteCommand{
				Items: []CartItemInput{
					{ProductID: "prod_soda", Quantity: 1},
					{ProductID: "prod_soda", Quantity: 2},
				},
				Mode: domain.DeliveryModePickup,
			},
			want: ErrInsufficientStock,
		},
		{
			name: "quantity over per-order cap",
			cmd: PricingQuoteCommand{
				Items: []CartItemInput{{ProductID: "prod_burger", Quantity: 3}},
				Mode:  domain.DeliveryModePickup,
			},
			want: ErrQuantityExceedsLimit,
		},
	}

	capped := &stubCatalog{
		findByIDsFn: func(_ context.Context, _ []string) (map[string]domain.Product, error) {
			return map[string]domain.Product{
				"prod_burger": {ID: "prod_burger", Name: "Classic Burger", Price: 899, Active: true, Stock: 10, MaxOrderQuantity: 2},
				"prod_soda":   {ID: "prod_soda", Name: "Soda", Price: 250, Active: true, Stock: 2},
			}, nil
		},
	}
	cappedSvc := newTestPricingService(t, PricingServiceDeps{Catalog: capped})

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			target := svc
			if tc.want == ErrQuantityExceedsLimit || tc.want == ErrInsufficientStock {
				target = cappedSvc
			}
			if _, err := target.Quote(ctx, tc.cmd); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestPricingServiceQuoteInactiveProduct(t *testing.T) {
	catalog := &stubCatalog{
		findByIDsFn: func(_ context.Context, _ []string) (map[string]domain.Product, error) {
			return map[string]domain.Product{
				"prod_burger": {ID: "prod_burger", Name: "Classic Burger", Price: 899, Active: false, Stock: 10},
			}, nil
		},
	}
	svc := newTestPricingService(t, PricingServiceDeps{Catalog: catalog})

	_, err := svc.Quote(context.Background(), PricingQuoteCommand{
		Items: []CartItemInput{{ProductID: "prod_burger", Quantity: 1}},
		Mode:  domain.DeliveryModePickup,
	})
	if !errors.Is(err, ErrProductUnavailable) {
		t.Fatalf("expected ErrProductUnavailable, got %v", err)
	}
}

func TestPricingServiceQuoteAppliesDiscount(t *testing.T) {
	discounts := &stubDiscounts{
		resolveFn: func(_ context.Context, code string, subtotal int64) (Discount, error) {
			if code != "WELCOME10" {
				t.Fatalf("unexpected code %q", code)
			}
			return Discount{Amount: subtotal / 10, Code: code}, nil
		},
	}
	svc := newTestPricingService(t, PricingServiceDeps{Discounts: discounts})

	quote, err := svc.Quote(context.Background(), PricingQuoteCommand{
		Items:        []CartItemInput{{ProductID: "prod_fries", Quantity: 1}},
		Mode:         domain.DeliveryModePickup,
		DiscountCode: "WELCOME10",
	})
	if err != nil {
		t.Fatalf("Quote returned error: %v", err)
	}
	if quote.Pricing.Discount.Amount != 80 {
		t.Fatalf("expected discount 80, got %d", quote.Pricing.Discount.Amount)
	}
	// 800 + 64 tax - 80 discount.
	if quote.Pricing.Total != 784 {
		t.Fatalf("expected total 784, got %d", quote.Pricing.Total)
	}
}

func TestPricingServiceQuoteIgnoresInvalidDiscount(t *testing.T) {
	discounts := &stubDiscounts{
		resolveFn: func(_ context.Context, code string, _ int64) (Discount, error) {
			return Discount{}, ErrPromotionInvalid
		},
	}
	svc := newTestPricingService(t, PricingServiceDeps{Discounts: discounts})

	quote, err := svc.Quote(context.Background(), PricingQuoteCommand{
		Items:        []CartItemInput{{ProductID: "prod_fries", Quantity: 1}},
		Mode:         domain.DeliveryModePickup,
		DiscountCode: "EXPIRED",
	})
	if err != nil {
		t.Fatalf("expected invalid discount to be ignored, got %v", err)
	}
	if quote.Pricing.Discount.Amount != 0 {
		t.Fatalf("expected zero discount, got %d", quote.Pricing.Discount.Amount)
	}
}

func TestPricingServiceQuotePropagatesResolverFailure(t *testing.T) {
	boom := errors.New("promotion store down")
	discounts := &stubDiscounts{
		resolveFn: func(_ context.Context, _ string, _ int64) (Discount, error) {
			return Discount{}, boom
		},
	}
	svc := newTestPricingService(t, PricingServiceDeps{Discounts: discounts})

	_, err := svc.Quote(context.Background(), PricingQuoteCommand{
		Items:        []CartItemInput{{ProductID: "prod_fries", Quantity: 1}},
		Mode:         domain.DeliveryModePickup,
		DiscountCode: "WELCOME10",
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected resolver failure to propagate, got %v", err)
	}
}

func TestRoundBpsHalfUp(t *testing.T) {
	cases := []struct {
		amount int64
		want   int64
	}{
		{amount: 2598, want: 208},
		{amount: 100, want: 8},
		{amount: 0, want: 0},
		{amount: 6, want: 0},   // 0.48 cents rounds down
		{amount: 7, want: 1},   // 0.56 cents rounds up
		{amount: 625, want: 50}, // exactly 50.0
	}
	for _, tc := range cases {
		if got := roundBps(tc.amount, 800); got != tc.want {
			t.Fatalf("roundBps(%d, 800) = %d, want %d", tc.amount, got, tc.want)
		}
	}
}

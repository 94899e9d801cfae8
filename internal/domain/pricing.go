package domain

// Pricing captures the monetary breakdown of an order, all amounts in cents.
// Invariant: Total == Subtotal + Tax + DeliveryFee - Discount.Amount.
type Pricing struct {
	Subtotal    int64
	Tax         int64
	DeliveryFee int64
	Discount    Discount
	Total       int64
}

// Discount is the resolved promotion applied to an order, zero-valued when
// no code was supplied or the code was invalid.
type Discount struct {
	Amount int64
	Code   string
	Reason string
}

// LinePricing stores the per-item outputs of the pricing pass.
type LinePricing struct {
	ProductID string
	Name      string
	UnitPrice int64
	Quantity  int
	Subtotal  int64
}

// PricingQuote is the full result of pricing a cart: the order-level
// breakdown, the per-line detail it was assembled from, and the preparation
// estimate derived from the same inputs.
type PricingQuote struct {
	Pricing          Pricing
	Lines            []LinePricing
	EstimatedMinutes int
}

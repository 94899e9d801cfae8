package domain

import "time"

// PromotionType selects how a promotion's value is interpreted.
type PromotionType string

const (
	// PromotionTypePercent applies Value as basis points of the subtotal.
	PromotionTypePercent PromotionType = "percent"
	// PromotionTypeFixed applies Value as a fixed amount in cents.
	PromotionTypeFixed PromotionType = "fixed"
)

// Promotion is a discount code customers can apply at checkout.
type Promotion struct {
	ID          string
	Code        string
	Type        PromotionType
	Value       int64
	Description string
	Active      bool
	StartsAt    time.Time
	EndsAt      time.Time
	MinSubtotal int64
}

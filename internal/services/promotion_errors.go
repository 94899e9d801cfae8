package services

import "errors"

var (
	// ErrPromotionInvalid covers unknown, inactive, expired, or inapplicable
	// promotion codes. Pricing treats it as "no discount" rather than a failure.
	ErrPromotionInvalid = errors.New("promotion: invalid code")
)

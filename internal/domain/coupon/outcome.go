package coupon

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Reason explains why a coupon did not apply. ReasonNone means it did.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonNotFound           Reason = "not_found"
	ReasonExpired            Reason = "expired"
	ReasonGlobalLimit        Reason = "usage_limit_exceeded"
	ReasonPerUserLimit       Reason = "per_user_limit_exceeded"
	ReasonMinimumPurchase    Reason = "minimum_purchase_not_met"
	ReasonMinimumQuantity    Reason = "minimum_quantity_not_met"
	ReasonCountryNotEligible Reason = "country_not_eligible"
	ReasonNoEligibleItems    Reason = "no_eligible_items"
)

// Status is the result of applying a strategy.
type Status string

const (
	StatusApplied  Status = "applied"
	StatusRejected Status = "rejected"
)

// Adjustment is the discount a strategy assigns to the item at Index.
type Adjustment struct {
	Index         int
	Applicable    bool
	UnitDiscount  decimal.Decimal
	TotalDiscount decimal.Decimal
}

// Outcome is what a strategy contributes to the cart. Rejected outcomes carry
// a Reason and zero amounts.
type Outcome struct {
	Status Status
	Reason Reason
	// Required is the unmet purchase requirement value, if any.
	Required decimal.Decimal

	Adjustments []Adjustment
	// ItemDiscount is the sum of the adjustments' TotalDiscount.
	ItemDiscount decimal.Decimal
	// OrderLevelAmount is a discount on the order rather than on items; free
	// shipping coupons set it to the waived shipping rate.
	OrderLevelAmount decimal.Decimal
}

// Applied reports whether the coupon took effect.
func (o Outcome) Applied() bool {
	return o.Status == StatusApplied
}

func rejected(reason Reason, required decimal.Decimal) Outcome {
	return Outcome{
		Status:           StatusRejected,
		Reason:           reason,
		Required:         required,
		ItemDiscount:     decimal.Zero,
		OrderLevelAmount: decimal.Zero,
	}
}

// RejectionError reports a coupon that cannot be applied interactively.
type RejectionError struct {
	Code     string
	Reason   Reason
	Required decimal.Decimal
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("coupon %q rejected: %s", e.Code, e.Reason)
}

// Message is the end-user explanation of the rejection.
func (e *RejectionError) Message() string {
	switch e.Reason {
	case ReasonNotFound:
		return "This coupon code does not exist"
	case ReasonExpired:
		return "This coupon is not valid at this time"
	case ReasonGlobalLimit:
		return "This coupon has reached its usage limit"
	case ReasonPerUserLimit:
		return "You have already used this coupon the maximum number of times"
	case ReasonMinimumPurchase:
		return fmt.Sprintf("Coupon requires a minimum purchase of %s", e.Required.StringFixed(2))
	case ReasonMinimumQuantity:
		return fmt.Sprintf("Coupon requires at least %s eligible items", e.Required.String())
	case ReasonCountryNotEligible:
		return "This coupon is not valid for your shipping country"
	case ReasonNoEligibleItems:
		return "This coupon does not apply to any item in your cart"
	default:
		return "This coupon cannot be applied"
	}
}

// Package coupon evaluates coupon rules against a cart: temporal and usage
// validity, item scope, and the discount each coupon category produces.
package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Category is the discount mechanism a coupon implements.
type Category string

const (
	CategoryDiscount     Category = "discount"
	CategoryFreeShipping Category = "free_shipping"
	CategorySalePrice    Category = "sale_price"
)

// DiscountType applies to CategoryDiscount coupons only.
type DiscountType string

const (
	DiscountPercent DiscountType = "percent"
	DiscountFixed   DiscountType = "fixed"
)

// Scope selects which cart items a coupon may discount.
type Scope string

const (
	ScopeAllProducts        Scope = "all_products"
	ScopeSpecificProducts   Scope = "specific_products"
	ScopeSpecificCategories Scope = "specific_categories"
)

// Requirement is a purchase gate on coupon eligibility.
type Requirement string

const (
	RequirementNone            Requirement = "none"
	RequirementMinimumPurchase Requirement = "minimum_purchase"
	RequirementMinimumQuantity Requirement = "minimum_quantity"
)

// CountryType restricts free shipping coupons by destination.
type CountryType string

const (
	CountriesAll      CountryType = "all"
	CountriesSpecific CountryType = "specific"
)

var (
	// ErrNotFound is returned when no active coupon has the given code.
	ErrNotFound = errors.New("coupon not found")
	// ErrUnknownCategory is returned for a coupon category outside the known set.
	ErrUnknownCategory = errors.New("unknown coupon category")
	// ErrInvalidCoupon is returned for coupon records that break their own invariants.
	ErrInvalidCoupon = errors.New("invalid coupon record")
	// ErrUsageLimitReached is returned by Repository.Redeem when the global
	// limit was exhausted by a concurrent redemption.
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
	// ErrPerUserLimitReached is returned by Repository.Redeem when the
	// customer exhausted their allowance.
	ErrPerUserLimitReached = errors.New("coupon per-user limit reached")
)

// Coupon is the rule record of one coupon code.
type Coupon struct {
	ID          string
	Code        string
	Description string
	Category    Category

	DiscountType  DiscountType
	DiscountValue decimal.Decimal
	SaleValue     decimal.Decimal

	AppliesTo Scope
	// Products maps an applicable product id to its allowed variant ids. An
	// empty variant list allows every variant of the product.
	Products   map[string][]string
	Categories []string

	Requirement      Requirement
	RequirementValue decimal.Decimal

	UsageLimitEnabled   bool
	UsageLimit          int
	PerUserLimitEnabled bool
	PerUserLimit        int

	CountryType CountryType
	Countries   []string

	HasDateWindow bool
	StartsAt      time.Time
	EndsAt        time.Time
}

// Validate checks the record's enums and invariants.
func (c *Coupon) Validate() error {
	switch c.Category {
	case CategoryDiscount:
		if c.DiscountType != DiscountPercent && c.DiscountType != DiscountFixed {
			return errors.Wrapf(ErrInvalidCoupon, "%s: discount type %q", c.Code, c.DiscountType)
		}
	case CategoryFreeShipping, CategorySalePrice:
	default:
		return errors.Wrapf(ErrUnknownCategory, "%s: %q", c.Code, c.Category)
	}
	switch c.AppliesTo {
	case ScopeAllProducts, ScopeSpecificProducts, ScopeSpecificCategories:
	default:
		return errors.Wrapf(ErrInvalidCoupon, "%s: scope %q", c.Code, c.AppliesTo)
	}
	switch c.Requirement {
	case RequirementNone, RequirementMinimumPurchase, RequirementMinimumQuantity, "":
	default:
		return errors.Wrapf(ErrInvalidCoupon, "%s: requirement %q", c.Code, c.Requirement)
	}
	switch c.CountryType {
	case CountriesAll, CountriesSpecific, "":
	default:
		return errors.Wrapf(ErrInvalidCoupon, "%s: country type %q", c.Code, c.CountryType)
	}
	if c.DiscountValue.IsNegative() || c.SaleValue.IsNegative() || c.RequirementValue.IsNegative() {
		return errors.Wrapf(ErrInvalidCoupon, "%s: negative value", c.Code)
	}
	if c.HasDateWindow && c.StartsAt.After(c.EndsAt) {
		return errors.Wrapf(ErrInvalidCoupon, "%s: starts after it ends", c.Code)
	}
	return nil
}

// UsageRecord is a redemption tally for a coupon. An empty Email marks a
// global-only tally.
type UsageRecord struct {
	CouponID string
	Email    string
	Count    int
}

// Redemption is one coupon use recorded at checkout completion.
type Redemption struct {
	CouponID string
	Email    string
	OrderRef string
}

// Repository provides coupon lookup and usage bookkeeping.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	UsageRecords(ctx context.Context, couponID string) ([]UsageRecord, error)
	// Redeem records one use only if the coupon's limits still allow it. The
	// check and the increment must be a single atomic step.
	Redeem(ctx context.Context, c *Coupon, r Redemption) error
}

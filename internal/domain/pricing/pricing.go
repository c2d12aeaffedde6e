// Package pricing computes cart totals: coupon discounts, shipping, tax and
// the grand total. The engine is a pure function of its request; every
// collaborator lookup happens before it runs.
package pricing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/inventicabv/simonisvis.nl-sub000/internal/domain/cart"
	"github.com/inventicabv/simonisvis.nl-sub000/internal/domain/coupon"
	"github.com/inventicabv/simonisvis.nl-sub000/internal/domain/shipping"
	"github.com/inventicabv/simonisvis.nl-sub000/internal/domain/tax"
	"github.com/inventicabv/simonisvis.nl-sub000/internal/domain/weight"
)

// TaxSettings is the shop's tax configuration.
type TaxSettings struct {
	Enabled bool
	Mode    tax.Mode
	// Shipping enables tax on the shipping cost.
	Shipping bool
}

// Request is everything needed to price one cart.
type Request struct {
	Items []cart.Item

	Coupon *coupon.Coupon
	Usage  []coupon.UsageRecord
	// Email identifies the customer for per-user coupon limits. Empty for a
	// guest who has not entered one yet.
	Email string

	Country string
	State   string
	// Region is the shipping configuration for the destination. A nil region
	// prices the cart without shipping.
	Region *shipping.Region

	Tax TaxSettings
	// TaxRates holds resolved rates in percent keyed by product id; items
	// without an entry use DefaultTaxRate.
	TaxRates        map[string]decimal.Decimal
	DefaultTaxRate  decimal.Decimal
	ShippingTaxRate decimal.Decimal

	// WeightUnit is the unit of TotalWeight and of the region's weight tiers.
	// Defaults to kilograms.
	WeightUnit weight.Unit

	// Now is the instant coupon windows are checked against. Zero means the
	// engine clock.
	Now time.Time
}

// CouponStatus tells whether the requested coupon took effect and, if not,
// why.
type CouponStatus struct {
	Code     string
	Category coupon.Category
	Applied  bool
	Reason   coupon.Reason
	// Required is the unmet purchase requirement value.
	Required decimal.Decimal
}

// Rejection returns the status as an error for interactive callers, or nil
// when the coupon applied.
func (s *CouponStatus) Rejection() error {
	if s == nil || s.Applied {
		return nil
	}
	return &coupon.RejectionError{Code: s.Code, Reason: s.Reason, Required: s.Required}
}

// Result is the priced cart. All amounts are rounded to cents and
// GrandTotal = DiscountedSubtotal + ShippingCost + SalesTax + ShippingTax.
type Result struct {
	Items []cart.PricedItem

	Subtotal             decimal.Decimal
	DiscountedSubtotal   decimal.Decimal
	CouponDiscountAmount decimal.Decimal
	// ShippingDiscount is the part of CouponDiscountAmount that waived shipping.
	ShippingDiscount decimal.Decimal

	ShippingCost     decimal.Decimal
	ShippingWaivedBy shipping.WaiveReason

	ShippingTax        decimal.Decimal
	SalesTax           decimal.Decimal
	TotalTaxableAmount decimal.Decimal
	// IncludedSalesTax and IncludedShippingTax report the tax contained in
	// tax-inclusive prices. They are not part of GrandTotal.
	IncludedSalesTax    decimal.Decimal
	IncludedShippingTax decimal.Decimal

	GrandTotal  decimal.Decimal
	TotalWeight decimal.Decimal
	WeightUnit  weight.Unit

	Coupon *CouponStatus
}

// InvalidItemError reports a malformed cart line.
type InvalidItemError struct {
	Index     int
	ProductID string
	Reason    string
}

func (e *InvalidItemError) Error() string {
	return fmt.Sprintf("cart item %d (product %s): %s", e.Index, e.ProductID, e.Reason)
}

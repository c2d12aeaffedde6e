package coupon

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/inventicabv/simonisvis.nl-sub000/internal/domain/cart"
)

var (
	hundred = decimal.NewFromInt(100)
	zero    = decimal.Zero
)

// Aggregates are whole-cart figures a strategy may need.
type Aggregates struct {
	Subtotal decimal.Decimal
	Quantity int
	Country  string
	// ShippingRate is the resolved rate before any coupon waiver.
	ShippingRate decimal.Decimal
}

// Strategy computes a coupon's contribution. Items must already carry the
// scope match in CouponApplicable. Policy failures are returned as rejected
// outcomes, never as errors.
type Strategy interface {
	Apply(items []cart.PricedItem, c *Coupon, agg Aggregates) Outcome
}

// StrategyFor returns the strategy for a coupon category.
func StrategyFor(category Category) (Strategy, error) {
	switch category {
	case CategoryDiscount:
		return PercentOrFixedDiscount{}, nil
	case CategoryFreeShipping:
		return FreeShipping{}, nil
	case CategorySalePrice:
		return SalePriceCap{}, nil
	default:
		return nil, errors.Wrapf(ErrUnknownCategory, "%q", category)
	}
}

// matched returns the indices of scope-matched items with their subtotal and
// quantity.
func matched(items []cart.PricedItem) (idx []int, subtotal decimal.Decimal, qty int) {
	subtotal = zero
	for i, it := range items {
		if !it.CouponApplicable {
			continue
		}
		idx = append(idx, i)
		subtotal = subtotal.Add(it.LineTotal())
		qty += it.Quantity
	}
	return idx, subtotal, qty
}

// requirementBasis picks the figures a purchase requirement is checked
// against: the whole cart for all-products coupons, matched items otherwise.
func requirementBasis(c *Coupon, agg Aggregates, matchedSubtotal decimal.Decimal, matchedQty int) (decimal.Decimal, int) {
	if c.AppliesTo == ScopeAllProducts {
		return agg.Subtotal, agg.Quantity
	}
	return matchedSubtotal, matchedQty
}

// checkRequirement returns ReasonNone when the purchase requirement is met.
func checkRequirement(c *Coupon, subtotal decimal.Decimal, qty int) Reason {
	switch c.Requirement {
	case RequirementMinimumPurchase:
		if subtotal.LessThan(c.RequirementValue) {
			return ReasonMinimumPurchase
		}
	case RequirementMinimumQuantity:
		if decimal.NewFromInt(int64(qty)).LessThan(c.RequirementValue) {
			return ReasonMinimumQuantity
		}
	}
	return ReasonNone
}

func applied(adjustments []Adjustment, orderLevel decimal.Decimal) Outcome {
	total := zero
	for _, a := range adjustments {
		total = total.Add(a.TotalDiscount)
	}
	return Outcome{
		Status:           StatusApplied,
		Adjustments:      adjustments,
		ItemDiscount:     total,
		OrderLevelAmount: orderLevel,
	}
}

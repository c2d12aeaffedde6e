package coupon

import (
	"slices"

	"github.com/inventicabv/simonisvis.nl-sub000/internal/domain/cart"
)

// Matches reports whether the coupon's scope includes the item.
func Matches(c *Coupon, it cart.Item) bool {
	switch c.AppliesTo {
	case ScopeAllProducts:
		return true
	case ScopeSpecificProducts:
		variants, ok := c.Products[it.ProductID]
		if !ok {
			return false
		}
		if !it.HasVariants || len(variants) == 0 {
			return true
		}
		return slices.Contains(variants, it.SKUID)
	case ScopeSpecificCategories:
		return it.CategoryID != "" && slices.Contains(c.Categories, it.CategoryID)
	default:
		return false
	}
}

// Match returns copies of items with CouponApplicable set from the scope.
func Match(items []cart.PricedItem, c *Coupon) []cart.PricedItem {
	out := make([]cart.PricedItem, len(items))
	for i, it := range items {
		it.CouponApplicable = Matches(c, it.Item)
		out[i] = it
	}
	return out
}

package coupon

import (
	"github.com/shopspring/decimal"

	"github.com/inventicabv/simonisvis.nl-sub000/internal/domain/cart"
)

// SalePriceCap handles CategorySalePrice coupons.
type SalePriceCap struct{}

// Apply caps the unit price of matched items at the coupon's sale value.
// Items already at or below it are left untouched and marked not applicable.
func (SalePriceCap) Apply(items []cart.PricedItem, c *Coupon, agg Aggregates) Outcome {
	idx, calcSubtotal, calcQty := matched(items)
	if len(idx) == 0 {
		return rejected(ReasonNoEligibleItems, zero)
	}
	basisSubtotal, basisQty := requirementBasis(c, agg, calcSubtotal, calcQty)
	if reason := checkRequirement(c, basisSubtotal, basisQty); reason != ReasonNone {
		return rejected(reason, c.RequirementValue)
	}

	out := make([]Adjustment, 0, len(idx))
	capped := 0
	for _, i := range idx {
		it := items[i]
		if !it.UnitDiscountedPrice.GreaterThan(c.SaleValue) {
			out = append(out, Adjustment{Index: i, UnitDiscount: zero, TotalDiscount: zero})
			continue
		}
		unit := it.UnitDiscountedPrice.Sub(c.SaleValue)
		out = append(out, Adjustment{
			Index:         i,
			Applicable:    true,
			UnitDiscount:  unit,
			TotalDiscount: unit.Mul(decimal.NewFromInt(int64(it.Quantity))),
		})
		capped++
	}
	if capped == 0 {
		return rejected(ReasonNoEligibleItems, zero)
	}
	return applied(out, zero)
}

package coupon

import (
	"github.com/shopspring/decimal"

	"github.com/inventicabv/simonisvis.nl-sub000/internal/domain/cart"
)

// PercentOrFixedDiscount handles CategoryDiscount coupons.
type PercentOrFixedDiscount struct{}

// Apply discounts the matched items by a percentage per unit, or splits a
// fixed amount across them in proportion to their line totals.
func (PercentOrFixedDiscount) Apply(items []cart.PricedItem, c *Coupon, agg Aggregates) Outcome {
	idx, calcSubtotal, calcQty := matched(items)
	if len(idx) == 0 {
		return rejected(ReasonNoEligibleItems, zero)
	}
	basisSubtotal, basisQty := requirementBasis(c, agg, calcSubtotal, calcQty)
	if reason := checkRequirement(c, basisSubtotal, basisQty); reason != ReasonNone {
		return rejected(reason, c.RequirementValue)
	}

	if c.DiscountType == DiscountFixed {
		return applied(fixedAdjustments(items, idx, c.DiscountValue, calcSubtotal), zero)
	}
	return applied(percentAdjustments(items, idx, c.DiscountValue), zero)
}

func percentAdjustments(items []cart.PricedItem, idx []int, percent decimal.Decimal) []Adjustment {
	percent = decimal.Min(percent, hundred)
	out := make([]Adjustment, 0, len(idx))
	for _, i := range idx {
		it := items[i]
		unit := it.UnitPrice.Mul(percent).Div(hundred).Round(2)
		unit = decimal.Min(unit, it.UnitPrice)
		out = append(out, Adjustment{
			Index:         i,
			Applicable:    true,
			UnitDiscount:  unit,
			TotalDiscount: unit.Mul(decimal.NewFromInt(int64(it.Quantity))),
		})
	}
	return out
}

func fixedAdjustments(items []cart.PricedItem, idx []int, value, calcSubtotal decimal.Decimal) []Adjustment {
	amount := decimal.Min(value, calcSubtotal)
	lines := make([]decimal.Decimal, len(idx))
	for k, i := range idx {
		lines[k] = items[i].LineTotal()
	}
	shares := allocate(amount, lines)

	out := make([]Adjustment, 0, len(idx))
	for k, i := range idx {
		qty := decimal.NewFromInt(int64(items[i].Quantity))
		out = append(out, Adjustment{
			Index:         i,
			Applicable:    true,
			UnitDiscount:  shares[k].DivRound(qty, 2),
			TotalDiscount: shares[k],
		})
	}
	return out
}

// allocate splits amount across lines in proportion to their values. Every
// share but the last is rounded down to cents and the last takes the rest, so
// the shares always sum to amount. No share exceeds its line as long as
// amount does not exceed the sum of the lines.
func allocate(amount decimal.Decimal, lines []decimal.Decimal) []decimal.Decimal {
	shares := make([]decimal.Decimal, len(lines))
	for k := range shares {
		shares[k] = zero
	}
	total := zero
	for _, l := range lines {
		total = total.Add(l)
	}
	if len(lines) == 0 || total.IsZero() || !amount.IsPositive() {
		return shares
	}

	last := len(lines) - 1
	rest := amount
	for k := 0; k < last; k++ {
		share := amount.Mul(lines[k]).Div(total).RoundFloor(2)
		share = decimal.Min(share, lines[k])
		shares[k] = share
		rest = rest.Sub(share)
	}
	shares[last] = rest

	// Floor rounding can push the remainder past the last line; hand the
	// excess back to earlier lines that still have room.
	if excess := shares[last].Sub(lines[last]); excess.IsPositive() {
		shares[last] = lines[last]
		for k := last - 1; k >= 0 && excess.IsPositive(); k-- {
			take := decimal.Min(lines[k].Sub(shares[k]), excess)
			shares[k] = shares[k].Add(take)
			excess = excess.Sub(take)
		}
	}
	return shares
}

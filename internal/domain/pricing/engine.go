package pricing

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/inventicabv/simonisvis.nl-sub000/internal/domain/cart"
	"github.com/inventicabv/simonisvis.nl-sub000/internal/domain/coupon"
	"github.com/inventicabv/simonisvis.nl-sub000/internal/domain/shipping"
	"github.com/inventicabv/simonisvis.nl-sub000/internal/domain/tax"
	"github.com/inventicabv/simonisvis.nl-sub000/internal/domain/weight"
)

var zero = decimal.Zero

// Engine prices carts. It holds no per-request state and is safe for
// concurrent use.
type Engine struct {
	shipping shipping.Resolver
	now      func() time.Time
}

// Options configures an Engine.
type Options struct {
	// StrictWeightTiers fails pricing when no weight tier matches instead of
	// shipping for free.
	StrictWeightTiers bool
	Now               func() time.Time
}

// NewEngine creates an Engine.
func NewEngine(opts Options) *Engine {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		shipping: shipping.Resolver{FailClosed: opts.StrictWeightTiers},
		now:      now,
	}
}

// Price computes the totals for a cart. Coupon policy failures are reported in
// Result.Coupon; errors are returned only for malformed input or
// configuration.
func (e *Engine) Price(req Request) (*Result, error) {
	unit := req.WeightUnit
	if unit == "" {
		unit = weight.Kilogram
	}
	if !unit.Valid() {
		return nil, errors.Wrapf(weight.ErrUnsupportedUnit, "standard unit %q", unit)
	}

	totalWeight, err := sumWeight(req.Items, unit)
	if err != nil {
		return nil, err
	}

	items := make([]cart.PricedItem, len(req.Items))
	agg := coupon.Aggregates{Subtotal: zero, Country: req.Country, ShippingRate: zero}
	for i, it := range req.Items {
		items[i] = cart.Priced(it)
		agg.Subtotal = agg.Subtotal.Add(it.LineTotal())
		agg.Quantity += it.Quantity
	}

	res := &Result{
		Subtotal:             agg.Subtotal.Round(2),
		CouponDiscountAmount: zero,
		ShippingDiscount:     zero,
		TotalWeight:          totalWeight,
		WeightUnit:           unit,
	}

	c, strategy, err := e.admitCoupon(req, res)
	if err != nil {
		return nil, err
	}

	var outcome coupon.Outcome
	if c != nil {
		items = coupon.Match(items, c)
		if c.Category != coupon.CategoryFreeShipping {
			outcome = strategy.Apply(items, c, agg)
			items = applyAdjustments(items, outcome)
			res.CouponDiscountAmount = outcome.ItemDiscount
		}
	}

	discounted := zero
	for _, it := range items {
		discounted = discounted.Add(it.TotalDiscountedPrice)
	}
	res.DiscountedSubtotal = discounted.Round(2)

	quote, err := e.resolveShipping(req.Region, totalWeight, discounted)
	if err != nil {
		return nil, err
	}
	res.ShippingCost = quote.Rate
	res.ShippingWaivedBy = quote.WaivedBy

	if c != nil && c.Category == coupon.CategoryFreeShipping {
		agg.ShippingRate = quote.Rate
		outcome = strategy.Apply(items, c, agg)
		if outcome.Applied() && outcome.OrderLevelAmount.IsPositive() {
			res.ShippingDiscount = outcome.OrderLevelAmount
			res.CouponDiscountAmount = outcome.OrderLevelAmount
			res.ShippingCost = quote.Rate.Sub(outcome.OrderLevelAmount)
			res.ShippingWaivedBy = shipping.WaivedByCoupon
		}
	}
	if c != nil {
		res.Coupon.Applied = outcome.Applied()
		res.Coupon.Reason = outcome.Reason
		res.Coupon.Required = outcome.Required
	}
	res.CouponDiscountAmount = res.CouponDiscountAmount.Round(2)

	if err := applyTax(req, items, res); err != nil {
		return nil, err
	}

	res.Items = items
	res.GrandTotal = res.DiscountedSubtotal.
		Add(res.ShippingCost).
		Add(res.SalesTax).
		Add(res.ShippingTax)
	if res.GrandTotal.IsNegative() {
		res.GrandTotal = zero
	}
	return res, nil
}

// admitCoupon validates the requested coupon. It returns a nil coupon when
// none was requested or when it failed validation; in the latter case the
// reason is recorded on res.
func (e *Engine) admitCoupon(req Request, res *Result) (*coupon.Coupon, coupon.Strategy, error) {
	c := req.Coupon
	if c == nil {
		return nil, nil, nil
	}
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}
	strategy, err := coupon.StrategyFor(c.Category)
	if err != nil {
		return nil, nil, err
	}

	res.Coupon = &CouponStatus{Code: c.Code, Category: c.Category, Required: zero}

	now := req.Now
	if now.IsZero() {
		now = e.now()
	}
	if reason := coupon.Validate(c, req.Usage, req.Email, now); reason != coupon.ReasonNone {
		res.Coupon.Reason = reason
		return nil, nil, nil
	}
	return c, strategy, nil
}

func (e *Engine) resolveShipping(region *shipping.Region, totalWeight, subtotal decimal.Decimal) (shipping.Quote, error) {
	if region == nil {
		return shipping.Quote{Rate: zero}, nil
	}
	return e.shipping.Resolve(region, totalWeight, subtotal)
}

// sumWeight validates the items and returns their cumulative weight in unit.
func sumWeight(items []cart.Item, unit weight.Unit) (decimal.Decimal, error) {
	total := zero
	for i, it := range items {
		switch {
		case it.Quantity < 1:
			return zero, &InvalidItemError{Index: i, ProductID: it.ProductID, Reason: "quantity must be at least 1"}
		case it.UnitPrice.IsNegative():
			return zero, &InvalidItemError{Index: i, ProductID: it.ProductID, Reason: "negative unit price"}
		case it.Weight.IsNegative():
			return zero, &InvalidItemError{Index: i, ProductID: it.ProductID, Reason: "negative weight"}
		}
		from := it.WeightUnit
		if from == "" {
			from = unit
		}
		w, err := weight.Convert(it.Weight.Mul(decimal.NewFromInt(int64(it.Quantity))), from, unit)
		if err != nil {
			return zero, errors.Wrapf(err, "cart item %d", i)
		}
		total = total.Add(w)
	}
	return total, nil
}

// applyAdjustments returns copies of items with the outcome's discounts.
func applyAdjustments(items []cart.PricedItem, outcome coupon.Outcome) []cart.PricedItem {
	out := make([]cart.PricedItem, len(items))
	copy(out, items)
	if !outcome.Applied() {
		return out
	}
	for _, a := range outcome.Adjustments {
		it := out[a.Index]
		it.CouponApplicable = a.Applicable
		it.UnitDiscount = a.UnitDiscount
		it.TotalDiscount = a.TotalDiscount
		it.UnitDiscountedPrice = it.UnitPrice.Sub(a.UnitDiscount)
		it.TotalDiscountedPrice = it.LineTotal().Sub(a.TotalDiscount)
		out[a.Index] = it
	}
	return out
}

// applyTax fills the item and order tax fields on res.
func applyTax(req Request, items []cart.PricedItem, res *Result) error {
	res.SalesTax, res.ShippingTax, res.TotalTaxableAmount = zero, zero, zero
	res.IncludedSalesTax, res.IncludedShippingTax = zero, zero
	if !req.Tax.Enabled {
		return nil
	}

	calc := tax.Calculator{Mode: req.Tax.Mode, Shipping: req.Tax.Shipping}
	itemTax := zero
	for i, it := range items {
		if !it.Taxable {
			continue
		}
		rate, ok := req.TaxRates[it.ProductID]
		if !ok {
			rate = req.DefaultTaxRate
		}
		line, err := calc.Line(it.TotalDiscountedPrice, rate)
		if err != nil {
			return errors.Wrapf(err, "tax for cart item %d", i)
		}
		items[i].TaxRate = rate
		items[i].Tax = line.Tax
		itemTax = itemTax.Add(line.Tax)
		res.TotalTaxableAmount = res.TotalTaxableAmount.Add(it.TotalDiscountedPrice)
	}
	res.TotalTaxableAmount = res.TotalTaxableAmount.Round(2)

	shippingLine, err := calc.ShippingLine(res.ShippingCost, req.ShippingTaxRate)
	if err != nil {
		return errors.Wrap(err, "shipping tax")
	}

	if req.Tax.Mode == tax.Inclusive {
		res.IncludedSalesTax = itemTax
		res.IncludedShippingTax = shippingLine.Tax
		return nil
	}
	res.SalesTax = itemTax
	res.ShippingTax = shippingLine.Tax
	return nil
}

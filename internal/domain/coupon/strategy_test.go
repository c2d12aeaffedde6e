package coupon

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inventicabv/simonisvis.nl-sub000/internal/domain/cart"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func item(product, category, price string, qty int) cart.Item {
	return cart.Item{ProductID: product, CategoryID: category, UnitPrice: d(price), Quantity: qty}
}

// priced builds matched priced items and the whole-cart aggregates.
func priced(c *Coupon, items ...cart.Item) ([]cart.PricedItem, Aggregates) {
	out := make([]cart.PricedItem, len(items))
	agg := Aggregates{Subtotal: decimal.Zero}
	for i, it := range items {
		out[i] = cart.Priced(it)
		agg.Subtotal = agg.Subtotal.Add(it.LineTotal())
		agg.Quantity += it.Quantity
	}
	return Match(out, c), agg
}

func sumDiscounts(o Outcome) decimal.Decimal {
	total := decimal.Zero
	for _, a := range o.Adjustments {
		total = total.Add(a.TotalDiscount)
	}
	return total
}

func TestStrategyFor(t *testing.T) {
	for category, want := range map[Category]Strategy{
		CategoryDiscount:     PercentOrFixedDiscount{},
		CategoryFreeShipping: FreeShipping{},
		CategorySalePrice:    SalePriceCap{},
	} {
		got, err := StrategyFor(category)
		require.NoError(t, err)
		assert.IsType(t, want, got)
	}

	_, err := StrategyFor(Category("bogus"))
	require.ErrorIs(t, err, ErrUnknownCategory)
}

func TestPercentOrFixedDiscount(t *testing.T) {
	tests := []struct {
		name         string
		coupon       *Coupon
		items        []cart.Item
		wantStatus   Status
		wantReason   Reason
		wantDiscount decimal.Decimal
		wantLines    []string
	}{
		{
			name: "10 percent off all products",
			coupon: &Coupon{
				Category: CategoryDiscount, DiscountType: DiscountPercent, DiscountValue: d("10"),
				AppliesTo: ScopeAllProducts,
			},
			items:        []cart.Item{item("p1", "c1", "50", 1), item("p2", "c1", "25", 2)},
			wantStatus:   StatusApplied,
			wantDiscount: d("10"),
			wantLines:    []string{"5", "5"},
		},
		{
			name: "percent is applied per unit and rounded",
			coupon: &Coupon{
				Category: CategoryDiscount, DiscountType: DiscountPercent, DiscountValue: d("15"),
				AppliesTo: ScopeAllProducts,
			},
			items:        []cart.Item{item("p1", "c1", "9.99", 3)},
			wantStatus:   StatusApplied,
			wantDiscount: d("4.50"),
			wantLines:    []string{"4.50"},
		},
		{
			name: "percent above 100 is capped",
			coupon: &Coupon{
				Category: CategoryDiscount, DiscountType: DiscountPercent, DiscountValue: d("150"),
				AppliesTo: ScopeAllProducts,
			},
			items:        []cart.Item{item("p1", "c1", "20", 2)},
			wantStatus:   StatusApplied,
			wantDiscount: d("40"),
			wantLines:    []string{"40"},
		},
		{
			name: "percent restricted to category",
			coupon: &Coupon{
				Category: CategoryDiscount, DiscountType: DiscountPercent, DiscountValue: d("50"),
				AppliesTo: ScopeSpecificCategories, Categories: []string{"sale"},
			},
			items:        []cart.Item{item("p1", "sale", "30", 1), item("p2", "full", "70", 1)},
			wantStatus:   StatusApplied,
			wantDiscount: d("15"),
			wantLines:    []string{"15"},
		},
		{
			name: "fixed split proportionally",
			coupon: &Coupon{
				Category: CategoryDiscount, DiscountType: DiscountFixed, DiscountValue: d("10"),
				AppliesTo: ScopeAllProducts,
			},
			items:        []cart.Item{item("p1", "c1", "30", 1), item("p2", "c1", "10", 1)},
			wantStatus:   StatusApplied,
			wantDiscount: d("10"),
			wantLines:    []string{"7.5", "2.5"},
		},
		{
			name: "fixed remainder goes to last item",
			coupon: &Coupon{
				Category: CategoryDiscount, DiscountType: DiscountFixed, DiscountValue: d("10"),
				AppliesTo: ScopeAllProducts,
			},
			items: []cart.Item{
				item("p1", "c1", "10", 1), item("p2", "c1", "10", 1), item("p3", "c1", "10", 1),
			},
			wantStatus:   StatusApplied,
			wantDiscount: d("10"),
			wantLines:    []string{"3.33", "3.33", "3.34"},
		},
		{
			name: "fixed capped at calculable subtotal",
			coupon: &Coupon{
				Category: CategoryDiscount, DiscountType: DiscountFixed, DiscountValue: d("200"),
				AppliesTo: ScopeSpecificProducts, Products: map[string][]string{"p1": nil},
			},
			items:        []cart.Item{item("p1", "c1", "40", 2), item("p2", "c1", "100", 1)},
			wantStatus:   StatusApplied,
			wantDiscount: d("80"),
			wantLines:    []string{"80"},
		},
		{
			name: "minimum purchase on whole cart for all products",
			coupon: &Coupon{
				Category: CategoryDiscount, DiscountType: DiscountPercent, DiscountValue: d("10"),
				AppliesTo: ScopeAllProducts, Requirement: RequirementMinimumPurchase, RequirementValue: d("150"),
			},
			items:        []cart.Item{item("p1", "c1", "100", 1)},
			wantStatus:   StatusRejected,
			wantReason:   ReasonMinimumPurchase,
			wantDiscount: decimal.Zero,
		},
		{
			name: "minimum purchase met exactly",
			coupon: &Coupon{
				Category: CategoryDiscount, DiscountType: DiscountPercent, DiscountValue: d("10"),
				AppliesTo: ScopeAllProducts, Requirement: RequirementMinimumPurchase, RequirementValue: d("100"),
			},
			items:        []cart.Item{item("p1", "c1", "100", 1)},
			wantStatus:   StatusApplied,
			wantDiscount: d("10"),
			wantLines:    []string{"10"},
		},
		{
			name: "minimum purchase counts matched items only when scoped",
			coupon: &Coupon{
				Category: CategoryDiscount, DiscountType: DiscountPercent, DiscountValue: d("10"),
				AppliesTo: ScopeSpecificCategories, Categories: []string{"c1"},
				Requirement: RequirementMinimumPurchase, RequirementValue: d("50"),
			},
			items:        []cart.Item{item("p1", "c1", "20", 1), item("p2", "c2", "200", 1)},
			wantStatus:   StatusRejected,
			wantReason:   ReasonMinimumPurchase,
			wantDiscount: decimal.Zero,
		},
		{
			name: "minimum quantity counts matched items only when scoped",
			coupon: &Coupon{
				Category: CategoryDiscount, DiscountType: DiscountFixed, DiscountValue: d("5"),
				AppliesTo: ScopeSpecificProducts, Products: map[string][]string{"p1": nil},
				Requirement: RequirementMinimumQuantity, RequirementValue: d("3"),
			},
			items:        []cart.Item{item("p1", "c1", "20", 2), item("p2", "c1", "5", 4)},
			wantStatus:   StatusRejected,
			wantReason:   ReasonMinimumQuantity,
			wantDiscount: decimal.Zero,
		},
		{
			name: "no matched items",
			coupon: &Coupon{
				Category: CategoryDiscount, DiscountType: DiscountPercent, DiscountValue: d("10"),
				AppliesTo: ScopeSpecificCategories, Categories: []string{"none"},
			},
			items:        []cart.Item{item("p1", "c1", "20", 1)},
			wantStatus:   StatusRejected,
			wantReason:   ReasonNoEligibleItems,
			wantDiscount: decimal.Zero,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, agg := priced(tt.coupon, tt.items...)
			got := PercentOrFixedDiscount{}.Apply(items, tt.coupon, agg)

			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.wantReason, got.Reason)
			assert.True(t, tt.wantDiscount.Equal(got.ItemDiscount),
				"expected discount %s, got %s", tt.wantDiscount, got.ItemDiscount)
			assert.True(t, got.OrderLevelAmount.IsZero())
			require.Len(t, got.Adjustments, len(tt.wantLines))
			for i, want := range tt.wantLines {
				assert.True(t, d(want).Equal(got.Adjustments[i].TotalDiscount),
					"line %d: expected %s, got %s", i, want, got.Adjustments[i].TotalDiscount)
			}
		})
	}
}

func TestPercentOrFixedDiscount_RequirementReasonCarriesValue(t *testing.T) {
	c := &Coupon{
		Category: CategoryDiscount, DiscountType: DiscountPercent, DiscountValue: d("10"),
		AppliesTo: ScopeAllProducts, Requirement: RequirementMinimumPurchase, RequirementValue: d("50"),
	}
	items, agg := priced(c, item("p1", "c1", "20", 1))

	got := PercentOrFixedDiscount{}.Apply(items, c, agg)

	require.False(t, got.Applied())
	assert.True(t, d("50").Equal(got.Required))
	rej := &RejectionError{Code: "X", Reason: got.Reason, Required: got.Required}
	assert.Equal(t, "Coupon requires a minimum purchase of 50.00", rej.Message())
}

func TestFixedDiscount_NoRoundingLeakage(t *testing.T) {
	prices := [][]string{
		{"0.01", "0.01", "0.01"},
		{"19.99", "0.99", "5.49"},
		{"3.33", "3.33", "3.34", "100"},
		{"7", "7", "7", "7", "7", "7", "7"},
		{"1234.56", "0.05"},
		{"0.10", "999.90"},
	}
	values := []string{"0.01", "0.03", "1", "9.99", "10", "33.33", "250", "5000"}

	for _, set := range prices {
		for _, v := range values {
			c := &Coupon{
				Category: CategoryDiscount, DiscountType: DiscountFixed, DiscountValue: d(v),
				AppliesTo: ScopeAllProducts,
			}
			lines := make([]cart.Item, len(set))
			for i, p := range set {
				lines[i] = item("p", "c", p, i%3+1)
			}
			items, agg := priced(c, lines...)

			got := PercentOrFixedDiscount{}.Apply(items, c, agg)

			require.True(t, got.Applied())
			want := decimal.Min(d(v), agg.Subtotal)
			assert.True(t, want.Equal(sumDiscounts(got)), "prices %v value %s: sum %s", set, v, sumDiscounts(got))
			for _, a := range got.Adjustments {
				line := items[a.Index].LineTotal()
				assert.False(t, a.TotalDiscount.IsNegative())
				assert.True(t, a.TotalDiscount.LessThanOrEqual(line),
					"prices %v value %s: share %s exceeds line %s", set, v, a.TotalDiscount, line)
			}
		}
	}
}

func TestAllocate_HandsExcessBack(t *testing.T) {
	// Floor rounding leaves 0.03 for the last line, which only holds 0.01.
	lines := []decimal.Decimal{d("0.05"), d("0.05"), d("0.05"), d("0.01")}
	shares := allocate(d("0.15"), lines)

	want := []string{"0.04", "0.05", "0.05", "0.01"}
	total := decimal.Zero
	for i, s := range shares {
		assert.True(t, d(want[i]).Equal(s), "share %d: expected %s, got %s", i, want[i], s)
		total = total.Add(s)
	}
	assert.True(t, d("0.15").Equal(total))
}

func TestFreeShipping(t *testing.T) {
	base := func() *Coupon {
		return &Coupon{Category: CategoryFreeShipping, AppliesTo: ScopeAllProducts, CountryType: CountriesAll}
	}
	tests := []struct {
		name       string
		coupon     func() *Coupon
		country    string
		wantReason Reason
		wantAmount decimal.Decimal
	}{
		{
			name:       "any country",
			coupon:     base,
			country:    "NL",
			wantAmount: d("6.95"),
		},
		{
			name: "allowed country",
			coupon: func() *Coupon {
				c := base()
				c.CountryType = CountriesSpecific
				c.Countries = []string{"NL", "BE"}
				return c
			},
			country:    "be",
			wantAmount: d("6.95"),
		},
		{
			name: "country not allowed",
			coupon: func() *Coupon {
				c := base()
				c.CountryType = CountriesSpecific
				c.Countries = []string{"NL"}
				return c
			},
			country:    "DE",
			wantReason: ReasonCountryNotEligible,
			wantAmount: decimal.Zero,
		},
		{
			name: "requirement checked on whole cart",
			coupon: func() *Coupon {
				c := base()
				c.AppliesTo = ScopeSpecificCategories
				c.Categories = []string{"none"}
				c.Requirement = RequirementMinimumPurchase
				c.RequirementValue = d("60")
				return c
			},
			country:    "NL",
			wantAmount: d("6.95"),
		},
		{
			name: "requirement not met",
			coupon: func() *Coupon {
				c := base()
				c.Requirement = RequirementMinimumQuantity
				c.RequirementValue = d("5")
				return c
			},
			country:    "NL",
			wantReason: ReasonMinimumQuantity,
			wantAmount: decimal.Zero,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.coupon()
			items, agg := priced(c, item("p1", "c1", "40", 1), item("p2", "c1", "30", 1))
			agg.Country = tt.country
			agg.ShippingRate = d("6.95")

			got := FreeShipping{}.Apply(items, c, agg)

			assert.Equal(t, tt.wantReason, got.Reason)
			assert.Equal(t, tt.wantReason == ReasonNone, got.Applied())
			assert.True(t, tt.wantAmount.Equal(got.OrderLevelAmount),
				"expected %s, got %s", tt.wantAmount, got.OrderLevelAmount)
			assert.True(t, got.ItemDiscount.IsZero())
			assert.Empty(t, got.Adjustments)
		})
	}
}

func TestSalePriceCap(t *testing.T) {
	c := &Coupon{Category: CategorySalePrice, SaleValue: d("15"), AppliesTo: ScopeAllProducts}
	items, agg := priced(c,
		item("expensive", "c1", "40", 2),
		item("cheap", "c1", "10", 1),
		item("exact", "c1", "15", 3),
	)

	got := SalePriceCap{}.Apply(items, c, agg)

	require.True(t, got.Applied())
	require.Len(t, got.Adjustments, 3)

	assert.True(t, got.Adjustments[0].Applicable)
	assert.True(t, d("25").Equal(got.Adjustments[0].UnitDiscount))
	assert.True(t, d("50").Equal(got.Adjustments[0].TotalDiscount))

	for _, a := range got.Adjustments[1:] {
		assert.False(t, a.Applicable)
		assert.True(t, a.TotalDiscount.IsZero())
	}
	assert.True(t, d("50").Equal(got.ItemDiscount))
}

func TestSalePriceCap_Rejections(t *testing.T) {
	t.Run("nothing above sale value", func(t *testing.T) {
		c := &Coupon{Category: CategorySalePrice, SaleValue: d("50"), AppliesTo: ScopeAllProducts}
		items, agg := priced(c, item("p1", "c1", "40", 1))

		got := SalePriceCap{}.Apply(items, c, agg)
		assert.Equal(t, ReasonNoEligibleItems, got.Reason)
		assert.True(t, got.ItemDiscount.IsZero())
	})

	t.Run("requirement over matched items", func(t *testing.T) {
		c := &Coupon{
			Category: CategorySalePrice, SaleValue: d("5"),
			AppliesTo: ScopeSpecificProducts, Products: map[string][]string{"p1": nil},
			Requirement: RequirementMinimumQuantity, RequirementValue: d("2"),
		}
		items, agg := priced(c, item("p1", "c1", "40", 1), item("p2", "c1", "10", 5))

		got := SalePriceCap{}.Apply(items, c, agg)
		assert.Equal(t, ReasonMinimumQuantity, got.Reason)
	})
}

func TestSalePriceCap_NeverRaisesPrice(t *testing.T) {
	for _, sale := range []string{"0", "0.01", "9.99", "10", "10.01", "99"} {
		c := &Coupon{Category: CategorySalePrice, SaleValue: d(sale), AppliesTo: ScopeAllProducts}
		items, agg := priced(c, item("a", "c", "10", 1), item("b", "c", "0", 2), item("c", "c", "55.55", 3))

		got := SalePriceCap{}.Apply(items, c, agg)
		for _, a := range got.Adjustments {
			it := items[a.Index]
			assert.False(t, a.UnitDiscount.IsNegative(), "sale %s", sale)
			if !it.UnitPrice.GreaterThan(d(sale)) {
				assert.True(t, a.TotalDiscount.IsZero(), "sale %s: item at %s discounted", sale, it.UnitPrice)
			}
		}
	}
}

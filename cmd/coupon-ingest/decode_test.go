package main

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inventicabv/simonisvis.nl-sub000/internal/domain/coupon"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestDecodeCoupon(t *testing.T) {
	line := `{
		"code": " summer25 ",
		"description": "Summer sale",
		"category": "discount",
		"discountType": "percent",
		"discountValue": "25",
		"appliesTo": "specific_products",
		"products": {"p1": ["s1", "s2"], "p2": null},
		"requirement": "minimum_purchase",
		"requirementValue": 50.5,
		"usageLimit": 100,
		"perUserLimit": 1,
		"countryType": "specific",
		"countries": ["us", "CA"],
		"startsAt": "2026-06-01T00:00:00Z",
		"endsAt": "2026-09-01T00:00:00Z",
		"note": {"ignored": true}
	}`

	c, err := decodeCoupon([]byte(line))
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, "SUMMER25", c.Code)
	assert.Equal(t, "Summer sale", c.Description)
	assert.Equal(t, coupon.CategoryDiscount, c.Category)
	assert.Equal(t, coupon.DiscountPercent, c.DiscountType)
	assert.True(t, d("25").Equal(c.DiscountValue))
	assert.Equal(t, coupon.ScopeSpecificProducts, c.AppliesTo)
	assert.Equal(t, []string{"s1", "s2"}, c.Products["p1"])
	assert.Contains(t, c.Products, "p2")
	assert.Empty(t, c.Products["p2"])
	assert.Equal(t, coupon.RequirementMinimumPurchase, c.Requirement)
	assert.True(t, d("50.5").Equal(c.RequirementValue))
	assert.True(t, c.UsageLimitEnabled)
	assert.Equal(t, 100, c.UsageLimit)
	assert.True(t, c.PerUserLimitEnabled)
	assert.Equal(t, 1, c.PerUserLimit)
	assert.Equal(t, coupon.CountriesSpecific, c.CountryType)
	assert.Equal(t, []string{"US", "CA"}, c.Countries)
	assert.True(t, c.HasDateWindow)
	assert.Equal(t, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), c.StartsAt.UTC())
	assert.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), c.EndsAt.UTC())
}

func TestDecodeCoupon_Defaults(t *testing.T) {
	c, err := decodeCoupon([]byte(`{"code":"SHIPFREE","category":"free_shipping","usageLimit":null,"startsAt":null}`))
	require.NoError(t, err)

	assert.Equal(t, coupon.ScopeAllProducts, c.AppliesTo)
	assert.Equal(t, coupon.RequirementNone, c.Requirement)
	assert.Equal(t, coupon.CountriesAll, c.CountryType)
	assert.False(t, c.UsageLimitEnabled)
	assert.False(t, c.PerUserLimitEnabled)
	assert.False(t, c.HasDateWindow)
}

func TestDecodeCoupon_Errors(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{name: "not an object", line: `["SAVE10"]`},
		{name: "truncated", line: `{"code":"SAVE10"`},
		{name: "missing code", line: `{"category":"discount"}`},
		{name: "blank code", line: `{"code":"   "}`},
		{name: "bad decimal", line: `{"code":"X","discountValue":"ten"}`},
		{name: "decimal as bool", line: `{"code":"X","discountValue":true}`},
		{name: "bad time", line: `{"code":"X","startsAt":"yesterday","endsAt":"2026-01-01T00:00:00Z"}`},
		{name: "half window", line: `{"code":"X","endsAt":"2026-01-01T00:00:00Z"}`},
		{name: "negative limit", line: `{"code":"X","usageLimit":-1}`},
		{name: "limit as string", line: `{"code":"X","perUserLimit":"1"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeCoupon([]byte(tt.line))
			require.Error(t, err)
		})
	}
}

package coupon

import (
	"strings"

	"github.com/inventicabv/simonisvis.nl-sub000/internal/domain/cart"
)

// FreeShipping handles CategoryFreeShipping coupons.
type FreeShipping struct{}

// Apply waives the resolved shipping rate when the destination is allowed and
// the whole cart meets the purchase requirement.
func (FreeShipping) Apply(items []cart.PricedItem, c *Coupon, agg Aggregates) Outcome {
	if c.CountryType == CountriesSpecific && !countryAllowed(c.Countries, agg.Country) {
		return rejected(ReasonCountryNotEligible, zero)
	}
	if reason := checkRequirement(c, agg.Subtotal, agg.Quantity); reason != ReasonNone {
		return rejected(reason, c.RequirementValue)
	}
	return applied(nil, agg.ShippingRate)
}

func countryAllowed(allowed []string, country string) bool {
	for _, a := range allowed {
		if strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(country)) {
			return true
		}
	}
	return false
}

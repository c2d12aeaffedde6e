package shipping

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// WaiveReason tells why a quote came out free.
type WaiveReason string

const (
	WaivedByMethod    WaiveReason = "free_method"
	WaivedByThreshold WaiveReason = "free_threshold"
	WaivedByNoTier    WaiveReason = "no_matching_tier"
	WaivedByCoupon    WaiveReason = "coupon"
)

// Quote is the resolved shipping rate for a cart.
type Quote struct {
	Rate     decimal.Decimal
	Waived   bool
	WaivedBy WaiveReason
}

// Resolver picks the applicable rate for a region.
type Resolver struct {
	// FailClosed makes an unmatched weight an error instead of free shipping.
	FailClosed bool
}

// Resolve returns the shipping quote for the given cart weight and subtotal.
func (r Resolver) Resolve(region *Region, totalWeight, subtotal decimal.Decimal) (Quote, error) {
	if region == nil {
		return Quote{}, errors.Wrap(ErrInvalidRegion, "nil region")
	}
	if err := region.Validate(); err != nil {
		return Quote{}, err
	}

	var q Quote
	switch region.Method {
	case MethodFlat:
		q.Rate = region.FlatRate
	case MethodFree:
		q = Quote{Rate: decimal.Zero, Waived: true, WaivedBy: WaivedByMethod}
	case MethodWeight:
		tier, ok := matchTier(region.Tiers, totalWeight)
		switch {
		case ok:
			q.Rate = tier.Rate
		case r.FailClosed:
			return Quote{}, errors.Wrapf(ErrNoMatchingTier, "weight %s in region %s", totalWeight, region.ID)
		default:
			q = Quote{Rate: decimal.Zero, Waived: true, WaivedBy: WaivedByNoTier}
		}
	}

	if region.FreeThreshold.Valid && subtotal.GreaterThan(region.FreeThreshold.Decimal) && !q.Rate.IsZero() {
		q = Quote{Rate: decimal.Zero, Waived: true, WaivedBy: WaivedByThreshold}
	}
	q.Rate = q.Rate.Round(2)
	return q, nil
}

// matchTier returns the first tier containing w.
func matchTier(tiers []Tier, w decimal.Decimal) (Tier, bool) {
	for _, t := range tiers {
		if t.Contains(w) {
			return t, true
		}
	}
	return Tier{}, false
}

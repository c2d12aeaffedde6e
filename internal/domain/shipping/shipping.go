// Package shipping resolves the shipping rate for a destination region and
// cart weight.
package shipping

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Method is the rate calculation method configured for a region.
type Method string

const (
	MethodFlat   Method = "flat"
	MethodFree   Method = "free"
	MethodWeight Method = "weight"
)

var (
	// ErrInvalidRegion is returned when a region carries an unknown method or
	// malformed weight tiers.
	ErrInvalidRegion = errors.New("invalid shipping region")
	// ErrNoMatchingTier is returned by a fail-closed Resolver when no weight
	// tier covers the cart weight.
	ErrNoMatchingTier = errors.New("no shipping tier matches cart weight")
	// ErrRegionNotFound is returned by repositories when no region is
	// configured for a destination.
	ErrRegionNotFound = errors.New("shipping region not found")
)

// Tier is a weight band. To is open-ended when not valid.
type Tier struct {
	From decimal.Decimal
	To   decimal.NullDecimal
	Rate decimal.Decimal
}

// Contains reports whether w falls inside the tier. Both bounds are inclusive.
func (t Tier) Contains(w decimal.Decimal) bool {
	if w.LessThan(t.From) {
		return false
	}
	return !t.To.Valid || w.LessThanOrEqual(t.To.Decimal)
}

// Region is the shipping configuration resolved for a destination.
type Region struct {
	ID      string
	Country string
	State   string
	Method  Method
	// FlatRate is used by MethodFlat.
	FlatRate decimal.Decimal
	// Tiers are ordered by From and expressed in the shop's standard weight unit.
	Tiers []Tier
	// FreeThreshold waives shipping when the subtotal strictly exceeds it.
	FreeThreshold decimal.NullDecimal
}

// Validate checks the method and the tier layout. Adjacent tiers may share a
// boundary; only the last tier may be open-ended.
func (r *Region) Validate() error {
	switch r.Method {
	case MethodFlat:
		if r.FlatRate.IsNegative() {
			return errors.Wrap(ErrInvalidRegion, "negative flat rate")
		}
	case MethodFree:
	case MethodWeight:
		for i, t := range r.Tiers {
			if t.From.IsNegative() || t.Rate.IsNegative() {
				return errors.Wrapf(ErrInvalidRegion, "tier %d: negative bound or rate", i)
			}
			if t.To.Valid && t.To.Decimal.LessThan(t.From) {
				return errors.Wrapf(ErrInvalidRegion, "tier %d: from %s above to %s", i, t.From, t.To.Decimal)
			}
			if i == 0 {
				continue
			}
			prev := r.Tiers[i-1]
			if !prev.To.Valid {
				return errors.Wrapf(ErrInvalidRegion, "tier %d follows an open-ended tier", i)
			}
			if t.From.LessThan(prev.To.Decimal) {
				return errors.Wrapf(ErrInvalidRegion, "tier %d overlaps tier %d", i, i-1)
			}
		}
	default:
		return errors.Wrapf(ErrInvalidRegion, "unknown method %q", r.Method)
	}
	return nil
}

// Repository resolves shipping configuration for a destination. An empty
// state selects the country-wide region.
type Repository interface {
	Region(ctx context.Context, country, state string) (*Region, error)
}

// Package tax computes sales tax for line items and shipping from a
// precomputed jurisdiction rate expressed in percent.
package tax

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Mode tells whether catalog prices already contain tax.
type Mode string

const (
	// Exclusive prices are net; tax is added on top at checkout.
	Exclusive Mode = "exclusive"
	// Inclusive prices are gross; tax is derived from them, never added.
	Inclusive Mode = "inclusive"
)

// ErrUnknownMode is returned for a Mode outside Exclusive and Inclusive.
var ErrUnknownMode = errors.New("unknown tax mode")

var hundred = decimal.NewFromInt(100)

// Amount returns price * rate / 100, unrounded.
func Amount(price, rate decimal.Decimal) decimal.Decimal {
	return price.Mul(rate).Div(hundred)
}

// PriceWithTax returns the gross price for a net price.
func PriceWithTax(price, rate decimal.Decimal) decimal.Decimal {
	return price.Add(Amount(price, rate))
}

// Embedded returns the tax contained in a gross price, unrounded.
func Embedded(gross, rate decimal.Decimal) decimal.Decimal {
	if rate.IsZero() {
		return decimal.Zero
	}
	return gross.Mul(rate).Div(hundred.Add(rate))
}

// Line is the tax breakdown of one amount. Tax is rounded to cents.
type Line struct {
	Net   decimal.Decimal
	Tax   decimal.Decimal
	Gross decimal.Decimal
}

// Calculator applies a shop's tax display mode.
type Calculator struct {
	Mode Mode
	// Shipping enables tax on the shipping cost.
	Shipping bool
}

// Line computes the tax for an amount priced in the calculator's mode.
func (c Calculator) Line(amount, rate decimal.Decimal) (Line, error) {
	if rate.IsNegative() {
		return Line{}, errors.Errorf("negative tax rate %s", rate)
	}
	switch c.Mode {
	case Exclusive, "":
		t := Amount(amount, rate).Round(2)
		return Line{Net: amount, Tax: t, Gross: amount.Add(t)}, nil
	case Inclusive:
		t := Embedded(amount, rate).Round(2)
		return Line{Net: amount.Sub(t), Tax: t, Gross: amount}, nil
	default:
		return Line{}, errors.Wrapf(ErrUnknownMode, "%q", c.Mode)
	}
}

// ShippingLine computes the tax on a shipping cost, or an untaxed line when
// shipping is not taxed.
func (c Calculator) ShippingLine(cost, rate decimal.Decimal) (Line, error) {
	if !c.Shipping {
		return Line{Net: cost, Tax: decimal.Zero, Gross: cost}, nil
	}
	return c.Line(cost, rate)
}

// Subject identifies what a rate is looked up for. An empty subject selects
// the jurisdiction default, which also applies to shipping.
type Subject struct {
	ProductID  string
	CategoryID string
}

// Repository resolves tax rates in percent for a destination.
type Repository interface {
	Rate(ctx context.Context, subject Subject, country, state string) (decimal.Decimal, error)
}

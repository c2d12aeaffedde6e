// Package weight converts product weights between the units a shop may use.
package weight

import (
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Unit is a weight unit code as stored on products and shipping tiers.
type Unit string

const (
	Gram     Unit = "g"
	Kilogram Unit = "kg"
	Ounce    Unit = "oz"
	Pound    Unit = "lb"
)

// ErrUnsupportedUnit is returned for unit codes outside the supported set.
var ErrUnsupportedUnit = errors.New("unsupported weight unit")

// conversionPrecision is the number of fractional digits kept after division.
const conversionPrecision = 18

// grams holds the exact number of grams in one of each unit.
var grams = map[Unit]decimal.Decimal{
	Gram:     decimal.NewFromInt(1),
	Kilogram: decimal.NewFromInt(1000),
	Ounce:    decimal.RequireFromString("28.349523125"),
	Pound:    decimal.RequireFromString("453.59237"),
}

// ParseUnit normalizes a unit code. Common long forms ("kilogram", "lbs") are
// accepted.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "g", "gr", "gram", "grams":
		return Gram, nil
	case "kg", "kilo", "kilogram", "kilograms":
		return Kilogram, nil
	case "oz", "ounce", "ounces":
		return Ounce, nil
	case "lb", "lbs", "pound", "pounds":
		return Pound, nil
	}
	return "", errors.Wrapf(ErrUnsupportedUnit, "%q", s)
}

// Valid reports whether u is a supported unit.
func (u Unit) Valid() bool {
	_, ok := grams[u]
	return ok
}

// Convert converts value from one unit to another.
func Convert(value decimal.Decimal, from, to Unit) (decimal.Decimal, error) {
	fromGrams, ok := grams[from]
	if !ok {
		return decimal.Zero, errors.Wrapf(ErrUnsupportedUnit, "from %q", from)
	}
	toGrams, ok := grams[to]
	if !ok {
		return decimal.Zero, errors.Wrapf(ErrUnsupportedUnit, "to %q", to)
	}
	if from == to {
		return value, nil
	}
	return value.Mul(fromGrams).DivRound(toGrams, conversionPrecision), nil
}

// Package cart holds the cart line snapshots the pricing engine works on.
package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/inventicabv/simonisvis.nl-sub000/internal/domain/weight"
)

// ErrNotFound is returned when a cart does not exist.
var ErrNotFound = errors.New("cart not found")

// Item is one cart line as read from the catalog at pricing time.
type Item struct {
	ProductID string
	// SKUID identifies the variant when HasVariants is set.
	SKUID       string
	CategoryID  string
	Quantity    int
	UnitPrice   decimal.Decimal
	Weight      decimal.Decimal
	WeightUnit  weight.Unit
	Taxable     bool
	HasVariants bool
}

// LineTotal returns UnitPrice * Quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// PricedItem is an Item annotated with its coupon discount and tax.
type PricedItem struct {
	Item

	CouponApplicable     bool
	UnitDiscount         decimal.Decimal
	TotalDiscount        decimal.Decimal
	UnitDiscountedPrice  decimal.Decimal
	TotalDiscountedPrice decimal.Decimal
	TaxRate              decimal.Decimal
	Tax                  decimal.Decimal
}

// Priced returns the item with no discount applied.
func Priced(it Item) PricedItem {
	return PricedItem{
		Item:                 it,
		UnitDiscount:         decimal.Zero,
		TotalDiscount:        decimal.Zero,
		UnitDiscountedPrice:  it.UnitPrice,
		TotalDiscountedPrice: it.LineTotal(),
		TaxRate:              decimal.Zero,
		Tax:                  decimal.Zero,
	}
}

// Repository loads the current lines of a cart.
type Repository interface {
	Items(ctx context.Context, cartID string) ([]Item, error)
}

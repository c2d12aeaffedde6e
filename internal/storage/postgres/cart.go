package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inventicabv/simonisvis.nl-sub000/internal/domain/cart"
	"github.com/inventicabv/simonisvis.nl-sub000/internal/domain/weight"
)

const (
	cartExistsSQL = `SELECT EXISTS (SELECT 1 FROM carts WHERE id = $1)`

	// Variant price and weight override the product's when set.
	cartItemsSQL = `SELECT ci.product_id, ci.sku_id, p.category_id, ci.quantity,
		COALESCE(s.price, p.price), COALESCE(s.weight, p.weight), p.weight_unit,
		p.taxable, p.has_variants
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		LEFT JOIN product_skus s ON s.id = ci.sku_id AND s.product_id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.id`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Items returns the cart lines joined with current catalog prices and
// weights. Returns cart.ErrNotFound for an unknown cart.
func (r *CartRepository) Items(ctx context.Context, cartID string) ([]cart.Item, error) {
	rows, err := r.pool.Query(ctx, cartItemsSQL, cartID)
	if err != nil {
		return nil, errors.Wrapf(err, "query cart %q", cartID)
	}
	items, err := pgx.CollectRows(rows, scanCartItem)
	if err != nil {
		return nil, errors.Wrapf(err, "scan cart %q", cartID)
	}
	if len(items) > 0 {
		return items, nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, cartExistsSQL, cartID).Scan(&exists); err != nil {
		return nil, errors.Wrapf(err, "check cart %q", cartID)
	}
	if !exists {
		return nil, cart.ErrNotFound
	}
	return items, nil
}

func scanCartItem(row pgx.CollectableRow) (cart.Item, error) {
	var (
		it   cart.Item
		unit string
	)
	err := row.Scan(
		&it.ProductID, &it.SKUID, &it.CategoryID, &it.Quantity,
		&it.UnitPrice, &it.Weight, &unit,
		&it.Taxable, &it.HasVariants,
	)
	it.WeightUnit = weight.Unit(unit)
	return it, err
}

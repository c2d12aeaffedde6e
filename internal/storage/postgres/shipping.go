package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/inventicabv/simonisvis.nl-sub000/internal/domain/shipping"
)

const (
	// A state-specific region wins over the country-wide one.
	regionSQL = `SELECT id, country, state, method, flat_rate, free_threshold
		FROM shipping_regions
		WHERE country = UPPER($1) AND state IN (UPPER($2), '')
		ORDER BY state <> '' DESC
		LIMIT 1`

	tiersSQL = `SELECT weight_from, weight_to, rate
		FROM shipping_tiers
		WHERE region_id = $1
		ORDER BY weight_from, position`
)

var _ shipping.Repository = (*ShippingRepository)(nil)

// ShippingRepository implements shipping.Repository backed by PostgreSQL.
type ShippingRepository struct {
	pool *pgxpool.Pool
}

// NewShippingRepository returns a ShippingRepository that uses the given pool.
func NewShippingRepository(pool *pgxpool.Pool) *ShippingRepository {
	return &ShippingRepository{pool: pool}
}

// Region returns the shipping configuration for a destination, falling back
// from the state to the whole country. Returns shipping.ErrRegionNotFound
// when neither is configured.
func (r *ShippingRepository) Region(ctx context.Context, country, state string) (*shipping.Region, error) {
	var (
		region    shipping.Region
		method    string
		threshold *decimal.Decimal
	)
	err := r.pool.QueryRow(ctx, regionSQL, country, state).Scan(
		&region.ID, &region.Country, &region.State, &method, &region.FlatRate, &threshold,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.Wrapf(shipping.ErrRegionNotFound, "%s/%s", country, state)
		}
		return nil, errors.Wrapf(err, "query region %s/%s", country, state)
	}
	region.Method = shipping.Method(method)
	if threshold != nil {
		region.FreeThreshold = decimal.NewNullDecimal(*threshold)
	}

	rows, err := r.pool.Query(ctx, tiersSQL, region.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "query tiers of %s", region.ID)
	}
	region.Tiers, err = pgx.CollectRows(rows, scanTier)
	if err != nil {
		return nil, errors.Wrapf(err, "scan tiers of %s", region.ID)
	}
	return &region, nil
}

func scanTier(row pgx.CollectableRow) (shipping.Tier, error) {
	var (
		t  shipping.Tier
		to *decimal.Decimal
	)
	if err := row.Scan(&t.From, &to, &t.Rate); err != nil {
		return t, err
	}
	if to != nil {
		t.To = decimal.NewNullDecimal(*to)
	}
	return t, nil
}

package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/inventicabv/simonisvis.nl-sub000/internal/domain/tax"
)

// Precedence: product rate, then category rate, then the jurisdiction
// default; a state row beats the country-wide row at the same level.
const taxRateSQL = `SELECT rate FROM tax_rates
	WHERE country = UPPER($1) AND state IN (UPPER($2), '')
		AND product_id IN ($3, '') AND category_id IN ($4, '')
	ORDER BY product_id <> '' DESC, category_id <> '' DESC, state <> '' DESC
	LIMIT 1`

var _ tax.Repository = (*TaxRepository)(nil)

// TaxRepository implements tax.Repository backed by PostgreSQL.
type TaxRepository struct {
	pool *pgxpool.Pool
}

// NewTaxRepository returns a TaxRepository that uses the given pool.
func NewTaxRepository(pool *pgxpool.Pool) *TaxRepository {
	return &TaxRepository{pool: pool}
}

// Rate returns the most specific rate for subject at the destination, or zero
// when the destination has no rates configured.
func (r *TaxRepository) Rate(ctx context.Context, subject tax.Subject, country, state string) (decimal.Decimal, error) {
	var rate decimal.Decimal
	err := r.pool.QueryRow(ctx, taxRateSQL, country, state, subject.ProductID, subject.CategoryID).Scan(&rate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, errors.Wrapf(err, "query tax rate %s/%s", country, state)
	}
	return rate, nil
}

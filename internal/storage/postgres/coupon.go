package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inventicabv/simonisvis.nl-sub000/internal/domain/coupon"
)

const (
	couponColumns = `id, code, description, category, discount_type, discount_value, sale_value,
		applies_to, category_ids, requirement, requirement_value, usage_limit, per_user_limit,
		country_type, countries, starts_at, ends_at`

	getCouponByCodeSQL = `SELECT ` + couponColumns + `
		FROM coupons WHERE code = UPPER($1) AND active = TRUE`

	couponProductsSQL = `SELECT product_id, sku_ids FROM coupon_products WHERE coupon_id = $1`

	usageRecordsSQL = `SELECT coupon_id, email, count FROM coupon_usage WHERE coupon_id = $1`

	lockCouponSQL = `SELECT usage_limit, per_user_limit FROM coupons WHERE id = $1 FOR UPDATE`

	usageTotalsSQL = `SELECT COALESCE(SUM(count), 0), COALESCE(SUM(count) FILTER (WHERE email = $2), 0)
		FROM coupon_usage WHERE coupon_id = $1`

	incrementUsageSQL = `INSERT INTO coupon_usage (coupon_id, email, count) VALUES ($1, $2, 1)
		ON CONFLICT (coupon_id, email) DO UPDATE SET count = coupon_usage.count + 1`

	insertRedemptionSQL = `INSERT INTO coupon_redemptions (coupon_id, order_ref, email) VALUES ($1, $2, $3)`

	upsertCouponSQL = `INSERT INTO coupons (` + couponColumns + `, active, updated_at)
		VALUES ($1, UPPER($2), $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, TRUE, now())
		ON CONFLICT (code) DO UPDATE SET
			description = EXCLUDED.description,
			category = EXCLUDED.category,
			discount_type = EXCLUDED.discount_type,
			discount_value = EXCLUDED.discount_value,
			sale_value = EXCLUDED.sale_value,
			applies_to = EXCLUDED.applies_to,
			category_ids = EXCLUDED.category_ids,
			requirement = EXCLUDED.requirement,
			requirement_value = EXCLUDED.requirement_value,
			usage_limit = EXCLUDED.usage_limit,
			per_user_limit = EXCLUDED.per_user_limit,
			country_type = EXCLUDED.country_type,
			countries = EXCLUDED.countries,
			starts_at = EXCLUDED.starts_at,
			ends_at = EXCLUDED.ends_at,
			active = TRUE,
			updated_at = now()
		RETURNING id`

	deleteCouponProductsSQL = `DELETE FROM coupon_products WHERE coupon_id = $1`

	insertCouponProductSQL = `INSERT INTO coupon_products (coupon_id, product_id, sku_ids) VALUES ($1, $2, $3)`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up an active coupon by its code (case-insensitive).
// Returns coupon.ErrNotFound when no matching active coupon exists.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, errors.Wrapf(err, "find coupon %q", code)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, errors.Wrapf(err, "find coupon %q", code)
	}

	if c.AppliesTo == coupon.ScopeSpecificProducts {
		rows, err := r.pool.Query(ctx, couponProductsSQL, c.ID)
		if err != nil {
			return nil, errors.Wrapf(err, "coupon %q products", code)
		}
		c.Products = make(map[string][]string)
		var (
			productID string
			skuIDs    []string
		)
		_, err = pgx.ForEachRow(rows, []any{&productID, &skuIDs}, func() error {
			c.Products[productID] = append([]string(nil), skuIDs...)
			return nil
		})
		if err != nil {
			return nil, errors.Wrapf(err, "coupon %q products", code)
		}
	}
	return &c, nil
}

// UsageRecords returns the redemption tallies of a coupon.
func (r *CouponRepository) UsageRecords(ctx context.Context, couponID string) ([]coupon.UsageRecord, error) {
	rows, err := r.pool.Query(ctx, usageRecordsSQL, couponID)
	if err != nil {
		return nil, errors.Wrapf(err, "usage of coupon %s", couponID)
	}
	records, err := pgx.CollectRows(rows, pgx.RowToStructByPos[coupon.UsageRecord])
	if err != nil {
		return nil, errors.Wrapf(err, "usage of coupon %s", couponID)
	}
	return records, nil
}

// Redeem records one use of c in a transaction that holds the coupon row lock
// while it re-checks the limits. Returns coupon.ErrUsageLimitReached or
// coupon.ErrPerUserLimitReached when the stored tallies no longer allow it.
func (r *CouponRepository) Redeem(ctx context.Context, c *coupon.Coupon, red coupon.Redemption) error {
	email := strings.ToLower(strings.TrimSpace(red.Email))
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var usageLimit, perUserLimit *int32
		if err := tx.QueryRow(ctx, lockCouponSQL, c.ID).Scan(&usageLimit, &perUserLimit); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return coupon.ErrNotFound
			}
			return errors.Wrapf(err, "lock coupon %s", c.Code)
		}

		var total, mine int64
		if err := tx.QueryRow(ctx, usageTotalsSQL, c.ID, email).Scan(&total, &mine); err != nil {
			return errors.Wrapf(err, "usage totals of %s", c.Code)
		}
		if usageLimit != nil && total >= int64(*usageLimit) {
			return errors.Wrapf(coupon.ErrUsageLimitReached, "%s: %d of %d", c.Code, total, *usageLimit)
		}
		if perUserLimit != nil && email != "" && mine >= int64(*perUserLimit) {
			return errors.Wrapf(coupon.ErrPerUserLimitReached, "%s: %d of %d", c.Code, mine, *perUserLimit)
		}

		if _, err := tx.Exec(ctx, incrementUsageSQL, c.ID, email); err != nil {
			return errors.Wrapf(err, "increment usage of %s", c.Code)
		}
		if _, err := tx.Exec(ctx, insertRedemptionSQL, c.ID, red.OrderRef, email); err != nil {
			return errors.Wrapf(err, "record redemption of %s", c.Code)
		}
		return nil
	})
}

// Upsert creates or replaces the coupon with c.Code and its product scope.
// A new coupon gets a generated id; the stored id is written back to c.
func (r *CouponRepository) Upsert(ctx context.Context, c *coupon.Coupon) error {
	if err := c.Validate(); err != nil {
		return err
	}
	id := c.ID
	if id == "" {
		id = uuid.NewString()
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, upsertCouponSQL,
			id, c.Code, c.Description, string(c.Category), string(c.DiscountType), c.DiscountValue, c.SaleValue,
			string(c.AppliesTo), nonNil(c.Categories), string(c.Requirement), c.RequirementValue,
			limitArg(c.UsageLimitEnabled, c.UsageLimit), limitArg(c.PerUserLimitEnabled, c.PerUserLimit),
			string(c.CountryType), nonNil(c.Countries),
			timeArg(c.HasDateWindow, c.StartsAt), timeArg(c.HasDateWindow, c.EndsAt),
		).Scan(&id)
		if err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.Code)
		}

		if _, err := tx.Exec(ctx, deleteCouponProductsSQL, id); err != nil {
			return errors.Wrapf(err, "clear products of %s", c.Code)
		}
		batch := &pgx.Batch{}
		for productID, skuIDs := range c.Products {
			batch.Queue(insertCouponProductSQL, id, productID, nonNil(skuIDs))
		}
		if batch.Len() > 0 {
			if err := tx.SendBatch(ctx, batch).Close(); err != nil {
				return errors.Wrapf(err, "insert products of %s", c.Code)
			}
		}
		c.ID = id
		return nil
	})
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c                        coupon.Coupon
		category, discountType   string
		scope, req, ctype        string
		usageLimit, perUserLimit *int32
		startsAt, endsAt         *time.Time
	)
	err := row.Scan(
		&c.ID, &c.Code, &c.Description, &category, &discountType, &c.DiscountValue, &c.SaleValue,
		&scope, &c.Categories, &req, &c.RequirementValue, &usageLimit, &perUserLimit,
		&ctype, &c.Countries, &startsAt, &endsAt,
	)
	c.Category = coupon.Category(category)
	c.DiscountType = coupon.DiscountType(discountType)
	c.AppliesTo = coupon.Scope(scope)
	c.Requirement = coupon.Requirement(req)
	c.CountryType = coupon.CountryType(ctype)
	if usageLimit != nil {
		c.UsageLimitEnabled, c.UsageLimit = true, int(*usageLimit)
	}
	if perUserLimit != nil {
		c.PerUserLimitEnabled, c.PerUserLimit = true, int(*perUserLimit)
	}
	if startsAt != nil && endsAt != nil {
		c.HasDateWindow, c.StartsAt, c.EndsAt = true, *startsAt, *endsAt
	}
	return c, err
}

func limitArg(enabled bool, limit int) *int32 {
	if !enabled {
		return nil
	}
	v := int32(limit)
	return &v
}

func timeArg(enabled bool, t time.Time) *time.Time {
	if !enabled {
		return nil
	}
	return &t
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

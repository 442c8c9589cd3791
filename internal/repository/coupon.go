package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Nickwenniyxiao-art/wayfair-clone/internal/domain/coupon"
)

const (
	getCouponByCodeSQL = `SELECT id, code, type, value, max_discount, min_order_amount,
		usage_limit, usage_count, per_user_limit, start_date, end_date, active
		FROM coupons WHERE UPPER(code) = UPPER($1)`

	// The usage_count bump locks the coupon row, serializing every
	// redemption of the same code. The per-user count below therefore reads
	// a stable value.
	incrementCouponUsageSQL = `UPDATE coupons
		SET usage_count = usage_count + 1
		WHERE UPPER(code) = UPPER($1)
		  AND (usage_limit IS NULL OR usage_count < usage_limit)
		RETURNING code, per_user_limit`

	countUserRedemptionsSQL = `SELECT COUNT(*) FROM coupon_redemptions
		WHERE coupon_code = $1 AND user_id = $2`

	insertRedemptionSQL = `INSERT INTO coupon_redemptions (coupon_code, user_id, order_id)
		VALUES ($1, $2, $3)`
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

// FindByCode looks up a coupon by its code (case-insensitive).
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &coupon.InvalidError{Code: code, Reason: coupon.ReasonNotFound}
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &c, nil
}

// redeemCoupon performs the atomic limit checks and counter updates for one
// redemption within the order-creation transaction.
func redeemCoupon(ctx context.Context, tx pgx.Tx, code string, userID, orderID int64) error {
	var (
		canonical    string
		perUserLimit int
	)
	err := tx.QueryRow(ctx, incrementCouponUsageSQL, code).Scan(&canonical, &perUserLimit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Either the code does not exist or the global limit is spent.
			// The engine validated existence before redeeming, so report the
			// limit.
			return coupon.ErrLimitExceeded
		}
		return fmt.Errorf("incrementing usage for coupon %q: %w", code, err)
	}

	var used int
	if err := tx.QueryRow(ctx, countUserRedemptionsSQL, canonical, userID).Scan(&used); err != nil {
		return fmt.Errorf("counting redemptions for coupon %q: %w", code, err)
	}
	if perUserLimit > 0 && used >= perUserLimit {
		return coupon.ErrLimitExceeded
	}

	if _, err := tx.Exec(ctx, insertRedemptionSQL, canonical, userID, orderID); err != nil {
		return fmt.Errorf("recording redemption for coupon %q: %w", code, err)
	}
	return nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var c coupon.Coupon
	err := row.Scan(
		&c.ID, &c.Code, &c.Type, &c.Value, &c.MaxDiscount, &c.MinOrderAmount,
		&c.UsageLimit, &c.UsageCount, &c.PerUserLimit, &c.StartDate, &c.EndDate, &c.Active,
	)
	return c, err
}

// internal/repository/postgres/promotional_offer_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"talentmarket-service/internal/domain/promotion"
	xerrors "talentmarket-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const offerColumns = `
	id, code, name, description,
	discount_type, discount_value, max_discount, minimum_purchase,
	applicable_to, start_date, end_date,
	usage_limit_per_user, usage_limit_total, current_usage_total,
	is_active, status, created_at, updated_at`

// uniqueViolation is the Postgres SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

type PromotionalOfferRepository struct {
	db   *DB
	pool Pool
}

func NewPromotionalOfferRepository(db *DB) *PromotionalOfferRepository {
	return &PromotionalOfferRepository{db: db, pool: db.Pool()}
}

func scanOffer(row pgx.Row) (*promotion.PromotionalOffer, error) {
	var o promotion.PromotionalOffer
	var applicable []string

	err := row.Scan(
		&o.ID, &o.Code, &o.Name, &o.Description,
		&o.Type, &o.Value, &o.MaxDiscount, &o.MinimumPurchase,
		&applicable, &o.StartDate, &o.EndDate,
		&o.UsageLimit.PerUser, &o.UsageLimit.Total, &o.CurrentUsage.Total,
		&o.IsActive, &o.Status, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	o.ApplicableTo = make([]promotion.ServiceType, 0, len(applicable))
	for _, s := range applicable {
		o.ApplicableTo = append(o.ApplicableTo, promotion.ServiceType(s))
	}

	return &o, nil
}

func serviceTypesToText(in []promotion.ServiceType) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, string(s))
	}
	return out
}

// Create inserts a new offer and fills in its generated fields.
func (r *PromotionalOfferRepository) Create(ctx context.Context, o *promotion.PromotionalOffer) error {
	query := `
		INSERT INTO promotional_offers (
			code, name, description,
			discount_type, discount_value, max_discount, minimum_purchase,
			applicable_to, start_date, end_date,
			usage_limit_per_user, usage_limit_total, current_usage_total,
			is_active, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 0, $13, $14)
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		o.Code, o.Name, o.Description,
		o.Type, o.Value, o.MaxDiscount, o.MinimumPurchase,
		serviceTypesToText(o.ApplicableTo), o.StartDate, o.EndDate,
		o.UsageLimit.PerUser, o.UsageLimit.Total,
		o.IsActive, o.Status,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return xerrors.ErrDuplicateEntry
		}
		return fmt.Errorf("failed to create offer: %w", err)
	}

	return nil
}

// FindByID retrieves an offer with its usage ledger.
func (r *PromotionalOfferRepository) FindByID(ctx context.Context, id int64) (*promotion.PromotionalOffer, error) {
	query := `SELECT ` + offerColumns + ` FROM promotional_offers WHERE id = $1`
	return r.findOne(ctx, query, id)
}

// FindByCode retrieves an offer by its (upper-cased) code with its usage ledger.
func (r *PromotionalOfferRepository) FindByCode(ctx context.Context, code string) (*promotion.PromotionalOffer, error) {
	query := `SELECT ` + offerColumns + ` FROM promotional_offers WHERE code = $1`
	return r.findOne(ctx, query, strings.ToUpper(code))
}

func (r *PromotionalOfferRepository) findOne(ctx context.Context, query string, arg interface{}) (*promotion.PromotionalOffer, error) {
	o, err := scanOffer(r.pool.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find offer: %w", err)
	}

	usage, err := r.usageFor(ctx, r.pool, o.ID)
	if err != nil {
		return nil, err
	}
	o.CurrentUsage.ByUsers = usage

	return o, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *PromotionalOfferRepository) usageFor(ctx context.Context, q querier, offerID int64) ([]promotion.UsageRecord, error) {
	rows, err := q.Query(ctx, `
		SELECT user_id, count, last_used
		FROM promotional_offer_usages
		WHERE offer_id = $1
		ORDER BY last_used DESC
	`, offerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load offer usage: %w", err)
	}
	defer rows.Close()

	records := []promotion.UsageRecord{}
	for rows.Next() {
		var rec promotion.UsageRecord
		if err := rows.Scan(&rec.UserID, &rec.Count, &rec.LastUsed); err != nil {
			return nil, fmt.Errorf("failed to scan offer usage: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Update writes the editable fields of an offer and stamps o.UpdatedAt.
// Ledger columns are never touched here; only RecordUsage changes them.
func (r *PromotionalOfferRepository) Update(ctx context.Context, o *promotion.PromotionalOffer) error {
	query := `
		UPDATE promotional_offers
		SET name = $1, description = $2, discount_value = $3, max_discount = $4,
		    minimum_purchase = $5, applicable_to = $6, start_date = $7, end_date = $8,
		    usage_limit_per_user = $9, usage_limit_total = $10, updated_at = $11
		WHERE id = $12
	`

	result, err := r.pool.Exec(
		ctx, query,
		o.Name, o.Description, o.Value, o.MaxDiscount,
		o.MinimumPurchase, serviceTypesToText(o.ApplicableTo), o.StartDate, o.EndDate,
		o.UsageLimit.PerUser, o.UsageLimit.Total, o.UpdatedAt, o.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update offer: %w", err)
	}

	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}

// UpdateStatus sets status and the is_active flag together.
func (r *PromotionalOfferRepository) UpdateStatus(ctx context.Context, id int64, status promotion.OfferStatus, isActive bool, now time.Time) error {
	query := `UPDATE promotional_offers SET status = $1, is_active = $2, updated_at = $3 WHERE id = $4`

	result, err := r.pool.Exec(ctx, query, status, isActive, now, id)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}

// Delete removes an offer that has never been redeemed.
func (r *PromotionalOfferRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM promotional_offers WHERE id = $1 AND current_usage_total = 0`, id)
	if err != nil {
		return fmt.Errorf("failed to delete offer: %w", err)
	}

	if result.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM promotional_offers WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check offer: %w", err)
		}
		if exists {
			return xerrors.ErrOfferInUse
		}
		return xerrors.ErrNotFound
	}

	return nil
}

// RecordUsage redeems the offer once for userID at now.
//
// The offer row is incremented with a conditional update, so a redemption
// only lands while the offer is active, inside its window and under the
// global cap, and the row lock it takes serialises concurrent redemptions of
// the same offer. The per-user row is then upserted under the same condition
// for the per-user cap. Either check failing rolls the whole redemption back.
//
// A refused increment returns ErrUsageLimitReached when the global cap is
// used up, ErrOfferUnavailable when the offer was deactivated or left its
// window, and ErrNotFound when it no longer exists.
func (r *PromotionalOfferRepository) RecordUsage(ctx context.Context, offerID, userID int64, now time.Time) (*promotion.PromotionalOffer, error) {
	var o *promotion.PromotionalOffer

	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		var perUser int
		err := tx.QueryRow(ctx, `
			UPDATE promotional_offers
			SET current_usage_total = current_usage_total + 1,
			    status = CASE
			        WHEN usage_limit_total IS NOT NULL AND current_usage_total + 1 >= usage_limit_total
			        THEN 'expired' ELSE status END,
			    updated_at = $2
			WHERE id = $1
			  AND is_active
			  AND status = 'active'
			  AND $2 BETWEEN start_date AND end_date
			  AND (usage_limit_total IS NULL OR current_usage_total < usage_limit_total)
			RETURNING usage_limit_per_user
		`, offerID, now).Scan(&perUser)
		if errors.Is(err, pgx.ErrNoRows) {
			return refusedUsage(ctx, tx, offerID)
		}
		if err != nil {
			return fmt.Errorf("failed to increment offer usage: %w", err)
		}

		result, err := tx.Exec(ctx, `
			INSERT INTO promotional_offer_usages (offer_id, user_id, count, last_used)
			VALUES ($1, $2, 1, $3)
			ON CONFLICT (offer_id, user_id) DO UPDATE
			SET count = promotional_offer_usages.count + 1,
			    last_used = EXCLUDED.last_used
			WHERE promotional_offer_usages.count < $4
		`, offerID, userID, now, perUser)
		if err != nil {
			return fmt.Errorf("failed to record user usage: %w", err)
		}
		if result.RowsAffected() == 0 {
			return xerrors.ErrPerUserLimitReached
		}

		o, err = scanOffer(tx.QueryRow(ctx, `SELECT `+offerColumns+` FROM promotional_offers WHERE id = $1`, offerID))
		if err != nil {
			return fmt.Errorf("failed to reload offer: %w", err)
		}
		o.CurrentUsage.ByUsers, err = r.usageFor(ctx, tx, offerID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return o, nil
}

// refusedUsage reports why the conditional increment matched no row.
func refusedUsage(ctx context.Context, tx pgx.Tx, offerID int64) error {
	var exhausted bool
	err := tx.QueryRow(ctx, `
		SELECT usage_limit_total IS NOT NULL AND current_usage_total >= usage_limit_total
		FROM promotional_offers
		WHERE id = $1
	`, offerID).Scan(&exhausted)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return xerrors.ErrNotFound
	case err != nil:
		return fmt.Errorf("failed to check offer state: %w", err)
	case exhausted:
		return xerrors.ErrUsageLimitReached
	}
	return xerrors.ErrOfferUnavailable
}

var offerSortColumns = map[string]string{
	"created_at": "created_at",
	"start_date": "start_date",
	"end_date":   "end_date",
	"code":       "code",
}

// List retrieves offers with filters. The Current filter is evaluated at now.
// Ledger entries are not loaded.
func (r *PromotionalOfferRepository) List(ctx context.Context, filters *promotion.OfferListFilters, now time.Time) ([]promotion.PromotionalOffer, int64, error) {
	conditions := []string{}
	args := []interface{}{}
	argPos := 1

	if filters.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *filters.Status)
		argPos++
	}

	if filters.Type != nil {
		conditions = append(conditions, fmt.Sprintf("discount_type = $%d", argPos))
		args = append(args, *filters.Type)
		argPos++
	}

	if filters.Current != nil && *filters.Current {
		conditions = append(conditions, fmt.Sprintf("start_date <= $%d AND end_date >= $%d", argPos, argPos))
		args = append(args, now)
		argPos++
	}

	if filters.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d OR code ILIKE $%d)", argPos, argPos, argPos))
		args = append(args, "%"+filters.Search+"%")
		argPos++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM promotional_offers "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count offers: %w", err)
	}

	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 {
		filters.PageSize = 20
	}

	sortBy, ok := offerSortColumns[filters.SortBy]
	if !ok {
		sortBy = "created_at"
	}
	sortOrder := "DESC"
	if strings.EqualFold(filters.SortOrder, "asc") {
		sortOrder = "ASC"
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM promotional_offers
		%s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, offerColumns, whereClause, sortBy, sortOrder, argPos, argPos+1)
	args = append(args, filters.PageSize, (filters.Page-1)*filters.PageSize)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list offers: %w", err)
	}
	defer rows.Close()

	offers := []promotion.PromotionalOffer{}
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan offer: %w", err)
		}
		offers = append(offers, *o)
	}

	return offers, total, rows.Err()
}

// GetActive returns offers that are active and inside their window at now.
func (r *PromotionalOfferRepository) GetActive(ctx context.Context, now time.Time) ([]promotion.PromotionalOffer, error) {
	query := `SELECT ` + offerColumns + `
		FROM promotional_offers
		WHERE is_active AND status = 'active' AND start_date <= $1 AND end_date >= $1
		  AND (usage_limit_total IS NULL OR current_usage_total < usage_limit_total)
		ORDER BY end_date ASC
	`

	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get active offers: %w", err)
	}
	defer rows.Close()

	offers := []promotion.PromotionalOffer{}
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan offer: %w", err)
		}
		offers = append(offers, *o)
	}

	return offers, rows.Err()
}

// GetStats retrieves offer statistics.
func (r *PromotionalOfferRepository) GetStats(ctx context.Context, now time.Time) (*promotion.OfferStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE is_active AND status = 'active' AND start_date <= $1 AND end_date >= $1),
			COUNT(*) FILTER (WHERE status = 'expired' OR end_date < $1),
			COALESCE(SUM(current_usage_total), 0),
			(SELECT COUNT(DISTINCT user_id) FROM promotional_offer_usages)
		FROM promotional_offers
	`

	var stats promotion.OfferStats
	err := r.pool.QueryRow(ctx, query, now).Scan(
		&stats.TotalOffers,
		&stats.ActiveOffers,
		&stats.ExpiredOffers,
		&stats.TotalUses,
		&stats.DistinctUsers,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	return &stats, nil
}

// ExistsByCode checks if an offer code is taken.
func (r *PromotionalOfferRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM promotional_offers WHERE code = $1)`, strings.ToUpper(code)).Scan(&exists)
	return exists, err
}

// internal/repository/postgres/sweep_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"talentmarket-service/internal/domain/entitlement"
	"talentmarket-service/internal/service/sweep"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// undefinedTable is the Postgres SQLSTATE for a missing relation.
const undefinedTable = "42P01"

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SweepRepository runs the bulk expiry updates. Every predicate excludes rows
// that were already cleared, so repeating a step with the same now touches
// nothing.
type SweepRepository struct {
	db   *DB
	conn execer
}

func NewSweepRepository(db *DB) *SweepRepository {
	return &SweepRepository{db: db, conn: db.Pool()}
}

func (r *SweepRepository) exec(ctx context.Context, step, query string, now time.Time) (int64, error) {
	tag, err := r.conn.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep %s: %w", step, err)
	}
	return tag.RowsAffected(), nil
}

// ExpireUsers clears the active flag and its expiry together.
func (r *SweepRepository) ExpireUsers(ctx context.Context, now time.Time) (int64, error) {
	return r.exec(ctx, "users", `
		UPDATE users
		SET is_active = false, active_expire_at = NULL, updated_at = $1
		WHERE is_active = true AND active_expire_at <= $1
	`, now)
}

// ExpirePlayers also delists the player in the same statement.
func (r *SweepRepository) ExpirePlayers(ctx context.Context, now time.Time) (int64, error) {
	return r.exec(ctx, "players", `
		UPDATE players
		SET is_active = false, is_listed = false, active_expire_at = NULL, updated_at = $1
		WHERE is_active = true AND active_expire_at <= $1
	`, now)
}

func (r *SweepRepository) ClearPlayerPromotions(ctx context.Context, now time.Time) (int64, error) {
	return r.exec(ctx, "player promotions", `
		UPDATE players
		SET promoted_status = false, promoted_start_date = NULL,
		    promoted_end_date = NULL, promoted_type = NULL, updated_at = $1
		WHERE promoted_status = true AND promoted_end_date <= $1
	`, now)
}

func (r *SweepRepository) ExpireCoaches(ctx context.Context, now time.Time) (int64, error) {
	return r.exec(ctx, "coaches", `
		UPDATE coaches
		SET is_active = false, active_expire_at = NULL, updated_at = $1
		WHERE is_active = true AND active_expire_at <= $1
	`, now)
}

func (r *SweepRepository) ClearCoachPromotions(ctx context.Context, now time.Time) (int64, error) {
	return r.exec(ctx, "coach promotions", `
		UPDATE coaches
		SET promoted_status = false, promoted_start_date = NULL,
		    promoted_end_date = NULL, promoted_type = NULL, updated_at = $1
		WHERE promoted_status = true AND promoted_end_date <= $1
	`, now)
}

// ExpireEntitlements returns entitlement.ErrCollectionMissing when the
// entitlements table is not deployed. The table is checked first because a
// failed statement would poison an enclosing transaction.
func (r *SweepRepository) ExpireEntitlements(ctx context.Context, now time.Time) (int64, error) {
	var present bool
	if err := r.conn.QueryRow(ctx, `SELECT to_regclass('entitlements') IS NOT NULL`).Scan(&present); err != nil {
		return 0, fmt.Errorf("failed to check entitlements table: %w", err)
	}
	if !present {
		return 0, entitlement.ErrCollectionMissing
	}

	n, err := r.exec(ctx, "entitlements", `
		UPDATE entitlements
		SET active = false
		WHERE active = true AND expires_at <= $1
	`, now)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == undefinedTable {
		return 0, entitlement.ErrCollectionMissing
	}
	return n, err
}

// WithinTx runs fn against a copy of the repository bound to one transaction.
func (r *SweepRepository) WithinTx(ctx context.Context, fn func(sweep.Store) error) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		return fn(&SweepRepository{db: r.db, conn: tx})
	})
}

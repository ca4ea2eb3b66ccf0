// internal/service/sweep/sweep.go
package sweep

import (
	"context"
	"errors"
	"fmt"
	"time"

	"talentmarket-service/internal/domain/entitlement"
	xerrors "talentmarket-service/internal/pkg/errors"
	"talentmarket-service/internal/pkg/metrics"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

const lockKey = "expiry-sweep"

// Store performs the bulk expiry updates. Each method flips every matching row
// at now in one statement and returns the number of rows changed.
type Store interface {
	ExpireUsers(ctx context.Context, now time.Time) (int64, error)
	ExpirePlayers(ctx context.Context, now time.Time) (int64, error)
	ClearPlayerPromotions(ctx context.Context, now time.Time) (int64, error)
	ExpireCoaches(ctx context.Context, now time.Time) (int64, error)
	ClearCoachPromotions(ctx context.Context, now time.Time) (int64, error)
	ExpireEntitlements(ctx context.Context, now time.Time) (int64, error)
}

// Transactor is implemented by stores that can apply all steps atomically.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(Store) error) error
}

// Locker keeps replicas from running the same sweep concurrently.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context), bool, error)
}

type Config struct {
	Transactional bool
	LockTTL       time.Duration
}

type Sweeper struct {
	store   Store
	locker  Locker
	metrics *metrics.Recorder
	now     func() time.Time
	cfg     Config
	logger  *zap.Logger
}

// NewSweeper builds a sweeper. locker, recorder and clock may be nil; a nil
// clock means time.Now.
func NewSweeper(store Store, locker Locker, recorder *metrics.Recorder, clock func() time.Time, cfg Config, logger *zap.Logger) *Sweeper {
	if clock == nil {
		clock = time.Now
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 10 * time.Minute
	}
	return &Sweeper{
		store:   store,
		locker:  locker,
		metrics: recorder,
		now:     clock,
		cfg:     cfg,
		logger:  logger,
	}
}

// Now returns the sweeper's clock reading.
func (s *Sweeper) Now() time.Time {
	return s.now()
}

// Run revokes every grant and promotion whose window ended at or before now.
// It stops at the first failing step and returns the counts applied so far.
// Running it again with the same now changes nothing.
func (s *Sweeper) Run(ctx context.Context, now time.Time) (*entitlement.SweepResult, error) {
	start := time.Now()
	result := &entitlement.SweepResult{RunID: ulid.Make().String(), Now: now}

	var err error
	if tx, ok := s.store.(Transactor); ok && s.cfg.Transactional {
		err = tx.WithinTx(ctx, func(st Store) error {
			return s.runSteps(ctx, st, now, result)
		})
		if err != nil {
			// rolled back, nothing was applied
			*result = entitlement.SweepResult{RunID: result.RunID, Now: now}
		}
	} else {
		err = s.runSteps(ctx, s.store, now, result)
	}

	s.metrics.SweepFinished(time.Since(start), rowsByCollection(result), err)

	fields := []zap.Field{
		zap.String("run_id", result.RunID),
		zap.Time("now", now),
		zap.Int64("users", result.Users),
		zap.Int64("players", result.Players),
		zap.Int64("player_promotions", result.PlayerPromotions),
		zap.Int64("coaches", result.Coaches),
		zap.Int64("coach_promotions", result.CoachPromotions),
		zap.Int64("entitlements", result.Entitlements),
		zap.Duration("took", time.Since(start)),
	}
	if err != nil {
		s.logger.Error("expiry sweep failed", append(fields, zap.Error(err))...)
		return result, err
	}

	s.logger.Info("expiry sweep completed", fields...)
	return result, nil
}

func (s *Sweeper) runSteps(ctx context.Context, st Store, now time.Time, result *entitlement.SweepResult) error {
	steps := []struct {
		name string
		run  func(context.Context, time.Time) (int64, error)
		dst  *int64
	}{
		{"users", st.ExpireUsers, &result.Users},
		{"players", st.ExpirePlayers, &result.Players},
		{"player_promotions", st.ClearPlayerPromotions, &result.PlayerPromotions},
		{"coaches", st.ExpireCoaches, &result.Coaches},
		{"coach_promotions", st.ClearCoachPromotions, &result.CoachPromotions},
		{"entitlements", st.ExpireEntitlements, &result.Entitlements},
	}

	for _, step := range steps {
		n, err := step.run(ctx, now)
		if errors.Is(err, entitlement.ErrCollectionMissing) {
			s.logger.Debug("sweep step skipped, collection missing", zap.String("step", step.name))
			continue
		}
		if err != nil {
			return fmt.Errorf("sweep step %s: %w", step.name, err)
		}
		*step.dst = n
	}
	return nil
}

func rowsByCollection(r *entitlement.SweepResult) map[string]int64 {
	return map[string]int64{
		"users":             r.Users,
		"players":           r.Players,
		"player_promotions": r.PlayerPromotions,
		"coaches":           r.Coaches,
		"coach_promotions":  r.CoachPromotions,
		"entitlements":      r.Entitlements,
	}
}

// Trigger runs the sweep under the replica lock. It returns
// xerrors.ErrSweepLocked when another replica holds the lock. If the lock
// backend is unreachable the sweep runs anyway.
func (s *Sweeper) Trigger(ctx context.Context, now time.Time) (*entitlement.SweepResult, error) {
	if s.locker != nil {
		release, ok, err := s.locker.Acquire(ctx, lockKey, s.cfg.LockTTL)
		switch {
		case err != nil:
			s.logger.Warn("sweep lock unavailable, running unlocked", zap.Error(err))
		case !ok:
			s.metrics.SweepSkipped()
			return nil, xerrors.ErrSweepLocked
		default:
			defer release(context.Background())
		}
	}

	return s.Run(ctx, now)
}

// RunScheduled is the cron entry point. Failures are logged and dropped; the
// next run picks up anything missed because the predicates are time based.
func (s *Sweeper) RunScheduled() {
	_, err := s.Trigger(context.Background(), s.now())
	if errors.Is(err, xerrors.ErrSweepLocked) {
		s.logger.Info("expiry sweep skipped, another replica holds the lock")
	}
}

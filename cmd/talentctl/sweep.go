package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"talentmarket-service/internal/app"
	"talentmarket-service/internal/config"
	"talentmarket-service/internal/db"
	"talentmarket-service/internal/repository/postgres"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSweepCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Expiry sweep operations",
	}

	var (
		nowFlag string
		noLock  bool
		timeout time.Duration
	)
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the expiry sweep once and print the per-collection counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			now, err := parseNow(nowFlag, time.Now)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			return runSweep(ctx, cmd, config.Load(), now, !noLock)
		},
	}
	runCmd.Flags().StringVar(&nowFlag, "now", "", "Sweep as of this RFC3339 instant instead of the current time")
	runCmd.Flags().BoolVar(&noLock, "no-lock", false, "Skip the Redis replica lock")
	runCmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "Abort the sweep after this long")

	cmd.AddCommand(runCmd)
	return cmd
}

// parseNow returns clock() for an empty value. A value later than clock() is
// refused.
func parseNow(value string, clock func() time.Time) (time.Time, error) {
	current := clock()
	if value == "" {
		return current, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --now %q: expected RFC3339", value)
	}
	if t.After(current) {
		return time.Time{}, fmt.Errorf("invalid --now %q: cannot be in the future", value)
	}
	return t, nil
}

func runSweep(ctx context.Context, cmd *cobra.Command, cfg config.AppConfig, now time.Time, locked bool) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()

	pool, err := db.ConnectDB(ctx, db.PostgresConfig{URL: cfg.DatabaseURL, MaxConns: 2})
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer pool.Close()

	dbWrapper := postgres.NewDB(pool)
	run := app.NewSweeper(cfg, dbWrapper, nil, nil, logger).Run
	if locked {
		if client := app.ConnectRedis(cfg, logger); client != nil {
			defer client.Close()
			run = app.NewSweeper(cfg, dbWrapper, client, nil, logger).Trigger
		}
	}

	result, err := run(ctx, now)
	if result != nil {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(result); encErr != nil {
			return encErr
		}
	}
	return err
}

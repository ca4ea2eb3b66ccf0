// internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"talentmarket-service/internal/config"
	"talentmarket-service/internal/db"
	promotionHandler "talentmarket-service/internal/handlers/promotion"
	sweepHandler "talentmarket-service/internal/handlers/sweep"
	"talentmarket-service/internal/middleware"
	"talentmarket-service/internal/pkg/jwt"
	"talentmarket-service/internal/pkg/lock"
	"talentmarket-service/internal/pkg/metrics"
	"talentmarket-service/internal/pkg/ratelimit"
	"talentmarket-service/internal/repository/postgres"
	promotionUsecase "talentmarket-service/internal/service/promotion"
	"talentmarket-service/internal/service/sweep"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger

	httpServer *http.Server
	pool       *pgxpool.Pool
	redis      *redis.Client
	scheduler  *sweep.Scheduler
}

func NewServer(cfg config.AppConfig, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	return &Server{cfg: cfg, engine: gin.New(), logger: logger}
}

// Init connects to the backing stores and wires services, handlers and the
// sweep scheduler. It must be called once before Start.
func (s *Server) Init(ctx context.Context) error {
	// ----- PostgreSQL -----
	pool, err := db.ConnectDB(ctx, db.PostgresConfig{URL: s.cfg.DatabaseURL, MaxConns: s.cfg.DBMaxConns})
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	s.pool = pool
	s.logger.Info("connected to PostgreSQL")

	// ----- Redis -----
	// Redis only backs the sweep lock and the code attempt limiter, so the
	// service starts without it.
	s.redis = ConnectRedis(s.cfg, s.logger)

	// ----- JWT -----
	jwtManager, err := jwt.LoadAndBuild(s.cfg.JWT)
	if err != nil {
		return fmt.Errorf("failed to load JWT manager: %w", err)
	}

	// ----- Metrics -----
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder, err := metrics.New("talentmarket", registry)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	// ----- Repositories -----
	dbWrapper := postgres.NewDB(pool)
	offerRepo := postgres.NewPromotionalOfferRepository(dbWrapper)

	// ----- Services (Usecases) -----
	offerService := promotionUsecase.NewOfferService(offerRepo, recorder, time.Now, s.logger)
	sweeper := NewSweeper(s.cfg, dbWrapper, s.redis, recorder, s.logger)

	if s.cfg.Sweep.Enabled {
		s.scheduler = sweep.NewScheduler(sweeper, s.cfg.Sweep.Schedule, s.cfg.Sweep.Location(), s.logger)
		if err := s.scheduler.Start(); err != nil {
			return err
		}
	}

	// ----- Middlewares -----
	s.engine.Use(
		middleware.RecoveryMiddleware(s.logger),
		middleware.LoggingMiddleware(s.logger),
		middleware.CORSMiddleware(),
	)

	var codeAttemptLimit gin.HandlerFunc
	if s.redis != nil {
		codeAttemptLimit = middleware.RateLimitByIdentity(
			ratelimit.NewRedisLimiter(s.redis),
			"offer-code",
			s.cfg.CodeAttemptLimit,
			s.cfg.CodeAttemptWindow,
			s.logger,
		)
	}

	// ----- Router -----
	SetupRouter(s.engine, &Handlers{
		OfferHandler:     promotionHandler.NewOfferHandler(offerService),
		SweepHandler:     sweepHandler.NewSweepHandler(sweeper),
		AuthMiddleware:   middleware.NewAuthMiddleware(jwtManager.Verifier),
		Metrics:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		CodeAttemptLimit: codeAttemptLimit,
	})

	s.httpServer = &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

// Start serves HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("server running", zap.String("addr", s.cfg.HTTPAddr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains HTTP requests, waits for a running sweep and closes the
// connection pools.
func (s *Server) Shutdown(ctx context.Context) error {
	var firstErr error

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			firstErr = fmt.Errorf("failed to shut down HTTP server: %w", err)
		}
	}

	if s.scheduler != nil {
		select {
		case <-s.scheduler.Stop().Done():
		case <-ctx.Done():
			s.logger.Warn("expiry sweep still running at shutdown")
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Warn("failed to close Redis client", zap.Error(err))
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}

	return firstErr
}

// ConnectRedis returns nil when Redis is not configured or unreachable.
func ConnectRedis(cfg config.AppConfig, logger *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		logger.Info("REDIS_ADDR not set, sweep lock and code attempt limits disabled")
		return nil
	}

	client, err := db.NewRedisClient(db.RedisConfig{
		Addresses: []string{cfg.RedisAddr},
		Password:  cfg.RedisPass,
		PoolSize:  10,
	})
	if err != nil {
		logger.Warn("Redis unavailable, sweep lock and code attempt limits disabled", zap.Error(err))
		return nil
	}

	logger.Info("connected to Redis")
	return client
}

// NewSweeper builds the expiry sweeper shared by the scheduler, the admin
// endpoint and talentctl. redisClient and recorder may be nil.
func NewSweeper(cfg config.AppConfig, dbWrapper *postgres.DB, redisClient *redis.Client, recorder *metrics.Recorder, logger *zap.Logger) *sweep.Sweeper {
	var locker sweep.Locker
	if redisClient != nil {
		locker = lock.NewRedisLocker(redisClient)
	}

	return sweep.NewSweeper(
		postgres.NewSweepRepository(dbWrapper),
		locker,
		recorder,
		time.Now,
		sweep.Config{
			Transactional: cfg.Sweep.Transactional,
			LockTTL:       cfg.Sweep.LockTTL,
		},
		logger,
	)
}

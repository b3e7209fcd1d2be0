// Package main is the entry point for the CRM access core API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	_ "github.com/crmadmin/access-core/docs"
	"github.com/crmadmin/access-core/internal/api"
	"github.com/crmadmin/access-core/internal/api/handler"
	"github.com/crmadmin/access-core/internal/api/metrics"
	"github.com/crmadmin/access-core/internal/core/domain"
	"github.com/crmadmin/access-core/internal/core/ports"
	"github.com/crmadmin/access-core/internal/core/service"
	"github.com/crmadmin/access-core/internal/infrastructure/config"
	mongostore "github.com/crmadmin/access-core/internal/infrastructure/db/mongo"
	"github.com/crmadmin/access-core/internal/infrastructure/db/redis"
	"github.com/crmadmin/access-core/internal/infrastructure/db/sqlite"
	"github.com/crmadmin/access-core/internal/infrastructure/queue"
	"github.com/crmadmin/access-core/internal/infrastructure/seed"
	"github.com/crmadmin/access-core/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// @title                       CRM Access Core API
// @version                     1.0
// @description                 Authentication and role-based access control for the CRM admin panel.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the access token.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "access-core",
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("access core stopped")
	}
}

// stores groups the repositories selected by STORE_DRIVER.
type stores struct {
	users     ports.UserRepository
	positions ports.PositionRepository
	audit     ports.AuditRepository
	ping      handler.PingFunc
	close     func(context.Context) error
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.Store.Driver {
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, sqlite.Config{
			Path:         cfg.SQLite.Path,
			MaxOpenConns: cfg.Store.MaxOpenConns,
			Timeout:      cfg.Store.AcquireTimeout,
		})
		if err != nil {
			return nil, err
		}
		timeout := cfg.Store.AcquireTimeout
		return &stores{
			users:     sqlite.NewUserRepository(db, timeout),
			positions: sqlite.NewPositionRepository(db, timeout),
			audit:     sqlite.NewAuditRepository(db, timeout),
			ping:      db.PingContext,
			close:     func(context.Context) error { return db.Close() },
		}, nil

	default:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{
			URI:         cfg.Mongo.URI,
			Database:    cfg.Mongo.Database,
			MaxPoolSize: cfg.Mongo.MaxPoolSize,
			Timeout:     cfg.Store.AcquireTimeout,
		})
		if err != nil {
			return nil, err
		}
		if err := mongostore.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		timeout := cfg.Store.AcquireTimeout
		return &stores{
			users:     mongostore.NewUserRepository(db, timeout),
			positions: mongostore.NewPositionRepository(db, timeout),
			audit:     mongostore.NewAuditRepository(db, timeout),
			ping:      func(ctx context.Context) error { return client.Ping(ctx, nil) },
			close:     client.Disconnect,
		}, nil
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	st, err := openStores(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := st.close(closeCtx); err != nil {
			log.Warn().Err(err).Msg("store close failed")
		}
	}()
	log.Info().Str("driver", cfg.Store.Driver).Msg("store connected")

	health := map[string]handler.PingFunc{cfg.Store.Driver: st.ping}

	var throttle ports.LoginThrottle
	if cfg.Redis.Enabled {
		rdb, err := redis.Connect(ctx, redis.Config{
			Addr:    cfg.Redis.Addr,
			DB:      cfg.Redis.DB,
			Timeout: cfg.Store.AcquireTimeout,
		})
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rdb.Close()
		throttle = redis.NewLoginThrottle(rdb, cfg.Login.MaxAttempts, cfg.Login.Window)
		health["redis"] = pingRedis(rdb)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("redis connected, login throttling enabled")
	}

	if cfg.SeedFile != "" {
		fixture, err := seed.LoadFile(cfg.SeedFile)
		if err != nil {
			return err
		}
		res, err := seed.Apply(ctx, fixture, st.users, st.positions, logger.Component("seed"))
		if err != nil {
			return err
		}
		log.Info().
			Int("positions", res.Positions).
			Int("users_created", res.UsersCreated).
			Int("users_skipped", res.UsersSkipped).
			Msg("seed applied")
	}

	dispatcher := queue.NewDispatcher(cfg.Audit.Workers, cfg.Audit.QueueSize, st.audit, logger.Component("audit"))
	dispatcher.OnDrop = func(domain.AuthEvent) { metrics.AuditDroppedTotal.Inc() }
	dispatcher.Start()

	tokens := service.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	authService := service.NewAuthService(st.users, st.positions, tokens, throttle, dispatcher, logger.Component("auth"))

	router := api.NewRouter(api.Deps{
		Auth:           authService,
		Accounts:       service.NewAccountService(st.users, logger.Component("account")),
		Positions:      service.NewPositionService(st.positions),
		Resolver:       service.NewPermissionResolver(),
		Audit:          dispatcher,
		Health:         health,
		SwaggerEnabled: cfg.SwaggerEnabled,
		Log:            logger.Component("http"),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown incomplete")
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("audit queue not fully drained")
	}
	log.Info().Msg("shutdown complete")
	return nil
}

func pingRedis(rdb *goredis.Client) handler.PingFunc {
	return func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
}

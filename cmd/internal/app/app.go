// Package app wires the server runtime: config, logging, stores, HTTP routes
// and the live verification feed.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fFrancko/beneficios-mvp-web/cmd/internal/api"
	"github.com/fFrancko/beneficios-mvp-web/cmd/internal/audit"
	"github.com/fFrancko/beneficios-mvp-web/cmd/internal/auth/session"
	"github.com/fFrancko/beneficios-mvp-web/cmd/internal/feed"
	"github.com/fFrancko/beneficios-mvp-web/cmd/internal/membership"
	"github.com/fFrancko/beneficios-mvp-web/cmd/internal/metrics"
	"github.com/fFrancko/beneficios-mvp-web/cmd/internal/qrtoken"
	"github.com/fFrancko/beneficios-mvp-web/cmd/internal/ratelimit"
)

// App is the server runtime: it owns the stores, the HTTP handlers and the
// feed gateway.
type App struct {
	cfg Config
	log Logger

	stores  *Stores
	redis   *redis.Client
	metrics *metrics.Metrics
	audit   *audit.Async

	api  *api.Handler
	hub  *feed.Hub
	feed *feed.Gateway
}

// New constructs a fully wired App instance from config and logger.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}
	if err := ValidateSecurityConfig(cfg); err != nil {
		return nil, err
	}

	if cfg.AutoMigrate && cfg.DatabaseURL != "" {
		if err := Migrate(ctx, cfg, false); err != nil {
			return nil, fmt.Errorf("auto-migrate: %w", err)
		}
		log.Info("db.migrated")
	}

	stores, err := OpenStores(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	a, err := wire(ctx, cfg, log, stores)
	if err != nil {
		stores.Close()
		return nil, err
	}
	return a, nil
}

func wire(ctx context.Context, cfg Config, log Logger, stores *Stores) (*App, error) {
	m := metrics.New()
	hub := feed.NewHub(log, feed.WithClientGauge(m.FeedClients))
	recorder := audit.NewAsync(audit.Fanout{stores.Audit, hub}, log,
		audit.WithWriteTimeout(cfg.AuditWriteTimeout),
		audit.WithFailureHook(m.AuditFailed),
	)

	memberships, err := membership.NewService(stores.Memberships)
	if err != nil {
		return nil, err
	}
	issuer, err := qrtoken.NewIssuer(stores.Tokens, memberships,
		qrtoken.WithTTL(cfg.QRTokenTTL),
		qrtoken.WithReuseWindow(cfg.QRReuseWindow),
		qrtoken.WithIssuerLogger(log),
	)
	if err != nil {
		return nil, err
	}

	verifierOpts := []qrtoken.VerifierOption{
		qrtoken.WithAuditRecorder(recorder),
		qrtoken.WithVerifierLogger(log),
	}
	if signer := legacySigner(cfg, log); signer != nil {
		verifierOpts = append(verifierOpts, qrtoken.WithLegacyParser(signer))
	}
	verifier, err := qrtoken.NewVerifier(stores.Tokens, memberships, stores.Directory, verifierOpts...)
	if err != nil {
		return nil, err
	}

	secret, err := authSecret(cfg, log)
	if err != nil {
		return nil, err
	}
	sessCfg := session.DefaultConfig()
	sessCfg.Secret = secret
	sessCfg.Audience = cfg.AuthAudience
	sessCfg.Issuer = cfg.AuthIssuer
	tokens, err := session.NewHS256Manager(sessCfg)
	if err != nil {
		return nil, err
	}

	limiterCfg := ratelimit.Config{Limit: cfg.VerifyRateLimit, Window: cfg.VerifyRateWindow}
	var limiter ratelimit.Limiter = ratelimit.NewMemoryLimiter(limiterCfg)
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("BENEFICIOS_REDIS_URL: %w", err)
		}
		rdb = redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			// The limiter fails open, so an unreachable Redis is not fatal.
			log.Warn("redis.ping.fail", "err", err)
		}
		cancel()
		rl, err := ratelimit.NewRedisLimiter(rdb, limiterCfg)
		if err != nil {
			_ = rdb.Close()
			return nil, err
		}
		limiter = rl
		log.Info("ratelimit.redis")
	}

	handler, err := api.NewHandler(log, api.Config{
		SiteURL:    cfg.SiteURL,
		TrustProxy: cfg.TrustProxy,
		RetryAfter: cfg.VerifyRateWindow,
	}, issuer, verifier, memberships, tokens,
		api.WithRateLimiter(limiter),
		api.WithMetrics(m),
	)
	if err != nil {
		if rdb != nil {
			_ = rdb.Close()
		}
		return nil, err
	}

	gateway := feed.NewGateway(log, hub, feed.GatewayConfig{
		AllowedOrigins: cfg.FeedAllowedOrigins,
		StaffKey:       cfg.FeedStaffKey,
	})

	return &App{
		cfg:     cfg,
		log:     log,
		stores:  stores,
		redis:   rdb,
		metrics: m,
		audit:   recorder,
		api:     handler,
		hub:     hub,
		feed:    gateway,
	}, nil
}

// Handler returns the fully wrapped HTTP handler.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	registerHTTP(mux, a)
	return WithRequestLogging(WithSecurityHeaders(WithCORS(mux, a.cfg, a.log)), a.log)
}

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	base := runtimeBaseURL(a.cfg.HTTPAddr)
	a.log.Info("server.start",
		"addr", a.cfg.HTTPAddr,
		"base_url", base,
		"feed_url", wsBaseURL(base)+feedPath,
		"db_enabled", a.stores.DBEnabled(),
		"redis_enabled", a.redis != nil,
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		a.Close(context.Background())
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), nonZeroDuration(a.cfg.ShutdownTimeout, 10*time.Second))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		a.Close(shutdownCtx)
		return err
	}

	a.Close(shutdownCtx)
	a.log.Info("server.stopped")
	return nil
}

// Close drains pending audit writes, then releases Redis and the pool.
func (a *App) Close(ctx context.Context) {
	if err := a.audit.Wait(ctx); err != nil {
		a.log.Error("audit.drain.fail", "err", err)
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Error("redis.close.fail", "err", err)
		}
	}
	a.stores.Close()
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

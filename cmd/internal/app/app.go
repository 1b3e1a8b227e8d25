// Package app wires the gameswap server runtime: config, logging, security
// policy, HTTP routes, and the offer feed gateway.
//
// It is intentionally small and deterministic to keep CI gates strict and behavior predictable.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"gameswap/cmd/identity"
	authapi "gameswap/cmd/internal/auth/api"
	"gameswap/cmd/internal/auth/guard"
	"gameswap/cmd/internal/market"
	marketapi "gameswap/cmd/internal/market/api"
	"gameswap/cmd/internal/market/feed"
	"gameswap/cmd/security/fieldcrypt"
	"gameswap/cmd/security/password"
	"gameswap/cmd/security/token"
)

// publicPathPrefixes lists the routes the auth guard lets through without a
// bearer token. "/" matches the root page only; the rest match as prefixes.
var publicPathPrefixes = []string{"/", "/web/", "/auth/", "/healthz", "/readyz", "/metrics"}

// Store is a small app-level lifecycle abstraction.
// It exists to allow DB-backed resources to be closed gracefully.
type Store interface {
	Close(ctx context.Context) error
}

// nopStore is used for in-memory store mode.
type nopStore struct{}

func (nopStore) Close(_ context.Context) error { return nil }

// poolStore owns the pgx pool lifecycle; the Postgres stores themselves hold
// no resources beyond it.
type poolStore struct {
	pool *pgxpool.Pool
}

func (s poolStore) Close(_ context.Context) error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// App is the gameswap server runtime: it owns the HTTP server wiring, the
// domain services, and the offer feed.
type App struct {
	cfg Config
	log Logger

	store Store

	pool      *pgxpool.Pool
	dbEnabled bool

	hub     *feed.Hub
	gateway *feed.Gateway

	auth    *authapi.Handler
	offers  *marketapi.Handler
	guard   *guard.Guard
	metrics *Metrics
	limiter *ipRateLimiter
}

// New constructs a fully wired App instance from config and logger.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	if err := ValidateSecurityConfig(cfg); err != nil {
		return nil, err
	}

	key, err := fieldcrypt.KeyFromSecret(cfg.EncryptionSecret)
	if err != nil {
		return nil, err
	}
	cipher, err := fieldcrypt.New(key)
	if err != nil {
		return nil, err
	}

	issuer, err := token.NewIssuer(cfg.TokenSigningSecret, token.WithTTL(cfg.TokenTTL))
	if err != nil {
		return nil, err
	}

	pwCfg, err := password.FromEnv()
	if err != nil {
		return nil, err
	}
	hasher := password.NewPool(pwCfg, cfg.MaxConcurrentHashes)

	st, pool, dbEnabled, accountStore, offerStore, err := newStores(context.Background(), cfg, log)
	if err != nil {
		return nil, err
	}
	fail := func(err error) (*App, error) {
		_ = st.Close(context.Background())
		return nil, err
	}

	accounts, err := identity.NewService(accountStore, cipher, hasher)
	if err != nil {
		return fail(err)
	}
	listings, err := market.NewService(offerStore)
	if err != nil {
		return fail(err)
	}

	wsCfg := feed.ConfigFromEnv()
	hub := feed.NewHub(log, wsCfg.SendQueueSize)
	gateway := feed.NewGateway(log, hub, wsCfg)

	auth, err := authapi.NewHandler(log, authapi.LoadConfigFromEnv(), accounts, issuer)
	if err != nil {
		return fail(err)
	}
	offers, err := marketapi.NewHandler(log, marketapi.LoadConfigFromEnv(), listings, hub)
	if err != nil {
		return fail(err)
	}

	g, err := guard.New(issuer, publicPathPrefixes, log)
	if err != nil {
		return fail(err)
	}

	return &App{
		cfg:       cfg,
		log:       log,
		store:     st,
		pool:      pool,
		dbEnabled: dbEnabled,
		hub:       hub,
		gateway:   gateway,
		auth:      auth,
		offers:    offers,
		guard:     g,
		metrics:   NewMetrics(hub),
		limiter:   newIPRateLimiter(cfg.RateLimitEvents, cfg.RateLimitWindow),
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	a.registerRoutes(mux)

	// Inside-out: the guard runs closest to the mux, logging outermost.
	handler := a.guard.Middleware(mux)
	handler = WithRateLimit(handler, a.limiter, a.log)
	handler = WithCORS(handler, a.cfg, a.log)
	handler = WithSecurityHeaders(handler)
	handler = WithMetrics(handler, a.metrics)
	handler = WithRequestLogging(handler, a.log)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	base := runtimeBaseURL(a.cfg.HTTPAddr)
	a.log.Info("server.start",
		"addr", a.cfg.HTTPAddr,
		"url", base,
		"feed", wsBaseURL(base)+"/api/offers/feed",
		"db_enabled", a.dbEnabled,
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done", "feed_subscribers", a.hub.SubscriberCount())
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	if err := a.store.Close(shutdownCtx); err != nil {
		a.log.Error("store.close.fail", "err", err)
	}

	a.log.Info("server.stopped")
	return nil
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

// newStores decides between Postgres-backed persistence and the in-memory
// dev stores. With no database URL the server still runs everything, it just
// forgets on restart.
func newStores(ctx context.Context, cfg Config, log Logger) (Store, *pgxpool.Pool, bool, identity.Store, market.Store, error) {
	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		return nopStore{}, nil, false, identity.NewInMemoryStore(), market.NewInMemoryStore(), nil
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, nil, false, nil, nil, err
	}

	accounts, err := identity.NewPostgresStore(pool, identity.WithSchema(cfg.DBSchema))
	if err != nil {
		pool.Close()
		return nil, nil, false, nil, nil, err
	}
	offers, err := market.NewPostgresStore(pool, market.WithSchema(cfg.DBSchema))
	if err != nil {
		pool.Close()
		return nil, nil, false, nil, nil, err
	}

	log.Info("db.enabled.postgres_store", "schema", cfg.DBSchema)
	return poolStore{pool: pool}, pool, true, accounts, offers, nil
}

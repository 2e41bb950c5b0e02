// Package app wires the upvote server runtime: config, logging, metrics,
// HTTP routes, and the live vote feed.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"upvote/cmd/identity"
	authapi "upvote/cmd/internal/auth/api"
	"upvote/cmd/internal/feed"
	postsapi "upvote/cmd/internal/posts/api"
	"upvote/cmd/posts"
	"upvote/cmd/security/password"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is a small app-level lifecycle abstraction.
// It exists to allow DB-backed resources to be closed gracefully.
type Store interface {
	Close(ctx context.Context) error
}

// nopStore is used for in-memory store mode.
type nopStore struct{}

func (nopStore) Close(_ context.Context) error { return nil }

type dbStore struct {
	pool *pgxpool.Pool
}

func (s dbStore) Close(_ context.Context) error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// App is the server runtime: it owns the HTTP wiring and its dependencies.
type App struct {
	cfg Config
	log Logger

	store Store

	dbPool    *pgxpool.Pool
	dbEnabled bool

	identity *identity.Service

	auth     *authapi.Handler
	postsAPI *postsapi.Handler
	feedHub  *feed.Hub
	feedGW   *feed.Gateway
	metrics  *Metrics
}

// New constructs a fully wired App instance from config and logger.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel)
	}

	st, dbPool, dbEnabled, accountStore, postStore, err := newStores(context.Background(), cfg, log)
	if err != nil {
		return nil, err
	}

	pwCfg, err := password.FromEnv()
	if err != nil {
		_ = st.Close(context.Background())
		return nil, err
	}
	idSvc := identity.NewService(accountStore, log, pwCfg)

	authHandler, err := authapi.NewHandler(log, idSvc, pwCfg, authapi.DefaultConfig())
	if err != nil {
		_ = st.Close(context.Background())
		return nil, err
	}

	metrics := NewMetrics()
	hub := feed.NewHub(log, cfg.FeedQueueSize)
	gw := feed.NewGateway(log, hub,
		feed.WithOriginPatterns(cfg.WSAllowedOrigins),
		feed.WithInsecureOrigin(cfg.WSInsecureOrigin),
	)

	postsHandler, err := postsapi.NewHandler(log, postStore, hub,
		postsapi.WithVoteObserver(metrics.CountVote),
	)
	if err != nil {
		_ = st.Close(context.Background())
		return nil, err
	}

	return &App{
		cfg:       cfg,
		log:       log,
		store:     st,
		dbPool:    dbPool,
		dbEnabled: dbEnabled,
		identity:  idSvc,
		auth:      authHandler,
		postsAPI:  postsHandler,
		feedHub:   hub,
		feedGW:    gw,
		metrics:   metrics,
	}, nil
}

// Handler builds the full HTTP handler, middleware included.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, a.auth, a.postsAPI, a.feedGW, a.metrics)
	return WithRequestLogging(mux, a.log, a.metrics)
}

// Run starts the HTTP server and blocks until context cancellation or fatal
// server error.
func (a *App) Run(ctx context.Context) error {
	if err := seedAccount(ctx, a.log, a.identity, a.cfg); err != nil {
		a.log.Error("seed.fail", "err", err)
		return err
	}

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbEnabled)

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
// dev stores.
func newStores(ctx context.Context, cfg Config, log Logger) (Store, *pgxpool.Pool, bool, identity.Store, posts.Store, error) {
	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		return nopStore{}, nil, false, identity.NewMemoryStore(), posts.NewMemoryStore(), nil
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, nil, false, nil, nil, err
	}

	if err := EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, false, nil, nil, err
	}

	accountStore, err := identity.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return nil, nil, false, nil, nil, err
	}
	postStore, err := posts.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return nil, nil, false, nil, nil, err
	}

	log.Info("db.enabled.postgres_store")
	return dbStore{pool: pool}, pool, true, accountStore, postStore, nil
}

// Package app wires the FairDrop server runtime: config, logging, HTTP routes,
// and the live claim feed.
//
// It is intentionally small and deterministic to keep CI gates strict and
// behavior predictable.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/jackc/pgx/v5/pgxpool"

	"fairdrop/cmd/chain/ledger"
	"fairdrop/cmd/internal/claimapi"
	"fairdrop/cmd/internal/claimfeed"
	"fairdrop/cmd/internal/fairscale"
	"fairdrop/cmd/internal/ratelimit"
	"fairdrop/cmd/internal/slug"
	"fairdrop/cmd/security/signer"
	"fairdrop/cmd/security/siws"
)

// Store is a small app-level lifecycle abstraction.
// It exists to allow backend-owned resources to be closed gracefully.
type Store interface {
	Close(ctx context.Context) error
}

// nopStore is used for in-memory store mode.
type nopStore struct{}

func (nopStore) Close(_ context.Context) error { return nil }

// App is the FairDrop server runtime: it owns HTTP wiring, the claim API, and
// the claim-feed gateway.
type App struct {
	cfg Config
	log Logger

	store Store

	dbPool    *pgxpool.Pool
	dbEnabled bool

	limiter *ratelimit.Limiter

	api    *claimapi.Handler
	feed   *claimfeed.Gateway
	poller *claimfeed.Poller
}

// New constructs a fully wired App instance from config and logger.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	programID, err := solana.PublicKeyFromBase58(cfg.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("app: invalid FAIRDROP_PROGRAM_ID: %w", err)
	}

	chain := ledger.New(rpc.New(cfg.RPCURL), programID)

	slugStore, st, dbPool, dbEnabled, err := newSlugStore(context.Background(), cfg, log)
	if err != nil {
		return nil, err
	}

	slugSvc, err := slug.NewService(slugStore)
	if err != nil {
		return nil, err
	}

	// A missing API key disables scoring rather than failing startup: ungated
	// drops keep working and gated ones deny with score_unavailable.
	var scores claimapi.ScoreProvider
	if cfg.FairscaleAPIKey != "" {
		var fsOpts []fairscale.Option
		if cfg.FairscaleBaseURL != "" {
			fsOpts = append(fsOpts, fairscale.WithBaseURL(cfg.FairscaleBaseURL))
		}
		fs, err := fairscale.New(cfg.FairscaleAPIKey, fsOpts...)
		if err != nil {
			return nil, err
		}
		scores = fs
	} else {
		log.Warn("fairscale.disabled.no_api_key")
	}

	issuer, err := signer.NewFromEnv()
	if err != nil {
		return nil, err
	}

	verifier := siws.NewVerifier(cfg.SIWSDomain, siws.DefaultPolicy())
	limiter := ratelimit.New()

	api, err := claimapi.NewHandler(log, claimapi.LoadConfigFromEnv(), chain, slugSvc, scores, issuer, verifier, limiter)
	if err != nil {
		limiter.Close()
		return nil, err
	}

	hub := claimfeed.NewHub(log)
	poller := claimfeed.NewPoller(log, hub, chain)

	return &App{
		cfg:       cfg,
		log:       log,
		store:     st,
		dbPool:    dbPool,
		dbEnabled: dbEnabled,
		limiter:   limiter,
		api:       api,
		feed:      claimfeed.NewGateway(log, hub, poller),
		poller:    poller,
	}, nil
}

// Run starts the HTTP server and claim-feed poller and blocks until context
// cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, a.api, a.feed)

	var handler http.Handler = mux
	handler = WithSecurityHeaders(handler)
	handler = WithCORS(handler, a.cfg, a.log)
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

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbEnabled)

	pollCtx, stopPoller := context.WithCancel(ctx)
	defer stopPoller()
	go func() {
		_ = a.poller.Run(pollCtx)
	}()

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

	a.limiter.Close()

	// Close store resources (pool, redis client).
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

// newSlugStore decides where slug bindings live: Redis when configured,
// Postgres when a database URL is set, in-memory otherwise. Redis wins over
// Postgres when both are set because slug lookups sit on the claim hot path.
func newSlugStore(ctx context.Context, cfg Config, log Logger) (slug.Store, Store, *pgxpool.Pool, bool, error) {
	if cfg.RedisURL != "" {
		st, err := slug.NewRedisStore(cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, false, err
		}
		log.Info("slug.store.redis")
		return st, redisStore{st: st}, nil, false, nil
	}

	if cfg.DatabaseURL != "" {
		pool, err := NewDBPool(ctx, cfg)
		if err != nil {
			return nil, nil, nil, false, err
		}

		st, err := slug.NewPostgresStore(pool)
		if err != nil {
			pool.Close()
			return nil, nil, nil, false, err
		}

		log.Info("slug.store.postgres")

		// Ownership model:
		// - app owns pool lifecycle
		// - PostgresStore.Close() is a no-op
		return st, dbStore{pool: pool}, pool, true, nil
	}

	log.Info("slug.store.inmemory")
	return slug.NewMemoryStore(), nopStore{}, nil, false, nil
}

type dbStore struct {
	pool *pgxpool.Pool
}

func (s dbStore) Close(_ context.Context) error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

type redisStore struct {
	st *slug.RedisStore
}

func (s redisStore) Close(_ context.Context) error {
	if s.st != nil {
		return s.st.Close()
	}
	return nil
}

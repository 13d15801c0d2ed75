package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	gcfirestore "cloud.google.com/go/firestore"
	"github.com/riskibarqy/cricket-scoreboard/external/cricbuzz"
	"github.com/riskibarqy/cricket-scoreboard/internal/config"
	"github.com/riskibarqy/cricket-scoreboard/internal/domain/match"
	"github.com/riskibarqy/cricket-scoreboard/internal/infrastructure/repository/cache"
	"github.com/riskibarqy/cricket-scoreboard/internal/infrastructure/repository/firestore"
	"github.com/riskibarqy/cricket-scoreboard/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/cricket-scoreboard/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/cricket-scoreboard/internal/interfaces/httpapi"
	"github.com/riskibarqy/cricket-scoreboard/internal/platform/logging"
	"github.com/riskibarqy/cricket-scoreboard/internal/platform/resilience"
	"github.com/riskibarqy/cricket-scoreboard/internal/usecase"
)

// Core holds the match pipeline shared by the API server and the operator CLI.
type Core struct {
	Client        *cricbuzz.Client
	Service       *usecase.MatchService
	Matches       *usecase.MatchStoreSync
	DocumentCache *cache.MatchRepository

	closers []func() error
}

func NewCore(ctx context.Context, cfg config.Config, logger *logging.Logger) (*Core, error) {
	if logger == nil {
		logger = logging.Default()
	}

	core := &Core{}
	core.Client = cricbuzz.NewClient(cricbuzz.ClientConfig{
		BaseURL: cfg.CricbuzzBaseURL,
		Timeout: cfg.CricbuzzTimeout,
		Logger:  logger.Named("cricbuzz"),
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.CricbuzzCircuitEnabled,
			FailureThreshold: cfg.CricbuzzCircuitFailureCount,
			OpenTimeout:      cfg.CricbuzzCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.CricbuzzCircuitHalfOpenMaxReq,
		},
		RateLimit: cfg.CricbuzzRateLimitRPS,
		Burst:     cfg.CricbuzzRateLimitBurst,
	})
	core.Service = usecase.NewMatchService(core.Client, nil, usecase.MatchServiceConfig{
		MaxRetries:     cfg.CricbuzzMaxRetries,
		RetryBackoff:   cfg.CricbuzzRetryBackoff,
		AttemptTimeout: cfg.CricbuzzTimeout,
		CacheTTL:       cfg.MatchCacheTTL,
	}, logger)

	store, pointers, err := core.buildStores(ctx, cfg, logger)
	if err != nil {
		_ = core.Close()
		return nil, err
	}
	if cfg.DocumentCacheEnabled {
		core.DocumentCache = cache.NewMatchRepository(store, cfg.DocumentCacheTTL)
		store = core.DocumentCache
	}

	core.Matches = usecase.NewMatchStoreSync(core.Service, store, pointers, usecase.MatchStoreSyncConfig{
		StaleAfter: cfg.MatchCacheTTL,
	}, logger)
	return core, nil
}

// ClearCache drops the orchestrator slot and any cached store documents.
func (c *Core) ClearCache() {
	c.Service.ClearCache()
	if c.DocumentCache != nil {
		c.DocumentCache.Invalidate(context.Background())
	}
}

func (c *Core) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

func (c *Core) buildStores(ctx context.Context, cfg config.Config, logger *logging.Logger) (match.Repository, match.PointerRepository, error) {
	var fsClient *gcfirestore.Client
	if cfg.UsesFirestore() {
		client, source, err := firestore.New(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		c.closers = append(c.closers, client.Close)
		if err := firestore.Ping(ctx, client); err != nil {
			return nil, nil, fmt.Errorf("firestore ping: %w", err)
		}
		fsClient = client
		logger.Info("firestore client ready", "project_id", cfg.FirebaseProjectID, "credentials", source)
	}

	var store match.Repository
	switch cfg.MatchStoreDriver {
	case config.StoreDriverFirestore:
		store = firestore.NewMatchRepository(fsClient, cfg.MatchCacheCollection)
	case config.StoreDriverPostgres:
		db, err := openPostgres(cfg)
		if err != nil {
			return nil, nil, err
		}
		c.closers = append(c.closers, db.Close)
		store = postgres.NewMatchRepository(db)
	default:
		store = memory.NewMatchRepository()
	}

	var pointers match.PointerRepository
	switch cfg.PointerSource {
	case config.PointerSourceFirestore:
		pointers = firestore.NewPointerRepository(fsClient, cfg.PointerCollection, cfg.PointerDocument)
	default:
		pointers = memory.NewStaticPointerRepository(cfg.StaticMatchID)
	}

	logger.Info("match stores ready", "store_driver", cfg.MatchStoreDriver, "pointer_source", cfg.PointerSource)
	return store, pointers, nil
}

// NewLivePoller returns nil when live polling is disabled.
func NewLivePoller(cfg config.Config, core *Core, logger *logging.Logger) *usecase.LivePoller {
	if !cfg.LivePollEnabled {
		return nil
	}
	return usecase.NewLivePoller(core.Matches, usecase.LivePollerConfig{
		LiveInterval: cfg.LivePollInterval,
		IdleInterval: cfg.IdlePollInterval,
	}, logger)
}

func NewHTTPServer(cfg config.Config, core *Core, poller *usecase.LivePoller, logger *logging.Logger) (*http.Server, error) {
	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	opts := httpapi.HandlerOptions{
		Cache: core,
		Health: map[string]httpapi.HealthReporter{
			"upstream": func() any { return core.Client.Health() },
		},
	}
	if poller != nil {
		opts.Poller = poller
	}

	handler := httpapi.NewHandler(core.Matches, opts, logger)
	router := httpapi.NewRouter(handler, logger, httpapi.RouterConfig{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRPS:       cfg.APIRateLimitRPS,
		RateLimitBurst:     cfg.APIRateLimitBurst,
	})

	return &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}, nil
}

package cmd

import (
	"context"
	"fmt"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/namelens/handlescan/internal/config"
	"github.com/namelens/handlescan/internal/core/checker"
	"github.com/namelens/handlescan/internal/core/engine"
	"github.com/namelens/handlescan/internal/core/ranking"
	"github.com/namelens/handlescan/internal/core/registry"
	"github.com/namelens/handlescan/internal/core/store"
	"github.com/namelens/handlescan/internal/metrics"
)

// checkRuntime bundles everything a check needs. Close releases the store.
type checkRuntime struct {
	Service  *engine.Service
	Registry *registry.Registry
	Ranks    *ranking.Table
	Gate     *registry.Gate
	Store    *store.Store
}

// openStore opens the rate limit store; migrations run as part of Open.
func openStore(ctx context.Context, cfg config.StoreConfig) (*store.Store, error) {
	if cfg.Disabled {
		return nil, fmt.Errorf("store is disabled (store.disabled=true)")
	}
	return store.Open(ctx, cfg)
}

func loadCatalog(cfg *config.Config) (*registry.Registry, *ranking.Table, error) {
	reg, err := registry.Open(cfg.Registry.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("load registry: %w", err)
	}
	ranks, err := ranking.Open(cfg.Ranking.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("load ranking: %w", err)
	}
	return reg, ranks, nil
}

func newCheckRuntime(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*checkRuntime, error) {
	reg, ranks, err := loadCatalog(cfg)
	if err != nil {
		return nil, err
	}

	rt := &checkRuntime{Registry: reg, Ranks: ranks, Gate: registry.NewGate()}
	for _, failure := range rt.Gate.Validate(reg.List()) {
		if logger != nil {
			logger.Warn("Validation pattern does not compile; target accepts every identifier",
				zap.String("target", failure.Target),
				zap.String("pattern", failure.Pattern),
				zap.Error(failure.Err))
		}
	}

	executor := &checker.Executor{
		Client:       checker.NewClient(),
		Timeout:      cfg.Probe.Timeout,
		Headers:      checker.MergeHeaders(cfg.Probe.Headers),
		MaxBodyBytes: cfg.Probe.MaxBodyBytes,
		Logger:       logger,
	}
	if cfg.Probe.MaxInFlight > 0 {
		executor.Slots = semaphore.NewWeighted(cfg.Probe.MaxInFlight)
	}
	if rps := cfg.Probe.RequestsPerSecond; rps > 0 {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		executor.Pace = rate.NewLimiter(rate.Limit(rps), burst)
	}

	if !cfg.Store.Disabled {
		db, err := openStore(ctx, cfg.Store)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		rt.Store = db

		limiter := &engine.RateLimiter{Store: db}
		limiter.ApplyOverrides(cfg.RateLimits)
		limiter.ApplySafetyMargin(cfg.RateLimitMargin)
		executor.Limiter = limiter
	}

	rt.Service = &engine.Service{
		Catalog: reg,
		Ranks:   ranks,
		Scheduler: &engine.Scheduler{
			Prober: executor,
			Gate:   rt.Gate,
			Policy: engine.Policy{
				Width:      cfg.Probe.Concurrency,
				BatchDelay: cfg.Probe.BatchDelay,
				Timeout:    cfg.Probe.Timeout,
			}.Normalized(),
			Observer: metrics.ProbeRecorder{},
			Logger:   logger,
		},
		Rules: engine.IdentifierRules{
			MinLength: cfg.Identifier.MinLength,
			MaxLength: cfg.Identifier.MaxLength,
		},
		Observer: metrics.ProbeRecorder{},
		Logger:   logger,
	}

	return rt, nil
}

// Close releases the store, if one was opened.
func (rt *checkRuntime) Close() error {
	if rt == nil || rt.Store == nil {
		return nil
	}
	return rt.Store.Close()
}

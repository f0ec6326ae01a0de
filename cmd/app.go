package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/habedi/paydash/auth"
	"github.com/habedi/paydash/client"
	"github.com/habedi/paydash/config"
	"github.com/habedi/paydash/db"
	"github.com/habedi/paydash/metrics"
	"github.com/habedi/paydash/pkg/clierr"
	"github.com/habedi/paydash/store"
	"github.com/rs/zerolog/log"
)

// globalOptions are the persistent flags of the root command.
type globalOptions struct {
	configPath  string
	baseURL     string
	store       string
	metricsFile string
}

// app holds what a command needs once configuration is loaded.
type app struct {
	opts    globalOptions
	cfg     *config.Config
	store   auth.CredentialStore
	metrics *metrics.Collector
	client  *client.Client
	closers []func() error
}

func (a *app) setup(ctx context.Context) error {
	path := a.opts.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return clierr.New(clierr.Validation, err.Error(), err)
	}
	if a.opts.baseURL != "" {
		cfg.BaseURL = strings.TrimRight(a.opts.baseURL, "/")
	}
	if a.opts.store != "" && a.opts.store != cfg.Store.Backend {
		cfg.UseBackend(a.opts.store)
	}
	if a.opts.metricsFile != "" {
		cfg.MetricsFile = a.opts.metricsFile
	}
	if err := cfg.Validate(); err != nil {
		return clierr.New(clierr.Validation, fmt.Sprintf("invalid config: %v", err), err)
	}
	a.cfg = cfg

	st, closeStore, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return clierr.New(clierr.Internal, fmt.Sprintf("Failed to open credential store: %v", err), err)
	}
	a.store = st
	a.closers = append(a.closers, closeStore)

	a.metrics = metrics.NewCollector()
	transport, err := client.NewTransport(client.TransportConfig{
		Timeout: cfg.Timeout,
		Retries: cfg.HTTP.Retries,
		Backoff: cfg.HTTP.Backoff,
	})
	if err != nil {
		return clierr.New(clierr.Internal, err.Error(), err)
	}
	p := auth.NewPipeline(cfg.BaseURL, transport, st,
		auth.WithSingleFlight(cfg.SingleFlight),
		auth.WithMetrics(a.metrics),
		auth.WithUserAgent("paydash/"+version),
	)
	a.client = client.New(p, st)

	log.Debug().Str("base_url", cfg.BaseURL).Str("store", cfg.Store.Backend).Msg("Configuration loaded")
	return nil
}

// planCache returns the local plan cache, opening the SQLite database when the
// credential store did not already.
func (a *app) planCache() (*db.PlanCache, error) {
	if db.GetDB() == nil {
		db.Path = filepath.Join(config.Dir(), "paydash.db")
		if err := db.InitDB(); err != nil {
			return nil, fmt.Errorf("open plan cache: %w", err)
		}
		a.closers = append(a.closers, db.CloseDB)
	}
	ttl := db.DefaultCacheTTL
	if a.cfg != nil {
		ttl = a.cfg.CacheTTL
	}
	return db.NewPlanCache(db.GetDB(), ttl), nil
}

// dropPlanCache empties the plan cache; failures are only logged.
func (a *app) dropPlanCache(ctx context.Context) {
	if a.cfg == nil {
		return
	}
	cache, err := a.planCache()
	if err == nil {
		err = cache.Invalidate(ctx)
	}
	if err != nil {
		log.Warn().Err(err).Msg("Failed to clear plan cache")
	}
}

// finish writes the metrics file and releases resources opened by setup.
func (a *app) finish() {
	if a.metrics != nil && a.cfg != nil && a.cfg.MetricsFile != "" {
		if err := a.metrics.WriteFile(a.cfg.MetricsFile); err != nil {
			log.Error().Err(err).Msg("Failed to write metrics file")
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Error().Err(err).Msg("Failed to close resource")
		}
	}
	a.closers = nil
}

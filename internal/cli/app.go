package cli

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/HartBrook/tokun/internal/config"
	"github.com/HartBrook/tokun/internal/llm"
	"github.com/HartBrook/tokun/internal/logging"
	"github.com/HartBrook/tokun/internal/optimize"
	"github.com/HartBrook/tokun/internal/provider"
	"github.com/HartBrook/tokun/internal/settings"
	"github.com/HartBrook/tokun/internal/store"
)

// app wires configuration, storage and the optimization service for one command run.
type app struct {
	paths    *config.Paths
	cfg      *config.Config
	logger   *slog.Logger
	db       *store.SQLite
	settings *settings.Manager
	registry *provider.Registry
}

// openApp loads config and opens the settings store. Callers must Close it.
func openApp(ctx context.Context, g *globalOptions) (*app, error) {
	paths := config.NewPaths()

	configPath := g.configPath
	if configPath == "" {
		configPath = paths.ConfigFile
	}
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg, g.logLevel)
	if err != nil {
		return nil, err
	}

	db, err := store.OpenSQLite(cfg.StorePath(paths))
	if err != nil {
		return nil, err
	}

	key, err := store.LoadOrCreateKey(paths.SecretKeyFile)
	if err != nil {
		db.Close()
		return nil, err
	}

	manager, err := settings.Open(ctx, store.NewSealed(db, key),
		settings.WithDefaultProvider(cfg.DefaultProvider()),
		settings.WithProviderDefaults(cfg.ProviderDefaults()),
	)
	if err != nil {
		db.Close()
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.HTTP.TimeoutDuration()}
	registry := provider.NewDefaultRegistry(cfg.BaseURLs(),
		provider.WithHTTPClient(httpClient),
		provider.WithLogger(logger),
	)

	logger.Debug("loaded configuration",
		"config", configPath,
		"store", cfg.StorePath(paths),
		"provider", manager.Get().Provider)

	return &app{
		paths:    paths,
		cfg:      cfg,
		logger:   logger,
		db:       db,
		settings: manager,
		registry: registry,
	}, nil
}

func newLogger(cfg *config.Config, levelOverride string) (*slog.Logger, error) {
	levelName := cfg.Log.Level
	if levelOverride != "" {
		levelName = levelOverride
	}
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = level
	logCfg.Format = format
	return logging.New(logCfg), nil
}

// Close releases the store.
func (a *app) Close() error {
	return a.db.Close()
}

// serviceOptions controls how the optimization service is built.
type serviceOptions struct {
	provider  string // one-off provider override
	noHistory bool
	strict    bool
}

// service builds an optimization service over the stored settings.
func (a *app) service(opts serviceOptions) (*optimize.Service, error) {
	var source optimize.ConfigSource = a.settings
	if opts.provider != "" {
		p, err := llm.ParseProvider(opts.provider)
		if err != nil {
			return nil, err
		}
		source = providerOverride{manager: a.settings, provider: p}
	}

	svcOpts := []optimize.ServiceOption{optimize.WithLogger(a.logger)}
	if !opts.noHistory {
		svcOpts = append(svcOpts, optimize.WithRecorder(a.db))
	}
	if opts.strict {
		svcOpts = append(svcOpts, optimize.WithStrictProviders())
	}
	return optimize.NewService(source, a.registry, svcOpts...), nil
}

// providerOverride uses another provider's stored settings without switching to it.
type providerOverride struct {
	manager  *settings.Manager
	provider llm.Provider
}

func (o providerOverride) Get() llm.Configuration {
	return o.manager.For(o.provider)
}

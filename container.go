package main

import (
	"io"
	"strings"

	"github.com/samber/do/v2"

	"library-lending/config"
	"library-lending/library"
	"library-lending/logger"
	"library-lending/metrics"
)

// cliOptions carries persistent flags into the container.
type cliOptions struct {
	ConfigPath string
	SeedPath   string
	LogLevel   string
	LogFormat  string
	Strategy   string
	LogWriter  io.Writer
}

// managerHandle wraps the manager with shutdown capability.
type managerHandle struct {
	*library.LibraryManager
	Seeded config.SeedResult
}

// Shutdown implements do.Shutdownable.
func (h *managerHandle) Shutdown() error {
	return h.Close()
}

func newContainer(opts *cliOptions) *do.RootScope {
	injector := do.New()
	do.ProvideValue(injector, opts)
	do.Provide(injector, provideConfig)
	do.Provide(injector, provideLogger)
	do.Provide(injector, provideRecorder)
	do.Provide(injector, provideManager)
	return injector
}

// provideConfig loads configuration and applies flag overrides on top.
func provideConfig(i do.Injector) (*config.Config, error) {
	opts := do.MustInvoke[*cliOptions](i)

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.SeedPath != "" {
		cfg.Seed.Path = opts.SeedPath
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	if opts.LogFormat != "" {
		cfg.Log.Format = opts.LogFormat
	}
	if opts.Strategy != "" {
		cfg.Recommend.Strategy = strings.ToLower(opts.Strategy)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func provideLogger(i do.Injector) (*logger.Logger, error) {
	cfg, err := do.Invoke[*config.Config](i)
	if err != nil {
		return nil, err
	}
	opts := do.MustInvoke[*cliOptions](i)

	return logger.New(logger.Config{
		Writer:    opts.LogWriter,
		Format:    cfg.Log.Format,
		Level:     logger.ParseLevel(cfg.Log.Level),
		AddSource: cfg.Log.AddSource,
	}), nil
}

func provideRecorder(i do.Injector) (*metrics.Recorder, error) {
	return metrics.NewRecorder(), nil
}

// provideManager builds the library and loads the configured seed, if any.
// Bad seed entries are logged and skipped.
func provideManager(i do.Injector) (*managerHandle, error) {
	log, err := do.Invoke[*logger.Logger](i)
	if err != nil {
		return nil, err
	}
	cfg := do.MustInvoke[*config.Config](i)
	rec := do.MustInvoke[*metrics.Recorder](i)

	mgr, err := library.NewLibraryManager(library.Options{
		Logger:   log.Logger,
		Sinks:    []library.EventSink{rec},
		Strategy: cfg.Strategy(),
	})
	if err != nil {
		return nil, err
	}
	h := &managerHandle{LibraryManager: mgr}

	if cfg.Seed.Path == "" {
		return h, nil
	}
	seed, err := config.LoadSeed(cfg.Seed.Path)
	if err != nil {
		mgr.Close()
		return nil, err
	}
	h.Seeded = seed.Apply(mgr)
	for _, e := range h.Seeded.Errors {
		log.WithError(e).Warn("Skipped seed entry", "seed", cfg.Seed.Path)
	}
	log.Info("Seed loaded",
		"seed", cfg.Seed.Path,
		"items", h.Seeded.Items,
		"copies", h.Seeded.Copies,
		"patrons", h.Seeded.Patrons,
	)
	return h, nil
}

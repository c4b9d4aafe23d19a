package main

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"path/filepath"

	"github.com/hammamikhairi/cookmode/internal/config"
	"github.com/hammamikhairi/cookmode/internal/domain"
	"github.com/hammamikhairi/cookmode/internal/logger"
	"github.com/hammamikhairi/cookmode/internal/recipe"
	"github.com/hammamikhairi/cookmode/internal/server"
	"github.com/hammamikhairi/cookmode/internal/storage"
)

// app is what every subcommand shares: config, logging, recipes and the
// session backend.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	recipes *recipe.MemorySource
	backend domain.SessionBackend
	closers []func() error
}

// setup loads the configuration and opens storage. When logToFile is set
// logs go to the configured file so a terminal UI stays clean.
func setup(logToFile bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	switch {
	case quiet:
		cfg.LogLevel = "off"
	case verbose:
		cfg.LogLevel = "verbose"
	}

	a := &app{cfg: cfg}

	var out io.Writer = os.Stderr
	if logToFile && cfg.LogFile != "" && cfg.LogFile != "stderr" {
		if dir := filepath.Dir(cfg.LogFile); dir != "." {
			_ = os.MkdirAll(dir, 0o755)
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not open log file %s: %v (falling back to stderr)\n", cfg.LogFile, err)
		} else {
			out = f
			a.closers = append(a.closers, f.Close)
		}
	}
	// Third-party libraries (the whisper transcriber) log through the
	// standard logger.
	stdlog.SetOutput(out)
	stdlog.SetFlags(stdlog.Ltime)

	var logOpts []logger.Option
	if cfg.LogFormat == "json" {
		logOpts = append(logOpts, logger.JSON())
	}
	a.log = logger.New(cfg.Level(), out, logOpts...)

	a.recipes = recipe.NewMemorySource(a.log.With("recipes"))
	if path := cfg.Storage.RecipesFile; path != "" {
		n, err := a.recipes.LoadFile(path)
		if err != nil {
			a.close()
			return nil, err
		}
		a.log.Info("loaded %d recipes from %s", n, path)
	}

	switch cfg.Storage.Driver {
	case "sqlite":
		if dir := filepath.Dir(cfg.Storage.Path); dir != "." {
			_ = os.MkdirAll(dir, 0o755)
		}
		db, err := storage.NewSQLiteBackend(cfg.Storage.Path, a.recipes, a.log.With("storage"))
		if err != nil {
			a.close()
			return nil, err
		}
		a.backend = db
		a.closers = append(a.closers, db.Close)
	default:
		a.backend = storage.NewMemoryBackend(a.recipes, a.log.With("storage"))
	}
	return a, nil
}

// close releases resources in reverse order.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}

// serverSettings maps the configuration onto the per-user runtime
// settings.
func serverSettings(cfg *config.Config) (server.Settings, error) {
	st := server.DefaultSettings()
	mappings, err := cfg.Mappings()
	if err != nil {
		return st, err
	}
	bindings, err := cfg.Bindings()
	if err != nil {
		return st, err
	}
	presets, err := cfg.QuickTimers()
	if err != nil {
		return st, err
	}
	st.WakeWords = cfg.Voice.WakeWords
	st.CommandTimeout = cfg.Voice.CommandTimeout
	st.Mappings = mappings
	st.Bindings = bindings
	st.DoubleTapWindow = cfg.Gestures.DoubleTapWindow
	st.QuickTimers = presets
	st.AutoAdvance = cfg.Behavior.AutoAdvance
	st.AlmostDone = cfg.Behavior.AlmostDone
	st.TimerSyncEvery = cfg.Behavior.TimerSyncEvery
	return st, nil
}

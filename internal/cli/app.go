package cli

import (
	"errors"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/jersey/internal/config"
	"github.com/roach88/jersey/internal/lookup"
	"github.com/roach88/jersey/internal/metrics"
	"github.com/roach88/jersey/internal/notify"
	"github.com/roach88/jersey/internal/store"
	"github.com/roach88/jersey/internal/submit"
)

// newLogger configures slog for a command: text on w, debug with --verbose.
// The logger also becomes the process default.
func newLogger(verbose bool, w io.Writer) *slog.Logger {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
	return logger
}

// loadConfig loads and validates the configuration, applying --db.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath, opts.Getenv)
	if err != nil {
		return nil, configError(err)
	}
	if opts.Database != "" {
		cfg.DB = opts.Database
	}
	return cfg, nil
}

// databasePath resolves the database path without requiring endpoints.
func databasePath(opts *RootOptions) (string, error) {
	if opts.Database != "" {
		return opts.Database, nil
	}
	f, err := config.Read(opts.ConfigPath, opts.Getenv)
	if err != nil {
		return "", configError(err)
	}
	return f.DB, nil
}

func configError(err error) *ExitError {
	var verr *config.ValidationError
	if errors.As(err, &verr) {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}
	return WrapExitError(ExitCommandError, "failed to load config", err)
}

func openStore(path string, logger *slog.Logger) (*store.Store, error) {
	logger.Debug("opening database", "path", path)
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func closeStore(st *store.Store, logger *slog.Logger) {
	if err := st.Close(); err != nil {
		logger.Error("error closing database", "error", err)
	}
}

// services bundles the network-facing components of a session.
type services struct {
	resolver *lookup.Resolver
	sink     *submit.Sink
	registry *prometheus.Registry
}

func newServices(cfg *config.Config, st *store.Store, n notify.Notifier, logger *slog.Logger) *services {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	return &services{
		resolver: lookup.New(cfg.LookupURL,
			lookup.WithTimeout(cfg.LookupTimeout),
			lookup.WithMetrics(m),
			lookup.WithLogger(logger)),
		sink: submit.New(cfg.SubmitURL,
			submit.WithLocalLog(st),
			submit.WithNotifier(n),
			submit.WithMetrics(m),
			submit.WithLogger(logger)),
		registry: reg,
	}
}

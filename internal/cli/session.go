package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/triplegate/internal/backend"
	"github.com/roach88/triplegate/internal/config"
	"github.com/roach88/triplegate/internal/gateway"
	"github.com/roach88/triplegate/internal/graph"
	"github.com/roach88/triplegate/internal/graph/sqlitestore"
	"github.com/roach88/triplegate/internal/metric"
	"github.com/roach88/triplegate/internal/op"
	"github.com/roach88/triplegate/internal/prefix"
	"github.com/roach88/triplegate/internal/rdf"
	"github.com/roach88/triplegate/internal/remote"
)

// session is one command's gateway, output and logger.
type session struct {
	gw     *gateway.Gateway
	out    *OutputFormatter
	logger *slog.Logger
	cfg    *config.Config

	registry    *prometheus.Registry
	metricsFile string
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.Config != "" {
		cfg, _, err = config.LoadFromPath(opts.Config)
	} else {
		cfg, _, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	switch {
	case opts.DB != "":
		cfg.Backend = config.BackendSQLite
		cfg.SQLite.Path = opts.DB
	case opts.Endpoint != "":
		cfg.Backend = config.BackendRemote
		cfg.Remote.QueryURL = opts.Endpoint
	}
	if opts.Backend != "" {
		cfg.Backend = opts.Backend
	}
	if opts.Verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// openBackend connects the backend named by cfg.
func openBackend(cfg *config.Config, logger *slog.Logger) (backend.Backend, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return graph.New(nil, graph.WithLogger(logger)), nil
	case config.BackendSQLite:
		st, err := sqlitestore.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		return graph.New(st, graph.WithLogger(logger)), nil
	case config.BackendRemote:
		c, err := remote.New(remote.Config{
			QueryURL:  cfg.Remote.QueryURL,
			UpdateURL: cfg.Remote.UpdateURL,
			Graph:     rdf.IRI(cfg.Graph),
			Username:  cfg.Remote.Username,
			Password:  cfg.Remote.Password,
			Timeout:   cfg.Remote.Timeout.Duration(),
			Logger:    logger,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

// openSession loads config, opens the backend and creates the gateway.
// Failures are reported on the command's output and returned as
// ExitErrors.
func openSession(cmd *cobra.Command, opts *RootOptions) (*session, error) {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		_ = out.Error(ErrCodeConfig, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	logger := newLogger(cfg, out.GetErrWriter())

	b, err := openBackend(cfg, logger)
	if err != nil {
		_ = out.Error(ErrCodeBackend, err.Error(), map[string]string{"backend": cfg.Backend})
		return nil, WrapExitError(ExitCommandError, "failed to open backend", err)
	}

	metrics, registry := metric.NewRegistered()
	gwOpts := []gateway.Option{
		gateway.WithLogger(logger),
		gateway.WithMetrics(metrics),
		gateway.WithPrefixResolver(prefix.NewResolver(prefix.Vocabulary(cfg.Prefixes))),
	}
	if !cfg.Locking() {
		gwOpts = append(gwOpts, gateway.WithoutLock())
	}
	gw, err := gateway.New(commandContext(cmd), b, gwOpts...)
	if err != nil {
		_ = b.Close()
		_ = out.Error(ErrCodeBackend, err.Error(), map[string]string{"backend": cfg.Backend})
		return nil, WrapExitError(ExitCommandError, "failed to initialize store", err)
	}
	logger.Debug("session open", "backend", cfg.Backend)
	return &session{
		gw:          gw,
		out:         out,
		logger:      logger,
		cfg:         cfg,
		registry:    registry,
		metricsFile: opts.MetricsFile,
	}, nil
}

func (s *session) Close() {
	if err := s.gw.Close(); err != nil {
		s.logger.Error("error closing backend", "error", err)
	}
	if s.metricsFile == "" {
		return
	}
	if err := prometheus.WriteToTextfile(s.metricsFile, s.registry); err != nil {
		s.logger.Error("error writing metrics", "path", s.metricsFile, "error", err)
	}
}

// execute runs ops and maps the outcome to an exit error: contract
// violations are command errors, failed operations are failures.
func (s *session) execute(ctx context.Context, ops ...op.Operation) (map[string]op.Result, error) {
	results, err := s.gw.Execute(ctx, ops...)
	if err != nil {
		_ = s.out.Error(ErrCodeContract, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "operation rejected", err)
	}
	return results, nil
}

// failures returns an ExitError when any result failed.
func failures(results map[string]op.Result) error {
	n := 0
	for _, res := range results {
		if !res.Success {
			n++
		}
	}
	if n == 0 {
		return nil
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%d of %d operations failed", n, len(results)))
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

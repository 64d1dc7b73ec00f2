package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"dripmate/config"
	"dripmate/services"
	"dripmate/storage"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Env is everything a command needs. Commands never build it themselves so
// tests can hand in one backed by memory stores.
type Env struct {
	Logger   *zap.Logger
	API      services.DripMateProvider
	Analyzer services.ImageAnalyzer
	Session  *storage.SessionStore
	Prefs    *storage.PreferenceStore
	In       io.Reader
	Out      io.Writer

	closers []func() error
}

type EnvBuilder func(cfgFile string, debug bool) (*Env, error)

func (env *Env) Close() error {
	var firstErr error
	for i := len(env.closers) - 1; i >= 0; i-- {
		if err := env.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	env.closers = nil
	return firstErr
}

// BuildEnv wires the real stores and client from configuration.
func BuildEnv(cfgFile string, debug bool) (*Env, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	logger, err := services.NewLogger(cfg.LogLevel, cfg.Debug || debug)
	if err != nil {
		return nil, err
	}
	flush, err := services.InitSentry(cfg.SentryDSN, cfg.Environment, "dripmate-cli")
	if err != nil {
		logger.Warn("Sentry disabled", zap.Error(err))
	}

	backend, err := storage.OpenSQLite(cfg.StatePath)
	if err != nil {
		return nil, fmt.Errorf("open state: %w", err)
	}
	session := storage.NewSessionStore(backend, logger)
	client := services.NewAPIClient(cfg.BaseURL(), session,
		services.WithTimeout(cfg.HTTPTimeout),
		services.WithLogger(logger),
		services.WithMetrics(services.NewAPIMetrics(prometheus.NewRegistry())),
	)
	analyzer, err := services.NewAnalysisCache(client, logger)
	if err != nil {
		backend.Close()
		return nil, err
	}

	return &Env{
		Logger:   logger,
		API:      client,
		Analyzer: analyzer,
		Session:  session,
		Prefs:    storage.NewPreferenceStore(backend, logger),
		In:       os.Stdin,
		Out:      os.Stdout,
		closers: []func() error{
			backend.Close,
			analyzer.Close,
			func() error {
				flush()
				_ = logger.Sync()
				return nil
			},
		},
	}, nil
}

// confirm asks on In unless assumeYes is set.
func (env *Env) confirm(question string, assumeYes bool) bool {
	if assumeYes {
		return true
	}
	fmt.Fprintf(env.Out, "%s [y/N]: ", question)
	line, err := bufio.NewReader(env.In).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

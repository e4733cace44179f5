package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/sumologic-mcp/internal/config"
	"github.com/sumologic-mcp/internal/logging"
	"github.com/sumologic-mcp/internal/metrics"
	"github.com/sumologic-mcp/internal/observability"
	"github.com/sumologic-mcp/internal/ratelimit"
	"github.com/sumologic-mcp/internal/service"
	"github.com/sumologic-mcp/internal/storage"
	"github.com/sumologic-mcp/internal/sumologic"
)

// app holds the wired dependencies shared by every subcommand
type app struct {
	cfg     *config.Config
	client  *sumologic.Client
	service *service.SearchService
	metrics *metrics.Metrics
	logger  *logging.Logger

	closers []func(context.Context) error
}

// newApp loads configuration, applies flag overrides and builds the search client.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	applyFlagOverrides(cmd, cfg)

	logging.InitGlobalLogger(logging.ParseLogLevel(cfg.Logging.Level), logging.ParseLogFormat(cfg.Logging.Format))
	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Debug("Structured logging initialized")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		metrics: metrics.Default(),
		logger:  logger,
	}

	shutdownTracing, err := observability.InitTracing("sumologic-mcp", cfg.Tracing.Exporter, nil)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, shutdownTracing)

	limiter := ratelimit.Chain{
		ratelimit.NewLocalLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst),
		a.sharedBudget(),
	}

	client, err := sumologic.New(cfg.Sumo,
		sumologic.WithLimiter(limiter),
		sumologic.WithMetrics(a.metrics),
		sumologic.WithPollInterval(cfg.Sumo.PollInterval),
		sumologic.WithQueryTimeout(cfg.Sumo.QueryTimeout),
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.client = client
	a.service = service.NewSearchService(client)

	logger.WithFields(map[string]interface{}{
		"endpoint":      client.BaseURL(),
		"poll_interval": client.PollInterval().String(),
		"query_timeout": client.QueryTimeout().String(),
	}).Debug("Search client initialized")

	return a, nil
}

// sharedBudget returns a Redis-backed limiter when REDIS_ADDR is set.
// An unreachable Redis disables it with a warning.
func (a *app) sharedBudget() ratelimit.Limiter {
	if a.cfg.Redis.Addr == "" {
		return nil
	}

	conn, err := storage.NewRedisConn(&a.cfg.Redis)
	if err != nil {
		a.logger.WithError(err).WithField("addr", a.cfg.Redis.Addr).Warn("Redis unreachable, shared request budget disabled")
		return nil
	}

	budget, err := ratelimit.NewSharedBudget(&ratelimit.SharedBudgetConfig{
		Redis:             conn.Client(),
		Scope:             a.cfg.Sumo.AccessID,
		RequestsPerWindow: a.cfg.RateLimit.RequestsPerSecond,
	})
	if err != nil {
		a.logger.WithError(err).Warn("Shared request budget disabled")
		conn.Close()
		return nil
	}
	controller, err := ratelimit.NewBudgetController(&ratelimit.BudgetControllerConfig{Budget: budget})
	if err != nil {
		a.logger.WithError(err).Warn("Shared request budget disabled")
		conn.Close()
		return nil
	}

	a.closers = append(a.closers, func(context.Context) error { return conn.Close() })
	a.logger.WithFields(map[string]interface{}{
		"addr":   a.cfg.Redis.Addr,
		"budget": budget.Budget(),
		"window": budget.WindowSize().String(),
	}).Info("Shared request budget enabled")
	return controller
}

// Close releases Redis connections and flushes spans
func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.WithError(err).Warn("Shutdown step failed")
		}
	}
}

func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	if v, _ := cmd.Flags().GetString(flagLogLevel); v != "" {
		cfg.Logging.Level = v
	}
	if v, _ := cmd.Flags().GetString(flagLogFormat); v != "" {
		cfg.Logging.Format = v
	}
	if v, _ := cmd.Flags().GetString(flagEndpoint); v != "" {
		cfg.Sumo.Endpoint = v
	}
}

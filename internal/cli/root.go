// Package cli provides the muffins command line client.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Muffins-Corp/muffinscorp-go/internal/cache/memory"
	"github.com/Muffins-Corp/muffinscorp-go/internal/config"
	"github.com/Muffins-Corp/muffinscorp-go/internal/metrics"
	"github.com/Muffins-Corp/muffinscorp-go/internal/ratelimit"
	"github.com/Muffins-Corp/muffinscorp-go/internal/repository"
	"github.com/Muffins-Corp/muffinscorp-go/internal/repository/postgres"
	"github.com/Muffins-Corp/muffinscorp-go/internal/service"
	"github.com/Muffins-Corp/muffinscorp-go/muffins"
)

const rootLongDesc string = `Command line client for the MuffinsCorp chat API.

Configuration is read from the environment:
  MUFFINS_API_KEY        API key (required)
  MUFFINS_BASE_URL       API base URL
  MUFFINS_MODEL          default model
  MUFFINS_TIMEOUT_SEC    timeout for non-streaming requests
  RATE_LIMIT_PER_MINUTE  client-side request budget per endpoint
  CACHE_TTL_SEC          how long model and plan lists are cached
  DATABASE_URL           Postgres URL; enables transcript recording
  METRICS_ADDR           address to serve Prometheus metrics on
  LOG_LEVEL              debug, info, warn or error`

const rootShortDesc string = "MuffinsCorp chat API client"

const shutdownTimeout = 2 * time.Second

// app holds everything a subcommand needs. It is populated in
// PersistentPreRunE so that --help works without configuration.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
	limiter *ratelimit.Limiter
	cache   *memory.Cache
	client  *muffins.Client
	db      *postgres.DB
	chat    service.ChatService

	metricsSrv *http.Server
}

// Execute runs the CLI against the process arguments.
func Execute(ctx context.Context) error {
	return run(ctx, os.Args[1:], os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, out, errOut io.Writer) error {
	a := &app{}
	defer a.close()

	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	return cmd.ExecuteContext(ctx)
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "muffins",
		Short:        rootShortDesc,
		Long:         rootLongDesc,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, err := cmd.Flags().GetString("log-level")
			if err != nil {
				return fmt.Errorf("could not get log-level flag: %w", err)
			}
			return a.init(cmd.Context(), level)
		},
	}

	cmd.PersistentFlags().String("log-level", "", "Override LOG_LEVEL (debug, info, warn, error)")

	cmd.AddCommand(newChatCmd(a))
	cmd.AddCommand(newModelsCmd(a))
	cmd.AddCommand(newPlansCmd(a))
	cmd.AddCommand(newBalanceCmd(a))
	cmd.AddCommand(newOverviewCmd(a))
	cmd.AddCommand(newHistoryCmd(a))

	return cmd
}

func (a *app) init(ctx context.Context, level string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if level != "" {
		cfg.Log.Level = level
	}
	a.cfg = cfg

	a.logger, err = config.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}

	a.metrics = metrics.New()
	a.limiter = ratelimit.New(ratelimit.Config{RequestsPerMinute: cfg.RateLimit.RequestsPerMinute})
	a.cache = memory.New()

	clientCfg := cfg.ClientConfig()
	clientCfg.Cache = a.cache
	clientCfg.Limiter = a.limiter
	clientCfg.Metrics = a.metrics

	a.client, err = muffins.New(clientCfg, a.logger)
	if err != nil {
		return fmt.Errorf("creating client: %w", err)
	}

	var repo repository.TranscriptRepository
	if cfg.Database.URL != "" {
		a.db, err = postgres.New(ctx, cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		transcripts := postgres.NewTranscriptRepo(a.db)
		if err := transcripts.EnsureSchema(ctx); err != nil {
			return err
		}
		repo = transcripts
	}
	a.chat = service.NewChatService(a.client.Chat(), repo, a.logger, service.WithMetrics(a.metrics))

	if cfg.Metrics.Addr != "" {
		a.serveMetrics(cfg.Metrics.Addr)
	}

	a.logger.Debug("client ready",
		zap.String("base_url", cfg.API.BaseURL),
		zap.String("model", cfg.API.Model),
		zap.Bool("transcripts", a.db != nil),
	)
	return nil
}

func (a *app) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())

	a.metricsSrv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.logger.Info("serving metrics", zap.String("addr", addr))
		if err := a.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", zap.Error(err))
		}
	}()
}

func (a *app) close() {
	if a.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		_ = a.metricsSrv.Shutdown(ctx)
		cancel()
	}
	if a.db != nil {
		a.db.Close()
	}
	if a.limiter != nil {
		a.limiter.Stop()
	}
	if a.cache != nil {
		a.cache.Stop()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

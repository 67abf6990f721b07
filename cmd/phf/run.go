package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/phf/input/console"
	"github.com/tailored-agentic-units/phf/input/redisqueue"
	"github.com/tailored-agentic-units/phf/observability"
	"github.com/tailored-agentic-units/phf/orchestrator"
	"github.com/tailored-agentic-units/phf/registry"
)

var (
	runConfigFile  string
	runConsole     bool
	runRedisAddr   string
	runRequestKey  string
	runReplyKey    string
	runMetricsAddr string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the orchestrator",
	Long: `Run starts every provider declared in the config file together with its
hooks and applies commands until interrupted.

Commands arrive from the console (--console) and from a Redis list
(--redis). Type "help" on the console for the command grammar.

Examples:
  # Interactive session with no providers declared up front
  phf run --console

  # Providers from a file, commands from Redis, metrics on :9090
  phf run --config phf.yaml --redis localhost:6379 --metrics-addr :9090`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runConfigFile, "config", "c", "", "Path to YAML config file")
	runCmd.Flags().BoolVar(&runConsole, "console", false, "Read commands from stdin")
	runCmd.Flags().StringVar(&runRedisAddr, "redis", "", "Redis address to read commands from")
	runCmd.Flags().StringVar(&runRequestKey, "redis-requests", redisqueue.DefaultRequestKey, "Redis list commands are popped from")
	runCmd.Flags().StringVar(&runReplyKey, "redis-replies", redisqueue.DefaultReplyKey, "Redis list replies are pushed to")
	runCmd.Flags().StringVar(&runMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	cfg := orchestrator.DefaultConfig()
	if runConfigFile != "" {
		loaded, err := orchestrator.LoadConfig(runConfigFile)
		if err != nil {
			return err
		}
		cfg = *loaded
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	observer, err := observability.GetObserver(cfg.Observer)
	if err != nil {
		return err
	}
	if cfg.Observer == "slog" {
		observer = observability.NewSlogObserver(logger)
	}

	if runMetricsAddr != "" {
		metrics := observability.NewMetricsObserver(cfg.Name)
		observer = observability.Combine(observer, metrics)

		shutdown := serveMetrics(logger, runMetricsAddr, metrics.Handler())
		defer shutdown()
	}

	reg := registry.New()
	if err := registerBuiltins(reg, logger, observer); err != nil {
		return fmt.Errorf("failed to register builtins: %w", err)
	}

	o, err := orchestrator.New(&cfg,
		orchestrator.WithRegistry(reg),
		orchestrator.WithLogger(logger),
		orchestrator.WithObserver(observer),
	)
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}

	if runConsole {
		o.AddSource(console.New(os.Stdin, cmd.OutOrStdout(), o))
	}

	if runRedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: runRedisAddr})
		defer client.Close()

		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to Redis at %s: %w", runRedisAddr, err)
		}
		o.AddSource(redisqueue.New(client, o,
			redisqueue.WithKeys(runRequestKey, runReplyKey),
			redisqueue.WithLogger(logger),
		))
	}

	return o.Run(ctx)
}

// serveMetrics serves handler on addr at /metrics and returns a function
// that shuts the server down.
func serveMetrics(logger *slog.Logger, addr string, handler http.Handler) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("serving metrics", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", slog.String("error", err.Error()))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

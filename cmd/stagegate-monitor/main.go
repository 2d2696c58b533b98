// StageGate Monitor — наблюдает за цепочками этапов по cron-расписанию.
//
// Monitor:
//   - Проверяет PRE/RUN/POST каждого workflow из MONITOR_WORKFLOWS
//   - Экспортирует stagegate_chain_status на /metrics
//   - Публикует chain.<status> в RabbitMQ при изменении статуса
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/shaiso/StageGate/internal/cli"
	"github.com/shaiso/StageGate/internal/monitor"
	"github.com/shaiso/StageGate/internal/mq"
	"github.com/shaiso/StageGate/internal/telemetry"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "stagegate-monitor",
		Short:         "Watch stage chains on a cron schedule and export their status",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}
	rootCmd.Flags().StringVar(&configPath, "config", "", "Config file (default $STAGEGATE_CONFIG)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	env, err := cli.LoadEnv(configPath)
	if err != nil {
		return err
	}
	logger := env.Logger
	cfg := env.Config
	logger.Info("starting stagegate-monitor")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	metrics := telemetry.NewMetrics()
	mcfg := monitor.Config{
		Workflows: cfg.Monitor.Workflows,
		Schedule:  cfg.Monitor.Schedule,
		Jobs:      env.JobState(),
		Metrics:   metrics,
		Logger:    logger,
	}

	// RabbitMQ необязателен: без него monitor только экспортирует метрики
	conn, closeEvents, err := env.OpenEvents(ctx)
	if err != nil {
		logger.Warn("RabbitMQ not available, chain events disabled", "error", err)
	} else if conn != nil {
		logger.Debug(mq.TopologyInfo())
		mcfg.Publisher = mq.NewPublisher(conn, logger)
	}
	defer closeEvents()

	m, err := monitor.New(mcfg)
	if err != nil {
		return err
	}

	// Первый проход сразу, не дожидаясь расписания
	if err := m.Tick(ctx); err != nil {
		logger.Warn("initial monitor tick failed", "error", err)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: ":" + cfg.Monitor.Port, Handler: mux}
	go func() {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Блокируется до сигнала завершения
	err = m.Start(ctx)

	srv.Shutdown(context.Background())
	logger.Info("stagegate-monitor stopped")
	return err
}

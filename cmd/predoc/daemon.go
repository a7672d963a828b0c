package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/predoc-io/predoc/internal/consumer"
	"github.com/predoc-io/predoc/internal/logging"
	"github.com/predoc-io/predoc/internal/metrics"
	"github.com/predoc-io/predoc/internal/models"
	"github.com/predoc-io/predoc/internal/observability"
	"github.com/predoc-io/predoc/internal/pipeline"
	"github.com/predoc-io/predoc/internal/storage"
	"github.com/predoc-io/predoc/internal/vectorstore"
	"github.com/predoc-io/predoc/internal/worker"
)

const shutdownGrace = 30 * time.Second

func daemonCmd() *cobra.Command {
	var (
		logLevel    string
		workers     int
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the preprocess worker daemon",
		Long:  "Consume the task queue and run the parse/chunk/embed/store pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Daemon.LogLevel = logLevel
			}
			if cmd.Flags().Changed("workers") {
				cfg.RabbitMQ.ConsumerWorkers = workers
			}
			if cmd.Flags().Changed("metrics-addr") {
				cfg.Daemon.MetricsAddr = metricsAddr
			}

			logging.SetLevelFromString(cfg.Daemon.LogLevel)

			if err := observability.Init(context.Background(), observability.Config{
				Enabled:     cfg.Telemetry.Enabled,
				Endpoint:    cfg.Telemetry.Endpoint,
				ServiceName: "predoc",
				SampleRate:  cfg.Telemetry.SampleRate,
			}); err != nil {
				return fmt.Errorf("init tracing: %w", err)
			}
			defer observability.Shutdown(context.Background())

			metrics.Init("predoc")
			if cfg.Daemon.MetricsAddr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", metrics.Handler())
				go func() {
					logging.Op().Info("metrics listening", "addr", cfg.Daemon.MetricsAddr)
					if err := http.ListenAndServe(cfg.Daemon.MetricsAddr, mux); err != nil {
						logging.Op().Error("metrics server failed", "error", err)
					}
				}()
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			backend, err := storage.NewS3Storage(ctx, cfg.OSS)
			if err != nil {
				return fmt.Errorf("init storage: %w", err)
			}

			store, err := vectorstore.New(ctx, cfg.Milvus, cfg.Models.EmbeddingDim)
			if err != nil {
				return fmt.Errorf("init vector store: %w", err)
			}
			defer store.Close()

			loader := models.NewLoader(cfg.Models)
			loader.PreloadAll(backend)

			deps := pipeline.Deps{
				Loader:        loader,
				Storage:       backend,
				Store:         store,
				Collection:    cfg.Milvus.DefaultCollection,
				Partition:     cfg.Milvus.DefaultPartition,
				ChunkStrategy: cfg.Models.ChunkStrategy,
			}

			pool := worker.NewPool(cfg.RabbitMQ.ConsumerWorkers)
			pool.Start()

			cons := consumer.New(cfg.RabbitMQ, pipeline.DefaultRegistry(), deps, pool)
			logging.Op().Info("preprocess daemon started",
				"workers", pool.Size(), "task_queue", cfg.RabbitMQ.TaskQueue)

			err = cons.Run(ctx)
			logging.Op().Info("shutting down")
			pool.Stop(shutdownGrace)
			return err
		},
	}

	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level")
	cmd.Flags().IntVar(&workers, "workers", 4, "Concurrent task workers (also the prefetch count)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Prometheus listen address (e.g. :9090), empty disables")

	return cmd
}

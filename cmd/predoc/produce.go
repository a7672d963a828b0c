package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/predoc-io/predoc/internal/logging"
	"github.com/predoc-io/predoc/internal/producer"
	"github.com/predoc-io/predoc/internal/storage"
)

func produceCmd() *cobra.Command {
	var opts producer.Options

	cmd := &cobra.Command{
		Use:   "produce [files or directories...]",
		Short: "Enqueue preprocess tasks for local PDF files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logging.SetLevelFromString(cfg.Daemon.LogLevel)

			var backend storage.Backend
			if opts.Upload {
				s3, err := storage.NewS3Storage(cmd.Context(), cfg.OSS)
				if err != nil {
					return fmt.Errorf("init storage: %w", err)
				}
				backend = s3
			}

			p := producer.New(cfg.RabbitMQ, backend, cfg.OSS.PDFBucket)
			n, err := p.Run(cmd.Context(), args, opts)
			if err != nil {
				return err
			}
			fmt.Printf("enqueued %d tasks\n", n)
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.Upload, "upload", false, "Upload files to the PDF bucket before enqueueing")
	cmd.Flags().StringVar(&opts.Prefix, "prefix", "", "Object key prefix for uploaded files")
	cmd.Flags().StringVar(&opts.TaskType, "task-type", "", "Pipeline to run (default pipeline when empty)")
	cmd.Flags().StringVar(&opts.Collection, "collection", "", "Destination collection override")

	return cmd
}

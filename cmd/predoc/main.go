package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/predoc-io/predoc/internal/config"
)

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "predoc",
		Short: "Document preprocessing worker for vector retrieval",
		Long:  "Consume preprocess tasks, parse and chunk documents, embed the chunks and store them in Milvus",
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file")
	rootCmd.AddCommand(daemonCmd())
	rootCmd.AddCommand(produceCmd())
	rootCmd.AddCommand(searchCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig layers defaults, the optional config file and environment
// overrides.
func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		var err error
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}
	config.LoadFromEnv(cfg)
	return cfg, nil
}

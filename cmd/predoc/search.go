package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/predoc-io/predoc/internal/models"
	"github.com/predoc-io/predoc/internal/search"
	"github.com/predoc-io/predoc/internal/vectorstore"
)

func searchCmd() *cobra.Command {
	var (
		collection string
		partition  string
		topK       int
	)

	cmd := &cobra.Command{
		Use:   "search [query...]",
		Short: "Run a similarity query against an ingested collection",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if collection == "" {
				collection = cfg.Milvus.DefaultCollection
			}

			store, err := vectorstore.New(cmd.Context(), cfg.Milvus, cfg.Models.EmbeddingDim)
			if err != nil {
				return fmt.Errorf("init vector store: %w", err)
			}
			defer store.Close()

			embedder := models.NewHTTPEmbedder(cfg.Models)
			s := search.New(embedder, store)

			query := strings.Join(args, " ")
			hits, err := s.Search(cmd.Context(), query, topK, collection, partition)
			if err != nil {
				return err
			}
			if len(hits) == 0 {
				fmt.Println("no results")
				return nil
			}
			for i, h := range hits {
				fmt.Printf("%2d. score=%.4f page=%d\n%s\n\n", i+1, h.Score, h.Page, h.Chunk)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&collection, "collection", "", "Collection to search (default from config)")
	cmd.Flags().StringVar(&partition, "partition", "", "Partition to search (all when empty)")
	cmd.Flags().IntVar(&topK, "top-k", 5, "Number of results")

	return cmd
}

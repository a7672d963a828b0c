// Package vectorstore wraps the Milvus client: collection/partition
// bootstrap, row insertion and similarity search.
package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/predoc-io/predoc/internal/config"
	"github.com/predoc-io/predoc/internal/logging"
	"github.com/predoc-io/predoc/internal/taskerr"
)

const (
	fieldID        = "id"
	fieldEmbedding = "embedding"
	fieldChunk     = "chunk"
	fieldMetadata  = "metadata"
	fieldPage      = "page"

	// Milvus VarChar length is measured in bytes; a CJK character is three
	// bytes in UTF-8, so 3*2048 covers 2048-character chunks.
	chunkMaxLength = 6144

	hnswM              = 16
	hnswEfConstruction = 128
	searchEf           = 64
)

// Store is a Milvus-backed vector store. Safe for concurrent use after
// construction.
type Store struct {
	c   client.Client
	dim int
}

// New connects to Milvus. An empty user omits authentication.
func New(ctx context.Context, cfg config.MilvusConfig, dim int) (*Store, error) {
	if dim <= 0 {
		dim = 768
	}
	c, err := client.NewClient(ctx, client.Config{
		Address:  cfg.Address(),
		Username: cfg.User,
		Password: cfg.Password,
		DBName:   cfg.DBName,
	})
	if err != nil {
		return nil, fmt.Errorf("connect milvus %s: %w", cfg.Address(), err)
	}
	return &Store{c: c, dim: dim}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.c.Close()
}

// Dim returns the embedding dimension the store was built for.
func (s *Store) Dim() int { return s.dim }

func (s *Store) schema(collection string) *entity.Schema {
	return entity.NewSchema().
		WithName(collection).
		WithField(entity.NewField().
			WithName(fieldID).
			WithDataType(entity.FieldTypeInt64).
			WithIsPrimaryKey(true).
			WithIsAutoID(true)).
		WithField(entity.NewField().
			WithName(fieldEmbedding).
			WithDataType(entity.FieldTypeFloatVector).
			WithDim(int64(s.dim))).
		WithField(entity.NewField().
			WithName(fieldChunk).
			WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(chunkMaxLength)).
		WithField(entity.NewField().
			WithName(fieldMetadata).
			WithDataType(entity.FieldTypeJSON)).
		WithField(entity.NewField().
			WithName(fieldPage).
			WithDataType(entity.FieldTypeInt64))
}

// alreadyExists downgrades create races: a concurrent consumer winning the
// create is success for us.
func alreadyExists(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "already exist")
}

// EnsureCollection creates the collection, its HNSW index and the partition
// if any of them are missing. Idempotent.
func (s *Store) EnsureCollection(ctx context.Context, collection, partition string) error {
	has, err := s.c.HasCollection(ctx, collection)
	if err != nil {
		return fmt.Errorf("has collection %s: %w", collection, err)
	}
	if !has {
		if err := s.c.CreateCollection(ctx, s.schema(collection), entity.DefaultShardNumber); err != nil && !alreadyExists(err) {
			return fmt.Errorf("create collection %s: %w", collection, err)
		}
		idx, err := entity.NewIndexHNSW(entity.COSINE, hnswM, hnswEfConstruction)
		if err != nil {
			return fmt.Errorf("build hnsw index: %w", err)
		}
		if err := s.c.CreateIndex(ctx, collection, fieldEmbedding, idx, false); err != nil && !alreadyExists(err) {
			return fmt.Errorf("create index on %s: %w", collection, err)
		}
		logging.Op().Info("created collection", "collection", collection, "dim", s.dim)
	}

	if partition == "" {
		return nil
	}
	hasPart, err := s.c.HasPartition(ctx, collection, partition)
	if err != nil {
		return fmt.Errorf("has partition %s/%s: %w", collection, partition, err)
	}
	if !hasPart {
		if err := s.c.CreatePartition(ctx, collection, partition); err != nil && !alreadyExists(err) {
			return fmt.Errorf("create partition %s/%s: %w", collection, partition, err)
		}
		logging.Op().Info("created partition", "collection", collection, "partition", partition)
	}
	return nil
}

// Insert writes prepared rows, bootstrapping the collection and partition
// as needed. Embedding dimensions must match the store's dimension.
func (s *Store) Insert(ctx context.Context, collection, partition string, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	if err := s.EnsureCollection(ctx, collection, partition); err != nil {
		return taskerr.New(taskerr.KindVectorStore, err)
	}

	vectors := make([][]float32, len(rows))
	chunks := make([]string, len(rows))
	metadatas := make([][]byte, len(rows))
	pages := make([]int64, len(rows))
	for i, r := range rows {
		if len(r.Embedding) != s.dim {
			return taskerr.Newf(taskerr.KindVectorStore,
				"row %d: embedding dim %d, collection wants %d", i, len(r.Embedding), s.dim)
		}
		md, err := json.Marshal(r.Metadata)
		if err != nil {
			return taskerr.Newf(taskerr.KindVectorStore, "row %d: marshal metadata: %v", i, err)
		}
		vectors[i] = r.Embedding
		chunks[i] = r.Chunk
		metadatas[i] = md
		pages[i] = r.Page
	}

	_, err := s.c.Insert(ctx, collection, partition,
		entity.NewColumnFloatVector(fieldEmbedding, s.dim, vectors),
		entity.NewColumnVarChar(fieldChunk, chunks),
		entity.NewColumnJSONBytes(fieldMetadata, metadatas),
		entity.NewColumnInt64(fieldPage, pages),
	)
	if err != nil {
		return taskerr.Newf(taskerr.KindVectorStore, "insert %d rows into %s: %v", len(rows), collection, err)
	}
	logging.Op().Debug("inserted rows", "collection", collection, "partition", partition, "rows", len(rows))
	return nil
}

// Hit is one search result.
type Hit struct {
	ID       int64
	Chunk    string
	Metadata map[string]any
	Page     int64
	Score    float32
}

// Search runs a COSINE similarity query and returns up to topK hits,
// best first.
func (s *Store) Search(ctx context.Context, vector []float32, topK int, collection, partition string) ([]Hit, error) {
	if err := s.c.LoadCollection(ctx, collection, false); err != nil {
		return nil, fmt.Errorf("load collection %s: %w", collection, err)
	}

	var partitions []string
	if partition != "" {
		partitions = []string{partition}
	}

	sp, err := entity.NewIndexHNSWSearchParam(searchEf)
	if err != nil {
		return nil, fmt.Errorf("build search param: %w", err)
	}

	results, err := s.c.Search(ctx, collection, partitions, "",
		[]string{fieldChunk, fieldMetadata, fieldPage},
		[]entity.Vector{entity.FloatVector(vector)},
		fieldEmbedding, entity.COSINE, topK, sp,
	)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", collection, err)
	}

	var hits []Hit
	for _, rs := range results {
		ids, _ := rs.IDs.(*entity.ColumnInt64)
		chunkCol, _ := rs.Fields.GetColumn(fieldChunk).(*entity.ColumnVarChar)
		metaCol, _ := rs.Fields.GetColumn(fieldMetadata).(*entity.ColumnJSONBytes)
		pageCol, _ := rs.Fields.GetColumn(fieldPage).(*entity.ColumnInt64)

		for i := 0; i < rs.ResultCount; i++ {
			var h Hit
			if ids != nil {
				h.ID, _ = ids.ValueByIdx(i)
			}
			if chunkCol != nil {
				h.Chunk, _ = chunkCol.ValueByIdx(i)
			}
			if metaCol != nil {
				if raw, err := metaCol.ValueByIdx(i); err == nil {
					_ = json.Unmarshal(raw, &h.Metadata)
				}
			}
			if pageCol != nil {
				h.Page, _ = pageCol.ValueByIdx(i)
			}
			if i < len(rs.Scores) {
				h.Score = rs.Scores[i]
			}
			hits = append(hits, h)
		}
	}
	return hits, nil
}

// Drop removes a collection. Intended for tests and operator tooling.
func (s *Store) Drop(ctx context.Context, collection string) error {
	return s.c.DropCollection(ctx, collection)
}

// Package pipeline maps task types to document processing pipelines and
// implements the default PDF ingestion flow.
package pipeline

import (
	"context"
	"sync"

	"github.com/predoc-io/predoc/internal/models"
	"github.com/predoc-io/predoc/internal/schema"
	"github.com/predoc-io/predoc/internal/storage"
	"github.com/predoc-io/predoc/internal/vectorstore"
)

// VectorStore is the slice of the vector database a pipeline needs.
type VectorStore interface {
	EnsureCollection(ctx context.Context, collection, partition string) error
	Insert(ctx context.Context, collection, partition string, rows []vectorstore.Row) error
}

// Deps bundles the shared services handed to every pipeline instance.
type Deps struct {
	Loader  *models.Loader
	Storage storage.Backend
	Store   VectorStore

	// Destination when the task does not name one.
	Collection string
	Partition  string

	ChunkStrategy string
}

// Pipeline turns one task's document into chunks and embeddings, then
// persists them. The two phases are separate so callers can observe and
// time them independently. Implementations are stateless and shared
// across workers.
type Pipeline interface {
	Process(ctx context.Context, task *schema.Task) (chunks []string, embeddings [][]float32, err error)
	StoreEmbeddings(ctx context.Context, task *schema.Task, chunks []string, embeddings [][]float32) error
}

// Factory builds a pipeline from shared dependencies.
type Factory func(deps Deps) Pipeline

// Registry maps task types to pipeline factories. An unknown task type
// resolves to the "default" entry.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register binds a task type to a factory, replacing any previous binding.
func (r *Registry) Register(taskType string, f Factory) {
	r.mu.Lock()
	r.factories[taskType] = f
	r.mu.Unlock()
}

// Build resolves taskType and constructs its pipeline. Unregistered types
// fall back to the default entry; ok is false only when no default exists.
func (r *Registry) Build(taskType string, deps Deps) (Pipeline, bool) {
	r.mu.RLock()
	f, found := r.factories[taskType]
	if !found {
		f, found = r.factories[schema.DefaultTaskType]
	}
	r.mu.RUnlock()
	if !found {
		return nil, false
	}
	return f(deps), true
}

// Types returns the registered task types.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	return types
}

// DefaultRegistry returns the registry with the built-in pipelines bound.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(schema.DefaultTaskType, NewPDFPipeline)
	r.Register("print-filename", NewPrintNamePipeline)
	return r
}

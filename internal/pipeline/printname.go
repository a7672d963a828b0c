package pipeline

import (
	"context"

	"github.com/predoc-io/predoc/internal/logging"
	"github.com/predoc-io/predoc/internal/schema"
)

// PrintNamePipeline logs the document's file name and stores nothing.
// Useful for verifying queue wiring end to end without model services.
type PrintNamePipeline struct{}

// NewPrintNamePipeline builds the debug pipeline.
func NewPrintNamePipeline(Deps) Pipeline {
	return &PrintNamePipeline{}
}

func (p *PrintNamePipeline) Process(_ context.Context, task *schema.Task) ([]string, [][]float32, error) {
	logging.Op().Info("print-filename pipeline", "task", task.TaskID, "file", task.Document.FileName)
	return nil, nil, nil
}

func (p *PrintNamePipeline) StoreEmbeddings(context.Context, *schema.Task, []string, [][]float32) error {
	return nil
}

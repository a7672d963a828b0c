// Package producer enqueues preprocess tasks for local PDF files, used by
// operators to feed the ingestion daemon.
package producer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/predoc-io/predoc/internal/config"
	"github.com/predoc-io/predoc/internal/logging"
	"github.com/predoc-io/predoc/internal/schema"
	"github.com/predoc-io/predoc/internal/storage"
)

// Options controls how tasks are built and whether files are uploaded
// before enqueueing.
type Options struct {
	// Upload copies each file into the source PDF bucket first.
	Upload bool
	// Prefix is prepended to the object key, slash-separated.
	Prefix string
	// TaskType selects the pipeline; empty means the default.
	TaskType string
	// Collection overrides the destination collection.
	Collection string
}

// Producer publishes PENDING tasks to the task queue.
type Producer struct {
	cfg     config.RabbitMQConfig
	backend storage.Backend
	bucket  string
}

// New builds a producer. backend may be nil when uploads are not needed.
func New(cfg config.RabbitMQConfig, backend storage.Backend, pdfBucket string) *Producer {
	return &Producer{cfg: cfg, backend: backend, bucket: pdfBucket}
}

// CollectPDFs expands the given files and directories into the list of PDF
// paths to enqueue. Directories are walked recursively; non-PDF files are
// skipped.
func CollectPDFs(paths []string) ([]string, error) {
	var pdfs []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if isPDF(p) {
				pdfs = append(pdfs, p)
			}
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isPDF(path) {
				pdfs = append(pdfs, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return pdfs, nil
}

func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// NewTask builds the minimal task for a local PDF: the title is the file
// stem and the object key is the base name under prefix.
func NewTask(filePath string, opts Options) *schema.Task {
	base := filepath.Base(filePath)
	objectName := base
	if opts.Prefix != "" {
		objectName = strings.TrimSuffix(opts.Prefix, "/") + "/" + base
	}

	taskType := opts.TaskType
	if taskType == "" {
		taskType = schema.DefaultTaskType
	}

	return &schema.Task{
		TaskID: uuid.New(),
		Status: schema.StatusPending,
		Document: schema.Document{
			Title:    strings.TrimSuffix(base, filepath.Ext(base)),
			Authors:  []schema.Author{},
			Keywords: []schema.Keyword{},
			FileName: objectName,
			DocType:  "pdf",
			Language: "unknown",
		},
		CreatedAt:             time.Now().UTC(),
		TaskType:              taskType,
		DestinationCollection: opts.Collection,
	}
}

// Run uploads (when requested) and enqueues one task per PDF. It returns
// the number of tasks published.
func (p *Producer) Run(ctx context.Context, paths []string, opts Options) (int, error) {
	pdfs, err := CollectPDFs(paths)
	if err != nil {
		return 0, err
	}
	if len(pdfs) == 0 {
		return 0, fmt.Errorf("no PDF files under %v", paths)
	}

	conn, err := amqp.DialConfig(p.cfg.URL(), amqp.Config{Properties: amqp.NewConnectionProperties()})
	if err != nil {
		return 0, fmt.Errorf("dial broker: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return 0, err
	}
	if _, err := ch.QueueDeclare(p.cfg.TaskQueue, true, false, false, false, nil); err != nil {
		return 0, err
	}

	published := 0
	for _, pdf := range pdfs {
		task := NewTask(pdf, opts)

		if opts.Upload {
			if p.backend == nil {
				return published, fmt.Errorf("upload requested but no storage configured")
			}
			if _, err := p.backend.Upload(ctx, pdf, task.Document.FileName, p.bucket); err != nil {
				return published, fmt.Errorf("upload %s: %w", pdf, err)
			}
		}

		body, err := task.Encode()
		if err != nil {
			return published, err
		}
		err = ch.PublishWithContext(ctx, "", p.cfg.TaskQueue, false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		})
		if err != nil {
			return published, fmt.Errorf("publish %s: %w", pdf, err)
		}
		published++
		logging.Op().Info("task enqueued", "task", task.TaskID, "file", task.Document.FileName)
	}
	return published, nil
}

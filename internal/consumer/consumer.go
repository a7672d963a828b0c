// Package consumer runs the task queue consumption loop: decode, dispatch
// to the worker pool, publish status transitions and acknowledge.
package consumer

import (
	"context"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/predoc-io/predoc/internal/config"
	"github.com/predoc-io/predoc/internal/logging"
	"github.com/predoc-io/predoc/internal/metrics"
	"github.com/predoc-io/predoc/internal/observability"
	"github.com/predoc-io/predoc/internal/pipeline"
	"github.com/predoc-io/predoc/internal/schema"
	"github.com/predoc-io/predoc/internal/taskerr"
	"github.com/predoc-io/predoc/internal/worker"
)

const (
	consumerTag = "predoc-consumer"

	// Long tasks must not trip the broker's liveness check.
	heartbeatInterval = 600 * time.Second

	reconnectBackoffMin = time.Second
	reconnectBackoffMax = 30 * time.Second
)

// op is a closure executed on the session goroutine. Channel objects are
// not safe for concurrent use, so workers never touch them directly; they
// enqueue ops instead. The generation ties an op to the session its
// delivery tag belongs to: tags from a dead session must not be acked on
// a new channel.
type op struct {
	gen uint64
	fn  func()
}

// Consumer owns the broker connection and feeds decoded tasks to the
// worker pool. All channel operations happen on the session goroutine.
type Consumer struct {
	cfg      config.RabbitMQConfig
	registry *pipeline.Registry
	deps     pipeline.Deps
	pool     *worker.Pool
	ops      chan op
	gen      uint64
}

// New builds a consumer over the given pool and pipeline registry.
func New(cfg config.RabbitMQConfig, registry *pipeline.Registry, deps pipeline.Deps, pool *worker.Pool) *Consumer {
	return &Consumer{
		cfg:      cfg,
		registry: registry,
		deps:     deps,
		pool:     pool,
		// Each busy worker enqueues at most one completion op, so this
		// never blocks a worker.
		ops: make(chan op, 2*pool.Size()),
	}
}

// Run consumes until ctx is cancelled, redialing with exponential backoff
// when the connection drops.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := reconnectBackoffMin
	for {
		if ctx.Err() != nil {
			return nil
		}

		consumed, err := c.runSession(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if consumed {
			backoff = reconnectBackoffMin
		}
		logging.Op().Warn("broker session ended, reconnecting",
			"error", err, "backoff", backoff)
		metrics.RecordReconnect()

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > reconnectBackoffMax {
			backoff = reconnectBackoffMax
		}
	}
}

// runSession dials, declares, and serves one connection until it breaks.
// consumed reports whether the session got far enough to receive
// deliveries, which resets the redial backoff.
func (c *Consumer) runSession(ctx context.Context) (consumed bool, err error) {
	conn, err := amqp.DialConfig(c.cfg.URL(), amqp.Config{
		Heartbeat:  heartbeatInterval,
		Properties: amqp.NewConnectionProperties(),
	})
	if err != nil {
		return false, err
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return false, err
	}

	for _, queue := range []string{c.cfg.TaskQueue, c.cfg.ResultQueue} {
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return false, err
		}
	}

	// One unacked delivery per worker: the broker holds the rest.
	if err := ch.Qos(c.pool.Size(), 0, false); err != nil {
		return false, err
	}

	deliveries, err := ch.Consume(c.cfg.TaskQueue, consumerTag, false, false, false, false, nil)
	if err != nil {
		return false, err
	}

	c.gen++
	gen := c.gen
	pub := statusPublisher(ch, c.cfg.ResultQueue)
	closed := conn.NotifyClose(make(chan *amqp.Error, 1))

	logging.Op().Info("consuming tasks",
		"queue", c.cfg.TaskQueue, "prefetch", c.pool.Size())

	for {
		select {
		case <-ctx.Done():
			return true, nil
		case amqpErr := <-closed:
			if amqpErr == nil {
				return true, errors.New("connection closed")
			}
			return true, amqpErr
		case d, ok := <-deliveries:
			if !ok {
				return true, errors.New("delivery channel closed")
			}
			c.handleDelivery(ctx, gen, d, pub)
		case o := <-c.ops:
			if o.gen == gen {
				o.fn()
			} else {
				// The delivery tag died with its session; the broker
				// will redeliver.
				logging.Op().Warn("dropping completion from stale session",
					"op_gen", o.gen, "session_gen", gen)
			}
		}
	}
}

// handleDelivery decodes one delivery, announces PROCESSING and hands the
// task to the pool. Runs on the session goroutine.
func (c *Consumer) handleDelivery(ctx context.Context, gen uint64, d amqp.Delivery, pub publishFunc) {
	task, err := schema.ParseTask(d.Body)
	if err != nil {
		logging.Op().Error("rejecting malformed task envelope", "error", err)
		metrics.RecordMalformed()
		if nerr := d.Nack(false, false); nerr != nil {
			logging.Op().Error("nack failed", "error", nerr)
		}
		return
	}

	now := time.Now().UTC()
	task.Status = schema.StatusProcessing
	task.ProcessedAt = &now
	if err := pub(ctx, schema.StatusMessageFor(task)); err != nil {
		logging.Op().Warn("failed to publish PROCESSING status",
			"task", task.TaskID, "error", err)
	}

	metrics.IncActiveTasks()
	err = c.pool.Submit(ctx, func() {
		defer metrics.DecActiveTasks()
		status, _ := c.processTask(ctx, task)
		c.ops <- op{gen: gen, fn: func() {
			c.finish(ctx, task, status, d, pub)
		}}
	})
	if err != nil {
		// Shutting down: put the task back.
		metrics.DecActiveTasks()
		logging.Op().Warn("dispatch refused, requeueing", "task", task.TaskID, "error", err)
		if nerr := d.Nack(false, true); nerr != nil {
			logging.Op().Error("requeue nack failed", "error", nerr)
		}
	}
}

// processTask runs the task's pipeline and returns the terminal status.
// Runs on a pool worker.
func (c *Consumer) processTask(ctx context.Context, task *schema.Task) (schema.TaskStatus, error) {
	started := time.Now()
	ctx, span := observability.StartConsumerSpan(ctx, "task.process",
		observability.AttrTaskID.String(task.TaskID.String()),
		observability.AttrTaskType.String(task.TaskType),
		observability.AttrFileName.String(task.Document.FileName),
	)
	defer span.End()

	p, ok := c.registry.Build(task.TaskType, c.deps)
	if !ok {
		err := taskerr.Newf(taskerr.KindUnknown, "no pipeline registered for task type %q", task.TaskType)
		observability.SetSpanError(span, err)
		return schema.StatusFailed, err
	}

	chunks, embeddings, err := p.Process(ctx, task)
	if err == nil {
		err = p.StoreEmbeddings(ctx, task, chunks, embeddings)
	}
	elapsed := time.Since(started)

	if err != nil {
		metrics.RecordTask(task.TaskType, string(schema.StatusFailed), elapsed)
		metrics.RecordTaskFailure(taskerr.KindOf(err).String())
		observability.SetSpanError(span, err)
		logging.Op().Error("task failed",
			"task", task.TaskID, "file", task.Document.FileName,
			"kind", taskerr.KindOf(err).String(), "error", err)
		return schema.StatusFailed, err
	}

	metrics.RecordTask(task.TaskType, string(schema.StatusDone), elapsed)
	metrics.RecordChunksStored(len(chunks))
	observability.SetSpanOK(span)
	span.SetAttributes(observability.AttrChunkCount.Int(len(chunks)))
	logging.Op().Info("task done",
		"task", task.TaskID, "file", task.Document.FileName,
		"chunks", len(chunks), "duration", elapsed)
	return schema.StatusDone, nil
}

// finish publishes the terminal status and settles the delivery. Runs on
// the session goroutine.
func (c *Consumer) finish(ctx context.Context, task *schema.Task, status schema.TaskStatus, d amqp.Delivery, pub publishFunc) {
	now := time.Now().UTC()
	task.Status = status
	task.FinishedAt = &now

	if err := pub(ctx, schema.StatusMessageFor(task)); err != nil {
		logging.Op().Warn("failed to publish terminal status",
			"task", task.TaskID, "status", status, "error", err)
	}

	if status == schema.StatusDone {
		if err := d.Ack(false); err != nil {
			logging.Op().Error("ack failed", "task", task.TaskID, "error", err)
		}
		return
	}
	// Failed tasks are not requeued; the producer decides on retries.
	if err := d.Nack(false, false); err != nil {
		logging.Op().Error("nack failed", "task", task.TaskID, "error", err)
	}
}

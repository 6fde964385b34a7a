package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nsqio/go-nsq"

	"ragbase/features/ingest"
	"ragbase/internal/index"
	"ragbase/internal/middleware"
)

// runTimeout bounds one queued indexing run. Runs are idempotent, so a
// timed-out attempt can simply be retried.
const runTimeout = 15 * time.Minute

const maxAttempts = 5

type IngestRunner interface {
	Run(ctx context.Context, req ingest.Request) (index.Stats, error)
}

type ResultPublisher interface {
	Publish(topic string, body []byte) error
}

// IngestConsumer drains queued indexing tasks. Each task names a directory;
// the run itself goes through the same service the synchronous endpoint uses.
type IngestConsumer struct {
	runner      IngestRunner
	publisher   ResultPublisher
	resultTopic string
}

func NewIngestConsumer(runner IngestRunner, publisher ResultPublisher, resultTopic string) *IngestConsumer {
	return &IngestConsumer{
		runner:      runner,
		publisher:   publisher,
		resultTopic: resultTopic,
	}
}

func (c *IngestConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var task ingest.Task
	if err := json.Unmarshal(m.Body, &task); err != nil {
		// Poison pill: invalid JSON, don't retry
		slog.Error("poison pill: invalid json", "error", err)
		return nil
	}

	ctx := context.Background()
	if task.CorrelationID != "" {
		ctx = middleware.WithCorrelationID(ctx, task.CorrelationID)
	}

	runCtx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	stats, err := c.runner.Run(runCtx, ingest.Request{
		Directory:   task.Directory,
		ForceUpdate: task.ForceUpdate,
		SkipCleanup: task.SkipCleanup,
	})
	if err != nil {
		slog.ErrorContext(ctx, "queued ingest run failed", "error", err, "directory", task.Directory, "attempt", m.Attempts)
		if m.Attempts >= maxAttempts {
			c.publishResult(ctx, task, stats, err)
			return nil
		}
		return err // retry
	}

	c.publishResult(ctx, task, stats, nil)
	slog.InfoContext(ctx, "queued ingest run finished",
		"directory", task.Directory,
		"added", stats.NumAdded,
		"updated", stats.NumUpdated,
		"skipped", stats.NumSkipped,
		"deleted", stats.NumDeleted,
	)
	return nil
}

func (c *IngestConsumer) publishResult(ctx context.Context, task ingest.Task, stats index.Stats, runErr error) {
	result := ingest.Result{
		Directory:     task.Directory,
		NumAdded:      stats.NumAdded,
		NumUpdated:    stats.NumUpdated,
		NumSkipped:    stats.NumSkipped,
		NumDeleted:    stats.NumDeleted,
		CorrelationID: task.CorrelationID,
	}
	if runErr != nil {
		result.Error = runErr.Error()
	}

	body, err := json.Marshal(result)
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal ingest result", "error", err)
		return
	}
	if err := c.publisher.Publish(c.resultTopic, body); err != nil {
		slog.ErrorContext(ctx, "failed to publish ingest result", "error", err)
	}
}

package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"ragbase/internal/docsource"
	"ragbase/internal/fault"
	"ragbase/internal/index"
	"ragbase/internal/middleware"
)

type Runner interface {
	Run(ctx context.Context, docs []index.Document, opts index.Options) (index.Stats, error)
}

type TaskPublisher interface {
	Publish(topic string, body []byte) error
}

type Service struct {
	runner    Runner
	publisher TaskPublisher
	taskTopic string

	// forceUpdate re-embeds every chunk regardless of hash match. Set from
	// the environment to pick up embedding-model changes; individual requests
	// can also ask for it.
	forceUpdate bool
}

func NewService(runner Runner, publisher TaskPublisher, taskTopic string, forceUpdate bool) *Service {
	return &Service{runner: runner, publisher: publisher, taskTopic: taskTopic, forceUpdate: forceUpdate}
}

// Run executes one synchronous indexing run over the request's documents, or
// over the files under its directory when no documents are inlined.
func (s *Service) Run(ctx context.Context, req Request) (index.Stats, error) {
	docs, err := s.resolveDocuments(ctx, req)
	if err != nil {
		return index.Stats{}, err
	}

	opts := index.Options{
		Cleanup:     index.CleanupFull,
		ForceUpdate: req.ForceUpdate || s.forceUpdate,
	}
	if req.SkipCleanup {
		opts.Cleanup = index.CleanupNone
	}

	return s.runner.Run(ctx, docs, opts)
}

// Enqueue publishes the run as a task instead of executing it. Only
// directory runs can be deferred.
func (s *Service) Enqueue(ctx context.Context, req Request) error {
	if req.Directory == "" {
		return fault.New(fault.KindValidation, "directory is required for asynchronous runs", nil)
	}
	if len(req.Documents) > 0 {
		return fault.New(fault.KindValidation, "inline documents cannot be enqueued", nil)
	}

	task := Task{
		Directory:     req.Directory,
		ForceUpdate:   req.ForceUpdate,
		SkipCleanup:   req.SkipCleanup,
		CorrelationID: middleware.GetCorrelationID(ctx),
	}
	body, err := json.Marshal(task)
	if err != nil {
		return err
	}

	if err := s.publisher.Publish(s.taskTopic, body); err != nil {
		return fmt.Errorf("publish ingest task: %w", err)
	}

	slog.InfoContext(ctx, "ingest task enqueued", "directory", req.Directory)
	return nil
}

func (s *Service) resolveDocuments(ctx context.Context, req Request) ([]index.Document, error) {
	if len(req.Documents) > 0 {
		docs := make([]index.Document, len(req.Documents))
		for i, d := range req.Documents {
			docs[i] = index.Document{
				Text: d.Text,
				Metadata: map[string]string{
					"source": d.Source,
					"title":  d.Title,
				},
			}
		}
		return docs, nil
	}

	if req.Directory == "" {
		return nil, fault.New(fault.KindValidation, "either documents or directory is required", nil)
	}

	docs, err := docsource.NewFS(req.Directory).Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load directory %s: %w", req.Directory, err)
	}
	return docs, nil
}

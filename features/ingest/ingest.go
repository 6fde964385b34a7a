package ingest

// Request describes one indexing run. Documents are indexed inline; when
// Directory is set instead, the run loads every markdown and text file under
// it. Cleanup defaults to full so removed content gets retired.
type Request struct {
	Documents   []DocumentPayload `json:"documents,omitempty"`
	Directory   string            `json:"directory,omitempty"`
	ForceUpdate bool              `json:"force_update,omitempty"`
	SkipCleanup bool              `json:"skip_cleanup,omitempty"`
}

type DocumentPayload struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Title  string `json:"title,omitempty"`
}

// Task is the queue payload for asynchronous runs. It only carries a
// directory reference; inline documents stay on the synchronous path so
// the queue never holds document bodies.
type Task struct {
	Directory     string `json:"directory"`
	ForceUpdate   bool   `json:"force_update,omitempty"`
	SkipCleanup   bool   `json:"skip_cleanup,omitempty"`
	CorrelationID string `json:"correlation_id"`
}

// Result is published after an asynchronous run completes.
type Result struct {
	Directory     string `json:"directory"`
	NumAdded      int    `json:"num_added"`
	NumUpdated    int    `json:"num_updated"`
	NumSkipped    int    `json:"num_skipped"`
	NumDeleted    int    `json:"num_deleted"`
	Error         string `json:"error,omitempty"`
	CorrelationID string `json:"correlation_id"`
}

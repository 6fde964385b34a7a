package ledger

import (
	"context"
	"time"
)

// UpsertResult reports what UpsertSeen did with a chunk key.
type UpsertResult int

const (
	// ResultCreated means no entry existed for the key.
	ResultCreated UpsertResult = iota
	// ResultUpdated means the entry existed with a different content hash.
	ResultUpdated
	// ResultUnchanged means the entry existed with the same hash; only the
	// seen timestamp was bumped. Unchanged chunks are never re-embedded.
	ResultUnchanged
)

func (r UpsertResult) String() string {
	switch r {
	case ResultCreated:
		return "created"
	case ResultUpdated:
		return "updated"
	case ResultUnchanged:
		return "unchanged"
	}
	return "unknown"
}

// Entry is one durable ledger row. The ledger is the source of truth for
// what the vector store currently contains, keyed by (namespace, key).
type Entry struct {
	Namespace   string
	Key         string
	ContentHash string
	GroupID     string
	UpdatedAt   time.Time
}

// Repository is the dedup ledger contract. UpsertSeen marks a chunk as seen
// in a run; ListStale finds keys from earlier runs that the current run did
// not reproduce for the given parent documents; DeleteKeys retires rows and
// must only run after the vector-store records are confirmed gone.
// GetHash supports classifying chunks before any provider call, so the
// write to the vector store can happen before the ledger commit.
type Repository interface {
	GetHash(ctx context.Context, namespace, key string) (contentHash string, found bool, err error)
	UpsertSeen(ctx context.Context, namespace, key, contentHash, groupID string, runTime time.Time) (UpsertResult, error)
	ListStale(ctx context.Context, namespace string, groupIDs []string, beforeRunTime time.Time) ([]string, error)
	DeleteKeys(ctx context.Context, namespace string, keys []string) error
	Count(ctx context.Context, namespace string) (int, error)
}

package index

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ragbase/internal/fault"
	"ragbase/internal/ledger"
	"ragbase/internal/text"
)

// Document is a raw input to the pipeline. The document-source collaborator
// owns fetching and cleanup; the pipeline only splits, dedups and stores.
type Document struct {
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata"`
}

// Record is one chunk ready for the vector store: deterministic key, vector,
// text and the fixed attribute set the collection schema declares.
type Record struct {
	Key     string
	Vector  []float32
	Text    string
	Source  string
	Title   string
	GroupID string
}

type CleanupMode int

const (
	// CleanupNone only adds and updates, never deletes.
	CleanupNone CleanupMode = iota
	// CleanupFull also retires chunks that earlier runs produced for the
	// covered group ids but this run did not reproduce.
	CleanupFull
)

type Options struct {
	Cleanup     CleanupMode
	ForceUpdate bool

	// CoveredGroups lists group ids the run covers beyond those derived from
	// the documents themselves. A document that disappeared from the corpus
	// only has its chunks retired if its group id is named here, since full
	// cleanup is scoped to covered groups and never touches the rest.
	CoveredGroups []string
}

type Stats struct {
	NumAdded   int `json:"num_added"`
	NumUpdated int `json:"num_updated"`
	NumSkipped int `json:"num_skipped"`
	NumDeleted int `json:"num_deleted"`
}

type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

type VectorStore interface {
	Upsert(ctx context.Context, records []Record) error
	DeleteByKeys(ctx context.Context, keys []string) error
}

// Pipeline keeps one vector-store collection consistent with a changing
// corpus without re-embedding unchanged chunks. The ledger is the source of
// truth for what the store contains; the store write for a chunk always
// precedes its ledger commit, so a provider failure leaves a retryable gap
// rather than a silently-skipped chunk.
type Pipeline struct {
	splitter  text.Splitter
	ledger    ledger.Repository
	store     VectorStore
	embedder  Embedder
	namespace string
}

func NewPipeline(splitter text.Splitter, lg ledger.Repository, store VectorStore, embedder Embedder, namespace string) *Pipeline {
	return &Pipeline{
		splitter:  splitter,
		ledger:    lg,
		store:     store,
		embedder:  embedder,
		namespace: namespace,
	}
}

// keyNamespace scopes the SHA1 UUIDs derived from content hashes.
var keyNamespace = uuid.NameSpaceOID

// DeriveKey maps a content hash to a stable chunk key. Keys are content
// derived, not source derived, so unrelated chunks sharing a source never
// collide.
func DeriveKey(contentHash string) string {
	return uuid.NewSHA1(keyNamespace, []byte(contentHash)).String()
}

func HashText(t string) string {
	sum := sha256.Sum256([]byte(t))
	return fmt.Sprintf("%x", sum)
}

type pendingChunk struct {
	key     string
	hash    string
	text    string
	source  string
	title   string
	groupID string
}

// Run indexes the given documents. With CleanupFull, callers must pass every
// document intended to be covered: group ids absent from docs keep their old
// chunks, but a group id that appears with fewer chunks than before has the
// leftovers retired.
func (p *Pipeline) Run(ctx context.Context, docs []Document, opts Options) (Stats, error) {
	runTime := time.Now().UTC()
	var stats Stats

	seenKeys := make(map[string]bool)
	var groupIDs []string
	seenGroups := make(map[string]bool)
	for _, g := range opts.CoveredGroups {
		if !seenGroups[g] {
			seenGroups[g] = true
			groupIDs = append(groupIDs, g)
		}
	}

	for _, doc := range docs {
		source := doc.Metadata["source"]
		title := doc.Metadata["title"]
		groupID := source
		if !seenGroups[groupID] {
			seenGroups[groupID] = true
			groupIDs = append(groupIDs, groupID)
		}

		var pending []pendingChunk
		for _, chunk := range p.splitter.Split(doc.Text) {
			hash := HashText(chunk)
			key := DeriveKey(hash)
			if seenKeys[key] {
				continue
			}
			seenKeys[key] = true

			existing, found, err := p.ledger.GetHash(ctx, p.namespace, key)
			if err != nil {
				return stats, fmt.Errorf("ledger lookup: %w", err)
			}

			if found && existing == hash && !opts.ForceUpdate {
				// Bump the timestamp so cleanup does not retire it.
				if _, err := p.ledger.UpsertSeen(ctx, p.namespace, key, hash, groupID, runTime); err != nil {
					return stats, fmt.Errorf("ledger bump: %w", err)
				}
				stats.NumSkipped++
				continue
			}

			pending = append(pending, pendingChunk{
				key:     key,
				hash:    hash,
				text:    chunk,
				source:  source,
				title:   title,
				groupID: groupID,
			})
		}

		if err := p.flush(ctx, pending, runTime, &stats); err != nil {
			return stats, err
		}
	}

	if opts.Cleanup == CleanupFull {
		deleted, err := p.cleanup(ctx, groupIDs, runTime)
		if err != nil {
			return stats, err
		}
		stats.NumDeleted = deleted
	}

	slog.InfoContext(ctx, "indexing run finished",
		"namespace", p.namespace,
		"added", stats.NumAdded,
		"updated", stats.NumUpdated,
		"skipped", stats.NumSkipped,
		"deleted", stats.NumDeleted,
	)
	return stats, nil
}

// flush embeds and stores one document's changed chunks, then commits them to
// the ledger. A provider failure aborts the run before any ledger commit for
// the batch, so a retry re-embeds instead of treating the chunks as indexed.
func (p *Pipeline) flush(ctx context.Context, pending []pendingChunk, runTime time.Time, stats *Stats) error {
	if len(pending) == 0 {
		return nil
	}

	texts := make([]string, len(pending))
	for i, c := range pending {
		texts[i] = c.text
	}

	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fault.IndexingPartial(fmt.Sprintf("embedding failed after %d added, %d updated", stats.NumAdded, stats.NumUpdated), err)
	}

	records := make([]Record, len(pending))
	for i, c := range pending {
		records[i] = Record{
			Key:     c.key,
			Vector:  vectors[i],
			Text:    c.text,
			Source:  c.source,
			Title:   c.title,
			GroupID: c.groupID,
		}
	}

	if err := p.store.Upsert(ctx, records); err != nil {
		return fault.IndexingPartial(fmt.Sprintf("vector store write failed after %d added, %d updated", stats.NumAdded, stats.NumUpdated), err)
	}

	for _, c := range pending {
		result, err := p.ledger.UpsertSeen(ctx, p.namespace, c.key, c.hash, c.groupID, runTime)
		if err != nil {
			return fault.IndexingPartial("ledger commit failed", err)
		}
		switch result {
		case ledger.ResultCreated:
			stats.NumAdded++
		default:
			// Re-embedded under ForceUpdate or a changed hash.
			stats.NumUpdated++
		}
	}
	return nil
}

// cleanup retires chunks that prior runs ledgered for the covered group ids
// but this run did not reproduce. Store first, ledger second: the ledger must
// never claim a record the store still holds is gone.
func (p *Pipeline) cleanup(ctx context.Context, groupIDs []string, runTime time.Time) (int, error) {
	stale, err := p.ledger.ListStale(ctx, p.namespace, groupIDs, runTime)
	if err != nil {
		return 0, fmt.Errorf("ledger stale scan: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	if err := p.store.DeleteByKeys(ctx, stale); err != nil {
		return 0, fault.IndexingPartial("vector store delete failed", err)
	}
	if err := p.ledger.DeleteKeys(ctx, p.namespace, stale); err != nil {
		return 0, fault.IndexingPartial("ledger delete failed", err)
	}
	return len(stale), nil
}

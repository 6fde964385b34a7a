package docsource

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"ragbase/internal/index"
)

var loadableExts = map[string]bool{
	".md":  true,
	".txt": true,
}

// FS loads documents from a directory tree. Each .md and .txt file becomes
// one document whose source is its path relative to the root, so re-running
// over the same tree yields stable group ids for the dedup ledger.
type FS struct {
	root string
}

func NewFS(root string) *FS {
	return &FS{root: root}
}

// Load walks the tree and returns one document per loadable file. Unreadable
// files abort the load; a partial document set would look like deletions to
// a full-cleanup indexing run.
func (s *FS) Load(ctx context.Context) ([]index.Document, error) {
	var docs []index.Document

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !loadableExts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		raw, err := os.ReadFile(path) // #nosec G304 -- path comes from walking the configured root
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		text := string(raw)
		docs = append(docs, index.Document{
			Text: text,
			Metadata: map[string]string{
				"source": rel,
				"title":  titleOf(text, rel),
			},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "loaded documents from filesystem", "root", s.root, "count", len(docs))
	return docs, nil
}

// titleOf prefers the first markdown heading, falling back to the file name
// without its extension.
func titleOf(text, rel string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") {
			return strings.TrimSpace(strings.TrimLeft(line, "#"))
		}
	}
	base := filepath.Base(rel)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

package docsource

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestFSLoad(t *testing.T) {
	t.Run("LoadsMarkdownAndText", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "guide.md", "# Getting Started\n\nInstall the thing.")
		writeFile(t, root, "notes/plain.txt", "plain notes")
		writeFile(t, root, "image.png", "binary")

		docs, err := NewFS(root).Load(context.Background())
		require.NoError(t, err)
		require.Len(t, docs, 2)

		bySource := map[string]string{}
		for _, d := range docs {
			bySource[d.Metadata["source"]] = d.Metadata["title"]
		}
		assert.Equal(t, "Getting Started", bySource["guide.md"])
		assert.Equal(t, "plain", bySource["notes/plain.txt"])
	})

	t.Run("TitleFallsBackToFilename", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "changelog.md", "no heading here")

		docs, err := NewFS(root).Load(context.Background())
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "changelog", docs[0].Metadata["title"])
	})

	t.Run("MissingRootFails", func(t *testing.T) {
		_, err := NewFS(filepath.Join(t.TempDir(), "nope")).Load(context.Background())
		assert.Error(t, err)
	})

	t.Run("CancelledContextAborts", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "a.md", "# A")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := NewFS(root).Load(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

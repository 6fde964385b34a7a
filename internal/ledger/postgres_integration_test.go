package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragbase/internal/ledger"
	"ragbase/internal/testutils"
)

func TestPostgresRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := testutils.NewIntegrationSuite(t)
	s.Setup()
	defer s.Teardown()

	repo := ledger.NewPostgresRepo(s.DB)
	ctx := context.Background()

	namespace := "weaviate/IntegrationGuides"
	firstRun := time.Now().UTC().Add(-time.Hour)

	// 1. First run: two chunks of one document
	res, err := repo.UpsertSeen(ctx, namespace, "key-1", "hash-1", "doc-a", firstRun)
	require.NoError(t, err)
	assert.Equal(t, ledger.ResultCreated, res)

	res, err = repo.UpsertSeen(ctx, namespace, "key-2", "hash-2", "doc-a", firstRun)
	require.NoError(t, err)
	assert.Equal(t, ledger.ResultCreated, res)

	count, err := repo.Count(ctx, namespace)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// 2. Re-run with identical content: unchanged, but timestamps bump
	secondRun := time.Now().UTC()
	res, err = repo.UpsertSeen(ctx, namespace, "key-1", "hash-1", "doc-a", secondRun)
	require.NoError(t, err)
	assert.Equal(t, ledger.ResultUnchanged, res)

	hash, found, err := repo.GetHash(ctx, namespace, "key-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "hash-1", hash)

	// 3. key-2 was not reproduced in the second run, so it is stale
	stale, err := repo.ListStale(ctx, namespace, []string{"doc-a"}, secondRun)
	require.NoError(t, err)
	assert.Equal(t, []string{"key-2"}, stale)

	// 4. Edited content on key-1 counts as updated
	res, err = repo.UpsertSeen(ctx, namespace, "key-1", "hash-1b", "doc-a", secondRun)
	require.NoError(t, err)
	assert.Equal(t, ledger.ResultUpdated, res)

	// 5. Retire the stale key; other namespaces stay untouched
	res, err = repo.UpsertSeen(ctx, "weaviate/Other", "key-2", "hash-2", "doc-a", firstRun)
	require.NoError(t, err)
	assert.Equal(t, ledger.ResultCreated, res)

	require.NoError(t, repo.DeleteKeys(ctx, namespace, []string{"key-2"}))

	count, err = repo.Count(ctx, namespace)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = repo.Count(ctx, "weaviate/Other")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ragbase/internal/retrieval"
)

type MockRetriever struct {
	mock.Mock
}

func (m *MockRetriever) Retrieve(ctx context.Context, query string, topK int) ([]retrieval.Document, error) {
	args := m.Called(ctx, query, topK)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]retrieval.Document), args.Error(1)
}

func queriesJSON(t *testing.T, queries ...string) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(map[string][]string{"queries": queries})
	require.NoError(t, err)
	return raw
}

func TestQueryResearcher(t *testing.T) {
	t.Run("MergesResultsInQueryOrder", func(t *testing.T) {
		model := new(MockChatModel)
		retriever := new(MockRetriever)

		model.On("GenerateStructured", mock.Anything, querySchema, mock.Anything, []string{"nostream"}).
			Return(queriesJSON(t, "query one", "query two"), nil).Once()

		// The first query is deliberately slower so a nondeterministic merge
		// would surface the second query's documents first.
		retriever.On("Retrieve", mock.Anything, "query one", 4).
			Run(func(mock.Arguments) { time.Sleep(20 * time.Millisecond) }).
			Return([]retrieval.Document{{Text: "one-a"}, {Text: "one-b"}}, nil).Once()
		retriever.On("Retrieve", mock.Anything, "query two", 4).
			Return([]retrieval.Document{{Text: "two-a"}}, nil).Once()

		r := NewQueryResearcher(model, retriever, 4)
		docs, err := r.Research(context.Background(), "how are chunks deduplicated?")

		require.NoError(t, err)
		assert.Equal(t, []retrieval.Document{{Text: "one-a"}, {Text: "one-b"}, {Text: "two-a"}}, docs)
		model.AssertExpectations(t)
		retriever.AssertExpectations(t)
	})

	t.Run("FallsBackToQuestionOnEmptyQueries", func(t *testing.T) {
		model := new(MockChatModel)
		retriever := new(MockRetriever)

		model.On("GenerateStructured", mock.Anything, querySchema, mock.Anything, []string{"nostream"}).
			Return(queriesJSON(t), nil).Once()
		retriever.On("Retrieve", mock.Anything, "original question", 3).
			Return([]retrieval.Document{{Text: "doc"}}, nil).Once()

		r := NewQueryResearcher(model, retriever, 3)
		docs, err := r.Research(context.Background(), "original question")

		require.NoError(t, err)
		assert.Len(t, docs, 1)
		retriever.AssertExpectations(t)
	})

	t.Run("PropagatesRetrieveError", func(t *testing.T) {
		model := new(MockChatModel)
		retriever := new(MockRetriever)

		model.On("GenerateStructured", mock.Anything, querySchema, mock.Anything, []string{"nostream"}).
			Return(queriesJSON(t, "good query", "bad query"), nil).Once()
		retriever.On("Retrieve", mock.Anything, "good query", 3).
			Return([]retrieval.Document{{Text: "doc"}}, nil).Once()
		retriever.On("Retrieve", mock.Anything, "bad query", 3).
			Return(nil, errors.New("vector store unreachable")).Once()

		r := NewQueryResearcher(model, retriever, 3)
		docs, err := r.Research(context.Background(), "question")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad query")
		assert.Nil(t, docs)
	})

	t.Run("PropagatesGenerationError", func(t *testing.T) {
		model := new(MockChatModel)
		retriever := new(MockRetriever)

		model.On("GenerateStructured", mock.Anything, querySchema, mock.Anything, []string{"nostream"}).
			Return(nil, errors.New("quota exceeded")).Once()

		r := NewQueryResearcher(model, retriever, 3)
		_, err := r.Research(context.Background(), "question")

		require.Error(t, err)
		retriever.AssertNotCalled(t, "Retrieve", mock.Anything, mock.Anything, mock.Anything)
	})
}

package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ragbase/internal/fault"
	"ragbase/internal/index"
)

type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, docs []index.Document, opts index.Options) (index.Stats, error) {
	args := m.Called(ctx, docs, opts)
	return args.Get(0).(index.Stats), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(topic string, body []byte) error {
	args := m.Called(topic, body)
	return args.Error(0)
}

func postJSON(t *testing.T, handler http.HandlerFunc, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/ingest", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestHandlerRun(t *testing.T) {
	t.Run("IndexesInlineDocuments", func(t *testing.T) {
		runner := new(MockRunner)
		runner.On("Run", mock.Anything, mock.MatchedBy(func(docs []index.Document) bool {
			return len(docs) == 1 && docs[0].Metadata["source"] == "guide.md"
		}), index.Options{Cleanup: index.CleanupFull}).
			Return(index.Stats{NumAdded: 3}, nil).Once()

		h := NewHandler(NewService(runner, new(MockPublisher), "ingest.request", false))
		rec := postJSON(t, h.Run, Request{
			Documents: []DocumentPayload{{Text: "hello", Source: "guide.md", Title: "Guide"}},
		})

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			Data index.Stats `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 3, resp.Data.NumAdded)
		runner.AssertExpectations(t)
	})

	t.Run("SkipCleanupDisablesDeletes", func(t *testing.T) {
		runner := new(MockRunner)
		runner.On("Run", mock.Anything, mock.Anything, index.Options{Cleanup: index.CleanupNone}).
			Return(index.Stats{}, nil).Once()

		h := NewHandler(NewService(runner, new(MockPublisher), "ingest.request", false))
		rec := postJSON(t, h.Run, Request{
			Documents:   []DocumentPayload{{Text: "hello", Source: "a.md"}},
			SkipCleanup: true,
		})

		assert.Equal(t, http.StatusOK, rec.Code)
		runner.AssertExpectations(t)
	})

	t.Run("EnvForceUpdateAppliesToEveryRun", func(t *testing.T) {
		runner := new(MockRunner)
		runner.On("Run", mock.Anything, mock.Anything, index.Options{Cleanup: index.CleanupFull, ForceUpdate: true}).
			Return(index.Stats{}, nil).Once()

		h := NewHandler(NewService(runner, new(MockPublisher), "ingest.request", true))
		rec := postJSON(t, h.Run, Request{
			Documents: []DocumentPayload{{Text: "hello", Source: "a.md"}},
		})

		assert.Equal(t, http.StatusOK, rec.Code)
		runner.AssertExpectations(t)
	})

	t.Run("RejectsEmptyRequest", func(t *testing.T) {
		h := NewHandler(NewService(new(MockRunner), new(MockPublisher), "ingest.request", false))
		rec := postJSON(t, h.Run, Request{})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), string(fault.KindValidation))
	})

	t.Run("RejectsMalformedBody", func(t *testing.T) {
		h := NewHandler(NewService(new(MockRunner), new(MockPublisher), "ingest.request", false))

		req := httptest.NewRequest(http.MethodPost, "/ingest", bytes.NewReader([]byte("{")))
		rec := httptest.NewRecorder()
		h.Run(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("MapsPartialFailureToBadGateway", func(t *testing.T) {
		runner := new(MockRunner)
		runner.On("Run", mock.Anything, mock.Anything, mock.Anything).
			Return(index.Stats{NumAdded: 1}, fault.IndexingPartial("2 chunks failed", errors.New("ledger down"))).Once()

		h := NewHandler(NewService(runner, new(MockPublisher), "ingest.request", false))
		rec := postJSON(t, h.Run, Request{
			Documents: []DocumentPayload{{Text: "hello", Source: "a.md"}},
		})

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Contains(t, rec.Body.String(), string(fault.KindIndexingPartial))
	})
}

func TestHandlerRunAsync(t *testing.T) {
	t.Run("QueuesDirectoryRun", func(t *testing.T) {
		publisher := new(MockPublisher)
		publisher.On("Publish", "ingest.request", mock.MatchedBy(func(body []byte) bool {
			var task Task
			return json.Unmarshal(body, &task) == nil && task.Directory == "/data/docs" && task.ForceUpdate
		})).Return(nil).Once()

		h := NewHandler(NewService(new(MockRunner), publisher, "ingest.request", false))
		rec := postJSON(t, h.RunAsync, Request{Directory: "/data/docs", ForceUpdate: true})

		assert.Equal(t, http.StatusAccepted, rec.Code)
		publisher.AssertExpectations(t)
	})

	t.Run("RejectsInlineDocuments", func(t *testing.T) {
		h := NewHandler(NewService(new(MockRunner), new(MockPublisher), "ingest.request", false))
		rec := postJSON(t, h.RunAsync, Request{
			Directory: "/data/docs",
			Documents: []DocumentPayload{{Text: "hello", Source: "a.md"}},
		})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("RejectsMissingDirectory", func(t *testing.T) {
		h := NewHandler(NewService(new(MockRunner), new(MockPublisher), "ingest.request", false))
		rec := postJSON(t, h.RunAsync, Request{})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("PublishFailureIsInternal", func(t *testing.T) {
		publisher := new(MockPublisher)
		publisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("nsqd unreachable")).Once()

		h := NewHandler(NewService(new(MockRunner), publisher, "ingest.request", false))
		rec := postJSON(t, h.RunAsync, Request{Directory: "/data/docs"})

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

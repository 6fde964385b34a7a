package weaviate

import (
	"context"
	"fmt"

	"github.com/go-openapi/strfmt"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"ragbase/internal/fault"
	"ragbase/internal/index"
	"ragbase/internal/retrieval"
	"ragbase/internal/vector"
)

// Store wraps one Weaviate collection. It serves both the indexing pipeline
// and the retriever, so writes and searches always hit the same class.
type Store struct {
	client *weaviate.Client
	class  string
}

func NewStore(client *weaviate.Client, class string) *Store {
	return &Store{client: client, class: class}
}

func (s *Store) Class() string { return s.class }

// Upsert writes records under their keys, replacing any existing object with
// the same key. Batch PUT semantics make re-runs idempotent.
func (s *Store) Upsert(ctx context.Context, records []index.Record) error {
	if len(records) == 0 {
		return nil
	}

	objects := make([]*models.Object, len(records))
	for i, rec := range records {
		objects[i] = &models.Object{
			Class: s.class,
			ID:    strfmt.UUID(rec.Key),
			Properties: map[string]interface{}{
				"text":    rec.Text,
				"source":  rec.Source,
				"title":   rec.Title,
				"groupId": rec.GroupID,
			},
			Vector: rec.Vector,
		}
	}

	resp, err := s.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return fault.Provider("weaviate batch upsert failed", err)
	}
	for _, obj := range resp {
		if obj.Result != nil && obj.Result.Errors != nil && len(obj.Result.Errors.Error) > 0 {
			return fault.Provider(fmt.Sprintf("weaviate rejected object %s: %s", obj.ID, obj.Result.Errors.Error[0].Message), nil)
		}
	}
	return nil
}

// DeleteByKeys removes the objects stored under the given keys.
func (s *Store) DeleteByKeys(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	where := filters.Where().
		WithPath([]string{"id"}).
		WithOperator(filters.ContainsAny).
		WithValueText(keys...)

	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(s.class).
		WithOutput("minimal").
		WithWhere(where).
		Do(ctx)
	if err != nil {
		return fault.Provider("weaviate batch delete failed", err)
	}
	return nil
}

// Search runs a nearVector query and returns documents ordered by descending
// certainty, carrying the declared attributes on every hit.
func (s *Store) Search(ctx context.Context, queryVector []float32, topK int) ([]retrieval.Document, error) {
	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(queryVector)

	fields := []graphql.Field{
		{Name: "text"},
	}
	for _, attr := range vector.RequiredAttributes {
		fields = append(fields, graphql.Field{Name: attr})
	}
	fields = append(fields, graphql.Field{Name: "_additional", Fields: []graphql.Field{{Name: "certainty"}}})

	res, err := s.client.GraphQL().Get().
		WithClassName(s.class).
		WithNearVector(nearVector).
		WithLimit(topK).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return nil, fault.Provider("weaviate search failed", err)
	}
	if len(res.Errors) > 0 {
		return nil, fault.Provider(fmt.Sprintf("weaviate graphql error: %v", res.Errors[0].Message), nil)
	}

	var docs []retrieval.Document
	data, ok := res.Data["Get"].(map[string]interface{})
	if !ok {
		return docs, nil
	}
	objects, ok := data[s.class].([]interface{})
	if !ok {
		return docs, nil
	}

	for _, o := range objects {
		props, ok := o.(map[string]interface{})
		if !ok {
			continue
		}

		var doc retrieval.Document
		if text, ok := props["text"].(string); ok {
			doc.Text = text
		}
		if source, ok := props["source"].(string); ok {
			doc.Source = source
		}
		if title, ok := props["title"].(string); ok {
			doc.Title = title
		}
		if additional, ok := props["_additional"].(map[string]interface{}); ok {
			if certainty, ok := additional["certainty"].(float64); ok {
				doc.Score = float32(certainty)
			}
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Count returns the number of objects in the collection.
func (s *Store) Count(ctx context.Context) (int, error) {
	meta := graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}

	res, err := s.client.GraphQL().Aggregate().
		WithClassName(s.class).
		WithFields(meta).
		Do(ctx)
	if err != nil {
		return 0, fault.Provider("weaviate aggregate failed", err)
	}
	if len(res.Errors) > 0 {
		return 0, fault.Provider(fmt.Sprintf("weaviate graphql error: %v", res.Errors[0].Message), nil)
	}

	data, ok := res.Data["Aggregate"].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	rows, ok := data[s.class].([]interface{})
	if !ok || len(rows) == 0 {
		return 0, nil
	}
	row, ok := rows[0].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	if metaVal, ok := row["meta"].(map[string]interface{}); ok {
		if count, ok := metaVal["count"].(float64); ok {
			return int(count), nil
		}
	}
	return 0, nil
}

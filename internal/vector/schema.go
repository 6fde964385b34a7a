package vector

import (
	"context"
	"fmt"

	"github.com/weaviate/weaviate/entities/models"

	"ragbase/internal/fault"
)

// RequiredAttributes are the properties every stored record must carry.
// Search returns them on each hit, so a record missing one breaks query
// results; the indexing pipeline guarantees they are always set.
var RequiredAttributes = []string{"source", "title"}

// SchemaClient defines the interface for Weaviate schema operations
type SchemaClient interface {
	ClassExists(ctx context.Context, className string) (bool, error)
	CreateClass(ctx context.Context, class *models.Class) error
	GetClass(ctx context.Context, className string) (*models.Class, error)
	AddProperty(ctx context.Context, className string, property *models.Property) error
}

// EnsureSchema checks that the collection class exists with the attribute
// schema queries depend on, creating the class or missing properties as
// needed. Runs at bootstrap so attribute problems fail fast instead of
// surfacing at query time.
func EnsureSchema(ctx context.Context, client SchemaClient, className string) error {
	exists, err := client.ClassExists(ctx, className)
	if err != nil {
		return err
	}

	properties := []*models.Property{
		{
			Name:     "text",
			DataType: []string{"text"},
		},
		{
			Name:     "source",
			DataType: []string{"text"},
		},
		{
			Name:     "title",
			DataType: []string{"text"},
		},
		{
			Name:     "groupId",
			DataType: []string{"string"}, // parent document id (exact match)
		},
	}

	if !exists {
		class := &models.Class{
			Class:       className,
			Description: "A chunk of an indexed document",
			Vectorizer:  "none",
			Properties:  properties,
		}
		return client.CreateClass(ctx, class)
	}

	class, err := client.GetClass(ctx, className)
	if err != nil {
		return err
	}

	existingProps := make(map[string]bool)
	for _, p := range class.Properties {
		existingProps[p.Name] = true
	}

	for _, p := range properties {
		if !existingProps[p.Name] {
			if err := client.AddProperty(ctx, className, p); err != nil {
				return err
			}
		}
	}

	return nil
}

// ValidateAttributes confirms the class declares every required attribute.
func ValidateAttributes(ctx context.Context, client SchemaClient, className string) error {
	class, err := client.GetClass(ctx, className)
	if err != nil {
		return fault.Configuration(fmt.Sprintf("collection %q is not readable", className), err)
	}

	declared := make(map[string]bool)
	for _, p := range class.Properties {
		declared[p.Name] = true
	}

	for _, attr := range RequiredAttributes {
		if !declared[attr] {
			return fault.Configuration(fmt.Sprintf("collection %q is missing required attribute %q", className, attr), nil)
		}
	}
	return nil
}

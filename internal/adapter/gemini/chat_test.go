package gemini

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragbase/internal/llm"
)

func TestSplitConversation(t *testing.T) {
	t.Run("SystemGoesToInstruction", func(t *testing.T) {
		system, history, last := splitConversation([]llm.Message{
			{Role: llm.RoleSystem, Content: "be terse"},
			{Role: llm.RoleUser, Content: "hello"},
		})

		assert.Equal(t, "be terse", system)
		assert.Empty(t, history)
		assert.Equal(t, "hello", last)
	})

	t.Run("MultipleSystemPromptsJoin", func(t *testing.T) {
		system, _, _ := splitConversation([]llm.Message{
			{Role: llm.RoleSystem, Content: "one"},
			{Role: llm.RoleSystem, Content: "two"},
			{Role: llm.RoleUser, Content: "q"},
		})

		assert.Equal(t, "one\n\ntwo", system)
	})

	t.Run("AssistantTurnsBecomeModelHistory", func(t *testing.T) {
		_, history, last := splitConversation([]llm.Message{
			{Role: llm.RoleUser, Content: "first question"},
			{Role: llm.RoleAssistant, Content: "first answer"},
			{Role: llm.RoleUser, Content: "second question"},
		})

		require.Len(t, history, 2)
		assert.Equal(t, "user", history[0].Role)
		assert.Equal(t, "model", history[1].Role)
		assert.Equal(t, "second question", last)
	})

	t.Run("EmptyConversation", func(t *testing.T) {
		system, history, last := splitConversation(nil)

		assert.Empty(t, system)
		assert.Empty(t, history)
		assert.Empty(t, last)
	})
}

func TestToGenaiSchema(t *testing.T) {
	t.Run("Nil", func(t *testing.T) {
		assert.Nil(t, toGenaiSchema(nil))
	})

	t.Run("ObjectWithArrayProperty", func(t *testing.T) {
		out := toGenaiSchema(&llm.Schema{
			Type: "object",
			Properties: map[string]*llm.Schema{
				"steps": {
					Type:        "array",
					Description: "ordered steps",
					Items:       &llm.Schema{Type: "string"},
				},
			},
			Required: []string{"steps"},
		})

		require.NotNil(t, out)
		assert.Equal(t, genai.TypeObject, out.Type)
		assert.Equal(t, []string{"steps"}, out.Required)

		steps := out.Properties["steps"]
		require.NotNil(t, steps)
		assert.Equal(t, genai.TypeArray, steps.Type)
		assert.Equal(t, "ordered steps", steps.Description)
		require.NotNil(t, steps.Items)
		assert.Equal(t, genai.TypeString, steps.Items.Type)
	})

	t.Run("ScalarTypes", func(t *testing.T) {
		assert.Equal(t, genai.TypeInteger, toGenaiSchema(&llm.Schema{Type: "integer"}).Type)
		assert.Equal(t, genai.TypeNumber, toGenaiSchema(&llm.Schema{Type: "number"}).Type)
		assert.Equal(t, genai.TypeBoolean, toGenaiSchema(&llm.Schema{Type: "boolean"}).Type)
		assert.Equal(t, genai.TypeString, toGenaiSchema(&llm.Schema{Type: "string"}).Type)
	})
}

func TestFlattenResponse(t *testing.T) {
	t.Run("JoinsTextParts", func(t *testing.T) {
		text, err := flattenResponse(&genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []genai.Part{genai.Text("hello "), genai.Text("world")}},
			}},
		})

		require.NoError(t, err)
		assert.Equal(t, "hello world", text)
	})

	t.Run("NoCandidates", func(t *testing.T) {
		_, err := flattenResponse(&genai.GenerateContentResponse{})
		assert.Error(t, err)
	})

	t.Run("EmptyContent", func(t *testing.T) {
		_, err := flattenResponse(&genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{Content: &genai.Content{}}},
		})
		assert.Error(t, err)
	})
}

func TestNewChatRequiresAPIKey(t *testing.T) {
	_, err := NewChat(context.Background(), "", "gemini-2.0-flash")
	assert.Error(t, err)
}

package gemini

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"ragbase/internal/fault"
	"ragbase/internal/llm"
)

// Chat adapts a Gemini generative model to the llm.ChatModel capability.
// Structured generation uses Gemini's JSON mode with a response schema.
type Chat struct {
	client *genai.Client
	model  string
}

func NewChat(ctx context.Context, apiKey, model string) (*Chat, error) {
	if apiKey == "" {
		return nil, fault.Configuration("gemini api key not configured", nil)
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &Chat{client: client, model: model}, nil
}

func (c *Chat) GenerateStructured(ctx context.Context, schema *llm.Schema, messages []llm.Message, tags []string) (json.RawMessage, error) {
	model := c.client.GenerativeModel(c.model)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = toGenaiSchema(schema)

	if len(tags) > 0 {
		slog.DebugContext(ctx, "structured generation", "model", c.model, "tags", strings.Join(tags, ","))
	}

	text, err := c.generate(ctx, model, messages)
	if err != nil {
		return nil, err
	}

	raw := json.RawMessage(text)
	if !json.Valid(raw) {
		return nil, fault.StructuredOutput("model output is not valid JSON", nil)
	}
	return raw, nil
}

func (c *Chat) GenerateText(ctx context.Context, messages []llm.Message) (llm.Message, error) {
	model := c.client.GenerativeModel(c.model)
	text, err := c.generate(ctx, model, messages)
	if err != nil {
		return llm.Message{}, err
	}
	return llm.Message{Role: llm.RoleAssistant, Content: text}, nil
}

func (c *Chat) generate(ctx context.Context, model *genai.GenerativeModel, messages []llm.Message) (string, error) {
	system, history, last := splitConversation(messages)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	session := model.StartChat()
	session.History = history

	resp, err := session.SendMessage(ctx, genai.Text(last))
	if err != nil {
		return "", fault.Provider("gemini generation failed", err)
	}

	return flattenResponse(resp)
}

// splitConversation maps our message roles onto Gemini's: system prompts go
// to the system instruction, prior turns to chat history, and the final user
// message is the one actually sent.
func splitConversation(messages []llm.Message) (system string, history []*genai.Content, last string) {
	var turns []llm.Message
	var systems []string
	for _, m := range messages {
		if m.Role == llm.RoleSystem {
			systems = append(systems, m.Content)
			continue
		}
		turns = append(turns, m)
	}
	system = strings.Join(systems, "\n\n")

	if len(turns) == 0 {
		return system, nil, ""
	}

	last = turns[len(turns)-1].Content
	for _, m := range turns[:len(turns)-1] {
		role := "user"
		if m.Role == llm.RoleAssistant {
			role = "model"
		}
		history = append(history, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}
	return system, history, last
}

func flattenResponse(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fault.Provider("gemini returned no candidates", nil)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	if sb.Len() == 0 {
		return "", fault.Provider("gemini returned empty content", nil)
	}
	return sb.String(), nil
}

func toGenaiSchema(s *llm.Schema) *genai.Schema {
	if s == nil {
		return nil
	}

	out := &genai.Schema{Description: s.Description, Required: s.Required}
	switch s.Type {
	case "object":
		out.Type = genai.TypeObject
	case "array":
		out.Type = genai.TypeArray
	case "integer":
		out.Type = genai.TypeInteger
	case "number":
		out.Type = genai.TypeNumber
	case "boolean":
		out.Type = genai.TypeBoolean
	default:
		out.Type = genai.TypeString
	}

	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toGenaiSchema(prop)
		}
	}
	out.Items = toGenaiSchema(s.Items)
	return out
}

func (c *Chat) Close() error {
	return c.client.Close()
}

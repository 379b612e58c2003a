package models

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ---------------------------- Google Gemini ----------------------------------

// GeminiLLM talks to Gemini with native function calling.
type GeminiLLM struct {
	Client       *genai.Client
	Model        string
	PromptPrefix string

	chat *genai.ChatSession
}

// NewGeminiLLM builds a Gemini binding. It reads GOOGLE_API_KEY or
// GEMINI_API_KEY from the environment.
func NewGeminiLLM(ctx context.Context, model, promptPrefix string) (*GeminiLLM, error) {
	apiKey := os.Getenv("GOOGLE_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New("missing GOOGLE_API_KEY or GEMINI_API_KEY")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini init: %w", err)
	}
	return &GeminiLLM{Client: client, Model: model, PromptPrefix: promptPrefix}, nil
}

func (g *GeminiLLM) Generate(ctx context.Context, prompt string, tools []ToolDecl) (Response, error) {
	model := g.Client.GenerativeModel(g.Model)
	if decls := toGeminiDeclarations(tools); len(decls) > 0 {
		model.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	fullPrompt := prompt
	if prefix := strings.TrimSpace(g.PromptPrefix); prefix != "" {
		fullPrompt = fmt.Sprintf("%s\n\n%s", prefix, prompt)
	}

	g.chat = model.StartChat()
	resp, err := g.chat.SendMessage(ctx, genai.Text(fullPrompt))
	if err != nil {
		return Response{}, fmt.Errorf("gemini generate: %w", err)
	}
	return geminiResponse(resp)
}

func (g *GeminiLLM) SendToolResult(ctx context.Context, call ToolCall, result string) (string, error) {
	if g.chat == nil {
		return "", errors.New("gemini: no active exchange")
	}
	resp, err := g.chat.SendMessage(ctx, genai.FunctionResponse{
		Name:     call.Name,
		Response: map[string]any{"result": result},
	})
	if err != nil {
		return "", fmt.Errorf("gemini tool result: %w", err)
	}
	parsed, err := geminiResponse(resp)
	if err != nil {
		return "", err
	}
	return parsed.Text, nil
}

func geminiResponse(resp *genai.GenerateContentResponse) (Response, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Response{}, errors.New("gemini: empty response")
	}

	var out Response
	for _, part := range resp.Candidates[0].Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			out.Text += string(p)
		case genai.FunctionCall:
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:        fmt.Sprintf("gemini-%d", len(out.ToolCalls)+1),
				Name:      p.Name,
				Arguments: p.Args,
			})
		}
	}
	return out, nil
}

func toGeminiDeclarations(tools []ToolDecl) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  toGeminiSchema(t.Schema),
		})
	}
	return decls
}

// toGeminiSchema converts the JSON-schema object shape into the genai schema
// tree. Unknown or missing pieces degrade to plain string parameters.
func toGeminiSchema(schema map[string]any) *genai.Schema {
	if len(schema) == 0 {
		return &genai.Schema{Type: genai.TypeObject}
	}

	out := &genai.Schema{Type: geminiType(stringAt(schema, "type"))}
	if desc := stringAt(schema, "description"); desc != "" {
		out.Description = desc
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		out.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			if sub, ok := raw.(map[string]any); ok {
				out.Properties[name] = toGeminiSchema(sub)
			} else {
				out.Properties[name] = &genai.Schema{Type: genai.TypeString}
			}
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		out.Items = toGeminiSchema(items)
	}
	out.Required = stringsAt(schema, "required")
	return out
}

func geminiType(t string) genai.Type {
	switch strings.ToLower(t) {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object", "":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}

func stringAt(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func stringsAt(m map[string]any, key string) []string {
	switch v := m[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

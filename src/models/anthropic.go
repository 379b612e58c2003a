package models

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	json "github.com/alpkeskin/gotoon"
	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
)

// ---------------------------- Anthropic ---------------------------------------

// AnthropicLLM implements the Agent contract over the Messages API with
// native tool-use blocks.
type AnthropicLLM struct {
	Client       *anthropic.Client
	Model        string
	MaxTokens    int
	PromptPrefix string

	history []anthropic.MessageParam
	tools   []anthropic.ToolUnionParam
}

// NewAnthropicLLM constructs a client. It reads ANTHROPIC_API_KEY from the env.
func NewAnthropicLLM(model, promptPrefix string) *AnthropicLLM {
	key := os.Getenv("ANTHROPIC_API_KEY")
	cl := anthropic.NewClient(
		anthropicopt.WithAPIKey(key),
	)
	return &AnthropicLLM{
		Client:       &cl,
		Model:        model,
		MaxTokens:    4096,
		PromptPrefix: promptPrefix,
	}
}

func (a *AnthropicLLM) Generate(ctx context.Context, prompt string, tools []ToolDecl) (Response, error) {
	fullPrompt := prompt
	if a.PromptPrefix != "" {
		fullPrompt = fmt.Sprintf("%s\n\n%s", a.PromptPrefix, prompt)
	}

	a.tools = toAnthropicTools(tools)
	a.history = []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(fullPrompt)),
	}

	return a.complete(ctx)
}

func (a *AnthropicLLM) SendToolResult(ctx context.Context, call ToolCall, result string) (string, error) {
	if len(a.history) == 0 {
		return "", errors.New("anthropic: no active exchange")
	}
	a.history = append(a.history,
		anthropic.NewUserMessage(anthropic.NewToolResultBlock(call.ID, result, false)),
	)
	resp, err := a.complete(ctx)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

func (a *AnthropicLLM) complete(ctx context.Context) (Response, error) {
	msg, err := a.Client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.Model),
		MaxTokens: int64(a.MaxTokens),
		Messages:  a.history,
		Tools:     a.tools,
	})
	if err != nil {
		return Response{}, err
	}
	a.history = append(a.history, msg.ToParam())

	var (
		out Response
		b   strings.Builder
	)
	for _, cb := range msg.Content {
		switch block := cb.AsAny().(type) {
		case anthropic.TextBlock:
			b.WriteString(block.Text)
		case anthropic.ToolUseBlock:
			args := map[string]any{}
			if len(block.Input) > 0 {
				_ = json.Unmarshal(block.Input, &args)
			}
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: args,
			})
		}
	}
	out.Text = b.String()
	return out, nil
}

func toAnthropicTools(tools []ToolDecl) []anthropic.ToolUnionParam {
	if len(tools) == 0 {
		return nil
	}
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		tp := anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: t.Schema["properties"],
				Required:   stringsAt(t.Schema, "required"),
			},
		}
		out = append(out, anthropic.ToolUnionParam{OfTool: &tp})
	}
	return out
}

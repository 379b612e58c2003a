package models

import (
	"context"
	"errors"
	"os"

	json "github.com/alpkeskin/gotoon"
	openai "github.com/sashabaranov/go-openai"
)

// ---------------------------- OpenAI ------------------------------------------

// OpenAILLM talks to the chat completions API with native tool calling.
type OpenAILLM struct {
	Client       *openai.Client
	Model        string
	PromptPrefix string

	history []openai.ChatCompletionMessage
	tools   []openai.Tool
}

// NewOpenAILLM reads OPENAI_API_KEY (or OPENAI_KEY) from the environment.
func NewOpenAILLM(model, promptPrefix string) *OpenAILLM {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_KEY")
	}
	client := openai.NewClient(apiKey)
	return &OpenAILLM{Client: client, Model: model, PromptPrefix: promptPrefix}
}

func (o *OpenAILLM) Generate(ctx context.Context, prompt string, tools []ToolDecl) (Response, error) {
	fullPrompt := prompt
	if o.PromptPrefix != "" {
		fullPrompt = o.PromptPrefix + "\n" + prompt
	}

	o.tools = toOpenAITools(tools)
	o.history = []openai.ChatCompletionMessage{{
		Role:    openai.ChatMessageRoleUser,
		Content: fullPrompt,
	}}

	return o.complete(ctx)
}

func (o *OpenAILLM) SendToolResult(ctx context.Context, call ToolCall, result string) (string, error) {
	if len(o.history) == 0 {
		return "", errors.New("openai: no active exchange")
	}
	o.history = append(o.history, openai.ChatCompletionMessage{
		Role:       openai.ChatMessageRoleTool,
		Content:    result,
		ToolCallID: call.ID,
	})
	resp, err := o.complete(ctx)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

func (o *OpenAILLM) complete(ctx context.Context) (Response, error) {
	resp, err := o.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    o.Model,
		Messages: o.history,
		Tools:    o.tools,
	})
	if err != nil {
		return Response{}, err
	}
	if len(resp.Choices) == 0 {
		return Response{}, errors.New("no response from OpenAI")
	}

	msg := resp.Choices[0].Message
	o.history = append(o.history, msg)

	out := Response{Text: msg.Content}
	for _, tc := range msg.ToolCalls {
		args := map[string]any{}
		if tc.Function.Arguments != "" {
			_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
		}
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}
	return out, nil
}

func toOpenAITools(tools []ToolDecl) []openai.Tool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Schema,
			},
		})
	}
	return out
}

package models

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	ollama "github.com/ollama/ollama/api"
)

// ---------------------------- Ollama -----------------------------------------

// OllamaLLM runs against a local Ollama daemon. Local models have no native
// function calling here, so tool use rides on the marker protocol.
type OllamaLLM struct {
	Client       *ollama.Client
	Model        string
	PromptPrefix string
}

// NewOllamaLLM connects to OLLAMA_HOST (default http://localhost:11434).
func NewOllamaLLM(model, promptPrefix string) (*OllamaLLM, error) {
	host := os.Getenv("OLLAMA_HOST")
	if host == "" {
		host = "http://localhost:11434"
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid OLLAMA_HOST %q: %w", host, err)
	}
	c := ollama.NewClient(u, &http.Client{Timeout: 120 * time.Second})
	return &OllamaLLM{Client: c, Model: model, PromptPrefix: promptPrefix}, nil
}

func (o *OllamaLLM) Generate(ctx context.Context, prompt string, tools []ToolDecl) (Response, error) {
	fullPrompt := prompt
	if o.PromptPrefix != "" {
		fullPrompt = fmt.Sprintf("%s\n\n%s", o.PromptPrefix, prompt)
	}
	fullPrompt += renderMarkerInstructions(tools)

	raw, err := o.generate(ctx, fullPrompt)
	if err != nil {
		return Response{}, err
	}

	text, calls := parseMarkers(raw)
	return Response{Text: text, ToolCalls: calls}, nil
}

func (o *OllamaLLM) SendToolResult(ctx context.Context, call ToolCall, result string) (string, error) {
	prompt := fmt.Sprintf(
		"The tool %s returned the following result:\n%s\n\nContinue with a short summary of what this means for the task.",
		call.Name, result,
	)
	raw, err := o.generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	text, _ := parseMarkers(raw)
	return text, nil
}

func (o *OllamaLLM) generate(ctx context.Context, prompt string) (string, error) {
	var text strings.Builder
	req := &ollama.GenerateRequest{
		Model:  o.Model,
		Prompt: prompt,
	}
	if err := o.Client.Generate(ctx, req, func(gr ollama.GenerateResponse) error {
		if gr.Response != "" {
			text.WriteString(gr.Response)
		}
		return nil
	}); err != nil {
		return "", err
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", errors.New("ollama: empty response")
	}
	return text.String(), nil
}

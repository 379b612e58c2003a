// Package models binds the runtime to concrete LLM backends. Each binding
// turns a prompt plus a set of granted tool declarations into text and
// zero-or-more tool-call requests, and can relay a tool result back to the
// model for continuation text.
package models

import "context"

// ToolDecl is the provider-neutral declaration of an invocable capability.
// Schema follows the JSON-schema object shape: {"type":"object",
// "properties":{...},"required":[...]}.
type ToolDecl struct {
	Name        string
	Description string
	Schema      map[string]any
}

// ToolCall is a structured request from the model to invoke a named tool.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// Response carries one model turn: free text plus any tool-call requests.
type Response struct {
	Text      string
	ToolCalls []ToolCall
}

// Agent is the black-box model contract consumed by the runtime.
//
// Bindings hold the conversation state between Generate and SendToolResult,
// so a single binding must not be shared across agents or sessions.
type Agent interface {
	// Generate starts a fresh exchange with the granted tools declared.
	Generate(ctx context.Context, prompt string, tools []ToolDecl) (Response, error)

	// SendToolResult feeds a tool's string result back into the current
	// exchange and returns the model's continuation text.
	SendToolResult(ctx context.Context, call ToolCall, result string) (string, error)
}

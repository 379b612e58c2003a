package tandem

import (
	"context"
	"time"
)

// ToolSpec describes how a tool is presented to the model.
type ToolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// ToolRequest captures an invocation request for a tool.
type ToolRequest struct {
	SessionID string
	Arguments map[string]any
}

// ToolResponse represents the structured response returned by a tool.
type ToolResponse struct {
	Content  string
	Metadata map[string]string
}

// Tool exposes structured metadata and an invocation handler.
type Tool interface {
	Spec() ToolSpec
	Invoke(ctx context.Context, req ToolRequest) (ToolResponse, error)
}

// Role identifies which half of the pipeline an agent plays.
type Role string

const (
	// RoleAnalyst investigates with read-only tools and produces guidance.
	RoleAnalyst Role = "analyst"
	// RoleExecutor acts on guidance with the full tool set.
	RoleExecutor Role = "executor"
)

// AgentResult is the outcome of a single agent turn.
type AgentResult struct {
	Response  string
	ToolsUsed []string
}

// Turn records one agent message inside a task run.
type Turn struct {
	Agent     Role      `json:"agent"`
	Message   string    `json:"message"`
	ToolsUsed []string  `json:"tools_used,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// StopReason explains why a task run ended.
type StopReason string

const (
	StopHeuristic     StopReason = "heuristic"
	StopMaxIterations StopReason = "max_iterations"
	StopCancelled     StopReason = "cancelled"
)

// TaskReport summarizes a completed task run.
type TaskReport struct {
	Iterations int        `json:"iterations"`
	Stopped    StopReason `json:"stopped"`
	History    []Turn     `json:"history"`
}

// EventKind categorizes events emitted toward the UI or caller.
type EventKind string

const (
	EventResponse      EventKind = "response"
	EventInvestigation EventKind = "investigation"
	EventToolExecution EventKind = "tool_execution"
	EventError         EventKind = "error"
	EventFileTree      EventKind = "file_tree"
)

// Event is the transport-neutral payload relayed to the session's caller.
type Event struct {
	Kind    EventKind `json:"type"`
	Content string    `json:"content,omitempty"`
	Message string    `json:"message,omitempty"`
	Tool    string    `json:"tool,omitempty"`
	Result  string    `json:"result,omitempty"`
}

// EventSink receives per-turn events. Implementations must tolerate being
// called from the controller goroutine only.
type EventSink interface {
	Emit(Event)
}

// EventSinkFunc adapts a function to the EventSink interface.
type EventSinkFunc func(Event)

func (f EventSinkFunc) Emit(ev Event) { f(ev) }

// discardSink swallows events when a controller has no caller to notify.
type discardSink struct{}

func (discardSink) Emit(Event) {}

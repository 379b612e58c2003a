// Package tandem is the orchestration runtime for a two-agent
// "investigate then act" pipeline: an analyst restricted to read-only tools
// produces guidance, an executor with the full tool set acts on it, and an
// iteration controller alternates the two until a stop heuristic fires or
// the iteration cap is reached.
package tandem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/tandemstack/tandem/src/memory"
	"github.com/tandemstack/tandem/src/models"
)

// placeholderResponse replaces empty model output so callers never see an
// empty result.
const placeholderResponse = "Task acknowledged."

// defaultToolBudget bounds the tool calls honored in a single agent turn.
const defaultToolBudget = 8

// Agent binds a system prompt, a granted tool subset, and a model client
// into a callable unit. One Agent serves one role inside one session.
type Agent struct {
	name         string
	role         Role
	systemPrompt string
	tools        *Catalog
	model        models.Agent
	memory       *memory.Store
	events       EventSink
	logger       *slog.Logger

	toolBudget int
	sleep      func(time.Duration)
}

// AgentOptions configure a new Agent.
type AgentOptions struct {
	Name         string
	Role         Role
	SystemPrompt string
	Tools        *Catalog
	Model        models.Agent
	Memory       *memory.Store
	Events       EventSink
	Logger       *slog.Logger

	// ToolBudget caps tool calls per turn; zero means the default.
	ToolBudget int
}

// NewAgent creates an Agent with the provided options.
func NewAgent(opts AgentOptions) (*Agent, error) {
	if opts.Model == nil {
		return nil, errors.New("agent requires a language model")
	}
	if opts.Memory == nil {
		return nil, errors.New("agent requires a memory store")
	}

	name := strings.TrimSpace(opts.Name)
	if name == "" {
		name = string(opts.Role)
	}
	tools := opts.Tools
	if tools == nil {
		tools = NewCatalog()
	}
	events := opts.Events
	if events == nil {
		events = discardSink{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	budget := opts.ToolBudget
	if budget <= 0 {
		budget = defaultToolBudget
	}

	return &Agent{
		name:         name,
		role:         opts.Role,
		systemPrompt: opts.SystemPrompt,
		tools:        tools,
		model:        opts.Model,
		memory:       opts.Memory,
		events:       events,
		logger:       logger,
		toolBudget:   budget,
		sleep:        time.Sleep,
	}, nil
}

// Name returns the agent's identifier as recorded in memory entries.
func (a *Agent) Name() string { return a.name }

// Role returns the agent's pipeline role.
func (a *Agent) Role() Role { return a.role }

// Run executes one agent turn: compose the prompt, invoke the model with the
// granted tool subset, dispatch any requested tool calls, and fold the turn
// into memory. Run never returns an error; model failures are flattened into
// the result so the iteration loop stays alive.
func (a *Agent) Run(ctx context.Context, prompt string, iteration int) AgentResult {
	full := a.composePrompt(prompt, iteration)

	resp, err := a.model.Generate(ctx, full, a.declarations())
	if err != nil {
		return a.handleModelError(err, iteration)
	}

	if len(resp.ToolCalls) == 0 {
		text := strings.TrimSpace(resp.Text)
		if text == "" {
			text = placeholderResponse
		}
		a.memory.AddEntry(iteration, a.name, "thinking", text)
		return AgentResult{Response: text}
	}

	return a.runToolCalls(ctx, resp, iteration)
}

func (a *Agent) runToolCalls(ctx context.Context, resp models.Response, iteration int) AgentResult {
	var (
		sb    strings.Builder
		used  []string
		calls = resp.ToolCalls
	)
	if strings.TrimSpace(resp.Text) != "" {
		sb.WriteString(strings.TrimSpace(resp.Text))
	}

	overflow := false
	if len(calls) > a.toolBudget {
		calls = calls[:a.toolBudget]
		overflow = true
	}

	for _, call := range calls {
		var result string
		if _, _, ok := a.tools.Lookup(call.Name); !ok {
			// Agents must not reach outside their granted subset.
			result = fmt.Sprintf("Error: tool %q is not available to this agent", call.Name)
		} else {
			result = a.tools.Dispatch(ctx, a.name, call.Name, call.Arguments)
			used = append(used, call.Name)
		}

		a.memory.AddEntry(iteration, a.name, callSignature(call), result)
		a.events.Emit(Event{Kind: EventToolExecution, Tool: call.Name, Result: result})
		a.logger.Debug("tool call", "agent", a.name, "tool", call.Name, "iteration", iteration)

		follow, err := a.model.SendToolResult(ctx, call, result)
		if err != nil {
			if models.IsQuota(err) {
				res := a.handleModelError(err, iteration)
				res.ToolsUsed = used
				return res
			}
			a.logger.Warn("tool result relay failed", "agent", a.name, "error", err)
			continue
		}
		if strings.TrimSpace(follow) != "" {
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(strings.TrimSpace(follow))
		}
	}

	if overflow {
		res := a.handleModelError(models.ErrRecursionLimit, iteration)
		res.ToolsUsed = used
		return res
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		text = placeholderResponse
	}
	return AgentResult{Response: text, ToolsUsed: used}
}

// handleModelError converts model failures into non-raising sentinel results.
func (a *Agent) handleModelError(err error, iteration int) AgentResult {
	switch {
	case models.IsQuota(err):
		a.logger.Warn("model quota hit", "agent", a.name, "iteration", iteration, "backoff", models.QuotaBackoff)
		a.sleep(models.QuotaBackoff)
		return AgentResult{Response: "Quota limit reached; backed off before continuing. Results may be partial."}
	case models.IsRecursionLimit(err):
		a.logger.Warn("model recursion limit", "agent", a.name, "iteration", iteration)
		return AgentResult{Response: "Recursion limit reached: the task appears too complex for one pass. Try breaking it into smaller steps."}
	default:
		a.logger.Error("model call failed", "agent", a.name, "iteration", iteration, "error", err)
		return AgentResult{Response: fmt.Sprintf("Model error: %v", err)}
	}
}

func (a *Agent) composePrompt(task string, iteration int) string {
	var sb strings.Builder
	sb.Grow(2048)

	if strings.TrimSpace(a.systemPrompt) != "" {
		sb.WriteString(strings.TrimSpace(a.systemPrompt))
		sb.WriteString("\n\n")
	}
	if mem := a.memory.RecentContext(iteration); mem != "" {
		sb.WriteString(mem)
		sb.WriteString("\n")
	}
	sb.WriteString(strings.TrimSpace(task))
	return sb.String()
}

func (a *Agent) declarations() []models.ToolDecl {
	specs := a.tools.Specs()
	if len(specs) == 0 {
		return nil
	}
	decls := make([]models.ToolDecl, 0, len(specs))
	for _, spec := range specs {
		decls = append(decls, models.ToolDecl{
			Name:        spec.Name,
			Description: spec.Description,
			Schema:      spec.InputSchema,
		})
	}
	return decls
}

// callSignature renders a tool call as a compact, deterministic label for
// memory entries, e.g. create_file_or_folder(path=notes.txt).
func callSignature(call models.ToolCall) string {
	if len(call.Arguments) == 0 {
		return call.Name + "()"
	}
	keys := make([]string, 0, len(call.Arguments))
	for k := range call.Arguments {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := fmt.Sprint(call.Arguments[k])
		if len(v) > 40 {
			v = v[:37] + "..."
		}
		parts = append(parts, fmt.Sprintf("%s=%s", k, v))
	}
	return fmt.Sprintf("%s(%s)", call.Name, strings.Join(parts, ", "))
}

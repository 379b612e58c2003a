package tandem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/tandemstack/tandem/src/memory"
)

// LoopConfig parameterizes the iteration loop. One controller covers the
// single-pass, two-agent, and memory-augmented modes through these knobs
// instead of separate drivers.
type LoopConfig struct {
	// MaxIterations caps (analyst, executor) pairs per task. Zero means the
	// default of 6.
	MaxIterations int

	// ObservationPass runs an upfront analyst-only investigation whose
	// findings land in memory before iteration 1.
	ObservationPass bool

	// Bias selects the continuation policy: "stop" (default) or "continue".
	Bias string

	// TurnDelay separates the analyst and executor turns of one iteration.
	TurnDelay time.Duration

	// IterationDelay separates consecutive iterations.
	IterationDelay time.Duration

	// ForceToolRetry enables the keyword-classifier retry when an agent
	// narrates an action without calling a tool.
	ForceToolRetry bool
}

const defaultMaxIterations = 6

// ControllerOptions configure a new Controller.
type ControllerOptions struct {
	Analyst  *Agent
	Executor *Agent
	Memory   *memory.Store
	Config   LoopConfig
	Events   EventSink
	Logger   *slog.Logger
}

// Controller drives the analyst/executor alternation for one session. It is
// not safe for concurrent RunTask calls; each session owns one controller.
type Controller struct {
	analyst  *Agent
	executor *Agent
	memory   *memory.Store
	policy   Policy
	cfg      LoopConfig
	events   EventSink
	logger   *slog.Logger

	mu   sync.Mutex
	last *TaskReport
}

// NewController wires the two agents, their shared memory, and the loop
// configuration into a controller.
func NewController(opts ControllerOptions) (*Controller, error) {
	if opts.Analyst == nil || opts.Executor == nil {
		return nil, errors.New("controller requires both an analyst and an executor agent")
	}
	if opts.Memory == nil {
		return nil, errors.New("controller requires a memory store")
	}

	cfg := opts.Config
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = defaultMaxIterations
	}
	events := opts.Events
	if events == nil {
		events = discardSink{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Controller{
		analyst:  opts.Analyst,
		executor: opts.Executor,
		memory:   opts.Memory,
		policy:   PolicyByName(cfg.Bias),
		cfg:      cfg,
		events:   events,
		logger:   logger,
	}, nil
}

// RunTask executes one top-level user request through the full loop and
// returns a report of every turn taken. The error return is reserved for
// context cancellation and internal panics; agent-level failures are folded
// into the history instead.
func (c *Controller) RunTask(ctx context.Context, request string) (report *TaskReport, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("task loop panic", "panic", r)
			c.events.Emit(Event{Kind: EventError, Message: fmt.Sprintf("internal error: %v", r)})
			err = fmt.Errorf("task loop panic: %v", r)
		}
	}()

	request = strings.TrimSpace(request)
	if request == "" {
		return nil, errors.New("empty request")
	}

	c.memory.Clear()
	report = &TaskReport{Stopped: StopHeuristic}

	if c.cfg.ObservationPass {
		c.observe(ctx, request, report)
	}

	lastExecutor := AgentResult{}
	for i := 1; i <= c.cfg.MaxIterations; i++ {
		if ctx.Err() != nil {
			report.Stopped = StopCancelled
			break
		}
		report.Iterations = i
		c.logger.Info("iteration start", "iteration", i, "max", c.cfg.MaxIterations)

		analystRes := c.turn(ctx, c.analyst, c.analystPrompt(request, lastExecutor), i)
		c.record(report, RoleAnalyst, analystRes)
		c.events.Emit(Event{Kind: EventInvestigation, Content: analystRes.Response})

		c.pause(ctx, c.cfg.TurnDelay)
		if ctx.Err() != nil {
			report.Stopped = StopCancelled
			break
		}

		executorRes := c.turn(ctx, c.executor, c.executorPrompt(request, analystRes.Response), i)
		c.record(report, RoleExecutor, executorRes)
		c.events.Emit(Event{Kind: EventResponse, Content: executorRes.Response})
		lastExecutor = executorRes

		if !c.policy.ShouldContinue(analystRes.Response, executorRes.Response) {
			report.Stopped = StopHeuristic
			break
		}
		if i == c.cfg.MaxIterations {
			report.Stopped = StopMaxIterations
			c.logger.Warn("reached maximum iterations", "max", c.cfg.MaxIterations)
			c.events.Emit(Event{Kind: EventResponse, Content: fmt.Sprintf("Reached maximum iterations (%d); stopping here.", c.cfg.MaxIterations)})
			break
		}
		c.pause(ctx, c.cfg.IterationDelay)
	}

	if ctx.Err() != nil && report.Stopped != StopCancelled {
		report.Stopped = StopCancelled
	}

	c.mu.Lock()
	c.last = report
	c.mu.Unlock()
	return report, nil
}

// turn runs one agent and applies the enforcement retry when configured.
func (c *Controller) turn(ctx context.Context, agent *Agent, prompt string, iteration int) AgentResult {
	res := agent.Run(ctx, prompt, iteration)

	if c.cfg.ForceToolRetry && len(res.ToolsUsed) == 0 && ShouldHaveUsedTools(res.Response, agent.Role()) {
		c.logger.Info("forcing tool usage", "agent", agent.Name(), "iteration", iteration)
		forced := ForceToolUsage(ctx, agent, iteration, res.Response)
		if strings.TrimSpace(forced.Response) != "" {
			res = forced
		}
	}
	return res
}

func (c *Controller) observe(ctx context.Context, request string, report *TaskReport) {
	prompt := fmt.Sprintf(
		"New task:\n%s\n\nInvestigate the current workspace state relevant to this task using your tools. Do not propose changes yet; report only what exists.",
		request,
	)
	res := c.analyst.Run(ctx, prompt, 0)
	c.record(report, RoleAnalyst, res)
	c.events.Emit(Event{Kind: EventInvestigation, Content: res.Response})
}

func (c *Controller) analystPrompt(request string, lastExecutor AgentResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Original request:\n%s\n\n", request)
	if lastExecutor.Response != "" {
		fmt.Fprintf(&sb, "Latest executor update:\n%s\n", lastExecutor.Response)
		if len(lastExecutor.ToolsUsed) > 0 {
			fmt.Fprintf(&sb, "(tools used: %s)\n", strings.Join(lastExecutor.ToolsUsed, ", "))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("Investigate the current state with your tools and give the executor specific guidance for the single next step. If the request is fully satisfied, say the task is completed.")
	return sb.String()
}

func (c *Controller) executorPrompt(request, guidance string) string {
	return fmt.Sprintf(
		"Guidance from the analyst:\n%s\n\nOriginal request:\n%s\n\nCarry out the next concrete step now using your tools, then report exactly what you did.",
		truncateGuidance(guidance), request,
	)
}

func (c *Controller) record(report *TaskReport, role Role, res AgentResult) {
	report.History = append(report.History, Turn{
		Agent:     role,
		Message:   res.Response,
		ToolsUsed: res.ToolsUsed,
		Timestamp: time.Now(),
	})
}

func (c *Controller) pause(ctx context.Context, d time.Duration) {
	if d <= 0 || ctx.Err() != nil {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Status summarizes the last completed task for the REPL's status command.
func (c *Controller) Status() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.last == nil {
		return fmt.Sprintf("no task run yet; memory holds %d entries", c.memory.Len())
	}
	return fmt.Sprintf(
		"last task: %d iteration(s), stopped by %s; memory holds %d entries, %d summaries",
		c.last.Iterations, c.last.Stopped, c.memory.Len(), len(c.memory.Summaries()),
	)
}

// MemoryDump renders the recent context for the REPL's memory command.
func (c *Controller) MemoryDump() string {
	iter := 0
	c.mu.Lock()
	if c.last != nil {
		iter = c.last.Iterations + 1
	}
	c.mu.Unlock()

	dump := c.memory.RecentContext(iter)
	if dump == "" {
		return "memory is empty"
	}
	return dump
}

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tandemstack/tandem"
	"github.com/tandemstack/tandem/src/config"
	"github.com/tandemstack/tandem/src/logs"
	"github.com/tandemstack/tandem/src/memory"
	"github.com/tandemstack/tandem/src/models"
	"github.com/tandemstack/tandem/src/server"
	"github.com/tandemstack/tandem/src/tools"
)

var version = "0.3.0"

const analystSystemPrompt = `You are the analyst half of a two-agent pair working on files in a shared workspace.
Your job is to investigate the current state with your read-only tools and produce
specific, actionable guidance for the executor. Never claim work is done without
checking; when the request is fully satisfied, say the task is completed.`

const executorSystemPrompt = `You are the executor half of a two-agent pair working on files in a shared workspace.
Follow the analyst's guidance by invoking your tools; do not describe an action
without performing it. Report exactly what you did after each step.`

// buildController assembles one session: workspace tools, one model binding
// per agent, and the iteration loop.
func buildController(ctx context.Context, cfg *config.Config, logger *slog.Logger, sink tandem.EventSink) (*tandem.Controller, error) {
	ws, err := tools.NewWorkspace(cfg.Workspace.Root)
	if err != nil {
		return nil, err
	}
	catalog := tandem.NewCatalog(tools.All(ws)...)

	// Model bindings hold conversation state, so the two agents must not
	// share one.
	analystModel, err := models.NewLLMProvider(ctx, cfg.Provider.Name, cfg.Provider.Model, cfg.Provider.PromptPrefix)
	if err != nil {
		return nil, fmt.Errorf("analyst model: %w", err)
	}
	executorModel, err := models.NewLLMProvider(ctx, cfg.Provider.Name, cfg.Provider.Model, cfg.Provider.PromptPrefix)
	if err != nil {
		return nil, fmt.Errorf("executor model: %w", err)
	}

	store := memory.NewStore()

	analyst, err := tandem.NewAgent(tandem.AgentOptions{
		Name:         "analyst",
		Role:         tandem.RoleAnalyst,
		SystemPrompt: analystSystemPrompt,
		Tools:        catalog.Subset(tools.ReadOnlyNames()...),
		Model:        analystModel,
		Memory:       store,
		Events:       sink,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}
	executor, err := tandem.NewAgent(tandem.AgentOptions{
		Name:         "executor",
		Role:         tandem.RoleExecutor,
		SystemPrompt: executorSystemPrompt,
		Tools:        catalog,
		Model:        executorModel,
		Memory:       store,
		Events:       sink,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	return tandem.NewController(tandem.ControllerOptions{
		Analyst:  analyst,
		Executor: executor,
		Memory:   store,
		Config: tandem.LoopConfig{
			MaxIterations:   cfg.Loop.MaxIterations,
			ObservationPass: cfg.Loop.ObservationPass,
			Bias:            cfg.Loop.Bias,
			TurnDelay:       cfg.Loop.TurnDelay,
			IterationDelay:  cfg.Loop.IterationDelay,
			ForceToolRetry:  cfg.Loop.ForceToolRetry,
		},
		Events: sink,
		Logger: logger,
	})
}

// consoleSink renders session events for the terminal.
func consoleSink(out io.Writer) tandem.EventSink {
	return tandem.EventSinkFunc(func(ev tandem.Event) {
		switch ev.Kind {
		case tandem.EventInvestigation:
			fmt.Fprintf(out, "\n[analyst]\n%s\n", ev.Content)
		case tandem.EventResponse:
			fmt.Fprintf(out, "\n[executor]\n%s\n", ev.Content)
		case tandem.EventToolExecution:
			fmt.Fprintf(out, "  · %s → %s\n", ev.Tool, firstLine(ev.Result))
		case tandem.EventError:
			fmt.Fprintf(out, "\n[error] %s\n", ev.Message)
		}
	})
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}

// runChat is the interactive loop. exit quits, status and memory inspect the
// session, anything else runs as a task.
func runChat(ctx context.Context, ctrl *tandem.Controller, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "tandem %s. Type a task, or exit / status / memory\n", version)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			fmt.Fprintln(out, "bye")
			return nil
		case "status":
			fmt.Fprintln(out, ctrl.Status())
			continue
		case "memory":
			fmt.Fprintln(out, ctrl.MemoryDump())
			continue
		}

		report, err := ctrl.RunTask(ctx, line)
		if err != nil {
			fmt.Fprintf(out, "task failed: %v\n", err)
			continue
		}
		fmt.Fprintf(out, "\n[%d iteration(s), stopped by %s]\n", report.Iterations, report.Stopped)
	}
}

func setup() (*config.Config, *slog.Logger, io.Closer, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	cfg.ResolveAPIKey()

	logs.SetLevel(cfg.Log.Level)
	logger, closer, err := logs.New(os.Stderr, cfg.Log.File)
	if err != nil {
		return nil, nil, nil, err
	}
	slog.SetDefault(logger)
	return cfg, logger, closer, nil
}

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive session on stdin",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, closer, err := setup()
			if err != nil {
				return err
			}
			if closer != nil {
				defer closer.Close()
			}

			ctx := cmd.Context()
			ctrl, err := buildController(ctx, cfg, logger, consoleSink(cmd.OutOrStdout()))
			if err != nil {
				return err
			}
			return runChat(ctx, ctrl, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the web UI and websocket sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, closer, err := setup()
			if err != nil {
				return err
			}
			if closer != nil {
				defer closer.Close()
			}

			ws, err := tools.NewWorkspace(cfg.Workspace.Root)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			factory := func(sessionID string, sink tandem.EventSink) (*tandem.Controller, error) {
				return buildController(ctx, cfg, logger.With("session", sessionID), sink)
			}

			srv, err := server.New(cfg.Server.Addr, factory, ws, logger)
			if err != nil {
				return err
			}
			if err := srv.Start(); err != nil {
				return err
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
			select {
			case <-stop:
			case <-ctx.Done():
			}
			return srv.Stop()
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tandem %s\n", version)
		},
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tandem",
		Short:         "Two-agent task runner over a shared workspace",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newChatCmd(), newServeCmd(), newVersionCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

package tools

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/tandemstack/tandem"
)

const (
	defaultExecTimeout = 30 * time.Second
	maxExecTimeout     = 5 * time.Minute
	maxExecOutput      = 16 * 1024
)

// ExecTool runs a shell command in the workspace root. Output is combined
// stdout+stderr; a non-zero exit lands in the result string instead of an
// error so the model can react to it.
type ExecTool struct {
	ws *Workspace
}

func (t *ExecTool) Spec() tandem.ToolSpec {
	return tandem.ToolSpec{
		Name:        "execute_command",
		Description: "Run a shell command in the workspace and return its combined output.",
		InputSchema: objectSchema(map[string]any{
			"command": prop("string", "Command line passed to sh -c"),
			"timeout": prop("integer", "Timeout in seconds; defaults to 30"),
		}, "command"),
	}
}

func (t *ExecTool) Invoke(ctx context.Context, req tandem.ToolRequest) (tandem.ToolResponse, error) {
	command, ok := stringArg(req.Arguments, "command")
	if !ok {
		return tandem.ToolResponse{}, fmt.Errorf("execute_command requires a command argument")
	}

	timeout := time.Duration(intArg(req.Arguments, "timeout", 0)) * time.Second
	if timeout <= 0 {
		timeout = defaultExecTimeout
	}
	if timeout > maxExecTimeout {
		timeout = maxExecTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = t.ws.Root()
	out, err := cmd.CombinedOutput()

	text := strings.TrimSpace(string(out))
	if len(text) > maxExecOutput {
		text = text[:maxExecOutput] + "\n[output truncated]"
	}

	switch {
	case ctx.Err() == context.DeadlineExceeded:
		return tandem.ToolResponse{Content: fmt.Sprintf("Command timed out after %s.\n%s", timeout, text)}, nil
	case err != nil:
		return tandem.ToolResponse{Content: fmt.Sprintf("Command failed (%v).\n%s", err, text)}, nil
	case text == "":
		return tandem.ToolResponse{Content: "Command completed with no output."}, nil
	default:
		return tandem.ToolResponse{Content: text}, nil
	}
}

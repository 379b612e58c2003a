package tandem

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tandemstack/tandem/src/memory"
	"github.com/tandemstack/tandem/src/models"
)

func newTestAgent(t *testing.T, model models.Agent, tools *Catalog) (*Agent, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	ag, err := NewAgent(AgentOptions{
		Name:   "executor",
		Role:   RoleExecutor,
		Tools:  tools,
		Model:  model,
		Memory: store,
	})
	if err != nil {
		t.Fatalf("NewAgent: %v", err)
	}
	ag.sleep = func(time.Duration) {}
	return ag, store
}

func TestAgentPlaceholderOnEmptyResponse(t *testing.T) {
	model := models.NewDummyLLM(models.Response{Text: "   \n"})
	ag, store := newTestAgent(t, model, nil)

	res := ag.Run(context.Background(), "do something", 1)
	if res.Response != "Task acknowledged." {
		t.Fatalf("expected placeholder, got %q", res.Response)
	}
	entries := store.Entries()
	if len(entries) != 1 || entries[0].Action != "thinking" {
		t.Fatalf("expected one thinking entry, got %+v", entries)
	}
}

func TestAgentDispatchesGrantedTool(t *testing.T) {
	tool := &fakeTool{name: "read_file", result: "file contents here"}
	model := models.NewDummyLLM(models.Response{
		Text: "Reading the file.",
		ToolCalls: []models.ToolCall{
			{ID: "c1", Name: "read_file", Arguments: map[string]any{"path": "notes.txt"}},
		},
	}).WithFollowUps("The file holds the notes.")
	ag, store := newTestAgent(t, model, NewCatalog(tool))

	res := ag.Run(context.Background(), "read notes.txt", 1)
	if len(res.ToolsUsed) != 1 || res.ToolsUsed[0] != "read_file" {
		t.Fatalf("unexpected tools used: %v", res.ToolsUsed)
	}
	if !strings.Contains(res.Response, "The file holds the notes.") {
		t.Fatalf("continuation text missing: %q", res.Response)
	}
	if len(tool.calls) != 1 {
		t.Fatalf("tool invoked %d times, want 1", len(tool.calls))
	}

	entries := store.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected one memory entry, got %d", len(entries))
	}
	if entries[0].Action != "read_file(path=notes.txt)" {
		t.Fatalf("unexpected entry action: %q", entries[0].Action)
	}
}

func TestAgentRejectsUngrantedTool(t *testing.T) {
	granted := &fakeTool{name: "read_file", result: "ok"}
	model := models.NewDummyLLM(models.Response{
		ToolCalls: []models.ToolCall{
			{ID: "c1", Name: "execute_command", Arguments: map[string]any{"command": "rm -rf /"}},
		},
	})
	ag, store := newTestAgent(t, model, NewCatalog(granted))

	res := ag.Run(context.Background(), "run it", 1)
	if len(res.ToolsUsed) != 0 {
		t.Fatalf("ungranted tool must not appear in ToolsUsed: %v", res.ToolsUsed)
	}
	entries := store.Entries()
	if len(entries) != 1 || !strings.Contains(entries[0].Result, "not available") {
		t.Fatalf("expected rejection entry, got %+v", entries)
	}
}

func TestAgentQuotaSentinel(t *testing.T) {
	model := models.NewDummyLLM()
	model.Err = errors.New("429 Too Many Requests")
	ag, _ := newTestAgent(t, model, nil)

	var slept time.Duration
	ag.sleep = func(d time.Duration) { slept = d }

	res := ag.Run(context.Background(), "anything", 1)
	if !strings.Contains(strings.ToLower(res.Response), "quota limit") {
		t.Fatalf("expected quota sentinel, got %q", res.Response)
	}
	if len(res.ToolsUsed) != 0 {
		t.Fatalf("quota result must carry no tools: %v", res.ToolsUsed)
	}
	if slept != models.QuotaBackoff {
		t.Fatalf("backoff = %v, want %v", slept, models.QuotaBackoff)
	}
}

func TestAgentModelErrorNonRaising(t *testing.T) {
	model := models.NewDummyLLM()
	model.Err = errors.New("connection reset")
	ag, _ := newTestAgent(t, model, nil)

	res := ag.Run(context.Background(), "anything", 1)
	if !strings.Contains(res.Response, "connection reset") {
		t.Fatalf("error text should surface in response: %q", res.Response)
	}
}

func TestAgentToolBudget(t *testing.T) {
	tool := &fakeTool{name: "read_file", result: "ok"}
	calls := make([]models.ToolCall, 5)
	for i := range calls {
		calls[i] = models.ToolCall{Name: "read_file", Arguments: map[string]any{"path": "a"}}
	}
	model := models.NewDummyLLM(models.Response{ToolCalls: calls})
	ag, _ := newTestAgent(t, model, NewCatalog(tool))
	ag.toolBudget = 2

	res := ag.Run(context.Background(), "read everything", 1)
	if len(tool.calls) != 2 {
		t.Fatalf("budget not enforced: %d calls", len(tool.calls))
	}
	if !strings.Contains(res.Response, "Recursion limit") {
		t.Fatalf("expected recursion message, got %q", res.Response)
	}
}

func TestCallSignatureDeterministic(t *testing.T) {
	call := models.ToolCall{Name: "edit_file", Arguments: map[string]any{
		"path":    "a.txt",
		"content": strings.Repeat("x", 60),
		"append":  true,
	}}
	got := callSignature(call)
	want := "edit_file(append=true, content=" + strings.Repeat("x", 37) + "..., path=a.txt)"
	if got != want {
		t.Fatalf("signature = %q, want %q", got, want)
	}
}

func TestAgentPromptIncludesMemoryContext(t *testing.T) {
	model := models.NewDummyLLM(models.Response{Text: "noted"})
	ag, store := newTestAgent(t, model, nil)
	store.AddEntry(1, "executor", "create_file_or_folder(path=notes.txt)", "Created notes.txt")

	ag.Run(context.Background(), "keep going", 2)
	if len(model.Prompts) != 1 || !strings.Contains(model.Prompts[0], "Created notes.txt") {
		t.Fatalf("prompt missing memory context: %q", model.Prompts)
	}
}

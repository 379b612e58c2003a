package tandem

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// fakeTool is a scriptable Tool for catalog and agent tests.
type fakeTool struct {
	name   string
	result string
	err    error
	panics bool

	calls []map[string]any
}

func (f *fakeTool) Spec() ToolSpec {
	return ToolSpec{
		Name:        f.name,
		Description: "test tool " + f.name,
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"path": map[string]any{"type": "string"}},
		},
	}
}

func (f *fakeTool) Invoke(_ context.Context, req ToolRequest) (ToolResponse, error) {
	if f.panics {
		panic("tool blew up")
	}
	f.calls = append(f.calls, req.Arguments)
	if f.err != nil {
		return ToolResponse{}, f.err
	}
	return ToolResponse{Content: f.result}, nil
}

func TestCatalogRegisterAndLookup(t *testing.T) {
	c := NewCatalog(&fakeTool{name: "read_file", result: "hello"})

	if _, _, ok := c.Lookup("READ_FILE"); !ok {
		t.Fatalf("lookup should be case-insensitive")
	}
	if err := c.Register(&fakeTool{name: "read_file"}); err == nil {
		t.Fatalf("duplicate registration should fail")
	}
	if c.Len() != 1 {
		t.Fatalf("Len = %d, want 1", c.Len())
	}
}

func TestCatalogSubsetPreservesOrder(t *testing.T) {
	c := NewCatalog(
		&fakeTool{name: "read_file"},
		&fakeTool{name: "edit_file"},
		&fakeTool{name: "list_directory"},
	)

	sub := c.Subset("list_directory", "read_file", "no_such_tool")
	names := sub.Names()
	if len(names) != 2 || names[0] != "read_file" || names[1] != "list_directory" {
		t.Fatalf("unexpected subset names: %v", names)
	}
	if _, _, ok := sub.Lookup("edit_file"); ok {
		t.Fatalf("subset should not expose excluded tools")
	}
}

func TestCatalogDispatchFlattensErrors(t *testing.T) {
	c := NewCatalog(&fakeTool{name: "broken", err: errors.New("disk full")})

	if got := c.Dispatch(context.Background(), "s1", "missing", nil); !strings.Contains(got, "unknown tool") {
		t.Fatalf("unexpected result for missing tool: %q", got)
	}
	if got := c.Dispatch(context.Background(), "s1", "broken", nil); !strings.Contains(got, "disk full") {
		t.Fatalf("tool error should surface in result: %q", got)
	}
}

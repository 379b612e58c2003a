// Package tools implements the built-in file-system and command tools. Every
// tool resolves paths against a workspace root and refuses to reach outside
// it, and every tool reports failure as a readable string rather than a
// panic, since results are fed straight back to a language model.
package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tandemstack/tandem"
)

// Workspace anchors all tool paths to one directory.
type Workspace struct {
	root string
}

// NewWorkspace resolves and validates the root directory.
func NewWorkspace(root string) (*Workspace, error) {
	if strings.TrimSpace(root) == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("workspace root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace root %s is not a directory", abs)
	}
	return &Workspace{root: abs}, nil
}

// Root returns the absolute workspace root.
func (w *Workspace) Root() string { return w.root }

// Resolve maps a tool-supplied path inside the workspace. Escaping paths
// (absolute or via ..) are rejected.
func (w *Workspace) Resolve(rel string) (string, error) {
	rel = strings.TrimSpace(rel)
	if rel == "" || rel == "." {
		return w.root, nil
	}
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("absolute paths are not allowed: %s", rel)
	}
	abs := filepath.Join(w.root, filepath.Clean(rel))
	if abs != w.root && !strings.HasPrefix(abs, w.root+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes the workspace: %s", rel)
	}
	return abs, nil
}

// Tree renders the workspace as an indented listing for the file_tree event.
// Hidden entries are skipped and depth is capped to keep the payload small.
func (w *Workspace) Tree() (string, error) {
	var sb strings.Builder
	if err := w.tree(&sb, w.root, "", 0); err != nil {
		return "", err
	}
	if sb.Len() == 0 {
		return "(empty workspace)", nil
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

const maxTreeDepth = 6

func (w *Workspace) tree(sb *strings.Builder, dir, indent string, depth int) error {
	if depth > maxTreeDepth {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if e.IsDir() {
			fmt.Fprintf(sb, "%s%s/\n", indent, e.Name())
			if err := w.tree(sb, filepath.Join(dir, e.Name()), indent+"  ", depth+1); err != nil {
				return err
			}
		} else {
			fmt.Fprintf(sb, "%s%s\n", indent, e.Name())
		}
	}
	return nil
}

// All returns every built-in tool bound to the workspace.
func All(ws *Workspace) []tandem.Tool {
	return []tandem.Tool{
		&CreateTool{ws: ws},
		&ListTool{ws: ws},
		&ReadTool{ws: ws},
		&EditTool{ws: ws},
		&MoveTool{ws: ws},
		&SearchTool{ws: ws},
		&ExecTool{ws: ws},
	}
}

// ReadOnlyNames lists the tools safe to grant the analyst role.
func ReadOnlyNames() []string {
	return []string{"list_directory", "read_file", "search_files"}
}

// Argument helpers. Tool arguments arrive as decoded JSON, so numbers are
// float64 and everything else needs a type check.

func stringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

func optionalStringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func boolArg(args map[string]any, key string) bool {
	switch v := args[key].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	default:
		return false
	}
}

func intArg(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}

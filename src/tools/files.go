package tools

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tandemstack/tandem"
)

// maxReadBytes caps read_file output before truncation.
const maxReadBytes = 32 * 1024

func objectSchema(props map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func prop(typ, desc string) map[string]any {
	return map[string]any{"type": typ, "description": desc}
}

// CreateTool creates a file or directory. A path with no extension or a
// trailing separator, combined with empty content, makes a directory.
type CreateTool struct {
	ws *Workspace
}

func (t *CreateTool) Spec() tandem.ToolSpec {
	return tandem.ToolSpec{
		Name:        "create_file_or_folder",
		Description: "Create a file with optional content, or a directory. Parent directories are created as needed.",
		InputSchema: objectSchema(map[string]any{
			"path":    prop("string", "Workspace-relative path to create"),
			"content": prop("string", "File content; omit for an empty file or a directory"),
		}, "path"),
	}
}

func (t *CreateTool) Invoke(_ context.Context, req tandem.ToolRequest) (tandem.ToolResponse, error) {
	rel, ok := stringArg(req.Arguments, "path")
	if !ok {
		return tandem.ToolResponse{}, fmt.Errorf("create_file_or_folder requires a path argument")
	}
	abs, err := t.ws.Resolve(rel)
	if err != nil {
		return tandem.ToolResponse{}, err
	}

	content := optionalStringArg(req.Arguments, "content")
	wantsDir := content == "" &&
		(strings.HasSuffix(rel, "/") || filepath.Ext(rel) == "")

	if wantsDir {
		if err := os.MkdirAll(abs, 0o755); err != nil {
			return tandem.ToolResponse{}, fmt.Errorf("create directory: %w", err)
		}
		return tandem.ToolResponse{Content: fmt.Sprintf("Created directory %s", rel)}, nil
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return tandem.ToolResponse{}, fmt.Errorf("create parent directories: %w", err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		return tandem.ToolResponse{}, fmt.Errorf("write file: %w", err)
	}
	return tandem.ToolResponse{Content: fmt.Sprintf("Created file %s (%d bytes)", rel, len(content))}, nil
}

// ListTool lists one directory level with type markers.
type ListTool struct {
	ws *Workspace
}

func (t *ListTool) Spec() tandem.ToolSpec {
	return tandem.ToolSpec{
		Name:        "list_directory",
		Description: "List the entries of a directory. Directories carry a trailing slash.",
		InputSchema: objectSchema(map[string]any{
			"path": prop("string", "Workspace-relative directory; defaults to the root"),
		}),
	}
}

func (t *ListTool) Invoke(_ context.Context, req tandem.ToolRequest) (tandem.ToolResponse, error) {
	rel := optionalStringArg(req.Arguments, "path")
	abs, err := t.ws.Resolve(rel)
	if err != nil {
		return tandem.ToolResponse{}, err
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return tandem.ToolResponse{}, fmt.Errorf("list directory: %w", err)
	}
	if len(entries) == 0 {
		return tandem.ToolResponse{Content: "(empty directory)"}, nil
	}

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		lines = append(lines, name)
	}
	return tandem.ToolResponse{Content: strings.Join(lines, "\n")}, nil
}

// ReadTool returns file content, truncated past a fixed size.
type ReadTool struct {
	ws *Workspace
}

func (t *ReadTool) Spec() tandem.ToolSpec {
	return tandem.ToolSpec{
		Name:        "read_file",
		Description: "Read a file's content. Large files are truncated with a notice.",
		InputSchema: objectSchema(map[string]any{
			"path": prop("string", "Workspace-relative file path"),
		}, "path"),
	}
}

func (t *ReadTool) Invoke(_ context.Context, req tandem.ToolRequest) (tandem.ToolResponse, error) {
	rel, ok := stringArg(req.Arguments, "path")
	if !ok {
		return tandem.ToolResponse{}, fmt.Errorf("read_file requires a path argument")
	}
	abs, err := t.ws.Resolve(rel)
	if err != nil {
		return tandem.ToolResponse{}, err
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return tandem.ToolResponse{}, fmt.Errorf("read file: %w", err)
	}
	if len(data) > maxReadBytes {
		return tandem.ToolResponse{
			Content: fmt.Sprintf("%s\n\n[truncated: showing first %d of %d bytes]",
				data[:maxReadBytes], maxReadBytes, len(data)),
		}, nil
	}
	return tandem.ToolResponse{Content: string(data)}, nil
}

// EditTool overwrites or appends to an existing file.
type EditTool struct {
	ws *Workspace
}

func (t *EditTool) Spec() tandem.ToolSpec {
	return tandem.ToolSpec{
		Name:        "edit_file",
		Description: "Overwrite a file with new content, or append to it when append is true.",
		InputSchema: objectSchema(map[string]any{
			"path":    prop("string", "Workspace-relative file path"),
			"content": prop("string", "Content to write"),
			"append":  prop("boolean", "Append instead of overwriting"),
		}, "path", "content"),
	}
}

func (t *EditTool) Invoke(_ context.Context, req tandem.ToolRequest) (tandem.ToolResponse, error) {
	rel, ok := stringArg(req.Arguments, "path")
	if !ok {
		return tandem.ToolResponse{}, fmt.Errorf("edit_file requires a path argument")
	}
	content, hasContent := req.Arguments["content"].(string)
	if !hasContent {
		return tandem.ToolResponse{}, fmt.Errorf("edit_file requires a content argument")
	}
	abs, err := t.ws.Resolve(rel)
	if err != nil {
		return tandem.ToolResponse{}, err
	}
	if _, err := os.Stat(abs); err != nil {
		return tandem.ToolResponse{}, fmt.Errorf("edit target: %w", err)
	}

	if boolArg(req.Arguments, "append") {
		f, err := os.OpenFile(abs, os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return tandem.ToolResponse{}, fmt.Errorf("open for append: %w", err)
		}
		defer f.Close()
		if _, err := f.WriteString(content); err != nil {
			return tandem.ToolResponse{}, fmt.Errorf("append: %w", err)
		}
		return tandem.ToolResponse{Content: fmt.Sprintf("Appended %d bytes to %s", len(content), rel)}, nil
	}

	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		return tandem.ToolResponse{}, fmt.Errorf("overwrite: %w", err)
	}
	return tandem.ToolResponse{Content: fmt.Sprintf("Wrote %d bytes to %s", len(content), rel)}, nil
}

// MoveTool renames or moves a file or directory inside the workspace.
type MoveTool struct {
	ws *Workspace
}

func (t *MoveTool) Spec() tandem.ToolSpec {
	return tandem.ToolSpec{
		Name:        "move_or_rename",
		Description: "Move or rename a file or directory within the workspace.",
		InputSchema: objectSchema(map[string]any{
			"source":      prop("string", "Existing workspace-relative path"),
			"destination": prop("string", "New workspace-relative path"),
		}, "source", "destination"),
	}
}

func (t *MoveTool) Invoke(_ context.Context, req tandem.ToolRequest) (tandem.ToolResponse, error) {
	src, ok := stringArg(req.Arguments, "source")
	if !ok {
		return tandem.ToolResponse{}, fmt.Errorf("move_or_rename requires a source argument")
	}
	dst, ok := stringArg(req.Arguments, "destination")
	if !ok {
		return tandem.ToolResponse{}, fmt.Errorf("move_or_rename requires a destination argument")
	}

	absSrc, err := t.ws.Resolve(src)
	if err != nil {
		return tandem.ToolResponse{}, err
	}
	absDst, err := t.ws.Resolve(dst)
	if err != nil {
		return tandem.ToolResponse{}, err
	}
	if _, err := os.Stat(absSrc); err != nil {
		return tandem.ToolResponse{}, fmt.Errorf("move source: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absDst), 0o755); err != nil {
		return tandem.ToolResponse{}, fmt.Errorf("create destination parent: %w", err)
	}
	if err := os.Rename(absSrc, absDst); err != nil {
		return tandem.ToolResponse{}, fmt.Errorf("move: %w", err)
	}
	return tandem.ToolResponse{Content: fmt.Sprintf("Moved %s to %s", src, dst)}, nil
}

// SearchTool walks the workspace matching names by substring.
type SearchTool struct {
	ws *Workspace
}

func (t *SearchTool) Spec() tandem.ToolSpec {
	return tandem.ToolSpec{
		Name:        "search_files",
		Description: "Find files and directories whose name contains a pattern, searching recursively.",
		InputSchema: objectSchema(map[string]any{
			"pattern": prop("string", "Case-insensitive substring to match against names"),
			"path":    prop("string", "Workspace-relative directory to search; defaults to the root"),
		}, "pattern"),
	}
}

func (t *SearchTool) Invoke(_ context.Context, req tandem.ToolRequest) (tandem.ToolResponse, error) {
	pattern, ok := stringArg(req.Arguments, "pattern")
	if !ok {
		return tandem.ToolResponse{}, fmt.Errorf("search_files requires a pattern argument")
	}
	abs, err := t.ws.Resolve(optionalStringArg(req.Arguments, "path"))
	if err != nil {
		return tandem.ToolResponse{}, err
	}

	needle := strings.ToLower(pattern)
	var matches []string
	walkErr := filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() && strings.HasPrefix(d.Name(), ".") && path != abs {
			return filepath.SkipDir
		}
		if path == abs {
			return nil
		}
		if strings.Contains(strings.ToLower(d.Name()), needle) {
			rel, relErr := filepath.Rel(t.ws.Root(), path)
			if relErr != nil {
				rel = path
			}
			if d.IsDir() {
				rel += "/"
			}
			matches = append(matches, rel)
		}
		return nil
	})
	if walkErr != nil {
		return tandem.ToolResponse{}, fmt.Errorf("search: %w", walkErr)
	}
	if len(matches) == 0 {
		return tandem.ToolResponse{Content: fmt.Sprintf("No matches for %q", pattern)}, nil
	}
	return tandem.ToolResponse{Content: strings.Join(matches, "\n")}, nil
}

package models

import (
	"fmt"
	"strings"

	json "github.com/alpkeskin/gotoon"
)

// Marker protocol: backends without native function calling are instructed to
// emit `tool:<name> {json arguments}` lines, which are parsed back into
// ToolCalls here. Native backends (Gemini, OpenAI, Anthropic) never use this.

// renderMarkerInstructions appends a tool block to the prompt for
// marker-protocol backends.
func renderMarkerInstructions(tools []ToolDecl) string {
	if len(tools) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\n\nAvailable tools:\n")
	for _, t := range tools {
		fmt.Fprintf(&sb, "- %s: %s\n", t.Name, t.Description)
		if len(t.Schema) > 0 {
			if schemaJSON, err := json.Marshal(t.Schema); err == nil {
				fmt.Fprintf(&sb, "  Input schema: %s\n", schemaJSON)
			}
		}
	}
	sb.WriteString("Invoke a tool by replying with a line of the exact form `tool:<name> <json arguments>`.\n")
	return sb.String()
}

// parseMarkers splits a completion into plain text and tool-call requests.
func parseMarkers(output string) (string, []ToolCall) {
	var (
		text  []string
		calls []ToolCall
	)
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(strings.ToLower(trimmed), "tool:") {
			text = append(text, line)
			continue
		}
		payload := strings.TrimSpace(trimmed[len("tool:"):])
		if payload == "" {
			continue
		}
		name, args := splitMarker(payload)
		calls = append(calls, ToolCall{
			ID:        fmt.Sprintf("marker-%d", len(calls)+1),
			Name:      name,
			Arguments: parseMarkerArguments(args),
		})
	}
	return strings.TrimSpace(strings.Join(text, "\n")), calls
}

func splitMarker(payload string) (name string, args string) {
	parts := strings.Fields(payload)
	if len(parts) == 0 {
		return "", ""
	}
	name = parts[0]
	if len(payload) > len(name) {
		args = strings.TrimSpace(payload[len(name):])
	}
	return name, args
}

func parseMarkerArguments(raw string) map[string]any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}
	}
	if strings.HasPrefix(raw, "{") {
		var payload map[string]any
		if err := json.Unmarshal([]byte(raw), &payload); err == nil {
			return payload
		}
	}
	return map[string]any{"input": raw}
}

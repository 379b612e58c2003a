package tandem

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Catalog is the fixed mapping from tool name to capability. Tools are
// registered at startup; after that the catalog is read-only.
type Catalog struct {
	mu    sync.RWMutex
	tools map[string]Tool
	specs map[string]ToolSpec
	order []string
}

// NewCatalog constructs a catalog seeded with the provided tools. Invalid
// entries are skipped silently so callers can pass optional tools.
func NewCatalog(tools ...Tool) *Catalog {
	c := &Catalog{
		tools: make(map[string]Tool),
		specs: make(map[string]ToolSpec),
	}
	for _, tool := range tools {
		_ = c.Register(tool)
	}
	return c
}

// Register adds a tool under a lower-cased key. Duplicate names return an error.
func (c *Catalog) Register(tool Tool) error {
	if tool == nil {
		return fmt.Errorf("tool is nil")
	}
	spec := tool.Spec()
	key := strings.ToLower(strings.TrimSpace(spec.Name))
	if key == "" {
		return fmt.Errorf("tool name is empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.tools[key]; exists {
		return fmt.Errorf("tool %s already registered", spec.Name)
	}
	c.tools[key] = tool
	c.specs[key] = spec
	c.order = append(c.order, key)
	return nil
}

// Lookup returns the tool and its spec for a name, case-insensitively.
func (c *Catalog) Lookup(name string) (Tool, ToolSpec, bool) {
	key := strings.ToLower(strings.TrimSpace(name))

	c.mu.RLock()
	defer c.mu.RUnlock()

	tool, ok := c.tools[key]
	if !ok {
		return nil, ToolSpec{}, false
	}
	return tool, c.specs[key], true
}

// Specs returns the registered tool specifications in registration order.
func (c *Catalog) Specs() []ToolSpec {
	c.mu.RLock()
	defer c.mu.RUnlock()

	specs := make([]ToolSpec, 0, len(c.order))
	for _, key := range c.order {
		specs = append(specs, c.specs[key])
	}
	return specs
}

// Names returns the registered tool names in registration order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.order))
	for _, key := range c.order {
		names = append(names, c.specs[key].Name)
	}
	return names
}

// Len reports how many tools are registered.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// Subset returns a new catalog restricted to the named tools. Unknown names
// are ignored; the subset preserves the parent's registration order.
func (c *Catalog) Subset(names ...string) *Catalog {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[strings.ToLower(strings.TrimSpace(n))] = true
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	sub := &Catalog{
		tools: make(map[string]Tool),
		specs: make(map[string]ToolSpec),
	}
	for _, key := range c.order {
		if !wanted[key] {
			continue
		}
		sub.tools[key] = c.tools[key]
		sub.specs[key] = c.specs[key]
		sub.order = append(sub.order, key)
	}
	return sub
}

// Dispatch invokes a tool and flattens any failure into the returned string.
// Tool errors never propagate past this boundary: the model consumes the
// result verbatim as a function-call result and needs a uniform text shape.
func (c *Catalog) Dispatch(ctx context.Context, sessionID, name string, args map[string]any) string {
	tool, spec, ok := c.Lookup(name)
	if !ok {
		return fmt.Sprintf("Error: unknown tool %q", name)
	}
	if args == nil {
		args = map[string]any{}
	}
	resp, err := tool.Invoke(ctx, ToolRequest{SessionID: sessionID, Arguments: args})
	if err != nil {
		return fmt.Sprintf("Error executing %s: %v", spec.Name, err)
	}
	return resp.Content
}

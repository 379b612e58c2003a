package models

import (
	"context"
	"sync"
)

// DummyLLM is a scriptable model used by tests and offline runs. Responses
// are consumed in order; once the script is exhausted the final response is
// repeated.
type DummyLLM struct {
	mu      sync.Mutex
	script  []Response
	cursor  int
	follow  []string
	followN int

	// Prompts records every Generate prompt for assertions.
	Prompts []string
	// Err, when set, is returned by every call.
	Err error
}

// NewDummyLLM scripts the Generate responses.
func NewDummyLLM(script ...Response) *DummyLLM {
	if len(script) == 0 {
		script = []Response{{Text: "ok"}}
	}
	return &DummyLLM{script: script}
}

// WithFollowUps scripts the SendToolResult continuation texts.
func (d *DummyLLM) WithFollowUps(texts ...string) *DummyLLM {
	d.follow = texts
	return d
}

func (d *DummyLLM) Generate(_ context.Context, prompt string, _ []ToolDecl) (Response, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.Err != nil {
		return Response{}, d.Err
	}

	d.Prompts = append(d.Prompts, prompt)
	resp := d.script[d.cursor]
	if d.cursor < len(d.script)-1 {
		d.cursor++
	}
	return resp, nil
}

func (d *DummyLLM) SendToolResult(_ context.Context, _ ToolCall, _ string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.Err != nil {
		return "", d.Err
	}
	if d.followN < len(d.follow) {
		text := d.follow[d.followN]
		d.followN++
		return text, nil
	}
	return "", nil
}

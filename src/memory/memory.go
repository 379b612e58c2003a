// Package memory implements the bounded action log shared by the two agents.
// It trades complete history for a bounded prompt footprint: old detail is
// condensed into block summaries, very old detail is evicted outright.
package memory

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultEntryCap bounds the number of retained entries.
	DefaultEntryCap = 10
	// DefaultSummaryCap bounds the number of retained block summaries.
	DefaultSummaryCap = 3
	// DefaultSummaryEvery triggers a summary once per completed block of
	// this many iterations.
	DefaultSummaryEvery = 3
	// DefaultResultBudget truncates stored results to this many characters.
	DefaultResultBudget = 200

	contextSummaries = 2
	contextEntries   = 4
)

// Entry records one agent action: a tool invocation or a pure-text turn.
// Entries are never mutated after creation.
type Entry struct {
	Iteration int
	Agent     string
	Action    string
	Result    string
	Timestamp time.Time
}

// Summary condenses the entries of one completed iteration block.
type Summary struct {
	StartIteration int
	EndIteration   int
	Text           string
}

// Store is the append-only, size-capped log of agent actions. One store is
// owned by exactly one session; concurrent sessions each construct their own.
type Store struct {
	mu        sync.Mutex
	entries   []Entry
	summaries []Summary

	entryCap     int
	summaryCap   int
	summaryEvery int
	resultBudget int
}

// Option customizes a Store.
type Option func(*Store)

// WithEntryCap overrides the retained-entry cap.
func WithEntryCap(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.entryCap = n
		}
	}
}

// WithSummaryCap overrides the retained-summary cap.
func WithSummaryCap(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.summaryCap = n
		}
	}
}

// WithSummaryEvery overrides the iteration block size.
func WithSummaryEvery(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.summaryEvery = n
		}
	}
}

// WithResultBudget overrides the per-entry result character budget.
func WithResultBudget(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.resultBudget = n
		}
	}
}

// NewStore constructs an empty store with the default caps.
func NewStore(opts ...Option) *Store {
	s := &Store{
		entryCap:     DefaultEntryCap,
		summaryCap:   DefaultSummaryCap,
		summaryEvery: DefaultSummaryEvery,
		resultBudget: DefaultResultBudget,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddEntry appends an action record, creating the block summary when the
// iteration closes a block, then enforces the entry cap by FIFO eviction.
func (s *Store) AddEntry(iteration int, agent, action, result string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, Entry{
		Iteration: iteration,
		Agent:     agent,
		Action:    action,
		Result:    truncate(result, s.resultBudget),
		Timestamp: time.Now(),
	})

	if iteration > 0 && iteration%s.summaryEvery == 0 {
		s.summarizeLocked(iteration)
	}

	if over := len(s.entries) - s.entryCap; over > 0 {
		s.entries = append([]Entry(nil), s.entries[over:]...)
	}
}

// summarizeLocked digests the entries of the block ending at iteration.
// A block with no entries produces no summary; a summary covering the same
// range as the newest one is skipped so a block is summarized exactly once.
func (s *Store) summarizeLocked(iteration int) {
	start := iteration - s.summaryEvery + 1
	if start < 0 {
		start = 0
	}

	if n := len(s.summaries); n > 0 {
		last := s.summaries[n-1]
		if last.StartIteration == start && last.EndIteration == iteration {
			return
		}
	}

	var parts []string
	for _, e := range s.entries {
		if e.Iteration >= start && e.Iteration <= iteration {
			parts = append(parts, renderEntry(e))
		}
	}
	if len(parts) == 0 {
		return
	}

	s.summaries = append(s.summaries, Summary{
		StartIteration: start,
		EndIteration:   iteration,
		Text:           strings.Join(parts, "; "),
	})
	if over := len(s.summaries) - s.summaryCap; over > 0 {
		s.summaries = append([]Summary(nil), s.summaries[over:]...)
	}
}

// RecentContext renders the bounded view handed to an agent prompt: at most
// the last two summaries followed by the last four entries older than the
// current iteration. Returns "" when the store holds nothing relevant.
func (s *Store) RecentContext(currentIteration int) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sb strings.Builder

	if n := len(s.summaries); n > 0 {
		from := n - contextSummaries
		if from < 0 {
			from = 0
		}
		sb.WriteString("Earlier progress:\n")
		for _, sum := range s.summaries[from:] {
			fmt.Fprintf(&sb, "[iterations %d-%d] %s\n", sum.StartIteration, sum.EndIteration, sum.Text)
		}
	}

	var recent []Entry
	for _, e := range s.entries {
		if e.Iteration < currentIteration {
			recent = append(recent, e)
		}
	}
	if len(recent) > contextEntries {
		recent = recent[len(recent)-contextEntries:]
	}
	if len(recent) > 0 {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("Recent actions:\n")
		for _, e := range recent {
			sb.WriteString(renderEntry(e))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// Clear resets both entries and summaries. Called at the start of a new
// top-level task.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.summaries = nil
}

// Len reports the current entry count.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Entries returns a copy of the retained entries, oldest first.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.entries...)
}

// Summaries returns a copy of the retained summaries, oldest first.
func (s *Store) Summaries() []Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Summary(nil), s.summaries...)
}

func renderEntry(e Entry) string {
	return fmt.Sprintf("%s: %s → %s", e.Agent, e.Action, e.Result)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max > 3 {
		return s[:max-3] + "..."
	}
	return s[:max]
}

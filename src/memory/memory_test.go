package memory

import (
	"fmt"
	"strings"
	"testing"
)

func TestEntryCapFIFO(t *testing.T) {
	s := NewStore(WithEntryCap(5))
	for i := 0; i < 20; i++ {
		s.AddEntry(0, "executor", fmt.Sprintf("action-%d", i), "ok")
	}
	if got := s.Len(); got != 5 {
		t.Fatalf("entry count = %d, want 5", got)
	}
	entries := s.Entries()
	if entries[0].Action != "action-15" || entries[4].Action != "action-19" {
		t.Fatalf("expected the most recent entries to survive, got %q..%q",
			entries[0].Action, entries[4].Action)
	}
}

func TestResultTruncation(t *testing.T) {
	s := NewStore(WithResultBudget(10))
	s.AddEntry(0, "analyst", "thinking", strings.Repeat("x", 100))
	got := s.Entries()[0].Result
	if len(got) != 10 || !strings.HasSuffix(got, "...") {
		t.Fatalf("result not truncated to budget: %q", got)
	}
}

func TestSummaryCreatedPerBlock(t *testing.T) {
	s := NewStore()
	for i := 1; i <= 6; i++ {
		s.AddEntry(i, "executor", fmt.Sprintf("step-%d", i), "done")
	}
	sums := s.Summaries()
	if len(sums) != 2 {
		t.Fatalf("summary count = %d, want 2", len(sums))
	}
	if sums[0].StartIteration != 1 || sums[0].EndIteration != 3 {
		t.Fatalf("first summary range = [%d,%d], want [1,3]",
			sums[0].StartIteration, sums[0].EndIteration)
	}
	if sums[1].StartIteration != 4 || sums[1].EndIteration != 6 {
		t.Fatalf("second summary range = [%d,%d], want [4,6]",
			sums[1].StartIteration, sums[1].EndIteration)
	}
}

func TestNoSummaryForIterationZero(t *testing.T) {
	s := NewStore()
	s.AddEntry(0, "analyst", "observe", "workspace is empty")
	if got := len(s.Summaries()); got != 0 {
		t.Fatalf("summary count = %d, want 0", got)
	}
}

func TestSummaryCreatedOncePerBlock(t *testing.T) {
	s := NewStore()
	s.AddEntry(3, "executor", "create_file_or_folder(a.txt)", "created")
	s.AddEntry(3, "executor", "create_file_or_folder(b.txt)", "created")
	if got := len(s.Summaries()); got != 1 {
		t.Fatalf("summary count = %d, want 1", got)
	}
}

func TestSummaryCapFIFO(t *testing.T) {
	s := NewStore(WithSummaryCap(2))
	for i := 1; i <= 12; i++ {
		s.AddEntry(i, "executor", fmt.Sprintf("step-%d", i), "done")
	}
	sums := s.Summaries()
	if len(sums) != 2 {
		t.Fatalf("summary count = %d, want 2", len(sums))
	}
	if sums[1].EndIteration != 12 {
		t.Fatalf("newest summary ends at %d, want 12", sums[1].EndIteration)
	}
}

func TestRecentContextExcludesCurrentIteration(t *testing.T) {
	s := NewStore()
	s.AddEntry(1, "analyst", "thinking", "look at files")
	s.AddEntry(2, "executor", "edit_file(x)", "written")
	ctx := s.RecentContext(2)
	if strings.Contains(ctx, "edit_file(x)") {
		t.Fatalf("context leaked an entry from the current iteration: %q", ctx)
	}
	if !strings.Contains(ctx, "look at files") {
		t.Fatalf("context missing prior entry: %q", ctx)
	}
}

func TestRecentContextEmptyStore(t *testing.T) {
	s := NewStore()
	if got := s.RecentContext(5); got != "" {
		t.Fatalf("expected empty context, got %q", got)
	}
}

func TestRecentContextLimits(t *testing.T) {
	s := NewStore(WithEntryCap(100))
	for i := 1; i <= 9; i++ {
		s.AddEntry(i, "executor", fmt.Sprintf("step-%d", i), "done")
	}
	ctx := s.RecentContext(10)
	for i := 6; i <= 9; i++ {
		if !strings.Contains(ctx, fmt.Sprintf("step-%d", i)) {
			t.Fatalf("context missing recent entry step-%d:\n%s", i, ctx)
		}
	}
	_, actions, ok := strings.Cut(ctx, "Recent actions:\n")
	if !ok {
		t.Fatalf("context missing actions section:\n%s", ctx)
	}
	if got := len(strings.Split(strings.TrimSpace(actions), "\n")); got != 4 {
		t.Fatalf("actions section has %d lines, want 4:\n%s", got, actions)
	}
	if strings.Count(ctx, "[iterations") != 2 {
		t.Fatalf("expected exactly two summaries in context:\n%s", ctx)
	}
}

func TestClear(t *testing.T) {
	s := NewStore()
	for i := 1; i <= 6; i++ {
		s.AddEntry(i, "executor", "step", "done")
	}
	s.Clear()
	if s.Len() != 0 || len(s.Summaries()) != 0 {
		t.Fatalf("clear left data behind")
	}
	if got := s.RecentContext(10); got != "" {
		t.Fatalf("context after clear = %q, want empty", got)
	}
}

package logs

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewFansOutToFile(t *testing.T) {
	var term bytes.Buffer
	file := filepath.Join(t.TempDir(), "run.log")

	logger, closer, err := New(&term, file)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("session started", "session", "abc")
	if closer != nil {
		closer.Close()
	}

	if !strings.Contains(term.String(), "session started") {
		t.Fatalf("terminal output missing: %q", term.String())
	}
	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"session":"abc"`) {
		t.Fatalf("file output not JSON: %q", data)
	}
}

func TestSetLevelFiltersDebug(t *testing.T) {
	defer SetLevel("info")

	var term bytes.Buffer
	logger, _, err := New(&term, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	SetLevel("info")
	logger.Debug("hidden")
	if strings.Contains(term.String(), "hidden") {
		t.Fatalf("debug record should be filtered at info level")
	}

	SetLevel("debug")
	logger.Debug("visible")
	if !strings.Contains(term.String(), "visible") {
		t.Fatalf("debug record missing at debug level")
	}
}

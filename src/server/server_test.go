package server

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	json "github.com/alpkeskin/gotoon"
	"github.com/coder/websocket"

	"github.com/tandemstack/tandem"
	"github.com/tandemstack/tandem/src/memory"
	"github.com/tandemstack/tandem/src/models"
	"github.com/tandemstack/tandem/src/tools"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server, string) {
	t.Helper()

	dir := t.TempDir()
	ws, err := tools.NewWorkspace(dir)
	if err != nil {
		t.Fatalf("NewWorkspace: %v", err)
	}

	factory := func(sessionID string, sink tandem.EventSink) (*tandem.Controller, error) {
		store := memory.NewStore()
		analyst, err := tandem.NewAgent(tandem.AgentOptions{
			Name: "analyst", Role: tandem.RoleAnalyst,
			Model:  models.NewDummyLLM(models.Response{Text: "All good. Task completed."}),
			Memory: store,
		})
		if err != nil {
			return nil, err
		}
		executor, err := tandem.NewAgent(tandem.AgentOptions{
			Name: "executor", Role: tandem.RoleExecutor,
			Model:  models.NewDummyLLM(models.Response{Text: "Nothing to do."}),
			Memory: store,
		})
		if err != nil {
			return nil, err
		}
		return tandem.NewController(tandem.ControllerOptions{
			Analyst:  analyst,
			Executor: executor,
			Memory:   store,
			Config:   tandem.LoopConfig{MaxIterations: 2},
			Events:   sink,
			Logger:   slog.New(slog.DiscardHandler),
		})
	}

	srv, err := New(":0", factory, ws, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts, dir
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) tandem.Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var ev tandem.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	return ev
}

func send(t *testing.T, conn *websocket.Conn, msg wsMessage) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestTaskStreamsEvents(t *testing.T) {
	_, ts, _ := newTestServer(t)
	conn := dial(t, ts)

	send(t, conn, wsMessage{Type: "message", Content: "check the workspace"})

	ev1 := readEvent(t, conn)
	if ev1.Kind != tandem.EventInvestigation || !strings.Contains(ev1.Content, "Task completed") {
		t.Fatalf("unexpected first event: %+v", ev1)
	}
	ev2 := readEvent(t, conn)
	if ev2.Kind != tandem.EventResponse || ev2.Content != "Nothing to do." {
		t.Fatalf("unexpected second event: %+v", ev2)
	}
}

func TestFileTreeRequest(t *testing.T) {
	_, ts, dir := newTestServer(t)
	os.MkdirAll(filepath.Join(dir, "pkg"), 0o755)
	os.WriteFile(filepath.Join(dir, "main.go"), []byte("x"), 0o644)

	conn := dial(t, ts)
	send(t, conn, wsMessage{Type: "file_tree"})

	ev := readEvent(t, conn)
	if ev.Kind != tandem.EventFileTree {
		t.Fatalf("unexpected event kind: %+v", ev)
	}
	if !strings.Contains(ev.Content, "pkg/") || !strings.Contains(ev.Content, "main.go") {
		t.Fatalf("tree incomplete: %q", ev.Content)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	_, ts, _ := newTestServer(t)
	conn1 := dial(t, ts)
	conn2 := dial(t, ts)

	send(t, conn1, wsMessage{Type: "message", Content: "task one"})
	readEvent(t, conn1)
	readEvent(t, conn1)

	// The second session saw none of the first session's events.
	send(t, conn2, wsMessage{Type: "file_tree"})
	ev := readEvent(t, conn2)
	if ev.Kind != tandem.EventFileTree {
		t.Fatalf("second session received foreign event: %+v", ev)
	}
}

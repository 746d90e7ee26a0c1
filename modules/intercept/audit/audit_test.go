package audit

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/tapline-dev/tapline/internal/agent"
	"github.com/tapline-dev/tapline/internal/core"
	"github.com/tapline-dev/tapline/internal/intercept"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func provisioned(t *testing.T) *Module {
	t.Helper()
	m := &Module{}
	if err := m.Provision(core.NewAppContext(testLogger(), t.TempDir())); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	t.Cleanup(func() { _ = m.Stop(context.Background()) })
	return m
}

func testContext() *intercept.Context {
	return &intercept.Context{
		SessionID: "sess-audit",
		Timestamp: time.Now(),
		Model:     "model-a",
		Metadata:  map[string]any{},
	}
}

type row struct {
	session   string
	direction string
	model     string
	payload   string
}

func readRows(t *testing.T, m *Module) []row {
	t.Helper()
	rows, err := m.db.Query("SELECT session_id, direction, model, payload FROM audit_log ORDER BY id")
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()

	var out []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.session, &r.direction, &r.model, &r.payload); err != nil {
			t.Fatal(err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		t.Fatal(err)
	}
	return out
}

func TestProvision_DefaultsPathUnderDataDir(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	m := &Module{}
	if err := m.Provision(core.NewAppContext(testLogger(), dataDir)); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	defer m.Stop(context.Background())

	if m.config.Path != filepath.Join(dataDir, defaultDBFile) {
		t.Errorf("Path = %q, want default under data dir", m.config.Path)
	}
}

func TestOnInput_RecordsRow(t *testing.T) {
	t.Parallel()

	m := provisioned(t)

	res, err := m.onInput(context.Background(), intercept.InputData{Message: "hello agent"}, testContext())
	if err != nil {
		t.Fatalf("onInput: %v", err)
	}
	if res != nil {
		t.Errorf("result = %+v, want nil (observe-only)", res)
	}

	rows := readRows(t, m)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	got := rows[0]
	if got.session != "sess-audit" || got.direction != "input" || got.model != "model-a" {
		t.Errorf("row = %+v, want session/direction/model recorded", got)
	}
	if got.payload != "hello agent" {
		t.Errorf("payload = %q, want raw message", got.payload)
	}
}

func TestOnOutput_RecordsEventJSON(t *testing.T) {
	t.Parallel()

	m := provisioned(t)

	_, err := m.onOutput(context.Background(), intercept.OutputData{
		Event: agent.Event{Type: agent.EventText, Text: "hi"},
	}, testContext())
	if err != nil {
		t.Fatalf("onOutput: %v", err)
	}

	rows := readRows(t, m)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].direction != "output" {
		t.Errorf("direction = %q, want output", rows[0].direction)
	}
	if rows[0].payload != `{"type":"text","text":"hi"}` {
		t.Errorf("payload = %q, want event JSON", rows[0].payload)
	}
}

func TestRecord_AfterStopIsFault(t *testing.T) {
	t.Parallel()

	m := provisioned(t)
	if err := m.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	// A failed insert surfaces as a handler fault; the pipeline will log
	// and continue, so only the error return matters here.
	if _, err := m.onInput(context.Background(), intercept.InputData{Message: "x"}, testContext()); err == nil {
		t.Error("expected fault when the store is closed")
	}
}

func TestRegistrations_RunsLast(t *testing.T) {
	t.Parallel()

	m := provisioned(t)
	regs := m.Registrations()
	if len(regs) != 1 {
		t.Fatalf("got %d registrations, want 1", len(regs))
	}
	if regs[0].Priority != defaultPriority {
		t.Errorf("Priority = %d, want %d (runs last)", regs[0].Priority, defaultPriority)
	}
	if regs[0].OnInput == nil || regs[0].OnOutput == nil {
		t.Error("audit must observe both directions")
	}
}

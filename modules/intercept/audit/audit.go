// Package audit implements an observe-only interceptor that records every
// message and event to a SQLite log. It uses modernc.org/sqlite (pure Go,
// no CGO) with WAL mode, and registers at the lowest priority so it sees
// the final form of each payload after all transforming interceptors ran.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tapline-dev/tapline/internal/core"
	"github.com/tapline-dev/tapline/internal/intercept"
	"gopkg.in/yaml.v3"

	_ "modernc.org/sqlite" // SQLite driver registration
)

func init() {
	core.RegisterModule(&Module{})
}

// Compile-time interface guards.
var (
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
	_ core.Source       = (*Module)(nil)
)

// Lowest priority: the audit interceptor runs after every transformer.
// Not math.MinInt so an operator can still configure something later.
const defaultPriority = -1000

const defaultDBFile = "audit.db"

const schema = `
CREATE TABLE IF NOT EXISTS audit_log (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	ts         TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
	session_id TEXT NOT NULL,
	direction  TEXT NOT NULL,
	model      TEXT NOT NULL DEFAULT '',
	payload    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_session ON audit_log(session_id, ts);
`

// Config is the YAML configuration for the audit module.
type Config struct {
	// Path is the database file. Defaults to <data dir>/audit.db.
	Path string `yaml:"path,omitempty"`

	// Priority overrides the default (lowest) interceptor priority.
	Priority *int `yaml:"priority,omitempty"`
}

// Module writes one audit row per intercepted message or event.
type Module struct {
	config Config
	db     *sql.DB
	logger *slog.Logger
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "intercept.audit",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("audit: decode config: %w", err)
	}
	return nil
}

// Provision implements core.Provisioner. Opens the database and applies the
// schema.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.logger = ctx.Logger

	if m.config.Path == "" {
		m.config.Path = filepath.Join(ctx.DataDir, defaultDBFile)
	}
	if dir := filepath.Dir(m.config.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("audit: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", m.config.Path)
	if err != nil {
		return fmt.Errorf("audit: open %s: %w", m.config.Path, err)
	}

	// SQLite handles one writer at a time; limit pool to 1 connection
	// so PRAGMAs apply consistently.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return fmt.Errorf("audit: enable WAL: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return fmt.Errorf("audit: apply schema: %w", err)
	}

	m.db = db
	return nil
}

// Stop implements core.Stopper.
func (m *Module) Stop(_ context.Context) error {
	if m.db == nil {
		return nil
	}
	return m.db.Close()
}

// Registrations implements core.Source.
func (m *Module) Registrations() []intercept.Registration {
	priority := defaultPriority
	if m.config.Priority != nil {
		priority = *m.config.Priority
	}
	return []intercept.Registration{{
		ID:          "audit",
		Name:        "Audit log",
		Description: "Records every message and event to SQLite",
		Priority:    priority,
		OnInput:     m.onInput,
		OnOutput:    m.onOutput,
	}}
}

// record inserts one row. A failed insert is returned as a handler fault so
// the pipeline logs it and moves on; auditing never blocks traffic.
func (m *Module) record(ctx context.Context, pctx *intercept.Context, dir intercept.Direction, payload string) error {
	_, err := m.db.ExecContext(ctx,
		"INSERT INTO audit_log (session_id, direction, model, payload) VALUES (?, ?, ?, ?)",
		pctx.SessionID, string(dir), pctx.Model, payload,
	)
	if err != nil {
		return fmt.Errorf("audit: insert: %w", err)
	}
	return nil
}

func (m *Module) onInput(ctx context.Context, in intercept.InputData, pctx *intercept.Context) (*intercept.InputResult, error) {
	return nil, m.record(ctx, pctx, intercept.DirInput, in.Message)
}

// onOutput stores the event as JSON; payloads that cannot marshal fall back
// to their Go string form.
func (m *Module) onOutput(ctx context.Context, out intercept.OutputData, pctx *intercept.Context) (*intercept.OutputResult, error) {
	payload, err := json.Marshal(out.Event)
	if err != nil {
		payload = fmt.Appendf(nil, "%v", out.Event)
	}
	return nil, m.record(ctx, pctx, intercept.DirOutput, string(payload))
}

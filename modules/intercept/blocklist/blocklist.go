// Package blocklist implements an input interceptor that blocks messages
// matching configured regular expressions. It runs early (high priority) so
// blocked messages never reach transforming interceptors or the agent.
package blocklist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/tapline-dev/tapline/internal/core"
	"github.com/tapline-dev/tapline/internal/intercept"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Module{})
}

// Compile-time interface guards.
var (
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Source       = (*Module)(nil)
)

const defaultPriority = 100

// Config is the YAML configuration for the blocklist module.
type Config struct {
	// Patterns are regular expressions matched against the full message.
	Patterns []string `yaml:"patterns"`

	// Reason is reported to the user on a block. A default is used when
	// empty.
	Reason string `yaml:"reason,omitempty"`

	// Priority overrides the default interceptor priority.
	Priority *int `yaml:"priority,omitempty"`
}

// Module blocks user input matching any configured pattern.
type Module struct {
	config   Config
	compiled []*regexp.Regexp
	logger   *slog.Logger
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "intercept.blocklist",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("blocklist: decode config: %w", err)
	}
	return nil
}

// Provision implements core.Provisioner. Patterns are compiled once here.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.logger = ctx.Logger
	for _, p := range m.config.Patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return fmt.Errorf("blocklist: pattern %q: %w", p, err)
		}
		m.compiled = append(m.compiled, re)
	}
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if len(m.config.Patterns) == 0 {
		return errors.New("blocklist: at least one pattern is required")
	}
	return nil
}

// Registrations implements core.Source.
func (m *Module) Registrations() []intercept.Registration {
	priority := defaultPriority
	if m.config.Priority != nil {
		priority = *m.config.Priority
	}
	return []intercept.Registration{{
		ID:          "blocklist",
		Name:        "Pattern blocklist",
		Description: "Blocks user input matching configured patterns",
		Priority:    priority,
		OnInput:     m.onInput,
	}}
}

func (m *Module) onInput(_ context.Context, in intercept.InputData, _ *intercept.Context) (*intercept.InputResult, error) {
	for _, re := range m.compiled {
		if !re.MatchString(in.Message) {
			continue
		}
		reason := m.config.Reason
		if reason == "" {
			reason = fmt.Sprintf("message matches blocked pattern %q", re.String())
		}
		m.logger.Debug("blocklist: match", "pattern", re.String())
		return &intercept.InputResult{Blocked: true, BlockReason: reason}, nil
	}
	return nil, nil
}

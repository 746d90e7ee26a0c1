// Package redact implements an interceptor that rewrites secrets out of
// messages in both directions: user input before it reaches the agent, and
// agent text events before they reach the display.
package redact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/tapline-dev/tapline/internal/agent"
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

const (
	defaultPriority    = 50
	defaultReplacement = "[REDACTED]"
)

// Rule is one pattern → replacement rewrite.
type Rule struct {
	Pattern string `yaml:"pattern"`

	// Replace defaults to "[REDACTED]". Capture group references ($1)
	// are supported.
	Replace string `yaml:"replace,omitempty"`
}

// Config is the YAML configuration for the redact module.
type Config struct {
	Rules []Rule `yaml:"rules"`

	// Priority overrides the default interceptor priority.
	Priority *int `yaml:"priority,omitempty"`
}

type compiledRule struct {
	re      *regexp.Regexp
	replace string
}

// Module rewrites matches of the configured rules in both directions.
type Module struct {
	config Config
	rules  []compiledRule
	logger *slog.Logger
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "intercept.redact",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("redact: decode config: %w", err)
	}
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.logger = ctx.Logger
	for _, r := range m.config.Rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return fmt.Errorf("redact: pattern %q: %w", r.Pattern, err)
		}
		replace := r.Replace
		if replace == "" {
			replace = defaultReplacement
		}
		m.rules = append(m.rules, compiledRule{re: re, replace: replace})
	}
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if len(m.config.Rules) == 0 {
		return errors.New("redact: at least one rule is required")
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
		ID:          "redact",
		Name:        "Secret redaction",
		Description: "Rewrites secret-looking content in both directions",
		Priority:    priority,
		OnInput:     m.onInput,
		OnOutput:    m.onOutput,
	}}
}

// apply runs every rule over text, returning the result and match count.
func (m *Module) apply(text string) (string, int) {
	total := 0
	for _, rule := range m.rules {
		matches := rule.re.FindAllStringIndex(text, -1)
		if len(matches) == 0 {
			continue
		}
		total += len(matches)
		text = rule.re.ReplaceAllString(text, rule.replace)
	}
	return text, total
}

func (m *Module) onInput(_ context.Context, in intercept.InputData, _ *intercept.Context) (*intercept.InputResult, error) {
	redacted, n := m.apply(in.Message)
	if n == 0 {
		return nil, nil
	}
	m.logger.Debug("redact: input rewritten", "matches", n)
	return &intercept.InputResult{
		Message:  &redacted,
		Metadata: map[string]any{"redactions": n},
	}, nil
}

// onOutput only touches text events; other event payloads pass through.
func (m *Module) onOutput(_ context.Context, out intercept.OutputData, _ *intercept.Context) (*intercept.OutputResult, error) {
	ev, ok := out.Event.(agent.Event)
	if !ok || ev.Type != agent.EventText {
		return nil, nil
	}
	redacted, n := m.apply(ev.Text)
	if n == 0 {
		return nil, nil
	}
	ev.Text = redacted
	m.logger.Debug("redact: output rewritten", "matches", n)
	return &intercept.OutputResult{
		Event:    ev,
		Metadata: map[string]any{"redactions": n},
	}, nil
}

// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for tapline.
package config

import (
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	// Session holds per-session settings applied to every pipeline run.
	Session SessionConfig `yaml:"session"`

	// Agent configures the connection to the agent backend.
	Agent AgentConfig `yaml:"agent"`

	// Gateway configures the admin/observability HTTP server.
	Gateway GatewayConfig `yaml:"gateway"`

	// Heartbeat configures the optional scheduled synthetic message.
	Heartbeat HeartbeatConfig `yaml:"heartbeat"`

	// Interceptors maps interceptor module IDs to their raw YAML
	// configuration. Keys must match registered module IDs
	// (e.g. "intercept.redact"). This selects which modules load at
	// startup; the live registry itself is never persisted.
	Interceptors map[string]yaml.Node `yaml:"interceptors"`
}

// SessionConfig holds settings shared by all pipeline runs of the session.
type SessionConfig struct {
	// Model is the default model identifier passed to pipeline runs.
	Model string `yaml:"model"`
}

// AgentConfig configures the WebSocket connection to the agent backend.
type AgentConfig struct {
	// URL is the ws:// or wss:// endpoint of the agent runtime.
	URL string `yaml:"url"`

	// Token is an optional bearer token sent on connect.
	Token string `yaml:"token,omitempty"`
}

// GatewayConfig configures the admin HTTP server.
type GatewayConfig struct {
	// Bind is the listen address. Loopback by default.
	Bind string `yaml:"bind"`

	// AuthToken protects the /api routes. When empty they are not mounted.
	AuthToken string `yaml:"auth_token,omitempty"`

	ReadTimeout  time.Duration `yaml:"read_timeout,omitempty"`
	WriteTimeout time.Duration `yaml:"write_timeout,omitempty"`
}

// Defaults fills zero-valued gateway fields.
func (g *GatewayConfig) Defaults() {
	if g.Bind == "" {
		g.Bind = "127.0.0.1:8377"
	}
	if g.ReadTimeout == 0 {
		g.ReadTimeout = 10 * time.Second
	}
	if g.WriteTimeout == 0 {
		g.WriteTimeout = 10 * time.Second
	}
}

// HeartbeatConfig configures the scheduled synthetic input message.
// An empty schedule disables the heartbeat.
type HeartbeatConfig struct {
	// Schedule is a five-field cron expression.
	Schedule string `yaml:"schedule,omitempty"`

	// Message is the synthetic input sent on each tick.
	Message string `yaml:"message,omitempty"`
}

package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"

	"github.com/robfig/cron/v3"
	"github.com/tapline-dev/tapline/internal/core"
)

// Validate checks the structural validity of a Config: the version field,
// the agent endpoint, the heartbeat schedule, and that every configured
// interceptor ID matches a compiled-in module.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	if cfg.Agent.URL == "" {
		errs = append(errs, errors.New("config: agent.url is required"))
	} else if u, err := url.Parse(cfg.Agent.URL); err != nil {
		errs = append(errs, fmt.Errorf("config: agent.url: %w", err))
	} else if u.Scheme != "ws" && u.Scheme != "wss" {
		errs = append(errs, fmt.Errorf("config: agent.url scheme must be ws or wss, got %q", u.Scheme))
	}

	if cfg.Heartbeat.Schedule != "" {
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
		if _, err := parser.Parse(cfg.Heartbeat.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("config: heartbeat.schedule: %w", err))
		}
		if cfg.Heartbeat.Message == "" {
			errs = append(errs, errors.New("config: heartbeat.message is required when a schedule is set"))
		}
	}

	for id := range cfg.Interceptors {
		if _, ok := core.GetModule(id); !ok {
			errs = append(errs, fmt.Errorf("config: unknown interceptor module %q", id))
		}
	}

	return errors.Join(errs...)
}

// Resolve returns the configured interceptor module IDs in sorted order.
// The deterministic order ensures consistent module loading; execution order
// within the pipeline is governed by interceptor priority, not load order.
func Resolve(cfg *Config) []string {
	ids := make([]string, 0, len(cfg.Interceptors))
	for id := range cfg.Interceptors {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Package core provides the interceptor module system: compiled-in modules
// register themselves from init(), get configured from YAML, and contribute
// interceptor registrations to the session registry.
package core

import (
	"context"

	"github.com/tapline-dev/tapline/internal/intercept"
	"gopkg.in/yaml.v3"
)

// ModuleID uniquely identifies a module (e.g. "intercept.redact").
type ModuleID string

// ModuleInfo describes a registered module and how to instantiate it.
type ModuleInfo struct {
	ID ModuleID

	// New returns a fresh, unconfigured instance.
	New func() Module
}

// Module is the minimal interface every module implements.
type Module interface {
	ModuleInfo() ModuleInfo
}

// Configurable is implemented by modules that accept YAML configuration.
// Called after instantiation and before Provision(). The node contains the
// raw YAML for this module's config section.
type Configurable interface {
	Configure(node *yaml.Node) error
}

// Provisioner is implemented by modules that need setup after configuration:
// opening files, compiling patterns, connecting stores.
type Provisioner interface {
	Provision(ctx *AppContext) error
}

// Validator is implemented by modules that can verify their configuration.
// Called after Provision(). Validate should be read-only.
type Validator interface {
	Validate() error
}

// Stopper is implemented by modules holding resources that need cleanup.
// Called during shutdown in reverse load order.
type Stopper interface {
	Stop(ctx context.Context) error
}

// Source is implemented by modules that contribute interceptors. Called once
// after the module is provisioned and validated; the returned registrations
// are installed into the session's registry.
type Source interface {
	Registrations() []intercept.Registration
}

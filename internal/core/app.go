package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tapline-dev/tapline/internal/intercept"
)

const shutdownTimeout = 10 * time.Second

// App loads interceptor modules and installs their registrations into a
// session registry. It owns the modules for its lifetime and stops them in
// reverse load order.
type App struct {
	ctx     *AppContext
	modules []loadedModule
	logger  *slog.Logger
}

type loadedModule struct {
	id     ModuleID
	module Module
}

// NewApp creates a new App with the given context.
func NewApp(ctx *AppContext) *App {
	return &App{
		ctx:    ctx,
		logger: ctx.Logger.With("component", "core"),
	}
}

// LoadModules instantiates, configures, provisions, and validates all modules
// for the given IDs in order. If any step fails, already-loaded modules are
// stopped.
func (a *App) LoadModules(ids []string) error {
	for _, id := range ids {
		mod, err := a.ctx.LoadModule(id)
		if err != nil {
			a.Stop()
			return fmt.Errorf("loading module %s: %w", id, err)
		}
		a.modules = append(a.modules, loadedModule{id: mod.ModuleInfo().ID, module: mod})
		a.logger.Info("module loaded", "module", id)
	}
	return nil
}

// Install collects interceptor registrations from every loaded module that
// implements Source and registers them. Modules without interceptors to
// contribute are legal and skipped.
func (a *App) Install(reg *intercept.Registry) {
	for _, lm := range a.modules {
		src, ok := lm.module.(Source)
		if !ok {
			continue
		}
		for _, r := range src.Registrations() {
			reg.Register(r)
			a.logger.Info("interceptor installed",
				"module", string(lm.id),
				"interceptor", r.ID,
				"priority", r.Priority,
			)
		}
	}
}

// Stop stops all loaded modules in reverse order with a timeout.
func (a *App) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for i := len(a.modules) - 1; i >= 0; i-- {
		lm := a.modules[i]
		s, ok := lm.module.(Stopper)
		if !ok {
			continue
		}
		if err := s.Stop(ctx); err != nil {
			a.logger.Error("module stop error", "module", string(lm.id), "error", err)
		}
	}
	a.modules = nil
}

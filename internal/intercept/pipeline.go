package intercept

import (
	"context"
	"fmt"
	"maps"
	"time"
)

// RunInput executes the input pipeline over msg. Handlers run strictly one
// after another, highest priority first. The first handler to block stops the
// run; a handler fault is logged and skipped. RunInput never returns an
// error: every failure mode is either a logged diagnostic or a verdict
// field.
func (r *Registry) RunInput(ctx context.Context, msg string, model string, isRetry bool) InputVerdict {
	handlers := r.selectHandlers(DirInput)
	if len(handlers) == 0 {
		return InputVerdict{Message: msg}
	}

	start := time.Now()
	pctx := r.newContext(model)
	current := msg

	for _, reg := range handlers {
		r.logger.Debug("intercept: executing input interceptor", "id", reg.ID)

		res, err := safeInput(ctx, reg.OnInput, InputData{Message: current, IsRetry: isRetry}, pctx)
		if err != nil {
			r.logger.Error("intercept: error in input interceptor", "id", reg.ID, "error", err)
			r.handlerFailed(DirInput, reg.ID)
			continue
		}
		if res == nil {
			continue
		}
		if res.Blocked {
			// Block wins over a simultaneous replace: the running
			// message stays as it was before this handler.
			r.logger.Debug("intercept: input blocked by", "id", reg.ID, "reason", res.BlockReason)
			r.runCompleted(DirInput, time.Since(start), true)
			return InputVerdict{Message: current, Blocked: true, BlockReason: res.BlockReason}
		}
		if res.Message != nil {
			current = *res.Message
			r.logger.Debug("intercept: input modified by", "id", reg.ID)
		}
		mergeMetadata(pctx, res.Metadata)
	}

	r.runCompleted(DirInput, time.Since(start), false)
	return InputVerdict{Message: current}
}

// RunOutput executes the output pipeline over one agent event. Structurally
// identical to RunInput, but there is no block reason: a blocked event is
// simply withheld from the display.
func (r *Registry) RunOutput(ctx context.Context, event any, model string) OutputVerdict {
	handlers := r.selectHandlers(DirOutput)
	if len(handlers) == 0 {
		return OutputVerdict{Event: event}
	}

	start := time.Now()
	pctx := r.newContext(model)
	current := event

	for _, reg := range handlers {
		r.logger.Debug("intercept: executing output interceptor", "id", reg.ID)

		res, err := safeOutput(ctx, reg.OnOutput, OutputData{Event: current}, pctx)
		if err != nil {
			r.logger.Error("intercept: error in output interceptor", "id", reg.ID, "error", err)
			r.handlerFailed(DirOutput, reg.ID)
			continue
		}
		if res == nil {
			continue
		}
		if res.Blocked {
			r.logger.Debug("intercept: output blocked by", "id", reg.ID)
			r.runCompleted(DirOutput, time.Since(start), true)
			return OutputVerdict{Event: current, Blocked: true}
		}
		if res.Event != nil {
			current = res.Event
			r.logger.Debug("intercept: output modified by", "id", reg.ID)
		}
		mergeMetadata(pctx, res.Metadata)
	}

	r.runCompleted(DirOutput, time.Since(start), false)
	return OutputVerdict{Event: current}
}

// newContext builds the per-run pipeline context. One per run; input and
// output runs never share one.
func (r *Registry) newContext(model string) *Context {
	return &Context{
		SessionID: r.session,
		Timestamp: time.Now(),
		Model:     model,
		Metadata:  make(map[string]any),
	}
}

// mergeMetadata folds a handler's metadata into the run's bag. New keys
// overwrite same-named existing keys; everything else persists.
func mergeMetadata(pctx *Context, md map[string]any) {
	if len(md) == 0 {
		return
	}
	maps.Copy(pctx.Metadata, md)
}

// safeInput invokes one input handler with a recover scoped to exactly that
// call, so a panicking handler surfaces as an error instead of taking down
// the run. The recover must never wrap the whole loop: one failure must not
// suppress later handlers.
func safeInput(ctx context.Context, h InputHandler, in InputData, pctx *Context) (res *InputResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			res = nil
			err = fmt.Errorf("handler panic: %v", p)
		}
	}()
	return h(ctx, in, pctx)
}

// safeOutput is safeInput for output handlers.
func safeOutput(ctx context.Context, h OutputHandler, out OutputData, pctx *Context) (res *OutputResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			res = nil
			err = fmt.Errorf("handler panic: %v", p)
		}
	}()
	return h(ctx, out, pctx)
}

// runCompleted and handlerFailed forward to the observer when one is set.

func (r *Registry) runCompleted(dir Direction, elapsed time.Duration, blocked bool) {
	if o := r.currentObserver(); o != nil {
		o.RunCompleted(dir, elapsed, blocked)
	}
}

func (r *Registry) handlerFailed(dir Direction, id string) {
	if o := r.currentObserver(); o != nil {
		o.HandlerFailed(dir, id)
	}
}

func (r *Registry) currentObserver() Observer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.observer
}

// Package intercept provides the interceptor registry and its two execution
// pipelines. Interceptors observe, transform, or block messages flowing in
// both directions between the terminal and the agent backend: user input
// traveling toward the agent, and streamed agent output traveling toward the
// display. Payloads are opaque to the pipeline: it forwards them, or replaces
// them wholesale when a handler says so.
package intercept

import (
	"context"
	"time"
)

// Direction identifies which of the two pipelines a run belongs to.
type Direction string

// Pipeline directions.
const (
	DirInput  Direction = "input"
	DirOutput Direction = "output"
)

// InputData is what an input handler receives: the running message and
// whether this run is a retry of a previously failed turn.
type InputData struct {
	Message string
	IsRetry bool
}

// OutputData is what an output handler receives: one streamed agent event.
// The event is opaque to the pipeline.
type OutputData struct {
	Event any
}

// Context carries per-run data shared by every handler in one pipeline
// invocation. A fresh Context is built for each run; Metadata starts empty
// and accumulates handler contributions, so each handler observes the union
// of everything earlier handlers returned. Nothing here survives the run.
type Context struct {
	SessionID string
	Timestamp time.Time

	// Model is the model identifier for this turn, when known.
	Model string

	// Metadata is the accumulating key-value bag for this run. Input and
	// output runs never share a bag, even within the same turn.
	Metadata map[string]any
}

// InputHandler processes a message on its way to the agent. Returning nil
// with a nil error leaves the message untouched. Returning an error (or
// panicking) is a local fault: the pipeline logs it and continues with the
// message and metadata unchanged.
type InputHandler func(ctx context.Context, in InputData, pctx *Context) (*InputResult, error)

// OutputHandler processes one agent event on its way to the display.
type OutputHandler func(ctx context.Context, out OutputData, pctx *Context) (*OutputResult, error)

// InputResult is an input handler's verdict on the running message.
type InputResult struct {
	// Message, when non-nil, replaces the running message. Ignored when
	// Blocked is set: block wins over a simultaneous replace.
	Message *string

	// Blocked stops the pipeline; no later handler runs.
	Blocked bool

	// BlockReason is surfaced to the caller when Blocked is set.
	BlockReason string

	// Metadata is merged into the run's bag; same-named keys overwrite.
	Metadata map[string]any
}

// OutputResult is an output handler's verdict on the running event. Unlike
// input there is no block reason; a blocked event is simply dropped.
type OutputResult struct {
	// Event, when non-nil, replaces the running event. Ignored when
	// Blocked is set.
	Event any

	Blocked  bool
	Metadata map[string]any
}

// InputVerdict is the final result of one input pipeline run.
type InputVerdict struct {
	Message     string
	Blocked     bool
	BlockReason string
}

// OutputVerdict is the final result of one output pipeline run.
type OutputVerdict struct {
	Event   any
	Blocked bool
}

// Registration describes one interceptor. Either handler may be nil; a
// registration missing the direction's handler is skipped by that pipeline.
type Registration struct {
	// ID keys the registry. Re-registering an existing ID replaces the
	// entry (last write wins).
	ID string

	// Name is a human-readable label, Description an optional longer one.
	Name        string
	Description string

	OnInput  InputHandler
	OnOutput OutputHandler

	// Enabled defaults to true when nil.
	Enabled *bool

	// Priority orders execution: higher runs first. Equal priorities keep
	// registration order.
	Priority int
}

// enabled reports whether the registration participates in pipeline runs.
func (r Registration) enabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// Bool returns a pointer to b, for filling Registration.Enabled.
func Bool(b bool) *bool { return &b }

// Observer receives pipeline execution signals, typically for metrics.
// Implementations must be cheap and must not panic.
type Observer interface {
	RunCompleted(dir Direction, elapsed time.Duration, blocked bool)
	HandlerFailed(dir Direction, id string)
}

// Package bridge wires the terminal to the agent backend through the two
// interceptor pipelines. User lines run through the input pipeline before
// they reach the agent; every streamed agent event runs through the output
// pipeline before it reaches the display. Each direction builds its own
// pipeline context; the bridge never shares state between them.
package bridge

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/tapline-dev/tapline/internal/agent"
	"github.com/tapline-dev/tapline/internal/intercept"
)

// Conn is the slice of the agent client the bridge needs. The pipeline never
// calls back into the agent; only the bridge does.
type Conn interface {
	Send(ctx context.Context, message, model string) error
	Events() <-chan agent.Event
}

// Display renders pipeline survivors to the user.
type Display interface {
	// ShowEvent renders one agent event that passed the output pipeline.
	ShowEvent(ev agent.Event)

	// ShowBlocked tells the user their input was blocked and why.
	ShowBlocked(reason string)
}

// Bridge is the single call site that invokes both pipelines.
type Bridge struct {
	registry *intercept.Registry
	conn     Conn
	display  Display
	model    string
	logger   *slog.Logger
}

// New creates a bridge over the given registry, agent connection, and display.
func New(registry *intercept.Registry, conn Conn, display Display, model string, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		registry: registry,
		conn:     conn,
		display:  display,
		model:    model,
		logger:   logger,
	}
}

// SubmitInput runs one user message through the input pipeline and forwards
// it to the agent unless a handler blocked it. A block is not an error; it is
// reported to the display and the turn ends.
func (b *Bridge) SubmitInput(ctx context.Context, msg string, isRetry bool) error {
	verdict := b.registry.RunInput(ctx, msg, b.model, isRetry)
	if verdict.Blocked {
		reason := verdict.BlockReason
		if reason == "" {
			reason = "blocked by interceptor"
		}
		b.display.ShowBlocked(reason)
		return nil
	}
	return b.conn.Send(ctx, verdict.Message, b.model)
}

// PumpEvents consumes agent events until the connection drops or ctx is
// done, running each through the output pipeline. Blocked events are
// withheld from the display; replacements must still be agent events.
func (b *Bridge) PumpEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-b.conn.Events():
			if !ok {
				b.logger.Debug("bridge: agent stream ended")
				return
			}

			verdict := b.registry.RunOutput(ctx, ev, b.model)
			if verdict.Blocked {
				continue
			}
			out, ok := verdict.Event.(agent.Event)
			if !ok {
				b.logger.Error("bridge: interceptor replaced event with unexpected type",
					"type", fmt.Sprintf("%T", verdict.Event))
				continue
			}
			b.display.ShowEvent(out)
		}
	}
}

// ReadLines feeds user input from r line by line until EOF or ctx is done.
// Blank lines are skipped.
func (b *Bridge) ReadLines(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := b.SubmitInput(ctx, line, false); err != nil {
			return fmt.Errorf("bridge: forwarding input: %w", err)
		}
	}
	return scanner.Err()
}

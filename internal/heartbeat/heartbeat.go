// Package heartbeat injects a configured synthetic message into the input
// pipeline on a cron schedule. It gives interceptors a periodic turn even
// when the user is idle (session keep-alive, scheduled audits).
package heartbeat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrAlreadyStarted is returned by Start when the heartbeat is running.
var ErrAlreadyStarted = errors.New("heartbeat: already started")

// submitTimeout bounds one synthetic submission. The pipeline itself has no
// timeout; this only caps the forwarding step.
const submitTimeout = 30 * time.Second

// Submitter forwards one synthetic message the same way user input travels.
type Submitter func(ctx context.Context, message string) error

// Heartbeat schedules synthetic messages. Zero-schedule heartbeats are
// inert: Start and Stop are no-ops.
type Heartbeat struct {
	schedule string
	message  string
	submit   Submitter
	logger   *slog.Logger

	mu   sync.Mutex
	cron *cron.Cron
	// tick guards against overlapping submissions when a pipeline run
	// outlasts the schedule interval.
	tick sync.Mutex
}

// New creates a heartbeat for the given five-field cron schedule and message.
func New(schedule, message string, submit Submitter, logger *slog.Logger) *Heartbeat {
	if logger == nil {
		logger = slog.Default()
	}
	return &Heartbeat{
		schedule: schedule,
		message:  message,
		submit:   submit,
		logger:   logger,
	}
}

// Start begins firing on schedule. Returns an error for an invalid schedule.
func (h *Heartbeat) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.schedule == "" {
		return nil
	}
	if h.cron != nil {
		return ErrAlreadyStarted
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser))
	if _, err := c.AddFunc(h.schedule, h.fire); err != nil {
		return fmt.Errorf("heartbeat: invalid schedule %q: %w", h.schedule, err)
	}

	h.cron = c
	c.Start()
	h.logger.Info("heartbeat started", "schedule", h.schedule)
	return nil
}

// Stop halts the schedule and waits for an in-flight tick to finish.
func (h *Heartbeat) Stop() {
	h.mu.Lock()
	c := h.cron
	h.cron = nil
	h.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
}

// fire submits one synthetic message. TryLock is atomic: if the previous
// tick is still submitting, this one is skipped rather than queued.
func (h *Heartbeat) fire() {
	if !h.tick.TryLock() {
		h.logger.Warn("heartbeat: previous tick still running, skipping")
		return
	}
	defer h.tick.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()

	if err := h.submit(ctx, h.message); err != nil {
		h.logger.Error("heartbeat: submit failed", "error", err)
		return
	}
	h.logger.Debug("heartbeat: submitted", "message", h.message)
}

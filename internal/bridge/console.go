package bridge

import (
	"fmt"
	"io"
	"sync"

	"github.com/tapline-dev/tapline/internal/agent"
)

// Console is a Display that writes to a terminal-ish writer. Text deltas are
// written as they arrive; a terminal event flushes the line.
type Console struct {
	mu  sync.Mutex
	out io.Writer
	// midLine tracks whether a streamed line is open and needs a newline.
	midLine bool
}

// NewConsole creates a console display writing to out.
func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

// ShowEvent implements Display.
func (c *Console) ShowEvent(ev agent.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev.Type {
	case agent.EventText:
		fmt.Fprint(c.out, ev.Text)
		c.midLine = true
	case agent.EventTool:
		c.breakLine()
		fmt.Fprintf(c.out, "[tool: %s]\n", ev.Text)
	case agent.EventError:
		c.breakLine()
		fmt.Fprintf(c.out, "[agent error: %s]\n", ev.Text)
	case agent.EventDone:
		c.breakLine()
	}
}

// ShowBlocked implements Display.
func (c *Console) ShowBlocked(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.breakLine()
	fmt.Fprintf(c.out, "[input blocked: %s]\n", reason)
}

func (c *Console) breakLine() {
	if c.midLine {
		fmt.Fprintln(c.out)
		c.midLine = false
	}
}

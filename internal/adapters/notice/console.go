// Package notice renders user-facing notices outside the TUI
package notice

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"canvaslink/internal/adapters/tui/styles"
	"canvaslink/internal/ports"
)

var _ ports.Notifier = (*Console)(nil)

// Console writes notices as styled lines and mirrors them to a logger
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	logger *slog.Logger
}

// NewConsole creates a notifier writing to out. logger may be nil.
func NewConsole(out io.Writer, logger *slog.Logger) *Console {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Console{out: out, logger: logger}
}

// Notify prints the notice
func (c *Console) Notify(n ports.Notice) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n.Level == ports.NoticeError {
		c.logger.Error(n.Message)
		fmt.Fprintln(c.out, styles.ErrorMsg.Render(n.Message))
		return
	}
	c.logger.Info(n.Message)
	fmt.Fprintln(c.out, styles.Success.Render(n.Message))
}

// Func adapts a function to ports.Notifier
type Func func(ports.Notice)

// Notify calls f(n)
func (f Func) Notify(n ports.Notice) { f(n) }

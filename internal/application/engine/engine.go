// Package engine propagates structural canvas edits across linkage groups
// and derives new linked versions. All work runs through one FIFO queue
// drained by at most one goroutine at a time.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"canvaslink/internal/application"
	"canvaslink/internal/application/registry"
	"canvaslink/internal/domain"
	"canvaslink/internal/ports"
)

// State reports whether the drain loop is running
type State int

const (
	StateIdle State = iota
	StateDraining
)

func (s State) String() string {
	if s == StateDraining {
		return "draining"
	}
	return "idle"
}

// Config holds the engine's collaborators. Notifier, Metrics, Logger and
// Clock are optional.
type Config struct {
	Store    ports.DocumentStore
	Registry *registry.Registry
	Notifier ports.Notifier
	Metrics  ports.SyncMetrics
	Logger   *slog.Logger
	Clock    func() time.Time
}

// job is one queue entry: either an operation or a derivation request
type job struct {
	op     *domain.Operation
	derive *deriveJob
}

type deriveJob struct {
	ctx    context.Context
	source string
	done   chan deriveResult
}

type deriveResult struct {
	path string
	err  error
}

var _ ports.SyncEngine = (*Engine)(nil)

// Engine is the sync engine
type Engine struct {
	store    ports.DocumentStore
	registry *registry.Registry
	notifier ports.Notifier
	metrics  ports.SyncMetrics
	logger   *slog.Logger
	now      func() time.Time

	mu    sync.Mutex
	queue []job
	state State
	idle  chan struct{} // closed while Idle
}

// New creates an idle engine
func New(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, errors.New("engine: document store is required")
	}
	if cfg.Registry == nil {
		return nil, errors.New("engine: registry is required")
	}

	e := &Engine{
		store:    cfg.Store,
		registry: cfg.Registry,
		notifier: cfg.Notifier,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		now:      cfg.Clock,
		idle:     make(chan struct{}),
	}
	if e.notifier == nil {
		e.notifier = nopNotifier{}
	}
	if e.metrics == nil {
		e.metrics = nopMetrics{}
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	if e.now == nil {
		e.now = time.Now
	}
	close(e.idle)
	return e, nil
}

// Submit queues op for propagation to the other members of its source's
// group. It never blocks on I/O.
func (e *Engine) Submit(op domain.Operation) error {
	if err := op.Validate(); err != nil {
		return fmt.Errorf("%w: %v", application.ErrInvalidOperation, err)
	}
	depth := e.enqueue(job{op: &op})
	e.metrics.OperationQueued(op.Kind.String(), depth)
	e.logger.Debug("operation queued",
		slog.String("op_id", op.ID),
		slog.String("op", op.String()),
		slog.Int("depth", depth),
	)
	return nil
}

// Derive creates the next linked version of source and returns its path.
// The request waits its turn in the queue so it never interleaves with
// propagation.
func (e *Engine) Derive(ctx context.Context, source string) (string, error) {
	dj := &deriveJob{ctx: ctx, source: source, done: make(chan deriveResult, 1)}
	e.enqueue(job{derive: dj})

	select {
	case res := <-dj.done:
		return res.path, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Wait blocks until the queue is empty and the engine is Idle
func (e *Engine) Wait(ctx context.Context) error {
	e.mu.Lock()
	idle := e.idle
	e.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State reports whether a drain is in progress
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Pending returns the number of queued jobs not yet started
func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

func (e *Engine) enqueue(j job) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.queue = append(e.queue, j)
	if e.state == StateIdle {
		e.state = StateDraining
		e.idle = make(chan struct{})
		go e.drain()
	}
	return len(e.queue)
}

// drain processes jobs strictly in order until the queue is empty
func (e *Engine) drain() {
	for {
		e.mu.Lock()
		if len(e.queue) == 0 {
			e.state = StateIdle
			close(e.idle)
			e.mu.Unlock()
			return
		}
		j := e.queue[0]
		e.queue[0] = job{}
		e.queue = e.queue[1:]
		e.mu.Unlock()

		switch {
		case j.op != nil:
			e.propagate(context.Background(), *j.op)
		case j.derive != nil:
			path, err := e.runDerive(j.derive.ctx, j.derive.source)
			j.derive.done <- deriveResult{path: path, err: err}
		}
	}
}

type nopNotifier struct{}

func (nopNotifier) Notify(ports.Notice) {}

type nopMetrics struct{}

func (nopMetrics) OperationQueued(string, int)                   {}
func (nopMetrics) OperationProcessed(string, int, time.Duration) {}
func (nopMetrics) OperationDiscarded(string)                     {}
func (nopMetrics) TargetWritten(string)                          {}
func (nopMetrics) TargetFailed(string, string)                   {}
func (nopMetrics) DocumentDerived(bool)                          {}

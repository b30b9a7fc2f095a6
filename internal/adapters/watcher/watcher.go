// Package watcher detects structural edits to canvases in a vault. It keeps
// the last known content of every canvas, diffs each change against it and
// submits the resulting operations to the sync engine.
package watcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"canvaslink/internal/application"
	"canvaslink/internal/domain"
	"canvaslink/internal/ports"
)

// Options configures the Detector
type Options struct {
	// Debounce is how long to wait for more events on a file before reading it.
	// Default: 150ms
	Debounce time.Duration

	// BufferSize is the size of the event channel. Default: 1000
	BufferSize int

	Logger *slog.Logger
}

// DefaultOptions returns the defaults used when nil options are passed
func DefaultOptions() Options {
	return Options{
		Debounce:   150 * time.Millisecond,
		BufferSize: 1000,
	}
}

// Detector turns file changes into operations
type Detector struct {
	root     string
	store    ports.DocumentStore
	engine   ports.SyncEngine
	logger   *slog.Logger
	debounce time.Duration

	fsw      *fsnotify.Watcher
	changes  chan string
	done     chan struct{}
	stopOnce sync.Once

	mu        sync.Mutex
	snapshots map[string]*domain.Canvas
	watching  bool
}

// New creates a detector for the vault at root. store must read from the
// same vault; engine receives the detected operations and may be attached
// later with SetEngine.
func New(root string, store ports.DocumentStore, engine ports.SyncEngine, opts *Options) (*Detector, error) {
	if opts == nil {
		defaults := DefaultOptions()
		opts = &defaults
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultOptions().Debounce
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultOptions().BufferSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	return &Detector{
		root:      root,
		store:     store,
		engine:    engine,
		logger:    logger,
		debounce:  opts.Debounce,
		fsw:       fsw,
		changes:   make(chan string, opts.BufferSize),
		done:      make(chan struct{}),
		snapshots: make(map[string]*domain.Canvas),
	}, nil
}

// Start snapshots every canvas, then watches the vault recursively until
// ctx is cancelled or Stop is called
func (d *Detector) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.watching {
		d.mu.Unlock()
		return nil
	}
	d.watching = true
	d.mu.Unlock()

	if err := d.Seed(ctx); err != nil {
		return err
	}
	if err := d.addRecursive(d.root); err != nil {
		return fmt.Errorf("failed to watch vault: %w", err)
	}

	go d.processEvents(ctx)
	go d.debounceLoop(ctx)

	d.logger.Info("watching vault",
		slog.String("root", d.root),
		slog.Int("canvases", d.snapshotCount()),
	)
	return nil
}

// Stop stops watching
func (d *Detector) Stop() {
	d.stopOnce.Do(func() {
		close(d.done)
		d.fsw.Close()

		d.mu.Lock()
		d.watching = false
		d.mu.Unlock()
	})
}

// Seed records the current content of every canvas without emitting operations
func (d *Detector) Seed(ctx context.Context) error {
	paths, err := d.store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list canvases: %w", err)
	}

	for _, p := range paths {
		content, err := d.store.Read(ctx, p)
		if err != nil {
			d.logger.Warn("failed to read canvas", slog.String("path", p), slog.Any("error", err))
			continue
		}
		c, err := domain.ParseCanvas(content)
		if err != nil {
			d.logger.Warn("skipping malformed canvas", slog.String("path", p), slog.Any("error", err))
			continue
		}
		d.setSnapshot(p, c)
	}
	return nil
}

// Observe re-reads a canvas and submits one operation per structural
// difference from its last snapshot. It returns the operations submitted.
func (d *Detector) Observe(ctx context.Context, relPath string) []domain.Operation {
	content, err := d.store.Read(ctx, relPath)
	if err != nil {
		if errors.Is(err, application.ErrNotFound) {
			d.forget(relPath)
			return nil
		}
		d.logger.Warn("failed to read changed canvas", slog.String("path", relPath), slog.Any("error", err))
		return nil
	}

	if len(bytes.TrimSpace(content)) == 0 {
		// Truncated ahead of a rewrite
		return nil
	}
	current, err := domain.ParseCanvas(content)
	if err != nil {
		// Usually a partial write; the next event will carry the full file
		d.logger.Debug("ignoring unparseable canvas", slog.String("path", relPath), slog.Any("error", err))
		return nil
	}

	d.mu.Lock()
	previous, known := d.snapshots[relPath]
	d.snapshots[relPath] = current
	engine := d.engine
	d.mu.Unlock()

	if !known || engine == nil {
		return nil
	}

	ops := domain.Diff(relPath, previous, current)
	for _, op := range ops {
		if err := engine.Submit(op); err != nil {
			d.logger.Warn("failed to submit operation", slog.String("op", op.String()), slog.Any("error", err))
		}
	}
	if len(ops) > 0 {
		d.logger.Debug("edits detected", slog.String("path", relPath), slog.Int("operations", len(ops)))
	}
	return ops
}

// SetEngine changes the operation consumer
func (d *Detector) SetEngine(engine ports.SyncEngine) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.engine = engine
}

func (d *Detector) setSnapshot(relPath string, c *domain.Canvas) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.snapshots[relPath] = c
}

func (d *Detector) forget(relPath string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.snapshots, relPath)
}

func (d *Detector) snapshotCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.snapshots)
}

// addRecursive adds a directory and all non-hidden subdirectories
func (d *Detector) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !entry.IsDir() {
			return nil
		}
		if path != d.root && shouldIgnore(path) {
			return filepath.SkipDir
		}
		return d.fsw.Add(path)
	})
}

// watchNewDir adds a directory created after Start
func (d *Detector) watchNewDir(path string) {
	if err := d.addRecursive(path); err != nil {
		d.logger.Warn("failed to watch new directory", slog.String("path", path), slog.Any("error", err))
	}
}

// shouldIgnore skips dot directories such as .obsidian, .git and .trash
func shouldIgnore(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

// relCanvasPath converts an event path to a vault-relative canvas path
func (d *Detector) relCanvasPath(abs string) (string, bool) {
	if filepath.Ext(abs) != domain.CanvasExt {
		return "", false
	}
	rel, err := filepath.Rel(d.root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") {
			return "", false
		}
	}
	return rel, true
}

// processEvents forwards canvas events to the debouncer
func (d *Detector) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.done:
			return
		case event, ok := <-d.fsw.Events:
			if !ok {
				return
			}

			// Watch new directories
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !shouldIgnore(event.Name) {
					d.watchNewDir(event.Name)
					continue
				}
			}

			rel, ok := d.relCanvasPath(event.Name)
			if !ok {
				continue
			}
			select {
			case d.changes <- rel:
			default:
				d.logger.Warn("change buffer full, dropping event", slog.String("path", rel))
			}

		case err, ok := <-d.fsw.Errors:
			if !ok {
				return
			}
			d.logger.Warn("watcher error", slog.Any("error", err))
		}
	}
}

// debounceLoop batches changed paths and observes each once the window
// passes without new events
func (d *Detector) debounceLoop(ctx context.Context) {
	var batch []string
	seen := make(map[string]bool)
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		for _, p := range batch {
			d.Observe(ctx, p)
		}
		batch = batch[:0]
		clear(seen)
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.done:
			return
		case p := <-d.changes:
			if !seen[p] {
				seen[p] = true
				batch = append(batch, p)
			}
			if timer == nil {
				timer = time.NewTimer(d.debounce)
				timerC = timer.C
			} else {
				timer.Reset(d.debounce)
			}
		case <-timerC:
			flush()
		}
	}
}

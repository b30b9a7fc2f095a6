// Package bootstrap wires configuration, adapters and the sync engine
// into a Runtime shared by the binaries.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"canvaslink/internal/adapters/filesystem"
	"canvaslink/internal/adapters/metrics"
	"canvaslink/internal/adapters/obsidian"
	"canvaslink/internal/adapters/sqlite"
	"canvaslink/internal/adapters/watcher"
	"canvaslink/internal/application/engine"
	"canvaslink/internal/application/registry"
	"canvaslink/internal/config"
	"canvaslink/internal/ports"
)

// Options selects the optional parts of a Runtime
type Options struct {
	// LogOutput receives log lines. Default: os.Stderr
	LogOutput io.Writer

	// Notifier receives derivation notices. Default: none
	Notifier ports.Notifier

	// Watch attaches an edit detector; start it with Start
	Watch bool

	// Metrics records engine activity in Prometheus metrics
	Metrics bool
}

// Runtime is a loaded vault with its registry and engine
type Runtime struct {
	Config config.Config
	Logger *slog.Logger

	Repo     *filesystem.Repository
	Store    ports.DocumentStore // Repo, wrapped by the detector when watching
	Groups   *sqlite.Store
	Registry *registry.Registry
	Engine   *engine.Engine
	Opener   *obsidian.Opener

	Detector *watcher.Detector    // nil unless Options.Watch
	Metrics  *metrics.SyncMetrics // nil unless Options.Metrics
}

// New opens the vault described by cfg
func New(ctx context.Context, cfg config.Config, opts Options) (*Runtime, error) {
	out := opts.LogOutput
	if out == nil {
		out = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	repo := filesystem.NewRepository(cfg.Vault)
	info, err := os.Stat(repo.VaultPath())
	if err != nil {
		return nil, fmt.Errorf("vault %s: %w", repo.VaultPath(), err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault %s is not a directory", repo.VaultPath())
	}

	groups, err := sqlite.Open(ctx, repo.VaultPath(), cfg.Database)
	if err != nil {
		return nil, err
	}

	reg := registry.New(groups)
	if err := reg.Load(ctx); err != nil {
		groups.Close()
		return nil, err
	}
	rt := &Runtime{
		Config:   cfg,
		Logger:   logger,
		Repo:     repo,
		Store:    repo,
		Groups:   groups,
		Registry: reg,
		Opener:   obsidian.NewOpener(repo.VaultPath()),
	}

	if opts.Watch {
		rt.Detector, err = watcher.New(repo.VaultPath(), repo, nil, &watcher.Options{
			Debounce: cfg.Watch.Debounce,
			Logger:   logger.With(slog.String("component", "watcher")),
		})
		if err != nil {
			groups.Close()
			return nil, err
		}
		rt.Store = rt.Detector.Store(repo)
	}

	engineCfg := engine.Config{
		Store:    rt.Store,
		Registry: reg,
		Notifier: opts.Notifier,
		Logger:   logger.With(slog.String("component", "engine")),
	}
	if opts.Metrics {
		rt.Metrics = metrics.New()
		engineCfg.Metrics = rt.Metrics
	}
	rt.Engine, err = engine.New(engineCfg)
	if err != nil {
		rt.closeAdapters()
		return nil, err
	}
	if rt.Detector != nil {
		rt.Detector.SetEngine(rt.Engine)
	}

	logger.Debug("runtime ready",
		slog.String("vault", repo.VaultPath()),
		slog.String("database", groups.Path()),
		slog.Int("groups", len(reg.All())),
	)
	return rt, nil
}

// Start begins watching the vault when a detector is attached
func (r *Runtime) Start(ctx context.Context) error {
	if r.Detector == nil {
		return nil
	}
	return r.Detector.Start(ctx)
}

// PollRegistry reloads the groups whenever another process changes the
// database, until ctx is done. A non-positive interval disables polling.
func (r *Runtime) PollRegistry(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		reloaded, err := r.Registry.Refresh(ctx)
		if err != nil {
			r.Logger.Warn("failed to reload groups", slog.Any("error", err))
			continue
		}
		if reloaded {
			r.Logger.Info("reloaded groups changed elsewhere", slog.Int("groups", len(r.Registry.All())))
		}
	}
}

// Close stops the detector, lets queued work finish and releases the database
func (r *Runtime) Close(ctx context.Context) error {
	if r.Detector != nil {
		r.Detector.Stop()
	}

	var errs []error
	if err := r.Engine.Wait(ctx); err != nil {
		errs = append(errs, fmt.Errorf("engine did not drain: %w", err))
	}
	if err := r.Registry.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := r.Groups.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (r *Runtime) closeAdapters() {
	if r.Detector != nil {
		r.Detector.Stop()
	}
	r.Groups.Close()
}

package engine

import (
	"context"
	"fmt"
	"log/slog"

	"canvaslink/internal/application"
	"canvaslink/internal/domain"
	"canvaslink/internal/ports"
)

// runDerive copies source to its next version path and links the copy
// into the source's group, creating the group when there is none.
func (e *Engine) runDerive(ctx context.Context, source string) (string, error) {
	target, err := e.derive(ctx, source)
	e.metrics.DocumentDerived(err == nil)

	if err != nil {
		e.logger.Warn("derivation failed",
			slog.String("source", source),
			slog.Any("error", err),
		)
		e.notifier.Notify(ports.Notice{
			Level:   ports.NoticeError,
			Message: fmt.Sprintf("Failed to create linked version: %v", err),
		})
		return "", err
	}

	e.logger.Info("linked version created",
		slog.String("source", source),
		slog.String("path", target),
	)
	e.notifier.Notify(ports.Notice{
		Level:   ports.NoticeInfo,
		Message: fmt.Sprintf("Created linked version %s", target),
	})
	return target, nil
}

func (e *Engine) derive(ctx context.Context, source string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	e.syncRegistry(ctx)

	info, ok := e.store.Resolve(ctx, source)
	if !ok || !info.IsFile || !application.IsCanvasPath(source) {
		return "", &application.DocumentError{Op: "derive", Path: source, Kind: application.ErrNotFound}
	}

	group, grouped := e.registry.FindGroupContaining(source)
	var members []string
	if grouped {
		members = group.Members
	}
	target := domain.NextVersionPath(source, members)

	content, err := e.store.Read(ctx, source)
	if err != nil {
		return "", err
	}
	if err := e.store.Create(ctx, target, content); err != nil {
		return "", err
	}

	now := e.now()
	if grouped {
		err = e.registry.AddMember(ctx, group.ID, target, now)
	} else {
		_, err = e.registry.CreateGroup(ctx, []string{source, target}, now)
	}
	if err != nil {
		// an unlinked copy would take the next version name for good
		if derr := e.store.Delete(ctx, target); derr != nil {
			e.logger.Error("failed to remove unlinked copy",
				slog.String("path", target),
				slog.Any("error", derr),
			)
			return "", fmt.Errorf("could not link %s and it was left on disk: %w", target, err)
		}
		return "", fmt.Errorf("could not link %s: %w", target, err)
	}
	return target, nil
}

// syncRegistry picks up groups changed by another process before a job
// reads them
func (e *Engine) syncRegistry(ctx context.Context) {
	reloaded, err := e.registry.Refresh(ctx)
	if err != nil {
		e.logger.Warn("failed to refresh groups", slog.Any("error", err))
		return
	}
	if reloaded {
		e.logger.Debug("groups reloaded before job")
	}
}

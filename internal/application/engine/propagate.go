package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"canvaslink/internal/application"
	"canvaslink/internal/domain"
)

// propagate applies op to every other member of the source's group, in
// member order. A failing target is logged and skipped.
func (e *Engine) propagate(ctx context.Context, op domain.Operation) {
	kind := op.Kind.String()
	start := time.Now()

	e.syncRegistry(ctx)
	group, ok := e.registry.FindGroupContaining(op.Source)
	if !ok {
		e.metrics.OperationDiscarded(kind)
		e.logger.Debug("operation discarded, source is not linked",
			slog.String("op_id", op.ID),
			slog.String("source", op.Source),
		)
		return
	}

	if err := e.registry.Touch(ctx, group.ID, e.now()); err != nil {
		e.logger.Warn("failed to refresh group sync time",
			slog.String("group", group.ID),
			slog.Any("error", err),
		)
	}

	targets := group.Others(op.Source)
	for _, target := range targets {
		written, err := e.patch(ctx, target, op)
		if err != nil {
			e.metrics.TargetFailed(kind, failureReason(err))
			e.logger.Warn("failed to apply operation to target",
				slog.String("op_id", op.ID),
				slog.String("op", op.String()),
				slog.String("target", target),
				slog.Any("error", err),
			)
			continue
		}
		if written {
			e.metrics.TargetWritten(kind)
		}
	}

	elapsed := time.Since(start)
	e.metrics.OperationProcessed(kind, len(targets), elapsed)
	e.logger.Debug("operation propagated",
		slog.String("op_id", op.ID),
		slog.String("group", group.ID),
		slog.Int("targets", len(targets)),
		slog.Duration("elapsed", elapsed),
	)
}

// patch performs read, parse, apply and write on one target. Nothing is
// written when the operation leaves the target unchanged.
func (e *Engine) patch(ctx context.Context, target string, op domain.Operation) (bool, error) {
	content, err := e.store.Read(ctx, target)
	if err != nil {
		return false, err
	}

	canvas, err := domain.ParseCanvas(content)
	if err != nil {
		return false, &application.DocumentError{Op: "parse", Path: target, Kind: application.ErrParseFailure, Err: err}
	}

	if !op.Apply(canvas) {
		return false, nil
	}

	out, err := canvas.Marshal()
	if err != nil {
		return false, fmt.Errorf("encode %s: %w", target, err)
	}
	if err := e.store.Modify(ctx, target, out); err != nil {
		return false, err
	}
	return true, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, application.ErrNotFound):
		return "not_found"
	case errors.Is(err, application.ErrParseFailure):
		return "parse"
	case errors.Is(err, application.ErrIOFailure):
		return "io"
	default:
		return "other"
	}
}

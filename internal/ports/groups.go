package ports

import (
	"context"
	"time"

	"canvaslink/internal/domain"
)

// GroupStore persists the linkage group registry
type GroupStore interface {
	// LoadGroups returns the saved groups in registry order
	LoadGroups(ctx context.Context) ([]domain.LinkageGroup, error)

	// SaveGroups replaces the saved groups
	SaveGroups(ctx context.Context, groups []domain.LinkageGroup) error

	// TouchGroup sets one group's last sync time without rewriting
	// membership; ErrNotFound when the group is not stored
	TouchGroup(ctx context.Context, id string, at time.Time) error

	// DataVersion changes whenever another process commits group changes
	DataVersion(ctx context.Context) (int64, error)

	Close() error
}

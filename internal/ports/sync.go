package ports

import (
	"context"
	"time"

	"canvaslink/internal/domain"
)

// GroupRegistry defines the operations available on the linkage group set.
// Every method returns copies; mutations are atomic and persisted.
type GroupRegistry interface {
	All() []domain.LinkageGroup
	Get(id string) (domain.LinkageGroup, bool)
	FindGroupContaining(path string) (domain.LinkageGroup, bool)

	ReplaceAll(ctx context.Context, groups []domain.LinkageGroup) error
	CreateGroup(ctx context.Context, members []string, now time.Time) (domain.LinkageGroup, error)
	AddMember(ctx context.Context, groupID, path string, now time.Time) error
	RemoveMember(ctx context.Context, path string) error
	RemoveGroup(ctx context.Context, id string) error
}

// SyncEngine defines the entry points of the sync engine
type SyncEngine interface {
	// Derive creates the next linked version of source and returns its path
	Derive(ctx context.Context, source string) (string, error)

	// Submit queues an operation for propagation; it does not wait for it
	Submit(op domain.Operation) error
}

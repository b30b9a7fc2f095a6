// Package registry owns the set of linkage groups. Callers only ever see
// copies; every mutation is validated against the membership invariants
// and flushed to the GroupStore before it returns. Mutations first reload
// the groups when another process has changed the store.
package registry

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"canvaslink/internal/application"
	"canvaslink/internal/domain"
	"canvaslink/internal/ports"
)

var _ ports.GroupRegistry = (*Registry)(nil)

// Registry implements the group registry
type Registry struct {
	mu      sync.RWMutex
	groups  []domain.LinkageGroup
	store   ports.GroupStore
	version int64                // store version the groups were read at
	pending map[string]time.Time // sync times the store has not taken yet
}

// New creates an empty registry backed by store. A nil store keeps the
// registry in memory only.
func New(store ports.GroupStore) *Registry {
	return &Registry{store: store}
}

// Load replaces the in-memory groups with the persisted ones
func (r *Registry) Load(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadLocked(ctx)
}

// Refresh reloads the groups if another process changed the store since
// they were read. It reports whether it reloaded.
func (r *Registry) Refresh(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refreshLocked(ctx)
}

// Close retries sync times that failed to save. Membership is never
// written here, so groups changed by another process are not clobbered.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.store == nil {
		return nil
	}

	var errs []error
	for id, at := range r.pending {
		err := r.store.TouchGroup(ctx, id, at)
		if err != nil && !errors.Is(err, application.ErrNotFound) {
			errs = append(errs, err)
			continue
		}
		delete(r.pending, id)
	}
	return errors.Join(errs...)
}

// All returns a copy of every group in registry order
func (r *Registry) All() []domain.LinkageGroup {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneGroups(r.groups)
}

// Get returns the group with the given id
func (r *Registry) Get(id string) (domain.LinkageGroup, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.indexByID(id); i >= 0 {
		return r.groups[i].Clone(), true
	}
	return domain.LinkageGroup{}, false
}

// FindGroupContaining returns the group that has docID as a member
func (r *Registry) FindGroupContaining(docID string) (domain.LinkageGroup, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.indexByMember(docID); i >= 0 {
		return r.groups[i].Clone(), true
	}
	return domain.LinkageGroup{}, false
}

// ReplaceAll atomically swaps the whole group set
func (r *Registry) ReplaceAll(ctx context.Context, groups []domain.LinkageGroup) error {
	if err := validateGroups(groups); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.groups
	r.groups = cloneGroups(groups)
	if err := r.flushLocked(ctx); err != nil {
		r.groups = prev
		return err
	}
	return nil
}

// CreateGroup registers a new group. None of the members may already
// belong to a group.
func (r *Registry) CreateGroup(ctx context.Context, members []string, now time.Time) (domain.LinkageGroup, error) {
	g := domain.NewLinkageGroup(members, now)
	if len(g.Members) == 0 {
		return domain.LinkageGroup{}, &application.ValidationError{Field: "members", Message: "a group needs at least one member"}
	}
	if dup, ok := g.DuplicateMember(); ok {
		return domain.LinkageGroup{}, &application.GroupConflictError{Path: dup, Reason: "listed twice"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.refreshLocked(ctx); err != nil {
		return domain.LinkageGroup{}, err
	}
	for _, m := range g.Members {
		if i := r.indexByMember(m); i >= 0 {
			return domain.LinkageGroup{}, &application.GroupConflictError{Path: m, GroupID: r.groups[i].ID, Reason: "already linked"}
		}
	}

	r.groups = append(r.groups, g)
	if err := r.flushLocked(ctx); err != nil {
		r.groups = r.groups[:len(r.groups)-1]
		return domain.LinkageGroup{}, err
	}
	return g.Clone(), nil
}

// AddMember appends path to a group and refreshes its sync time
func (r *Registry) AddMember(ctx context.Context, groupID, path string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.refreshLocked(ctx); err != nil {
		return err
	}

	gi := r.indexByID(groupID)
	if gi < 0 {
		return fmt.Errorf("group %s: %w", groupID, application.ErrNotFound)
	}
	if i := r.indexByMember(path); i >= 0 {
		return &application.GroupConflictError{Path: path, GroupID: r.groups[i].ID, Reason: "already linked"}
	}

	prev := r.groups[gi].Clone()
	r.groups[gi].Members = append(r.groups[gi].Members, path)
	r.groups[gi].LastSyncedAt = now
	if err := r.flushLocked(ctx); err != nil {
		r.groups[gi] = prev
		return err
	}
	return nil
}

// RemoveMember unlinks a single document. A group left empty is destroyed.
func (r *Registry) RemoveMember(ctx context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.refreshLocked(ctx); err != nil {
		return err
	}

	gi := r.indexByMember(path)
	if gi < 0 {
		return fmt.Errorf("%s is not linked: %w", path, application.ErrNotFound)
	}

	prev := cloneGroups(r.groups)
	g := &r.groups[gi]
	g.Members = slices.DeleteFunc(g.Members, func(m string) bool { return m == path })
	if len(g.Members) == 0 {
		r.groups = slices.Delete(r.groups, gi, gi+1)
	}
	if err := r.flushLocked(ctx); err != nil {
		r.groups = prev
		return err
	}
	return nil
}

// RemoveGroup deletes a group by id
func (r *Registry) RemoveGroup(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.refreshLocked(ctx); err != nil {
		return err
	}

	gi := r.indexByID(id)
	if gi < 0 {
		return fmt.Errorf("group %s: %w", id, application.ErrNotFound)
	}

	prev := cloneGroups(r.groups)
	r.groups = slices.Delete(r.groups, gi, gi+1)
	if err := r.flushLocked(ctx); err != nil {
		r.groups = prev
		return err
	}
	return nil
}

// Touch refreshes a group's last sync time. Only the time is written.
func (r *Registry) Touch(ctx context.Context, id string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.refreshLocked(ctx); err != nil {
		return err
	}

	gi := r.indexByID(id)
	if gi < 0 {
		return fmt.Errorf("group %s: %w", id, application.ErrNotFound)
	}
	r.groups[gi].LastSyncedAt = now
	if r.store == nil {
		return nil
	}

	if err := r.store.TouchGroup(ctx, id, now); err != nil {
		// a stale sync time is harmless; keep it and retry on Close
		if r.pending == nil {
			r.pending = make(map[string]time.Time)
		}
		r.pending[id] = now
		return fmt.Errorf("failed to save sync time: %w", err)
	}
	delete(r.pending, id)
	return nil
}

func (r *Registry) indexByID(id string) int {
	return slices.IndexFunc(r.groups, func(g domain.LinkageGroup) bool { return g.ID == id })
}

func (r *Registry) indexByMember(path string) int {
	return slices.IndexFunc(r.groups, func(g domain.LinkageGroup) bool { return g.Contains(path) })
}

func (r *Registry) loadLocked(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	// read the version first so a commit racing the load is seen next time
	version, err := r.store.DataVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to read group store version: %w", err)
	}
	groups, err := r.store.LoadGroups(ctx)
	if err != nil {
		return fmt.Errorf("failed to load groups: %w", err)
	}
	if err := validateGroups(groups); err != nil {
		return fmt.Errorf("persisted groups are inconsistent: %w", err)
	}

	r.groups = cloneGroups(groups)
	r.version = version
	return nil
}

func (r *Registry) refreshLocked(ctx context.Context) (bool, error) {
	if r.store == nil {
		return false, nil
	}
	version, err := r.store.DataVersion(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to read group store version: %w", err)
	}
	if version == r.version {
		return false, nil
	}
	if err := r.loadLocked(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Registry) flushLocked(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	if err := r.store.SaveGroups(ctx, cloneGroups(r.groups)); err != nil {
		return fmt.Errorf("failed to save groups: %w", err)
	}
	return nil
}

// validateGroups enforces unique ids, no empty groups, no duplicate members
// and no document in two groups
func validateGroups(groups []domain.LinkageGroup) error {
	ids := make(map[string]bool, len(groups))
	owner := make(map[string]string)
	for _, g := range groups {
		if g.ID == "" {
			return &application.ValidationError{Field: "groupID", Message: "group ID is required"}
		}
		if ids[g.ID] {
			return &application.ValidationError{Field: "groupID", Message: fmt.Sprintf("duplicate group ID: %s", g.ID)}
		}
		ids[g.ID] = true
		if len(g.Members) == 0 {
			return &application.ValidationError{Field: "members", Message: fmt.Sprintf("group %s has no members", g.ID)}
		}
		if dup, ok := g.DuplicateMember(); ok {
			return &application.GroupConflictError{Path: dup, GroupID: g.ID, Reason: "listed twice"}
		}
		for _, m := range g.Members {
			if other, ok := owner[m]; ok {
				return &application.GroupConflictError{Path: m, GroupID: other, Reason: "already linked"}
			}
			owner[m] = g.ID
		}
	}
	return nil
}

func cloneGroups(groups []domain.LinkageGroup) []domain.LinkageGroup {
	if groups == nil {
		return nil
	}
	out := make([]domain.LinkageGroup, len(groups))
	for i, g := range groups {
		out[i] = g.Clone()
	}
	return out
}

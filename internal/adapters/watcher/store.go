package watcher

import (
	"context"

	"canvaslink/internal/domain"
	"canvaslink/internal/ports"
)

// primingStore updates the detector's snapshots with everything written
// through it, so the detector never mistakes those writes for user edits
type primingStore struct {
	ports.DocumentStore
	d *Detector
}

// Store wraps inner so that writes made by the sync engine are not
// detected again as edits
func (d *Detector) Store(inner ports.DocumentStore) ports.DocumentStore {
	return &primingStore{DocumentStore: inner, d: d}
}

func (s *primingStore) Create(ctx context.Context, path string, content []byte) error {
	restore := s.prime(path, content)
	if err := s.DocumentStore.Create(ctx, path, content); err != nil {
		restore()
		return err
	}
	return nil
}

func (s *primingStore) Modify(ctx context.Context, path string, content []byte) error {
	restore := s.prime(path, content)
	if err := s.DocumentStore.Modify(ctx, path, content); err != nil {
		restore()
		return err
	}
	return nil
}

// Delete forgets the snapshot so the removal is not diffed
func (s *primingStore) Delete(ctx context.Context, path string) error {
	if err := s.DocumentStore.Delete(ctx, path); err != nil {
		return err
	}
	s.d.forget(path)
	return nil
}

// prime records content as the snapshot before it hits the disk, so the
// resulting file event diffs to nothing. The returned func undoes it.
func (s *primingStore) prime(path string, content []byte) func() {
	c, err := domain.ParseCanvas(content)

	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	prev, had := s.d.snapshots[path]
	if err == nil {
		s.d.snapshots[path] = c
	}

	return func() {
		s.d.mu.Lock()
		defer s.d.mu.Unlock()
		if had {
			s.d.snapshots[path] = prev
		} else {
			delete(s.d.snapshots, path)
		}
	}
}

package commands

import (
	"context"
	"errors"

	"canvaslink/internal/application"
	"canvaslink/internal/domain"
	"canvaslink/internal/ports"
)

type fakeStore struct {
	files map[string]string
}

func (s *fakeStore) Read(ctx context.Context, path string) ([]byte, error) {
	c, ok := s.files[path]
	if !ok {
		return nil, &application.DocumentError{Op: "read", Path: path, Kind: application.ErrNotFound}
	}
	return []byte(c), nil
}

func (s *fakeStore) Create(ctx context.Context, path string, content []byte) error {
	if _, ok := s.files[path]; ok {
		return &application.DocumentError{Op: "create", Path: path, Kind: application.ErrAlreadyExists}
	}
	s.files[path] = string(content)
	return nil
}

func (s *fakeStore) Modify(ctx context.Context, path string, content []byte) error {
	if _, ok := s.files[path]; !ok {
		return &application.DocumentError{Op: "modify", Path: path, Kind: application.ErrNotFound}
	}
	s.files[path] = string(content)
	return nil
}

func (s *fakeStore) Delete(ctx context.Context, path string) error {
	if _, ok := s.files[path]; !ok {
		return &application.DocumentError{Op: "delete", Path: path, Kind: application.ErrNotFound}
	}
	delete(s.files, path)
	return nil
}

func (s *fakeStore) Exists(ctx context.Context, path string) bool {
	_, ok := s.files[path]
	return ok
}

func (s *fakeStore) Resolve(ctx context.Context, path string) (ports.DocumentInfo, bool) {
	c, ok := s.files[path]
	if !ok {
		return ports.DocumentInfo{}, false
	}
	return ports.DocumentInfo{Path: path, IsFile: true, Size: int64(len(c))}, true
}

func (s *fakeStore) List(ctx context.Context) ([]string, error) {
	var out []string
	for p := range s.files {
		out = append(out, p)
	}
	return out, nil
}

type fakeEngine struct {
	submitted []domain.Operation
	derived   []string
	deriveTo  string
	deriveErr error
}

func (e *fakeEngine) Derive(ctx context.Context, source string) (string, error) {
	e.derived = append(e.derived, source)
	return e.deriveTo, e.deriveErr
}

func (e *fakeEngine) Submit(op domain.Operation) error {
	e.submitted = append(e.submitted, op)
	return nil
}

type fakeOpener struct {
	opened []string
	err    error
}

func (o *fakeOpener) OpenFile(relPath string) error {
	if o.err != nil {
		return o.err
	}
	o.opened = append(o.opened, relPath)
	return nil
}

var errBoom = errors.New("boom")

func contains(s, substr string) bool {
	return len(s) >= len(substr) && (s == substr || len(substr) == 0 ||
		(len(s) > 0 && len(substr) > 0 && findSubstring(s, substr)))
}

func findSubstring(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"canvaslink/internal/application"
	"canvaslink/internal/domain"
	"canvaslink/internal/ports"
)

var _ ports.DocumentStore = (*Repository)(nil)

// Repository implements ports.DocumentStore on a vault directory
type Repository struct {
	vaultPath string
}

// NewRepository creates a new filesystem repository
func NewRepository(vaultPath string) *Repository {
	// Expand ~ to home directory
	if strings.HasPrefix(vaultPath, "~") {
		home, _ := os.UserHomeDir()
		vaultPath = filepath.Join(home, vaultPath[1:])
	}
	return &Repository{vaultPath: vaultPath}
}

// VaultPath returns the absolute vault root
func (r *Repository) VaultPath() string {
	return r.vaultPath
}

// GetPath returns the absolute path of a vault-relative document path
func (r *Repository) GetPath(relPath string) (string, error) {
	clean := path.Clean(filepath.ToSlash(relPath))
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", &application.DocumentError{Op: "resolve", Path: relPath, Kind: application.ErrNotFound, Err: errors.New("path escapes the vault")}
	}
	return filepath.Join(r.vaultPath, filepath.FromSlash(clean)), nil
}

// RelPath converts an absolute path under the vault to a vault-relative slash path
func (r *Repository) RelPath(absPath string) (string, bool) {
	rel, err := filepath.Rel(r.vaultPath, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// Read returns the content of a document
func (r *Repository) Read(ctx context.Context, relPath string) ([]byte, error) {
	abs, err := r.GetPath(relPath)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, docError("read", relPath, err)
	}
	return data, nil
}

// Create writes a new document, failing if anything already exists at the path
func (r *Repository) Create(ctx context.Context, relPath string, content []byte) error {
	abs, err := r.GetPath(relPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return docError("create", relPath, err)
	}

	f, err := os.OpenFile(abs, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return docError("create", relPath, err)
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		os.Remove(abs)
		return docError("create", relPath, err)
	}
	if err := f.Close(); err != nil {
		return docError("create", relPath, err)
	}
	return nil
}

// Modify overwrites an existing document
func (r *Repository) Modify(ctx context.Context, relPath string, content []byte) error {
	abs, err := r.GetPath(relPath)
	if err != nil {
		return err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return docError("modify", relPath, err)
	}
	if info.IsDir() {
		return &application.DocumentError{Op: "modify", Path: relPath, Kind: application.ErrNotFound, Err: errors.New("is a directory")}
	}

	if err := os.WriteFile(abs, content, info.Mode().Perm()); err != nil {
		return docError("modify", relPath, err)
	}
	return nil
}

// Delete removes a document. Directories are never removed.
func (r *Repository) Delete(ctx context.Context, relPath string) error {
	abs, err := r.GetPath(relPath)
	if err != nil {
		return err
	}

	info, err := os.Lstat(abs)
	if err != nil {
		return docError("delete", relPath, err)
	}
	if info.IsDir() {
		return &application.DocumentError{Op: "delete", Path: relPath, Kind: application.ErrNotFound, Err: errors.New("is a directory")}
	}

	if err := os.Remove(abs); err != nil {
		return docError("delete", relPath, err)
	}
	return nil
}

// Exists reports whether anything exists at the path
func (r *Repository) Exists(ctx context.Context, relPath string) bool {
	_, ok := r.Resolve(ctx, relPath)
	return ok
}

// Resolve returns information about the document at the path
func (r *Repository) Resolve(ctx context.Context, relPath string) (ports.DocumentInfo, bool) {
	abs, err := r.GetPath(relPath)
	if err != nil {
		return ports.DocumentInfo{}, false
	}
	info, err := os.Stat(abs)
	if err != nil {
		return ports.DocumentInfo{}, false
	}
	return ports.DocumentInfo{
		Path:    path.Clean(filepath.ToSlash(relPath)),
		IsFile:  info.Mode().IsRegular(),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, true
}

// List returns every canvas in the vault, skipping hidden directories
// such as .obsidian and .trash
func (r *Repository) List(ctx context.Context) ([]string, error) {
	var canvases []string

	err := filepath.WalkDir(r.vaultPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if p != r.vaultPath && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(d.Name()) != domain.CanvasExt || !d.Type().IsRegular() {
			return nil
		}
		if rel, ok := r.RelPath(p); ok {
			canvases = append(canvases, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk vault: %w", err)
	}

	sort.Strings(canvases)
	return canvases, nil
}

// docError maps os errors to document error kinds
func docError(op, relPath string, err error) error {
	kind := application.ErrIOFailure
	switch {
	case errors.Is(err, fs.ErrNotExist):
		kind = application.ErrNotFound
	case errors.Is(err, fs.ErrExist):
		kind = application.ErrAlreadyExists
	}
	return &application.DocumentError{Op: op, Path: relPath, Kind: kind, Err: err}
}

package ports

import (
	"context"
	"time"
)

// DocumentInfo describes a resolved document
type DocumentInfo struct {
	Path    string // vault-relative slash path
	IsFile  bool
	Size    int64
	ModTime time.Time
}

// DocumentStore defines the interface for reading and writing canvas
// documents by vault-relative path
type DocumentStore interface {
	// Read returns the document content; ErrNotFound when it does not exist
	Read(ctx context.Context, path string) ([]byte, error)

	// Create writes a new document; ErrAlreadyExists when the path is taken
	Create(ctx context.Context, path string, content []byte) error

	// Modify overwrites an existing document; ErrNotFound when it is missing
	Modify(ctx context.Context, path string, content []byte) error

	// Delete removes a document; ErrNotFound when it does not exist
	Delete(ctx context.Context, path string) error

	// Exists reports whether anything exists at path
	Exists(ctx context.Context, path string) bool

	// Resolve returns information about path, or false if nothing is there
	Resolve(ctx context.Context, path string) (DocumentInfo, bool)

	// List returns every canvas document in the vault
	List(ctx context.Context) ([]string, error)
}

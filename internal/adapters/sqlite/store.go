package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"canvaslink/internal/ports"

	_ "github.com/mattn/go-sqlite3"
)

const schemaVersion = "1"

// Store implements ports.GroupStore using SQLite
type Store struct {
	db        *sql.DB
	vaultPath string
	dbPath    string
}

// Ensure Store implements GroupStore
var _ ports.GroupStore = (*Store)(nil)

// Open opens (or creates) the group database for vaultPath. An empty
// dbPath selects the per-vault default under the XDG data directory.
func Open(ctx context.Context, vaultPath, dbPath string) (*Store, error) {
	// Expand ~ in path
	if len(vaultPath) > 0 && vaultPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		vaultPath = filepath.Join(home, vaultPath[1:])
	}
	if dbPath == "" {
		dbPath = DatabasePath(vaultPath)
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps the foreign key pragma and serialises writers
	db.SetMaxOpenConns(1)

	s := &Store{db: db, vaultPath: vaultPath, dbPath: dbPath}

	_, err = db.ExecContext(ctx, `
		PRAGMA synchronous = NORMAL;
		PRAGMA temp_store = MEMORY;

		CREATE TABLE IF NOT EXISTS linkage_groups (
			id TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			last_synced_at INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS members (
			group_id TEXT NOT NULL REFERENCES linkage_groups(id) ON DELETE CASCADE,
			path TEXT NOT NULL UNIQUE,
			position INTEGER NOT NULL,
			PRIMARY KEY (group_id, position)
		);
		CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to setup database: %w", err)
	}

	if err := s.checkMeta(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DataVersion returns a counter that changes whenever another connection,
// usually another process, commits to the database. Commits made through
// this Store leave it unchanged.
func (s *Store) DataVersion(ctx context.Context) (int64, error) {
	var v int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA data_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read data version: %w", err)
	}
	return v, nil
}

// Path returns the database file location
func (s *Store) Path() string {
	return s.dbPath
}

// DatabasePath returns the default database location for a vault
func DatabasePath(vaultPath string) string {
	// XDG data directory
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}

	// Hash vault path for unique DB name
	hash := hashVaultPath(vaultPath)

	return filepath.Join(dataHome, "canvaslink", hash+".db")
}

// hashVaultPath returns a short hash of the vault path
func hashVaultPath(vaultPath string) string {
	h := sha256.Sum256([]byte(vaultPath))
	return hex.EncodeToString(h[:8]) // First 8 bytes = 16 hex chars
}

// checkMeta records the schema version and vault on first use and refuses
// a database that was created for a different vault. Member paths are
// vault-relative so they mean nothing elsewhere.
func (s *Store) checkMeta(ctx context.Context) error {
	var storedHash string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = 'vault_path_hash'").Scan(&storedHash)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("failed to read metadata: %w", err)
	case storedHash != hashVaultPath(s.vaultPath):
		return fmt.Errorf("database %s belongs to another vault", s.dbPath)
	}

	if _, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO meta (key, value) VALUES ('schema_version', ?)`, schemaVersion); err != nil {
		return fmt.Errorf("failed to update metadata: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO meta (key, value) VALUES ('vault_path_hash', ?)`, hashVaultPath(s.vaultPath)); err != nil {
		return fmt.Errorf("failed to update metadata: %w", err)
	}
	return nil
}

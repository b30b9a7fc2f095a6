package sqlite

import (
	"context"
	"database/sql"

	"canvaslink/internal/domain"
)

// groupTx wraps the statements used to rewrite the group set
type groupTx struct {
	ctx context.Context
	tx  *sql.Tx
}

// Clear removes every group; members go with them
func (t *groupTx) Clear() error {
	_, err := t.tx.ExecContext(t.ctx, `DELETE FROM linkage_groups`)
	return err
}

// InsertGroup stores a group and its members in order
func (t *groupTx) InsertGroup(position int, g domain.LinkageGroup) error {
	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO linkage_groups (id, position, last_synced_at)
		VALUES (?, ?, ?)
	`, g.ID, position, g.LastSyncedAt.UnixMilli())
	if err != nil {
		return err
	}

	for i, path := range g.Members {
		if _, err := t.tx.ExecContext(t.ctx, `
			INSERT INTO members (group_id, path, position)
			VALUES (?, ?, ?)
		`, g.ID, path, i); err != nil {
			return err
		}
	}
	return nil
}

// Commit commits the transaction
func (t *groupTx) Commit() error {
	return t.tx.Commit()
}

// Rollback aborts the transaction
func (t *groupTx) Rollback() error {
	return t.tx.Rollback()
}

package sqlite

import (
	"context"
	"fmt"
	"time"

	"canvaslink/internal/application"
	"canvaslink/internal/domain"
)

// LoadGroups returns every stored group in registry order
func (s *Store) LoadGroups(ctx context.Context) ([]domain.LinkageGroup, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT g.id, g.last_synced_at, m.path
		FROM linkage_groups g
		JOIN members m ON m.group_id = g.id
		ORDER BY g.position, m.position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	defer rows.Close()

	var groups []domain.LinkageGroup
	for rows.Next() {
		var id, path string
		var syncedMillis int64
		if err := rows.Scan(&id, &syncedMillis, &path); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}

		if n := len(groups); n == 0 || groups[n-1].ID != id {
			groups = append(groups, domain.LinkageGroup{
				ID:           id,
				LastSyncedAt: time.UnixMilli(syncedMillis).UTC(),
			})
		}
		last := &groups[len(groups)-1]
		last.Members = append(last.Members, path)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read groups: %w", err)
	}

	return groups, nil
}

// SaveGroups replaces the stored groups in a single transaction
func (s *Store) SaveGroups(ctx context.Context, groups []domain.LinkageGroup) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	tx := &groupTx{ctx: ctx, tx: sqlTx}

	if err := tx.Clear(); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to clear groups: %w", err)
	}
	for i, g := range groups {
		if err := tx.InsertGroup(i, g); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to save group %s: %w", g.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit groups: %w", err)
	}
	return nil
}

// TouchGroup updates one group's last sync time. Membership rows are not
// touched, so members added by another process survive.
func (s *Store) TouchGroup(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE linkage_groups SET last_synced_at = ? WHERE id = ?
	`, at.UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("failed to touch group %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to touch group %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("group %s: %w", id, application.ErrNotFound)
	}
	return nil
}

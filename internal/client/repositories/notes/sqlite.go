package notes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/dbx"
)

const noteColumns = `local_id, server_id, title, description, created_at, updated_at,
	creator_name, creator_username, is_synced, is_deleted`

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Insert(ctx context.Context, rec *models.LocalNote) (int64, error) {
	query := `
		INSERT OR REPLACE INTO notes (` + noteColumns + `)
		VALUES (NULLIF(?, 0), ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING local_id
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query,
		rec.LocalID, rec.ServerID, rec.Title, rec.Description, rec.CreatedAt, rec.UpdatedAt,
		rec.CreatorName, rec.CreatorUsername, rec.IsSynced, rec.IsDeleted,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert note: %w", err)
	}
	rec.LocalID = id
	return id, nil
}

func (r *SQLiteRepository) Update(ctx context.Context, rec *models.LocalNote) error {
	query := `
		UPDATE notes SET
			server_id = ?, title = ?, description = ?, created_at = ?, updated_at = ?,
			creator_name = ?, creator_username = ?, is_synced = ?, is_deleted = ?
		WHERE local_id = ?
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.ServerID, rec.Title, rec.Description, rec.CreatedAt, rec.UpdatedAt,
		rec.CreatorName, rec.CreatorUsername, rec.IsSynced, rec.IsDeleted,
		rec.LocalID,
	)
	if err != nil {
		return fmt.Errorf("failed to update note[%d]: %w", rec.LocalID, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, localID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM notes WHERE local_id = ?`, localID); err != nil {
		return fmt.Errorf("failed to delete note[%d]: %w", localID, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteByServerID(ctx context.Context, serverID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM notes WHERE server_id = ?`, serverID); err != nil {
		return fmt.Errorf("failed to delete note by server id %d: %w", serverID, err)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM notes`); err != nil {
		return fmt.Errorf("failed to clear notes: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByServerID(ctx context.Context, serverID int64) (*models.LocalNote, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE server_id = ? ORDER BY local_id LIMIT 1`, serverID)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note by server id %d: %w", serverID, err)
	}
	return n, nil
}

func (r *SQLiteRepository) GetByLocalID(ctx context.Context, localID int64) (*models.LocalNote, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+noteColumns+` FROM notes WHERE local_id = ?`, localID)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note[%d]: %w", localID, err)
	}
	return n, nil
}

func (r *SQLiteRepository) GetUnsyncedCreations(ctx context.Context) ([]*models.LocalNote, error) {
	return r.list(ctx, "unsynced creations", `
		SELECT `+noteColumns+` FROM notes
		WHERE is_synced = 0 AND is_deleted = 0 AND server_id IS NULL
		ORDER BY local_id
	`)
}

func (r *SQLiteRepository) GetUnsyncedUpdates(ctx context.Context) ([]*models.LocalNote, error) {
	return r.list(ctx, "unsynced updates", `
		SELECT `+noteColumns+` FROM notes
		WHERE is_synced = 0 AND is_deleted = 0 AND server_id IS NOT NULL
		ORDER BY local_id
	`)
}

func (r *SQLiteRepository) GetPendingDeletes(ctx context.Context) ([]*models.LocalNote, error) {
	return r.list(ctx, "pending deletes", `
		SELECT `+noteColumns+` FROM notes
		WHERE is_deleted = 1 AND is_synced = 0
		ORDER BY local_id
	`)
}

func (r *SQLiteRepository) GetActivePage(ctx context.Context, owner string, limit, offset int) ([]*models.LocalNote, error) {
	return r.list(ctx, "active page", `
		SELECT `+noteColumns+` FROM notes
		WHERE creator_username = ? AND is_deleted = 0
		ORDER BY local_id
		LIMIT ? OFFSET ?
	`, owner, limit, offset)
}

// GetFilteredPage matches title case-sensitively; instr is used instead of
// LIKE because SQLite's LIKE folds ASCII case.
func (r *SQLiteRepository) GetFilteredPage(ctx context.Context, owner, title string, limit, offset int) ([]*models.LocalNote, error) {
	return r.list(ctx, "filtered page", `
		SELECT `+noteColumns+` FROM notes
		WHERE creator_username = ? AND is_deleted = 0 AND instr(title, ?) > 0
		ORDER BY created_at DESC, local_id DESC
		LIMIT ? OFFSET ?
	`, owner, title, limit, offset)
}

func (r *SQLiteRepository) GetAllByOwner(ctx context.Context, owner string) ([]*models.LocalNote, error) {
	return r.list(ctx, "owner notes", `
		SELECT `+noteColumns+` FROM notes
		WHERE creator_username = ?
		ORDER BY local_id
	`, owner)
}

// CountByOwner counts every record of owner, tombstones included.
func (r *SQLiteRepository) CountByOwner(ctx context.Context, owner string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notes WHERE creator_username = ?`, owner).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count notes: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) list(ctx context.Context, what string, query string, args ...any) ([]*models.LocalNote, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", what, err)
	}
	defer rows.Close()

	result := make([]*models.LocalNote, 0)
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", what, err)
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s rows: %w", what, err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNote(s scanner) (*models.LocalNote, error) {
	var (
		n         models.LocalNote
		serverID  sql.NullInt64
		createdAt sql.NullString
		updatedAt sql.NullString
	)
	err := s.Scan(&n.LocalID, &serverID, &n.Title, &n.Description, &createdAt, &updatedAt,
		&n.CreatorName, &n.CreatorUsername, &n.IsSynced, &n.IsDeleted)
	if err != nil {
		return nil, err
	}
	if serverID.Valid {
		id := serverID.Int64
		n.ServerID = &id
	}
	if createdAt.Valid {
		s := createdAt.String
		n.CreatedAt = &s
	}
	if updatedAt.Valid {
		s := updatedAt.String
		n.UpdatedAt = &s
	}
	return &n, nil
}

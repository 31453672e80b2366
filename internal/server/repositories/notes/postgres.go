package notes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/dbx"
	"github.com/dmitrijs2005/notekeeper/internal/server/models"
)

const noteColumns = `n.id, n.user_id, n.title, n.description, n.created_at, n.updated_at,
		u.first_name, u.last_name, u.username`

// titleMatch is true for every row when $2 is empty.
const titleMatch = `($2::text = '' OR n.title ILIKE '%' || $2::text || '%' ESCAPE '\')`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, userID int64, title, description string) (*models.Note, error) {
	query := `
		WITH n AS (
			INSERT INTO notes (user_id, title, description)
			VALUES ($1, $2, $3)
			RETURNING id, user_id, title, description, created_at, updated_at
		)
		SELECT ` + noteColumns + `
		FROM n JOIN users u ON u.id = n.user_id`

	note, err := scanNote(r.db.QueryRowContext(ctx, query, userID, title, description))
	if err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}
	return note, nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID, id int64) (*models.Note, error) {
	query := `
		SELECT ` + noteColumns + `
		FROM notes n JOIN users u ON u.id = n.user_id
		WHERE n.user_id = $1 AND n.id = $2`

	note, err := scanNote(r.db.QueryRowContext(ctx, query, userID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to get note %d: %w", id, err)
	}
	return note, nil
}

func (r *PostgresRepository) Update(ctx context.Context, userID, id int64, fields models.NoteFields) (*models.Note, error) {
	query := `
		WITH n AS (
			UPDATE notes
			SET title = COALESCE($3, title),
			    description = COALESCE($4, description),
			    updated_at = now()
			WHERE user_id = $1 AND id = $2
			RETURNING id, user_id, title, description, created_at, updated_at
		)
		SELECT ` + noteColumns + `
		FROM n JOIN users u ON u.id = n.user_id`

	note, err := scanNote(r.db.QueryRowContext(ctx, query, userID, id, nullable(fields.Title), nullable(fields.Description)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to update note %d: %w", id, err)
	}
	return note, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, id int64) error {
	query := `DELETE FROM notes WHERE user_id = $1 AND id = $2`

	res, err := r.db.ExecContext(ctx, query, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete note %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete note %d: %w", id, err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, userID int64, titleFilter string, limit, offset int) ([]models.Note, error) {
	query := `
		SELECT ` + noteColumns + `
		FROM notes n JOIN users u ON u.id = n.user_id
		WHERE n.user_id = $1 AND ` + titleMatch + `
		ORDER BY n.created_at DESC, n.id DESC
		LIMIT $3 OFFSET $4`

	rows, err := r.db.QueryContext(ctx, query, userID, likeEscaper.Replace(titleFilter), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	result := make([]models.Note, 0, limit)
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		result = append(result, *note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Count(ctx context.Context, userID int64, titleFilter string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM notes n
		WHERE n.user_id = $1 AND ` + titleMatch

	var count int
	if err := r.db.QueryRowContext(ctx, query, userID, likeEscaper.Replace(titleFilter)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count notes: %w", err)
	}
	return count, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNote(row scanner) (*models.Note, error) {
	var (
		note  models.Note
		owner models.User
	)
	err := row.Scan(&note.ID, &note.UserID, &note.Title, &note.Description, &note.CreatedAt, &note.UpdatedAt,
		&owner.FirstName, &owner.LastName, &owner.UserName)
	if err != nil {
		return nil, err
	}
	note.CreatorName = owner.DisplayName()
	note.CreatorUsername = owner.UserName
	return &note, nil
}

func nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

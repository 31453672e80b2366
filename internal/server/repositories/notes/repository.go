// Package notes stores notes on the server. Every operation is scoped to
// the owning user: a note that exists but belongs to someone else is
// reported as common.ErrorNotFound.
package notes

import (
	"context"

	"github.com/dmitrijs2005/notekeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, userID int64, title, description string) (*models.Note, error)
	Get(ctx context.Context, userID, id int64) (*models.Note, error)
	// Update applies the non-nil fields and bumps updated_at.
	Update(ctx context.Context, userID, id int64, fields models.NoteFields) (*models.Note, error)
	Delete(ctx context.Context, userID, id int64) error
	// List returns notes newest first. A non-empty titleFilter keeps notes
	// whose title contains it, ignoring case.
	List(ctx context.Context, userID int64, titleFilter string, limit, offset int) ([]models.Note, error)
	Count(ctx context.Context, userID int64, titleFilter string) (int, error)
}

// Package notes is the client's durable note store. It is the source of truth
// while the server is unreachable and records the sync state of every note.
package notes

import (
	"context"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
)

// Repository is the local note store.
//
// Lookups that find nothing return (nil, nil). Page queries use SQL
// LIMIT/OFFSET semantics, so an offset past the end yields an empty slice.
type Repository interface {
	// Insert stores rec and returns its local id. A record whose LocalID is
	// already taken replaces the existing row; LocalID 0 allocates a new id.
	Insert(ctx context.Context, rec *models.LocalNote) (int64, error)
	// Update replaces the row with rec.LocalID. Missing rows are ignored.
	Update(ctx context.Context, rec *models.LocalNote) error
	Delete(ctx context.Context, localID int64) error
	DeleteByServerID(ctx context.Context, serverID int64) error
	// Clear removes every record. Used when another account takes over the
	// local store.
	Clear(ctx context.Context) error

	GetByServerID(ctx context.Context, serverID int64) (*models.LocalNote, error)
	GetByLocalID(ctx context.Context, localID int64) (*models.LocalNote, error)

	GetUnsyncedCreations(ctx context.Context) ([]*models.LocalNote, error)
	GetUnsyncedUpdates(ctx context.Context) ([]*models.LocalNote, error)
	GetPendingDeletes(ctx context.Context) ([]*models.LocalNote, error)

	GetActivePage(ctx context.Context, owner string, limit, offset int) ([]*models.LocalNote, error)
	GetFilteredPage(ctx context.Context, owner, title string, limit, offset int) ([]*models.LocalNote, error)
	GetAllByOwner(ctx context.Context, owner string) ([]*models.LocalNote, error)
	CountByOwner(ctx context.Context, owner string) (int, error)
}

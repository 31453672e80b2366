// Package client talks to the notes server over HTTP/JSON and owns the
// client's local database bootstrap.
//
// Every authenticated request carries the stored bearer token. A 401 triggers
// exactly one token refresh and one retry; if the refresh fails the stored
// tokens are cleared, the session is logged out and ErrUnauthorized is
// returned. Failures to reach the server wrap ErrUnavailable; non-2xx answers
// are *APIError.
package client

//go:generate mockgen -source=client.go -destination=../../mocks/client/mock_client.go -package=mock_client

import (
	"context"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
)

// NoteAPI is the remote note collection.
type NoteAPI interface {
	ListNotes(ctx context.Context, page, pageSize int) (*models.NotesPage, error)
	FilterNotes(ctx context.Context, page, pageSize int, title string) (*models.NotesPage, error)
	// ListNotesByURL follows an opaque next/previous link.
	ListNotesByURL(ctx context.Context, url string) (*models.NotesPage, error)

	// BulkCreate creates notes in one request. The result is in input order.
	BulkCreate(ctx context.Context, notes []models.NoteInput) ([]models.Note, error)
	Create(ctx context.Context, note models.NoteInput) (*models.Note, error)
	Get(ctx context.Context, id int64) (*models.Note, error)
	Update(ctx context.Context, id int64, note models.NoteInput) (*models.Note, error)
	PartialUpdate(ctx context.Context, id int64, patch models.NotePatch) (*models.Note, error)
	Delete(ctx context.Context, id int64) error
}

// AuthAPI covers account endpoints.
type AuthAPI interface {
	Login(ctx context.Context, username, password string) error
	Register(ctx context.Context, req RegisterRequest) (*UserInfo, error)
	UserInfo(ctx context.Context) (*UserInfo, error)
	ChangePassword(ctx context.Context, oldPassword, newPassword string) (string, error)
	Ping(ctx context.Context) error
}

type Client interface {
	NoteAPI
	AuthAPI
}

type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

type UserInfo struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// TokenPair is what the token endpoints return. Refresh may be empty when
// the server does not rotate refresh tokens.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// TokenStore persists the session tokens.
type TokenStore interface {
	Tokens(ctx context.Context) (TokenPair, error)
	SaveTokens(ctx context.Context, pair TokenPair) error
	ClearTokens(ctx context.Context) error
}

// LogoutNotifier is told when the session can no longer be refreshed.
type LogoutNotifier interface {
	Logout()
}

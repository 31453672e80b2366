// Package httpapi exposes the notes server over HTTP/JSON. Routes, payloads
// and error bodies follow the REST contract the notekeeper client speaks:
// paginated lists with absolute next/previous links, bearer authentication
// and errors shaped as {"detail"} or {"errors":[{"detail"}]}.
package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/dmitrijs2005/notekeeper/internal/server/models"
	"github.com/dmitrijs2005/notekeeper/internal/server/services"
)

// UserService is the account side of the API.
type UserService interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
	Login(ctx context.Context, userName, password string) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Authenticate(accessToken string) (int64, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) (string, error)
}

// NoteService is the note side of the API. Every call is scoped to userID.
type NoteService interface {
	List(ctx context.Context, userID int64, page, pageSize int, title string) (*services.NotePage, error)
	Create(ctx context.Context, userID int64, in services.NoteInput) (*models.Note, error)
	BulkCreate(ctx context.Context, userID int64, in []services.NoteInput) ([]models.Note, error)
	Get(ctx context.Context, userID, id int64) (*models.Note, error)
	Update(ctx context.Context, userID, id int64, in services.NoteInput) (*models.Note, error)
	PartialUpdate(ctx context.Context, userID, id int64, fields models.NoteFields) (*models.Note, error)
	Delete(ctx context.Context, userID, id int64) error
}

type Handler struct {
	users   UserService
	notes   NoteService
	logger  logging.Logger
	baseURL string
}

type Option func(*Handler)

// WithBaseURL fixes the scheme and host used in pagination links. Without
// it they are derived from each request.
func WithBaseURL(u string) Option {
	return func(h *Handler) { h.baseURL = u }
}

func WithLogger(l logging.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// NewRouter builds the complete API handler.
func NewRouter(users UserService, notes NoteService, opts ...Option) http.Handler {
	h := &Handler{users: users, notes: notes, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(h)
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(h.requestID)
	r.Use(h.accessLog)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not found.")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, `Method "`+r.Method+`" not allowed.`)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping/", h.ping)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register/", h.register)
			r.Post("/token/", h.token)
			r.Post("/token/refresh/", h.refreshToken)
			r.With(h.authenticate).Get("/userinfo/", h.userInfo)
			r.With(h.authenticate).Post("/change-password/", h.changePassword)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.authenticate)

			r.Get("/notes/", h.listNotes)
			r.Get("/notes/filter/", h.filterNotes)
			r.Post("/notes/bulk", h.bulkCreateNotes)
			r.Post("/notes", h.createNote)
			r.Post("/notes/", h.createNote)

			r.Get("/notes/{id}/", h.getNote)
			r.Put("/notes/{id}/", h.updateNote)
			r.Patch("/notes/{id}/", h.patchNote)
			r.Delete("/notes/{id}/", h.deleteNote)
		})
	})

	return r
}

func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/dbx"
	"github.com/dmitrijs2005/notekeeper/internal/server/config"
	"github.com/dmitrijs2005/notekeeper/internal/server/models"
	notesrepo "github.com/dmitrijs2005/notekeeper/internal/server/repositories/notes"
	refreshtokensrepo "github.com/dmitrijs2005/notekeeper/internal/server/repositories/refreshtokens"
	usersrepo "github.com/dmitrijs2005/notekeeper/internal/server/repositories/users"
)

var errBoom = errors.New("boom")

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:                    "k",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 2 * time.Hour,
		MaxPageSize:                  10,
	}
}

type fakeUsersRepo struct {
	created   *models.User
	createErr error

	byLogin map[string]*models.User
	getErr  error

	updateErr error
}

func (f *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	u.ID = 42
	f.created = u
	return u, nil
}

func (f *fakeUsersRepo) GetUserByLogin(_ context.Context, userName string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if u, ok := f.byLogin[userName]; ok {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.byLogin {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	u, err := f.GetByID(ctx, id)
	if err != nil {
		return err
	}
	u.PasswordHash = passwordHash
	return nil
}

type fakeRefreshRepo struct {
	tokens map[string]*models.RefreshToken

	findErr   error
	delErr    error
	createErr error
	purged    int64
}

func (f *fakeRefreshRepo) Create(_ context.Context, userID int64, token string, validity time.Duration) error {
	if f.createErr != nil {
		return f.createErr
	}
	if f.tokens == nil {
		f.tokens = map[string]*models.RefreshToken{}
	}
	f.tokens[token] = &models.RefreshToken{UserID: userID, Token: token, Expires: time.Now().Add(validity)}
	return nil
}

func (f *fakeRefreshRepo) Find(_ context.Context, token string) (*models.RefreshToken, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	if t, ok := f.tokens[token]; ok {
		return t, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeRefreshRepo) Delete(_ context.Context, token string) error {
	if f.delErr != nil {
		return f.delErr
	}
	delete(f.tokens, token)
	return nil
}

func (f *fakeRefreshRepo) DeleteExpired(context.Context, time.Time) (int64, error) {
	return f.purged, f.delErr
}

// fakeNotesRepo keeps notes in memory. failAt makes the n-th Create fail.
type fakeNotesRepo struct {
	notes  []models.Note
	nextID int64
	failAt int
	calls  int

	countErr error
}

func (f *fakeNotesRepo) Create(_ context.Context, userID int64, title, description string) (*models.Note, error) {
	f.calls++
	if f.failAt > 0 && f.calls == f.failAt {
		return nil, errBoom
	}
	f.nextID++
	n := models.Note{ID: f.nextID, UserID: userID, Title: title, Description: description, CreatorUsername: "alice"}
	f.notes = append(f.notes, n)
	return &n, nil
}

func (f *fakeNotesRepo) Get(_ context.Context, userID, id int64) (*models.Note, error) {
	for i := range f.notes {
		if f.notes[i].UserID == userID && f.notes[i].ID == id {
			n := f.notes[i]
			return &n, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeNotesRepo) Update(_ context.Context, userID, id int64, fields models.NoteFields) (*models.Note, error) {
	for i := range f.notes {
		n := &f.notes[i]
		if n.UserID != userID || n.ID != id {
			continue
		}
		if fields.Title != nil {
			n.Title = *fields.Title
		}
		if fields.Description != nil {
			n.Description = *fields.Description
		}
		out := *n
		return &out, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeNotesRepo) Delete(_ context.Context, userID, id int64) error {
	for i := range f.notes {
		if f.notes[i].UserID == userID && f.notes[i].ID == id {
			f.notes = append(f.notes[:i], f.notes[i+1:]...)
			return nil
		}
	}
	return common.ErrorNotFound
}

func (f *fakeNotesRepo) List(_ context.Context, userID int64, _ string, limit, offset int) ([]models.Note, error) {
	var mine []models.Note
	for _, n := range f.notes {
		if n.UserID == userID {
			mine = append(mine, n)
		}
	}
	if offset >= len(mine) {
		return []models.Note{}, nil
	}
	end := offset + limit
	if end > len(mine) {
		end = len(mine)
	}
	return mine[offset:end], nil
}

func (f *fakeNotesRepo) Count(_ context.Context, userID int64, _ string) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	n := 0
	for _, note := range f.notes {
		if note.UserID == userID {
			n++
		}
	}
	return n, nil
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	r *fakeRefreshRepo
	n *fakeNotesRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error        { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) usersrepo.Repository                 { return m.u }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokensrepo.Repository { return m.r }
func (m *fakeRepoManager) Notes(dbx.DBTX) notesrepo.Repository                 { return m.n }

package httpapi

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/server/models"
	"github.com/dmitrijs2005/notekeeper/internal/server/services"
)

const aliceID = int64(7)

var stamp = time.Date(2024, 3, 4, 5, 6, 7, 890_000_000, time.UTC)

// fakeUsers accepts alice/wonderland. Access tokens are "access-<uid>-<n>",
// refresh tokens are single use.
type fakeUsers struct {
	mu      sync.Mutex
	issued  int
	refresh map[string]int64
	revoked map[string]bool
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{refresh: map[string]int64{}, revoked: map[string]bool{}}
}

func (f *fakeUsers) pair(uid int64) *services.TokenPair {
	f.issued++
	p := &services.TokenPair{
		AccessToken:  fmt.Sprintf("access-%d-%d", uid, f.issued),
		RefreshToken: fmt.Sprintf("refresh-%d", f.issued),
	}
	f.refresh[p.RefreshToken] = uid
	return p
}

func (f *fakeUsers) revoke(access string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[access] = true
}

func (f *fakeUsers) Register(_ context.Context, in services.RegisterInput) (*models.User, error) {
	if in.Username == "" {
		return nil, &services.ValidationError{Details: []string{"username: This field may not be blank."}}
	}
	if in.Username == "alice" {
		return nil, fmt.Errorf("error creating user: %w", common.ErrorAlreadyExists)
	}
	return &models.User{ID: 8, UserName: in.Username, Email: in.Email, FirstName: in.FirstName, LastName: in.LastName}, nil
}

func (f *fakeUsers) Login(_ context.Context, userName, password string) (*services.TokenPair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if userName != "alice" || password != "wonderland" {
		return nil, common.ErrorUnauthorized
	}
	return f.pair(aliceID), nil
}

func (f *fakeUsers) RefreshToken(_ context.Context, token string) (*services.TokenPair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if token == "expired" {
		return nil, common.ErrRefreshTokenExpired
	}
	uid, ok := f.refresh[token]
	if !ok {
		return nil, common.ErrorUnauthorized
	}
	delete(f.refresh, token)
	return f.pair(uid), nil
}

func (f *fakeUsers) Authenticate(token string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var uid, n int64
	if _, err := fmt.Sscanf(token, "access-%d-%d", &uid, &n); err != nil || f.revoked[token] {
		return 0, common.ErrInvalidToken
	}
	return uid, nil
}

func (f *fakeUsers) GetUser(_ context.Context, id int64) (*models.User, error) {
	if id != aliceID {
		return nil, common.ErrorNotFound
	}
	return &models.User{ID: aliceID, UserName: "alice", Email: "alice@example.com", FirstName: "Alice"}, nil
}

func (f *fakeUsers) ChangePassword(_ context.Context, id int64, oldPassword, newPassword string) (string, error) {
	if id != aliceID {
		return "", common.ErrorNotFound
	}
	if oldPassword != "wonderland" {
		return "", &services.ValidationError{Details: []string{"Old password is incorrect."}}
	}
	return "Password changed successfully.", nil
}

// fakeNotes keeps notes in insertion order and lists them newest first.
type fakeNotes struct {
	mu     sync.Mutex
	notes  []models.Note
	nextID int64
	err    error
}

func (f *fakeNotes) add(userID int64, title, description string) models.Note {
	f.nextID++
	n := models.Note{
		ID: f.nextID, UserID: userID, Title: title, Description: description,
		CreatedAt: stamp, UpdatedAt: stamp, CreatorName: "Alice", CreatorUsername: "alice",
	}
	f.notes = append(f.notes, n)
	return n
}

func (f *fakeNotes) seed(n int) {
	for i := 1; i <= n; i++ {
		f.add(aliceID, fmt.Sprintf("note %d", i), "body")
	}
}

func (f *fakeNotes) List(_ context.Context, userID int64, page, pageSize int, title string) (*services.NotePage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if pageSize <= 0 {
		pageSize = services.DefaultPageSize
	}
	var match []models.Note
	for i := len(f.notes) - 1; i >= 0; i-- {
		n := f.notes[i]
		if n.UserID == userID && strings.Contains(strings.ToLower(n.Title), strings.ToLower(title)) {
			match = append(match, n)
		}
	}
	offset := (page - 1) * pageSize
	if page > 1 && offset >= len(match) {
		return nil, common.ErrorNotFound
	}
	end := offset + pageSize
	if end > len(match) {
		end = len(match)
	}
	return &services.NotePage{Count: len(match), Page: page, Size: pageSize, Results: match[offset:end]}, nil
}

func (f *fakeNotes) Create(_ context.Context, userID int64, in services.NoteInput) (*models.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if in.Title == "" || in.Description == "" {
		return nil, &services.ValidationError{Details: []string{"title: This field may not be blank."}}
	}
	n := f.add(userID, in.Title, in.Description)
	return &n, nil
}

func (f *fakeNotes) BulkCreate(_ context.Context, userID int64, in []services.NoteInput) ([]models.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.Note, 0, len(in))
	for _, n := range in {
		out = append(out, f.add(userID, n.Title, n.Description))
	}
	return out, nil
}

func (f *fakeNotes) find(userID, id int64) *models.Note {
	for i := range f.notes {
		if f.notes[i].UserID == userID && f.notes[i].ID == id {
			return &f.notes[i]
		}
	}
	return nil
}

func (f *fakeNotes) Get(_ context.Context, userID, id int64) (*models.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.find(userID, id)
	if n == nil {
		return nil, common.ErrorNotFound
	}
	out := *n
	return &out, nil
}

func (f *fakeNotes) Update(ctx context.Context, userID, id int64, in services.NoteInput) (*models.Note, error) {
	if in.Title == "" {
		return nil, &services.ValidationError{Details: []string{"title: This field may not be blank."}}
	}
	return f.PartialUpdate(ctx, userID, id, models.NoteFields{Title: &in.Title, Description: &in.Description})
}

func (f *fakeNotes) PartialUpdate(_ context.Context, userID, id int64, fields models.NoteFields) (*models.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.find(userID, id)
	if n == nil {
		return nil, common.ErrorNotFound
	}
	if fields.Title != nil {
		n.Title = *fields.Title
	}
	if fields.Description != nil {
		n.Description = *fields.Description
	}
	n.UpdatedAt = stamp.Add(time.Hour)
	out := *n
	return &out, nil
}

func (f *fakeNotes) Delete(_ context.Context, userID, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.notes {
		if f.notes[i].UserID == userID && f.notes[i].ID == id {
			f.notes = append(f.notes[:i], f.notes[i+1:]...)
			return nil
		}
	}
	return common.ErrorNotFound
}

func itoa(n int64) string {
	return fmt.Sprintf("%d", n)
}

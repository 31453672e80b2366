package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
)

type memTokens struct {
	mu      sync.Mutex
	pair    TokenPair
	cleared int
}

func (m *memTokens) Tokens(context.Context) (TokenPair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pair, nil
}

func (m *memTokens) SaveTokens(_ context.Context, p TokenPair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pair.Access = p.Access
	if p.Refresh != "" {
		m.pair.Refresh = p.Refresh
	}
	return nil
}

func (m *memTokens) ClearTokens(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pair = TokenPair{}
	m.cleared++
	return nil
}

type logoutCounter struct{ n atomic.Int32 }

func (l *logoutCounter) Logout() { l.n.Add(1) }

func newTestClient(t *testing.T, h http.Handler, tokens *memTokens) (*HTTPClient, *logoutCounter) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	lc := &logoutCounter{}
	return NewHTTPClient(srv.URL, 2*time.Second, tokens, WithLogoutNotifier(lc)), lc
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestListNotes_SendsBearerAndPaging(t *testing.T) {
	next := "http://example/api/notes/?page=2&page_size=6"
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/notes/", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		assert.Equal(t, "6", r.URL.Query().Get("page_size"))
		assert.Equal(t, "Bearer acc", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, models.NotesPage{Count: 7, Next: &next, Results: []models.Note{{ID: 1, Title: "a"}}})
	})
	c, _ := newTestClient(t, h, &memTokens{pair: TokenPair{Access: "acc"}})

	page, err := c.ListNotes(context.Background(), 1, 6)
	require.NoError(t, err)
	assert.Equal(t, 7, page.Count)
	require.NotNil(t, page.Next)
	assert.Equal(t, next, *page.Next)
	assert.Len(t, page.Results, 1)
}

func TestFilterNotes_SendsTitle(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/notes/filter/", r.URL.Path)
		assert.Equal(t, "shop list", r.URL.Query().Get("title"))
		writeJSON(w, http.StatusOK, models.NotesPage{})
	})
	c, _ := newTestClient(t, h, &memTokens{})

	_, err := c.FilterNotes(context.Background(), 1, 6, "shop list")
	require.NoError(t, err)
}

func TestListNotesByURL_UsesAbsoluteURL(t *testing.T) {
	var srvURL string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/notes/", r.URL.Path)
		assert.Equal(t, "3", r.URL.Query().Get("page"))
		writeJSON(w, http.StatusOK, models.NotesPage{Count: 1})
	})
	srv := httptest.NewServer(h)
	defer srv.Close()
	srvURL = srv.URL

	c := NewHTTPClient("http://unused.invalid", time.Second, &memTokens{})
	page, err := c.ListNotesByURL(context.Background(), srvURL+"/api/notes/?page=3&page_size=6")
	require.NoError(t, err)
	assert.Equal(t, 1, page.Count)
}

func TestBulkCreate_PreservesOrder(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/notes/bulk", r.URL.Path)
		var in []models.NoteInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		out := make([]models.Note, len(in))
		for i, n := range in {
			out[i] = models.Note{ID: int64(100 + i), Title: n.Title, Description: n.Description}
		}
		writeJSON(w, http.StatusCreated, out)
	})
	c, _ := newTestClient(t, h, &memTokens{})

	got, err := c.BulkCreate(context.Background(), []models.NoteInput{{Title: "a"}, {Title: "b"}})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Title)
	assert.Equal(t, int64(101), got[1].ID)
}

func TestPartialUpdate_SendsOnlyChangedField(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/notes/5/", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"title":"new"}`, string(body))
		writeJSON(w, http.StatusOK, models.Note{ID: 5, Title: "new", Description: "old"})
	})
	c, _ := newTestClient(t, h, &memTokens{})

	title := "new"
	n, err := c.PartialUpdate(context.Background(), 5, models.NotePatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "old", n.Description)
}

func TestUpdateAndDelete(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			var in models.NoteInput
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			writeJSON(w, http.StatusOK, models.Note{ID: 9, Title: in.Title, Description: in.Description})
		case http.MethodDelete:
			assert.Equal(t, "/api/notes/9/", r.URL.Path)
			w.WriteHeader(http.StatusNoContent)
		}
	})
	c, _ := newTestClient(t, h, &memTokens{})
	ctx := context.Background()

	n, err := c.Update(ctx, 9, models.NoteInput{Title: "t", Description: "d"})
	require.NoError(t, err)
	assert.Equal(t, "d", n.Description)

	require.NoError(t, c.Delete(ctx, 9))
}

func TestRejection_ParsesBody(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": []map[string]string{{"detail": "a"}, {"detail": "b"}}})
	})
	c, _ := newTestClient(t, h, &memTokens{})

	_, err := c.Create(context.Background(), models.NoteInput{})
	require.Error(t, err)
	assert.True(t, IsRejection(err))
	assert.False(t, IsTransportFailure(err))
	assert.Equal(t, "a\nb", ErrorMessage(err))
}

func TestNotFound(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
	})
	c, _ := newTestClient(t, h, &memTokens{})

	_, err := c.Get(context.Background(), 1)
	assert.True(t, IsNotFound(err))
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewHTTPClient(url, time.Second, &memTokens{})
	_, err := c.ListNotes(context.Background(), 1, 6)
	require.Error(t, err)
	assert.True(t, IsTransportFailure(err))
	assert.Error(t, c.Ping(context.Background()))
}

func TestUnauthorized_RefreshesOnceAndRetries(t *testing.T) {
	var refreshes atomic.Int32
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/token/refresh/" {
			refreshes.Add(1)
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "ref", body["refresh"])
			writeJSON(w, http.StatusOK, TokenPair{Access: "fresh", Refresh: "ref2"})
			return
		}
		if r.Header.Get("Authorization") != "Bearer fresh" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "token expired"})
			return
		}
		writeJSON(w, http.StatusOK, models.Note{ID: 1})
	})
	tokens := &memTokens{pair: TokenPair{Access: "stale", Refresh: "ref"}}
	c, lc := newTestClient(t, h, tokens)

	n, err := c.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n.ID)
	assert.Equal(t, int32(1), refreshes.Load())
	assert.Equal(t, TokenPair{Access: "fresh", Refresh: "ref2"}, tokens.pair)
	assert.Zero(t, lc.n.Load())
}

func TestUnauthorized_SecondRejectionIsReturned(t *testing.T) {
	var refreshes, calls atomic.Int32
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/token/refresh/" {
			refreshes.Add(1)
			writeJSON(w, http.StatusOK, TokenPair{Access: "fresh"})
			return
		}
		calls.Add(1)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "nope"})
	})
	tokens := &memTokens{pair: TokenPair{Access: "stale", Refresh: "ref"}}
	c, lc := newTestClient(t, h, tokens)

	_, err := c.Get(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, IsRejection(err))
	assert.Equal(t, int32(1), refreshes.Load())
	assert.Equal(t, int32(2), calls.Load())
	assert.Zero(t, lc.n.Load())
	assert.Equal(t, "ref", tokens.pair.Refresh)
}

func TestUnauthorized_RefreshFailureLogsOut(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "invalid"})
	})
	tokens := &memTokens{pair: TokenPair{Access: "stale", Refresh: "ref"}}
	c, lc := newTestClient(t, h, tokens)

	_, err := c.ListNotes(context.Background(), 1, 6)
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, TokenPair{}, tokens.pair)
	assert.Equal(t, 1, tokens.cleared)
	assert.Equal(t, int32(1), lc.n.Load())
}

func TestUnauthorized_NoRefreshTokenLogsOut(t *testing.T) {
	var refreshes atomic.Int32
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/token/refresh/" {
			refreshes.Add(1)
		}
		w.WriteHeader(http.StatusUnauthorized)
	})
	tokens := &memTokens{pair: TokenPair{Access: "stale"}}
	c, lc := newTestClient(t, h, tokens)

	err := c.Delete(context.Background(), 3)
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Zero(t, refreshes.Load())
	assert.Equal(t, int32(1), lc.n.Load())
}

func TestLogin_StoresTokens(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/token/", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["password"] != "pw" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "No active account found with the given credentials"})
			return
		}
		writeJSON(w, http.StatusOK, TokenPair{Access: "a", Refresh: "r"})
	})
	tokens := &memTokens{}
	c, lc := newTestClient(t, h, tokens)
	ctx := context.Background()

	err := c.Login(ctx, "bob", "wrong")
	require.Error(t, err)
	assert.Equal(t, "No active account found with the given credentials", ErrorMessage(err))
	assert.Zero(t, lc.n.Load())

	require.NoError(t, c.Login(ctx, "bob", "pw"))
	assert.Equal(t, TokenPair{Access: "a", Refresh: "r"}, tokens.pair)
}

func TestRegisterAndUserInfo(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/register/":
			var req RegisterRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			writeJSON(w, http.StatusCreated, UserInfo{ID: 1, Username: req.Username, Email: req.Email})
		case "/api/auth/userinfo/":
			assert.Equal(t, "Bearer a", r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, UserInfo{ID: 1, Username: "bob", FirstName: "Bob"})
		case "/api/ping/":
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		}
	})
	c, _ := newTestClient(t, h, &memTokens{pair: TokenPair{Access: "a"}})
	ctx := context.Background()

	u, err := c.Register(ctx, RegisterRequest{Username: "bob", Email: "bob@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", u.Email)

	info, err := c.UserInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bob", info.FirstName)

	assert.NoError(t, c.Ping(ctx))
}

func TestChangePassword(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/change-password/", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer a", r.Header.Get("Authorization"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["old_password"] != "old" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"errors": []map[string]string{{"detail": "Old password is incorrect."}}})
			return
		}
		assert.Equal(t, "new", body["new_password"])
		writeJSON(w, http.StatusOK, map[string]string{"detail": "Password changed successfully."})
	})
	c, _ := newTestClient(t, h, &memTokens{pair: TokenPair{Access: "a"}})
	ctx := context.Background()

	msg, err := c.ChangePassword(ctx, "old", "new")
	require.NoError(t, err)
	assert.Equal(t, "Password changed successfully.", msg)

	_, err = c.ChangePassword(ctx, "wrong", "new")
	require.True(t, IsRejection(err))
	assert.Equal(t, "Old password is incorrect.", ErrorMessage(err))
}

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
)

const (
	pathNotes        = "/api/notes/"
	pathNotesFilter  = "/api/notes/filter/"
	pathNotesBulk    = "/api/notes/bulk"
	pathNotesCreate  = "/api/notes"
	pathNote         = "/api/notes/{id}/"
	pathToken        = "/api/auth/token/"
	pathTokenRefresh = "/api/auth/token/refresh/"
	pathRegister     = "/api/auth/register/"
	pathUserInfo     = "/api/auth/userinfo/"
	pathPassword     = "/api/auth/change-password/"
	pathPing         = "/api/ping/"
)

// HTTPClient implements Client on top of resty.
type HTTPClient struct {
	rc     *resty.Client
	tokens TokenStore
	logout LogoutNotifier
	logger logging.Logger

	// refreshMu serialises refreshes so concurrent 401s spend the refresh
	// token once.
	refreshMu sync.Mutex
}

type Option func(*HTTPClient)

func WithLogger(l logging.Logger) Option {
	return func(c *HTTPClient) { c.logger = l }
}

func WithLogoutNotifier(n LogoutNotifier) Option {
	return func(c *HTTPClient) { c.logout = n }
}

func NewHTTPClient(baseURL string, timeout time.Duration, tokens TokenStore, opts ...Option) *HTTPClient {
	rc := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	c := &HTTPClient{rc: rc, tokens: tokens, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *HTTPClient) ListNotes(ctx context.Context, page, pageSize int) (*models.NotesPage, error) {
	var out models.NotesPage
	err := c.call(ctx, http.MethodGet, pathNotes, &out, func(r *resty.Request) *resty.Request {
		return r.SetQueryParams(map[string]string{
			"page":      strconv.Itoa(page),
			"page_size": strconv.Itoa(pageSize),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return &out, nil
}

func (c *HTTPClient) FilterNotes(ctx context.Context, page, pageSize int, title string) (*models.NotesPage, error) {
	var out models.NotesPage
	err := c.call(ctx, http.MethodGet, pathNotesFilter, &out, func(r *resty.Request) *resty.Request {
		return r.SetQueryParams(map[string]string{
			"page":      strconv.Itoa(page),
			"page_size": strconv.Itoa(pageSize),
			"title":     title,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("filter notes: %w", err)
	}
	return &out, nil
}

func (c *HTTPClient) ListNotesByURL(ctx context.Context, url string) (*models.NotesPage, error) {
	var out models.NotesPage
	if err := c.call(ctx, http.MethodGet, url, &out, nil); err != nil {
		return nil, fmt.Errorf("list notes by url: %w", err)
	}
	return &out, nil
}

func (c *HTTPClient) BulkCreate(ctx context.Context, notes []models.NoteInput) ([]models.Note, error) {
	out := make([]models.Note, 0, len(notes))
	err := c.call(ctx, http.MethodPost, pathNotesBulk, &out, func(r *resty.Request) *resty.Request {
		return r.SetBody(notes)
	})
	if err != nil {
		return nil, fmt.Errorf("bulk create notes: %w", err)
	}
	return out, nil
}

func (c *HTTPClient) Create(ctx context.Context, note models.NoteInput) (*models.Note, error) {
	var out models.Note
	err := c.call(ctx, http.MethodPost, pathNotesCreate, &out, func(r *resty.Request) *resty.Request {
		return r.SetBody(note)
	})
	if err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	return &out, nil
}

func (c *HTTPClient) Get(ctx context.Context, id int64) (*models.Note, error) {
	var out models.Note
	if err := c.call(ctx, http.MethodGet, pathNote, &out, withID(id)); err != nil {
		return nil, fmt.Errorf("get note %d: %w", id, err)
	}
	return &out, nil
}

func (c *HTTPClient) Update(ctx context.Context, id int64, note models.NoteInput) (*models.Note, error) {
	var out models.Note
	err := c.call(ctx, http.MethodPut, pathNote, &out, func(r *resty.Request) *resty.Request {
		return withID(id)(r).SetBody(note)
	})
	if err != nil {
		return nil, fmt.Errorf("update note %d: %w", id, err)
	}
	return &out, nil
}

func (c *HTTPClient) PartialUpdate(ctx context.Context, id int64, patch models.NotePatch) (*models.Note, error) {
	var out models.Note
	err := c.call(ctx, http.MethodPatch, pathNote, &out, func(r *resty.Request) *resty.Request {
		return withID(id)(r).SetBody(patch)
	})
	if err != nil {
		return nil, fmt.Errorf("patch note %d: %w", id, err)
	}
	return &out, nil
}

func (c *HTTPClient) Delete(ctx context.Context, id int64) error {
	if err := c.call(ctx, http.MethodDelete, pathNote, nil, withID(id)); err != nil {
		return fmt.Errorf("delete note %d: %w", id, err)
	}
	return nil
}

// Login exchanges credentials for a token pair and stores it.
func (c *HTTPClient) Login(ctx context.Context, username, password string) error {
	resp, err := c.rc.R().
		SetContext(ctx).
		SetBody(map[string]string{"username": username, "password": password}).
		Post(pathToken)
	if err != nil {
		return fmt.Errorf("login: %w", transportError(err))
	}
	var pair TokenPair
	if err := decode(resp, &pair); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := c.tokens.SaveTokens(ctx, pair); err != nil {
		return fmt.Errorf("login: save tokens: %w", err)
	}
	return nil
}

func (c *HTTPClient) Register(ctx context.Context, req RegisterRequest) (*UserInfo, error) {
	resp, err := c.rc.R().SetContext(ctx).SetBody(req).Post(pathRegister)
	if err != nil {
		return nil, fmt.Errorf("register: %w", transportError(err))
	}
	var out UserInfo
	if err := decode(resp, &out); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return &out, nil
}

func (c *HTTPClient) UserInfo(ctx context.Context) (*UserInfo, error) {
	var out UserInfo
	if err := c.call(ctx, http.MethodGet, pathUserInfo, &out, nil); err != nil {
		return nil, fmt.Errorf("user info: %w", err)
	}
	return &out, nil
}

// ChangePassword replaces the account password and returns the server's
// confirmation message.
func (c *HTTPClient) ChangePassword(ctx context.Context, oldPassword, newPassword string) (string, error) {
	var out struct {
		Detail string `json:"detail"`
	}
	err := c.call(ctx, http.MethodPost, pathPassword, &out, func(r *resty.Request) *resty.Request {
		return r.SetBody(map[string]string{"old_password": oldPassword, "new_password": newPassword})
	})
	if err != nil {
		return "", fmt.Errorf("change password: %w", err)
	}
	return out.Detail, nil
}

// Ping checks that the server answers at all.
func (c *HTTPClient) Ping(ctx context.Context) error {
	resp, err := c.rc.R().SetContext(ctx).Get(pathPing)
	if err != nil {
		return transportError(err)
	}
	return decode(resp, nil)
}

func withID(id int64) func(*resty.Request) *resty.Request {
	return func(r *resty.Request) *resty.Request {
		return r.SetPathParam("id", strconv.FormatInt(id, 10))
	}
}

// call runs an authenticated request and decodes a 2xx body into out.
func (c *HTTPClient) call(ctx context.Context, method, url string, out any, build func(*resty.Request) *resty.Request) error {
	if build == nil {
		build = func(r *resty.Request) *resty.Request { return r }
	}
	resp, err := c.authorized(ctx, method, url, build)
	if err != nil {
		return err
	}
	return decode(resp, out)
}

// authorized sends the request with the stored access token. On 401 it
// refreshes once and resends once; the second response is returned as is.
func (c *HTTPClient) authorized(ctx context.Context, method, url string, build func(*resty.Request) *resty.Request) (*resty.Response, error) {
	pair, err := c.tokens.Tokens(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := build(c.request(ctx, pair.Access)).Execute(method, url)
	if err != nil {
		return nil, transportError(err)
	}
	if resp.StatusCode() != http.StatusUnauthorized {
		return resp, nil
	}

	access, err := c.refresh(ctx, pair.Access)
	if err != nil {
		return nil, err
	}

	resp, err = build(c.request(ctx, access)).Execute(method, url)
	if err != nil {
		return nil, transportError(err)
	}
	return resp, nil
}

func (c *HTTPClient) request(ctx context.Context, token string) *resty.Request {
	r := c.rc.R().SetContext(ctx)
	if token != "" {
		r.SetAuthToken(token)
	}
	return r
}

// refresh returns a fresh access token. rejected is the token the server
// just refused; if the store already holds a different one another request
// refreshed in the meantime and that token is reused.
func (c *HTTPClient) refresh(ctx context.Context, rejected string) (string, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	pair, err := c.tokens.Tokens(ctx)
	if err != nil {
		return "", err
	}
	if pair.Access != "" && pair.Access != rejected {
		return pair.Access, nil
	}
	if pair.Refresh == "" {
		return "", c.forceLogout(ctx, "no refresh token")
	}

	resp, err := c.rc.R().
		SetContext(ctx).
		SetBody(map[string]string{"refresh": pair.Refresh}).
		Post(pathTokenRefresh)
	if err != nil {
		return "", c.forceLogout(ctx, err.Error())
	}

	var fresh TokenPair
	if err := decode(resp, &fresh); err != nil {
		return "", c.forceLogout(ctx, err.Error())
	}
	if fresh.Access == "" {
		return "", c.forceLogout(ctx, "empty access token")
	}
	if fresh.Refresh == "" {
		fresh.Refresh = pair.Refresh
	}
	if err := c.tokens.SaveTokens(ctx, fresh); err != nil {
		return "", fmt.Errorf("save refreshed tokens: %w", err)
	}

	c.logger.Debug(ctx, "access token refreshed")
	return fresh.Access, nil
}

func (c *HTTPClient) forceLogout(ctx context.Context, reason string) error {
	c.logger.Warn(ctx, "token refresh failed, logging out", "reason", reason)
	if err := c.tokens.ClearTokens(ctx); err != nil {
		c.logger.Error(ctx, "failed to clear tokens", "error", err)
	}
	if c.logout != nil {
		c.logout.Logout()
	}
	return ErrUnauthorized
}

func decode(resp *resty.Response, out any) error {
	if !resp.IsSuccess() {
		return &APIError{Status: resp.StatusCode(), Message: ParseErrorMessage(resp.Body())}
	}
	if out == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

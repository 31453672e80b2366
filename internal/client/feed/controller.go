// Package feed drives the paginated, searchable note list. Pages come from the
// server when it is reachable and from the local store when it is not.
package feed

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/notekeeper/internal/client/client"
	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/client/services"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
)

// DefaultPageSize is the number of notes per page.
const DefaultPageSize = 6

var (
	// ErrFetchInProgress is returned when a page fetch is requested while
	// another one is still running. The request is dropped.
	ErrFetchInProgress = errors.New("a page fetch is already in progress")
	// ErrClosed is returned by fetches started after Close.
	ErrClosed = errors.New("feed is closed")
	// ErrNothingToShow means neither the server nor the local store
	// produced a page.
	ErrNothingToShow = errors.New("no notes available")
)

// Source tells where the visible items came from.
type Source int

const (
	SourceNone Source = iota
	SourceRemote
	SourceLocal
)

func (s Source) String() string {
	switch s {
	case SourceRemote:
		return "server"
	case SourceLocal:
		return "local"
	default:
		return "none"
	}
}

// State is a point-in-time copy of the feed.
type State struct {
	Filter    string
	Items     []models.NoteItem
	Next      *string
	PageIndex int
	Loading   bool
	HasError  bool
	Err       error
	Source    Source
	// EndReached is set when the local store has no further page.
	EndReached bool
}

// HasMore reports whether another page can be requested.
func (s State) HasMore() bool {
	if s.Source == SourceRemote {
		return s.Next != nil
	}
	return !s.EndReached
}

type request struct {
	cursor    *string
	filter    string
	pageIndex int
}

// Controller owns the feed state. At most one fetch runs at a time; results
// that arrive after Close are discarded.
type Controller struct {
	api      client.NoteAPI
	notes    services.NoteService
	sync     services.SyncService
	logger   logging.Logger
	pageSize int

	inflight chan struct{}

	mu     sync.Mutex
	state  State
	closed bool
}

type Option func(*Controller)

func WithPageSize(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

func NewController(api client.NoteAPI, notes services.NoteService, sync services.SyncService, opts ...Option) *Controller {
	c := &Controller{
		api:      api,
		notes:    notes,
		sync:     sync,
		logger:   logging.NewNop(),
		pageSize: DefaultPageSize,
		inflight: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "feed")
	return c
}

func (c *Controller) PageSize() int { return c.pageSize }

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	s.Items = append([]models.NoteItem(nil), c.state.Items...)
	s.Loading = len(c.inflight) > 0
	return s
}

// Load fetches the first page for the current filter.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	filter := c.state.Filter
	c.mu.Unlock()
	return c.fetch(ctx, request{filter: filter})
}

// SubmitQuery starts a new search: the cursor and the list are reset and the
// first filtered page is fetched.
func (c *Controller) SubmitQuery(ctx context.Context, query string) error {
	c.mu.Lock()
	c.state.Filter = query
	c.state.Next = nil
	c.state.Items = nil
	c.state.PageIndex = 0
	c.state.EndReached = false
	c.mu.Unlock()
	return c.fetch(ctx, request{filter: query})
}

// QueryChanged reacts to an edit of the search text. Clearing it goes back
// to the unfiltered list; anything else waits for SubmitQuery.
func (c *Controller) QueryChanged(ctx context.Context, text string) error {
	if text != "" {
		return nil
	}
	c.mu.Lock()
	c.state.Filter = ""
	c.state.EndReached = false
	c.mu.Unlock()
	return c.fetch(ctx, request{})
}

// OnScroll is called with the index of the last visible item. Near the end
// of the list it loads the next page: by cursor while the server is paging,
// otherwise the next local page.
func (c *Controller) OnScroll(ctx context.Context, lastVisible int) error {
	c.mu.Lock()
	st := c.state
	c.mu.Unlock()

	if lastVisible < len(st.Items)-1 {
		return nil
	}

	switch {
	case st.Next != nil && len(st.Items) >= c.pageSize:
		return c.fetch(ctx, request{cursor: st.Next, filter: st.Filter, pageIndex: st.PageIndex + 1})
	case st.Source == SourceRemote || st.EndReached:
		// The server has no more pages.
		return nil
	default:
		return c.fetch(ctx, request{filter: st.Filter, pageIndex: st.PageIndex + 1})
	}
}

// Refresh pushes pending local changes and, if the feed is showing an error,
// reloads the first page.
func (c *Controller) Refresh(ctx context.Context) (*services.SyncReport, error) {
	report, err := c.sync.SyncAll(ctx)
	if err != nil {
		c.logger.Warn(ctx, "sync during refresh incomplete", "error", err)
	}

	c.mu.Lock()
	inError, filter := c.state.HasError, c.state.Filter
	c.mu.Unlock()

	if inError {
		if err := c.fetch(ctx, request{filter: filter}); err != nil {
			return report, err
		}
	}
	return report, nil
}

// Close detaches the controller. Fetches still in flight complete but their
// results are dropped.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *Controller) fetch(ctx context.Context, req request) error {
	select {
	case c.inflight <- struct{}{}:
	default:
		return ErrFetchInProgress
	}
	defer func() { <-c.inflight }()

	if c.isClosed() {
		return ErrClosed
	}

	page, err := c.remotePage(ctx, req)
	if err == nil {
		if err := c.notes.Materialize(ctx, page.Results); err != nil {
			c.logger.Warn(ctx, "failed to store fetched notes", "error", err)
		}
		items := make([]models.NoteItem, 0, len(page.Results))
		for _, n := range page.Results {
			items = append(items, models.ItemFromNote(n))
		}
		c.commit(func(s *State) {
			if req.cursor == nil {
				s.Items = items
				s.PageIndex = 0
			} else {
				s.Items = append(s.Items, items...)
				s.PageIndex = req.pageIndex
			}
			s.Next = page.Next
			s.Source = SourceRemote
			s.EndReached = false
			s.HasError, s.Err = false, nil
		})
		return nil
	}

	if !client.UseLocalCopy(err) {
		c.logger.Warn(ctx, "server rejected page request", "error", err)
		c.commit(func(s *State) {
			s.HasError, s.Err = true, err
		})
		return err
	}

	c.logger.Debug(ctx, "server unreachable, reading local page", "page", req.pageIndex, "error", err)
	recs, lerr := c.notes.LocalPage(ctx, req.filter, c.pageSize, req.pageIndex*c.pageSize)
	if lerr != nil {
		c.commit(func(s *State) {
			s.HasError, s.Err = true, lerr
		})
		return lerr
	}

	if len(recs) == 0 {
		if req.pageIndex > 0 {
			// Past the last local page: keep what is shown.
			c.commit(func(s *State) {
				s.EndReached = true
				s.Source = SourceLocal
				s.Next = nil
			})
			return nil
		}
		c.commit(func(s *State) {
			s.Items = nil
			s.Next = nil
			s.Source = SourceLocal
			s.HasError, s.Err = true, ErrNothingToShow
		})
		return ErrNothingToShow
	}

	items := make([]models.NoteItem, 0, len(recs))
	for _, r := range recs {
		items = append(items, r.Item())
	}
	c.commit(func(s *State) {
		if req.pageIndex == 0 {
			s.Items = items
		} else {
			s.Items = append(s.Items, items...)
		}
		s.PageIndex = req.pageIndex
		s.Next = nil
		s.Source = SourceLocal
		s.EndReached = len(recs) < c.pageSize
		s.HasError, s.Err = false, nil
	})
	return nil
}

func (c *Controller) remotePage(ctx context.Context, req request) (*models.NotesPage, error) {
	switch {
	case req.cursor != nil:
		return c.api.ListNotesByURL(ctx, *req.cursor)
	case req.filter != "":
		return c.api.FilterNotes(ctx, 1, c.pageSize, req.filter)
	default:
		return c.api.ListNotes(ctx, 1, c.pageSize)
	}
}

func (c *Controller) commit(fn func(s *State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	fn(&c.state)
}

func (c *Controller) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

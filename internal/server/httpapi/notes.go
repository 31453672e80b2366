package httpapi

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrijs2005/notekeeper/internal/server/models"
	"github.com/dmitrijs2005/notekeeper/internal/server/services"
)

// timestampLayout is ISO-8601 in UTC with milliseconds.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

type noteRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type notePatchRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

type noteResponse struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
	CreatorName     string `json:"creator_name"`
	CreatorUsername string `json:"creator_username"`
}

type notePageResponse struct {
	Count    int            `json:"count"`
	Next     *string        `json:"next"`
	Previous *string        `json:"previous"`
	Results  []noteResponse `json:"results"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func toNoteResponse(n *models.Note) noteResponse {
	return noteResponse{
		ID:              n.ID,
		Title:           n.Title,
		Description:     n.Description,
		CreatedAt:       formatTime(n.CreatedAt),
		UpdatedAt:       formatTime(n.UpdatedAt),
		CreatorName:     n.CreatorName,
		CreatorUsername: n.CreatorUsername,
	}
}

func (h *Handler) listNotes(w http.ResponseWriter, r *http.Request) {
	h.respondPage(w, r, "")
}

func (h *Handler) filterNotes(w http.ResponseWriter, r *http.Request) {
	h.respondPage(w, r, r.URL.Query().Get("title"))
}

func (h *Handler) respondPage(w http.ResponseWriter, r *http.Request, title string) {
	q := r.URL.Query()

	page := 1
	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeDetail(w, http.StatusNotFound, "Invalid page.")
			return
		}
		page = n
	}
	pageSize, _ := strconv.Atoi(q.Get("page_size"))

	result, err := h.notes.List(r.Context(), userID(r), page, pageSize, title)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	resp := notePageResponse{Count: result.Count, Results: make([]noteResponse, 0, len(result.Results))}
	for i := range result.Results {
		resp.Results = append(resp.Results, toNoteResponse(&result.Results[i]))
	}
	if result.HasNext() {
		resp.Next = h.pageLink(r, page+1)
	}
	if page > 1 {
		resp.Previous = h.pageLink(r, page-1)
	}
	writeJSON(w, http.StatusOK, resp)
}

// pageLink returns the absolute URL of the same listing at page. The first
// page is addressed without a page parameter.
func (h *Handler) pageLink(r *http.Request, page int) *string {
	base := h.baseURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if fwd := r.Header.Get("X-Forwarded-Proto"); fwd != "" {
			scheme = fwd
		}
		base = scheme + "://" + r.Host
	}

	u, err := url.Parse(base)
	if err != nil {
		return nil
	}
	u.Path = r.URL.Path

	q := r.URL.Query()
	if page == 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	u.RawQuery = q.Encode()

	link := u.String()
	return &link
}

func (h *Handler) createNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	note, err := h.notes.Create(r.Context(), userID(r), services.NoteInput{Title: req.Title, Description: req.Description})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toNoteResponse(note))
}

func (h *Handler) bulkCreateNotes(w http.ResponseWriter, r *http.Request) {
	var req []noteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	in := make([]services.NoteInput, 0, len(req))
	for _, n := range req {
		in = append(in, services.NoteInput{Title: n.Title, Description: n.Description})
	}

	notes, err := h.notes.BulkCreate(r.Context(), userID(r), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	resp := make([]noteResponse, 0, len(notes))
	for i := range notes {
		resp = append(resp, toNoteResponse(&notes[i]))
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) getNote(w http.ResponseWriter, r *http.Request) {
	id, ok := noteID(w, r)
	if !ok {
		return
	}

	note, err := h.notes.Get(r.Context(), userID(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toNoteResponse(note))
}

func (h *Handler) updateNote(w http.ResponseWriter, r *http.Request) {
	id, ok := noteID(w, r)
	if !ok {
		return
	}
	var req noteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	note, err := h.notes.Update(r.Context(), userID(r), id, services.NoteInput{Title: req.Title, Description: req.Description})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toNoteResponse(note))
}

func (h *Handler) patchNote(w http.ResponseWriter, r *http.Request) {
	id, ok := noteID(w, r)
	if !ok {
		return
	}
	var req notePatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	note, err := h.notes.PartialUpdate(r.Context(), userID(r), id, models.NoteFields{Title: req.Title, Description: req.Description})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toNoteResponse(note))
}

func (h *Handler) deleteNote(w http.ResponseWriter, r *http.Request) {
	id, ok := noteID(w, r)
	if !ok {
		return
	}

	if err := h.notes.Delete(r.Context(), userID(r), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// noteID parses the {id} path segment. Anything that is not a positive
// integer cannot name a note, so it is a 404.
func noteID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return 0, false
	}
	return id, true
}

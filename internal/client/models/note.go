// Package models holds the note types shared by the local store, the remote
// client and the services.
package models

import (
	"strings"
	"time"
)

// TimestampLayout is how the client stamps createdAt/updatedAt locally.
// It is ISO-8601 in UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Note is a note as the server returns it.
type Note struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
	CreatorName     string `json:"creator_name"`
	CreatorUsername string `json:"creator_username"`
}

// NotesPage is one page of a paginated note listing. Next and Previous are
// opaque absolute URLs, nil on the last and first page respectively.
type NotesPage struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []Note  `json:"results"`
}

// NoteInput is the body of create, bulk create and full update requests.
type NoteInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// NotePatch is the body of a partial update. Nil fields are not sent.
type NotePatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Empty reports whether the patch carries no field.
func (p NotePatch) Empty() bool {
	return p.Title == nil && p.Description == nil
}

// LocalNote is a note record in the local store together with its sync
// state.
//
// A record with ServerID == nil has never been pushed. IsDeleted marks a
// tombstone waiting for the server to confirm the deletion. A record with a
// ServerID that is neither synced nor deleted carries an update to push.
type LocalNote struct {
	LocalID         int64
	ServerID        *int64
	Title           string
	Description     string
	CreatedAt       *string
	UpdatedAt       *string
	CreatorName     string
	CreatorUsername string
	IsSynced        bool
	IsDeleted       bool
}

// Ref is the identity the rest of the client uses for this record.
func (n *LocalNote) Ref() NoteRef {
	if n.ServerID != nil {
		return Remote(*n.ServerID)
	}
	return Local(n.LocalID)
}

// PendingCreation reports whether the record still has to be created
// remotely.
func (n *LocalNote) PendingCreation() bool {
	return n.ServerID == nil && !n.IsDeleted && !n.IsSynced
}

// PendingUpdate reports whether the record carries an update to push.
func (n *LocalNote) PendingUpdate() bool {
	return n.ServerID != nil && !n.IsDeleted && !n.IsSynced
}

// PendingDelete reports whether the record is an unconfirmed tombstone.
func (n *LocalNote) PendingDelete() bool {
	return n.IsDeleted && !n.IsSynced
}

// ApplyServer copies the server's view of the note into the record and
// marks it synced. The local id is kept.
func (n *LocalNote) ApplyServer(note Note) {
	id := note.ID
	n.ServerID = &id
	n.Title = note.Title
	n.Description = note.Description
	n.CreatedAt = optional(note.CreatedAt)
	n.UpdatedAt = optional(note.UpdatedAt)
	n.CreatorName = note.CreatorName
	n.CreatorUsername = note.CreatorUsername
	n.IsSynced = true
	n.IsDeleted = false
}

// SameContent reports whether a and b agree on every user-visible field.
func (n *LocalNote) SameContent(o *LocalNote) bool {
	return n.Title == o.Title &&
		n.Description == o.Description &&
		deref(n.UpdatedAt) == deref(o.UpdatedAt)
}

// Clone returns a deep copy.
func (n *LocalNote) Clone() *LocalNote {
	c := *n
	if n.ServerID != nil {
		id := *n.ServerID
		c.ServerID = &id
	}
	c.CreatedAt = optional(deref(n.CreatedAt))
	c.UpdatedAt = optional(deref(n.UpdatedAt))
	return &c
}

// LocalFromServer builds a synced record for a note received from the server.
func LocalFromServer(note Note) *LocalNote {
	n := &LocalNote{}
	n.ApplyServer(note)
	return n
}

// Item converts the record into a feed row.
func (n *LocalNote) Item() NoteItem {
	return NoteItem{
		Ref:             n.Ref(),
		Title:           n.Title,
		Description:     n.Description,
		CreatedAt:       deref(n.CreatedAt),
		UpdatedAt:       deref(n.UpdatedAt),
		CreatorName:     n.CreatorName,
		CreatorUsername: n.CreatorUsername,
		Pending:         !n.IsSynced,
	}
}

// NoteItem is what the listing shows for a single note regardless of where
// it was loaded from.
type NoteItem struct {
	Ref             NoteRef
	Title           string
	Description     string
	CreatedAt       string
	UpdatedAt       string
	CreatorName     string
	CreatorUsername string
	Pending         bool
}

// ItemFromNote converts a server note into a feed row.
func ItemFromNote(n Note) NoteItem {
	return NoteItem{
		Ref:             Remote(n.ID),
		Title:           n.Title,
		Description:     n.Description,
		CreatedAt:       n.CreatedAt,
		UpdatedAt:       n.UpdatedAt,
		CreatorName:     n.CreatorName,
		CreatorUsername: n.CreatorUsername,
	}
}

// LastEdited returns the later of CreatedAt and UpdatedAt. Timestamps that do
// not parse lose to ones that do; two unparsable values fall back to
// UpdatedAt when it is set.
func (i NoteItem) LastEdited() string {
	return LastEdited(i.CreatedAt, i.UpdatedAt)
}

func LastEdited(createdAt, updatedAt string) string {
	c, cerr := time.Parse(time.RFC3339Nano, createdAt)
	u, uerr := time.Parse(time.RFC3339Nano, updatedAt)
	switch {
	case cerr == nil && uerr == nil:
		if u.After(c) {
			return updatedAt
		}
		return createdAt
	case uerr == nil:
		return updatedAt
	case cerr == nil:
		return createdAt
	case strings.TrimSpace(updatedAt) != "":
		return updatedAt
	default:
		return createdAt
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

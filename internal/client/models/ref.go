package models

import "fmt"

// RefKind tells which identifier a NoteRef carries.
type RefKind int

const (
	// RefLocal refers to a record that has never been pushed, by local id.
	RefLocal RefKind = iota + 1
	// RefRemote refers to a note by its server id.
	RefRemote
)

// NoteRef identifies a note either by local id or by server id.
type NoteRef struct {
	Kind RefKind
	ID   int64
}

func Local(localID int64) NoteRef { return NoteRef{Kind: RefLocal, ID: localID} }

func Remote(serverID int64) NoteRef { return NoteRef{Kind: RefRemote, ID: serverID} }

func (r NoteRef) IsLocal() bool { return r.Kind == RefLocal }

func (r NoteRef) IsRemote() bool { return r.Kind == RefRemote }

// DisplayID encodes the ref as a single integer for the command line:
// the server id as is, or the negated local id.
func (r NoteRef) DisplayID() int64 {
	if r.Kind == RefLocal {
		return -r.ID
	}
	return r.ID
}

// ParseDisplayID is the inverse of DisplayID.
func ParseDisplayID(id int64) NoteRef {
	if id < 0 {
		return Local(-id)
	}
	return Remote(id)
}

func (r NoteRef) String() string {
	switch r.Kind {
	case RefLocal:
		return fmt.Sprintf("local:%d", r.ID)
	case RefRemote:
		return fmt.Sprintf("remote:%d", r.ID)
	default:
		return "invalid"
	}
}

package models

import "time"

// Note is a stored note joined with its creator.
type Note struct {
	ID              int64
	UserID          int64
	Title           string
	Description     string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CreatorName     string
	CreatorUsername string
}

// NoteFields carries the writable part of a note. Nil pointers are left
// unchanged by partial updates.
type NoteFields struct {
	Title       *string
	Description *string
}

// Package models defines the rows the notes server persists.
package models

import "time"

type User struct {
	ID           int64
	UserName     string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	CreatedAt    time.Time
}

// DisplayName is "First Last", falling back to the username when both are
// empty.
func (u *User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	default:
		return u.UserName
	}
}

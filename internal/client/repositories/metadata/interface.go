// Package metadata keeps the client's account settings: the profile of the
// account that owns the local notes and its session tokens.
package metadata

import (
	"context"
)

const (
	keyUsername     = "username"
	keyEmail        = "email"
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token"
)

// Repository is a string key/value store. Get returns "" for a missing key
// and Put removes keys whose value is empty.
type Repository interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, values map[string]string) error
	Delete(ctx context.Context, keys ...string) error
}

// Profile identifies the account the local store belongs to.
type Profile struct {
	Username string
	Email    string
}

func LoadProfile(ctx context.Context, r Repository) (Profile, error) {
	username, err := r.Get(ctx, keyUsername)
	if err != nil {
		return Profile{}, err
	}
	email, err := r.Get(ctx, keyEmail)
	if err != nil {
		return Profile{}, err
	}
	return Profile{Username: username, Email: email}, nil
}

func SaveProfile(ctx context.Context, r Repository, p Profile) error {
	return r.Put(ctx, map[string]string{keyUsername: p.Username, keyEmail: p.Email})
}

// Owner is the username of the stored profile, "" when nobody logged in yet.
func Owner(ctx context.Context, r Repository) (string, error) {
	return r.Get(ctx, keyUsername)
}

// Tokens is the stored session.
type Tokens struct {
	Access  string
	Refresh string
}

func LoadTokens(ctx context.Context, r Repository) (Tokens, error) {
	access, err := r.Get(ctx, keyAccessToken)
	if err != nil {
		return Tokens{}, err
	}
	refresh, err := r.Get(ctx, keyRefreshToken)
	if err != nil {
		return Tokens{}, err
	}
	return Tokens{Access: access, Refresh: refresh}, nil
}

// SaveTokens stores t. An empty Refresh keeps the stored refresh token.
func SaveTokens(ctx context.Context, r Repository, t Tokens) error {
	values := map[string]string{keyAccessToken: t.Access}
	if t.Refresh != "" {
		values[keyRefreshToken] = t.Refresh
	}
	return r.Put(ctx, values)
}

// ClearTokens drops the session. The profile stays.
func ClearTokens(ctx context.Context, r Repository) error {
	return r.Delete(ctx, keyAccessToken, keyRefreshToken)
}

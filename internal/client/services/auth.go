package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/notekeeper/internal/client/client"
	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/notes"
	"github.com/dmitrijs2005/notekeeper/internal/client/session"
	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/dbx"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
)

// AuthService manages the account the local store belongs to.
//
//   - Login authenticates online, stores the tokens and the owner name.
//   - Register creates the account and logs in.
//   - Logout drops the tokens but keeps the notes for offline use.
//   - Restore resumes a stored session at start-up without the network.
//   - Profile reads the stored account details, offline as well.
type AuthService interface {
	Login(ctx context.Context, username, password string) error
	Register(ctx context.Context, req client.RegisterRequest) error
	Logout(ctx context.Context) error
	Restore(ctx context.Context) (bool, error)
	Profile(ctx context.Context) (metadata.Profile, error)
	ChangePassword(ctx context.Context, req PasswordChange) (string, error)
	Ping(ctx context.Context) error
}

// PasswordChange is the input of AuthService.ChangePassword. Confirm must
// repeat New.
type PasswordChange struct {
	Old     string
	New     string
	Confirm string
}

var (
	ErrPasswordFields   = fmt.Errorf("%w: Please fill in all required fields", common.ErrorValidation)
	ErrPasswordMismatch = fmt.Errorf("%w: Passwords do not match", common.ErrorValidation)
)

type authService struct {
	client  client.AuthAPI
	tokens  client.TokenStore
	db      *sql.DB
	session *session.Session
	logger  logging.Logger
}

func NewAuthService(c client.AuthAPI, tokens client.TokenStore, db *sql.DB, s *session.Session, logger logging.Logger) AuthService {
	return &authService{client: c, tokens: tokens, db: db, session: s, logger: logger.With("component", "auth")}
}

func (a *authService) getMetadataRepo(db dbx.DBTX) metadata.Repository {
	return metadata.NewSQLiteRepository(db)
}

func (a *authService) Login(ctx context.Context, username, password string) error {
	if err := a.client.Login(ctx, username, password); err != nil {
		return fmt.Errorf("login error: %w", err)
	}

	profile := metadata.Profile{Username: username}
	if info, err := a.client.UserInfo(ctx); err != nil {
		a.logger.Warn(ctx, "user info unavailable, using login name", "error", err)
	} else {
		if info.Username != "" {
			profile.Username = info.Username
		}
		profile.Email = info.Email
	}

	if err := a.saveProfile(ctx, profile); err != nil {
		return fmt.Errorf("owner saving error: %w", err)
	}

	a.session.Login(profile.Username)
	a.logger.Info(ctx, "logged in", "username", profile.Username)
	return nil
}

// saveProfile records the account of the local store. Notes left by a
// different account are discarded: they could otherwise be pushed with the
// new account's credentials. A missing email keeps the stored one of the
// same account.
func (a *authService) saveProfile(ctx context.Context, p metadata.Profile) error {
	return dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := a.getMetadataRepo(tx)
		previous, err := metadata.LoadProfile(ctx, repo)
		if err != nil {
			return err
		}
		if previous.Username != "" && previous.Username != p.Username {
			a.logger.Warn(ctx, "different account, clearing local notes", "previous", previous.Username)
			if err := notes.NewSQLiteRepository(tx).Clear(ctx); err != nil {
				return err
			}
		} else if p.Email == "" {
			p.Email = previous.Email
		}
		return metadata.SaveProfile(ctx, repo, p)
	})
}

func (a *authService) Register(ctx context.Context, req client.RegisterRequest) error {
	if _, err := a.client.Register(ctx, req); err != nil {
		return fmt.Errorf("register error: %w", err)
	}
	return a.Login(ctx, req.Username, req.Password)
}

func (a *authService) Logout(ctx context.Context) error {
	if err := a.tokens.ClearTokens(ctx); err != nil {
		return fmt.Errorf("clear tokens: %w", err)
	}
	a.session.Logout()
	return nil
}

func (a *authService) Restore(ctx context.Context) (bool, error) {
	owner, err := metadata.Owner(ctx, a.getMetadataRepo(a.db))
	if err != nil {
		return false, err
	}
	pair, err := a.tokens.Tokens(ctx)
	if err != nil {
		return false, err
	}
	if owner == "" || pair.Refresh == "" {
		return false, nil
	}
	a.session.Login(owner)
	return true, nil
}

func (a *authService) Profile(ctx context.Context) (metadata.Profile, error) {
	return metadata.LoadProfile(ctx, a.getMetadataRepo(a.db))
}

// ChangePassword needs the server; there is no offline fallback. The
// returned string is the server's confirmation.
func (a *authService) ChangePassword(ctx context.Context, req PasswordChange) (string, error) {
	if strings.TrimSpace(req.Old) == "" || strings.TrimSpace(req.New) == "" || strings.TrimSpace(req.Confirm) == "" {
		return "", ErrPasswordFields
	}
	if req.New != req.Confirm {
		return "", ErrPasswordMismatch
	}
	msg, err := a.client.ChangePassword(ctx, req.Old, req.New)
	if err != nil {
		return "", fmt.Errorf("change password error: %w", err)
	}
	a.logger.Info(ctx, "password changed", "username", a.session.Username())
	return msg, nil
}

func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

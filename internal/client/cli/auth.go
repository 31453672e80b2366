package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/notekeeper/internal/client/client"
	"github.com/dmitrijs2005/notekeeper/internal/client/services"
	"github.com/dmitrijs2005/notekeeper/internal/common"
)

// getSimpleText, getPassword and getSecret are indirections used to
// facilitate testing.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
	getSecret     = GetSecret
)

// Register prompts for the account details, creates the account and logs
// in with it.
func (a *App) Register(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	err = a.auth.Register(ctx, client.RegisterRequest{
		Username: username,
		Email:    email,
		Password: string(password),
	})
	if err != nil {
		return a.fail(err)
	}

	a.setMode(ModeOnline)
	fmt.Fprintf(a.out, "Welcome, %s!\n", a.session.Username())
	return nil
}

// Login prompts for credentials and authenticates online. Login needs the
// server; notes created while offline stay local until it succeeds.
func (a *App) Login(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.auth.Login(ctx, username, string(password)); err != nil {
		if client.IsTransportFailure(err) {
			a.setMode(ModeOffline)
		}
		return a.fail(err)
	}

	a.setMode(ModeOnline)
	fmt.Fprintf(a.out, "Logged in as %s\n", a.session.Username())
	return nil
}

// Logout drops the credentials. Local notes are kept.
func (a *App) Logout(ctx context.Context) error {
	if err := a.auth.Logout(ctx); err != nil {
		return a.fail(err)
	}
	return nil
}

// WhoAmI prints the stored account. It works offline.
func (a *App) WhoAmI(ctx context.Context) error {
	p, err := a.auth.Profile(ctx)
	if err != nil {
		return a.fail(err)
	}
	username, email := p.Username, p.Email
	if username == "" {
		username = "Username not found"
	}
	if email == "" {
		email = "Email not found"
	}
	fmt.Fprintf(a.out, "Username: %s\nEmail:    %s\n", username, email)
	return nil
}

// ChangePassword asks for the current password and the new one twice.
func (a *App) ChangePassword(ctx context.Context) error {
	var secrets [3][]byte
	defer func() {
		for _, s := range secrets {
			common.WipeByteArray(s)
		}
	}()
	for i, prompt := range []string{"Current password", "New password", "Repeat new password"} {
		s, err := getSecret(a.out, prompt)
		if err != nil {
			return err
		}
		secrets[i] = s
	}

	msg, err := a.auth.ChangePassword(ctx, services.PasswordChange{
		Old:     string(secrets[0]),
		New:     string(secrets[1]),
		Confirm: string(secrets[2]),
	})
	if err != nil {
		return a.fail(err)
	}
	fmt.Fprintln(a.out, msg)
	return nil
}

// fail prints err for the user and returns it.
func (a *App) fail(err error) error {
	if client.IsTransportFailure(err) {
		fmt.Fprintln(a.out, "Server is unreachable, try again later")
		return err
	}
	fmt.Fprintf(a.out, "Error: %s\n", client.ErrorMessage(err))
	return err
}

package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/multichat/internal/api"
	"github.com/dmitrijs2005/multichat/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

func (a *App) credentials() (string, []byte, error) {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return "", nil, err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return "", nil, err
	}
	return email, password, nil
}

// Register prompts for an email and password, creates the account and
// starts a session for it.
func (a *App) Register(ctx context.Context) error {
	email, password, err := a.credentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	res, err := a.api.SignUp(ctx, email, string(password))
	if err != nil {
		return err
	}
	return a.loggedIn(ctx, res)
}

// Login prompts for credentials and starts a session.
func (a *App) Login(ctx context.Context) error {
	email, password, err := a.credentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	res, err := a.api.SignIn(ctx, email, string(password))
	if err != nil {
		return err
	}
	return a.loggedIn(ctx, res)
}

func (a *App) loggedIn(ctx context.Context, res *api.AuthResult) error {
	a.startSession(res)
	fmt.Fprintf(a.out, "Logged in as %s\n", a.email)

	list, err := a.api.AvailableModels(ctx)
	if err != nil {
		return fmt.Errorf("loading models: %w", err)
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No models available")
		return nil
	}
	a.modelTag = list[0].Tag
	fmt.Fprintf(a.out, "Using model %s (%s)\n", list[0].Name, list[0].Tag)
	return nil
}

// Logout revokes the session on the server and forgets it locally. The
// local session is cleared even when the server call fails.
func (a *App) Logout(ctx context.Context) error {
	defer a.endSession()
	if err := a.api.SignOut(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

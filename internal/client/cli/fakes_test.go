package cli

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/multichat/internal/api"
	"github.com/dmitrijs2005/multichat/internal/common"
	"github.com/dmitrijs2005/multichat/internal/server/models"
)

var base = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

// fakeAPI records calls. When expired is set, protected calls fail with
// UNAUTHORIZED until Refresh succeeds.
type fakeAPI struct {
	calls []string

	signUpErr, signInErr, signOutErr, refreshErr error
	modelsErr, sendErr, historyErr, deleteErr    error

	expired bool

	password string
	models   []models.Model
	history  []models.Message
}

func newFakeAPI() *fakeAPI {
	desc := "small"
	return &fakeAPI{
		models: []models.Model{
			{ID: "m1", Tag: "gpt-4o-mini", Name: "GPT-4o mini", Description: &desc, CreatedAt: base},
			{ID: "m2", Tag: "echo", Name: "Echo", CreatedAt: base},
		},
	}
}

func authResult(email, refresh string) *api.AuthResult {
	u := &models.User{ID: "u1", Email: email, CreatedAt: base}
	return &api.AuthResult{User: u, Session: &models.Session{AccessToken: "a", RefreshToken: refresh, User: u}}
}

func (f *fakeAPI) protected(name string) error {
	f.calls = append(f.calls, name)
	if f.expired {
		return fmt.Errorf("%w: token expired", common.ErrorUnauthorized)
	}
	return nil
}

func (f *fakeAPI) SignUp(_ context.Context, email, password string) (*api.AuthResult, error) {
	f.calls = append(f.calls, "signUp "+email)
	f.password = password
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	return authResult(email, "r1"), nil
}

func (f *fakeAPI) SignIn(_ context.Context, email, password string) (*api.AuthResult, error) {
	f.calls = append(f.calls, "signIn "+email)
	f.password = password
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	return authResult(email, "r1"), nil
}

func (f *fakeAPI) SignOut(context.Context) error {
	f.calls = append(f.calls, "signOut")
	return f.signOutErr
}

func (f *fakeAPI) Refresh(_ context.Context, token string) (*api.AuthResult, error) {
	f.calls = append(f.calls, "refresh "+token)
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	f.expired = false
	return authResult("alice@example.com", "r2"), nil
}

func (f *fakeAPI) AvailableModels(context.Context) ([]models.Model, error) {
	if err := f.protected("models"); err != nil {
		return nil, err
	}
	return f.models, f.modelsErr
}

func (f *fakeAPI) Send(_ context.Context, tag, prompt string) (*api.SendResult, error) {
	if err := f.protected("send " + tag + " " + prompt); err != nil {
		return nil, err
	}
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	u := models.Message{ID: "q", ModelTag: tag, Role: models.RoleUser, Content: prompt, CreatedAt: base}
	r := models.Message{ID: "r", ModelTag: tag, Role: models.RoleAssistant, Content: `You said: "` + prompt + `"`, CreatedAt: base}
	f.history = append(f.history, u, r)
	return &api.SendResult{UserMessage: &u, AssistantMessage: &r}, nil
}

func (f *fakeAPI) History(context.Context) ([]models.Message, error) {
	if err := f.protected("history"); err != nil {
		return nil, err
	}
	return f.history, f.historyErr
}

func (f *fakeAPI) DeleteMessage(_ context.Context, id string) error {
	if err := f.protected("delete " + id); err != nil {
		return err
	}
	return f.deleteErr
}

func newTestApp(f *fakeAPI) (*App, *bytes.Buffer) {
	var out bytes.Buffer
	return &App{api: f, out: &out}, &out
}

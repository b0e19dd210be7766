package cli

import (
	"context"
	"time"

	"github.com/dmitrijs2005/multichat/internal/api"
	"github.com/dmitrijs2005/multichat/internal/server/models"
)

// timeoutAPI bounds every call with a deadline. The HTTP transport gets
// the same bound from http.Client.Timeout.
type timeoutAPI struct {
	next    chatAPI
	timeout time.Duration
}

func (t timeoutAPI) ctx(ctx context.Context) (context.Context, context.CancelFunc) {
	if t.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, t.timeout)
}

func (t timeoutAPI) SignUp(ctx context.Context, email, password string) (*api.AuthResult, error) {
	ctx, cancel := t.ctx(ctx)
	defer cancel()
	return t.next.SignUp(ctx, email, password)
}

func (t timeoutAPI) SignIn(ctx context.Context, email, password string) (*api.AuthResult, error) {
	ctx, cancel := t.ctx(ctx)
	defer cancel()
	return t.next.SignIn(ctx, email, password)
}

func (t timeoutAPI) SignOut(ctx context.Context) error {
	ctx, cancel := t.ctx(ctx)
	defer cancel()
	return t.next.SignOut(ctx)
}

func (t timeoutAPI) Refresh(ctx context.Context, refreshToken string) (*api.AuthResult, error) {
	ctx, cancel := t.ctx(ctx)
	defer cancel()
	return t.next.Refresh(ctx, refreshToken)
}

func (t timeoutAPI) AvailableModels(ctx context.Context) ([]models.Model, error) {
	ctx, cancel := t.ctx(ctx)
	defer cancel()
	return t.next.AvailableModels(ctx)
}

func (t timeoutAPI) Send(ctx context.Context, modelTag, prompt string) (*api.SendResult, error) {
	ctx, cancel := t.ctx(ctx)
	defer cancel()
	return t.next.Send(ctx, modelTag, prompt)
}

func (t timeoutAPI) History(ctx context.Context) ([]models.Message, error) {
	ctx, cancel := t.ctx(ctx)
	defer cancel()
	return t.next.History(ctx)
}

func (t timeoutAPI) DeleteMessage(ctx context.Context, messageID string) error {
	ctx, cancel := t.ctx(ctx)
	defer cancel()
	return t.next.DeleteMessage(ctx, messageID)
}

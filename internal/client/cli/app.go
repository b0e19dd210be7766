package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/dmitrijs2005/multichat/internal/api"
	"github.com/dmitrijs2005/multichat/internal/client/config"
	"github.com/dmitrijs2005/multichat/internal/client/grpcclient"
	"github.com/dmitrijs2005/multichat/internal/client/rpc"
	"github.com/dmitrijs2005/multichat/internal/common"
	"github.com/dmitrijs2005/multichat/internal/server/models"
)

// chatAPI is the part of rpc.Client the REPL uses.
type chatAPI interface {
	SignUp(ctx context.Context, email, password string) (*api.AuthResult, error)
	SignIn(ctx context.Context, email, password string) (*api.AuthResult, error)
	SignOut(ctx context.Context) error
	Refresh(ctx context.Context, refreshToken string) (*api.AuthResult, error)
	AvailableModels(ctx context.Context) ([]models.Model, error)
	Send(ctx context.Context, modelTag, prompt string) (*api.SendResult, error)
	History(ctx context.Context) ([]models.Message, error)
	DeleteMessage(ctx context.Context, messageID string) error
}

type App struct {
	config *config.Config
	api    chatAPI
	closer io.Closer
	reader *bufio.Reader
	out    io.Writer

	email        string
	refreshToken string
	modelTag     string
}

// NewApp picks the transport: gRPC when GRPCAddr is set, HTTP otherwise.
func NewApp(c *config.Config) (*App, error) {
	a := &App{config: c, reader: bufio.NewReader(os.Stdin), out: os.Stdout}

	if c.GRPCAddr != "" {
		client, err := grpcclient.New(c.GRPCAddr)
		if err != nil {
			return nil, fmt.Errorf("connecting to %s: %w", c.GRPCAddr, err)
		}
		a.api = timeoutAPI{next: client, timeout: c.RequestTimeout}
		a.closer = client
		return a, nil
	}

	a.api = rpc.New(c.ServerURL, rpc.WithHTTPClient(&http.Client{Timeout: c.RequestTimeout}))
	return a, nil
}

func (a *App) endpoint() string {
	if a.config.GRPCAddr != "" {
		return "grpc://" + a.config.GRPCAddr
	}
	return a.config.ServerURL
}

// Run blocks in the REPL until the user exits or stdin is closed.
func (a *App) Run(ctx context.Context) {
	if a.closer != nil {
		defer a.closer.Close()
	}
	fmt.Fprintf(a.out, "Welcome to multichat (%s), type 'help' for commands\n", a.endpoint())
	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) isLoggedIn() bool {
	return a.email != ""
}

func (a *App) getStatus() string {
	s := a.email
	if a.modelTag != "" {
		if s != "" {
			s += " "
		}
		s += "@" + a.modelTag
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

func (a *App) startSession(res *api.AuthResult) {
	if res.User != nil {
		a.email = res.User.Email
	}
	if res.Session != nil {
		a.refreshToken = res.Session.RefreshToken
	}
}

func (a *App) endSession() {
	a.email = ""
	a.refreshToken = ""
	a.modelTag = ""
}

// withRefresh runs fn and, when the server rejects the access token,
// exchanges the refresh token for a new session and runs fn once more.
func (a *App) withRefresh(ctx context.Context, fn func() error) error {
	err := fn()
	if err == nil || !errors.Is(err, common.ErrorUnauthorized) || a.refreshToken == "" {
		return err
	}

	res, rerr := a.api.Refresh(ctx, a.refreshToken)
	if rerr != nil {
		a.endSession()
		return fmt.Errorf("session expired, please login again: %w", err)
	}
	a.startSession(res)
	return fn()
}

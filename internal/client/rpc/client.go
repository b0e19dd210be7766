// Package rpc is a typed client for the batched HTTP RPC endpoint. Inputs
// and results travel in superjson envelopes; failures come back as *Error.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/dmitrijs2005/multichat/internal/api"
	"github.com/dmitrijs2005/multichat/internal/common"
	"github.com/dmitrijs2005/multichat/internal/server/models"
	"github.com/dmitrijs2005/multichat/internal/superjson"
)

type Kind int

const (
	Query Kind = iota
	Mutation
)

// Call is one entry of a batch. Output, when set, receives the decoded
// result; Err receives the procedure's failure.
type Call struct {
	Path   string
	Kind   Kind
	Input  any
	Output any
	Err    error
}

type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{baseURL: strings.TrimRight(baseURL, "/"), http: http.DefaultClient}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SetToken sets the access token sent with every call; empty clears it.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

type wireResponse struct {
	Result *struct {
		Data superjson.Envelope `json:"data"`
	} `json:"result"`
	Error *superjson.Envelope `json:"error"`
}

type wireError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
	Data    struct {
		Code       common.ErrorKind `json:"code"`
		HTTPStatus int              `json:"httpStatus"`
		Path       string           `json:"path"`
	} `json:"data"`
}

// Batch sends calls in one HTTP request. All calls must be of the same
// kind. The returned error covers transport failures only; per-call
// failures are stored in Call.Err.
func (c *Client) Batch(ctx context.Context, calls ...*Call) error {
	if len(calls) == 0 {
		return nil
	}

	kind := calls[0].Kind
	paths := make([]string, len(calls))
	inputs := make(map[string]superjson.Envelope, len(calls))
	for i, call := range calls {
		if call.Kind != kind {
			return errors.New("rpc: queries and mutations cannot share a batch")
		}
		paths[i] = call.Path
		if call.Input == nil {
			continue
		}
		env, err := superjson.Marshal(call.Input)
		if err != nil {
			return fmt.Errorf("rpc: encoding input of %s: %w", call.Path, err)
		}
		inputs[strconv.Itoa(i)] = env
	}

	payload, err := json.Marshal(inputs)
	if err != nil {
		return fmt.Errorf("rpc: encoding batch: %w", err)
	}

	req, err := c.newRequest(ctx, kind, strings.Join(paths, ","), payload)
	if err != nil {
		return err
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("rpc: sending request: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("rpc: reading response: %w", err)
	}

	var out []wireResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return fmt.Errorf("%w (status %d): %s", ErrUnexpectedResponse, res.StatusCode, truncate(string(body), 200))
	}
	if len(out) != len(calls) {
		return fmt.Errorf("%w: %d results for %d calls", ErrUnexpectedResponse, len(out), len(calls))
	}

	for i, call := range calls {
		call.Err = decodeOne(out[i], call)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, kind Kind, paths string, payload []byte) (*http.Request, error) {
	target := c.baseURL + "/api/trpc/" + paths + "?batch=1"

	var (
		req *http.Request
		err error
	)
	if kind == Query {
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, target+"&input="+url.QueryEscape(string(payload)), nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
		if req != nil {
			req.Header.Set("Content-Type", "application/json")
		}
	}
	if err != nil {
		return nil, fmt.Errorf("rpc: building request: %w", err)
	}

	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", common.BearerPrefix+token)
	}
	return req, nil
}

func decodeOne(r wireResponse, call *Call) error {
	switch {
	case r.Error != nil:
		var we wireError
		if err := superjson.Unmarshal(*r.Error, &we); err != nil {
			return fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
		}
		return &Error{
			Kind:       we.Data.Code,
			Message:    we.Message,
			Code:       we.Code,
			HTTPStatus: we.Data.HTTPStatus,
			Path:       we.Data.Path,
		}
	case r.Result != nil:
		if call.Output == nil {
			return nil
		}
		return superjson.Unmarshal(r.Result.Data, call.Output)
	default:
		return fmt.Errorf("%w: empty entry for %s", ErrUnexpectedResponse, call.Path)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func (c *Client) call(ctx context.Context, kind Kind, path string, in, out any) error {
	call := &Call{Path: path, Kind: kind, Input: in, Output: out}
	if err := c.Batch(ctx, call); err != nil {
		return err
	}
	return call.Err
}

// --- typed procedures ---

// SignUp registers a user and keeps the new access token.
func (c *Client) SignUp(ctx context.Context, email, password string) (*api.AuthResult, error) {
	var out api.AuthResult
	if err := c.call(ctx, Mutation, api.ProcSignUp, api.SignUpInput{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	c.keepSession(out.Session)
	return &out, nil
}

// SignIn authenticates and keeps the new access token.
func (c *Client) SignIn(ctx context.Context, email, password string) (*api.AuthResult, error) {
	var out api.AuthResult
	if err := c.call(ctx, Mutation, api.ProcSignIn, api.SignInInput{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	c.keepSession(out.Session)
	return &out, nil
}

// SignOut revokes the server-side refresh tokens and forgets the access token.
func (c *Client) SignOut(ctx context.Context) error {
	var out api.SuccessResult
	if err := c.call(ctx, Mutation, api.ProcSignOut, nil, &out); err != nil {
		return err
	}
	c.SetToken("")
	return nil
}

func (c *Client) GetUser(ctx context.Context) (*models.User, error) {
	var out models.User
	if err := c.call(ctx, Query, api.ProcGetUser, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh exchanges a refresh token for a new session and keeps its access token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*api.AuthResult, error) {
	var out api.AuthResult
	if err := c.call(ctx, Mutation, api.ProcRefresh, api.RefreshInput{RefreshToken: refreshToken}, &out); err != nil {
		return nil, err
	}
	c.keepSession(out.Session)
	return &out, nil
}

func (c *Client) AvailableModels(ctx context.Context) ([]models.Model, error) {
	var out []models.Model
	if err := c.call(ctx, Query, api.ProcModelsAvailable, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Send(ctx context.Context, modelTag, prompt string) (*api.SendResult, error) {
	var out api.SendResult
	if err := c.call(ctx, Mutation, api.ProcChatSend, api.NewSendInput(modelTag, prompt), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) History(ctx context.Context) ([]models.Message, error) {
	var out []models.Message
	if err := c.call(ctx, Query, api.ProcChatHistory, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteMessage(ctx context.Context, messageID string) error {
	var out api.SuccessResult
	return c.call(ctx, Mutation, api.ProcChatDelete, api.NewDeleteMessageInput(messageID), &out)
}

func (c *Client) keepSession(s *models.Session) {
	if s != nil {
		c.SetToken(s.AccessToken)
	}
}

package grpcclient

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/multichat/internal/api"
	"github.com/dmitrijs2005/multichat/internal/common"
	relay "github.com/dmitrijs2005/multichat/internal/server/grpc"
	"github.com/dmitrijs2005/multichat/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type GRPCClient struct {
	conn *grpc.ClientConn

	mu          sync.RWMutex
	accessToken string
}

// New connects lazily to addr; extra options are appended to the defaults
// (insecure transport, JSON codec, token interceptor).
func New(addr string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{}

	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(relay.CodecName)),
	}, opts...)

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	return c, nil
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

func (c *GRPCClient) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

func (c *GRPCClient) setToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = token
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	md.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	return metadata.NewOutgoingContext(ctx, md)
}

func (c *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if token := c.token(); token != "" {
		ctx = withAccessToken(ctx, token)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

// mapError turns a gRPC status back into the shared sentinel errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	msg := st.Message()
	switch st.Code() {
	case codes.Unauthenticated:
		return fmt.Errorf("%w: %s", common.ErrorUnauthorized, strings.TrimPrefix(msg, common.ErrorUnauthorized.Error()+": "))
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", common.ErrorBadRequest, strings.TrimPrefix(msg, common.ErrorBadRequest.Error()+": "))
	case codes.NotFound:
		return fmt.Errorf("%w: %s", common.ErrorNotFound, strings.TrimPrefix(msg, common.ErrorNotFound.Error()+": "))
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", ErrUnavailable, msg)
	default:
		return fmt.Errorf("%w: %s", common.ErrorInternal, msg)
	}
}

func (c *GRPCClient) invoke(ctx context.Context, method string, in, out any) error {
	if in == nil {
		in = api.Empty{}
	}
	return mapError(c.conn.Invoke(ctx, relay.FullMethod(method), in, out))
}

func (c *GRPCClient) authenticate(ctx context.Context, method string, in any) (*api.AuthResult, error) {
	var out api.AuthResult
	if err := c.invoke(ctx, method, in, &out); err != nil {
		return nil, err
	}
	if out.Session != nil {
		c.setToken(out.Session.AccessToken)
	}
	return &out, nil
}

func (c *GRPCClient) SignUp(ctx context.Context, email, password string) (*api.AuthResult, error) {
	return c.authenticate(ctx, "SignUp", api.SignUpInput{Email: email, Password: password})
}

func (c *GRPCClient) SignIn(ctx context.Context, email, password string) (*api.AuthResult, error) {
	return c.authenticate(ctx, "SignIn", api.SignInInput{Email: email, Password: password})
}

func (c *GRPCClient) Refresh(ctx context.Context, refreshToken string) (*api.AuthResult, error) {
	return c.authenticate(ctx, "Refresh", api.RefreshInput{RefreshToken: refreshToken})
}

func (c *GRPCClient) SignOut(ctx context.Context) error {
	var out api.SuccessResult
	if err := c.invoke(ctx, "SignOut", nil, &out); err != nil {
		return err
	}
	c.setToken("")
	return nil
}

func (c *GRPCClient) GetUser(ctx context.Context) (*models.User, error) {
	var out models.User
	if err := c.invoke(ctx, "GetUser", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *GRPCClient) AvailableModels(ctx context.Context) ([]models.Model, error) {
	var out []models.Model
	if err := c.invoke(ctx, "GetAvailableModels", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *GRPCClient) Send(ctx context.Context, modelTag, prompt string) (*api.SendResult, error) {
	var out api.SendResult
	if err := c.invoke(ctx, "Send", api.NewSendInput(modelTag, prompt), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *GRPCClient) History(ctx context.Context) ([]models.Message, error) {
	var out []models.Message
	if err := c.invoke(ctx, "History", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *GRPCClient) DeleteMessage(ctx context.Context, messageID string) error {
	var out api.SuccessResult
	return c.invoke(ctx, "DeleteMessage", api.NewDeleteMessageInput(messageID), &out)
}

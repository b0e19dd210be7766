// Package rpc is the procedure catalog shared by the HTTP and gRPC
// transports. Each procedure knows whether it is a query or a mutation,
// whether it sits behind the identity gate, how to decode its input and
// which service call serves it.
package rpc

import (
	"context"
	"fmt"
	"sort"

	"github.com/dmitrijs2005/multichat/internal/api"
	"github.com/dmitrijs2005/multichat/internal/common"
	"github.com/dmitrijs2005/multichat/internal/server/auth"
	"github.com/dmitrijs2005/multichat/internal/server/models"
)

type Kind int

const (
	Query Kind = iota
	Mutation
)

func (k Kind) String() string {
	if k == Mutation {
		return "mutation"
	}
	return "query"
}

// Users is the identity provider as seen by the transports.
type Users interface {
	SignUp(ctx context.Context, in api.SignUpInput) (*api.AuthResult, error)
	SignIn(ctx context.Context, in api.SignInInput) (*api.AuthResult, error)
	SignOut(ctx context.Context, uc auth.UserContext) (*api.SuccessResult, error)
	GetUser(ctx context.Context, uc auth.UserContext) (*models.User, error)
	Refresh(ctx context.Context, in api.RefreshInput) (*api.AuthResult, error)
}

type Catalog interface {
	GetAvailable(ctx context.Context, uc auth.UserContext) ([]models.Model, error)
}

type Chat interface {
	Send(ctx context.Context, uc auth.UserContext, in api.SendInput) (*api.SendResult, error)
	History(ctx context.Context, uc auth.UserContext) ([]models.Message, error)
	DeleteMessage(ctx context.Context, uc auth.UserContext, in api.DeleteMessageInput) (*api.SuccessResult, error)
}

// Procedure is one callable entry of the catalog.
type Procedure struct {
	Name      string
	Method    string // gRPC method name
	Kind      Kind
	Protected bool

	newInput func() any
	invoke   func(ctx context.Context, uc auth.UserContext, in any) (any, error)
}

// Call runs the procedure. The gate is applied before the input is
// decoded; dec fills the input value and may be called at most once.
func (p Procedure) Call(ctx context.Context, dec func(any) error) (any, error) {
	var uc auth.UserContext
	if p.Protected {
		var err error
		if uc, err = auth.RequireContext(ctx); err != nil {
			return nil, err
		}
	}

	in := p.newInput()
	if err := dec(in); err != nil {
		return nil, fmt.Errorf("%w: invalid input: %v", common.ErrorBadRequest, err)
	}
	return p.invoke(ctx, uc, in)
}

func procedure[In any, Out any](name, method string, kind Kind, protected bool, fn func(context.Context, auth.UserContext, In) (Out, error)) Procedure {
	return Procedure{
		Name:      name,
		Method:    method,
		Kind:      kind,
		Protected: protected,
		newInput:  func() any { return new(In) },
		invoke: func(ctx context.Context, uc auth.UserContext, in any) (any, error) {
			return fn(ctx, uc, *in.(*In))
		},
	}
}

// Registry maps procedure names to procedures.
type Registry struct {
	procs map[string]Procedure
}

func NewRegistry(users Users, catalog Catalog, chat Chat) *Registry {
	list := []Procedure{
		procedure(api.ProcSignUp, "SignUp", Mutation, false,
			func(ctx context.Context, _ auth.UserContext, in api.SignUpInput) (*api.AuthResult, error) {
				return users.SignUp(ctx, in)
			}),
		procedure(api.ProcSignIn, "SignIn", Mutation, false,
			func(ctx context.Context, _ auth.UserContext, in api.SignInInput) (*api.AuthResult, error) {
				return users.SignIn(ctx, in)
			}),
		procedure(api.ProcSignOut, "SignOut", Mutation, true,
			func(ctx context.Context, uc auth.UserContext, _ api.Empty) (*api.SuccessResult, error) {
				return users.SignOut(ctx, uc)
			}),
		procedure(api.ProcGetUser, "GetUser", Query, true,
			func(ctx context.Context, uc auth.UserContext, _ api.Empty) (*models.User, error) {
				return users.GetUser(ctx, uc)
			}),
		procedure(api.ProcRefresh, "Refresh", Mutation, false,
			func(ctx context.Context, _ auth.UserContext, in api.RefreshInput) (*api.AuthResult, error) {
				return users.Refresh(ctx, in)
			}),
		procedure(api.ProcModelsAvailable, "GetAvailableModels", Query, true,
			func(ctx context.Context, uc auth.UserContext, _ api.Empty) ([]models.Model, error) {
				return catalog.GetAvailable(ctx, uc)
			}),
		procedure(api.ProcChatSend, "Send", Mutation, true,
			func(ctx context.Context, uc auth.UserContext, in api.SendInput) (*api.SendResult, error) {
				return chat.Send(ctx, uc, in)
			}),
		procedure(api.ProcChatHistory, "History", Query, true,
			func(ctx context.Context, uc auth.UserContext, _ api.Empty) ([]models.Message, error) {
				return chat.History(ctx, uc)
			}),
		procedure(api.ProcChatDelete, "DeleteMessage", Mutation, true,
			func(ctx context.Context, uc auth.UserContext, in api.DeleteMessageInput) (*api.SuccessResult, error) {
				return chat.DeleteMessage(ctx, uc, in)
			}),
	}

	r := &Registry{procs: make(map[string]Procedure, len(list))}
	for _, p := range list {
		r.procs[p.Name] = p
	}
	return r
}

func (r *Registry) Lookup(name string) (Procedure, bool) {
	p, ok := r.procs[name]
	return p, ok
}

// Procedures returns every procedure sorted by name.
func (r *Registry) Procedures() []Procedure {
	out := make([]Procedure, 0, len(r.procs))
	for _, p := range r.procs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

package grpc

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/multichat/internal/common"
	"github.com/dmitrijs2005/multichat/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// identityInterceptor resolves the caller from the authorization metadata
// on every call and rejects anonymous calls to protected methods.
func (s *GRPCServer) identityInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	var authorization string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		values := md.Get(common.AuthorizationHeaderName)
		if len(values) > 0 {
			authorization = values[0]
		}
	}

	ctx = auth.WithIdentity(ctx, s.resolver.Resolve(ctx, authorization))

	if s.protected[info.FullMethod] {
		if _, err := auth.RequireContext(ctx); err != nil {
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}
	}

	return handler(ctx, req)
}

// recoveryInterceptor turns a handler panic into codes.Internal.
func (s *GRPCServer) recoveryInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error(ctx, "handler panicked", "method", info.FullMethod, "panic", fmt.Sprint(p))
			resp, err = nil, status.Error(codes.Internal, common.ErrorInternal.Error())
		}
	}()
	return handler(ctx, req)
}

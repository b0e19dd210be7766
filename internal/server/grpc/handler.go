package grpc

import (
	"context"

	"github.com/dmitrijs2005/multichat/internal/common"
	"github.com/dmitrijs2005/multichat/internal/server/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func (s *GRPCServer) serviceDesc() *grpc.ServiceDesc {
	desc := &grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*any)(nil),
		Metadata:    "multichat/v1/relay",
	}
	for _, p := range s.registry.Procedures() {
		desc.Methods = append(desc.Methods, grpc.MethodDesc{
			MethodName: p.Method,
			Handler:    s.handler(p),
		})
	}
	return desc
}

// handler adapts a procedure to a unary method. Decoding is deferred to
// the procedure, so interceptors see a nil request.
func (s *GRPCServer) handler(p rpc.Procedure) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		call := func(ctx context.Context, _ any) (any, error) {
			out, err := p.Call(ctx, dec)
			if err != nil {
				return nil, s.toStatus(ctx, p.Name, err)
			}
			return out, nil
		}
		if interceptor == nil {
			return call(ctx, nil)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(p.Method)}
		return interceptor(ctx, nil, info, call)
	}
}

var statusCodes = map[common.ErrorKind]codes.Code{
	common.KindUnauthorized: codes.Unauthenticated,
	common.KindBadRequest:   codes.InvalidArgument,
	common.KindNotFound:     codes.NotFound,
	common.KindInternal:     codes.Internal,
}

func (s *GRPCServer) toStatus(ctx context.Context, name string, err error) error {
	kind := common.KindOf(err)
	if kind == common.KindInternal {
		s.logger.Error(ctx, "procedure failed", "path", name, "error", err.Error())
		return status.Error(codes.Internal, common.ErrorInternal.Error())
	}
	return status.Error(statusCodes[kind], err.Error())
}

// Package grpc exposes the procedure catalog as the multichat.v1.Relay gRPC
// service. Messages are the api package's structs encoded with a JSON
// codec, so the service is declared by hand instead of generated.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/multichat/internal/logging"
	"github.com/dmitrijs2005/multichat/internal/server/auth"
	"github.com/dmitrijs2005/multichat/internal/server/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const ServiceName = "multichat.v1.Relay"

type GRPCServer struct {
	address   string
	registry  *rpc.Registry
	resolver  *auth.Resolver
	logger    logging.Logger
	health    *health.Server
	protected map[string]bool
}

func NewGRPCServer(a string, l logging.Logger, reg *rpc.Registry, res *auth.Resolver) *GRPCServer {
	s := &GRPCServer{
		address:   a,
		registry:  reg,
		resolver:  res,
		logger:    l.With("module", "grpc_server"),
		health:    health.NewServer(),
		protected: map[string]bool{},
	}
	for _, p := range reg.Procedures() {
		if p.Protected {
			s.protected[FullMethod(p.Method)] = true
		}
	}
	return s
}

// FullMethod returns the wire name of a Relay method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// Register installs the Relay and health services on srv.
func (s *GRPCServer) Register(srv *grpc.Server) {
	srv.RegisterService(s.serviceDesc(), s)
	healthpb.RegisterHealthServer(srv, s.health)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
}

// NewServer builds a grpc.Server with the identity interceptor and every
// service registered.
func (s *GRPCServer) NewServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.recoveryInterceptor, s.identityInterceptor))
	s.Register(srv)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := s.NewServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}

package health

import (
	"context"
	"fmt"
	"net"

	"greenhouse-assistant/backend/pkg/logger"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// GRPCServer exposes the checker through the standard gRPC health service
type GRPCServer struct {
	server  *grpc.Server
	health  *grpchealth.Server
	service string
	log     *logger.Logger
}

// NewGRPCServer creates a gRPC server whose health status follows checker.
// service is the name clients pass in HealthCheckRequest.
func NewGRPCServer(checker *Checker, service string, log *logger.Logger) *GRPCServer {
	if log == nil {
		log = logger.Discard()
	}
	server := grpc.NewServer()
	hs := grpchealth.NewServer()
	healthpb.RegisterHealthServer(server, hs)
	reflection.Register(server)

	g := &GRPCServer{server: server, health: hs, service: service, log: log}
	g.setHealthy(checker.IsSystemHealthy())
	checker.OnChange(g.setHealthy)
	return g
}

func (g *GRPCServer) setHealthy(healthy bool) {
	status := healthpb.HealthCheckResponse_SERVING
	if !healthy {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	g.health.SetServingStatus("", status)
	g.health.SetServingStatus(g.service, status)
}

// Serve listens on port until ctx is done
func (g *GRPCServer) Serve(ctx context.Context, port string) error {
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	go func() {
		<-ctx.Done()
		g.health.Shutdown()
		g.server.GracefulStop()
	}()
	g.log.Info("gRPC health server listening", "port", port)
	return g.server.Serve(lis)
}

// Server returns the underlying gRPC server
func (g *GRPCServer) Server() *grpc.Server {
	return g.server
}

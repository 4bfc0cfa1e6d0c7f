// Package health exposes the standard gRPC health service. The overall
// server reports SERVING while the process is up; ServiceName follows
// reachability of the books API.
package health

import (
	"context"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const ServiceName = "bookcatalog.BooksAPI"

// Status is satisfied by *netwatch.Prober.
type Status interface {
	Online() bool
	Subscribe(fn func(online bool)) (unsubscribe func())
}

type Server struct {
	GRPC   *grpc.Server
	health *health.Server
	unsub  func()
	logger *slog.Logger
}

func NewServer(st Status, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "grpc-health")

	hs := health.NewServer()
	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	reflection.Register(gs)

	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, servingStatus(st.Online()))

	unsub := st.Subscribe(func(online bool) {
		hs.SetServingStatus(ServiceName, servingStatus(online))
		logger.Info("serving status changed", "service", ServiceName, "online", online)
	})

	return &Server{GRPC: gs, health: hs, unsub: unsub, logger: logger}
}

func servingStatus(online bool) healthpb.HealthCheckResponse_ServingStatus {
	if online {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}

func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("gRPC health listening", "addr", lis.Addr().String())
	return s.GRPC.Serve(lis)
}

// Stop marks everything NOT_SERVING and drains connections, forcing a stop
// if ctx ends first.
func (s *Server) Stop(ctx context.Context) {
	s.unsub()
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.GRPC.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.GRPC.Stop()
	}
}

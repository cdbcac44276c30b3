package grpcx

import (
	"context"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health-check name of the drawing room.
const ServiceName = "duet.Room"

// Server exposes the standard health service for the room process.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	log    *slog.Logger
}

func NewServer(log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	gs := grpc.NewServer(
		grpc.ChainUnaryInterceptor(UnaryServerInterceptor(log, 10*time.Second)),
		grpc.ChainStreamInterceptor(StreamServerInterceptor(log)),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	reflection.Register(gs)

	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &Server{grpc: gs, health: hs, log: log}
}

// SetServing flips both the room entry and the overall ("") status.
func (s *Server) SetServing(ok bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(ServiceName, st)
	s.health.SetServingStatus("", st)
}

// Track reports SERVING until done is closed, then NOT_SERVING.
func (s *Server) Track(done <-chan struct{}) {
	s.SetServing(true)
	go func() {
		<-done
		s.SetServing(false)
		s.log.Info("room loop stopped, health set to NOT_SERVING")
	}()
}

func (s *Server) Serve(lis net.Listener) error {
	s.log.Info("grpc listen", "addr", lis.Addr().String())
	return s.grpc.Serve(lis)
}

// Stop marks everything not serving and waits for in-flight calls until ctx is done.
func (s *Server) Stop(ctx context.Context) {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.grpc.Stop()
	}
}

package grpcapi

import (
	"context"
	"log"
	"net"
	"time"

	"github.com/rbxstore/fulfillment-service/internal/delivery/http/handlers"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health key orchestrators query for this service.
const ServiceName = "fulfillment.v1.FulfillmentService"

// HealthServer serves grpc.health.v1 for the worker process. Status follows
// the same dependency checks as the HTTP /health endpoint.
type HealthServer struct {
	Server *grpc.Server
	health *health.Server
	checks map[string]handlers.Pinger
}

func NewHealthServer(checks map[string]handlers.Pinger) *HealthServer {
	srv := grpc.NewServer()
	h := health.NewServer()
	healthpb.RegisterHealthServer(srv, h)
	h.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return &HealthServer{Server: srv, health: h, checks: checks}
}

// CheckAll runs every check once and publishes the overall and per component status.
func (s *HealthServer) CheckAll(ctx context.Context) bool {
	ok := true
	for name, p := range s.checks {
		status := healthpb.HealthCheckResponse_SERVING
		if err := p.Ping(ctx); err != nil {
			log.Printf("⚠️  [HEALTH] %s unreachable: %v", name, err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
			ok = false
		}
		s.health.SetServingStatus(ServiceName+"/"+name, status)
	}
	overall := healthpb.HealthCheckResponse_SERVING
	if !ok {
		overall = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", overall)
	s.health.SetServingStatus(ServiceName, overall)
	return ok
}

// Watch checks on every tick until ctx is done.
func (s *HealthServer) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.checkWithTimeout(ctx, interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkWithTimeout(ctx, interval)
		}
	}
}

func (s *HealthServer) checkWithTimeout(ctx context.Context, d time.Duration) {
	checkCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	s.CheckAll(checkCtx)
}

func (s *HealthServer) Serve(lis net.Listener) error {
	return s.Server.Serve(lis)
}

// Stop reports NOT_SERVING to watchers before draining open streams.
func (s *HealthServer) Stop() {
	s.health.Shutdown()
	s.Server.GracefulStop()
}

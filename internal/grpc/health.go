package grpc

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name reported alongside the overall ("") status.
const ServiceName = "shop.v1.ShopAPI"

// PingFunc checks a dependency and returns an error when it is unusable.
type PingFunc func(ctx context.Context) error

// NewServer builds the gRPC server exposing grpc.health.v1.Health and reflection.
func NewServer() (*grpc.Server, *health.Server) {
	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	// Enable reflection for grpcurl/grpcui
	reflection.Register(grpcServer)

	return grpcServer, healthServer
}

// StopServer drains srv gracefully until ctx is done, then closes whatever
// is still open. Health Watch streams only end when the server cuts them.
// It returns ctx.Err() when connections had to be cut.
func StopServer(ctx context.Context, srv *grpc.Server) error {
	stopped := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		srv.Stop()
		<-stopped
		return ctx.Err()
	}
}

type HealthReporter struct {
	health   *health.Server
	ping     PingFunc
	interval time.Duration
	timeout  time.Duration
}

func NewHealthReporter(h *health.Server, ping PingFunc, interval, timeout time.Duration) *HealthReporter {
	return &HealthReporter{
		health:   h,
		ping:     ping,
		interval: interval,
		timeout:  timeout,
	}
}

// Run checks once immediately and then every interval until ctx is done.
// On return every service is marked NOT_SERVING.
func (r *HealthReporter) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.check(ctx)
	for {
		select {
		case <-ctx.Done():
			r.health.Shutdown()
			return
		case <-ticker.C:
			r.check(ctx)
		}
	}
}

func (r *HealthReporter) check(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := r.ping(pingCtx); err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Warn("health check failed", "error", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}

	r.health.SetServingStatus("", status)
	r.health.SetServingStatus(ServiceName, status)
}

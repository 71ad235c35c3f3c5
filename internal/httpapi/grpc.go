package httpapi

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const grpcServiceName = "sistemamedico.api"

// ServeGRPCHealth exposes the readiness probe over the standard gRPC health
// protocol for infrastructure that prefers RPC checks to HTTP. Blocks until
// ctx is cancelled.
func ServeGRPCHealth(ctx context.Context, addr string, rp ReadyProbe) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	srv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	// Re-evaluate readiness periodically; the health service answers Watch
	// streams from the cached status.
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		update := func() {
			status := healthpb.HealthCheckResponse_SERVING
			checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			if err := rp.Check(checkCtx); err != nil {
				status = healthpb.HealthCheckResponse_NOT_SERVING
			}
			cancel()
			hs.SetServingStatus(grpcServiceName, status)
			hs.SetServingStatus("", status)
		}
		update()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				update()
			}
		}
	}()

	go func() {
		<-ctx.Done()
		srv.GracefulStop()
	}()

	return srv.Serve(lis)
}

package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-sod/geoindex/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HandleHealth answers ok while ctx is alive and 503 once shutdown began.
func HandleHealth(ctx context.Context) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-ctx.Done():
			logging.FromContext(r.Context()).Debug("health: shutting down")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = fmt.Fprint(w, `{"status": "shutting down"}`)
		default:
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = fmt.Fprint(w, `{"status": "ok"}`)
		}
	})
}

// NewHealthGRPC returns a grpc server exposing the standard health service.
// The service reports SERVING until ctx is done.
func NewHealthGRPC(ctx context.Context, service string) *grpc.Server {
	srv := grpc.NewServer()
	hs := health.NewServer()
	hs.SetServingStatus(service, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	go func() {
		<-ctx.Done()
		hs.Shutdown()
	}()
	return srv
}

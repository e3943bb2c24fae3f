// Package server hosts the operational endpoints: a gRPC health service
// for orchestrator probes and an HTTP mux for Prometheus metrics and the
// liveness/readiness handlers.
package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/defigods/futures-indexer/internal/observability"
)

// GRPCServer wraps the gRPC health endpoint.
type GRPCServer struct {
	srv       *grpc.Server
	healthSvc *health.Server
	log       zerolog.Logger
	addr      string
}

func NewGRPCServer(addr string, log zerolog.Logger) *GRPCServer {
	srv := grpc.NewServer()
	healthSvc := health.NewServer()
	healthpb.RegisterHealthServer(srv, healthSvc)
	reflection.Register(srv)
	return &GRPCServer{srv: srv, healthSvc: healthSvc, log: log, addr: addr}
}

// SetServing flips the health service between SERVING and NOT_SERVING.
func (g *GRPCServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	g.healthSvc.SetServingStatus("", status)
}

// Start listens and serves until ctx is cancelled, then drains gracefully.
func (g *GRPCServer) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", g.addr)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		g.healthSvc.Shutdown()
		g.srv.GracefulStop()
	}()
	g.log.Info().Str("addr", g.addr).Msg("grpc server listening")
	return g.srv.Serve(lis)
}

// StartHTTP serves /metrics, /healthz and /readyz until ctx is cancelled.
func StartHTTP(ctx context.Context, addr string, hc *observability.HealthChecker, log zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", hc.LivenessHandler)
	mux.HandleFunc("/readyz", hc.ReadinessHandler)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	log.Info().Str("addr", addr).Msg("http server listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Package grpc serves the internal port: the standard health service behind a shared service token.
package grpc

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const ServiceName = "uconnect.api"

type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthServer refreshes its status from the store on every Check.
type HealthServer struct {
	*health.Server
	pinger Pinger
	logger *slog.Logger
}

func NewHealthServer(pinger Pinger, logger *slog.Logger) *HealthServer {
	return &HealthServer{Server: health.NewServer(), pinger: pinger, logger: logger}
}

func (h *HealthServer) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	h.refresh(ctx)
	return h.Server.Check(ctx, req)
}

func (h *HealthServer) refresh(ctx context.Context) {
	state := healthpb.HealthCheckResponse_SERVING
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := h.pinger.Ping(pingCtx); err != nil {
		h.logger.WarnContext(ctx, "health check failed", "err", err)
		state = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.SetServingStatus("", state)
	h.SetServingStatus(ServiceName, state)
}

func NewServer(serviceToken string, pinger Pinger, logger *slog.Logger) (*grpc.Server, *HealthServer, error) {
	unary, err := NewServiceAuthUnaryInterceptor(serviceToken)
	if err != nil {
		return nil, nil, err
	}
	stream, err := NewServiceAuthStreamInterceptor(serviceToken)
	if err != nil {
		return nil, nil, err
	}
	srv := grpc.NewServer(grpc.UnaryInterceptor(unary), grpc.StreamInterceptor(stream))
	hs := NewHealthServer(pinger, logger)
	healthpb.RegisterHealthServer(srv, hs)
	return srv, hs, nil
}

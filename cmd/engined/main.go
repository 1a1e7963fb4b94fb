package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"meeting-transcription-engine/internal/app"
	"meeting-transcription-engine/internal/config"
	enginehttp "meeting-transcription-engine/internal/http"
	"meeting-transcription-engine/internal/observability"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	application := app.New(cfg)
	log := application.Log

	if err := application.Start(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}

	// Session API.
	apiServer := &http.Server{
		Addr:              ":" + cfg.Service.HTTPPort,
		Handler:           enginehttp.NewRouter(application),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", apiServer.Addr).Msg("session API listening")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("session API serve failed")
		}
	}()

	// Prometheus metrics and probes on their own port.
	metricsServer := observability.NewServer(":"+cfg.Observability.MetricsPort, application.Ready)
	metricsServer.Start()

	// gRPC health service for platform probes.
	lis, err := net.Listen("tcp", ":"+cfg.Service.GRPCPort)
	if err != nil {
		log.Fatal().Err(err).Str("port", cfg.Service.GRPCPort).Msg("grpc listen failed")
	}
	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(observability.UnaryServerInterceptor()),
		grpc.StreamInterceptor(observability.StreamServerInterceptor()),
	)
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus("meeting.transcription.SessionEngine", grpc_health_v1.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	go func() {
		log.Info().Str("addr", lis.Addr().String()).Msg("grpc health server listening")
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatal().Err(err).Msg("grpc serve failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info().Msg("shutdown signal received")
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("session API shutdown failed")
	}
	if err := metricsServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("metrics server shutdown failed")
	}
	grpcServer.GracefulStop()
	application.Shutdown()
}

package observability

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"meeting-transcription-engine/internal/observability/logging"
)

// UnaryServerInterceptor logs every unary gRPC call with its status code and
// latency. The daemon's gRPC surface is the health service; this keeps probe
// traffic visible without a metrics series per probe.
func UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	log := logging.WithComponent("grpc")
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		start := time.Now()

		resp, err := handler(ctx, req)

		st, _ := status.FromError(err)
		log.Debug().
			Str("method", info.FullMethod).
			Str("code", st.Code().String()).
			Dur("duration", time.Since(start)).
			Msg("gRPC unary call")

		return resp, err
	}
}

// StreamServerInterceptor logs streaming gRPC calls (health Watch) on
// completion.
func StreamServerInterceptor() grpc.StreamServerInterceptor {
	log := logging.WithComponent("grpc")
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		start := time.Now()

		err := handler(srv, ss)

		st, _ := status.FromError(err)
		log.Debug().
			Str("method", info.FullMethod).
			Str("code", st.Code().String()).
			Dur("duration", time.Since(start)).
			Msg("gRPC stream completed")

		return err
	}
}

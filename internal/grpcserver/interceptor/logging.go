// Package interceptor holds the unary interceptors of the gRPC server.
package interceptor

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/patric-chuzhbe/authsrv/internal/logger"
)

// UnaryLoggingInterceptor logs method, peer, duration and status of every
// unary call. Failed calls are logged at warn level.
func UnaryLoggingInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp interface{}, err error) {
		start := time.Now()

		resp, err = handler(ctx, req)

		remote := "unknown"
		if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
			remote = p.Addr.String()
		}
		code := status.Code(err)

		log := logger.Log.Infoln
		if code != codes.OK {
			log = logger.Log.Warnln
		}
		log(
			"gRPC request",
			"method", info.FullMethod,
			"peer", remote,
			"duration", time.Since(start),
			"code", code.String(),
		)

		return resp, err
	}
}

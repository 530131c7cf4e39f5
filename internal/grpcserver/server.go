// Package grpcserver exposes registration, login and the identity check over
// gRPC. Messages are the JSON models of the HTTP API carried by a JSON codec.
package grpcserver

import (
	"net"

	"google.golang.org/grpc"

	"github.com/patric-chuzhbe/authsrv/internal/grpcserver/interceptor"
)

// New listens on addr and returns a gRPC server with handler registered.
// Only WhoAmI requires a bearer token.
func New(
	addr string,
	handler AuthServiceServer,
	authInterceptor *interceptor.AuthInterceptor,
) (*grpc.Server, net.Listener, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, err
	}

	server := grpc.NewServer(
		grpc.ForceServerCodec(Codec()),
		grpc.ChainUnaryInterceptor(
			interceptor.UnaryLoggingInterceptor(),
			authInterceptor.UnaryAuthInterceptor([]string{
				WhoAmIMethod,
			}),
		),
	)
	RegisterAuthServiceServer(server, handler)

	return server, lis, nil
}

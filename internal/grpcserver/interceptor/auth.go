package interceptor

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/patric-chuzhbe/authsrv/internal/authenticator"
	"github.com/patric-chuzhbe/authsrv/internal/logger"
	"github.com/patric-chuzhbe/authsrv/internal/service"
)

type identifier interface {
	WhoAmI(ctx context.Context, token string) (string, error)
}

// AuthInterceptor is the gRPC counterpart of authenticator.Authenticator.
type AuthInterceptor struct {
	identifier identifier
	onOutcome  func(err error)
}

// NewAuthInterceptor returns an interceptor resolving tokens with identifier.
// onOutcome, if not nil, is called with the result of every identity check.
func NewAuthInterceptor(identifier identifier, onOutcome func(err error)) *AuthInterceptor {
	return &AuthInterceptor{
		identifier: identifier,
		onOutcome:  onOutcome,
	}
}

// UnaryAuthInterceptor requires "authorization: Bearer <token>" metadata on
// the protected methods and stores the verified username under
// authenticator.UsernameKey. Other methods pass through untouched.
func (a *AuthInterceptor) UnaryAuthInterceptor(protectedMethods []string) grpc.UnaryServerInterceptor {
	protected := make(map[string]struct{}, len(protectedMethods))
	for _, m := range protectedMethods {
		protected[m] = struct{}{}
	}

	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if _, ok := protected[info.FullMethod]; !ok {
			return handler(ctx, req)
		}

		token, ok := bearerFromMetadata(ctx)
		if !ok {
			a.report(service.ErrUnauthorized)
			return nil, status.Error(codes.Unauthenticated, authenticator.DetailNotAuthenticated)
		}

		username, err := a.identifier.WhoAmI(ctx, token)
		a.report(err)
		switch {
		case err == nil:
		case errors.Is(err, service.ErrUnauthorized):
			logger.Log.Debugln("Error calling the `a.identifier.WhoAmI()`: ", zap.Error(err))
			return nil, status.Error(codes.Unauthenticated, authenticator.DetailInvalidCredentials)
		default:
			logger.Log.Errorln("Error calling the `a.identifier.WhoAmI()`: ", zap.Error(err))
			return nil, status.Error(codes.Internal, err.Error())
		}

		return handler(context.WithValue(ctx, authenticator.UsernameKey, username), req)
	}
}

func bearerFromMetadata(ctx context.Context) (string, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", false
	}

	values := md.Get("authorization")
	if len(values) == 0 {
		return "", false
	}

	return authenticator.ParseBearer(values[0])
}

func (a *AuthInterceptor) report(err error) {
	if a.onOutcome != nil {
		a.onOutcome(err)
	}
}

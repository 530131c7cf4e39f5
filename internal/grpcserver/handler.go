package grpcserver

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/patric-chuzhbe/authsrv/internal/authenticator"
	"github.com/patric-chuzhbe/authsrv/internal/logger"
	"github.com/patric-chuzhbe/authsrv/internal/metrics"
	"github.com/patric-chuzhbe/authsrv/internal/models"
	"github.com/patric-chuzhbe/authsrv/internal/service"
)

type authService interface {
	Register(ctx context.Context, username, password string) (*models.TokenResponse, error)
	Login(ctx context.Context, username, password string) (*models.TokenResponse, error)
	Ping(ctx context.Context) error
}

type outcomeObserver interface {
	ObserveAuth(operation, outcome string)
}

// AuthHandler serves AuthService on top of the same service layer as the
// HTTP router.
type AuthHandler struct {
	svc      authService
	observer outcomeObserver
}

// NewAuthHandler returns a handler reporting outcomes to observer, which may
// be nil.
func NewAuthHandler(svc authService, observer outcomeObserver) *AuthHandler {
	return &AuthHandler{
		svc:      svc,
		observer: observer,
	}
}

func (h *AuthHandler) Register(ctx context.Context, in *models.CredentialsRequest) (*models.TokenResponse, error) {
	if err := in.Validate(); err != nil {
		h.observe(metrics.OperationRegister, metrics.OutcomeInvalid)
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	result, err := h.svc.Register(ctx, in.Username, in.Password)
	h.observe(metrics.OperationRegister, metrics.OutcomeOf(err))
	switch {
	case err == nil:
		return result, nil
	case errors.Is(err, service.ErrConflict):
		return nil, status.Error(codes.AlreadyExists, models.DetailUsernameTaken)
	default:
		logger.Log.Errorln("Error calling the `h.svc.Register()`: ", zap.Error(err))
		return nil, status.Error(codes.Internal, err.Error())
	}
}

func (h *AuthHandler) Login(ctx context.Context, in *models.CredentialsRequest) (*models.TokenResponse, error) {
	if err := in.Validate(); err != nil {
		h.observe(metrics.OperationLogin, metrics.OutcomeInvalid)
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	result, err := h.svc.Login(ctx, in.Username, in.Password)
	h.observe(metrics.OperationLogin, metrics.OutcomeOf(err))
	switch {
	case err == nil:
		return result, nil
	case errors.Is(err, service.ErrUnauthorized):
		return nil, status.Error(codes.Unauthenticated, models.DetailInvalidLogin)
	default:
		logger.Log.Errorln("Error calling the `h.svc.Login()`: ", zap.Error(err))
		return nil, status.Error(codes.Internal, err.Error())
	}
}

// WhoAmI returns the username resolved by the auth interceptor.
func (h *AuthHandler) WhoAmI(ctx context.Context, _ *Empty) (*models.MeResponse, error) {
	username, ok := authenticator.UsernameFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, authenticator.DetailNotAuthenticated)
	}

	return &models.MeResponse{Username: username}, nil
}

func (h *AuthHandler) Ping(ctx context.Context, _ *Empty) (*Empty, error) {
	if err := h.svc.Ping(ctx); err != nil {
		logger.Log.Errorln("Error calling the `h.svc.Ping()`: ", zap.Error(err))
		return nil, status.Error(codes.Unavailable, err.Error())
	}

	return &Empty{}, nil
}

func (h *AuthHandler) observe(operation, outcome string) {
	if h.observer != nil {
		h.observer.ObserveAuth(operation, outcome)
	}
}

// Package router wires the HTTP endpoints of the authentication service:
// registration, login, identity check, liveness, storage ping and metrics.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/authsrv/internal/authenticator"
	"github.com/patric-chuzhbe/authsrv/internal/gzippedhttp"
	"github.com/patric-chuzhbe/authsrv/internal/httpjson"
	"github.com/patric-chuzhbe/authsrv/internal/ipchecker"
	"github.com/patric-chuzhbe/authsrv/internal/logger"
	"github.com/patric-chuzhbe/authsrv/internal/metrics"
	"github.com/patric-chuzhbe/authsrv/internal/models"
	"github.com/patric-chuzhbe/authsrv/internal/service"
)

const (
	AppVersion = "1.0.0"
	AppMessage = "Auth API is running!"

	DetailInvalidBody     = "The request body must be a JSON object with non-empty username and password"
	DetailUsernameTooLong = "The username must not exceed 255 characters"
	DetailPasswordTooLong = "The password must not exceed 72 bytes"
	DetailBodyTooLarge    = "The request body is too large"

	MaxBodyBytes = 1 << 20
)

type authService interface {
	Register(ctx context.Context, username, password string) (*models.TokenResponse, error)
	Login(ctx context.Context, username, password string) (*models.TokenResponse, error)
	Ping(ctx context.Context) error
}

type authenticatorMiddleware interface {
	AuthenticateUser(h http.Handler) http.Handler
}

type outcomeObserver interface {
	ObserveAuth(operation, outcome string)
}

type Router struct {
	svc      authService
	observer outcomeObserver
}

type initOptions struct {
	apiPrefix          string
	corsAllowedOrigins []string
	metrics            *metrics.Metrics
	ipChecker          *ipchecker.IPChecker
}

type InitOption func(*initOptions)

// WithAPIPrefix mounts the authentication endpoints under prefix.
func WithAPIPrefix(prefix string) InitOption {
	return func(options *initOptions) {
		options.apiPrefix = prefix
	}
}

// WithCORSAllowedOrigins sets the origins allowed by the CORS layer.
func WithCORSAllowedOrigins(origins []string) InitOption {
	return func(options *initOptions) {
		options.corsAllowedOrigins = origins
	}
}

// WithMetrics enables request metrics and serves them on /metrics to the
// clients accepted by checker.
func WithMetrics(m *metrics.Metrics, checker *ipchecker.IPChecker) InitOption {
	return func(options *initOptions) {
		options.metrics = m
		options.ipChecker = checker
	}
}

// New builds the chi router.
func New(svc authService, theAuth authenticatorMiddleware, optionsProto ...InitOption) *chi.Mux {
	options := &initOptions{
		apiPrefix: "/auth",
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	myRouter := &Router{
		svc: svc,
	}
	if options.metrics != nil {
		myRouter.observer = options.metrics
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		ipchecker.CaptureSocketAddr,
		middleware.RealIP,
		logger.WithLoggingHTTPMiddleware,
		middleware.Recoverer,
	)
	if options.metrics != nil {
		router.Use(options.metrics.Middleware)
	}
	router.Use(
		cors.Handler(cors.Options{
			AllowedOrigins:   options.corsAllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
		answerOptions,
		gzippedhttp.UngzipRequest(httpjson.WriteError),
		middleware.Compress(5, "application/json"),
	)

	prefix := strings.TrimRight(options.apiPrefix, "/")
	router.Get(`/`, myRouter.GetRoot)
	router.Get(`/ping`, myRouter.GetPing)
	router.Post(prefix+`/register`, myRouter.PostRegister)
	router.Post(prefix+`/login`, myRouter.PostLogin)
	router.With(theAuth.AuthenticateUser).Get(prefix+`/me`, myRouter.GetMe)

	if options.metrics != nil {
		checker := options.ipChecker
		if checker == nil {
			checker = &ipchecker.IPChecker{}
		}
		router.With(checker.TrustedOnly).Get(`/metrics`, options.metrics.Handler().ServeHTTP)
	}

	router.NotFound(func(response http.ResponseWriter, request *http.Request) {
		httpjson.WriteError(response, http.StatusNotFound, "Not Found")
	})
	router.MethodNotAllowed(func(response http.ResponseWriter, request *http.Request) {
		httpjson.WriteError(response, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	return router
}

// GetRoot is the liveness probe.
func (router *Router) GetRoot(response http.ResponseWriter, request *http.Request) {
	httpjson.Write(response, http.StatusOK, models.StatusResponse{
		Status:  "success",
		Message: AppMessage,
		Version: AppVersion,
	})
}

// GetPing reports whether the credential store is reachable.
func (router *Router) GetPing(response http.ResponseWriter, request *http.Request) {
	ctx, cancel := context.WithTimeout(request.Context(), 5*time.Second)
	defer cancel()

	if err := router.svc.Ping(ctx); err != nil {
		logger.Log.Errorln("Error calling the `router.svc.Ping()`: ", zap.Error(err))
		httpjson.WriteError(response, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteHeader(http.StatusOK)
}

// PostRegister creates an account and answers 201 with a fresh token.
func (router *Router) PostRegister(response http.ResponseWriter, request *http.Request) {
	credentials, ok := router.decodeCredentials(response, request, metrics.OperationRegister)
	if !ok {
		return
	}

	result, err := router.svc.Register(request.Context(), credentials.Username, credentials.Password)
	router.observe(metrics.OperationRegister, metrics.OutcomeOf(err))
	switch {
	case err == nil:
		httpjson.Write(response, http.StatusCreated, result)
	case errors.Is(err, service.ErrConflict):
		httpjson.WriteError(response, http.StatusBadRequest, models.DetailUsernameTaken)
	default:
		logger.Log.Errorln("Error calling the `router.svc.Register()`: ", zap.Error(err))
		httpjson.WriteError(response, http.StatusInternalServerError, err.Error())
	}
}

// PostLogin checks the credentials and answers with a fresh token.
func (router *Router) PostLogin(response http.ResponseWriter, request *http.Request) {
	credentials, ok := router.decodeCredentials(response, request, metrics.OperationLogin)
	if !ok {
		return
	}

	result, err := router.svc.Login(request.Context(), credentials.Username, credentials.Password)
	router.observe(metrics.OperationLogin, metrics.OutcomeOf(err))
	switch {
	case err == nil:
		httpjson.Write(response, http.StatusOK, result)
	case errors.Is(err, service.ErrUnauthorized):
		httpjson.WriteError(response, http.StatusUnauthorized, models.DetailInvalidLogin)
	default:
		logger.Log.Errorln("Error calling the `router.svc.Login()`: ", zap.Error(err))
		httpjson.WriteError(response, http.StatusInternalServerError, err.Error())
	}
}

// GetMe returns the username resolved by the authenticator middleware.
func (router *Router) GetMe(response http.ResponseWriter, request *http.Request) {
	username, ok := authenticator.UsernameFromContext(request.Context())
	if !ok {
		httpjson.WriteError(response, http.StatusUnauthorized, authenticator.DetailNotAuthenticated)
		return
	}

	httpjson.Write(response, http.StatusOK, models.MeResponse{Username: username})
}

func (router *Router) decodeCredentials(
	response http.ResponseWriter,
	request *http.Request,
	operation string,
) (*models.CredentialsRequest, bool) {
	var credentials models.CredentialsRequest
	body := http.MaxBytesReader(response, request.Body, MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(&credentials); err != nil {
		logger.Log.Debugln("Error calling the `json.NewDecoder().Decode()`: ", zap.Error(err))
		router.observe(operation, metrics.OutcomeInvalid)
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			httpjson.WriteError(response, http.StatusRequestEntityTooLarge, DetailBodyTooLarge)
			return nil, false
		}
		httpjson.WriteError(response, http.StatusUnprocessableEntity, DetailInvalidBody)
		return nil, false
	}

	if err := credentials.Validate(); err != nil {
		logger.Log.Debugln("Error calling the `credentials.Validate()`: ", zap.Error(err))
		router.observe(operation, metrics.OutcomeInvalid)
		detail := DetailInvalidBody
		switch {
		case errors.Is(err, models.ErrUsernameTooLong):
			detail = DetailUsernameTooLong
		case errors.Is(err, models.ErrPasswordTooLong):
			detail = DetailPasswordTooLong
		}
		httpjson.WriteError(response, http.StatusUnprocessableEntity, detail)
		return nil, false
	}

	return &credentials, true
}

func (router *Router) observe(operation, outcome string) {
	if router.observer != nil {
		router.observer.ObserveAuth(operation, outcome)
	}
}

// answerOptions replies to OPTIONS requests that the CORS layer let through.
func answerOptions(h http.Handler) http.Handler {
	fn := func(response http.ResponseWriter, request *http.Request) {
		if request.Method == http.MethodOptions {
			httpjson.Write(response, http.StatusOK, models.ErrorResponse{Detail: "OK"})
			return
		}

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(fn)
}

// Package authenticator provides the HTTP middleware guarding endpoints that
// require a bearer token. The verified username is stored in the request
// context.
package authenticator

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/authsrv/internal/httpjson"
	"github.com/patric-chuzhbe/authsrv/internal/logger"
	"github.com/patric-chuzhbe/authsrv/internal/service"
)

const (
	DetailNotAuthenticated   = "Not authenticated"
	DetailInvalidCredentials = "Could not validate credentials"
)

type identifier interface {
	WhoAmI(ctx context.Context, token string) (string, error)
}

// ContextKey is a custom type for storing values in context to avoid collisions.
type ContextKey string

// UsernameKey is the context key holding the authenticated username.
const UsernameKey ContextKey = "username"

// Authenticator turns bearer tokens into authenticated usernames.
type Authenticator struct {
	identifier identifier
	onOutcome  func(err error)
}

// New returns an Authenticator resolving tokens with identifier. onOutcome,
// if not nil, is called with the result of every identity check.
func New(identifier identifier, onOutcome func(err error)) *Authenticator {
	return &Authenticator{
		identifier: identifier,
		onOutcome:  onOutcome,
	}
}

// AuthenticateUser rejects requests without a valid bearer token and passes
// the others on with the username stored under UsernameKey.
func (a *Authenticator) AuthenticateUser(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		token, ok := BearerToken(request)
		if !ok {
			a.report(service.ErrUnauthorized)
			httpjson.WriteError(response, http.StatusUnauthorized, DetailNotAuthenticated)
			return
		}

		username, err := a.identifier.WhoAmI(request.Context(), token)
		a.report(err)
		switch {
		case err == nil:
		case errors.Is(err, service.ErrUnauthorized):
			logger.Log.Debugln("Error calling the `a.identifier.WhoAmI()`: ", zap.Error(err))
			httpjson.WriteError(response, http.StatusUnauthorized, DetailInvalidCredentials)
			return
		default:
			logger.Log.Errorln("Error calling the `a.identifier.WhoAmI()`: ", zap.Error(err))
			httpjson.WriteError(response, http.StatusInternalServerError, err.Error())
			return
		}

		ctx := context.WithValue(request.Context(), UsernameKey, username)
		h.ServeHTTP(response, request.WithContext(ctx))
	}

	return http.HandlerFunc(middleware)
}

// UsernameFromContext returns the username stored by AuthenticateUser.
func UsernameFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(UsernameKey).(string)
	return username, ok && username != ""
}

// BearerToken extracts the credential of an "Authorization: Bearer <token>"
// header. The scheme is matched case-insensitively.
func BearerToken(request *http.Request) (string, bool) {
	return ParseBearer(request.Header.Get("Authorization"))
}

// ParseBearer extracts the token from a "Bearer <token>" credential.
func ParseBearer(credential string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(credential), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	return token, token != ""
}

func (a *Authenticator) report(err error) {
	if a.onOutcome != nil {
		a.onOutcome(err)
	}
}

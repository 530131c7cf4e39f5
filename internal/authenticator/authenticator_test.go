package authenticator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/authsrv/internal/models"
	"github.com/patric-chuzhbe/authsrv/internal/service"
)

type identifierFunc func(ctx context.Context, token string) (string, error)

func (f identifierFunc) WhoAmI(ctx context.Context, token string) (string, error) {
	return f(ctx, token)
}

func TestBearerToken(t *testing.T) {
	type tTestCase struct {
		header string
		token  string
		ok     bool
	}
	testCases := []tTestCase{
		{header: "Bearer abc.def.ghi", token: "abc.def.ghi", ok: true},
		{header: "bearer abc", token: "abc", ok: true},
		{header: "  BEARER   abc  ", token: "abc", ok: true},
		{header: "", ok: false},
		{header: "Bearer", ok: false},
		{header: "Bearer ", ok: false},
		{header: "Basic dXNlcjpwdw==", ok: false},
		{header: "abc.def.ghi", ok: false},
	}

	for _, testCase := range testCases {
		t.Run(testCase.header, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
			if testCase.header != "" {
				req.Header.Set("Authorization", testCase.header)
			}

			token, ok := BearerToken(req)
			assert.Equal(t, testCase.ok, ok)
			assert.Equal(t, testCase.token, token)
		})
	}
}

func TestAuthenticateUser(t *testing.T) {
	identifier := identifierFunc(func(ctx context.Context, token string) (string, error) {
		switch token {
		case "good":
			return "alice", nil
		case "broken-store":
			return "", errors.New("connection refused")
		default:
			return "", fmt.Errorf("%w: bad token", service.ErrUnauthorized)
		}
	})

	var outcomes []error
	theAuth := New(identifier, func(err error) { outcomes = append(outcomes, err) })

	handler := theAuth.AuthenticateUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, ok := UsernameFromContext(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(username))
	}))

	type tExpectedResponse struct {
		code   int
		body   string
		detail string
	}
	type tTestCase struct {
		name             string
		header           string
		expectedResponse tExpectedResponse
	}
	testCases := []tTestCase{
		{name: "valid", header: "Bearer good", expectedResponse: tExpectedResponse{code: http.StatusOK, body: "alice"}},
		{name: "missing", header: "", expectedResponse: tExpectedResponse{code: http.StatusUnauthorized, detail: DetailNotAuthenticated}},
		{name: "invalid", header: "Bearer bad", expectedResponse: tExpectedResponse{code: http.StatusUnauthorized, detail: DetailInvalidCredentials}},
		{name: "internal", header: "Bearer broken-store", expectedResponse: tExpectedResponse{code: http.StatusInternalServerError, detail: "connection refused"}},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
			if testCase.header != "" {
				req.Header.Set("Authorization", testCase.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, testCase.expectedResponse.code, rec.Code)
			if testCase.expectedResponse.body != "" {
				assert.Equal(t, testCase.expectedResponse.body, rec.Body.String())
			}
			if testCase.expectedResponse.detail != "" {
				var errorResponse models.ErrorResponse
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&errorResponse))
				assert.Equal(t, testCase.expectedResponse.detail, errorResponse.Detail)
			}
			if testCase.expectedResponse.code == http.StatusUnauthorized {
				assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
			}
		})
	}

	assert.Len(t, outcomes, len(testCases))
}

func TestUsernameFromContext(t *testing.T) {
	_, ok := UsernameFromContext(context.Background())
	assert.False(t, ok)

	_, ok = UsernameFromContext(context.WithValue(context.Background(), UsernameKey, ""))
	assert.False(t, ok)

	username, ok := UsernameFromContext(context.WithValue(context.Background(), UsernameKey, "alice"))
	assert.True(t, ok)
	assert.Equal(t, "alice", username)
}

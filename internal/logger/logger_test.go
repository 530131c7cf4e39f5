package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInit(t *testing.T) {
	require.NoError(t, Init("debug"))
	assert.Error(t, Init("loud"))
}

func TestWithLoggingHTTPMiddleware(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	previous := Log
	Log = zap.New(core).Sugar()
	t.Cleanup(func() { Log = previous })

	handler := middleware.RequestID(WithLoggingHTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("hello"))
	})))

	req := httptest.NewRequest(http.MethodPost, "/auth/register", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, 1, logs.Len())

	message := logs.All()[0].Message
	assert.Contains(t, message, "/auth/register")
	assert.Contains(t, message, "POST")
	assert.Contains(t, message, "201")
	assert.Contains(t, message, "size 5")
}

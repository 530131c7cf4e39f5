// Package logger provides structured logging functionality
// using the Uber zap logging library, plus an access-log HTTP middleware.
package logger

import (
	"errors"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Log is a global SugaredLogger instance from the zap logging library.
// It is a no-op logger until Init is called, so packages may log safely in
// tests that never initialise it.
var Log = zap.NewNop().Sugar()

// Init initializes the global logger with the development encoder and the
// given level (debug, info, warn, error, dpanic, panic, fatal).
func Init(level string) error {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return err
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = lvl
	zl, err := cfg.Build()
	if err != nil {
		return err
	}
	Log = zl.Sugar()

	return nil
}

// Sync flushes any buffered log entries to the output. Errors caused by
// syncing a terminal or a pipe are ignored.
func Sync() error {
	err := Log.Sync()
	if err == nil || errors.Is(err, os.ErrInvalid) || errors.Is(err, syscall.ENOTTY) || errors.Is(err, syscall.EINVAL) {
		return nil
	}

	return err
}

// WithLoggingHTTPMiddleware logs method, URI, status, duration, response size
// and the chi request id of every request.
func WithLoggingHTTPMiddleware(h http.Handler) http.Handler {
	logFn := func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		h.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		Log.Infoln(
			"uri", r.RequestURI,
			"method", r.Method,
			"status", status,
			"duration", time.Since(start),
			"size", ww.BytesWritten(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	}

	return http.HandlerFunc(logFn)
}

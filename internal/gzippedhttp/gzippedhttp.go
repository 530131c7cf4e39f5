// Package gzippedhttp transparently inflates gzip-encoded request bodies.
// Response compression is left to chi's middleware.Compress.
package gzippedhttp

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"
)

// MaxInflatedBytes caps the size of an inflated request body. Credentials
// payloads are tiny; anything larger is treated as a malformed body.
const MaxInflatedBytes = 1 << 20

var readerPool sync.Pool

// InflatingBody decompresses a gzip request body and returns its gzip.Reader
// to a pool on Close.
type InflatingBody struct {
	source io.ReadCloser
	gz     *gzip.Reader
}

// NewInflatingBody starts reading the gzip header of body. It fails when the
// header is missing or corrupt.
func NewInflatingBody(body io.ReadCloser) (*InflatingBody, error) {
	gz, ok := readerPool.Get().(*gzip.Reader)
	if ok {
		if err := gz.Reset(body); err != nil {
			readerPool.Put(gz)
			return nil, err
		}
	} else {
		var err error
		if gz, err = gzip.NewReader(body); err != nil {
			return nil, err
		}
	}

	return &InflatingBody{source: body, gz: gz}, nil
}

func (b *InflatingBody) Read(p []byte) (int, error) {
	return b.gz.Read(p)
}

// Close releases the gzip reader and closes the original body.
func (b *InflatingBody) Close() error {
	gzErr := b.gz.Close()
	readerPool.Put(b.gz)

	if err := b.source.Close(); err != nil {
		return err
	}
	return gzErr
}

func isGzipEncoded(request *http.Request) bool {
	for _, encoding := range strings.Split(request.Header.Get("Content-Encoding"), ",") {
		if strings.EqualFold(strings.TrimSpace(encoding), "gzip") {
			return true
		}
	}
	return false
}

// UngzipRequest replaces the body of requests sent with
// "Content-Encoding: gzip" by an inflating reader limited to
// MaxInflatedBytes. A body without a valid gzip header is answered with 400
// through writeError.
func UngzipRequest(writeError func(w http.ResponseWriter, status int, detail string)) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		middleware := func(response http.ResponseWriter, request *http.Request) {
			if !isGzipEncoded(request) {
				h.ServeHTTP(response, request)
				return
			}

			body, err := NewInflatingBody(request.Body)
			if err != nil {
				writeError(response, http.StatusBadRequest, "The request body is not valid gzip")
				return
			}
			defer body.Close()

			request.Body = http.MaxBytesReader(response, body, MaxInflatedBytes)
			request.Header.Del("Content-Encoding")
			request.Header.Del("Content-Length")
			request.ContentLength = -1

			h.ServeHTTP(response, request)
		}

		return http.HandlerFunc(middleware)
	}
}

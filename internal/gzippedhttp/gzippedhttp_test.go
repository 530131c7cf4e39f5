package gzippedhttp

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gzipString(t *testing.T, input string) []byte {
	t.Helper()

	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)
	_, err := gzipWriter.Write([]byte(input))
	require.NoError(t, err)
	require.NoError(t, gzipWriter.Close())

	return buf.Bytes()
}

func echoHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write(body)
	})
}

func testErrorWriter(w http.ResponseWriter, status int, detail string) {
	http.Error(w, detail, status)
}

func TestUngzipRequest(t *testing.T) {
	const payload = `{"username":"alice","password":"pw1"}`

	type tRequest struct {
		body            []byte
		contentEncoding string
	}
	type tExpectedResponse struct {
		code int
		body string
	}
	type tTestCase struct {
		name             string
		request          tRequest
		expectedResponse tExpectedResponse
	}
	testCases := []tTestCase{
		{
			name:             "gzipped",
			request:          tRequest{body: gzipString(t, payload), contentEncoding: "gzip"},
			expectedResponse: tExpectedResponse{code: http.StatusOK, body: payload},
		},
		{
			name:             "gzipped_upper_case",
			request:          tRequest{body: gzipString(t, payload), contentEncoding: "GZIP"},
			expectedResponse: tExpectedResponse{code: http.StatusOK, body: payload},
		},
		{
			name:             "plain",
			request:          tRequest{body: []byte(payload)},
			expectedResponse: tExpectedResponse{code: http.StatusOK, body: payload},
		},
		{
			name:             "listed_encoding",
			request:          tRequest{body: gzipString(t, payload), contentEncoding: "identity, gzip"},
			expectedResponse: tExpectedResponse{code: http.StatusOK, body: payload},
		},
		{
			name:             "inflates_past_limit",
			request:          tRequest{body: gzipString(t, strings.Repeat("a", MaxInflatedBytes+1)), contentEncoding: "gzip"},
			expectedResponse: tExpectedResponse{code: http.StatusInternalServerError},
		},
		{
			name:             "broken_gzip",
			request:          tRequest{body: []byte(payload), contentEncoding: "gzip"},
			expectedResponse: tExpectedResponse{code: http.StatusBadRequest},
		},
	}

	handler := UngzipRequest(testErrorWriter)(echoHandler())

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(testCase.request.body))
			if testCase.request.contentEncoding != "" {
				req.Header.Set("Content-Encoding", testCase.request.contentEncoding)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, testCase.expectedResponse.code, rec.Code)
			if testCase.expectedResponse.body != "" {
				assert.Equal(t, testCase.expectedResponse.body, strings.TrimSpace(rec.Body.String()))
			}
		})
	}
}

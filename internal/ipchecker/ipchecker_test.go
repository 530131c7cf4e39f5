package ipchecker

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	_, err := New("not-a-cidr")
	assert.Error(t, err)

	_, err = New("10.0.0.0/8", WithTrustedProxy("proxy.local"))
	assert.Error(t, err)

	checker, err := New("")
	require.NoError(t, err)
	assert.False(t, checker.Check([]byte{127, 0, 0, 1}))
}

func TestTrustedOnly(t *testing.T) {
	direct, err := New("192.168.1.0/24")
	require.NoError(t, err)
	behindProxy, err := New("192.168.1.0/24", WithTrustedProxy("172.16.0.0/12"))
	require.NoError(t, err)

	type tTestCase struct {
		name       string
		checker    *IPChecker
		remoteAddr string
		headers    map[string]string
		code       int
	}
	testCases := []tTestCase{
		{name: "remote_addr_inside", checker: direct, remoteAddr: "192.168.1.10:5555", code: http.StatusOK},
		{name: "remote_addr_outside", checker: direct, remoteAddr: "10.0.0.1:5555", code: http.StatusForbidden},
		{name: "forged_x_real_ip", checker: direct, remoteAddr: "10.0.0.1:5555", headers: map[string]string{"X-Real-IP": "192.168.1.20"}, code: http.StatusForbidden},
		{name: "forged_x_forwarded_for", checker: direct, remoteAddr: "10.0.0.1:5555", headers: map[string]string{"X-Forwarded-For": "192.168.1.30"}, code: http.StatusForbidden},
		{name: "headers_ignored_for_inside_peer", checker: direct, remoteAddr: "192.168.1.10:5555", headers: map[string]string{"X-Real-IP": "8.8.8.8"}, code: http.StatusOK},
		{name: "proxy_x_real_ip_inside", checker: behindProxy, remoteAddr: "172.16.0.2:5555", headers: map[string]string{"X-Real-IP": "192.168.1.20"}, code: http.StatusOK},
		{name: "proxy_x_forwarded_for_first_entry", checker: behindProxy, remoteAddr: "172.16.0.2:5555", headers: map[string]string{"X-Forwarded-For": "192.168.1.30, 10.0.0.2"}, code: http.StatusOK},
		{name: "proxy_x_forwarded_for_outside", checker: behindProxy, remoteAddr: "172.16.0.2:5555", headers: map[string]string{"X-Forwarded-For": "8.8.8.8"}, code: http.StatusForbidden},
		{name: "proxy_without_headers", checker: behindProxy, remoteAddr: "172.16.0.2:5555", code: http.StatusForbidden},
		{name: "non_proxy_peer_with_headers", checker: behindProxy, remoteAddr: "10.0.0.1:5555", headers: map[string]string{"X-Real-IP": "192.168.1.20"}, code: http.StatusForbidden},
		{name: "broken_remote_addr", checker: direct, remoteAddr: "garbage", code: http.StatusForbidden},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			handler := testCase.checker.TrustedOnly(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			req.RemoteAddr = testCase.remoteAddr
			for key, value := range testCase.headers {
				req.Header.Set(key, value)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, testCase.code, rec.Code)
		})
	}
}

func TestCaptureSocketAddrSurvivesRealIP(t *testing.T) {
	checker, err := New("10.0.0.0/8")
	require.NoError(t, err)

	handler := CaptureSocketAddr(middleware.RealIP(checker.TrustedOnly(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.RemoteAddr = "127.0.0.1:5555"
	req.Header.Set("X-Real-IP", "10.1.2.3")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

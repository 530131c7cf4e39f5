// Package ipchecker restricts internal endpoints to clients from a trusted
// subnet. The client address is the socket peer of the request. X-Real-IP and
// X-Forwarded-For are honored only when that peer is a trusted proxy.
package ipchecker

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
)

type contextKey string

const socketAddrKey contextKey = "socket_addr"

// IPChecker validates whether a client belongs to the trusted subnet.
type IPChecker struct {
	trustedSubnet *net.IPNet
	trustedProxy  *net.IPNet
}

type initOptions struct {
	trustedProxy string
}

type InitOption func(*initOptions)

// WithTrustedProxy makes the checker believe forwarding headers set by peers
// from the proxy CIDR. An empty string disables forwarding headers.
func WithTrustedProxy(proxy string) InitOption {
	return func(options *initOptions) {
		options.trustedProxy = proxy
	}
}

// New creates an IPChecker for the given CIDR. An empty string yields a
// checker that trusts nobody.
func New(trustedSubnet string, optionsProto ...InitOption) (*IPChecker, error) {
	options := &initOptions{}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	checker := &IPChecker{}
	var err error
	if trustedSubnet != "" {
		if _, checker.trustedSubnet, err = net.ParseCIDR(trustedSubnet); err != nil {
			return nil, fmt.Errorf("in internal/ipchecker/ipchecker.go/New(): error while `net.ParseCIDR()` calling: %w", err)
		}
	}
	if options.trustedProxy != "" {
		if _, checker.trustedProxy, err = net.ParseCIDR(options.trustedProxy); err != nil {
			return nil, fmt.Errorf("in internal/ipchecker/ipchecker.go/New(): error while `net.ParseCIDR()` calling: %w", err)
		}
	}

	return checker, nil
}

// Check reports whether clientIP belongs to the trusted subnet.
func (checker *IPChecker) Check(clientIP net.IP) bool {
	return checker.trustedSubnet != nil && clientIP != nil && checker.trustedSubnet.Contains(clientIP)
}

// CaptureSocketAddr remembers the RemoteAddr of the connection. It must run
// before any middleware that rewrites RemoteAddr from request headers.
func CaptureSocketAddr(h http.Handler) http.Handler {
	fn := func(response http.ResponseWriter, request *http.Request) {
		ctx := context.WithValue(request.Context(), socketAddrKey, request.RemoteAddr)
		h.ServeHTTP(response, request.WithContext(ctx))
	}

	return http.HandlerFunc(fn)
}

// GetClientIP extracts the client's IP address from an HTTP request.
func (checker *IPChecker) GetClientIP(request *http.Request) (net.IP, error) {
	remoteAddr, ok := request.Context().Value(socketAddrKey).(string)
	if !ok {
		remoteAddr = request.RemoteAddr
	}

	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return nil, fmt.Errorf("in internal/ipchecker/ipchecker.go/GetClientIP(): error while `net.SplitHostPort()` calling: %w", err)
	}
	peer := net.ParseIP(host)

	if peer == nil || checker.trustedProxy == nil || !checker.trustedProxy.Contains(peer) {
		return peer, nil
	}

	if ip := net.ParseIP(strings.TrimSpace(request.Header.Get("X-Real-IP"))); ip != nil {
		return ip, nil
	}
	if xff := request.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip, nil
		}
	}

	return peer, nil
}

// TrustedOnly answers 403 to every client outside the trusted subnet.
func (checker *IPChecker) TrustedOnly(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		clientIP, err := checker.GetClientIP(request)
		if err != nil || !checker.Check(clientIP) {
			response.WriteHeader(http.StatusForbidden)
			return
		}

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}

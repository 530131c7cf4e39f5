// Package auth issues and verifies the signed bearer tokens handed out on
// registration and login. The signing secret and algorithm are fixed when the
// Auth value is built and never change afterwards.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned by Verify for every token that must not be
// trusted: bad signature, unexpected algorithm, malformed claims, expired or
// missing subject.
var ErrInvalidToken = errors.New("invalid token")

// ErrUnsupportedAlgorithm is returned by New for anything but the HMAC family.
var ErrUnsupportedAlgorithm = errors.New("unsupported signing algorithm")

// Options is the immutable token configuration.
type Options struct {
	// Secret is the symmetric signing key.
	Secret []byte

	// Algorithm is the JWS algorithm name: HS256, HS384 or HS512.
	Algorithm string

	// Lifetime is the validity window added to "iat" when EnforceExpiry is set.
	Lifetime time.Duration

	// EnforceExpiry adds an "exp" claim to issued tokens. Without it tokens
	// stay valid until the secret is rotated.
	EnforceExpiry bool
}

// Claims represents the JWT claims used by the system. The username travels
// in the standard "sub" claim.
type Claims struct {
	jwt.RegisteredClaims
}

// Auth handles JWT issuance and verification.
type Auth struct {
	method        *jwt.SigningMethodHMAC
	secret        []byte
	lifetime      time.Duration
	enforceExpiry bool
	now           func() time.Time
}

// New validates options and returns a ready to use Auth.
func New(options Options) (*Auth, error) {
	if len(options.Secret) == 0 {
		return nil, errors.New("in internal/auth/auth.go/New(): the signing secret is empty")
	}

	method, ok := jwt.GetSigningMethod(options.Algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("in internal/auth/auth.go/New(): %w: %q", ErrUnsupportedAlgorithm, options.Algorithm)
	}

	if options.EnforceExpiry && options.Lifetime <= 0 {
		return nil, fmt.Errorf(
			"in internal/auth/auth.go/New(): token lifetime must be positive when expiry is enforced, got %s",
			options.Lifetime,
		)
	}

	return &Auth{
		method:        method,
		secret:        options.Secret,
		lifetime:      options.Lifetime,
		enforceExpiry: options.EnforceExpiry,
		now:           time.Now,
	}, nil
}

// Issue returns a freshly signed token for username. Every call produces a
// distinct token because of the random "jti".
func (a *Auth) Issue(username string) (string, error) {
	now := a.now()

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  username,
			IssuedAt: jwt.NewNumericDate(now),
			ID:       uuid.NewString(),
		},
	}
	if a.enforceExpiry {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(a.lifetime))
	}

	return a.buildJWTString(claims)
}

// Verify checks the token signature and claims and returns the subject.
func (a *Auth) Verify(tokenString string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return a.secret, nil
		},
		jwt.WithValidMethods([]string{a.method.Alg()}),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}

	if claims.Subject == "" {
		return "", fmt.Errorf("%w: the subject claim is missing", ErrInvalidToken)
	}

	return claims.Subject, nil
}

// Algorithm returns the configured signing algorithm name.
func (a *Auth) Algorithm() string {
	return a.method.Alg()
}

func (a *Auth) buildJWTString(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(a.method, *claims)

	tokenString, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf(
			"in internal/auth/auth.go/buildJWTString(): error while `token.SignedString()` calling: %w",
			err,
		)
	}

	return tokenString, nil
}

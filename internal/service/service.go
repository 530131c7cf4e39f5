// Package service implements the registration, login and identity check
// flows on top of the credential store, the password hasher and the token
// service. Every failure is reported as one of ErrConflict, ErrUnauthorized
// or a wrapped internal error.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/patric-chuzhbe/authsrv/internal/models"
	"github.com/patric-chuzhbe/authsrv/internal/user"
)

type userKeeper interface {
	CreateUser(ctx context.Context, username, passwordHash string) (*user.User, error)
	FindUserByUsername(ctx context.Context, username string) (*user.User, bool, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type storage interface {
	userKeeper
	pinger
}

type passwordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

type tokenIssuer interface {
	Issue(username string) (string, error)
	Verify(tokenString string) (string, error)
}

// ErrConflict is returned by Register when the username is already taken.
var ErrConflict = errors.New("username already registered")

// ErrUnauthorized is returned by Login for unknown users and wrong passwords
// alike, and by WhoAmI for tokens that cannot be trusted.
var ErrUnauthorized = errors.New("unauthorized")

type Service struct {
	db     storage
	hasher passwordHasher
	tokens tokenIssuer
}

func New(db storage, hasher passwordHasher, tokens tokenIssuer) *Service {
	return &Service{
		db:     db,
		hasher: hasher,
		tokens: tokens,
	}
}

// Register creates a user and returns a token for immediate use.
func (s *Service) Register(ctx context.Context, username, password string) (*models.TokenResponse, error) {
	_, found, err := s.db.FindUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("error while `s.db.FindUserByUsername()` calling: %w", err)
	}
	if found {
		return nil, ErrConflict
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("error while `s.hasher.Hash()` calling: %w", err)
	}

	// A concurrent registration may have taken the name after the lookup
	// above; the store constraint is the real arbiter.
	usr, err := s.db.CreateUser(ctx, username, passwordHash)
	if errors.Is(err, models.ErrUsernameTaken) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("error while `s.db.CreateUser()` calling: %w", err)
	}

	return s.tokenResponse(usr.Username)
}

// Login checks the credentials and issues a fresh token.
func (s *Service) Login(ctx context.Context, username, password string) (*models.TokenResponse, error) {
	usr, found, err := s.db.FindUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("error while `s.db.FindUserByUsername()` calling: %w", err)
	}
	if !found {
		return nil, ErrUnauthorized
	}

	if !s.hasher.Verify(password, usr.PasswordHash) {
		return nil, ErrUnauthorized
	}

	return s.tokenResponse(usr.Username)
}

// WhoAmI resolves a bearer token to the name of an existing user.
func (s *Service) WhoAmI(ctx context.Context, token string) (string, error) {
	username, err := s.tokens.Verify(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	usr, found, err := s.db.FindUserByUsername(ctx, username)
	if err != nil {
		return "", fmt.Errorf("error while `s.db.FindUserByUsername()` calling: %w", err)
	}
	if !found {
		return "", fmt.Errorf("%w: the token subject %q does not exist", ErrUnauthorized, username)
	}

	return usr.Username, nil
}

// Ping checks the health of the storage layer.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Service) tokenResponse(username string) (*models.TokenResponse, error) {
	token, err := s.tokens.Issue(username)
	if err != nil {
		return nil, fmt.Errorf("error while `s.tokens.Issue()` calling: %w", err)
	}

	return &models.TokenResponse{
		AccessToken: token,
		TokenType:   models.TokenTypeBearer,
		Username:    username,
	}, nil
}

package models

import (
	"errors"
	"fmt"

	validator "github.com/go-playground/validator/v10"

	"github.com/patric-chuzhbe/authsrv/internal/password"
)

// CredentialsRequest is the body of both the register and the login endpoints.
type CredentialsRequest struct {
	Username string `json:"username" validate:"required,max=255"`
	Password string `json:"password" validate:"required,bcryptlen"`
}

// Validate reports ErrInvalidCredentials for missing or empty fields,
// ErrUsernameTooLong for usernames the storages cannot hold and
// ErrPasswordTooLong for passwords bcrypt cannot hash.
func (c *CredentialsRequest) Validate() error {
	err := credentialsValidator.Struct(c)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		switch validationErrors[0].Tag() {
		case "bcryptlen":
			return ErrPasswordTooLong
		case "max":
			return ErrUsernameTooLong
		}
	}

	return fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
}

// TokenResponse is returned after a successful registration or login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Username    string `json:"username"`
}

// MeResponse is returned by the identity check endpoint.
type MeResponse struct {
	Username string `json:"username"`
}

// StatusResponse is the liveness payload served on the root path.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Version string `json:"version"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

const TokenTypeBearer = "bearer"

// Client-facing failure texts shared by the HTTP and gRPC transports.
const (
	DetailUsernameTaken = "Username already registered"
	DetailInvalidLogin  = "Invalid username or password"
)

const (
	StorageTypeUnknown = iota
	StorageTypePostgresql
	StorageTypeSQLite
	StorageTypeMemory
)

// ErrUsernameTaken is returned by storages when the unique username constraint
// rejects an insert.
var ErrUsernameTaken = errors.New("the username is already taken")

// ErrInvalidCredentials is returned by CredentialsRequest.Validate when the
// username or the password is missing.
var ErrInvalidCredentials = errors.New("username and password must be non-empty strings")

// MaxUsernameLength is the width of the username column, in characters.
const MaxUsernameLength = 255

// ErrUsernameTooLong is returned by CredentialsRequest.Validate for usernames
// longer than MaxUsernameLength characters.
var ErrUsernameTooLong = fmt.Errorf("the username must not exceed %d characters", MaxUsernameLength)

// ErrPasswordTooLong is returned by CredentialsRequest.Validate for passwords
// longer than password.MaxLength bytes.
var ErrPasswordTooLong = fmt.Errorf("the password must not exceed %d bytes", password.MaxLength)

var credentialsValidator = newCredentialsValidator()

func newCredentialsValidator() *validator.Validate {
	validate := validator.New()
	// The tag is a package constant; registration cannot fail.
	_ = validate.RegisterValidation("bcryptlen", func(fieldLevel validator.FieldLevel) bool {
		return password.FitsBcrypt(fieldLevel.Field().String())
	})

	return validate
}

// Package user defines the user model shared by the storage backends,
// the authentication service and the HTTP layer.
package user

import "time"

// User represents a registered account.
type User struct {
	// ID is the store-assigned numeric identifier.
	ID int64

	// Username is unique, case-sensitive and never changes after registration.
	Username string

	// PasswordHash is the bcrypt digest of the user's password. It must never
	// leave the server.
	PasswordHash string

	CreatedAt time.Time
}

// Package mockstorage provides a testify-based mock implementation of the
// credential store. It lets service and router tests simulate storage
// failures that the real backends cannot produce on demand.
package mockstorage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/authsrv/internal/user"
)

// StorageMock is a testify mock of the credential store.
type StorageMock struct {
	mock.Mock
}

// CreateUser mocks user creation.
func (m *StorageMock) CreateUser(ctx context.Context, username, passwordHash string) (*user.User, error) {
	args := m.Called(ctx, username, passwordHash)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Error(1)
}

// FindUserByUsername mocks the lookup of a user by name.
func (m *StorageMock) FindUserByUsername(ctx context.Context, username string) (*user.User, bool, error) {
	args := m.Called(ctx, username)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Bool(1), args.Error(2)
}

// Ping mocks the health check.
func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close mocks releasing the storage.
func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

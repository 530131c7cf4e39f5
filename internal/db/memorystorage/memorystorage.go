// Package memorystorage keeps users in a process-local map. It is selected
// with the memory:// database URL and backs most HTTP-level tests.
package memorystorage

import (
	"context"
	"sync"
	"time"

	"github.com/patric-chuzhbe/authsrv/internal/models"
	"github.com/patric-chuzhbe/authsrv/internal/user"
)

type MemoryStorage struct {
	mu         sync.RWMutex
	users      map[string]*user.User
	nextUserID int64
}

func New() (*MemoryStorage, error) {
	return &MemoryStorage{
		users:      map[string]*user.User{},
		nextUserID: 1,
	}, nil
}

// CreateUser stores a new user. The existence check and the insert happen
// under one lock, so only one of several concurrent callers can win a name.
func (theStorage *MemoryStorage) CreateUser(ctx context.Context, username, passwordHash string) (*user.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	theStorage.mu.Lock()
	defer theStorage.mu.Unlock()

	if _, exists := theStorage.users[username]; exists {
		return nil, models.ErrUsernameTaken
	}

	usr := &user.User{
		ID:           theStorage.nextUserID,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	theStorage.users[username] = usr
	theStorage.nextUserID++

	copied := *usr
	return &copied, nil
}

func (theStorage *MemoryStorage) FindUserByUsername(ctx context.Context, username string) (*user.User, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	theStorage.mu.RLock()
	defer theStorage.mu.RUnlock()

	usr, found := theStorage.users[username]
	if !found {
		return nil, false, nil
	}

	copied := *usr
	return &copied, true, nil
}

func (theStorage *MemoryStorage) Close() error {
	return nil
}

func (theStorage *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}

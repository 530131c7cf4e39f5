// Package sqlitedb provides a SQLite-backed credential store built on the
// pure Go modernc.org/sqlite driver. It is the default backend for local runs.
package sqlitedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/patric-chuzhbe/authsrv/internal/db/migrations"
	"github.com/patric-chuzhbe/authsrv/internal/models"
	"github.com/patric-chuzhbe/authsrv/internal/user"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

const pragmas = "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

// SQLiteDB is a SQLite-backed implementation of the credential store.
type SQLiteDB struct {
	database          *sql.DB
	connectionTimeout time.Duration
	now               func() time.Time
}

// New opens (creating if needed) the database file at path and migrates it.
func New(ctx context.Context, path string, connectionTimeout time.Duration) (*SQLiteDB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("in internal/db/sqlitedb/sqlitedb.go/New(): the database path is empty")
	}

	database, err := sql.Open("sqlite", buildDSN(path))
	if err != nil {
		return nil,
			fmt.Errorf(
				"in internal/db/sqlitedb/sqlitedb.go/New(): error while `sql.Open()` calling: %w",
				err,
			)
	}
	// SQLite has a single writer, and every connection to ":memory:" would
	// otherwise see its own empty database.
	database.SetMaxOpenConns(1)

	result := &SQLiteDB{
		database:          database,
		connectionTimeout: connectionTimeout,
		now:               time.Now,
	}

	if err := result.Ping(ctx); err != nil {
		_ = database.Close()
		return nil,
			fmt.Errorf(
				"in internal/db/sqlitedb/sqlitedb.go/New(): error while `result.Ping()` calling: %w",
				err,
			)
	}

	if err := migrations.Up(database, migrations.SQLite); err != nil {
		_ = database.Close()
		return nil, err
	}

	return result, nil
}

// CreateUser inserts a new user record. models.ErrUsernameTaken is returned
// when the username is already present.
func (db *SQLiteDB) CreateUser(ctx context.Context, username, passwordHash string) (*user.User, error) {
	createdAt := db.now().UTC().Truncate(time.Second)

	result, err := db.database.ExecContext(
		ctx,
		`INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)`,
		username,
		passwordHash,
		createdAt.Unix(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, models.ErrUsernameTaken
		}
		return nil,
			fmt.Errorf(
				"in internal/db/sqlitedb/sqlitedb.go/CreateUser(): error while `db.database.ExecContext()` calling: %w",
				err,
			)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil,
			fmt.Errorf(
				"in internal/db/sqlitedb/sqlitedb.go/CreateUser(): error while `result.LastInsertId()` calling: %w",
				err,
			)
	}

	return &user.User{
		ID:           id,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    createdAt,
	}, nil
}

// FindUserByUsername fetches a user by the exact, case-sensitive username.
func (db *SQLiteDB) FindUserByUsername(ctx context.Context, username string) (*user.User, bool, error) {
	row := db.database.QueryRowContext(
		ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE username = ?`,
		username,
	)

	var (
		usr       user.User
		createdAt int64
	)
	err := row.Scan(&usr.ID, &usr.Username, &usr.PasswordHash, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false,
			fmt.Errorf(
				"in internal/db/sqlitedb/sqlitedb.go/FindUserByUsername(): error while `row.Scan()` calling: %w",
				err,
			)
	}
	usr.CreatedAt = time.Unix(createdAt, 0).UTC()

	return &usr, true, nil
}

// Ping verifies the database is reachable within the configured timeout.
func (db *SQLiteDB) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.database.PingContext(ctxWithTimeout)
}

// Close closes the underlying database handle.
func (db *SQLiteDB) Close() error {
	return db.database.Close()
}

func buildDSN(path string) string {
	if strings.Contains(path, "?") {
		return path + "&" + pragmas
	}
	return path + "?" + pragmas
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed: users.username")
}

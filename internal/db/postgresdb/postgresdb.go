// Package postgresdb provides a PostgreSQL-backed credential store.
// The schema is migrated with goose on start-up and the username uniqueness
// is enforced by a UNIQUE constraint, so concurrent registrations of the same
// name cannot both succeed.
package postgresdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/patric-chuzhbe/authsrv/internal/db/migrations"
	"github.com/patric-chuzhbe/authsrv/internal/models"
	"github.com/patric-chuzhbe/authsrv/internal/user"
)

const uniqueViolationCode = "23505"

// PostgresDB is a PostgreSQL-backed implementation of the credential store.
type PostgresDB struct {
	database          *sql.DB
	connectionTimeout time.Duration
}

type initOptions struct {
	DBPreReset bool
}

// InitOption defines a functional option for configuring database initialization.
type InitOption func(*initOptions)

// WithDBPreReset drops every table of the public schema before migrating.
// It is meant for test setups only.
func WithDBPreReset(value bool) InitOption {
	return func(options *initOptions) {
		options.DBPreReset = value
	}
}

// New opens a pgx-backed connection pool, runs schema migrations and returns
// a configured PostgresDB instance.
func New(
	ctx context.Context,
	databaseDSN string,
	connectionTimeout time.Duration,
	optionsProto ...InitOption,
) (*PostgresDB, error) {
	options := &initOptions{
		DBPreReset: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	database, err := sql.Open("pgx", databaseDSN)
	if err != nil {
		return nil,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/New(): error while `sql.Open()` calling: %w",
				err,
			)
	}

	result := &PostgresDB{
		database:          database,
		connectionTimeout: connectionTimeout,
	}

	if err := result.Ping(ctx); err != nil {
		_ = database.Close()
		return nil,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/New(): error while `result.Ping()` calling: %w",
				err,
			)
	}

	if options.DBPreReset {
		if err := result.resetDB(ctx); err != nil {
			_ = database.Close()
			return nil, err
		}
	}

	if err := migrations.Up(result.database, migrations.Postgres); err != nil {
		_ = database.Close()
		return nil, err
	}

	return result, nil
}

// CreateUser inserts a new user record. models.ErrUsernameTaken is returned
// when the username is already present.
func (db *PostgresDB) CreateUser(ctx context.Context, username, passwordHash string) (*user.User, error) {
	row := db.database.QueryRowContext(
		ctx,
		`
			INSERT INTO users (username, password_hash)
				VALUES ($1, $2)
				RETURNING id, created_at
		`,
		username,
		passwordHash,
	)

	usr := &user.User{
		Username:     username,
		PasswordHash: passwordHash,
	}
	if err := row.Scan(&usr.ID, &usr.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, models.ErrUsernameTaken
		}
		return nil,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/CreateUser(): error while `row.Scan()` calling: %w",
				err,
			)
	}

	return usr, nil
}

// FindUserByUsername fetches a user by the exact, case-sensitive username.
// The boolean result is false when no such user exists.
func (db *PostgresDB) FindUserByUsername(ctx context.Context, username string) (*user.User, bool, error) {
	row := db.database.QueryRowContext(
		ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE username = $1`,
		username,
	)

	usr := &user.User{}
	err := row.Scan(&usr.ID, &usr.Username, &usr.PasswordHash, &usr.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/FindUserByUsername(): error while `row.Scan()` calling: %w",
				err,
			)
	}

	return usr, true, nil
}

// Ping verifies connectivity with the PostgreSQL database within the configured timeout.
func (db *PostgresDB) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.database.PingContext(ctxWithTimeout)
}

// Close closes the database connection pool.
func (db *PostgresDB) Close() error {
	return db.database.Close()
}

func (db *PostgresDB) resetDB(ctx context.Context) error {
	_, err := db.database.ExecContext(
		ctx,
		`
			DO $$
			DECLARE
				r RECORD;
			BEGIN
				FOR r IN (SELECT tablename FROM pg_tables WHERE schemaname = 'public') LOOP
					EXECUTE 'DROP TABLE IF EXISTS ' || quote_ident(r.tablename) || ' CASCADE';
				END LOOP;
			END $$;
		`,
	)
	if err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/resetDB(): error while `db.database.ExecContext()` calling: %w",
			err,
		)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == uniqueViolationCode
}

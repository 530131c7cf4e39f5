// Package migrations embeds the SQL schema of every supported relational
// backend and applies it with goose.
package migrations

import (
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// Dialect names the goose dialect together with the directory holding its scripts.
type Dialect struct {
	Name string
	Dir  string
}

var (
	Postgres = Dialect{Name: "postgres", Dir: "postgres"}
	SQLite   = Dialect{Name: "sqlite3", Dir: "sqlite"}
)

// goose keeps its base FS and dialect in package globals.
var gooseMu sync.Mutex

// Up applies every pending migration of dialect to database.
func Up(database *sql.DB, dialect Dialect) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(files)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(dialect.Name); err != nil {
		return fmt.Errorf(
			"in internal/db/migrations/migrations.go/Up(): error while `goose.SetDialect()` calling: %w",
			err,
		)
	}

	if err := goose.Up(database, dialect.Dir); err != nil {
		return fmt.Errorf(
			"in internal/db/migrations/migrations.go/Up(): error while `goose.Up()` calling: %w",
			err,
		)
	}

	return nil
}

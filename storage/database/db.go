package database

import (
	"embed"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/interamericana/registro/core"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationsFS exposes the embedded migration files so the admin CLI can run
// arbitrary goose commands against them.
func MigrationsFS() fs.FS { return migrationsFS }

// Open opens (creating if needed) the sqlite store. sqlite allows a single
// writer; access is serialized through one connection, which is also what
// the query layer relies on instead of record-level locks.
func Open(conf *core.Config) (*sqlx.DB, error) {
	dir := filepath.Dir(conf.Database.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating database directory")
	}

	q := make(url.Values)
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "busy_timeout(5000)")
	dsn := "file:" + conf.Database.Path + "?" + q.Encode()

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	db.SetMaxOpenConns(1)

	if err = ping(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sqlx.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

// Migrate applies the embedded migrations.
func Migrate(db *sqlx.DB) error {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return errors.Wrap(err, "setting goose dialect")
	}
	if err := goose.Up(db.DB, "migrations"); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}

// Backup copies the store file to backup_<year>_<timestamp>.db next to it
// and returns the backup path.
func Backup(conf *core.Config, year int) (string, error) {
	src, err := os.Open(conf.Database.Path)
	if err != nil {
		return "", errors.Wrap(err, "opening database file")
	}
	defer func() { _ = src.Close() }()

	ts := time.Now().UTC().Format("2006-01-02T15-04-05")
	dest := filepath.Join(filepath.Dir(conf.Database.Path), fmt.Sprintf("backup_%d_%s.db", year, ts))

	out, err := os.Create(dest)
	if err != nil {
		return "", errors.Wrap(err, "creating backup file")
	}
	defer func() { _ = out.Close() }()

	if _, err = io.Copy(out, src); err != nil {
		return "", errors.Wrap(err, "copying database file")
	}
	return dest, nil
}

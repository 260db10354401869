// Package storage persists published snapshots and scan history in a
// SQLite database under the project state directory, so a restart warm
// starts from the archived graph instead of a cold full scan. Persistence
// is best-effort: failures are logged by callers and the engine keeps
// running in memory.
package storage

import (
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure Go SQLite driver

	"devchat/internal/config"
	"devchat/internal/errors"
	"devchat/internal/logging"
)

const dbFileName = "devchat.db"

// DB wraps the SQLite handle with transaction helpers.
type DB struct {
	conn   *sql.DB
	logger *logging.Logger
	path   string
}

// Open opens or creates <root>/.devchat/devchat.db and brings the schema
// up to date.
func Open(root string, logger *logging.Logger) (*DB, error) {
	stateDir := filepath.Join(root, config.StateDirName)
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, errors.Wrap(errors.StorageError, "create state directory", err)
	}
	path := filepath.Join(stateDir, dbFileName)

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(errors.StorageError, "open database", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, errors.Wrap(errors.StorageError, "set pragma", err)
		}
	}

	db := &DB{
		conn:   conn,
		logger: logger.With(map[string]interface{}{"component": "storage"}),
		path:   path,
	}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// WithTx runs fn inside a transaction, rolling back on error or panic.
func (db *DB) WithTx(fn func(*sql.Tx) error) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return errors.Wrap(errors.StorageError, "begin transaction", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error("transaction rollback failed", map[string]interface{}{
				"error":    err.Error(),
				"rollback": rbErr.Error(),
			})
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.StorageError, "commit transaction", err)
	}
	return nil
}

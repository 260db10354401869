package storage

import (
	"database/sql"

	"devchat/internal/errors"
)

const currentSchemaVersion = 1

// migrate creates the schema on a fresh database and upgrades an existing
// one to the current version.
func (db *DB) migrate() error {
	version, err := db.schemaVersion()
	if err != nil {
		return err
	}
	if version == currentSchemaVersion {
		return nil
	}
	if version > currentSchemaVersion {
		return errors.New(errors.StorageError,
			"database schema is newer than this build supports")
	}

	err = db.WithTx(func(tx *sql.Tx) error {
		if version == 0 {
			if err := createTables(tx); err != nil {
				return err
			}
		}
		// future migrations chain here, version by version
		return setSchemaVersion(tx, currentSchemaVersion)
	})
	if err != nil {
		return err
	}
	db.logger.Info("database schema ready", map[string]interface{}{
		"path":    db.path,
		"version": currentSchemaVersion,
	})
	return nil
}

// schemaVersion reads the stored schema version, zero for a fresh database.
func (db *DB) schemaVersion() (int, error) {
	var name string
	err := db.conn.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name = 'schema_version'
	`).Scan(&name)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(errors.StorageError, "read schema version", err)
	}

	var version int
	err = db.conn.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(errors.StorageError, "read schema version", err)
	}
	return version, nil
}

func setSchemaVersion(tx *sql.Tx, version int) error {
	if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
		return errors.Wrap(errors.StorageError, "clear schema version", err)
	}
	if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
		return errors.Wrap(errors.StorageError, "write schema version", err)
	}
	return nil
}

func createTables(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			generation    INTEGER PRIMARY KEY,
			generation_id TEXT NOT NULL,
			built_at      TEXT NOT NULL,
			node_count    INTEGER NOT NULL,
			edge_count    INTEGER NOT NULL,
			vector_count  INTEGER NOT NULL,
			payload       BLOB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS scan_history (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			scan_type     TEXT NOT NULL,
			generation    INTEGER NOT NULL,
			files_scanned INTEGER NOT NULL,
			nodes         INTEGER NOT NULL,
			edges         INTEGER NOT NULL,
			error_count   INTEGER NOT NULL,
			degraded      INTEGER NOT NULL DEFAULT 0,
			duration_ms   INTEGER NOT NULL,
			created_at    TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_history_created_at
			ON scan_history(created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return errors.Wrap(errors.StorageError, "create tables", err)
		}
	}
	return nil
}

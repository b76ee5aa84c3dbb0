package settings

import (
	"context"
	"database/sql"

	"codeberg.org/mutker/obsctl/internal/errors"
	"codeberg.org/mutker/obsctl/internal/logger"
)

const (
	SchemaVersion = 1

	createTablesSQL = `
	   CREATE TABLE IF NOT EXISTS schema_versions (
	       version     INTEGER PRIMARY KEY,
	       applied_at  TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS geometry (
	       id          INTEGER PRIMARY KEY CHECK (id = 1),
	       revision    INTEGER NOT NULL CHECK (typeof(revision) = 'integer'),
	       document    TEXT NOT NULL,
	       updated_at  INTEGER NOT NULL CHECK (typeof(updated_at) = 'integer')
	   );`

	recordVersionSQL = `
    INSERT INTO schema_versions (version, applied_at)
    VALUES (?, datetime('now'))`

	// The single geometry row is a TOML preset document; each save bumps
	// its revision.
	upsertGeometrySQL = `
    INSERT INTO geometry (id, revision, document, updated_at)
    VALUES (1, 1, ?, ?)
    ON CONFLICT (id) DO UPDATE SET
        revision   = geometry.revision + 1,
        document   = excluded.document,
        updated_at = excluded.updated_at
    RETURNING revision`

	selectGeometrySQL = `
    SELECT document
    FROM geometry
    WHERE id = 1`

	selectVersionSQL = `
    SELECT version
    FROM schema_versions
    ORDER BY version DESC
    LIMIT 1`

	tableExistsSQL = `
    SELECT EXISTS (
        SELECT 1 FROM sqlite_master
        WHERE type='table' AND name=?
    )`
)

// phaseError is the data attached to storage errors.
type phaseError struct {
	Phase  string
	Target string
	Error  string
}

func failure(code errors.ErrorCode, phase, target string, err error) errors.Error {
	return errors.New().WithData(code, phaseError{Phase: phase, Target: target, Error: err.Error()})
}

// withTx runs fn in a transaction that is rolled back unless fn and the
// commit both succeed. Begin and commit failures carry code.
func withTx(ctx context.Context, db *sql.DB, code errors.ErrorCode, log logger.Logger, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.New().Wrap(code, err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			log.Debug().Err(err).Msg("Failed to rollback transaction")
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.New().Wrap(code, err)
	}
	committed = true

	return nil
}

// InitSchema creates a new database schema with the current version
func InitSchema(db *sql.DB, log logger.Logger) error {
	log.Debug().Msg("Creating database...")

	err := withTx(context.Background(), db, ErrSchemaInitFailed, log, func(tx *sql.Tx) error {
		if _, err := tx.Exec(createTablesSQL); err != nil {
			return failure(ErrSchemaInitFailed, "create_tables", "", err)
		}
		if _, err := tx.Exec(recordVersionSQL, SchemaVersion); err != nil {
			return failure(ErrSchemaInitFailed, "record_version", "schema_versions", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info().
		Int("version", SchemaVersion).
		Msg("Schema initialized successfully")

	return nil
}

// GetSchemaVersion returns the current schema version, 0 for an empty
// database.
func GetSchemaVersion(db *sql.DB) (int, error) {
	exists, err := TableExists(db, "schema_versions")
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}

	var version int
	err = db.QueryRow(selectVersionSQL).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, failure(ErrSchemaValidationFailed, "get_version", "schema_versions", err)
	}

	return version, nil
}

// TableExists checks if a table exists
func TableExists(db *sql.DB, tableName string) (bool, error) {
	var exists bool
	if err := db.QueryRow(tableExistsSQL, tableName).Scan(&exists); err != nil {
		return false, failure(ErrSchemaValidationFailed, "check_table_exists", tableName, err)
	}
	return exists, nil
}

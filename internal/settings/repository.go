package settings

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"codeberg.org/mutker/obsctl/internal/errors"
	"codeberg.org/mutker/obsctl/internal/logger"
	_ "github.com/mattn/go-sqlite3"
)

type repository struct {
	db     *sql.DB
	logger logger.Logger
	cfg    Config
	mu     sync.Mutex
	closed bool
}

func NewRepository(cfg Config, log logger.Logger) (Repository, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Ensure the directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, failure(ErrStorageInit, "create_directory", cfg.DBPath, err)
	}

	dsn := cfg.DBPath + "?_journal=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, failure(ErrStorageInit, "open_database", cfg.DBPath, err)
	}

	if err := ValidateAndUpdateSchema(db, cfg.backupDir(), log); err != nil {
		db.Close()
		return nil, errors.New().Wrap(ErrStorageInit, err)
	}

	log.Info().
		Str("path", cfg.DBPath).
		Int("schema_version", SchemaVersion).
		Msg("Settings repository initialized")

	return &repository{
		db:     db,
		logger: log,
		cfg:    cfg,
	}, nil
}

func (r *repository) Geometry(ctx context.Context) (Geometry, error) {
	var document string
	err := r.db.QueryRowContext(ctx, selectGeometrySQL).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return Geometry{}, errors.New().New(ErrNotFound)
	}
	if err != nil {
		return Geometry{}, errors.New().Wrap(ErrStorageAccess, err)
	}

	return DecodePreset([]byte(document))
}

func (r *repository) SaveGeometry(ctx context.Context, g Geometry) (Revision, error) {
	errFactory := errors.New()

	if err := g.Validate(); err != nil {
		return Revision{}, err
	}
	document, err := EncodePreset(g)
	if err != nil {
		return Revision{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	rev := Revision{UpdatedAt: now.Truncate(time.Second)}
	err = withTx(ctx, r.db, ErrTransactionFailed, r.logger, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, upsertGeometrySQL, string(document), now.Unix()).Scan(&rev.Number); err != nil {
			return errFactory.Wrap(ErrTransactionFailed, err)
		}
		return nil
	})
	if err != nil {
		return Revision{}, err
	}

	r.logger.Debug().Int64("revision", rev.Number).Msg("Saved geometry")

	return rev, nil
}

func (r *repository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	// Checkpoint WAL and cleanup on close
	if _, err := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return failure(ErrStorageClose, "checkpoint_wal", r.cfg.DBPath, err)
	}

	if err := r.db.Close(); err != nil {
		return failure(ErrStorageClose, "close_database", r.cfg.DBPath, err)
	}

	r.logger.Info().Msg("Settings repository closed")

	return nil
}

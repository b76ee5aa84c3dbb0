package settings_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/mutker/obsctl/internal/errors"
	"codeberg.org/mutker/obsctl/internal/logger"
	"codeberg.org/mutker/obsctl/internal/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T, dir string) settings.Repository {
	t.Helper()

	repo, err := settings.NewRepository(settings.Config{
		DBPath: filepath.Join(dir, "settings.db"),
	}, logger.Default())
	require.NoError(t, err)
	return repo
}

func TestRepositoryEmpty(t *testing.T) {
	repo := newRepo(t, t.TempDir())
	defer repo.Close()

	_, err := repo.Geometry(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, settings.ErrNotFound))

	_, err = settings.NewMemoryRepository().Geometry(context.Background())
	assert.True(t, errors.HasCode(err, settings.ErrNotFound))
}

func TestServiceDefaultsWhenEmpty(t *testing.T) {
	repo := newRepo(t, t.TempDir())
	defer repo.Close()

	svc, err := settings.NewService(context.Background(), repo)
	require.NoError(t, err)
	assert.Equal(t, settings.DefaultGeometry(), svc.Geometry())
}

func TestServiceSeedsSite(t *testing.T) {
	ctx := context.Background()

	svc, err := settings.NewService(ctx, settings.NewMemoryRepository(), settings.WithSite(-31.2733, 149.0617))
	require.NoError(t, err)
	lat, lon := svc.Location()
	assert.Equal(t, -31.2733, lat)
	assert.Equal(t, 149.0617, lon)
	assert.Equal(t, settings.DefaultGeometry().Dome, svc.Geometry().Dome)

	_, err = settings.NewService(ctx, settings.NewMemoryRepository(), settings.WithSite(95, 0))
	assert.True(t, errors.HasCode(err, settings.ErrInvalidGeometry))
}

func TestStoredGeometryWinsOverSeed(t *testing.T) {
	ctx := context.Background()
	repo := settings.NewMemoryRepository()

	stored := settings.DefaultGeometry()
	stored.Site.Latitude = 19.8207
	stored.Site.Longitude = -155.4681
	_, err := repo.SaveGeometry(ctx, stored)
	require.NoError(t, err)

	svc, err := settings.NewService(ctx, repo, settings.WithSite(-31.2733, 149.0617))
	require.NoError(t, err)
	lat, lon := svc.Location()
	assert.Equal(t, 19.8207, lat)
	assert.Equal(t, -155.4681, lon)
}

func TestServiceLocationFollowsUpdate(t *testing.T) {
	svc, err := settings.NewService(context.Background(), settings.NewMemoryRepository())
	require.NoError(t, err)

	g := svc.Geometry()
	g.Site.Latitude = -31.2733
	g.Site.Longitude = 149.0617
	_, err = svc.Update(context.Background(), g)
	require.NoError(t, err)

	lat, lon := svc.Location()
	assert.Equal(t, -31.2733, lat)
	assert.Equal(t, 149.0617, lon)
}

func TestRepositorySaveAndReload(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	repo := newRepo(t, dir)
	g := settings.DefaultGeometry()
	g.Site.Name = "Siding Spring"
	g.Site.Latitude = -31.2733
	g.Dome.SlitWidth = 0.8
	g.Counterweights.Amount = 2

	rev, err := repo.SaveGeometry(ctx, g)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rev.Number)

	rev, err = repo.SaveGeometry(ctx, g)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rev.Number)
	require.NoError(t, repo.Close())
	require.NoError(t, repo.Close(), "close is idempotent")

	repo = newRepo(t, dir)
	defer repo.Close()

	got, err := repo.Geometry(ctx)
	require.NoError(t, err)
	assert.Equal(t, g, got)
}

func TestRepositoryRejectsInvalidGeometry(t *testing.T) {
	repo := newRepo(t, t.TempDir())
	defer repo.Close()

	g := settings.DefaultGeometry()
	g.Dome.Radius = 0

	_, err := repo.SaveGeometry(context.Background(), g)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, settings.ErrInvalidGeometry))
}

func TestRepositoryInvalidPath(t *testing.T) {
	_, err := settings.NewRepository(settings.Config{}, logger.Default())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, settings.ErrInvalidDBPath))
}

func TestSchemaMismatchBacksUp(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "settings.db")
	backups := filepath.Join(dir, "bak")

	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	_, err = db.Exec(`
		CREATE TABLE schema_versions (version INTEGER PRIMARY KEY, applied_at TEXT NOT NULL);
		INSERT INTO schema_versions VALUES (99, datetime('now'));
		CREATE TABLE geometry (id INTEGER PRIMARY KEY, stale TEXT);`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	repo, err := settings.NewRepository(settings.Config{DBPath: dbPath, BackupDir: backups}, logger.Default())
	require.NoError(t, err)
	defer repo.Close()

	entries, err := os.ReadDir(backups)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), "settings_v99_")

	_, err = repo.SaveGeometry(context.Background(), settings.DefaultGeometry())
	assert.NoError(t, err)
}

func TestPresetRoundTrip(t *testing.T) {
	g := settings.DefaultGeometry()
	g.Site.Name = "Backyard"
	g.Mount.OffsetX = -0.125

	data, err := settings.EncodePreset(g)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[site]")

	got, err := settings.DecodePreset(data)
	require.NoError(t, err)
	assert.Equal(t, g, got)
}

func TestPresetPartialOverlay(t *testing.T) {
	got, err := settings.DecodePreset([]byte(`
[site]
name = "Mount Stromlo"
latitude = -35.3206

[dome]
slit_width = 0.75
`))
	require.NoError(t, err)

	want := settings.DefaultGeometry()
	want.Site.Name = "Mount Stromlo"
	want.Site.Latitude = -35.3206
	want.Dome.SlitWidth = 0.75
	assert.Equal(t, want, got)
}

func TestPresetErrors(t *testing.T) {
	_, err := settings.DecodePreset([]byte("[site\nname="))
	assert.True(t, errors.HasCode(err, settings.ErrPresetDecode))

	_, err = settings.DecodePreset([]byte("[tube]\npivot_position = 1.5\n"))
	assert.True(t, errors.HasCode(err, settings.ErrInvalidGeometry))

	_, err = settings.LoadPreset(filepath.Join(t.TempDir(), "missing.toml"))
	assert.True(t, errors.HasCode(err, settings.ErrPresetRead))
}

func TestServiceImport(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "site.toml")

	g := settings.DefaultGeometry()
	g.Site.Name = "Imported"
	require.NoError(t, settings.WritePreset(path, g))

	svc, err := settings.NewService(ctx, settings.NewMemoryRepository())
	require.NoError(t, err)
	assert.Equal(t, settings.DefaultGeometry(), svc.Geometry())

	rev, err := svc.Import(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rev.Number)
	assert.Equal(t, "Imported", svc.Geometry().Site.Name)
	assert.Equal(t, rev, svc.Revision())
}

func TestServiceRejectsInvalidUpdate(t *testing.T) {
	svc, err := settings.NewService(context.Background(), settings.NewMemoryRepository())
	require.NoError(t, err)

	bad := settings.DefaultGeometry()
	bad.Site.Latitude = 123

	_, err = svc.Update(context.Background(), bad)
	require.Error(t, err)
	assert.Equal(t, settings.DefaultGeometry(), svc.Geometry())
}

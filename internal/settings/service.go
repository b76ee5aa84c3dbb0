package settings

import (
	"context"
	"sync"
	"time"

	"codeberg.org/mutker/obsctl/internal/errors"
	"codeberg.org/mutker/obsctl/internal/logger"
)

// Service caches the current geometry in memory so renders never touch
// the database.
type Service struct {
	repo    Repository
	mu      sync.RWMutex
	current Geometry
	rev     Revision
}

// memoryRepository keeps geometry for the process lifetime only. It backs
// the service when no settings database is configured.
type memoryRepository struct {
	mu  sync.Mutex
	geo *Geometry
	rev int64
}

func NewMemoryRepository() Repository {
	return &memoryRepository{}
}

func (m *memoryRepository) Geometry(context.Context) (Geometry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.geo == nil {
		return Geometry{}, errors.New().New(ErrNotFound)
	}
	return *m.geo, nil
}

func (m *memoryRepository) SaveGeometry(_ context.Context, g Geometry) (Revision, error) {
	if err := g.Validate(); err != nil {
		return Revision{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.geo = &g
	m.rev++
	return Revision{Number: m.rev, UpdatedAt: time.Now().UTC()}, nil
}

func (m *memoryRepository) Close() error { return nil }

// Option adjusts the geometry used when nothing has been stored yet.
type Option func(g *Geometry)

// WithSite seeds the default geometry with the configured site position.
// A stored geometry always wins.
func WithSite(latitude, longitude float64) Option {
	return func(g *Geometry) {
		g.Site.Latitude = latitude
		g.Site.Longitude = longitude
	}
}

// NewService loads the stored geometry from repo, falling back to the
// default geometry adjusted by opts.
func NewService(ctx context.Context, repo Repository, opts ...Option) (*Service, error) {
	g, err := repo.Geometry(ctx)
	switch {
	case errors.HasCode(err, ErrNotFound):
		g = DefaultGeometry()
		for _, opt := range opts {
			opt(&g)
		}
		if err := g.Validate(); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	}

	logger.Debug().
		Str("site", g.Site.Name).
		Float64("latitude", g.Site.Latitude).
		Float64("longitude", g.Site.Longitude).
		Msg("Geometry loaded")

	return &Service{repo: repo, current: g}, nil
}

// Geometry returns the cached geometry.
func (s *Service) Geometry() Geometry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.current
}

// Location returns the site latitude and longitude in degrees.
func (s *Service) Location() (lat, lon float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.current.Site.Latitude, s.current.Site.Longitude
}

// Revision returns the last revision saved through this service.
func (s *Service) Revision() Revision {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.rev
}

// Update validates, persists and caches g.
func (s *Service) Update(ctx context.Context, g Geometry) (Revision, error) {
	rev, err := s.repo.SaveGeometry(ctx, g)
	if err != nil {
		return Revision{}, err
	}

	s.mu.Lock()
	s.current = g
	s.rev = rev
	s.mu.Unlock()

	logger.Info().
		Int64("revision", rev.Number).
		Str("site", g.Site.Name).
		Msg("Geometry updated")

	return rev, nil
}

// Import loads a TOML preset from path and makes it current.
func (s *Service) Import(ctx context.Context, path string) (Revision, error) {
	g, err := LoadPreset(path)
	if err != nil {
		return Revision{}, err
	}
	return s.Update(ctx, g)
}

func (s *Service) Close() error {
	return s.repo.Close()
}

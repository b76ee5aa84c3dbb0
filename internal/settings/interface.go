package settings

import (
	"context"
	"time"
)

// Repository persists the site geometry.
type Repository interface {
	// Geometry returns the stored geometry, or an ErrNotFound error when
	// nothing has been saved yet.
	Geometry(ctx context.Context) (Geometry, error)
	SaveGeometry(ctx context.Context, g Geometry) (Revision, error)
	Close() error
}

// Revision identifies one saved version of the geometry.
type Revision struct {
	Number    int64
	UpdatedAt time.Time
}

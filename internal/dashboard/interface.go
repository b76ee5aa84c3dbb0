package dashboard

import (
	"context"
	"time"

	"codeberg.org/mutker/obsctl/internal/controlserver"
)

// Controller is the subset of the control server the dashboard proxies
// mutations to.
type Controller interface {
	SetTracking(ctx context.Context, tracking bool) error
	Flip(ctx context.Context) error
	Park(ctx context.Context) error
	Unpark(ctx context.Context) error
	Nudge(ctx context.Context, dir controlserver.Direction, duration time.Duration) error
	Move(ctx context.Context, dir controlserver.Direction) error
	Halt(ctx context.Context, dir controlserver.Direction) error
	Stop(ctx context.Context) error
	SlewTo(ctx context.Context, target controlserver.Target, opts controlserver.SlewOptions) error
	SetDomeSlave(ctx context.Context, slave bool) error
	SlewDome(ctx context.Context, azimuth float64) error
	OpenShutter(ctx context.Context) error
	CloseShutter(ctx context.Context) error
	StopDome(ctx context.Context) error
}

// Recorder receives dashboard observations. metrics.Collector satisfies it.
type Recorder interface {
	SetClients(n int)
	ObserveControl(op string, d time.Duration, err error)
}

type noopRecorder struct{}

func (noopRecorder) SetClients(int)                              {}
func (noopRecorder) ObserveControl(string, time.Duration, error) {}

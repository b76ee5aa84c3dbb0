package acquisition

import (
	"context"
	"time"

	"codeberg.org/mutker/obsctl/internal/controlserver"
)

// ControlSource is the read side of the control server.
type ControlSource interface {
	MountStatus(ctx context.Context) (*controlserver.MountStatus, error)
	DomeStatus(ctx context.Context) (*controlserver.DomeStatus, error)
	DomeSyncStatus(ctx context.Context) (*controlserver.DomeSyncStatus, error)
	Temperatures(ctx context.Context) (*controlserver.Temperatures, error)
	SystemStatus(ctx context.Context) (*controlserver.SystemStatus, error)
	Time(ctx context.Context) (*controlserver.TimeStatus, error)
}

// Recorder receives per-request and per-batch observations.
type Recorder interface {
	ObserveSource(src Source, d time.Duration, err error)
	ObserveBatch(b *Batch)
}

type noopRecorder struct{}

func (noopRecorder) ObserveSource(Source, time.Duration, error) {}
func (noopRecorder) ObserveBatch(*Batch)                        {}

// Source identifies one telemetry endpoint.
type Source int

const (
	SourceMount Source = iota
	SourceDome
	SourceDomeSync
	SourceTemperatures
	SourceSystem
	SourceTime
	SourceWeather
)

// PrimarySources are requested on every tick.
var PrimarySources = []Source{
	SourceMount,
	SourceDome,
	SourceDomeSync,
	SourceTemperatures,
	SourceSystem,
	SourceTime,
}

func (s Source) String() string {
	switch s {
	case SourceMount:
		return "mount"
	case SourceDome:
		return "dome"
	case SourceDomeSync:
		return "dome_sync"
	case SourceTemperatures:
		return "temperatures"
	case SourceSystem:
		return "system"
	case SourceTime:
		return "time"
	case SourceWeather:
		return "weather"
	default:
		return "unknown"
	}
}

// Sample is one source's outcome within a tick. Payload holds the decoded
// response (a *controlserver.X or *weather.Report) and is nil when Err is set.
type Sample struct {
	Source    Source
	Payload   any
	Err       error
	FetchedAt time.Time
}

// OK reports whether the request succeeded.
func (s Sample) OK() bool {
	return s.Err == nil && s.Payload != nil
}

// Batch is the settled result of one tick.
type Batch struct {
	Seq       uint64
	StartedAt time.Time
	Samples   []Sample
	// Latency is the wall time of the primary fan-out, start to last settle.
	Latency          time.Duration
	WeatherAttempted bool
	// Unreachable is set when every primary request failed at the transport
	// level, i.e. the control server could not be reached at all.
	Unreachable bool
}

// Sample returns the sample for src, if one was taken this tick.
func (b *Batch) Sample(src Source) (Sample, bool) {
	for _, s := range b.Samples {
		if s.Source == src {
			return s, true
		}
	}
	return Sample{}, false
}

// Failed lists the sources that were attempted and failed.
func (b *Batch) Failed() []Source {
	var failed []Source
	for _, s := range b.Samples {
		if !s.OK() {
			failed = append(failed, s.Source)
		}
	}
	return failed
}

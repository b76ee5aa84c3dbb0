// Package observatory runs the poll loop: one acquisition tick per
// interval, merged into the canonical state and committed.
package observatory

import (
	"context"
	"time"

	"codeberg.org/mutker/obsctl/internal/acquisition"
	"codeberg.org/mutker/obsctl/internal/coord"
	"codeberg.org/mutker/obsctl/internal/errors"
	"codeberg.org/mutker/obsctl/internal/logger"
	"codeberg.org/mutker/obsctl/internal/state"
)

const DefaultInterval = time.Second

// Ticker produces one settled batch per call.
type Ticker interface {
	Tick(ctx context.Context, now time.Time) *acquisition.Batch
}

// Recorder receives commit outcomes.
type Recorder interface {
	ObserveCommit(accepted bool)
	SetConnection(status state.ConnectionStatus)
}

type noopRecorder struct{}

func (noopRecorder) ObserveCommit(bool)                   {}
func (noopRecorder) SetConnection(state.ConnectionStatus) {}

type Options struct {
	Interval time.Duration
	Recorder Recorder
	Clock    func() time.Time
}

// Service owns the single writer side of the store.
type Service struct {
	ticker     Ticker
	reconciler *state.Reconciler
	store      *state.Store
	interval   time.Duration
	recorder   Recorder
	clock      func() time.Time
}

func New(ticker Ticker, reconciler *state.Reconciler, store *state.Store, opts Options) *Service {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Recorder == nil {
		opts.Recorder = noopRecorder{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return &Service{
		ticker:     ticker,
		reconciler: reconciler,
		store:      store,
		interval:   opts.Interval,
		recorder:   opts.Recorder,
		clock:      opts.Clock,
	}
}

// Run ticks immediately and then once per interval until ctx is done.
// Ticks never overlap; fires missed while a tick is outstanding are
// dropped by the ticker.
func (s *Service) Run(ctx context.Context) error {
	logger.Info().Dur("interval", s.interval).Msg("Poll loop started")

	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Poll loop stopped")
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Service) tick(ctx context.Context) {
	batch := s.ticker.Tick(ctx, s.clock())
	if ctx.Err() != nil {
		logger.Debug().Uint64("seq", batch.Seq).Msg("Discarding batch after cancel")
		return
	}

	next, err := s.merge(batch)
	if err != nil {
		logger.ErrorWithCode(err).Uint64("seq", batch.Seq).Msg("Merge failed")
		next = state.MarkDisconnected(s.store.Snapshot(), batch.Seq)
	}

	accepted := s.store.Commit(next)
	s.recorder.ObserveCommit(accepted)
	if !accepted {
		logger.Warn().Uint64("seq", batch.Seq).Msg("Stale batch rejected")
		return
	}
	s.recorder.SetConnection(next.System.Connection)

	logCommit(next)

	if failed := batch.Failed(); len(failed) > 0 {
		names := make([]string, len(failed))
		for i, src := range failed {
			names[i] = src.String()
		}
		logger.Debug().Uint64("seq", batch.Seq).Strs("failed", names).Msg("Partial batch committed")
	}
}

func logCommit(obs state.Observatory) {
	event := logger.Debug().
		Uint64("seq", obs.Seq).
		Str("connection", obs.System.Connection.String()).
		Str("ra", coord.FormatHMS(obs.Telescope.RA)).
		Str("dec", coord.FormatDMS(obs.Telescope.Dec)).
		Float64("dome_az", obs.Dome.Azimuth)
	if lst, ok := coord.ParseSexagesimalTime(obs.Time.SiderealTime); ok {
		event = event.Str("hour_angle", coord.FormatClock(lst-obs.Telescope.RA))
	}
	event.Msg("State committed")
}

// merge converts a panic on an unexpected payload into an error so a
// single bad batch cannot stop the loop.
func (s *Service) merge(batch *acquisition.Batch) (next state.Observatory, err errors.Error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New().WithData(errors.ErrInternal, r)
		}
	}()

	return s.reconciler.Merge(s.store.Snapshot(), batch), nil
}

// Package acquisition polls the control server and the weather API once per
// tick and collects every outcome, successful or not.
package acquisition

import (
	"context"
	"sync"
	"time"

	"codeberg.org/mutker/obsctl/internal/errors"
	"codeberg.org/mutker/obsctl/internal/logger"
	"codeberg.org/mutker/obsctl/internal/settings"
	"codeberg.org/mutker/obsctl/internal/weather"
)

const DefaultWeatherInterval = 60 * time.Second

// Options configures a Scheduler.
type Options struct {
	// Location reports the site position for weather requests. It is
	// read on every weather fetch so site edits apply immediately.
	// Defaults to the default geometry's site.
	Location        func() (lat, lon float64)
	WeatherInterval time.Duration
	Recorder        Recorder
	// Clock stamps sample arrival times. Defaults to time.Now.
	Clock func() time.Time
}

// Scheduler fans out one request per source on every tick. Weather is
// requested on its own, slower cadence.
type Scheduler struct {
	control  ControlSource
	weather  weather.Provider
	location func() (lat, lon float64)
	interval time.Duration
	recorder Recorder
	clock    func() time.Time

	mu          sync.Mutex
	seq         uint64
	lastWeather time.Time
}

func NewScheduler(control ControlSource, wx weather.Provider, opts Options) *Scheduler {
	if opts.WeatherInterval <= 0 {
		opts.WeatherInterval = DefaultWeatherInterval
	}
	if opts.Recorder == nil {
		opts.Recorder = noopRecorder{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Location == nil {
		site := settings.DefaultGeometry().Site
		opts.Location = func() (float64, float64) { return site.Latitude, site.Longitude }
	}

	return &Scheduler{
		control:  control,
		weather:  wx,
		location: opts.Location,
		interval: opts.WeatherInterval,
		recorder: opts.Recorder,
		clock:    opts.Clock,
	}
}

// WeatherDue reports whether more than the weather interval has elapsed
// since the last successful weather fetch.
func (s *Scheduler) WeatherDue(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.weatherDueLocked(now)
}

func (s *Scheduler) weatherDueLocked(now time.Time) bool {
	if s.weather == nil {
		return false
	}
	return s.lastWeather.IsZero() || now.Sub(s.lastWeather) > s.interval
}

// LastWeatherFetch returns the time of the last successful weather fetch.
func (s *Scheduler) LastWeatherFetch() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastWeather
}

// Tick requests every primary source concurrently, plus weather when due,
// and waits until all of them have settled. A failing source never cancels
// or short-circuits the others.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) *Batch {
	s.mu.Lock()
	s.seq++
	batch := &Batch{
		Seq:              s.seq,
		StartedAt:        now,
		WeatherAttempted: s.weatherDueLocked(now),
	}
	s.mu.Unlock()

	primary := make([]Sample, len(PrimarySources))
	var weatherSample Sample

	var wxDone sync.WaitGroup
	if batch.WeatherAttempted {
		wxDone.Add(1)
		go func() {
			defer wxDone.Done()
			weatherSample = s.fetch(ctx, SourceWeather)
		}()
	}

	start := time.Now()
	var wg sync.WaitGroup
	for i, src := range PrimarySources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			primary[i] = s.fetch(ctx, src)
		}(i, src)
	}
	wg.Wait()
	batch.Latency = time.Since(start)

	wxDone.Wait()

	batch.Samples = primary
	if batch.WeatherAttempted {
		batch.Samples = append(batch.Samples, weatherSample)
		if weatherSample.OK() {
			s.mu.Lock()
			if now.After(s.lastWeather) {
				s.lastWeather = now
			}
			s.mu.Unlock()
		}
	}

	batch.Unreachable = allUnreachable(primary)

	s.recorder.ObserveBatch(batch)

	logger.Debug().
		Uint64("seq", batch.Seq).
		Int64("latency_ms", batch.Latency.Milliseconds()).
		Bool("weather", batch.WeatherAttempted).
		Bool("unreachable", batch.Unreachable).
		Int("failed", len(batch.Failed())).
		Msg("Tick settled")

	return batch
}

func (s *Scheduler) fetch(ctx context.Context, src Source) Sample {
	start := time.Now()
	payload, err := s.request(ctx, src)
	s.recorder.ObserveSource(src, time.Since(start), err)

	sample := Sample{Source: src, FetchedAt: s.clock()}
	if err != nil {
		sample.Err = err
		logger.Debug().Str("source", src.String()).Err(err).Msg("Source fetch failed")
		return sample
	}
	sample.Payload = payload

	return sample
}

func (s *Scheduler) request(ctx context.Context, src Source) (any, error) {
	switch src {
	case SourceMount:
		return nonNil(s.control.MountStatus(ctx))
	case SourceDome:
		return nonNil(s.control.DomeStatus(ctx))
	case SourceDomeSync:
		return nonNil(s.control.DomeSyncStatus(ctx))
	case SourceTemperatures:
		return nonNil(s.control.Temperatures(ctx))
	case SourceSystem:
		return nonNil(s.control.SystemStatus(ctx))
	case SourceTime:
		return nonNil(s.control.Time(ctx))
	case SourceWeather:
		lat, lon := s.location()
		return currentWeather(s.weather.Current(ctx, lat, lon))
	default:
		return nil, errors.New().WithData(errors.ErrInvalidArgument, src.String())
	}
}

// nonNil collapses a typed nil pointer into an untyped nil so Sample.OK
// stays truthful.
func nonNil[T any](v *T, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, errors.New().WithMessage(errors.ErrSourceDecode, "empty response")
	}
	return v, nil
}

// currentWeather rejects reports without a current block so they neither
// reach the merge nor advance the weather watermark.
func currentWeather(r *weather.Report, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	if r == nil || r.Current == nil {
		return nil, errors.New().WithMessage(errors.ErrSourceDecode, "weather response has no current block")
	}
	return r, nil
}

func allUnreachable(samples []Sample) bool {
	if len(samples) == 0 {
		return false
	}
	for _, s := range samples {
		if s.Err == nil || !errors.HasCode(s.Err, errors.ErrUnreachable) {
			return false
		}
	}
	return true
}

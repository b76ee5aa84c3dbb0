package state_test

import (
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"codeberg.org/mutker/obsctl/internal/acquisition"
	"codeberg.org/mutker/obsctl/internal/controlserver"
	"codeberg.org/mutker/obsctl/internal/errors"
	"codeberg.org/mutker/obsctl/internal/state"
	"codeberg.org/mutker/obsctl/internal/weather"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	t0      = time.Date(2025, 10, 14, 10, 0, 0, 0, time.UTC)
	sydney  = mustLocation("Australia/Sydney")
	errDown = stderrors.New("source down")
)

func mustLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func ptr[T any](v T) *T { return &v }

// fullBatch builds a batch where every source succeeds. v shifts every
// reported value so consecutive batches are distinguishable.
func fullBatch(seq uint64, v float64, withWeather bool) *acquisition.Batch {
	at := t0.Add(time.Duration(seq) * 10 * time.Second)
	samples := []acquisition.Sample{
		{Source: acquisition.SourceMount, FetchedAt: at, Payload: &controlserver.MountStatus{
			RA:         ptr(fmt.Sprintf("%02.0fh30m00s", v)),
			Dec:        ptr(fmt.Sprintf("-%02.0fd30m00s", v)),
			Alt:        ptr("45:00:00"),
			Az:         ptr(fmt.Sprintf("%.1f", 100+v)),
			IsTracking: ptr(true),
			Status:     ptr("Tracking"),
			PierSide:   ptr("west"),
		}},
		{Source: acquisition.SourceDome, FetchedAt: at, Payload: &controlserver.DomeStatus{
			Az: ptr(200 + v), Moving: ptr(false), ShutterStatus: ptr("open"),
		}},
		{Source: acquisition.SourceDomeSync, FetchedAt: at, Payload: &controlserver.DomeSyncStatus{DomeSync: ptr(true)}},
		{Source: acquisition.SourceTemperatures, FetchedAt: at, Payload: &controlserver.Temperatures{
			MotorRaAz: ptr(20 + v), MotorDecAlt: ptr(21 + v), ElectronicsBox: ptr(30 + v),
		}},
		{Source: acquisition.SourceSystem, FetchedAt: at, Payload: &controlserver.SystemStatus{
			CPUUsage: 10 + v, MemoryUsage: 40 + v,
			Disks:          []controlserver.Disk{{Mountpoint: "/boot", Percent: 5}, {Mountpoint: "/", Percent: 50 + v}},
			CPUTemperature: map[string][]controlserver.SensorReading{"zzz": {{Current: 99}}, "coretemp": {{Current: 45 + v}}},
			Uptime:         controlserver.FlexString(fmt.Sprintf("%.0f days", v)),
		}},
		{Source: acquisition.SourceTime, FetchedAt: at, Payload: &controlserver.TimeStatus{
			LocalDate: "2025-10-14", LocalTime: fmt.Sprintf("21:%02.0f:00", v),
			UTCDate: "2025-10-14", UTCTime: fmt.Sprintf("10:%02.0f:00", v),
			SiderealTime: fmt.Sprintf("%02.0f:00:00", v), JulianDate: controlserver.FlexString(fmt.Sprintf("%.1f", 2460962+v)),
		}},
	}
	b := &acquisition.Batch{Seq: seq, StartedAt: at, Samples: samples, Latency: 120 * time.Millisecond}
	if withWeather {
		b.WeatherAttempted = true
		b.Samples = append(b.Samples, acquisition.Sample{
			Source: acquisition.SourceWeather, FetchedAt: at,
			Payload: &weather.Report{Current: &weather.Current{
				Temperature2m: 15 + v, RelativeHumidity2m: 60, CloudCover: 80,
				WindSpeed10m: 2.3, WindDirection10m: 51, SurfacePressure: 1015,
			}},
		})
	}
	return b
}

func fail(b *acquisition.Batch, src acquisition.Source) *acquisition.Batch {
	for i := range b.Samples {
		if b.Samples[i].Source == src {
			b.Samples[i].Payload = nil
			b.Samples[i].Err = errDown
		}
	}
	return b
}

func TestMergeFullBatch(t *testing.T) {
	r := state.NewReconciler(sydney)
	got := r.Merge(state.Initial(), fullBatch(1, 5, true))

	assert.Equal(t, uint64(1), got.Seq)
	assert.InDelta(t, 5.5, got.Telescope.RA, 1e-9)
	assert.InDelta(t, -5.5, got.Telescope.Dec, 1e-9)
	assert.InDelta(t, 45, got.Telescope.Alt, 1e-9)
	assert.InDelta(t, 105, got.Telescope.Az, 1e-9)
	assert.True(t, got.Telescope.MountReady)
	assert.Equal(t, state.PierWest, got.Telescope.PierSide)

	assert.Equal(t, state.Dome{Azimuth: 205, IsSlaved: true, Shutter: state.ShutterOpen}, got.Dome)

	require.NotNil(t, got.Motors.MotorRaAz)
	assert.Equal(t, 25.0, *got.Motors.MotorRaAz)
	assert.Nil(t, got.Motors.KeypadPCB)
	assert.Equal(t, 1, got.Motors.History.Len())

	assert.Equal(t, state.Connected, got.System.Connection)
	assert.Equal(t, 55.0, got.System.DiskUsage, "root filesystem preferred")
	assert.Equal(t, 50.0, got.System.SystemTempC, "first sensor by name")
	assert.Equal(t, 120.0, got.System.APILatencyMs)
	assert.Equal(t, "5 days", got.System.Uptime)

	assert.Equal(t, 20.0, got.Weather.Temperature)
	assert.Equal(t, 1015.0, got.Weather.Pressure)

	assert.Equal(t, time.Date(2025, 10, 14, 21, 5, 0, 0, sydney), got.Time.LocalTime)
	assert.Equal(t, time.Date(2025, 10, 14, 10, 5, 0, 0, time.UTC), got.Time.UTCTime)
	assert.Equal(t, "05:00:00", got.Time.SiderealTime)
	assert.Equal(t, 2460967.0, got.Time.JulianDate)
}

func TestFailedGroupIsUntouched(t *testing.T) {
	r := state.NewReconciler(sydney)
	base := r.Merge(state.Initial(), fullBatch(1, 5, true))

	tests := []struct {
		source acquisition.Source
		check  func(t *testing.T, before, after state.Observatory)
	}{
		{acquisition.SourceMount, func(t *testing.T, before, after state.Observatory) {
			assert.Equal(t, before.Telescope, after.Telescope)
			assert.NotEqual(t, before.Dome, after.Dome)
		}},
		{acquisition.SourceDome, func(t *testing.T, before, after state.Observatory) {
			assert.Equal(t, before.Dome, after.Dome)
			assert.NotEqual(t, before.Telescope, after.Telescope)
		}},
		{acquisition.SourceTemperatures, func(t *testing.T, before, after state.Observatory) {
			assert.Equal(t, before.Motors, after.Motors)
			assert.Equal(t, before.Motors.History.Len(), after.Motors.History.Len())
		}},
		{acquisition.SourceSystem, func(t *testing.T, before, after state.Observatory) {
			assert.Equal(t, state.Error, after.System.Connection)
			after.System.Connection = before.System.Connection
			assert.Equal(t, before.System, after.System)
		}},
		{acquisition.SourceWeather, func(t *testing.T, before, after state.Observatory) {
			assert.Equal(t, before.Weather, after.Weather)
		}},
		{acquisition.SourceTime, func(t *testing.T, before, after state.Observatory) {
			assert.Equal(t, before.Time, after.Time)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.source.String(), func(t *testing.T) {
			after := r.Merge(base, fail(fullBatch(2, 7, true), tt.source))
			tt.check(t, base, after)

			// Every other group moved on.
			if tt.source != acquisition.SourceMount {
				assert.InDelta(t, 7.5, after.Telescope.RA, 1e-9)
			}
			if tt.source != acquisition.SourceTime {
				assert.Equal(t, "07:00:00", after.Time.SiderealTime)
			}
			if tt.source != acquisition.SourceSystem {
				assert.Equal(t, state.Connected, after.System.Connection)
			}
		})
	}
}

func TestDomeSyncFailureKeepsSlaveFlag(t *testing.T) {
	r := state.NewReconciler(sydney)
	base := r.Merge(state.Initial(), fullBatch(1, 5, false))
	require.True(t, base.Dome.IsSlaved)

	after := r.Merge(base, fail(fullBatch(2, 7, false), acquisition.SourceDomeSync))
	assert.True(t, after.Dome.IsSlaved)
	assert.Equal(t, 207.0, after.Dome.Azimuth)
}

func TestShutterKeptWhenNotReported(t *testing.T) {
	r := state.NewReconciler(sydney)
	base := r.Merge(state.Initial(), fullBatch(1, 5, false))

	b := fullBatch(2, 5, false)
	dome, _ := b.Sample(acquisition.SourceDome)
	dome.Payload.(*controlserver.DomeStatus).ShutterStatus = nil

	assert.Equal(t, state.ShutterOpen, r.Merge(base, b).Dome.Shutter)
}

func TestTelescopeShallowMerge(t *testing.T) {
	r := state.NewReconciler(sydney)
	base := r.Merge(state.Initial(), fullBatch(1, 5, false))

	b := &acquisition.Batch{Seq: 2, Samples: []acquisition.Sample{{
		Source:  acquisition.SourceMount,
		Payload: &controlserver.MountStatus{Dec: ptr("+10:00:00"), PierSide: ptr("EAST")},
	}}}
	got := r.Merge(base, b)

	assert.InDelta(t, 10, got.Telescope.Dec, 1e-9)
	assert.Equal(t, state.PierEast, got.Telescope.PierSide)
	assert.Equal(t, base.Telescope.RA, got.Telescope.RA)
	assert.Equal(t, base.Telescope.Status, got.Telescope.Status)
	assert.Equal(t, base.Telescope.IsTracking, got.Telescope.IsTracking)
}

func TestMergeIsIdempotent(t *testing.T) {
	r := state.NewReconciler(sydney)
	b := fail(fullBatch(3, 8, true), acquisition.SourceDome)

	once := r.Merge(state.Initial(), b)
	twice := r.Merge(once, b)

	assert.Equal(t, 2, twice.Motors.History.Len())
	assert.Equal(t, once.Motors.History.Records()[0], twice.Motors.History.Records()[1])

	// History is exempt; everything else must converge.
	once.Motors.History = state.History{}
	twice.Motors.History = state.History{}
	assert.Equal(t, once, twice)
}

func TestMergeDoesNotMutatePrevious(t *testing.T) {
	r := state.NewReconciler(sydney)
	base := r.Merge(state.Initial(), fullBatch(1, 5, false))
	snapshot := base

	r.Merge(base, fullBatch(2, 9, true))

	assert.Equal(t, snapshot, base)
	assert.Equal(t, 1, base.Motors.History.Len())
}

func TestHistoryRetainsLastHundred(t *testing.T) {
	r := state.NewReconciler(time.UTC)
	obs := state.Initial()

	var stamps []string
	for i := 1; i <= 150; i++ {
		b := fullBatch(uint64(i), 1, false)
		obs = r.Merge(obs, b)
		stamps = append(stamps, b.StartedAt.Format("15:04:05"))
		require.LessOrEqual(t, obs.Motors.History.Len(), state.HistoryCapacity)
	}

	records := obs.Motors.History.Records()
	require.Len(t, records, 100)
	for i, rec := range records {
		assert.Equal(t, stamps[50+i], rec.Timestamp)
	}
}

func TestWeatherOnlyWhenAttempted(t *testing.T) {
	r := state.NewReconciler(sydney)
	base := r.Merge(state.Initial(), fullBatch(1, 5, true))

	// A weather sample without the attempted flag is ignored.
	b := fullBatch(2, 9, true)
	b.WeatherAttempted = false
	assert.Equal(t, base.Weather, r.Merge(base, b).Weather)

	// A report without a current block is ignored.
	b = fullBatch(3, 9, true)
	wx, _ := b.Sample(acquisition.SourceWeather)
	wx.Payload.(*weather.Report).Current = nil
	assert.Equal(t, base.Weather, r.Merge(base, b).Weather)
}

func TestTimePartialParse(t *testing.T) {
	r := state.NewReconciler(sydney)
	base := r.Merge(state.Initial(), fullBatch(1, 5, false))

	b := &acquisition.Batch{Seq: 2, Samples: []acquisition.Sample{{
		Source: acquisition.SourceTime,
		Payload: &controlserver.TimeStatus{
			LocalDate: "garbage", UTCDate: "2025-10-15", UTCTime: "00:00:01.5",
			JulianDate: "n/a",
		},
	}}}
	got := r.Merge(base, b)

	assert.Equal(t, base.Time.LocalTime, got.Time.LocalTime)
	assert.Equal(t, time.Date(2025, 10, 15, 0, 0, 1, 5e8, time.UTC), got.Time.UTCTime)
	assert.Equal(t, base.Time.SiderealTime, got.Time.SiderealTime)
	assert.Equal(t, base.Time.JulianDate, got.Time.JulianDate)
}

func TestConnectionStatus(t *testing.T) {
	r := state.NewReconciler(sydney)
	assert.Equal(t, state.Disconnected, state.Initial().System.Connection)

	connected := r.Merge(state.Initial(), fullBatch(1, 5, false))
	assert.Equal(t, state.Connected, connected.System.Connection)

	unreachable := fullBatch(2, 6, false)
	for _, src := range acquisition.PrimarySources {
		fail(unreachable, src)
	}
	unreachable.Unreachable = true
	got := r.Merge(connected, unreachable)
	assert.Equal(t, state.Disconnected, got.System.Connection)
	assert.Equal(t, connected.Telescope, got.Telescope)
	assert.Equal(t, connected.System.CPUUsage, got.System.CPUUsage)

	// Reachable but without system data.
	partial := &acquisition.Batch{Seq: 3, Samples: []acquisition.Sample{
		{Source: acquisition.SourceSystem, Err: errors.New().New(errors.ErrSourceStatus)},
	}}
	assert.Equal(t, state.Error, r.Merge(connected, partial).System.Connection)

	disc := state.MarkDisconnected(connected, 4)
	assert.Equal(t, state.Disconnected, disc.System.Connection)
	assert.Equal(t, uint64(4), disc.Seq)
	assert.Equal(t, connected.Dome, disc.Dome)
}

// Mount succeeds, dome fails, weather not due.
func TestScenarioPartialTick(t *testing.T) {
	r := state.NewReconciler(sydney)
	prev := r.Merge(state.Initial(), fullBatch(1, 5, true))

	b := fail(fullBatch(2, 9, false), acquisition.SourceDome)
	got := r.Merge(prev, b)

	assert.InDelta(t, 9.5, got.Telescope.RA, 1e-9)
	assert.Equal(t, prev.Dome, got.Dome)
	assert.Equal(t, prev.Weather, got.Weather)
	assert.Equal(t, state.Connected, got.System.Connection)
}

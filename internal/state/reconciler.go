package state

import (
	"sort"
	"strings"
	"time"

	"codeberg.org/mutker/obsctl/internal/acquisition"
	"codeberg.org/mutker/obsctl/internal/controlserver"
	"codeberg.org/mutker/obsctl/internal/coord"
	"codeberg.org/mutker/obsctl/internal/weather"
)

const (
	historyTimeFormat = "15:04:05"
	dateTimeLayout    = "2006-01-02T15:04:05"
	rootMountpoint    = "/"
)

// Reconciler merges tick batches into the canonical state. Every field
// group is merged on its own: a failed source leaves its group untouched
// and never affects another group.
type Reconciler struct {
	loc *time.Location
}

// NewReconciler returns a reconciler that interprets the control server's
// local date and time in loc.
func NewReconciler(loc *time.Location) *Reconciler {
	if loc == nil {
		loc = time.Local
	}
	return &Reconciler{loc: loc}
}

// Merge folds batch into prev and returns the new state. prev is not
// modified. Merging the same batch twice yields the same state apart from
// the motor history, which is append-only.
func (r *Reconciler) Merge(prev Observatory, batch *acquisition.Batch) Observatory {
	next := prev
	next.Seq = batch.Seq
	next.UpdatedAt = batch.StartedAt

	if s, ok := batch.Sample(acquisition.SourceMount); ok && s.OK() {
		next.Telescope = mergeTelescope(prev.Telescope, s.Payload.(*controlserver.MountStatus))
	}

	if s, ok := batch.Sample(acquisition.SourceDome); ok && s.OK() {
		next.Dome = mergeDome(prev.Dome, s.Payload.(*controlserver.DomeStatus))
	}
	if s, ok := batch.Sample(acquisition.SourceDomeSync); ok && s.OK() {
		if sync := s.Payload.(*controlserver.DomeSyncStatus).DomeSync; sync != nil {
			next.Dome.IsSlaved = *sync
		} else {
			next.Dome.IsSlaved = false
		}
	}

	if s, ok := batch.Sample(acquisition.SourceTemperatures); ok && s.OK() {
		readings := motorReadings(s.Payload.(*controlserver.Temperatures))
		next.Motors.MotorReadings = readings
		next.Motors.History.Append(HistoryRecord{
			Timestamp:     s.FetchedAt.In(r.loc).Format(historyTimeFormat),
			MotorReadings: readings,
		})
	}

	switch s, ok := batch.Sample(acquisition.SourceSystem); {
	case batch.Unreachable:
		next.System.Connection = Disconnected
	case ok && s.OK():
		next.System = mergeSystem(prev.System, s.Payload.(*controlserver.SystemStatus), batch.Latency)
	default:
		next.System.Connection = Error
	}

	if batch.WeatherAttempted {
		if s, ok := batch.Sample(acquisition.SourceWeather); ok && s.OK() {
			if report := s.Payload.(*weather.Report); report.Current != nil {
				next.Weather = mergeWeather(prev.Weather, report.Current)
			}
		}
	}

	if s, ok := batch.Sample(acquisition.SourceTime); ok && s.OK() {
		next.Time = r.mergeTime(prev.Time, s.Payload.(*controlserver.TimeStatus))
	}

	return next
}

// MarkDisconnected records tick seq as one that failed before any source
// settled. Only the connection status changes.
func MarkDisconnected(prev Observatory, seq uint64) Observatory {
	next := prev
	next.Seq = seq
	next.System.Connection = Disconnected
	return next
}

func mergeTelescope(prev Telescope, m *controlserver.MountStatus) Telescope {
	next := prev
	if m.RA != nil {
		next.RA = coord.Parse(*m.RA)
	}
	if m.Dec != nil {
		next.Dec = coord.Parse(*m.Dec)
	}
	if m.Alt != nil {
		next.Alt = coord.Parse(*m.Alt)
	}
	if m.Az != nil {
		next.Az = coord.Parse(*m.Az)
	}
	if m.IsTracking != nil {
		next.IsTracking = *m.IsTracking
	}
	if m.Status != nil {
		next.Status = *m.Status
		status := strings.ToLower(*m.Status)
		next.MountReady = strings.Contains(status, "tracking") || strings.Contains(status, "stopped")
	}
	if m.PierSide != nil {
		next.PierSide = ParsePierSide(*m.PierSide)
	}
	return next
}

// mergeDome replaces the dome group; the shutter keeps its previous state
// when the controller does not report one.
func mergeDome(prev Dome, d *controlserver.DomeStatus) Dome {
	next := Dome{
		IsSlaved: prev.IsSlaved,
		Shutter:  prev.Shutter,
	}
	if d.Az != nil {
		next.Azimuth = *d.Az
	}
	if d.Moving != nil {
		next.IsMoving = *d.Moving
	}
	if d.ShutterStatus != nil {
		next.Shutter = ParseShutterState(*d.ShutterStatus)
	}
	return next
}

func motorReadings(t *controlserver.Temperatures) MotorReadings {
	return MotorReadings{
		MotorRaAz:         copyFloat(t.MotorRaAz),
		MotorDecAlt:       copyFloat(t.MotorDecAlt),
		MotorRaAzDriver:   copyFloat(t.MotorRaAzDriver),
		MotorDecAltDriver: copyFloat(t.MotorDecAltDriver),
		ElectronicsBox:    copyFloat(t.ElectronicsBox),
		KeypadDisplay:     copyFloat(t.KeypadDisplay),
		KeypadPCB:         copyFloat(t.KeypadPCB),
		KeypadController:  copyFloat(t.KeypadController),
	}
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func mergeSystem(prev System, s *controlserver.SystemStatus, latency time.Duration) System {
	next := prev
	next.Connection = Connected
	next.CPUUsage = s.CPUUsage
	next.MemoryUsage = s.MemoryUsage
	next.DiskUsage = diskUsage(s.Disks)
	next.SystemTempC = systemTemperature(s.CPUTemperature)
	next.Uptime = string(s.Uptime)
	next.APILatencyMs = float64(latency.Microseconds()) / 1000
	return next
}

// diskUsage prefers the root filesystem, then the first disk listed.
func diskUsage(disks []controlserver.Disk) float64 {
	for _, d := range disks {
		if d.Mountpoint == rootMountpoint {
			return d.Percent
		}
	}
	if len(disks) > 0 {
		return disks[0].Percent
	}
	return 0
}

// systemTemperature takes the first reading of the first sensor by name.
func systemTemperature(sensors map[string][]controlserver.SensorReading) float64 {
	names := make([]string, 0, len(sensors))
	for name := range sensors {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if readings := sensors[name]; len(readings) > 0 {
			return readings[0].Current
		}
	}
	return 0
}

func mergeWeather(prev Weather, c *weather.Current) Weather {
	next := prev
	next.Temperature = c.Temperature2m
	next.Humidity = c.RelativeHumidity2m
	next.CloudCover = c.CloudCover
	next.WindSpeed = c.WindSpeed10m
	next.WindDirection = c.WindDirection10m
	next.Pressure = c.SurfacePressure
	return next
}

func (r *Reconciler) mergeTime(prev Time, t *controlserver.TimeStatus) Time {
	next := prev
	if local, err := time.ParseInLocation(dateTimeLayout, t.LocalDate+"T"+t.LocalTime, r.loc); err == nil {
		next.LocalTime = local
	}
	if utc, err := time.Parse(time.RFC3339Nano, t.UTCDate+"T"+t.UTCTime+"Z"); err == nil {
		next.UTCTime = utc
	}
	if t.SiderealTime != "" {
		next.SiderealTime = t.SiderealTime
	}
	if jd, ok := t.JulianDate.Float(); ok {
		next.JulianDate = jd
	}
	return next
}

// Package state holds the canonical observatory model and the reconciler
// that folds each tick's samples into it.
package state

import "time"

// Observatory is the merged, typed snapshot of everything the dashboard
// shows. Seq is the sequence number of the batch that produced it.
type Observatory struct {
	Seq       uint64    `json:"seq"`
	UpdatedAt time.Time `json:"updatedAt"`
	Telescope Telescope `json:"telescope"`
	Dome      Dome      `json:"dome"`
	Motors    Motors    `json:"motors"`
	System    System    `json:"system"`
	Weather   Weather   `json:"weather"`
	Time      Time      `json:"time"`
}

// Telescope holds the mount's pointing. RA is in hours, the rest in degrees.
type Telescope struct {
	RA         float64  `json:"ra"`
	Dec        float64  `json:"dec"`
	Alt        float64  `json:"alt"`
	Az         float64  `json:"az"`
	IsTracking bool     `json:"isTracking"`
	MountReady bool     `json:"mountReady"`
	Status     string   `json:"status"`
	PierSide   PierSide `json:"pierSide"`
}

type Dome struct {
	Azimuth  float64      `json:"azimuth"`
	IsMoving bool         `json:"isMoving"`
	IsSlaved bool         `json:"isSlaved"`
	Shutter  ShutterState `json:"shutterState"`
}

// MotorReadings are the eight temperature sensors in °C. A nil reading
// means the sensor did not report.
type MotorReadings struct {
	MotorRaAz         *float64 `json:"motorRaAz"`
	MotorDecAlt       *float64 `json:"motorDecAlt"`
	MotorRaAzDriver   *float64 `json:"motorRaAzDriver"`
	MotorDecAltDriver *float64 `json:"motorDecAltDriver"`
	ElectronicsBox    *float64 `json:"electronicsBox"`
	KeypadDisplay     *float64 `json:"keypadDisplay"`
	KeypadPCB         *float64 `json:"keypadPcb"`
	KeypadController  *float64 `json:"keypadController"`
}

type Motors struct {
	MotorReadings
	History History `json:"history"`
}

type System struct {
	Connection   ConnectionStatus `json:"connectionStatus"`
	CPUUsage     float64          `json:"cpuUsage"`
	MemoryUsage  float64          `json:"memoryUsage"`
	DiskUsage    float64          `json:"diskUsage"`
	APILatencyMs float64          `json:"apiLatency"`
	SystemTempC  float64          `json:"systemTemp"`
	Uptime       string           `json:"uptime"`
}

type Weather struct {
	Temperature   float64 `json:"temperature"`
	Humidity      float64 `json:"humidity"`
	CloudCover    float64 `json:"cloudCover"`
	WindSpeed     float64 `json:"windSpeed"`
	WindDirection float64 `json:"windDirection"`
	Pressure      float64 `json:"pressure"`
}

type Time struct {
	LocalTime    time.Time `json:"localTime"`
	UTCTime      time.Time `json:"utcTime"`
	SiderealTime string    `json:"siderealTime"`
	JulianDate   float64   `json:"julianDate"`
}

// Initial returns the state shown before the first successful tick.
func Initial() Observatory {
	return Observatory{
		Telescope: Telescope{
			Status:   "Unknown",
			PierSide: PierUnknown,
		},
		Dome: Dome{
			Shutter: ShutterUnknown,
		},
		System: System{
			Connection: Disconnected,
			Uptime:     "0h 0m 0s",
		},
		Time: Time{
			SiderealTime: "00:00:00",
		},
	}
}

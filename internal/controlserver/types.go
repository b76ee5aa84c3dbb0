package controlserver

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// FlexString accepts either a JSON string or a JSON number. The control
// server reports some fields (julian date, uptime) in either form depending
// on its version.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// Float parses the value as a float64.
func (f FlexString) Float() (float64, bool) {
	v, err := strconv.ParseFloat(string(f), 64)
	return v, err == nil
}

// MountStatus is the payload of GET /telescope/mount_status. Absent fields
// stay nil so the reconciler can tell "omitted" from "zero".
type MountStatus struct {
	RA         *string `json:"ra_str"`
	Dec        *string `json:"dec_str"`
	Alt        *string `json:"alt_str"`
	Az         *string `json:"az_str"`
	IsTracking *bool   `json:"is_tracking"`
	Status     *string `json:"status"`
	PierSide   *string `json:"pier_side"`
}

// DomeStatus is the payload of GET /dome/status.
type DomeStatus struct {
	Az            *float64 `json:"az"`
	Moving        *bool    `json:"moving"`
	ShutterStatus *string  `json:"shutter_status"`
}

// DomeSyncStatus is the payload of GET /dome/sync/status.
type DomeSyncStatus struct {
	DomeSync *bool `json:"dome_sync"`
}

// Temperatures is the payload of GET /telescope/temperatures. Each sensor
// may be missing or null.
type Temperatures struct {
	MotorRaAz         *float64 `json:"motor_ra_az"`
	MotorDecAlt       *float64 `json:"motor_dec_alt"`
	MotorRaAzDriver   *float64 `json:"motor_ra_az_driver"`
	MotorDecAltDriver *float64 `json:"motor_dec_alt_driver"`
	ElectronicsBox    *float64 `json:"electronics_box"`
	KeypadDisplay     *float64 `json:"keypad_display"`
	KeypadPCB         *float64 `json:"keypad_pcb"`
	KeypadController  *float64 `json:"keypad_controller"`
}

// Disk is one filesystem entry of the system status.
type Disk struct {
	Mountpoint string  `json:"mountpoint"`
	Percent    float64 `json:"percent"`
}

// SensorReading is one psutil-style temperature reading.
type SensorReading struct {
	Label   string  `json:"label"`
	Current float64 `json:"current"`
}

// SystemStatus is the payload of GET /system/status.
type SystemStatus struct {
	CPUUsage       float64                    `json:"cpu_usage"`
	MemoryUsage    float64                    `json:"memory_usage"`
	Disks          []Disk                     `json:"disks"`
	CPUTemperature map[string][]SensorReading `json:"cpu_temperature"`
	Uptime         FlexString                 `json:"uptime"`
}

// TimeStatus is the payload of GET /telescope/time.
type TimeStatus struct {
	LocalDate    string     `json:"local_date"`
	LocalTime    string     `json:"local_time"`
	UTCDate      string     `json:"utc_date"`
	UTCTime      string     `json:"utc_time"`
	SiderealTime string     `json:"sidereal_time"`
	JulianDate   FlexString `json:"julian_date"`
}

// Direction is a guide/move direction accepted by the mount.
type Direction string

const (
	North Direction = "N"
	South Direction = "S"
	East  Direction = "E"
	West  Direction = "W"
)

// Valid reports whether d is one of the four cardinal directions.
func (d Direction) Valid() bool {
	switch d {
	case North, South, East, West:
		return true
	default:
		return false
	}
}

// SlewType selects the coordinate frame of a slew.
type SlewType string

const (
	SlewEquatorial SlewType = "equatorial"
	SlewAltAz      SlewType = "altaz"
)

// Target is the body of POST /telescope/target. RA is in hours, the other
// fields in degrees.
type Target struct {
	RA  *float64 `json:"ra,omitempty"`
	Dec *float64 `json:"dec,omitempty"`
	Alt *float64 `json:"alt,omitempty"`
	Az  *float64 `json:"az,omitempty"`
}

// SlewOptions is the body of POST /telescope/slew.
type SlewOptions struct {
	SlewType SlewType `json:"slew_type"`
	PierSide string   `json:"pier_side,omitempty"`
}

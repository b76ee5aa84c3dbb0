// Package kinematics turns canonical observatory state into the rotation
// angles a renderer needs to pose the mount and dome.
//
// World frame: +X east, +Y up, +Z south. All outputs are radians.
package kinematics

import (
	"math"

	"codeberg.org/mutker/obsctl/internal/coord"
	"codeberg.org/mutker/obsctl/internal/state"
	"github.com/soniakeys/unit"
)

// MountAngles are the four exact rotation targets of a German equatorial
// mount, applied in field order from the pier outward.
type MountAngles struct {
	LatitudeTiltRad float64 `json:"latitudeTilt"`
	HourAngleRad    float64 `json:"hourAngle"`
	PierFlipRad     float64 `json:"pierFlip"`
	DeclinationRad  float64 `json:"declination"`
}

// ComputeMountAngles derives the mount pose. ra is in hours, dec and
// latitude in degrees, sidereal is the local sidereal time as "HH:MM:SS".
// A sidereal time that is not exactly three numeric fields counts as 0h.
func ComputeMountAngles(ra, dec float64, sidereal string, side state.PierSide, latitude float64) MountAngles {
	lst, ok := coord.ParseSexagesimalTime(sidereal)
	if !ok {
		lst = 0
	}

	return MountAngles{
		LatitudeTiltRad: -unit.AngleFromDeg(latitude).Rad(),
		HourAngleRad:    unit.HourAngleFromHour(lst - ra).Rad(),
		PierFlipRad:     pierFlip(side),
		DeclinationRad:  unit.AngleFromDeg(dec).Rad(),
	}
}

// pierFlip is 0 only for an east pier side; west and unknown both flip.
func pierFlip(side state.PierSide) float64 {
	if side == state.PierEast {
		return 0
	}
	return math.Pi
}

// Smooth moves current a fraction alpha of the way towards target. It is a
// presentation helper; the angles above are always exact.
func Smooth(current, target, alpha float64) float64 {
	switch {
	case alpha <= 0:
		return current
	case alpha >= 1:
		return target
	}
	return current + (target-current)*alpha
}

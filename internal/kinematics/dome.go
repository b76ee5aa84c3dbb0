package kinematics

import (
	"math"

	"codeberg.org/mutker/obsctl/internal/state"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/soniakeys/unit"
)

const (
	// DefaultSlitStartDeg is the slit's lower edge above the horizon.
	DefaultSlitStartDeg = 20.0
	// DefaultSlitWidth is the slit width in metres.
	DefaultSlitWidth = 0.5
)

// DomeAngles pose the dome and its shutter.
type DomeAngles struct {
	DomeRotationRad     float64 `json:"domeRotation"`
	ShutterOpenRad      float64 `json:"shutterOpen"`
	ShutterOpenFraction float64 `json:"shutterOpenFraction"`
}

// ComputeDomeAngles rotates the dome by +azimuth about world +Y and moves
// the shutter to fully open (pi/2 minus the slit start) while open or
// opening, closed otherwise.
func ComputeDomeAngles(azimuth float64, shutter state.ShutterState, slitStartDeg float64) DomeAngles {
	a := DomeAngles{DomeRotationRad: unit.AngleFromDeg(azimuth).Rad()}

	switch shutter {
	case state.ShutterOpen, state.ShutterOpening:
		a.ShutterOpenRad = math.Pi/2 - unit.AngleFromDeg(slitStartDeg).Rad()
		a.ShutterOpenFraction = 1
	case state.ShutterClosed, state.ShutterClosing, state.ShutterUnknown:
	}

	return a
}

// Plane is n·p + Constant = 0 with a unit normal. Points with a negative
// distance lie behind the plane.
type Plane struct {
	Normal   mgl64.Vec3 `json:"normal"`
	Constant float64    `json:"constant"`
}

// Distance is the signed distance from p to the plane.
func (pl Plane) Distance(p mgl64.Vec3) float64 {
	return pl.Normal.Dot(p) + pl.Constant
}

// Translate moves the plane by offset.
func (pl Plane) Translate(offset mgl64.Vec3) Plane {
	return Plane{Normal: pl.Normal, Constant: pl.Constant - pl.Normal.Dot(offset)}
}

// SlitClipPlanes returns the world-space planes that cut the slit out of a
// dome centred on the origin and rotated by domeRotationRad. The slit is
// the region behind all three planes; at zero rotation it runs along -Z.
func SlitClipPlanes(domeRotationRad, slitWidth float64) []Plane {
	local := []Plane{
		{Normal: axisX, Constant: -slitWidth / 2},
		{Normal: axisX.Mul(-1), Constant: -slitWidth / 2},
		{Normal: axisZ, Constant: 0},
	}

	q := mgl64.QuatRotate(domeRotationRad, axisY)
	planes := make([]Plane, len(local))
	for i, pl := range local {
		planes[i] = Plane{Normal: q.Rotate(pl.Normal), Constant: pl.Constant}
	}
	return planes
}

// InSlit reports whether p lies inside the opening cut by planes.
func InSlit(planes []Plane, p mgl64.Vec3) bool {
	for _, pl := range planes {
		if pl.Distance(p) >= 0 {
			return false
		}
	}
	return len(planes) > 0
}

package kinematics

import "github.com/go-gl/mathgl/mgl64"

var (
	axisX = mgl64.Vec3{1, 0, 0}
	axisY = mgl64.Vec3{0, 1, 0}
	axisZ = mgl64.Vec3{0, 0, 1}
)

// Stage is one rotation of the chain about an axis of its parent's frame.
type Stage struct {
	Name     string     `json:"name"`
	Axis     mgl64.Vec3 `json:"axis"`
	AngleRad float64    `json:"angle"`
	// Frame is the world orientation after this stage and all before it.
	Frame mgl64.Quat `json:"-"`
}

// Chain is the nested rotation chain latitude tilt -> hour angle -> pier
// flip -> declination. Each stage rotates about an axis of the frame left
// by the previous one, so the order is fixed.
type Chain struct {
	stages [4]Stage
}

func NewChain(a MountAngles) Chain {
	specs := [4]Stage{
		{Name: "latitude_tilt", Axis: axisX, AngleRad: a.LatitudeTiltRad},
		{Name: "hour_angle", Axis: axisY, AngleRad: a.HourAngleRad},
		{Name: "pier_flip", Axis: axisY, AngleRad: a.PierFlipRad},
		{Name: "declination", Axis: axisX, AngleRad: a.DeclinationRad},
	}

	var c Chain
	frame := mgl64.QuatIdent()
	for i, s := range specs {
		frame = frame.Mul(mgl64.QuatRotate(s.AngleRad, s.Axis)).Normalize()
		s.Frame = frame
		c.stages[i] = s
	}
	return c
}

// Stages returns the stages in application order.
func (c Chain) Stages() []Stage {
	out := make([]Stage, len(c.stages))
	copy(out, c.stages[:])
	return out
}

// Orientation is the world orientation of the declination (tube) frame.
func (c Chain) Orientation() mgl64.Quat {
	return c.stages[3].Frame
}

// PolarAxis is the RA axis in world space.
func (c Chain) PolarAxis() mgl64.Vec3 {
	return c.stages[0].Frame.Rotate(axisY)
}

// DeclinationAxis is the declination shaft direction in world space.
func (c Chain) DeclinationAxis() mgl64.Vec3 {
	return c.stages[2].Frame.Rotate(axisX)
}

// Pointing is the optical axis of the tube in world space.
func (c Chain) Pointing() mgl64.Vec3 {
	return c.Orientation().Rotate(axisZ)
}

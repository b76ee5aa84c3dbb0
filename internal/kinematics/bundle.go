package kinematics

import (
	"codeberg.org/mutker/obsctl/internal/settings"
	"codeberg.org/mutker/obsctl/internal/state"
	"github.com/go-gl/mathgl/mgl64"
)

// Bundle is everything a renderer needs for one frame.
type Bundle struct {
	Seq        uint64      `json:"seq"`
	Mount      MountAngles `json:"mount"`
	Dome       DomeAngles  `json:"dome"`
	ClipPlanes []Plane     `json:"clipPlanes"`
	PolarAxis  mgl64.Vec3  `json:"polarAxis"`
	DecAxis    mgl64.Vec3  `json:"decAxis"`
	Pointing   mgl64.Vec3  `json:"pointing"`
	// Pivot is the world position of the RA axis mount point.
	Pivot mgl64.Vec3 `json:"pivot"`
}

// Compute derives the render bundle for obs with the site geometry geo.
func Compute(obs state.Observatory, geo settings.Geometry) Bundle {
	mount := ComputeMountAngles(
		obs.Telescope.RA,
		obs.Telescope.Dec,
		obs.Time.SiderealTime,
		obs.Telescope.PierSide,
		geo.Site.Latitude,
	)
	dome := ComputeDomeAngles(obs.Dome.Azimuth, obs.Dome.Shutter, geo.Dome.SlitStartDeg)
	chain := NewChain(mount)

	center := mgl64.Vec3{geo.Dome.CenterX, geo.Dome.CenterY, geo.Dome.CenterZ}
	planes := SlitClipPlanes(dome.DomeRotationRad, geo.Dome.SlitWidth)
	for i := range planes {
		planes[i] = planes[i].Translate(center)
	}

	return Bundle{
		Seq:        obs.Seq,
		Mount:      mount,
		Dome:       dome,
		ClipPlanes: planes,
		PolarAxis:  chain.PolarAxis(),
		DecAxis:    chain.DeclinationAxis(),
		Pointing:   chain.Pointing(),
		Pivot: mgl64.Vec3{
			geo.Mount.OffsetX,
			geo.Pier.Height + geo.Mount.Height,
			geo.Mount.OffsetZ,
		},
	}
}

package settings

import (
	"math"

	"codeberg.org/mutker/obsctl/internal/errors"
)

// Geometry describes the physical layout of the site used to pose the
// renderer's model. Lengths are in metres, angles in degrees.
type Geometry struct {
	Site           Site           `toml:"site" json:"site"`
	Dome           Dome           `toml:"dome" json:"dome"`
	Pier           Pier           `toml:"pier" json:"pier"`
	Mount          Mount          `toml:"mount" json:"mount"`
	RAAxis         Axis           `toml:"ra_axis" json:"raAxis"`
	DecAxis        Axis           `toml:"dec_axis" json:"decAxis"`
	Tube           Tube           `toml:"tube" json:"tube"`
	Counterweights Counterweights `toml:"counterweights" json:"counterweights"`
}

type Site struct {
	Name      string  `toml:"name" json:"name"`
	Latitude  float64 `toml:"latitude" json:"latitude"`
	Longitude float64 `toml:"longitude" json:"longitude"`
	Elevation float64 `toml:"elevation" json:"elevation"`
}

type Dome struct {
	Radius  float64 `toml:"radius" json:"radius"`
	CenterX float64 `toml:"center_x" json:"centerX"`
	CenterY float64 `toml:"center_y" json:"centerY"`
	CenterZ float64 `toml:"center_z" json:"centerZ"`
	// SlitStartDeg is the height of the slit's lower edge above the horizon.
	SlitStartDeg float64 `toml:"slit_start_deg" json:"slitStartDeg"`
	SlitWidth    float64 `toml:"slit_width" json:"slitWidth"`
}

type Pier struct {
	Height float64 `toml:"height" json:"height"`
	Radius float64 `toml:"radius" json:"radius"`
}

// Mount places the RA axis mount point on top of the pier. OffsetX is
// positive east, OffsetZ positive south.
type Mount struct {
	Height  float64 `toml:"height" json:"height"`
	OffsetX float64 `toml:"offset_x" json:"offsetX"`
	OffsetZ float64 `toml:"offset_z" json:"offsetZ"`
}

type Axis struct {
	Length float64 `toml:"length" json:"length"`
	Radius float64 `toml:"radius" json:"radius"`
}

type Tube struct {
	Length float64 `toml:"length" json:"length"`
	Radius float64 `toml:"radius" json:"radius"`
	// PivotPosition is how far along the tube, from 0 to 1, the
	// declination axis attaches.
	PivotPosition float64 `toml:"pivot_position" json:"pivotPosition"`
}

type Counterweights struct {
	ShaftLength   float64 `toml:"shaft_length" json:"shaftLength"`
	ShaftRadius   float64 `toml:"shaft_radius" json:"shaftRadius"`
	Amount        int     `toml:"amount" json:"amount"`
	Gap           float64 `toml:"gap" json:"gap"`
	Radius        float64 `toml:"radius" json:"radius"`
	FirstPosition float64 `toml:"first_position" json:"firstPosition"`
	Thickness     float64 `toml:"thickness" json:"thickness"`
}

// DefaultGeometry is the UNSW observatory layout.
func DefaultGeometry() Geometry {
	mountBearing := 20 * math.Pi / 180

	return Geometry{
		Site: Site{
			Name:      "UNSW Observatory",
			Latitude:  -33.8559799094,
			Longitude: 151.20666584,
			Elevation: 55,
		},
		Dome: Dome{
			Radius:       2.5,
			SlitStartDeg: 20,
			SlitWidth:    0.5,
		},
		Pier: Pier{Height: 1.5, Radius: 0.41},
		Mount: Mount{
			Height:  0.2,
			OffsetX: 0.14 * math.Sin(mountBearing),
			OffsetZ: 0.14 * math.Cos(mountBearing),
		},
		RAAxis:  Axis{Length: 0.1, Radius: 0.05},
		DecAxis: Axis{Length: 0.42, Radius: 0.05},
		Tube:    Tube{Length: 1.5, Radius: 0.2, PivotPosition: 0.4},
		Counterweights: Counterweights{
			ShaftLength:   0.6,
			ShaftRadius:   0.02,
			Amount:        3,
			Gap:           0.04,
			Radius:        0.06,
			FirstPosition: 0.4,
			Thickness:     0.05,
		},
	}
}

type fieldError struct {
	Field string
	Value any
}

// Validate checks the ranges the renderer depends on.
func (g Geometry) Validate() error {
	invalid := func(field string, value any) error {
		return errors.New().WithData(ErrInvalidGeometry, fieldError{Field: field, Value: value})
	}

	switch {
	case g.Site.Latitude < -90 || g.Site.Latitude > 90:
		return invalid("site.latitude", g.Site.Latitude)
	case g.Site.Longitude < -180 || g.Site.Longitude > 180:
		return invalid("site.longitude", g.Site.Longitude)
	case g.Dome.Radius <= 0:
		return invalid("dome.radius", g.Dome.Radius)
	case g.Dome.SlitStartDeg < 0 || g.Dome.SlitStartDeg >= 90:
		return invalid("dome.slit_start_deg", g.Dome.SlitStartDeg)
	case g.Dome.SlitWidth <= 0 || g.Dome.SlitWidth >= 2*g.Dome.Radius:
		return invalid("dome.slit_width", g.Dome.SlitWidth)
	case g.Pier.Height < 0:
		return invalid("pier.height", g.Pier.Height)
	case g.Tube.Length <= 0:
		return invalid("tube.length", g.Tube.Length)
	case g.Tube.PivotPosition < 0 || g.Tube.PivotPosition > 1:
		return invalid("tube.pivot_position", g.Tube.PivotPosition)
	case g.Counterweights.Amount < 0:
		return invalid("counterweights.amount", g.Counterweights.Amount)
	}
	return nil
}

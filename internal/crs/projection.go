package crs

import (
	"math"

	"github.com/wroge/wgs84"
)

const deg = math.Pi / 180

// geographic is a lon/lat system whose longitudes count from a prime
// meridian other than Greenwich or whose angles are not degrees.
type geographic struct {
	wgs84.GeographicReferenceSystem
	primem float64 // degrees east of Greenwich
	unit   float64 // degrees per native unit
}

func (g geographic) ToWGS84(lon, lat, h float64) (x0, y0, z0 float64) {
	return g.GeographicReferenceSystem.ToWGS84(lon*g.unit+g.primem, lat*g.unit, h)
}

func (g geographic) FromWGS84(x0, y0, z0 float64) (lon, lat, h float64) {
	lon, lat, h = g.GeographicReferenceSystem.FromWGS84(x0, y0, z0)
	return (lon - g.primem) / g.unit, lat / g.unit, h
}

// linearUnit rescales a projected system whose native unit is not the metre.
type linearUnit struct {
	wgs84.CoordinateReferenceSystem
	metres float64 // metres per native unit
}

func (u linearUnit) ToWGS84(east, north, h float64) (x0, y0, z0 float64) {
	return u.CoordinateReferenceSystem.ToWGS84(east*u.metres, north*u.metres, h)
}

func (u linearUnit) FromWGS84(x0, y0, z0 float64) (east, north, h float64) {
	east, north, h = u.CoordinateReferenceSystem.FromWGS84(x0, y0, z0)
	return east / u.metres, north / u.metres, h
}

// scaled applies a scale factor and false origin around a projection built
// without them, as Lambert conic 1SP needs.
type scaled struct {
	wgs84.Projection
	k0, fe, fn float64
}

func (p scaled) ToLonLat(east, north float64, s wgs84.Spheroid) (lon, lat float64) {
	return p.Projection.ToLonLat((east-p.fe)/p.k0, (north-p.fn)/p.k0, s)
}

func (p scaled) FromLonLat(lon, lat float64, s wgs84.Spheroid) (east, north float64) {
	east, north = p.Projection.FromLonLat(lon, lat, s)
	return p.fe + p.k0*east, p.fn + p.k0*north
}

// mercator is the ellipsoidal Mercator (EPSG 9804/9805). With spherical set
// only the semi-major axis is used, which covers offset auxiliary-sphere
// definitions.
type mercator struct {
	lon0, k0, fe, fn float64
	spherical        bool
}

func (p mercator) eccentricity(s wgs84.Spheroid) float64 {
	if p.spherical || s.Fi() == 0 {
		return 0
	}
	f := 1 / s.Fi()
	return math.Sqrt(2*f - f*f)
}

func (p mercator) FromLonLat(lon, lat float64, s wgs84.Spheroid) (east, north float64) {
	e := p.eccentricity(s)
	ak := s.A() * p.k0
	phi := lat * deg
	es := e * math.Sin(phi)
	east = p.fe + ak*(lon-p.lon0)*deg
	north = p.fn + ak*math.Log(math.Tan(math.Pi/4+phi/2)*math.Pow((1-es)/(1+es), e/2))
	return east, north
}

func (p mercator) ToLonLat(east, north float64, s wgs84.Spheroid) (lon, lat float64) {
	e := p.eccentricity(s)
	ak := s.A() * p.k0
	t := math.Exp(-(north - p.fn) / ak)

	phi := math.Pi/2 - 2*math.Atan(t)
	for range 15 {
		es := e * math.Sin(phi)
		next := math.Pi/2 - 2*math.Atan(t*math.Pow((1-es)/(1+es), e/2))
		if math.Abs(next-phi) < 1e-12 {
			phi = next
			break
		}
		phi = next
	}
	return (east-p.fe)/ak/deg + p.lon0, phi / deg
}

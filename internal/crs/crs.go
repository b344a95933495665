// Package crs identifies coordinate reference systems and converts their
// coordinates to WGS84 longitude/latitude.
package crs

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/wroge/wgs84"
)

// ErrUnsupportedProjection is returned when a coordinate reference system is
// recognised but cannot be converted to WGS84.
var ErrUnsupportedProjection = eris.New("crs: unsupported projection")

// CRS describes the coordinate frame of a dataset.
type CRS struct {
	Name       string
	EPSG       int
	Geographic bool
	Datum      string

	// Method names the projection method for diagnostics.
	Method string

	ref wgs84.CoordinateReferenceSystem
	// reason explains a nil ref.
	reason string
	// identity marks WGS84 degrees on the Greenwich meridian.
	identity bool
}

var lonLat = wgs84.LonLat()

// WGS84 is the canonical geographic frame (EPSG:4326).
var WGS84 = CRS{Name: "WGS 84", EPSG: 4326, Geographic: true, Datum: "WGS_1984", ref: lonLat, identity: true}

// IsZero reports whether the CRS is unset.
func (c CRS) IsZero() bool {
	return c.Name == "" && c.EPSG == 0 && !c.Geographic && c.ref == nil && c.Method == ""
}

// IsWGS84 reports whether coordinates in this CRS are already WGS84 longitude/latitude.
func (c CRS) IsWGS84() bool {
	return c.identity
}

// String returns the EPSG code when known, otherwise the CRS name.
func (c CRS) String() string {
	switch {
	case c.EPSG != 0:
		return fmt.Sprintf("EPSG:%d", c.EPSG)
	case c.Name != "":
		return c.Name
	default:
		return "unknown"
	}
}

// Transformable returns nil when coordinates in c can be converted to WGS84.
func (c CRS) Transformable() error {
	switch {
	case c.ref != nil:
		return nil
	case c.reason != "":
		return eris.Wrapf(ErrUnsupportedProjection, "crs: %s: %s", c, c.reason)
	case c.Method != "":
		return eris.Wrapf(ErrUnsupportedProjection, "crs: %s uses %s", c, c.Method)
	default:
		return eris.Wrapf(ErrUnsupportedProjection, "crs: %s", c)
	}
}

// ToWGS84 converts a coordinate in c to WGS84 longitude/latitude degrees.
func (c CRS) ToWGS84(x, y float64) (lon, lat float64, err error) {
	if c.identity {
		return x, y, nil
	}
	if c.ref == nil {
		return 0, 0, c.Transformable()
	}
	lon, lat, _ = wgs84.Transform(c.ref, lonLat)(x, y, 0)
	if !finite(lon) || !finite(lat) {
		return 0, 0, eris.Errorf("crs: (%g, %g) is outside the domain of %s", x, y, c)
	}
	return lon, lat, nil
}

// FromWGS84 converts WGS84 longitude/latitude degrees into c.
func (c CRS) FromWGS84(lon, lat float64) (x, y float64, err error) {
	if c.identity {
		return lon, lat, nil
	}
	if c.ref == nil {
		return 0, 0, c.Transformable()
	}
	x, y, _ = wgs84.Transform(lonLat, c.ref)(lon, lat, 0)
	if !finite(x) || !finite(y) {
		return 0, 0, eris.Errorf("crs: (%g, %g) is outside the domain of %s", lon, lat, c)
	}
	return x, y, nil
}

// Parse accepts an authority string ("EPSG:3857", OGC URNs and URLs, "CRS84")
// or an ESRI/OGC WKT definition.
func Parse(s string) (CRS, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return CRS{}, eris.New("crs: empty definition")
	}

	upper := strings.ToUpper(s)
	if strings.HasPrefix(upper, "PROJCS[") || strings.HasPrefix(upper, "GEOGCS[") ||
		strings.HasPrefix(upper, "PROJCRS[") || strings.HasPrefix(upper, "GEOGCRS[") {
		return ParseWKT(s)
	}

	if strings.HasSuffix(upper, "CRS84") {
		return WGS84, nil
	}

	code, ok := authorityCode(upper)
	if !ok {
		return CRS{}, eris.Errorf("crs: unrecognised definition %q", s)
	}
	return FromEPSG(code)
}

// authorityCode extracts the EPSG code from "EPSG:n", "urn:ogc:def:crs:EPSG::n"
// or "http://www.opengis.net/def/crs/EPSG/0/n".
func authorityCode(upper string) (int, bool) {
	idx := strings.LastIndex(upper, "EPSG")
	if idx < 0 {
		return 0, false
	}
	rest := strings.TrimLeft(upper[idx+len("EPSG"):], ":/")
	// URL form carries a version segment before the code.
	if i := strings.LastIndexAny(rest, ":/"); i >= 0 {
		rest = rest[i+1:]
	}
	code, err := strconv.Atoi(rest)
	if err != nil || code <= 0 {
		return 0, false
	}
	return code, true
}

// registry is the wgs84 EPSG repository plus NAD83 UTM zones and the
// legacy Web Mercator aliases.
var registry = newRegistry()

func newRegistry() *wgs84.Repository {
	r := wgs84.EPSG()
	for zone := 1; zone <= 23; zone++ {
		r.Add(26900+zone, wgs84.NAD83().TransverseMercator(float64(zone*6-183), 0, 0.9996, 500_000, 0))
	}
	for _, code := range []int{3785, 102100, 102113} {
		r.Add(code, wgs84.WebMercator())
	}
	return r
}

// FromEPSG builds a CRS for the EPSG codes known to the registry.
func FromEPSG(code int) (CRS, error) {
	if code == 4326 {
		return WGS84, nil
	}
	switch ref := registry.Code(code).(type) {
	case wgs84.GeographicReferenceSystem:
		return CRS{Name: epsgName(code), EPSG: code, Geographic: true, ref: ref}, nil
	case wgs84.ProjectedReferenceSystem:
		return CRS{Name: epsgName(code), EPSG: code, ref: ref}, nil
	}
	return CRS{}, eris.Wrapf(ErrUnsupportedProjection, "crs: EPSG:%d", code)
}

var epsgNames = map[int]string{
	3857:   "WGS 84 / Pseudo-Mercator",
	3785:   "WGS 84 / Pseudo-Mercator",
	900913: "WGS 84 / Pseudo-Mercator",
	102100: "WGS 84 / Pseudo-Mercator",
	102113: "WGS 84 / Pseudo-Mercator",
	4258:   "ETRS89",
	4269:   "NAD83",
	4171:   "RGF93",
	4277:   "OSGB36",
	4314:   "DHDN",
	2154:   "RGF93 / Lambert-93",
	27700:  "OSGB36 / British National Grid",
	3035:   "ETRS89 / LAEA Europe",
}

func epsgName(code int) string {
	switch {
	case code >= 32601 && code <= 32660:
		return fmt.Sprintf("WGS 84 / UTM zone %dN", code-32600)
	case code >= 32701 && code <= 32760:
		return fmt.Sprintf("WGS 84 / UTM zone %dS", code-32700)
	case code >= 26901 && code <= 26923:
		return fmt.Sprintf("NAD83 / UTM zone %dN", code-26900)
	case code >= 25828 && code <= 25838:
		return fmt.Sprintf("ETRS89 / UTM zone %dN", code-25800)
	}
	if name, ok := epsgNames[code]; ok {
		return name
	}
	return fmt.Sprintf("EPSG:%d", code)
}

// normalizeName lowercases a WKT name and folds spaces and dashes to underscores.
func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

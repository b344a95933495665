package crs

import (
	"strings"

	"github.com/wroge/wgs84"
)

// datums maps normalised WKT datum names (ESRI "D_" prefix removed) to their
// relation with WGS84. WGS84, NAD83 and the ETRS89 realisations need no shift.
var datums = map[string]func() wgs84.Datum{
	"wgs_1984":                   wgs84.WGS84,
	"wgs84":                      wgs84.WGS84,
	"wgs_84":                     wgs84.WGS84,
	"world_geodetic_system_1984": wgs84.WGS84,

	"north_american_1983":       wgs84.NAD83,
	"north_american_datum_1983": wgs84.NAD83,
	"nad83":                     wgs84.NAD83,

	"etrs_1989":                                  wgs84.ETRS89,
	"european_terrestrial_reference_system_1989": wgs84.ETRS89,
	"etrs89":                                     wgs84.ETRS89,

	"rgf_1993":                        wgs84.RGF93,
	"reseau_geodesique_francais_1993": wgs84.RGF93,
	"rgf93":                           wgs84.RGF93,

	"osgb_1936": wgs84.OSGB36,
	"osgb36":    wgs84.OSGB36,

	"mgi":                             wgs84.MGI,
	"militar_geographische_institut":  wgs84.MGI,
	"militar_geographische_institute": wgs84.MGI,

	"deutsches_hauptdreiecksnetz": wgs84.DHDN2001,
	"dhdn":                        wgs84.DHDN2001,

	"ntf":                                   ntf,
	"nouvelle_triangulation_francaise":      ntf,
	"nouvelle_triangulation_francaise_paris": ntf,

	"north_american_1927":       nad27,
	"north_american_datum_1927": nad27,
	"nad27":                     nad27,
}

// ntf uses EPSG:1193 on Clarke 1880 (IGN).
func ntf() wgs84.Datum {
	return wgs84.Helmert(6378249.2, 293.4660212936269, -168, -60, 320, 0, 0, 0, 0)
}

// nad27 uses the CONUS mean shift EPSG:1173 on Clarke 1866, good to about 10 m.
func nad27() wgs84.Datum {
	return wgs84.Helmert(6378206.4, 294.9786982139006, -8, 160, 176, 0, 0, 0, 0)
}

func datumKey(name string) string {
	return strings.TrimPrefix(normalizeName(name), "d_")
}

func isWGS84Datum(name string) bool {
	switch datumKey(name) {
	case "wgs_1984", "wgs84", "wgs_84", "world_geodetic_system_1984":
		return true
	}
	return false
}

// datumFromWKT resolves a DATUM node. An explicit TOWGS84 clause wins over
// the name table.
func datumFromWKT(n *wktNode) (wgs84.Datum, bool) {
	if n == nil {
		return wgs84.Datum{}, false
	}
	if tw := n.child("TOWGS84"); tw != nil {
		var p [7]float64
		for i := range p {
			p[i], _ = tw.num(i)
		}
		a, fi := spheroidFromWKT(n)
		return wgs84.Helmert(a, fi, p[0], p[1], p[2], p[3], p[4], p[5], p[6]), true
	}
	known, ok := datums[datumKey(n.str(0))]
	if !ok {
		return wgs84.Datum{}, false
	}
	return known(), true
}

func spheroidFromWKT(datum *wktNode) (a, fi float64) {
	sph := datum.childOrNil("SPHEROID")
	if sph == nil {
		sph = datum.childOrNil("ELLIPSOID")
	}
	a, okA := sph.num(1)
	fi, okF := sph.num(2)
	if !okA || !okF || a <= 0 {
		return wgs84.A, wgs84.Fi
	}
	return a, fi
}

// hasShift reports whether a DATUM node carries a non-zero TOWGS84 clause.
func hasShift(n *wktNode) bool {
	tw := n.childOrNil("TOWGS84")
	if tw == nil {
		return false
	}
	for i := range 7 {
		if v, _ := tw.num(i); v != 0 {
			return true
		}
	}
	return false
}

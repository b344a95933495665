package crs

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"github.com/wroge/wgs84"
)

// wktNode is one KEYWORD[arg, ...] element of a WKT definition. Arguments are
// string, float64 or *wktNode.
type wktNode struct {
	keyword string
	args    []any
}

func (n *wktNode) child(keyword string) *wktNode {
	for _, a := range n.args {
		if c, ok := a.(*wktNode); ok && c.keyword == keyword {
			return c
		}
	}
	return nil
}

func (n *wktNode) children(keyword string) []*wktNode {
	var out []*wktNode
	for _, a := range n.args {
		if c, ok := a.(*wktNode); ok && c.keyword == keyword {
			out = append(out, c)
		}
	}
	return out
}

func (n *wktNode) str(i int) string {
	if n == nil || i >= len(n.args) {
		return ""
	}
	s, _ := n.args[i].(string)
	return s
}

func (n *wktNode) num(i int) (float64, bool) {
	if n == nil || i >= len(n.args) {
		return 0, false
	}
	f, ok := n.args[i].(float64)
	return f, ok
}

// epsg returns the EPSG code from a direct AUTHORITY/ID child, or 0.
func (n *wktNode) epsg() int {
	for _, kw := range []string{"AUTHORITY", "ID"} {
		auth := n.child(kw)
		if auth == nil || !strings.EqualFold(auth.str(0), "EPSG") {
			continue
		}
		if s := auth.str(1); s != "" {
			if code, err := strconv.Atoi(s); err == nil {
				return code
			}
		}
		if f, ok := auth.num(1); ok {
			return int(f)
		}
	}
	return 0
}

// ParseWKT interprets an ESRI or OGC WKT1 definition, as found in shapefile .prj files.
func ParseWKT(s string) (CRS, error) {
	p := &wktParser{src: s}
	root, err := p.parseNode()
	if err != nil {
		return CRS{}, eris.Wrap(err, "crs: parse WKT")
	}

	switch root.keyword {
	case "GEOGCS", "GEOGCRS":
		return geographicFromWKT(root), nil
	case "PROJCS", "PROJCRS":
		return projectedFromWKT(root)
	default:
		return CRS{}, eris.Errorf("crs: unsupported WKT root %s", root.keyword)
	}
}

func geographicFromWKT(n *wktNode) CRS {
	datum := n.child("DATUM")
	c := CRS{
		Name:       n.str(0),
		EPSG:       n.epsg(),
		Geographic: true,
		Datum:      datum.str(0),
	}

	d, ok := datumFromWKT(datum)
	if !ok {
		c.reason = "unknown datum " + c.Datum
		return c
	}

	primem := primeMeridian(n)
	unit := angularUnit(n)
	if isWGS84Datum(c.Datum) && !hasShift(datum) && primem == 0 && unit == 1 {
		if c.EPSG == 0 {
			c.EPSG = 4326
		}
		c.ref = lonLat
		c.identity = true
		return c
	}

	c.ref = geographic{GeographicReferenceSystem: d.LonLat(), primem: primem, unit: unit}
	return c
}

// angularParams are the PARAMETER names expressed in the angular unit.
var angularParams = map[string]bool{
	"central_meridian":                  true,
	"longitude_of_origin":               true,
	"longitude_of_center":               true,
	"longitude_of_natural_origin":       true,
	"latitude_of_origin":                true,
	"latitude_of_center":                true,
	"latitude_of_natural_origin":        true,
	"standard_parallel_1":               true,
	"standard_parallel_2":               true,
	"latitude_of_1st_standard_parallel": true,
	"latitude_of_2nd_standard_parallel": true,
}

func projectedFromWKT(n *wktNode) (CRS, error) {
	name := n.str(0)
	code := n.epsg()
	if code != 0 {
		if known, err := FromEPSG(code); err == nil {
			known.Name = name
			return known, nil
		}
	}

	geog := n.child("GEOGCS")
	if geog == nil {
		geog = n.child("BASEGEOGCRS")
	}
	datum := geog.childOrNil("DATUM")
	method := n.child("PROJECTION").str(0)
	c := CRS{Name: name, EPSG: code, Datum: datum.str(0), Method: method}

	d, ok := datumFromWKT(datum)
	if !ok {
		c.reason = "unknown datum " + c.Datum
		return c, nil
	}

	// ESRI writes angular parameters in the geographic unit (grads for
	// NTF); OGC WKT from GDAL always uses degrees.
	ang := 1.0
	if strings.HasPrefix(strings.ToUpper(c.Datum), "D_") {
		ang = angularUnit(geog)
	}
	params := make(map[string]float64)
	for _, p := range n.children("PARAMETER") {
		v, ok := p.num(1)
		if !ok {
			continue
		}
		key := normalizeName(p.str(0))
		if angularParams[key] {
			v *= ang
		}
		params[key] = v
	}
	unit := 1.0
	if u := n.child("UNIT"); u != nil {
		if f, ok := u.num(1); ok && f > 0 {
			unit = f
		}
	}

	fe := param(params, "false_easting", "easting_at_false_origin") * unit
	fn := param(params, "false_northing", "northing_at_false_origin") * unit
	lon0 := param(params, "central_meridian", "longitude_of_origin", "longitude_of_center", "longitude_of_natural_origin") +
		primeMeridian(geog)
	lat0 := param(params, "latitude_of_origin", "latitude_of_center", "latitude_of_natural_origin")
	k0 := paramOr(params, 1, "scale_factor", "scale_factor_at_natural_origin")
	sp1 := paramOr(params, lat0, "standard_parallel_1", "latitude_of_1st_standard_parallel")
	sp2 := paramOr(params, sp1, "standard_parallel_2", "latitude_of_2nd_standard_parallel")

	var ref wgs84.CoordinateReferenceSystem
	lname := normalizeName(name)
	switch m := normalizeName(method); {
	case strings.Contains(lname, "pseudo_mercator") || strings.Contains(lname, "web_mercator"),
		m == "mercator_auxiliary_sphere", m == "popular_visualisation_pseudo_mercator":
		ref = webMercator(d, lon0, fe, fn)
	case m == "transverse_mercator", m == "gauss_kruger", m == "transverse_mercator_complex":
		ref = d.TransverseMercator(lon0, lat0, k0, fe, fn)
	case m == "mercator", m == "mercator_1sp", m == "mercator_2sp":
		k := k0
		if _, ok := params["standard_parallel_1"]; ok || m == "mercator_2sp" {
			// Scale at the standard parallel (EPSG 9805).
			phi := sp1 * deg
			e2 := 2/d.Fi() - 1/(d.Fi()*d.Fi())
			sin := math.Sin(phi)
			k = math.Cos(phi) / math.Sqrt(1-e2*sin*sin)
		}
		ref = wgs84.ProjectedReferenceSystem{Datum: d, Projection: mercator{lon0: lon0, k0: k, fe: fe, fn: fn}}
	case m == "lambert_conformal_conic", m == "lambert_conformal_conic_2sp", m == "lambert_conformal_conic_1sp":
		if k0 != 1 {
			inner := d.LambertConformalConic2SP(lon0, lat0, sp1, sp2, 0, 0)
			ref = wgs84.ProjectedReferenceSystem{Datum: d, Projection: scaled{Projection: inner.Projection, k0: k0, fe: fe, fn: fn}}
		} else {
			ref = d.LambertConformalConic2SP(lon0, lat0, sp1, sp2, fe, fn)
		}
	case m == "albers", m == "albers_conic_equal_area":
		ref = d.AlbersEqualAreaConic(lon0, lat0, sp1, sp2, fe, fn)
	case m == "lambert_azimuthal_equal_area":
		ref = d.LambertAzimuthalEqualArea(lon0, lat0, fe, fn)
	default:
		// Unknown methods leave ref nil; Transformable reports them.
		return c, nil
	}

	if unit != 1 {
		ref = linearUnit{CoordinateReferenceSystem: ref, metres: unit}
	}
	c.ref = ref
	return c, nil
}

func webMercator(d wgs84.Datum, lon0, fe, fn float64) wgs84.CoordinateReferenceSystem {
	if lon0 == 0 && fe == 0 && fn == 0 {
		return d.WebMercator()
	}
	return wgs84.ProjectedReferenceSystem{Datum: d, Projection: mercator{lon0: lon0, k0: 1, fe: fe, fn: fn, spherical: true}}
}

// primeMeridian returns the PRIMEM longitude in degrees east of Greenwich.
func primeMeridian(geog *wktNode) float64 {
	v, _ := geog.childOrNil("PRIMEM").num(1)
	return v
}

// angularUnit returns degrees per unit of a geographic node's UNIT.
func angularUnit(geog *wktNode) float64 {
	u := geog.childOrNil("UNIT")
	if u == nil {
		u = geog.childOrNil("ANGLEUNIT")
	}
	rad, ok := u.num(1)
	if !ok || rad <= 0 {
		return 1
	}
	v := rad / deg
	if math.Abs(v-1) < 1e-9 {
		return 1
	}
	return v
}

func (n *wktNode) childOrNil(keyword string) *wktNode {
	if n == nil {
		return nil
	}
	return n.child(keyword)
}

func param(params map[string]float64, names ...string) float64 {
	return paramOr(params, 0, names...)
}

func paramOr(params map[string]float64, def float64, names ...string) float64 {
	for _, name := range names {
		if v, ok := params[name]; ok {
			return v
		}
	}
	return def
}

type wktParser struct {
	src string
	pos int
}

func (p *wktParser) skipSpace() {
	for p.pos < len(p.src) && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *wktParser) parseNode() (*wktNode, error) {
	p.skipSpace()
	kw := p.ident()
	if kw == "" {
		return nil, eris.Errorf("expected keyword at offset %d", p.pos)
	}
	node := &wktNode{keyword: strings.ToUpper(kw)}

	p.skipSpace()
	if p.pos >= len(p.src) || (p.src[p.pos] != '[' && p.src[p.pos] != '(') {
		// Bare enumeration value such as EAST inside AXIS[].
		return node, nil
	}
	closer := byte(']')
	if p.src[p.pos] == '(' {
		closer = ')'
	}
	p.pos++

	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return nil, eris.Errorf("unterminated %s", node.keyword)
		}
		if p.src[p.pos] == closer {
			p.pos++
			return node, nil
		}

		arg, err := p.parseArg()
		if err != nil {
			return nil, err
		}
		node.args = append(node.args, arg)

		p.skipSpace()
		if p.pos < len(p.src) && p.src[p.pos] == ',' {
			p.pos++
		}
	}
}

func (p *wktParser) parseArg() (any, error) {
	c := p.src[p.pos]
	switch {
	case c == '"':
		return p.quoted()
	case c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
		return p.number()
	default:
		node, err := p.parseNode()
		if err != nil {
			return nil, err
		}
		if len(node.args) == 0 {
			return node.keyword, nil
		}
		return node, nil
	}
}

func (p *wktParser) ident() string {
	start := p.pos
	for p.pos < len(p.src) {
		c := rune(p.src[p.pos])
		if !(unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_') {
			break
		}
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *wktParser) quoted() (string, error) {
	p.pos++ // opening quote
	var sb strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		p.pos++
		if c != '"' {
			sb.WriteByte(c)
			continue
		}
		// Doubled quote is an escaped quote.
		if p.pos < len(p.src) && p.src[p.pos] == '"' {
			sb.WriteByte('"')
			p.pos++
			continue
		}
		return sb.String(), nil
	}
	return "", eris.New("unterminated string")
}

func (p *wktParser) number() (float64, error) {
	start := p.pos
	for p.pos < len(p.src) && strings.IndexByte("+-.0123456789eE", p.src[p.pos]) >= 0 {
		p.pos++
	}
	v, err := strconv.ParseFloat(p.src[start:p.pos], 64)
	if err != nil {
		return 0, eris.Wrapf(err, "invalid number at offset %d", start)
	}
	return v, nil
}

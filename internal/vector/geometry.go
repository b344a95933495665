package vector

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// GeomTypeName returns the simple-features type name of g, or "" for nil.
func GeomTypeName(g geom.T) string {
	switch g.(type) {
	case *geom.Point:
		return "Point"
	case *geom.MultiPoint:
		return "MultiPoint"
	case *geom.LineString:
		return "LineString"
	case *geom.MultiLineString:
		return "MultiLineString"
	case *geom.Polygon:
		return "Polygon"
	case *geom.MultiPolygon:
		return "MultiPolygon"
	default:
		return ""
	}
}

// shapeToGeom converts a go-shp shape into a 2D go-geom geometry.
// Returns nil for null or empty shapes.
func shapeToGeom(shape shp.Shape) (geom.T, error) {
	switch s := shape.(type) {
	case nil, *shp.Null:
		return nil, nil
	case *shp.Point:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y}), nil
	case *shp.PointZ:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y}), nil
	case *shp.PointM:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y}), nil
	case *shp.MultiPoint:
		if len(s.Points) == 0 {
			return nil, nil
		}
		return geom.NewMultiPointFlat(geom.XY, flatPoints(s.Points)), nil
	case *shp.PolyLine:
		return partsToLines(splitParts(s.Parts, s.Points))
	case *shp.PolyLineZ:
		return partsToLines(splitParts(s.Parts, s.Points))
	case *shp.Polygon:
		return partsToPolygons(splitParts(s.Parts, s.Points))
	case *shp.PolygonZ:
		return partsToPolygons(splitParts(s.Parts, s.Points))
	default:
		return nil, eris.Errorf("vector: unsupported shape type %T", shape)
	}
}

// splitParts slices a shapefile point array into its parts.
func splitParts(parts []int32, points []shp.Point) [][]shp.Point {
	out := make([][]shp.Point, 0, len(parts))
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || start >= end || end > int32(len(points)) {
			continue
		}
		out = append(out, points[start:end])
	}
	return out
}

// partsToLines builds a LineString for single-part records and a
// MultiLineString otherwise.
func partsToLines(parts [][]shp.Point) (geom.T, error) {
	var lines []*geom.LineString
	for i, part := range parts {
		if len(part) < 2 {
			zap.L().Debug("vector: skipping degenerate linestring part", zap.Int("part", i))
			continue
		}
		lines = append(lines, geom.NewLineStringFlat(geom.XY, flatPoints(part)))
	}

	switch len(lines) {
	case 0:
		return nil, nil
	case 1:
		return lines[0], nil
	}

	mls := geom.NewMultiLineString(geom.XY)
	for _, ls := range lines {
		if err := mls.Push(ls); err != nil {
			return nil, eris.Wrap(err, "vector: build multilinestring")
		}
	}
	return mls, nil
}

// partsToPolygons groups shapefile rings into polygons: a clockwise ring
// starts a new polygon and counter-clockwise rings are holes of the polygon
// before them.
func partsToPolygons(parts [][]shp.Point) (geom.T, error) {
	var polys []*geom.Polygon
	for i, part := range parts {
		if len(part) < 4 {
			zap.L().Debug("vector: skipping degenerate polygon ring", zap.Int("part", i))
			continue
		}
		ring := geom.NewLinearRingFlat(geom.XY, flatPoints(part))
		outer := signedArea(part) <= 0

		if outer || len(polys) == 0 {
			polys = append(polys, geom.NewPolygon(geom.XY))
		}
		if err := polys[len(polys)-1].Push(ring); err != nil {
			return nil, eris.Wrap(err, "vector: build polygon ring")
		}
	}

	switch len(polys) {
	case 0:
		return nil, nil
	case 1:
		return polys[0], nil
	}

	mp := geom.NewMultiPolygon(geom.XY)
	for _, p := range polys {
		if err := mp.Push(p); err != nil {
			return nil, eris.Wrap(err, "vector: build multipolygon")
		}
	}
	return mp, nil
}

// signedArea is the shoelace area of a ring; negative for clockwise rings.
func signedArea(ring []shp.Point) float64 {
	var sum float64
	for i := range ring {
		j := (i + 1) % len(ring)
		sum += ring[i].X*ring[j].Y - ring[j].X*ring[i].Y
	}
	return sum / 2
}

// flatPoints converts shapefile points to flat XY coordinates for go-geom.
func flatPoints(points []shp.Point) []float64 {
	flat := make([]float64, 0, len(points)*2)
	for _, p := range points {
		flat = append(flat, p.X, p.Y)
	}
	return flat
}

// transformGeom returns a copy of g with every XY pair passed through fn.
func transformGeom(g geom.T, fn func(x, y float64) (float64, float64, error)) (geom.T, error) {
	if g == nil {
		return nil, nil
	}

	var build func(flat []float64) geom.T
	switch g := g.(type) {
	case *geom.Point:
		build = func(flat []float64) geom.T { return geom.NewPointFlat(g.Layout(), flat) }
	case *geom.MultiPoint:
		build = func(flat []float64) geom.T { return geom.NewMultiPointFlat(g.Layout(), flat) }
	case *geom.LineString:
		build = func(flat []float64) geom.T { return geom.NewLineStringFlat(g.Layout(), flat) }
	case *geom.MultiLineString:
		build = func(flat []float64) geom.T { return geom.NewMultiLineStringFlat(g.Layout(), flat, g.Ends()) }
	case *geom.Polygon:
		build = func(flat []float64) geom.T { return geom.NewPolygonFlat(g.Layout(), flat, g.Ends()) }
	case *geom.MultiPolygon:
		build = func(flat []float64) geom.T { return geom.NewMultiPolygonFlat(g.Layout(), flat, g.Endss()) }
	default:
		return nil, eris.Errorf("vector: cannot transform geometry %T", g)
	}

	src := g.FlatCoords()
	stride := g.Stride()
	flat := make([]float64, len(src))
	copy(flat, src)

	for i := 0; i+1 < len(flat); i += stride {
		x, y, err := fn(flat[i], flat[i+1])
		if err != nil {
			return nil, err
		}
		flat[i], flat[i+1] = x, y
	}
	return build(flat), nil
}

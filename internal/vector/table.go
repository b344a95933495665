// Package vector loads geospatial vector files into an in-memory feature table.
package vector

import (
	"fmt"
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/sustainfire/internal/crs"
)

// Kind is the storage type of an attribute column.
type Kind int

// Column kinds. Only KindInt and KindFloat are numeric.
const (
	KindText Kind = iota
	KindInt
	KindFloat
	KindBool
	KindDate
)

// Numeric reports whether the kind holds integer or floating-point values.
func (k Kind) Numeric() bool {
	return k == KindInt || k == KindFloat
}

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int64"
	case KindFloat:
		return "float64"
	case KindBool:
		return "bool"
	case KindDate:
		return "date"
	default:
		return "text"
	}
}

// Column is a named attribute column. Values hold int64 (KindInt), float64
// with NaN for missing (KindFloat), bool (KindBool) or string (KindText,
// KindDate); nil marks a missing non-numeric value.
type Column struct {
	Name   string
	Kind   Kind
	Values []any
}

// Float returns row i as float64, or NaN when missing or non-numeric.
func (c *Column) Float(i int) float64 {
	switch v := c.Values[i].(type) {
	case int64:
		return float64(v)
	case float64:
		return v
	default:
		return math.NaN()
	}
}

// Table is an ordered set of features: one geometry per row plus
// column-major attributes, all in one coordinate reference system.
type Table struct {
	Columns    []*Column
	Geometries []geom.T
	CRS        crs.CRS
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Geometries)
}

// Column returns the named column, or nil.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// SetColumn appends c, or replaces an existing column with the same name in place.
func (t *Table) SetColumn(c *Column) error {
	if len(c.Values) != t.Len() {
		return eris.Errorf("vector: column %q has %d values, table has %d rows", c.Name, len(c.Values), t.Len())
	}
	for i, existing := range t.Columns {
		if existing.Name == c.Name {
			t.Columns[i] = c
			return nil
		}
	}
	t.Columns = append(t.Columns, c)
	return nil
}

// SetInts stores vals as an integer column.
func (t *Table) SetInts(name string, vals []int) error {
	values := make([]any, len(vals))
	for i, v := range vals {
		values[i] = int64(v)
	}
	return t.SetColumn(&Column{Name: name, Kind: KindInt, Values: values})
}

// SetFloats stores vals as a floating-point column.
func (t *Table) SetFloats(name string, vals []float64) error {
	values := make([]any, len(vals))
	for i, v := range vals {
		values[i] = v
	}
	return t.SetColumn(&Column{Name: name, Kind: KindFloat, Values: values})
}

// NumericColumns returns the integer and floating-point columns in table order.
func (t *Table) NumericColumns() []*Column {
	var out []*Column
	for _, c := range t.Columns {
		if c.Kind.Numeric() {
			out = append(out, c)
		}
	}
	return out
}

// GeomType returns the geometry type name of row i ("Point", "Polygon", ...),
// or "" for a null geometry.
func (t *Table) GeomType(i int) string {
	return GeomTypeName(t.Geometries[i])
}

// Bounds is the extent of a table in WGS84 degrees.
type Bounds struct {
	MinLon float64
	MinLat float64
	MaxLon float64
	MaxLat float64
}

// Center returns the midpoint of the bounds as (lat, lon).
func (b Bounds) Center() (lat, lon float64) {
	return (b.MinLat + b.MaxLat) / 2, (b.MinLon + b.MaxLon) / 2
}

func (b Bounds) String() string {
	return fmt.Sprintf("[%.6f %.6f %.6f %.6f]", b.MinLon, b.MinLat, b.MaxLon, b.MaxLat)
}

// Bounds returns the total extent of all non-null geometries. ok is false
// when the table has none.
func (t *Table) Bounds() (Bounds, bool) {
	ext := geom.NewBounds(geom.XY)
	var n int
	for _, g := range t.Geometries {
		if g == nil || len(g.FlatCoords()) == 0 {
			continue
		}
		ext.Extend(g)
		n++
	}
	if n == 0 {
		return Bounds{}, false
	}
	return Bounds{
		MinLon: ext.Min(0),
		MinLat: ext.Min(1),
		MaxLon: ext.Max(0),
		MaxLat: ext.Max(1),
	}, true
}

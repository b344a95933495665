package vector

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/sustainfire/internal/crs"
)

var (
	// ErrUnsupportedFormat is returned for files that are not shapefiles,
	// zipped shapefiles or GeoJSON.
	ErrUnsupportedFormat = eris.New("vector: unsupported file format")
	// ErrUnknownCRS is returned when a dataset has no coordinate reference
	// system and none is assumed.
	ErrUnknownCRS = eris.New("vector: dataset has no coordinate reference system")
)

// Options controls Load.
type Options struct {
	// AssumeCRS is applied when the dataset declares no CRS ("EPSG:4326", WKT, ...).
	AssumeCRS string
}

// Read parses a vector file without normalising its coordinates.
func Read(path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return ReadShapefile(path)
	case ".zip":
		return readZippedShapefile(path)
	case ".geojson", ".json":
		return ReadGeoJSON(path)
	default:
		return nil, eris.Wrapf(ErrUnsupportedFormat, "vector: %s", filepath.Base(path))
	}
}

// Load reads a vector file and reprojects it to WGS84.
func Load(path string, opts Options) (*Table, error) {
	t, err := Read(path)
	if err != nil {
		return nil, err
	}

	if t.CRS.IsZero() {
		if opts.AssumeCRS == "" {
			return nil, eris.Wrapf(ErrUnknownCRS, "vector: %s", filepath.Base(path))
		}
		c, err := crs.Parse(opts.AssumeCRS)
		if err != nil {
			return nil, eris.Wrap(err, "vector: assumed crs")
		}
		zap.L().Debug("vector: assuming crs", zap.String("path", path), zap.String("crs", c.String()))
		t.CRS = c
	}

	if err := t.ToWGS84(); err != nil {
		return nil, err
	}
	return t, nil
}

// ToWGS84 reprojects every geometry to WGS84 in place. Tables already in
// WGS84 are left untouched.
func (t *Table) ToWGS84() error {
	if t.CRS.IsWGS84() {
		return nil
	}
	if err := t.CRS.Transformable(); err != nil {
		return eris.Wrap(err, "vector: reproject")
	}

	from := t.CRS
	for i, g := range t.Geometries {
		out, err := transformGeom(g, from.ToWGS84)
		if err != nil {
			return eris.Wrapf(err, "vector: reproject row %d from %s", i, from)
		}
		t.Geometries[i] = out
	}
	t.CRS = crs.WGS84

	zap.L().Debug("vector: reprojected to WGS84", zap.String("from", from.String()), zap.Int("rows", t.Len()))
	return nil
}

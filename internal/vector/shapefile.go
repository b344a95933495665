package vector

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"

	"github.com/sells-group/sustainfire/internal/crs"
)

// ReadShapefile reads a .shp file with its .dbf attributes. The CRS comes
// from the .prj sidecar (zero when absent) and text attributes are decoded
// with the code page named in the .cpg sidecar.
func ReadShapefile(shpPath string) (*Table, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "vector: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	dec, err := attributeDecoder(shpPath)
	if err != nil {
		return nil, err
	}

	fields := reader.Fields()
	builders := make([]*columnBuilder, len(fields))
	for i, f := range fields {
		builders[i] = &columnBuilder{
			name: strings.TrimRight(f.String(), "\x00"),
			kind: fieldKind(f),
		}
	}

	t := &Table{}
	var row int
	for reader.Next() {
		_, shape := reader.Shape()
		g, convErr := shapeToGeom(shape)
		if convErr != nil {
			return nil, eris.Wrapf(convErr, "vector: record %d", row)
		}
		t.Geometries = append(t.Geometries, g)

		for i, b := range builders {
			raw := strings.TrimRight(reader.Attribute(i), "\x00")
			b.append(parseAttribute(b.kind, raw, dec))
		}
		row++
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrapf(err, "vector: read shapefile %s", shpPath)
	}

	for _, b := range builders {
		t.Columns = append(t.Columns, b.build())
	}

	prj, err := readSidecar(shpPath, ".prj")
	if err != nil {
		return nil, err
	}
	if prj != "" {
		c, err := crs.ParseWKT(prj)
		if err != nil {
			return nil, eris.Wrapf(err, "vector: parse %s.prj", strings.TrimSuffix(shpPath, ".shp"))
		}
		t.CRS = c
	}

	zap.L().Debug("vector: shapefile read",
		zap.String("path", shpPath),
		zap.Int("rows", t.Len()),
		zap.Int("columns", len(t.Columns)),
		zap.String("crs", t.CRS.String()),
	)

	return t, nil
}

// fieldKind maps a DBF field descriptor to a column kind.
func fieldKind(f shp.Field) Kind {
	switch f.Fieldtype {
	case 'N':
		if f.Precision == 0 {
			return KindInt
		}
		return KindFloat
	case 'F', 'O':
		return KindFloat
	case 'I', '+':
		return KindInt
	case 'L':
		return KindBool
	case 'D':
		return KindDate
	default:
		return KindText
	}
}

// parseAttribute converts one raw DBF value. Blank and unparseable numbers
// are missing; integers that carry a fraction are kept as float64 so the
// column widens to float.
func parseAttribute(kind Kind, raw string, dec *encoding.Decoder) any {
	val := strings.TrimSpace(raw)

	switch kind {
	case KindInt:
		if val == "" {
			return nil
		}
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
		return nil
	case KindFloat:
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
		return nil
	case KindBool:
		switch val {
		case "T", "t", "Y", "y":
			return true
		case "F", "f", "N", "n":
			return false
		}
		return nil
	case KindDate:
		if len(val) != 8 {
			return nil
		}
		return val[0:4] + "-" + val[4:6] + "-" + val[6:8]
	default:
		if val == "" {
			return nil
		}
		if dec != nil {
			if decoded, err := dec.String(val); err == nil {
				val = decoded
			}
		}
		if !utf8.ValidString(val) {
			val = strings.ToValidUTF8(val, "�")
		}
		return val
	}
}

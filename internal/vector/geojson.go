package vector

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/sustainfire/internal/crs"
)

type rawFeature struct {
	Type       string          `json:"type"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties json.RawMessage `json:"properties"`
}

type rawCRS struct {
	Type       string `json:"type"`
	Properties struct {
		Name string `json:"name"`
	} `json:"properties"`
}

type rawCollection struct {
	Type     string       `json:"type"`
	Features []rawFeature `json:"features"`
	CRS      *rawCRS      `json:"crs"`
}

// ReadGeoJSON reads a GeoJSON FeatureCollection (or single Feature).
// Coordinates are WGS84 unless a legacy named "crs" member says otherwise.
func ReadGeoJSON(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "vector: read %s", path)
	}
	return ParseGeoJSON(data)
}

// ParseGeoJSON decodes GeoJSON bytes into a table.
func ParseGeoJSON(data []byte) (*Table, error) {
	var doc rawCollection
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "vector: parse geojson")
	}

	switch doc.Type {
	case "FeatureCollection":
	case "Feature":
		var f rawFeature
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, eris.Wrap(err, "vector: parse geojson feature")
		}
		doc.Features = []rawFeature{f}
	default:
		return nil, eris.Errorf("vector: geojson type %q is not a Feature or FeatureCollection", doc.Type)
	}

	t := &Table{CRS: crs.WGS84}
	if doc.CRS != nil && doc.CRS.Properties.Name != "" {
		c, err := crs.Parse(doc.CRS.Properties.Name)
		if err != nil {
			return nil, eris.Wrap(err, "vector: geojson crs")
		}
		t.CRS = c
	}

	var order []string
	builders := make(map[string]*columnBuilder)

	for i, f := range doc.Features {
		g, err := decodeGeometry(f.Geometry)
		if err != nil {
			return nil, eris.Wrapf(err, "vector: feature %d", i)
		}
		t.Geometries = append(t.Geometries, g)

		keys, props, err := decodeProperties(f.Properties)
		if err != nil {
			return nil, eris.Wrapf(err, "vector: feature %d properties", i)
		}
		for _, k := range keys {
			if _, ok := builders[k]; !ok {
				// Earlier features lacked this key.
				builders[k] = &columnBuilder{name: k, values: make([]any, i)}
				order = append(order, k)
			}
		}
		for _, k := range order {
			builders[k].append(props[k])
		}
	}

	for _, k := range order {
		b := builders[k]
		b.kind = b.inferKind()
		t.Columns = append(t.Columns, b.build())
	}

	return t, nil
}

func decodeGeometry(raw json.RawMessage) (geom.T, error) {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}
	var g geom.T
	if err := geojson.Unmarshal(raw, &g); err != nil {
		return nil, eris.Wrap(err, "decode geometry")
	}
	if GeomTypeName(g) == "" {
		return nil, eris.Errorf("unsupported geometry %T", g)
	}
	return g, nil
}

// decodeProperties returns property keys in document order with their values
// normalised to int64, float64, string, bool, nil, or a nested value.
func decodeProperties(raw json.RawMessage) ([]string, map[string]any, error) {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, eris.New("properties must be an object")
	}

	var keys []string
	props := make(map[string]any)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, _ := tok.(string)

		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, nil, err
		}
		if _, seen := props[key]; !seen {
			keys = append(keys, key)
		}
		props[key] = normalizeJSON(v)
	}
	return keys, props, nil
}

func normalizeJSON(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

// EncodeGeoJSON renders the table as a GeoJSON FeatureCollection carrying
// the named columns as properties. Rows without geometry are left out and
// feature IDs are row positions.
func EncodeGeoJSON(t *Table, properties ...string) ([]byte, error) {
	cols := make([]*Column, 0, len(properties))
	for _, name := range properties {
		c := t.Column(name)
		if c == nil {
			return nil, eris.Errorf("vector: no column %q", name)
		}
		cols = append(cols, c)
	}

	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, t.Len())}
	for i, g := range t.Geometries {
		if g == nil {
			continue
		}
		props := make(map[string]interface{}, len(cols))
		for _, c := range cols {
			props[c.Name] = jsonValue(c.Values[i])
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         strconv.Itoa(i),
			Geometry:   g,
			Properties: props,
		})
	}

	data, err := json.Marshal(fc)
	if err != nil {
		return nil, eris.Wrap(err, "vector: encode geojson")
	}
	return data, nil
}

// jsonValue maps NaN to null, which JSON cannot represent.
func jsonValue(v any) any {
	if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return nil
	}
	return v
}

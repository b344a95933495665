package vector

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

const sampleCollection = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [-120.5, 38.2]},
     "properties": {"temp": 30, "humidity": 12.5, "region": "north"}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [-121.0, 37.9]},
     "properties": {"temp": 27, "humidity": 18, "region": "south", "burned": true}},
    {"type": "Feature", "geometry": null,
     "properties": {"temp": 25.5, "humidity": null, "region": "east"}}
  ]
}`

func TestParseGeoJSON_Collection(t *testing.T) {
	tbl, err := ParseGeoJSON([]byte(sampleCollection))
	require.NoError(t, err)

	assert.Equal(t, 3, tbl.Len())
	assert.True(t, tbl.CRS.IsWGS84())
	assert.Equal(t, "Point", tbl.GeomType(0))
	assert.Equal(t, "", tbl.GeomType(2))

	names := make([]string, 0, len(tbl.Columns))
	for _, c := range tbl.Columns {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"temp", "humidity", "region", "burned"}, names)

	temp := tbl.Column("temp")
	assert.Equal(t, KindFloat, temp.Kind)
	assert.InDelta(t, 25.5, temp.Float(2), 1e-9)

	humidity := tbl.Column("humidity")
	assert.Equal(t, KindFloat, humidity.Kind)
	assert.True(t, math.IsNaN(humidity.Float(2)))

	burned := tbl.Column("burned")
	assert.Equal(t, KindBool, burned.Kind)
	assert.Equal(t, []any{nil, true, nil}, burned.Values)
}

func TestParseGeoJSON_IntegerColumn(t *testing.T) {
	tbl, err := ParseGeoJSON([]byte(`{"type":"FeatureCollection","features":[
		{"type":"Feature","geometry":{"type":"Point","coordinates":[0,0]},"properties":{"n":1}},
		{"type":"Feature","geometry":{"type":"Point","coordinates":[1,1]},"properties":{"n":2}}]}`))
	require.NoError(t, err)
	assert.Equal(t, KindInt, tbl.Column("n").Kind)
	assert.Equal(t, []any{int64(1), int64(2)}, tbl.Column("n").Values)
}

func TestParseGeoJSON_SingleFeature(t *testing.T) {
	tbl, err := ParseGeoJSON([]byte(`{"type":"Feature","geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]},"properties":{"name":"a"}}`))
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.Len())
	assert.Equal(t, "Polygon", tbl.GeomType(0))
}

func TestParseGeoJSON_LegacyCRS(t *testing.T) {
	tbl, err := ParseGeoJSON([]byte(`{"type":"FeatureCollection",
		"crs":{"type":"name","properties":{"name":"urn:ogc:def:crs:EPSG::3857"}},
		"features":[{"type":"Feature","geometry":{"type":"Point","coordinates":[0,0]},"properties":{}}]}`))
	require.NoError(t, err)
	assert.Equal(t, 3857, tbl.CRS.EPSG)
	assert.False(t, tbl.CRS.IsWGS84())
}

func TestParseGeoJSON_NestedPropertiesAreText(t *testing.T) {
	tbl, err := ParseGeoJSON([]byte(`{"type":"FeatureCollection","features":[
		{"type":"Feature","geometry":{"type":"Point","coordinates":[0,0]},"properties":{"tags":{"a":1}}}]}`))
	require.NoError(t, err)
	assert.Equal(t, KindText, tbl.Column("tags").Kind)
	assert.JSONEq(t, `{"a":1}`, tbl.Column("tags").Values[0].(string))
}

func TestParseGeoJSON_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not json", `{`},
		{"wrong type", `{"type":"Point","coordinates":[0,0]}`},
		{"geometry collection", `{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"GeometryCollection","geometries":[]},"properties":{}}]}`},
		{"properties array", `{"type":"FeatureCollection","features":[{"type":"Feature","geometry":null,"properties":[1]}]}`},
		{"bad crs", `{"type":"FeatureCollection","crs":{"type":"name","properties":{"name":"nowhere"}},"features":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseGeoJSON([]byte(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestEncodeGeoJSON(t *testing.T) {
	tbl := &Table{
		Geometries: []geom.T{
			geom.NewPointFlat(geom.XY, []float64{1, 2}),
			nil,
			geom.NewPointFlat(geom.XY, []float64{3, 4}),
		},
	}
	require.NoError(t, tbl.SetInts("risk_level", []int{0, 1, 3}))
	require.NoError(t, tbl.SetFloats("score", []float64{0.5, 1, math.NaN()}))

	data, err := EncodeGeoJSON(tbl, "risk_level", "score")
	require.NoError(t, err)

	var doc struct {
		Type     string `json:"type"`
		Features []struct {
			ID         string         `json:"id"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Equal(t, "FeatureCollection", doc.Type)
	require.Len(t, doc.Features, 2)
	assert.Equal(t, "0", doc.Features[0].ID)
	assert.Equal(t, "2", doc.Features[1].ID)
	assert.InDelta(t, 3, doc.Features[1].Properties["risk_level"], 0)
	assert.Nil(t, doc.Features[1].Properties["score"])

	_, err = EncodeGeoJSON(tbl, "missing")
	assert.Error(t, err)
}

package dashboard

import (
	"encoding/json"
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/sustainfire/internal/config"
	"github.com/sells-group/sustainfire/internal/scorer"
	"github.com/sells-group/sustainfire/internal/vector"
)

// ErrEmptyTable is returned when a dataset has no rows to map.
var ErrEmptyTable = eris.New("dashboard: dataset has no rows")

// DispatchMode selects how the representative geometry type is chosen.
type DispatchMode string

// Dispatch modes.
const (
	// ModeFirst uses the geometry type of the first row.
	ModeFirst DispatchMode = config.DispatchFirst
	// ModeMajority uses the most frequent non-null geometry type.
	ModeMajority DispatchMode = config.DispatchMajority
)

// LayerKind names the map layer a dataset is drawn with.
type LayerKind string

// Layer kinds.
const (
	LayerHeatmap    LayerKind = "heatmap"
	LayerChoropleth LayerKind = "choropleth"
)

// YlOrRd is the six-class ColorBrewer yellow-orange-red ramp.
var YlOrRd = []string{"#ffffb2", "#fed976", "#feb24c", "#fd8d3c", "#f03b20", "#bd0026"}

// HeatPoint is one weighted heat sample: latitude, longitude, risk level.
type HeatPoint [3]float64

// HeatmapLayer draws point datasets as a weighted heat layer.
type HeatmapLayer struct {
	Points  []HeatPoint `json:"points"`
	Radius  int         `json:"radius"`
	Blur    int         `json:"blur"`
	MaxZoom int         `json:"max_zoom"`
}

// ChoroplethLayer fills line and polygon features by risk level. Features
// are keyed by their row position, carried as the GeoJSON feature id.
type ChoroplethLayer struct {
	GeoJSON     json.RawMessage `json:"geojson"`
	KeyOn       string          `json:"key_on"`
	Column      string          `json:"column"`
	Bins        []float64       `json:"bins"`
	Colors      []string        `json:"colors"`
	FillOpacity float64         `json:"fill_opacity"`
	LineOpacity float64         `json:"line_opacity"`
	Legend      string          `json:"legend"`
}

// ColorFor returns the ramp colour of the bin holding v.
func (c *ChoroplethLayer) ColorFor(v float64) string {
	for i := 1; i < len(c.Bins)-1; i++ {
		if v < c.Bins[i] {
			return c.Colors[i-1]
		}
	}
	return c.Colors[len(c.Colors)-1]
}

// MapLayer is the dispatch outcome: exactly one of Heatmap and Choropleth is set.
type MapLayer struct {
	Kind       LayerKind        `json:"kind"`
	GeomType   string           `json:"geom_type"`
	Heatmap    *HeatmapLayer    `json:"heatmap,omitempty"`
	Choropleth *ChoroplethLayer `json:"choropleth,omitempty"`
}

// Dispatcher picks and builds the map layer for a scored table.
type Dispatcher struct {
	mode       DispatchMode
	heatmap    config.HeatmapConfig
	choropleth config.ChoroplethConfig
}

// NewDispatcher creates a Dispatcher from map configuration.
func NewDispatcher(mode DispatchMode, cfg config.MapConfig) *Dispatcher {
	if mode == "" {
		mode = ModeFirst
	}
	return &Dispatcher{mode: mode, heatmap: cfg.Heatmap, choropleth: cfg.Choropleth}
}

// RepresentativeType returns the geometry type that decides the map layer.
// Under ModeFirst only row 0 is consulted; under ModeMajority the most
// frequent non-null type wins, ties going to the type seen first.
func RepresentativeType(t *vector.Table, mode DispatchMode) string {
	if t.Len() == 0 {
		return ""
	}
	if mode != ModeMajority {
		return t.GeomType(0)
	}

	counts := make(map[string]int)
	var order []string
	for i := range t.Geometries {
		name := t.GeomType(i)
		if name == "" {
			continue
		}
		if counts[name] == 0 {
			order = append(order, name)
		}
		counts[name]++
	}

	var best string
	for _, name := range order {
		if counts[name] > counts[best] {
			best = name
		}
	}
	return best
}

// Dispatch adds the map helper columns to t and returns its layer: a heatmap
// when the representative type is Point, a choropleth otherwise. t must
// already carry the risk_level column.
func (d *Dispatcher) Dispatch(t *vector.Table) (*MapLayer, error) {
	if t.Len() == 0 {
		return nil, ErrEmptyTable
	}
	risk := t.Column(scorer.RiskColumn)
	if risk == nil {
		return nil, eris.Errorf("dashboard: table has no %s column", scorer.RiskColumn)
	}

	geomType := RepresentativeType(t, d.mode)
	if geomType == "Point" {
		layer, err := d.heatmapLayer(t, risk)
		if err != nil {
			return nil, err
		}
		return &MapLayer{Kind: LayerHeatmap, GeomType: geomType, Heatmap: layer}, nil
	}

	layer, err := d.choroplethLayer(t, risk)
	if err != nil {
		return nil, err
	}
	return &MapLayer{Kind: LayerChoropleth, GeomType: geomType, Choropleth: layer}, nil
}

// heatmapLayer adds lat and lon columns and builds heat samples from every
// row with a location.
func (d *Dispatcher) heatmapLayer(t *vector.Table, risk *vector.Column) (*HeatmapLayer, error) {
	lats := make([]float64, t.Len())
	lons := make([]float64, t.Len())
	points := make([]HeatPoint, 0, t.Len())

	for i, g := range t.Geometries {
		lats[i], lons[i] = math.NaN(), math.NaN()
		if g == nil {
			continue
		}
		// Non-point rows are located at their first vertex.
		if coords := g.FlatCoords(); len(coords) >= 2 {
			lons[i], lats[i] = coords[0], coords[1]
			points = append(points, HeatPoint{lats[i], lons[i], risk.Float(i)})
		}
	}

	if err := t.SetFloats("lat", lats); err != nil {
		return nil, eris.Wrap(err, "dashboard: add lat")
	}
	if err := t.SetFloats("lon", lons); err != nil {
		return nil, eris.Wrap(err, "dashboard: add lon")
	}

	return &HeatmapLayer{
		Points:  points,
		Radius:  d.heatmap.Radius,
		Blur:    d.heatmap.Blur,
		MaxZoom: d.heatmap.MaxZoom,
	}, nil
}

// choroplethLayer adds the id column and encodes the table as GeoJSON.
func (d *Dispatcher) choroplethLayer(t *vector.Table, risk *vector.Column) (*ChoroplethLayer, error) {
	ids := make([]int, t.Len())
	for i := range ids {
		ids[i] = i
	}
	if err := t.SetInts("id", ids); err != nil {
		return nil, eris.Wrap(err, "dashboard: add id")
	}

	data, err := vector.EncodeGeoJSON(t, "id", scorer.RiskColumn)
	if err != nil {
		return nil, eris.Wrap(err, "dashboard: encode choropleth")
	}

	return &ChoroplethLayer{
		GeoJSON:     data,
		KeyOn:       "feature.id",
		Column:      scorer.RiskColumn,
		Bins:        colorBins(risk, len(YlOrRd)),
		Colors:      YlOrRd,
		FillOpacity: d.choropleth.FillOpacity,
		LineOpacity: d.choropleth.LineOpacity,
		Legend:      d.choropleth.Legend,
	}, nil
}

// colorBins returns n+1 evenly spaced edges over the column's value range.
func colorBins(c *vector.Column, n int) []float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range c.Values {
		v := c.Float(i)
		if math.IsNaN(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if math.IsInf(lo, 1) {
		lo, hi = 0, scorer.MaxRiskLevel
	}
	if hi == lo {
		hi = lo + 1
	}

	bins := make([]float64, n+1)
	step := (hi - lo) / float64(n)
	for i := range bins {
		bins[i] = lo + step*float64(i)
	}
	bins[n] = hi
	return bins
}

package web

import (
	"encoding/json"
	"html/template"

	"github.com/rotisserie/eris"

	"github.com/sells-group/sustainfire/internal/config"
	"github.com/sells-group/sustainfire/internal/dashboard"
)

type pageData struct {
	Title       string
	Path        string
	ModelLoaded bool
	// State is idle, missing, ready or error.
	State    string
	Error    string
	RenderID string
	Result   *dashboard.Result
	Map      mapView
	Bars     []barView
}

type mapView struct {
	Width  int
	Height int
	Config template.JS
}

type barView struct {
	Level   int
	Count   int
	Percent int
}

// fill copies a completed render into the page.
func (d *pageData) fill(res *dashboard.Result, cfg config.MapConfig) error {
	d.Result = res
	d.RenderID = res.RenderID

	js, err := marshalTemplateJS(struct {
		CenterLat float64             `json:"center_lat"`
		CenterLon float64             `json:"center_lon"`
		Zoom      int                 `json:"zoom"`
		Layer     *dashboard.MapLayer `json:"layer"`
	}{res.CenterLat, res.CenterLon, cfg.ZoomStart, res.Map})
	if err != nil {
		return eris.Wrap(err, "web: encode map")
	}
	d.Map = mapView{Width: cfg.Width, Height: cfg.Height, Config: js}
	d.Bars = bars(res.Summary)
	return nil
}

// bars scales histogram buckets against the tallest one.
func bars(buckets []dashboard.Bucket) []barView {
	var peak int
	for _, b := range buckets {
		peak = max(peak, b.Count)
	}

	out := make([]barView, 0, len(buckets))
	for _, b := range buckets {
		pct := 0
		if peak > 0 {
			pct = b.Count * 100 / peak
		}
		out = append(out, barView{Level: b.Level, Count: b.Count, Percent: pct})
	}
	return out
}

// marshalTemplateJS encodes value as JSON that html/template emits verbatim
// inside a script block.
func marshalTemplateJS(value any) (template.JS, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return template.JS(payload), nil //nolint:gosec
}

package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/sustainfire/internal/config"
	"github.com/sells-group/sustainfire/internal/dashboard"
	"github.com/sells-group/sustainfire/internal/scorer"
)

const parcels = `{"type":"FeatureCollection","features":[
 {"type":"Feature","geometry":{"type":"Polygon","coordinates":[[[0,0],[0,1],[1,1],[1,0],[0,0]]]},"properties":{"area":1.5}},
 {"type":"Feature","geometry":{"type":"Polygon","coordinates":[[[2,2],[2,3],[3,3],[3,2],[2,2]]]},"properties":{"area":2.5}}
]}`

const fires = `{"type":"FeatureCollection","features":[
 {"type":"Feature","geometry":{"type":"Point","coordinates":[-120.0,38.0]},"properties":{"temp":31}}
]}`

type failingRunner struct{}

func (failingRunner) Run(context.Context, string) (*dashboard.Result, error) {
	return nil, eris.New("vector: parse geojson: unexpected end of JSON input")
}

func (failingRunner) ModelLoaded() bool { return true }

func newTestServer(t *testing.T, runner Runner, cfg *config.Config) http.Handler {
	t.Helper()
	srv, err := NewServer(runner, cfg)
	require.NoError(t, err)
	return srv.Handler()
}

func randomServer(t *testing.T) http.Handler {
	cfg := config.Default()
	return newTestServer(t, dashboard.NewPipeline(cfg, scorer.NewScorer(nil, nil)), cfg)
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func pageFor(path string) string {
	return "/?path=" + url.QueryEscape(path)
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestHealth(t *testing.T) {
	w := get(randomServer(t), "/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["model_loaded"])
}

func TestPage_Idle(t *testing.T) {
	w := get(randomServer(t), "/")
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "SustainFire – Forest Fire Prediction Dashboard")
	assert.Contains(t, body, "Please enter the path")
	assert.Contains(t, body, "No saved model found")
	assert.NotContains(t, body, "Sample of the data")
	assert.NotContains(t, body, "Risk Level Map")
}

func TestPage_WhitespacePathIsInvalid(t *testing.T) {
	w := get(randomServer(t), pageFor("   "))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "Invalid path")
	assert.NotContains(t, body, "Please enter the path")
	assert.NotContains(t, body, "Sample of the data")
}

func TestPage_MissingPath(t *testing.T) {
	w := get(randomServer(t), pageFor(filepath.Join(t.TempDir(), "nope.shp")))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "Invalid path")
	assert.NotContains(t, body, "Sample of the data")
	assert.NotContains(t, body, "Risk Level Map")
	assert.NotContains(t, body, "Risk Level Distribution")
}

func TestPage_Choropleth(t *testing.T) {
	w := get(randomServer(t), pageFor(writeFile(t, "parcels.geojson", parcels)))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	for _, want := range []string{
		"Loaded 2 features",
		"Sample of the data",
		"POLYGON",
		"Predictions",
		"Risk Level Map",
		"Risk Level Distribution",
		`"kind":"choropleth"`,
		`"legend":"Risk Level"`,
		"width: 900px",
		`"zoom":8`,
	} {
		assert.Contains(t, body, want)
	}
}

func TestPage_Heatmap(t *testing.T) {
	w := get(randomServer(t), pageFor(writeFile(t, "fires.geojson", fires)))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, `"kind":"heatmap"`)
	assert.Contains(t, body, `"radius":15`)
	assert.Contains(t, body, "leaflet-heat.js")
}

func TestPage_ProcessingError(t *testing.T) {
	w := get(newTestServer(t, failingRunner{}, config.Default()), pageFor("/data/broken.geojson"))
	require.Equal(t, http.StatusInternalServerError, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "An error occurred while processing the file.")
	assert.Contains(t, body, "unexpected end of JSON input")
	assert.NotContains(t, body, "No saved model found")
	assert.NotContains(t, body, "Risk Level Map")
}

func TestPage_RateLimited(t *testing.T) {
	cfg := config.Default()
	cfg.Server.RateLimit = 0.001
	cfg.Server.RateBurst = 1
	h := newTestServer(t, dashboard.NewPipeline(cfg, scorer.NewScorer(nil, nil)), cfg)

	assert.Equal(t, http.StatusOK, get(h, "/").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(h, "/").Code)
	// Health checks are not limited.
	assert.Equal(t, http.StatusOK, get(h, "/health").Code)
}

func TestBars(t *testing.T) {
	out := bars([]dashboard.Bucket{{Level: 0, Count: 2}, {Level: 3, Count: 4}})
	assert.Equal(t, []barView{{Level: 0, Count: 2, Percent: 50}, {Level: 3, Count: 4, Percent: 100}}, out)
	assert.Empty(t, bars(nil))
}

package dashboard

import (
	"context"
	"math"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/wkt"
	"go.uber.org/zap"

	"github.com/sells-group/sustainfire/internal/config"
	"github.com/sells-group/sustainfire/internal/scorer"
	"github.com/sells-group/sustainfire/internal/vector"
)

// maxWKTLen caps the geometry text shown in the data preview.
const maxWKTLen = 80

// Preview is the first rows of a table rendered as text.
type Preview struct {
	Columns []string
	Rows    [][]string
}

// Result is the outcome of one render cycle. Only State, Path and RenderID
// are set unless State is InputReady.
type Result struct {
	RenderID    string
	Path        string
	State       InputState
	ModelLoaded bool

	Rows        int
	Preview     Preview
	Labels      []int
	Predictions []int
	Map         *MapLayer
	CenterLat   float64
	CenterLon   float64
	Summary     []Bucket
	Elapsed     time.Duration
}

// Pipeline runs validation, ingest, scoring and presentation for one path.
// It holds no per-request state and is safe for concurrent use.
type Pipeline struct {
	scorer      *scorer.Scorer
	dispatcher  *Dispatcher
	ingest      vector.Options
	previewRows int
	zeroFill    bool
	log         *zap.Logger
}

// NewPipeline wires a Pipeline from configuration and a constructed scorer.
func NewPipeline(cfg *config.Config, s *scorer.Scorer) *Pipeline {
	return &Pipeline{
		scorer:      s,
		dispatcher:  NewDispatcher(DispatchMode(cfg.Dispatch.Mode), cfg.Map),
		ingest:      vector.Options{AssumeCRS: cfg.Ingest.AssumeCRS},
		previewRows: cfg.Preview.Rows,
		zeroFill:    cfg.Summary.ZeroFill,
		log:         zap.L().With(zap.String("component", "pipeline")),
	}
}

// ModelLoaded reports whether scoring uses a model.
func (p *Pipeline) ModelLoaded() bool {
	return p.scorer.HasModel()
}

// Run executes one render cycle. An idle or missing path is not an error:
// the returned Result says which. Any failure after validation is returned
// as an error.
func (p *Pipeline) Run(ctx context.Context, path string) (*Result, error) {
	start := time.Now()
	res := &Result{
		RenderID:    uuid.New().String(),
		Path:        path,
		State:       Validate(path),
		ModelLoaded: p.scorer.HasModel(),
	}
	log := p.log.With(zap.String("render_id", res.RenderID), zap.String("path", path))

	if res.State != InputReady {
		log.Debug("render skipped", zap.Stringer("state", res.State))
		return res, nil
	}

	t, err := vector.Load(path, p.ingest)
	if err != nil {
		return nil, eris.Wrap(err, "dashboard: load")
	}
	res.Rows = t.Len()

	res.Preview, err = buildPreview(t, p.previewRows)
	if err != nil {
		return nil, err
	}

	labels, err := p.scorer.Score(ctx, t)
	if err != nil {
		return nil, eris.Wrap(err, "dashboard: score")
	}
	if err := scorer.Attach(t, labels); err != nil {
		return nil, err
	}
	res.Labels = labels
	res.Predictions = labels[:min(p.previewRows, len(labels))]

	res.Map, err = p.dispatcher.Dispatch(t)
	if err != nil {
		return nil, err
	}
	if b, ok := t.Bounds(); ok {
		res.CenterLat, res.CenterLon = b.Center()
	}

	res.Summary = Summarize(labels, p.zeroFill)
	res.Elapsed = time.Since(start)

	log.Info("render complete",
		zap.Int("rows", res.Rows),
		zap.String("layer", string(res.Map.Kind)),
		zap.String("geom_type", res.Map.GeomType),
		zap.Bool("model", res.ModelLoaded),
		zap.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}

// buildPreview renders the first n rows: attribute columns then geometry WKT.
func buildPreview(t *vector.Table, n int) (Preview, error) {
	pv := Preview{Columns: make([]string, 0, len(t.Columns)+1)}
	for _, c := range t.Columns {
		pv.Columns = append(pv.Columns, c.Name)
	}
	pv.Columns = append(pv.Columns, "geometry")

	n = min(n, t.Len())
	for i := 0; i < n; i++ {
		row := make([]string, 0, len(pv.Columns))
		for _, c := range t.Columns {
			row = append(row, formatCell(c.Values[i]))
		}

		g := t.Geometries[i]
		if g == nil {
			row = append(row, "None")
		} else {
			text, err := wkt.Marshal(g, wkt.EncodeOptionWithMaxDecimalDigits(6))
			if err != nil {
				return Preview{}, eris.Wrapf(err, "dashboard: encode geometry of row %d", i)
			}
			row = append(row, truncate(text, maxWKTLen))
		}
		pv.Rows = append(pv.Rows, row)
	}
	return pv, nil
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return "None"
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		if math.IsNaN(x) {
			return "NaN"
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}

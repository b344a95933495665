package scorer

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/sustainfire/internal/vector"
)

// RiskColumn is the column Attach adds to a scored table.
const RiskColumn = "risk_level"

// Predictor maps a feature matrix to one label per row.
type Predictor interface {
	Predict(ctx context.Context, X [][]float64) ([]int, error)
}

// FeatureSchema is implemented by predictors that declare their inputs.
type FeatureSchema interface {
	FeatureNames() []string
	NumFeatures() int
}

// Rand is the random source used when no model is loaded.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// SchemaMismatchError reports a table that cannot feed the model.
type SchemaMismatchError struct {
	Missing    []string
	NonNumeric []string
	Want       int
	Got        int
}

func (e *SchemaMismatchError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing columns "+strings.Join(e.Missing, ", "))
	}
	if len(e.NonNumeric) > 0 {
		parts = append(parts, "non-numeric columns "+strings.Join(e.NonNumeric, ", "))
	}
	if e.Want != e.Got {
		parts = append(parts, fmt.Sprintf("model expects %d numeric columns, table has %d", e.Want, e.Got))
	}
	return "scorer: feature schema mismatch: " + strings.Join(parts, "; ")
}

// LabelCountError reports a predictor that returned the wrong number of labels.
type LabelCountError struct {
	Want int
	Got  int
}

func (e *LabelCountError) Error() string {
	return fmt.Sprintf("scorer: predictor returned %d labels for %d rows", e.Got, e.Want)
}

// Scorer labels feature tables. It is immutable after construction and safe
// for concurrent use when its Rand is.
type Scorer struct {
	model Predictor
	rnd   Rand
	log   *zap.Logger
}

// NewScorer creates a Scorer. A nil model selects random labels; a nil rnd
// uses the goroutine-safe global source.
func NewScorer(model Predictor, rnd Rand) *Scorer {
	if rnd == nil {
		rnd = globalRand{}
	}
	return &Scorer{
		model: model,
		rnd:   rnd,
		log:   zap.L().With(zap.String("component", "scorer")),
	}
}

// HasModel reports whether labels come from a model rather than chance.
func (s *Scorer) HasModel() bool {
	return s.model != nil
}

// Score returns one risk label per table row.
func (s *Scorer) Score(ctx context.Context, t *vector.Table) ([]int, error) {
	if s.model == nil {
		labels := make([]int, t.Len())
		for i := range labels {
			labels[i] = s.rnd.IntN(MaxRiskLevel + 1)
		}
		s.log.Debug("random labels assigned", zap.Int("rows", len(labels)))
		return labels, nil
	}

	X, err := FeatureMatrix(t, s.model)
	if err != nil {
		return nil, err
	}

	labels, err := s.model.Predict(ctx, X)
	if err != nil {
		return nil, eris.Wrap(err, "scorer: predict")
	}
	if len(labels) != t.Len() {
		return nil, &LabelCountError{Want: t.Len(), Got: len(labels)}
	}

	s.log.Debug("model labels assigned", zap.Int("rows", len(labels)))
	return labels, nil
}

// FeatureMatrix builds the row-major model input from t. Models that declare
// feature names get exactly those columns in that order; otherwise every
// numeric column is used in table order.
func FeatureMatrix(t *vector.Table, model Predictor) ([][]float64, error) {
	cols, err := selectColumns(t, model)
	if err != nil {
		return nil, err
	}

	X := make([][]float64, t.Len())
	for i := range X {
		row := make([]float64, len(cols))
		for j, c := range cols {
			row[j] = c.Float(i)
		}
		X[i] = row
	}
	return X, nil
}

func selectColumns(t *vector.Table, model Predictor) ([]*vector.Column, error) {
	schema, ok := model.(FeatureSchema)
	if !ok {
		return t.NumericColumns(), nil
	}

	if names := schema.FeatureNames(); len(names) > 0 {
		mismatch := &SchemaMismatchError{}
		cols := make([]*vector.Column, 0, len(names))
		for _, name := range names {
			c := t.Column(name)
			switch {
			case c == nil:
				mismatch.Missing = append(mismatch.Missing, name)
			case !c.Kind.Numeric():
				mismatch.NonNumeric = append(mismatch.NonNumeric, name)
			default:
				cols = append(cols, c)
			}
		}
		if len(mismatch.Missing) > 0 || len(mismatch.NonNumeric) > 0 {
			return nil, mismatch
		}
		return cols, nil
	}

	cols := t.NumericColumns()
	if want := schema.NumFeatures(); want > 0 && want != len(cols) {
		return nil, &SchemaMismatchError{Want: want, Got: len(cols)}
	}
	return cols, nil
}

// Attach stores labels on t as the integer risk_level column.
func Attach(t *vector.Table, labels []int) error {
	if err := t.SetInts(RiskColumn, labels); err != nil {
		return eris.Wrap(err, "scorer: attach labels")
	}
	return nil
}

// Load reads the forest artifact at path. Callers treat an error as "no
// model" and fall back to random labels.
func Load(path string) (*Forest, error) {
	f, err := LoadForest(path)
	if err != nil {
		return nil, err
	}
	zap.L().Info("model loaded",
		zap.String("path", path),
		zap.String("name", f.Name),
		zap.Int("trees", len(f.Trees)),
		zap.Int("features", f.NumFeatures()),
	)
	return f, nil
}

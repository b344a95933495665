package scorer

import (
	"context"
	"math"

	"github.com/rotisserie/eris"
)

// Predict returns one class label per row of X. Each tree votes with its
// normalised leaf weights; the label with the highest mean weight wins and
// ties go to the class listed first.
func (f *Forest) Predict(ctx context.Context, X [][]float64) ([]int, error) {
	width := f.NumFeatures()
	labels := make([]int, len(X))
	probs := make([]float64, len(f.Classes))

	for i, row := range X {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, eris.Wrap(err, "scorer: predict")
			}
		}
		if len(row) != width {
			return nil, eris.Errorf("scorer: row %d has %d features, model expects %d", i, len(row), width)
		}
		for j, v := range row {
			if math.IsNaN(v) {
				return nil, eris.Errorf("scorer: row %d feature %d is missing", i, j)
			}
		}

		clear(probs)
		for _, tree := range f.Trees {
			tree.accumulate(row, probs)
		}
		labels[i] = f.Classes[argmax(probs)]
	}
	return labels, nil
}

// accumulate walks the tree for row and adds the leaf's class distribution to probs.
func (t Tree) accumulate(row []float64, probs []float64) {
	n := t.Nodes[0]
	for !n.IsLeaf() {
		if row[n.Feature] <= n.Threshold {
			n = t.Nodes[n.Left]
		} else {
			n = t.Nodes[n.Right]
		}
	}

	var total float64
	for _, w := range n.Value {
		total += w
	}
	if total == 0 {
		return
	}
	for c, w := range n.Value {
		probs[c] += w / total
	}
}

func argmax(xs []float64) int {
	best := 0
	for i, x := range xs {
		if x > xs[best] {
			best = i
		}
	}
	return best
}

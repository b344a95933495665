// Package scorer assigns a fire risk level to every row of a feature table,
// either with a pre-trained random forest or, without one, uniformly at random.
package scorer

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// MaxRiskLevel is the highest risk label; labels run from 0 to MaxRiskLevel.
const MaxRiskLevel = 3

// Node is one node of a decision tree. A node with Left and Right both -1 is
// a leaf whose Value holds one weight per class; any other node is a split
// that sends rows with x[Feature] <= Threshold to Left.
type Node struct {
	Feature   int       `yaml:"feature"`
	Threshold float64   `yaml:"threshold"`
	Left      int       `yaml:"left"`
	Right     int       `yaml:"right"`
	Value     []float64 `yaml:"value,omitempty"`
}

// IsLeaf reports whether the node terminates a path.
func (n Node) IsLeaf() bool {
	return n.Left == -1 && n.Right == -1
}

// Tree is a decision tree rooted at Nodes[0].
type Tree struct {
	Nodes []Node `yaml:"nodes"`
}

// Forest is a random forest classifier artifact.
type Forest struct {
	Name      string   `yaml:"name"`
	Features  []string `yaml:"features,omitempty"`
	NFeatures int      `yaml:"n_features"`
	Classes   []int    `yaml:"classes"`
	Trees     []Tree   `yaml:"trees"`
}

// FeatureNames returns the declared input columns, or nil when the artifact
// only fixes the feature count.
func (f *Forest) FeatureNames() []string {
	return f.Features
}

// NumFeatures returns the width of the feature vector the forest expects.
func (f *Forest) NumFeatures() int {
	if len(f.Features) > 0 {
		return len(f.Features)
	}
	return f.NFeatures
}

// SchemaError describes an artifact that does not form a usable forest.
type SchemaError struct {
	Path    string
	Reasons []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("scorer: invalid model %s: %s", e.Path, strings.Join(e.Reasons, "; "))
}

// LoadForest reads a forest artifact (JSON or YAML) and validates it.
func LoadForest(path string) (*Forest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "scorer: read model %s", path)
	}

	var f Forest
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "scorer: parse model %s", path)
	}

	if reasons := f.validate(); len(reasons) > 0 {
		return nil, &SchemaError{Path: path, Reasons: reasons}
	}
	return &f, nil
}

func (f *Forest) validate() []string {
	var errs []string

	if len(f.Features) > 0 && f.NFeatures != 0 && f.NFeatures != len(f.Features) {
		errs = append(errs, fmt.Sprintf("n_features %d does not match %d declared features", f.NFeatures, len(f.Features)))
	}
	nFeatures := f.NumFeatures()
	if nFeatures <= 0 {
		errs = append(errs, "no input features declared")
	}

	if len(f.Classes) == 0 {
		errs = append(errs, "no classes")
	}
	for _, c := range f.Classes {
		if c < 0 || c > MaxRiskLevel {
			errs = append(errs, fmt.Sprintf("class %d outside 0..%d", c, MaxRiskLevel))
		}
	}

	if len(f.Trees) == 0 {
		errs = append(errs, "no trees")
	}
	for ti, tree := range f.Trees {
		errs = append(errs, tree.validate(ti, nFeatures, len(f.Classes))...)
	}
	return errs
}

func (t Tree) validate(ti, nFeatures, nClasses int) []string {
	if len(t.Nodes) == 0 {
		return []string{fmt.Sprintf("tree %d has no nodes", ti)}
	}

	var errs []string
	for ni, n := range t.Nodes {
		if n.IsLeaf() {
			if len(n.Value) != nClasses {
				errs = append(errs, fmt.Sprintf("tree %d node %d: leaf has %d values, want %d", ti, ni, len(n.Value), nClasses))
			}
			for _, w := range n.Value {
				if w < 0 {
					errs = append(errs, fmt.Sprintf("tree %d node %d: negative leaf weight", ti, ni))
					break
				}
			}
			continue
		}
		if n.Feature < 0 || n.Feature >= nFeatures {
			errs = append(errs, fmt.Sprintf("tree %d node %d: feature %d out of range", ti, ni, n.Feature))
		}
		// Children always follow their parent, which rules out cycles.
		for _, child := range []int{n.Left, n.Right} {
			if child <= ni || child >= len(t.Nodes) {
				errs = append(errs, fmt.Sprintf("tree %d node %d: child %d out of range", ti, ni, child))
			}
		}
	}
	return errs
}

package lightgbm

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// ObjectiveType represents the objective function type
type ObjectiveType string

const (
	// Regression objectives
	RegressionL2       ObjectiveType = "regression"
	RegressionL1       ObjectiveType = "regression_l1"
	RegressionHuber    ObjectiveType = "huber"
	RegressionFair     ObjectiveType = "fair"
	RegressionPoisson  ObjectiveType = "poisson"
	RegressionQuantile ObjectiveType = "quantile"
	RegressionMAPE     ObjectiveType = "mape"
	RegressionGamma    ObjectiveType = "gamma"
	RegressionTweedie  ObjectiveType = "tweedie"

	// Binary classification objectives
	BinaryLogistic     ObjectiveType = "binary"
	BinaryCrossEntropy ObjectiveType = "cross_entropy"

	// Multiclass classification objectives
	MulticlassSoftmax ObjectiveType = "multiclass"
	MulticlassOVA     ObjectiveType = "multiclassova"

	// Ranking objectives
	LambdaRank ObjectiveType = "lambdarank"
	RankXENDCG ObjectiveType = "rank_xendcg"
)

// Node flags. They mirror the bit layout LightGBM packs into decision_type.
const (
	categorical = 1 << 0
	defaultLeft = 1 << 1
	missingZero = 1 << 2
	missingNan  = 1 << 3
)

// kZeroThreshold is LightGBM's tolerance for treating a value as zero.
const kZeroThreshold = 1e-35

// Node is an internal split node. A child index >= 0 refers to another node of the
// same tree; a negative child c refers to leaf ^c.
type Node struct {
	Feature   int
	Threshold float64 // category set index for categorical nodes
	Flags     uint8
	Left      int32
	Right     int32
}

// Tree is a single regression tree. LeafValues already include shrinkage.
type Tree struct {
	Nodes      []Node
	LeafValues []float64
	Shrinkage  float64

	// Categorical split bitsets: category set k occupies
	// CatThresholds[CatBoundaries[k]:CatBoundaries[k+1]].
	CatBoundaries []int32
	CatThresholds []uint32
}

// Predict returns the leaf value reached by features.
func (t *Tree) Predict(features []float64) float64 {
	if len(t.Nodes) == 0 {
		// Constant tree with a single leaf
		if len(t.LeafValues) > 0 {
			return t.LeafValues[0]
		}
		return 0
	}

	idx := int32(0)
	for idx >= 0 {
		node := &t.Nodes[idx]
		if t.decision(node, features[node.Feature]) {
			idx = node.Left
		} else {
			idx = node.Right
		}
	}
	return t.LeafValues[^idx]
}

// decision reports whether fval goes to the left child.
func (t *Tree) decision(node *Node, fval float64) bool {
	if node.Flags&categorical != 0 {
		return t.categoricalDecision(node, fval)
	}
	return numericalDecision(node, fval)
}

func numericalDecision(node *Node, fval float64) bool {
	if math.IsNaN(fval) && node.Flags&missingNan == 0 {
		fval = 0
	}
	if (node.Flags&missingZero != 0 && isZero(fval)) || (node.Flags&missingNan != 0 && math.IsNaN(fval)) {
		return node.Flags&defaultLeft != 0
	}
	// LightGBM uses <= for numerical splits
	return fval <= node.Threshold
}

// isZero matches LightGBM's IsZero: both bounds are inclusive.
func isZero(fval float64) bool {
	return fval >= -kZeroThreshold && fval <= kZeroThreshold
}

func (t *Tree) categoricalDecision(node *Node, fval float64) bool {
	var category int
	if math.IsNaN(fval) {
		if node.Flags&missingNan != 0 {
			return false
		}
		category = 0
	} else {
		category = int(fval)
		if category < 0 {
			return false
		}
	}

	catIdx := int(node.Threshold)
	start, end := t.CatBoundaries[catIdx], t.CatBoundaries[catIdx+1]
	return findInBitset(t.CatThresholds[start:end], category)
}

func findInBitset(bits []uint32, pos int) bool {
	word := pos / 32
	if word >= len(bits) {
		return false
	}
	return (bits[word]>>(uint(pos)%32))&1 == 1
}

// Model represents a complete LightGBM model ensemble loaded from an artifact.
// All fields are exported so that the model can be snapshotted with encoding/gob.
type Model struct {
	Version             string
	Objective           ObjectiveType
	ObjectiveParams     map[string]float64 // e.g. sigmoid:1, tweedie_variance_power:1.5
	NumClass            int
	NumTreePerIteration int
	MaxFeatureIdx       int
	Features            []string
	AverageOutput       bool
	Trees               []Tree
}

// NewModel creates a new empty LightGBM model
func NewModel() *Model {
	return &Model{
		Objective:           RegressionL2,
		ObjectiveParams:     map[string]float64{},
		NumClass:            1,
		NumTreePerIteration: 1,
		MaxFeatureIdx:       -1,
	}
}

// NumFeatures returns the number of input columns the model expects.
func (m *Model) NumFeatures() int {
	return m.MaxFeatureIdx + 1
}

// NumIterations returns the number of boosting rounds stored in the model.
func (m *Model) NumIterations() int {
	if m.NumTreePerIteration <= 0 {
		return len(m.Trees)
	}
	return len(m.Trees) / m.NumTreePerIteration
}

// FeatureNames returns the training-time feature names in training order.
func (m *Model) FeatureNames() []string {
	return append([]string(nil), m.Features...)
}

// NumOutputs returns the number of output columns Predict produces.
func (m *Model) NumOutputs() int {
	if m.NumTreePerIteration > 1 {
		return m.NumTreePerIteration
	}
	return 1
}

// Predict makes predictions for a batch of samples with all trees, sequentially.
// Use NewPredictor for row-parallel prediction or an iteration limit.
func (m *Model) Predict(X mat.Matrix) (mat.Matrix, error) {
	return NewPredictor(m).Predict(X)
}

// rawScore accumulates raw tree outputs for one sample into out.
func (m *Model) rawScore(features []float64, numIteration int, out []float64) {
	k := m.NumOutputs()
	for i := range out {
		out[i] = 0
	}

	nTrees := numIteration * k
	if nTrees <= 0 || nTrees > len(m.Trees) {
		nTrees = len(m.Trees)
	}
	for i := 0; i < nTrees; i++ {
		out[i%k] += m.Trees[i].Predict(features)
	}

	if m.AverageOutput && nTrees > 0 {
		iters := float64(nTrees / k)
		for i := range out {
			out[i] /= iters
		}
	}
}

// transform applies the objective's output link in place.
func (m *Model) transform(out []float64) {
	switch m.Objective {
	case BinaryLogistic, BinaryCrossEntropy:
		scale := m.param("sigmoid", 1)
		out[0] = sigmoid(scale * out[0])
	case MulticlassSoftmax:
		softmax(out)
	case MulticlassOVA:
		scale := m.param("sigmoid", 1)
		for i := range out {
			out[i] = sigmoid(scale * out[i])
		}
	case RegressionPoisson, RegressionGamma, RegressionTweedie:
		for i := range out {
			out[i] = math.Exp(out[i])
		}
	}
}

func (m *Model) param(name string, fallback float64) float64 {
	if v, ok := m.ObjectiveParams[name]; ok {
		return v
	}
	return fallback
}

// parseObjective splits LightGBM's "binary sigmoid:1" style objective line.
func parseObjective(line string) (ObjectiveType, map[string]float64) {
	params := map[string]float64{}
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return RegressionL2, params
	}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, ":", 2)
		if len(kv) != 2 {
			continue
		}
		if v, err := strconv.ParseFloat(kv[1], 64); err == nil {
			params[kv[0]] = v
		}
	}
	return ObjectiveType(parts[0]), params
}

// objectiveString renders the objective back into LightGBM's text form.
func (m *Model) objectiveString() string {
	var sb strings.Builder
	sb.WriteString(string(m.Objective))
	for _, key := range sortedKeys(m.ObjectiveParams) {
		sb.WriteString(fmt.Sprintf(" %s:%s", key, strconv.FormatFloat(m.ObjectiveParams[key], 'g', -1, 64)))
	}
	return sb.String()
}

// Validate checks the structural invariants prediction relies on, so that a
// malformed artifact fails at load time rather than during traversal.
func (m *Model) Validate() error {
	if m.NumTreePerIteration <= 0 {
		return fmt.Errorf("num_tree_per_iteration must be positive, got %d", m.NumTreePerIteration)
	}
	if len(m.Trees)%m.NumTreePerIteration != 0 {
		return fmt.Errorf("%d trees is not a multiple of num_tree_per_iteration=%d", len(m.Trees), m.NumTreePerIteration)
	}
	if m.MaxFeatureIdx < 0 {
		return fmt.Errorf("max_feature_idx must be >= 0, got %d", m.MaxFeatureIdx)
	}
	if len(m.Features) > 0 && len(m.Features) != m.NumFeatures() {
		return fmt.Errorf("feature_names has %d entries, expected %d", len(m.Features), m.NumFeatures())
	}

	for ti := range m.Trees {
		if err := m.Trees[ti].validate(m.MaxFeatureIdx); err != nil {
			return fmt.Errorf("tree %d: %w", ti, err)
		}
	}
	return nil
}

func (t *Tree) validate(maxFeatureIdx int) error {
	if len(t.LeafValues) == 0 {
		return fmt.Errorf("no leaf values")
	}
	if len(t.Nodes) != len(t.LeafValues)-1 {
		return fmt.Errorf("%d split nodes for %d leaves", len(t.Nodes), len(t.LeafValues))
	}

	// Children are always created after their parent, which also rules out cycles.
	checkChild := func(parent int, c int32) error {
		if c >= 0 {
			if int(c) >= len(t.Nodes) || int(c) <= parent {
				return fmt.Errorf("child node %d out of range", c)
			}
			return nil
		}
		if leaf := ^c; int(leaf) >= len(t.LeafValues) {
			return fmt.Errorf("leaf %d out of range", leaf)
		}
		return nil
	}

	for i, n := range t.Nodes {
		if n.Feature < 0 || n.Feature > maxFeatureIdx {
			return fmt.Errorf("node %d: split feature %d out of range", i, n.Feature)
		}
		if err := checkChild(i, n.Left); err != nil {
			return fmt.Errorf("node %d: %w", i, err)
		}
		if err := checkChild(i, n.Right); err != nil {
			return fmt.Errorf("node %d: %w", i, err)
		}
		if n.Flags&categorical != 0 {
			k := int(n.Threshold)
			if k < 0 || k+1 >= len(t.CatBoundaries) {
				return fmt.Errorf("node %d: category set %d out of range", i, k)
			}
			if t.CatBoundaries[k] > t.CatBoundaries[k+1] || int(t.CatBoundaries[k+1]) > len(t.CatThresholds) {
				return fmt.Errorf("node %d: invalid category boundaries", i)
			}
		}
	}
	return nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1.0 / (1.0 + math.Exp(-x))
	}
	// For negative x, use exp(x) / (1 + exp(x)) for numerical stability
	e := math.Exp(x)
	return e / (1.0 + e)
}

func softmax(x []float64) {
	maxVal := x[0]
	for _, v := range x[1:] {
		if v > maxVal {
			maxVal = v
		}
	}

	sum := 0.0
	for i, v := range x {
		x[i] = math.Exp(v - maxVal)
		sum += x[i]
	}
	if sum > 0 {
		for i := range x {
			x[i] /= sum
		}
	}
}

package lightgbm

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// JSONModel represents the top-level structure of a LightGBM JSON dump (Booster.dump_model).
type JSONModel struct {
	Name                string         `json:"name"`
	Version             string         `json:"version"`
	NumClass            int            `json:"num_class"`
	NumTreePerIteration int            `json:"num_tree_per_iteration"`
	MaxFeatureIdx       int            `json:"max_feature_idx"`
	Objective           string         `json:"objective"`
	AverageOutput       bool           `json:"average_output"`
	FeatureNames        []string       `json:"feature_names"`
	TreeInfo            []JSONTreeInfo `json:"tree_info"`
}

// JSONTreeInfo represents information about a single tree
type JSONTreeInfo struct {
	TreeIndex     int          `json:"tree_index"`
	NumLeaves     int          `json:"num_leaves"`
	NumCat        int          `json:"num_cat"`
	Shrinkage     float64      `json:"shrinkage"`
	TreeStructure JSONTreeNode `json:"tree_structure"`
}

// JSONTreeNode is either a split (SplitIndex set) or a leaf.
type JSONTreeNode struct {
	SplitIndex   *int          `json:"split_index,omitempty"`
	SplitFeature int           `json:"split_feature"`
	Threshold    interface{}   `json:"threshold,omitempty"` // float64, or "a||b||c" for categorical
	DecisionType string        `json:"decision_type,omitempty"`
	DefaultLeft  bool          `json:"default_left"`
	MissingType  string        `json:"missing_type,omitempty"`
	LeftChild    *JSONTreeNode `json:"left_child,omitempty"`
	RightChild   *JSONTreeNode `json:"right_child,omitempty"`

	LeafIndex *int    `json:"leaf_index,omitempty"`
	LeafValue float64 `json:"leaf_value"`
}

// LoadFromJSONFile loads a LightGBM model from a JSON dump on disk.
func LoadFromJSONFile(filepath string) (*Model, error) {
	file, err := os.Open(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to open model file: %w", err)
	}
	defer file.Close()

	return LoadFromJSON(file)
}

// LoadFromJSON loads a LightGBM model from a JSON dump.
func LoadFromJSON(r io.Reader) (*Model, error) {
	var jm JSONModel
	if err := json.NewDecoder(r).Decode(&jm); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	if len(jm.TreeInfo) == 0 && jm.Version == "" {
		return nil, fmt.Errorf("not a LightGBM JSON dump: no version or trees found")
	}

	model := NewModel()
	model.Version = jm.Version
	if jm.NumClass > 0 {
		model.NumClass = jm.NumClass
	}
	if jm.NumTreePerIteration > 0 {
		model.NumTreePerIteration = jm.NumTreePerIteration
	}
	model.MaxFeatureIdx = jm.MaxFeatureIdx
	model.AverageOutput = jm.AverageOutput
	model.Features = append([]string(nil), jm.FeatureNames...)
	if jm.Objective != "" {
		model.Objective, model.ObjectiveParams = parseObjective(jm.Objective)
	}

	model.Trees = make([]Tree, 0, len(jm.TreeInfo))
	for i := range jm.TreeInfo {
		tree, err := convertJSONTree(&jm.TreeInfo[i])
		if err != nil {
			return nil, fmt.Errorf("failed to convert tree %d: %w", jm.TreeInfo[i].TreeIndex, err)
		}
		model.Trees = append(model.Trees, tree)
	}

	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model: %w", err)
	}
	return model, nil
}

// convertJSONTree flattens a nested tree_structure into the array layout of the text
// format. split_index and leaf_index are kept as node and leaf positions.
func convertJSONTree(info *JSONTreeInfo) (Tree, error) {
	t := Tree{Shrinkage: info.Shrinkage}

	root := &info.TreeStructure
	if root.SplitIndex == nil {
		// Single leaf tree
		t.LeafValues = []float64{root.LeafValue}
		return t, nil
	}

	numLeaves := info.NumLeaves
	if numLeaves < 2 {
		return t, fmt.Errorf("num_leaves=%d for a tree with splits", numLeaves)
	}
	t.Nodes = make([]Node, numLeaves-1)
	t.LeafValues = make([]float64, numLeaves)
	seenNode := make([]bool, len(t.Nodes))
	seenLeaf := make([]bool, numLeaves)

	var visit func(n *JSONTreeNode) (int32, error)
	visit = func(n *JSONTreeNode) (int32, error) {
		if n == nil {
			return 0, fmt.Errorf("missing child")
		}
		if n.SplitIndex == nil {
			idx := 0
			if n.LeafIndex != nil {
				idx = *n.LeafIndex
			}
			if idx < 0 || idx >= numLeaves || seenLeaf[idx] {
				return 0, fmt.Errorf("invalid leaf_index %d", idx)
			}
			seenLeaf[idx] = true
			t.LeafValues[idx] = n.LeafValue
			return ^int32(idx), nil
		}

		idx := *n.SplitIndex
		if idx < 0 || idx >= len(t.Nodes) || seenNode[idx] {
			return 0, fmt.Errorf("invalid split_index %d", idx)
		}
		seenNode[idx] = true

		node, err := t.jsonSplit(n)
		if err != nil {
			return 0, fmt.Errorf("split %d: %w", idx, err)
		}
		if node.Left, err = visit(n.LeftChild); err != nil {
			return 0, err
		}
		if node.Right, err = visit(n.RightChild); err != nil {
			return 0, err
		}
		t.Nodes[idx] = node
		return int32(idx), nil
	}

	if _, err := visit(root); err != nil {
		return t, err
	}
	for i, ok := range seenLeaf {
		if !ok {
			return t, fmt.Errorf("leaf %d not present in tree_structure", i)
		}
	}
	return t, nil
}

// jsonSplit converts the split fields of n. Categorical category lists become a new
// bitset appended to the tree's category sets.
func (t *Tree) jsonSplit(n *JSONTreeNode) (Node, error) {
	node := Node{Feature: n.SplitFeature}
	if n.DefaultLeft {
		node.Flags |= defaultLeft
	}
	switch strings.ToLower(n.MissingType) {
	case "zero":
		node.Flags |= missingZero
	case "nan":
		node.Flags |= missingNan
	}

	switch n.DecisionType {
	case "", "<=":
		v, err := thresholdFloat(n.Threshold)
		if err != nil {
			return node, err
		}
		node.Threshold = v
	case "==":
		cats, err := thresholdCategories(n.Threshold)
		if err != nil {
			return node, err
		}
		node.Flags |= categorical
		node.Threshold = float64(t.appendCategorySet(cats))
	default:
		return node, fmt.Errorf("unsupported decision_type %q", n.DecisionType)
	}
	return node, nil
}

// appendCategorySet stores cats as a bitset and returns its category set index.
func (t *Tree) appendCategorySet(cats []int) int {
	if len(t.CatBoundaries) == 0 {
		t.CatBoundaries = []int32{0}
	}
	maxCat := 0
	for _, c := range cats {
		maxCat = max(maxCat, c)
	}
	bits := make([]uint32, maxCat/32+1)
	for _, c := range cats {
		bits[c/32] |= 1 << (uint(c) % 32)
	}
	t.CatThresholds = append(t.CatThresholds, bits...)
	t.CatBoundaries = append(t.CatBoundaries, int32(len(t.CatThresholds)))
	return len(t.CatBoundaries) - 2
}

func thresholdFloat(v interface{}) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case string:
		return strconv.ParseFloat(x, 64)
	case nil:
		return 0, fmt.Errorf("missing threshold")
	default:
		return 0, fmt.Errorf("unexpected threshold type %T", v)
	}
}

func thresholdCategories(v interface{}) ([]int, error) {
	var parts []string
	switch x := v.(type) {
	case string:
		parts = strings.Split(x, "||")
	case float64:
		parts = []string{strconv.FormatFloat(x, 'f', -1, 64)}
	default:
		return nil, fmt.Errorf("unexpected categorical threshold type %T", v)
	}

	cats := make([]int, 0, len(parts))
	for _, p := range parts {
		c, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid category %q: %w", p, err)
		}
		if c < 0 {
			return nil, fmt.Errorf("negative category %d", c)
		}
		cats = append(cats, c)
	}
	return cats, nil
}

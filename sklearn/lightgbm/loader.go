package lightgbm

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// LoadFromFile loads a LightGBM model from a text file
// This supports the standard LightGBM model format saved by save_model()
func LoadFromFile(filepath string) (*Model, error) {
	file, err := os.Open(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to open model file: %w", err)
	}
	defer file.Close()

	return LoadFromReader(file)
}

// LoadFromString loads a LightGBM model from a string
// This supports the format from model_to_string()
func LoadFromString(modelStr string) (*Model, error) {
	return LoadFromReader(strings.NewReader(modelStr))
}

// LoadFromReader loads a LightGBM text model from an io.Reader.
// Everything after "end of trees" (importances, parameters) is ignored.
func LoadFromReader(reader io.Reader) (*Model, error) {
	br := bufio.NewReader(reader)

	header, err := readSection(br)
	if err != nil {
		return nil, err
	}
	if !header.seenTree && header.params["version"] == "" {
		return nil, fmt.Errorf("not a LightGBM text model: no header or trees found")
	}

	model := NewModel()
	if err := model.applyHeader(header.params); err != nil {
		return nil, err
	}

	for sec := header; sec.seenTree; {
		sec, err = readSection(br)
		if err != nil {
			return nil, err
		}
		tree, err := parseTree(sec.params)
		if err != nil {
			return nil, fmt.Errorf("error reading tree %d: %w", len(model.Trees), err)
		}
		model.Trees = append(model.Trees, tree)
	}

	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model: %w", err)
	}
	return model, nil
}

type section struct {
	params   treeParams
	seenTree bool // section ended at a "Tree=N" line, another tree follows
}

// readSection reads key=value lines until the next "Tree=N" line, "end of trees" or EOF.
// Long array lines are handled by bufio.Reader rather than a size-limited Scanner.
func readSection(reader *bufio.Reader) (section, error) {
	sec := section{params: make(treeParams)}
	for {
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return sec, err
		}

		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Tree="):
			sec.seenTree = true
			return sec, nil
		case line == "end of trees":
			return sec, nil
		case strings.Contains(line, "="):
			parts := strings.SplitN(line, "=", 2)
			sec.params[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		case line == "tree":
			// format marker on the first line
		case line != "":
			// bare flag such as average_output
			sec.params[line] = ""
		}

		if err == io.EOF {
			return sec, nil
		}
	}
}

func (m *Model) applyHeader(params treeParams) error {
	m.Version = params["version"]

	if v, ok := params["num_class"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid num_class: %w", err)
		}
		m.NumClass = n
	}
	if v, ok := params["num_tree_per_iteration"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid num_tree_per_iteration: %w", err)
		}
		m.NumTreePerIteration = n
	}

	maxFeature, err := params.toInt("max_feature_idx")
	if err != nil {
		return fmt.Errorf("invalid max_feature_idx: %w", err)
	}
	m.MaxFeatureIdx = maxFeature

	if v, ok := params["objective"]; ok {
		m.Objective, m.ObjectiveParams = parseObjective(v)
	}
	if v, ok := params["feature_names"]; ok {
		m.Features = strings.Fields(v)
	}
	if _, ok := params["average_output"]; ok {
		m.AverageOutput = true
	}
	return nil
}

// parseTree builds a Tree from one "Tree=N" section.
func parseTree(params treeParams) (Tree, error) {
	t := Tree{}

	numLeaves, err := params.toInt("num_leaves")
	if err != nil {
		return t, err
	}
	if numLeaves < 1 {
		return t, fmt.Errorf("num_leaves < 1")
	}
	if v, ok := params["is_linear"]; ok && v != "0" {
		return t, fmt.Errorf("linear trees are not supported")
	}
	// Leaf values already have shrinkage applied; it is kept for reference only.
	if v, ok := params["shrinkage"]; ok {
		if t.Shrinkage, err = strconv.ParseFloat(v, 64); err != nil {
			return t, fmt.Errorf("invalid shrinkage: %w", err)
		}
	}

	if t.LeafValues, err = params.toFloat64Slice("leaf_value"); err != nil {
		return t, err
	}
	if len(t.LeafValues) != numLeaves {
		return t, fmt.Errorf("leaf_value has %d entries, expected %d", len(t.LeafValues), numLeaves)
	}

	// Special case - constant value tree (single leaf)
	if numLeaves == 1 {
		return t, nil
	}

	numNodes := numLeaves - 1
	splitFeatures, err := params.toInt32Slice("split_feature")
	if err != nil {
		return t, err
	}
	thresholds, err := params.toFloat64Slice("threshold")
	if err != nil {
		return t, err
	}
	decisionTypes, err := params.toUint32Slice("decision_type")
	if err != nil {
		return t, err
	}
	leftChilds, err := params.toInt32Slice("left_child")
	if err != nil {
		return t, err
	}
	rightChilds, err := params.toInt32Slice("right_child")
	if err != nil {
		return t, err
	}
	for name, n := range map[string]int{
		"split_feature": len(splitFeatures),
		"threshold":     len(thresholds),
		"decision_type": len(decisionTypes),
		"left_child":    len(leftChilds),
		"right_child":   len(rightChilds),
	} {
		if n != numNodes {
			return t, fmt.Errorf("%s has %d entries, expected %d", name, n, numNodes)
		}
	}

	if numCat, _ := params.toInt("num_cat"); numCat > 0 {
		if t.CatBoundaries, err = params.toInt32Slice("cat_boundaries"); err != nil {
			return t, err
		}
		if t.CatThresholds, err = params.toUint32Slice("cat_threshold"); err != nil {
			return t, err
		}
	}

	t.Nodes = make([]Node, numNodes)
	for i := 0; i < numNodes; i++ {
		t.Nodes[i] = Node{
			Feature:   int(splitFeatures[i]),
			Threshold: thresholds[i],
			Flags:     flagsFromDecisionType(decisionTypes[i]),
			Left:      leftChilds[i],
			Right:     rightChilds[i],
		}
	}
	return t, nil
}

// flagsFromDecisionType converts LightGBM's packed decision_type:
// bit 0 categorical, bit 1 default_left, bits 2-3 missing type (0 none, 1 zero, 2 NaN).
func flagsFromDecisionType(dt uint32) uint8 {
	var flags uint8
	if dt&1 != 0 {
		flags |= categorical
	}
	if dt&(1<<1) != 0 {
		flags |= defaultLeft
	}
	switch (dt >> 2) & 3 {
	case 1:
		flags |= missingZero
	case 2:
		flags |= missingNan
	}
	return flags
}

// decisionTypeFromFlags is the inverse of flagsFromDecisionType.
func decisionTypeFromFlags(flags uint8) uint32 {
	var dt uint32
	if flags&categorical != 0 {
		dt |= 1
	}
	if flags&defaultLeft != 0 {
		dt |= 1 << 1
	}
	switch {
	case flags&missingZero != 0:
		dt |= 1 << 2
	case flags&missingNan != 0:
		dt |= 2 << 2
	}
	return dt
}

// Helper types and functions
type treeParams map[string]string

func (p treeParams) toInt(key string) (int, error) {
	v, ok := p[key]
	if !ok {
		return 0, fmt.Errorf("key %s not found", key)
	}
	return strconv.Atoi(v)
}

func (p treeParams) toFloat64Slice(key string) ([]float64, error) {
	v, ok := p[key]
	if !ok {
		return nil, fmt.Errorf("key %s not found", key)
	}

	parts := strings.Fields(v)
	result := make([]float64, 0, len(parts))
	for _, part := range parts {
		val, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", key, err)
		}
		result = append(result, val)
	}
	return result, nil
}

func (p treeParams) toInt32Slice(key string) ([]int32, error) {
	v, ok := p[key]
	if !ok {
		return nil, fmt.Errorf("key %s not found", key)
	}

	parts := strings.Fields(v)
	result := make([]int32, 0, len(parts))
	for _, part := range parts {
		val, err := strconv.ParseInt(part, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", key, err)
		}
		result = append(result, int32(val))
	}
	return result, nil
}

func (p treeParams) toUint32Slice(key string) ([]uint32, error) {
	v, ok := p[key]
	if !ok {
		return nil, fmt.Errorf("key %s not found", key)
	}

	parts := strings.Fields(v)
	result := make([]uint32, 0, len(parts))
	for _, part := range parts {
		val, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", key, err)
		}
		result = append(result, uint32(val))
	}
	return result, nil
}

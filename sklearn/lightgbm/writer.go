package lightgbm

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// SaveToFile saves the model to a file in LightGBM text format
func (m *Model) SaveToFile(filepath string) error {
	file, err := os.Create(filepath)
	if err != nil {
		return fmt.Errorf("failed to create model file: %w", err)
	}
	if err := m.WriteText(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// WriteText writes the model in the text format read by LoadFromReader and by
// LightGBM's own model_from_string.
func (m *Model) WriteText(w io.Writer) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, "tree")
	fmt.Fprintf(bw, "version=%s\n", orDefault(m.Version, "v4"))
	fmt.Fprintf(bw, "num_class=%d\n", m.NumClass)
	fmt.Fprintf(bw, "num_tree_per_iteration=%d\n", m.NumTreePerIteration)
	fmt.Fprintln(bw, "label_index=0")
	fmt.Fprintf(bw, "max_feature_idx=%d\n", m.MaxFeatureIdx)
	fmt.Fprintf(bw, "objective=%s\n", m.objectiveString())
	if m.AverageOutput {
		fmt.Fprintln(bw, "average_output")
	}
	if len(m.Features) > 0 {
		fmt.Fprintf(bw, "feature_names=%s\n", strings.Join(m.Features, " "))
	}
	fmt.Fprintln(bw)

	for i := range m.Trees {
		t := &m.Trees[i]
		fmt.Fprintf(bw, "Tree=%d\n", i)
		fmt.Fprintf(bw, "num_leaves=%d\n", len(t.LeafValues))
		fmt.Fprintf(bw, "num_cat=%d\n", max(len(t.CatBoundaries)-1, 0))

		if len(t.Nodes) > 0 {
			n := len(t.Nodes)
			features := make([]string, n)
			thresholds := make([]string, n)
			decisions := make([]string, n)
			lefts := make([]string, n)
			rights := make([]string, n)
			for j, node := range t.Nodes {
				features[j] = strconv.Itoa(node.Feature)
				thresholds[j] = formatFloat(node.Threshold)
				decisions[j] = strconv.FormatUint(uint64(decisionTypeFromFlags(node.Flags)), 10)
				lefts[j] = strconv.Itoa(int(node.Left))
				rights[j] = strconv.Itoa(int(node.Right))
			}
			fmt.Fprintf(bw, "split_feature=%s\n", strings.Join(features, " "))
			fmt.Fprintf(bw, "threshold=%s\n", strings.Join(thresholds, " "))
			fmt.Fprintf(bw, "decision_type=%s\n", strings.Join(decisions, " "))
			fmt.Fprintf(bw, "left_child=%s\n", strings.Join(lefts, " "))
			fmt.Fprintf(bw, "right_child=%s\n", strings.Join(rights, " "))
		}

		leaves := make([]string, len(t.LeafValues))
		for j, v := range t.LeafValues {
			leaves[j] = formatFloat(v)
		}
		fmt.Fprintf(bw, "leaf_value=%s\n", strings.Join(leaves, " "))

		if len(t.CatBoundaries) > 0 {
			bounds := make([]string, len(t.CatBoundaries))
			for j, b := range t.CatBoundaries {
				bounds[j] = strconv.Itoa(int(b))
			}
			bits := make([]string, len(t.CatThresholds))
			for j, b := range t.CatThresholds {
				bits[j] = strconv.FormatUint(uint64(b), 10)
			}
			fmt.Fprintf(bw, "cat_boundaries=%s\n", strings.Join(bounds, " "))
			fmt.Fprintf(bw, "cat_threshold=%s\n", strings.Join(bits, " "))
		}
		fmt.Fprintln(bw, "is_linear=0")
		fmt.Fprintf(bw, "shrinkage=%s\n", formatFloat(t.Shrinkage))
		fmt.Fprintln(bw)
		fmt.Fprintln(bw)
	}
	fmt.Fprintln(bw, "end of trees")

	return bw.Flush()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 17, 64)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

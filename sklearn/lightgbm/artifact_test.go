package lightgbm

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/demandcast/pkg/errors"
)

func TestLoadFromJSONFile_MatchesText(t *testing.T) {
	fromText, err := LoadFromFile("testdata/regression_model.txt")
	require.NoError(t, err)
	fromJSON, err := LoadFromJSONFile("testdata/regression_model.json")
	require.NoError(t, err)

	assert.Equal(t, fromText.FeatureNames(), fromJSON.FeatureNames())
	if diff := cmp.Diff(fromText.Trees, fromJSON.Trees, cmpopts.EquateApprox(0, 1e-15), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("trees differ (-text +json):\n%s", diff)
	}

	pred, err := fromJSON.Predict(regressionInput())
	require.NoError(t, err)
	assertRegressionPredictions(t, pred)
}

func TestLoadFromJSON_Categorical(t *testing.T) {
	doc := `{
  "version": "v4", "num_class": 1, "num_tree_per_iteration": 1, "max_feature_idx": 1,
  "objective": "regression", "feature_names": ["store", "price"],
  "tree_info": [{
    "tree_index": 0, "num_leaves": 3, "num_cat": 1, "shrinkage": 1,
    "tree_structure": {
      "split_index": 0, "split_feature": 0, "threshold": "1||3", "decision_type": "==",
      "default_left": false, "missing_type": "NaN",
      "left_child": {"leaf_index": 0, "leaf_value": 1},
      "right_child": {
        "split_index": 1, "split_feature": 1, "threshold": 5, "decision_type": "<=",
        "default_left": true, "missing_type": "None",
        "left_child": {"leaf_index": 1, "leaf_value": 2},
        "right_child": {"leaf_index": 2, "leaf_value": 3}
      }
    }
  }]
}`
	fromJSON, err := LoadFromJSON(bytes.NewReader([]byte(doc)))
	require.NoError(t, err)
	fromText, err := LoadFromFile("testdata/categorical_model.txt")
	require.NoError(t, err)

	if diff := cmp.Diff(fromText.Trees, fromJSON.Trees); diff != "" {
		t.Errorf("trees differ (-text +json):\n%s", diff)
	}
}

func TestLoadFromJSON_SingleLeafTree(t *testing.T) {
	doc := `{"version": "v4", "max_feature_idx": 0, "objective": "regression",
  "tree_info": [{"tree_index": 0, "num_leaves": 1, "shrinkage": 1, "tree_structure": {"leaf_value": 0.25}}]}`

	model, err := LoadFromJSON(bytes.NewReader([]byte(doc)))
	require.NoError(t, err)
	require.Len(t, model.Trees, 1)
	assert.Equal(t, []float64{0.25}, model.Trees[0].LeafValues)
	assert.Empty(t, model.Trees[0].Nodes)
}

func TestLoadFromJSON_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{"not json", `{"version":`, "failed to parse JSON"},
		{"no trees or version", `{}`, "not a LightGBM JSON dump"},
		{
			"duplicate leaf index",
			`{"version":"v4","max_feature_idx":0,"tree_info":[{"num_leaves":2,"tree_structure":{"split_index":0,"split_feature":0,"threshold":1,"decision_type":"<=",
			"left_child":{"leaf_index":0,"leaf_value":1},"right_child":{"leaf_index":0,"leaf_value":2}}}]}`,
			"invalid leaf_index 0",
		},
		{
			"unsupported decision type",
			`{"version":"v4","max_feature_idx":0,"tree_info":[{"num_leaves":2,"tree_structure":{"split_index":0,"split_feature":0,"threshold":1,"decision_type":"<",
			"left_child":{"leaf_index":0,"leaf_value":1},"right_child":{"leaf_index":1,"leaf_value":2}}}]}`,
			"unsupported decision_type",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromJSON(bytes.NewReader([]byte(tt.doc)))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		data string
		want string
	}{
		{"tree\nversion=v4\n", FormatText},
		{"\r\ntree\r\nversion=v4\r\n", FormatText},
		{"version=v4\n", FormatText},
		{"  {\"version\": \"v4\"}", FormatJSON},
		{"\x0e\xff\x81\x03", FormatGob},
		{"", FormatGob},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectFormat([]byte(tt.data)), "%q", tt.data)
	}
}

func TestLoadArtifact_AllFormatsPredictTheSame(t *testing.T) {
	gobPath := filepath.Join(t.TempDir(), "model.gob")
	text, err := LoadFromFile("testdata/regression_model.txt")
	require.NoError(t, err)
	require.NoError(t, text.SaveGob(gobPath))

	for _, path := range []string{
		"testdata/regression_model.txt",
		"testdata/regression_model.json",
		gobPath,
	} {
		t.Run(filepath.Base(path), func(t *testing.T) {
			model, err := LoadArtifact(path)
			require.NoError(t, err)
			assert.Equal(t, []string{"price", "promo"}, model.FeatureNames())

			pred, err := model.Predict(regressionInput())
			require.NoError(t, err)
			assertRegressionPredictions(t, pred)
		})
	}
}

func TestLoadArtifact_GobKeepsZeroFeatureIndex(t *testing.T) {
	m := stumpModel(RegressionL2, 1, [2]float64{1, 2})
	path := filepath.Join(t.TempDir(), "stump.gob")
	require.NoError(t, m.SaveGob(path))

	loaded, err := LoadArtifact(path)
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.MaxFeatureIdx)
	assert.Equal(t, 1, loaded.NumFeatures())
}

func TestLoadArtifact_Errors(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.bin")
	require.NoError(t, os.WriteFile(garbage, []byte("this is not a model"), 0o600))
	broken := filepath.Join(dir, "broken.txt")
	require.NoError(t, os.WriteFile(broken, []byte("tree\nversion=v4\nmax_feature_idx=x\n"), 0o600))

	tests := []struct {
		name       string
		path       string
		wantFormat string
		wantIs     error
	}{
		{"missing file", filepath.Join(dir, "nope.txt"), "", os.ErrNotExist},
		{"unknown format", garbage, FormatGob, errors.ErrUnknownFormat},
		{"corrupt text model", broken, FormatText, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadArtifact(tt.path)
			require.Error(t, err)

			var loadErr *errors.ArtifactLoadError
			require.True(t, errors.As(err, &loadErr))
			assert.Equal(t, tt.path, loadErr.Path)
			assert.Equal(t, tt.wantFormat, loadErr.Format)
			if tt.wantIs != nil {
				assert.True(t, errors.Is(err, tt.wantIs))
			}
		})
	}
}

func TestWriteText_RoundTrip(t *testing.T) {
	for _, path := range []string{"testdata/regression_model.txt", "testdata/categorical_model.txt"} {
		t.Run(filepath.Base(path), func(t *testing.T) {
			original, err := LoadFromFile(path)
			require.NoError(t, err)

			out := filepath.Join(t.TempDir(), "saved.txt")
			require.NoError(t, original.SaveToFile(out))

			reloaded, err := LoadFromFile(out)
			require.NoError(t, err)
			if diff := cmp.Diff(original, reloaded, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("model changed after round trip (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWriteText_KeepsObjectiveParams(t *testing.T) {
	m := stumpModel(BinaryLogistic, 1, [2]float64{-1, 1})
	m.ObjectiveParams["sigmoid"] = 2

	var buf bytes.Buffer
	require.NoError(t, m.WriteText(&buf))
	assert.Contains(t, buf.String(), "objective=binary sigmoid:2\n")

	reloaded, err := LoadFromReader(&buf)
	require.NoError(t, err)
	assert.Equal(t, 2.0, reloaded.ObjectiveParams["sigmoid"])
}

func TestWriteText_KeepsAverageOutput(t *testing.T) {
	m := stumpModel(RegressionL2, 1, [2]float64{1, 1}, [2]float64{3, 3})
	m.AverageOutput = true

	var buf bytes.Buffer
	require.NoError(t, m.WriteText(&buf))

	reloaded, err := LoadFromReader(&buf)
	require.NoError(t, err)
	assert.True(t, reloaded.AverageOutput)
}

package main

import (
	"bytes"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/demandcast/core/frame"
	"github.com/YuminosukeSato/demandcast/pkg/errors"
)

const modelPath = "../../sklearn/lightgbm/testdata/regression_model.txt"

const salesCSV = `store,price,promo,sales
1,10,1,1.1
2,10,0,0.2
3,20,0,
`

func runCLI(args []string, stdin string) (stdout, stderr *bytes.Buffer, err error) {
	stdout, stderr = &bytes.Buffer{}, &bytes.Buffer{}
	err = run(args, strings.NewReader(stdin), stdout, stderr)
	return stdout, stderr, err
}

func readOutput(t *testing.T, r io.Reader) *frame.Dataset {
	t.Helper()
	out, err := frame.ReadCSV(r)
	require.NoError(t, err)
	return out
}

func assertPredictions(t *testing.T, out *frame.Dataset) {
	t.Helper()
	assert.Equal(t, []string{PredictionColumn}, out.Columns())
	preds, ok := out.Column(PredictionColumn)
	require.True(t, ok)
	require.Len(t, preds, 3)
	assert.InDelta(t, 1.0, preds[0], 1e-12)
	assert.InDelta(t, math.Expm1(0.25), preds[1], 1e-12)
	assert.InDelta(t, math.Expm1(0.15), preds[2], 1e-12)
}

func TestRun_PredictFromStdin(t *testing.T) {
	stdout, stderr, err := runCLI([]string{"--model", modelPath, "--features", "price,promo"}, salesCSV)
	require.NoError(t, err)
	assertPredictions(t, readOutput(t, stdout))
	assert.Contains(t, stderr.String(), "Prediction completed")
}

func TestRun_FeaturesFromModel(t *testing.T) {
	stdout, _, err := runCLI([]string{"--model", modelPath, "--log-level", "error"}, salesCSV)
	require.NoError(t, err)
	assertPredictions(t, readOutput(t, stdout))
}

func TestRun_FilesAndEvaluation(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "sales.csv")
	output := filepath.Join(dir, "preds.csv")
	chart := filepath.Join(dir, "fit.png")
	require.NoError(t, os.WriteFile(input, []byte(salesCSV), 0o600))

	stdout, stderr, err := runCLI([]string{
		"-m", modelPath, "-i", input, "-o", output,
		"--target", "sales", "--plot", chart,
	}, "")
	require.NoError(t, err)
	assert.Zero(t, stdout.Len(), "predictions go to the output file")
	assert.Contains(t, stderr.String(), "Evaluation completed")

	out, err := frame.ReadCSVFile(output)
	require.NoError(t, err)
	assertPredictions(t, out)

	info, err := os.Stat(chart)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestRun_TextColumnsOutsideFeatures(t *testing.T) {
	input := "\ufeffProduct_ID,Date,Category,price,promo\n" +
		"P1,2024-01-01,Lipstick,10,1\n" +
		"P2,2024-01-02,Serum,10,0\n" +
		"P3,2024-01-03,Serum,20,0\n"

	stdout, _, err := runCLI([]string{"--model", modelPath, "--features", "price,promo", "--log-level", "error"}, input)
	require.NoError(t, err)
	assertPredictions(t, readOutput(t, stdout))
}

func TestRun_MissingColumns(t *testing.T) {
	_, _, err := runCLI([]string{"--model", modelPath, "--log-level", "error"}, "price\n10\n")
	require.Error(t, err)

	var schemaErr *errors.SchemaValidationError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, []string{"promo"}, schemaErr.Missing)
}

func TestRun_Errors(t *testing.T) {
	_, _, err := runCLI(nil, salesCSV)
	var valErr *errors.ValidationError
	assert.True(t, errors.As(err, &valErr), "model flag is required")

	_, _, err = runCLI([]string{"--model", filepath.Join(t.TempDir(), "nope.txt"), "--log-level", "error"}, salesCSV)
	var loadErr *errors.ArtifactLoadError
	assert.True(t, errors.As(err, &loadErr))

	_, _, err = runCLI([]string{"--model", modelPath, "--log-level", "error"}, "")
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
}

func TestRunMain_ReportsFailureOnce(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := runMain([]string{"--model", filepath.Join(t.TempDir(), "nope.txt"), "--log-level", "error"},
		strings.NewReader(salesCSV), &stdout, &stderr)
	assert.Equal(t, 1, code)

	lines := strings.Split(strings.TrimSpace(stderr.String()), "\n")
	reports := 0
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, "{"), "every stderr line is JSON: %s", line)
		if strings.Contains(line, "demandcast failed") {
			reports++
			assert.Contains(t, line, "nope.txt")
		}
	}
	assert.Equal(t, 1, reports)

	stderr.Reset()
	assert.Equal(t, 0, runMain([]string{"--model", modelPath, "--log-level", "error"},
		strings.NewReader(salesCSV), &stdout, &stderr))
	assert.Empty(t, stderr.String())
}

func TestRun_Help(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.NoError(t, run([]string{"--help"}, strings.NewReader(""), &stdout, &stderr))
}

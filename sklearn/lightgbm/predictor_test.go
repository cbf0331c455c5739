package lightgbm

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/demandcast/pkg/errors"
)

// stumpModel returns a model with one split on feature 0 per tree and the given
// leaf pairs, laid out as numTreePerIteration trees per iteration.
func stumpModel(objective ObjectiveType, numTreePerIteration int, leaves ...[2]float64) *Model {
	m := NewModel()
	m.Objective = objective
	m.NumTreePerIteration = numTreePerIteration
	m.NumClass = max(numTreePerIteration, 1)
	m.MaxFeatureIdx = 0
	for _, l := range leaves {
		m.Trees = append(m.Trees, Tree{
			Nodes:      []Node{{Feature: 0, Threshold: 0, Flags: defaultLeft, Left: -1, Right: -2}},
			LeafValues: []float64{l[0], l[1]},
			Shrinkage:  1,
		})
	}
	return m
}

func TestPredictor_ParallelMatchesSequential(t *testing.T) {
	model, err := LoadFromFile("testdata/regression_model.txt")
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	const rows = 5000
	X := mat.NewDense(rows, 2, nil)
	for i := 0; i < rows; i++ {
		X.Set(i, 0, rng.Float64()*40)
		if rng.Intn(10) == 0 {
			X.Set(i, 1, math.NaN())
		} else {
			X.Set(i, 1, float64(rng.Intn(2)))
		}
	}

	sequential := NewPredictor(model)
	sequential.SetNumThreads(1)
	want, err := sequential.Predict(X)
	require.NoError(t, err)

	parallel := NewPredictor(model)
	parallel.SetNumThreads(8)
	got, err := parallel.Predict(X)
	require.NoError(t, err)

	assert.True(t, mat.Equal(want, got))
}

func TestPredictor_DimensionMismatch(t *testing.T) {
	model, err := LoadFromFile("testdata/regression_model.txt")
	require.NoError(t, err)

	_, err = model.Predict(mat.NewDense(2, 3, nil))
	require.Error(t, err)

	var dimErr *errors.DimensionError
	require.True(t, errors.As(err, &dimErr))
	assert.Equal(t, 2, dimErr.Expected)
	assert.Equal(t, 3, dimErr.Got)
	assert.Equal(t, 1, dimErr.Axis)
}

func TestPredictor_SetNumIteration(t *testing.T) {
	model, err := LoadFromFile("testdata/regression_model.txt")
	require.NoError(t, err)

	p := NewPredictor(model)
	p.SetNumIteration(1)
	pred, err := p.Predict(mat.NewDense(1, 2, []float64{10, 1}))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, pred.At(0, 0), 1e-12)

	// Out of range limits fall back to every tree.
	p.SetNumIteration(100)
	pred, err = p.Predict(mat.NewDense(1, 2, []float64{10, 1}))
	require.NoError(t, err)
	assert.InDelta(t, math.Ln2, pred.At(0, 0), 1e-12)
}

func TestPredictor_Objectives(t *testing.T) {
	x := mat.NewDense(2, 1, []float64{-1, 1})

	t.Run("binary applies sigmoid", func(t *testing.T) {
		m := stumpModel(BinaryLogistic, 1, [2]float64{-2, 2})
		m.ObjectiveParams["sigmoid"] = 1

		pred, err := m.Predict(x)
		require.NoError(t, err)
		assert.InDelta(t, 1/(1+math.Exp(2)), pred.At(0, 0), 1e-12)
		assert.InDelta(t, 1/(1+math.Exp(-2)), pred.At(1, 0), 1e-12)

		raw, err := NewPredictor(m).PredictRaw(x)
		require.NoError(t, err)
		assert.Equal(t, -2.0, raw.At(0, 0))
	})

	t.Run("multiclass applies softmax per row", func(t *testing.T) {
		m := stumpModel(MulticlassSoftmax, 3, [2]float64{1, 0}, [2]float64{2, 0}, [2]float64{3, 0})

		pred, err := m.Predict(x)
		require.NoError(t, err)
		rows, cols := pred.Dims()
		require.Equal(t, 2, rows)
		require.Equal(t, 3, cols)

		denom := math.Exp(1) + math.Exp(2) + math.Exp(3)
		assert.InDelta(t, math.Exp(1)/denom, pred.At(0, 0), 1e-12)
		assert.InDelta(t, math.Exp(3)/denom, pred.At(0, 2), 1e-12)
		for j := 0; j < 3; j++ {
			assert.InDelta(t, 1.0/3, pred.At(1, j), 1e-12)
		}
	})

	t.Run("poisson applies exp", func(t *testing.T) {
		m := stumpModel(RegressionPoisson, 1, [2]float64{0, math.Log(4)})

		pred, err := m.Predict(x)
		require.NoError(t, err)
		assert.InDelta(t, 1, pred.At(0, 0), 1e-12)
		assert.InDelta(t, 4, pred.At(1, 0), 1e-12)
	})

	t.Run("average output divides by iterations", func(t *testing.T) {
		m := stumpModel(RegressionL2, 1, [2]float64{1, 1}, [2]float64{3, 3})
		m.AverageOutput = true

		pred, err := m.Predict(x)
		require.NoError(t, err)
		assert.Equal(t, 2.0, pred.At(0, 0))
	})
}

func TestPredictor_EmptyInput(t *testing.T) {
	model := stumpModel(RegressionL2, 1, [2]float64{1, 2})

	_, err := model.Predict(&mat.Dense{})
	require.Error(t, err)
}

func TestPredictor_RecoversPanic(t *testing.T) {
	// Bypasses Validate: the split refers to a column the input does not have.
	m := stumpModel(RegressionL2, 1, [2]float64{1, 2})
	m.Trees[0].Nodes[0].Feature = 5

	_, err := m.Predict(mat.NewDense(1, 1, []float64{0}))
	require.Error(t, err)

	var panicErr *errors.PanicError
	require.True(t, errors.As(err, &panicErr))
	assert.Equal(t, "lightgbm.Predict", panicErr.Operation)
}

func TestPredictor_DoesNotMutateInput(t *testing.T) {
	model, err := LoadFromFile("testdata/regression_model.txt")
	require.NoError(t, err)

	X := regressionInput()
	before := mat.DenseCopyOf(X)
	_, err = model.Predict(X)
	require.NoError(t, err)

	// NaN != NaN, so compare with NaN-aware equality.
	rows, cols := X.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			a, b := before.At(i, j), X.At(i, j)
			assert.True(t, a == b || (math.IsNaN(a) && math.IsNaN(b)))
		}
	}
}

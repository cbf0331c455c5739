package errors

import (
	"fmt"
	"io/fs"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSchemaValidationError(t *testing.T) {
	tests := []struct {
		name        string
		missing     []string
		wantMissing []string
		wantMsg     string
	}{
		{
			name:        "single column",
			missing:     []string{"promo"},
			wantMissing: []string{"promo"},
			wantMsg:     "demandcast: Predict: missing columns in input data: [promo]",
		},
		{
			name:        "sorted and deduplicated",
			missing:     []string{"store", "price", "store"},
			wantMissing: []string{"price", "store"},
			wantMsg:     "demandcast: Predict: missing columns in input data: [price, store]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewSchemaValidationError("Predict", tt.missing)

			assert.Equal(t, tt.wantMsg, err.Error())

			var schemaErr *SchemaValidationError
			require.True(t, As(err, &schemaErr))
			assert.Equal(t, tt.wantMissing, schemaErr.Missing)

			// スタックトレースの存在確認
			formatted := fmt.Sprintf("%+v", err)
			assert.Contains(t, formatted, "errors_test.go")
		})
	}
}

func TestNewArtifactLoadError(t *testing.T) {
	cause := fs.ErrNotExist

	t.Run("with format", func(t *testing.T) {
		err := NewArtifactLoadError("model.txt", "text", cause)
		assert.Equal(t, `demandcast: failed to load text artifact "model.txt": file does not exist`, err.Error())
	})

	t.Run("without format", func(t *testing.T) {
		err := NewArtifactLoadError("model.bin", "", cause)
		assert.Equal(t, `demandcast: failed to load artifact "model.bin": file does not exist`, err.Error())

		var loadErr *ArtifactLoadError
		require.True(t, As(err, &loadErr))
		assert.Equal(t, "model.bin", loadErr.Path)
		assert.True(t, Is(err, fs.ErrNotExist), "cause should remain reachable")
	})
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("Predict", 3, 2, 1)

	want := "demandcast: Predict: dimension mismatch on axis 1 (features). Expected 3, got 2"
	assert.Equal(t, want, err.Error())

	var dimErr *DimensionError
	assert.True(t, As(err, &dimErr))
}

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{
			name:    "with original error",
			err:     fmt.Errorf("test error"),
			wantMsg: "demandcast: Predict: inference failed: test error",
		},
		{
			name:    "without original error",
			err:     nil,
			wantMsg: "demandcast: Predict: inference failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError("Predict", "inference failed", tt.err)
			assert.Equal(t, tt.wantMsg, err.Error())

			var modelErr *ModelError
			assert.True(t, As(err, &modelErr))
		})
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("threads", "must be positive", -1)
	assert.Equal(t, "demandcast: validation failed for parameter 'threads': must be positive (got: -1)", err.Error())
}

func TestCheckMatrix(t *testing.T) {
	data := [][]float64{
		{1, 2},
		{3, math.NaN()},
	}
	m := matrixFunc(func(i, j int) float64 { return data[i][j] })

	err := CheckMatrix("Predict", m, 2, 2, []string{"price", "promo"})
	require.Error(t, err)

	var numErr *NumericalInstabilityError
	require.True(t, As(err, &numErr))
	assert.Equal(t, 1, numErr.Row)
	assert.Equal(t, "promo", numErr.Column)
	assert.True(t, strings.Contains(err.Error(), "column 'promo'"))

	assert.NoError(t, CheckMatrix("Predict", m, 1, 2, nil))
}

func TestCheckFinite(t *testing.T) {
	assert.NoError(t, CheckFinite("InverseTransform", []float64{0, 1.5, -2}))

	err := CheckFinite("InverseTransform", []float64{0, math.Inf(1)})
	var numErr *NumericalInstabilityError
	require.True(t, As(err, &numErr))
	assert.Equal(t, 1, numErr.Row)
}

type matrixFunc func(i, j int) float64

func (f matrixFunc) At(i, j int) float64 { return f(i, j) }

package lightgbm

import (
	"runtime"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/demandcast/core/parallel"
	"github.com/YuminosukeSato/demandcast/pkg/errors"
)

// parallelThreshold is the batch size below which rows are scored on the calling goroutine.
const parallelThreshold = 64

// Predictor scores batches against a loaded Model. It never mutates the model, so
// several Predictors may share one Model.
type Predictor struct {
	model        *Model
	numThreads   int
	numIteration int // 0 means all iterations
}

// NewPredictor creates a new predictor with the given model
func NewPredictor(model *Model) *Predictor {
	return &Predictor{
		model:      model,
		numThreads: runtime.NumCPU(),
	}
}

// SetNumThreads sets the number of threads for parallel prediction
func (p *Predictor) SetNumThreads(n int) {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	p.numThreads = n
}

// SetNumIteration limits scoring to the first n boosting rounds. n <= 0 uses all of them.
func (p *Predictor) SetNumIteration(n int) {
	if n < 0 {
		n = 0
	}
	p.numIteration = n
}

// Predict scores every row of X and applies the objective's output transform.
// The result has one row per sample and Model.NumOutputs columns.
func (p *Predictor) Predict(X mat.Matrix) (mat.Matrix, error) {
	return p.predict(X, false)
}

// PredictRaw scores every row of X without the objective's output transform.
func (p *Predictor) PredictRaw(X mat.Matrix) (mat.Matrix, error) {
	return p.predict(X, true)
}

func (p *Predictor) predict(X mat.Matrix, raw bool) (_ mat.Matrix, err error) {
	defer errors.Recover(&err, "lightgbm.Predict")

	rows, cols := X.Dims()
	if cols != p.model.NumFeatures() {
		return nil, errors.NewDimensionError("lightgbm.Predict", p.model.NumFeatures(), cols, 1)
	}
	if rows == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "lightgbm.Predict")
	}

	k := p.model.NumOutputs()
	predictions := mat.NewDense(rows, k, nil)

	var (
		mu       sync.Mutex
		firstErr error
	)
	parallel.ParallelizeWithThreshold(rows, parallelThreshold, p.numThreads, func(start, end int) {
		// A panic on a worker goroutine cannot be recovered by the caller.
		rangeErr := errors.SafeExecute("lightgbm.Predict", func() error {
			features := make([]float64, cols)
			out := make([]float64, k)
			for i := start; i < end; i++ {
				mat.Row(features, i, X)
				p.model.rawScore(features, p.numIteration, out)
				if !raw {
					p.model.transform(out)
				}
				predictions.SetRow(i, out)
			}
			return nil
		})
		if rangeErr != nil {
			mu.Lock()
			if firstErr == nil {
				firstErr = rangeErr
			}
			mu.Unlock()
		}
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return predictions, nil
}

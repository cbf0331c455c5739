// Package pipeline scores a tabular dataset with a LightGBM model trained on
// log1p-transformed demand and returns predictions on the original scale.
//
// A call loads the artifact, checks that every required feature column is
// present, copies those columns into a feature matrix in the requested order,
// runs the model and applies expm1 to each prediction:
//
//	ds, _ := frame.FromColumns(map[string][]float64{
//	    "price": {10, 12},
//	    "promo": {1, 0},
//	})
//	preds, err := pipeline.Predict(ds, []string{"price", "promo"}, "models/demand.txt")
//
// The caller's dataset is never modified. Artifacts are read on every call unless a
// CachedLoader is passed with WithLoader.
package pipeline

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/demandcast/core/frame"
	"github.com/YuminosukeSato/demandcast/core/model"
	"github.com/YuminosukeSato/demandcast/pkg/errors"
	"github.com/YuminosukeSato/demandcast/pkg/log"
	"github.com/YuminosukeSato/demandcast/preprocessing"
	"github.com/YuminosukeSato/demandcast/sklearn/lightgbm"
)

const opPredict = "pipeline.Predict"

// Predict loads the model at modelPath and returns one demand prediction per row of
// ds, in row order.
//
// The artifact is loaded before the columns are checked, so an unreadable artifact
// is reported as *errors.ArtifactLoadError even when columns are also missing.
// Columns in featureCols that ds lacks are reported as *errors.SchemaValidationError.
func Predict(ds *frame.Dataset, featureCols []string, modelPath string, opts ...Option) ([]float64, error) {
	o := newOptions(opts)
	logger := o.logger.With(log.ArtifactPathKey, modelPath)

	m, err := loadArtifact(o.loader, modelPath, logger)
	if err != nil {
		return nil, err
	}
	return predict(ds, featureCols, m, o, logger)
}

// PredictWithModel is Predict for a model that is already loaded.
func PredictWithModel(ds *frame.Dataset, featureCols []string, m model.Predictor, opts ...Option) ([]float64, error) {
	o := newOptions(opts)
	if m == nil {
		return nil, errors.NewValueError(opPredict, "nil model")
	}
	return predict(ds, featureCols, m, o, o.logger)
}

func loadArtifact(loader ArtifactLoader, path string, logger log.Logger) (model.Predictor, error) {
	start := time.Now()
	m, err := loader.Load(path)
	if err == nil && m == nil {
		err = errors.New("loader returned no model")
	}
	if err != nil {
		var loadErr *errors.ArtifactLoadError
		if !errors.As(err, &loadErr) {
			err = errors.NewArtifactLoadError(path, "", err)
		}
		logger.Error("Artifact load failed", err,
			log.OperationKey, log.OperationLoad,
			log.ErrorCodeKey, log.ErrorArtifactLoad,
		)
		return nil, err
	}

	logger.Debug("Artifact loaded",
		log.OperationKey, log.OperationLoad,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return m, nil
}

func predict(ds *frame.Dataset, featureCols []string, m model.Predictor, o *options, logger log.Logger) (preds []float64, err error) {
	defer errors.Recover(&err, opPredict)

	if ds == nil {
		return nil, errors.NewValueError(opPredict, "nil dataset")
	}
	if missing := ds.Missing(featureCols); len(missing) > 0 {
		err := errors.NewSchemaValidationError(opPredict, missing)
		logger.Error("Schema validation failed", err,
			log.OperationKey, log.OperationPredict,
			log.MissingColumnsKey, missing,
			log.ErrorCodeKey, log.ErrorSchemaValidation,
		)
		return nil, err
	}

	X, err := ds.Select(featureCols)
	if err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if o.finiteCheck {
		if err := errors.CheckMatrix(opPredict, X, rows, cols, featureCols); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	out, err := withThreads(m, o.threads).Predict(X)
	if err != nil {
		return nil, errors.NewModelError(opPredict, "model prediction failed", err)
	}
	if out == nil {
		return nil, errors.NewModelError(opPredict, "model returned no predictions", nil)
	}

	outRows, outCols := out.Dims()
	if outRows != rows {
		err := errors.NewDimensionError(opPredict, rows, outRows, 0)
		logger.Error("Unexpected prediction shape", err, log.ErrorCodeKey, log.ErrorDimensionMismatch)
		return nil, err
	}
	if outCols != 1 {
		err := errors.NewDimensionError(opPredict, 1, outCols, 1)
		logger.Error("Unexpected prediction shape", err, log.ErrorCodeKey, log.ErrorDimensionMismatch)
		return nil, err
	}

	var target preprocessing.Log1pTransformer
	preds, err = target.InverseTransform(mat.Col(nil, 0, out))
	if err != nil {
		return nil, err
	}
	if o.finiteCheck {
		if err := errors.CheckFinite(opPredict, preds); err != nil {
			logger.Error("Prediction is not finite", err, log.ErrorCodeKey, log.ErrorNumericalInstability)
			return nil, err
		}
	}

	logger.Info("Prediction completed",
		log.OperationKey, log.OperationPredict,
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		log.PredsKey, len(preds),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return preds, nil
}

// withThreads applies the worker count to LightGBM models. A fresh Predictor is
// used so that a model shared through a cache is never reconfigured.
func withThreads(m model.Predictor, threads int) model.Predictor {
	lgb, ok := m.(*lightgbm.Model)
	if !ok || threads == 0 {
		return m
	}
	p := lightgbm.NewPredictor(lgb)
	p.SetNumThreads(threads)
	return p
}

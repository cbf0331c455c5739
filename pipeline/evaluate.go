package pipeline

import (
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/demandcast/core/frame"
	"github.com/YuminosukeSato/demandcast/metrics"
	"github.com/YuminosukeSato/demandcast/pkg/errors"
	"github.com/YuminosukeSato/demandcast/pkg/log"
)

const opEvaluate = "pipeline.Evaluate"

// Report holds predictions for every row and metrics over the rows with a known target.
type Report struct {
	metrics.Summary

	// Predictions has one value per dataset row, as returned by Predict.
	Predictions []float64
	// Actual and Predicted are the scored pairs; rows whose target is NaN are skipped.
	Actual    []float64
	Predicted []float64
}

// Evaluate predicts ds with the model at modelPath and compares the predictions with
// the targetCol column, both on the original demand scale.
//
// A missing target column is reported together with any missing feature columns as a
// single *errors.SchemaValidationError.
func Evaluate(ds *frame.Dataset, featureCols []string, targetCol, modelPath string, opts ...Option) (*Report, error) {
	o := newOptions(opts)
	logger := o.logger.With(log.ArtifactPathKey, modelPath)

	m, err := loadArtifact(o.loader, modelPath, logger)
	if err != nil {
		return nil, err
	}
	if ds == nil {
		return nil, errors.NewValueError(opEvaluate, "nil dataset")
	}

	required := append(append([]string(nil), featureCols...), targetCol)
	if missing := ds.Missing(required); len(missing) > 0 {
		err := errors.NewSchemaValidationError(opEvaluate, missing)
		logger.Error("Schema validation failed", err,
			log.OperationKey, log.OperationEvaluate,
			log.MissingColumnsKey, missing,
			log.ErrorCodeKey, log.ErrorSchemaValidation,
		)
		return nil, err
	}

	actual, err := ds.Floats(targetCol)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	preds, err := predict(ds, featureCols, m, o, logger)
	if err != nil {
		return nil, err
	}

	report := &Report{Predictions: preds}
	for i, y := range actual {
		if math.IsNaN(y) {
			continue
		}
		report.Actual = append(report.Actual, y)
		report.Predicted = append(report.Predicted, preds[i])
	}
	if len(report.Actual) == 0 {
		return nil, errors.Wrapf(errors.ErrEmptyData, "%s: target column %q has no values", opEvaluate, targetCol)
	}

	n := len(report.Actual)
	summary, err := metrics.Summarize(mat.NewVecDense(n, report.Actual), mat.NewVecDense(n, report.Predicted))
	if err != nil {
		return nil, err
	}
	report.Summary = *summary

	logger.Info("Evaluation completed",
		log.OperationKey, log.OperationEvaluate,
		log.SamplesKey, n,
		log.RMSEKey, summary.RMSE,
		log.MAEKey, summary.MAE,
		log.R2ScoreKey, summary.R2,
		log.MAPEKey, summary.MAPE,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return report, nil
}

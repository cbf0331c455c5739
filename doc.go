// Package demandcast scores tabular data with a LightGBM demand model trained on
// log1p(demand) and returns predictions on the original demand scale.
//
// # Features
//
//   - Pure Go LightGBM inference: text model files, JSON dumps and gob snapshots
//   - Schema check that reports every missing feature column at once
//   - Row-parallel tree evaluation
//   - Artifact cache with optional file watching
//   - Evaluation report (RMSE, MAE, R², MAPE) and actual-vs-predicted chart
//
// # Quick Start
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/demandcast/core/frame"
//	    "github.com/YuminosukeSato/demandcast/pipeline"
//	)
//
//	func main() {
//	    ds, err := frame.FromColumns(map[string][]float64{
//	        "price": {10, 20},
//	        "promo": {1, 0},
//	    })
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    preds, err := pipeline.Predict(ds, []string{"price", "promo"}, "models/demand.txt")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(preds)
//	}
//
// # Packages
//
//   - pipeline: Predict, Evaluate and the cached artifact loader
//   - sklearn/lightgbm: model formats and the tree predictor
//   - core/frame: named-column datasets and CSV I/O
//   - preprocessing: the log1p target transform and its inverse
//   - metrics: regression metrics
//   - pkg/errors, pkg/log: typed errors and structured logging
//
// The demandcast command in cmd/demandcast wraps pipeline for CSV files.
package demandcast

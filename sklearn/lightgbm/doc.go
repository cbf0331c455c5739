// Package lightgbm provides a pure Go implementation of LightGBM model inference
// for models trained with Python's LightGBM library.
//
// Only prediction is supported. The tree layout, missing-value handling and
// objective transforms follow LightGBM's own model_from_string loader, so a model
// scored here returns the same values as Booster.predict in Python.
//
// # Basic Usage
//
// Load and use a pre-trained LightGBM model:
//
//	// Load model from file, the format is detected from the content
//	model, err := lightgbm.LoadArtifact("model.txt")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Make predictions
//	predictions, err := model.Predict(X)
//
// # Model Loading Formats
//
//	// Text format (save_model / model_to_string)
//	model, _ := lightgbm.LoadFromFile("model.txt")
//
//	// JSON format (dump_model)
//	model, _ := lightgbm.LoadFromJSONFile("model.json")
//
//	// gob snapshot written by Model.SaveGob
//	model, _ := lightgbm.LoadArtifact("model.gob")
//
// # Parallel Prediction
//
// Rows are scored independently, so large batches are split across goroutines:
//
//	predictor := lightgbm.NewPredictor(model)
//	predictor.SetNumThreads(4)
//	predictor.SetNumIteration(100) // use the first 100 boosting rounds
//	predictions, err := predictor.Predict(X)
package lightgbm

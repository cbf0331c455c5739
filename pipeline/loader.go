package pipeline

import (
	"github.com/YuminosukeSato/demandcast/core/model"
	"github.com/YuminosukeSato/demandcast/sklearn/lightgbm"
)

// ArtifactLoader turns a model artifact on disk into a Predictor.
type ArtifactLoader interface {
	Load(path string) (model.Predictor, error)
}

// LoaderFunc adapts a function to ArtifactLoader.
type LoaderFunc func(path string) (model.Predictor, error)

// Load calls f(path).
func (f LoaderFunc) Load(path string) (model.Predictor, error) {
	return f(path)
}

// DefaultLoader reads LightGBM text, JSON dump and gob artifacts, detecting the
// format from the content. It reads the file on every call.
var DefaultLoader ArtifactLoader = LoaderFunc(loadLightGBM)

func loadLightGBM(path string) (model.Predictor, error) {
	m, err := lightgbm.LoadArtifact(path)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// FeatureColumnsFromModel returns the training-time feature names stored in the
// artifact, or nil when the model does not record them.
func FeatureColumnsFromModel(m model.Predictor) []string {
	if namer, ok := m.(model.FeatureNamer); ok {
		return namer.FeatureNames()
	}
	return nil
}

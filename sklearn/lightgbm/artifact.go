package lightgbm

import (
	"bytes"
	"os"

	coremodel "github.com/YuminosukeSato/demandcast/core/model"
	"github.com/YuminosukeSato/demandcast/pkg/errors"
)

// Artifact formats recognised by LoadArtifact.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatGob  = "gob"
)

// LoadArtifact reads a trained model from path, detecting the format from its content:
// a LightGBM text model, a LightGBM JSON dump or a gob snapshot written by SaveGob.
// Every failure is an *errors.ArtifactLoadError.
func LoadArtifact(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewArtifactLoadError(path, "", err)
	}

	format := DetectFormat(data)
	var m *Model
	switch format {
	case FormatText:
		m, err = LoadFromReader(bytes.NewReader(data))
	case FormatJSON:
		m, err = LoadFromJSON(bytes.NewReader(data))
	default:
		m, err = loadGob(data)
		if err != nil {
			err = errors.Wrapf(errors.ErrUnknownFormat, "not a text model, JSON dump or gob snapshot (%v)", err)
		}
	}
	if err != nil {
		return nil, errors.NewArtifactLoadError(path, format, err)
	}
	return m, nil
}

// DetectFormat guesses the artifact format from its leading bytes. Anything that is
// neither text nor JSON is reported as gob and left to the gob decoder to reject.
func DetectFormat(data []byte) string {
	trimmed := bytes.TrimLeft(data, " \t\r\n\ufeff")
	switch {
	case bytes.HasPrefix(trimmed, []byte("{")):
		return FormatJSON
	case bytes.HasPrefix(trimmed, []byte("tree\n")),
		bytes.HasPrefix(trimmed, []byte("tree\r\n")),
		bytes.HasPrefix(trimmed, []byte("version=")):
		return FormatText
	default:
		return FormatGob
	}
}

// SaveGob writes a gob snapshot of the model that LoadArtifact can read back without
// re-parsing the text format.
func (m *Model) SaveGob(path string) error {
	return coremodel.SaveModel(m, path)
}

func loadGob(data []byte) (*Model, error) {
	// Decode into a zero Model: gob skips zero-valued fields, so defaults would leak through.
	m := &Model{}
	if err := coremodel.LoadModelFromReader(m, bytes.NewReader(data)); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid model")
	}
	return m, nil
}

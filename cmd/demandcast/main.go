// Command demandcast scores a CSV file with a LightGBM demand model and writes one
// prediction per input row.
//
//	demandcast --model models/demand.txt --input sales.csv --output preds.csv
//	demandcast -m models/demand.txt -i sales.csv --target units --plot fit.png
//
// Every flag can also be set through a DEMANDCAST_* environment variable or a YAML
// file passed with --config.
package main

import (
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/YuminosukeSato/demandcast/core/frame"
	"github.com/YuminosukeSato/demandcast/internal/config"
	"github.com/YuminosukeSato/demandcast/internal/report"
	"github.com/YuminosukeSato/demandcast/pipeline"
	"github.com/YuminosukeSato/demandcast/pkg/errors"
	"github.com/YuminosukeSato/demandcast/pkg/log"
)

// PredictionColumn is the header of the output CSV.
const PredictionColumn = "prediction"

func main() {
	os.Exit(runMain(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// runMain runs the command and returns the process exit code. A failure is reported
// once, as a JSON log line on stderr.
func runMain(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	err := run(args, stdin, stdout, stderr)
	if err == nil {
		return 0
	}
	log.NewZerologProvider(stderr, log.LevelError).
		GetLoggerWithName("demandcast").
		Error("demandcast failed", err)
	return 1
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg, err := config.Load(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if err := log.SetupLogger(cfg.LogLevel, stderr); err != nil {
		return err
	}
	logger := log.GetLoggerWithName("demandcast")

	ds, err := readInput(cfg.Input, stdin)
	if err != nil {
		return err
	}

	// The artifact may be needed twice (feature names, then prediction), so it is
	// read once through a cache.
	loader, err := pipeline.NewCachedLoader(nil, cfg.CacheSize)
	if err != nil {
		return err
	}
	defer loader.Close()

	features := cfg.Features
	if len(features) == 0 {
		if features, err = featuresFromModel(loader, cfg.Model); err != nil {
			return err
		}
		logger.Debug("Using feature names stored in the model", log.FeaturesKey, len(features))
	}

	opts := []pipeline.Option{
		pipeline.WithLoader(loader),
		pipeline.WithThreads(cfg.Threads),
		pipeline.WithLogger(logger),
	}

	var preds []float64
	if cfg.Target == "" {
		if preds, err = pipeline.Predict(ds, features, cfg.Model, opts...); err != nil {
			return err
		}
	} else {
		rep, err := pipeline.Evaluate(ds, features, cfg.Target, cfg.Model, opts...)
		if err != nil {
			return err
		}
		preds = rep.Predictions
		if cfg.Plot != "" {
			if err := report.SaveScatter(cfg.Plot, rep.Actual, rep.Predicted, "Actual vs predicted "+cfg.Target); err != nil {
				return err
			}
			logger.Info("Wrote evaluation plot", log.ReportPathKey, cfg.Plot)
		}
	}

	return writeOutput(cfg.Output, stdout, preds)
}

func featuresFromModel(loader pipeline.ArtifactLoader, path string) ([]string, error) {
	m, err := loader.Load(path)
	if err != nil {
		return nil, err
	}
	features := pipeline.FeatureColumnsFromModel(m)
	if len(features) == 0 {
		return nil, errors.NewValidationError(config.KeyFeatures, "required: the model does not store feature names", nil)
	}
	return features, nil
}

func readInput(path string, stdin io.Reader) (*frame.Dataset, error) {
	if path == "-" {
		return frame.ReadCSV(stdin)
	}
	return frame.ReadCSVFile(path)
}

func writeOutput(path string, stdout io.Writer, preds []float64) error {
	out, err := frame.New([]string{PredictionColumn}, [][]float64{preds})
	if err != nil {
		return err
	}
	if path == "-" {
		return out.WriteCSV(stdout)
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create output %s", path)
	}
	if err := out.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

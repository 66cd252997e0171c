// Command train fits the car price pipeline on the cleaned AutoScout24
// dataset, reports the held-out mean squared error, and writes the
// fitted pipeline to the artifacts directory.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/mohsenim/carprice/boosting"
	"github.com/mohsenim/carprice/dataset"
	"github.com/mohsenim/carprice/metrics"
	"github.com/mohsenim/carprice/pipeline"
	"github.com/mohsenim/carprice/pkg/log"
	"github.com/mohsenim/carprice/preprocessing"
)

const (
	datasetPath   = "data/autoscout24-germany-dataset-cleaned.csv"
	artifactsPath = "artifacts"
	modelName     = "car_price_model.gob"
	plotName      = "evaluation.png"

	testFraction = 0.20
	splitSeed    = 37
)

// Result bundles the fitted pipeline with its held-out evaluation.
type Result struct {
	Pipeline *pipeline.Pipeline
	MSE      float64
}

func main() {
	log.SetupLogger("info")
	logger := log.GetLoggerWithName("train")

	result, err := train(logger)
	if err != nil {
		logger.Error("training failed", log.ErrAttr(err))
		os.Exit(1)
	}

	fmt.Printf("Trained! Mean squared error (MSE) of the model: %v\n", result.MSE)

	if err := os.MkdirAll(artifactsPath, 0o755); err != nil {
		logger.Error("failed to create artifacts directory", log.ErrAttr(err))
		os.Exit(1)
	}
	if err := result.Pipeline.Save(filepath.Join(artifactsPath, modelName)); err != nil {
		logger.Error("failed to save model", log.ErrAttr(err))
		os.Exit(1)
	}
	fmt.Printf("Model %s is saved in: '%s'.\n", modelName, artifactsPath)
}

// train loads the dataset, fits the pipeline on the 80% training split
// and evaluates it on the 20% held-out split.
func train(logger *slog.Logger) (*Result, error) {
	tbl, err := dataset.LoadCSV(datasetPath)
	if err != nil {
		return nil, err
	}
	logger.Info("dataset loaded",
		log.SamplesKey, tbl.Len(),
		log.FeaturesKey, dataset.NumFeatures())

	trainTbl, testTbl, err := dataset.TrainTestSplit(tbl, testFraction, splitSeed)
	if err != nil {
		return nil, err
	}

	regressor := boosting.NewRegressor().
		WithMaxDepth(8).
		WithSubsample(0.7).
		WithRandomState(splitSeed)
	pipe := pipeline.New(preprocessing.NewOrdinalEncoder(), regressor)

	if err := pipe.Fit(trainTbl.Batch, trainTbl.Target); err != nil {
		return nil, err
	}

	predicted, err := pipe.Predict(testTbl.Batch)
	if err != nil {
		return nil, err
	}

	predVec := mat.NewVecDense(len(predicted), predicted)
	mse, err := metrics.MSE(testTbl.Target, predVec)
	if err != nil {
		return nil, err
	}
	logger.Info("evaluation finished", log.LossKey, mse)

	if err := saveEvaluationPlot(testTbl.Target, predVec); err != nil {
		// Non-fatal, the trained model is still saved.
		logger.Warn("failed to render evaluation plot", log.ErrAttr(err))
	}

	return &Result{Pipeline: pipe, MSE: mse}, nil
}

// saveEvaluationPlot renders a predicted-vs-actual scatter for the
// held-out split next to the model artifact.
func saveEvaluationPlot(actual, predicted *mat.VecDense) error {
	if err := os.MkdirAll(artifactsPath, 0o755); err != nil {
		return err
	}

	pts := make(plotter.XYs, actual.Len())
	for i := range pts {
		pts[i].X = actual.AtVec(i)
		pts[i].Y = predicted.AtVec(i)
	}

	p := plot.New()
	p.Title.Text = "Held-out predictions"
	p.X.Label.Text = "actual price_log"
	p.Y.Label.Text = "predicted price_log"

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	p.Add(scatter, plotter.NewGrid())

	return p.Save(6*vg.Inch, 6*vg.Inch, filepath.Join(artifactsPath, plotName))
}

// Package train fits the occupancy classifier on the chronologically first
// part of a dataset and evaluates it on the rest.
package train

import (
	"errors"
	"fmt"
	"math"

	"parking-occupancy/internal/config"
	"parking-occupancy/internal/dataset"
	"parking-occupancy/internal/metrics"
	"parking-occupancy/internal/scaler"
	"parking-occupancy/internal/svm"

	"github.com/cyclopcam/logs"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrEmptyDataset       = errors.New("dataset is empty")
	ErrEmptyTrainingSplit = errors.New("training split is empty")
	ErrSingleClass        = errors.New("training split contains a single class")
)

// Classifier is the part of a classifier the trainer relies on.
type Classifier interface {
	Fit(x *mat.Dense, y []int) error
	Predict(x *mat.Dense) ([]int, error)
}

// Scaler is the part of a feature scaler the trainer relies on.
type Scaler interface {
	Fit(x *mat.Dense) error
	Transform(x *mat.Dense) (*mat.Dense, error)
}

// SplitIndex returns the number of training rows out of n: floor(fraction*n).
func SplitIndex(n int, fraction float64) int {
	k := int(math.Floor(fraction * float64(n)))
	return max(0, min(k, n))
}

// ChronologicalSplit returns the leading rows for training and the remaining
// rows for evaluation. Rows are never shuffled.
func ChronologicalSplit(d *dataset.Dataset, fraction float64) (*dataset.Dataset, *dataset.Dataset) {
	k := SplitIndex(d.Len(), fraction)
	return d.Slice(0, k), d.Slice(k, d.Len())
}

// SVMParams maps the training configuration onto classifier parameters.
func SVMParams(cfg config.Train) svm.Params {
	return svm.Params{
		C:                cfg.C,
		Gamma:            cfg.Gamma,
		Tolerance:        cfg.Tolerance,
		MaxIter:          cfg.MaxIter,
		CacheRows:        cfg.CacheRows,
		Probability:      cfg.Probability,
		ProbabilityFolds: cfg.ProbabilityFolds,
		Seed:             cfg.Seed,
	}
}

// Result is a fitted scaler and classifier with the evaluation report.
// Report is nil when the evaluation split is empty.
type Result struct {
	Scaler    *scaler.StandardScaler
	Model     *svm.SVC
	TrainRows int
	EvalRows  int
	Report    *metrics.Report
}

type Trainer struct {
	log logs.Log
	cfg config.Train
}

func NewTrainer(log logs.Log, cfg config.Train) *Trainer {
	return &Trainer{log: log, cfg: cfg}
}

// Run scales, splits, fits and evaluates. Degenerate data is rejected before
// any fitting happens.
func (t *Trainer) Run(d *dataset.Dataset) (*Result, error) {
	if err := t.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid training config: %w", err)
	}
	if d.Len() == 0 {
		return nil, ErrEmptyDataset
	}
	trainSet, evalSet := ChronologicalSplit(d, t.cfg.TrainFraction)
	if trainSet.Len() == 0 {
		return nil, fmt.Errorf("%w: %d rows with train fraction %g", ErrEmptyTrainingSplit, d.Len(), t.cfg.TrainFraction)
	}
	free, occupied := trainSet.ClassCounts()
	if free == 0 || occupied == 0 {
		return nil, fmt.Errorf("%w: %d free, %d occupied", ErrSingleClass, free, occupied)
	}
	t.log.Infof("Chronological split: %d training rows (%d free, %d occupied), %d evaluation rows", trainSet.Len(), free, occupied, evalSet.Len())

	res := &Result{
		Scaler:    scaler.New(),
		Model:     svm.New(SVMParams(t.cfg)),
		TrainRows: trainSet.Len(),
		EvalRows:  evalSet.Len(),
	}
	fitOn := trainSet
	if t.cfg.ScaleOnFullDataset {
		fitOn = d
	}
	report, err := fitAndEvaluate(res.Scaler, res.Model, fitOn, trainSet, evalSet)
	if err != nil {
		return nil, err
	}
	res.Report = report

	t.log.Infof("Fitted classifier: gamma=%.4g, %d support vectors (%d free, %d occupied), %d iterations",
		res.Model.Gamma, len(res.Model.SupportVectors), res.Model.NSupport[0], res.Model.NSupport[1], res.Model.Iterations)
	if !res.Model.Converged {
		t.log.Warnf("Solver stopped at max_iter=%d before reaching tolerance %g", t.cfg.MaxIter, t.cfg.Tolerance)
	}
	if report == nil {
		t.log.Warnf("Evaluation split is empty, no report")
	}
	return res, nil
}

func fitAndEvaluate(sc Scaler, clf Classifier, fitOn, trainSet, evalSet *dataset.Dataset) (*metrics.Report, error) {
	if err := sc.Fit(fitOn.X()); err != nil {
		return nil, fmt.Errorf("failed to fit scaler: %w", err)
	}
	xTrain, err := sc.Transform(trainSet.X())
	if err != nil {
		return nil, fmt.Errorf("failed to scale training rows: %w", err)
	}
	if err := clf.Fit(xTrain, trainSet.Y()); err != nil {
		return nil, fmt.Errorf("failed to fit classifier: %w", err)
	}
	if evalSet.Len() == 0 {
		return nil, nil
	}
	xEval, err := sc.Transform(evalSet.X())
	if err != nil {
		return nil, fmt.Errorf("failed to scale evaluation rows: %w", err)
	}
	pred, err := clf.Predict(xEval)
	if err != nil {
		return nil, fmt.Errorf("failed to predict evaluation rows: %w", err)
	}
	return metrics.Classification(evalSet.Y(), pred)
}

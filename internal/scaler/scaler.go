// Package scaler standardizes feature columns to zero mean and unit variance.
package scaler

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrNotFitted = errors.New("scaler is not fitted")
	ErrDimension = errors.New("feature dimension mismatch")
	ErrNoSamples = errors.New("no samples to fit scaler")
)

// StandardScaler removes the per-column mean and divides by the population
// standard deviation. Columns with zero variance keep a scale of 1.
type StandardScaler struct {
	Mean     []float64 `json:"mean"`
	Scale    []float64 `json:"scale"`
	NSamples int       `json:"n_samples"`
}

func New() *StandardScaler {
	return &StandardScaler{}
}

func (s *StandardScaler) Fitted() bool {
	return s != nil && len(s.Mean) > 0 && len(s.Mean) == len(s.Scale)
}

func (s *StandardScaler) Dim() int {
	if !s.Fitted() {
		return 0
	}
	return len(s.Mean)
}

func (s *StandardScaler) Fit(x *mat.Dense) error {
	if x == nil {
		return ErrNoSamples
	}
	r, c := x.Dims()
	if r == 0 || c == 0 {
		return ErrNoSamples
	}
	mean := make([]float64, c)
	scale := make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, x)
		m, sd := stat.PopMeanStdDev(col, nil)
		mean[j] = m
		if sd == 0 {
			sd = 1
		}
		scale[j] = sd
	}
	s.Mean, s.Scale, s.NSamples = mean, scale, r
	return nil
}

// Transform returns a new matrix; x is left untouched.
func (s *StandardScaler) Transform(x *mat.Dense) (*mat.Dense, error) {
	if !s.Fitted() {
		return nil, ErrNotFitted
	}
	r, c := x.Dims()
	if c != len(s.Mean) {
		return nil, fmt.Errorf("%w: got %d columns, fitted on %d", ErrDimension, c, len(s.Mean))
	}
	out := mat.NewDense(r, c, nil)
	out.Apply(func(i, j int, v float64) float64 {
		return (v - s.Mean[j]) / s.Scale[j]
	}, x)
	return out, nil
}

func (s *StandardScaler) FitTransform(x *mat.Dense) (*mat.Dense, error) {
	if err := s.Fit(x); err != nil {
		return nil, err
	}
	return s.Transform(x)
}

func (s *StandardScaler) TransformVector(v []float64) ([]float64, error) {
	if !s.Fitted() {
		return nil, ErrNotFitted
	}
	if len(v) != len(s.Mean) {
		return nil, fmt.Errorf("%w: got %d values, fitted on %d", ErrDimension, len(v), len(s.Mean))
	}
	out := make([]float64, len(v))
	for j, x := range v {
		out[j] = (x - s.Mean[j]) / s.Scale[j]
	}
	return out, nil
}

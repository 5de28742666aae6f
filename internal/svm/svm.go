// Package svm implements a binary C-support vector classifier with an RBF
// kernel and optional Platt-scaled probability estimates.
package svm

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrNotFitted     = errors.New("classifier is not fitted")
	ErrOneClass      = errors.New("training labels contain a single class")
	ErrLabel         = errors.New("label must be 0 or 1")
	ErrDimension     = errors.New("feature dimension mismatch")
	ErrParams        = errors.New("invalid classifier parameters")
	ErrNoProbability = errors.New("classifier was fitted without probability estimates")
	ErrInconsistent  = errors.New("inconsistent classifier state")
)

// Params configures training. Gamma <= 0 selects 1/(n_features*Var(X)).
type Params struct {
	C                float64 `json:"c"`
	Gamma            float64 `json:"gamma"`
	Tolerance        float64 `json:"tolerance"`
	MaxIter          int     `json:"max_iter"`
	CacheRows        int     `json:"cache_rows"`
	Probability      bool    `json:"probability"`
	ProbabilityFolds int     `json:"probability_folds"`
	Seed             int64   `json:"seed"`
}

func DefaultParams() Params {
	return Params{
		C:                1,
		Tolerance:        1e-3,
		MaxIter:          10_000_000,
		CacheRows:        4096,
		Probability:      true,
		ProbabilityFolds: 5,
		Seed:             42,
	}
}

func (p Params) Validate() error {
	if !(p.C > 0) {
		return fmt.Errorf("%w: C must be positive, got %v", ErrParams, p.C)
	}
	if math.IsNaN(p.Gamma) || math.IsInf(p.Gamma, 0) {
		return fmt.Errorf("%w: gamma must be finite", ErrParams)
	}
	if !(p.Tolerance > 0) {
		return fmt.Errorf("%w: tolerance must be positive, got %v", ErrParams, p.Tolerance)
	}
	if p.MaxIter <= 0 {
		return fmt.Errorf("%w: max_iter must be positive, got %d", ErrParams, p.MaxIter)
	}
	if p.Probability && p.ProbabilityFolds < 2 {
		return fmt.Errorf("%w: probability_folds must be at least 2, got %d", ErrParams, p.ProbabilityFolds)
	}
	return nil
}

// SVC is a fitted classifier. Class 1 (occupied) is the positive side of
// the decision function.
type SVC struct {
	Params         Params      `json:"params"`
	Gamma          float64     `json:"gamma"`
	NFeatures      int         `json:"n_features"`
	SupportVectors [][]float64 `json:"support_vectors"`
	DualCoef       []float64   `json:"dual_coef"`
	Rho            float64     `json:"rho"`
	ProbA          float64     `json:"prob_a"`
	ProbB          float64     `json:"prob_b"`
	NSupport       [2]int      `json:"n_support"`
	Iterations     int         `json:"iterations"`
	Converged      bool        `json:"converged"`
}

func New(p Params) *SVC {
	return &SVC{Params: p}
}

// ScaleGamma is 1/(n_features*Var(X)) over every element of x, or 1 when x
// has no variance.
func ScaleGamma(x *mat.Dense) float64 {
	r, c := x.Dims()
	all := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		all = append(all, x.RawRowView(i)...)
	}
	v := stat.PopVariance(all, nil)
	if v == 0 {
		return 1
	}
	return 1 / (float64(c) * v)
}

func (s *SVC) Fit(x *mat.Dense, labels []int) error {
	if err := s.Params.Validate(); err != nil {
		return err
	}
	r, c := x.Dims()
	if r != len(labels) {
		return fmt.Errorf("%w: %d rows, %d labels", ErrDimension, r, len(labels))
	}
	y := make([]float64, r)
	pos, neg := 0, 0
	for i, l := range labels {
		switch l {
		case 1:
			y[i] = 1
			pos++
		case 0:
			y[i] = -1
			neg++
		default:
			return fmt.Errorf("%w: row %d has %d", ErrLabel, i, l)
		}
	}
	if pos == 0 || neg == 0 {
		return ErrOneClass
	}

	rows := make([][]float64, r)
	for i := range rows {
		rows[i] = mat.Row(nil, i, x)
	}

	gamma := s.Params.Gamma
	if gamma <= 0 {
		gamma = ScaleGamma(x)
	}

	m := fitBinary(rows, y, s.Params, gamma)

	s.Gamma = gamma
	s.NFeatures = c
	s.SupportVectors = m.sv
	s.DualCoef = m.coef
	s.Rho = m.rho
	s.Iterations = m.iterations
	s.Converged = m.converged
	s.NSupport = [2]int{}
	for _, coef := range m.coef {
		if coef > 0 {
			s.NSupport[1]++
		} else {
			s.NSupport[0]++
		}
	}
	s.ProbA, s.ProbB = 0, 0
	if s.Params.Probability {
		dec := crossValidatedDecisions(rows, y, s.Params, gamma)
		s.ProbA, s.ProbB = sigmoidTrain(dec, y)
	}
	return nil
}

func (s *SVC) Fitted() bool {
	return s != nil && s.NFeatures > 0 && len(s.SupportVectors) > 0
}

// Validate checks a decoded classifier for internal consistency.
func (s *SVC) Validate() error {
	if !s.Fitted() {
		return ErrNotFitted
	}
	if len(s.DualCoef) != len(s.SupportVectors) {
		return fmt.Errorf("%w: %d support vectors, %d coefficients", ErrInconsistent, len(s.SupportVectors), len(s.DualCoef))
	}
	for i, sv := range s.SupportVectors {
		if len(sv) != s.NFeatures {
			return fmt.Errorf("%w: support vector %d has %d features, want %d", ErrInconsistent, i, len(sv), s.NFeatures)
		}
	}
	if !(s.Gamma > 0) || math.IsInf(s.Gamma, 0) {
		return fmt.Errorf("%w: gamma %v", ErrInconsistent, s.Gamma)
	}
	if math.IsNaN(s.Rho) || math.IsNaN(s.ProbA) || math.IsNaN(s.ProbB) {
		return fmt.Errorf("%w: NaN coefficient", ErrInconsistent)
	}
	return nil
}

// Decision returns the signed distance-like score for one feature vector.
func (s *SVC) Decision(v []float64) (float64, error) {
	if !s.Fitted() {
		return 0, ErrNotFitted
	}
	if len(v) != s.NFeatures {
		return 0, fmt.Errorf("%w: got %d features, fitted on %d", ErrDimension, len(v), s.NFeatures)
	}
	return decision(s.SupportVectors, s.DualCoef, s.Rho, s.Gamma, v), nil
}

func (s *SVC) PredictOne(v []float64) (int, error) {
	d, err := s.Decision(v)
	if err != nil {
		return 0, err
	}
	if d > 0 {
		return 1, nil
	}
	return 0, nil
}

// ProbaOne returns the probability that v is occupied.
func (s *SVC) ProbaOne(v []float64) (float64, error) {
	if s.Fitted() && !s.Params.Probability {
		return 0, ErrNoProbability
	}
	d, err := s.Decision(v)
	if err != nil {
		return 0, err
	}
	return sigmoidPredict(d, s.ProbA, s.ProbB), nil
}

func (s *SVC) Predict(x *mat.Dense) ([]int, error) {
	r, _ := x.Dims()
	out := make([]int, r)
	for i := 0; i < r; i++ {
		p, err := s.PredictOne(mat.Row(nil, i, x))
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

func (s *SVC) PredictProba(x *mat.Dense) ([]float64, error) {
	r, _ := x.Dims()
	out := make([]float64, r)
	for i := 0; i < r; i++ {
		p, err := s.ProbaOne(mat.Row(nil, i, x))
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

type binaryModel struct {
	sv         [][]float64
	coef       []float64
	rho        float64
	gamma      float64
	iterations int
	converged  bool
}

func fitBinary(x [][]float64, y []float64, p Params, gamma float64) binaryModel {
	k := newRBF(x, gamma)
	q := newQMatrix(k, y, p.CacheRows)
	sol := solve(q, y, p.C, p.Tolerance, p.MaxIter)

	m := binaryModel{rho: sol.rho, gamma: gamma, iterations: sol.iterations, converged: sol.converged}
	for i, a := range sol.alpha {
		if a > 0 {
			m.sv = append(m.sv, append([]float64(nil), x[i]...))
			m.coef = append(m.coef, y[i]*a)
		}
	}
	return m
}

func (m binaryModel) decision(v []float64) float64 {
	return decision(m.sv, m.coef, m.rho, m.gamma, v)
}

func decision(sv [][]float64, coef []float64, rho, gamma float64, v []float64) float64 {
	vsq := floats.Dot(v, v)
	sum := 0.0
	for i, s := range sv {
		sum += coef[i] * rbfValue(gamma, floats.Dot(s, s)+vsq-2*floats.Dot(s, v))
	}
	return sum - rho
}

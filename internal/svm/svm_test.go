package svm

import (
	"encoding/json"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// clusters returns n points around (-2,-2) labelled 0 and n around (2,2)
// labelled 1, interleaved.
func clusters(n int, seed int64) (*mat.Dense, []int) {
	rng := rand.New(rand.NewSource(seed))
	x := mat.NewDense(2*n, 2, nil)
	y := make([]int, 2*n)
	for i := 0; i < 2*n; i++ {
		c := -2.0
		if i%2 == 1 {
			c = 2
			y[i] = 1
		}
		x.Set(i, 0, c+rng.NormFloat64()*0.5)
		x.Set(i, 1, c+rng.NormFloat64()*0.5)
	}
	return x, y
}

func TestFitSeparable(t *testing.T) {
	x, y := clusters(30, 1)
	s := New(DefaultParams())
	require.NoError(t, s.Fit(x, y))

	assert.True(t, s.Converged)
	assert.Equal(t, 2, s.NFeatures)
	assert.NotEmpty(t, s.SupportVectors)
	assert.Equal(t, len(s.SupportVectors), s.NSupport[0]+s.NSupport[1])
	require.NoError(t, s.Validate())

	pred, err := s.Predict(x)
	require.NoError(t, err)
	assert.Equal(t, y, pred)

	p, err := s.PredictOne([]float64{2.5, 1.5})
	require.NoError(t, err)
	assert.Equal(t, 1, p)
	p, err = s.PredictOne([]float64{-1.5, -2.5})
	require.NoError(t, err)
	assert.Equal(t, 0, p)
}

func TestFitNonLinear(t *testing.T) {
	// XOR corners are not linearly separable.
	x := mat.NewDense(8, 2, []float64{
		0, 0, 0.1, 0.1,
		1, 1, 0.9, 0.9,
		0, 1, 0.1, 0.9,
		1, 0, 0.9, 0.1,
	})
	y := []int{0, 0, 0, 0, 1, 1, 1, 1}
	p := DefaultParams()
	p.C = 100
	p.Gamma = 2
	p.Probability = false
	s := New(p)
	require.NoError(t, s.Fit(x, y))

	pred, err := s.Predict(x)
	require.NoError(t, err)
	assert.Equal(t, y, pred)
	assert.Equal(t, 2.0, s.Gamma)

	_, err = s.ProbaOne([]float64{0, 0})
	assert.ErrorIs(t, err, ErrNoProbability)
}

func TestProbabilities(t *testing.T) {
	x, y := clusters(40, 2)
	s := New(DefaultParams())
	require.NoError(t, s.Fit(x, y))

	proba, err := s.PredictProba(x)
	require.NoError(t, err)
	for i, p := range proba {
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
		if y[i] == 1 {
			assert.Greater(t, p, 0.5, "row %d", i)
		} else {
			assert.Less(t, p, 0.5, "row %d", i)
		}
	}
	// Larger decision values never lower the probability.
	assert.Less(t, s.ProbA, 0.0)
}

func TestDeterministic(t *testing.T) {
	x, y := clusters(25, 3)
	a := New(DefaultParams())
	b := New(DefaultParams())
	require.NoError(t, a.Fit(x, y))
	require.NoError(t, b.Fit(x, y))
	assert.Equal(t, a, b)
}

func TestScaleGamma(t *testing.T) {
	x := mat.NewDense(2, 2, []float64{0, 2, 4, 6})
	// Var of {0,2,4,6} is 5.
	assert.InDelta(t, 1.0/10, ScaleGamma(x), 1e-12)
	assert.Equal(t, 1.0, ScaleGamma(mat.NewDense(2, 2, []float64{3, 3, 3, 3})))

	x, y := clusters(10, 4)
	s := New(DefaultParams())
	require.NoError(t, s.Fit(x, y))
	assert.InDelta(t, ScaleGamma(x), s.Gamma, 1e-12)
}

func TestFitErrors(t *testing.T) {
	x := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	s := New(DefaultParams())

	assert.ErrorIs(t, s.Fit(x, []int{1, 1, 1}), ErrOneClass)
	assert.ErrorIs(t, s.Fit(x, []int{0, 1, 2}), ErrLabel)
	assert.ErrorIs(t, s.Fit(x, []int{0, 1}), ErrDimension)

	bad := DefaultParams()
	bad.C = 0
	assert.ErrorIs(t, New(bad).Fit(x, []int{0, 1, 0}), ErrParams)

	_, err := New(DefaultParams()).Decision([]float64{1, 2})
	assert.ErrorIs(t, err, ErrNotFitted)

	require.NoError(t, s.Fit(x, []int{0, 1, 0}))
	_, err = s.Decision([]float64{1})
	assert.ErrorIs(t, err, ErrDimension)
}

func TestJSONRoundTrip(t *testing.T) {
	x, y := clusters(15, 5)
	s := New(DefaultParams())
	require.NoError(t, s.Fit(x, y))

	data, err := json.Marshal(s)
	require.NoError(t, err)
	var back SVC
	require.NoError(t, json.Unmarshal(data, &back))
	require.NoError(t, back.Validate())

	want, err := s.PredictProba(x)
	require.NoError(t, err)
	got, err := back.PredictProba(x)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestValidateInconsistent(t *testing.T) {
	x, y := clusters(10, 6)
	s := New(DefaultParams())
	require.NoError(t, s.Fit(x, y))

	broken := *s
	broken.DualCoef = broken.DualCoef[:len(broken.DualCoef)-1]
	assert.ErrorIs(t, broken.Validate(), ErrInconsistent)

	broken = *s
	broken.Gamma = 0
	assert.ErrorIs(t, broken.Validate(), ErrInconsistent)

	assert.ErrorIs(t, (&SVC{}).Validate(), ErrNotFitted)
}

func TestKernelCacheEviction(t *testing.T) {
	x := [][]float64{{0}, {1}, {2}, {3}}
	y := []float64{1, -1, 1, -1}
	q := newQMatrix(newRBF(x, 0.5), y, 2)

	r0 := q.row(0)
	q.row(1)
	q.row(2)
	assert.Len(t, q.rows, 2)
	assert.NotContains(t, q.rows, 0)
	// An evicted row is still usable and recomputes identically.
	assert.Equal(t, r0, q.row(0))
	assert.InDelta(t, -math.Exp(-0.5), r0[1], 1e-12)
	assert.Equal(t, []float64{1, 1, 1, 1}, q.diag())
}

func TestSigmoid(t *testing.T) {
	dec := []float64{-3, -2, -1, -0.5, 0.5, 1, 2, 3}
	y := []float64{-1, -1, -1, -1, 1, 1, 1, 1}
	a, b := sigmoidTrain(dec, y)
	assert.Less(t, a, 0.0)
	assert.InDelta(t, 0, b, 1e-6)
	assert.InDelta(t, 0.5, sigmoidPredict(0, a, b), 1e-6)
	assert.Greater(t, sigmoidPredict(3, a, b), 0.85)
	assert.Less(t, sigmoidPredict(-3, a, b), 0.15)
}

package scaler

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

func TestFitTransform(t *testing.T) {
	x := mat.NewDense(4, 3, []float64{
		100, 10, 5,
		200, 20, 5,
		300, 30, 5,
		400, 40, 5,
	})
	s := New()
	out, err := s.FitTransform(x)
	require.NoError(t, err)

	assert.Equal(t, 4, s.NSamples)
	assert.InDelta(t, 250, s.Mean[0], 1e-9)
	assert.InDelta(t, math.Sqrt(12500), s.Scale[0], 1e-9)
	// Constant column keeps scale 1.
	assert.Equal(t, 1.0, s.Scale[2])

	col := make([]float64, 4)
	for j := 0; j < 2; j++ {
		mat.Col(col, j, out)
		m, sd := stat.PopMeanStdDev(col, nil)
		assert.InDelta(t, 0, m, 1e-9)
		assert.InDelta(t, 1, sd, 1e-9)
	}
	mat.Col(col, 2, out)
	assert.Equal(t, []float64{0, 0, 0, 0}, col)

	// Input is not modified.
	assert.Equal(t, 100.0, x.At(0, 0))
}

func TestTransformVectorMatchesMatrix(t *testing.T) {
	x := mat.NewDense(3, 2, []float64{1, 2, 3, 5, 8, 13})
	s := New()
	out, err := s.FitTransform(x)
	require.NoError(t, err)

	v, err := s.TransformVector([]float64{3, 5})
	require.NoError(t, err)
	assert.InDelta(t, out.At(1, 0), v[0], 1e-12)
	assert.InDelta(t, out.At(1, 1), v[1], 1e-12)
}

func TestErrors(t *testing.T) {
	s := New()
	assert.False(t, s.Fitted())

	_, err := s.Transform(mat.NewDense(1, 2, nil))
	assert.ErrorIs(t, err, ErrNotFitted)
	_, err = s.TransformVector([]float64{1})
	assert.ErrorIs(t, err, ErrNotFitted)
	assert.ErrorIs(t, s.Fit(nil), ErrNoSamples)

	require.NoError(t, s.Fit(mat.NewDense(2, 2, []float64{1, 2, 3, 4})))
	_, err = s.Transform(mat.NewDense(1, 3, nil))
	assert.ErrorIs(t, err, ErrDimension)
	_, err = s.TransformVector([]float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrDimension)
}

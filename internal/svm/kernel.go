package svm

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// rbf evaluates exp(-gamma*|a-b|^2) over a fixed set of training vectors,
// with squared norms cached so a kernel value costs one dot product.
type rbf struct {
	x     [][]float64
	sq    []float64
	gamma float64
}

func newRBF(x [][]float64, gamma float64) *rbf {
	sq := make([]float64, len(x))
	for i, v := range x {
		sq[i] = floats.Dot(v, v)
	}
	return &rbf{x: x, sq: sq, gamma: gamma}
}

func (k *rbf) eval(i, j int) float64 {
	return rbfValue(k.gamma, k.sq[i]+k.sq[j]-2*floats.Dot(k.x[i], k.x[j]))
}

func rbfValue(gamma, dist2 float64) float64 {
	if dist2 < 0 {
		dist2 = 0
	}
	return math.Exp(-gamma * dist2)
}

// qMatrix serves rows of Q[i][j] = y[i]*y[j]*K(i,j). Rows are computed on
// demand and held in a FIFO cache of at most limit rows.
type qMatrix struct {
	k     *rbf
	y     []float64
	qd    []float64
	rows  map[int][]float64
	order []int
	limit int
}

func newQMatrix(k *rbf, y []float64, limit int) *qMatrix {
	if limit < 2 {
		limit = 2
	}
	qd := make([]float64, len(y))
	for i := range qd {
		qd[i] = k.eval(i, i)
	}
	return &qMatrix{
		k:     k,
		y:     y,
		qd:    qd,
		rows:  make(map[int][]float64),
		limit: limit,
	}
}

// row returns a slice that must not be modified. It stays valid after the
// row is evicted.
func (q *qMatrix) row(i int) []float64 {
	if r, ok := q.rows[i]; ok {
		return r
	}
	r := make([]float64, len(q.y))
	for j := range r {
		r[j] = q.y[i] * q.y[j] * q.k.eval(i, j)
	}
	if len(q.order) >= q.limit {
		delete(q.rows, q.order[0])
		q.order = q.order[1:]
	}
	q.rows[i] = r
	q.order = append(q.order, i)
	return r
}

func (q *qMatrix) diag() []float64 {
	return q.qd
}

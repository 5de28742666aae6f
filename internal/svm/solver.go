package svm

import "math"

const tau = 1e-12

// solution is the dual solution of a C-SVC problem.
type solution struct {
	alpha      []float64
	rho        float64
	iterations int
	converged  bool
}

// solve runs SMO with second order working set selection on
//
//	min 0.5 a'Qa - e'a  subject to  0 <= a <= C, y'a = 0
//
// starting from a = 0.
func solve(q *qMatrix, y []float64, c, eps float64, maxIter int) solution {
	l := len(y)
	alpha := make([]float64, l)
	grad := make([]float64, l)
	for i := range grad {
		grad[i] = -1
	}
	qd := q.diag()

	upper := func(i int) bool { return alpha[i] >= c }
	lower := func(i int) bool { return alpha[i] <= 0 }

	iter := 0
	converged := false
	for iter < maxIter {
		i, j, done := selectWorkingSet(q, y, alpha, grad, c, eps, upper, lower)
		if done {
			converged = true
			break
		}
		iter++

		qi := q.row(i)
		qj := q.row(j)
		oldI, oldJ := alpha[i], alpha[j]

		if y[i] != y[j] {
			quad := qd[i] + qd[j] + 2*qi[j]
			if quad <= 0 {
				quad = tau
			}
			delta := (-grad[i] - grad[j]) / quad
			diff := alpha[i] - alpha[j]
			alpha[i] += delta
			alpha[j] += delta
			if diff > 0 {
				if alpha[j] < 0 {
					alpha[j] = 0
					alpha[i] = diff
				}
			} else if alpha[i] < 0 {
				alpha[i] = 0
				alpha[j] = -diff
			}
			if diff > 0 {
				if alpha[i] > c {
					alpha[i] = c
					alpha[j] = c - diff
				}
			} else if alpha[j] > c {
				alpha[j] = c
				alpha[i] = c + diff
			}
		} else {
			quad := qd[i] + qd[j] - 2*qi[j]
			if quad <= 0 {
				quad = tau
			}
			delta := (grad[i] - grad[j]) / quad
			sum := alpha[i] + alpha[j]
			alpha[i] -= delta
			alpha[j] += delta
			if sum > c {
				if alpha[i] > c {
					alpha[i] = c
					alpha[j] = sum - c
				}
			} else if alpha[j] < 0 {
				alpha[j] = 0
				alpha[i] = sum
			}
			if sum > c {
				if alpha[j] > c {
					alpha[j] = c
					alpha[i] = sum - c
				}
			} else if alpha[i] < 0 {
				alpha[i] = 0
				alpha[j] = sum
			}
		}

		dI := alpha[i] - oldI
		dJ := alpha[j] - oldJ
		for k := 0; k < l; k++ {
			grad[k] += qi[k]*dI + qj[k]*dJ
		}
	}

	return solution{
		alpha:      alpha,
		rho:        computeRho(y, alpha, grad, upper, lower),
		iterations: iter,
		converged:  converged,
	}
}

func selectWorkingSet(q *qMatrix, y, alpha, grad []float64, c, eps float64, upper, lower func(int) bool) (int, int, bool) {
	gmax := math.Inf(-1)
	gmax2 := math.Inf(-1)
	gmaxIdx, gminIdx := -1, -1
	objDiffMin := math.Inf(1)

	for t := range y {
		if y[t] == 1 {
			if !upper(t) && -grad[t] >= gmax {
				gmax = -grad[t]
				gmaxIdx = t
			}
		} else if !lower(t) && grad[t] >= gmax {
			gmax = grad[t]
			gmaxIdx = t
		}
	}
	if gmaxIdx == -1 {
		return 0, 0, true
	}

	i := gmaxIdx
	qi := q.row(i)
	qd := q.diag()
	for j := range y {
		if y[j] == 1 {
			if lower(j) {
				continue
			}
			gradDiff := gmax + grad[j]
			if grad[j] >= gmax2 {
				gmax2 = grad[j]
			}
			if gradDiff > 0 {
				quad := qd[i] + qd[j] - 2*y[i]*qi[j]
				if quad <= 0 {
					quad = tau
				}
				if obj := -(gradDiff * gradDiff) / quad; obj <= objDiffMin {
					gminIdx = j
					objDiffMin = obj
				}
			}
		} else {
			if upper(j) {
				continue
			}
			gradDiff := gmax - grad[j]
			if -grad[j] >= gmax2 {
				gmax2 = -grad[j]
			}
			if gradDiff > 0 {
				quad := qd[i] + qd[j] + 2*y[i]*qi[j]
				if quad <= 0 {
					quad = tau
				}
				if obj := -(gradDiff * gradDiff) / quad; obj <= objDiffMin {
					gminIdx = j
					objDiffMin = obj
				}
			}
		}
	}

	if gmax+gmax2 < eps || gminIdx == -1 {
		return 0, 0, true
	}
	return i, gminIdx, false
}

func computeRho(y, alpha, grad []float64, upper, lower func(int) bool) float64 {
	ub := math.Inf(1)
	lb := math.Inf(-1)
	sumFree := 0.0
	nFree := 0
	for i := range y {
		yg := y[i] * grad[i]
		switch {
		case upper(i):
			if y[i] == -1 {
				ub = math.Min(ub, yg)
			} else {
				lb = math.Max(lb, yg)
			}
		case lower(i):
			if y[i] == 1 {
				ub = math.Min(ub, yg)
			} else {
				lb = math.Max(lb, yg)
			}
		default:
			nFree++
			sumFree += yg
		}
	}
	if nFree > 0 {
		return sumFree / float64(nFree)
	}
	return (ub + lb) / 2
}

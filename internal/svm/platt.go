package svm

import (
	"math"
	"math/rand"
)

// crossValidatedDecisions returns an out-of-fold decision value for every
// sample. Folds are taken from a seeded permutation so the result is
// reproducible.
func crossValidatedDecisions(x [][]float64, y []float64, p Params, gamma float64) []float64 {
	l := len(y)
	folds := p.ProbabilityFolds
	if folds < 2 {
		folds = 2
	}
	perm := rand.New(rand.NewSource(p.Seed)).Perm(l)
	dec := make([]float64, l)

	for f := 0; f < folds; f++ {
		begin := f * l / folds
		end := (f + 1) * l / folds
		if begin == end {
			continue
		}

		var subX [][]float64
		var subY []float64
		pos, neg := 0, 0
		for k := 0; k < l; k++ {
			if k >= begin && k < end {
				continue
			}
			idx := perm[k]
			subX = append(subX, x[idx])
			subY = append(subY, y[idx])
			if y[idx] > 0 {
				pos++
			} else {
				neg++
			}
		}

		switch {
		case pos == 0 && neg == 0:
			for k := begin; k < end; k++ {
				dec[perm[k]] = 0
			}
		case neg == 0:
			for k := begin; k < end; k++ {
				dec[perm[k]] = 1
			}
		case pos == 0:
			for k := begin; k < end; k++ {
				dec[perm[k]] = -1
			}
		default:
			m := fitBinary(subX, subY, p, gamma)
			for k := begin; k < end; k++ {
				dec[perm[k]] = m.decision(x[perm[k]])
			}
		}
	}
	return dec
}

// sigmoidTrain fits P(y=1|f) = 1/(1+exp(A*f+B)) by Newton's method with
// backtracking line search, using smoothed targets to avoid overfitting.
func sigmoidTrain(dec, y []float64) (float64, float64) {
	const (
		maxIter = 100
		minStep = 1e-10
		sigma   = 1e-12
		eps     = 1e-5
	)

	var prior1, prior0 float64
	for _, v := range y {
		if v > 0 {
			prior1++
		} else {
			prior0++
		}
	}
	hi := (prior1 + 1) / (prior1 + 2)
	lo := 1 / (prior0 + 2)
	t := make([]float64, len(y))
	for i, v := range y {
		if v > 0 {
			t[i] = hi
		} else {
			t[i] = lo
		}
	}

	objective := func(a, b float64) float64 {
		f := 0.0
		for i, d := range dec {
			fApB := d*a + b
			if fApB >= 0 {
				f += t[i]*fApB + math.Log1p(math.Exp(-fApB))
			} else {
				f += (t[i]-1)*fApB + math.Log1p(math.Exp(fApB))
			}
		}
		return f
	}

	a := 0.0
	b := math.Log((prior0 + 1) / (prior1 + 1))
	fval := objective(a, b)

	for iter := 0; iter < maxIter; iter++ {
		h11, h22, h21 := sigma, sigma, 0.0
		g1, g2 := 0.0, 0.0
		for i, d := range dec {
			fApB := d*a + b
			var p, q float64
			if fApB >= 0 {
				e := math.Exp(-fApB)
				p = e / (1 + e)
				q = 1 / (1 + e)
			} else {
				e := math.Exp(fApB)
				p = 1 / (1 + e)
				q = e / (1 + e)
			}
			d2 := p * q
			h11 += d * d * d2
			h22 += d2
			h21 += d * d2
			d1 := t[i] - p
			g1 += d * d1
			g2 += d1
		}
		if math.Abs(g1) < eps && math.Abs(g2) < eps {
			break
		}

		det := h11*h22 - h21*h21
		dA := -(h22*g1 - h21*g2) / det
		dB := -(-h21*g1 + h11*g2) / det
		gd := g1*dA + g2*dB

		step := 1.0
		for step >= minStep {
			na, nb := a+step*dA, b+step*dB
			if nf := objective(na, nb); nf < fval+0.0001*step*gd {
				a, b, fval = na, nb, nf
				break
			}
			step /= 2
		}
		if step < minStep {
			break
		}
	}
	return a, b
}

func sigmoidPredict(dec, a, b float64) float64 {
	fApB := dec*a + b
	if fApB >= 0 {
		e := math.Exp(-fApB)
		return e / (1 + e)
	}
	return 1 / (1 + math.Exp(fApB))
}

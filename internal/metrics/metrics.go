// Package metrics scores binary occupancy predictions.
package metrics

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrLengthMismatch = errors.New("label and prediction counts differ")
	ErrEmpty          = errors.New("no samples to score")
	ErrLabel          = errors.New("label must be 0 or 1")
)

// ClassNames is indexed by label value.
var ClassNames = [2]string{"free", "occupied"}

// ConfusionMatrix counts samples by [true label][predicted label].
type ConfusionMatrix [2][2]int

func Confusion(yTrue, yPred []int) (ConfusionMatrix, error) {
	var cm ConfusionMatrix
	if len(yTrue) != len(yPred) {
		return cm, fmt.Errorf("%w: %d labels, %d predictions", ErrLengthMismatch, len(yTrue), len(yPred))
	}
	for i := range yTrue {
		t, p := yTrue[i], yPred[i]
		if t < 0 || t > 1 || p < 0 || p > 1 {
			return cm, fmt.Errorf("%w: sample %d has true=%d pred=%d", ErrLabel, i, t, p)
		}
		cm[t][p]++
	}
	return cm, nil
}

func (cm ConfusionMatrix) Total() int {
	return cm[0][0] + cm[0][1] + cm[1][0] + cm[1][1]
}

func (cm ConfusionMatrix) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%10s %10s %10s\n", "true\\pred", ClassNames[0], ClassNames[1])
	for t := 0; t < 2; t++ {
		fmt.Fprintf(&b, "%10s %10d %10d\n", ClassNames[t], cm[t][0], cm[t][1])
	}
	return b.String()
}

// Scores holds precision, recall and F1 of one class or an average.
type Scores struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Report is a per-class classification report. Ratios with a zero
// denominator are reported as 0.
type Report struct {
	Classes     [2]Scores       `json:"classes"`
	Accuracy    float64         `json:"accuracy"`
	MacroAvg    Scores          `json:"macro_avg"`
	WeightedAvg Scores          `json:"weighted_avg"`
	Confusion   ConfusionMatrix `json:"confusion"`
}

func Classification(yTrue, yPred []int) (*Report, error) {
	if len(yTrue) == 0 {
		return nil, ErrEmpty
	}
	cm, err := Confusion(yTrue, yPred)
	if err != nil {
		return nil, err
	}
	r := &Report{Confusion: cm}
	total := cm.Total()
	for c := 0; c < 2; c++ {
		tp := cm[c][c]
		predicted := cm[0][c] + cm[1][c]
		actual := cm[c][0] + cm[c][1]
		s := Scores{
			Precision: ratio(tp, predicted),
			Recall:    ratio(tp, actual),
			Support:   actual,
		}
		if s.Precision+s.Recall > 0 {
			s.F1 = 2 * s.Precision * s.Recall / (s.Precision + s.Recall)
		}
		r.Classes[c] = s
	}
	r.Accuracy = ratio(cm[0][0]+cm[1][1], total)

	r.MacroAvg.Support = total
	r.WeightedAvg.Support = total
	for _, s := range r.Classes {
		w := float64(s.Support) / float64(total)
		r.MacroAvg.Precision += s.Precision / 2
		r.MacroAvg.Recall += s.Recall / 2
		r.MacroAvg.F1 += s.F1 / 2
		r.WeightedAvg.Precision += s.Precision * w
		r.WeightedAvg.Recall += s.Recall * w
		r.WeightedAvg.F1 += s.F1 * w
	}
	return r, nil
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

// String renders the report as a fixed-width table.
func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%12s %10s %10s %10s %10s\n\n", "", "precision", "recall", "f1-score", "support")
	for c, s := range r.Classes {
		writeScores(&b, ClassNames[c], s)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%12s %10s %10s %10.2f %10d\n", "accuracy", "", "", r.Accuracy, r.Confusion.Total())
	writeScores(&b, "macro avg", r.MacroAvg)
	writeScores(&b, "weighted avg", r.WeightedAvg)
	return b.String()
}

func writeScores(b *strings.Builder, name string, s Scores) {
	fmt.Fprintf(b, "%12s %10.2f %10.2f %10.2f %10d\n", name, s.Precision, s.Recall, s.F1, s.Support)
}

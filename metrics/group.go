package metrics

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// WorstGroup returns the index and accuracy of the worst-performing group.
// Robust-accuracy reporting tracks this value rather than the mean.
// Returns (-1, NaN) when accs is empty.
func WorstGroup(accs []float64) (int, float64) {
	if len(accs) == 0 {
		return -1, math.NaN()
	}
	idx := floats.MinIdx(accs)
	return idx, accs[idx]
}

// GroupAverage returns the unweighted mean of per-group accuracies.
// Unlike overall accuracy, every group counts equally regardless of size.
func GroupAverage(accs []float64) float64 {
	return stat.Mean(accs, nil)
}

// MeanDifferences returns the mean absolute pairwise difference between
// per-group accuracies. Zero means the model performs identically across
// groups; large values indicate a spurious-correlation gap.
func MeanDifferences(accs []float64) float64 {
	n := len(accs)
	if n < 2 {
		return 0
	}
	sum := 0.0
	pairs := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sum += math.Abs(accs[i] - accs[j])
			pairs++
		}
	}
	return sum / float64(pairs)
}

// F1Score computes the binary F1 score treating class 1 as positive.
// Returns 0 when precision and recall are both undefined or zero.
func F1Score(pred, target []int64) float64 {
	if len(pred) != len(target) {
		panic(fmt.Sprintf("metrics: prediction length %d does not match target length %d", len(pred), len(target)))
	}

	var tp, fp, fn float64
	for i := range pred {
		switch {
		case pred[i] == 1 && target[i] == 1:
			tp++
		case pred[i] == 1 && target[i] != 1:
			fp++
		case pred[i] != 1 && target[i] == 1:
			fn++
		}
	}

	denom := 2*tp + fp + fn
	if denom == 0 {
		return 0
	}
	return 2 * tp / denom
}

// ROCAUC computes the area under the ROC curve for binary classification
// scores. positive marks which samples belong to the positive class.
//
// The curve comes from gonum's stat.ROC over the sorted scores; the area
// is trapezoidal. Returns an error when only one class is present, where
// the curve is undefined.
func ROCAUC(scores []float64, positive []bool) (float64, error) {
	if len(scores) != len(positive) {
		panic(fmt.Sprintf("metrics: score length %d does not match class length %d", len(scores), len(positive)))
	}
	if len(scores) == 0 {
		return 0, fmt.Errorf("roc auc: no samples")
	}

	pos := 0
	for _, p := range positive {
		if p {
			pos++
		}
	}
	if pos == 0 || pos == len(positive) {
		return 0, fmt.Errorf("roc auc: undefined with a single class (%d of %d positive)", pos, len(positive))
	}

	// stat.ROC wants scores ascending with classes aligned.
	y := slices.Clone(scores)
	classes := slices.Clone(positive)
	stat.SortWeightedLabeled(y, classes, nil)

	tpr, fpr, _ := stat.ROC(nil, y, classes, nil)

	// Trapezoidal integration needs ascending x.
	if len(fpr) > 1 && fpr[0] > fpr[len(fpr)-1] {
		floats.Reverse(fpr)
		floats.Reverse(tpr)
	}
	return integrate.Trapezoidal(fpr, tpr), nil
}

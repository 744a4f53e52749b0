// Package metrics provides running meters and classification metrics for
// evaluating models under distribution shift: top-k accuracy, per-group
// summaries, F1 and ROC-AUC for the datasets that report them.
package metrics

import (
	"fmt"

	"github.com/shift-ml/shift/internal/parallel"
	"github.com/shift-ml/shift/internal/tensor"
)

var parCfg = parallel.DefaultConfig()

// Accuracy computes precision@k in percent for each requested k.
//
// output holds float32 logits with shape [batch, classes]; target holds
// integer class labels with shape [batch]. When no ks are given, top-1
// accuracy is returned. Results are ordered like ks.
//
// Ties between equal logits resolve toward the lower class index, matching
// Argmax on the compute backends.
func Accuracy(output, target *tensor.RawTensor, ks ...int) ([]float64, error) {
	if len(ks) == 0 {
		ks = []int{1}
	}

	shape := output.Shape()
	if len(shape) != 2 {
		return nil, fmt.Errorf("accuracy: logits must be 2D [batch, classes], got %dD", len(shape))
	}
	batch, classes := shape[0], shape[1]

	targetShape := target.Shape()
	if len(targetShape) != 1 || targetShape[0] != batch {
		return nil, fmt.Errorf("accuracy: target shape %v does not match batch size %d", targetShape, batch)
	}
	if batch == 0 {
		return nil, fmt.Errorf("accuracy: empty batch")
	}
	if output.DType() != tensor.Float32 {
		return nil, fmt.Errorf("accuracy: logits dtype must be float32, got %s", output.DType())
	}

	maxk := 0
	for _, k := range ks {
		if k < 1 {
			return nil, fmt.Errorf("accuracy: k must be positive, got %d", k)
		}
		if k > maxk {
			maxk = k
		}
	}
	if maxk > classes {
		return nil, fmt.Errorf("accuracy: k %d exceeds class count %d", maxk, classes)
	}

	labels, err := targetLabels(target)
	if err != nil {
		return nil, err
	}

	logits := output.AsFloat32()

	// Rank of the true class within the top maxk predictions per sample,
	// or -1 when it falls outside. Rows are independent.
	ranks := make([]int, batch)
	parallel.For(batch, func(i int) {
		row := logits[i*classes : (i+1)*classes]
		ranks[i] = predictionRank(row, labels[i], maxk)
	}, parCfg)

	results := make([]float64, len(ks))
	for ki, k := range ks {
		correct := parallel.Count(batch, func(i int) bool {
			return ranks[i] >= 0 && ranks[i] < k
		}, parCfg)
		results[ki] = 100 * float64(correct) / float64(batch)
	}
	return results, nil
}

// targetLabels widens the label tensor to int64.
func targetLabels(target *tensor.RawTensor) ([]int64, error) {
	switch target.DType() {
	case tensor.Int64:
		return target.AsInt64(), nil
	case tensor.Int32:
		src := target.AsInt32()
		labels := make([]int64, len(src))
		for i, v := range src {
			labels[i] = int64(v)
		}
		return labels, nil
	default:
		return nil, fmt.Errorf("accuracy: target dtype must be int32 or int64, got %s", target.DType())
	}
}

// predictionRank returns how many classes rank ahead of the true class
// under "largest logit first, ties to the lower index" ordering, or -1
// when the true class is outside the top maxk or out of range.
func predictionRank(row []float32, label int64, maxk int) int {
	if label < 0 || int(label) >= len(row) {
		return -1
	}
	v := row[label]
	rank := 0
	for j, x := range row {
		if x > v || (x == v && int64(j) < label) {
			rank++
			if rank >= maxk {
				return -1
			}
		}
	}
	return rank
}

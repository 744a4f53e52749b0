package metrics

// AverageMeter computes and stores the running average and current value.
//
// Training loops update one meter per tracked quantity (loss, accuracy,
// batch time) and read Avg at logging points:
//
//	losses := metrics.NewAverageMeter()
//	for _, batch := range batches {
//	    loss := trainStep(batch)
//	    losses.Update(loss, batch.Size)
//	}
//	fmt.Printf("epoch loss %.4f\n", losses.Avg)
type AverageMeter struct {
	Val   float64 // Most recent value passed to Update.
	Avg   float64 // Weighted running average.
	Sum   float64 // Weighted sum of all values.
	Count int     // Total weight seen so far.
}

// NewAverageMeter returns a zeroed meter.
func NewAverageMeter() *AverageMeter {
	return &AverageMeter{}
}

// Reset clears the meter back to its initial state.
func (m *AverageMeter) Reset() {
	m.Val = 0
	m.Avg = 0
	m.Sum = 0
	m.Count = 0
}

// Update records val with weight n, typically the batch size.
func (m *AverageMeter) Update(val float64, n int) {
	m.Val = val
	m.Sum += val * float64(n)
	m.Count += n
	m.Avg = m.Sum / float64(m.Count)
}

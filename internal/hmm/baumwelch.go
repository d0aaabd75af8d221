package hmm

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Baum-Welch defaults.
const (
	// DefaultMaxIter caps the number of reestimation rounds.
	DefaultMaxIter = 10
	// DefaultThreshold is the relative log-likelihood change treated as converged.
	DefaultThreshold = 1e-4
	// epsilon keeps the relative change defined when both likelihoods are zero.
	epsilon = 2.2204e-16
)

// TrainOptions controls Baum-Welch reestimation.
type TrainOptions struct {
	// MaxIter is the iteration cap (default: 10).
	MaxIter int
	// Threshold is the relative log-likelihood change below which training stops (default: 1e-4).
	Threshold float64
	// Progress, if set, is called after every iteration.
	Progress func(iteration int, logLikelihood float64)
}

// DefaultTrainOptions returns TrainOptions with the default cap and threshold.
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		MaxIter:   DefaultMaxIter,
		Threshold: DefaultThreshold,
	}
}

// TrainResult summarizes a Baum-Welch run.
type TrainResult struct {
	Iterations    int
	LogLikelihood float64
	Converged     bool
}

// Train reestimates m in place from a single observation sequence using
// Baum-Welch. It stops after MaxIter rounds or once the relative change in
// log-likelihood drops below Threshold.
func (m *Model) Train(obs []int, opts TrainOptions) (TrainResult, error) {
	if opts.MaxIter <= 0 {
		opts.MaxIter = DefaultMaxIter
	}
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}

	var result TrainResult
	prev := epsilon
	for iter := 1; iter <= opts.MaxIter; iter++ {
		gamma, xiSum, ll, err := ForwardBackward(m, obs)
		if err != nil {
			return result, err
		}

		// Expected emission counts, one row per symbol.
		emit := mat.NewDense(m.M, m.N, nil)
		for t, o := range obs {
			row := emit.RawRowView(o)
			for i, g := range gamma.RawRowView(t) {
				row[i] += g
			}
		}

		m.A.Copy(xiSum)
		makeStochastic(m.A)

		m.B.Copy(emit.T())
		makeStochastic(m.B)

		visit := m.Pi.RawRowView(0)
		copy(visit, gamma.RawRowView(0))
		normalize(visit)

		result.Iterations = iter
		result.LogLikelihood = ll
		result.Converged = converged(ll, prev, opts.Threshold)
		if opts.Progress != nil {
			opts.Progress(iter, ll)
		}
		if result.Converged {
			break
		}
		prev = ll
	}

	return result, nil
}

// converged reports whether the relative change between curr and prev is
// below threshold.
func converged(curr, prev, threshold float64) bool {
	delta := math.Abs(curr - prev)
	avg := (math.Abs(curr) + math.Abs(prev) + epsilon) / 2
	return delta/avg < threshold
}

package hmm

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrEmpty is returned when an operation needs at least one observation.
var ErrEmpty = errors.New("hmm: empty observation sequence")

// checkObservations verifies every symbol lies in [0, M).
func (m *Model) checkObservations(obs []int) error {
	for t, o := range obs {
		if o < 0 || o >= m.M {
			return fmt.Errorf("%w: obs[%d]=%d, alphabet size %d", ErrSymbol, t, o, m.M)
		}
	}
	return nil
}

// emissionColumns returns B's columns indexed by symbol.
func (m *Model) emissionColumns() [][]float64 {
	cols := make([][]float64, m.M)
	for k := range cols {
		cols[k] = mat.Col(nil, k, m.B)
	}
	return cols
}

// Forward runs the scaled forward recursion over obs. Each row of the
// returned T×N alpha matrix is normalized to sum to 1, and the
// log-likelihood is the sum of the logs of the per-step scale factors.
//
// An empty sequence yields a log-likelihood of 0 and a nil alpha.
func Forward(m *Model, obs []int) (float64, *mat.Dense, error) {
	if err := m.checkObservations(obs); err != nil {
		return 0, nil, err
	}
	if len(obs) == 0 {
		return 0, nil, nil
	}

	ll, alpha := m.forward(obs, m.emissionColumns())
	return ll, alpha, nil
}

func (m *Model) forward(obs []int, bcols [][]float64) (float64, *mat.Dense) {
	alpha := mat.NewDense(len(obs), m.N, nil)
	next := mat.NewVecDense(m.N, nil)

	var ll float64
	for t, o := range obs {
		row := alpha.RawRowView(t)
		if t == 0 {
			copy(row, m.Pi.RawRowView(0))
		} else {
			next.MulVec(m.A.T(), mat.NewVecDense(m.N, alpha.RawRowView(t-1)))
			copy(row, next.RawVector().Data)
		}
		floats.Mul(row, bcols[o])

		// A zero scale factor drives the likelihood to -Inf and the row stays zero.
		ll += math.Log(normalize(row))
	}
	return ll, alpha
}

// ForwardBackward runs the scaled forward and backward recursions over obs
// and returns the T×N state occupation posteriors, the N×N transition
// posteriors summed over time and the log-likelihood of obs.
func ForwardBackward(m *Model, obs []int) (gamma, xiSum *mat.Dense, ll float64, err error) {
	if err := m.checkObservations(obs); err != nil {
		return nil, nil, 0, err
	}
	if len(obs) == 0 {
		return nil, nil, 0, ErrEmpty
	}

	bcols := m.emissionColumns()
	ll, alpha := m.forward(obs, bcols)

	T, n := len(obs), m.N
	beta := mat.NewDense(T, n, nil)
	gamma = mat.NewDense(T, n, nil)
	xiSum = mat.NewDense(n, n, nil)

	// Last step: beta is all ones so gamma is the normalized alpha.
	last := beta.RawRowView(T - 1)
	for i := range last {
		last[i] = 1
	}
	posterior(gamma.RawRowView(T-1), alpha.RawRowView(T-1), last)

	tmp := mat.NewVecDense(n, nil)
	prod := mat.NewVecDense(n, nil)
	xi := mat.NewDense(n, n, nil)
	for t := T - 2; t >= 0; t-- {
		// tmp = beta[t+1] .* b(O[t+1])
		floats.MulTo(tmp.RawVector().Data, beta.RawRowView(t+1), bcols[obs[t+1]])

		prod.MulVec(m.A, tmp)
		row := beta.RawRowView(t)
		copy(row, prod.RawVector().Data)
		normalize(row)

		posterior(gamma.RawRowView(t), alpha.RawRowView(t), row)

		// xi = A .* (alpha[t] ⊗ tmp), normalized over all entries.
		xi.Outer(1, mat.NewVecDense(n, alpha.RawRowView(t)), tmp)
		xi.MulElem(xi, m.A)
		if s := mat.Sum(xi); s != 0 {
			xi.Scale(1/s, xi)
		}
		xiSum.Add(xiSum, xi)
	}

	return gamma, xiSum, ll, nil
}

// posterior writes the normalized element-wise product of alpha and beta to dst.
func posterior(dst, alpha, beta []float64) {
	floats.MulTo(dst, alpha, beta)
	normalize(dst)
}

// Score returns the log-likelihood of obs under m.
func Score(m *Model, obs []int) (float64, error) {
	ll, _, err := Forward(m, obs)
	return ll, err
}

// Package hmm implements discrete hidden Markov models with a left-to-right
// (Bakis) topology, scaled forward/backward passes and Baum-Welch training.
package hmm

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Default topology parameters for a freshly initialized model.
const (
	// DefaultStay is the initial probability of remaining in a state.
	DefaultStay = 0.8
	// DefaultAdvance is the initial probability of moving to the next state.
	DefaultAdvance = 0.2
	// stochasticTolerance bounds how far a row sum may drift from 1.
	stochasticTolerance = 1e-6
)

var (
	// ErrShape is returned when matrix dimensions disagree with the model size.
	ErrShape = errors.New("hmm: matrix shape mismatch")
	// ErrSymbol is returned when an observation lies outside the alphabet.
	ErrSymbol = errors.New("hmm: observation symbol out of range")
)

// Model is a discrete HMM with N states and an alphabet of M symbols.
//
// A is N×N, B is N×M (one emission row per state) and Pi is 1×N.
type Model struct {
	N  int
	M  int
	A  *mat.Dense
	B  *mat.Dense
	Pi *mat.Dense
}

// NewBakis creates a left-to-right model with n states over m symbols.
// Every state but the last stays with probability pStay and advances with
// probability pAdvance; the last state is absorbing. Emissions start uniform
// and the chain always begins in state 0.
func NewBakis(n, m int, pStay, pAdvance float64) *Model {
	if n <= 0 || m <= 0 {
		panic(fmt.Sprintf("hmm: invalid model size %dx%d", n, m))
	}

	a := mat.NewDense(n, n, nil)
	for i := 0; i < n-1; i++ {
		a.Set(i, i, pStay)
		a.Set(i, i+1, pAdvance)
	}
	a.Set(n-1, n-1, 1)

	uniform := make([]float64, n*m)
	for i := range uniform {
		uniform[i] = 1 / float64(m)
	}

	pi := mat.NewDense(1, n, nil)
	pi.Set(0, 0, 1)

	return &Model{
		N:  n,
		M:  m,
		A:  a,
		B:  mat.NewDense(n, m, uniform),
		Pi: pi,
	}
}

// Clone returns a deep copy of the model.
func (m *Model) Clone() *Model {
	return &Model{
		N:  m.N,
		M:  m.M,
		A:  mat.DenseCopyOf(m.A),
		B:  mat.DenseCopyOf(m.B),
		Pi: mat.DenseCopyOf(m.Pi),
	}
}

// CheckShape verifies that A, B and Pi match the declared N and M.
func (m *Model) CheckShape() error {
	if m.N <= 0 || m.M <= 0 {
		return fmt.Errorf("%w: N=%d M=%d", ErrShape, m.N, m.M)
	}
	if m.A == nil || m.B == nil || m.Pi == nil {
		return fmt.Errorf("%w: missing matrix", ErrShape)
	}
	if r, c := m.A.Dims(); r != m.N || c != m.N {
		return fmt.Errorf("%w: A is %dx%d, want %dx%d", ErrShape, r, c, m.N, m.N)
	}
	if r, c := m.B.Dims(); r != m.N || c != m.M {
		return fmt.Errorf("%w: b is %dx%d, want %dx%d", ErrShape, r, c, m.N, m.M)
	}
	if r, c := m.Pi.Dims(); r != 1 || c != m.N {
		return fmt.Errorf("%w: pi is %dx%d, want 1x%d", ErrShape, r, c, m.N)
	}
	return nil
}

// IsStochastic reports whether every row of A, B and Pi sums to 1 within
// tolerance. All-zero rows are accepted.
func (m *Model) IsStochastic() bool {
	for _, d := range []*mat.Dense{m.A, m.B, m.Pi} {
		r, _ := d.Dims()
		for i := 0; i < r; i++ {
			s := floats.Sum(d.RawRowView(i))
			if s != 0 && math.Abs(s-1) > stochasticTolerance {
				return false
			}
		}
	}
	return true
}

// IsLeftToRight reports whether A only allows self loops and single-step
// advances and the final state is absorbing.
func (m *Model) IsLeftToRight() bool {
	for i := 0; i < m.N; i++ {
		for j := 0; j < m.N; j++ {
			if j != i && j != i+1 && m.A.At(i, j) != 0 {
				return false
			}
		}
	}
	return m.A.At(m.N-1, m.N-1) == 1
}

// String renders the model parameters for diagnostics.
func (m *Model) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "N=%d M=%d\n", m.N, m.M)
	fmt.Fprintf(&sb, "pi:\n%v\n", mat.Formatted(m.Pi, mat.Squeeze()))
	fmt.Fprintf(&sb, "A:\n%v\n", mat.Formatted(m.A, mat.Squeeze()))
	fmt.Fprintf(&sb, "b:\n%v\n", mat.Formatted(m.B, mat.Squeeze()))
	return sb.String()
}

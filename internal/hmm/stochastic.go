package hmm

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// normalize scales v in place so it sums to 1 and returns the original sum.
// A zero vector is left untouched.
func normalize(v []float64) float64 {
	s := floats.Sum(v)
	if s == 0 {
		return 0
	}
	floats.Scale(1/s, v)
	return s
}

// makeStochastic normalizes every row of d in place.
func makeStochastic(d *mat.Dense) {
	r, _ := d.Dims()
	for i := 0; i < r; i++ {
		normalize(d.RawRowView(i))
	}
}

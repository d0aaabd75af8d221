package gesture

import (
	"math"
)

// DefaultSymbols is the default direction alphabet size.
const DefaultSymbols = 8

// Parametrize converts a trajectory into direction symbols. Each pair of
// consecutive points yields the angle of their difference, quantized into
// one of symbols equal sectors centered on 0°. The result has one symbol
// fewer than points; a trajectory with fewer than two points yields none.
func Parametrize(points []Point, symbols int) []int {
	if len(points) < 2 || symbols <= 0 {
		return nil
	}

	step := 360 / float64(symbols)
	obs := make([]int, len(points)-1)
	for i := range obs {
		d := points[i+1].Sub(points[i])
		theta := math.Atan2(float64(d.Y), float64(d.X)) * 180 / math.Pi
		if theta < 0 {
			theta += 360
		}
		obs[i] = int(math.RoundToEven(theta/step)) % symbols
	}
	return obs
}

// Concat lays observation sequences end to end.
func Concat(seqs ...[]int) []int {
	var n int
	for _, s := range seqs {
		n += len(s)
	}
	out := make([]int, 0, n)
	for _, s := range seqs {
		out = append(out, s...)
	}
	return out
}

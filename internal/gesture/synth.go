package gesture

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// SynthConfig controls training corpus synthesis.
type SynthConfig struct {
	// Variants is the number of noisy copies made of a prototype.
	Variants int `yaml:"variants"`
	// StdX is the standard deviation of the horizontal noise in pixels.
	StdX float64 `yaml:"std_x"`
	// StdY is the standard deviation of the vertical noise in pixels.
	StdY float64 `yaml:"std_y"`
}

// DefaultSynthConfig returns the standard synthesis settings.
func DefaultSynthConfig() SynthConfig {
	return SynthConfig{
		Variants: 50,
		StdX:     6,
		StdY:     4,
	}
}

// Synthesizer produces noisy variants of a prototype trajectory.
// A Synthesizer is not safe for concurrent use.
type Synthesizer struct {
	cfg    SynthConfig
	noiseX distuv.Normal
	noiseY distuv.Normal
}

// NewSynthesizer creates a Synthesizer. A zero seed picks a random one.
func NewSynthesizer(cfg SynthConfig, seed uint64) *Synthesizer {
	if seed == 0 {
		seed = rand.Uint64()
	}
	src := rand.NewPCG(seed, seed>>1|1)

	return &Synthesizer{
		cfg:    cfg,
		noiseX: distuv.Normal{Mu: 0, Sigma: cfg.StdX, Src: src},
		noiseY: distuv.Normal{Mu: 0, Sigma: cfg.StdY, Src: src},
	}
}

// Variant returns one copy of proto with independent zero-mean Gaussian
// noise added to every point. Offsets are truncated toward zero.
func (s *Synthesizer) Variant(proto []Point) []Point {
	out := make([]Point, len(proto))
	for i, p := range proto {
		out[i] = Point{
			X: p.X + int(s.noiseX.Rand()),
			Y: p.Y + int(s.noiseY.Rand()),
		}
	}
	return out
}

// Corpus parametrizes Variants noisy copies of proto and concatenates the
// resulting observation sequences.
func (s *Synthesizer) Corpus(proto []Point, symbols int) []int {
	seqs := make([][]int, s.cfg.Variants)
	for i := range seqs {
		seqs[i] = Parametrize(s.Variant(proto), symbols)
	}
	return Concat(seqs...)
}

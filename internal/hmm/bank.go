package hmm

import (
	"math"
)

// NoMatch is the class index reported when no model yields a valid score.
const NoMatch = -1

// ScorePolicy decides which log-likelihoods take part in classification.
type ScorePolicy struct {
	// MaxValid is the largest accepted log-likelihood. A proper model never
	// scores above 0, so larger values indicate numerical breakdown.
	MaxValid float64
	// Min is the smallest accepted log-likelihood. Scores below it are discarded.
	Min float64
}

// DefaultScorePolicy rejects scores above 1 and accepts everything else
// that is not NaN, including -Inf candidates that then never win.
func DefaultScorePolicy() ScorePolicy {
	return ScorePolicy{
		MaxValid: 1,
		Min:      math.Inf(-1),
	}
}

// Valid reports whether score may take part in arg-max selection.
func (p ScorePolicy) Valid(score float64) bool {
	if math.IsNaN(score) {
		return false
	}
	return score <= p.MaxValid && score >= p.Min
}

// Candidate is the score of one model in a classification pass.
type Candidate struct {
	Index         int
	LogLikelihood float64
	Valid         bool
}

// Bank is an ordered collection of models, one per gesture class. A
// model's position in the bank is its class index.
type Bank []*Model

// Symbols returns the alphabet size shared by the bank, or 0 if empty.
func (b Bank) Symbols() int {
	if len(b) == 0 {
		return 0
	}
	return b[0].M
}

// Classify scores obs against every model and returns the index of the
// best valid score together with all candidate scores. It returns NoMatch
// for an empty observation sequence or when every score is invalid. A model
// that cannot score obs (symbol out of its alphabet) is an invalid candidate.
func (b Bank) Classify(obs []int, policy ScorePolicy) (int, []Candidate) {
	candidates := make([]Candidate, len(b))
	if len(obs) == 0 {
		for i := range candidates {
			candidates[i] = Candidate{Index: i, LogLikelihood: math.NaN()}
		}
		return NoMatch, candidates
	}

	best := NoMatch
	bestScore := math.Inf(-1)
	for i, m := range b {
		ll, err := Score(m, obs)
		if err != nil {
			ll = math.NaN()
		}
		valid := policy.Valid(ll)
		candidates[i] = Candidate{Index: i, LogLikelihood: ll, Valid: valid}

		// Ties keep the lower index; -Inf never wins.
		if valid && ll > bestScore {
			best, bestScore = i, ll
		}
	}

	return best, candidates
}

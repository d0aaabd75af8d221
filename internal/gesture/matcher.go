package gesture

import (
	"math"
	"strconv"

	"github.com/ayusman/mudra/internal/hmm"
)

// Match is the outcome of classifying one trajectory.
type Match struct {
	// Class is the winning class index, or hmm.NoMatch.
	Class int
	// Name is the winning class name, empty on no match.
	Name string
	// Score is the winning log-likelihood, -Inf on no match.
	Score float64
	// Observations is the symbol sequence that was scored.
	Observations []int
	// Candidates holds every model's score in class order.
	Candidates []hmm.Candidate
}

// Matched reports whether a class was selected.
func (m Match) Matched() bool {
	return m.Class != hmm.NoMatch
}

// Matcher classifies trajectories against a model bank. It holds no
// mutable state, so one Matcher may serve many goroutines.
type Matcher struct {
	bank   hmm.Bank
	names  []string
	policy hmm.ScorePolicy
}

// NewMatcher creates a Matcher over bank. names[i] labels class i;
// missing names fall back to the class index.
func NewMatcher(bank hmm.Bank, names []string, policy hmm.ScorePolicy) *Matcher {
	return &Matcher{
		bank:   bank,
		names:  names,
		policy: policy,
	}
}

// Bank returns the underlying model bank.
func (m *Matcher) Bank() hmm.Bank {
	return m.bank
}

// Symbols returns the alphabet size the bank was trained with.
func (m *Matcher) Symbols() int {
	if s := m.bank.Symbols(); s > 0 {
		return s
	}
	return DefaultSymbols
}

// Name returns the label of class i.
func (m *Matcher) Name(i int) string {
	if i < 0 {
		return ""
	}
	if i < len(m.names) && m.names[i] != "" {
		return m.names[i]
	}
	return strconv.Itoa(i)
}

// Names returns the class labels in class order.
func (m *Matcher) Names() []string {
	out := make([]string, len(m.bank))
	for i := range out {
		out[i] = m.Name(i)
	}
	return out
}

// Match parametrizes points and classifies the result.
func (m *Matcher) Match(points []Point) Match {
	return m.Classify(Parametrize(points, m.Symbols()))
}

// Classify scores an observation sequence against every model.
func (m *Matcher) Classify(obs []int) Match {
	class, candidates := m.bank.Classify(obs, m.policy)

	match := Match{
		Class:        class,
		Name:         m.Name(class),
		Score:        math.Inf(-1),
		Observations: obs,
		Candidates:   candidates,
	}
	if class != hmm.NoMatch {
		match.Score = candidates[class].LogLikelihood
	}
	return match
}

package app

import (
	"fmt"
	"sync"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/hmm"
)

// Recognizer holds the active model bank. The bank can be swapped while
// apps classify against it; each classification sees one consistent bank.
type Recognizer struct {
	policy hmm.ScorePolicy

	mu      sync.RWMutex
	matcher *gesture.Matcher
	source  string
}

// NewRecognizer creates a Recognizer with no bank loaded.
func NewRecognizer(policy hmm.ScorePolicy) *Recognizer {
	return &Recognizer{policy: policy}
}

// Set installs bank with its class names. source identifies where the bank
// came from, such as a file path or a stored bank ID.
func (r *Recognizer) Set(bank hmm.Bank, names []string, source string) {
	m := gesture.NewMatcher(bank, names, r.policy)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.matcher = m
	r.source = source
}

// LoadFile reads a bank file and installs it. Class names default to indices.
func (r *Recognizer) LoadFile(path string) error {
	bank, err := hmm.LoadBank(path)
	if err != nil {
		return fmt.Errorf("failed to load model bank %s: %w", path, err)
	}
	r.Set(bank, nil, path)
	return nil
}

// Matcher returns the active matcher, or nil if no bank is loaded.
func (r *Recognizer) Matcher() *gesture.Matcher {
	m, _ := r.Active()
	return m
}

// Active returns the active matcher and its source under one lock, so the
// source always names the bank the matcher scores against.
func (r *Recognizer) Active() (*gesture.Matcher, string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.matcher, r.source
}

// Source returns where the active bank came from.
func (r *Recognizer) Source() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.source
}

// Ready reports whether a bank is loaded.
func (r *Recognizer) Ready() bool {
	return r.Matcher() != nil
}

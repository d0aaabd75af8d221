package gesture

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ayusman/mudra/internal/hmm"
)

// TrainOptions controls how prototypes become models.
type TrainOptions struct {
	// Symbols is the direction alphabet size (default: 8).
	Symbols int
	// Stay and Advance seed the left-to-right transitions.
	Stay    float64
	Advance float64
	// Synth controls the noisy corpus built from each prototype.
	Synth SynthConfig
	// HMM controls Baum-Welch reestimation.
	HMM hmm.TrainOptions
	// Seed makes synthesis reproducible. Class i uses Seed+i. Zero picks a random seed.
	Seed uint64
	// Workers caps how many classes train at once (default: GOMAXPROCS).
	Workers int
}

// DefaultTrainOptions returns TrainOptions with the standard settings.
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		Symbols: DefaultSymbols,
		Stay:    hmm.DefaultStay,
		Advance: hmm.DefaultAdvance,
		Synth:   DefaultSynthConfig(),
		HMM:     hmm.DefaultTrainOptions(),
	}
}

// Report summarizes training of one class.
type Report struct {
	Class        int
	Name         string
	States       int
	Observations int
	Result       hmm.TrainResult
	Duration     time.Duration
}

// Trainer builds HMMs from prototype trajectories.
type Trainer struct {
	opts   TrainOptions
	logger *slog.Logger
}

// NewTrainer creates a new Trainer instance.
func NewTrainer(opts TrainOptions, logger *slog.Logger) *Trainer {
	if opts.Symbols <= 0 {
		opts.Symbols = DefaultSymbols
	}
	if opts.Stay == 0 && opts.Advance == 0 {
		opts.Stay, opts.Advance = hmm.DefaultStay, hmm.DefaultAdvance
	}
	if opts.Synth.Variants <= 0 {
		opts.Synth.Variants = DefaultSynthConfig().Variants
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Trainer{opts: opts, logger: logger}
}

// Symbols returns the alphabet size of trained models.
func (t *Trainer) Symbols() int {
	return t.opts.Symbols
}

// Train builds one model from proto, using seed for synthesis.
func (t *Trainer) Train(proto *Prototype, seed uint64) (*hmm.Model, Report, error) {
	report := Report{Name: proto.Name, States: proto.States}
	if err := proto.Validate(); err != nil {
		return nil, report, err
	}

	start := time.Now()
	corpus := NewSynthesizer(t.opts.Synth, seed).Corpus(proto.Points, t.opts.Symbols)
	report.Observations = len(corpus)

	m := hmm.NewBakis(proto.States, t.opts.Symbols, t.opts.Stay, t.opts.Advance)
	result, err := m.Train(corpus, t.opts.HMM)
	if err != nil {
		return nil, report, fmt.Errorf("failed to train %q: %w", proto.Name, err)
	}

	report.Result = result
	report.Duration = time.Since(start)
	return m, report, nil
}

// TrainBank trains one model per prototype concurrently. The model for
// protos[i] lands at index i of the bank.
func (t *Trainer) TrainBank(ctx context.Context, protos []*Prototype) (hmm.Bank, []Report, error) {
	if len(protos) == 0 {
		return nil, nil, fmt.Errorf("no prototypes provided")
	}

	base := t.opts.Seed
	if base == 0 {
		base = rand.Uint64()
	}

	workers := t.opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	bank := make(hmm.Bank, len(protos))
	reports := make([]Report, len(protos))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, proto := range protos {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			m, report, err := t.Train(proto, base+uint64(i))
			if err != nil {
				return fmt.Errorf("class %d: %w", i, err)
			}
			report.Class = i
			bank[i] = m
			reports[i] = report

			t.logger.Debug("trained gesture model",
				"class", i,
				"name", proto.Name,
				"states", proto.States,
				"observations", report.Observations,
				"iterations", report.Result.Iterations,
				"log_likelihood", report.Result.LogLikelihood,
				"converged", report.Result.Converged,
				"duration", report.Duration,
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return bank, reports, nil
}

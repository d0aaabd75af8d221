package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/mudra/internal/gesture"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// Fields missing from the file keep their [Default] values.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r over the defaults and
// validates the result.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Capture
	if err := cfg.Capture.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("capture: %w", err))
	}

	// Model
	if cfg.Model.Symbols < 2 {
		errs = append(errs, fmt.Errorf("model.symbols must be at least 2, got %d", cfg.Model.Symbols))
	}
	if err := gesture.CheckStates(cfg.Model.States); err != nil {
		errs = append(errs, fmt.Errorf("model.states: %w", err))
	}
	if cfg.Model.Stay < 0 || cfg.Model.Advance < 0 || math.Abs(cfg.Model.Stay+cfg.Model.Advance-1) > 1e-9 {
		errs = append(errs, fmt.Errorf("model.stay (%v) and model.advance (%v) must be non-negative and sum to 1", cfg.Model.Stay, cfg.Model.Advance))
	}

	// Training
	if cfg.Training.Synth.Variants < 1 {
		errs = append(errs, fmt.Errorf("training.variants must be positive, got %d", cfg.Training.Synth.Variants))
	}
	if cfg.Training.Synth.StdX < 0 || cfg.Training.Synth.StdY < 0 {
		errs = append(errs, fmt.Errorf("training.std_x and training.std_y must not be negative"))
	}
	if cfg.Training.MaxIter < 1 {
		errs = append(errs, fmt.Errorf("training.max_iter must be positive, got %d", cfg.Training.MaxIter))
	}
	if cfg.Training.Threshold <= 0 {
		errs = append(errs, fmt.Errorf("training.threshold must be positive, got %v", cfg.Training.Threshold))
	}
	if cfg.Training.Workers < 0 {
		errs = append(errs, fmt.Errorf("training.workers must not be negative, got %d", cfg.Training.Workers))
	}

	// Classifier
	if math.IsNaN(cfg.Classifier.MaxValidScore) || math.IsNaN(cfg.Classifier.MinScore) || cfg.Classifier.MinScore > cfg.Classifier.MaxValidScore {
		errs = append(errs, fmt.Errorf("classifier.min_score (%v) must not exceed classifier.max_valid_score (%v)", cfg.Classifier.MinScore, cfg.Classifier.MaxValidScore))
	}

	return errors.Join(errs...)
}

// Package config defines the mudra configuration file and its defaults.
package config

import (
	"log/slog"
	"math"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/hmm"
)

// LogLevel is the minimum level written by the logger.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a known level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Level converts l to a [slog.Level]. Unknown levels map to info.
func (l LogLevel) Level() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config is the root configuration.
type Config struct {
	Server     ServerConfig          `yaml:"server"`
	Capture    gesture.CaptureConfig `yaml:"capture"`
	Model      ModelConfig           `yaml:"model"`
	Training   TrainingConfig        `yaml:"training"`
	Classifier ClassifierConfig      `yaml:"classifier"`
}

// ServerConfig configures the HTTP server and process-wide settings.
type ServerConfig struct {
	// ListenAddr is the HTTP listen address (default: ":8080").
	ListenAddr string `yaml:"listen_addr"`
	// LogLevel is one of debug, info, warn, error (default: info).
	LogLevel LogLevel `yaml:"log_level"`
	// StaticDir holds the web UI files. Empty searches the usual locations.
	StaticDir string `yaml:"static_dir"`
	// DBPath is the SQLite database file (default: "mudra.db").
	DBPath string `yaml:"db_path"`
	// Metrics enables the Prometheus /metrics endpoint.
	Metrics bool `yaml:"metrics"`
}

// ModelConfig configures model topology and the bank loaded at startup.
type ModelConfig struct {
	// Symbols is the direction alphabet size (default: 8).
	Symbols int `yaml:"symbols"`
	// States is the state count for prototype files without N (default: 1).
	States int `yaml:"states"`
	// Stay is the initial self-transition probability (default: 0.8).
	Stay float64 `yaml:"stay"`
	// Advance is the initial forward-transition probability (default: 0.2).
	Advance float64 `yaml:"advance"`
	// BankPath is an optional model bank file loaded at startup.
	BankPath string `yaml:"bank_path"`
}

// TrainingConfig configures corpus synthesis and Baum-Welch.
type TrainingConfig struct {
	Synth gesture.SynthConfig `yaml:",inline"`
	// MaxIter caps Baum-Welch iterations (default: 10).
	MaxIter int `yaml:"max_iter"`
	// Threshold is the relative log-likelihood change treated as converged (default: 1e-4).
	Threshold float64 `yaml:"threshold"`
	// Seed makes synthesis reproducible; zero picks a random seed.
	Seed uint64 `yaml:"seed"`
	// Workers caps concurrent class training; zero uses GOMAXPROCS.
	Workers int `yaml:"workers"`
}

// ClassifierConfig bounds the log-likelihoods that may win classification.
type ClassifierConfig struct {
	// MaxValidScore is the largest accepted log-likelihood (default: 1).
	MaxValidScore float64 `yaml:"max_valid_score"`
	// MinScore is the smallest accepted log-likelihood (default: -.inf).
	MinScore float64 `yaml:"min_score"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: ":8080",
			LogLevel:   LogInfo,
			DBPath:     "mudra.db",
		},
		Capture: gesture.DefaultCaptureConfig(),
		Model: ModelConfig{
			Symbols: gesture.DefaultSymbols,
			States:  gesture.DefaultStates,
			Stay:    hmm.DefaultStay,
			Advance: hmm.DefaultAdvance,
		},
		Training: TrainingConfig{
			Synth:     gesture.DefaultSynthConfig(),
			MaxIter:   hmm.DefaultMaxIter,
			Threshold: hmm.DefaultThreshold,
		},
		Classifier: ClassifierConfig{
			MaxValidScore: 1,
			MinScore:      math.Inf(-1),
		},
	}
}

// TrainOptions converts the model and training sections into trainer options.
func (c *Config) TrainOptions() gesture.TrainOptions {
	return gesture.TrainOptions{
		Symbols: c.Model.Symbols,
		Stay:    c.Model.Stay,
		Advance: c.Model.Advance,
		Synth:   c.Training.Synth,
		HMM: hmm.TrainOptions{
			MaxIter:   c.Training.MaxIter,
			Threshold: c.Training.Threshold,
		},
		Seed:    c.Training.Seed,
		Workers: c.Training.Workers,
	}
}

// ScorePolicy converts the classifier section into a score policy.
func (c *Config) ScorePolicy() hmm.ScorePolicy {
	return hmm.ScorePolicy{
		MaxValid: c.Classifier.MaxValidScore,
		Min:      c.Classifier.MinScore,
	}
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/detector"
)

// replayResult is one recognized gesture, printed as a JSON line.
type replayResult struct {
	Source  string   `json:"source"`
	T       int64    `json:"t"`
	Matched bool     `json:"matched"`
	Class   int      `json:"class"`
	Name    string   `json:"name,omitempty"`
	Score   *float64 `json:"score"`
	Points  int      `json:"points"`
	Symbols []int    `json:"observations"`
}

func runReplay(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("replay", stderr)
	configPath := fs.String("config", "", "path to the YAML configuration file")
	bankPath := fs.String("bank", "", "model bank file (overrides model.bank_path)")
	names := fs.String("names", "", "comma-separated class names in bank order")
	realtime := fs.Bool("realtime", false, "pace frames by their recorded timestamps")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: mudra replay [flags] frames.jsonl...")
		fs.PrintDefaults()
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fail(stderr, "%v", err)
	}
	if *bankPath != "" {
		cfg.Model.BankPath = *bankPath
	}
	if cfg.Model.BankPath == "" {
		return fail(stderr, "no model bank given; use -bank or model.bank_path")
	}

	recognizer := app.NewRecognizer(cfg.ScorePolicy())
	if err := recognizer.LoadFile(cfg.Model.BankPath); err != nil {
		return fail(stderr, "%v", err)
	}
	if n := splitNames(*names); n != nil {
		recognizer.Set(recognizer.Matcher().Bank(), n, cfg.Model.BankPath)
	}

	var opts []detector.ReplayOption
	if *realtime {
		opts = append(opts, detector.WithRealtime())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger := newLogger(cfg.Server.LogLevel, stderr)
	enc := json.NewEncoder(stdout)

	for _, path := range fs.Args() {
		d, err := detector.OpenReplay(path, opts...)
		if err != nil {
			return fail(stderr, "%v", err)
		}

		a := app.New(app.Config{
			Capture:    cfg.Capture,
			Recognizer: recognizer,
			Logger:     logger.With("source", path),
		})
		a.AddListener(app.ListenerFunc(func(_ context.Context, r app.Result) {
			out := replayResult{
				Source:  path,
				T:       r.Timestamp,
				Matched: r.Match.Matched(),
				Class:   r.Match.Class,
				Name:    r.Match.Name,
				Points:  len(r.Trajectory),
				Symbols: r.Match.Observations,
			}
			if out.Matched {
				score := r.Match.Score
				out.Score = &score
			}
			enc.Encode(out)
		}))

		err = a.Run(ctx, d)
		d.Close()
		if err != nil {
			return fail(stderr, "%s: %v", path, err)
		}
	}
	return 0
}

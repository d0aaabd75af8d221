package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/hmm"
)

func runTrain(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("train", stderr)
	configPath := fs.String("config", "", "path to the YAML configuration file")
	out := fs.String("o", "bank.yml", "output model bank file")
	seed := fs.Uint64("seed", 0, "synthesis seed (overrides training.seed)")
	workers := fs.Int("workers", 0, "concurrent class trainers (overrides training.workers)")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: mudra train [flags] prototype.yml...")
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
	opts := cfg.TrainOptions()
	if *seed != 0 {
		opts.Seed = *seed
	}
	if *workers != 0 {
		opts.Workers = *workers
	}

	protos, err := gesture.LoadPrototypes(cfg.Model.States, fs.Args()...)
	if err != nil {
		return fail(stderr, "%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger := newLogger(cfg.Server.LogLevel, stderr)
	bank, reports, err := gesture.NewTrainer(opts, logger).TrainBank(ctx, protos)
	if err != nil {
		return fail(stderr, "%v", err)
	}
	if err := hmm.SaveBank(*out, bank); err != nil {
		return fail(stderr, "%v", err)
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CLASS\tNAME\tSTATES\tOBS\tITER\tLOG-LIKELIHOOD\tCONVERGED")
	for _, r := range reports {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%s\t%t\n",
			r.Class, r.Name, r.States, r.Observations,
			r.Result.Iterations, formatScore(r.Result.LogLikelihood), r.Result.Converged)
	}
	tw.Flush()
	fmt.Fprintf(stdout, "wrote %d models to %s\n", len(bank), *out)
	return 0
}

func formatScore(v float64) string {
	if math.IsInf(v, -1) {
		return "-inf"
	}
	return fmt.Sprintf("%.4f", v)
}

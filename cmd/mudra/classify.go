package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/hmm"
)

func runClassify(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("classify", stderr)
	configPath := fs.String("config", "", "path to the YAML configuration file")
	bankPath := fs.String("bank", "bank.yml", "model bank file")
	names := fs.String("names", "", "comma-separated class names in bank order")
	obs := fs.String("obs", "", "comma-separated observation symbols to classify")
	points := fs.String("points", "", "trajectory to classify as x,y;x,y;...")
	verbose := fs.Bool("v", false, "print every candidate score")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: mudra classify [flags] [trajectory.yml...]")
		fs.PrintDefaults()
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() == 0 && *obs == "" && *points == "" {
		fs.Usage()
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fail(stderr, "%v", err)
	}
	bank, err := hmm.LoadBank(*bankPath)
	if err != nil {
		return fail(stderr, "%v", err)
	}
	m := gesture.NewMatcher(bank, splitNames(*names), cfg.ScorePolicy())

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INPUT\tCLASS\tNAME\tSCORE")
	show := func(input string, match gesture.Match) {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", input, match.Class, match.Name, formatScore(match.Score))
		if *verbose {
			for _, c := range match.Candidates {
				fmt.Fprintf(tw, "\t%d\t%s\t%s\n", c.Index, m.Name(c.Index), formatScore(c.LogLikelihood))
			}
		}
	}

	if *obs != "" {
		symbols, err := parseSymbols(*obs, m.Symbols())
		if err != nil {
			tw.Flush()
			return fail(stderr, "%v", err)
		}
		show("-obs", m.Classify(symbols))
	}

	if *points != "" {
		pts, err := parsePoints(*points)
		if err != nil {
			tw.Flush()
			return fail(stderr, "%v", err)
		}
		show("-points", m.Match(pts))
	}

	protos, err := gesture.LoadPrototypes(cfg.Model.States, fs.Args()...)
	if err != nil {
		tw.Flush()
		return fail(stderr, "%v", err)
	}
	for i, p := range protos {
		show(fs.Arg(i), m.Match(p.Points))
	}
	tw.Flush()
	return 0
}

// parseSymbols parses a comma-separated symbol list, each below symbols.
func parseSymbols(s string, symbols int) ([]int, error) {
	fields := strings.Split(s, ",")
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, fmt.Errorf("invalid observation %q: %w", f, err)
		}
		if v < 0 || v >= symbols {
			return nil, fmt.Errorf("observation %d out of range [0, %d)", v, symbols)
		}
		out = append(out, v)
	}
	return out, nil
}

// parsePoints parses a trajectory written as x,y;x,y;...
func parsePoints(s string) ([]gesture.Point, error) {
	var pts []gesture.Point
	for _, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		xs, ys, ok := strings.Cut(pair, ",")
		if !ok {
			return nil, fmt.Errorf("invalid point %q: want x,y", pair)
		}
		x, err := strconv.Atoi(strings.TrimSpace(xs))
		if err != nil {
			return nil, fmt.Errorf("invalid point %q: %w", pair, err)
		}
		y, err := strconv.Atoi(strings.TrimSpace(ys))
		if err != nil {
			return nil, fmt.Errorf("invalid point %q: %w", pair, err)
		}
		pts = append(pts, gesture.Pt(x, y))
	}
	if len(pts) < 2 {
		return nil, fmt.Errorf("trajectory needs at least 2 points, got %d", len(pts))
	}
	return pts, nil
}

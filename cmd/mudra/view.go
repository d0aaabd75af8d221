package main

import (
	"fmt"
	"io"
	"os"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/render"
)

func runView(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("view", stderr)
	out := fs.String("o", "", "output PNG file (default: prototype name + .png)")
	width := fs.Int("width", render.DefaultWidth, "image width")
	height := fs.Int("height", render.DefaultHeight, "image height")
	connect := fs.Bool("connect", false, "join consecutive points with lines")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: mudra view [flags] prototype.yml")
		fs.PrintDefaults()
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	if *width <= 0 || *height <= 0 {
		return fail(stderr, "invalid image size %dx%d", *width, *height)
	}

	protos, err := gesture.LoadPrototypes(gesture.DefaultStates, fs.Arg(0))
	if err != nil {
		return fail(stderr, "%v", err)
	}
	p := protos[0]

	data, err := render.PNG(p.Points, render.Options{Width: *width, Height: *height, Connect: *connect})
	if err != nil {
		return fail(stderr, "%v", err)
	}

	path := *out
	if path == "" {
		path = p.Name + ".png"
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fail(stderr, "failed to write image: %v", err)
	}
	fmt.Fprintf(stdout, "wrote %d points to %s\n", len(p.Points), path)
	return 0
}

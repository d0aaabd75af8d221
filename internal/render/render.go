// Package render draws gesture trajectories with OpenCV.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/gesture"
)

// Canvas defaults.
const (
	DefaultWidth  = 640
	DefaultHeight = 480

	// StartRadius is the radius of the marker on the first point.
	StartRadius = 10
	// PointRadius is the radius of every other point.
	PointRadius = 3
)

var (
	startColor = color.RGBA{R: 255, A: 255}
	pointColor = color.RGBA{G: 255, A: 255}
	lineColor  = color.RGBA{R: 60, G: 60, B: 60, A: 255}
)

// ErrEmpty is returned when there is nothing to draw.
var ErrEmpty = errors.New("render: empty trajectory")

// Options controls how a trajectory is drawn.
type Options struct {
	Width  int
	Height int
	// Connect draws a line between consecutive points.
	Connect bool
}

// DefaultOptions returns a 640x480 canvas with unconnected points.
func DefaultOptions() Options {
	return Options{Width: DefaultWidth, Height: DefaultHeight}
}

// Draw renders points on a black canvas. The first point gets a large red
// marker and the rest small green dots. The caller must Close the result.
func Draw(points []gesture.Point, opts Options) gocv.Mat {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}

	img := gocv.NewMatWithSize(opts.Height, opts.Width, gocv.MatTypeCV8UC3)
	img.SetTo(gocv.NewScalar(0, 0, 0, 0))

	if opts.Connect {
		for i := 1; i < len(points); i++ {
			gocv.Line(&img, toImage(points[i-1]), toImage(points[i]), lineColor, 1)
		}
	}
	for i, p := range points {
		if i == 0 {
			continue
		}
		gocv.Circle(&img, toImage(p), PointRadius, pointColor, -1)
	}
	if len(points) > 0 {
		gocv.Circle(&img, toImage(points[0]), StartRadius, startColor, -1)
	}

	return img
}

// PNG renders points and encodes the canvas as PNG.
func PNG(points []gesture.Point, opts Options) ([]byte, error) {
	return encode(points, opts, gocv.PNGFileExt)
}

// JPEG renders points and encodes the canvas as JPEG.
func JPEG(points []gesture.Point, opts Options) ([]byte, error) {
	return encode(points, opts, gocv.JPEGFileExt)
}

func encode(points []gesture.Point, opts Options, ext gocv.FileExt) ([]byte, error) {
	if len(points) == 0 {
		return nil, ErrEmpty
	}

	img := Draw(points, opts)
	defer img.Close()

	buf, err := gocv.IMEncode(ext, img)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", ext, err)
	}
	defer buf.Close()

	// The native buffer is freed on Close.
	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

func toImage(p gesture.Point) image.Point {
	return image.Pt(p.X, p.Y)
}

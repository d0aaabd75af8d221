package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ayusman/mudra/internal/detector"
)

// Run pulls frames from d until it is exhausted or ctx is done, feeding
// each one to ProcessFrame. It returns nil when d reports io.EOF.
//
// Pipeline logic:
// 1. Read the next frame from the detector
// 2. Feed posture and centroid to the capture state machine
// 3. On a finished trajectory, parametrize and classify it
// 4. Notify listeners of the result
func (a *App) Run(ctx context.Context, d detector.Detector) error {
	a.logger.Info("detection pipeline started")
	defer a.logger.Info("detection pipeline stopped")

	for {
		f, err := d.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("failed to read frame: %w", err)
		}

		a.ProcessFrame(ctx, f)
	}
}

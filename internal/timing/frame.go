package timing

import (
	"context"
	"time"
)

// FrameInterval approximates one refresh of a 60Hz display.
const FrameInterval = 16667 * time.Microsecond

// RunFrames calls tick once per interval until tick returns false or ctx is
// done. It is the headless stand-in for a render loop; tick always runs on
// the calling goroutine.
func RunFrames(ctx context.Context, interval time.Duration, tick func() bool) error {
	if interval <= 0 {
		interval = FrameInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	if !tick() {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !tick() {
				return nil
			}
		}
	}
}

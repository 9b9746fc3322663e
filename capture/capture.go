// Package capture provides frame acquisition for the tracking loop.
//
// A Source yields one frame at a time, pull-based: the loop owns the pacing
// and there is never more than one frame in flight. Sources hold their device
// open for the lifetime of the loop and must be closed on every exit path.
package capture

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/pkg/errors"
)

// ErrSourceDrained is reported by finite sources once every frame has been
// read. Live devices never return it.
var ErrSourceDrained = errors.New("capture: source drained")

// Error wraps a device-level capture failure. Errors of this kind are fatal
// to the tracking loop; any retry policy belongs to an outer wrapper, not the
// loop itself.
type Error struct {
	Device string
	Op     string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("capture: %s %s: %v", e.Op, e.Device, e.Err)
	}
	return fmt.Sprintf("capture: %s %s failed", e.Op, e.Device)
}

func (e *Error) Unwrap() error { return e.Err }

// IsCaptureError reports whether err originates from a capture device.
func IsCaptureError(err error) bool {
	var ce *Error
	return errors.As(err, &ce)
}

// Frame is a single decoded video frame. It is immutable for the duration of
// the iteration that produced it and is discarded afterwards.
type Frame struct {
	// Seq is the monotonically increasing frame number within this run.
	Seq int
	// Image holds the pixel data.
	Image image.Image
	// Width and Height are the frame dimensions in pixels.
	Width  int
	Height int
	// Timestamp is the acquisition time.
	Timestamp time.Time
}

// Source yields successive frames from a capture device or recording.
type Source interface {
	// Next blocks until a frame is available. It honors ctx cancellation and
	// returns a *Error when the device fails or the source is drained.
	Next(ctx context.Context) (Frame, error)
	// Close releases the underlying device. Safe to call after Next failed.
	Close() error
}

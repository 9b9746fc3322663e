package track

import (
	"image"

	"github.com/chewxy/math32"
)

// Smoother applies bounded exponential smoothing to the primary target
// center to suppress single-frame detector jitter.
//
// It is a two-state machine. Unlocked: no recent target; the first observed
// center passes through raw and locks. Locked: each observation blends into
// the running center with factor alpha; after lockLoss consecutive misses
// the lock releases and the state resets, so a reappearing target starts
// from its raw center with no residue from the stale lock.
//
// The smoother is the only cross-iteration state in the pipeline. It is
// owned and mutated by the loop goroutine alone; no locking.
type Smoother struct {
	alpha    float32
	lockLoss int

	locked bool
	missed int
	x, y   float32
}

// NewSmoother returns a smoother with blending factor alpha in (0, 1] —
// alpha 1 disables smoothing — releasing its lock after lockLossFrames
// consecutive frames without a target.
func NewSmoother(alpha float64, lockLossFrames int) *Smoother {
	return &Smoother{
		alpha:    float32(alpha),
		lockLoss: lockLossFrames,
	}
}

// Observe blends a raw target center into the smoothed center and returns
// the result. On the first observation after an unlock the raw center is
// returned unchanged.
func (s *Smoother) Observe(center image.Point) image.Point {
	s.missed = 0

	if !s.locked {
		s.locked = true
		s.x = float32(center.X)
		s.y = float32(center.Y)
		return center
	}

	s.x = s.alpha*float32(center.X) + (1-s.alpha)*s.x
	s.y = s.alpha*float32(center.Y) + (1-s.alpha)*s.y
	return image.Pt(int(math32.Round(s.x)), int(math32.Round(s.y)))
}

// Miss records a frame with no target. After enough consecutive misses the
// lock releases.
func (s *Smoother) Miss() {
	if !s.locked {
		return
	}
	s.missed++
	if s.missed >= s.lockLoss {
		s.locked = false
		s.missed = 0
		s.x = 0
		s.y = 0
	}
}

// Locked reports whether a target has been seen recently.
func (s *Smoother) Locked() bool { return s.locked }

// Package track implements the per-frame face tracking pipeline: primary
// target selection, center smoothing, offset geometry, and the loop that
// orchestrates them over a frame source.
package track

import "image"

// Candidate is one detector hit with its derived center. Candidates carry no
// identity across frames.
type Candidate struct {
	Box    image.Rectangle
	Center image.Point
}

// NewCandidate derives the center of a detection box.
func NewCandidate(box image.Rectangle) Candidate {
	return Candidate{
		Box: box,
		Center: image.Pt(
			box.Min.X+box.Dx()/2,
			box.Min.Y+box.Dy()/2,
		),
	}
}

// Area returns the box area in pixels.
func (c Candidate) Area() int {
	return c.Box.Dx() * c.Box.Dy()
}

package track

import (
	"github.com/chewxy/math32"
)

// Strategy chooses the primary target among a frame's candidates. The
// default is LargestArea; deployments tracking a dedicated subject in a
// crowd may substitute another policy without touching the loop.
type Strategy interface {
	// Select returns the primary candidate and true, or false when the
	// candidate set is empty.
	Select(candidates []Candidate) (Candidate, bool)
}

// LargestArea picks the candidate with the largest bounding box, a proxy for
// the closest or most prominent face. Area ties resolve to the leftmost box
// so repeated runs over the same frame are deterministic.
type LargestArea struct{}

// Select implements Strategy.
func (LargestArea) Select(candidates []Candidate) (Candidate, bool) {
	if len(candidates) == 0 {
		return Candidate{}, false
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		area := c.Area()
		bestArea := best.Area()
		if area > bestArea || (area == bestArea && c.Box.Min.X < best.Box.Min.X) {
			best = c
		}
	}
	return best, true
}

// MostCentral picks the candidate whose center lies closest to the frame
// center, preferring the face the camera is already pointed at.
type MostCentral struct {
	Width  int
	Height int
}

// Select implements Strategy.
func (s MostCentral) Select(candidates []Candidate) (Candidate, bool) {
	if len(candidates) == 0 {
		return Candidate{}, false
	}

	cx := s.Width / 2
	cy := s.Height / 2

	best := candidates[0]
	bestDist := math32.Hypot(float32(best.Center.X-cx), float32(best.Center.Y-cy))
	for _, c := range candidates[1:] {
		dist := math32.Hypot(float32(c.Center.X-cx), float32(c.Center.Y-cy))
		if dist < bestDist || (dist == bestDist && c.Box.Min.X < best.Box.Min.X) {
			best = c
			bestDist = dist
		}
	}
	return best, true
}

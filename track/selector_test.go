package track

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLargestAreaSelect verifies the default primary target policy: largest
// box wins, ties resolve to the leftmost box, and an empty candidate set
// yields no target.
func TestLargestAreaSelect(t *testing.T) {
	tests := []struct {
		name     string
		boxes    []image.Rectangle
		wantBox  image.Rectangle
		wantNone bool
	}{
		{
			name:     "no candidates",
			boxes:    nil,
			wantNone: true,
		},
		{
			name:    "single candidate",
			boxes:   []image.Rectangle{image.Rect(10, 10, 50, 50)},
			wantBox: image.Rect(10, 10, 50, 50),
		},
		{
			name: "larger area wins",
			boxes: []image.Rectangle{
				image.Rect(0, 0, 50, 80),     // 4000
				image.Rect(100, 0, 190, 100), // 9000
			},
			wantBox: image.Rect(100, 0, 190, 100),
		},
		{
			name: "larger area wins regardless of order",
			boxes: []image.Rectangle{
				image.Rect(100, 0, 190, 100), // 9000
				image.Rect(0, 0, 50, 80),     // 4000
			},
			wantBox: image.Rect(100, 0, 190, 100),
		},
		{
			name: "area tie resolves to smallest x",
			boxes: []image.Rectangle{
				image.Rect(200, 20, 260, 80),
				image.Rect(40, 20, 100, 80),
				image.Rect(120, 20, 180, 80),
			},
			wantBox: image.Rect(40, 20, 100, 80),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidates := make([]Candidate, 0, len(tt.boxes))
			for _, box := range tt.boxes {
				candidates = append(candidates, NewCandidate(box))
			}

			primary, ok := LargestArea{}.Select(candidates)
			if tt.wantNone {
				assert.False(t, ok, "empty candidate set must yield no target")
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.wantBox, primary.Box)
		})
	}
}

// TestMostCentralSelect verifies the alternate strategy picks the candidate
// closest to the frame center.
func TestMostCentralSelect(t *testing.T) {
	s := MostCentral{Width: 320, Height: 240}

	candidates := []Candidate{
		NewCandidate(image.Rect(0, 0, 40, 40)),       // center (20, 20)
		NewCandidate(image.Rect(140, 100, 180, 140)), // center (160, 120), dead center
		NewCandidate(image.Rect(260, 180, 300, 220)), // center (280, 200)
	}

	primary, ok := s.Select(candidates)
	require.True(t, ok)
	assert.Equal(t, image.Pt(160, 120), primary.Center)

	_, ok = s.Select(nil)
	assert.False(t, ok)
}

// TestCandidateCenter verifies center derivation from the detection box.
func TestCandidateCenter(t *testing.T) {
	c := NewCandidate(image.Rect(100, 80, 160, 140))
	assert.Equal(t, image.Pt(130, 110), c.Center)
	assert.Equal(t, 3600, c.Area())
}

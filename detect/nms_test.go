package detect

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIoU(t *testing.T) {
	tests := []struct {
		name string
		a    image.Rectangle
		b    image.Rectangle
		want float32
	}{
		{
			name: "identical boxes",
			a:    image.Rect(10, 10, 50, 50),
			b:    image.Rect(10, 10, 50, 50),
			want: 1,
		},
		{
			name: "disjoint boxes",
			a:    image.Rect(0, 0, 10, 10),
			b:    image.Rect(20, 20, 30, 30),
			want: 0,
		},
		{
			name: "touching edges",
			a:    image.Rect(0, 0, 10, 10),
			b:    image.Rect(10, 0, 20, 10),
			want: 0,
		},
		{
			// inter 10x20=200, union 400+400-200=600
			name: "half horizontal overlap",
			a:    image.Rect(0, 0, 20, 20),
			b:    image.Rect(10, 0, 30, 20),
			want: 200.0 / 600.0,
		},
		{
			// b inside a: inter 100, union 400
			name: "nested boxes",
			a:    image.Rect(0, 0, 20, 20),
			b:    image.Rect(5, 5, 15, 15),
			want: 100.0 / 400.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, iou(tt.a, tt.b), 1e-6)
			assert.InDelta(t, tt.want, iou(tt.b, tt.a), 1e-6, "iou is symmetric")
		})
	}
}

func TestGreedyNMS(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		assert.Nil(t, applyGreedyNMS(nil, 0.5))
	})

	t.Run("overlapping cluster keeps the strongest", func(t *testing.T) {
		boxes := []scoredBox{
			{box: image.Rect(100, 100, 160, 160), score: 0.70},
			{box: image.Rect(102, 101, 162, 161), score: 0.95},
			{box: image.Rect(98, 99, 158, 159), score: 0.80},
		}
		kept := applyGreedyNMS(boxes, 0.4)
		assert.Len(t, kept, 1)
		assert.Equal(t, float32(0.95), kept[0].score)
		assert.Equal(t, image.Rect(102, 101, 162, 161), kept[0].box)
	})

	t.Run("separate faces both survive", func(t *testing.T) {
		boxes := []scoredBox{
			{box: image.Rect(0, 0, 50, 50), score: 0.9},
			{box: image.Rect(200, 0, 250, 50), score: 0.8},
		}
		kept := applyGreedyNMS(boxes, 0.4)
		assert.Len(t, kept, 2)
	})

	t.Run("results ordered by descending score", func(t *testing.T) {
		boxes := []scoredBox{
			{box: image.Rect(0, 0, 50, 50), score: 0.6},
			{box: image.Rect(200, 0, 250, 50), score: 0.9},
			{box: image.Rect(0, 200, 50, 250), score: 0.7},
		}
		kept := applyGreedyNMS(boxes, 0.4)
		assert.Len(t, kept, 3)
		assert.Equal(t, float32(0.9), kept[0].score)
		assert.Equal(t, float32(0.7), kept[1].score)
		assert.Equal(t, float32(0.6), kept[2].score)
	})

	t.Run("threshold controls suppression", func(t *testing.T) {
		// iou between the two is 200/600, just over 0.33.
		boxes := []scoredBox{
			{box: image.Rect(0, 0, 20, 20), score: 0.9},
			{box: image.Rect(10, 0, 30, 20), score: 0.8},
		}
		assert.Len(t, applyGreedyNMS(append([]scoredBox(nil), boxes...), 0.3), 1)
		assert.Len(t, applyGreedyNMS(append([]scoredBox(nil), boxes...), 0.5), 2)
	})
}

package detect

import (
	"image"
	"sort"
)

// scoredBox pairs a candidate rectangle with its confidence, the unit the
// learned backends work in before suppression strips the scores.
type scoredBox struct {
	box   image.Rectangle
	score float32
}

// applyGreedyNMS performs greedy Non-Maximum Suppression: keep the highest
// scoring box, drop everything overlapping it above iouThreshold, repeat.
func applyGreedyNMS(boxes []scoredBox, iouThreshold float32) []scoredBox {
	n := len(boxes)
	if n == 0 {
		return nil
	}

	sort.SliceStable(boxes, func(i, j int) bool {
		return boxes[i].score > boxes[j].score
	})

	filtered := make([]scoredBox, 0, n)
	used := make([]bool, n)

	for i := 0; i < n; i++ {
		if used[i] {
			continue
		}
		anchor := boxes[i]
		filtered = append(filtered, anchor)
		used[i] = true

		for j := i + 1; j < n; j++ {
			if used[j] {
				continue
			}
			if iou(anchor.box, boxes[j].box) > iouThreshold {
				used[j] = true
			}
		}
	}

	return filtered
}

// iou computes Intersection over Union for two rectangles.
func iou(a, b image.Rectangle) float32 {
	inter := a.Intersect(b).Size()
	interArea := inter.X * inter.Y
	if interArea <= 0 {
		return 0
	}
	aSize := a.Size()
	bSize := b.Size()
	union := aSize.X*aSize.Y + bSize.X*bSize.Y - interArea
	if union <= 0 {
		return 0
	}
	return float32(interArea) / float32(union)
}

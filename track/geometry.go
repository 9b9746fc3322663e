package track

import "image"

// Offset is the signed displacement of a target center from the frame
// center, plus a size metric.
//
// Sign convention, load-bearing for actuator consumers: positive DX means
// the target sits right of center, positive DY below center (image
// coordinates grow downward). A servo mount may need either sign inverted;
// that inversion belongs to the consumer.
type Offset struct {
	DX int
	DY int
	// AreaRatio is box area over frame area, in [0, 1]. A dimensionless
	// proxy for target distance and prominence.
	AreaRatio float64
}

// ComputeOffset converts a target center and box area into frame-center
// offsets. Pure function: identical inputs always yield identical outputs.
func ComputeOffset(center image.Point, width, height, area int) Offset {
	off := Offset{
		DX: center.X - width/2,
		DY: center.Y - height/2,
	}

	frameArea := width * height
	if frameArea > 0 && area > 0 {
		off.AreaRatio = float64(area) / float64(frameArea)
		if off.AreaRatio > 1 {
			off.AreaRatio = 1
		}
	}
	return off
}

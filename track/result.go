package track

import (
	"image"
	"time"
)

// Primary describes the selected target of one frame.
type Primary struct {
	// Center is the smoothed target center in pixel coordinates.
	Center image.Point `json:"center"`
	// Box is the raw detection box the target was selected from.
	Box image.Rectangle `json:"box"`
	// OffsetDX and OffsetDY follow the sign convention documented on Offset.
	OffsetDX int `json:"offset_dx"`
	OffsetDY int `json:"offset_dy"`
	// AreaRatio is box area over frame area, in [0, 1].
	AreaRatio float64 `json:"area_ratio"`
}

// Result is the authoritative record of one loop iteration. It is produced
// fresh each frame and never mutated after creation; ownership passes to the
// sinks and observers that consume it.
type Result struct {
	// Seq is the frame sequence number.
	Seq int `json:"seq"`
	// FaceCount is the number of candidates the detector returned.
	FaceCount int `json:"face_count"`
	// Boxes holds every detection of the frame, not just the primary.
	Boxes []image.Rectangle `json:"boxes,omitempty"`
	// Primary is nil when no target was selected this frame.
	Primary *Primary `json:"primary,omitempty"`
	// Timestamp is the frame acquisition time.
	Timestamp time.Time `json:"timestamp"`
}

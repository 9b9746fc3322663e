package capture

import (
	"context"
	"strconv"
	"time"

	"gocv.io/x/gocv"
)

// DeviceConfig selects a camera and its target resolution.
type DeviceConfig struct {
	// Index is the capture device index, 0 for the first enumerated camera.
	Index int
	// Width and Height request the capture resolution. The driver may settle
	// on the closest mode it supports; frames report their actual size.
	Width  int
	Height int
}

// DeviceSource reads frames from a V4L/AVFoundation camera through OpenCV.
type DeviceSource struct {
	webcam *gocv.VideoCapture
	mat    gocv.Mat
	device string
	seq    int
}

// OpenDevice opens the camera at cfg.Index and applies the target resolution.
// A device that cannot be opened yields a *Error immediately.
func OpenDevice(cfg DeviceConfig) (*DeviceSource, error) {
	device := strconv.Itoa(cfg.Index)

	webcam, err := gocv.OpenVideoCapture(cfg.Index)
	if err != nil {
		return nil, &Error{Device: device, Op: "open", Err: err}
	}

	webcam.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	webcam.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))

	return &DeviceSource{
		webcam: webcam,
		mat:    gocv.NewMat(),
		device: device,
	}, nil
}

// Next reads the next frame from the camera. Empty reads are retried a few
// times before the device is considered gone; drivers occasionally deliver an
// empty buffer right after a mode change.
func (s *DeviceSource) Next(ctx context.Context) (Frame, error) {
	const emptyReadLimit = 10

	for attempt := 0; attempt < emptyReadLimit; attempt++ {
		if err := ctx.Err(); err != nil {
			return Frame{}, err
		}
		if ok := s.webcam.Read(&s.mat); !ok {
			return Frame{}, &Error{Device: s.device, Op: "read"}
		}
		if s.mat.Empty() {
			continue
		}

		img, err := s.mat.ToImage()
		if err != nil {
			return Frame{}, &Error{Device: s.device, Op: "decode", Err: err}
		}

		bounds := img.Bounds()
		frame := Frame{
			Seq:       s.seq,
			Image:     img,
			Width:     bounds.Dx(),
			Height:    bounds.Dy(),
			Timestamp: time.Now(),
		}
		s.seq++
		return frame, nil
	}

	return Frame{}, &Error{Device: s.device, Op: "read"}
}

// Close releases the camera handle.
func (s *DeviceSource) Close() error {
	s.mat.Close()
	return s.webcam.Close()
}

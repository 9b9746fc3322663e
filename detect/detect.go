// Package detect unifies face detection backends behind a single contract.
//
// Every backend is one conforming type: the classical Haar cascade, an OpenCV
// DNN model, and an ONNX Runtime session. Detectors are stateless across
// calls — no memory of previous frames — and each owns whatever input
// normalization (grayscale conversion, resizing, tensor packing) its engine
// needs.
package detect

import (
	"image"

	"github.com/nvr-ai/go-facetrack/capture"
	"github.com/pkg/errors"
)

// ErrBadFrame reports a frame the detector cannot process, such as one with
// zero dimensions. It is non-fatal: the loop logs it and moves on.
var ErrBadFrame = errors.New("detect: bad frame")

// Detector finds candidate face regions in a single frame. The returned
// slice is finite and its order is backend-dependent.
type Detector interface {
	Detect(frame capture.Frame) ([]image.Rectangle, error)
	Name() string
	Close() error
}

// checkFrame validates the shared preconditions of every backend.
func checkFrame(frame capture.Frame) error {
	if frame.Image == nil || frame.Width <= 0 || frame.Height <= 0 {
		return errors.Wrapf(ErrBadFrame, "%dx%d", frame.Width, frame.Height)
	}
	return nil
}

// clampBox restricts a detection rectangle to the frame bounds.
func clampBox(box image.Rectangle, width, height int) image.Rectangle {
	return box.Intersect(image.Rect(0, 0, width, height))
}

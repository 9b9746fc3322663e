// Package overlay renders tracking results onto a copy of the frame for
// human inspection. Presentation only: it runs after the authoritative
// result has been computed, never mutates the input frame, and headless
// deployments omit it entirely.
package overlay

import (
	"fmt"
	"image"
	"image/color"

	"github.com/nvr-ai/go-facetrack/capture"
	"github.com/nvr-ai/go-facetrack/track"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

const markerHalf = 8

// Renderer draws detection boxes, the primary center marker, and a status
// line onto annotated frame copies.
type Renderer struct {
	boxColor    color.RGBA
	markerColor color.RGBA
	textColor   color.RGBA
}

// New returns a renderer with the default palette.
func New() *Renderer {
	return &Renderer{
		boxColor:    color.RGBA{255, 255, 255, 0},
		markerColor: color.RGBA{0, 255, 0, 0},
		textColor:   color.RGBA{0, 255, 0, 0},
	}
}

// Render returns an annotated BGR copy of the frame, ready for JPEG encoding
// or display. Every detection box is drawn, not just the primary; the
// crosshair marks the primary's smoothed center. Callers own the returned
// Mat and must Close it.
func (r *Renderer) Render(frame capture.Frame, result track.Result) (gocv.Mat, error) {
	rgb, err := gocv.ImageToMatRGB(frame.Image)
	if err != nil {
		return gocv.Mat{}, errors.Wrap(err, "converting frame")
	}
	defer rgb.Close()

	mat := gocv.NewMat()
	gocv.CvtColor(rgb, &mat, gocv.ColorRGBToBGR)

	for _, box := range result.Boxes {
		gocv.Rectangle(&mat, box, r.boxColor, 2)
	}

	var status string
	if result.Primary != nil {
		c := result.Primary.Center
		gocv.Line(&mat, image.Pt(c.X-markerHalf, c.Y), image.Pt(c.X+markerHalf, c.Y), r.markerColor, 2)
		gocv.Line(&mat, image.Pt(c.X, c.Y-markerHalf), image.Pt(c.X, c.Y+markerHalf), r.markerColor, 2)
		status = fmt.Sprintf("faces: %d dx: %+d dy: %+d",
			result.FaceCount, result.Primary.OffsetDX, result.Primary.OffsetDY)
	} else {
		status = fmt.Sprintf("faces: %d", result.FaceCount)
	}
	gocv.PutText(&mat, status, image.Pt(10, 20), gocv.FontHersheyPlain, 1.2, r.textColor, 2)

	return mat, nil
}

package detect

import (
	"image"
	"os"

	"github.com/nvr-ai/go-facetrack/capture"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// CascadeConfig tunes the Haar cascade backend.
type CascadeConfig struct {
	// Path is the cascade classifier XML file.
	Path string
	// ScaleStep is the pyramid scale factor, in (1.0, 2.0). Larger steps scan
	// fewer scales: faster, but faces between scales are missed.
	ScaleStep float64
	// MinNeighbors is the clustered-hit count required to accept a detection.
	// Raising it trades missed faces for fewer false positives.
	MinNeighbors int
	// MinSize and MaxSize clamp accepted detections in pixels. MaxSize 0
	// leaves the upper bound open.
	MinSize int
	MaxSize int
}

// Cascade detects faces with an OpenCV Haar cascade classifier. Detection
// runs on a grayscale copy of the frame; the input is never modified.
type Cascade struct {
	classifier gocv.CascadeClassifier
	cfg        CascadeConfig
}

// NewCascade loads the classifier file. Configuration ranges are the
// caller's responsibility (config.Validate); a missing or unreadable cascade
// file is fatal here.
func NewCascade(cfg CascadeConfig) (*Cascade, error) {
	if _, err := os.Stat(cfg.Path); err != nil {
		return nil, errors.Wrapf(err, "cascade file %s", cfg.Path)
	}

	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(cfg.Path) {
		classifier.Close()
		return nil, errors.Errorf("cannot read cascade file %s", cfg.Path)
	}

	return &Cascade{classifier: classifier, cfg: cfg}, nil
}

// Detect returns the bounding box of every face candidate in the frame.
func (c *Cascade) Detect(frame capture.Frame) ([]image.Rectangle, error) {
	if err := checkFrame(frame); err != nil {
		return nil, err
	}

	mat, err := gocv.ImageToMatRGB(frame.Image)
	if err != nil {
		return nil, errors.Wrap(ErrBadFrame, err.Error())
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorRGBToGray)

	rects := c.classifier.DetectMultiScaleWithParams(
		gray,
		c.cfg.ScaleStep,
		c.cfg.MinNeighbors,
		0,
		image.Pt(c.cfg.MinSize, c.cfg.MinSize),
		image.Pt(c.cfg.MaxSize, c.cfg.MaxSize),
	)

	boxes := make([]image.Rectangle, 0, len(rects))
	for _, r := range rects {
		boxes = append(boxes, clampBox(r, frame.Width, frame.Height))
	}
	return boxes, nil
}

// Name identifies the backend.
func (c *Cascade) Name() string { return "cascade" }

// Close releases the classifier.
func (c *Cascade) Close() error {
	return c.classifier.Close()
}

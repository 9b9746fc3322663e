package detect

import (
	"image"
	"os"
	"sync"

	"github.com/nvr-ai/go-facetrack/capture"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// DNNConfig tunes the OpenCV DNN backend.
type DNNConfig struct {
	// ModelPath is an SSD-style ONNX face detection model.
	ModelPath string
	// InputSize is the network input resolution.
	InputSize image.Point
	// ConfidenceThreshold drops detections scored below it.
	ConfidenceThreshold float32
	// NMSThreshold is the IoU above which overlapping detections are merged.
	NMSThreshold float32
	// MinSize and MaxSize clamp accepted detections in pixels, MaxSize 0 for
	// unbounded.
	MinSize int
	MaxSize int
}

// DNN detects faces with a single-shot detector loaded through gocv.ReadNet.
// The model emits rows of [batch, class, confidence, x1, y1, x2, y2] with
// coordinates normalized to the input frame.
type DNN struct {
	net gocv.Net
	cfg DNNConfig
	mu  sync.Mutex
}

// NewDNN loads the model and pins inference to the CPU, which is the only
// target present on the boards this runs on.
func NewDNN(cfg DNNConfig) (*DNN, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, errors.Wrapf(err, "model file %s", cfg.ModelPath)
	}
	if cfg.InputSize.X == 0 || cfg.InputSize.Y == 0 {
		cfg.InputSize = image.Pt(300, 300)
	}
	if cfg.NMSThreshold == 0 {
		cfg.NMSThreshold = 0.4
	}

	net := gocv.ReadNet(cfg.ModelPath, "")
	if net.Empty() {
		return nil, errors.Errorf("cannot load model %s", cfg.ModelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendOpenCV)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &DNN{net: net, cfg: cfg}, nil
}

// Detect runs one forward pass and returns the surviving face boxes.
func (d *DNN) Detect(frame capture.Frame) ([]image.Rectangle, error) {
	if err := checkFrame(frame); err != nil {
		return nil, err
	}

	mat, err := gocv.ImageToMatRGB(frame.Image)
	if err != nil {
		return nil, errors.Wrap(ErrBadFrame, err.Error())
	}
	defer mat.Close()

	// The mean scalar is in the model's BGR channel order; the mat is RGB, so
	// swapRB reorders the channels before subtraction.
	blob := gocv.BlobFromImage(mat, 1.0, d.cfg.InputSize,
		gocv.NewScalar(104, 177, 123, 0), true, false)
	defer blob.Close()

	// gocv.Net is not safe for concurrent Forward calls. The loop is single
	// threaded, but the lock keeps the contract explicit.
	d.mu.Lock()
	d.net.SetInput(blob, "")
	prob := d.net.Forward("")
	d.mu.Unlock()
	defer prob.Close()

	rows := gocv.GetBlobChannel(prob, 0, 0)
	defer rows.Close()

	var candidates []scoredBox
	for r := 0; r < rows.Rows(); r++ {
		score := rows.GetFloatAt(r, 2)
		if score < d.cfg.ConfidenceThreshold {
			continue
		}
		box := image.Rect(
			int(rows.GetFloatAt(r, 3)*float32(frame.Width)),
			int(rows.GetFloatAt(r, 4)*float32(frame.Height)),
			int(rows.GetFloatAt(r, 5)*float32(frame.Width)),
			int(rows.GetFloatAt(r, 6)*float32(frame.Height)),
		).Canon()
		box = clampBox(box, frame.Width, frame.Height)
		if !d.acceptSize(box) {
			continue
		}
		candidates = append(candidates, scoredBox{box: box, score: score})
	}

	kept := applyGreedyNMS(candidates, d.cfg.NMSThreshold)
	boxes := make([]image.Rectangle, 0, len(kept))
	for _, sb := range kept {
		boxes = append(boxes, sb.box)
	}
	return boxes, nil
}

func (d *DNN) acceptSize(box image.Rectangle) bool {
	size := box.Size()
	if size.X < d.cfg.MinSize || size.Y < d.cfg.MinSize {
		return false
	}
	if d.cfg.MaxSize > 0 && (size.X > d.cfg.MaxSize || size.Y > d.cfg.MaxSize) {
		return false
	}
	return true
}

// Name identifies the backend.
func (d *DNN) Name() string { return "dnn" }

// Close releases the network.
func (d *DNN) Close() error {
	return d.net.Close()
}

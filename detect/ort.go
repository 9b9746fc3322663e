package detect

import (
	"image"
	"os"

	"github.com/nfnt/resize"
	"github.com/nvr-ai/go-facetrack/capture"
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// Dimensions of the UltraFace RFB-320 graph: one 320x240 RGB input, 4420
// anchor rows of (background, face) scores and decoded normalized boxes.
const (
	ortInputWidth  = 320
	ortInputHeight = 240
	ortAnchorRows  = 4420
)

// ORTConfig tunes the ONNX Runtime backend.
type ORTConfig struct {
	// ModelPath is an UltraFace-style ONNX model with decoded box outputs.
	ModelPath string
	// LibraryPath is the onnxruntime shared library location.
	LibraryPath string
	// ConfidenceThreshold drops anchors scored below it.
	ConfidenceThreshold float32
	// NMSThreshold is the IoU above which overlapping detections are merged.
	NMSThreshold float32
	// MinSize and MaxSize clamp accepted detections in pixels, MaxSize 0 for
	// unbounded.
	MinSize int
	MaxSize int
}

// ORT detects faces through an ONNX Runtime session. It exists for boards
// whose OpenCV build ships without the DNN module; the capability contract is
// identical to the other backends.
type ORT struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	scores  *ort.Tensor[float32]
	boxes   *ort.Tensor[float32]
	cfg     ORTConfig
}

// NewORT initializes the runtime environment and builds a session with
// pre-allocated input and output tensors, reused across frames.
func NewORT(cfg ORTConfig) (*ORT, error) {
	if _, err := os.Stat(cfg.LibraryPath); err != nil {
		return nil, errors.Wrapf(err, "onnxruntime library %s", cfg.LibraryPath)
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, errors.Wrapf(err, "model file %s", cfg.ModelPath)
	}
	if cfg.NMSThreshold == 0 {
		cfg.NMSThreshold = 0.4
	}

	ort.SetSharedLibraryPath(cfg.LibraryPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, errors.Wrap(err, "initializing onnxruntime environment")
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, ortInputHeight, ortInputWidth))
	if err != nil {
		return nil, errors.Wrap(err, "creating input tensor")
	}
	scores, err := ort.NewEmptyTensor[float32](ort.NewShape(1, ortAnchorRows, 2))
	if err != nil {
		input.Destroy()
		return nil, errors.Wrap(err, "creating scores tensor")
	}
	boxes, err := ort.NewEmptyTensor[float32](ort.NewShape(1, ortAnchorRows, 4))
	if err != nil {
		input.Destroy()
		scores.Destroy()
		return nil, errors.Wrap(err, "creating boxes tensor")
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		input.Destroy()
		scores.Destroy()
		boxes.Destroy()
		return nil, errors.Wrap(err, "creating session options")
	}
	defer options.Destroy()
	// Two intra-op threads keeps a quad-core board responsive for capture.
	options.SetIntraOpNumThreads(2)
	options.SetInterOpNumThreads(1)

	session, err := ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{"input"},
		[]string{"scores", "boxes"},
		[]ort.Value{input},
		[]ort.Value{scores, boxes},
		options,
	)
	if err != nil {
		input.Destroy()
		scores.Destroy()
		boxes.Destroy()
		return nil, errors.Wrapf(err, "creating session for %s", cfg.ModelPath)
	}

	return &ORT{session: session, input: input, scores: scores, boxes: boxes, cfg: cfg}, nil
}

// Detect packs the frame into the input tensor, runs the session, and
// decodes the surviving face boxes.
func (o *ORT) Detect(frame capture.Frame) ([]image.Rectangle, error) {
	if err := checkFrame(frame); err != nil {
		return nil, err
	}

	o.preprocess(frame.Image)

	if err := o.session.Run(); err != nil {
		return nil, errors.Wrap(err, "running session")
	}

	scores := o.scores.GetData()
	rawBoxes := o.boxes.GetData()

	var candidates []scoredBox
	for i := 0; i < ortAnchorRows; i++ {
		score := scores[i*2+1]
		if score < o.cfg.ConfidenceThreshold {
			continue
		}
		box := image.Rect(
			int(rawBoxes[i*4+0]*float32(frame.Width)),
			int(rawBoxes[i*4+1]*float32(frame.Height)),
			int(rawBoxes[i*4+2]*float32(frame.Width)),
			int(rawBoxes[i*4+3]*float32(frame.Height)),
		).Canon()
		box = clampBox(box, frame.Width, frame.Height)
		if !o.acceptSize(box) {
			continue
		}
		candidates = append(candidates, scoredBox{box: box, score: score})
	}

	kept := applyGreedyNMS(candidates, o.cfg.NMSThreshold)
	result := make([]image.Rectangle, 0, len(kept))
	for _, sb := range kept {
		result = append(result, sb.box)
	}
	return result, nil
}

// preprocess fills the input tensor with CHW float32 data normalized the way
// UltraFace was trained: (pixel - 127) / 128.
func (o *ORT) preprocess(img image.Image) {
	resized := resize.Resize(ortInputWidth, ortInputHeight, img, resize.Bilinear)
	data := o.input.GetData()

	plane := ortInputWidth * ortInputHeight
	for y := 0; y < ortInputHeight; y++ {
		for x := 0; x < ortInputWidth; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			idx := y*ortInputWidth + x
			data[idx] = (float32(r>>8) - 127) / 128
			data[plane+idx] = (float32(g>>8) - 127) / 128
			data[2*plane+idx] = (float32(b>>8) - 127) / 128
		}
	}
}

func (o *ORT) acceptSize(box image.Rectangle) bool {
	size := box.Size()
	if size.X < o.cfg.MinSize || size.Y < o.cfg.MinSize {
		return false
	}
	if o.cfg.MaxSize > 0 && (size.X > o.cfg.MaxSize || size.Y > o.cfg.MaxSize) {
		return false
	}
	return true
}

// Name identifies the backend.
func (o *ORT) Name() string { return "ort" }

// Close destroys the session and its tensors.
func (o *ORT) Close() error {
	o.session.Destroy()
	o.input.Destroy()
	o.scores.Destroy()
	o.boxes.Destroy()
	return nil
}

package overlay

import (
	"github.com/nvr-ai/go-facetrack/capture"
	"github.com/nvr-ai/go-facetrack/stream"
	"github.com/nvr-ai/go-facetrack/track"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

const jpegQuality = 85

// Publisher renders the overlay for each frame and stores the encoded JPEG
// for the HTTP handlers. It implements track.FrameObserver; rendering
// failures are logged and the frame is dropped from the stream only — the
// tracking result is already published by then.
type Publisher struct {
	renderer *Renderer
	store    *stream.Store
	log      *logrus.Logger
}

// NewPublisher wires a renderer to the store.
func NewPublisher(renderer *Renderer, store *stream.Store, log *logrus.Logger) *Publisher {
	return &Publisher{renderer: renderer, store: store, log: log}
}

// ObserveFrame implements track.FrameObserver.
func (p *Publisher) ObserveFrame(frame capture.Frame, result track.Result) {
	mat, err := p.renderer.Render(frame, result)
	if err != nil {
		p.log.WithError(err).Warn("overlay render failed")
		return
	}
	defer mat.Close()

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat,
		[]int{gocv.IMWriteJpegQuality, jpegQuality})
	if err != nil {
		p.log.WithError(err).Warn("jpeg encode failed")
		return
	}
	defer buf.Close()

	p.store.Update(buf.GetBytes(), result)
}

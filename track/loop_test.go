package track

import (
	"context"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/nvr-ai/go-facetrack/capture"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSource yields scripted frames, then a capture error.
type stubSource struct {
	frames []capture.Frame
	pos    int
	closed bool
}

func newStubSource(count, width, height int) *stubSource {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.Gray{128})
		}
	}
	s := &stubSource{}
	for i := 0; i < count; i++ {
		s.frames = append(s.frames, capture.Frame{
			Seq:       i,
			Image:     img,
			Width:     width,
			Height:    height,
			Timestamp: time.Now(),
		})
	}
	return s
}

func (s *stubSource) Next(ctx context.Context) (capture.Frame, error) {
	if err := ctx.Err(); err != nil {
		return capture.Frame{}, err
	}
	if s.pos >= len(s.frames) {
		return capture.Frame{}, &capture.Error{Device: "stub", Op: "read", Err: capture.ErrSourceDrained}
	}
	frame := s.frames[s.pos]
	s.pos++
	return frame, nil
}

func (s *stubSource) Close() error {
	s.closed = true
	return nil
}

// failingSource fails on the very first read, like a camera that never opened.
type failingSource struct {
	closed bool
}

func (s *failingSource) Next(ctx context.Context) (capture.Frame, error) {
	return capture.Frame{}, &capture.Error{Device: "0", Op: "open"}
}

func (s *failingSource) Close() error {
	s.closed = true
	return nil
}

// stubDetector returns scripted detections per frame and counts calls.
type stubDetector struct {
	boxes [][]image.Rectangle
	errs  []error
	calls int
}

func (d *stubDetector) Detect(frame capture.Frame) ([]image.Rectangle, error) {
	i := d.calls
	d.calls++
	if i < len(d.errs) && d.errs[i] != nil {
		return nil, d.errs[i]
	}
	if i < len(d.boxes) {
		return d.boxes[i], nil
	}
	return nil, nil
}

func (d *stubDetector) Name() string { return "stub" }
func (d *stubDetector) Close() error { return nil }

// recordingSink accumulates every published result.
type recordingSink struct {
	results []Result
}

func (s *recordingSink) Publish(result Result) error {
	s.results = append(s.results, result)
	return nil
}

// TestLoopNoDetections verifies frames without faces publish a face count of
// zero and no primary target.
func TestLoopNoDetections(t *testing.T) {
	source := newStubSource(3, 320, 240)
	detector := &stubDetector{}
	sink := &recordingSink{}

	loop := New(source, detector, WithSinks(sink))
	err := loop.Run(context.Background())

	require.Error(t, err, "drained source surfaces as a capture error")
	assert.True(t, capture.IsCaptureError(errors.Cause(err)))
	require.Len(t, sink.results, 3)
	for _, result := range sink.results {
		assert.Zero(t, result.FaceCount)
		assert.Nil(t, result.Primary)
	}
	assert.True(t, source.closed, "source must be released on exit")
}

// TestLoopSelectsLargestFace verifies the published primary comes from the
// largest detection with the documented offsets.
func TestLoopSelectsLargestFace(t *testing.T) {
	source := newStubSource(1, 320, 240)
	detector := &stubDetector{
		boxes: [][]image.Rectangle{{
			image.Rect(10, 10, 30, 30),    // 400
			image.Rect(100, 80, 160, 140), // 3600, the primary
		}},
	}
	sink := &recordingSink{}

	loop := New(source, detector, WithSinks(sink))
	_ = loop.Run(context.Background())

	require.Len(t, sink.results, 1)
	result := sink.results[0]
	assert.Equal(t, 2, result.FaceCount)
	require.NotNil(t, result.Primary)
	assert.Equal(t, image.Pt(130, 110), result.Primary.Center)
	assert.Equal(t, -30, result.Primary.OffsetDX)
	assert.Equal(t, -10, result.Primary.OffsetDY)
	assert.InDelta(t, 3600.0/76800.0, result.Primary.AreaRatio, 1e-9)
}

// TestLoopCaptureErrorBeforeDetection verifies a failed device surfaces as a
// capture error without the detector ever being called.
func TestLoopCaptureErrorBeforeDetection(t *testing.T) {
	source := &failingSource{}
	detector := &stubDetector{}

	loop := New(source, detector)
	err := loop.Run(context.Background())

	require.Error(t, err)
	assert.True(t, capture.IsCaptureError(errors.Cause(err)))
	assert.Zero(t, detector.calls, "detector must never run without a frame")
	assert.True(t, source.closed)
}

// TestLoopSkipsBadFrames verifies a detection error drops the frame and the
// loop continues with the next one.
func TestLoopSkipsBadFrames(t *testing.T) {
	source := newStubSource(3, 320, 240)
	detector := &stubDetector{
		errs: []error{nil, errors.New("detect: bad frame"), nil},
		boxes: [][]image.Rectangle{
			{image.Rect(0, 0, 40, 40)},
			nil,
			{image.Rect(0, 0, 40, 40)},
		},
	}
	sink := &recordingSink{}

	loop := New(source, detector, WithSinks(sink))
	_ = loop.Run(context.Background())

	assert.Equal(t, 3, detector.calls)
	require.Len(t, sink.results, 2, "the failed frame is skipped, not published")

	metrics := loop.CollectMetrics()
	assert.Equal(t, float64(1), metrics["skipped_frames"])
	assert.Equal(t, float64(2), metrics["frames"])
}

// TestLoopCancellation verifies a canceled context stops the loop gracefully
// and still releases the source.
func TestLoopCancellation(t *testing.T) {
	source := newStubSource(1000, 320, 240)
	detector := &stubDetector{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	loop := New(source, detector)
	err := loop.Run(ctx)

	assert.NoError(t, err, "cancellation is a graceful stop, not a failure")
	assert.True(t, source.closed)
}

// TestLoopSmoothingAcrossFrames verifies the smoother state carries between
// iterations: a jumping detection is blended, not followed verbatim.
func TestLoopSmoothingAcrossFrames(t *testing.T) {
	source := newStubSource(2, 320, 240)
	detector := &stubDetector{
		boxes: [][]image.Rectangle{
			{image.Rect(80, 80, 120, 120)},  // center (100, 100)
			{image.Rect(180, 80, 220, 120)}, // center (200, 100)
		},
	}
	sink := &recordingSink{}

	loop := New(source, detector,
		WithSinks(sink),
		WithSmoother(NewSmoother(0.5, 3)),
	)
	_ = loop.Run(context.Background())

	require.Len(t, sink.results, 2)
	require.NotNil(t, sink.results[0].Primary)
	require.NotNil(t, sink.results[1].Primary)
	assert.Equal(t, image.Pt(100, 100), sink.results[0].Primary.Center)
	assert.Equal(t, image.Pt(150, 100), sink.results[1].Primary.Center,
		"second frame blends half way toward the new center")
}

package track

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nvr-ai/go-facetrack/capture"
	"github.com/nvr-ai/go-facetrack/detect"
	"github.com/nvr-ai/go-facetrack/profiler"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// FrameObserver receives the frame and its result after every sink has been
// published. Purely presentational — overlay rendering, stream updates — and
// never allowed to fail the loop; headless deployments simply register none.
type FrameObserver interface {
	ObserveFrame(frame capture.Frame, result Result)
}

// Loop runs the detection pipeline one frame at a time: acquire, detect,
// select, smooth, compute geometry, publish. Single goroutine, one in-flight
// frame, cancellation checked at iteration boundaries only.
type Loop struct {
	source    capture.Source
	detector  detect.Detector
	strategy  Strategy
	smoother  *Smoother
	sinks     []Sink
	observers []FrameObserver
	log       *logrus.Logger
	prof      *profiler.Profiler
	runID     string

	frames    atomic.Int64
	skipped   atomic.Int64
	lastFaces atomic.Int64
}

// Option configures a Loop.
type Option func(*Loop)

// WithStrategy replaces the default largest-area target selection.
func WithStrategy(s Strategy) Option {
	return func(l *Loop) { l.strategy = s }
}

// WithSmoother replaces the default smoother.
func WithSmoother(s *Smoother) Option {
	return func(l *Loop) { l.smoother = s }
}

// WithSinks registers result consumers.
func WithSinks(sinks ...Sink) Option {
	return func(l *Loop) { l.sinks = append(l.sinks, sinks...) }
}

// WithObserver registers a presentation-side frame observer.
func WithObserver(o FrameObserver) Option {
	return func(l *Loop) { l.observers = append(l.observers, o) }
}

// WithLogger replaces the default logger.
func WithLogger(log *logrus.Logger) Option {
	return func(l *Loop) { l.log = log }
}

// WithProfiler attaches runtime diagnostics. The loop registers itself as a
// metrics collector.
func WithProfiler(p *profiler.Profiler) Option {
	return func(l *Loop) { l.prof = p }
}

// New builds a loop over source and detector. Defaults: largest-area
// selection, smoothing alpha 0.35, lock released after 5 target-less frames.
func New(source capture.Source, detector detect.Detector, opts ...Option) *Loop {
	l := &Loop{
		source:   source,
		detector: detector,
		strategy: LargestArea{},
		smoother: NewSmoother(0.35, 5),
		log:      logrus.StandardLogger(),
		runID:    uuid.NewString(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.prof != nil {
		l.prof.AddCollector(l)
	}
	return l
}

// RunID identifies this tracking run in logs and the health endpoint.
func (l *Loop) RunID() string { return l.runID }

// Run drives the pipeline until ctx is canceled or the source fails. The
// source is closed on every exit path. A canceled context is a graceful stop
// and returns nil; a capture failure is fatal and returned.
func (l *Loop) Run(ctx context.Context) error {
	defer func() {
		if err := l.source.Close(); err != nil {
			l.log.WithError(err).Warn("closing frame source")
		}
	}()

	l.log.WithField("run_id", l.runID).Info("tracking loop started")

	for {
		select {
		case <-ctx.Done():
			l.log.WithField("frames", l.frames.Load()).Info("tracking loop stopped")
			return nil
		default:
		}

		frame, err := l.source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				l.log.WithField("frames", l.frames.Load()).Info("tracking loop stopped")
				return nil
			}
			return errors.Wrap(err, "acquiring frame")
		}

		result, ok := l.iterate(frame)
		if !ok {
			continue
		}

		for _, sink := range l.sinks {
			if err := sink.Publish(result); err != nil {
				l.log.WithError(err).Warn("sink publish failed")
			}
		}
		for _, obs := range l.observers {
			obs.ObserveFrame(frame, result)
		}
	}
}

// iterate runs detection and geometry for one frame. A detection error skips
// the frame; the loop recovers locally and moves on.
func (l *Loop) iterate(frame capture.Frame) (Result, bool) {
	var stop func()
	if l.prof != nil {
		stop = l.prof.StartOperation("detect")
	}
	boxes, err := l.detector.Detect(frame)
	if stop != nil {
		stop()
	}
	if err != nil {
		l.skipped.Add(1)
		l.log.WithError(err).WithField("seq", frame.Seq).Warn("frame skipped")
		return Result{}, false
	}

	l.frames.Add(1)
	l.lastFaces.Store(int64(len(boxes)))

	result := Result{
		Seq:       frame.Seq,
		FaceCount: len(boxes),
		Boxes:     boxes,
		Timestamp: frame.Timestamp,
	}
	if result.Timestamp.IsZero() {
		result.Timestamp = time.Now()
	}

	candidates := make([]Candidate, 0, len(boxes))
	for _, box := range boxes {
		candidates = append(candidates, NewCandidate(box))
	}

	if primary, ok := l.strategy.Select(candidates); ok {
		center := l.smoother.Observe(primary.Center)
		off := ComputeOffset(center, frame.Width, frame.Height, primary.Area())
		result.Primary = &Primary{
			Center:    center,
			Box:       primary.Box,
			OffsetDX:  off.DX,
			OffsetDY:  off.DY,
			AreaRatio: off.AreaRatio,
		}
	} else {
		l.smoother.Miss()
	}

	return result, true
}

// CollectMetrics implements profiler.MetricsCollector.
func (l *Loop) CollectMetrics() map[string]float64 {
	return map[string]float64{
		"frames":         float64(l.frames.Load()),
		"skipped_frames": float64(l.skipped.Load()),
		"faces":          float64(l.lastFaces.Load()),
	}
}

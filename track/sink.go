package track

import (
	"github.com/sirupsen/logrus"
)

// Sink consumes one Result per frame. Implementations must tolerate a nil
// Primary — no target this frame — by holding position or idling. A failing
// sink is logged and skipped; it never stops the loop.
type Sink interface {
	Publish(result Result) error
}

// ConsoleSink is the minimal conforming consumer: it logs face count and
// offsets through the shared logger.
type ConsoleSink struct {
	log *logrus.Logger
}

// NewConsoleSink returns a sink logging to log.
func NewConsoleSink(log *logrus.Logger) *ConsoleSink {
	return &ConsoleSink{log: log}
}

// Publish implements Sink.
func (s *ConsoleSink) Publish(result Result) error {
	if result.Primary == nil {
		s.log.WithFields(logrus.Fields{
			"seq":   result.Seq,
			"faces": result.FaceCount,
		}).Debug("no target")
		return nil
	}

	s.log.WithFields(logrus.Fields{
		"seq":        result.Seq,
		"faces":      result.FaceCount,
		"dx":         result.Primary.OffsetDX,
		"dy":         result.Primary.OffsetDY,
		"area_ratio": result.Primary.AreaRatio,
	}).Info("target")
	return nil
}

// Package actuator maps tracking offsets to pan/tilt direction commands.
//
// Only the mapping lives here; the motor driver that turns directions into
// throttle lives outside this module and receives commands through the
// CommandWriter boundary.
package actuator

import (
	"github.com/nvr-ai/go-facetrack/track"
	"github.com/sirupsen/logrus"
)

// Direction is one discrete actuator movement.
type Direction string

// Pan and tilt directions. Directions name where the target is relative to
// the frame center — the offset sign convention — so "right" means the rig
// should rotate toward the right. A mount with mirrored servos inverts in
// its driver, not here.
const (
	Hold     Direction = "hold"
	PanLeft  Direction = "left"
	PanRight Direction = "right"
	TiltUp   Direction = "up"
	TiltDown Direction = "down"
)

// Command is one pan/tilt instruction pair.
type Command struct {
	Pan  Direction `json:"pan"`
	Tilt Direction `json:"tilt"`
}

// Stop is the command issued when no target is present.
var Stop = Command{Pan: Hold, Tilt: Hold}

// CommandWriter delivers commands to an actuator driver.
type CommandWriter interface {
	Write(cmd Command) error
}

// LogWriter is a CommandWriter that logs commands, the stand-in driver for
// rigs without motors attached.
type LogWriter struct {
	log *logrus.Logger
}

// NewLogWriter returns a writer logging at debug level.
func NewLogWriter(log *logrus.Logger) *LogWriter {
	return &LogWriter{log: log}
}

// Write implements CommandWriter.
func (w *LogWriter) Write(cmd Command) error {
	w.log.WithFields(logrus.Fields{"pan": cmd.Pan, "tilt": cmd.Tilt}).Debug("actuator command")
	return nil
}

// Mapper converts per-frame tracking results into commands. Within the dead
// zone around the frame center the rig holds position, so a well-centered
// face does not cause hunting. It implements track.Sink and issues Stop when
// no target is present.
type Mapper struct {
	deadZone int
	writer   CommandWriter
}

// NewMapper returns a mapper with a dead zone radius in pixels.
func NewMapper(deadZone int, writer CommandWriter) *Mapper {
	return &Mapper{deadZone: deadZone, writer: writer}
}

// Publish implements track.Sink.
func (m *Mapper) Publish(result track.Result) error {
	if result.Primary == nil {
		return m.writer.Write(Stop)
	}

	cmd := Command{Pan: Hold, Tilt: Hold}
	switch {
	case result.Primary.OffsetDX > m.deadZone:
		cmd.Pan = PanRight
	case result.Primary.OffsetDX < -m.deadZone:
		cmd.Pan = PanLeft
	}
	switch {
	case result.Primary.OffsetDY > m.deadZone:
		cmd.Tilt = TiltDown
	case result.Primary.OffsetDY < -m.deadZone:
		cmd.Tilt = TiltUp
	}
	return m.writer.Write(cmd)
}

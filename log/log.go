// Package log builds the shared logrus logger.
package log

import (
	"io"
	"os"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New returns a configured logger. An unparseable level falls back to info.
// When file is non-empty, output is duplicated to a size-rotated log file so
// long unattended runs on a board don't fill the card.
func New(level string, file string) *logrus.Logger {
	logger := logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	logger.SetFormatter(&formatter.Formatter{
		TimestampFormat: "15:04:05.000",
		HideKeys:        false,
		NoColors:        file != "",
	})

	writers := []io.Writer{os.Stderr}
	if file != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   file,
			MaxSize:    20, // megabytes
			MaxBackups: 3,
			MaxAge:     7, // days
			Compress:   true,
			LocalTime:  true,
		})
	}
	logger.SetOutput(io.MultiWriter(writers...))

	return logger
}

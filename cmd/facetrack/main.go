// Command facetrack runs the face tracking loop against a camera or a
// recorded frame directory, reporting per-frame center offsets for a
// pan/tilt rig.
package main

import (
	"context"
	"image"
	"os"
	"os/signal"
	"syscall"

	"github.com/nvr-ai/go-facetrack/actuator"
	"github.com/nvr-ai/go-facetrack/capture"
	"github.com/nvr-ai/go-facetrack/config"
	"github.com/nvr-ai/go-facetrack/detect"
	facelog "github.com/nvr-ai/go-facetrack/log"
	"github.com/nvr-ai/go-facetrack/overlay"
	"github.com/nvr-ai/go-facetrack/profiler"
	"github.com/nvr-ai/go-facetrack/stream"
	"github.com/nvr-ai/go-facetrack/track"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Version is the application version.
const Version = "0.1.0"

// flag overrides applied on top of the environment configuration
var (
	flagCamera       int
	flagWidth        int
	flagHeight       int
	flagBackend      string
	flagCascade      string
	flagModel        string
	flagAlpha        float64
	flagScaleStep    float64
	flagMinNeighbors int
	flagDeadZone     int
	flagStreamAddr   string
	flagOverlay      bool
	flagSourceDir    string
	flagLogLevel     string
)

var rootCmd = &cobra.Command{
	Use:           "facetrack",
	Short:         "Face tracking offset reporter for pan/tilt camera rigs",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	flags := rootCmd.Flags()
	flags.IntVar(&flagCamera, "camera", 0, "capture device index")
	flags.IntVar(&flagWidth, "width", 0, "target frame width")
	flags.IntVar(&flagHeight, "height", 0, "target frame height")
	flags.StringVar(&flagBackend, "backend", "", "detection backend (cascade, dnn, ort)")
	flags.StringVar(&flagCascade, "cascade", "", "Haar cascade file path")
	flags.StringVar(&flagModel, "model", "", "ONNX model file path")
	flags.Float64Var(&flagAlpha, "alpha", 0, "center smoothing factor (0,1]")
	flags.Float64Var(&flagScaleStep, "scale-step", 0, "cascade scale step (1,2)")
	flags.IntVar(&flagMinNeighbors, "min-neighbors", 0, "cascade neighbor threshold")
	flags.IntVar(&flagDeadZone, "dead-zone", 0, "actuator dead zone in pixels")
	flags.StringVar(&flagStreamAddr, "stream", "", "stream server listen address")
	flags.BoolVar(&flagOverlay, "overlay", true, "render the annotated stream overlay")
	flags.StringVar(&flagSourceDir, "source-dir", "", "replay frame-N image files instead of a camera")
	flags.StringVar(&flagLogLevel, "log-level", "", "log level (debug, info, warn, error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.StandardLogger().Error(err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyFlagOverrides(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := facelog.New(cfg.LogLevel, cfg.LogFile)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source, err := openSource(cfg)
	if err != nil {
		return err
	}

	detector, err := openDetector(cfg)
	if err != nil {
		source.Close()
		return err
	}
	defer detector.Close()

	prof := profiler.New(profiler.Options{
		ReportInterval: cfg.ReportInterval,
		Log:            logger,
	})
	prof.Start()
	defer prof.Stop()

	sinks := []track.Sink{
		track.NewConsoleSink(logger),
		actuator.NewMapper(cfg.DeadZone, actuator.NewLogWriter(logger)),
	}

	opts := []track.Option{
		track.WithLogger(logger),
		track.WithProfiler(prof),
		track.WithSmoother(track.NewSmoother(cfg.SmoothingAlpha, cfg.LockLossFrames)),
		track.WithSinks(sinks...),
	}

	var store *stream.Store
	if cfg.StreamAddr != "" && cfg.ShowOverlay {
		store = stream.NewStore()
		opts = append(opts, track.WithObserver(
			overlay.NewPublisher(overlay.New(), store, logger)))
	}

	loop := track.New(source, detector, opts...)

	var server *stream.Server
	if store != nil {
		server = stream.NewServer(cfg.StreamAddr, store, loop.RunID(), logger)
		go func() {
			if err := server.Listen(); err != nil {
				logger.WithError(err).Error("stream server failed")
			}
		}()
		defer func() {
			if err := server.Shutdown(); err != nil {
				logger.WithError(err).Warn("stream server shutdown")
			}
		}()
	}

	if err := loop.Run(ctx); err != nil {
		return errors.Wrap(err, "tracking loop")
	}
	return nil
}

// applyFlagOverrides copies explicitly set flags over the environment
// configuration so precedence is defaults < env < flags.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("camera") {
		cfg.CameraIndex = flagCamera
	}
	if flags.Changed("width") {
		cfg.FrameWidth = flagWidth
	}
	if flags.Changed("height") {
		cfg.FrameHeight = flagHeight
	}
	if flags.Changed("backend") {
		cfg.Backend = flagBackend
	}
	if flags.Changed("cascade") {
		cfg.CascadePath = flagCascade
	}
	if flags.Changed("model") {
		cfg.ModelPath = flagModel
	}
	if flags.Changed("alpha") {
		cfg.SmoothingAlpha = flagAlpha
	}
	if flags.Changed("scale-step") {
		cfg.ScaleStep = flagScaleStep
	}
	if flags.Changed("min-neighbors") {
		cfg.MinNeighbors = flagMinNeighbors
	}
	if flags.Changed("dead-zone") {
		cfg.DeadZone = flagDeadZone
	}
	if flags.Changed("stream") {
		cfg.StreamAddr = flagStreamAddr
	}
	if flags.Changed("overlay") {
		cfg.ShowOverlay = flagOverlay
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = flagLogLevel
	}
}

// openSource opens the replay directory when --source-dir is set, otherwise
// the configured camera.
func openSource(cfg config.Config) (capture.Source, error) {
	if flagSourceDir != "" {
		return capture.OpenDirectory(flagSourceDir, cfg.FrameWidth, cfg.FrameHeight)
	}
	return capture.OpenDevice(capture.DeviceConfig{
		Index:  cfg.CameraIndex,
		Width:  cfg.FrameWidth,
		Height: cfg.FrameHeight,
	})
}

func openDetector(cfg config.Config) (detect.Detector, error) {
	switch cfg.Backend {
	case config.BackendCascade:
		return detect.NewCascade(detect.CascadeConfig{
			Path:         cfg.CascadePath,
			ScaleStep:    cfg.ScaleStep,
			MinNeighbors: cfg.MinNeighbors,
			MinSize:      cfg.MinBoxSize,
			MaxSize:      cfg.MaxBoxSize,
		})
	case config.BackendDNN:
		return detect.NewDNN(detect.DNNConfig{
			ModelPath:           cfg.ModelPath,
			InputSize:           image.Pt(300, 300),
			ConfidenceThreshold: float32(cfg.ConfidenceThreshold),
			MinSize:             cfg.MinBoxSize,
			MaxSize:             cfg.MaxBoxSize,
		})
	case config.BackendORT:
		return detect.NewORT(detect.ORTConfig{
			ModelPath:           cfg.ModelPath,
			LibraryPath:         cfg.ORTLibraryPath,
			ConfidenceThreshold: float32(cfg.ConfidenceThreshold),
			MinSize:             cfg.MinBoxSize,
			MaxSize:             cfg.MaxBoxSize,
		})
	default:
		return nil, errors.Errorf("unknown backend %q", cfg.Backend)
	}
}

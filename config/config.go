// Package config defines the tracker configuration surface and its validation.
//
// Configuration is resolved once at startup: defaults, then environment
// variables (a .env file is honored when present), then any CLI overrides the
// caller applies on top. Invalid values are fatal before the loop starts and
// are never discovered mid-frame.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Detection backend identifiers. Each maps to one conforming type in the
// detect package.
const (
	BackendCascade = "cascade"
	BackendDNN     = "dnn"
	BackendORT     = "ort"
)

// Config holds every tunable of the tracking pipeline.
type Config struct {
	// CameraIndex selects the capture device. The first enumerated camera is 0.
	CameraIndex int `validate:"gte=0"`
	// FrameWidth and FrameHeight are the target capture resolution. Lower
	// resolutions trade detection range for frame rate on small boards.
	FrameWidth  int `validate:"gt=0"`
	FrameHeight int `validate:"gt=0"`

	// Backend picks the face detection implementation.
	Backend string `validate:"oneof=cascade dnn ort"`
	// CascadePath is the Haar cascade file used by the cascade backend.
	CascadePath string `validate:"required_if=Backend cascade"`
	// ModelPath is the ONNX model used by the dnn and ort backends.
	ModelPath string `validate:"required_if=Backend dnn,required_if=Backend ort"`
	// ORTLibraryPath points at the onnxruntime shared library for the ort backend.
	ORTLibraryPath string

	// ScaleStep controls the multi-scale search granularity of the cascade.
	// Higher values are faster but miss faces at in-between sizes.
	ScaleStep float64 `validate:"gt=1,lt=2"`
	// MinNeighbors suppresses false positives by requiring clustered hits.
	MinNeighbors int `validate:"gte=0"`
	// MinBoxSize and MaxBoxSize clamp accepted detection sizes in pixels.
	// A MaxBoxSize of 0 leaves the upper bound open.
	MinBoxSize int `validate:"gte=0"`
	MaxBoxSize int `validate:"gte=0"`
	// ConfidenceThreshold applies to the learned backends only.
	ConfidenceThreshold float64 `validate:"gte=0,lte=1"`

	// SmoothingAlpha is the exponential smoothing factor for the target
	// center. 1 disables smoothing.
	SmoothingAlpha float64 `validate:"gt=0,lte=1"`
	// LockLossFrames is how many consecutive target-less frames release the
	// smoothing lock.
	LockLossFrames int `validate:"gte=1"`

	// DeadZone is the pixel radius around the frame center within which the
	// actuator holds position.
	DeadZone int `validate:"gte=0"`

	// ShowOverlay enables annotated frame rendering for the stream server.
	ShowOverlay bool
	// StreamAddr is the listen address of the MJPEG/result HTTP server.
	// Empty disables the server entirely.
	StreamAddr string

	// ReportInterval is how often runtime diagnostics are logged.
	ReportInterval time.Duration `validate:"gte=0"`

	// LogLevel and LogFile configure the logger. An empty LogFile logs to
	// stderr only.
	LogLevel string
	LogFile  string
}

// Default returns the configuration the tracker ships with. The detection
// parameters match the classifier defaults the cascade was tuned against.
func Default() Config {
	return Config{
		CameraIndex:         0,
		FrameWidth:          320,
		FrameHeight:         240,
		Backend:             BackendCascade,
		CascadePath:         "haarcascade_frontalface_default.xml",
		ScaleStep:           1.1,
		MinNeighbors:        5,
		MinBoxSize:          30,
		MaxBoxSize:          0,
		ConfidenceThreshold: 0.7,
		SmoothingAlpha:      0.35,
		LockLossFrames:      5,
		DeadZone:            50,
		ShowOverlay:         true,
		StreamAddr:          ":8080",
		ReportInterval:      2 * time.Second,
		LogLevel:            "info",
	}
}

// Load resolves the configuration from defaults and the environment. A .env
// file in the working directory is read when present; a missing file is not
// an error.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	var err error
	if err = envInt("FACETRACK_CAMERA_INDEX", &cfg.CameraIndex); err != nil {
		return cfg, err
	}
	if err = envInt("FACETRACK_FRAME_WIDTH", &cfg.FrameWidth); err != nil {
		return cfg, err
	}
	if err = envInt("FACETRACK_FRAME_HEIGHT", &cfg.FrameHeight); err != nil {
		return cfg, err
	}
	envString("FACETRACK_BACKEND", &cfg.Backend)
	envString("FACETRACK_CASCADE_PATH", &cfg.CascadePath)
	envString("FACETRACK_MODEL_PATH", &cfg.ModelPath)
	envString("FACETRACK_ORT_LIBRARY_PATH", &cfg.ORTLibraryPath)
	if err = envFloat("FACETRACK_SCALE_STEP", &cfg.ScaleStep); err != nil {
		return cfg, err
	}
	if err = envInt("FACETRACK_MIN_NEIGHBORS", &cfg.MinNeighbors); err != nil {
		return cfg, err
	}
	if err = envInt("FACETRACK_MIN_BOX_SIZE", &cfg.MinBoxSize); err != nil {
		return cfg, err
	}
	if err = envInt("FACETRACK_MAX_BOX_SIZE", &cfg.MaxBoxSize); err != nil {
		return cfg, err
	}
	if err = envFloat("FACETRACK_CONFIDENCE", &cfg.ConfidenceThreshold); err != nil {
		return cfg, err
	}
	if err = envFloat("FACETRACK_SMOOTHING_ALPHA", &cfg.SmoothingAlpha); err != nil {
		return cfg, err
	}
	if err = envInt("FACETRACK_LOCK_LOSS_FRAMES", &cfg.LockLossFrames); err != nil {
		return cfg, err
	}
	if err = envInt("FACETRACK_DEAD_ZONE", &cfg.DeadZone); err != nil {
		return cfg, err
	}
	if err = envBool("FACETRACK_SHOW_OVERLAY", &cfg.ShowOverlay); err != nil {
		return cfg, err
	}
	envString("FACETRACK_STREAM_ADDR", &cfg.StreamAddr)
	if err = envDuration("FACETRACK_REPORT_INTERVAL", &cfg.ReportInterval); err != nil {
		return cfg, err
	}
	envString("FACETRACK_LOG_LEVEL", &cfg.LogLevel)
	envString("FACETRACK_LOG_FILE", &cfg.LogFile)

	return cfg, nil
}

// Validate checks every range constraint. It is called once at startup; a
// non-nil error must abort the process before the loop runs.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	if c.MaxBoxSize > 0 && c.MaxBoxSize < c.MinBoxSize {
		return errors.Errorf("invalid configuration: max box size %d below min box size %d",
			c.MaxBoxSize, c.MinBoxSize)
	}
	return nil
}

func envString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func envInt(key string, dst *int) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return errors.Wrapf(err, "%s must be an integer", key)
	}
	*dst = n
	return nil
}

func envFloat(key string, dst *float64) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return errors.Wrapf(err, "%s must be a number", key)
	}
	*dst = f
	return nil
}

func envBool(key string, dst *bool) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return errors.Wrapf(err, "%s must be a boolean", key)
	}
	*dst = b
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return errors.Wrapf(err, "%s must be a duration", key)
	}
	*dst = d
	return nil
}

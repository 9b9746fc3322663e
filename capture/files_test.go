package capture

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFramePNG writes a solid-color frame file with the given frame number.
func writeFramePNG(t *testing.T, dir string, frame int, c color.Color, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(filepath.Join(dir, fmt.Sprintf("frame-%d.png", frame)))
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

// TestDirectorySourceOrdering verifies frames replay in frame-number order,
// not directory order, and are resized to the target resolution.
func TestDirectorySourceOrdering(t *testing.T) {
	dir := t.TempDir()
	// Written out of order on purpose.
	writeFramePNG(t, dir, 10, color.RGBA{0, 0, 255, 255}, 64, 48)
	writeFramePNG(t, dir, 2, color.RGBA{0, 255, 0, 255}, 64, 48)
	writeFramePNG(t, dir, 0, color.RGBA{255, 0, 0, 255}, 640, 480)

	source, err := OpenDirectory(dir, 320, 240)
	require.NoError(t, err)
	defer source.Close()

	ctx := context.Background()

	first, err := source.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, first.Seq)
	assert.Equal(t, 320, first.Width)
	assert.Equal(t, 240, first.Height)
	b := first.Image.Bounds()
	assert.Equal(t, 320, b.Dx(), "oversized frames are resized to target resolution")
	assert.Equal(t, 240, b.Dy())

	r, _, _, _ := first.Image.At(160, 120).RGBA()
	assert.Greater(t, r>>8, uint32(200), "first frame is the red one")

	second, err := source.Next(ctx)
	require.NoError(t, err)
	_, g, _, _ := second.Image.At(160, 120).RGBA()
	assert.Greater(t, g>>8, uint32(200), "second frame is the green one")

	third, err := source.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, third.Seq)
}

// TestDirectorySourceDrained verifies the source reports a capture error,
// like a disconnected camera, once the recording is exhausted.
func TestDirectorySourceDrained(t *testing.T) {
	dir := t.TempDir()
	writeFramePNG(t, dir, 0, color.White, 320, 240)

	source, err := OpenDirectory(dir, 320, 240)
	require.NoError(t, err)
	defer source.Close()

	_, err = source.Next(context.Background())
	require.NoError(t, err)

	_, err = source.Next(context.Background())
	require.Error(t, err)
	assert.True(t, IsCaptureError(err))
	assert.True(t, errors.Is(err, ErrSourceDrained))
}

// TestDirectorySourceEmptyDir verifies opening a directory without frame
// files is a capture error up front.
func TestDirectorySourceEmptyDir(t *testing.T) {
	_, err := OpenDirectory(t.TempDir(), 320, 240)
	require.Error(t, err)
	assert.True(t, IsCaptureError(err))
}

// TestDirectorySourceHonorsCancellation verifies a canceled context stops
// reads immediately.
func TestDirectorySourceHonorsCancellation(t *testing.T) {
	dir := t.TempDir()
	writeFramePNG(t, dir, 0, color.White, 320, 240)

	source, err := OpenDirectory(dir, 320, 240)
	require.NoError(t, err)
	defer source.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = source.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

package capture

import (
	"bytes"
	"context"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// frameFile is one recorded frame on disk, ordered by its frame number.
type frameFile struct {
	path  string
	frame int
}

// DirectorySource replays frames recorded as frame-N image files. It gives
// the loop a deterministic input for offline runs and tests, behaving like a
// camera that disconnects once the recording is exhausted.
type DirectorySource struct {
	dir    string
	files  []frameFile
	pos    int
	width  int
	height int
	seq    int
}

// OpenDirectory scans dir for frame-N.{jpg,jpeg,png,bmp} files. Frames are
// replayed in frame-number order and resized to width x height.
func OpenDirectory(dir string, width, height int) (*DirectorySource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &Error{Device: dir, Op: "open", Err: err}
	}

	var files []frameFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		switch ext {
		case ".jpg", ".jpeg", ".png", ".bmp":
		default:
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ext)
		if !strings.HasPrefix(name, "frame-") {
			continue
		}
		frame, convErr := strconv.Atoi(strings.TrimPrefix(name, "frame-"))
		if convErr != nil {
			return nil, &Error{
				Device: dir,
				Op:     "open",
				Err:    errors.Wrapf(convErr, "bad frame file name %s", entry.Name()),
			}
		}
		files = append(files, frameFile{path: filepath.Join(dir, entry.Name()), frame: frame})
	}

	if len(files) == 0 {
		return nil, &Error{Device: dir, Op: "open", Err: errors.New("no frame files")}
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].frame < files[j].frame
	})

	return &DirectorySource{dir: dir, files: files, width: width, height: height}, nil
}

// Next decodes and resizes the next recorded frame.
func (s *DirectorySource) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if s.pos >= len(s.files) {
		return Frame{}, &Error{Device: s.dir, Op: "read", Err: ErrSourceDrained}
	}

	file := s.files[s.pos]
	s.pos++

	data, err := os.ReadFile(file.path)
	if err != nil {
		return Frame{}, &Error{Device: file.path, Op: "read", Err: err}
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Frame{}, &Error{Device: file.path, Op: "decode", Err: err}
	}

	if b := img.Bounds(); b.Dx() != s.width || b.Dy() != s.height {
		img = resize.Resize(uint(s.width), uint(s.height), img, resize.Bilinear)
	}

	frame := Frame{
		Seq:       s.seq,
		Image:     img,
		Width:     s.width,
		Height:    s.height,
		Timestamp: time.Now(),
	}
	s.seq++
	return frame, nil
}

// Close is a no-op; the source holds no device handle between reads.
func (s *DirectorySource) Close() error { return nil }

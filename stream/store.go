package stream

import (
	"sync"

	"github.com/nvr-ai/go-facetrack/track"
)

// Store holds the latest annotated JPEG and tracking result for the HTTP
// handlers. The loop writes, handler goroutines read; snapshots are immutable
// once stored, so readers never see a half-written frame.
type Store struct {
	mu     sync.RWMutex
	jpeg   []byte
	result track.Result
	frames uint64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Update replaces the latest snapshot. The JPEG bytes are copied; callers
// may reuse their buffer.
func (s *Store) Update(jpeg []byte, result track.Result) {
	frame := make([]byte, len(jpeg))
	copy(frame, jpeg)

	s.mu.Lock()
	s.jpeg = frame
	s.result = result
	s.frames++
	s.mu.Unlock()
}

// Frame returns the latest JPEG, nil before the first update. The returned
// slice is never written to again.
func (s *Store) Frame() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jpeg
}

// Result returns the latest tracking result.
func (s *Store) Result() track.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result
}

// Frames returns how many snapshots have been stored.
func (s *Store) Frames() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frames
}

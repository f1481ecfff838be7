package output

import (
	"io"
	"os"
	"sync"
)

// Stdout is the process-wide output stream external tools are attached to.
var Stdout = NewStream(os.Stdout)

// Stream is an io.Writer whose write target can be swapped and restored.
type Stream struct {
	mu     sync.Mutex
	target io.Writer
}

// NewStream ...
func NewStream(target io.Writer) *Stream {
	return &Stream{target: target}
}

// Write forwards p to the active target.
func (s *Stream) Write(p []byte) (int, error) {
	s.mu.Lock()
	target := s.target
	s.mu.Unlock()

	return target.Write(p)
}

func (s *Stream) swap(target io.Writer) io.Writer {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.target
	s.target = target
	return previous
}

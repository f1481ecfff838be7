package output

import (
	"bytes"
	"io"
	"regexp"
	"sync"
)

var reportLinePattern = regexp.MustCompile(`^\{.*\}$`)

// Interceptor takes over a Stream while a tool is running. Lines that look like a
// self-contained JSON record are kept aside, everything else is passed through to
// the target the stream had before the interception started.
type Interceptor struct {
	mu       sync.Mutex
	stream   *Stream
	previous io.Writer
	pending  []byte
	captured bytes.Buffer
	released bool
}

// Intercept installs a new Interceptor on the stream.
// The caller must call Release, typically with defer.
func Intercept(stream *Stream) *Interceptor {
	i := &Interceptor{stream: stream}
	i.previous = stream.swap(i)
	return i
}

// Write ...
func (i *Interceptor) Write(p []byte) (int, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.released {
		return i.previous.Write(p)
	}

	i.pending = append(i.pending, p...)
	for {
		idx := bytes.IndexByte(i.pending, '\n')
		if idx < 0 {
			break
		}

		line := i.pending[:idx+1]
		if err := i.classify(line); err != nil {
			i.pending = i.pending[idx+1:]
			return len(p), err
		}
		i.pending = i.pending[idx+1:]
	}

	return len(p), nil
}

func (i *Interceptor) classify(line []byte) error {
	trimmed := bytes.TrimSpace(line)
	if reportLinePattern.Match(trimmed) {
		i.captured.Write(trimmed)
		return nil
	}

	_, err := i.previous.Write(line)
	return err
}

// Release flushes a pending partial line and gives the stream back to its previous
// target. Calling it more than once is a no-op.
func (i *Interceptor) Release() {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.released {
		return
	}

	if len(i.pending) > 0 {
		// the stream is restored below even if the passthrough write fails
		_ = i.classify(i.pending)
		i.pending = nil
	}

	i.stream.swap(i.previous)
	i.released = true
}

// Captured returns the structured records collected so far, concatenated.
func (i *Interceptor) Captured() string {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.captured.String()
}

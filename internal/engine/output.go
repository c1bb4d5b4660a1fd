package engine

import (
	"bytes"
	"strings"
	"sync"
)

// cappedBuffer is an in-memory sink for one output stream. Writes beyond the
// byte cap are counted but discarded, so a chatty child can never exhaust
// parent memory while still being drained (draining must continue or the
// child deadlocks on a full pipe buffer).
type cappedBuffer struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	max       int
	truncated bool
}

func newCappedBuffer(max int) *cappedBuffer {
	return &cappedBuffer{max: max}
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.max > 0 {
		room := b.max - b.buf.Len()
		if room <= 0 {
			b.truncated = true
			return len(p), nil
		}
		if len(p) > room {
			b.buf.Write(p[:room])
			b.truncated = true
			return len(p), nil
		}
	}
	b.buf.Write(p)
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *cappedBuffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.truncated
}

// lineWriter splits a byte stream into lines and forwards them to a tap.
// A trailing partial line is delivered by Flush when the stream ends.
type lineWriter struct {
	stream  string
	tap     LineTap
	partial strings.Builder
}

func newLineWriter(stream string, tap LineTap) *lineWriter {
	return &lineWriter{stream: stream, tap: tap}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	rest := p
	for {
		idx := bytes.IndexByte(rest, '\n')
		if idx < 0 {
			w.partial.Write(rest)
			return len(p), nil
		}
		w.partial.Write(rest[:idx])
		w.tap(w.stream, w.partial.String())
		w.partial.Reset()
		rest = rest[idx+1:]
	}
}

// Flush emits any buffered partial line.
func (w *lineWriter) Flush() {
	if w.partial.Len() > 0 {
		w.tap(w.stream, w.partial.String())
		w.partial.Reset()
	}
}

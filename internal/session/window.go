package session

import "sync"

// window accumulates stream bytes and cuts fixed-size chunks, retaining a
// trailing overlap so consecutive chunks share context at their boundary.
// Safe for the stream consumer and finalize/cancel to touch concurrently.
type window struct {
	mu      sync.Mutex
	buf     []byte
	size    int
	overlap int
	// carried counts leading buffer bytes already emitted as the tail of
	// the previous chunk; flush emits only when new bytes follow them.
	carried int
}

func newWindow(size, overlap int) *window {
	return &window{size: size, overlap: overlap}
}

// add appends stream bytes to the buffer.
func (w *window) add(p []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, p...)
}

// next cuts one full chunk when enough bytes have accumulated. The
// trailing overlap stays buffered as the head of the next chunk.
func (w *window) next() ([]byte, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.buf) < w.size {
		return nil, false
	}
	chunk := make([]byte, w.size)
	copy(chunk, w.buf[:w.size])

	keep := w.size - w.overlap
	n := copy(w.buf, w.buf[keep:])
	w.buf = w.buf[:n]
	w.carried = w.overlap
	return chunk, true
}

// flush returns the un-emitted remainder and clears the buffer. A buffer
// holding only the carried overlap has no new audio and flushes empty.
func (w *window) flush() []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.buf) <= w.carried {
		w.buf = w.buf[:0]
		w.carried = 0
		return nil
	}
	out := make([]byte, len(w.buf))
	copy(out, w.buf)
	w.buf = w.buf[:0]
	w.carried = 0
	return out
}

// reset drops all buffered bytes.
func (w *window) reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = w.buf[:0]
	w.carried = 0
}

// pending reports the number of buffered bytes.
func (w *window) pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.buf)
}

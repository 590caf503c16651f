package audio

import (
	"encoding/binary"
	"sync"
)

// LevelWindow keeps the most recent samples of a capture for metering. The
// collector writes, the UI reads.
type LevelWindow struct {
	mu   sync.RWMutex
	buf  []int16
	next int  // write position
	full bool // buf has wrapped at least once
}

// NewLevelWindow holds up to size samples.
func NewLevelWindow(size int) *LevelWindow {
	return &LevelWindow{buf: make([]int16, max(size, 1))}
}

// Write decodes S16LE PCM into the window, evicting the oldest samples.
// A trailing odd byte is ignored.
func (w *LevelWindow) Write(pcm []byte) {
	n := len(pcm) / bytesPerSample
	if n == 0 {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	// only the tail can survive a write longer than the window
	if skip := n - len(w.buf); skip > 0 {
		pcm = pcm[skip*bytesPerSample:]
		n = len(w.buf)
	}

	for i := range n {
		w.buf[w.next] = int16(binary.LittleEndian.Uint16(pcm[i*bytesPerSample:])) //nolint:gosec // S16LE reinterpretation
		w.next++
		if w.next == len(w.buf) {
			w.next = 0
			w.full = true
		}
	}
}

// Recent returns up to n of the newest samples, oldest first.
func (w *LevelWindow) Recent(n int) []int16 {
	w.mu.RLock()
	defer w.mu.RUnlock()

	n = min(n, w.lenLocked())
	if n <= 0 {
		return nil
	}

	out := make([]int16, n)
	start := w.next - n

	if start >= 0 {
		copy(out, w.buf[start:w.next])
		return out
	}

	// wrapped: tail of buf, then head
	copied := copy(out, w.buf[len(w.buf)+start:])
	copy(out[copied:], w.buf[:w.next])

	return out
}

// Len is the number of samples held.
func (w *LevelWindow) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.lenLocked()
}

func (w *LevelWindow) lenLocked() int {
	if w.full {
		return len(w.buf)
	}

	return w.next
}

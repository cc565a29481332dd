package state

// window is a fixed-capacity ring buffer of float64 samples ordered oldest
// first. Pushing beyond capacity evicts the oldest sample; no allocation
// happens after construction.
type window struct {
	buf  []float64
	head int // index of the oldest sample
	size int
}

func newWindow(capacity int) *window {
	if capacity <= 0 {
		capacity = 1
	}
	return &window{buf: make([]float64, capacity)}
}

func (w *window) push(v float64) {
	if w.size < len(w.buf) {
		w.buf[(w.head+w.size)%len(w.buf)] = v
		w.size++
		return
	}
	w.buf[w.head] = v
	w.head = (w.head + 1) % len(w.buf)
}

func (w *window) len() int { return w.size }

// values returns a copy of the samples ordered oldest first.
func (w *window) values() []float64 {
	out := make([]float64, w.size)
	for i := 0; i < w.size; i++ {
		out[i] = w.buf[(w.head+i)%len(w.buf)]
	}
	return out
}

func (w *window) last() (float64, bool) {
	if w.size == 0 {
		return 0, false
	}
	return w.buf[(w.head+w.size-1)%len(w.buf)], true
}

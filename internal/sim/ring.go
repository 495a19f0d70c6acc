package sim

// Ring is a fixed-capacity FIFO that evicts its oldest entry once full.
// The zero value is not usable; construct with NewRing.
type Ring[T any] struct {
	buf   []T
	start int
	n     int
}

// NewRing panics when capacity < 1.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		panic("sim: ring capacity must be at least 1")
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

func (r *Ring[T]) Append(v T) {
	c := len(r.buf)
	if r.n < c {
		r.buf[(r.start+r.n)%c] = v
		r.n++
		return
	}
	r.buf[r.start] = v
	r.start = (r.start + 1) % c
}

func (r *Ring[T]) Len() int { return r.n }
func (r *Ring[T]) Cap() int { return len(r.buf) }

// At returns the i-th entry counted from the oldest.
func (r *Ring[T]) At(i int) T {
	if i < 0 || i >= r.n {
		panic("sim: ring index out of range")
	}
	return r.buf[(r.start+i)%len(r.buf)]
}

func (r *Ring[T]) Last() (T, bool) {
	var zero T
	if r.n == 0 {
		return zero, false
	}
	return r.At(r.n - 1), true
}

// Snapshot copies the entries, oldest first, into a fresh slice.
func (r *Ring[T]) Snapshot() []T {
	out := make([]T, r.n)
	for i := range out {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

func (r *Ring[T]) Reset() {
	var zero T
	for i := range r.buf {
		r.buf[i] = zero
	}
	r.start, r.n = 0, 0
}

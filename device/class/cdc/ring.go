package cdc

// ring is a fixed byte FIFO.
type ring struct {
	buf  [BufferSize]byte
	head int
	n    int
}

func (r *ring) free() int { return len(r.buf) - r.n }

func (r *ring) reset() { r.head, r.n = 0, 0 }

// write appends as much of p as fits and returns the count.
func (r *ring) write(p []byte) int {
	n := min(len(p), r.free())
	tail := (r.head + r.n) % len(r.buf)
	c := copy(r.buf[tail:], p[:n])
	copy(r.buf[:], p[c:n])
	r.n += n
	return n
}

// peek copies the oldest bytes into p without consuming them.
func (r *ring) peek(p []byte) int {
	n := min(len(p), r.n)
	c := copy(p[:n], r.buf[r.head:])
	copy(p[c:n], r.buf[:])
	return n
}

func (r *ring) discard(n int) {
	n = min(n, r.n)
	r.head = (r.head + n) % len(r.buf)
	r.n -= n
}

// read consumes the oldest bytes into p.
func (r *ring) read(p []byte) int {
	n := r.peek(p)
	r.discard(n)
	return n
}

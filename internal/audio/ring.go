package audio

import (
	"sync"
	"time"
)

// Ring is a bounded sample buffer bridging the capture callback
// (producer) and the consumer goroutine. The producer never blocks: a
// write that would exceed capacity evicts the oldest samples and raises
// the overflow flag. The consumer may block in WaitForData, which is the
// only suspension point.
type Ring struct {
	mu       sync.Mutex
	buf      []float32
	read     int
	write    int
	avail    int
	overflow bool

	// signal carries at most one pending "data arrived" notification so
	// the callback never blocks on it.
	signal chan struct{}
}

// NewRing creates a ring holding at most capacity samples.
func NewRing(capacity int) *Ring {
	return &Ring{
		buf:    make([]float32, capacity),
		signal: make(chan struct{}, 1),
	}
}

// Write copies samples into the ring, evicting the oldest data when
// there is not enough free space. Safe to call from the real-time
// callback: bounded work under a briefly held mutex, no allocation.
func (r *Ring) Write(samples []float32) {
	if len(samples) == 0 {
		return
	}
	r.mu.Lock()

	capacity := len(r.buf)
	if len(samples) > capacity {
		// Larger than the whole ring; only the tail survives.
		samples = samples[len(samples)-capacity:]
		r.overflow = true
	}

	space := capacity - r.avail
	if len(samples) > space {
		excess := len(samples) - space
		r.read = (r.read + excess) % capacity
		r.avail -= excess
		r.overflow = true
	}

	n := copy(r.buf[r.write:], samples)
	if n < len(samples) {
		copy(r.buf, samples[n:])
	}
	r.write = (r.write + len(samples)) % capacity
	r.avail += len(samples)

	r.mu.Unlock()

	select {
	case r.signal <- struct{}{}:
	default:
	}
}

// Read copies exactly len(out) samples into out and returns len(out), or
// returns 0 without consuming anything when fewer samples are buffered.
// Partial reads are never performed.
func (r *Ring) Read(out []float32) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(out) == 0 || r.avail < len(out) {
		return 0
	}

	n := copy(out, r.buf[r.read:])
	if n < len(out) {
		copy(out[n:], r.buf)
	}
	r.read = (r.read + len(out)) % len(r.buf)
	r.avail -= len(out)
	return len(out)
}

// WaitForData blocks until at least min samples are buffered or the
// timeout elapses, and reports whether the samples are there.
func (r *Ring) WaitForData(min int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		r.mu.Lock()
		ok := r.avail >= min
		r.mu.Unlock()
		if ok {
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}
		select {
		case <-r.signal:
		case <-timer.C:
			// Recheck once; a write may have landed as the timer fired.
			r.mu.Lock()
			ok := r.avail >= min
			r.mu.Unlock()
			return ok
		}
	}
}

// Available reports the number of buffered samples.
func (r *Ring) Available() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.avail
}

// Overflowed reports whether any write has evicted data since the last
// TakeOverflow or Clear.
func (r *Ring) Overflowed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.overflow
}

// TakeOverflow returns the overflow flag and clears it. The pipeline
// uses this to count drop events without double reporting.
func (r *Ring) TakeOverflow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	flag := r.overflow
	r.overflow = false
	return flag
}

// Clear drops all buffered samples and resets the overflow flag. Called
// on stream stop.
func (r *Ring) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.read = r.write
	r.avail = 0
	r.overflow = false
}

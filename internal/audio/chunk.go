package audio

// Chunk is a fixed-length block of mono float32 samples. A chunk owns its
// backing buffer exclusively; hand it to another stage with Take rather
// than copying multi-kilobyte frames on the hot path.
type Chunk struct {
	samples []float32
}

// NewChunk allocates a zero-filled chunk of the given size.
func NewChunk(size int) *Chunk {
	return &Chunk{samples: make([]float32, size)}
}

// NewChunkFromSamples copies the given samples into a fresh chunk.
func NewChunkFromSamples(samples []float32) *Chunk {
	c := &Chunk{samples: make([]float32, len(samples))}
	copy(c.samples, samples)
	return c
}

// Len reports the number of samples in the chunk. A moved-from chunk
// reports zero.
func (c *Chunk) Len() int {
	return len(c.samples)
}

// Samples exposes the backing buffer. Stages that transform audio in
// place (the noise suppressor) write through this slice.
func (c *Chunk) Samples() []float32 {
	return c.samples
}

// Take transfers ownership of the backing buffer to a new chunk and
// leaves the receiver empty.
func (c *Chunk) Take() *Chunk {
	moved := &Chunk{samples: c.samples}
	c.samples = nil
	return moved
}

// Clone makes an explicit deep copy for stages that must not mutate the
// caller's data.
func (c *Chunk) Clone() *Chunk {
	return NewChunkFromSamples(c.samples)
}

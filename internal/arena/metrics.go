package arena

// InUse returns the bytes handed out, including alignment padding.
func (a *Arena) InUse() int {
	return a.inUse
}

// NumBlocks returns the number of blocks currently held.
func (a *Arena) NumBlocks() int {
	return len(a.blocks)
}

// Capacity returns the total size of all blocks.
func (a *Arena) Capacity() int {
	sum := 0
	for _, b := range a.blocks {
		sum += len(b.buf)
	}
	return sum
}

// Peak returns the highest InUse value observed since creation.
func (a *Arena) Peak() int {
	return a.peak
}

// BlockSize returns the default block size.
func (a *Arena) BlockSize() int {
	return a.blockSize
}

// Utilization returns InUse / Capacity, or 0 for an empty arena.
func (a *Arena) Utilization() float64 {
	c := a.Capacity()
	if c == 0 {
		return 0
	}
	return float64(a.InUse()) / float64(c)
}

// Metrics is a snapshot of arena statistics.
type Metrics struct {
	InUse       int
	Capacity    int
	NumBlocks   int
	BlockSize   int
	Peak        int
	Utilization float64
}

// Metrics returns a snapshot of arena statistics.
func (a *Arena) Metrics() Metrics {
	return Metrics{
		InUse:       a.InUse(),
		Capacity:    a.Capacity(),
		NumBlocks:   a.NumBlocks(),
		BlockSize:   a.blockSize,
		Peak:        a.peak,
		Utilization: a.Utilization(),
	}
}

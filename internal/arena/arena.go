// Package arena implements the block-chained bump allocator that backs array storage.
//
// Allocations never move and are never freed individually. Memory is reclaimed
// by rolling back to a Checkpoint, by Reset (blocks kept, offsets zeroed) or by
// Free (all blocks dropped). An Arena is not safe for concurrent use.
package arena

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/born-ml/ndarray/internal/resource"
)

// DefaultBlockSize is the default block size for new arenas (8 MiB).
const DefaultBlockSize = 8 << 20

// BlockAlign is the alignment of every block base address.
const BlockAlign = 64

// Errors returned by the arena.
var (
	ErrOutOfMemory       = errors.New("arena: out of memory")
	ErrReleased          = errors.New("arena: use after Free")
	ErrInvalidAlignment  = errors.New("arena: alignment must be a power of two")
	ErrInvalidSize       = errors.New("arena: invalid size")
	ErrInvalidCheckpoint = errors.New("arena: checkpoint does not belong to this arena state")
)

// block is one region of the chain.
type block struct {
	buf    []byte // aligned to BlockAlign
	offset int    // bump position within buf
}

// Arena is a bump allocator over a chain of blocks.
type Arena struct {
	blocks    []*block
	current   int // index of the block accepting allocations, -1 before first use
	blockSize int
	budget    *resource.Controller
	onGrow    func(size, blocks int, dedicated bool)

	generation uint64 // bumped by Reset and Free to invalidate checkpoints
	inUse      int    // sum of block offsets
	peak       int
	released   bool
}

// Option configures an Arena.
type Option func(*Arena)

// WithBudget charges every block against the given controller.
func WithBudget(c *resource.Controller) Option {
	return func(a *Arena) {
		a.budget = c
	}
}

// WithGrowHook registers a callback invoked whenever a new block is appended.
func WithGrowHook(fn func(size, blocks int, dedicated bool)) Option {
	return func(a *Arena) {
		a.onGrow = fn
	}
}

// New creates an arena. No memory is reserved until the first allocation.
// If blockSize is 0, DefaultBlockSize is used.
func New(blockSize int, opts ...Option) (*Arena, error) {
	if blockSize < 0 {
		return nil, fmt.Errorf("%w: block size %d", ErrInvalidSize, blockSize)
	}
	if blockSize == 0 {
		blockSize = DefaultBlockSize
	}

	a := &Arena{
		current:   -1,
		blockSize: blockSize,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Alloc returns size bytes aligned to alignment (a power of two).
// The memory is not zeroed. It stays valid until Free, Reset, or a Restore
// to a checkpoint taken before this call.
func (a *Arena) Alloc(size, alignment int) ([]byte, error) {
	if a.released {
		return nil, ErrReleased
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidSize, size)
	}
	if alignment <= 0 || alignment&(alignment-1) != 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAlignment, alignment)
	}

	// Fast path: current block has room.
	if a.current >= 0 {
		b := a.blocks[a.current]
		if p, ok := b.fit(size, alignment); ok {
			return a.take(b, p, size), nil
		}
	}

	return a.allocSlow(size, alignment)
}

// allocSlow moves to the next reusable block or appends a new one.
func (a *Arena) allocSlow(size, alignment int) ([]byte, error) {
	// Blocks after current are empty (kept by Reset); reuse the next one if it fits.
	if next := a.current + 1; next < len(a.blocks) {
		b := a.blocks[next]
		if p, ok := b.fit(size, alignment); ok {
			a.current = next
			return a.take(b, p, size), nil
		}
	}

	minNeeded := size + alignment - 1
	if minNeeded < size {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidSize, size)
	}
	dedicated := minNeeded > a.blockSize
	b, err := a.newBlock(max(minNeeded, a.blockSize))
	if err != nil {
		return nil, err
	}

	// Insert right after current so later (reset) blocks stay reusable.
	at := a.current + 1
	a.blocks = append(a.blocks, nil)
	copy(a.blocks[at+1:], a.blocks[at:])
	a.blocks[at] = b
	a.current = at

	if a.onGrow != nil {
		a.onGrow(len(b.buf), len(a.blocks), dedicated)
	}

	p, _ := b.fit(size, alignment)
	return a.take(b, p, size), nil
}

func (a *Arena) newBlock(size int) (*block, error) {
	if err := a.budget.Acquire(int64(size)); err != nil {
		return nil, fmt.Errorf("%w: block of %d bytes: %w", ErrOutOfMemory, size, err)
	}

	raw := make([]byte, size+BlockAlign-1)
	//nolint:gosec // address arithmetic only computes the padding to the aligned base
	pad := int(-uintptr(unsafe.Pointer(unsafe.SliceData(raw))) & (BlockAlign - 1))
	return &block{buf: raw[pad : pad+size : pad+size]}, nil
}

// fit returns the aligned start for size bytes, or false if the block is full.
func (b *block) fit(size, alignment int) (int, bool) {
	var start int
	if alignment <= BlockAlign {
		mask := alignment - 1
		start = (b.offset + mask) &^ mask
	} else {
		//nolint:gosec // padding computed from the real address for over-aligned requests
		addr := uintptr(unsafe.Pointer(unsafe.SliceData(b.buf))) + uintptr(b.offset)
		start = b.offset + int(-addr&uintptr(alignment-1))
	}
	if start > len(b.buf) || size > len(b.buf)-start {
		return 0, false
	}
	return start, true
}

func (a *Arena) take(b *block, start, size int) []byte {
	a.inUse += start + size - b.offset
	b.offset = start + size
	a.peak = max(a.peak, a.inUse)
	return b.buf[start : start+size : start+size]
}

// Checkpoint is a saved arena position.
type Checkpoint struct {
	arena      *Arena
	generation uint64
	block      int // -1 when taken before the first allocation
	offset     int
}

// Checkpoint saves the current position.
func (a *Arena) Checkpoint() Checkpoint {
	cp := Checkpoint{arena: a, generation: a.generation, block: a.current}
	if a.current >= 0 {
		cp.offset = a.blocks[a.current].offset
	}
	return cp
}

// Restore frees every allocation made after cp was taken. Blocks appended
// after the checkpoint block are dropped and the checkpoint block is
// truncated to its saved offset.
//
// A checkpoint taken before a Reset or Free, or by another arena, is rejected
// with ErrInvalidCheckpoint.
func (a *Arena) Restore(cp Checkpoint) error {
	if a.released {
		return ErrReleased
	}
	if cp.arena != a || cp.generation != a.generation || cp.block > a.current {
		return ErrInvalidCheckpoint
	}

	keep := cp.block + 1
	for _, b := range a.blocks[keep:] {
		a.inUse -= b.offset
		a.budget.Release(int64(len(b.buf)))
	}
	clear(a.blocks[keep:])
	a.blocks = a.blocks[:keep]
	a.current = cp.block
	if cp.block >= 0 {
		b := a.blocks[cp.block]
		a.inUse -= b.offset - cp.offset
		b.offset = cp.offset
	}
	return nil
}

// Reset zeroes every block offset and keeps the blocks for reuse.
// Outstanding checkpoints become invalid.
func (a *Arena) Reset() {
	if a.released {
		return
	}
	for _, b := range a.blocks {
		b.offset = 0
	}
	a.inUse = 0
	a.generation++
	if len(a.blocks) > 0 {
		a.current = 0
	}
}

// Free releases all blocks. Further allocations fail with ErrReleased.
func (a *Arena) Free() {
	if a.released {
		return
	}
	for _, b := range a.blocks {
		a.budget.Release(int64(len(b.buf)))
	}
	a.blocks = nil
	a.inUse = 0
	a.current = -1
	a.generation++
	a.released = true
}

// Released reports whether Free has been called.
func (a *Arena) Released() bool {
	return a.released
}

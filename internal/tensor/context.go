package tensor

import (
	"fmt"

	"github.com/born-ml/ndarray/internal/arena"
	"github.com/born-ml/ndarray/internal/logging"
	"github.com/born-ml/ndarray/internal/resource"
)

// DefaultAlignment is the default alignment of array buffers, in bytes.
const DefaultAlignment = 64

// Context owns one arena. Every array created from a context lives until the
// context is freed; arrays are never freed individually.
//
// A Context is not safe for concurrent use. Partition work by context or
// serialize allocation.
type Context struct {
	arena     *arena.Arena
	budget    *resource.Controller
	logger    *logging.Logger
	alignment int
	blockSize int
}

// ContextOption configures a Context.
type ContextOption func(*contextConfig)

type contextConfig struct {
	blockSize   int
	alignment   int
	memoryLimit int64
	budget      *resource.Controller
	logger      *logging.Logger
}

// WithBlockSize sets the default arena block size (default 8 MiB).
func WithBlockSize(n int) ContextOption {
	return func(c *contextConfig) {
		c.blockSize = n
	}
}

// WithAlignment sets the buffer alignment (power of two, at least 8).
func WithAlignment(n int) ContextOption {
	return func(c *contextConfig) {
		c.alignment = n
	}
}

// WithMemoryLimit caps the bytes the context's arena may reserve (0 = unlimited).
func WithMemoryLimit(bytes int64) ContextOption {
	return func(c *contextConfig) {
		c.memoryLimit = bytes
	}
}

// WithBudget shares a memory budget between several contexts.
// It takes precedence over WithMemoryLimit.
func WithBudget(ctrl *resource.Controller) ContextOption {
	return func(c *contextConfig) {
		c.budget = ctrl
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *logging.Logger) ContextOption {
	return func(c *contextConfig) {
		c.logger = l
	}
}

// NewContext creates an allocation context.
func NewContext(opts ...ContextOption) (*Context, error) {
	cfg := contextConfig{
		blockSize: arena.DefaultBlockSize,
		alignment: DefaultAlignment,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.alignment < 8 || cfg.alignment&(cfg.alignment-1) != 0 {
		return nil, NewOpError("context_create", ErrInvalidArgument, "alignment %d", cfg.alignment)
	}
	if cfg.logger == nil {
		cfg.logger = logging.NoopLogger()
	}
	if cfg.budget == nil && cfg.memoryLimit > 0 {
		cfg.budget = resource.NewController(cfg.memoryLimit)
	}

	a, err := arena.New(cfg.blockSize,
		arena.WithBudget(cfg.budget),
		arena.WithGrowHook(cfg.logger.LogBlock),
	)
	if err != nil {
		return nil, NewOpError("context_create", ErrInvalidArgument, "%v", err)
	}

	return &Context{
		arena:     a,
		budget:    cfg.budget,
		logger:    cfg.logger,
		alignment: cfg.alignment,
		blockSize: a.BlockSize(),
	}, nil
}

// alloc reserves size bytes at the context alignment.
func (c *Context) alloc(size int) ([]byte, error) {
	buf, err := c.arena.Alloc(size, c.alignment)
	if err != nil {
		if c.arena.Released() {
			return nil, ErrContextReleased
		}
		return nil, fmt.Errorf("%w: %w", ErrAllocation, err)
	}
	return buf, nil
}

// Checkpoint is a saved allocation position of a context.
type Checkpoint = arena.Checkpoint

// Checkpoint saves the current allocation position.
func (c *Context) Checkpoint() Checkpoint {
	return c.arena.Checkpoint()
}

// Restore frees every array allocated after cp. Arrays created after cp must
// not be used afterwards; their storage will be reused.
func (c *Context) Restore(cp Checkpoint) error {
	if err := c.arena.Restore(cp); err != nil {
		return c.fail("restore", fmt.Errorf("%w: %w", ErrInvalidArgument, err))
	}
	c.logger.Debug("context restored", "in_use", c.arena.InUse(), "blocks", c.arena.NumBlocks())
	return nil
}

// Reset invalidates every array of the context and keeps its capacity.
func (c *Context) Reset() {
	c.arena.Reset()
	c.logger.Debug("context reset", "capacity", c.arena.Capacity())
}

// Free releases every array of the context. The context must not be used afterwards.
func (c *Context) Free() {
	if c.arena.Released() {
		return
	}
	peak := c.arena.Peak()
	c.arena.Free()
	c.logger.Debug("context freed", "peak", peak)
}

// Released reports whether Free has been called.
func (c *Context) Released() bool {
	return c.arena.Released()
}

// Metrics returns the arena statistics of the context.
func (c *Context) Metrics() arena.Metrics {
	return c.arena.Metrics()
}

// Budget returns the memory budget, or nil if unlimited.
func (c *Context) Budget() *resource.Controller {
	return c.budget
}

// Logger returns the diagnostics logger.
func (c *Context) Logger() *logging.Logger {
	return c.logger
}

// BlockSize returns the default arena block size.
func (c *Context) BlockSize() int {
	return c.blockSize
}

// fail logs err for op and returns it wrapped as an OpError.
func (c *Context) fail(op string, err error) error {
	err = wrapOp(op, err)
	c.logger.LogFailure(op, err)
	return err
}

// Fail is the exported form of fail for operations implemented outside this package.
func (c *Context) Fail(op string, err error) error {
	return c.fail(op, err)
}

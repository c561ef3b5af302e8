package resource

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_Limit(t *testing.T) {
	c := NewController(100)

	require.NoError(t, c.Acquire(60))
	assert.ErrorIs(t, c.Acquire(50), ErrMemoryLimitExceeded)
	assert.Equal(t, int64(60), c.Usage())

	c.Release(60)
	require.NoError(t, c.Acquire(100))
	assert.Equal(t, int64(100), c.Usage())
	assert.Equal(t, int64(100), c.Peak())
	assert.Equal(t, int64(100), c.Limit())
}

func TestController_Unlimited(t *testing.T) {
	c := NewController(0)
	require.NoError(t, c.Acquire(1<<40))
	assert.Equal(t, int64(1<<40), c.Usage())
	assert.Equal(t, int64(0), c.Limit())
}

func TestController_Nil(t *testing.T) {
	var c *Controller
	require.NoError(t, c.Acquire(10))
	c.Release(10)
	assert.Zero(t, c.Usage())
	assert.Zero(t, c.Peak())
}

func TestController_Concurrent(t *testing.T) {
	c := NewController(1000)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				if c.Acquire(10) == nil {
					c.Release(10)
				}
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, c.Usage())
	assert.LessOrEqual(t, c.Peak(), int64(1000))
}

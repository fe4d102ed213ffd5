package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrameClock_StartsAtZero(t *testing.T) {
	c := NewFrameClock()
	assert.Equal(t, int64(-1), c.Current(), "no frame issued yet")
	assert.Equal(t, int64(0), c.Next())
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(1), c.Current())
}

func TestFrameClock_StartsAt(t *testing.T) {
	c := NewFrameClockAt(100)
	assert.Equal(t, int64(100), c.Next(), "resume from a known frame position")
	assert.Equal(t, int64(101), c.Next())
}

func TestFrameClock_Monotonic(t *testing.T) {
	c := NewFrameClock()
	prev := int64(-1)
	for i := 0; i < 1000; i++ {
		n := c.Next()
		assert.Greater(t, n, prev)
		prev = n
	}
}

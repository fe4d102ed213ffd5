package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateBuffer_GrowPreservesAndZeroes(t *testing.T) {
	b := NewStateBuffer()
	b.Grow(2, 1)
	require.NoError(t, b.SetFloat(1, 3.5))
	require.NoError(t, b.SetInt(0, 9))

	b.Grow(4, 2)
	assert.Equal(t, 4, b.FloatSlots())
	assert.Equal(t, 2, b.IntSlots())

	v, err := b.Float(1)
	require.NoError(t, err)
	assert.Equal(t, 3.5, v, "existing contents survive growth")

	v, err = b.Float(3)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v, "added slots are zero")

	// Grow never shrinks.
	b.Grow(1, 0)
	assert.Equal(t, 4, b.FloatSlots())
}

func TestStateBuffer_OutOfRangeIsContractError(t *testing.T) {
	b := NewStateBuffer()
	b.Grow(1, 1)

	_, err := b.Float(1)
	assert.True(t, IsContractError(err))
	assert.True(t, IsContractError(b.SetFloat(-1, 0)))
	_, err = b.Int(5)
	assert.True(t, IsContractError(err))
	assert.True(t, IsContractError(b.SetInt(5, 0)))
}

package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, uint32(5), Clamp[uint32](5, 1, 10))
	assert.Equal(t, uint32(1), Clamp[uint32](0, 1, 10))
	assert.Equal(t, uint32(10), Clamp[uint32](4000, 1, 10))
	assert.Equal(t, 2.5, Clamp(7.0, -1.0, 2.5))
}

func TestWrap(t *testing.T) {
	assert.Equal(t, uint32(0), Wrap[uint32](3, 3))
	assert.Equal(t, uint32(2), Wrap[uint32](5, 3))
	assert.Equal(t, uint32(0), Wrap[uint32](7, 0))
}

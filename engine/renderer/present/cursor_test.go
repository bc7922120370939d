package present

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrameCursorIsPeriodic(t *testing.T) {
	for n := uint32(1); n <= 5; n++ {
		c := NewFrameCursor(n)
		seen := map[uint32]int{}
		for i := uint32(0); i < 3*n; i++ {
			assert.Less(t, c.Value(), n)
			seen[c.Value()]++
			c.Advance()
		}
		assert.Len(t, seen, int(n))
		for slot, hits := range seen {
			assert.Equal(t, 3, hits, "slot %d of %d", slot, n)
		}
		assert.Equal(t, uint32(0), c.Value())
	}
}

func TestFrameCursorRebind(t *testing.T) {
	c := NewFrameCursor(4)
	c.Advance()
	c.Advance()
	c.Advance()
	assert.Equal(t, uint32(3), c.Value())

	c.Rebind(2)
	assert.Equal(t, uint32(1), c.Value())
	assert.Equal(t, uint32(2), c.Len())

	c.Rebind(5)
	assert.Equal(t, uint32(1), c.Value())

	c.Rebind(0)
	assert.Equal(t, uint32(0), c.Value())
	c.Advance()
	assert.Equal(t, uint32(0), c.Value())
}

func TestStatusStale(t *testing.T) {
	assert.False(t, StatusSuccess.Stale())
	assert.True(t, StatusSuboptimal.Stale())
	assert.True(t, StatusOutOfDate.Stale())
	assert.Equal(t, "out-of-date", StatusOutOfDate.String())
}

package present

import "github.com/spaghettifunk/prism/engine/math"

// FrameCursor picks the sync triple used by the next loop iteration. Its
// value always lies in [0, N).
type FrameCursor struct {
	value uint32
	n     uint32
}

// NewFrameCursor starts a cursor at slot 0 of an n-slot rotation.
func NewFrameCursor(n uint32) FrameCursor {
	return FrameCursor{n: n}
}

func (c *FrameCursor) Value() uint32 {
	return c.value
}

// Len is the number of slots, N.
func (c *FrameCursor) Len() uint32 {
	return c.n
}

// Advance moves to the next slot, wrapping to 0 after N-1.
func (c *FrameCursor) Advance() {
	if c.n == 0 {
		return
	}
	c.value = math.Wrap(c.value+1, c.n)
}

// Rebind adopts a new slot count after a rebuild. The current value is
// folded into the new range.
func (c *FrameCursor) Rebind(n uint32) {
	c.n = n
	c.value = math.Wrap(c.value, n)
}

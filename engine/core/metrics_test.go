package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsAverageAndFPS(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < int(AVG_COUNT); i++ {
		m.Update(0.010)
	}
	assert.InDelta(t, 10.0, m.FrameTime(), 1e-9)

	// 100 frames of 10ms cross the one second boundary exactly once.
	for i := 0; i < 71; i++ {
		m.Update(0.010)
	}
	assert.InDelta(t, 101.0, m.FPS(), 1e-9)
}

func TestClock(t *testing.T) {
	now := time.Unix(100, 0)
	c := &Clock{now: func() time.Time { return now }}

	c.Update()
	assert.Zero(t, c.Elapsed(), "a stopped clock does not advance")

	c.Start()
	now = now.Add(1500 * time.Millisecond)
	c.Update()
	assert.Equal(t, 1500*time.Millisecond, c.Elapsed())
	assert.InDelta(t, 1.5, c.Seconds(), 1e-6)

	c.Stop()
	now = now.Add(time.Second)
	c.Update()
	assert.Equal(t, 1500*time.Millisecond, c.Elapsed())
}

package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealClock(t *testing.T) {
	c := RealClock{}
	before := time.Now()
	now := c.Now()
	assert.False(t, now.Before(before))

	fired := make(chan struct{})
	timer := c.AfterFunc(time.Millisecond, func() { close(fired) })
	require.NotNil(t, timer)

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("real timer did not fire")
	}
	assert.False(t, timer.Stop())
}

func TestMockClockNowAndSet(t *testing.T) {
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewMockClock(start)
	assert.Equal(t, start, c.Now())

	later := start.Add(time.Hour)
	c.Set(later)
	assert.Equal(t, later, c.Now())
}

func TestMockClockFiresInOrder(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMockClock(start)

	var order []string
	c.AfterFunc(2*time.Second, func() { order = append(order, "b") })
	c.AfterFunc(time.Second, func() { order = append(order, "a") })
	c.AfterFunc(2*time.Second, func() { order = append(order, "c") })
	c.AfterFunc(5*time.Second, func() { order = append(order, "late") })

	c.Advance(2 * time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, 1, c.Pending())
	assert.Equal(t, start.Add(2*time.Second), c.Now())
}

func TestMockClockCallbackSeesDueTime(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMockClock(start)

	var seen time.Time
	c.AfterFunc(3*time.Second, func() { seen = c.Now() })
	c.Advance(10 * time.Second)

	assert.Equal(t, start.Add(3*time.Second), seen)
	assert.Equal(t, start.Add(10*time.Second), c.Now())
}

func TestMockClockRescheduleDuringAdvance(t *testing.T) {
	c := NewMockClock(time.Unix(0, 0))

	ticks := 0
	var tick func()
	tick = func() {
		ticks++
		c.AfterFunc(time.Second, tick)
	}
	c.AfterFunc(time.Second, tick)

	c.Advance(10 * time.Second)
	assert.Equal(t, 10, ticks)
	assert.Equal(t, 1, c.Pending())
}

func TestMockTimerStop(t *testing.T) {
	c := NewMockClock(time.Unix(0, 0))

	fired := false
	timer := c.AfterFunc(time.Second, func() { fired = true })

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())
	assert.Equal(t, 0, c.Pending())

	c.Advance(time.Minute)
	assert.False(t, fired)
}

func TestMockTimerStopAfterFire(t *testing.T) {
	c := NewMockClock(time.Unix(0, 0))
	timer := c.AfterFunc(time.Second, func() {})
	c.Advance(time.Second)
	assert.False(t, timer.Stop())
}

package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func TestManualClockFiresInDeadlineOrder(t *testing.T) {
	c := NewManualClock(epoch)
	var got []string
	c.AfterFunc(3*time.Second, func() { got = append(got, "c") })
	c.AfterFunc(time.Second, func() { got = append(got, "a") })
	c.AfterFunc(2*time.Second, func() { got = append(got, "b1") })
	c.AfterFunc(2*time.Second, func() { got = append(got, "b2") })

	c.Advance(2 * time.Second)
	assert.Equal(t, []string{"a", "b1", "b2"}, got)
	assert.Equal(t, epoch.Add(2*time.Second), c.Now())
	assert.Equal(t, 1, c.Pending())

	c.Advance(time.Hour)
	assert.Equal(t, []string{"a", "b1", "b2", "c"}, got)
	assert.Equal(t, 0, c.Pending())
}

func TestManualClockStop(t *testing.T) {
	c := NewManualClock(epoch)
	fired := false
	tm := c.AfterFunc(time.Second, func() { fired = true })

	assert.True(t, tm.Stop())
	assert.False(t, tm.Stop())
	c.Advance(time.Minute)
	assert.False(t, fired)
}

func TestManualClockRunsTimersArmedDuringAdvance(t *testing.T) {
	c := NewManualClock(epoch)
	ticks := 0
	var tick func()
	tick = func() {
		ticks++
		c.AfterFunc(time.Second, tick)
	}
	c.AfterFunc(time.Second, tick)

	c.Advance(5 * time.Second)
	assert.Equal(t, 5, ticks)
	assert.Equal(t, 1, c.Pending())
}

func TestManualClockStopAfterFire(t *testing.T) {
	c := NewManualClock(epoch)
	tm := c.AfterFunc(time.Second, func() {})
	c.Advance(time.Second)
	assert.False(t, tm.Stop())
}

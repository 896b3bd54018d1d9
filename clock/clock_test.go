package clock_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/tripcore/clock"
	"github.com/tsinghua-fib-lab/tripcore/utils/config"
)

func TestSimAdvanceFiresInOrder(t *testing.T) {
	c := clock.NewSim(time.Unix(1000, 0))
	fired := []string{}
	c.AfterFunc(3*time.Second, func() { fired = append(fired, "c") })
	c.AfterFunc(time.Second, func() { fired = append(fired, "a") })
	c.AfterFunc(time.Second, func() { fired = append(fired, "b") })
	c.AfterFunc(10*time.Second, func() { fired = append(fired, "late") })

	c.Advance(5 * time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, fired)
	assert.Equal(t, time.Unix(1005, 0), c.Now())
	assert.Equal(t, 1, c.Pending())
}

func TestSimTimerSeesDeadlineAndReschedules(t *testing.T) {
	c := clock.NewSim(time.Unix(0, 0))
	ticks := []float64{}
	var tick func()
	tick = func() {
		ticks = append(ticks, c.T())
		c.AfterFunc(time.Minute, tick)
	}
	c.AfterFunc(time.Minute, tick)

	c.Advance(15 * time.Minute)
	assert.Len(t, ticks, 15)
	assert.Equal(t, 60.0, ticks[0])
	assert.Equal(t, 900.0, ticks[14])
}

func TestSimTimerStop(t *testing.T) {
	c := clock.NewSim(time.Unix(0, 0))
	called := false
	timer := c.AfterFunc(time.Second, func() { called = true })
	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())
	c.Advance(2 * time.Second)
	assert.False(t, called)
	assert.Equal(t, 0, c.Pending())
}

func TestSimStep(t *testing.T) {
	c := clock.New(config.ControlStep{Start: 0, Total: 3, Interval: 0.5})
	steps := 0
	for c.Step() {
		steps++
	}
	assert.Equal(t, 3, steps)
	assert.Equal(t, 1.5, c.T())
	assert.Equal(t, "00:00:01", c.String())
}

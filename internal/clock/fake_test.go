package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2015, 6, 1, 12, 0, 0, 0, time.UTC)

func TestFakeNowOnlyMovesOnAdvance(t *testing.T) {
	c := Fake(epoch)
	assert.Equal(t, epoch, c.Now())

	c.Advance(3 * time.Second)
	assert.Equal(t, epoch.Add(3*time.Second), c.Now())
}

func TestFakeAfterFuncFiresAtDeadline(t *testing.T) {
	c := Fake(epoch)
	fired := 0
	c.AfterFunc(time.Minute, func() { fired++ })

	c.Advance(59 * time.Second)
	assert.Equal(t, 0, fired)

	c.Advance(time.Second)
	assert.Equal(t, 1, fired)

	c.Advance(time.Hour)
	assert.Equal(t, 1, fired, "one-shot timers fire once")
	assert.Equal(t, 0, c.Pending())
}

func TestFakeStopCancelsCallback(t *testing.T) {
	c := Fake(epoch)
	fired := false
	timer := c.AfterFunc(time.Second, func() { fired = true })

	require.True(t, timer.Stop())
	assert.False(t, timer.Stop(), "second stop reports the timer as inactive")

	c.Advance(time.Minute)
	assert.False(t, fired)
}

func TestFakeCallbackCanReschedule(t *testing.T) {
	c := Fake(epoch)
	var fireTimes []time.Time
	var schedule func()
	schedule = func() {
		c.AfterFunc(10*time.Second, func() {
			fireTimes = append(fireTimes, c.Now())
			if len(fireTimes) < 3 {
				schedule()
			}
		})
	}
	schedule()

	c.Advance(time.Minute)
	require.Len(t, fireTimes, 3)
	assert.Equal(t, epoch.Add(10*time.Second), fireTimes[0])
	assert.Equal(t, epoch.Add(30*time.Second), fireTimes[2])
	assert.Equal(t, epoch.Add(time.Minute), c.Now())
}

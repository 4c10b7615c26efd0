package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeNow is a controllable time source for clock tests.
type fakeNow struct {
	t time.Time
}

func newFakeNow() *fakeNow {
	return &fakeNow{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (f *fakeNow) Now() time.Time          { return f.t }
func (f *fakeNow) Advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestClock(now *fakeNow) (*Clock, *ManualScheduler) {
	sched := &ManualScheduler{}
	c := NewClock(ClockConfig{Scheduler: sched, Now: now.Now})
	return c, sched
}

func TestClockCountdownTicksAndCompletes(t *testing.T) {
	now := newFakeNow()
	c, sched := newTestClock(now)

	var ticks []int
	completions := 0
	c.OnTick(func(s int) { ticks = append(ticks, s) })
	c.OnComplete(func() { completions++ })

	c.Start(10, CountDown)

	now.Advance(3 * time.Second)
	sched.Tick()
	now.Advance(4 * time.Second)
	sched.Tick()
	assert.Equal(t, []int{7, 3}, ticks)
	assert.Equal(t, 7, c.Elapsed())
	assert.Equal(t, 3, c.Remaining())

	now.Advance(3 * time.Second)
	sched.Tick()
	assert.Equal(t, 1, completions, "OnComplete must fire at zero")
	assert.Equal(t, 0, c.Remaining())

	// Late ticks after completion change nothing.
	now.Advance(time.Minute)
	sched.Tick()
	assert.Equal(t, 1, completions, "OnComplete must fire exactly once")
	assert.Equal(t, 10, c.Elapsed(), "elapsed never exceeds the budget")
}

func TestClockCompletesOnCoarseTick(t *testing.T) {
	now := newFakeNow()
	c, sched := newTestClock(now)

	completions := 0
	c.OnComplete(func() { completions++ })
	c.Start(5, CountDown)

	// One very late tick: accuracy comes from wall time, not tick count.
	now.Advance(42 * time.Second)
	sched.Tick()
	assert.Equal(t, 1, completions)
	assert.Equal(t, 5, c.Elapsed())
}

func TestClockPauseResumeNoDrift(t *testing.T) {
	now := newFakeNow()
	c, sched := newTestClock(now)
	c.Start(600, CountDown)

	now.Advance(17 * time.Second)
	sched.Tick()
	require.Equal(t, 17, c.Elapsed())

	c.Pause()
	// Arbitrary wall-clock delay while paused.
	now.Advance(3 * time.Hour)
	sched.Tick()
	assert.Equal(t, 17, c.Elapsed(), "elapsed frozen while paused")

	c.Resume()
	now.Advance(3 * time.Second)
	sched.Tick()
	assert.Equal(t, 20, c.Elapsed(), "resumes from the exact pause value")
}

func TestClockSetElapsedRestoresSession(t *testing.T) {
	now := newFakeNow()
	c, sched := newTestClock(now)

	var last int
	c.OnTick(func(s int) { last = s })
	c.Start(300, CountDown)

	// Reload restore: server says 250 seconds already spent.
	c.SetElapsed(250)
	now.Advance(10 * time.Second)
	sched.Tick()
	assert.Equal(t, 260, c.Elapsed())
	assert.Equal(t, 40, last)
}

func TestClockCountUp(t *testing.T) {
	now := newFakeNow()
	c, sched := newTestClock(now)

	var last int
	c.OnTick(func(s int) { last = s })
	c.OnComplete(func() { t.Fatal("count-up clock must never complete") })
	c.Start(0, CountUp)

	now.Advance(90 * time.Second)
	sched.Tick()
	assert.Equal(t, 90, last)
	assert.Equal(t, 0, c.Remaining())
}

func TestClockStopFreezesElapsed(t *testing.T) {
	now := newFakeNow()
	c, sched := newTestClock(now)
	c.Start(100, CountDown)

	now.Advance(30 * time.Second)
	sched.Tick()
	c.Stop()

	now.Advance(30 * time.Second)
	sched.Tick()
	assert.Equal(t, 30, c.Elapsed())

	c.Resume() // no-op after Stop
	now.Advance(time.Second)
	sched.Tick()
	assert.Equal(t, 30, c.Elapsed())
}

package session

import (
	"sync"
	"time"
)

// Direction controls whether the clock counts down from a budget or up
// without a limit.
type Direction int

const (
	CountDown Direction = iota
	CountUp
)

// DefaultTickInterval is the tick granularity used in production.
const DefaultTickInterval = time.Second

// Scheduler drives periodic clock ticks. Production uses a time.Ticker;
// tests drive ticks manually for determinism.
type Scheduler interface {
	// Start begins invoking fn at roughly the given interval until Stop.
	Start(interval time.Duration, fn func())
	// Stop ceases invocation. Safe to call when not started.
	Stop()
}

// tickerScheduler is the production Scheduler backed by time.Ticker.
type tickerScheduler struct {
	mu   sync.Mutex
	stop chan struct{}
}

func (s *tickerScheduler) Start(interval time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}
	stop := make(chan struct{})
	s.stop = stop
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				fn()
			}
		}
	}()
}

func (s *tickerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
}

// ManualScheduler is a Scheduler for tests: ticks happen only when the
// test calls Tick.
type ManualScheduler struct {
	mu      sync.Mutex
	fn      func()
	running bool
}

func (s *ManualScheduler) Start(_ time.Duration, fn func()) {
	s.mu.Lock()
	s.fn = fn
	s.running = true
	s.mu.Unlock()
}

func (s *ManualScheduler) Stop() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// Tick fires one tick if the scheduler is running.
func (s *ManualScheduler) Tick() {
	s.mu.Lock()
	fn, ok := s.fn, s.running
	s.mu.Unlock()
	if ok && fn != nil {
		fn()
	}
}

// ClockConfig configures a Clock. Zero values select production defaults.
type ClockConfig struct {
	Interval  time.Duration
	Scheduler Scheduler
	Now       func() time.Time
}

// Clock is a monotonic countdown/count-up timer with pause/resume.
//
// Elapsed time is accumulated from wall-clock run segments rather than
// tick counts, so coarse or delayed ticks never lose accuracy and
// pause/resume cycles introduce no drift. OnComplete fires exactly once
// when a countdown reaches zero.
type Clock struct {
	mu           sync.Mutex
	interval     time.Duration
	scheduler    Scheduler
	now          func() time.Time
	direction    Direction
	budget       time.Duration // countdown budget; zero for count-up
	accumulated  time.Duration // elapsed across finished run segments
	runningSince time.Time     // zero while paused or stopped
	started      bool
	completed    bool
	onTick       func(seconds int)
	onComplete   func()
}

// NewClock creates a Clock from cfg, filling defaults for zero fields.
func NewClock(cfg ClockConfig) *Clock {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultTickInterval
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = &tickerScheduler{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Clock{
		interval:  cfg.Interval,
		scheduler: cfg.Scheduler,
		now:       cfg.Now,
	}
}

// OnTick registers the tick callback. For countdown clocks the callback
// receives remaining whole seconds, for count-up clocks elapsed seconds.
func (c *Clock) OnTick(fn func(seconds int)) {
	c.mu.Lock()
	c.onTick = fn
	c.mu.Unlock()
}

// OnComplete registers the completion callback (countdown only).
func (c *Clock) OnComplete(fn func()) {
	c.mu.Lock()
	c.onComplete = fn
	c.mu.Unlock()
}

// Start begins ticking. initialSeconds is the countdown budget; it is
// ignored for count-up clocks.
func (c *Clock) Start(initialSeconds int, direction Direction) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.direction = direction
	c.budget = time.Duration(initialSeconds) * time.Second
	c.runningSince = c.now()
	c.mu.Unlock()

	c.scheduler.Start(c.interval, c.tick)
}

// Pause suspends tick emission. Elapsed accounting freezes at the exact
// value it had, so a later Resume continues without drift.
func (c *Clock) Pause() {
	c.mu.Lock()
	if !c.runningLocked() {
		c.mu.Unlock()
		return
	}
	c.accumulated += c.now().Sub(c.runningSince)
	c.runningSince = time.Time{}
	c.mu.Unlock()

	c.scheduler.Stop()
}

// Resume restores ticking from the exact elapsed value Pause captured.
func (c *Clock) Resume() {
	c.mu.Lock()
	if !c.started || c.completed || c.runningLocked() {
		c.mu.Unlock()
		return
	}
	c.runningSince = c.now()
	c.mu.Unlock()

	c.scheduler.Start(c.interval, c.tick)
}

// Stop halts the clock permanently (used on submit).
func (c *Clock) Stop() {
	c.mu.Lock()
	if c.runningLocked() {
		c.accumulated += c.now().Sub(c.runningSince)
		c.runningSince = time.Time{}
	}
	c.completed = true
	c.mu.Unlock()

	c.scheduler.Stop()
}

// SetElapsed resets the elapsed accounting to an explicit value. Used when
// a session is resumed after a reload and elapsed time is restored from
// the server.
func (c *Clock) SetElapsed(seconds int) {
	c.mu.Lock()
	c.accumulated = time.Duration(seconds) * time.Second
	if c.runningLocked() {
		c.runningSince = c.now()
	}
	c.mu.Unlock()
}

// Elapsed returns whole elapsed seconds.
func (c *Clock) Elapsed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int(c.elapsedLocked() / time.Second)
}

// Remaining returns whole remaining seconds; 0 for count-up clocks past
// their budget or clocks without one.
func (c *Clock) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	rem := c.budget - c.elapsedLocked()
	if rem < 0 {
		rem = 0
	}
	return int(rem / time.Second)
}

func (c *Clock) runningLocked() bool {
	return !c.runningSince.IsZero()
}

func (c *Clock) elapsedLocked() time.Duration {
	e := c.accumulated
	if c.runningLocked() {
		e += c.now().Sub(c.runningSince)
	}
	// A countdown never reports past its budget.
	if c.direction == CountDown && c.budget > 0 && e > c.budget {
		e = c.budget
	}
	return e
}

// tick recomputes elapsed time, emits the tick callback, and fires
// completion when a countdown hits zero.
func (c *Clock) tick() {
	c.mu.Lock()
	if !c.started || c.completed || !c.runningLocked() {
		c.mu.Unlock()
		return
	}

	elapsed := c.elapsedLocked()
	var seconds int
	var complete bool

	if c.direction == CountDown {
		rem := c.budget - elapsed
		if rem <= 0 {
			rem = 0
			complete = true
			c.completed = true
			c.accumulated = c.budget
			c.runningSince = time.Time{}
		}
		seconds = int(rem / time.Second)
	} else {
		seconds = int(elapsed / time.Second)
	}

	onTick := c.onTick
	onComplete := c.onComplete
	c.mu.Unlock()

	if onTick != nil {
		onTick(seconds)
	}
	if complete {
		c.scheduler.Stop()
		if onComplete != nil {
			onComplete()
		}
	}
}

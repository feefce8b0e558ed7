// Package status turns device states into animations on the LED ring.
//
// A Controller owns the current state, at most one pending request and a
// single timer. Every frame it computes is written to a Strip and flushed
// with Refresh.
package status

import (
	"image/color"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Strip is the frame buffer the controller draws into.
type Strip interface {
	Init(port int) error
	SetPixel(index int, r, g, b uint8) error
	SetAll(r, g, b uint8) error
	Refresh() error
	Len() int
}

type request struct {
	state State
	value int
}

// scratch is the per-state data of the active state. It is dropped on
// every transition.
type scratch interface{ owner() State }

type selfTestScratch struct{ step int }

type breathScratch struct {
	state State
	index uint8
}

type blinkScratch struct {
	on    bool
	count int
}

type wakeScratch struct{ phase int }

type standbyScratch struct{ pos int }

func (*selfTestScratch) owner() State { return SelfTest }
func (s *breathScratch) owner() State { return s.state }
func (*blinkScratch) owner() State { return Dialog }
func (*wakeScratch) owner() State { return Wake }
func (*standbyScratch) owner() State { return Standby }

type Option func(*Controller)

func WithTiming(t Timing) Option { return func(c *Controller) { c.timing = t } }

func WithScheduler(s Scheduler) Option { return func(c *Controller) { c.sched = s } }

func WithLogger(l zerolog.Logger) Option { return func(c *Controller) { c.log = l } }

// WithPort selects the SPI port handed to Strip.Init.
func WithPort(port int) Option { return func(c *Controller) { c.port = port } }

// Controller is the status animation state machine. It is safe to call from
// several goroutines; timer callbacks take the same lock.
type Controller struct {
	mu     sync.Mutex
	strip  Strip
	timing Timing
	sched  Scheduler
	log    zerolog.Logger
	port   int

	initialized bool
	closed      bool
	current     State
	pending     *request
	scratch     scratch

	timer Timer
	gen   uint64
}

// New returns a controller drawing into strip. Initialize must be called
// before SetState.
func New(strip Strip, opts ...Option) *Controller {
	c := &Controller{
		strip:  strip,
		timing: DefaultTiming(),
		sched:  SystemScheduler{},
		log:    zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Initialize brings up the strip, blanks it and starts the self-test.
// Calling it again on a running controller does nothing and returns nil.
func (c *Controller) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.initialized {
		return nil
	}
	c.log.Debug().Msg("initializing led controller")

	c.stopTimer()
	c.current = Idle
	c.pending = nil
	c.scratch = nil

	if err := c.strip.Init(c.port); err != nil {
		return errors.Wrap(err, "strip init")
	}
	c.initialized = true
	if err := c.fill(black); err != nil {
		c.log.Warn().Err(err).Msg("blank frame failed")
	}
	return c.setState(SelfTest, 0)
}

// SetState requests a new animation. value is the level for ConfigSuccess
// and Volume, clamped to [0, MaxLevel], and ignored otherwise.
//
// While the self-test runs the request is parked and applied when it ends;
// a later request replaces an earlier one.
func (c *Controller) SetState(s State, value int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if !s.Valid() {
		return errors.Wrapf(ErrUnknownState, "%d", s)
	}
	if !c.initialized {
		return ErrNotInitialized
	}
	return c.setState(s, value)
}

// State returns the active state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Pending returns the request parked during the self-test, if any.
func (c *Controller) Pending() (State, int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return Idle, 0, false
	}
	return c.pending.state, c.pending.value, true
}

// Close cancels the timer. The LEDs keep their last frame.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimer()
	c.closed = true
	return nil
}

func (c *Controller) setState(s State, value int) error {
	c.log.Debug().Stringer("state", s).Int("value", value).Msg("set led state")

	if c.current == SelfTest && s != SelfTest {
		c.pending = &request{state: s, value: value}
		c.log.Debug().Stringer("pending", s).Msg("self-test in progress, request parked")
		return nil
	}

	if c.current == s {
		switch s {
		case ConfigSuccess:
			err := c.showLevel(green, value)
			c.arm(c.timing.ConfigSuccessTimeout)
			return err
		case Volume:
			err := c.showLevel(yellow, value)
			c.arm(c.timing.VolumeTimeout)
			return err
		case Idle:
			return c.fill(black)
		case NetError:
			return nil
		}
		// everything else restarts from its first phase
	}

	c.stopTimer()
	c.scratch = nil

	var err error
	switch s {
	case SelfTest:
		err = c.fill(red)
		c.scratch = &selfTestScratch{}
		c.arm(c.timing.SelfTestRed)
	case Idle:
		err = c.fill(black)
	case Configuring, Breathing:
		c.scratch = &breathScratch{state: s}
		c.arm(c.timing.BreathInterval)
	case ConfigSuccess:
		err = c.showLevel(green, value)
		c.arm(c.timing.ConfigSuccessTimeout)
	case NetError:
		err = c.fill(red)
	case Dialog:
		err = c.fill(blue)
		c.scratch = &blinkScratch{on: true}
		c.arm(c.timing.DialogOn)
	case Volume:
		err = c.showLevel(yellow, value)
		c.arm(c.timing.VolumeTimeout)
	case Wake:
		ws := &wakeScratch{}
		c.scratch = ws
		c.current = Wake
		return c.wakePhase(ws)
	case Standby:
		ss := &standbyScratch{}
		c.scratch = ss
		err = c.showSingle(green, ss.pos)
		c.arm(c.timing.StandbyStep)
	}
	c.current = s
	return err
}

// arm replaces the outstanding timer.
func (c *Controller) arm(d time.Duration) {
	c.stopTimer()
	gen := c.gen
	c.timer = c.sched.AfterFunc(d, func() { c.fire(gen) })
}

func (c *Controller) stopTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	// a callback already in flight sees a stale generation and does nothing
	c.gen++
}

func (c *Controller) fire(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || gen != c.gen {
		return
	}
	c.timer = nil
	if err := c.tick(); err != nil {
		c.log.Warn().Err(err).Stringer("state", c.current).Msg("frame dropped")
	}
}

// tick advances the active animation by one timer period.
func (c *Controller) tick() error {
	if c.scratch != nil && c.scratch.owner() != c.current {
		c.scratch = nil
	}
	switch c.current {
	case SelfTest:
		st, ok := c.scratch.(*selfTestScratch)
		if !ok {
			return nil
		}
		st.step++
		switch st.step {
		case 1:
			c.arm(c.timing.SelfTestGreen)
			return c.fill(green)
		case 2:
			c.arm(c.timing.SelfTestBlue)
			return c.fill(blue)
		}
		c.log.Debug().Msg("self-test complete")
		c.current = Idle
		c.scratch = nil
		if p := c.pending; p != nil {
			c.pending = nil
			return c.setState(p.state, p.value)
		}
		return c.fill(black)

	case ConfigSuccess, Volume:
		c.log.Debug().Stringer("state", c.current).Msg("display timeout, going idle")
		return c.goIdle()

	case Dialog:
		bs, ok := c.scratch.(*blinkScratch)
		if !ok {
			return nil
		}
		if bs.on {
			bs.on = false
			c.arm(c.timing.DialogOff)
			return c.fill(black)
		}
		bs.on = true
		bs.count++
		if bs.count >= c.timing.DialogBlinkCount() {
			c.log.Debug().Int("blinks", bs.count).Msg("dialog blinking complete")
			if err := c.fill(blue); err != nil {
				c.log.Warn().Err(err).Msg("frame dropped")
			}
			return c.goIdle()
		}
		c.arm(c.timing.DialogOn)
		return c.fill(blue)

	case Configuring, Breathing:
		bs, ok := c.scratch.(*breathScratch)
		if !ok {
			return nil
		}
		bs.index++
		v := BreathTable[bs.index]
		c.arm(c.timing.BreathInterval)
		if c.current == Configuring {
			return c.fill(color.RGBA{G: v, A: 255})
		}
		return c.fill(color.RGBA{B: v, A: 255})

	case Wake:
		ws, ok := c.scratch.(*wakeScratch)
		if !ok {
			return nil
		}
		ws.phase++
		return c.wakePhase(ws)

	case Standby:
		ss, ok := c.scratch.(*standbyScratch)
		if !ok {
			return nil
		}
		if n := c.strip.Len(); n > 0 {
			ss.pos = (ss.pos + 1) % n
		}
		c.arm(c.timing.StandbyStep)
		return c.showSingle(green, ss.pos)
	}
	return nil
}

// wakePhase renders phase p of the wake sequence: on/off pairs for every
// flash, then a solid hold, then idle.
func (c *Controller) wakePhase(ws *wakeScratch) error {
	flashes := c.timing.WakeFlashes
	if flashes < 0 {
		flashes = 0
	}
	switch {
	case ws.phase < 2*flashes && ws.phase%2 == 0:
		c.arm(c.timing.WakeFlashOn)
		return c.fill(blue)
	case ws.phase < 2*flashes:
		c.arm(c.timing.WakeFlashOff)
		return c.fill(black)
	case ws.phase == 2*flashes:
		hold := c.timing.WakeHold()
		if hold <= 0 {
			c.log.Debug().Msg("wake window spent on flashes")
			return c.goIdle()
		}
		c.arm(hold)
		return c.fill(blue)
	}
	c.log.Debug().Msg("wake window expired")
	return c.goIdle()
}

func (c *Controller) goIdle() error {
	c.stopTimer()
	c.current = Idle
	c.scratch = nil
	return c.fill(black)
}

func (c *Controller) fill(col color.RGBA) error {
	if err := c.strip.SetAll(col.R, col.G, col.B); err != nil {
		return err
	}
	return c.strip.Refresh()
}

// showLevel lights the first level LEDs of LevelOrder in col.
func (c *Controller) showLevel(col color.RGBA, level int) error {
	if level < 0 {
		level = 0
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	n := c.strip.Len()
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	for i := 0; i < n; i++ {
		keep(c.strip.SetPixel(i, black.R, black.G, black.B))
	}
	for i := 1; i <= level; i++ {
		led := int(LevelOrder[i])
		if led < 1 || led > n {
			continue
		}
		keep(c.strip.SetPixel(led-1, col.R, col.G, col.B))
	}
	keep(c.strip.Refresh())
	return first
}

// showSingle lights one LED and turns the rest off.
func (c *Controller) showSingle(col color.RGBA, pos int) error {
	if err := c.strip.SetAll(black.R, black.G, black.B); err != nil {
		return err
	}
	if err := c.strip.SetPixel(pos, col.R, col.G, col.B); err != nil {
		return err
	}
	return c.strip.Refresh()
}

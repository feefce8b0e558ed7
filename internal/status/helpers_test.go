package status

import (
	"bytes"
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spitest"

	"github.com/coreman2200/funtimes-arcaluminis/internal/ws2812"
)

type manualTimer struct {
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	live := !t.stopped && !t.fired
	t.stopped = true
	return live
}

// manualScheduler never fires on its own; tests call fire.
type manualScheduler struct {
	timers []*manualTimer
}

func (m *manualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	t := &manualTimer{d: d, f: f}
	m.timers = append(m.timers, t)
	return t
}

func (m *manualScheduler) live() []*manualTimer {
	var out []*manualTimer
	for _, t := range m.timers {
		if !t.stopped && !t.fired {
			out = append(out, t)
		}
	}
	return out
}

// armed returns the single outstanding timer, or nil.
func (m *manualScheduler) armed(t *testing.T) *manualTimer {
	t.Helper()
	live := m.live()
	require.LessOrEqual(t, len(live), 1, "more than one timer armed")
	if len(live) == 0 {
		return nil
	}
	return live[0]
}

// fire runs the outstanding timer and returns the duration it was armed with.
func (m *manualScheduler) fire(t *testing.T) time.Duration {
	t.Helper()
	tm := m.armed(t)
	require.NotNil(t, tm, "no timer armed")
	tm.fired = true
	tm.f()
	return tm.d
}

type rig struct {
	ctrl  *Controller
	sched *manualScheduler
	wire  *bytes.Buffer
	strip *ws2812.Strip
}

func newRig(t *testing.T, timing Timing) *rig {
	t.Helper()
	wire := &bytes.Buffer{}
	strip := ws2812.New(ws2812.DefaultLEDCount, ws2812.WithOpener(func(int) (spi.PortCloser, error) {
		return spitest.NewRecordRaw(wire), nil
	}))
	sched := &manualScheduler{}
	c := New(strip, WithTiming(timing), WithScheduler(sched))
	return &rig{ctrl: c, sched: sched, wire: wire, strip: strip}
}

// booted returns a rig whose self-test has already finished.
func booted(t *testing.T) *rig {
	t.Helper()
	r := newRig(t, DefaultTiming())
	require.NoError(t, r.ctrl.Initialize())
	for i := 0; i < 3; i++ {
		r.sched.fire(t)
	}
	require.Equal(t, Idle, r.ctrl.State())
	r.wire.Reset()
	return r
}

// frames decodes every transmission recorded so far.
func (r *rig) frames(t *testing.T) [][]color.NRGBA {
	t.Helper()
	size := ws2812.DefaultLEDCount * ws2812.SymbolsPerLED
	raw := r.wire.Bytes()
	require.Zero(t, len(raw)%size, "partial frame on the wire")
	var out [][]color.NRGBA
	for off := 0; off < len(raw); off += size {
		f, err := ws2812.DecodeFrame(raw[off : off+size])
		require.NoError(t, err)
		out = append(out, f)
	}
	return out
}

func (r *rig) last(t *testing.T) []color.NRGBA {
	t.Helper()
	f := r.frames(t)
	require.NotEmpty(t, f, "nothing transmitted")
	return f[len(f)-1]
}

func solid(c color.RGBA) []color.NRGBA {
	out := make([]color.NRGBA, ws2812.DefaultLEDCount)
	for i := range out {
		out[i] = color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255}
	}
	return out
}

// fakeStrip records calls and fails on demand.
type fakeStrip struct {
	n          int
	initErr    error
	refreshErr error
	refreshes  int
	pixels     []color.RGBA
}

func (f *fakeStrip) Init(int) error {
	if f.initErr != nil {
		return f.initErr
	}
	f.pixels = make([]color.RGBA, f.n)
	return nil
}

func (f *fakeStrip) SetPixel(i int, r, g, b uint8) error {
	f.pixels[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	return nil
}

func (f *fakeStrip) SetAll(r, g, b uint8) error {
	for i := range f.pixels {
		f.pixels[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return nil
}

func (f *fakeStrip) Refresh() error {
	f.refreshes++
	return f.refreshErr
}

func (f *fakeStrip) Len() int { return f.n }

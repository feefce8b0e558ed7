package tap

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spitest"
	"periph.io/x/devices/v3/nrzled"

	"github.com/coreman2200/funtimes-arcaluminis/internal/ws2812"
)

// canvas is a display.Drawer that keeps the last frame.
type canvas struct {
	img    *image.NRGBA
	draws  int
	halted bool
}

func newCanvas(n int) *canvas { return &canvas{img: image.NewNRGBA(image.Rect(0, 0, n, 1))} }

func (c *canvas) String() string { return "canvas" }
func (c *canvas) Halt() error { c.halted = true; return nil }
func (c *canvas) ColorModel() color.Model { return color.NRGBAModel }
func (c *canvas) Bounds() image.Rectangle { return c.img.Bounds() }
func (c *canvas) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	c.draws++
	draw.Draw(c.img, r, src, sp, draw.Src)
	return nil
}

func stripOn(t *testing.T, p *Port, n int) *ws2812.Strip {
	t.Helper()
	s := ws2812.New(n, ws2812.WithOpener(func(int) (spi.PortCloser, error) { return p, nil }))
	require.NoError(t, s.Init(0))
	return s
}

func TestForwardsAndMirrors(t *testing.T) {
	wire := &bytes.Buffer{}
	mirror := newCanvas(4)
	p := New(spitest.NewRecordRaw(wire), WithMirror(mirror))
	s := stripOn(t, p, 4)

	require.NoError(t, s.SetPixel(2, 10, 20, 30))
	require.NoError(t, s.Refresh())

	assert.Len(t, wire.Bytes(), 4*ws2812.SymbolsPerLED)
	assert.Equal(t, 1, mirror.draws)
	assert.Equal(t, uint64(1), p.Frames())
	assert.Equal(t, color.NRGBA{R: 10, G: 20, B: 30, A: 255}, mirror.img.NRGBAAt(2, 0))
	assert.Equal(t, color.NRGBA{A: 255}, mirror.img.NRGBAAt(0, 0))
}

func TestWithoutUpstream(t *testing.T) {
	mirror := newCanvas(3)
	p := New(nil, WithMirror(mirror))
	assert.Equal(t, "tap", p.String())
	assert.NoError(t, p.LimitSpeed(physic.MegaHertz))

	s := stripOn(t, p, 3)
	require.NoError(t, s.SetAll(0, 0, 255))
	require.NoError(t, s.Refresh())
	for x := 0; x < 3; x++ {
		assert.Equal(t, color.NRGBA{B: 255, A: 255}, mirror.img.NRGBAAt(x, 0))
	}

	require.NoError(t, s.Deinit())
	assert.True(t, mirror.halted)
}

func TestGarbageIsForwardedNotMirrored(t *testing.T) {
	wire := &bytes.Buffer{}
	mirror := newCanvas(1)
	p := New(spitest.NewRecordRaw(wire), WithMirror(mirror))
	c, err := p.Connect(ws2812.DefaultFrequency, spi.Mode0, 8)
	require.NoError(t, err)

	require.NoError(t, c.Tx([]byte{1, 2, 3}, nil))
	assert.Equal(t, []byte{1, 2, 3}, wire.Bytes())
	assert.Zero(t, mirror.draws)
	assert.Zero(t, p.Frames())
}

func TestNRZMirror(t *testing.T) {
	bench := &bytes.Buffer{}
	d, err := nrzled.NewSPI(spitest.NewRecordRaw(bench), &nrzled.Opts{
		NumPixels: 12,
		Channels:  3,
		Freq:      2500 * physic.KiloHertz,
	})
	require.NoError(t, err)
	bench.Reset()

	p := New(nil, WithMirror(d))
	s := stripOn(t, p, 12)
	require.NoError(t, s.SetAll(255, 0, 0))
	require.NoError(t, s.Refresh())
	assert.NotZero(t, bench.Len(), "bench strip received nothing")
}

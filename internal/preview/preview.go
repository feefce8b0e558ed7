// Package preview decides where the ring's frames are shown: the SPI port the
// ring is wired to, a bench strip on a second port, the console, a monitor.
package preview

import (
	"io"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/extra/devices/screen"

	"github.com/coreman2200/funtimes-arcaluminis/internal/tap"
	"github.com/coreman2200/funtimes-arcaluminis/internal/ws2812"
)

// BenchFrequency drives the nrzled mirror strip.
const BenchFrequency = 2500 * physic.KiloHertz

type Option func(*Preview)

// WithConsole prints every frame at the console even when the SPI port opens.
func WithConsole(on bool) Option { return func(p *Preview) { p.console = on } }

func WithMirror(d display.Drawer) Option {
	return func(p *Preview) { p.mirrors = append(p.mirrors, d) }
}

func WithLogger(l zerolog.Logger) Option { return func(p *Preview) { p.log = l } }

// Preview hands the strip driver a tapped port. It is a ws2812.Opener via
// its Open method.
type Preview struct {
	leds    int
	open    ws2812.Opener
	console bool
	log     zerolog.Logger
	mirrors []display.Drawer
	closers []io.Closer
}

func New(leds int, open ws2812.Opener, opts ...Option) *Preview {
	p := &Preview{leds: leds, open: open, log: zerolog.Nop()}
	for _, o := range opts {
		o(p)
	}
	return p
}

// AttachBench drives a second strip on port with the same frames.
func (p *Preview) AttachBench(port int) error {
	pc, err := p.open(port)
	if err != nil {
		return errors.Wrapf(err, "open bench port %d", port)
	}
	d, err := nrzled.NewSPI(pc, &nrzled.Opts{
		NumPixels: p.leds,
		Channels:  3,
		Freq:      BenchFrequency,
	})
	if err != nil {
		pc.Close()
		return errors.Wrapf(err, "bench strip on port %d", port)
	}
	if err := d.Halt(); err != nil {
		p.log.Warn().Err(err).Msg("bench halt")
	}
	p.mirrors = append(p.mirrors, d)
	p.closers = append(p.closers, pc)
	p.log.Info().Int("port", port).Msg("bench strip attached")
	return nil
}

// Open returns the ring port wrapped in a tap. Without a port the frames are
// printed at the console instead.
func (p *Preview) Open(port int) (spi.PortCloser, error) {
	mirrors := append([]display.Drawer(nil), p.mirrors...)
	up, err := p.open(port)
	if err != nil {
		p.log.Warn().Err(err).Int("port", port).Msg("no SPI port, printing at the console")
		up = nil
	}
	if up == nil || p.console {
		mirrors = append(mirrors, screen.New(p.leds))
	}
	opts := []tap.Option{tap.WithLogger(p.log)}
	for _, m := range mirrors {
		opts = append(opts, tap.WithMirror(m))
	}
	return tap.New(up, opts...), nil
}

// Close releases the bench ports. The ring port is closed by the strip.
func (p *Preview) Close() error {
	var first error
	for _, c := range p.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	p.closers = nil
	return first
}

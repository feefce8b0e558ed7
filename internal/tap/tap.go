// Package tap sits between the strip driver and its SPI port and shows every
// transmitted frame on secondary displays.
//
// The frame on the wire is the only ground truth of what the ring shows, so
// the mirrors decode it rather than reading the driver's buffer.
package tap

import (
	"image"
	"sync"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"

	"github.com/coreman2200/funtimes-arcaluminis/internal/ws2812"
)

type Option func(*Port)

// WithMirror adds a display that receives every decoded frame.
func WithMirror(d display.Drawer) Option {
	return func(p *Port) { p.mirrors = append(p.mirrors, d) }
}

func WithLogger(l zerolog.Logger) Option { return func(p *Port) { p.log = l } }

// Port is a spi.PortCloser. With a nil upstream it only feeds the mirrors,
// which lets the ring run on a machine without SPI.
type Port struct {
	mu      sync.Mutex
	next    spi.PortCloser
	mirrors []display.Drawer
	log     zerolog.Logger
	frames  uint64
}

func New(next spi.PortCloser, opts ...Option) *Port {
	p := &Port{next: next, log: zerolog.Nop()}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *Port) String() string {
	if p.next == nil {
		return "tap"
	}
	return "tap(" + p.next.String() + ")"
}

func (p *Port) Connect(f physic.Frequency, mode spi.Mode, bits int) (spi.Conn, error) {
	c := &tapConn{port: p}
	if p.next != nil {
		inner, err := p.next.Connect(f, mode, bits)
		if err != nil {
			return nil, err
		}
		c.inner = inner
	}
	return c, nil
}

func (p *Port) LimitSpeed(f physic.Frequency) error {
	if p.next == nil {
		return nil
	}
	return p.next.LimitSpeed(f)
}

// Close halts the mirrors and closes the upstream port.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range p.mirrors {
		if err := m.Halt(); err != nil {
			p.log.Warn().Err(err).Str("mirror", m.String()).Msg("halt mirror")
		}
	}
	if p.next == nil {
		return nil
	}
	return p.next.Close()
}

// Frames returns how many complete frames were mirrored.
func (p *Port) Frames() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frames
}

func (p *Port) publish(w []byte) {
	frame, err := ws2812.DecodeFrame(w)
	if err != nil {
		p.log.Debug().Err(err).Int("len", len(w)).Msg("not a frame, not mirrored")
		return
	}
	img := image.NewNRGBA(image.Rect(0, 0, len(frame), 1))
	for x, c := range frame {
		img.SetNRGBA(x, 0, c)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames++
	for _, m := range p.mirrors {
		if err := m.Draw(m.Bounds(), img, image.Point{}); err != nil {
			p.log.Warn().Err(err).Str("mirror", m.String()).Msg("mirror draw")
		}
	}
}

type tapConn struct {
	port  *Port
	inner spi.Conn
}

func (c *tapConn) String() string { return c.port.String() }

func (c *tapConn) Duplex() conn.Duplex {
	if c.inner == nil {
		return conn.Half
	}
	return c.inner.Duplex()
}

func (c *tapConn) Tx(w, r []byte) error {
	if c.inner != nil {
		if err := c.inner.Tx(w, r); err != nil {
			return err
		}
	}
	c.port.publish(w)
	return nil
}

func (c *tapConn) TxPackets(pkts []spi.Packet) error {
	if c.inner != nil {
		if err := c.inner.TxPackets(pkts); err != nil {
			return err
		}
	}
	for _, pk := range pkts {
		c.port.publish(pk.W)
	}
	return nil
}

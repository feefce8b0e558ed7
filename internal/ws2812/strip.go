// Package ws2812 drives a chain of WS2812 LEDs from an SPI MOSI line.
//
// Every protocol bit is expanded to one SPI byte (Symbol0 or Symbol1), so a
// strip of N LEDs is refreshed with a single N*24 byte transfer. The package
// only knows about pixels: what to show and when is up to the caller.
package ws2812

import (
	"image/color"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
)

const (
	// DefaultLEDCount is the size of the status ring.
	DefaultLEDCount = 12
	// DefaultFrequency gives a 1.78µs bit time with the 8 symbols-per-bit scheme.
	DefaultFrequency = 4500 * physic.KiloHertz

	maxLEDs = 1 << 16
)

// Opener returns the SPI port identified by a bus number.
type Opener func(port int) (spi.PortCloser, error)

// OpenPort opens a periph SPI port by number. host.Init must have run.
func OpenPort(port int) (spi.PortCloser, error) {
	return spireg.Open(strconv.Itoa(port))
}

type Option func(*Strip)

func WithOpener(o Opener) Option { return func(s *Strip) { s.open = o } }

func WithFrequency(f physic.Frequency) Option { return func(s *Strip) { s.freq = f } }

func WithLogger(l zerolog.Logger) Option { return func(s *Strip) { s.log = l } }

// Strip is a frame buffer plus the SPI connection it is flushed to.
type Strip struct {
	mu    sync.Mutex
	count int
	freq  physic.Frequency
	open  Opener
	log   zerolog.Logger

	port   int
	closer spi.PortCloser
	conn   spi.Conn
	buf    []byte
	pixels []color.NRGBA
}

// New returns an uninitialized strip of count LEDs.
func New(count int, opts ...Option) *Strip {
	s := &Strip{
		count: count,
		freq:  DefaultFrequency,
		open:  OpenPort,
		log:   zerolog.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Len returns the number of LEDs in the chain.
func (s *Strip) Len() int { return s.count }

// Init allocates the frame buffer and connects to the SPI port. Calling it on
// an initialized strip does nothing.
func (s *Strip) Init(port int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.buf != nil {
		return nil
	}
	if s.count <= 0 || s.count > maxLEDs {
		return errors.Wrapf(ErrAllocationFailed, "%d leds", s.count)
	}
	buf := make([]byte, s.count*SymbolsPerLED)
	pixels := make([]color.NRGBA, s.count)

	p, err := s.open(port)
	if err != nil {
		return &TransportError{Op: "open", Port: port, Err: err}
	}
	if p == nil {
		return &TransportError{Op: "open", Port: port, Err: ErrNoPort}
	}
	c, err := p.Connect(s.freq, spi.Mode0, 8)
	if err != nil {
		_ = p.Close()
		return &TransportError{Op: "connect", Port: port, Err: err}
	}

	// A fresh buffer must already be a valid all-off frame.
	for i := 0; i < s.count; i++ {
		EncodePixel(buf[i*SymbolsPerLED:], 0, 0, 0)
		pixels[i] = color.NRGBA{A: 255}
	}
	s.port, s.closer, s.conn = port, p, c
	s.buf, s.pixels = buf, pixels
	s.log.Debug().Int("port", port).Int("leds", s.count).Str("freq", s.freq.String()).Msg("strip initialized")
	return nil
}

// SetPixel encodes one LED into the frame buffer. Nothing is sent until Refresh.
func (s *Strip) SetPixel(index int, r, g, b uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setPixel(index, r, g, b)
}

func (s *Strip) setPixel(index int, r, g, b uint8) error {
	if s.buf == nil {
		return errors.Wrap(ErrInvalidIndex, "strip not initialized")
	}
	if index < 0 || index >= s.count {
		return errors.Wrapf(ErrInvalidIndex, "index %d of %d", index, s.count)
	}
	EncodePixel(s.buf[index*SymbolsPerLED:], r, g, b)
	s.pixels[index] = color.NRGBA{R: r, G: g, B: b, A: 255}
	return nil
}

// SetAll encodes the same color into every LED. Nothing is sent until Refresh.
func (s *Strip) SetAll(r, g, b uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.buf == nil {
		return ErrNotReady
	}
	for i := 0; i < s.count; i++ {
		if err := s.setPixel(i, r, g, b); err != nil {
			return err
		}
	}
	return nil
}

// Refresh sends the whole frame buffer in one transfer.
func (s *Strip) Refresh() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.buf == nil {
		return ErrNotReady
	}
	if err := s.conn.Tx(s.buf, nil); err != nil {
		return &TransportError{Op: "send", Port: s.port, Err: err}
	}
	return nil
}

// Pixel returns the last color written at index.
func (s *Strip) Pixel(index int) (color.NRGBA, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pixels == nil || index < 0 || index >= s.count {
		return color.NRGBA{}, false
	}
	return s.pixels[index], true
}

// Bytes returns a copy of the encoded frame buffer, nil before Init.
func (s *Strip) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buf == nil {
		return nil
	}
	return append([]byte(nil), s.buf...)
}

// Deinit releases the frame buffer and closes the port. It is safe to call
// more than once.
func (s *Strip) Deinit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.buf == nil {
		return nil
	}
	s.buf, s.pixels, s.conn = nil, nil, nil
	p := s.closer
	s.closer = nil
	if err := p.Close(); err != nil {
		return &TransportError{Op: "close", Port: s.port, Err: err}
	}
	s.log.Debug().Int("port", s.port).Msg("strip released")
	return nil
}

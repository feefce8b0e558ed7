package ws2812

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrAllocationFailed is returned by Init when the frame buffer cannot be sized.
	ErrAllocationFailed = errors.New("ws2812: frame buffer allocation failed")
	// ErrNotReady is returned when the strip is used before Init.
	ErrNotReady = errors.New("ws2812: strip not initialized")
	// ErrInvalidIndex is returned by SetPixel for an out of range LED or an
	// uninitialized strip.
	ErrInvalidIndex = errors.New("ws2812: invalid pixel index")
	// ErrBadSymbol is returned by the decoder for a byte that is neither Symbol0 nor Symbol1.
	ErrBadSymbol = errors.New("ws2812: byte is not a protocol symbol")
	// ErrNoPort is wrapped in a TransportError when an Opener returns no port.
	ErrNoPort = errors.New("ws2812: opener returned no port")
)

// TransportError wraps a failure of the underlying SPI port.
type TransportError struct {
	Op   string // "open", "connect", "send" or "close"
	Port int
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("ws2812: spi port %d %s: %v", e.Port, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

package ws2812

import (
	"image/color"

	"github.com/pkg/errors"
)

// Each protocol bit is sent as one SPI byte. At 4.5MHz a byte lasts ~1.78µs;
// the high part of the byte is the pulse the strip samples.
const (
	Symbol0 byte = 0xC0 // 2/8 high
	Symbol1 byte = 0xFC // 6/8 high

	// SymbolsPerLED is the encoded size of one pixel: 3 channels x 8 bits.
	SymbolsPerLED = 24
)

// EncodePixel writes the 24 symbols for one LED into dst, green-red-blue,
// most significant bit first. dst must hold at least SymbolsPerLED bytes.
func EncodePixel(dst []byte, r, g, b uint8) {
	grb := uint32(g)<<16 | uint32(r)<<8 | uint32(b)
	for bit := 0; bit < SymbolsPerLED; bit++ {
		if (grb<<bit)&0x800000 != 0 {
			dst[bit] = Symbol1
		} else {
			dst[bit] = Symbol0
		}
	}
}

// DecodePixel is the inverse of EncodePixel.
func DecodePixel(src []byte) (r, g, b uint8, err error) {
	if len(src) < SymbolsPerLED {
		return 0, 0, 0, errors.Errorf("ws2812: short pixel: %d symbols", len(src))
	}
	var grb uint32
	for i, s := range src[:SymbolsPerLED] {
		grb <<= 1
		switch s {
		case Symbol1:
			grb |= 1
		case Symbol0:
		default:
			return 0, 0, 0, errors.Wrapf(ErrBadSymbol, "offset %d: %#02x", i, s)
		}
	}
	return uint8(grb >> 8), uint8(grb >> 16), uint8(grb), nil
}

// DecodeFrame decodes a whole encoded stream back into colors. Trailing bytes
// that do not form a complete pixel are an error.
func DecodeFrame(src []byte) ([]color.NRGBA, error) {
	if len(src)%SymbolsPerLED != 0 {
		return nil, errors.Errorf("ws2812: frame length %d is not a multiple of %d", len(src), SymbolsPerLED)
	}
	out := make([]color.NRGBA, len(src)/SymbolsPerLED)
	for i := range out {
		r, g, b, err := DecodePixel(src[i*SymbolsPerLED:])
		if err != nil {
			return nil, errors.Wrapf(err, "pixel %d", i)
		}
		out[i] = color.NRGBA{R: r, G: g, B: b, A: 255}
	}
	return out, nil
}

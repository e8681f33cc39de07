package editor

import (
	"math"

	"github.com/teslashibe/go-photobooth/pkg/pixel"
)

// ToneAdjuster applies brightness and contrast to a buffer in place.
//
// Per R, G and B channel: v' = clamp(((v*brightness)-128)*contrast+128, 0, 255),
// with ties rounded to even. Alpha is untouched and fully transparent pixels
// are skipped.
type ToneAdjuster struct{}

// ToneValue applies the tone formula to a single channel sample.
func ToneValue(v uint8, brightness, contrast float64) uint8 {
	x := ((float64(v) * brightness) - 128) * contrast + 128
	switch {
	case x <= 0:
		return 0
	case x >= 255:
		return 255
	}
	return uint8(math.RoundToEven(x))
}

// Apply adjusts buf and returns the number of pixels visited. Identity
// settings (1, 1) return immediately without reading the buffer.
func (ToneAdjuster) Apply(buf *pixel.Buffer, brightness, contrast float64) int {
	if brightness == 1 && contrast == 1 {
		return 0
	}
	if buf.Empty() {
		return 0
	}

	var lut [256]uint8
	for v := range lut {
		lut[v] = ToneValue(uint8(v), brightness, contrast)
	}

	pix := buf.Pix()
	n := 0
	for i := 0; i+3 < len(pix); i += 4 {
		if pix[i+3] == 0 {
			continue
		}
		pix[i] = lut[pix[i]]
		pix[i+1] = lut[pix[i+1]]
		pix[i+2] = lut[pix[i+2]]
		n++
	}
	return n
}

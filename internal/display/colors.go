package display

import (
	"fmt"
	"image/color"
)

// Panel colours, as 0xRRGGBB.
const (
	HexWhite = 0xFFFFFF
	HexBlue  = 0x0000FF
	HexRed   = 0xFF0000
	HexCover = 0x002FA7
	HexBlack = 0x000000
)

// Semantic colours used by the pollers and the bootstrapper.
var (
	Neutral    = Hex(HexWhite) // normal value text
	Connecting = Hex(HexBlue)  // status while bringing the network up
	Label      = Hex(HexBlue)  // metric titles keep the boot colour
	Alert      = Hex(HexRed)   // value over its threshold
	Cover      = Hex(HexCover) // boot reveal panel
	Background = Hex(HexBlack)
)

// Hex converts 0xRRGGBB into an opaque colour.
func Hex(v uint32) color.RGBA {
	return color.RGBA{
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
		A: 0xFF,
	}
}

// HexString renders c as #rrggbb.
func HexString(c color.Color) string {
	r, g, b, _ := c.RGBA()
	return fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8)
}

package imaging

import (
	"fmt"
	"image/color"
	"regexp"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// hexColorPattern is the only colour notation accepted for fill colours.
var hexColorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// ParseHexColor converts a "#RRGGBB" string into an opaque color.NRGBA.
//
// Shorthand ("#FFF"), alpha ("#RRGGBBAA") and named colours are rejected even
// though go-colorful would accept some of them; the anonymizer contract only
// allows six hex digits.
//
// Returns an error wrapping ErrInvalidInput when the string does not match.
func ParseHexColor(s string) (color.NRGBA, error) {
	if !hexColorPattern.MatchString(s) {
		return color.NRGBA{}, fmt.Errorf("%w: color %q must match #RRGGBB", ErrInvalidInput, s)
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: color %q: %v", ErrInvalidInput, s, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}

// FormatHex returns the upper-case "#RRGGBB" notation of c, alpha excluded.
func FormatHex(c color.Color) string {
	r, g, b, _ := c.RGBA()
	return fmt.Sprintf("#%02X%02X%02X", uint8(r>>8), uint8(g>>8), uint8(b>>8))
}

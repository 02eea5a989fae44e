package ocr

import (
	"strings"
	"unicode"
)

// Plate text limits after normalization.
const (
	MinPlateChars = 4
	MaxPlateChars = 10
)

// NormalizePlateText upper-cases s and keeps only ASCII letters and digits.
// Separators, spaces and OCR noise such as '|' or '.' disappear.
func NormalizePlateText(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if r > unicode.MaxASCII {
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// LooksLikePlate reports whether normalized text could be a registration
// number: MinPlateChars to MaxPlateChars characters with at least one digit.
func LooksLikePlate(normalized string) bool {
	if len(normalized) < MinPlateChars || len(normalized) > MaxPlateChars {
		return false
	}
	return strings.IndexFunc(normalized, unicode.IsDigit) >= 0
}

// plateWhitelist restricts recognition to registration characters.
const plateWhitelist = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789- "

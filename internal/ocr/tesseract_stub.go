//go:build !cgo

package ocr

import "image"

func recognizeLine(img image.Image, language string) (Recognition, error) {
	return Recognition{}, ErrUnavailable
}

// Version returns an empty string when Tesseract is not linked.
func Version() string {
	return ""
}

package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder

	"github.com/disintegration/imaging"
	log "github.com/sirupsen/logrus"
)

// DefaultMaxDimension is the longest side, in pixels, an image may keep after
// preprocessing. Larger images are shrunk with their aspect ratio preserved.
const DefaultMaxDimension = 4096

var (
	// ErrInvalidInput marks an upload that cannot be processed: empty,
	// corrupt, or in an unsupported format.
	ErrInvalidInput = errors.New("invalid image")

	// ErrTooLarge marks an upload over the size limit. It wraps
	// ErrInvalidInput, so check for it first when the two must be told apart.
	ErrTooLarge = fmt.Errorf("%w: file too large", ErrInvalidInput)
)

// supportedFormats are the format names reported by image.DecodeConfig that
// the service accepts.
var supportedFormats = map[string]string{
	"jpeg": "JPEG",
	"png":  "PNG",
}

// SupportedFormats lists the accepted upload formats in display form.
func SupportedFormats() []string {
	return []string{"JPG", "PNG"}
}

// Upload is a validated, decoded image upload.
type Upload struct {
	// Image is the decoded image with EXIF orientation applied.
	Image image.Image

	// Format is "jpeg" or "png".
	Format string

	// Width and Height are the decoded dimensions in pixels.
	Width  int
	Height int

	// SizeBytes is the size of the raw upload.
	SizeBytes int
}

// DecodeUpload validates and decodes raw upload bytes.
//
// Parameters:
//   - data: The complete file contents as received.
//   - maxBytes: Upload size limit. Files strictly larger are rejected.
//
// Returns:
//   - *Upload: The decoded image and its metadata.
//   - error: ErrTooLarge for oversized data, ErrInvalidInput (wrapped with a
//     human-readable detail) for empty, corrupt or unsupported files.
//
// # Validation Order
//
//  1. Size limit, checked before any decoding work
//  2. Header sniffing via image.DecodeConfig, which identifies the format
//  3. Format whitelist (JPEG, PNG)
//  4. Full decode with EXIF auto-orientation
func DecodeUpload(data []byte, maxBytes int64) (*Upload, error) {
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds maximum %d bytes", ErrTooLarge, len(data), maxBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidInput)
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid or corrupted image file: %v", ErrInvalidInput, err)
	}
	if _, ok := supportedFormats[format]; !ok {
		return nil, fmt.Errorf("%w: unsupported format %q, allowed formats: JPEG, PNG", ErrInvalidInput, format)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid or corrupted image file: %v", ErrInvalidInput, err)
	}

	b := img.Bounds()
	log.WithFields(log.Fields{
		"format": supportedFormats[format],
		"width":  b.Dx(),
		"height": b.Dy(),
		"bytes":  len(data),
	}).Debug("Image validated")

	return &Upload{
		Image:     img,
		Format:    format,
		Width:     b.Dx(),
		Height:    b.Dy(),
		SizeBytes: len(data),
	}, nil
}

// Preprocess normalizes an image for detection and anonymization.
//
// The result is always a fresh *image.NRGBA with a zero origin and opaque
// pixels. Alpha is discarded rather than composited, so colour channels keep
// their original values. If the longest side exceeds maxDimension the image
// is shrunk to fit with Lanczos resampling; smaller images keep their size.
//
// A maxDimension of zero or less disables resizing.
func Preprocess(img image.Image, maxDimension int) *image.NRGBA {
	b := img.Bounds()

	var out *image.NRGBA
	if maxDimension > 0 && (b.Dx() > maxDimension || b.Dy() > maxDimension) {
		out = imaging.Fit(img, maxDimension, maxDimension, imaging.Lanczos)
		log.WithFields(log.Fields{
			"from": fmt.Sprintf("%dx%d", b.Dx(), b.Dy()),
			"to":   fmt.Sprintf("%dx%d", out.Bounds().Dx(), out.Bounds().Dy()),
		}).Info("Resized image above maximum dimension")
	} else {
		out = imaging.Clone(img)
	}

	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = 255
	}
	return out
}

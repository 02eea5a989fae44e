package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	log "github.com/sirupsen/logrus"

	"github.com/ironsheep/photo-anonymizer/internal/detection"
	pimg "github.com/ironsheep/photo-anonymizer/internal/imaging"
)

// ErrUnavailable is returned when no OCR engine is compiled in or it cannot
// be started.
var ErrUnavailable = errors.New("ocr engine unavailable")

// Recognition is the text read from one crop.
type Recognition struct {
	Text string

	// Confidence is the mean word confidence in [0, 1].
	Confidence float64
}

// recognizeFunc reads a single line of text from img.
type recognizeFunc func(img image.Image, language string) (Recognition, error)

// minCropHeight is the height crops are upscaled to before recognition.
// Tesseract reads poorly below roughly 30 pixel glyphs.
const minCropHeight = 64

// PlateTextVerifier accepts plate candidates whose crop reads as plate text.
// It implements detection.PlateVerifier.
type PlateTextVerifier struct {
	language      string
	minConfidence float64
	recognize     recognizeFunc
}

// NewPlateTextVerifier creates a verifier reading with the given Tesseract
// language. Recognitions below minConfidence are rejected.
func NewPlateTextVerifier(language string, minConfidence float64) *PlateTextVerifier {
	if language == "" {
		language = "eng"
	}
	return &PlateTextVerifier{
		language:      language,
		minConfidence: minConfidence,
		recognize:     recognizeLine,
	}
}

// VerifyPlate reads the text inside box and reports whether it looks like a
// registration number. Engine errors are returned with a false result; the
// caller decides what an unverifiable candidate means.
func (v *PlateTextVerifier) VerifyPlate(ctx context.Context, img image.Image, box detection.BoundingBox) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	crop, err := pimg.CropRegion(img, box.Rect())
	if err != nil {
		return false, fmt.Errorf("plate crop: %w", err)
	}

	prepared := prepareCrop(crop)
	rec, err := v.recognize(prepared, v.language)
	if err != nil {
		return false, err
	}

	text := NormalizePlateText(rec.Text)
	ok := LooksLikePlate(text) && rec.Confidence >= v.minConfidence

	log.WithFields(log.Fields{
		"bbox":       box,
		"text":       text,
		"confidence": rec.Confidence,
		"accepted":   ok,
	}).Debug("Plate text verification")
	return ok, nil
}

// prepareCrop converts a plate crop to grayscale and upscales it so the
// characters are large enough to read.
func prepareCrop(crop image.Image) *image.NRGBA {
	gray := imaging.Grayscale(crop)
	if h := gray.Bounds().Dy(); h > 0 && h < minCropHeight {
		return imaging.Resize(gray, 0, minCropHeight, imaging.Lanczos)
	}
	return gray
}

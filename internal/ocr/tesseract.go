//go:build cgo

package ocr

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// recognizeLine runs Tesseract over img treating it as a single text line.
func recognizeLine(img image.Image, language string) (Recognition, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return Recognition{}, fmt.Errorf("failed to encode crop: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(language); err != nil {
		return Recognition{}, fmt.Errorf("%w: failed to set language: %v", ErrUnavailable, err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		return Recognition{}, fmt.Errorf("failed to set page segmentation: %w", err)
	}
	if err := client.SetWhitelist(plateWhitelist); err != nil {
		return Recognition{}, fmt.Errorf("failed to set whitelist: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return Recognition{}, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return Recognition{}, fmt.Errorf("%w: OCR failed: %v", ErrUnavailable, err)
	}

	words := make([]string, 0, len(boxes))
	var sum float64
	for _, box := range boxes {
		if strings.TrimSpace(box.Word) == "" {
			continue
		}
		words = append(words, box.Word)
		sum += box.Confidence
	}
	if len(words) == 0 {
		return Recognition{}, nil
	}

	return Recognition{
		Text:       strings.Join(words, " "),
		Confidence: sum / float64(len(words)) / 100.0,
	}, nil
}

// Version returns the linked Tesseract version.
func Version() string {
	return gosseract.Version()
}

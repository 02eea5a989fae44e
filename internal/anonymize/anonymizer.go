package anonymize

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	log "github.com/sirupsen/logrus"

	"github.com/ironsheep/photo-anonymizer/internal/detection"
	pimg "github.com/ironsheep/photo-anonymizer/internal/imaging"
)

// DefaultColor is the fill used when none is configured.
const DefaultColor = "#FFFF00"

// Anonymizer fills detection boxes with a solid colour.
type Anonymizer struct {
	hex  string
	fill color.NRGBA
}

// New creates an Anonymizer painting with hex, a "#RRGGBB" colour.
func New(hex string) (*Anonymizer, error) {
	fill, err := pimg.ParseHexColor(hex)
	if err != nil {
		return nil, fmt.Errorf("invalid anonymization color: %w", err)
	}
	return &Anonymizer{hex: pimg.FormatHex(fill), fill: fill}, nil
}

// Color returns the fill colour as "#RRGGBB".
func (a *Anonymizer) Color() string {
	return a.hex
}

// Apply returns a copy of img with every detection filled.
//
// Each box covers [x, x+width) × [y, y+height) and is clipped to the image.
// Boxes may overlap; each is painted once. The result is opaque RGB with
// img's dimensions and a zero origin; img is not modified.
func (a *Anonymizer) Apply(img image.Image, dets []detection.Detection) *image.NRGBA {
	out := imaging.Clone(img)
	for i := 0; i < len(out.Pix); i += 4 {
		out.Pix[i+3] = 0xff
	}

	src := &image.Uniform{C: a.fill}
	origin := img.Bounds().Min
	for _, d := range dets {
		r := d.BBox.Rect().Sub(origin).Intersect(out.Bounds())
		if r.Empty() {
			log.WithFields(log.Fields{"label": d.Label, "id": d.ID, "bbox": d.BBox}).Warn("Detection outside image, nothing to fill")
			continue
		}
		draw.Draw(out, r, src, image.Point{}, draw.Src)
		log.WithFields(log.Fields{
			"label": d.Label,
			"id":    d.ID,
			"rect":  r.String(),
		}).Debug("Filled region")
	}

	log.WithFields(log.Fields{"regions": len(dets), "color": a.hex}).Info("Anonymized image")
	return out
}

// Anonymize applies the fill and encodes the result as base64 PNG.
func (a *Anonymizer) Anonymize(img image.Image, dets []detection.Detection) (*image.NRGBA, string, error) {
	out := a.Apply(img, dets)
	encoded, err := pimg.EncodePNGBase64(out)
	if err != nil {
		return nil, "", err
	}
	return out, encoded, nil
}

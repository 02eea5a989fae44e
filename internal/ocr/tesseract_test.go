//go:build cgo

package ocr

import (
	"image"
	"image/color"
	"image/draw"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// drawText draws text on an image using basicfont
func drawText(img *image.RGBA, x, y int, text string, col color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

// createPlateTextImage renders plate text black on white, scaled up so the
// glyphs are large enough for Tesseract.
func createPlateTextImage(text string) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 10+7*len(text)+10, 24))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	drawText(img, 10, 17, text, color.Black)
	return imaging.Resize(img, img.Bounds().Dx()*4, 0, imaging.NearestNeighbor)
}

func TestRecognizeLine(t *testing.T) {
	rec, err := recognizeLine(createPlateTextImage("AB12 CDE"), "eng")
	if err != nil {
		t.Skipf("Tesseract not available: %v", err)
	}

	if rec.Confidence < 0 || rec.Confidence > 1 {
		t.Errorf("confidence %v outside [0, 1]", rec.Confidence)
	}
	if strings.ContainsAny(rec.Text, "abcdefghijklmnopqrstuvwxyz") {
		t.Errorf("whitelist should exclude lower case, got %q", rec.Text)
	}
	t.Logf("recognized %q at %.2f", rec.Text, rec.Confidence)
}

func TestRecognizeLineBlank(t *testing.T) {
	blank := createWhiteImage(200, 64)
	rec, err := recognizeLine(blank, "eng")
	if err != nil {
		t.Skipf("Tesseract not available: %v", err)
	}
	if LooksLikePlate(NormalizePlateText(rec.Text)) {
		t.Errorf("blank image read as plate text %q", rec.Text)
	}
}

func TestVersion(t *testing.T) {
	if _, err := recognizeLine(createWhiteImage(10, 10), "eng"); err != nil {
		t.Skipf("Tesseract not available: %v", err)
	}
	if Version() == "" {
		t.Error("expected a Tesseract version")
	}
}

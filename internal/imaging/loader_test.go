package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"
)

func encodeTestPNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode failed: %v", err)
	}
	return buf.Bytes()
}

func encodeTestJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("jpeg.Encode failed: %v", err)
	}
	return buf.Bytes()
}

func TestDecodeUploadPNG(t *testing.T) {
	data := encodeTestPNG(t, createInMemoryImage(120, 80, color.NRGBA{10, 20, 30, 255}))

	up, err := DecodeUpload(data, 10<<20)
	if err != nil {
		t.Fatalf("DecodeUpload failed: %v", err)
	}
	if up.Format != "png" {
		t.Errorf("Format: got %s, want png", up.Format)
	}
	if up.Width != 120 || up.Height != 80 {
		t.Errorf("Dimensions: got %dx%d, want 120x80", up.Width, up.Height)
	}
	if up.SizeBytes != len(data) {
		t.Errorf("SizeBytes: got %d, want %d", up.SizeBytes, len(data))
	}
}

func TestDecodeUploadJPEG(t *testing.T) {
	data := encodeTestJPEG(t, createInMemoryImage(64, 48, color.NRGBA{200, 100, 50, 255}))

	up, err := DecodeUpload(data, 10<<20)
	if err != nil {
		t.Fatalf("DecodeUpload failed: %v", err)
	}
	if up.Format != "jpeg" {
		t.Errorf("Format: got %s, want jpeg", up.Format)
	}
	if up.Image.Bounds().Dx() != 64 || up.Image.Bounds().Dy() != 48 {
		t.Errorf("Bounds: got %v, want 64x48", up.Image.Bounds())
	}
}

func TestDecodeUploadTooLarge(t *testing.T) {
	data := make([]byte, 11<<20)

	_, err := DecodeUpload(data, 10<<20)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("ErrTooLarge should also be an ErrInvalidInput")
	}
}

func TestDecodeUploadInvalid(t *testing.T) {
	var gifBuf bytes.Buffer
	pal := image.NewPaletted(image.Rect(0, 0, 4, 4), []color.Color{color.Black, color.White})
	if err := gif.Encode(&gifBuf, pal, nil); err != nil {
		t.Fatalf("gif.Encode failed: %v", err)
	}

	pngData := encodeTestPNG(t, createInMemoryImage(40, 40, color.White))

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"garbage", []byte("definitely not an image")},
		{"gif", gifBuf.Bytes()},
		{"truncated png", pngData[:len(pngData)/2]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeUpload(tt.data, 10<<20)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
			if errors.Is(err, ErrTooLarge) {
				t.Errorf("did not expect ErrTooLarge, got %v", err)
			}
		})
	}
}

func TestPreprocessResizesLargeImages(t *testing.T) {
	img := createInMemoryImage(200, 100, color.NRGBA{1, 2, 3, 255})

	out := Preprocess(img, 50)
	if out.Bounds().Dx() != 50 || out.Bounds().Dy() != 25 {
		t.Errorf("Preprocess: got %v, want 50x25", out.Bounds())
	}
}

func TestPreprocessKeepsSmallImages(t *testing.T) {
	img := createInMemoryImage(30, 20, color.NRGBA{1, 2, 3, 255})

	out := Preprocess(img, DefaultMaxDimension)
	if out.Bounds() != image.Rect(0, 0, 30, 20) {
		t.Errorf("Preprocess: got %v, want 30x20", out.Bounds())
	}
	if out == img {
		t.Error("Preprocess should return a copy")
	}
}

func TestPreprocessDropsAlpha(t *testing.T) {
	img := createInMemoryImage(4, 4, color.NRGBA{100, 150, 200, 0})

	out := Preprocess(img, 0)
	c := out.NRGBAAt(1, 1)
	if c != (color.NRGBA{100, 150, 200, 255}) {
		t.Errorf("Preprocess: got %v, want opaque {100 150 200}", c)
	}
}

func TestPreprocessNormalizesOrigin(t *testing.T) {
	src := image.NewNRGBA(image.Rect(10, 10, 20, 30))

	out := Preprocess(src, 0)
	if out.Bounds().Min != (image.Point{}) {
		t.Errorf("Preprocess origin: got %v, want (0,0)", out.Bounds().Min)
	}
}

func TestEncodePNGBase64RoundTrip(t *testing.T) {
	img := createInMemoryImage(8, 6, color.NRGBA{255, 255, 0, 255})

	s, err := EncodePNGBase64(img)
	if err != nil {
		t.Fatalf("EncodePNGBase64 failed: %v", err)
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		t.Fatalf("base64 decode failed: %v", err)
	}
	back, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png.Decode failed: %v", err)
	}
	if back.Bounds().Dx() != 8 || back.Bounds().Dy() != 6 {
		t.Errorf("Bounds: got %v, want 8x6", back.Bounds())
	}
	if hex := FormatHex(back.At(3, 3)); hex != "#FFFF00" {
		t.Errorf("pixel: got %s, want #FFFF00", hex)
	}
}

package imaging

import (
	"image"
	"image/color"
	"testing"
)

func TestCropRegion(t *testing.T) {
	img := createInMemoryImage(100, 80, color.NRGBA{0, 0, 255, 255})
	img.Set(30, 20, color.NRGBA{255, 0, 0, 255})

	cropped, err := CropRegion(img, image.Rect(30, 20, 60, 50))
	if err != nil {
		t.Fatalf("CropRegion failed: %v", err)
	}
	if cropped.Bounds() != image.Rect(0, 0, 30, 30) {
		t.Errorf("bounds: got %v, want (0,0)-(30,30)", cropped.Bounds())
	}
	if hex := FormatHex(cropped.At(0, 0)); hex != "#FF0000" {
		t.Errorf("origin pixel: got %s, want #FF0000", hex)
	}
}

func TestCropRegionClipsToImage(t *testing.T) {
	img := createInMemoryImage(50, 50, color.White)

	cropped, err := CropRegion(img, image.Rect(40, 40, 90, 90))
	if err != nil {
		t.Fatalf("CropRegion failed: %v", err)
	}
	if cropped.Bounds().Dx() != 10 || cropped.Bounds().Dy() != 10 {
		t.Errorf("bounds: got %v, want 10x10", cropped.Bounds())
	}
}

func TestCropRegionOutside(t *testing.T) {
	img := createInMemoryImage(50, 50, color.White)

	if _, err := CropRegion(img, image.Rect(60, 60, 90, 90)); err == nil {
		t.Error("expected error for a region outside the image")
	}
}

func TestCropGray(t *testing.T) {
	gray := createRectangleGray(20, 20, image.Rect(5, 5, 10, 10))

	sub := CropGray(gray, image.Rect(5, 5, 15, 15))
	if sub.Bounds() != image.Rect(0, 0, 10, 10) {
		t.Fatalf("bounds: got %v, want (0,0)-(10,10)", sub.Bounds())
	}
	if sub.GrayAt(0, 0).Y != 255 || sub.GrayAt(6, 6).Y != 0 {
		t.Error("crop content does not match the source")
	}
}

func TestCropGrayEmpty(t *testing.T) {
	gray := createRectangleGray(20, 20, image.Rect(5, 5, 10, 10))

	if sub := CropGray(gray, image.Rect(30, 30, 40, 40)); !sub.Bounds().Empty() {
		t.Errorf("expected empty image, got %v", sub.Bounds())
	}
}

func TestClampRect(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 50)

	tests := []struct {
		x1, y1, x2, y2 float64
		want           image.Rectangle
	}{
		{10.7, 5.2, 40.9, 30.1, image.Rect(10, 5, 40, 30)},
		{-5, -5, 200, 200, bounds},
		{150, 10, 180, 20, image.Rectangle{}},
	}

	for _, tt := range tests {
		got := ClampRect(tt.x1, tt.y1, tt.x2, tt.y2, bounds)
		if !got.Eq(tt.want) {
			t.Errorf("ClampRect(%v,%v,%v,%v) = %v, want %v", tt.x1, tt.y1, tt.x2, tt.y2, got, tt.want)
		}
	}
}

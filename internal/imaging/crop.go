package imaging

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// CropRegion extracts r from img as a new zero-origin image.
//
// r is given in img's coordinate space and is clipped to the image bounds.
// An empty intersection is an error, so callers never receive a 0x0 image.
func CropRegion(img image.Image, r image.Rectangle) (*image.NRGBA, error) {
	clipped := r.Intersect(img.Bounds())
	if clipped.Empty() {
		return nil, fmt.Errorf("crop region %v outside image bounds %v", r, img.Bounds())
	}
	return imaging.Crop(img, clipped), nil
}

// CropGray extracts r from a grayscale image as a new zero-origin image,
// clipped to the image bounds. An empty intersection yields a 0x0 image.
func CropGray(gray *image.Gray, r image.Rectangle) *image.Gray {
	sub, ok := gray.SubImage(r.Intersect(gray.Bounds())).(*image.Gray)
	if !ok {
		return image.NewGray(image.Rectangle{})
	}
	return rebaseGray(sub)
}

// ClampRect converts corner coordinates into a rectangle clipped to bounds.
// Coordinates are truncated toward zero the way detector boxes are converted
// to pixels.
func ClampRect(x1, y1, x2, y2 float64, bounds image.Rectangle) image.Rectangle {
	r := image.Rect(int(x1), int(y1), int(x2), int(y2))
	return r.Intersect(bounds)
}

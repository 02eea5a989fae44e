package detection

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
)

// createPlateScene creates a mid-gray RGB image with a white plate carrying
// dark character-like bars at each of the given rectangles
func createPlateScene(width, height int, plates ...image.Rectangle) *image.NRGBA {
	gray := createUniformGray(width, height, 128)
	for _, p := range plates {
		drawPlateGray(gray, p)
	}
	img := image.NewNRGBA(gray.Bounds())
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := gray.GrayAt(x, y).Y
			img.SetNRGBA(x, y, color.NRGBA{v, v, v, 255})
		}
	}
	return img
}

// covers reports whether got contains want and overshoots it by at most
// slack pixels on every side
func covers(got BoundingBox, want image.Rectangle, slack int) bool {
	r := got.Rect()
	return r.Min.X <= want.Min.X && r.Min.Y <= want.Min.Y &&
		r.Max.X >= want.Max.X && r.Max.Y >= want.Max.Y &&
		want.Min.X-r.Min.X <= slack && want.Min.Y-r.Min.Y <= slack &&
		r.Max.X-want.Max.X <= slack && r.Max.Y-want.Max.Y <= slack
}

func TestSearchRegionFindsPlate(t *testing.T) {
	plate := image.Rect(200, 150, 350, 195)
	img := createPlateScene(600, 400, plate)

	dets, err := SearchRegion(context.Background(), img, &StrictMode)
	if err != nil {
		t.Fatalf("SearchRegion failed: %v", err)
	}
	if len(dets) == 0 {
		t.Fatal("expected the plate to be found")
	}
	if len(dets) > StrictMode.MaxResults {
		t.Errorf("got %d detections, at most %d allowed", len(dets), StrictMode.MaxResults)
	}

	if !covers(dets[0].BBox, plate, 10) {
		t.Errorf("best detection %+v does not cover plate %v", dets[0].BBox, plate)
	}
	for i, d := range dets {
		if d.ID != i+1 {
			t.Errorf("detection %d: id %d, want %d", i, d.ID, i+1)
		}
		if d.Label != LabelPlate {
			t.Errorf("detection %d: label %q", i, d.Label)
		}
		if d.Confidence < StrictMode.ConfidenceBase || d.Confidence > StrictMode.MaxConfidence {
			t.Errorf("detection %d: confidence %v out of range", i, d.Confidence)
		}
		if i > 0 && d.Confidence > dets[i-1].Confidence {
			t.Errorf("detections not ordered by score at %d", i)
		}
	}
}

func TestSearchRegionKeepsBestFive(t *testing.T) {
	var plates []image.Rectangle
	for _, y := range []int{100, 350} {
		for _, x := range []int{50, 290, 530, 770} {
			plates = append(plates, image.Rect(x, y, x+150, y+45))
		}
	}
	img := createPlateScene(1000, 600, plates...)

	dets, err := SearchRegion(context.Background(), img, &StrictMode)
	if err != nil {
		t.Fatalf("SearchRegion failed: %v", err)
	}
	if len(dets) != StrictMode.MaxResults {
		t.Fatalf("got %d detections from %d plates, want %d", len(dets), len(plates), StrictMode.MaxResults)
	}
	for i, d := range dets {
		if d.ID != i+1 {
			t.Errorf("detection %d: id %d, want %d", i, d.ID, i+1)
		}
		if i > 0 && d.Confidence > dets[i-1].Confidence {
			t.Errorf("detections not ordered by score at %d", i)
		}
	}
}

func TestSearchRegionUniformImage(t *testing.T) {
	img := createPlateScene(300, 200)

	for _, mode := range []*SearchMode{&StrictMode, &LenientMode} {
		dets, err := SearchRegion(context.Background(), img, mode)
		if err != nil {
			t.Fatalf("%s: SearchRegion failed: %v", mode.Name, err)
		}
		if dets == nil || len(dets) != 0 {
			t.Errorf("%s: expected an empty list, got %v", mode.Name, dets)
		}
	}
}

func TestSearchRegionEmptyImage(t *testing.T) {
	dets, err := SearchRegion(context.Background(), image.NewNRGBA(image.Rectangle{}), &StrictMode)
	if err != nil || len(dets) != 0 {
		t.Errorf("got %v, %v; want empty list", dets, err)
	}
}

func TestSearchRegionCancelled(t *testing.T) {
	img := createPlateScene(600, 400, image.Rect(200, 150, 350, 195))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dets, err := SearchRegion(ctx, img, &StrictMode)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if dets != nil {
		t.Errorf("expected no detections after cancellation, got %v", dets)
	}
}

package imaging

import (
	"image"
	"testing"
)

func TestBuildEdgeMapOutlinesRectangle(t *testing.T) {
	rect := image.Rect(20, 25, 80, 55)
	gray := createRectangleGray(100, 80, rect)

	for _, tt := range []struct {
		name   string
		passes []EdgePass
	}{
		{"strict", StrictEdgePasses},
		{"lenient", LenientEdgePasses},
	} {
		t.Run(tt.name, func(t *testing.T) {
			edges := BuildEdgeMap(gray, tt.passes)

			if edges.Bounds() != gray.Bounds() {
				t.Fatalf("bounds: got %v, want %v", edges.Bounds(), gray.Bounds())
			}
			if n := CountEdges(edges, image.Rect(18, 23, 23, 57)); n == 0 {
				t.Error("expected edges along the left border of the rectangle")
			}
			if n := CountEdges(edges, image.Rect(40, 35, 60, 45)); n != 0 {
				t.Errorf("interior: got %d edge pixels, want 0", n)
			}
			if n := CountEdges(edges, image.Rect(0, 0, 10, 10)); n != 0 {
				t.Errorf("background corner: got %d edge pixels, want 0", n)
			}
		})
	}
}

func TestBuildEdgeMapRebasesOrigin(t *testing.T) {
	gray := createRectangleGray(60, 60, image.Rect(10, 10, 50, 30))
	sub := gray.SubImage(image.Rect(5, 5, 55, 55)).(*image.Gray)

	edges := BuildEdgeMap(sub, StrictEdgePasses)
	if edges.Bounds() != image.Rect(0, 0, 50, 50) {
		t.Errorf("bounds: got %v, want (0,0)-(50,50)", edges.Bounds())
	}
}

func TestDilate(t *testing.T) {
	bin := createRectangleGray(9, 9, image.Rect(4, 4, 5, 5))

	out := Dilate(bin, 1)
	if n := CountEdges(out, out.Bounds()); n != 9 {
		t.Errorf("dilated pixel: got %d set pixels, want 9", n)
	}
	if n := CountEdges(out, image.Rect(3, 3, 6, 6)); n != 9 {
		t.Errorf("dilated block should be centred on the pixel, got %d inside", n)
	}
}

func TestErode(t *testing.T) {
	bin := createRectangleGray(9, 9, image.Rect(2, 2, 7, 7))

	out := Erode(bin, 1)
	if n := CountEdges(out, out.Bounds()); n != 9 {
		t.Errorf("eroded block: got %d set pixels, want 9", n)
	}
}

func TestCloseBridgesGap(t *testing.T) {
	// Horizontal line with a one pixel gap at x=10
	bin := createRectangleGray(21, 5, image.Rect(2, 2, 10, 3))
	for x := 11; x < 19; x++ {
		bin.Pix[2*bin.Stride+x] = 255
	}

	out := Close(bin, 1)
	if out.GrayAt(10, 2).Y != 255 {
		t.Error("closing should fill the one pixel gap")
	}
}

func TestAdaptiveThresholdUniform(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 16, 16))
	for i := range gray.Pix {
		gray.Pix[i] = 90
	}

	out := AdaptiveThreshold(gray, adaptiveRadius, adaptiveOffset)
	if n := CountEdges(out, out.Bounds()); n != 16*16 {
		t.Errorf("uniform image: got %d set pixels, want %d", n, 16*16)
	}
}

func TestAdaptiveThresholdDarkSideOfStep(t *testing.T) {
	out := AdaptiveThreshold(createStepImage(30, 10), adaptiveRadius, adaptiveOffset)

	// Just left of the step the local mean is pulled up by the bright side
	if out.GrayAt(14, 5).Y != 0 {
		t.Error("dark pixel next to the step should be below the local mean")
	}
	if out.GrayAt(20, 5).Y != 255 {
		t.Error("bright pixel should be above the local mean")
	}
}

func TestSmoothingString(t *testing.T) {
	if SmoothMedian.String() != "median" || SmoothAdaptiveThreshold.String() != "adaptive" {
		t.Error("unexpected smoothing names")
	}
	if Smoothing(42).String() != "unknown" {
		t.Error("unknown smoothing should print unknown")
	}
}

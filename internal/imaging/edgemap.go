package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
)

// Smoothing selects the preprocessing applied before a Canny pass.
type Smoothing int

const (
	// SmoothMedian suppresses noise while keeping edges sharp.
	SmoothMedian Smoothing = iota

	// SmoothGaussian applies a 5x5 gaussian blur.
	SmoothGaussian

	// SmoothAdaptiveThreshold binarizes against a local gaussian mean,
	// which survives uneven lighting across a scene.
	SmoothAdaptiveThreshold
)

// String returns the pass name used in logs.
func (s Smoothing) String() string {
	switch s {
	case SmoothMedian:
		return "median"
	case SmoothGaussian:
		return "gaussian"
	case SmoothAdaptiveThreshold:
		return "adaptive"
	default:
		return "unknown"
	}
}

// EdgePass is one smoothing + Canny pass of an edge map.
type EdgePass struct {
	Smoothing Smoothing
	Low       float64
	High      float64
}

const (
	medianRadius   = 2   // 5x5 window
	gaussianRadius = 2   // 5x5 kernel
	adaptiveRadius = 5   // 11x11 neighbourhood
	adaptiveOffset = 2.0 // subtracted from the local mean
	closingRadius  = 1   // 3x3 structuring element
)

// StrictEdgePasses build whole-image edge maps.
var StrictEdgePasses = []EdgePass{
	{Smoothing: SmoothMedian, Low: 50, High: 150},
	{Smoothing: SmoothAdaptiveThreshold, Low: 30, High: 100},
}

// LenientEdgePasses build edge maps for vehicle crops, where plates are
// smaller and lower contrast.
var LenientEdgePasses = []EdgePass{
	{Smoothing: SmoothMedian, Low: 30, High: 150},
	{Smoothing: SmoothGaussian, Low: 20, High: 100},
	{Smoothing: SmoothAdaptiveThreshold, Low: 30, High: 100},
}

// BuildEdgeMap combines several edge passes into one binary map.
//
// Each pass smooths gray its own way and runs Canny; the results are OR'ed
// together. The union is dilated once and then closed (dilate followed by
// erode), both with a 3x3 square, which bridges the small gaps Canny leaves
// in plate borders so contour extraction sees closed outlines.
//
// Returns a zero-origin binary image: 255 for edges, 0 elsewhere.
func BuildEdgeMap(gray *image.Gray, passes []EdgePass) *image.Gray {
	gray = rebaseGray(gray)
	union := image.NewGray(gray.Bounds())

	for _, p := range passes {
		edges := Canny(smooth(gray, p.Smoothing), p.Low, p.High)
		for i, v := range edges.Pix {
			if v != 0 {
				union.Pix[i] = 255
			}
		}
	}

	return Close(Dilate(union, closingRadius), closingRadius)
}

// AdaptiveThreshold binarizes gray against a gaussian weighted local mean.
// A pixel becomes 255 when it is brighter than the mean of its neighbourhood
// minus offset, 0 otherwise.
func AdaptiveThreshold(gray *image.Gray, radius, offset float64) *image.Gray {
	gray = rebaseGray(gray)
	mean := blur.Gaussian(gray, radius)

	out := image.NewGray(gray.Bounds())
	for y := 0; y < gray.Rect.Dy(); y++ {
		for x := 0; x < gray.Rect.Dx(); x++ {
			v := float64(gray.Pix[y*gray.Stride+x])
			m := float64(mean.Pix[y*mean.Stride+x*4])
			if v > m-offset {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out
}

// Dilate grows set pixels of a binary image by a square of side 2*radius+1.
func Dilate(bin *image.Gray, radius float64) *image.Gray {
	return grayFromRGBA(effect.Dilate(rebaseGray(bin), radius))
}

// Erode shrinks set pixels of a binary image by a square of side 2*radius+1.
func Erode(bin *image.Gray, radius float64) *image.Gray {
	return grayFromRGBA(effect.Erode(rebaseGray(bin), radius))
}

// Close performs a morphological closing: dilation followed by erosion.
func Close(bin *image.Gray, radius float64) *image.Gray {
	return Erode(Dilate(bin, radius), radius)
}

// Smooth applies one smoothing step to gray and returns a zero-origin result.
func Smooth(gray *image.Gray, s Smoothing) *image.Gray {
	return smooth(rebaseGray(gray), s)
}

func smooth(gray *image.Gray, s Smoothing) *image.Gray {
	switch s {
	case SmoothMedian:
		return grayFromRGBA(effect.Median(gray, medianRadius))
	case SmoothGaussian:
		return grayFromRGBA(blur.Gaussian(gray, gaussianRadius))
	case SmoothAdaptiveThreshold:
		return AdaptiveThreshold(gray, adaptiveRadius, adaptiveOffset)
	default:
		return gray
	}
}

// grayFromRGBA keeps the red channel of a bild result. bild filters always
// return RGBA; for grayscale input all three channels are equal.
func grayFromRGBA(src *image.RGBA) *image.Gray {
	b := src.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			out.Pix[y*out.Stride+x] = src.Pix[y*src.Stride+x*4]
		}
	}
	return out
}

// rebaseGray returns gray unchanged when it already has a zero origin and a
// compact copy otherwise. bild filters index pixels from zero.
func rebaseGray(gray *image.Gray) *image.Gray {
	if gray.Rect.Min == (image.Point{}) {
		return gray
	}
	b := gray.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		copy(out.Pix[y*out.Stride:y*out.Stride+b.Dx()], gray.Pix[gray.PixOffset(b.Min.X, b.Min.Y+y):])
	}
	return out
}

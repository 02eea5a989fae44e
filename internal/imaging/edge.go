package imaging

import (
	"image"
	"math"
)

// ToGray converts an image to 8-bit luminance with a zero origin.
//
// Uses ITU-R BT.601 weights (0.299*R + 0.587*G + 0.114*B), rounded to the
// nearest integer.
func ToGray(img image.Image) *image.Gray {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	gray := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			lum := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
			gray.Pix[y*gray.Stride+x] = uint8(math.Round(lum))
		}
	}
	return gray
}

// Canny runs Canny edge detection over an already smoothed grayscale image.
//
// Unlike a textbook Canny pass no blur is applied here; callers choose their
// own smoothing (median, gaussian, adaptive threshold) before calling it.
//
// Parameters:
//   - gray: Source luminance image. Any origin is accepted.
//   - thresholdLow: Gradient magnitude below which pixels are never edges.
//   - thresholdHigh: Gradient magnitude at or above which pixels are strong
//     edges. Weak pixels between the two thresholds survive only when they
//     connect to a strong edge through other edge pixels.
//
// Returns a zero-origin binary image: 255 for edges, 0 elsewhere.
//
// # Algorithm
//
//  1. Sobel gradients on a 3x3 window with replicated borders. Magnitude is
//     the L1 norm |Gx| + |Gy| on the 0-255 scale.
//  2. Non-maximum suppression along the quantized gradient direction
//     (0°, 45°, 90°, 135°). The one pixel frame is never an edge.
//  3. Hysteresis: strong pixels seed an 8-connected walk that promotes
//     every reachable weak pixel.
func Canny(gray *image.Gray, thresholdLow, thresholdHigh float64) *image.Gray {
	bounds := gray.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	result := image.NewGray(image.Rect(0, 0, width, height))
	if width < 3 || height < 3 {
		return result
	}

	base := gray.PixOffset(bounds.Min.X, bounds.Min.Y)
	at := func(x, y int) float64 {
		x = clamp(x, 0, width-1)
		y = clamp(y, 0, height-1)
		return float64(gray.Pix[base+y*gray.Stride+x])
	}

	// Compute gradients using Sobel operator
	magnitude := make([]float64, width*height)
	direction := make([]float64, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			gx := -at(x-1, y-1) + at(x+1, y-1) +
				-2*at(x-1, y) + 2*at(x+1, y) +
				-at(x-1, y+1) + at(x+1, y+1)
			gy := -at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1) +
				at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)
			i := y*width + x
			magnitude[i] = math.Abs(gx) + math.Abs(gy)
			direction[i] = math.Atan2(gy, gx)
		}
	}

	// Non-maximum suppression
	suppressed := make([]float64, width*height)
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			i := y*width + x
			mag := magnitude[i]
			if mag < thresholdLow {
				continue
			}

			angle := direction[i]
			var n1, n2 float64
			switch {
			case (angle >= -math.Pi/8 && angle < math.Pi/8) || angle >= 7*math.Pi/8 || angle < -7*math.Pi/8:
				n1 = magnitude[i-1]
				n2 = magnitude[i+1]
			case (angle >= math.Pi/8 && angle < 3*math.Pi/8) || (angle >= -7*math.Pi/8 && angle < -5*math.Pi/8):
				n1 = magnitude[i-width-1]
				n2 = magnitude[i+width+1]
			case (angle >= 3*math.Pi/8 && angle < 5*math.Pi/8) || (angle >= -5*math.Pi/8 && angle < -3*math.Pi/8):
				n1 = magnitude[i-width]
				n2 = magnitude[i+width]
			default:
				n1 = magnitude[i-width+1]
				n2 = magnitude[i+width-1]
			}

			if mag >= n1 && mag >= n2 {
				suppressed[i] = mag
			}
		}
	}

	// Double threshold and edge tracking by hysteresis
	stack := make([]int, 0, 64)
	for i, v := range suppressed {
		if v > 0 && v >= thresholdHigh {
			result.Pix[i/width*result.Stride+i%width] = 255
			stack = append(stack, i)
		}
	}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%width, i/width
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := x+dx, y+dy
				if nx < 0 || ny < 0 || nx >= width || ny >= height {
					continue
				}
				j := ny*width + nx
				if suppressed[j] == 0 || suppressed[j] < thresholdLow || result.Pix[ny*result.Stride+nx] != 0 {
					continue
				}
				result.Pix[ny*result.Stride+nx] = 255
				stack = append(stack, j)
			}
		}
	}

	return result
}

// CountEdges returns the number of non-zero pixels of a binary edge image
// inside r, clipped to the image.
func CountEdges(edges *image.Gray, r image.Rectangle) int {
	r = r.Intersect(edges.Bounds())
	count := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := edges.Pix[edges.PixOffset(r.Min.X, y):edges.PixOffset(r.Max.X, y)]
		for _, v := range row {
			if v != 0 {
				count++
			}
		}
	}
	return count
}

// RowSums returns the per-row sum of pixel values of a grayscale image,
// the horizontal projection used to tell text-like texture from uniform
// strips.
func RowSums(gray *image.Gray) []float64 {
	bounds := gray.Bounds()
	sums := make([]float64, bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		var sum float64
		row := gray.Pix[gray.PixOffset(bounds.Min.X, y):gray.PixOffset(bounds.Max.X, y)]
		for _, v := range row {
			sum += float64(v)
		}
		sums[y-bounds.Min.Y] = sum
	}
	return sums
}

// clamp constrains an integer value to the range [min, max].
// Used for boundary handling in convolution operations.
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

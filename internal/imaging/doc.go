// Package imaging provides the pixel-level building blocks of the anonymizer.
//
// This package covers everything that touches raw pixels but carries no
// detection policy: upload validation and decoding, preprocessing, grayscale
// conversion, Canny edge detection, multi-pass edge maps with morphological
// closing, cropping, colour parsing and PNG/base64 encoding.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For regions, (x1,y1) is inclusive (top-left), (x2,y2) is exclusive (bottom-right)
//
// Every image this package returns has a zero origin, whatever the origin of
// its input. Callers that crop a region and search it are responsible for
// offsetting results back into the source image's space.
//
// # Edge Maps
//
// BuildEdgeMap runs several smoothing + Canny passes and unions them:
//
//   - Median smoothing keeps strong borders while removing sensor noise
//   - Gaussian smoothing recovers softer, low-contrast borders
//   - Adaptive thresholding against a local mean survives uneven lighting
//
// The union is dilated and closed with a 3x3 square so plate outlines become
// closed contours. StrictEdgePasses and LenientEdgePasses are the two pass
// sets used for whole-image and vehicle-scoped search.
//
// Smoothing and morphology are delegated to bild (github.com/anthonynsimon/bild);
// Canny itself is implemented here because bild only offers Sobel magnitude.
//
// # Error Handling
//
// Upload problems are reported as ErrInvalidInput, or ErrTooLarge for size
// violations, always wrapped with a human-readable detail. Use errors.Is to
// classify them.
//
// # Thread Safety
//
// All functions are stateless and safe for concurrent use. Inputs are never
// modified.
package imaging

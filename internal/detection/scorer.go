package detection

import (
	"fmt"
	"image"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/photo-anonymizer/internal/imaging"
)

// SearchMode holds every band and constant of one plate search flavour.
//
// Bands are inclusive at both ends. Zero values disable the optional checks
// (MinHorizontalVariance, TopBandFraction).
type SearchMode struct {
	// Name is used in logs ("strict" or "lenient").
	Name string

	MinAspect, MaxAspect             float64
	MinRelativeSize, MaxRelativeSize float64
	MinWidth, MinHeight              int

	// MaxSizeFraction caps width and height as a fraction of the region.
	MaxSizeFraction float64

	// MinExtent is the minimum bbox area / contour area ratio. A contour
	// with zero area gets DefaultExtent instead and skips this check.
	MinExtent float64

	MinEdgeDensity, MaxEdgeDensity float64

	// MinHorizontalVariance rejects candidates whose per-row edge sums
	// vary less than this. Zero disables the check.
	MinHorizontalVariance float64

	// TopBandFraction rejects candidates whose top edge lies in the top
	// fraction of the region. Zero disables the check.
	TopBandFraction float64

	// Candidates with an aspect ratio in [BonusMinAspect, BonusMaxAspect]
	// have their score multiplied by AspectBonus.
	BonusMinAspect, BonusMaxAspect float64
	AspectBonus                    float64

	// Confidence = min(MaxConfidence, ConfidenceBase + score/ConfidenceDivisor).
	ConfidenceBase    float64
	ConfidenceDivisor float64
	MaxConfidence     float64

	// RoiCannyLow and RoiCannyHigh are the thresholds of the per-candidate
	// Canny pass used for edge density and horizontal projection.
	RoiCannyLow, RoiCannyHigh float64

	// RoiMedian takes candidate ROIs from the median-smoothed region
	// instead of the raw grayscale.
	RoiMedian bool

	// EdgePasses build the region's edge map.
	EdgePasses []imaging.EdgePass

	// MaxContours is how many of the largest contours are scored.
	MaxContours int

	// MaxResults is how many accepted candidates a region may yield.
	MaxResults int
}

// DefaultExtent is used when a contour encloses no area.
const DefaultExtent = 0.8

// StrictMode is used when searching a whole image.
var StrictMode = SearchMode{
	Name:                  "strict",
	MinAspect:             1.8,
	MaxAspect:             6.0,
	MinRelativeSize:       0.003,
	MaxRelativeSize:       0.12,
	MinWidth:              50,
	MinHeight:             18,
	MaxSizeFraction:       0.5,
	MinExtent:             0.65,
	MinEdgeDensity:        0.03,
	MaxEdgeDensity:        0.35,
	MinHorizontalVariance: 50,
	BonusMinAspect:        2.0,
	BonusMaxAspect:        5.0,
	AspectBonus:           1.5,
	ConfidenceBase:        0.7,
	ConfidenceDivisor:     10,
	MaxConfidence:         0.95,
	RoiCannyLow:           30,
	RoiCannyHigh:          150,
	RoiMedian:             true,
	EdgePasses:            imaging.StrictEdgePasses,
	MaxContours:           20,
	MaxResults:            5,
}

// LenientMode is used inside vehicle crops, where a plate is a larger share
// of the region and may be lit poorly.
var LenientMode = SearchMode{
	Name:              "lenient",
	MinAspect:         1.3,
	MaxAspect:         8.0,
	MinRelativeSize:   0.005,
	MaxRelativeSize:   0.40,
	MinWidth:          25,
	MinHeight:         10,
	MaxSizeFraction:   0.6,
	MinExtent:         0.40,
	MinEdgeDensity:    0.02,
	MaxEdgeDensity:    0.50,
	TopBandFraction:   0.15,
	BonusMinAspect:    1.8,
	BonusMaxAspect:    6.0,
	AspectBonus:       2.0,
	ConfidenceBase:    0.80,
	ConfidenceDivisor: 20,
	MaxConfidence:     0.95,
	RoiCannyLow:       20,
	RoiCannyHigh:      150,
	EdgePasses:        imaging.LenientEdgePasses,
	MaxContours:       20,
	MaxResults:        5,
}

// Candidate is a contour bounding box that passed every check of a
// SearchMode, with the features it was scored on. Coordinates are local to
// the searched region.
type Candidate struct {
	X, Y, Width, Height int

	AspectRatio        float64
	RelativeSize       float64
	Extent             float64
	EdgeDensity        float64
	HorizontalVariance float64

	Score      float64
	Confidence float64
}

// BBox returns the candidate's bounding box.
func (c Candidate) BBox() BoundingBox {
	return BoundingBox{X: c.X, Y: c.Y, Width: c.Width, Height: c.Height}
}

// Rejection explains why a candidate failed a SearchMode.
type Rejection struct {
	Check string
	Value float64
}

func (r *Rejection) String() string {
	return fmt.Sprintf("%s=%.4f", r.Check, r.Value)
}

// Evaluate runs one candidate rectangle through every check of the mode.
//
// Parameters:
//   - rect: Candidate bounding box, local to the region.
//   - contourArea: Area enclosed by the candidate's outer contour.
//   - roiSource: Grayscale image of the whole region. The candidate's ROI is
//     cut from it for the per-candidate Canny pass.
//
// Returns the scored candidate, or a non-nil Rejection naming the first
// check that failed. Checks run in a fixed order: aspect ratio, relative
// size, minimum size, maximum size, top band, extent, edge density,
// horizontal variance.
func (m *SearchMode) Evaluate(rect image.Rectangle, contourArea float64, roiSource *image.Gray) (Candidate, *Rejection) {
	region := roiSource.Bounds()
	rw, rh := region.Dx(), region.Dy()
	x, y := rect.Min.X-region.Min.X, rect.Min.Y-region.Min.Y
	w, h := rect.Dx(), rect.Dy()

	if w <= 0 || h <= 0 || rw <= 0 || rh <= 0 {
		return Candidate{}, &Rejection{Check: "empty", Value: 0}
	}

	aspect := float64(w) / float64(h)
	if aspect < m.MinAspect || aspect > m.MaxAspect {
		return Candidate{}, &Rejection{Check: "aspect_ratio", Value: aspect}
	}

	relSize := float64(w*h) / float64(rw*rh)
	if relSize < m.MinRelativeSize || relSize > m.MaxRelativeSize {
		return Candidate{}, &Rejection{Check: "relative_size", Value: relSize}
	}

	if w < m.MinWidth || h < m.MinHeight {
		return Candidate{}, &Rejection{Check: "min_size", Value: float64(w * h)}
	}

	if float64(w) > float64(rw)*m.MaxSizeFraction || float64(h) > float64(rh)*m.MaxSizeFraction {
		return Candidate{}, &Rejection{Check: "max_size", Value: float64(w * h)}
	}

	if m.TopBandFraction > 0 && float64(y) < float64(rh)*m.TopBandFraction {
		return Candidate{}, &Rejection{Check: "top_band", Value: float64(y)}
	}

	extent := DefaultExtent
	if contourArea > 0 {
		extent = float64(w*h) / contourArea
		if extent < m.MinExtent {
			return Candidate{}, &Rejection{Check: "extent", Value: extent}
		}
	}

	roi := imaging.CropGray(roiSource, rect)
	roiEdges := imaging.Canny(roi, m.RoiCannyLow, m.RoiCannyHigh)
	density := float64(imaging.CountEdges(roiEdges, roiEdges.Bounds())) / float64(w*h)
	if density < m.MinEdgeDensity || density > m.MaxEdgeDensity {
		return Candidate{}, &Rejection{Check: "edge_density", Value: density}
	}

	variance := stat.PopVariance(imaging.RowSums(roiEdges), nil)
	if m.MinHorizontalVariance > 0 && variance < m.MinHorizontalVariance {
		return Candidate{}, &Rejection{Check: "horizontal_variance", Value: variance}
	}

	bonus := 1.0
	if aspect >= m.BonusMinAspect && aspect <= m.BonusMaxAspect {
		bonus = m.AspectBonus
	}
	score := aspect * density * extent * bonus

	return Candidate{
		X:                  x,
		Y:                  y,
		Width:              w,
		Height:             h,
		AspectRatio:        aspect,
		RelativeSize:       relSize,
		Extent:             extent,
		EdgeDensity:        density,
		HorizontalVariance: variance,
		Score:              score,
		Confidence:         m.Confidence(score),
	}, nil
}

// Confidence maps a candidate score to the confidence reported for it.
func (m *SearchMode) Confidence(score float64) float64 {
	return math.Min(m.MaxConfidence, m.ConfidenceBase+score/m.ConfidenceDivisor)
}

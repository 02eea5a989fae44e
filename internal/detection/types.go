package detection

import (
	"errors"
	"fmt"
	"image"
)

// ErrMalformedBox marks a single raw box or contour that cannot be turned
// into a Detection. It is logged and skipped, never returned from a search.
var ErrMalformedBox = errors.New("malformed box")

// Label identifies what a Detection covers.
type Label string

const (
	LabelFace  Label = "face"
	LabelPlate Label = "plate"
)

// BoundingBox is an axis-aligned rectangle in pixel coordinates with a
// top-left origin. Width and Height are positive for every box that leaves
// this package.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rect converts the box to an image.Rectangle covering [X, X+Width) × [Y, Y+Height).
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

// Right returns the x coordinate of the right edge (exclusive).
func (b BoundingBox) Right() int {
	return b.X + b.Width
}

// Offset translates the box by (dx, dy).
func (b BoundingBox) Offset(dx, dy int) BoundingBox {
	b.X += dx
	b.Y += dy
	return b
}

// Detection is one sensitive region ready to be anonymized.
type Detection struct {
	// ID is unique within one final list and runs 1..N in list order.
	ID int `json:"id"`

	BBox BoundingBox `json:"bbox"`

	// Confidence is in [0, 1].
	Confidence float64 `json:"confidence"`

	Label Label `json:"label"`
}

// Source tells the plate cascade which kind of model produced a RawOutput.
type Source int

const (
	// SourceGeneric is a general object detector (COCO classes). Its boxes
	// need shape filtering and may fall back to vehicle-scoped search.
	SourceGeneric Source = iota

	// SourceTrusted is a dedicated plate or face model whose labels are
	// authoritative.
	SourceTrusted
)

// String returns the source name used in logs.
func (s Source) String() string {
	switch s {
	case SourceTrusted:
		return "trusted"
	case SourceGeneric:
		return "generic"
	default:
		return fmt.Sprintf("Source(%d)", int(s))
	}
}

// RawBox is one box as reported by a detector, in image pixel coordinates.
type RawBox struct {
	X1, Y1, X2, Y2 float64
	Score          float64
	ClassID        int
	Label          string
}

// Width returns X2 - X1.
func (r RawBox) Width() float64 { return r.X2 - r.X1 }

// Height returns Y2 - Y1.
func (r RawBox) Height() float64 { return r.Y2 - r.Y1 }

// RawOutput is everything a detector returned for one image.
type RawOutput struct {
	Source Source
	Boxes  []RawBox
}

// COCO class ids of the vehicles searched in two-stage mode.
const (
	ClassCar        = 2
	ClassMotorcycle = 3
	ClassBus        = 5
	ClassTruck      = 7
)

// VehicleRegion is the clamped pixel rectangle of one detected vehicle.
type VehicleRegion struct {
	X1, Y1, X2, Y2 int
}

// Rect converts the region to an image.Rectangle.
func (v VehicleRegion) Rect() image.Rectangle {
	return image.Rect(v.X1, v.Y1, v.X2, v.Y2)
}

// renumber assigns ids 1..N in list order.
func renumber(dets []Detection) []Detection {
	for i := range dets {
		dets[i].ID = i + 1
	}
	return dets
}

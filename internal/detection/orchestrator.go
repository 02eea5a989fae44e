package detection

import (
	"context"
	"fmt"
	"image"
	"math"

	log "github.com/sirupsen/logrus"
)

// State is a step of the plate detection cascade.
type State int

const (
	// StateTrustedModel accepts every sufficiently confident box of a
	// dedicated plate model as-is.
	StateTrustedModel State = iota

	// StateGenericFilter shape-filters a generic detector's boxes and
	// expands the survivors leftward.
	StateGenericFilter

	// StateTwoStageFallback searches inside detected vehicles.
	StateTwoStageFallback

	// StateContourFallback searches the whole image with StrictMode. Only
	// reached when Options.WholeImageFallback is set.
	StateContourFallback

	// StateDone is terminal.
	StateDone
)

func (s State) String() string {
	switch s {
	case StateTrustedModel:
		return "TRUSTED_MODEL"
	case StateGenericFilter:
		return "GENERIC_FILTER"
	case StateTwoStageFallback:
		return "TWO_STAGE_FALLBACK"
	case StateContourFallback:
		return "CONTOUR_FALLBACK"
	case StateDone:
		return "DONE"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Shape limits applied to generic detector boxes.
const (
	genericMinWidth  = 10
	genericMinHeight = 5
	genericMinAspect = 1.0
	genericMaxAspect = 10.0
)

// PlateVerifier gives a second opinion on heuristic plate candidates, for
// example by reading text inside the box.
type PlateVerifier interface {
	VerifyPlate(ctx context.Context, img image.Image, box BoundingBox) (bool, error)
}

// Options configure an Orchestrator.
type Options struct {
	// Threshold is the minimum model score for trusted and generic boxes.
	Threshold float64

	// WholeImageFallback enables StateContourFallback after an empty
	// two-stage search.
	WholeImageFallback bool

	// VehicleParallelism bounds concurrent vehicle searches.
	VehicleParallelism int

	// Verifier, when set, filters candidates found by the heuristic
	// states. Model boxes are never verified.
	Verifier PlateVerifier
}

// Result is the outcome of one cascade run.
type Result struct {
	// Plates are numbered 1..N.
	Plates []Detection

	// Trace lists the states visited, ending with StateDone.
	Trace []State
}

// Orchestrator turns one raw plate-model output into final plate detections.
//
// It is a small state machine:
//
//	TRUSTED_MODEL ───────────────────────────────────────────────► DONE
//	GENERIC_FILTER ──(accepted boxes)────────────────────────────► DONE
//	GENERIC_FILTER ──(none)──► TWO_STAGE_FALLBACK ───────────────► DONE
//	                           TWO_STAGE_FALLBACK ──(none, opt)──► CONTOUR_FALLBACK ──► DONE
//
// The entry state is chosen by RawOutput.Source. Every transition moves
// forward, so a run visits at most four states.
//
// An Orchestrator holds no per-run state and is safe for concurrent use.
type Orchestrator struct {
	opts Options
}

// NewOrchestrator creates an Orchestrator with the given options.
func NewOrchestrator(opts Options) *Orchestrator {
	return &Orchestrator{opts: opts}
}

// Run executes the cascade over raw, the output of the plate model for img.
//
// Malformed boxes are logged and skipped. The only error returned is a
// context error; in that case no detections are returned.
func (o *Orchestrator) Run(ctx context.Context, img image.Image, raw RawOutput) (*Result, error) {
	state := StateGenericFilter
	if raw.Source == SourceTrusted {
		state = StateTrustedModel
	}

	var (
		plates []Detection
		trace  []State
		err    error
	)

	for state != StateDone {
		trace = append(trace, state)
		log.WithFields(log.Fields{"state": state, "source": raw.Source}).Debug("Plate cascade step")

		switch state {
		case StateTrustedModel:
			plates, err = o.acceptTrusted(ctx, raw, img.Bounds())
			state = StateDone

		case StateGenericFilter:
			plates, err = o.filterGeneric(ctx, raw, img.Bounds())
			if err == nil && len(plates) == 0 {
				state = StateTwoStageFallback
			} else {
				state = StateDone
			}

		case StateTwoStageFallback:
			vehicles := VehicleRegions(raw, img.Bounds())
			log.WithField("vehicles", len(vehicles)).Info("No plates from model, searching inside vehicles")
			plates, err = SearchVehicles(ctx, img, vehicles, &LenientMode, o.opts.VehicleParallelism)
			if err == nil {
				plates, err = o.verify(ctx, img, plates)
			}
			if err == nil && len(plates) == 0 && o.opts.WholeImageFallback {
				state = StateContourFallback
			} else {
				state = StateDone
			}

		case StateContourFallback:
			log.Info("No plates inside vehicles, searching whole image")
			plates, err = SearchRegion(ctx, img, &StrictMode)
			if err == nil {
				plates, err = o.verify(ctx, img, plates)
			}
			state = StateDone

		default:
			return nil, fmt.Errorf("plate cascade reached unknown state %v", state)
		}

		if err != nil {
			return nil, err
		}
	}

	if plates == nil {
		plates = []Detection{}
	}
	return &Result{
		Plates: renumber(plates),
		Trace:  append(trace, StateDone),
	}, nil
}

// acceptTrusted keeps every box at or above the threshold without shape
// checks or expansion. Boxes are clipped to the image.
func (o *Orchestrator) acceptTrusted(ctx context.Context, raw RawOutput, bounds image.Rectangle) ([]Detection, error) {
	plates := make([]Detection, 0, len(raw.Boxes))
	for i, box := range raw.Boxes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if box.Score < o.opts.Threshold {
			continue
		}
		bbox, err := boxFromRaw(box, bounds)
		if err != nil {
			log.WithField("box", i).Warnf("Skipping trusted box: %v", err)
			continue
		}
		plates = append(plates, Detection{
			BBox:       bbox,
			Confidence: box.Score,
			Label:      LabelPlate,
		})
	}
	return plates, nil
}

// filterGeneric keeps plate-shaped boxes from a generic detector and expands
// each one leftward. The class of the box is not considered.
func (o *Orchestrator) filterGeneric(ctx context.Context, raw RawOutput, bounds image.Rectangle) ([]Detection, error) {
	plates := make([]Detection, 0)
	for i, box := range raw.Boxes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if box.Score < o.opts.Threshold {
			continue
		}
		logger := log.WithFields(log.Fields{"box": i, "score": box.Score})

		bbox, err := boxFromRaw(box, bounds)
		if err != nil {
			logger.Warnf("Skipping generic box: %v", err)
			continue
		}
		aspect := float64(bbox.Width) / float64(bbox.Height)
		if bbox.Width < genericMinWidth || bbox.Height < genericMinHeight {
			logger.Debugf("Skipped: too small %dx%d", bbox.Width, bbox.Height)
			continue
		}
		if aspect < genericMinAspect || aspect > genericMaxAspect {
			logger.Debugf("Skipped: aspect ratio %.2f", aspect)
			continue
		}

		expanded, ok := ExpandLeft(bbox)
		if !ok {
			logger.Warnf("Skipped: invalid expanded box %+v", expanded)
			continue
		}
		plates = append(plates, Detection{
			BBox:       expanded,
			Confidence: box.Score,
			Label:      LabelPlate,
		})
	}
	return plates, nil
}

// verify drops candidates the verifier rejects. Verifier errors keep the
// candidate.
func (o *Orchestrator) verify(ctx context.Context, img image.Image, plates []Detection) ([]Detection, error) {
	if o.opts.Verifier == nil || len(plates) == 0 {
		return plates, nil
	}
	kept := make([]Detection, 0, len(plates))
	for _, p := range plates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ok, err := o.opts.Verifier.VerifyPlate(ctx, img, p.BBox)
		if err != nil {
			log.WithField("bbox", p.BBox).Debugf("Plate verification unavailable, keeping candidate: %v", err)
			kept = append(kept, p)
			continue
		}
		if !ok {
			log.WithField("bbox", p.BBox).Debug("Plate verification rejected candidate")
			continue
		}
		kept = append(kept, p)
	}
	return kept, nil
}

// boxFromRaw converts corner coordinates into a BoundingBox inside bounds.
//
// Corners are reordered if swapped, truncated to integers and clamped to
// bounds; width and height are taken between the clamped corners. A box left
// with no area is an ErrMalformedBox.
func boxFromRaw(r RawBox, bounds image.Rectangle) (BoundingBox, error) {
	if !finite(r.X1, r.Y1, r.X2, r.Y2) {
		return BoundingBox{}, fmt.Errorf("%w: non-finite coordinate in %+v", ErrMalformedBox, r)
	}
	x1, x2 := int(math.Min(r.X1, r.X2)), int(math.Max(r.X1, r.X2))
	y1, y2 := int(math.Min(r.Y1, r.Y2)), int(math.Max(r.Y1, r.Y2))

	x1, x2 = max(x1, bounds.Min.X), min(x2, bounds.Max.X)
	y1, y2 = max(y1, bounds.Min.Y), min(y2, bounds.Max.Y)

	w, h := x2-x1, y2-y1
	if w <= 0 || h <= 0 {
		return BoundingBox{}, fmt.Errorf("%w: non-positive size %dx%d", ErrMalformedBox, w, h)
	}
	return BoundingBox{X: x1, Y: y1, Width: w, Height: h}, nil
}

// ExpandLeft doubles the width of b by extending it leftward from its fixed
// right edge. The left edge is clamped at 0 and the vertical extent is
// unchanged.
//
// The second result is false when the expanded box has a non-positive
// width or height; such boxes must be discarded.
func ExpandLeft(b BoundingBox) (BoundingBox, bool) {
	right := b.Right()
	x := max(0, right-2*b.Width)
	out := BoundingBox{X: x, Y: b.Y, Width: right - x, Height: b.Height}
	return out, out.Width > 0 && out.Height > 0
}

package detection

import (
	"context"
	"image"
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/ironsheep/photo-anonymizer/internal/imaging"
)

// SearchRegion looks for plate-shaped contours in one image region.
//
// This is the heuristic plate finder used when no model box is usable. It
// needs no model: only edges, contours and the shape bands of mode.
//
// Parameters:
//   - ctx: Checked between contours; cancellation discards all results.
//   - img: The region to search (a whole image or a vehicle crop).
//   - mode: StrictMode for whole images, LenientMode for vehicle crops.
//
// Returns:
//   - []Detection: At most mode.MaxResults plates, best score first,
//     numbered 1..N, in coordinates local to img's top-left corner.
//   - error: Only ctx.Err() when the search was cancelled.
//
// # Algorithm
//
//  1. Grayscale conversion
//  2. Edge map: union of mode.EdgePasses, dilated and closed
//  3. External contours, the mode.MaxContours largest by enclosed area
//  4. Each contour's bounding box is evaluated by mode (see Evaluate)
//  5. Survivors are ranked by score, descending; ties keep contour order
func SearchRegion(ctx context.Context, img image.Image, mode *SearchMode) ([]Detection, error) {
	b := img.Bounds()
	if b.Empty() {
		return []Detection{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	gray := imaging.ToGray(img)
	edges := imaging.BuildEdgeMap(gray, mode.EdgePasses)
	contours := largestContours(findExternalContours(edges), mode.MaxContours)

	roiSource := gray
	if mode.RoiMedian {
		roiSource = imaging.Smooth(gray, imaging.SmoothMedian)
	}

	logger := log.WithFields(log.Fields{"mode": mode.Name, "region": b.Size().String()})
	logger.WithField("contours", len(contours)).Debug("Scoring contours")

	candidates := make([]Candidate, 0, len(contours))
	for i, c := range contours {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cand, rej := mode.Evaluate(c.bounds, c.area, roiSource)
		if rej != nil {
			logger.WithFields(log.Fields{
				"contour": i,
				"bbox":    c.bounds.String(),
			}).Debugf("Rejected: %s", rej)
			continue
		}
		logger.WithFields(log.Fields{
			"bbox":         c.bounds.String(),
			"aspect":       cand.AspectRatio,
			"edge_density": cand.EdgeDensity,
			"extent":       cand.Extent,
			"score":        cand.Score,
		}).Debug("Candidate accepted")
		candidates = append(candidates, cand)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > mode.MaxResults {
		candidates = candidates[:mode.MaxResults]
	}

	dets := make([]Detection, 0, len(candidates))
	for _, c := range candidates {
		dets = append(dets, Detection{
			BBox:       c.BBox(),
			Confidence: c.Confidence,
			Label:      LabelPlate,
		})
	}
	return renumber(dets), nil
}

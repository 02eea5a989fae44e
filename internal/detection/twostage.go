package detection

import (
	"context"
	"image"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/photo-anonymizer/internal/imaging"
)

// MinVehicleConfidence is the score a generic box must exceed to count as a
// vehicle.
const MinVehicleConfidence = 0.4

// vehicleClasses are the COCO classes treated as vehicles.
var vehicleClasses = map[int]bool{
	ClassCar:        true,
	ClassMotorcycle: true,
	ClassBus:        true,
	ClassTruck:      true,
}

// VehicleRegions selects vehicle boxes from a generic detector's output.
//
// A box qualifies when its class is car, motorcycle, bus or truck and its
// score is strictly above MinVehicleConfidence. Coordinates are truncated to
// integers and clamped to bounds; boxes left empty by clamping are skipped.
// Order follows the raw output.
func VehicleRegions(raw RawOutput, bounds image.Rectangle) []VehicleRegion {
	regions := make([]VehicleRegion, 0)
	for i, box := range raw.Boxes {
		if !vehicleClasses[box.ClassID] || box.Score <= MinVehicleConfidence {
			continue
		}
		r := imaging.ClampRect(box.X1, box.Y1, box.X2, box.Y2, bounds)
		if r.Empty() {
			log.WithFields(log.Fields{"box": i, "class": box.ClassID}).Debug("Skipping vehicle outside image")
			continue
		}
		regions = append(regions, VehicleRegion{X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X, Y2: r.Max.Y})
	}
	return regions
}

// SearchVehicles runs a region search inside every vehicle and maps the
// results back into image coordinates.
//
// Vehicle crops are independent and read-only, so up to parallelism of them
// are searched at once (1 or less searches sequentially). Results are still
// assembled in vehicle order, each vehicle's plates in score order, and
// numbered 1..N across the whole list.
//
// Zero vehicles yield an empty list. A vehicle whose crop cannot be taken is
// logged and skipped. The only error is ctx's, in which case no partial
// results are returned.
func SearchVehicles(ctx context.Context, img image.Image, vehicles []VehicleRegion, mode *SearchMode, parallelism int) ([]Detection, error) {
	if len(vehicles) == 0 {
		log.Debug("No vehicles detected, two-stage search has nothing to do")
		return []Detection{}, nil
	}

	if parallelism < 1 {
		parallelism = 1
	}

	perVehicle := make([][]Detection, len(vehicles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)

	for i, v := range vehicles {
		i, v := i, v
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			crop, err := imaging.CropRegion(img, v.Rect())
			if err != nil {
				log.WithField("vehicle", i+1).Warnf("Skipping vehicle: %v", err)
				return nil
			}

			dets, err := SearchRegion(gctx, crop, mode)
			if err != nil {
				return err
			}

			origin := v.Rect().Intersect(img.Bounds()).Min
			for j := range dets {
				dets[j].BBox = dets[j].BBox.Offset(origin.X, origin.Y)
			}
			perVehicle[i] = dets

			log.WithFields(log.Fields{
				"vehicle": i + 1,
				"size":    v.Rect().Size().String(),
				"plates":  len(dets),
			}).Debug("Searched vehicle")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	all := make([]Detection, 0)
	for _, dets := range perVehicle {
		all = append(all, dets...)
	}
	return renumber(all), nil
}

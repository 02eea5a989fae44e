package detection

import (
	"math"

	log "github.com/sirupsen/logrus"
)

// FaceDetections converts a face model's output into face detections.
//
// Boxes scoring below threshold are dropped. Corners are truncated to
// integers and the size is taken between the truncated corners. Boxes left
// with no area are skipped. Results keep the model's order and are numbered
// 1..N.
func FaceDetections(raw RawOutput, threshold float64) []Detection {
	faces := make([]Detection, 0, len(raw.Boxes))
	for i, box := range raw.Boxes {
		if box.Score < threshold {
			continue
		}
		if !finite(box.X1, box.Y1, box.X2, box.Y2) {
			log.WithField("box", i).Warn("Skipping face with non-finite coordinates")
			continue
		}
		x1, y1 := int(math.Min(box.X1, box.X2)), int(math.Min(box.Y1, box.Y2))
		x2, y2 := int(math.Max(box.X1, box.X2)), int(math.Max(box.Y1, box.Y2))
		if x2 <= x1 || y2 <= y1 {
			log.WithField("box", i).Debug("Skipping empty face box")
			continue
		}
		faces = append(faces, Detection{
			BBox:       BoundingBox{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1},
			Confidence: box.Score,
			Label:      LabelFace,
		})
	}
	return renumber(faces)
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

package anonymize

import (
	"math"
	"time"

	"github.com/ironsheep/photo-anonymizer/internal/detection"
)

// DetectionRecord describes one painted region.
type DetectionRecord struct {
	ID                 int                   `json:"id"`
	BBox               detection.BoundingBox `json:"bbox"`
	Confidence         float64               `json:"confidence"`
	AnonymizationColor string                `json:"anonymization_color"`
}

// Summary counts painted regions.
type Summary struct {
	TotalFaces         int    `json:"total_faces"`
	TotalPlates        int    `json:"total_plates"`
	TotalAnonymized    int    `json:"total_anonymized"`
	AnonymizationColor string `json:"anonymization_color"`
}

// SuccessPayload is returned for an anonymized image.
type SuccessPayload struct {
	Success          bool              `json:"success"`
	ProcessingTime   float64           `json:"processing_time"`
	AnonymizedImage  string            `json:"anonymized_image"`
	FacesAnonymized  []DetectionRecord `json:"faces_anonymized"`
	PlatesAnonymized []DetectionRecord `json:"plates_anonymized"`
	Summary          Summary           `json:"summary"`
}

// FailurePayload is returned when a request cannot be served.
type FailurePayload struct {
	Success        bool    `json:"success"`
	Error          string  `json:"error"`
	ProcessingTime float64 `json:"processing_time"`
	StatusCode     int     `json:"status_code,omitempty"`
}

// Success builds the payload for an anonymized image. Confidences and the
// processing time are rounded to two decimals.
func Success(elapsed time.Duration, encodedImage string, faces, plates []detection.Detection, color string) SuccessPayload {
	return SuccessPayload{
		Success:          true,
		ProcessingTime:   round2(elapsed.Seconds()),
		AnonymizedImage:  encodedImage,
		FacesAnonymized:  records(faces, color),
		PlatesAnonymized: records(plates, color),
		Summary: Summary{
			TotalFaces:         len(faces),
			TotalPlates:        len(plates),
			TotalAnonymized:    len(faces) + len(plates),
			AnonymizationColor: color,
		},
	}
}

// Failure builds the payload for a failed request. statusCode may be zero
// when no HTTP status applies.
func Failure(message string, elapsed time.Duration, statusCode int) FailurePayload {
	if message == "" {
		message = "Anonymization failed"
	}
	return FailurePayload{
		Success:        false,
		Error:          message,
		ProcessingTime: round2(elapsed.Seconds()),
		StatusCode:     statusCode,
	}
}

func records(dets []detection.Detection, color string) []DetectionRecord {
	out := make([]DetectionRecord, 0, len(dets))
	for _, d := range dets {
		out = append(out, DetectionRecord{
			ID:                 d.ID,
			BBox:               d.BBox,
			Confidence:         round2(d.Confidence),
			AnonymizationColor: color,
		})
	}
	return out
}

// round2 rounds half away from zero to two decimals.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

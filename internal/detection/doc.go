// Package detection turns raw detector output into the face and licence
// plate regions that get anonymized.
//
// Faces come straight from a face model (see FaceDetections). Plates go
// through a cascade (see Orchestrator) because the plate model may be a
// dedicated plate detector or only a generic object detector:
//
//   - A trusted plate model's boxes are accepted as reported.
//   - A generic model's boxes are shape-filtered and widened leftward to
//     cover the whole plate.
//   - When nothing survives, plates are searched heuristically inside the
//     vehicles the generic model found (SearchVehicles).
//
// # Heuristic Search
//
// SearchRegion needs no model. It builds an edge map from several smoothing
// and Canny passes, extracts external contours, and scores the bounding box
// of each large contour against the bands of a SearchMode:
//
//	score = aspect_ratio × edge_density × extent × aspect_bonus
//
// StrictMode suits whole images; LenientMode suits vehicle crops, where the
// plate is a bigger share of the region.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//   - Bounding boxes use inclusive top-left and exclusive bottom-right
//
// # Thread Safety
//
// Every function in this package is safe for concurrent use. Inputs are
// never modified.
package detection

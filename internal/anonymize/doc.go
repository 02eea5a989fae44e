// Package anonymize paints detected regions and builds the response payloads
// describing what was painted.
//
// The Anonymizer fills each detection's bounding box with a solid colour on a
// copy of the source image. The Formatter turns detections and timing into
// the JSON structures returned to clients.
package anonymize

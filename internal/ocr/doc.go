// Package ocr reads licence plate text with Tesseract.
//
// It is used as an optional second opinion on plate candidates found by the
// heuristic searches: a candidate whose crop reads as a plausible plate
// string is kept, anything else is dropped. Boxes reported by a model are
// never verified.
//
// # Prerequisites
//
// Tesseract and its language data must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// The engine is linked through gosseract, which needs cgo. Builds without
// cgo compile a stub whose every call fails with ErrUnavailable; the
// verifier then keeps every candidate.
//
// # Error Handling
//
// Engine failures are returned to the caller and never mean "not a plate".
package ocr

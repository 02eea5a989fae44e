// Package model runs the neural detectors behind the anonymizer.
//
// Every backend implements RawDetector and returns a detection.RawOutput in
// original image pixel coordinates. The concrete backend is YOLODetector, an
// ONNX Runtime session pool around a YOLO export (face model, dedicated plate
// model, or a generic COCO model for the two-stage plate fallback).
//
// # Lifetime
//
// Models are expensive to load, so handles are process-wide and created on
// first use through Lazy. A failed load is reported to the caller and tried
// again on the next request.
//
// ONNX Runtime sessions must not run concurrently. Each detector owns a
// fixed-size SessionPool; a request holds one session for the duration of a
// single inference.
package model

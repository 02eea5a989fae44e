// Package server implements the HTTP API of the photo anonymizer.
//
// # Endpoints
//
// Every endpoint is served both at the root and under the /api/v1 prefix:
//   - POST /anonymize: multipart upload (field "file"), returns the
//     anonymized image and the painted regions
//   - GET /info: static configuration (models, thresholds, fill colour, limits)
//   - GET /health: liveness probe
//   - GET /metrics: session pool counters of the loaded models
//
// # Request Flow
//
// An upload is size-limited, validated and decoded, then shrunk to the
// maximum dimension. Faces and plates are detected on the shrunk image, the
// plate model output going through the plate cascade. Every detection is
// painted with the configured colour and the result is returned as a base64
// PNG together with per-region metadata.
//
// # Error Handling
//
// Failures are returned as JSON with success=false, an error message, the
// processing time and the HTTP status:
//   - 400: missing, corrupt or unsupported image
//   - 413: upload over the size limit; no detector runs
//   - 500: face detection failed
//   - 504: the request timeout expired
//
// A failing plate detector does not fail the request; the response then only
// covers faces.
//
// # Usage
//
//	srv, err := server.New(cfg, server.Deps{Faces: faces, Plates: plates})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server

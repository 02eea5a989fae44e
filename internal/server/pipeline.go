package server

import (
	"context"
	"errors"
	"image"

	log "github.com/sirupsen/logrus"

	"github.com/ironsheep/photo-anonymizer/internal/detection"
)

// detect runs the enabled detectors over img.
//
// A face failure fails the request. A plate failure is logged and the
// request continues with faces only, unless it is a context error.
func (s *Server) detect(ctx context.Context, logger *log.Entry, img image.Image) (faces, plates []detection.Detection, err error) {
	faces = []detection.Detection{}
	plates = []detection.Detection{}

	if s.cfg.EnableFaces {
		logger.Debug("Running face detection")
		raw, err := s.faces.DetectRaw(ctx, img)
		if err != nil {
			return nil, nil, err
		}
		faces = detection.FaceDetections(raw, s.cfg.FaceThreshold)
	}

	if !s.cfg.EnablePlates {
		logger.Debug("License plate detection is disabled")
		return faces, plates, nil
	}

	logger.Debug("Running license plate detection")
	found, err := s.detectPlates(ctx, img)
	switch {
	case err == nil:
		plates = found
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		return nil, nil, err
	default:
		logger.Warnf("License plate detection failed, continuing with faces only: %v", err)
	}
	return faces, plates, nil
}

// detectPlates runs the plate model and the plate cascade.
func (s *Server) detectPlates(ctx context.Context, img image.Image) ([]detection.Detection, error) {
	raw, err := s.plates.DetectRaw(ctx, img)
	if err != nil {
		return nil, err
	}
	res, err := s.cascade.Run(ctx, img, raw)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"source": raw.Source,
		"trace":  res.Trace,
		"plates": len(res.Plates),
	}).Debug("Plate cascade finished")
	return res.Plates, nil
}

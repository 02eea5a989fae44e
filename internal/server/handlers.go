package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ironsheep/photo-anonymizer/internal/anonymize"
	"github.com/ironsheep/photo-anonymizer/internal/detection"
	"github.com/ironsheep/photo-anonymizer/internal/imaging"
	"github.com/ironsheep/photo-anonymizer/internal/model"
)

// UploadField is the multipart field holding the image.
const UploadField = "file"

// multipartSlack is allowed on top of the upload limit for multipart framing.
const multipartSlack = 1 << 20

// multipartMemory is the part of a form kept in memory while parsing.
const multipartMemory = 32 << 20

// requestError is a failure with the HTTP status it maps to.
type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string { return e.msg }

// handleAnonymize serves POST /anonymize.
//
// Steps:
//  1. Read the upload, rejecting oversized bodies before any decoding
//  2. Validate and decode (JPEG/PNG), then shrink to the maximum dimension
//  3. Detect faces and plates on the shrunk image
//  4. Paint every detection and encode the result as base64 PNG
func (s *Server) handleAnonymize(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger := requestLogger(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	data, filename, err := s.readUpload(w, r)
	if err != nil {
		s.fail(w, logger, err, start)
		return
	}
	logger.WithFields(log.Fields{"file": filename, "bytes": len(data)}).Info("Received upload")

	upload, err := imaging.DecodeUpload(data, s.cfg.MaxUploadBytes)
	if err != nil {
		s.fail(w, logger, err, start)
		return
	}
	img := imaging.Preprocess(upload.Image, s.cfg.MaxDimension)

	faces, plates, err := s.detect(ctx, logger, img)
	if err != nil {
		s.fail(w, logger, err, start)
		return
	}

	all := make([]detection.Detection, 0, len(faces)+len(plates))
	all = append(append(all, faces...), plates...)
	_, encoded, err := s.anonymizer.Anonymize(img, all)
	if err != nil {
		s.fail(w, logger, fmt.Errorf("anonymization failed: %w", err), start)
		return
	}

	elapsed := time.Since(start)
	logger.WithFields(log.Fields{
		"faces":   len(faces),
		"plates":  len(plates),
		"seconds": fmt.Sprintf("%.2f", elapsed.Seconds()),
	}).Info("Anonymization completed")

	respondJSON(w, anonymize.Success(elapsed, encoded, faces, plates, s.anonymizer.Color()), http.StatusOK)
}

// readUpload returns the bytes and file name of the uploaded image.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	limit := s.cfg.MaxUploadBytes + multipartSlack
	if r.ContentLength > limit {
		return nil, "", imaging.ErrTooLarge
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", imaging.ErrTooLarge
		}
		return nil, "", &requestError{status: http.StatusBadRequest, msg: fmt.Sprintf("Failed to parse form: %v", err)}
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(UploadField)
	if err != nil {
		return nil, "", &requestError{status: http.StatusBadRequest, msg: "No file uploaded"}
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", &requestError{status: http.StatusBadRequest, msg: fmt.Sprintf("Failed to read file: %v", err)}
	}
	return data, header.Filename, nil
}

// fail writes the failure payload for err.
func (s *Server) fail(w http.ResponseWriter, logger *log.Entry, err error, start time.Time) {
	status, msg := s.classify(err)
	if status >= http.StatusInternalServerError {
		logger.Errorf("Request failed: %v", err)
	} else {
		logger.Warnf("Request rejected: %v", err)
	}
	respondJSON(w, anonymize.Failure(msg, time.Since(start), status), status)
}

// classify maps an error to an HTTP status and a client message.
func (s *Server) classify(err error) (int, string) {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr):
		return reqErr.status, reqErr.msg
	case errors.Is(err, imaging.ErrTooLarge):
		return http.StatusRequestEntityTooLarge,
			fmt.Sprintf("File size exceeds maximum allowed size of %gMB", uploadLimitMB(s.cfg.MaxUploadBytes))
	case errors.Is(err, imaging.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Processing timed out"
	case errors.Is(err, model.ErrModelUnavailable):
		return http.StatusInternalServerError, fmt.Sprintf("Detection failed: %v", err)
	default:
		return http.StatusInternalServerError, fmt.Sprintf("Internal server error: %v", err)
	}
}

// handleInfo serves GET /info.
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	var plateModel, plateThreshold interface{} = "disabled", "N/A"
	if s.cfg.EnablePlates {
		plateModel, plateThreshold = s.cfg.PlateModel, s.cfg.PlateThreshold
	}
	faceModel := "disabled"
	if s.cfg.EnableFaces {
		faceModel = s.cfg.FaceModel
	}

	respondJSON(w, map[string]interface{}{
		"service": ServiceName,
		"version": ServiceVersion,
		"models": map[string]interface{}{
			"face_detection":  faceModel,
			"plate_detection": plateModel,
		},
		"thresholds": map[string]interface{}{
			"face_confidence":  s.cfg.FaceThreshold,
			"plate_confidence": plateThreshold,
		},
		"anonymization": map[string]interface{}{
			"color":  s.anonymizer.Color(),
			"method": "solid_fill",
		},
		"limits": map[string]interface{}{
			"max_upload_size_mb": uploadLimitMB(s.cfg.MaxUploadBytes),
			"max_dimension":      s.cfg.MaxDimension,
			"supported_formats":  imaging.SupportedFormats(),
		},
		"features": map[string]interface{}{
			"face_detection":       s.cfg.EnableFaces,
			"plate_detection":      s.cfg.EnablePlates,
			"plate_text_verifier":  s.cfg.VerifyPlateText,
			"whole_image_fallback": s.cfg.WholeImageFallback,
		},
	}, http.StatusOK)
}

// handleHealth serves GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{
		"status":  "healthy",
		"service": ServiceName,
		"version": ServiceVersion,
	}, http.StatusOK)
}

// poolReporter is implemented by detectors backed by a session pool.
type poolReporter interface {
	Stats() (model.PoolStats, bool)
}

// handleMetrics serves GET /metrics with the session pool counters of every
// loaded model.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	pools := make(map[string]model.PoolStats)
	for name, det := range map[string]model.RawDetector{"face": s.faces, "plate": s.plates} {
		if p, ok := det.(poolReporter); ok {
			if stats, ok := p.Stats(); ok {
				pools[name] = stats
			}
		}
	}
	respondJSON(w, map[string]interface{}{"pools": pools}, http.StatusOK)
}

func uploadLimitMB(bytes int64) float64 {
	return float64(bytes) / (1024 * 1024)
}

func respondJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Warnf("Failed to encode response: %v", err)
	}
}

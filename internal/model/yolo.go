package model

import (
	"context"
	"fmt"
	"image"
	"math"
	"sort"

	log "github.com/sirupsen/logrus"
	xdraw "golang.org/x/image/draw"

	"github.com/ironsheep/photo-anonymizer/internal/detection"
)

// YOLO export defaults.
const (
	DefaultInputSize      = 640
	DefaultCandidates     = 8400
	DefaultScoreThreshold = 0.25
	DefaultIoUThreshold   = 0.45

	// COCOClasses is the class count of generic YOLO exports.
	COCOClasses = 80
)

// YOLOConfig describes one YOLO ONNX export.
//
// The model must take a float32 "images" input of shape
// [1, 3, InputSize, InputSize] holding RGB in [0, 1], and produce an
// "output0" of shape [1, 4+Classes, Candidates] whose rows are centre x,
// centre y, width, height (input pixels) followed by one score per class.
type YOLOConfig struct {
	// Name is used in logs and errors.
	Name string

	// Path is the .onnx file.
	Path string

	// Source tells the plate cascade how far to trust the boxes.
	Source detection.Source

	Classes    int
	Candidates int
	InputSize  int

	// ScoreThreshold drops candidates before non-maximum suppression. The
	// caller's own thresholds are applied afterwards.
	ScoreThreshold float64

	// IoUThreshold is the overlap above which a lower scoring box of the
	// same class is suppressed.
	IoUThreshold float64

	// PoolSize is the number of ONNX sessions.
	PoolSize int

	// Threads is the intra-op thread count per session; 0 leaves the
	// runtime default.
	Threads int
}

// withDefaults fills zero fields.
func (c YOLOConfig) withDefaults() YOLOConfig {
	if c.Classes <= 0 {
		c.Classes = 1
	}
	if c.Candidates <= 0 {
		c.Candidates = DefaultCandidates
	}
	if c.InputSize <= 0 {
		c.InputSize = DefaultInputSize
	}
	if c.ScoreThreshold <= 0 {
		c.ScoreThreshold = DefaultScoreThreshold
	}
	if c.IoUThreshold <= 0 {
		c.IoUThreshold = DefaultIoUThreshold
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 1
	}
	if c.Name == "" {
		c.Name = c.Path
	}
	return c
}

// inferenceSession is one loaded model with bound input and output buffers.
type inferenceSession interface {
	Input() []float32
	Output() []float32
	Run() error
	Destroy()
}

// YOLODetector runs a YOLO export through a pool of inference sessions.
type YOLODetector struct {
	cfg  YOLOConfig
	pool *SessionPool[inferenceSession]
}

func newYOLODetector(cfg YOLOConfig, pool *SessionPool[inferenceSession]) *YOLODetector {
	return &YOLODetector{cfg: cfg, pool: pool}
}

// Stats returns the session pool counters.
func (d *YOLODetector) Stats() PoolStats {
	return d.pool.Stats()
}

// DetectRaw runs the model over img.
//
// The image is stretched to the model input, so boxes are scaled back
// independently on each axis. Boxes are in img's coordinate space, sorted by
// score, after per-class non-maximum suppression.
func (d *YOLODetector) DetectRaw(ctx context.Context, img image.Image) (detection.RawOutput, error) {
	b := img.Bounds()
	if b.Empty() {
		return detection.RawOutput{Source: d.cfg.Source, Boxes: []detection.RawBox{}}, nil
	}

	input := make([]float32, 3*d.cfg.InputSize*d.cfg.InputSize)
	fillInput(img, d.cfg.InputSize, input)

	if err := ctx.Err(); err != nil {
		return detection.RawOutput{}, err
	}

	session, err := d.pool.Acquire(ctx)
	if err != nil {
		return detection.RawOutput{}, fmt.Errorf("acquire %s session: %w", d.cfg.Name, err)
	}
	output, err := runSession(session, input)
	d.pool.Release(session)
	if err != nil {
		return detection.RawOutput{}, fmt.Errorf("%s inference: %w", d.cfg.Name, err)
	}

	boxes, err := decodeOutput(output, d.cfg, b)
	if err != nil {
		return detection.RawOutput{}, err
	}

	log.WithFields(log.Fields{"model": d.cfg.Name, "boxes": len(boxes)}).Debug("Inference complete")
	return detection.RawOutput{Source: d.cfg.Source, Boxes: boxes}, nil
}

// Close destroys every session.
func (d *YOLODetector) Close() error {
	d.pool.Destroy()
	return nil
}

// runSession copies input in, runs the session and copies the output out so
// the session can be released right away.
func runSession(s inferenceSession, input []float32) ([]float32, error) {
	dst := s.Input()
	if len(dst) != len(input) {
		return nil, fmt.Errorf("input tensor holds %d values, want %d", len(dst), len(input))
	}
	copy(dst, input)
	if err := s.Run(); err != nil {
		return nil, err
	}
	out := make([]float32, len(s.Output()))
	copy(out, s.Output())
	return out, nil
}

// fillInput stretches img to size×size and writes it into dst as planar
// RGB scaled to [0, 1].
func fillInput(img image.Image, size int, dst []float32) {
	resized := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.BiLinear.Scale(resized, resized.Bounds(), img, img.Bounds(), xdraw.Src, nil)

	plane := size * size
	for y := 0; y < size; y++ {
		row := resized.Pix[y*resized.Stride:]
		for x := 0; x < size; x++ {
			i := y*size + x
			dst[i] = float32(row[x*4]) / 255.0
			dst[plane+i] = float32(row[x*4+1]) / 255.0
			dst[2*plane+i] = float32(row[x*4+2]) / 255.0
		}
	}
}

// decodeOutput turns a raw [4+Classes, Candidates] output into boxes in
// bounds' coordinate space.
func decodeOutput(out []float32, cfg YOLOConfig, bounds image.Rectangle) ([]detection.RawBox, error) {
	n := cfg.Candidates
	channels := 4 + cfg.Classes
	if len(out) != channels*n {
		return nil, fmt.Errorf("unexpected %s output length: got %d, want %d", cfg.Name, len(out), channels*n)
	}

	scaleX := float64(bounds.Dx()) / float64(cfg.InputSize)
	scaleY := float64(bounds.Dy()) / float64(cfg.InputSize)

	boxes := make([]detection.RawBox, 0, 32)
	for i := 0; i < n; i++ {
		classID, score := 0, float32(-1)
		for c := 0; c < cfg.Classes; c++ {
			if v := out[(4+c)*n+i]; v > score {
				score = v
				classID = c
			}
		}
		if float64(score) < cfg.ScoreThreshold {
			continue
		}

		cx := float64(out[i])
		cy := float64(out[n+i])
		w := float64(out[2*n+i])
		h := float64(out[3*n+i])

		boxes = append(boxes, detection.RawBox{
			X1:      float64(bounds.Min.X) + (cx-w/2)*scaleX,
			Y1:      float64(bounds.Min.Y) + (cy-h/2)*scaleY,
			X2:      float64(bounds.Min.X) + (cx+w/2)*scaleX,
			Y2:      float64(bounds.Min.Y) + (cy+h/2)*scaleY,
			Score:   float64(score),
			ClassID: classID,
		})
	}

	return nonMaxSuppression(boxes, cfg.IoUThreshold), nil
}

// nonMaxSuppression keeps the best scoring box of every overlapping group
// of the same class. The result is sorted by score, descending.
func nonMaxSuppression(boxes []detection.RawBox, iouThreshold float64) []detection.RawBox {
	sort.SliceStable(boxes, func(i, j int) bool {
		return boxes[i].Score > boxes[j].Score
	})

	kept := make([]detection.RawBox, 0, len(boxes))
	suppressed := make([]bool, len(boxes))
	for i := range boxes {
		if suppressed[i] {
			continue
		}
		kept = append(kept, boxes[i])
		for j := i + 1; j < len(boxes); j++ {
			if suppressed[j] || boxes[j].ClassID != boxes[i].ClassID {
				continue
			}
			if iou(boxes[i], boxes[j]) > iouThreshold {
				suppressed[j] = true
			}
		}
	}
	return kept
}

// iou computes the intersection over union of two boxes.
func iou(a, b detection.RawBox) float64 {
	x1 := math.Max(a.X1, b.X1)
	y1 := math.Max(a.Y1, b.Y1)
	x2 := math.Min(a.X2, b.X2)
	y2 := math.Min(a.Y2, b.Y2)

	inter := math.Max(0, x2-x1) * math.Max(0, y2-y1)
	union := a.Width()*a.Height() + b.Width()*b.Height() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

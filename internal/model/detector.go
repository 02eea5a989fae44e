package model

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/ironsheep/photo-anonymizer/internal/detection"
)

// ErrModelUnavailable is returned when a model cannot be loaded or fails
// during inference.
var ErrModelUnavailable = errors.New("model unavailable")

// RawDetector runs one detector over an image.
type RawDetector interface {
	DetectRaw(ctx context.Context, img image.Image) (detection.RawOutput, error)
}

// LoadFunc creates a detector.
type LoadFunc func() (RawDetector, error)

// Lazy is a process-wide detector handle created on first use.
//
// Loading happens at most once at a time: concurrent callers wait for the
// first load to finish and share its detector. A failed load is not cached;
// the next call tries again. Reading a loaded detector never waits on a load
// in progress.
type Lazy struct {
	name string
	load LoadFunc

	// mu serializes loading and closing.
	mu  sync.Mutex
	cur atomic.Pointer[loadedDetector]
}

// loadedDetector boxes a detector for atomic publication.
type loadedDetector struct {
	det RawDetector
}

// NewLazy creates a handle that loads its detector with load.
func NewLazy(name string, load LoadFunc) *Lazy {
	return &Lazy{name: name, load: load}
}

// Name returns the handle's name.
func (l *Lazy) Name() string {
	return l.name
}

// Get returns the detector, loading it if needed.
func (l *Lazy) Get() (RawDetector, error) {
	if h := l.cur.Load(); h != nil {
		return h.det, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if h := l.cur.Load(); h != nil {
		return h.det, nil
	}

	log.WithField("model", l.name).Info("Loading model")
	det, err := l.load()
	if err != nil {
		log.WithField("model", l.name).Errorf("Failed to load model: %v", err)
		if errors.Is(err, ErrModelUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrModelUnavailable, l.name, err)
	}
	l.cur.Store(&loadedDetector{det: det})
	log.WithField("model", l.name).Info("Model loaded")
	return det, nil
}

// loaded reports whether the detector has been created.
func (l *Lazy) loaded() bool {
	return l.cur.Load() != nil
}

// DetectRaw loads the detector if needed and runs it.
//
// Context errors are returned as-is; every other failure wraps
// ErrModelUnavailable.
func (l *Lazy) DetectRaw(ctx context.Context, img image.Image) (detection.RawOutput, error) {
	det, err := l.Get()
	if err != nil {
		return detection.RawOutput{}, err
	}

	out, err := det.DetectRaw(ctx, img)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return detection.RawOutput{}, ctxErr
		}
		if errors.Is(err, ErrModelUnavailable) {
			return detection.RawOutput{}, err
		}
		return detection.RawOutput{}, fmt.Errorf("%w: %s: %w", ErrModelUnavailable, l.name, err)
	}
	return out, nil
}

// Stats returns the session pool statistics of the loaded detector. The
// second result is false when nothing is loaded or the detector has no pool.
// It does not wait for a load in progress.
func (l *Lazy) Stats() (PoolStats, bool) {
	h := l.cur.Load()
	if h == nil {
		return PoolStats{}, false
	}
	if s, ok := h.det.(interface{ Stats() PoolStats }); ok {
		return s.Stats(), true
	}
	return PoolStats{}, false
}

// Close releases the detector if it was loaded and implements io.Closer.
// The handle may be loaded again afterwards.
func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	h := l.cur.Load()
	if h == nil {
		return nil
	}
	l.cur.Store(nil)
	if c, ok := h.det.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

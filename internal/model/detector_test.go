package model

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ironsheep/photo-anonymizer/internal/detection"
)

// stubDetector returns a fixed output or error
type stubDetector struct {
	out    detection.RawOutput
	err    error
	closed bool
}

func (s *stubDetector) DetectRaw(ctx context.Context, img image.Image) (detection.RawOutput, error) {
	return s.out, s.err
}

func (s *stubDetector) Close() error {
	s.closed = true
	return nil
}

func TestLazyLoadsOnce(t *testing.T) {
	var loads atomic.Int32
	det := &stubDetector{out: detection.RawOutput{Source: detection.SourceTrusted}}
	lazy := NewLazy("face", func() (RawDetector, error) {
		loads.Add(1)
		return det, nil
	})

	if lazy.loaded() {
		t.Fatal("handle should not load before first use")
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := lazy.DetectRaw(context.Background(), image.NewNRGBA(image.Rect(0, 0, 4, 4))); err != nil {
				t.Errorf("DetectRaw failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := loads.Load(); n != 1 {
		t.Errorf("loaded %d times, want 1", n)
	}
	if !lazy.loaded() {
		t.Error("handle should report loaded")
	}
}

func TestLazyRetriesFailedLoad(t *testing.T) {
	attempts := 0
	lazy := NewLazy("plate", func() (RawDetector, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("file not found")
		}
		return &stubDetector{}, nil
	})

	_, err := lazy.Get()
	if !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
	if _, err := lazy.Get(); err != nil {
		t.Fatalf("second load should succeed, got %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts: got %d, want 2", attempts)
	}
}

func TestLazyWrapsInferenceErrors(t *testing.T) {
	lazy := NewLazy("face", func() (RawDetector, error) {
		return &stubDetector{err: errors.New("bad tensor")}, nil
	})

	_, err := lazy.DetectRaw(context.Background(), image.NewNRGBA(image.Rect(0, 0, 4, 4)))
	if !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("expected ErrModelUnavailable, got %v", err)
	}
}

func TestLazyPassesContextErrors(t *testing.T) {
	lazy := NewLazy("face", func() (RawDetector, error) {
		return &stubDetector{err: errors.New("aborted")}, nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := lazy.DetectRaw(ctx, image.NewNRGBA(image.Rect(0, 0, 4, 4)))
	if !errors.Is(err, context.Canceled) || errors.Is(err, ErrModelUnavailable) {
		t.Errorf("expected a bare context.Canceled, got %v", err)
	}
}

func TestLazyClose(t *testing.T) {
	det := &stubDetector{}
	lazy := NewLazy("face", func() (RawDetector, error) { return det, nil })

	if err := lazy.Close(); err != nil {
		t.Fatalf("Close before load failed: %v", err)
	}
	if _, err := lazy.Get(); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if err := lazy.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !det.closed {
		t.Error("detector was not closed")
	}
	if lazy.loaded() {
		t.Error("handle should be unloaded after Close")
	}
}

func TestLazyStats(t *testing.T) {
	yolo := newFakeDetector(t, YOLOConfig{Name: "plate", Classes: 1, Candidates: 1, InputSize: 32}, &fakeSession{})
	lazy := NewLazy("plate", func() (RawDetector, error) { return yolo, nil })

	if _, ok := lazy.Stats(); ok {
		t.Error("Stats should report nothing before the model is loaded")
	}
	if _, err := lazy.Get(); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	stats, ok := lazy.Stats()
	if !ok {
		t.Fatal("Stats should report the loaded detector's pool")
	}
	if stats.Size != 1 || stats.InUse != 0 {
		t.Errorf("unexpected stats %+v", stats)
	}

	plain := NewLazy("face", func() (RawDetector, error) { return &stubDetector{}, nil })
	if _, err := plain.Get(); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if _, ok := plain.Stats(); ok {
		t.Error("detectors without a pool have no stats")
	}
}

func TestLazyStatsDuringLoad(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	lazy := NewLazy("plate", func() (RawDetector, error) {
		close(started)
		<-release
		return &stubDetector{}, nil
	})

	loadErr := make(chan error, 1)
	go func() {
		_, err := lazy.Get()
		loadErr <- err
	}()
	<-started

	done := make(chan bool, 1)
	go func() {
		_, ok := lazy.Stats()
		done <- ok || lazy.loaded()
	}()

	select {
	case busy := <-done:
		if busy {
			t.Error("handle should not report a detector while loading")
		}
	case <-time.After(2 * time.Second):
		t.Error("Stats blocked on a load in progress")
	}

	close(release)
	if err := <-loadErr; err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !lazy.loaded() {
		t.Error("handle should report loaded once the load finishes")
	}
}

package model

import (
	"fmt"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"
)

var (
	runtimeMu          sync.Mutex
	runtimeInitialized bool
)

// InitRuntime loads the ONNX Runtime shared library and creates its
// environment. libPath may be empty to use the library's default lookup.
// Calling it again after a successful initialization does nothing; a failed
// initialization may be retried.
func InitRuntime(libPath string) error {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()

	if runtimeInitialized {
		return nil
	}
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("%w: initialize onnxruntime: %w", ErrModelUnavailable, err)
	}
	runtimeInitialized = true
	log.WithField("library", libPath).Info("ONNX Runtime initialized")
	return nil
}

// ShutdownRuntime destroys the ONNX Runtime environment. Every session must
// have been destroyed first.
func ShutdownRuntime() error {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()

	if !runtimeInitialized {
		return nil
	}
	runtimeInitialized = false
	return ort.DestroyEnvironment()
}

// onnxSession is an AdvancedSession bound to its input and output tensors.
type onnxSession struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

func (s *onnxSession) Input() []float32  { return s.input.GetData() }
func (s *onnxSession) Output() []float32 { return s.output.GetData() }
func (s *onnxSession) Run() error        { return s.session.Run() }

func (s *onnxSession) Destroy() {
	if s.session != nil {
		s.session.Destroy()
	}
	if s.input != nil {
		s.input.Destroy()
	}
	if s.output != nil {
		s.output.Destroy()
	}
}

func newONNXSession(cfg YOLOConfig) (*onnxSession, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("error creating session options: %w", err)
	}
	defer options.Destroy()

	if cfg.Threads > 0 {
		options.SetIntraOpNumThreads(cfg.Threads)
		options.SetInterOpNumThreads(1)
	}

	size := int64(cfg.InputSize)
	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, size, size))
	if err != nil {
		return nil, fmt.Errorf("error creating input tensor: %w", err)
	}

	outputShape := ort.NewShape(1, int64(4+cfg.Classes), int64(cfg.Candidates))
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("error creating output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		cfg.Path,
		[]string{"images"},
		[]string{"output0"},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		options,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("error creating session: %w", err)
	}

	return &onnxSession{session: session, input: inputTensor, output: outputTensor}, nil
}

// NewYOLODetector loads the export described by cfg into a session pool.
// InitRuntime must have succeeded first.
func NewYOLODetector(cfg YOLOConfig) (*YOLODetector, error) {
	cfg = cfg.withDefaults()

	if _, err := os.Stat(cfg.Path); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrModelUnavailable, cfg.Name, err)
	}

	pool, err := NewSessionPool(cfg.PoolSize,
		func() (inferenceSession, error) {
			s, err := newONNXSession(cfg)
			if err != nil {
				return nil, err
			}
			return s, nil
		},
		func(s inferenceSession) {
			s.Destroy()
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrModelUnavailable, cfg.Name, err)
	}

	log.WithFields(log.Fields{
		"model":    cfg.Name,
		"path":     cfg.Path,
		"classes":  cfg.Classes,
		"sessions": cfg.PoolSize,
	}).Info("YOLO model loaded")

	return newYOLODetector(cfg, pool), nil
}

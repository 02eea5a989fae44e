package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/ironsheep/photo-anonymizer/internal/config"
	"github.com/ironsheep/photo-anonymizer/internal/detection"
	"github.com/ironsheep/photo-anonymizer/internal/model"
	"github.com/ironsheep/photo-anonymizer/internal/ocr"
	"github.com/ironsheep/photo-anonymizer/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// plateTextMinConfidence is the OCR confidence a heuristic plate needs.
const plateTextMinConfidence = 0.5

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("photo-anonymizer %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			if v := ocr.Version(); v != "" {
				fmt.Printf("  Tesseract:  %s\n", v)
			}
			return
		case "--help", "-h", "help":
			printHelp()
			return
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}
	log.WithFields(log.Fields{
		"version": Version,
		"built":   BuildTime,
		"commit":  GitCommit,
	}).Info("Photo anonymizer starting")

	catalog := model.Catalog{
		Dir:         cfg.ModelsDir,
		FaceFile:    cfg.FaceModel,
		PlateFile:   cfg.PlateModel,
		GenericFile: cfg.GenericModel,
		PoolSize:    cfg.SessionPool,
		Threads:     cfg.Threads,
	}
	faces := model.NewLazy("face", model.Loader(cfg.ONNXRuntimeLib, catalog.FaceConfig))
	plates := model.NewLazy("plate", model.Loader(cfg.ONNXRuntimeLib, catalog.PlateConfig))

	var verifier detection.PlateVerifier
	if cfg.VerifyPlateText {
		verifier = ocr.NewPlateTextVerifier(cfg.OCRLanguage, plateTextMinConfidence)
	}

	srv, err := server.New(cfg, server.Deps{Faces: faces, Plates: plates, Verifier: verifier})
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go preload(cfg, faces, plates)

	runErr := srv.Run(ctx)

	for _, l := range []*model.Lazy{faces, plates} {
		if err := l.Close(); err != nil {
			log.WithField("model", l.Name()).Warnf("Failed to release model: %v", err)
		}
	}
	if err := model.ShutdownRuntime(); err != nil {
		log.Warnf("Failed to shut down ONNX Runtime: %v", err)
	}

	if runErr != nil {
		log.Fatalf("Server error: %v", runErr)
	}
	log.Info("Server stopped")
}

// preload loads the enabled models so the first request does not pay for
// it. Failures are logged; the models are loaded again on first use.
func preload(cfg *config.Config, faces, plates *model.Lazy) {
	log.Info("Pre-loading detection models")
	ok := true
	if cfg.EnableFaces {
		if _, err := faces.Get(); err != nil {
			ok = false
		}
	}
	if cfg.EnablePlates {
		if _, err := plates.Get(); err != nil {
			ok = false
		}
	}
	if ok {
		log.Info("All models loaded")
	} else {
		log.Warn("Some models failed to load, retrying on first request")
	}
}

func printHelp() {
	fmt.Println("photo-anonymizer - HTTP service that paints over faces and licence plates")
	fmt.Println()
	fmt.Println("Usage: photo-anonymizer [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  PHOTO_ANON_ADDR=:8000                    Listen address")
	fmt.Println("  PHOTO_ANON_LOG_LEVEL=info                Log level (debug shows plate candidates)")
	fmt.Println("  PHOTO_ANON_MODELS_DIR=./data/models      Directory of the ONNX models")
	fmt.Println("  PHOTO_ANON_ONNXRUNTIME_LIB=              Path to the ONNX Runtime shared library")
	fmt.Println("  PHOTO_ANON_COLOR=#FFFF00                 Fill colour")
	fmt.Println("  PHOTO_ANON_FACE_THRESHOLD=0.7            Face confidence threshold")
	fmt.Println("  PHOTO_ANON_PLATE_THRESHOLD=0.6           Plate confidence threshold")
	fmt.Println("  PHOTO_ANON_ENABLE_PLATES=true            Detect licence plates")
	fmt.Println("  PHOTO_ANON_VERIFY_PLATE_TEXT=false       Confirm heuristic plates with Tesseract")
	fmt.Println()
	fmt.Println("Endpoints: POST /anonymize, GET /info, GET /health, GET /metrics (also under /api/v1)")
}

// Package config loads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ironsheep/photo-anonymizer/internal/imaging"
)

// EnvPrefix is prepended to every variable name.
const EnvPrefix = "PHOTO_ANON_"

// Config holds every tunable of the service.
type Config struct {
	Addr string

	MaxUploadBytes int64
	MaxDimension   int

	FaceThreshold  float64
	PlateThreshold float64
	Color          string

	EnableFaces  bool
	EnablePlates bool

	ModelsDir      string
	FaceModel      string
	PlateModel     string
	GenericModel   string
	ONNXRuntimeLib string
	SessionPool    int
	Threads        int

	RequestTimeout     time.Duration
	VehicleParallelism int
	WholeImageFallback bool

	VerifyPlateText bool
	OCRLanguage     string

	LogLevel string
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Addr:               ":8000",
		MaxUploadBytes:     10 * 1024 * 1024,
		MaxDimension:       imaging.DefaultMaxDimension,
		FaceThreshold:      0.7,
		PlateThreshold:     0.6,
		Color:              "#FFFF00",
		EnableFaces:        true,
		EnablePlates:       true,
		ModelsDir:          "./data/models",
		FaceModel:          "yolov8n-face.onnx",
		PlateModel:         "license_plate_detector.onnx",
		GenericModel:       "yolov8n.onnx",
		SessionPool:        2,
		RequestTimeout:     60 * time.Second,
		VehicleParallelism: 4,
		OCRLanguage:        "eng",
		LogLevel:           "info",
	}
}

// Load reads the environment on top of Default and validates the result.
// Every malformed variable is reported, not just the first.
func Load() (*Config, error) {
	c := Default()
	p := &parser{}

	c.Addr = getEnv("ADDR", c.Addr)
	c.MaxUploadBytes = p.int64Var("MAX_UPLOAD_BYTES", c.MaxUploadBytes)
	c.MaxDimension = p.intVar("MAX_DIMENSION", c.MaxDimension)
	c.FaceThreshold = p.floatVar("FACE_THRESHOLD", c.FaceThreshold)
	c.PlateThreshold = p.floatVar("PLATE_THRESHOLD", c.PlateThreshold)
	c.Color = getEnv("COLOR", c.Color)
	c.EnableFaces = p.boolVar("ENABLE_FACES", c.EnableFaces)
	c.EnablePlates = p.boolVar("ENABLE_PLATES", c.EnablePlates)
	c.ModelsDir = getEnv("MODELS_DIR", c.ModelsDir)
	c.FaceModel = getEnv("FACE_MODEL", c.FaceModel)
	c.PlateModel = getEnv("PLATE_MODEL", c.PlateModel)
	c.GenericModel = getEnv("GENERIC_MODEL", c.GenericModel)
	c.ONNXRuntimeLib = getEnv("ONNXRUNTIME_LIB", c.ONNXRuntimeLib)
	c.SessionPool = p.intVar("SESSION_POOL", c.SessionPool)
	c.Threads = p.intVar("THREADS", c.Threads)
	c.RequestTimeout = p.durationVar("REQUEST_TIMEOUT", c.RequestTimeout)
	c.VehicleParallelism = p.intVar("VEHICLE_PARALLELISM", c.VehicleParallelism)
	c.WholeImageFallback = p.boolVar("WHOLE_IMAGE_FALLBACK", c.WholeImageFallback)
	c.VerifyPlateText = p.boolVar("VERIFY_PLATE_TEXT", c.VerifyPlateText)
	c.OCRLanguage = getEnv("OCR_LANGUAGE", c.OCRLanguage)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	if err := errors.Join(p.errs...); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks ranges and the fill colour.
func (c *Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("address must not be empty"))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("max upload bytes must be positive, got %d", c.MaxUploadBytes))
	}
	if c.MaxDimension <= 0 {
		errs = append(errs, fmt.Errorf("max dimension must be positive, got %d", c.MaxDimension))
	}
	for name, v := range map[string]float64{"face": c.FaceThreshold, "plate": c.PlateThreshold} {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("%s threshold must be within [0, 1], got %v", name, v))
		}
	}
	if _, err := imaging.ParseHexColor(c.Color); err != nil {
		errs = append(errs, err)
	}
	if c.SessionPool < 1 {
		errs = append(errs, fmt.Errorf("session pool must be at least 1, got %d", c.SessionPool))
	}
	if c.Threads < 0 {
		errs = append(errs, fmt.Errorf("threads must not be negative, got %d", c.Threads))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("request timeout must be positive, got %v", c.RequestTimeout))
	}
	if c.VehicleParallelism < 1 {
		errs = append(errs, fmt.Errorf("vehicle parallelism must be at least 1, got %d", c.VehicleParallelism))
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		return val
	}
	return defaultVal
}

// parser collects conversion errors so Load can report them together.
type parser struct {
	errs []error
}

func (p *parser) fail(key, val string, err error) {
	p.errs = append(p.errs, fmt.Errorf("%s%s=%q: %w", EnvPrefix, key, val, err))
}

func (p *parser) intVar(key string, def int) int {
	val := getEnv(key, "")
	if val == "" {
		return def
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		p.fail(key, val, err)
		return def
	}
	return n
}

func (p *parser) int64Var(key string, def int64) int64 {
	val := getEnv(key, "")
	if val == "" {
		return def
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		p.fail(key, val, err)
		return def
	}
	return n
}

func (p *parser) floatVar(key string, def float64) float64 {
	val := getEnv(key, "")
	if val == "" {
		return def
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		p.fail(key, val, err)
		return def
	}
	return f
}

func (p *parser) boolVar(key string, def bool) bool {
	val := getEnv(key, "")
	if val == "" {
		return def
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		p.fail(key, val, err)
		return def
	}
	return b
}

func (p *parser) durationVar(key string, def time.Duration) time.Duration {
	val := getEnv(key, "")
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		p.fail(key, val, err)
		return def
	}
	return d
}

package model

import (
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/ironsheep/photo-anonymizer/internal/detection"
)

// Catalog locates the model files of one deployment.
type Catalog struct {
	Dir string

	// FaceFile is a single-class YOLO face export.
	FaceFile string

	// PlateFile is a dedicated single-class plate export. Optional.
	PlateFile string

	// GenericFile is a COCO export used when PlateFile is missing.
	GenericFile string

	PoolSize int
	Threads  int
}

func (c Catalog) path(file string) string {
	if file == "" || filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(c.Dir, file)
}

// FaceConfig describes the face model.
func (c Catalog) FaceConfig() YOLOConfig {
	return YOLOConfig{
		Name:     "face",
		Path:     c.path(c.FaceFile),
		Source:   detection.SourceTrusted,
		Classes:  1,
		PoolSize: c.PoolSize,
		Threads:  c.Threads,
	}
}

// PlateConfig describes the plate model: the dedicated plate export when its
// file exists, otherwise the generic COCO export, whose boxes the plate
// cascade filters and whose vehicles it searches.
func (c Catalog) PlateConfig() YOLOConfig {
	if p := c.path(c.PlateFile); p != "" {
		if _, err := os.Stat(p); err == nil {
			return YOLOConfig{
				Name:     "plate",
				Path:     p,
				Source:   detection.SourceTrusted,
				Classes:  1,
				PoolSize: c.PoolSize,
				Threads:  c.Threads,
			}
		}
		log.WithField("path", p).Info("No dedicated plate model, using generic detector with two-stage search")
	}
	return YOLOConfig{
		Name:     "generic",
		Path:     c.path(c.GenericFile),
		Source:   detection.SourceGeneric,
		Classes:  COCOClasses,
		PoolSize: c.PoolSize,
		Threads:  c.Threads,
	}
}

// Loader returns a LoadFunc that initializes the runtime and loads cfg.
func Loader(libPath string, cfg func() YOLOConfig) LoadFunc {
	return func() (RawDetector, error) {
		if err := InitRuntime(libPath); err != nil {
			return nil, err
		}
		det, err := NewYOLODetector(cfg())
		if err != nil {
			return nil, err
		}
		return det, nil
	}
}

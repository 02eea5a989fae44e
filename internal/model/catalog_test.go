package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ironsheep/photo-anonymizer/internal/detection"
)

func TestCatalogPlateConfigPrefersDedicatedModel(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "plates.onnx"), []byte("onnx"), 0o644); err != nil {
		t.Fatal(err)
	}
	c := Catalog{Dir: dir, PlateFile: "plates.onnx", GenericFile: "yolov8n.onnx", PoolSize: 2}

	cfg := c.PlateConfig()
	if cfg.Source != detection.SourceTrusted || cfg.Classes != 1 {
		t.Errorf("got source %v with %d classes, want trusted single-class", cfg.Source, cfg.Classes)
	}
	if cfg.Path != filepath.Join(dir, "plates.onnx") || cfg.PoolSize != 2 {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestCatalogPlateConfigFallsBackToGeneric(t *testing.T) {
	dir := t.TempDir()
	c := Catalog{Dir: dir, PlateFile: "plates.onnx", GenericFile: "yolov8n.onnx"}

	cfg := c.PlateConfig()
	if cfg.Source != detection.SourceGeneric || cfg.Classes != COCOClasses {
		t.Errorf("got source %v with %d classes, want generic COCO", cfg.Source, cfg.Classes)
	}
	if cfg.Path != filepath.Join(dir, "yolov8n.onnx") {
		t.Errorf("path: got %s", cfg.Path)
	}
}

func TestCatalogAbsolutePaths(t *testing.T) {
	c := Catalog{Dir: "/models", FaceFile: "/opt/face.onnx"}
	if got := c.FaceConfig().Path; got != "/opt/face.onnx" {
		t.Errorf("absolute path rewritten to %s", got)
	}
	if got := c.FaceConfig().Source; got != detection.SourceTrusted {
		t.Errorf("face source: got %v", got)
	}
}

func TestNewYOLODetectorMissingFile(t *testing.T) {
	_, err := NewYOLODetector(YOLOConfig{Name: "face", Path: filepath.Join(t.TempDir(), "missing.onnx")})
	if err == nil {
		t.Fatal("expected an error for a missing model file")
	}
}

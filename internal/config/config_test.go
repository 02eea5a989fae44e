package config

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
	if cfg.MaxUploadBytes != 10485760 {
		t.Errorf("max upload: got %d, want 10 MiB", cfg.MaxUploadBytes)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PHOTO_ANON_ADDR", "127.0.0.1:9000")
	t.Setenv("PHOTO_ANON_FACE_THRESHOLD", "0.55")
	t.Setenv("PHOTO_ANON_COLOR", "#00ff00")
	t.Setenv("PHOTO_ANON_ENABLE_PLATES", "false")
	t.Setenv("PHOTO_ANON_REQUEST_TIMEOUT", "15s")
	t.Setenv("PHOTO_ANON_SESSION_POOL", "4")
	t.Setenv("PHOTO_ANON_WHOLE_IMAGE_FALLBACK", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := Default()
	want.Addr = "127.0.0.1:9000"
	want.FaceThreshold = 0.55
	want.Color = "#00ff00"
	want.EnablePlates = false
	want.RequestTimeout = 15 * time.Second
	want.SessionPool = 4
	want.WholeImageFallback = true
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadReportsEveryParseError(t *testing.T) {
	t.Setenv("PHOTO_ANON_MAX_UPLOAD_BYTES", "ten")
	t.Setenv("PHOTO_ANON_ENABLE_FACES", "maybe")
	t.Setenv("PHOTO_ANON_REQUEST_TIMEOUT", "60")

	_, err := Load()
	if err == nil {
		t.Fatal("expected an error")
	}
	for _, key := range []string{"MAX_UPLOAD_BYTES", "ENABLE_FACES", "REQUEST_TIMEOUT"} {
		if !strings.Contains(err.Error(), EnvPrefix+key) {
			t.Errorf("error does not mention %s: %v", key, err)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad color", func(c *Config) { c.Color = "yellow" }},
		{"short color", func(c *Config) { c.Color = "#FF0" }},
		{"threshold above one", func(c *Config) { c.PlateThreshold = 1.5 }},
		{"negative threshold", func(c *Config) { c.FaceThreshold = -0.1 }},
		{"zero upload limit", func(c *Config) { c.MaxUploadBytes = 0 }},
		{"empty pool", func(c *Config) { c.SessionPool = 0 }},
		{"zero timeout", func(c *Config) { c.RequestTimeout = 0 }},
		{"unknown log level", func(c *Config) { c.LogLevel = "verbose" }},
		{"no parallelism", func(c *Config) { c.VehicleParallelism = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			if err := c.Validate(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}

	if err := Default().Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

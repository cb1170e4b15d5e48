package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MatchThreshold != 0.8 || cfg.ScaleFactor != 1.1 || cfg.MinNeighbors != 4 {
		t.Fatalf("unexpected detector defaults: %+v", cfg)
	}
	if cfg.CanonicalWidth*cfg.CanonicalHeight != 16384 {
		t.Fatalf("unexpected canonical resolution %dx%d", cfg.CanonicalWidth, cfg.CanonicalHeight)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("FACE_MATCH_THRESHOLD", "0.75")
	t.Setenv("FACE_AUTH_ROLES", "user, student ,")
	t.Setenv("TOKEN_TTL", "1h")
	t.Setenv("FACE_DETECTOR", "contrast")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MatchThreshold != 0.75 {
		t.Fatalf("expected threshold override, got %v", cfg.MatchThreshold)
	}
	if len(cfg.AllowedRoles) != 2 || cfg.AllowedRoles[1] != "student" {
		t.Fatalf("unexpected roles %v", cfg.AllowedRoles)
	}
	if cfg.TokenTTL != time.Hour || cfg.Detector != "contrast" {
		t.Fatalf("unexpected overrides %+v", cfg)
	}
}

func TestLoadReportsMalformedValues(t *testing.T) {
	t.Setenv("FACE_MIN_NEIGHBORS", "four")
	t.Setenv("FACE_MATCH_THRESHOLD", "high")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed values")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.DatabaseDriver = "postgres"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected postgres without DSN to fail")
	}

	cfg = Default()
	cfg.ScaleFactor = 1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected scale factor 1 to fail")
	}
}

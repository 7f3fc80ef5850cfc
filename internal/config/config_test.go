package config

import (
	"testing"
	"time"

	"github.com/spf13/afero"
)

func TestConsolidateFileOverridesDefault(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/conf.json", []byte(`{"startupRuns": 7}`), 0o644)

	got, err := Consolidate(fs, "/conf.json", Config{})
	if err != nil {
		t.Fatalf("Consolidate: %v", err)
	}
	if got.StartupRuns != 7 {
		t.Fatalf("file layer should override the default StartupRuns=10, got %d", got.StartupRuns)
	}
	// Everything else should still come from Default().
	if got.StartupKalman != Default().StartupKalman {
		t.Fatalf("unrelated fields must retain their default, got %d", got.StartupKalman)
	}
}

func TestConsolidateCLIWinsOverFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/conf.json", []byte(`{"startupRuns": 7}`), 0o644)

	got, err := Consolidate(fs, "/conf.json", Config{StartupRuns: 42})
	if err != nil {
		t.Fatalf("Consolidate: %v", err)
	}
	if got.StartupRuns != 42 {
		t.Fatalf("an explicit CLI flag must win over the file layer, got %d", got.StartupRuns)
	}
}

func TestConsolidateNoFilePathKeepsDefaults(t *testing.T) {
	fs := afero.NewMemMapFs()
	got, err := Consolidate(fs, "", Config{})
	if err != nil {
		t.Fatalf("Consolidate: %v", err)
	}
	if got != Default() {
		t.Fatalf("with no file and no CLI overrides, expected exactly Default(), got %+v", got)
	}
}

func TestApplyLogDirDistinguishesUnsetFromEmpty(t *testing.T) {
	base := Default()
	base.TSMin = 9 * time.Millisecond

	overlay := Config{}
	out := base.Apply(overlay)
	if out.LogDir.Valid {
		t.Fatal("an unset overlay LogDir must not mark the result valid")
	}
	if out.TSMin != 9*time.Millisecond {
		t.Fatalf("Apply must preserve the base's non-zero fields when the overlay leaves them zero, got %v", out.TSMin)
	}
}

func TestApplyBoolFlagsOnlyEverTurnOn(t *testing.T) {
	base := Default()
	base.UseGPS = true

	out := base.Apply(Config{})
	if !out.UseGPS {
		t.Fatal("Apply must not clear a bool flag already set on the base")
	}
}

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/threadreel/threadreel/internal/config"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	want := config.Default()
	if cfg != want {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadOverridesAndBackfills(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `
[video]
max_length_seconds = 90
overlay_opacity = 0.8

[pacing]
lead_in_seconds = 2.0

[audio]
background_music_path = "assets/music/lofi.mp3"
music_volume = 0.15
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Video.MaxLengthSeconds != 90 {
		t.Fatalf("max length: got %v", cfg.Video.MaxLengthSeconds)
	}
	if cfg.Video.OverlayOpacity != 0.8 {
		t.Fatalf("opacity: got %v", cfg.Video.OverlayOpacity)
	}
	if cfg.Pacing.LeadInSeconds != 2.0 {
		t.Fatalf("lead in: got %v", cfg.Pacing.LeadInSeconds)
	}
	if cfg.Audio.MusicVolume != 0.15 {
		t.Fatalf("music volume: got %v", cfg.Audio.MusicVolume)
	}
	// Unset fields fall back to defaults.
	if cfg.Video.Width != 1080 || cfg.Video.Height != 1920 {
		t.Fatalf("resolution default missing: %dx%d", cfg.Video.Width, cfg.Video.Height)
	}
	if cfg.Output.MaxFilenameRune != 251 {
		t.Fatalf("filename clamp default missing: %d", cfg.Output.MaxFilenameRune)
	}
}

func TestLoadMalformedFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[video\nwidth="), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := config.Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	odd := config.Default()
	odd.Video.Width = 1081
	if err := odd.Validate(); err == nil {
		t.Fatal("expected odd width to fail validation")
	}

	neg := config.Default()
	neg.Pacing.TailPadSeconds = -1
	if err := neg.Validate(); err == nil {
		t.Fatal("expected negative pacing to fail validation")
	}

	loud := config.Default()
	loud.Audio.MusicVolume = 1.5
	if err := loud.Validate(); err == nil {
		t.Fatal("expected out-of-range volume to fail validation")
	}
}

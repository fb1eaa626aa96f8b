package videorenderer

import (
	"strings"
	"testing"

	"github.com/threadreel/threadreel/internal/background"
	"github.com/threadreel/threadreel/internal/config"
	"github.com/threadreel/threadreel/internal/timeline"
)

func TestResolveBackgroundDefaultsToMinecraft(t *testing.T) {
	cfg := config.Default()
	cfg.Audio.MusicVolume = 0.2

	spec, err := resolveBackground(Options{}, cfg)
	if err != nil {
		t.Fatalf("resolveBackground: %v", err)
	}
	if spec.Name != "minecraft" {
		t.Fatalf("default background: got %q", spec.Name)
	}
	if spec.MusicVolume != 0.2 {
		t.Fatalf("music volume not applied: got %v", spec.MusicVolume)
	}
}

func TestResolveBackgroundUnknownName(t *testing.T) {
	if _, err := resolveBackground(Options{BackgroundName: "no-such"}, config.Default()); err == nil {
		t.Fatal("expected an error for an unknown background")
	}
}

func TestResolveBackgroundCustomSpecWins(t *testing.T) {
	custom := &background.Spec{Name: "mine", SourcePath: "/tmp/mine.mp4", OverlayPosition: "center"}
	spec, err := resolveBackground(Options{BackgroundName: "gta", Background: custom}, config.Default())
	if err != nil {
		t.Fatalf("resolveBackground: %v", err)
	}
	if spec.Name != "mine" {
		t.Fatalf("custom spec ignored: got %q", spec.Name)
	}
}

func TestBuildVisualComposesScheduledOverlaysOnly(t *testing.T) {
	cfg := config.Default()
	spec := background.Spec{Name: "mine", SourcePath: "/tmp/mine.mp4", OverlayPosition: "center"}
	window := background.Window{Start: 10, End: 30}
	crop := background.Crop{Width: 1214, Height: 2160, X: 1313, Y: 0}

	artifacts := []segmentArtifact{
		{seg: timeline.Segment{ID: "title", Kind: timeline.KindTitle, Duration: 3}, image: "t.png"},
		{seg: timeline.Segment{ID: "0", Kind: timeline.KindReply, Duration: 4}, image: "c0.png"},
		{seg: timeline.Segment{ID: "1", Kind: timeline.KindReply, Duration: 5}, image: "c1.png"},
	}
	schedule := timeline.Schedule{
		Entries: []timeline.Entry{
			{SegmentID: "title", Start: 1.5, End: 4.5},
			{SegmentID: "0", Start: 6.5, End: 10.5},
		},
		IncludedIDs:   []string{"title", "0"},
		TotalDuration: 11.5,
	}

	visual := buildVisual(spec, window, crop, schedule, artifacts, cfg)
	joined := strings.Join(visual.Output("out.mp4").GetArgs(), " ")

	if got := strings.Count(joined, "overlay="); got != 2 {
		t.Fatalf("overlay count: got %d in %q", got, joined)
	}
	if strings.Contains(joined, "c1.png") {
		t.Fatalf("excluded segment's image present in %q", joined)
	}
	if !strings.Contains(joined, "crop=1214:2160:1313:0") {
		t.Fatalf("crop missing from %q", joined)
	}
}

// Package background prepares the raw gameplay footage: picking a
// window out of the source clip, validating the crop geometry against
// the target frame, and building the silent crop/scale job.
package background

import (
	"fmt"
	"math/rand"

	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"
	"golang.org/x/exp/slices"
)

// Spec describes one background source. It is an explicit value passed
// through the pipeline; nothing mutates it after construction.
type Spec struct {
	Name string
	// SourcePath is the local path of the downloaded footage.
	SourcePath string
	// Credit names the footage author for the end-of-run summary.
	Credit string
	// OverlayPosition is the vertical anchor for overlays, "center" or
	// a pixel offset from the top.
	OverlayPosition string
	// MusicVolume is the background-music level mixed under the
	// narration, 0..1. Zero disables mixing.
	MusicVolume float64
}

// builtin footage the downloader collaborator knows how to fetch.
// Keyed by name; values are immutable after init.
var builtin = map[string]Spec{
	"minecraft": {
		Name:            "minecraft",
		SourcePath:      "assets/backgrounds/bbswitzer-parkour.mp4",
		Credit:          "bbswitzer",
		OverlayPosition: "center",
	},
	"gta": {
		Name:            "gta",
		SourcePath:      "assets/backgrounds/DurteeDee-stunts.mp4",
		Credit:          "DurteeDee",
		OverlayPosition: "center",
	},
	"rocket-league": {
		Name:            "rocket-league",
		SourcePath:      "assets/backgrounds/Orbital_Gameplay-freestyle.mp4",
		Credit:          "Orbital Gameplay",
		OverlayPosition: "center",
	},
}

// Lookup returns the named builtin spec.
func Lookup(name string) (Spec, error) {
	spec, ok := builtin[name]
	if !ok {
		return Spec{}, errors.Errorf("unknown background %q (known: %v)", name, Names())
	}
	return spec, nil
}

// Names lists the builtin background names in stable order.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// GeometryError indicates the source footage cannot be cropped to the
// target aspect. It is raised before any transcoding starts.
type GeometryError struct {
	SrcWidth, SrcHeight       int
	TargetWidth, TargetHeight int
	Reason                    string
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("cannot crop %dx%d source to %dx%d: %s",
		e.SrcWidth, e.SrcHeight, e.TargetWidth, e.TargetHeight, e.Reason)
}

// Crop is a centered crop window inside the source frame whose aspect
// ratio exactly matches the target.
type Crop struct {
	Width, Height int
	X, Y          int
}

// PlanCrop computes the centered crop of the source that matches the
// target aspect ratio. Wider sources lose left/right margins, narrower
// sources lose top/bottom. The geometry is validated here so a bad
// source fails before the engine is ever invoked.
func PlanCrop(srcW, srcH, targetW, targetH int) (Crop, error) {
	if srcW <= 0 || srcH <= 0 {
		return Crop{}, &GeometryError{srcW, srcH, targetW, targetH, "empty source frame"}
	}
	if targetW <= 0 || targetH <= 0 {
		return Crop{}, &GeometryError{srcW, srcH, targetW, targetH, "empty target frame"}
	}

	var crop Crop
	// Compare aspects via cross-multiplication to stay in integers.
	if srcW*targetH >= srcH*targetW {
		// Source at least as wide as the target: full height, trim sides.
		crop.Height = srcH
		crop.Width = (srcH * targetW) / targetH
		crop.X = (srcW - crop.Width) / 2
	} else {
		// Source narrower: full width, trim top and bottom.
		crop.Width = srcW
		crop.Height = (srcW * targetH) / targetW
		crop.Y = (srcH - crop.Height) / 2
	}

	// Keep dimensions even for the encoder.
	crop.Width -= crop.Width % 2
	crop.Height -= crop.Height % 2

	if crop.Width <= 0 || crop.Height <= 0 || crop.X < 0 || crop.Y < 0 {
		return Crop{}, &GeometryError{srcW, srcH, targetW, targetH, "source too small"}
	}
	return crop, nil
}

// Window is the subclip of the source used behind this render.
type Window struct {
	Start, End float64
}

// windowFloor skips the typical intro portion of gameplay footage.
const windowFloor = 180

// PickWindow chooses a window of videoLength seconds inside the source.
// A pinStart > 0 pins the window for reproducible renders; otherwise
// the start is uniform over [windowFloor, sourceDuration-videoLength).
func PickWindow(rng *rand.Rand, sourceDuration, videoLength, pinStart float64) (Window, error) {
	if pinStart > 0 {
		if pinStart+videoLength > sourceDuration {
			return Window{}, errors.Errorf(
				"pinned window [%f,%f] exceeds source duration %f",
				pinStart, pinStart+videoLength, sourceDuration)
		}
		return Window{Start: pinStart, End: pinStart + videoLength}, nil
	}
	usable := sourceDuration - videoLength - windowFloor
	if usable <= 0 {
		return Window{}, errors.Errorf(
			"background source too short: need %f seconds past the first %d, have %f",
			videoLength, windowFloor, sourceDuration)
	}
	start := windowFloor + rng.Float64()*usable
	return Window{Start: start, End: start + videoLength}, nil
}

// PrepareStream builds the silent cropped/scaled background stream for
// the chosen window. The caller feeds it into the overlay chain and the
// final render job.
func PrepareStream(spec Spec, window Window, crop Crop, targetW, targetH int) *ffmpeg.Stream {
	return ffmpeg.Input(spec.SourcePath, ffmpeg.KwArgs{
		"ss": fmt.Sprintf("%.3f", window.Start),
		"t":  fmt.Sprintf("%.3f", window.End-window.Start),
	}).
		Filter("crop", ffmpeg.Args{
			fmt.Sprintf("%d:%d:%d:%d", crop.Width, crop.Height, crop.X, crop.Y),
		}).
		Filter("scale", ffmpeg.Args{
			fmt.Sprintf("%d:%d", targetW, targetH),
		})
}

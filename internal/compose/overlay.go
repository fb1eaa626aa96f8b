// Package compose builds the timed overlay chain: one screenshot per
// scheduled segment, visible only during its window, folded onto the
// prepared background in schedule order.
package compose

import (
	"fmt"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/threadreel/threadreel/internal/timeline"
)

// Overlay pairs a schedule entry with its screenshot artifact.
type Overlay struct {
	ImagePath string
	Entry     timeline.Entry
}

// Options controls overlay sizing and placement.
type Options struct {
	FrameWidth  int
	FrameHeight int
	// WidthFraction scales each screenshot to this fraction of the
	// frame width, preserving aspect ratio.
	WidthFraction float64
	// Opacity applies uniformly to every overlay, 0..1.
	Opacity float64
	// Position is the vertical anchor: "center" or a pixel offset from
	// the top of the frame.
	Position string
}

// Chain folds the overlays onto the background stream in order. Each
// step composes a new stream from the previous result; outside an
// entry's window only the accumulated background shows through. The
// windows never reorder, so the fold preserves the schedule exactly.
func Chain(bg *ffmpeg.Stream, overlays []Overlay, opts Options) *ffmpeg.Stream {
	out := bg
	for _, overlay := range overlays {
		out = apply(out, overlay, opts)
	}
	return out
}

func apply(base *ffmpeg.Stream, overlay Overlay, opts Options) *ffmpeg.Stream {
	scaledWidth := int(float64(opts.FrameWidth) * opts.WidthFraction)
	scaledWidth -= scaledWidth % 2

	image := ffmpeg.Input(overlay.ImagePath).
		Filter("scale", ffmpeg.Args{fmt.Sprintf("%d:-2", scaledWidth)})
	if opts.Opacity < 1 {
		image = image.
			Filter("format", ffmpeg.Args{"rgba"}).
			Filter("colorchannelmixer", ffmpeg.Args{fmt.Sprintf("aa=%.2f", opts.Opacity)})
	}

	return ffmpeg.Filter(
		[]*ffmpeg.Stream{base, image},
		"overlay",
		ffmpeg.Args{
			"x=(W-w)/2",
			fmt.Sprintf("y=%s", yExpr(opts.Position)),
			fmt.Sprintf("enable='between(t,%.3f,%.3f)'", overlay.Entry.Start, overlay.Entry.End),
		},
	)
}

func yExpr(position string) string {
	if position == "" || position == "center" {
		return "(H-h)/2"
	}
	return position
}

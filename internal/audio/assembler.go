// Package audio assembles the narration track: a gapless concatenation
// of the included segments' clips, optionally with background music
// mixed underneath. The perceptual spacing between segments lives in
// the overlay schedule, never in the audio itself.
package audio

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Layout is the ordered list of narration clips to concatenate,
// already filtered down to the segments the schedule included.
type Layout struct {
	ClipPaths []string
}

// WriteConcatList writes the ffmpeg concat-demuxer list for the layout
// and returns its path. Single quotes in paths are escaped the way the
// demuxer expects.
func WriteConcatList(layout Layout, listPath string) (string, error) {
	if len(layout.ClipPaths) == 0 {
		return "", errors.New("no narration clips to concatenate")
	}
	var b strings.Builder
	for _, clip := range layout.ClipPaths {
		escaped := strings.ReplaceAll(clip, "'", `'\''`)
		fmt.Fprintf(&b, "file '%s'\n", escaped)
	}
	if err := os.WriteFile(listPath, []byte(b.String()), 0o644); err != nil {
		return "", errors.Wrap(err, "write concat list")
	}
	return listPath, nil
}

// NarrationStream returns the gapless concatenation of the clips named
// in the concat list.
func NarrationStream(listPath string) *ffmpeg.Stream {
	return ffmpeg.Input(listPath, ffmpeg.KwArgs{
		"f":    "concat",
		"safe": 0,
	})
}

// AssembleStream returns the final audio stream for the render job and
// whether music was actually mixed in.
//
// With a zero volume the narration stream is returned untouched, so the
// output is identical to the plain concatenation. With a nonzero volume
// and a readable music file, the music is leveled and mixed under the
// narration with a longest-duration policy. A configured-but-missing
// music file is recoverable: mixing is skipped with a warning.
func AssembleStream(listPath, musicPath string, volume float64, verbose bool) (*ffmpeg.Stream, bool) {
	narration := NarrationStream(listPath)
	if volume <= 0 {
		return narration, false
	}
	if musicPath == "" {
		log.Printf("Warning: music volume %.2f configured but no background music path set; skipping mix", volume)
		return narration, false
	}
	if _, err := os.Stat(musicPath); err != nil {
		log.Printf("Warning: background music %s unavailable (%v); skipping mix", musicPath, err)
		return narration, false
	}
	if verbose {
		log.Printf("Mixing background music %s at volume %.2f", musicPath, volume)
	}

	music := ffmpeg.Input(musicPath).
		Filter("volume", ffmpeg.Args{fmt.Sprintf("%.3f", volume)})

	mixed := ffmpeg.Filter(
		[]*ffmpeg.Stream{narration, music},
		"amix",
		ffmpeg.Args{
			"inputs=2",
			"duration=longest",
		},
	)
	return mixed, true
}

// Package media resolves durations and dimensions of already-produced
// artifacts via ffprobe. Artifacts are immutable once upstream finishes
// writing them, so results may be cached freely by callers.
package media

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// ReadError indicates an artifact is missing or unreadable. It is fatal
// and aborts the run before any transcoding starts.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("cannot read media %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Metadata contains probed properties of a media file.
type Metadata struct {
	Duration float64
	Width    int
	Height   int
	Codec    string
}

// DurationSeconds returns the duration of an audio artifact in seconds.
func DurationSeconds(path string) (float64, error) {
	probe, err := ffmpeg.Probe(path)
	if err != nil {
		return 0, &ReadError{Path: path, Err: err}
	}
	duration, err := ParseDuration(probe)
	if err != nil {
		return 0, &ReadError{Path: path, Err: err}
	}
	return duration, nil
}

// ProbeVideo returns duration and dimensions of a video file.
func ProbeVideo(path string) (*Metadata, error) {
	probe, err := ffmpeg.Probe(path)
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}
	meta, err := ParseVideoMetadata(probe)
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}
	return meta, nil
}

// ParseDuration extracts a positive duration from raw ffprobe JSON,
// preferring the container duration and falling back to the first
// stream that carries one.
func ParseDuration(probe string) (float64, error) {
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(probe), &data); err != nil {
		return 0, errors.WithStack(err)
	}

	if format, ok := data["format"].(map[string]interface{}); ok {
		if d := parseFloatField(format, "duration"); d > 0 {
			return d, nil
		}
	}

	streams, _ := data["streams"].([]interface{})
	for _, stream := range streams {
		s, ok := stream.(map[string]interface{})
		if !ok {
			continue
		}
		if d := parseFloatField(s, "duration"); d > 0 {
			return d, nil
		}
	}

	return 0, errors.New("could not determine duration")
}

// ParseVideoMetadata extracts duration and dimensions from raw ffprobe
// JSON for a file with at least one video stream.
func ParseVideoMetadata(probe string) (*Metadata, error) {
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(probe), &data); err != nil {
		return nil, errors.WithStack(err)
	}

	streams, ok := data["streams"].([]interface{})
	if !ok || len(streams) == 0 {
		return nil, errors.New("no streams found")
	}

	var videoStream map[string]interface{}
	for _, stream := range streams {
		s, ok := stream.(map[string]interface{})
		if !ok {
			continue
		}
		if codecType, _ := s["codec_type"].(string); codecType == "video" {
			videoStream = s
			break
		}
	}
	if videoStream == nil {
		return nil, errors.New("no video stream found")
	}

	duration := parseFloatField(videoStream, "duration")
	if duration == 0 {
		if format, ok := data["format"].(map[string]interface{}); ok {
			duration = parseFloatField(format, "duration")
		}
	}
	if duration == 0 {
		// Last resort: frame count over frame rate.
		if frames := parseFloatField(videoStream, "nb_frames"); frames > 0 {
			if rate := parseFrameRate(videoStream); rate > 0 {
				duration = frames / rate
			}
		}
	}
	if duration == 0 {
		return nil, errors.New("could not determine video duration")
	}

	width, _ := videoStream["width"].(float64)
	height, _ := videoStream["height"].(float64)
	if width == 0 || height == 0 {
		return nil, errors.New("could not determine video dimensions")
	}
	codec, _ := videoStream["codec_name"].(string)

	return &Metadata{
		Duration: duration,
		Width:    int(width),
		Height:   int(height),
		Codec:    codec,
	}, nil
}

func parseFloatField(m map[string]interface{}, key string) float64 {
	switch v := m[key].(type) {
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	case float64:
		return v
	}
	return 0
}

func parseFrameRate(stream map[string]interface{}) float64 {
	rate, _ := stream["r_frame_rate"].(string)
	parts := strings.Split(rate, "/")
	if len(parts) != 2 {
		return 0
	}
	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}
	return num / den
}

package config

import (
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// Video contains output encoding and framing parameters.
type Video struct {
	Width        int    `toml:"width"`
	Height       int    `toml:"height"`
	VideoBitrate string `toml:"video_bitrate"`
	AudioBitrate string `toml:"audio_bitrate"`
	// MaxLengthSeconds caps the rendered video. Segments whose narration
	// would start past the cap are dropped, never reordered.
	MaxLengthSeconds float64 `toml:"max_length_seconds"`
	// OverlayOpacity applies to every screenshot overlay, 0..1.
	OverlayOpacity float64 `toml:"overlay_opacity"`
	// OverlayWidthFraction is the overlay width as a fraction of the frame.
	OverlayWidthFraction float64 `toml:"overlay_width_fraction"`
}

// Pacing contains the fixed spacing constants around narration clips.
type Pacing struct {
	LeadInSeconds   float64 `toml:"lead_in_seconds"`
	TTSPadSeconds   float64 `toml:"tts_pad_seconds"`
	InterPadSeconds float64 `toml:"inter_pad_seconds"`
	TailPadSeconds  float64 `toml:"tail_pad_seconds"`
}

// Audio contains background music settings. A zero volume disables mixing.
type Audio struct {
	BackgroundMusicPath string  `toml:"background_music_path"`
	MusicVolume         float64 `toml:"music_volume"`
}

// Output controls where results land and what happens to temp files.
type Output struct {
	ResultsDir      string `toml:"results_dir"`
	NarrationOnly   bool   `toml:"narration_only"`
	CleanupTempDir  bool   `toml:"cleanup_temp_dir"`
	MaxFilenameRune int    `toml:"max_filename_runes"`
}

// Config is the full renderer configuration surface.
type Config struct {
	Video  Video  `toml:"video"`
	Pacing Pacing `toml:"pacing"`
	Audio  Audio  `toml:"audio"`
	Output Output `toml:"output"`
}

// Default returns the baseline configuration matching a 1080x1920
// vertical short with the stock pacing.
func Default() Config {
	return Config{
		Video: Video{
			Width:                1080,
			Height:               1920,
			VideoBitrate:         "6M",
			AudioBitrate:         "192k",
			MaxLengthSeconds:     50,
			OverlayOpacity:       0.9,
			OverlayWidthFraction: 0.9,
		},
		Pacing: Pacing{
			LeadInSeconds:   1,
			TTSPadSeconds:   0.5,
			InterPadSeconds: 1,
			TailPadSeconds:  1,
		},
		Audio: Audio{
			MusicVolume: 0,
		},
		Output: Output{
			ResultsDir:      "results",
			NarrationOnly:   false,
			CleanupTempDir:  true,
			MaxFilenameRune: 251,
		},
	}
}

// Load reads the TOML configuration from path. A missing file yields the
// defaults; a present but malformed file is an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, errors.Wrap(err, "read config")
	}
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "parse config")
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	d := Default()
	if c.Video.Width <= 0 {
		c.Video.Width = d.Video.Width
	}
	if c.Video.Height <= 0 {
		c.Video.Height = d.Video.Height
	}
	if c.Video.VideoBitrate == "" {
		c.Video.VideoBitrate = d.Video.VideoBitrate
	}
	if c.Video.AudioBitrate == "" {
		c.Video.AudioBitrate = d.Video.AudioBitrate
	}
	if c.Video.MaxLengthSeconds <= 0 {
		c.Video.MaxLengthSeconds = d.Video.MaxLengthSeconds
	}
	if c.Video.OverlayOpacity <= 0 || c.Video.OverlayOpacity > 1 {
		c.Video.OverlayOpacity = d.Video.OverlayOpacity
	}
	if c.Video.OverlayWidthFraction <= 0 || c.Video.OverlayWidthFraction > 1 {
		c.Video.OverlayWidthFraction = d.Video.OverlayWidthFraction
	}
	if c.Output.ResultsDir == "" {
		c.Output.ResultsDir = d.Output.ResultsDir
	}
	if c.Output.MaxFilenameRune <= 0 {
		c.Output.MaxFilenameRune = d.Output.MaxFilenameRune
	}
}

// Validate rejects configurations the pipeline cannot honor.
func (c Config) Validate() error {
	if c.Video.Width%2 != 0 || c.Video.Height%2 != 0 {
		return errors.Errorf("resolution %dx%d must have even dimensions", c.Video.Width, c.Video.Height)
	}
	if c.Pacing.LeadInSeconds < 0 || c.Pacing.TTSPadSeconds < 0 ||
		c.Pacing.InterPadSeconds < 0 || c.Pacing.TailPadSeconds < 0 {
		return errors.New("pacing constants must be non-negative")
	}
	if c.Audio.MusicVolume < 0 || c.Audio.MusicVolume > 1 {
		return errors.Errorf("music volume %.2f out of range [0,1]", c.Audio.MusicVolume)
	}
	return nil
}

// Package videorenderer turns a narrated thread's prepared artifacts
// into rendered vertical video: it schedules the segments, prepares the
// background, assembles the audio, composes the timed overlays, and
// drives the transcoding engine for each requested output variant.
package videorenderer

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/threadreel/threadreel/internal/audio"
	"github.com/threadreel/threadreel/internal/background"
	"github.com/threadreel/threadreel/internal/compose"
	"github.com/threadreel/threadreel/internal/config"
	"github.com/threadreel/threadreel/internal/media"
	"github.com/threadreel/threadreel/internal/output"
	"github.com/threadreel/threadreel/internal/render"
	"github.com/threadreel/threadreel/internal/timeline"
)

// Options selects the content to render. The narration and screenshot
// artifacts are expected to already exist under the temp layout.
type Options struct {
	ContentID string
	Subreddit string
	Title     string
	// ReplyCount is how many reply segments upstream produced.
	ReplyCount int
	// IncludeBody schedules the post body between title and replies.
	IncludeBody bool

	// BackgroundName picks a builtin background; Background overrides
	// it with a fully custom spec.
	BackgroundName string
	Background     *background.Spec
	// BackgroundStart pins the background window for reproducible
	// renders; 0 picks a random window.
	BackgroundStart float64

	// TempRoot overrides the assets/temp artifact root.
	TempRoot string

	Config  config.Config
	Verbose bool

	// Observer, when set, is called per render job with the job name
	// and returns a progress callback plus a finish func.
	Observer func(job string) (func(render.Progress), func())
}

// VariantResult is the terminal outcome of one output variant.
type VariantResult struct {
	Name   string
	Result *render.Result
	Err    error
}

// Summary reports everything a caller wants to print after a run.
type Summary struct {
	Paths            output.Paths
	Schedule         timeline.Schedule
	BackgroundCredit string
	Variants         []VariantResult
	CleanedFiles     int
}

type segmentArtifact struct {
	seg   timeline.Segment
	audio string
	image string
}

// Render runs the full pipeline for one thread. Fatal errors from the
// shared stages abort the run; once the shared stages are done, each
// output variant runs independently and a failure of one does not
// abort the other.
func Render(ctx context.Context, opts Options) (*Summary, error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.ContentID == "" {
		return nil, errors.New("content id is required")
	}

	spec, err := resolveBackground(opts, cfg)
	if err != nil {
		return nil, err
	}

	layout := output.NewLayout(opts.TempRoot, opts.ContentID)

	// Resolve narration durations for every produced segment.
	artifacts, err := gatherSegments(layout, opts)
	if err != nil {
		return nil, err
	}

	segments := make([]timeline.Segment, len(artifacts))
	for i, a := range artifacts {
		segments[i] = a.seg
	}
	schedule := timeline.Build(segments, timeline.Pacing{
		LeadIn:   cfg.Pacing.LeadInSeconds,
		TTSPad:   cfg.Pacing.TTSPadSeconds,
		InterPad: cfg.Pacing.InterPadSeconds,
		TailPad:  cfg.Pacing.TailPadSeconds,
	}, cfg.Video.MaxLengthSeconds)
	if opts.Verbose {
		log.Printf("Scheduled %d of %d segments, %.2fs total",
			len(schedule.Entries), len(segments), schedule.TotalDuration)
	}

	// Background geometry is validated before the engine ever runs.
	meta, err := media.ProbeVideo(spec.SourcePath)
	if err != nil {
		return nil, err
	}
	crop, err := background.PlanCrop(meta.Width, meta.Height, cfg.Video.Width, cfg.Video.Height)
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	window, err := background.PickWindow(rng, meta.Duration, schedule.TotalDuration, opts.BackgroundStart)
	if err != nil {
		return nil, err
	}
	if opts.Verbose {
		log.Printf("Background %s window [%.2f,%.2f], crop %dx%d+%d+%d",
			spec.Name, window.Start, window.End, crop.Width, crop.Height, crop.X, crop.Y)
	}

	manager := output.Manager{
		ResultsDir:        cfg.Output.ResultsDir,
		Subreddit:         opts.Subreddit,
		MaxFilenameRune:   cfg.Output.MaxFilenameRune,
		WithNarrationOnly: cfg.Output.NarrationOnly,
	}
	paths, err := manager.Resolve(opts.Title)
	if err != nil {
		return nil, err
	}

	driver := render.NewDriver(opts.Verbose)

	narrationPath, mixedPath, err := assembleAudio(ctx, driver, layout, schedule, artifacts, spec, cfg, opts)
	if err != nil {
		return nil, err
	}

	visual := buildVisual(spec, window, crop, schedule, artifacts, cfg)

	summary := &Summary{
		Paths:            paths,
		Schedule:         schedule,
		BackgroundCredit: spec.Credit,
	}

	mainAudio := narrationPath
	if mixedPath != "" {
		mainAudio = mixedPath
	}
	summary.Variants = append(summary.Variants,
		runVariant(ctx, driver, opts, "final video", visual, mainAudio, paths.Final, schedule.TotalDuration, cfg))

	if cfg.Output.NarrationOnly {
		summary.Variants = append(summary.Variants,
			runVariant(ctx, driver, opts, "narration-only video", visual, narrationPath, paths.NarrationOnly, schedule.TotalDuration, cfg))
	}

	var firstErr error
	for _, variant := range summary.Variants {
		if variant.Err != nil && firstErr == nil {
			firstErr = variant.Err
		}
	}

	if firstErr == nil && cfg.Output.CleanupTempDir {
		summary.CleanedFiles = output.Cleanup(layout)
		log.Printf("Removed %d temporary files", summary.CleanedFiles)
	}

	return summary, firstErr
}

func resolveBackground(opts Options, cfg config.Config) (background.Spec, error) {
	if opts.Background != nil {
		return *opts.Background, nil
	}
	name := opts.BackgroundName
	if name == "" {
		name = "minecraft"
	}
	spec, err := background.Lookup(name)
	if err != nil {
		return background.Spec{}, err
	}
	spec.MusicVolume = cfg.Audio.MusicVolume
	return spec, nil
}

func gatherSegments(layout output.Layout, opts Options) ([]segmentArtifact, error) {
	artifacts := []segmentArtifact{{
		seg:   timeline.Segment{ID: "title", Kind: timeline.KindTitle},
		audio: layout.TitleAudio(),
		image: layout.TitleImage(),
	}}
	if opts.IncludeBody {
		artifacts = append(artifacts, segmentArtifact{
			seg:   timeline.Segment{ID: "body", Kind: timeline.KindBody},
			audio: layout.BodyAudio(),
			image: layout.BodyImage(),
		})
	}
	for i := 0; i < opts.ReplyCount; i++ {
		artifacts = append(artifacts, segmentArtifact{
			seg:   timeline.Segment{ID: fmt.Sprintf("%d", i), Kind: timeline.KindReply},
			audio: layout.ReplyAudio(i),
			image: layout.ReplyImage(i),
		})
	}
	for i := range artifacts {
		duration, err := media.DurationSeconds(artifacts[i].audio)
		if err != nil {
			return nil, err
		}
		artifacts[i].seg.Duration = duration
	}
	return artifacts, nil
}

// assembleAudio renders the gapless narration track and, when music is
// configured and available, the mixed track. Both are produced up
// front so the output variants stay independent afterwards.
func assembleAudio(
	ctx context.Context,
	driver *render.Driver,
	layout output.Layout,
	schedule timeline.Schedule,
	artifacts []segmentArtifact,
	spec background.Spec,
	cfg config.Config,
	opts Options,
) (narrationPath, mixedPath string, err error) {
	var clips []string
	var narrationTotal float64
	for _, a := range artifacts {
		if !schedule.Included(a.seg.ID) {
			continue
		}
		clips = append(clips, a.audio)
		narrationTotal += a.seg.Duration
	}
	listPath, err := audio.WriteConcatList(audio.Layout{ClipPaths: clips}, layout.ConcatList())
	if err != nil {
		return "", "", err
	}

	narrationPath = layout.AudioTrack("tts")
	narrationJob := render.Job{
		Name: "narration track",
		Stream: audio.NarrationStream(listPath).
			Output(narrationPath, ffmpeg.KwArgs{"c:a": "copy"}),
		OutputPath:       narrationPath,
		ExpectedDuration: narrationTotal,
	}
	if _, err := runJob(ctx, driver, opts, narrationJob); err != nil {
		return "", "", err
	}

	mixStream, mixedIn := audio.AssembleStream(listPath, cfg.Audio.BackgroundMusicPath, spec.MusicVolume, opts.Verbose)
	if !mixedIn {
		return narrationPath, "", nil
	}
	mixedPath = layout.AudioTrack("mixed")
	mixJob := render.Job{
		Name: "music mix",
		Stream: mixStream.
			Output(mixedPath, ffmpeg.KwArgs{"c:a": "libmp3lame", "q:a": 2}),
		OutputPath:       mixedPath,
		ExpectedDuration: narrationTotal,
	}
	if _, err := runJob(ctx, driver, opts, mixJob); err != nil {
		return "", "", err
	}
	return narrationPath, mixedPath, nil
}

func buildVisual(
	spec background.Spec,
	window background.Window,
	crop background.Crop,
	schedule timeline.Schedule,
	artifacts []segmentArtifact,
	cfg config.Config,
) *ffmpeg.Stream {
	imageByID := make(map[string]string, len(artifacts))
	for _, a := range artifacts {
		imageByID[a.seg.ID] = a.image
	}
	overlays := make([]compose.Overlay, 0, len(schedule.Entries))
	for _, entry := range schedule.Entries {
		overlays = append(overlays, compose.Overlay{
			ImagePath: imageByID[entry.SegmentID],
			Entry:     entry,
		})
	}

	bg := background.PrepareStream(spec, window, crop, cfg.Video.Width, cfg.Video.Height)
	return compose.Chain(bg, overlays, compose.Options{
		FrameWidth:    cfg.Video.Width,
		FrameHeight:   cfg.Video.Height,
		WidthFraction: cfg.Video.OverlayWidthFraction,
		Opacity:       cfg.Video.OverlayOpacity,
		Position:      spec.OverlayPosition,
	})
}

func runVariant(
	ctx context.Context,
	driver *render.Driver,
	opts Options,
	name string,
	visual *ffmpeg.Stream,
	audioPath, outputPath string,
	totalDuration float64,
	cfg config.Config,
) VariantResult {
	job := render.Job{
		Name: name,
		Stream: ffmpeg.Output(
			[]*ffmpeg.Stream{visual, ffmpeg.Input(audioPath)},
			outputPath,
			ffmpeg.KwArgs{
				"c:v":      "libx264",
				"c:a":      "aac",
				"b:v":      cfg.Video.VideoBitrate,
				"b:a":      cfg.Video.AudioBitrate,
				"pix_fmt":  "yuv420p",
				"r":        30,
				"t":        fmt.Sprintf("%.3f", totalDuration),
				"threads":  render.OptimalThreadCount(),
				"movflags": "+faststart",
			},
		),
		OutputPath:       outputPath,
		ExpectedDuration: totalDuration,
	}
	result, err := runJob(ctx, driver, opts, job)
	return VariantResult{Name: name, Result: result, Err: err}
}

func runJob(ctx context.Context, driver *render.Driver, opts Options, job render.Job) (*render.Result, error) {
	var onProgress func(render.Progress)
	finish := func() {}
	if opts.Observer != nil {
		onProgress, finish = opts.Observer(job.Name)
	}
	result, err := driver.Run(ctx, job, onProgress)
	finish()
	return result, err
}

// Package output owns filesystem naming: the per-content temp layout
// the upstream collaborators populate, the results tree, and the
// best-effort teardown after a successful render.
package output

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// Layout is the per-content temporary directory the upstream systems
// fill with narration and screenshot artifacts before the core runs.
// The directory is exclusively owned by one pipeline run.
type Layout struct {
	Root      string
	ContentID string
}

// NewLayout returns the layout under root (default assets/temp).
func NewLayout(root, contentID string) Layout {
	if root == "" {
		root = filepath.Join("assets", "temp")
	}
	return Layout{Root: root, ContentID: contentID}
}

func (l Layout) Dir() string      { return filepath.Join(l.Root, l.ContentID) }
func (l Layout) AudioDir() string { return filepath.Join(l.Dir(), "mp3") }
func (l Layout) ImageDir() string { return filepath.Join(l.Dir(), "png") }

// TitleAudio is the narration clip for the title segment.
func (l Layout) TitleAudio() string { return filepath.Join(l.AudioDir(), "title.mp3") }

// ReplyAudio is the narration clip for the i-th reply segment.
func (l Layout) ReplyAudio(i int) string {
	return filepath.Join(l.AudioDir(), fmt.Sprintf("%d.mp3", i))
}

// BodyAudio is the narration clip for the post body, present only for
// story-style content.
func (l Layout) BodyAudio() string { return filepath.Join(l.AudioDir(), "posttext.mp3") }

// TitleImage is the screenshot for the title segment.
func (l Layout) TitleImage() string { return filepath.Join(l.ImageDir(), "title.png") }

// ReplyImage is the screenshot for the i-th reply segment.
func (l Layout) ReplyImage(i int) string {
	return filepath.Join(l.ImageDir(), fmt.Sprintf("comment_%d.png", i))
}

// BodyImage is the screenshot for the post body.
func (l Layout) BodyImage() string { return filepath.Join(l.ImageDir(), "posttext.png") }

// ConcatList is where the narration concat list is written.
func (l Layout) ConcatList() string { return filepath.Join(l.Dir(), "list.txt") }

// AudioTrack is the assembled audio for the named variant.
func (l Layout) AudioTrack(variant string) string {
	return filepath.Join(l.Dir(), fmt.Sprintf("audio_%s.mp3", variant))
}

var (
	slashPattern   = regexp.MustCompile(`\s*/\s*`)
	nonWordPattern = regexp.MustCompile(`[^\w\s-]`)
	spacePattern   = regexp.MustCompile(`\s+`)
)

// SafeFilename turns a human-readable title into a filesystem-safe
// filename without extension. Slashes read as alternatives, so they
// become "or"; everything else non-word is stripped. The length clamp
// runs last, after all text transformation, so downstream renames can
// never push the name past maxRunes.
func SafeFilename(title string, maxRunes int) string {
	name := slashPattern.ReplaceAllString(title, " or ")
	name = nonWordPattern.ReplaceAllString(name, "")
	name = strings.TrimSpace(spacePattern.ReplaceAllString(name, " "))
	if name == "" {
		name = "untitled"
	}
	runes := []rune(name)
	if maxRunes > 0 && len(runes) > maxRunes {
		name = strings.TrimSpace(string(runes[:maxRunes]))
	}
	return name
}

// Paths are the resolved output destinations for one render.
type Paths struct {
	Final         string
	NarrationOnly string
}

// Manager resolves and prepares result destinations.
type Manager struct {
	ResultsDir      string
	Subreddit       string
	MaxFilenameRune int
	// WithNarrationOnly also prepares the OnlyTTS variant path; the
	// caller decides whether that variant is rendered.
	WithNarrationOnly bool
}

// Resolve returns absolute output paths for the title, creating the
// destination directories on first use.
func (m Manager) Resolve(title string) (Paths, error) {
	name := SafeFilename(title, m.MaxFilenameRune)
	baseDir := filepath.Join(m.ResultsDir, m.Subreddit)
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return Paths{}, errors.Wrap(err, "create results directory")
	}

	var paths Paths
	final, err := filepath.Abs(filepath.Join(baseDir, name+".mp4"))
	if err != nil {
		return Paths{}, errors.WithStack(err)
	}
	paths.Final = final

	if m.WithNarrationOnly {
		ttsDir := filepath.Join(baseDir, "OnlyTTS")
		if err := os.MkdirAll(ttsDir, 0o755); err != nil {
			return Paths{}, errors.Wrap(err, "create OnlyTTS directory")
		}
		only, err := filepath.Abs(filepath.Join(ttsDir, name+".mp4"))
		if err != nil {
			return Paths{}, errors.WithStack(err)
		}
		paths.NarrationOnly = only
	}
	return paths, nil
}

// Cleanup removes the layout's temp directory and returns the number of
// files actually removed. Teardown is best-effort: files that are
// already gone are logged and skipped, never escalated.
func Cleanup(layout Layout) int {
	removed := 0
	root := layout.Dir()
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if !os.IsNotExist(err) {
				log.Printf("Warning: cleanup could not inspect %s: %v", path, err)
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if err := os.Remove(path); err != nil {
			if !os.IsNotExist(err) {
				log.Printf("Warning: cleanup could not remove %s: %v", path, err)
			}
			return nil
		}
		removed++
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: cleanup walk of %s: %v", root, err)
	}
	if err := os.RemoveAll(root); err != nil {
		log.Printf("Warning: cleanup could not remove %s: %v", root, err)
	}
	return removed
}

package render

import (
	"github.com/schollz/progressbar/v3"
)

// NewBarObserver returns a progress callback backed by a terminal
// progress bar, plus a finish func the caller runs after the job ends.
func NewBarObserver(description string) (func(Progress), func()) {
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionClearOnFinish(),
	)
	observe := func(p Progress) {
		_ = bar.Set(int(p.Fraction * 100))
	}
	finish := func() {
		_ = bar.Finish()
	}
	return observe, finish
}

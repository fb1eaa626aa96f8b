// Package timeline converts ordered narration durations into the
// absolute schedule that the audio track and the overlay windows share.
package timeline

// SegmentKind distinguishes the narrated units of a thread.
type SegmentKind string

const (
	KindTitle SegmentKind = "title"
	KindBody  SegmentKind = "body"
	KindReply SegmentKind = "reply"
)

// Segment is one narrated unit with a resolved audio duration.
// Identity is the position in the original sequence; the ID is the
// stable artifact key assigned upstream.
type Segment struct {
	ID       string
	Kind     SegmentKind
	Duration float64
}

// Pacing holds the fixed spacing constants, all in seconds.
type Pacing struct {
	// LeadIn is the silence before the first image appears.
	LeadIn float64
	// TTSPad is the padding before and after each narration clip so
	// images do not pop abruptly.
	TTSPad float64
	// InterPad is the gap contributed between consecutive segments.
	InterPad float64
	// TailPad is the trailing silence before the render ends.
	TailPad float64
}

// Entry is one scheduled segment. The overlay for the segment is
// visible during [Start, End]; the narration clip itself is
// AudioDuration long and the schedule guarantees End >= Start + AudioDuration.
type Entry struct {
	SegmentID     string
	Start         float64
	End           float64
	AudioDuration float64
}

// Schedule is the computed absolute-time layout of included segments.
type Schedule struct {
	Entries       []Entry
	IncludedIDs   []string
	TotalDuration float64
}

// Build computes the schedule for the given segments under the pacing
// constants and the hard length cap.
//
// The first segment (the title) is always included. Each following
// segment is appended while the running schedule, including the tail
// pad, still fits under maxLength; the first segment scheduled while
// under the cap may overshoot it, after which all remaining segments
// are dropped. Truncation is the designed response to overflow, so no
// error is ever returned, and inclusion is deterministic and
// order-preserving.
func Build(segments []Segment, pacing Pacing, maxLength float64) Schedule {
	if len(segments) == 0 {
		return Schedule{TotalDuration: pacing.LeadIn + pacing.TailPad}
	}

	title := segments[0]
	start := pacing.LeadIn + pacing.TTSPad
	entries := []Entry{{
		SegmentID:     title.ID,
		Start:         start,
		End:           start + title.Duration,
		AudioDuration: title.Duration,
	}}
	cursor := start + title.Duration

	for _, seg := range segments[1:] {
		if cursor+pacing.TailPad > maxLength {
			break
		}
		offset := 2*pacing.TTSPad + pacing.InterPad
		entries = append(entries, Entry{
			SegmentID:     seg.ID,
			Start:         cursor + offset,
			End:           cursor + offset + seg.Duration,
			AudioDuration: seg.Duration,
		})
		cursor += offset + seg.Duration
	}

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.SegmentID
	}

	return Schedule{
		Entries:       entries,
		IncludedIDs:   ids,
		TotalDuration: cursor + pacing.TailPad,
	}
}

// Included reports whether the segment with the given ID made the cut.
func (s Schedule) Included(id string) bool {
	for _, included := range s.IncludedIDs {
		if included == id {
			return true
		}
	}
	return false
}

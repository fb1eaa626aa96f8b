package timeline

import (
	"math"
	"reflect"
	"testing"
)

var stockPacing = Pacing{LeadIn: 1, TTSPad: 0.5, InterPad: 1, TailPad: 1}

func segs(durations ...float64) []Segment {
	out := make([]Segment, len(durations))
	for i, d := range durations {
		kind := KindReply
		id := string(rune('a' + i))
		if i == 0 {
			kind = KindTitle
			id = "title"
		}
		out[i] = Segment{ID: id, Kind: kind, Duration: d}
	}
	return out
}

func TestBuildFullScenario(t *testing.T) {
	// 1 title (3.0s) + 2 replies (4.0s, 6.0s) under a 60s cap: all fit.
	sched := Build(segs(3, 4, 6), stockPacing, 60)

	if len(sched.IncludedIDs) != 3 {
		t.Fatalf("included: got %v", sched.IncludedIDs)
	}
	if math.Abs(sched.TotalDuration-19.5) > 1e-9 {
		t.Fatalf("total duration: got %v want 19.5", sched.TotalDuration)
	}

	want := []Entry{
		{SegmentID: "title", Start: 1.5, End: 4.5, AudioDuration: 3},
		{SegmentID: "b", Start: 6.5, End: 10.5, AudioDuration: 4},
		{SegmentID: "c", Start: 12.5, End: 18.5, AudioDuration: 6},
	}
	for i, entry := range sched.Entries {
		if math.Abs(entry.Start-want[i].Start) > 1e-9 || math.Abs(entry.End-want[i].End) > 1e-9 {
			t.Fatalf("entry %d: got [%v,%v] want [%v,%v]",
				i, entry.Start, entry.End, want[i].Start, want[i].End)
		}
	}
}

func TestBuildTruncates(t *testing.T) {
	// Title plus at most one reply fit under a 10s cap; the second
	// reply is excluded, never reordered or partially included.
	sched := Build(segs(5, 5, 5), stockPacing, 10)

	if len(sched.IncludedIDs) != 2 {
		t.Fatalf("included: got %d ids %v, want 2", len(sched.IncludedIDs), sched.IncludedIDs)
	}
	if sched.Included("c") {
		t.Fatal("second reply should be excluded")
	}
	// The overshoot never exceeds one segment's offset plus duration.
	limit := 10 + 2*stockPacing.TTSPad + stockPacing.InterPad + 5
	if sched.TotalDuration > limit+1e-9 {
		t.Fatalf("total duration %v exceeds worst-case bound %v", sched.TotalDuration, limit)
	}
}

func TestBuildTitleAlwaysIncluded(t *testing.T) {
	sched := Build(segs(30), stockPacing, 5)
	if len(sched.IncludedIDs) != 1 || sched.IncludedIDs[0] != "title" {
		t.Fatalf("included: got %v", sched.IncludedIDs)
	}
}

func TestBuildDeterministic(t *testing.T) {
	first := Build(segs(3.3, 1.7, 2.9, 8.05), stockPacing, 25)
	second := Build(segs(3.3, 1.7, 2.9, 8.05), stockPacing, 25)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("schedules differ across identical runs")
	}
}

func TestBuildMonotonicNonDecreasing(t *testing.T) {
	durations := []float64{2, 3, 1.5, 4, 2.2, 6, 0.8}
	prev := 0.0
	for n := 1; n <= len(durations); n++ {
		sched := Build(segs(durations[:n]...), stockPacing, 1000)
		if sched.TotalDuration < prev {
			t.Fatalf("total duration regressed at n=%d: %v < %v", n, sched.TotalDuration, prev)
		}
		prev = sched.TotalDuration
	}
}

func TestBuildWindowsOrderedAndInBounds(t *testing.T) {
	sched := Build(segs(3.1, 4.2, 0.5, 2.8, 7.7), stockPacing, 40)
	for i, entry := range sched.Entries {
		if entry.End < entry.Start+entry.AudioDuration-1e-9 {
			t.Fatalf("entry %d window shorter than narration", i)
		}
		if entry.Start < 0 || entry.End > sched.TotalDuration+1e-9 {
			t.Fatalf("entry %d window [%v,%v] outside [0,%v]",
				i, entry.Start, entry.End, sched.TotalDuration)
		}
		if i > 0 {
			prev := sched.Entries[i-1]
			if entry.Start <= prev.Start {
				t.Fatalf("entry %d start %v not after previous %v", i, entry.Start, prev.Start)
			}
			if entry.Start < prev.End-1e-9 {
				t.Fatalf("entry %d overlaps previous window", i)
			}
		}
	}
}

func TestBuildEmptyInput(t *testing.T) {
	sched := Build(nil, stockPacing, 50)
	if len(sched.Entries) != 0 {
		t.Fatalf("entries: got %v", sched.Entries)
	}
	if math.Abs(sched.TotalDuration-2) > 1e-9 {
		t.Fatalf("total duration: got %v", sched.TotalDuration)
	}
}

package render

import (
	"math"
	"strings"
	"testing"
)

func TestProgressGateParsesTokens(t *testing.T) {
	gate := progressGate{expected: 20}

	update, ok := gate.observe("out_time_ms=5000000")
	if !ok {
		t.Fatal("expected a progress update")
	}
	if math.Abs(update.OutTimeSeconds-5) > 1e-9 {
		t.Fatalf("out time: got %v", update.OutTimeSeconds)
	}
	if math.Abs(update.Fraction-0.25) > 1e-9 {
		t.Fatalf("fraction: got %v", update.Fraction)
	}
}

func TestProgressGateMonotonicOnOutOfOrderTokens(t *testing.T) {
	gate := progressGate{expected: 10}
	tokens := []string{
		"out_time_ms=4000000",
		"out_time_ms=2000000", // late token must not regress
		"out_time_ms=6000000",
		"out_time_ms=5000000",
		"out_time_ms=9000000",
	}
	last := 0.0
	for _, token := range tokens {
		update, ok := gate.observe(token)
		if !ok {
			t.Fatalf("token %q ignored", token)
		}
		if update.Fraction < last {
			t.Fatalf("fraction regressed: %v after %v", update.Fraction, last)
		}
		last = update.Fraction
	}
	if math.Abs(last-0.9) > 1e-9 {
		t.Fatalf("final fraction: got %v", last)
	}
}

func TestProgressGateEndToken(t *testing.T) {
	gate := progressGate{expected: 10}
	gate.observe("out_time_ms=3000000")

	update, ok := gate.observe("progress=end")
	if !ok {
		t.Fatal("end token must produce an update")
	}
	if update.Fraction != 1 {
		t.Fatalf("fraction at end: got %v", update.Fraction)
	}
}

func TestProgressGateIgnoresUnknownKeys(t *testing.T) {
	gate := progressGate{expected: 10}
	for _, line := range []string{
		"frame=120",
		"fps=30.01",
		"bitrate= 612.3kbits/s",
		"progress=continue",
		"not a token at all",
		"",
	} {
		if _, ok := gate.observe(line); ok {
			t.Fatalf("line %q must be ignored", line)
		}
	}
}

func TestProgressGateClampsToExpected(t *testing.T) {
	gate := progressGate{expected: 10}
	update, _ := gate.observe("out_time_ms=15000000")
	if update.Fraction != 1 {
		t.Fatalf("fraction past expected: got %v", update.Fraction)
	}
}

func TestErrorCarriesDiagnosticsVerbatim(t *testing.T) {
	diag := "x.mp4: No such file or directory\nError opening input\n"
	err := &Error{Job: "final video", Diagnostics: diag, Err: errExit}
	if !strings.Contains(err.Error(), diag[:len(diag)-1]) {
		t.Fatalf("diagnostics missing from %q", err.Error())
	}
	if !strings.Contains(err.Error(), "final video") {
		t.Fatalf("job name missing from %q", err.Error())
	}
}

var errExit = errString("exit status 1")

type errString string

func (e errString) Error() string { return string(e) }

func TestDriverStatusTransitions(t *testing.T) {
	d := NewDriver(false)
	if d.Status() != StatusIdle {
		t.Fatalf("fresh driver status: got %q", d.Status())
	}
	for _, s := range []Status{StatusSubmitted, StatusRunning, StatusCompleted} {
		d.setStatus(s)
		if d.Status() != s {
			t.Fatalf("status after setStatus(%q): got %q", s, d.Status())
		}
	}
	d.setStatus(StatusFailed)
	if d.Status() != StatusFailed {
		t.Fatalf("status after failure: got %q", d.Status())
	}
}

func TestOptimalThreadCount(t *testing.T) {
	if OptimalThreadCount() < 1 {
		t.Fatal("thread count must be at least 1")
	}
}

// Package render drives the external transcoding engine: it compiles a
// composed job into an ffmpeg process, drains both of its output
// streams concurrently, surfaces monotonic progress, and captures the
// full diagnostic stream on failure.
package render

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Status is the driver's lifecycle state for the current job.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusSubmitted Status = "submitted"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Error carries the engine's verbatim diagnostic output alongside the
// process failure. Rendering is expensive, so the driver never retries;
// the caller decides what to do with the diagnostics.
type Error struct {
	Job         string
	Diagnostics string
	Err         error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("render %s failed: %v", e.Job, e.Err)
	if e.Diagnostics != "" {
		msg += "\n" + e.Diagnostics
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Progress is one monotonic progress observation.
type Progress struct {
	// Fraction of the expected duration encoded so far, 0..1. Never
	// regresses even when the engine's tokens arrive out of order.
	Fraction float64
	// OutTimeSeconds is the elapsed encoded time behind Fraction.
	OutTimeSeconds float64
}

// Job is one composed transcoding run. It is constructed once and
// consumed once; the stream must already carry its output node.
type Job struct {
	Name             string
	Stream           *ffmpeg.Stream
	OutputPath       string
	ExpectedDuration float64
}

// Result describes a completed run.
type Result struct {
	OutputPath string
	Duration   float64
	ByteSize   int64
}

// Driver runs jobs against the engine one at a time.
type Driver struct {
	verbose bool

	mu     sync.Mutex
	status Status
}

// NewDriver returns an idle driver.
func NewDriver(verbose bool) *Driver {
	return &Driver{verbose: verbose, status: StatusIdle}
}

// Status returns the driver's current lifecycle state.
func (d *Driver) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

func (d *Driver) setStatus(s Status) {
	d.mu.Lock()
	d.status = s
	d.mu.Unlock()
}

// event is one line from either of the engine's output streams,
// published onto a single channel in arrival order.
type event struct {
	diagnostic bool
	line       string
}

// Run executes the job to a terminal state. Progress tokens are parsed
// from the engine's machine-readable stream and forwarded to onProgress
// (which may be nil); the diagnostic stream is captured in full. A
// caller that needs cancellation cancels ctx, which kills the child
// process and lands in the failed state.
func (d *Driver) Run(ctx context.Context, job Job, onProgress func(Progress)) (*Result, error) {
	d.setStatus(StatusSubmitted)

	cmd := job.Stream.
		GlobalArgs("-progress", "pipe:1", "-nostats", "-hide_banner", "-loglevel", "error").
		OverWriteOutput().
		Compile()

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		d.setStatus(StatusFailed)
		return nil, errors.Wrap(err, "stdout pipe")
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		d.setStatus(StatusFailed)
		return nil, errors.Wrap(err, "stderr pipe")
	}

	if d.verbose {
		log.Printf("Starting %s: %s", job.Name, strings.Join(cmd.Args, " "))
	}
	if err := cmd.Start(); err != nil {
		d.setStatus(StatusFailed)
		return nil, &Error{Job: job.Name, Err: err}
	}
	d.setStatus(StatusRunning)

	// The engine can block writing to either stream if the other fills,
	// so both are drained concurrently into one ordered channel.
	events := make(chan event, 64)
	var wg sync.WaitGroup
	wg.Add(2)
	go readLines(stdout, false, events, &wg)
	go readLines(stderr, true, events, &wg)
	go func() {
		wg.Wait()
		close(events)
	}()

	done := make(chan struct{})
	defer close(done)
	if ctx != nil {
		go func() {
			select {
			case <-ctx.Done():
				_ = cmd.Process.Kill()
			case <-done:
			}
		}()
	}

	var diagnostics strings.Builder
	gate := progressGate{expected: job.ExpectedDuration}
	for ev := range events {
		if ev.diagnostic {
			diagnostics.WriteString(ev.line)
			diagnostics.WriteByte('\n')
			continue
		}
		if update, ok := gate.observe(ev.line); ok && onProgress != nil {
			onProgress(update)
		}
	}

	if err := cmd.Wait(); err != nil {
		d.setStatus(StatusFailed)
		return nil, &Error{Job: job.Name, Diagnostics: diagnostics.String(), Err: err}
	}
	d.setStatus(StatusCompleted)

	if onProgress != nil {
		onProgress(Progress{Fraction: 1, OutTimeSeconds: gate.maxOutTime()})
	}

	result := &Result{
		OutputPath: job.OutputPath,
		Duration:   gate.maxOutTime(),
	}
	if result.Duration == 0 {
		result.Duration = job.ExpectedDuration
	}
	if info, err := os.Stat(job.OutputPath); err == nil {
		result.ByteSize = info.Size()
	}
	if d.verbose {
		log.Printf("Completed %s: %s (%.2fs, %d bytes)",
			job.Name, result.OutputPath, result.Duration, result.ByteSize)
	}
	return result, nil
}

func readLines(r io.Reader, diagnostic bool, out chan<- event, wg *sync.WaitGroup) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		out <- event{diagnostic: diagnostic, line: scanner.Text()}
	}
}

// progressGate turns raw key=value progress tokens into monotonically
// non-decreasing Progress values.
type progressGate struct {
	expected     float64
	lastFraction float64
	lastOutTime  float64
}

// observe parses one machine-readable line. Unrecognized keys are
// ignored; out-of-order time tokens are clamped to the last value.
func (g *progressGate) observe(line string) (Progress, bool) {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return Progress{}, false
	}
	switch key {
	case "out_time_ms":
		// Despite the name this token counts microseconds.
		var micros float64
		if _, err := fmt.Sscanf(strings.TrimSpace(value), "%f", &micros); err != nil {
			return Progress{}, false
		}
		outTime := math.Max(micros/1e6, 0)
		if outTime > g.lastOutTime {
			g.lastOutTime = outTime
		}
		fraction := g.lastFraction
		if g.expected > 0 {
			fraction = math.Min(g.lastOutTime/g.expected, 1)
		}
		if fraction > g.lastFraction {
			g.lastFraction = fraction
		}
		return Progress{Fraction: g.lastFraction, OutTimeSeconds: g.lastOutTime}, true
	case "progress":
		if strings.TrimSpace(value) == "end" {
			g.lastFraction = 1
			return Progress{Fraction: 1, OutTimeSeconds: g.lastOutTime}, true
		}
	}
	return Progress{}, false
}

func (g *progressGate) maxOutTime() float64 { return g.lastOutTime }

// OptimalThreadCount leaves a quarter of the cores for the rest of the
// system.
func OptimalThreadCount() int {
	return int(math.Max(1, float64(runtime.NumCPU())*0.75))
}

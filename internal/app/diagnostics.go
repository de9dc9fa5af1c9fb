package app

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// Diagnostics holds metrics for the debug overlay.
type Diagnostics struct {
	// Manual polls
	LastPollLatency time.Duration
	PollCount       int
	PollFailures    int
	TotalPollTime   time.Duration

	// Rendered covers
	CoverCacheHits   int
	CoverCacheMisses int
	CoverErrors      int
	StaleCovers      int // renders that finished after the track changed

	// App stats
	StartTime      time.Time
	LastUpdate     time.Time
	MemoryUsage    uint64
	GoroutineCount int
}

// NewDiagnostics creates a new diagnostics state.
func NewDiagnostics() *Diagnostics {
	return &Diagnostics{StartTime: time.Now()}
}

// RecordPoll records a manual poll.
func (d *Diagnostics) RecordPoll(latency time.Duration, err error) {
	d.LastPollLatency = latency
	d.PollCount++
	d.TotalPollTime += latency
	if err != nil {
		d.PollFailures++
	}
}

// AverageLatency returns the average poll latency.
func (d *Diagnostics) AverageLatency() time.Duration {
	if d.PollCount == 0 {
		return 0
	}
	return d.TotalPollTime / time.Duration(d.PollCount)
}

func (d *Diagnostics) RecordCoverCacheHit() { d.CoverCacheHits++ }
func (d *Diagnostics) RecordCoverCacheMiss() { d.CoverCacheMisses++ }
func (d *Diagnostics) RecordCoverError() { d.CoverErrors++ }
func (d *Diagnostics) RecordStaleCover() { d.StaleCovers++ }

// CoverCacheHitRate returns the rendered-cover cache hit rate as a percentage.
func (d *Diagnostics) CoverCacheHitRate() float64 {
	total := d.CoverCacheHits + d.CoverCacheMisses
	if total == 0 {
		return 0
	}
	return float64(d.CoverCacheHits) / float64(total) * 100
}

// Update refreshes runtime stats.
func (d *Diagnostics) Update() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	d.MemoryUsage = m.Alloc
	d.GoroutineCount = runtime.NumGoroutine()
	d.LastUpdate = time.Now()
}

// Uptime returns the application uptime.
func (d *Diagnostics) Uptime() time.Duration {
	return time.Since(d.StartTime)
}

// Render renders the diagnostics panel.
func (d *Diagnostics) Render(m Model) string {
	d.Update()
	snap := m.snap

	var b strings.Builder
	b.WriteString(m.theme.Track.Render("Diagnostics"))
	b.WriteString("\n\n")
	b.WriteString(m.theme.Dim.Render("Uptime: "))
	b.WriteString(d.Uptime().Round(time.Second).String())
	b.WriteString("\n\n")

	b.WriteString(m.theme.Artist.Render("Runtime"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  Memory: %s\n", humanize.Bytes(d.MemoryUsage))
	fmt.Fprintf(&b, "  Goroutines: %d\n\n", d.GoroutineCount)

	b.WriteString(m.theme.Artist.Render("Station"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  Key: %s\n", orDash(snap.Key.String()))
	fmt.Fprintf(&b, "  Generation: %d\n", snap.Generation)
	fmt.Fprintf(&b, "  Source: %s\n", orDash(string(snap.Source)))
	fmt.Fprintf(&b, "  Failed polls: %d\n", snap.ConsecutiveFailures)
	if snap.LastError != nil {
		b.WriteString(m.theme.Error.Render("  Last error: " + snap.LastError.Error()))
		b.WriteString("\n")
	}
	if d.PollCount > 0 {
		fmt.Fprintf(&b, "  Manual polls: %d (%d failed)\n", d.PollCount, d.PollFailures)
		fmt.Fprintf(&b, "  Avg latency: %s\n", d.AverageLatency().Round(time.Millisecond))
	}
	b.WriteString("\n")

	b.WriteString(m.theme.Artist.Render("Covers"))
	b.WriteString("\n")
	if d.CoverCacheHits+d.CoverCacheMisses > 0 {
		fmt.Fprintf(&b, "  Hits: %d / Misses: %d\n", d.CoverCacheHits, d.CoverCacheMisses)
		fmt.Fprintf(&b, "  Hit rate: %.1f%%\n", d.CoverCacheHitRate())
	} else {
		b.WriteString("  No renders yet\n")
	}
	if d.CoverErrors > 0 {
		fmt.Fprintf(&b, "  Errors: %d\n", d.CoverErrors)
	}
	if d.StaleCovers > 0 {
		fmt.Fprintf(&b, "  Discarded late renders: %d\n", d.StaleCovers)
	}
	b.WriteString("\n")
	b.WriteString(m.theme.Dim.Render("Press d to close"))

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1).
		Width(40).
		Render(b.String())
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

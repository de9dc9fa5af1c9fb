package app

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDiagnostics(t *testing.T) {
	t.Run("initial state", func(t *testing.T) {
		d := NewDiagnostics()
		if d.PollCount != 0 || d.StartTime.IsZero() {
			t.Errorf("unexpected initial state: %+v", d)
		}
		if d.AverageLatency() != 0 || d.CoverCacheHitRate() != 0 {
			t.Error("empty stats should be zero")
		}
	})

	t.Run("polls", func(t *testing.T) {
		d := NewDiagnostics()
		d.RecordPoll(100*time.Millisecond, nil)
		d.RecordPoll(200*time.Millisecond, errors.New("down"))
		if d.AverageLatency() != 150*time.Millisecond {
			t.Errorf("average = %v", d.AverageLatency())
		}
		if d.PollFailures != 1 || d.LastPollLatency != 200*time.Millisecond {
			t.Errorf("failures = %d, last = %v", d.PollFailures, d.LastPollLatency)
		}
	})

	t.Run("cover hit rate", func(t *testing.T) {
		d := NewDiagnostics()
		d.RecordCoverCacheHit()
		d.RecordCoverCacheHit()
		d.RecordCoverCacheMiss()
		if rate := d.CoverCacheHitRate(); rate < 66.6 || rate > 66.7 {
			t.Errorf("rate = %v", rate)
		}
	})

	t.Run("render", func(t *testing.T) {
		d := NewDiagnostics()
		d.RecordStaleCover()
		out := d.Render(New(Options{}))
		for _, want := range []string{"Diagnostics", "Goroutines", "Discarded late renders: 1", "No renders yet"} {
			if !strings.Contains(out, want) {
				t.Errorf("render missing %q", want)
			}
		}
	})
}

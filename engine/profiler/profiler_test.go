package profiler

import (
	"strings"
	"testing"
	"time"
)

type scriptedClock struct {
	t time.Time
}

func (c *scriptedClock) now() time.Time { return c.t }

func (c *scriptedClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestTickReportsOncePerInterval(t *testing.T) {
	clock := &scriptedClock{t: time.Unix(1000, 0)}
	p := NewProfiler(WithClock(clock.now), WithUpdateInterval(100*time.Millisecond), WithMemStats(false))

	var reports []int
	for i := 0; i < 25; i++ {
		clock.advance(10 * time.Millisecond)
		if p.Tick() {
			reports = append(reports, i)
		}
	}

	want := []int{9, 19}
	if len(reports) != len(want) {
		t.Fatalf("expected reports at %v, got %v", want, reports)
	}
	for i := range want {
		if reports[i] != want[i] {
			t.Errorf("report %d: expected tick %d, got %d", i, want[i], reports[i])
		}
	}
	if p.Frames() != 25 {
		t.Errorf("expected 25 frames, got %d", p.Frames())
	}
}

func TestTickWithMemStats(t *testing.T) {
	clock := &scriptedClock{t: time.Unix(0, 0)}
	p := NewProfiler(WithClock(clock.now), WithUpdateInterval(time.Second))

	clock.advance(2 * time.Second)
	if !p.Tick() {
		t.Error("expected a report after the interval elapsed")
	}
}

func TestSummary(t *testing.T) {
	clock := &scriptedClock{t: time.Unix(0, 0)}
	p := NewProfiler(WithClock(clock.now), WithMemStats(false))

	for _, d := range []time.Duration{10 * time.Millisecond, 30 * time.Millisecond, 20 * time.Millisecond} {
		clock.advance(d)
		p.Tick()
	}

	summary := p.Summary()
	for _, want := range []string{"Frames", "3", "50.0", "20ms", "10ms", "30ms"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary does not contain %q:\n%s", want, summary)
		}
	}
}

func TestInvalidIntervalKeepsDefault(t *testing.T) {
	p := NewProfiler(WithUpdateInterval(0))
	if p.updateInterval != time.Second {
		t.Errorf("expected default interval, got %s", p.updateInterval)
	}
}

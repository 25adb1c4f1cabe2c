// ABOUTME: Pure beat-grid math: deadlines, catch-up firing, tempo re-anchor
// ABOUTME: Deadlines are always recomputed from the anchor, never accumulated
package beat

import (
	"time"

	"github.com/virgo-dtx/rhythm-go/pkg/chart"
)

// grid tracks beat positions on the abstract timeline. Beat n (0-based)
// has ideal time start + n*interval. The grid never advances by adding
// the interval to a current time, so per-callback jitter cannot
// compound into long-run drift.
type grid struct {
	interval        time.Duration
	beatsPerMeasure uint
	start           time.Duration
	fired           uint64
}

func newGrid(tempo chart.Tempo, start time.Duration) grid {
	return grid{
		interval:        tempo.BeatInterval(),
		beatsPerMeasure: tempo.TimeSignature.BeatsPerMeasure,
		start:           start,
	}
}

// nextDeadline is the ideal time of the next unfired beat.
func (g *grid) nextDeadline() time.Duration {
	return g.start + time.Duration(g.fired)*g.interval
}

// advance fires every beat whose ideal time has passed by now, exactly
// once each. If the timer overslept several intervals the missed beats
// are emitted in order rather than skipped or double-fired.
func (g *grid) advance(now time.Duration) []Event {
	if now < g.start {
		return nil
	}
	expected := uint64((now-g.start)/g.interval) + 1
	if expected <= g.fired {
		return nil
	}

	evs := make([]Event, 0, expected-g.fired)
	for g.fired < expected {
		n := g.fired
		pos := uint(n%uint64(g.beatsPerMeasure)) + 1
		evs = append(evs, Event{
			Number:        n + 1,
			BeatInMeasure: pos,
			Accented:      pos == 1,
			IdealTime:     g.start + time.Duration(n)*g.interval,
		})
		g.fired++
	}
	return evs
}

// retime switches the grid to a new tempo at the given instant. The
// anchor is moved so that the elapsed beat phase is preserved under the
// new interval: the fired count stays monotonic, the measure position
// carries over, and the next beat lands when the phase reaches the
// next whole beat, with no burst and no stall.
func (g *grid) retime(tempo chart.Tempo, now time.Duration) {
	newInterval := tempo.BeatInterval()
	elapsedBeats := float64(now-g.start) / float64(g.interval)
	g.start = now - time.Duration(elapsedBeats*float64(newInterval))
	g.interval = newInterval
	g.beatsPerMeasure = tempo.TimeSignature.BeatsPerMeasure
}

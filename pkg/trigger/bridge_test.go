// ABOUTME: Tests for the trigger bridge
// ABOUTME: Deadline playback, late-drop, stop suppression, observer feed
package trigger

import (
	"sync"
	"testing"
	"time"

	"github.com/virgo-dtx/rhythm-go/pkg/beat"
	"github.com/virgo-dtx/rhythm-go/pkg/timeline"
)

// recordingOutput captures click playback thread-safely.
type recordingOutput struct {
	mu     sync.Mutex
	clicks []bool // accent flags, in play order
}

func (r *recordingOutput) PlayClick(accented bool) error {
	r.mu.Lock()
	r.clicks = append(r.clicks, accented)
	r.mu.Unlock()
	return nil
}

func (r *recordingOutput) Close() error { return nil }

func (r *recordingOutput) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clicks)
}

func (r *recordingOutput) snapshot() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.clicks...)
}

func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %s", what)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestBridgePlaysDueClick(t *testing.T) {
	m := timeline.Start(nil)
	out := &recordingOutput{}
	b := New(out, m, nil)
	b.Start()
	defer b.Stop()

	b.OnBeat(beat.Event{Number: 1, BeatInMeasure: 1, Accented: true, IdealTime: m.Now()})

	waitFor(t, func() bool { return out.count() == 1 }, "click playback")
	if clicks := out.snapshot(); !clicks[0] {
		t.Error("expected the accented click")
	}

	played, dropped := b.Stats()
	if played != 1 || dropped != 0 {
		t.Errorf("stats played=%d dropped=%d, want 1/0", played, dropped)
	}
}

func TestBridgeWaitsForFutureDeadline(t *testing.T) {
	m := timeline.Start(nil)
	out := &recordingOutput{}
	b := New(out, m, nil)
	b.Start()
	defer b.Stop()

	b.OnBeat(beat.Event{Number: 1, IdealTime: m.Now() + 80*time.Millisecond})

	time.Sleep(20 * time.Millisecond)
	if out.count() != 0 {
		t.Fatal("click played before its hardware deadline")
	}

	waitFor(t, func() bool { return out.count() == 1 }, "deferred click")
}

func TestBridgeDropsLateClick(t *testing.T) {
	m := timeline.Start(nil)
	out := &recordingOutput{}
	b := New(out, m, nil)
	b.Start()
	defer b.Stop()

	// Far beyond the 50ms lateness limit.
	b.OnBeat(beat.Event{Number: 1, IdealTime: m.Now() - 200*time.Millisecond})

	waitFor(t, func() bool { _, d := b.Stats(); return d == 1 }, "late drop")
	if out.count() != 0 {
		t.Error("late click was played")
	}
}

func TestBridgeStopSuppressesQueuedClicks(t *testing.T) {
	m := timeline.Start(nil)
	out := &recordingOutput{}
	b := New(out, m, nil)
	b.Start()

	b.OnBeat(beat.Event{Number: 1, IdealTime: m.Now() + time.Second})
	b.Stop()

	time.Sleep(50 * time.Millisecond)
	if out.count() != 0 {
		t.Error("queued click played after Stop")
	}
}

func TestBridgeNotifiesObserver(t *testing.T) {
	m := timeline.Start(nil)
	out := &recordingOutput{}
	b := New(out, m, nil)
	b.Start()
	defer b.Stop()

	ev := beat.Event{Number: 7, BeatInMeasure: 3, IdealTime: m.Now()}
	b.OnBeat(ev)

	select {
	case got := <-b.Events():
		if got.Number != 7 || got.BeatInMeasure != 3 {
			t.Errorf("observer got %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no observer notification")
	}
}

func TestBridgeObserverNeverBlocksAudio(t *testing.T) {
	m := timeline.Start(nil)
	out := &recordingOutput{}
	b := New(out, m, nil)
	b.Start()
	defer b.Stop()

	// Nobody reads Events(); playback must continue regardless.
	for i := 1; i <= 40; i++ {
		b.OnBeat(beat.Event{Number: uint64(i), IdealTime: m.Now()})
		time.Sleep(2 * time.Millisecond)
	}

	waitFor(t, func() bool { return out.count() >= 30 }, "playback with a stuck observer")
}

func TestBridgeQueueSheddingIsBounded(t *testing.T) {
	m := timeline.Start(nil)
	out := &recordingOutput{}
	b := New(out, m, nil)
	// Not started: the queue only fills.

	for i := 1; i <= 20; i++ {
		b.OnBeat(beat.Event{Number: uint64(i), IdealTime: m.Now() + time.Duration(i)*time.Second})
	}

	b.mu.Lock()
	depth := b.queue.Len()
	b.mu.Unlock()
	if depth > lookahead {
		t.Errorf("queue grew to %d, lookahead bound is %d", depth, lookahead)
	}

	_, dropped := b.Stats()
	if dropped != 12 {
		t.Errorf("expected 12 shed clicks, got %d", dropped)
	}
}

func TestNullOutput(t *testing.T) {
	out, err := NewOutput(BackendNull, nil, nil)
	if err != nil {
		t.Fatalf("null backend: %v", err)
	}
	if err := out.PlayClick(true); err != nil {
		t.Errorf("null PlayClick: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Errorf("null Close: %v", err)
	}
}

func TestUnknownBackend(t *testing.T) {
	if _, err := NewOutput(Backend(42), nil, nil); err == nil {
		t.Error("expected an error for an unknown backend")
	}
}

// ABOUTME: Tests for the note index nearest-neighbor queries
// ABOUTME: Covers window limits, tie-breaking and tempo rescaling
package chart

import (
	"testing"
	"time"
)

func tempo44(bpm float64) Tempo {
	return Tempo{BPM: bpm, TimeSignature: TimeSignature{BeatsPerMeasure: 4, NoteValue: 4}}
}

func TestBuildExpectedTimes(t *testing.T) {
	// 120 BPM 4/4: one measure is 2s.
	notes := []Note{
		{Voice: Snare, Measure: 1, Offset: 0.5},  // 1.0s
		{Voice: Snare, Measure: 2, Offset: 0},    // 2.0s
		{Voice: BassDrum, Measure: 1, Offset: 0}, // 0.0s
	}
	ix := Build(notes, tempo44(120))

	if ix.Len() != 3 {
		t.Fatalf("expected 3 indexed notes, got %d", ix.Len())
	}

	_, at, ok := ix.Nearest(Snare, time.Second, 200*time.Millisecond)
	if !ok || at != time.Second {
		t.Errorf("expected snare at 1s, got %v (ok=%v)", at, ok)
	}

	_, at, ok = ix.Nearest(BassDrum, 0, 200*time.Millisecond)
	if !ok || at != 0 {
		t.Errorf("expected bass drum at 0s, got %v (ok=%v)", at, ok)
	}
}

func TestNearestWindow(t *testing.T) {
	notes := []Note{{Voice: Snare, Measure: 1, Offset: 0.5}} // 1.0s at 120 BPM
	ix := Build(notes, tempo44(120))

	// 350ms away, outside the 200ms window.
	if _, _, ok := ix.Nearest(Snare, 1350*time.Millisecond, 200*time.Millisecond); ok {
		t.Error("expected no match outside the window")
	}

	// 150ms away, inside.
	if _, _, ok := ix.Nearest(Snare, 1150*time.Millisecond, 200*time.Millisecond); !ok {
		t.Error("expected a match inside the window")
	}

	// Exactly on the window edge is still a match.
	if _, _, ok := ix.Nearest(Snare, 1200*time.Millisecond, 200*time.Millisecond); !ok {
		t.Error("expected a match exactly on the window edge")
	}
}

func TestNearestVoiceIsolation(t *testing.T) {
	notes := []Note{{Voice: Snare, Measure: 1, Offset: 0.5}}
	ix := Build(notes, tempo44(120))

	if _, _, ok := ix.Nearest(BassDrum, time.Second, 200*time.Millisecond); ok {
		t.Error("matched a note of a different voice")
	}
}

func TestNearestPicksClosest(t *testing.T) {
	notes := []Note{
		{Voice: Snare, Measure: 1, Offset: 0.4},  // 0.8s
		{Voice: Snare, Measure: 1, Offset: 0.55}, // 1.1s
	}
	ix := Build(notes, tempo44(120))

	note, _, ok := ix.Nearest(Snare, time.Second, 200*time.Millisecond)
	if !ok {
		t.Fatal("expected a match")
	}
	if note.Offset != 0.55 {
		t.Errorf("expected the 1.1s note (100ms away), got offset %v", note.Offset)
	}
}

func TestNearestTieBreakUsesChartOrder(t *testing.T) {
	// Two snare notes equidistant (±100ms) from the 1.0s target. The
	// candidate that appears earlier in the original chart must win,
	// whichever side of the target it sits on.
	target := time.Second
	window := 200 * time.Millisecond

	laterFirst := []Note{
		{Voice: Snare, Measure: 1, Offset: 0.55}, // 1.1s, chart index 0
		{Voice: Snare, Measure: 1, Offset: 0.45}, // 0.9s, chart index 1
	}
	ix := Build(laterFirst, tempo44(120))
	note, _, ok := ix.Nearest(Snare, target, window)
	if !ok || note.Offset != 0.55 {
		t.Errorf("expected chart-first note at offset 0.55, got %+v (ok=%v)", note, ok)
	}

	earlierFirst := []Note{
		{Voice: Snare, Measure: 1, Offset: 0.45}, // 0.9s, chart index 0
		{Voice: Snare, Measure: 1, Offset: 0.55}, // 1.1s, chart index 1
	}
	ix = Build(earlierFirst, tempo44(120))
	note, _, ok = ix.Nearest(Snare, target, window)
	if !ok || note.Offset != 0.45 {
		t.Errorf("expected chart-first note at offset 0.45, got %+v (ok=%v)", note, ok)
	}

	// Deterministic across repeated queries.
	for i := 0; i < 100; i++ {
		n, _, _ := ix.Nearest(Snare, target, window)
		if n.Offset != 0.45 {
			t.Fatalf("tie-break changed on run %d", i)
		}
	}
}

func TestRebuildUnderScaledTempo(t *testing.T) {
	// A note expected at 1.0s at 120 BPM moves to 2.0s at half speed.
	notes := []Note{{Voice: Snare, Measure: 1, Offset: 0.5}}

	ix := Build(notes, tempo44(120))
	_, at, ok := ix.Nearest(Snare, time.Second, 200*time.Millisecond)
	if !ok || at != time.Second {
		t.Fatalf("expected 1s at full speed, got %v", at)
	}

	ix = Build(notes, tempo44(120).Scaled(0.5))
	_, at, ok = ix.Nearest(Snare, 2*time.Second, 200*time.Millisecond)
	if !ok || at != 2*time.Second {
		t.Errorf("expected 2s at half speed, got %v (ok=%v)", at, ok)
	}
}

func TestNearestEmptyIndex(t *testing.T) {
	ix := Build(nil, tempo44(120))
	if _, _, ok := ix.Nearest(Snare, time.Second, 200*time.Millisecond); ok {
		t.Error("expected no match from an empty index")
	}
}

func TestNoteValidate(t *testing.T) {
	tests := []struct {
		name    string
		note    Note
		wantErr bool
	}{
		{"valid", Note{Voice: Snare, Measure: 1, Offset: 0.25}, false},
		{"offset at measure start", Note{Voice: Snare, Measure: 3, Offset: 0}, false},
		{"zero measure", Note{Voice: Snare, Measure: 0, Offset: 0}, true},
		{"offset one", Note{Voice: Snare, Measure: 1, Offset: 1.0}, true},
		{"negative offset", Note{Voice: Snare, Measure: 1, Offset: -0.1}, true},
		{"bad voice", Note{Voice: DrumVoice(99), Measure: 1, Offset: 0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.note.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// ABOUTME: Tempo and time signature for one playback session
// ABOUTME: All beat/measure durations are derived from these values
package chart

import (
	"fmt"
	"math"
	"time"
)

// TimeSignature describes how beats group into measures.
type TimeSignature struct {
	BeatsPerMeasure uint
	NoteValue       uint
}

// Tempo is the timing configuration for a session. It is immutable:
// speed scaling produces a derived Tempo via Scaled and never touches
// the base value stored with the song.
type Tempo struct {
	BPM           float64
	TimeSignature TimeSignature
}

// Validate rejects non-positive BPM and malformed time signatures.
func (t Tempo) Validate() error {
	if t.BPM <= 0 || math.IsNaN(t.BPM) || math.IsInf(t.BPM, 0) {
		return fmt.Errorf("invalid bpm %v: must be a positive finite number", t.BPM)
	}
	if t.TimeSignature.BeatsPerMeasure == 0 {
		return fmt.Errorf("invalid time signature: beats per measure must be > 0")
	}
	if t.TimeSignature.NoteValue == 0 {
		return fmt.Errorf("invalid time signature: note value must be > 0")
	}
	return nil
}

// BeatInterval returns the time between consecutive beats (60/BPM).
func (t Tempo) BeatInterval() time.Duration {
	return time.Duration(60.0 / t.BPM * float64(time.Second))
}

// MeasureDuration returns the length of one full measure.
func (t Tempo) MeasureDuration() time.Duration {
	return time.Duration(60.0 / t.BPM * float64(t.TimeSignature.BeatsPerMeasure) * float64(time.Second))
}

// Scaled returns the effective tempo under a speed multiplier.
// Scaling 120 BPM by 0.5 yields 60 BPM: beats and note times stretch
// to twice their original spacing.
func (t Tempo) Scaled(multiplier float64) Tempo {
	return Tempo{
		BPM:           t.BPM * multiplier,
		TimeSignature: t.TimeSignature,
	}
}

// ABOUTME: Input-to-note matching and timing accuracy classification
// ABOUTME: Pure functions over an immutable tempo+index snapshot
package match

import (
	"math"
	"time"

	"github.com/virgo-dtx/rhythm-go/pkg/chart"
)

// Tier grades the timing error of a hit against its matched note.
type Tier int

const (
	TierPerfect Tier = iota
	TierGreat
	TierGood
	TierMiss
)

func (t Tier) String() string {
	switch t {
	case TierPerfect:
		return "perfect"
	case TierGreat:
		return "great"
	case TierGood:
		return "good"
	default:
		return "miss"
	}
}

// Window is the maximum distance between a hit and a candidate note.
const Window = 200 * time.Millisecond

// Tier boundaries in milliseconds, inclusive at the lower tier: an
// error of exactly 25.0ms is Perfect, exactly 50.0ms is Great.
const (
	PerfectMs = 25.0
	GreatMs   = 50.0
	GoodMs    = 100.0
)

// InputHit is one input event from any source (keyboard, MIDI).
type InputHit struct {
	Voice     chart.DrumVoice
	Velocity  float64
	Timestamp time.Time
}

// Result classifies one hit. Note is nil when no same-voice note lies
// within the window; by convention TimingErrorMs is 0 in that case.
// TimingErrorMs is signed, positive when the hit is late.
type Result struct {
	Hit           InputHit
	Note          *chart.Note
	Tier          Tier
	TimingErrorMs float64

	// Timeline position of the hit, for display.
	Measure       uint
	MeasureOffset float64
}

// Classify maps a signed timing error in milliseconds to a tier.
func Classify(errMs float64) Tier {
	abs := math.Abs(errMs)
	switch {
	case abs <= PerfectMs:
		return TierPerfect
	case abs <= GreatMs:
		return TierGreat
	case abs <= GoodMs:
		return TierGood
	default:
		return TierMiss
	}
}

// Miss returns the result for a hit outside a running session.
func Miss(hit InputHit) Result {
	return Result{Hit: hit, Tier: TierMiss}
}

// Evaluate positions a hit on the song timeline and grades it against
// the nearest same-voice note. elapsed is the hit's abstract time since
// session start. The index is an immutable snapshot, so Evaluate is
// safe to call concurrently from independent input threads.
func Evaluate(hit InputHit, elapsed time.Duration, tempo chart.Tempo, ix *chart.Index) Result {
	beatsPerMeasure := float64(tempo.TimeSignature.BeatsPerMeasure)
	totalBeats := elapsed.Seconds() / (60.0 / tempo.BPM)

	res := Result{
		Hit:           hit,
		Measure:       uint(totalBeats/beatsPerMeasure) + 1,
		MeasureOffset: math.Mod(totalBeats, beatsPerMeasure) / beatsPerMeasure,
	}

	note, expected, ok := ix.Nearest(hit.Voice, elapsed, Window)
	if !ok {
		res.Tier = TierMiss
		return res
	}

	res.Note = &note
	res.TimingErrorMs = float64(elapsed-expected) / float64(time.Millisecond)
	res.Tier = Classify(res.TimingErrorMs)
	return res
}

// ABOUTME: Drum voices and chart notes
// ABOUTME: Notes are a flattened, read-only view supplied by the chart loader
package chart

import "fmt"

// DrumVoice identifies which drum lane a note or input belongs to.
// The set mirrors the standard DTX drum lanes.
type DrumVoice int

const (
	HiHatClose DrumVoice = iota
	Snare
	BassDrum
	HighTom
	LowTom
	Cymbal
	FloorTom
	HiHatOpen
	RideCymbal
	LeftCymbal
	voiceCount
)

var voiceNames = [...]string{
	"hihat-close",
	"snare",
	"bass-drum",
	"high-tom",
	"low-tom",
	"cymbal",
	"floor-tom",
	"hihat-open",
	"ride-cymbal",
	"left-cymbal",
}

func (v DrumVoice) String() string {
	if v < 0 || int(v) >= len(voiceNames) {
		return fmt.Sprintf("voice(%d)", int(v))
	}
	return voiceNames[v]
}

// Valid reports whether v names a known drum lane.
func (v DrumVoice) Valid() bool {
	return v >= 0 && v < voiceCount
}

// Note is one chart entry: a voice hit at a position within a measure.
// Measure is 1-based; Offset is the fraction of the measure in [0, 1).
type Note struct {
	Voice   DrumVoice
	Measure uint
	Offset  float64
}

// Validate rejects notes that cannot be placed on the timeline.
func (n Note) Validate() error {
	if !n.Voice.Valid() {
		return fmt.Errorf("unknown drum voice %d", int(n.Voice))
	}
	if n.Measure == 0 {
		return fmt.Errorf("note measure must be 1-based, got 0")
	}
	if n.Offset < 0 || n.Offset >= 1 {
		return fmt.Errorf("note offset %v out of range [0, 1)", n.Offset)
	}
	return nil
}

// ABOUTME: BeatEvent, the unit of the logical beat stream
// ABOUTME: Produced by the scheduler, consumed once by the trigger bridge
package beat

import "time"

// Event is one logical beat. Number counts beats from 1 across the
// whole session; BeatInMeasure cycles 1..beatsPerMeasure. The first
// beat of every measure is accented.
type Event struct {
	Number        uint64
	BeatInMeasure uint
	Accented      bool
	IdealTime     time.Duration
}

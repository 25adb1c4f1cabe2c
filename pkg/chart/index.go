// ABOUTME: Immutable time-sorted note index for nearest-neighbor queries
// ABOUTME: Rebuilt whenever the tempo or the note list changes
package chart

import (
	"sort"
	"time"
)

// entry is one indexed note with its expected time on the session
// timeline and its position in the original chart order.
type entry struct {
	note Note
	at   time.Duration
	ord  int
}

// Index is a read-only view over a chart's notes, grouped by voice and
// sorted ascending by expected time. It is safe for concurrent reads
// without synchronization.
type Index struct {
	byVoice map[DrumVoice][]entry
	size    int
}

// Build derives expected times for every note under the given tempo and
// returns a new Index. The input slice is not retained.
func Build(notes []Note, tempo Tempo) *Index {
	measureSec := 60.0 / tempo.BPM * float64(tempo.TimeSignature.BeatsPerMeasure)

	byVoice := make(map[DrumVoice][]entry)
	for i, n := range notes {
		at := (float64(n.Measure-1) + n.Offset) * measureSec
		byVoice[n.Voice] = append(byVoice[n.Voice], entry{
			note: n,
			at:   time.Duration(at * float64(time.Second)),
			ord:  i,
		})
	}

	for v := range byVoice {
		es := byVoice[v]
		sort.SliceStable(es, func(i, j int) bool { return es[i].at < es[j].at })
	}

	return &Index{byVoice: byVoice, size: len(notes)}
}

// Len returns the number of indexed notes.
func (ix *Index) Len() int {
	return ix.size
}

// Nearest returns the note of the given voice whose expected time is
// closest to target, restricted to ±window. On an exact distance tie
// the note that appears earlier in the original chart wins, so scoring
// is reproducible run to run.
func (ix *Index) Nearest(voice DrumVoice, target, window time.Duration) (Note, time.Duration, bool) {
	es := ix.byVoice[voice]
	if len(es) == 0 {
		return Note{}, 0, false
	}

	lo := sort.Search(len(es), func(i int) bool { return es[i].at >= target-window })

	best := -1
	var bestDist time.Duration
	for i := lo; i < len(es) && es[i].at <= target+window; i++ {
		d := target - es[i].at
		if d < 0 {
			d = -d
		}
		switch {
		case best < 0 || d < bestDist:
			best, bestDist = i, d
		case d == bestDist && es[i].ord < es[best].ord:
			best = i
		}
	}

	if best < 0 {
		return Note{}, 0, false
	}
	return es[best].note, es[best].at, true
}

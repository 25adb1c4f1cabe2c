// ABOUTME: General MIDI percussion key to drum voice mapping
// ABOUTME: Covers the GM drum map keys an electronic kit emits
package midiin

import "github.com/virgo-dtx/rhythm-go/pkg/chart"

// gmVoices maps General MIDI percussion key numbers to drum voices.
var gmVoices = map[uint8]chart.DrumVoice{
	35: chart.BassDrum,   // Acoustic Bass Drum
	36: chart.BassDrum,   // Bass Drum 1
	38: chart.Snare,      // Acoustic Snare
	40: chart.Snare,      // Electric Snare
	42: chart.HiHatClose, // Closed Hi-Hat
	44: chart.HiHatClose, // Pedal Hi-Hat
	46: chart.HiHatOpen,  // Open Hi-Hat
	49: chart.Cymbal,     // Crash Cymbal 1
	57: chart.LeftCymbal, // Crash Cymbal 2
	51: chart.RideCymbal, // Ride Cymbal 1
	59: chart.RideCymbal, // Ride Cymbal 2
	50: chart.HighTom,    // High Tom
	48: chart.HighTom,    // Hi-Mid Tom
	47: chart.LowTom,     // Low-Mid Tom
	45: chart.LowTom,     // Low Tom
	43: chart.FloorTom,   // High Floor Tom
	41: chart.FloorTom,   // Low Floor Tom
}

// VoiceForKey resolves a GM percussion key to a drum voice.
func VoiceForKey(key uint8) (chart.DrumVoice, bool) {
	v, ok := gmVoices[key]
	return v, ok
}

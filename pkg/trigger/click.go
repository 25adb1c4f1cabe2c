// ABOUTME: Metronome click synthesis and cache
// ABOUTME: Short enveloped sine bursts, rendered once per session
package trigger

import (
	"encoding/binary"
	"math"
	"time"
)

// Output PCM format shared by the synthesizer and the oto backend.
const (
	SampleRate   = 48000
	channelCount = 2
)

const (
	accentFreq = 1760.0 // A6
	tickFreq   = 880.0  // A5

	clickDuration = 30 * time.Millisecond
	clickAttack   = 1 * time.Millisecond
	clickRelease  = 24 * time.Millisecond
)

// ClickCache holds the rendered click buffers for one session. It is
// constructed and owned by the session controller, never shared
// process-wide.
type ClickCache struct {
	accent []byte
	tick   []byte
}

// NewClickCache renders the accented and regular click sounds.
func NewClickCache() *ClickCache {
	return &ClickCache{
		accent: synthClick(accentFreq),
		tick:   synthClick(tickFreq),
	}
}

// Click returns the PCM buffer for a beat, accented or not. The buffer
// is shared; callers must not modify it.
func (c *ClickCache) Click(accented bool) []byte {
	if accented {
		return c.accent
	}
	return c.tick
}

// synthClick renders an attack/release enveloped sine burst as
// interleaved stereo signed 16-bit little-endian PCM.
func synthClick(freq float64) []byte {
	total := int(clickDuration.Seconds() * SampleRate)
	attack := int(clickAttack.Seconds() * SampleRate)
	release := int(clickRelease.Seconds() * SampleRate)

	releaseStart := total - release
	if releaseStart < attack {
		releaseStart = attack
	}

	out := make([]byte, total*channelCount*2)
	phase := 0.0
	phaseInc := freq / SampleRate

	for i := 0; i < total; i++ {
		v := math.Sin(2 * math.Pi * phase)
		phase += phaseInc
		if phase >= 1.0 {
			phase -= 1.0
		}

		vol := 1.0
		if i < attack && attack > 0 {
			vol = float64(i) / float64(attack)
		} else if i >= releaseStart && release > 0 {
			vol = float64(total-i) / float64(release)
		}

		sample := int16(v * vol * 0.8 * math.MaxInt16)
		binary.LittleEndian.PutUint16(out[i*4:], uint16(sample))
		binary.LittleEndian.PutUint16(out[i*4+2:], uint16(sample))
	}

	return out
}

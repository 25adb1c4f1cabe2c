// ABOUTME: Audio output backends for click playback
// ABOUTME: Real oto device or an explicit null backend for silent mode
package trigger

import (
	"bytes"
	"fmt"

	"github.com/ebitengine/oto/v3"
	"go.uber.org/zap"
)

// Backend selects the audio output at construction time. There is no
// environment sniffing: tests and headless runs pass BackendNull.
type Backend int

const (
	BackendOto Backend = iota
	BackendNull
)

// Output plays a click at the moment it is called. Implementations must
// return quickly; the bridge owns the timing.
type Output interface {
	PlayClick(accented bool) error
	Close() error
}

// NewOutput constructs the requested backend.
func NewOutput(backend Backend, cache *ClickCache, log *zap.Logger) (Output, error) {
	if log == nil {
		log = zap.NewNop()
	}
	switch backend {
	case BackendNull:
		return nullOutput{}, nil
	case BackendOto:
		return newOtoOutput(cache, log)
	default:
		return nil, fmt.Errorf("unknown audio backend %d", backend)
	}
}

// NewOutputOrNull constructs the requested backend, degrading to the
// null backend with a single warning when the audio device is
// unavailable. Losing audio is a recoverable condition, never a crash:
// the logical beat stream and input matching continue in silent mode.
func NewOutputOrNull(backend Backend, cache *ClickCache, log *zap.Logger) Output {
	if log == nil {
		log = zap.NewNop()
	}
	out, err := NewOutput(backend, cache, log)
	if err != nil {
		log.Warn("audio device unavailable, continuing in silent mode", zap.Error(err))
		return nullOutput{}
	}
	return out
}

type otoOutput struct {
	ctx   *oto.Context
	cache *ClickCache
	log   *zap.Logger
}

func newOtoOutput(cache *ClickCache, log *zap.Logger) (*otoOutput, error) {
	op := &oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: channelCount,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	log.Info("audio output initialized",
		zap.Int("sample_rate", SampleRate),
		zap.Int("channels", channelCount))

	return &otoOutput{ctx: ctx, cache: cache, log: log}, nil
}

func (o *otoOutput) PlayClick(accented bool) error {
	player := o.ctx.NewPlayer(bytes.NewReader(o.cache.Click(accented)))
	player.Play()
	return nil
}

func (o *otoOutput) Close() error {
	o.ctx.Suspend()
	return nil
}

// nullOutput is the explicit silent backend.
type nullOutput struct{}

func (nullOutput) PlayClick(bool) error { return nil }
func (nullOutput) Close() error         { return nil }

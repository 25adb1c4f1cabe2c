// ABOUTME: MIDI drum input adapter
// ABOUTME: Translates NoteOn events to (voice, velocity, timestamp) hits
package midiin

import (
	"fmt"
	"strings"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
	"go.uber.org/zap"

	"github.com/virgo-dtx/rhythm-go/pkg/chart"
)

// HitFunc receives one classified drum hit. It is called from the MIDI
// driver's callback goroutine and must not block.
type HitFunc func(voice chart.DrumVoice, velocity float64, at time.Time)

// Listener owns one open MIDI input port. The engine does not manage
// device discovery; losing the device stops the feed without failing
// the session.
type Listener struct {
	drv    *rtmididrv.Driver
	in     drivers.In
	stopFn func()
	log    *zap.Logger
}

// Ports lists the names of available MIDI input ports.
func Ports() ([]string, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmidi driver: %w", err)
	}
	defer drv.Close()

	ins, err := drv.Ins()
	if err != nil {
		return nil, fmt.Errorf("list midi inputs: %w", err)
	}

	names := make([]string, 0, len(ins))
	for _, in := range ins {
		names = append(names, in.String())
	}
	return names, nil
}

// Open connects to the first input port whose name contains portName
// (case-insensitive), or the first port when portName is empty, and
// feeds percussion NoteOn events to onHit.
func Open(portName string, onHit HitFunc, log *zap.Logger) (*Listener, error) {
	if log == nil {
		log = zap.NewNop()
	}

	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmidi driver: %w", err)
	}

	in, err := findPort(drv, portName)
	if err != nil {
		drv.Close()
		return nil, err
	}

	if err := in.Open(); err != nil {
		drv.Close()
		return nil, fmt.Errorf("open midi port %q: %w", in.String(), err)
	}

	stopFn, err := midi.ListenTo(in, func(msg midi.Message, _ int32) {
		var ch, key, vel uint8
		if !msg.GetNoteStart(&ch, &key, &vel) {
			return
		}
		voice, ok := VoiceForKey(key)
		if !ok {
			log.Debug("unmapped percussion key", zap.Uint8("key", key))
			return
		}
		onHit(voice, float64(vel)/127.0, time.Now())
	}, midi.HandleError(func(listenErr error) {
		// Device loss is tolerated: the feed stops, the session keeps
		// running on keyboard input.
		log.Warn("midi listener error", zap.Error(listenErr))
	}))
	if err != nil {
		in.Close()
		drv.Close()
		return nil, fmt.Errorf("listen on midi port %q: %w", in.String(), err)
	}

	log.Info("midi input connected", zap.String("port", in.String()))

	return &Listener{drv: drv, in: in, stopFn: stopFn, log: log}, nil
}

// Close stops listening and releases the driver.
func (l *Listener) Close() {
	if l.stopFn != nil {
		l.stopFn()
	}
	if l.in != nil {
		l.in.Close()
	}
	if l.drv != nil {
		l.drv.Close()
	}
	l.log.Info("midi input closed")
}

func findPort(drv *rtmididrv.Driver, portName string) (drivers.In, error) {
	ins, err := drv.Ins()
	if err != nil {
		return nil, fmt.Errorf("list midi inputs: %w", err)
	}
	if len(ins) == 0 {
		return nil, fmt.Errorf("no midi input ports available")
	}
	if portName == "" {
		return ins[0], nil
	}
	for _, in := range ins {
		if strings.Contains(strings.ToLower(in.String()), strings.ToLower(portName)) {
			return in, nil
		}
	}
	return nil, fmt.Errorf("no midi input port matching %q", portName)
}

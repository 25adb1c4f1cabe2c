// ABOUTME: Session controller orchestrating scheduler, trigger bridge and matcher
// ABOUTME: Owns the tempo+index snapshot so matching and beats can never diverge
package rhythm

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/virgo-dtx/rhythm-go/pkg/beat"
	"github.com/virgo-dtx/rhythm-go/pkg/chart"
	"github.com/virgo-dtx/rhythm-go/pkg/match"
	"github.com/virgo-dtx/rhythm-go/pkg/timeline"
	"github.com/virgo-dtx/rhythm-go/pkg/trigger"
)

// State is the session lifecycle position.
type State int32

const (
	StateIdle State = iota
	StateConfigured
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConfigured:
		return "configured"
	case StateRunning:
		return "running"
	default:
		return "stopped"
	}
}

// Config holds session construction parameters.
type Config struct {
	// Backend selects real or null audio. Zero value is the real device.
	Backend trigger.Backend

	// Logger defaults to a no-op logger.
	Logger *zap.Logger

	// Now overrides the hardware clock, for tests. Nil means time.Now.
	Now func() time.Time
}

// snapshot is the tempo and note index pair read by input matching.
// The two always travel together: SubmitInput loads one pointer, so a
// speed change can never be observed half-applied.
type snapshot struct {
	tempo chart.Tempo
	index *chart.Index
}

// Session drives one playback session. Exactly one Session exists per
// active playback; SubmitInput may be called concurrently from
// independent input sources without coordination.
type Session struct {
	id      uuid.UUID
	log     *zap.Logger
	backend trigger.Backend
	nowFn   func() time.Time
	clicks  *trigger.ClickCache

	state  atomic.Int32
	snap   atomic.Pointer[snapshot]
	mapper atomic.Pointer[timeline.Mapper]

	// mu serializes lifecycle and reconfiguration; it is never held
	// across a scheduling call or while input matching runs.
	mu    sync.Mutex
	base  chart.Tempo
	notes []chart.Note
	speed float64

	sched  *beat.Scheduler
	bridge *trigger.Bridge
	out    trigger.Output

	obsMu    sync.Mutex
	beatObs  []func(beat.Event)
	matchObs []func(match.Result)

	matchCh chan match.Result
	fwdStop chan struct{}
	fwdWg   sync.WaitGroup
}

// New creates an idle session.
func New(cfg Config) *Session {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	id := uuid.New()

	return &Session{
		id:      id,
		log:     log.With(zap.String("session", id.String())),
		backend: cfg.Backend,
		nowFn:   cfg.Now,
		clicks:  trigger.NewClickCache(),
		speed:   1.0,
		matchCh: make(chan match.Result, 32),
	}
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Speed returns the current speed multiplier.
func (s *Session) Speed() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speed
}

// Tempo returns the effective tempo (base scaled by speed), or false
// when the session has not been configured.
func (s *Session) Tempo() (chart.Tempo, bool) {
	snap := s.snap.Load()
	if snap == nil {
		return chart.Tempo{}, false
	}
	return snap.tempo, true
}

// Configure installs the tempo and note chart for this session. The
// notes are copied; the engine holds an immutable snapshot. Rejected
// while running; on any validation error the session is unchanged.
func (s *Session) Configure(bpm float64, beatsPerMeasure, noteValue uint, notes []chart.Note) error {
	tempo := chart.Tempo{
		BPM: bpm,
		TimeSignature: chart.TimeSignature{
			BeatsPerMeasure: beatsPerMeasure,
			NoteValue:       noteValue,
		},
	}
	if err := tempo.Validate(); err != nil {
		return err
	}
	for i, n := range notes {
		if err := n.Validate(); err != nil {
			return fmt.Errorf("note %d: %w", i, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if State(s.state.Load()) == StateRunning {
		return fmt.Errorf("cannot configure a running session")
	}

	s.base = tempo
	s.notes = append([]chart.Note(nil), notes...)
	eff := tempo.Scaled(s.speed)
	s.snap.Store(&snapshot{tempo: eff, index: chart.Build(s.notes, eff)})
	s.state.Store(int32(StateConfigured))

	s.log.Info("session configured",
		zap.Float64("bpm", bpm),
		zap.Uint("beats_per_measure", beatsPerMeasure),
		zap.Uint("note_value", noteValue),
		zap.Int("notes", len(notes)),
		zap.Float64("speed", s.speed))
	return nil
}

// Start pins abstract time zero to the hardware clock and begins the
// beat stream. Starting a running session is a no-op.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch State(s.state.Load()) {
	case StateRunning:
		return nil
	case StateIdle:
		return fmt.Errorf("session not configured")
	}

	snap := s.snap.Load()
	mapper := timeline.Start(s.nowFn)
	s.mapper.Store(mapper)

	s.out = trigger.NewOutputOrNull(s.backend, s.clicks, s.log)
	s.bridge = trigger.New(s.out, mapper, s.log)
	s.bridge.Start()

	s.sched = beat.New(beat.Config{
		Tempo:  snap.tempo,
		Now:    mapper.Now,
		OnBeat: s.bridge.OnBeat,
		Logger: s.log,
	})

	// Drop any results left over from a previous run.
	for len(s.matchCh) > 0 {
		<-s.matchCh
	}
	s.fwdStop = make(chan struct{})
	s.fwdWg.Add(1)
	go s.forward(s.bridge.Events(), s.matchCh, s.fwdStop)

	s.state.Store(int32(StateRunning))
	s.sched.Start(0)

	s.log.Info("session started", zap.Float64("effective_bpm", snap.tempo.BPM))
	return nil
}

// Stop halts the beat stream. No beat callback fires after Stop
// returns. The session can be restarted or reconfigured afterwards.
func (s *Session) Stop() {
	s.mu.Lock()
	if State(s.state.Load()) != StateRunning {
		s.mu.Unlock()
		return
	}
	s.state.Store(int32(StateStopped))
	sched, bridge, out, fwdStop := s.sched, s.bridge, s.out, s.fwdStop
	s.mu.Unlock()

	sched.Stop()
	bridge.Stop()
	close(fwdStop)
	s.fwdWg.Wait()
	if err := out.Close(); err != nil {
		s.log.Warn("audio output close failed", zap.Error(err))
	}

	played, dropped := bridge.Stats()
	s.log.Info("session stopped",
		zap.Int64("clicks_played", played),
		zap.Int64("clicks_dropped", dropped))
}

// Toggle stops a running session or starts a configured one.
func (s *Session) Toggle() error {
	if s.State() == StateRunning {
		s.Stop()
		return nil
	}
	return s.Start()
}

// SetSpeed applies a practice speed multiplier to the base tempo. The
// new tempo and the rebuilt note index are installed as one atomic
// snapshot, and the beat scheduler is retimed in the same critical
// section, so matching and beat generation always agree on the
// interval.
func (s *Session) SetSpeed(multiplier float64) error {
	if multiplier < 0.25 || multiplier > 1.5 || math.IsNaN(multiplier) {
		return fmt.Errorf("speed multiplier %v out of range [0.25, 1.5]", multiplier)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.speed = multiplier
	if State(s.state.Load()) == StateIdle {
		return nil
	}

	eff := s.base.Scaled(multiplier)
	s.snap.Store(&snapshot{tempo: eff, index: chart.Build(s.notes, eff)})
	if State(s.state.Load()) == StateRunning {
		s.sched.SetTempo(eff)
	}

	s.log.Info("speed changed",
		zap.Float64("multiplier", multiplier),
		zap.Float64("effective_bpm", eff.BPM))
	return nil
}

// SubmitInput classifies one input event against the chart. It returns
// synchronously, never blocks, and never errors: input outside a
// running session is a Miss with no matched note. Safe for concurrent
// use from independent input threads; it takes no lock that could
// stall the timer goroutine.
func (s *Session) SubmitInput(voice chart.DrumVoice, velocity float64, at time.Time) match.Result {
	hit := match.InputHit{Voice: voice, Velocity: clamp01(velocity), Timestamp: at}

	if State(s.state.Load()) != StateRunning {
		return match.Miss(hit)
	}

	mapper := s.mapper.Load()
	snap := s.snap.Load()
	res := match.Evaluate(hit, mapper.Abstract(at), snap.tempo, snap.index)

	select {
	case s.matchCh <- res:
	default:
	}
	return res
}

// OnBeat registers a best-effort beat observer. Callbacks run on the
// session's notification goroutine, decoupled from audio timing; a
// slow observer loses events, it cannot delay them.
func (s *Session) OnBeat(cb func(beat.Event)) {
	s.obsMu.Lock()
	s.beatObs = append(s.beatObs, cb)
	s.obsMu.Unlock()
}

// OnMatch registers a best-effort match observer.
func (s *Session) OnMatch(cb func(match.Result)) {
	s.obsMu.Lock()
	s.matchObs = append(s.matchObs, cb)
	s.obsMu.Unlock()
}

// Stats returns click playback counters for the current run.
func (s *Session) Stats() (played, dropped int64) {
	s.mu.Lock()
	bridge := s.bridge
	s.mu.Unlock()
	if bridge == nil {
		return 0, 0
	}
	return bridge.Stats()
}

// forward fans beat and match notifications out to registered
// observers on a dedicated goroutine.
func (s *Session) forward(beats <-chan beat.Event, matches <-chan match.Result, stop <-chan struct{}) {
	defer s.fwdWg.Done()

	for {
		select {
		case ev := <-beats:
			s.obsMu.Lock()
			obs := append(([]func(beat.Event))(nil), s.beatObs...)
			s.obsMu.Unlock()
			for _, cb := range obs {
				cb(ev)
			}

		case res := <-matches:
			s.obsMu.Lock()
			obs := append(([]func(match.Result))(nil), s.matchObs...)
			s.obsMu.Unlock()
			for _, cb := range obs {
				cb(res)
			}

		case <-stop:
			return
		}
	}
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ABOUTME: Goroutine-driven beat scheduler over the abstract timeline
// ABOUTME: Sleeps to recomputed deadlines; stop guarantees no further firings
package beat

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/virgo-dtx/rhythm-go/pkg/chart"
)

// Config holds scheduler construction parameters.
type Config struct {
	// Tempo is the initial tempo; it can be changed later with SetTempo.
	Tempo chart.Tempo

	// Now reports the current abstract time. Required.
	Now func() time.Duration

	// OnBeat is invoked once per beat from the scheduler goroutine,
	// never from the caller's goroutine. Required.
	OnBeat func(Event)

	Logger *zap.Logger
}

// Scheduler produces the logical beat stream on its own goroutine,
// dedicated to timing work so UI or input load cannot delay beats.
type Scheduler struct {
	now    func() time.Duration
	onBeat func(Event)
	log    *zap.Logger

	mu    sync.Mutex
	tempo chart.Tempo
	g     grid
	kick  chan struct{}

	running atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// New creates a stopped scheduler.
func New(cfg Config) *Scheduler {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		now:    cfg.Now,
		onBeat: cfg.OnBeat,
		log:    log,
		tempo:  cfg.Tempo,
		kick:   make(chan struct{}, 1),
	}
}

// Start begins firing beats, the first at the given abstract instant.
// Calling Start while running is a no-op.
func (s *Scheduler) Start(at time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running.Load() {
		return
	}
	s.g = newGrid(s.tempo, at)
	s.stopCh = make(chan struct{})
	s.running.Store(true)
	s.wg.Add(1)
	go s.loop(s.stopCh)
}

// Stop cancels the beat stream and resets the fired count so a restart
// begins cleanly at beat one. No beat callback is observed after Stop
// returns: an already-dispatched loop iteration checks the running flag
// before each callback and suppresses it.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running.Load() {
		s.mu.Unlock()
		return
	}
	s.running.Store(false)
	close(s.stopCh)
	s.mu.Unlock()
	s.wg.Wait()
}

// Toggle stops a running scheduler or starts a stopped one at the
// current abstract instant.
func (s *Scheduler) Toggle() {
	if s.running.Load() {
		s.Stop()
		return
	}
	s.Start(s.now())
}

// Running reports whether the beat stream is active.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// Fired returns the number of beats emitted since Start.
func (s *Scheduler) Fired() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.g.fired
}

// SetTempo switches to a new tempo, effective at the next beat. While
// running, the grid is re-anchored so the beat count stays monotonic
// and the measure phase is recomputed at the new interval.
func (s *Scheduler) SetTempo(tempo chart.Tempo) {
	s.mu.Lock()
	s.tempo = tempo
	if s.running.Load() {
		s.g.retime(tempo, s.now())
	}
	s.mu.Unlock()

	select {
	case s.kick <- struct{}{}:
	default:
	}
}

func (s *Scheduler) loop(stop <-chan struct{}) {
	defer s.wg.Done()

	timer := time.NewTimer(0)
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	defer timer.Stop()

	for {
		s.mu.Lock()
		evs := s.g.advance(s.now())
		wait := s.g.nextDeadline() - s.now()
		s.mu.Unlock()

		for _, ev := range evs {
			if !s.running.Load() {
				return
			}
			s.onBeat(ev)
		}

		if wait < 0 {
			wait = 0
		}
		timer.Reset(wait)

		select {
		case <-timer.C:
		case <-s.kick:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		case <-stop:
			return
		}
	}
}

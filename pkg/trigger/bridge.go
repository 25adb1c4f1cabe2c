// ABOUTME: Audio trigger bridge between the logical beat stream and the device
// ABOUTME: Lookahead heap of hardware-time deadlines; UI notification is best-effort
package trigger

import (
	"container/heap"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/virgo-dtx/rhythm-go/pkg/beat"
	"github.com/virgo-dtx/rhythm-go/pkg/timeline"
)

const (
	// lookahead bounds the rolling window of future clicks so a burst of
	// catch-up beats cannot grow the queue without limit.
	lookahead = 8

	// lateLimit is how far past its deadline a click may still play.
	lateLimit = 50 * time.Millisecond

	idleWait = time.Second
)

// Bridge converts beat events to hardware-clock click playback. It is
// decoupled from the beat scheduler by its own goroutine and queue, so
// audio-thread jitter never feeds back into logical beat counting.
type Bridge struct {
	out    Output
	mapper *timeline.Mapper
	log    *zap.Logger

	mu    sync.Mutex
	queue clickQueue
	kick  chan struct{}

	// events feeds the session's beat observer. Sends never block: a
	// slow UI loses notifications, it does not delay audio.
	events chan beat.Event

	running atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	played  atomic.Int64
	dropped atomic.Int64
}

// New creates a bridge that plays clicks on out, converting abstract
// beat times to the hardware clock through mapper.
func New(out Output, mapper *timeline.Mapper, log *zap.Logger) *Bridge {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bridge{
		out:    out,
		mapper: mapper,
		log:    log,
		kick:   make(chan struct{}, 1),
		events: make(chan beat.Event, 16),
	}
}

// Start launches the playback goroutine.
func (b *Bridge) Start() {
	if !b.running.CompareAndSwap(false, true) {
		return
	}
	b.stopCh = make(chan struct{})
	b.wg.Add(1)
	go b.loop(b.stopCh)
}

// Stop halts playback and discards any queued clicks. A click already
// dispatched before Stop checks the running flag and is suppressed.
func (b *Bridge) Stop() {
	if !b.running.CompareAndSwap(true, false) {
		return
	}
	close(b.stopCh)
	b.wg.Wait()

	b.mu.Lock()
	b.queue.items = nil
	b.mu.Unlock()
}

// OnBeat accepts one beat event. The abstract-to-hardware conversion
// happens here, once per event at schedule time; it is never recomputed
// retroactively.
func (b *Bridge) OnBeat(ev beat.Event) {
	item := scheduledClick{ev: ev, playAt: b.mapper.Hardware(ev.IdealTime)}

	b.mu.Lock()
	if b.queue.Len() >= lookahead {
		// Shed the stalest click rather than the incoming one.
		stale := heap.Pop(&b.queue).(scheduledClick)
		b.dropped.Add(1)
		b.log.Warn("trigger queue full, dropped click", zap.Uint64("beat", stale.ev.Number))
	}
	heap.Push(&b.queue, item)
	b.mu.Unlock()

	select {
	case b.kick <- struct{}{}:
	default:
	}
}

// Events returns the best-effort beat notification feed for UI use.
func (b *Bridge) Events() <-chan beat.Event {
	return b.events
}

// Stats returns played and dropped click counts.
func (b *Bridge) Stats() (played, dropped int64) {
	return b.played.Load(), b.dropped.Load()
}

func (b *Bridge) loop(stop <-chan struct{}) {
	defer b.wg.Done()

	timer := time.NewTimer(idleWait)
	defer timer.Stop()

	for {
		var fire []scheduledClick
		wait := idleWait

		b.mu.Lock()
		for b.queue.Len() > 0 {
			next := b.queue.Peek()
			d := next.playAt.Sub(b.mapper.HardwareNow())
			if d > 0 {
				wait = d
				break
			}
			heap.Pop(&b.queue)
			if d < -lateLimit {
				b.dropped.Add(1)
				b.log.Warn("dropped late click",
					zap.Uint64("beat", next.ev.Number),
					zap.Duration("late_by", -d))
				continue
			}
			fire = append(fire, next)
		}
		b.mu.Unlock()

		for _, sc := range fire {
			if !b.running.Load() {
				return
			}
			if err := b.out.PlayClick(sc.ev.Accented); err != nil {
				b.log.Warn("click playback failed", zap.Error(err))
			}
			b.played.Add(1)

			select {
			case b.events <- sc.ev:
			default:
			}
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-timer.C:
		case <-b.kick:
		case <-stop:
			return
		}
	}
}

// scheduledClick pairs a beat event with its hardware deadline.
type scheduledClick struct {
	ev     beat.Event
	playAt time.Time
}

// clickQueue is a min-heap ordered by hardware play time.
type clickQueue struct {
	items []scheduledClick
}

func (q *clickQueue) Len() int { return len(q.items) }

func (q *clickQueue) Less(i, j int) bool {
	return q.items[i].playAt.Before(q.items[j].playAt)
}

func (q *clickQueue) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
}

func (q *clickQueue) Push(x any) {
	q.items = append(q.items, x.(scheduledClick))
}

func (q *clickQueue) Pop() any {
	n := len(q.items)
	item := q.items[n-1]
	q.items = q.items[:n-1]
	return item
}

func (q *clickQueue) Peek() scheduledClick {
	return q.items[0]
}

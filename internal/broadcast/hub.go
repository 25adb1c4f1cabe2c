// ABOUTME: Best-effort websocket stream of beat and match events
// ABOUTME: Slow or stuck UI clients lose frames, they never block the engine
package broadcast

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/virgo-dtx/rhythm-go/internal/version"
	"github.com/virgo-dtx/rhythm-go/pkg/beat"
	"github.com/virgo-dtx/rhythm-go/pkg/match"
)

// BeatFrame is the JSON shape of one beat notification.
type BeatFrame struct {
	Type          string `json:"type"`
	Number        uint64 `json:"number"`
	BeatInMeasure uint   `json:"beat_in_measure"`
	Accented      bool   `json:"accented"`
	IdealTimeNs   int64  `json:"ideal_time_ns"`
}

// MatchFrame is the JSON shape of one match notification.
type MatchFrame struct {
	Type          string  `json:"type"`
	Voice         string  `json:"voice"`
	Tier          string  `json:"tier"`
	TimingErrorMs float64 `json:"timing_error_ms"`
	Matched       bool    `json:"matched"`
	Measure       uint    `json:"measure"`
	MeasureOffset float64 `json:"measure_offset"`
}

type helloFrame struct {
	Type    string `json:"type"`
	Product string `json:"product"`
	Version string `json:"version"`
}

// Hub fans engine events out to websocket UI clients.
type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan any
}

// NewHub creates an empty hub.
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		log: log,
		upgrader: websocket.Upgrader{
			// The practice UI is served locally; any origin is fine.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// ServeHTTP upgrades a UI connection and streams frames until it drops.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan any, 64)}
	c.send <- helloFrame{Type: "hello", Product: version.Product, Version: version.Version}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Info("ui client connected", zap.String("remote", conn.RemoteAddr().String()), zap.Int("clients", n))

	go h.writePump(c)
}

// BeatFired broadcasts a beat notification.
func (h *Hub) BeatFired(ev beat.Event) {
	h.broadcast(BeatFrame{
		Type:          "beat",
		Number:        ev.Number,
		BeatInMeasure: ev.BeatInMeasure,
		Accented:      ev.Accented,
		IdealTimeNs:   int64(ev.IdealTime),
	})
}

// MatchMade broadcasts a match notification.
func (h *Hub) MatchMade(res match.Result) {
	h.broadcast(MatchFrame{
		Type:          "match",
		Voice:         res.Hit.Voice.String(),
		Tier:          res.Tier.String(),
		TimingErrorMs: res.TimingErrorMs,
		Matched:       res.Note != nil,
		Measure:       res.Measure,
		MeasureOffset: res.MeasureOffset,
	})
}

// Close disconnects all clients.
func (h *Hub) Close() {
	h.mu.Lock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
	h.mu.Unlock()
}

func (h *Hub) broadcast(frame any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- frame:
		default:
			// Client too slow; drop the frame.
		}
	}
}

func (h *Hub) writePump(c *client) {
	defer c.conn.Close()

	for frame := range c.send {
		if err := c.conn.WriteJSON(frame); err != nil {
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			h.log.Info("ui client disconnected", zap.Error(err))
			return
		}
	}
}

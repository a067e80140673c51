package preview

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/decklab/decklab/internal/logging"
)

// Sessions send nothing meaningful; keep the read limit small.
const maxMessageSize = 512

var (
	// Time allowed to write a message or ping to the peer.
	writeWait = 10 * time.Second

	// Ping period. The ping round trip is what establishes a session is
	// alive; the protocol defines no inbound messages, so an idle read
	// must never be treated as a dead peer.
	pingPeriod = 54 * time.Second
)

// Hub owns the session registry and fans reload signals out to every
// open session.
type Hub struct {
	registry   *Registry
	register   chan *Session
	unregister chan *Session
	broadcast  chan []byte
	logger     logging.Logger

	// onCountChange observes the session count, nil when unused.
	onCountChange func(count int)
}

// NewHub creates a hub over a fresh registry.
func NewHub(logger logging.Logger) *Hub {
	return &Hub{
		registry:   NewRegistry(),
		register:   make(chan *Session),
		unregister: make(chan *Session),
		broadcast:  make(chan []byte, 16),
		logger:     logger.WithComponent("preview"),
	}
}

// OnCountChange registers an observer for the open-session count. Must
// be called before Run.
func (h *Hub) OnCountChange(fn func(count int)) {
	h.onCountChange = fn
}

// SessionCount returns the number of open sessions.
func (h *Hub) SessionCount() int {
	return h.registry.Count()
}

// Broadcast queues one signal for delivery to every currently-open
// session.
func (h *Hub) Broadcast(message []byte) {
	h.broadcast <- message
}

// Run processes registration and broadcast events until the context is
// canceled, then closes every remaining session.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for _, session := range h.registry.Snapshot() {
				h.drop(ctx, session)
			}
			return

		case session := <-h.register:
			h.registry.Add(session)
			h.notifyCount()
			h.logger.Debug(ctx, "session opened", "sessions", h.registry.Count())

		case session := <-h.unregister:
			h.drop(ctx, session)

		case message := <-h.broadcast:
			for _, session := range h.registry.Snapshot() {
				select {
				case session.send <- message:
				default:
					// Send buffer full: the client is not keeping up,
					// drop the session rather than block the broadcast.
					h.drop(ctx, session)
				}
			}
		}
	}
}

func (h *Hub) drop(ctx context.Context, session *Session) {
	if !h.registry.Remove(session) {
		return
	}
	close(session.send)
	_ = session.conn.Close(websocket.StatusNormalClosure, "")
	h.notifyCount()
	h.logger.Debug(ctx, "session closed", "sessions", h.registry.Count())
}

func (h *Hub) notifyCount() {
	if h.onCountChange != nil {
		h.onCountChange(h.registry.Count())
	}
}

// Accept upgrades an HTTP request into a preview session and starts its
// pumps. A malformed upgrade fails only that request.
func (h *Hub) Accept(w http.ResponseWriter, r *http.Request, originPatterns []string) error {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originPatterns,
	})
	if err != nil {
		return err
	}

	session := &Session{
		conn: conn,
		send: make(chan []byte, 16),
	}

	go h.writePump(session)
	go h.readPump(session)

	h.register <- session
	return nil
}

// readPump consumes inbound frames. Only closure matters; the read
// blocks across any amount of idle time and ends the session on the
// first error. Peer liveness comes from the write pump's pings, not a
// read deadline.
func (h *Hub) readPump(session *Session) {
	defer func() {
		h.unregister <- session
	}()

	session.conn.SetReadLimit(maxMessageSize)
	ctx := context.Background()

	for {
		if _, _, err := session.conn.Read(ctx); err != nil {
			return
		}
	}
}

// writePump delivers queued signals and keeps the channel alive with
// pings. A failed write or ping closes the connection so the blocked
// read pump unwinds and unregisters the session.
func (h *Hub) writePump(session *Session) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	ctx := context.Background()

	for {
		select {
		case message, ok := <-session.send:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := session.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				_ = session.conn.Close(websocket.StatusAbnormalClosure, "write failed")
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := session.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				_ = session.conn.Close(websocket.StatusAbnormalClosure, "ping failed")
				return
			}
		}
	}
}

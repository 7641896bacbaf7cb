package host

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"

	"slideshow-navigator/internal/navigator"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	clientBacklog  = 32
	maxClientFrame = 512
)

// Event is one message on the event stream.
type Event struct {
	Type    string                  `json:"type"`
	State   *navigator.StateEvent   `json:"state,omitempty"`
	Content *navigator.ContentEvent `json:"content,omitempty"`
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Stream broadcasts navigator events to websocket subscribers. It implements
// navigator.Observer; a subscriber that falls behind loses messages instead of
// stalling the foreground.
type Stream struct {
	mu       sync.RWMutex
	clients  map[string]*client
	upgrader websocket.Upgrader
	logger   *slog.Logger
	dropped  atomic.Uint64
}

// NewStream returns an empty stream.
func NewStream(logger *slog.Logger) *Stream {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stream{
		clients: make(map[string]*client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// StateChanged implements navigator.Observer.
func (s *Stream) StateChanged(e navigator.StateEvent) {
	s.broadcast(Event{Type: "state", State: &e})
}

// ContentChanged implements navigator.Observer.
func (s *Stream) ContentChanged(e navigator.ContentEvent) {
	s.broadcast(Event{Type: "content", Content: &e})
}

// Clients returns the number of connected subscribers.
func (s *Stream) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Dropped returns how many messages were skipped for slow subscribers.
func (s *Stream) Dropped() uint64 {
	return s.dropped.Load()
}

// ServeHTTP upgrades the request and streams events until the peer goes away.
func (s *Stream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	c := &client{id: ulid.Make().String(), conn: conn, send: make(chan []byte, clientBacklog)}
	s.register(c)

	go s.writePump(c)
	s.readPump(c)
}

// Close disconnects every subscriber.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.clients {
		close(c.send)
		delete(s.clients, id)
	}
}

func (s *Stream) register(c *client) {
	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()
	s.logger.Debug("event subscriber connected", "client_id", c.id)
}

func (s *Stream) unregister(c *client) {
	s.mu.Lock()
	if _, ok := s.clients[c.id]; ok {
		delete(s.clients, c.id)
		close(c.send)
	}
	s.mu.Unlock()
	s.logger.Debug("event subscriber disconnected", "client_id", c.id)
}

func (s *Stream) broadcast(ev Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		s.logger.Error("marshal event", "error", err)
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.clients {
		select {
		case c.send <- msg:
		default:
			s.dropped.Add(1)
		}
	}
}

// readPump discards client messages and returns when the connection closes.
func (s *Stream) readPump(c *client) {
	defer func() {
		s.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxClientFrame)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Stream) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

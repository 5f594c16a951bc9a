package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonny/creditgate/internal/scan"
	"github.com/wonny/creditgate/pkg/logger"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = pongWait * 9 / 10
	sendBuffer   = 16
)

// StreamMessage is the envelope pushed to websocket subscribers
type StreamMessage struct {
	Type    string     `json:"type"`
	Payload scan.Event `json:"payload"`
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

// RunStream pushes completed scans to websocket subscribers at /ws/runs.
// New subscribers receive the last event first.
// ⭐ SSOT: scan events reach clients through this hub only
type RunStream struct {
	upgrader websocket.Upgrader
	logger   *logger.Logger

	mu      sync.RWMutex
	clients map[*subscriber]struct{}
	last    []byte
}

// NewRunStream creates an empty hub
func NewRunStream(log *logger.Logger) *RunStream {
	return &RunStream{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger:  log.WithField("module", "run_stream"),
		clients: make(map[*subscriber]struct{}),
	}
}

// Publish broadcasts a scan event. Slow subscribers are dropped.
func (s *RunStream) Publish(ev scan.Event) {
	data, err := json.Marshal(StreamMessage{Type: "scan_completed", Payload: ev})
	if err != nil {
		s.logger.WithError(err).Error("Failed to encode scan event")
		return
	}

	s.mu.Lock()
	s.last = data
	var dropped []*subscriber
	for c := range s.clients {
		select {
		case c.send <- data:
		default:
			dropped = append(dropped, c)
		}
	}
	for _, c := range dropped {
		s.remove(c)
	}
	s.mu.Unlock()

	if len(dropped) > 0 {
		s.logger.WithField("dropped", len(dropped)).Warn("Dropped slow run stream subscribers")
	}
}

// Clients returns the number of connected subscribers
func (s *RunStream) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// ServeHTTP upgrades the connection and streams events until it closes
func (s *RunStream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	c := &subscriber{conn: conn, send: make(chan []byte, sendBuffer)}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	if s.last != nil {
		c.send <- s.last
	}
	s.mu.Unlock()

	s.logger.WithField("remote", r.RemoteAddr).Debug("Run stream subscriber connected")

	go s.writePump(c)
	s.readPump(c)
}

// Close disconnects every subscriber
func (s *RunStream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		s.remove(c)
	}
}

// remove must be called with mu held
func (s *RunStream) remove(c *subscriber) {
	if _, ok := s.clients[c]; !ok {
		return
	}
	delete(s.clients, c)
	close(c.send)
}

func (s *RunStream) unregister(c *subscriber) {
	s.mu.Lock()
	s.remove(c)
	s.mu.Unlock()
}

// readPump discards client messages and detects disconnects
func (s *RunStream) readPump(c *subscriber) {
	defer func() {
		s.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *RunStream) writePump(c *subscriber) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/FocuswithJustin/verbum/core/navigate"
	"github.com/FocuswithJustin/verbum/internal/logging"
	"github.com/FocuswithJustin/verbum/internal/session"
)

// WebSocketConfig bounds an interactive reading session.
type WebSocketConfig struct {
	MaxMessageRate int   // Messages per second per connection
	MaxMessageSize int64 // Bytes per inbound frame
	PingInterval   time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
}

// DefaultWebSocketConfig returns the session limits used when none are set.
func DefaultWebSocketConfig() WebSocketConfig {
	return WebSocketConfig{
		MaxMessageRate: 10,
		MaxMessageSize: 4096,
		PingInterval:   54 * time.Second,
		PongWait:       60 * time.Second,
		WriteWait:      10 * time.Second,
	}
}

// Message types sent to websocket clients.
const (
	MessageWelcome = "welcome"
	MessageReply   = "reply"
)

// wsMessage is one frame sent to the client.
type wsMessage struct {
	Type      string         `json:"type"`
	SessionID string         `json:"session_id"`
	Reply     *session.Reply `json:"reply,omitempty"`
	Message   string         `json:"message,omitempty"`
	Timestamp string         `json:"timestamp"`
}

// wsInput is the JSON form of a client frame. Plain text frames are taken
// as the input line itself.
type wsInput struct {
	Input string `json:"input"`
}

// wsClient is one connected reader. Each connection owns its own
// navigation state.
type wsClient struct {
	id      string
	conn    *websocket.Conn
	send    chan []byte
	state   session.State
	limiter *rate.Limiter
	cfg     WebSocketConfig
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if !isOriginAllowed(origin, allowed) {
			logging.SecurityEvent("websocket_origin_rejected", "websocket", "origin", origin)
			return false
		}
		return true
	}
}

// isOriginAllowed supports exact matches, "*" and "*.example.com".
func isOriginAllowed(origin string, allowedOrigins []string) bool {
	// Browsers always send Origin on websocket upgrades.
	if origin == "" {
		return false
	}

	for _, allowed := range allowedOrigins {
		if allowed == "*" || origin == allowed {
			return true
		}
		if domain, ok := strings.CutPrefix(allowed, "*."); ok {
			if strings.HasSuffix(origin, "."+domain) {
				return true
			}
		}
	}
	return false
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		logging.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}

	cfg := s.cfg.WebSocket
	c := &wsClient{
		id:      uuid.NewString(),
		conn:    conn,
		send:    make(chan []byte, 16),
		limiter: rate.NewLimiter(rate.Limit(cfg.MaxMessageRate), max(1, cfg.MaxMessageRate)),
		cfg:     cfg,
	}

	s.metrics.WebSocketSessions.Inc()
	logging.WebSocketEvent("connect", c.id, "remote_addr", getClientIP(r))

	c.enqueue(wsMessage{
		Type:    MessageWelcome,
		Message: "Enter a reference to begin. " + session.ReferenceHint + ". Type :help for commands.",
	})

	go c.writePump()
	s.readPump(r.Context(), c)

	s.metrics.WebSocketSessions.Dec()
	logging.WebSocketEvent("disconnect", c.id)
}

// readPump runs one session until the client leaves, quits or breaks the
// rate limit. It closes c.send on return.
func (s *Server) readPump(ctx context.Context, c *wsClient) {
	defer close(c.send)

	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Warn("websocket unexpected close", "session_id", c.id, "error", err)
			}
			return
		}

		if !c.limiter.Allow() {
			logging.SecurityEvent("websocket_rate_limited", "websocket", "session_id", c.id)
			c.closeWith(websocket.ClosePolicyViolation, "message rate exceeded")
			return
		}

		var reply session.Reply
		c.state, reply = s.stepper.Step(ctx, c.state, parseInput(data))
		if reply.Kind == session.KindNone {
			continue
		}
		switch reply.Command {
		case session.CmdNext:
			s.metrics.NavigationsTotal.WithLabelValues(navigate.Next.String(), navigationResult(reply.Err)).Inc()
		case session.CmdPrev:
			s.metrics.NavigationsTotal.WithLabelValues(navigate.Prev.String(), navigationResult(reply.Err)).Inc()
		}

		c.enqueue(wsMessage{Type: MessageReply, Reply: &reply})
		if reply.Kind == session.KindQuit {
			// writePump flushes the reply, then sends the close frame.
			return
		}
	}
}

// parseInput accepts {"input": "..."} or a bare line of text.
func parseInput(data []byte) string {
	var in wsInput
	if json.Unmarshal(data, &in) == nil && in.Input != "" {
		return in.Input
	}
	return strings.TrimSpace(string(data))
}

func (c *wsClient) enqueue(msg wsMessage) {
	msg.SessionID = c.id
	msg.Timestamp = time.Now().UTC().Format(time.RFC3339)
	data, err := json.Marshal(msg)
	if err != nil {
		logging.Error("failed to marshal websocket message", "session_id", c.id, "error", err)
		return
	}
	select {
	case c.send <- data:
	default:
		logging.Warn("websocket send buffer full, dropping message", "session_id", c.id)
	}
}

func (c *wsClient) closeWith(code int, text string) {
	deadline := time.Now().Add(c.cfg.WriteWait)
	c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), deadline)
}

// writePump sends queued frames and keeps the connection alive with pings.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

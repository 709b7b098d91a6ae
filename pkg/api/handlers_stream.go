package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/odvcencio/snaplist/pkg/bus"
	"github.com/odvcencio/snaplist/pkg/errors"
)

const streamHeartbeat = 30 * time.Second

// StreamEvent is one audit event relayed from the bus.
type StreamEvent struct {
	Type      string          `json:"type"`
	Subject   string          `json:"subject,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

var errStreamDisabled = errors.New(errors.ErrCodeInternal, "event bus not configured").
	WithUserMessage("event stream is not enabled")

// subscribeEvents relays every event under the configured prefix into a
// buffered channel. Events are dropped when the client falls behind.
func (s *Server) subscribeEvents(ctx context.Context) (<-chan StreamEvent, bus.Subscription, error) {
	events := make(chan StreamEvent, 128)
	sub, err := s.events.Subscribe(ctx, s.cfg.SubjectPrefix+".>", func(msg *bus.Message) {
		ev := StreamEvent{Type: "event", Subject: msg.Subject, Timestamp: time.Now().UTC()}
		if json.Valid(msg.Data) {
			ev.Data = msg.Data
		}
		select {
		case events <- ev:
		default:
		}
	})
	if err != nil {
		return nil, nil, err
	}
	return events, sub, nil
}

// handleEvents streams audit events (submissions and session lifecycle) as
// server-sent events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		respondError(w, http.StatusServiceUnavailable, errStreamDisabled)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, errors.New(errors.ErrCodeInternal, "streaming not supported"))
		return
	}

	ctx := r.Context()
	events, sub, err := s.subscribeEvents(ctx)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	defer func() { _ = sub.Unsubscribe() }()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if !writeSSE(w, "connected", StreamEvent{Type: "connected", Subject: sub.Subject(), Timestamp: time.Now().UTC()}) {
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(streamHeartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Write([]byte(": heartbeat\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case ev := <-events:
			if !writeSSE(w, ev.Subject, ev) {
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, name string, ev StreamEvent) bool {
	data, err := json.Marshal(ev)
	if err != nil {
		return true
	}
	_, err = w.Write([]byte("event: " + name + "\ndata: " + string(data) + "\n\n"))
	return err == nil
}

// handleWebSocket streams the same events over a WebSocket. The stream is
// one-way; client frames are discarded.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		respondError(w, http.StatusServiceUnavailable, errStreamDisabled)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.websocketOriginPatterns(),
	})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")

	ctx := conn.CloseRead(r.Context())
	events, sub, err := s.subscribeEvents(ctx)
	if err != nil {
		conn.Close(websocket.StatusInternalError, "subscription failed")
		return
	}
	defer func() { _ = sub.Unsubscribe() }()

	if err := wsjson.Write(ctx, conn, StreamEvent{Type: "connected", Subject: sub.Subject(), Timestamp: time.Now().UTC()}); err != nil {
		return
	}

	ticker := time.NewTicker(streamHeartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := wsjson.Write(ctx, conn, StreamEvent{Type: "heartbeat", Timestamp: time.Now().UTC()}); err != nil {
				return
			}
		case ev := <-events:
			if err := wsjson.Write(ctx, conn, ev); err != nil {
				return
			}
		}
	}
}

// websocketOriginPatterns mirrors the CORS policy as host patterns.
func (s *Server) websocketOriginPatterns() []string {
	if len(s.cfg.AllowedOrigins) == 0 {
		return []string{"localhost", "localhost:*", "127.0.0.1", "127.0.0.1:*", "[::1]", "[::1]:*"}
	}
	var patterns []string
	for _, origin := range s.cfg.AllowedOrigins {
		origin = strings.TrimSpace(origin)
		if origin == "*" {
			return []string{"*"}
		}
		if u, err := url.Parse(origin); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
		}
	}
	return patterns
}

package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gezibash/arc-skill/internal/observability"
	"github.com/gezibash/arc-skill/pkg/envelope"
)

const wsWriteWait = 10 * time.Second

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}

// handleWebSocket reads one request envelope per text frame and writes one
// response envelope, or an error body, per frame.
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.DebugContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	if !h.track(conn) {
		conn.Close()
		return
	}
	defer h.untrack(conn)

	conn.SetReadLimit(h.maxBody)
	ctx := observability.ExtractHTTP(r.Context(), r.Header)
	h.log.DebugContext(ctx, "websocket connected", "remote", r.RemoteAddr)

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.DebugContext(ctx, "websocket read ended", "error", err)
			}
			return
		}
		h.countBytes(transportWS, "in", len(data))

		var out []byte
		if mt != websocket.TextMessage {
			out, _ = envelope.Marshal(errorBody{Error: "expected a text frame"})
		} else {
			out = h.invokeFrame(ctx, data)
		}

		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteMessage(websocket.TextMessage, out); err != nil {
			h.log.DebugContext(ctx, "websocket write failed", "error", err)
			return
		}
		h.countBytes(transportWS, "out", len(out))
	}
}

func (h *Handler) invokeFrame(ctx context.Context, data []byte) []byte {
	out, err := h.invokeJSON(ctx, data)
	if err != nil {
		out, _ = envelope.Marshal(errorBody{Error: err.Error()})
	}
	return out
}

func (h *Handler) invokeJSON(ctx context.Context, data []byte) ([]byte, error) {
	env, err := envelope.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	resp, err := h.inv.Invoke(ctx, env)
	if err != nil {
		h.log.WarnContext(ctx, "invoke failed", "request_id", env.RequestID(), "error", err)
		return nil, err
	}
	return envelope.Marshal(resp)
}

func (h *Handler) track(conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.conns[conn] = struct{}{}
	if h.metrics != nil {
		h.metrics.ActiveConnections.WithLabelValues(transportWS).Inc()
	}
	return true
}

func (h *Handler) untrack(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.conns[conn]; ok {
		delete(h.conns, conn)
		if h.metrics != nil {
			h.metrics.ActiveConnections.WithLabelValues(transportWS).Dec()
		}
	}
	h.mu.Unlock()
	conn.Close()
}

// CloseConnections sends a close frame to every open websocket and refuses
// new ones. http.Server.Shutdown does not track hijacked connections.
func (h *Handler) CloseConnections() {
	h.mu.Lock()
	h.closed = true
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	deadline := time.Now().Add(time.Second)
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	for _, c := range conns {
		_ = c.WriteControl(websocket.CloseMessage, msg, deadline)
		c.Close()
	}
}

package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/gezibash/arc-skill/internal/observability"
	"github.com/gezibash/arc-skill/pkg/envelope"
	"github.com/gezibash/arc-skill/pkg/response"
)

const (
	transportHTTP = "http"
	transportWS   = "ws"

	defaultMaxBodyBytes = 1 << 20
)

// Invoker dispatches one request envelope. *skill.Skill implements it.
type Invoker interface {
	Invoke(ctx context.Context, env *envelope.RequestEnvelope) (*response.Envelope, error)
}

// HandlerOptions configures the HTTP and websocket endpoints.
type HandlerOptions struct {
	MaxBodyBytes int64
	// AllowedOrigins lists browser origins accepted on /ws. "*" accepts any.
	// Requests without an Origin header and same-host requests are always
	// accepted.
	AllowedOrigins []string
	Metrics        *observability.Metrics
	Logger         *slog.Logger
}

// Handler serves POST /skill, GET /health and GET /ws.
type Handler struct {
	inv      Invoker
	maxBody  int64
	metrics  *observability.Metrics
	log      *slog.Logger
	upgrader websocket.Upgrader
	mux      *http.ServeMux

	mu     sync.Mutex
	conns  map[*websocket.Conn]struct{}
	closed bool
}

// NewHandler creates the HTTP handler for inv.
func NewHandler(inv Invoker, opts HandlerOptions) *Handler {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	h := &Handler{
		inv:     inv,
		maxBody: opts.MaxBodyBytes,
		metrics: opts.Metrics,
		log:     opts.Logger.With("component", "http"),
		conns:   make(map[*websocket.Conn]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(opts.AllowedOrigins),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /skill", h.handleSkill)
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /ws", h.handleWebSocket)
	h.mux = mux
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) handleSkill(w http.ResponseWriter, r *http.Request) {
	ctx := observability.ExtractHTTP(r.Context(), r.Header)

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		h.writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}
	h.countBytes(transportHTTP, "in", len(data))

	env, err := envelope.Unmarshal(data)
	if err != nil {
		h.writeError(w, httpStatus(err), err.Error())
		return
	}

	resp, err := h.inv.Invoke(ctx, env)
	if err != nil {
		h.log.WarnContext(ctx, "invoke failed", "request_id", env.RequestID(), "error", err)
		h.writeError(w, httpStatus(err), err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	conns := len(h.conns)
	h.mu.Unlock()
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "connections": conns})
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, v any) {
	data, err := envelope.Marshal(v)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "encode response: "+err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	n, _ := w.Write(data)
	h.countBytes(transportHTTP, "out", n)
}

func (h *Handler) writeError(w http.ResponseWriter, code int, msg string) {
	data, _ := envelope.Marshal(errorBody{Error: msg})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	n, _ := w.Write(data)
	h.countBytes(transportHTTP, "out", n)
}

func (h *Handler) countBytes(transport, direction string, n int) {
	if h.metrics == nil || n <= 0 {
		return
	}
	h.metrics.PayloadBytes.WithLabelValues(transport, direction).Add(float64(n))
}

package rpc

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"feedregistry/native/feeds"
	"feedregistry/observability"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeUnauthorized   = -32001
	codeNotFound       = -32004
	codeRateLimited    = -32020
)

// Server exposes the feed registry over JSON-RPC.
type Server struct {
	engine  *feeds.Engine
	dialer  feeds.Dialer
	log     *slog.Logger
	metrics *observability.RegistryMetrics

	authToken   string
	adminCaller [20]byte

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// ServerConfig carries the server's collaborators and policy knobs.
type ServerConfig struct {
	Engine            *feeds.Engine
	Dialer            feeds.Dialer
	Logger            *slog.Logger
	AuthToken         string
	AdminCaller       [20]byte
	RequestsPerMinute float64
	Burst             int
}

// NewServer builds a JSON-RPC server around the engine.
func NewServer(cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 120
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 20
	}
	return &Server{
		engine:      cfg.Engine,
		dialer:      cfg.Dialer,
		log:         logger,
		metrics:     observability.Metrics(),
		authToken:   strings.TrimSpace(cfg.AuthToken),
		adminCaller: cfg.AdminCaller,
		limiters:    make(map[string]*rate.Limiter),
		limit:       rate.Limit(rpm / 60),
		burst:       burst,
	}
}

// Router mounts the RPC handler alongside health and metrics endpoints.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/", s.handle)
	return r
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r)
	})
}

type rpcRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type rpcResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *rpcError   `json:"error,omitempty"`
}

type rpcError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes+1))
	if err != nil || len(body) > maxRequestBytes {
		s.write(w, nil, "", nil, &rpcError{Code: codeInvalidRequest, Message: "request too large or unreadable"}, start)
		return
	}
	var req rpcRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.write(w, nil, "", nil, &rpcError{Code: codeParseError, Message: "invalid JSON"}, start)
		return
	}
	if req.JSONRPC != jsonRPCVersion || strings.TrimSpace(req.Method) == "" {
		s.write(w, req.ID, req.Method, nil, &rpcError{Code: codeInvalidRequest, Message: "invalid request"}, start)
		return
	}

	if payable(req.Method) && !s.allow(clientID(r)) {
		s.write(w, req.ID, req.Method, nil, &rpcError{Code: codeRateLimited, Message: "rate limit exceeded"}, start)
		return
	}
	if governance(req.Method) && !s.authorized(r) {
		s.write(w, req.ID, req.Method, nil, &rpcError{Code: codeUnauthorized, Message: "missing or invalid bearer token"}, start)
		return
	}

	result, rpcErr := s.dispatch(req.Method, req.Params)
	s.write(w, req.ID, req.Method, result, rpcErr, start)
}

func (s *Server) write(w http.ResponseWriter, id interface{}, method string, result interface{}, rpcErr *rpcError, start time.Time) {
	code := 0
	if rpcErr != nil {
		code = rpcErr.Code
		s.log.Warn("rpc request failed", "method", method, "code", rpcErr.Code, "message", rpcErr.Message)
	}
	if method != "" {
		s.metrics.Observe(method, code, time.Since(start))
	}
	resp := rpcResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result, Error: rpcErr}
	_ = json.NewEncoder(w).Encode(resp)
}

func payable(method string) bool {
	switch method {
	case "feeds_fetch", "feeds_fetchWei", "feeds_fetchByIndex":
		return true
	}
	return false
}

func governance(method string) bool {
	switch method {
	case "feeds_changeAliases", "feeds_addCalculated", "feeds_replaceCalculated", "feeds_removeCalculated":
		return true
	}
	return false
}

func (s *Server) authorized(r *http.Request) bool {
	if s.authToken == "" {
		return false
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) == 1
}

func (s *Server) allow(client string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	limiter, ok := s.limiters[client]
	if !ok {
		limiter = rate.NewLimiter(s.limit, s.burst)
		s.limiters[client] = limiter
	}
	return limiter.Allow()
}

func clientID(r *http.Request) string {
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// errorToRPC maps engine errors onto JSON-RPC error objects, preserving the
// registry's error taxonomy across the wire.
func errorToRPC(err error) *rpcError {
	switch {
	case errors.Is(err, feeds.ErrUnauthorized):
		return &rpcError{Code: codeUnauthorized, Message: err.Error()}
	case errors.Is(err, feeds.ErrFeedNotFound),
		errors.Is(err, feeds.ErrAliasNotFound),
		errors.Is(err, feeds.ErrCalculatedNotSupported):
		return &rpcError{Code: codeNotFound, Message: err.Error()}
	case errors.Is(err, feeds.ErrLengthMismatch),
		errors.Is(err, feeds.ErrInvalidFeedID),
		errors.Is(err, feeds.ErrInvalidCategory),
		errors.Is(err, feeds.ErrSameIdentifier),
		errors.Is(err, feeds.ErrFeedExists):
		return &rpcError{Code: codeInvalidParams, Message: err.Error()}
	default:
		return &rpcError{Code: codeServerError, Message: err.Error()}
	}
}

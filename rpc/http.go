package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/netutil"

	"paylock/core"
	"paylock/observability"
	telemetry "paylock/observability/otel"
	"paylock/services/indexer"
)

const (
	jsonRPCVersion         = "2.0"
	defaultMaxRequestBytes = 1 << 20 // 1 MiB
	requestIDHeader        = "X-Request-ID"
)

// ServerConfig tunes the HTTP surface of the node.
type ServerConfig struct {
	RateLimitPerSecond float64
	RateLimitBurst     int
	ReadHeaderTimeout  time.Duration
	MaxBodyBytes       int64
	TrustProxyHeaders  bool
	JWTSecret          string
	JWTIssuer          string
	Tracing            bool
	// AllowedOrigins lists host patterns accepted on the /ws upgrade. Empty
	// restricts the stream to same-origin browsers.
	AllowedOrigins []string
	// MaxConnections caps concurrently accepted TCP connections. Zero is
	// unlimited.
	MaxConnections int
}

// EventSource serves market_listEvents.
type EventSource interface {
	List(ctx context.Context, f indexer.Filter) ([]indexer.EventRecord, error)
}

type methodFunc func(ctx context.Context, r *http.Request, req *RPCRequest) (interface{}, *RPCError)

type Server struct {
	node    *core.Node
	cfg     ServerConfig
	logger  *slog.Logger
	metrics interface {
		Observe(string, int, time.Duration)
		RecordThrottle(string)
	}
	tracer  trace.Tracer
	limiter *rateLimiter
	auth    *authenticator
	stream  *Broadcaster
	events  EventSource
	methods map[string]methodFunc

	httpServer *http.Server
}

func NewServer(node *core.Node, cfg ServerConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxRequestBytes
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = 5 * time.Second
	}
	s := &Server{
		node:    node,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "rpc")),
		metrics: observability.RPCMetrics(),
		tracer:  telemetry.Tracer("paylock/rpc"),
		limiter: newRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst),
		auth:    newAuthenticator(cfg.JWTSecret, cfg.JWTIssuer),
		stream:  NewBroadcaster(),
	}
	s.methods = map[string]methodFunc{
		"market_sendTransaction":     s.handleSendTransaction,
		"market_getContent":          s.handleGetContent,
		"market_getContentTypes":     s.handleGetContentTypes,
		"market_getContentOwners":    s.handleGetContentOwners,
		"market_getPurchase":         s.handleGetPurchase,
		"market_getBalances":         s.handleGetBalances,
		"market_getProtocolBalances": s.handleGetProtocolBalances,
		"market_getDeleteCost":       s.handleGetDeleteCost,
		"market_getParams":           s.handleGetParams,
		"market_getAccount":          s.handleGetAccount,
		"market_listEvents":          s.handleListEvents,
	}
	return s
}

// SetEventSource enables market_listEvents.
func (s *Server) SetEventSource(src EventSource) { s.events = src }

// Events returns the broadcaster feeding /ws subscribers. Register it with
// the node emitter to stream committed events.
func (s *Server) Events() *Broadcaster { return s.stream }

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", s.handleEventsWS)
	r.Post("/", s.handle)

	if s.cfg.Tracing {
		return otelhttp.NewHandler(r, "paylock-rpc")
	}
	return r
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	ln, err := s.listen(addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) listen(addr string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	if s.cfg.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.cfg.MaxConnections)
	}
	return ln, nil
}

// Serve handles connections from ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting JSON-RPC server",
			slog.String("addr", ln.Addr().String()),
			slog.Int("maxConnections", s.cfg.MaxConnections))
		errCh <- s.httpServer.Serve(ln)
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.stream.Close()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(requestIDHeader, id)
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	seq, err := s.node.Sequence()
	if err != nil {
		http.Error(w, "state unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": "ok", "sequence": seq})
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`

	status int
}

func (e *RPCError) Error() string { return e.Message }

func newError(status, code int, message string, data interface{}) *RPCError {
	return &RPCError{Code: code, Message: message, Data: data, status: status}
}

func writeError(w http.ResponseWriter, id interface{}, rpcErr *RPCError) {
	status := rpcErr.status
	if status <= 0 {
		status = http.StatusBadRequest
	}
	w.WriteHeader(status)
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: rpcErr}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

// handle parses a JSON-RPC envelope and dispatches it.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	reader := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	defer func() {
		_ = reader.Close()
	}()
	w.Header().Set("Content-Type", "application/json")

	method := "unknown"
	fail := func(id interface{}, rpcErr *RPCError) {
		s.metrics.Observe(method, rpcErr.Code, time.Since(started))
		writeError(w, id, rpcErr)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", s.cfg.MaxBodyBytes)
		}
		fail(nil, newError(status, codeInvalidRequest, message, err.Error()))
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		fail(nil, newError(http.StatusBadRequest, codeInvalidRequest, "request body required", nil))
		return
	}
	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		fail(nil, newError(http.StatusBadRequest, codeParseError, "invalid JSON payload", err.Error()))
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		fail(req.ID, newError(http.StatusBadRequest, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC))
		return
	}
	if req.Method == "" {
		fail(req.ID, newError(http.StatusBadRequest, codeInvalidRequest, "method required", nil))
		return
	}
	handler, ok := s.methods[req.Method]
	if !ok {
		fail(req.ID, newError(http.StatusNotFound, codeMethodNotFound, fmt.Sprintf("unknown method %s", req.Method), nil))
		return
	}
	method = req.Method

	ctx, span := s.tracer.Start(r.Context(), "rpc."+req.Method,
		trace.WithAttributes(attribute.String("rpc.method", req.Method)))
	defer span.End()

	result, rpcErr := handler(ctx, r, req)
	if rpcErr != nil {
		span.SetStatus(codes.Error, rpcErr.Message)
		span.SetAttributes(attribute.Int("rpc.error_code", rpcErr.Code))
		if rpcErr.status >= http.StatusInternalServerError {
			s.logger.Error("rpc call failed",
				slog.String("method", req.Method),
				slog.String("requestId", r.Header.Get(requestIDHeader)),
				slog.String("error", rpcErr.Message))
		}
		fail(req.ID, rpcErr)
		return
	}
	s.metrics.Observe(method, 0, time.Since(started))
	writeResult(w, req.ID, result)
}

// Package api exposes the penalty engine over HTTP.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"stakepool-custody/internal/domain"
	"stakepool-custody/internal/observability"
	"stakepool-custody/internal/storage"
)

// RequestIDHeader carries the per-request correlation ID.
const RequestIDHeader = "X-Request-ID"

// Penalizer executes penalty requests.
type Penalizer interface {
	Penalize(ctx context.Context, req domain.PenaltyRequest) (*domain.TransferReceipt, error)
}

// PoolResolver reads pool records.
type PoolResolver interface {
	Resolve(ctx context.Context, identity string) (*domain.Pool, error)
}

// Config configures the HTTP surface.
type Config struct {
	RequireSignatures bool
	RateLimit         rate.Limit // per remote address and per caller; rate.Inf disables
	RateBurst         int
	MaxBodyBytes      int64
	RequestTimeout    time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		RequireSignatures: true,
		RateLimit:         rate.Limit(10),
		RateBurst:         20,
		MaxBodyBytes:      1 << 16,
		RequestTimeout:    30 * time.Second,
	}
}

// Server serves the penalty API.
type Server struct {
	cfg      Config
	engine   Penalizer
	pools    PoolResolver
	receipts storage.ReceiptStore
	hub      *Hub
	limiter  *rateLimiter
	log      *logrus.Entry
}

// NewServer creates a new Server. receipts and hub may be nil, in which case
// the receipt listing and the stream are not served.
func NewServer(cfg Config, engine Penalizer, pools PoolResolver, receipts storage.ReceiptStore, hub *Hub, log *logrus.Entry) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultConfig().MaxBodyBytes
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = rate.Inf
	}
	log = log.WithField("component", "api")
	return &Server{
		cfg:      cfg,
		engine:   engine,
		pools:    pools,
		receipts: receipts,
		hub:      hub,
		limiter:  newRateLimiter(cfg.RateLimit, cfg.RateBurst, log),
		log:      log,
	}
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(s.logRequests)

	router.Path("/health").Methods(http.MethodGet).HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Path("/metrics").Methods(http.MethodGet).Handler(observability.Handler())

	if s.hub != nil {
		router.Path("/v1/receipts/stream").Methods(http.MethodGet).HandlerFunc(wrap(s.hub.serveWS))
	}

	pools := router.PathPrefix("/v1/pools").Subrouter()
	pools.Use(s.limiter.middleware, handlers.CompressHandler)
	pools.Path("/{pool}/penalties").Methods(http.MethodPost).HandlerFunc(wrap(s.handlePenalty))
	pools.Path("/{pool}").Methods(http.MethodGet).HandlerFunc(wrap(s.handleGetPool))
	if s.receipts != nil {
		pools.Path("/{pool}/receipts").Methods(http.MethodGet).HandlerFunc(wrap(s.handleListReceipts))
	}

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = writeJSON(w, http.StatusNotFound, errorResponse{Error: kindNotFound})
	})

	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{s.log}),
		handlers.PrintRecoveryStack(true),
	)(router)
}

func (s *Server) handlePenalty(w http.ResponseWriter, r *http.Request) error {
	var body penaltyBody
	dec := json.NewDecoder(io.LimitReader(r.Body, s.cfg.MaxBodyBytes))
	dec.DisallowUnknownFields()
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return badRequest(fmt.Errorf("decode body: %w", err))
	}

	if err := body.checkComplete(); err != nil {
		return err
	}
	pool := mux.Vars(r)["pool"]

	if s.cfg.RequireSignatures {
		if err := verifySignature(body.Caller, body.signingMessage(pool), r.Header.Get(SignatureHeader)); err != nil {
			return &httpError{kind: kindBadSignature, cause: err, status: http.StatusUnauthorized}
		}
	}

	if !s.limiter.allow("caller:" + body.Caller) {
		return &httpError{kind: kindRateLimited, status: http.StatusTooManyRequests, retryable: true}
	}
	req := body.toRequest(pool)

	ctx := r.Context()
	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	receipt, err := s.engine.Penalize(ctx, req)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, newReceiptResponse(receipt))
}

func (s *Server) handleGetPool(w http.ResponseWriter, r *http.Request) error {
	p, err := s.pools.Resolve(r.Context(), mux.Vars(r)["pool"])
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &httpError{kind: kindNotFound, cause: err, status: http.StatusNotFound}
		}
		return err
	}
	return writeJSON(w, http.StatusOK, newPoolResponse(p))
}

func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) error {
	receipts, err := s.receipts.GetByPool(r.Context(), mux.Vars(r)["pool"])
	if err != nil {
		return err
	}
	resp := make([]receiptResponse, len(receipts))
	for i, rc := range receipts {
		resp[i] = newReceiptResponse(rc)
	}
	return writeJSON(w, http.StatusOK, resp)
}

// logRequests assigns a request ID and logs one line per request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tmpl, err := cur.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		observability.RecordHTTPRequest(route, rec.status)

		entry := s.log.WithFields(logrus.Fields{
			"request_id": id,
			"method":     r.Method,
			"route":      route,
			"status":     rec.status,
			"duration":   time.Since(start).String(),
		})
		if rec.status >= http.StatusInternalServerError {
			entry.Warn("request failed")
		} else {
			entry.Debug("request served")
		}
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades pass through the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// recoveryLogger adapts logrus to handlers.RecoveryHandlerLogger.
type recoveryLogger struct {
	log *logrus.Entry
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.log.Error(v...)
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/nahid270/MovieHub-sub000/internal/clock"
	"github.com/nahid270/MovieHub-sub000/internal/httpclient"
	"github.com/nahid270/MovieHub-sub000/internal/requestid"
)

const (
	checkUpstream = "upstream"

	checkOK      = "ok"
	checkSkipped = "skipped"
	checkFailed  = "failed"

	defaultReadinessTimeout = 2 * time.Second
)

// Pinger checks a dependency over HTTP.
type Pinger interface {
	Ping(ctx context.Context, path string) error
}

// Handler serves the operational endpoints of the application.
type Handler struct {
	clock     clock.Clock
	startedAt time.Time
	logger    *zap.Logger

	upstream           Pinger
	upstreamHealthPath string
	readinessTimeout   time.Duration
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(c clock.Clock) HandlerOption {
	return func(h *Handler) {
		h.clock = c
	}
}

// WithLogger sets the logger used for dependency check failures.
func WithLogger(logger *zap.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithUpstreamCheck enables the readiness check against path on the upstream.
// An empty path leaves the check disabled.
func WithUpstreamCheck(p Pinger, path string) HandlerOption {
	return func(h *Handler) {
		h.upstream = p
		h.upstreamHealthPath = path
	}
}

// WithReadinessTimeout bounds each readiness check.
func WithReadinessTimeout(d time.Duration) HandlerOption {
	return func(h *Handler) {
		h.readinessTimeout = d
	}
}

// NewHandler constructs a Handler. The uptime clock starts now.
func NewHandler(opts ...HandlerOption) *Handler {
	h := &Handler{
		clock:            clock.System(),
		logger:           zap.NewNop(),
		readinessTimeout: defaultReadinessTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.startedAt = h.clock.Now()
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock.Now(),
		Uptime:    clock.Since(h.clock, h.startedAt).Round(time.Second).String(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{
		checkUpstream: h.checkUpstream(r.Context()),
	}

	status := http.StatusOK
	resp := readyResponse{Status: "ready", Checks: checks}
	for _, result := range checks {
		if result != checkOK && result != checkSkipped {
			status = http.StatusServiceUnavailable
			resp.Status = "unavailable"
			break
		}
	}
	writeJSON(w, status, resp)
}

func (h *Handler) checkUpstream(ctx context.Context) string {
	if h.upstream == nil || h.upstreamHealthPath == "" {
		return checkSkipped
	}

	if h.readinessTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.readinessTimeout)
		defer cancel()
	}
	if err := h.upstream.Ping(ctx, h.upstreamHealthPath); err != nil {
		h.logger.Warn("upstream readiness check failed",
			zap.String("path", h.upstreamHealthPath),
			zap.String("request_id", requestid.FromContext(ctx)),
			zap.Error(err),
		)
		return failedCheck(err)
	}
	return checkOK
}

// failedCheck summarises err for unauthenticated callers. Upstream bodies and
// transport details stay in the logs.
func failedCheck(err error) string {
	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) {
		return checkFailed + ": upstream status " + strconv.Itoa(statusErr.StatusCode)
	}
	return checkFailed
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime"`
}

type readyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

package application

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/nahid270/MovieHub-sub000/internal/clock"
	"github.com/nahid270/MovieHub-sub000/internal/config"
	"github.com/nahid270/MovieHub-sub000/internal/httpclient"
)

func TestNewInitializesDependencies(t *testing.T) {
	cfg := baseTestConfig(":8085")
	cfg.Upstream.BaseURL = "https://api.example.com"
	logger := zaptest.NewLogger(t)

	app, err := New(cfg, logger)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	if app.server == nil || app.server.Handler == nil || app.client == nil {
		t.Fatalf("expected server, root handler and client to be initialized")
	}
	if app.Addr() != nil {
		t.Fatalf("expected no bound address before Start")
	}
	if app.Server() != app.server {
		t.Fatalf("Server accessor did not return underlying instance")
	}
	if app.Client() != app.client {
		t.Fatalf("Client accessor did not return underlying instance")
	}
	if got := app.Client().BaseURL().String(); got != cfg.Upstream.BaseURL {
		t.Fatalf("expected client base URL %s, got %s", cfg.Upstream.BaseURL, got)
	}
}

func TestNewReturnsErrorForInvalidUpstream(t *testing.T) {
	cfg := baseTestConfig(":0")
	cfg.Upstream.BaseURL = "not-a-url"

	_, err := New(cfg, zaptest.NewLogger(t))
	if !errors.Is(err, httpclient.ErrInvalidBaseURL) {
		t.Fatalf("expected ErrInvalidBaseURL, got %v", err)
	}
}

func TestNewServerAppliesConfig(t *testing.T) {
	cfg := baseTestConfig("9090")
	handler := http.NewServeMux()

	server := NewServer(cfg, handler)
	if server.Addr != ":9090" {
		t.Fatalf("expected address :9090, got %s", server.Addr)
	}
	if server.Handler != handler {
		t.Fatalf("expected handler to be applied")
	}
	if server.ReadHeaderTimeout != cfg.ReadHeaderTimeout ||
		server.WriteTimeout != cfg.WriteTimeout ||
		server.IdleTimeout != cfg.IdleTimeout {
		t.Fatalf("server timeouts do not match configuration")
	}
}

func TestNewServerKeepsHostPort(t *testing.T) {
	server := NewServer(baseTestConfig("127.0.0.1:9091"), http.NewServeMux())
	if server.Addr != "127.0.0.1:9091" {
		t.Fatalf("expected address to be kept, got %s", server.Addr)
	}
}

func TestBuildRootHandler(t *testing.T) {
	apiInvoked := false
	apiHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/health" {
			t.Fatalf("unexpected path passed to API handler: %s", r.URL.Path)
		}
		apiInvoked = true
		w.WriteHeader(http.StatusNoContent)
	})

	handler := BuildRootHandler(apiHandler)

	for _, path := range []string{"/", "/movies", "/static/app.js"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404 for %s, got %d", path, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}
	if !apiInvoked {
		t.Fatalf("expected API handler to be invoked")
	}
}

func TestAppServesReadinessAgainstUpstream(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Request-ID") != "ready-check" {
			t.Errorf("expected request id to reach upstream, got %q", r.Header.Get("X-Request-ID"))
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(upstream.Close)

	cfg := baseTestConfig(":0")
	cfg.Upstream.BaseURL = upstream.URL
	cfg.Upstream.HealthPath = "/healthz"

	app, err := New(cfg, zaptest.NewLogger(t), WithClock(clock.Fixed(time.Unix(0, 0).UTC())))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/ready", nil)
	req.Header.Set("X-Request-ID", "ready-check")
	rec := httptest.NewRecorder()
	app.Server().Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Checks["upstream"] != "ok" {
		t.Fatalf("expected upstream check ok, got %+v", body.Checks)
	}
}

func waitForHealth(t *testing.T, addr string) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get("http://" + addr + "/api/health")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("expected 200 from health, got %d", resp.StatusCode)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never became reachable: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestStartServesAndShutsDown(t *testing.T) {
	app, err := New(baseTestConfig("127.0.0.1:0"), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if err := app.Start(); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	waitForHealth(t, app.Addr().String())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := app.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown returned error: %v", err)
	}
	if _, err := net.DialTimeout("tcp", app.Addr().String(), 200*time.Millisecond); err == nil {
		t.Fatalf("expected listener to be closed")
	}
}

func TestStartReturnsErrorWhenPortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	app, err := New(baseTestConfig(ln.Addr().String()), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if err := app.Start(); err == nil {
		t.Fatalf("expected Start to fail on an occupied port")
	}
	if app.Addr() != nil {
		t.Fatalf("expected no bound address after a failed Start")
	}
}

func TestShutdownForcesCloseWhenDrainTimesOut(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	app, err := New(baseTestConfig("127.0.0.1:0"), zap.New(core))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	started := make(chan struct{})
	released := make(chan struct{})
	app.server.Handler = http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
		close(released)
	})
	if err := app.Start(); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	go func() {
		resp, err := http.Get("http://" + app.Addr().String() + "/slow")
		if err == nil {
			_ = resp.Body.Close()
		}
	}()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatalf("request never reached the handler")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := app.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded from drain, got %v", err)
	}

	select {
	case <-released:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected forced close to cancel the in-flight request")
	}
	if logs.FilterMessage("graceful shutdown failed").Len() != 1 {
		t.Fatalf("expected graceful shutdown failure to be logged")
	}
}

func baseTestConfig(port string) config.Config {
	return config.Config{
		Port:                 port,
		LogLevel:             "info",
		ShutdownGracePeriod:  50 * time.Millisecond,
		ReadHeaderTimeout:    time.Second,
		WriteTimeout:         time.Second,
		IdleTimeout:          time.Second,
		EnableRequestLogging: false,
		RateLimitRPS:         0,
		RateLimitBurst:       0,
		Upstream: config.Upstream{
			Timeout:   time.Second,
			UserAgent: "moviehub-test",
		},
	}
}

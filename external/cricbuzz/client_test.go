package cricbuzz

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riskibarqy/cricket-scoreboard/internal/platform/logging"
	"github.com/riskibarqy/cricket-scoreboard/internal/platform/resilience"
	"github.com/riskibarqy/cricket-scoreboard/internal/usecase"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, breaker resilience.CircuitBreakerConfig) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(ClientConfig{
		HTTPClient:     srv.Client(),
		BaseURL:        srv.URL + "/commentary/",
		Logger:         logging.NewNop(),
		CircuitBreaker: breaker,
	})
}

func TestFetchMatchPayload_DecodesBody(t *testing.T) {
	t.Parallel()

	var gotPath, gotAccept string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAccept = r.Header.Get("accept")
		_, _ = w.Write([]byte(`{"matchHeader":{"matchId":74648,"status":"In Progress"}}`))
	}, resilience.CircuitBreakerConfig{})

	payload, err := client.FetchMatchPayload(context.Background(), "74648")
	if err != nil {
		t.Fatalf("fetch payload: %v", err)
	}
	if gotPath != "/commentary/74648" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotAccept != "application/json" {
		t.Fatalf("unexpected accept header: %q", gotAccept)
	}
	header, ok := payload["matchHeader"].(map[string]any)
	if !ok || header["status"] != "In Progress" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestFetchMatchPayload_NonSuccessStatus(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(strings.Repeat("x", 500)))
	}, resilience.CircuitBreakerConfig{})

	_, err := client.FetchMatchPayload(context.Background(), "1")
	var upstream *usecase.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstream.Status != http.StatusNotFound || upstream.Code != "HTTP_404" {
		t.Fatalf("unexpected status/code: %d %s", upstream.Status, upstream.Code)
	}
	if errors.Is(err, errCricbuzzTransient) {
		t.Fatalf("404 must not be marked transient")
	}
	if !strings.Contains(err.Error(), strings.Repeat("x", 240)+"...") {
		t.Fatalf("expected abbreviated body in error, got %v", err)
	}
	if !strings.Contains(err.Error(), "upstream returned 404") || !strings.Contains(err.Error(), "HTTP_404") {
		t.Fatalf("expected message and code in error, got %v", err)
	}
}

func TestFetchMatchPayload_TransientClassification(t *testing.T) {
	t.Parallel()

	cases := map[int]bool{
		http.StatusTooManyRequests:     true,
		http.StatusInternalServerError: true,
		http.StatusServiceUnavailable:  true,
		http.StatusNotFound:            false,
		http.StatusForbidden:           false,
	}
	for status, transient := range cases {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		}, resilience.CircuitBreakerConfig{})

		_, err := client.FetchMatchPayload(context.Background(), "1")
		if got := errors.Is(err, errCricbuzzTransient); got != transient {
			t.Fatalf("status %d: transient=%t want %t (err=%v)", status, got, transient, err)
		}
	}

	if err := transportError(errors.New("connection reset")); !errors.Is(err, errCricbuzzTransient) {
		t.Fatalf("transport errors must be transient, got %v", err)
	}
}

func TestFetchMatchPayload_InvalidJSON(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}, resilience.CircuitBreakerConfig{})

	_, err := client.FetchMatchPayload(context.Background(), "1")
	var upstream *usecase.UpstreamError
	if !errors.As(err, &upstream) || upstream.Code != usecase.CodeInvalidData || upstream.Status != http.StatusInternalServerError {
		t.Fatalf("expected INVALID_DATA, got %v", err)
	}
}

func TestFetchMatchPayload_NetworkFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	client := NewClient(ClientConfig{BaseURL: base, Logger: logging.NewNop(), Timeout: time.Second})
	_, err := client.FetchMatchPayload(context.Background(), "1")
	var upstream *usecase.UpstreamError
	if !errors.As(err, &upstream) || upstream.Code != usecase.CodeFetchError || upstream.Status != http.StatusBadGateway {
		t.Fatalf("expected FETCH_ERROR, got %v", err)
	}
	if !upstream.Transient() {
		t.Fatalf("network failures must be transient")
	}
}

func TestFetchMatchPayload_Timeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	client := NewClient(ClientConfig{BaseURL: srv.URL, Logger: logging.NewNop(), Timeout: 20 * time.Millisecond})
	_, err := client.FetchMatchPayload(context.Background(), "1")
	var upstream *usecase.UpstreamError
	if !errors.As(err, &upstream) || upstream.Code != usecase.CodeTimeout || upstream.Status != http.StatusGatewayTimeout {
		t.Fatalf("expected TIMEOUT, got %v", err)
	}
}

func TestFetchMatchPayload_CircuitOpensOnTransientFailures(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}, resilience.CircuitBreakerConfig{Enabled: true, FailureThreshold: 2, OpenTimeout: time.Hour, HalfOpenMaxReq: 1})

	for i := 0; i < 2; i++ {
		if _, err := client.FetchMatchPayload(context.Background(), "1"); err == nil {
			t.Fatalf("expected failure on attempt %d", i+1)
		}
	}

	_, err := client.FetchMatchPayload(context.Background(), "1")
	var upstream *usecase.UpstreamError
	if !errors.As(err, &upstream) || upstream.Code != CodeCircuitOpen || upstream.Status != http.StatusServiceUnavailable {
		t.Fatalf("expected CIRCUIT_OPEN, got %v", err)
	}
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen in chain")
	}
	if hits.Load() != 2 {
		t.Fatalf("open circuit must not reach upstream, hits=%d", hits.Load())
	}
	if health := client.Health(); health.Breaker.State != resilience.CircuitStateOpen || !health.CircuitEnabled {
		t.Fatalf("unexpected health: %+v", health)
	}
}

func TestFetchMatchPayload_CancelledRequestKeepsCircuitHalfOpen(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch hits.Add(1) {
		case 1:
			w.WriteHeader(http.StatusBadGateway)
		case 2:
			<-r.Context().Done()
		default:
			_, _ = w.Write([]byte(`{}`))
		}
	}, resilience.CircuitBreakerConfig{Enabled: true, FailureThreshold: 1, OpenTimeout: 20 * time.Millisecond, HalfOpenMaxReq: 1})

	if _, err := client.FetchMatchPayload(context.Background(), "1"); err == nil {
		t.Fatalf("expected first request to fail")
	}
	time.Sleep(40 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	if _, err := client.FetchMatchPayload(ctx, "1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if state := client.Health().Breaker.State; state != resilience.CircuitStateHalfOpen {
		t.Fatalf("cancelled trial must not close the circuit, got %s", state)
	}

	if _, err := client.FetchMatchPayload(context.Background(), "1"); err != nil {
		t.Fatalf("released trial slot should admit the next request: %v", err)
	}
	if state := client.Health().Breaker.State; state != resilience.CircuitStateClosed {
		t.Fatalf("expected closed circuit after a real success, got %s", state)
	}
	if hits.Load() != 3 {
		t.Fatalf("expected 3 upstream hits, got %d", hits.Load())
	}
}

func TestFetchMatchPayload_ClientErrorsDoNotTripCircuit(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}, resilience.CircuitBreakerConfig{Enabled: true, FailureThreshold: 1, OpenTimeout: time.Hour, HalfOpenMaxReq: 1})

	for i := 0; i < 3; i++ {
		_, err := client.FetchMatchPayload(context.Background(), "1")
		var upstream *usecase.UpstreamError
		if !errors.As(err, &upstream) || upstream.Code != "HTTP_400" {
			t.Fatalf("attempt %d: expected HTTP_400, got %v", i+1, err)
		}
	}
	if state := client.Health().Breaker.State; state != resilience.CircuitStateClosed {
		t.Fatalf("expected closed circuit, got %s", state)
	}
}

func TestFetchMatchPayload_RateLimitHonoursContext(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	client := NewClient(ClientConfig{BaseURL: srv.URL, HTTPClient: srv.Client(), Logger: logging.NewNop(), RateLimit: 0.001, Burst: 1})
	if _, err := client.FetchMatchPayload(context.Background(), "1"); err != nil {
		t.Fatalf("first request should use the burst token: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := client.FetchMatchPayload(ctx, "1")
	if err == nil {
		t.Fatalf("expected limiter wait to fail")
	}
	var upstream *usecase.UpstreamError
	if errors.As(err, &upstream) && upstream.Code != usecase.CodeTimeout {
		t.Fatalf("unexpected error code: %s", upstream.Code)
	}
}

func TestAbbreviateBody(t *testing.T) {
	t.Parallel()

	if got := abbreviateBody([]byte("  short  ")); got != "short" {
		t.Fatalf("unexpected short body: %q", got)
	}
	if got := abbreviateBody([]byte(strings.Repeat("a", 300))); len(got) != 243 {
		t.Fatalf("expected truncation to 240 chars plus ellipsis, got %d", len(got))
	}
}

package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// mockHealthHTTPClient implements HealthHTTPClient for probe tests.
type mockHealthHTTPClient struct {
	DoFunc func(*http.Request) (*http.Response, error)
	calls  int32
}

func (m *mockHealthHTTPClient) Do(req *http.Request) (*http.Response, error) {
	atomic.AddInt32(&m.calls, 1)
	if m.DoFunc != nil {
		return m.DoFunc(req)
	}
	return httpResponse(200), nil
}

func httpResponse(code int) *http.Response {
	return &http.Response{
		StatusCode: code,
		Body:       io.NopCloser(strings.NewReader("")),
	}
}

// newTestProber builds a prober whose inter-attempt sleep is a no-op.
func newTestProber(client HealthHTTPClient) *HealthProber {
	p := NewHealthProberWithClient(newTestLogger(), client)
	p.sleep = func(ctx context.Context, d time.Duration) {}
	return p
}

// =============================================================================
// UNIT TESTS: ProbeAll
// =============================================================================

// TestHealthProber_ProbeAll_AllHealthy verifies the ok path: one
// request per endpoint when everything answers immediately.
func TestHealthProber_ProbeAll_AllHealthy(t *testing.T) {
	client := &mockHealthHTTPClient{}
	prober := newTestProber(client)
	endpoints := []Endpoint{
		{Name: "bank-api", URL: "http://localhost:5000"},
		{Name: "edge-proxy", URL: "http://localhost:80", Critical: true},
	}

	res, statuses := prober.ProbeAll(context.Background(), endpoints, 10*time.Second, 2*time.Second)

	if res.Status != StatusOK {
		t.Fatalf("expected StatusOK, got %v (%s)", res.Status, res.Message)
	}
	if n := atomic.LoadInt32(&client.calls); n != 2 {
		t.Errorf("expected 1 request per endpoint, got %d total", n)
	}
	for _, s := range statuses {
		if s.State != ProbeHealthy || !s.Reachable || s.Attempts != 1 {
			t.Errorf("endpoint %s: state=%v reachable=%v attempts=%d",
				s.Endpoint.Name, s.State, s.Reachable, s.Attempts)
		}
	}
}

// TestHealthProber_ProbeAll_AttemptBudget verifies an endpoint that
// never answers is probed exactly floor(timeout/interval) times.
func TestHealthProber_ProbeAll_AttemptBudget(t *testing.T) {
	client := &mockHealthHTTPClient{
		DoFunc: func(req *http.Request) (*http.Response, error) {
			return nil, errors.New("connection refused")
		},
	}
	prober := newTestProber(client)
	endpoints := []Endpoint{{Name: "bank-api", URL: "http://localhost:5000"}}

	_, statuses := prober.ProbeAll(context.Background(), endpoints, 10*time.Second, 2*time.Second)

	if statuses[0].State != ProbeExhausted {
		t.Fatalf("expected ProbeExhausted, got %v", statuses[0].State)
	}
	if statuses[0].Attempts != 5 {
		t.Errorf("expected 5 attempts for 10s/2s, got %d", statuses[0].Attempts)
	}
}

// TestHealthProber_ProbeAll_FirstSuccessStops verifies polling stops on
// the first successful response.
func TestHealthProber_ProbeAll_FirstSuccessStops(t *testing.T) {
	var n int32
	client := &mockHealthHTTPClient{
		DoFunc: func(req *http.Request) (*http.Response, error) {
			if atomic.AddInt32(&n, 1) < 3 {
				return nil, errors.New("connection refused")
			}
			return httpResponse(200), nil
		},
	}
	prober := newTestProber(client)
	endpoints := []Endpoint{{Name: "bank-api", URL: "http://localhost:5000"}}

	res, statuses := prober.ProbeAll(context.Background(), endpoints, 10*time.Second, time.Second)

	if res.Status != StatusOK {
		t.Fatalf("expected StatusOK, got %v", res.Status)
	}
	if statuses[0].Attempts != 3 {
		t.Errorf("expected polling to stop at attempt 3, got %d", statuses[0].Attempts)
	}
}

// TestHealthProber_ProbeAll_AdvisoryExhausted verifies a dead advisory
// endpoint only warns.
func TestHealthProber_ProbeAll_AdvisoryExhausted(t *testing.T) {
	client := &mockHealthHTTPClient{
		DoFunc: func(req *http.Request) (*http.Response, error) {
			if strings.Contains(req.URL.Host, ":3000") {
				return nil, errors.New("connection refused")
			}
			return httpResponse(200), nil
		},
	}
	prober := newTestProber(client)
	endpoints := []Endpoint{
		{Name: "portfolio-api", URL: "http://localhost:3000"},
		{Name: "edge-proxy", URL: "http://localhost:80", Critical: true},
	}

	res, _ := prober.ProbeAll(context.Background(), endpoints, 4*time.Second, 2*time.Second)

	if res.Status != StatusWarning {
		t.Fatalf("expected StatusWarning, got %v (%s)", res.Status, res.Message)
	}
	if len(res.Missing) != 1 || res.Missing[0] != "portfolio-api" {
		t.Errorf("expected the advisory endpoint recorded, got %v", res.Missing)
	}
}

// TestHealthProber_ProbeAll_CriticalExhausted verifies a dead critical
// endpoint makes the stage fatal.
func TestHealthProber_ProbeAll_CriticalExhausted(t *testing.T) {
	client := &mockHealthHTTPClient{
		DoFunc: func(req *http.Request) (*http.Response, error) {
			if req.URL.Host == "localhost:80" || req.URL.Host == "localhost" {
				return nil, errors.New("connection refused")
			}
			return httpResponse(200), nil
		},
	}
	prober := newTestProber(client)
	endpoints := []Endpoint{
		{Name: "bank-api", URL: "http://localhost:5000"},
		{Name: "edge-proxy", URL: "http://localhost:80", Critical: true},
	}

	res, _ := prober.ProbeAll(context.Background(), endpoints, 4*time.Second, 2*time.Second)

	if res.Status != StatusFatal {
		t.Fatalf("expected StatusFatal, got %v (%s)", res.Status, res.Message)
	}
}

// TestHealthProber_ProbeAll_NonOKResponseCounts verifies any response
// below 500 counts as reachable, including 404.
func TestHealthProber_ProbeAll_NonOKResponseCounts(t *testing.T) {
	client := &mockHealthHTTPClient{
		DoFunc: func(req *http.Request) (*http.Response, error) {
			return httpResponse(404), nil
		},
	}
	prober := newTestProber(client)
	endpoints := []Endpoint{{Name: "edge-proxy", URL: "http://localhost:80", Critical: true}}

	res, _ := prober.ProbeAll(context.Background(), endpoints, 4*time.Second, 2*time.Second)

	if res.Status != StatusOK {
		t.Fatalf("expected 404 to count as reachable, got %v", res.Status)
	}
}

// TestHealthProber_ProbeAll_ServerErrorNotHealthy verifies 5xx does not
// count as a successful probe.
func TestHealthProber_ProbeAll_ServerErrorNotHealthy(t *testing.T) {
	client := &mockHealthHTTPClient{
		DoFunc: func(req *http.Request) (*http.Response, error) {
			return httpResponse(502), nil
		},
	}
	prober := newTestProber(client)
	endpoints := []Endpoint{{Name: "edge-proxy", URL: "http://localhost:80", Critical: true}}

	res, _ := prober.ProbeAll(context.Background(), endpoints, 4*time.Second, 2*time.Second)

	if res.Status != StatusFatal {
		t.Fatalf("expected 502 responses to exhaust the probe, got %v", res.Status)
	}
}

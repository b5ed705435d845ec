package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ledgerstack/ledgerdeploy/pkg/logging"
)

// HealthHTTPClient abstracts HTTP operations for health probing, so
// tests can simulate endpoints without a listener.
type HealthHTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// probeAttemptTimeout bounds a single probe request. It must stay small
// relative to the poll interval so one hung attempt cannot eat the
// whole tick budget.
const probeAttemptTimeout = 2 * time.Second

// HealthProber polls each exposed service endpoint until it responds
// or the per-endpoint tick budget is exhausted.
//
// # Description
//
// Each endpoint runs a small state machine: Pending, then Healthy on
// the first successful response (first success wins, no debounce), or
// Exhausted after floor(timeout/interval) attempts. Endpoints are
// probed sequentially, advisory ones before the critical edge proxy:
// the proxy's readiness may depend on the backing services, so probing
// them first fails fast on the root cause rather than the symptom.
//
// An Exhausted critical endpoint makes the stage fatal; an Exhausted
// advisory endpoint is a warning only.
type HealthProber struct {
	log    *logging.Logger
	client HealthHTTPClient

	// sleep is swappable in tests; defaults to a context-aware wait.
	sleep func(ctx context.Context, d time.Duration)
}

// NewHealthProber creates a prober with a short per-attempt timeout.
func NewHealthProber(log *logging.Logger) *HealthProber {
	return &HealthProber{
		log: log,
		client: &http.Client{
			Timeout: probeAttemptTimeout,
			Transport: &http.Transport{
				DisableKeepAlives: true,
			},
		},
		sleep: sleepWithContext,
	}
}

// NewHealthProberWithClient creates a prober with an injected HTTP
// client. Used in tests to mock endpoint responses.
func NewHealthProberWithClient(log *logging.Logger, client HealthHTTPClient) *HealthProber {
	return &HealthProber{
		log:    log,
		client: client,
		sleep:  sleepWithContext,
	}
}

// ProbeAll probes every endpoint in order and aggregates the outcome.
//
// # Inputs
//
//   - endpoints: probe targets, advisory first, critical last
//   - timeout: total budget per endpoint
//   - interval: pause between attempts; floor(timeout/interval)
//     attempts are made per endpoint
//
// # Outputs
//
//   - StageResult: fatal if a critical endpoint exhausted its budget,
//     warning if only advisory ones did, ok otherwise
//   - []HealthStatus: per-endpoint outcome for the final summary
func (p *HealthProber) ProbeAll(ctx context.Context, endpoints []Endpoint, timeout, interval time.Duration) (StageResult, []HealthStatus) {
	statuses := make([]HealthStatus, 0, len(endpoints))
	var advisoryDown []string
	criticalDown := false

	for _, ep := range endpoints {
		status := p.probe(ctx, ep, timeout, interval)
		statuses = append(statuses, status)

		if status.Reachable {
			p.log.Info("endpoint healthy", "endpoint", ep.Name, "url", ep.URL,
				"attempts", status.Attempts, "elapsed", status.Elapsed)
			continue
		}
		if ep.Critical {
			p.log.Error("critical endpoint unreachable", "endpoint", ep.Name, "url", ep.URL,
				"attempts", status.Attempts)
			criticalDown = true
		} else {
			p.log.Warn("advisory endpoint unreachable", "endpoint", ep.Name, "url", ep.URL,
				"attempts", status.Attempts)
			advisoryDown = append(advisoryDown, ep.Name)
		}
	}

	switch {
	case criticalDown:
		res := fatalResult("health", "edge proxy did not become reachable within %s", timeout)
		res.Missing = unreachableNames(statuses)
		return res, statuses
	case len(advisoryDown) > 0:
		res := warnResult("health", "%d advisory endpoint(s) unreachable", len(advisoryDown))
		res.Missing = advisoryDown
		return res, statuses
	default:
		return okResult("health", "all %d endpoint(s) reachable", len(endpoints)), statuses
	}
}

// probe drives the Pending -> {Healthy | Exhausted} state machine for
// one endpoint.
func (p *HealthProber) probe(ctx context.Context, ep Endpoint, timeout, interval time.Duration) HealthStatus {
	attempts := int(timeout / interval)
	if attempts < 1 {
		attempts = 1
	}

	status := HealthStatus{Endpoint: ep, State: ProbePending}
	start := time.Now()

	for i := 0; i < attempts; i++ {
		if ctx.Err() != nil {
			break
		}
		status.Attempts++
		if p.attempt(ctx, ep.URL) {
			status.State = ProbeHealthy
			status.Reachable = true
			break
		}
		p.log.Debug("probe attempt failed", "endpoint", ep.Name,
			"attempt", status.Attempts, "of", attempts)
		if i < attempts-1 {
			p.sleep(ctx, interval)
		}
	}

	if status.State == ProbePending {
		status.State = ProbeExhausted
	}
	status.Elapsed = time.Since(start)
	return status
}

// attempt issues one best-effort request. Any response below 500 counts
// as success: the service is accepting and answering traffic, which is
// what this stage verifies (redirects and auth challenges included).
func (p *HealthProber) attempt(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}

// unreachableNames collects endpoint names that never responded.
func unreachableNames(statuses []HealthStatus) []string {
	var names []string
	for _, s := range statuses {
		if !s.Reachable {
			names = append(names, s.Endpoint.Name)
		}
	}
	return names
}

// sleepWithContext waits for d or until the context is cancelled,
// whichever comes first.
func sleepWithContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Summary renders a one-line pass/fail overview of probe results.
func Summary(statuses []HealthStatus) string {
	reachable := 0
	for _, s := range statuses {
		if s.Reachable {
			reachable++
		}
	}
	return fmt.Sprintf("%d/%d endpoints reachable", reachable, len(statuses))
}

// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package endpointmanager spreads master gateway calls over the configured
master endpoints and keeps failing endpoints out of rotation with an
exponential backoff.
*/
package endpointmanager

import (
	"math/rand/v2"
	"slices"
	"sync"
	"time"
)

// Possible Status values.
const (
	Good     Status = iota // endpoint may be used
	TimedOut               // endpoint failed recently and is backing off
)

// Status is the health of an endpoint.
type Status int

// Endpoint is one master gateway base URL with its health bookkeeping.
type Endpoint struct {
	URL string

	status       Status
	timeoutUntil time.Time
	failureCount int
	lastUsed     time.Time
}

// Manager selects endpoints. It is safe for concurrent use.
type Manager struct {
	endpoints           []*Endpoint
	maxRetries          int
	baseTimeout         time.Duration
	maxBackoffTime      time.Duration
	loadBalancingMethod string
	currentIndex        int
	now                 func() time.Time
	mu                  sync.Mutex
}

// Default is the manager built from the loaded configuration.
var Default *Manager

// New creates a Manager over urls.
func New(
	urls []string,
	maxRetries int,
	baseTimeout, maxBackoffTime time.Duration,
	loadBalancingMethod string,
) *Manager {
	endpoints := make([]*Endpoint, len(urls))
	for i, url := range urls {
		endpoints[i] = &Endpoint{URL: url, status: Good}
	}

	return &Manager{
		endpoints:           endpoints,
		maxRetries:          max(maxRetries, 1),
		baseTimeout:         baseTimeout,
		maxBackoffTime:      maxBackoffTime,
		loadBalancingMethod: loadBalancingMethod,
		now:                 time.Now,
	}
}

// MaxRetries is the number of attempts a caller should make before giving up.
func (m *Manager) MaxRetries() int {
	return m.maxRetries
}

// Len returns the number of configured endpoints.
func (m *Manager) Len() int {
	return len(m.endpoints)
}

// HealthyCount returns how many endpoints are currently in rotation.
func (m *Manager) HealthyCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reviveExpired(m.now())

	return len(m.healthyEndpoints())
}

// GetEndpoint selects an endpoint, or nil when none is configured.
//
// When every endpoint is timed out, all of them are put back in rotation
// and selection proceeds as usual, so a recovered master is not ignored.
func (m *Manager) GetEndpoint() *Endpoint {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.endpoints) == 0 {
		return nil
	}

	now := m.now()
	m.reviveExpired(now)

	healthy := m.healthyEndpoints()
	if len(healthy) == 0 {
		m.resetAll()

		healthy = m.endpoints
	}

	var selected *Endpoint

	switch m.loadBalancingMethod {
	case "random":
		// #nosec:G404 - endpoint selection doesn't need to be cryptographically secure.
		selected = healthy[rand.IntN(len(healthy))]
	case "least-recently-used":
		selected = slices.MinFunc(healthy, func(a, b *Endpoint) int {
			return a.lastUsed.Compare(b.lastUsed)
		})
	default:
		if m.currentIndex >= len(healthy) {
			m.currentIndex = 0
		}

		selected = healthy[m.currentIndex]
		m.currentIndex++
	}

	selected.lastUsed = now

	return selected
}

// MarkEndpointStatus records the outcome of a call made to endpoint.
//
// A TimedOut endpoint stays out of rotation for
// min(baseTimeout * 2^failures, maxBackoffTime).
func (m *Manager) MarkEndpointStatus(endpoint *Endpoint, status Status) {
	if endpoint == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	endpoint.status = status
	if status != TimedOut {
		endpoint.failureCount = 0

		return
	}

	endpoint.failureCount++
	endpoint.timeoutUntil = m.now().Add(m.backoff(endpoint.failureCount))
}

func (m *Manager) resetAll() {
	for _, endpoint := range m.endpoints {
		endpoint.status = Good
		endpoint.failureCount = 0
		endpoint.timeoutUntil = time.Time{}
	}
}

// Snapshot reports the URL and status of each endpoint, in configuration order.
func (m *Manager) Snapshot() []EndpointState {
	m.mu.Lock()
	defer m.mu.Unlock()

	states := make([]EndpointState, len(m.endpoints))
	for i, endpoint := range m.endpoints {
		states[i] = EndpointState{
			URL:          endpoint.URL,
			Healthy:      endpoint.status == Good,
			FailureCount: endpoint.failureCount,
			TimeoutUntil: endpoint.timeoutUntil,
		}
	}

	return states
}

// EndpointState is a read-only copy of an endpoint's health.
type EndpointState struct {
	URL          string    `json:"url"`
	Healthy      bool      `json:"healthy"`
	FailureCount int       `json:"failure_count"`
	TimeoutUntil time.Time `json:"timeout_until,omitzero"`
}

func (m *Manager) backoff(failures int) time.Duration {
	timeout := m.baseTimeout
	for range failures {
		timeout *= 2
		if timeout >= m.maxBackoffTime {
			return m.maxBackoffTime
		}
	}

	return min(timeout, m.maxBackoffTime)
}

func (m *Manager) reviveExpired(now time.Time) {
	for _, endpoint := range m.endpoints {
		if endpoint.status == TimedOut && !now.Before(endpoint.timeoutUntil) {
			endpoint.status = Good
		}
	}
}

func (m *Manager) healthyEndpoints() []*Endpoint {
	healthy := make([]*Endpoint, 0, len(m.endpoints))

	for _, endpoint := range m.endpoints {
		if endpoint.status == Good {
			healthy = append(healthy, endpoint)
		}
	}

	return healthy
}

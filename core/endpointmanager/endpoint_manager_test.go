// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package endpointmanager

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var masters = []string{"http://m1:8101", "http://m2:8101", "http://m3:8101"}

func newTestManager(method string, clock *time.Time) *Manager {
	m := New(masters, 3, time.Second, 8*time.Second, method)
	m.now = func() time.Time { return *clock }

	return m
}

func TestRoundRobin(t *testing.T) {
	t.Parallel()

	clock := time.Unix(1_700_000_000, 0)
	m := newTestManager("round-robin", &clock)

	var got []string
	for range 4 {
		got = append(got, m.GetEndpoint().URL)
	}

	assert.Equal(t, []string{masters[0], masters[1], masters[2], masters[0]}, got)
}

func TestLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	clock := time.Unix(1_700_000_000, 0)
	m := newTestManager("least-recently-used", &clock)

	seen := map[string]bool{}

	for range 3 {
		seen[m.GetEndpoint().URL] = true
		clock = clock.Add(time.Second)
	}

	assert.Len(t, seen, 3)
}

func TestRandomStaysInSet(t *testing.T) {
	t.Parallel()

	clock := time.Unix(1_700_000_000, 0)
	m := newTestManager("random", &clock)

	for range 20 {
		assert.Contains(t, masters, m.GetEndpoint().URL)
	}
}

func TestTimedOutEndpointSkipped(t *testing.T) {
	t.Parallel()

	clock := time.Unix(1_700_000_000, 0)
	m := newTestManager("round-robin", &clock)

	first := m.GetEndpoint()
	m.MarkEndpointStatus(first, TimedOut)

	for range 4 {
		assert.NotEqual(t, first.URL, m.GetEndpoint().URL)
	}

	assert.Equal(t, 2, m.HealthyCount())

	clock = clock.Add(time.Second)
	assert.Equal(t, 2, m.HealthyCount(), "one failure backs off for twice the base timeout")

	clock = clock.Add(time.Second)
	assert.Equal(t, 3, m.HealthyCount())
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	t.Parallel()

	clock := time.Unix(1_700_000_000, 0)
	m := newTestManager("round-robin", &clock)

	assert.Equal(t, 2*time.Second, m.backoff(1))
	assert.Equal(t, 4*time.Second, m.backoff(2))
	assert.Equal(t, 8*time.Second, m.backoff(3))
	assert.Equal(t, 8*time.Second, m.backoff(4))
	assert.Equal(t, 8*time.Second, m.backoff(40))

	endpoint := m.endpoints[0]
	m.MarkEndpointStatus(endpoint, TimedOut)
	m.MarkEndpointStatus(endpoint, TimedOut)
	assert.Equal(t, clock.Add(4*time.Second), endpoint.timeoutUntil)

	m.MarkEndpointStatus(endpoint, Good)
	assert.Zero(t, endpoint.failureCount)
}

func TestResetWhenAllTimedOut(t *testing.T) {
	t.Parallel()

	clock := time.Unix(1_700_000_000, 0)
	m := newTestManager("round-robin", &clock)

	for i, endpoint := range m.endpoints {
		for range 3 - i {
			m.MarkEndpointStatus(endpoint, TimedOut)
		}
	}

	assert.Zero(t, m.HealthyCount())
	assert.Equal(t, masters[0], m.GetEndpoint().URL, "selection restarts over every endpoint")
	assert.Equal(t, 3, m.HealthyCount())

	for _, state := range m.Snapshot() {
		assert.True(t, state.Healthy)
		assert.Zero(t, state.FailureCount)
	}
}

func TestEmptyManager(t *testing.T) {
	t.Parallel()

	m := New(nil, 0, time.Second, time.Second, "round-robin")

	require.Nil(t, m.GetEndpoint())
	assert.Equal(t, 1, m.MaxRetries())
	assert.NotPanics(t, func() { m.MarkEndpointStatus(nil, TimedOut) })
}

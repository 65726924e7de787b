// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
This file keeps one token bucket per client network.

Clients are grouped by their IP network (see Limiter.IPv4Prefix and
Limiter.IPv6Prefix) so that a single host cannot dodge the limit by
rotating addresses inside its allocation.
*/
package limiter

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"codeberg.org/galaxy/console/config"
)

const (
	LimiterExpiryDuration = time.Hour       // How long to keep idle limiters in memory.
	CleanupInterval       = 5 * time.Minute // Interval between sweeps.
)

var (
	limiters sync.Map   // network string -> *limiterWrapper
	timeNow  = time.Now // replaced in tests

	sweeperMu   sync.Mutex
	stopSweeper chan struct{}
	sweeperDone chan struct{}
)

// limiterWrapper holds a rate limiter and when it was last used.
type limiterWrapper struct {
	limiter    *rate.Limiter
	network    string
	mu         sync.Mutex
	lastAccess time.Time
}

// Init starts the periodic sweep of idle limiters. Calling it twice is a no-op.
func Init() {
	sweeperMu.Lock()
	defer sweeperMu.Unlock()

	if stopSweeper != nil {
		return
	}

	stopSweeper = make(chan struct{})
	sweeperDone = make(chan struct{})

	go sweep(stopSweeper, sweeperDone)

	log.Info().
		Float64("rate", config.Global.Limiter.Rate).
		Int("burst", config.Global.Limiter.Burst).
		Msg("Limiter enabled")
}

// Fini stops the sweeper started by Init and waits for it to exit.
func Fini() {
	sweeperMu.Lock()
	defer sweeperMu.Unlock()

	if stopSweeper == nil {
		return
	}

	close(stopSweeper)
	<-sweeperDone

	stopSweeper, sweeperDone = nil, nil
}

func sweep(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			cleanupExpiredLimiters()
		}
	}
}

// getOrCreateLimiter returns the limiter of a network, creating it with the configured rate and burst.
func getOrCreateLimiter(network string) *limiterWrapper {
	if value, ok := limiters.Load(network); ok {
		return value.(*limiterWrapper)
	}

	fresh := &limiterWrapper{
		limiter:    rate.NewLimiter(rate.Limit(config.Global.Limiter.Rate), config.Global.Limiter.Burst),
		network:    network,
		lastAccess: timeNow(),
	}

	value, _ := limiters.LoadOrStore(network, fresh)

	return value.(*limiterWrapper)
}

// allow consumes one token. It reports false when the bucket is empty.
func (lw *limiterWrapper) allow() bool {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	now := timeNow()
	lw.lastAccess = now

	return lw.limiter.AllowN(now, 1)
}

// state reports the bucket for the RateLimit headers: burst, whole tokens
// left and seconds until the bucket is full again.
func (lw *limiterWrapper) state() (burst, remaining int, reset time.Duration) {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	now := timeNow()
	tokens := lw.limiter.TokensAt(now)
	burst = lw.limiter.Burst()
	remaining = max(0, min(burst, int(tokens)))

	if deficit := float64(burst) - tokens; deficit > 0 && lw.limiter.Limit() > 0 {
		reset = time.Duration(deficit / float64(lw.limiter.Limit()) * float64(time.Second))
	}

	return burst, remaining, reset
}

// cleanupExpiredLimiters removes limiters that haven't been accessed for the expiry duration.
func cleanupExpiredLimiters() {
	now := timeNow()
	expired := 0

	limiters.Range(func(key, value any) bool {
		lw := value.(*limiterWrapper)

		lw.mu.Lock()
		idle := now.Sub(lw.lastAccess)
		lw.mu.Unlock()

		if idle > LimiterExpiryDuration {
			limiters.Delete(key)

			expired++
		}

		return true
	})

	if expired > 0 {
		log.Info().Int("count", expired).
			Msg("Cleaned up expired limiters")
	}
}

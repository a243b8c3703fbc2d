// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

package limiter

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"codeberg.org/dtextview/dtextview/config"
)

// CleanupInterval is the interval between limiter cleanup runs.
const CleanupInterval = 5 * time.Minute

var (
	limiters sync.Map   // network string -> *limiterWrapper
	timeNow  = time.Now // Wrapper for time.Now, which allows us to mock it in tests.

	cleanupMu   sync.Mutex
	stopCleanup chan struct{}
)

// limiterWrapper holds a rate limiter and the time it was last used.
type limiterWrapper struct {
	limiter    *rate.Limiter
	network    string
	mu         sync.Mutex
	lastAccess time.Time
}

// Init starts the background cleanup of idle limiters.
func Init() {
	cleanupMu.Lock()
	defer cleanupMu.Unlock()

	if stopCleanup != nil {
		return
	}

	stopCleanup = make(chan struct{})

	go runCleanup(stopCleanup)

	log.Info().
		Int("requests_per_minute", config.Global.Limiter.RequestsPerMinute).
		Int("burst", config.Global.Limiter.Burst).
		Msg("Limiter enabled")
}

// Fini stops the cleanup started by Init and forgets every limiter.
func Fini() {
	cleanupMu.Lock()
	defer cleanupMu.Unlock()

	if stopCleanup == nil {
		return
	}

	close(stopCleanup)
	stopCleanup = nil

	limiters.Clear()
}

func runCleanup(stop <-chan struct{}) {
	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			start := time.Now()
			removed := cleanupExpiredLimiters(config.Global.Limiter.IdleTimeout)

			log.Debug().
				Int("removed", removed).
				Dur("dur", time.Since(start)).
				Msg("Limiter cleanup")
		}
	}
}

// regularLimit converts the configured requests per minute to a rate.Limit.
func regularLimit() rate.Limit {
	return rate.Limit(float64(config.Global.Limiter.RequestsPerMinute) / float64(time.Minute/time.Second))
}

// getOrCreateLimiter returns the limiterWrapper for network, creating it with
// the configured rate and burst if needed.
func getOrCreateLimiter(network string) *limiterWrapper {
	now := timeNow()

	value, _ := limiters.LoadOrStore(network, &limiterWrapper{
		limiter:    rate.NewLimiter(regularLimit(), config.Global.Limiter.Burst),
		network:    network,
		lastAccess: now,
	})

	limWrapper := value.(*limiterWrapper) //nolint:forcetypeassert // only *limiterWrapper is stored

	limWrapper.mu.Lock()
	limWrapper.lastAccess = now
	limWrapper.mu.Unlock()

	return limWrapper
}

// allow attempts to consume one token.
func (l *limiterWrapper) allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := timeNow()
	l.lastAccess = now

	return l.limiter.AllowN(now, 1)
}

// state returns the bucket's burst, current tokens and refill rate.
func (l *limiterWrapper) state() (int, float64, rate.Limit) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.limiter.Burst(), l.limiter.TokensAt(timeNow()), l.limiter.Limit()
}

// cleanupExpiredLimiters removes limiters that have been idle for longer
// than idleTimeout and returns how many were removed.
func cleanupExpiredLimiters(idleTimeout time.Duration) int {
	now := timeNow()
	removed := 0

	limiters.Range(func(key, value any) bool {
		limWrapper, ok := value.(*limiterWrapper)
		if !ok {
			limiters.Delete(key)

			return true
		}

		limWrapper.mu.Lock()
		idle := now.Sub(limWrapper.lastAccess)
		limWrapper.mu.Unlock()

		if idle > idleTimeout {
			limiters.Delete(key)

			removed++
		}

		return true
	})

	if removed > 0 {
		log.Info().Int("count", removed).Msg("Cleaned up expired limiters")
	}

	return removed
}

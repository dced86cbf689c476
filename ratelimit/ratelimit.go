package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// RateLimiterConfig holds configuration for rate limiting
type RateLimiterConfig struct {
	MaxRequests     int           // Maximum number of requests allowed
	WindowSize      time.Duration // Time window for rate limiting
	CleanupInterval time.Duration // How often to clean up expired entries
}

func DefaultConfig() *RateLimiterConfig {
	return &RateLimiterConfig{
		MaxRequests:     100,
		WindowSize:      time.Second,
		CleanupInterval: 5 * time.Minute,
	}
}

// RateLimiter implements sliding window rate limiting keyed by client.
type RateLimiter struct {
	config      *RateLimiterConfig
	now         func() time.Time
	requests    map[string][]time.Time
	mu          sync.Mutex
	stopCleanup chan struct{}
	stopOnce    sync.Once
}

func NewRateLimiter(config *RateLimiterConfig) *RateLimiter {
	if config == nil {
		config = DefaultConfig()
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 5 * time.Minute
	}

	rl := &RateLimiter{
		config:      config,
		now:         time.Now,
		requests:    make(map[string][]time.Time),
		stopCleanup: make(chan struct{}),
	}
	go rl.cleanupExpiredEntries()
	return rl
}

// Allow records a request for key and reports whether it fits in the window.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	valid := pruned(rl.requests[key], now.Add(-rl.config.WindowSize))
	if len(valid) >= rl.config.MaxRequests {
		rl.requests[key] = valid
		return false
	}
	rl.requests[key] = append(valid, now)
	return true
}

// Count returns the number of requests from key inside the current window.
func (rl *RateLimiter) Count(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(pruned(rl.requests[key], rl.now().Add(-rl.config.WindowSize)))
}

func (rl *RateLimiter) Reset(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.requests, key)
}

// pruned drops timestamps at or before cutoff. Timestamps are appended in order.
func pruned(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(stamps) && !stamps[i].After(cutoff) {
		i++
	}
	return stamps[i:]
}

func (rl *RateLimiter) cleanupExpiredEntries() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCleanup:
			return
		}
	}
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.config.WindowSize)
	for key, stamps := range rl.requests {
		valid := pruned(stamps, cutoff)
		if len(valid) == 0 {
			delete(rl.requests, key)
		} else {
			rl.requests[key] = valid
		}
	}
}

// Stop stops the cleanup goroutine
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

// RateLimitError represents a rate limit error
type RateLimitError struct {
	Key     string
	Limit   int
	Window  time.Duration
	Message string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for '%s': %s (%d per %s)", e.Key, e.Message, e.Limit, e.Window)
}

// Check is Allow returning a *RateLimitError when the request is refused.
func (rl *RateLimiter) Check(key string) error {
	if rl.Allow(key) {
		return nil
	}
	return &RateLimitError{
		Key:     key,
		Limit:   rl.config.MaxRequests,
		Window:  rl.config.WindowSize,
		Message: "too many submissions",
	}
}

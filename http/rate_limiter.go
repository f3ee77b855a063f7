package http

import (
	"sync"
	"time"
)

const (
	bucketCleanupThreshold = 1 * time.Hour
	cleanupInterval        = 30 * time.Minute
)

type clientBucket struct {
	tokens   float64
	lastSeen time.Time
}

// RateLimiter is a per-client token bucket that refills continuously at
// capacity tokens per window.
type RateLimiter struct {
	mu          sync.Mutex
	capacity    float64
	perSecond   float64
	clients     map[string]*clientBucket
	now         func() time.Time
	stopCleanup chan struct{}
}

func NewRateLimiter(capacity int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		capacity:    float64(capacity),
		perSecond:   float64(capacity) / window.Seconds(),
		clients:     make(map[string]*clientBucket),
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

func (r *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.cleanup()
		case <-r.stopCleanup:
			return
		}
	}
}

func (r *RateLimiter) cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for key, bucket := range r.clients {
		if now.Sub(bucket.lastSeen) > bucketCleanupThreshold {
			delete(r.clients, key)
		}
	}
}

func (r *RateLimiter) Stop() {
	close(r.stopCleanup)
}

// Allow takes one token from key's bucket. When it is empty the wait until
// the next token is returned.
func (r *RateLimiter) Allow(key string) (bool, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	bucket, exists := r.clients[key]
	if !exists {
		bucket = &clientBucket{tokens: r.capacity, lastSeen: now}
		r.clients[key] = bucket
	}

	elapsed := now.Sub(bucket.lastSeen).Seconds()
	bucket.tokens = min(r.capacity, bucket.tokens+elapsed*r.perSecond)
	bucket.lastSeen = now

	if bucket.tokens < 1 {
		wait := time.Duration((1 - bucket.tokens) / r.perSecond * float64(time.Second))
		return false, wait
	}
	bucket.tokens--
	return true, 0
}

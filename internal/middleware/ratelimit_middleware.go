package middleware

import (
	"sync"
	"time"
)

const (
	maxInvalidAttempts = 5
	attemptWindow      = time.Minute
)

// InvalidAuthRateLimiter blocks IPs after repeated invalid auth attempts.
// Valid requests are never counted.
type InvalidAuthRateLimiter struct {
	mu       sync.Mutex
	attempts map[string]*attemptInfo
	now      func() time.Time
}

type attemptInfo struct {
	count   int
	firstAt time.Time
}

func NewInvalidAuthRateLimiter() *InvalidAuthRateLimiter {
	return &InvalidAuthRateLimiter{
		attempts: make(map[string]*attemptInfo),
		now:      time.Now,
	}
}

// Allowed reports whether ip is under the limit of 5 invalid attempts per minute.
func (r *InvalidAuthRateLimiter) Allowed(ip string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, ok := r.attempts[ip]
	if !ok {
		return true
	}
	if r.now().Sub(info.firstAt) > attemptWindow {
		delete(r.attempts, ip)
		return true
	}
	return info.count < maxInvalidAttempts
}

// Record counts an invalid attempt for ip and prunes expired entries.
func (r *InvalidAuthRateLimiter) Record(ip string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for k, info := range r.attempts {
		if now.Sub(info.firstAt) > attemptWindow {
			delete(r.attempts, k)
		}
	}

	info, ok := r.attempts[ip]
	if !ok {
		r.attempts[ip] = &attemptInfo{count: 1, firstAt: now}
		return
	}
	info.count++
}

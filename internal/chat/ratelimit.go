package chat

import "time"

// rateLimiter is a token bucket. It is only ever used by the goroutine
// handling one connection, so it needs no locking.
type rateLimiter struct {
	tokens   float64
	capacity float64
	rate     float64 // tokens per second
	last     time.Time
}

func newRateLimiter(burst int, interval time.Duration) *rateLimiter {
	if burst <= 0 {
		burst = 1
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &rateLimiter{
		tokens:   float64(burst),
		capacity: float64(burst),
		rate:     float64(burst) / interval.Seconds(),
		last:     time.Now(),
	}
}

func (rl *rateLimiter) allow() bool {
	now := time.Now()
	elapsed := now.Sub(rl.last).Seconds()
	rl.last = now

	if elapsed > 0 {
		rl.tokens += elapsed * rl.rate
		if rl.tokens > rl.capacity {
			rl.tokens = rl.capacity
		}
	}

	if rl.tokens < 1 {
		return false
	}
	rl.tokens--
	return true
}

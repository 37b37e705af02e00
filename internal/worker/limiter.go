package worker

import (
	"context"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter hands out one token bucket per key. URL keys share a bucket per
// host; any other key, such as an LLM provider name, is used as-is.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	rps     rate.Limit
	burst   int
}

// NewLimiter creates a limiter. A non-positive rate disables limiting and a
// non-positive burst defaults to 5.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}
	rps := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		rps = rate.Inf
	}
	return &Limiter{
		buckets: make(map[string]*rate.Limiter),
		rps:     rps,
		burst:   burst,
	}
}

// Wait blocks until key's bucket has a token or ctx ends
func (l *Limiter) Wait(ctx context.Context, key string) error {
	return l.bucket(key).Wait(ctx)
}

// ApplyCrawlDelay slows key's bucket to at most one request per delay.
// It never speeds a bucket up.
func (l *Limiter) ApplyCrawlDelay(key string, delay time.Duration) {
	if delay <= 0 {
		return
	}
	b := l.bucket(key)
	if every := rate.Every(delay); every < b.Limit() {
		b.SetLimit(every)
		b.SetBurst(1)
	}
}

func (l *Limiter) bucket(key string) *rate.Limiter {
	key = limiterKey(key)

	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[key]
	if !ok {
		b = rate.NewLimiter(l.rps, l.burst)
		l.buckets[key] = b
	}
	return b
}

// limiterKey buckets URLs by host and uses any other key as-is
func limiterKey(key string) string {
	parsed, err := url.Parse(key)
	if err != nil || parsed.Host == "" {
		return key
	}
	return parsed.Host
}

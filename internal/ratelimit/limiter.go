package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/dalfonso89/currency-converter/internal/config"
)

// idleBucketTTL is how long an untouched client bucket survives cleanup
const idleBucketTTL = 30 * time.Minute

// Limiter keeps one token bucket per client IP so a single caller cannot
// spend the provider quota on its own
type Limiter struct {
	enabled  bool
	capacity float64
	perToken time.Duration
	window   time.Duration
	requests int
	logger   *logrus.Logger
	now      func() time.Time

	mutex   sync.Mutex
	buckets map[string]*bucket

	stopOnce sync.Once
	stop     chan struct{}
}

type bucket struct {
	tokens   float64
	lastSeen time.Time
}

// NewLimiter creates a limiter and starts its idle-bucket cleanup; call Stop to end it
func NewLimiter(configuration *config.Config, logger *logrus.Logger) *Limiter {
	limiter := newLimiter(configuration, logger, time.Now)
	go limiter.cleanupLoop(5 * time.Minute)
	return limiter
}

func newLimiter(configuration *config.Config, logger *logrus.Logger, now func() time.Time) *Limiter {
	requests := configuration.RateLimitRequests
	if requests <= 0 {
		requests = 1
	}
	window := configuration.RateLimitWindow
	if window <= 0 {
		window = time.Minute
	}
	burst := configuration.RateLimitBurst
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		enabled:  configuration.RateLimitEnabled,
		capacity: float64(burst),
		perToken: window / time.Duration(requests),
		window:   window,
		requests: requests,
		logger:   logger,
		now:      now,
		buckets:  make(map[string]*bucket),
		stop:     make(chan struct{}),
	}
}

// Allow takes one token from clientIP's bucket, refilling it for the time elapsed
func (limiter *Limiter) Allow(clientIP string) bool {
	if !limiter.enabled {
		return true
	}

	limiter.mutex.Lock()
	defer limiter.mutex.Unlock()

	now := limiter.now()
	clientBucket, exists := limiter.buckets[clientIP]
	if !exists {
		clientBucket = &bucket{tokens: limiter.capacity, lastSeen: now}
		limiter.buckets[clientIP] = clientBucket
	}

	if elapsed := now.Sub(clientBucket.lastSeen); elapsed > 0 {
		clientBucket.tokens += float64(elapsed) / float64(limiter.perToken)
		if clientBucket.tokens > limiter.capacity {
			clientBucket.tokens = limiter.capacity
		}
	}
	clientBucket.lastSeen = now

	if clientBucket.tokens < 1 {
		return false
	}
	clientBucket.tokens--
	return true
}

// Middleware rejects requests from clients that ran out of tokens with 429.
// Clients are keyed by gin's ClientIP, so forwarding headers only count when the
// engine's trusted proxies include the immediate peer.
func (limiter *Limiter) Middleware() gin.HandlerFunc {
	return func(context *gin.Context) {
		clientIP := context.ClientIP()
		if limiter.Allow(clientIP) {
			context.Next()
			return
		}

		limiter.logger.WithField("client_ip", clientIP).Warn("Rate limit exceeded")
		context.Header("X-RateLimit-Limit", strconv.Itoa(limiter.requests))
		context.Header("X-RateLimit-Remaining", "0")
		context.Header("Retry-After", strconv.Itoa(int(limiter.perToken.Seconds())+1))
		context.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":   "rate limit exceeded",
			"message": "too many requests, retry later",
			"code":    http.StatusTooManyRequests,
		})
	}
}

func (limiter *Limiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			limiter.removeIdle()
		case <-limiter.stop:
			return
		}
	}
}

func (limiter *Limiter) removeIdle() {
	limiter.mutex.Lock()
	defer limiter.mutex.Unlock()

	cutoff := limiter.now().Add(-idleBucketTTL)
	for clientIP, clientBucket := range limiter.buckets {
		if clientBucket.lastSeen.Before(cutoff) {
			delete(limiter.buckets, clientIP)
		}
	}
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (limiter *Limiter) Stop() {
	limiter.stopOnce.Do(func() { close(limiter.stop) })
}

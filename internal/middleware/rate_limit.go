package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/ridwanfathin/edge-transaction-service/internal/model"
)

// DeviceIDHeader identifies the submitting edge device
const DeviceIDHeader = "X-Device-ID"

// limiterIdleTTL is how long an unused device limiter is kept
const limiterIdleTTL = 10 * time.Minute

type deviceLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// DeviceRateLimiter throttles ingestion per edge device. Devices are told
// apart by X-Device-ID and fall back to the client IP.
type DeviceRateLimiter struct {
	mu        sync.Mutex
	devices   map[string]*deviceLimiter
	limit     rate.Limit
	burst     int
	now       func() time.Time
	lastSweep time.Time
}

// NewDeviceRateLimiter allows perSecond requests per device with the given burst
func NewDeviceRateLimiter(perSecond float64, burst int) *DeviceRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &DeviceRateLimiter{
		devices: make(map[string]*deviceLimiter),
		limit:   rate.Limit(perSecond),
		burst:   burst,
		now:     time.Now,
	}
}

// Allow reports whether the device may send another request now
func (l *DeviceRateLimiter) Allow(device string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > limiterIdleTTL {
		for key, d := range l.devices {
			if now.Sub(d.lastSeen) > limiterIdleTTL {
				delete(l.devices, key)
			}
		}
		l.lastSweep = now
	}

	d, ok := l.devices[device]
	if !ok {
		d = &deviceLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.devices[device] = d
	}
	d.lastSeen = now
	return d.limiter.AllowN(now, 1)
}

// Middleware rejects requests over the device's budget with 429
func (l *DeviceRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		device := c.GetHeader(DeviceIDHeader)
		if device == "" {
			device = "ip:" + c.ClientIP()
		}
		if !l.Allow(device) {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, model.ErrorResponse{
				Status:  http.StatusText(http.StatusTooManyRequests),
				Message: "Too many requests from this device",
			})
			return
		}
		c.Next()
	}
}

package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"greendrake/productenquiry/internal/config"
	"greendrake/productenquiry/internal/models"
)

// softLimitedEndpoints create records or sessions, so they also answer to the soft bucket.
var softLimitedEndpoints = map[string]bool{
	"submit_enquiry":  true,
	"/v1/admin/login": true,
}

// EndpointLimitsProvider looks up per-endpoint overrides of the default limits.
type EndpointLimitsProvider interface {
	GetEndpointLimits(ctx context.Context, endpoint string) *models.EndpointLimits
}

// clientLimiter stores rate limiters for one client on one endpoint.
type clientLimiter struct {
	softLimiter *rate.Limiter
	hardLimiter *rate.Limiter
	lastSeen    time.Time
}

// RateLimiterMiddleware manages rate limiting for API endpoints.
type RateLimiterMiddleware struct {
	clients map[string]*clientLimiter
	mu      sync.Mutex
	cfg     *config.Config
	limits  EndpointLimitsProvider
}

// NewRateLimiterMiddleware creates a new RateLimiterMiddleware. limits may be nil.
func NewRateLimiterMiddleware(cfg *config.Config, limits EndpointLimitsProvider) *RateLimiterMiddleware {
	return &RateLimiterMiddleware{
		clients: make(map[string]*clientLimiter),
		cfg:     cfg,
		limits:  limits,
	}
}

// getClientIdentifier keys a client by IP and session cookie.
func getClientIdentifier(c *gin.Context) string {
	return fmt.Sprintf("%s|%s", c.ClientIP(), SessionID(c))
}

// AjaxPath is the AJAX route that carries its action in the body.
const AjaxPath = "/v1/ajax"

const maxPeekBytes = 1 << 20

// endpointIdentifier is the AJAX action, taken from the path or the body, otherwise the route path.
func endpointIdentifier(c *gin.Context) string {
	if action := c.Param("action"); action != "" {
		return action
	}
	if c.Request.Method == http.MethodPost && c.FullPath() == AjaxPath {
		if action := peekAjaxAction(c); action != "" {
			return action
		}
	}
	return c.FullPath()
}

// peekAjaxAction reads the action field without consuming the body for later handlers.
func peekAjaxAction(c *gin.Context) string {
	if !strings.HasPrefix(c.ContentType(), "application/json") {
		return c.PostForm("action")
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPeekBytes))
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	var peek struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(body, &peek); err != nil {
		return ""
	}
	return peek.Action
}

func (rm *RateLimiterMiddleware) getClientLimiter(key string, soft, hard models.RateLimitConfig) *clientLimiter {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	limiter, exists := rm.clients[key]
	if !exists {
		limiter = &clientLimiter{
			softLimiter: rate.NewLimiter(rate.Limit(soft.TokenRefillRate), soft.BucketSize),
			hardLimiter: rate.NewLimiter(rate.Limit(hard.TokenRefillRate), hard.BucketSize),
		}
		rm.clients[key] = limiter
	}
	limiter.lastSeen = time.Now()
	return limiter
}

// Cleanup removes entries idle for longer than maxIdle and reports how many went.
func (rm *RateLimiterMiddleware) Cleanup(maxIdle time.Duration) int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	count := 0
	for id, client := range rm.clients {
		if time.Since(client.lastSeen) > maxIdle {
			delete(rm.clients, id)
			count++
		}
	}
	return count
}

// RunCleanup prunes idle entries every interval until ctx is cancelled.
func (rm *RateLimiterMiddleware) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := rm.Cleanup(3 * interval); n > 0 {
				log.Printf("Rate limiter cleanup removed %d old client entries.", n)
			}
		}
	}
}

func (rm *RateLimiterMiddleware) limitsFor(ctx context.Context, endpoint string) (soft, hard models.RateLimitConfig) {
	soft = models.RateLimitConfig{BucketSize: rm.cfg.RateLimitSoftBucketSize, TokenRefillRate: rm.cfg.RateLimitSoftRefillRate}
	hard = models.RateLimitConfig{BucketSize: rm.cfg.RateLimitHardBucketSize, TokenRefillRate: rm.cfg.RateLimitHardRefillRate}
	if rm.limits == nil {
		return soft, hard
	}
	if override := rm.limits.GetEndpointLimits(ctx, endpoint); override != nil {
		if override.Soft != nil {
			soft = *override.Soft
		}
		if override.Hard != nil {
			hard = *override.Hard
		}
	}
	return soft, hard
}

// Limit creates the Gin middleware handler. It must run after SessionMiddleware.
func (rm *RateLimiterMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientKey := getClientIdentifier(c)
		endpoint := endpointIdentifier(c)

		soft, hard := rm.limitsFor(c.Request.Context(), endpoint)
		limiter := rm.getClientLimiter(clientKey+"|"+endpoint, soft, hard)

		if !limiter.hardLimiter.Allow() {
			log.Printf("WARNING: Hard rate limit exceeded for client %s on %s", clientKey, endpoint)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		if softLimitedEndpoints[endpoint] && !limiter.softLimiter.Allow() {
			log.Printf("WARNING: Soft rate limit exceeded for client %s on %s", clientKey, endpoint)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many attempts, please wait a moment"})
			return
		}

		c.Next()
	}
}

package middleware

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type RateLimiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	limit    int
	window   time.Duration
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		attempts: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

func (rl *RateLimiter) Limit(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	// Очищаем старые попытки
	var valid []time.Time
	for _, t := range rl.attempts[key] {
		if now.Sub(t) < rl.window {
			valid = append(valid, t)
		}
	}

	if len(valid) >= rl.limit {
		rl.attempts[key] = valid
		return true // превышен лимит
	}

	rl.attempts[key] = append(valid, now)
	return false
}

// RateLimit ограничивает частоту запросов по IP (для логина)
func RateLimit(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.Limit(c.ClientIP()) {
			log.Printf("⚠️ Превышен лимит запросов с IP %s: %s %s",
				c.ClientIP(), c.Request.Method, c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}

// SecurityMonitor отслеживает подозрительную активность
func SecurityMonitor() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Логируем подозрительные статусы
		status := c.Writer.Status()
		if status == 401 || status == 403 {
			log.Printf("⚠️ Неавторизованный доступ: %s %s с IP %s",
				c.Request.Method, c.Request.URL.Path, c.ClientIP())
		}
	}
}

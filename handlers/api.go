package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

var startedAt = time.Now()

// ==================== API МАРШРУТЫ ====================
func HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": "1.0",
		"time":    time.Now().Unix(),
	})
}

func SystemStatsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"uptime":     time.Since(startedAt).String(),
		"goroutines": runtime.NumGoroutine(),
		"go_version": runtime.Version(),
		"timestamp":  time.Now().Unix(),
	})
}

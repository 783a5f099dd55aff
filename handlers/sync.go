package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Gunjankadam/Vendofy-sub001/poller"
)

// SubscribeHandler включает фоновую синхронизацию для пользователя.
// Первый цикл запускается сразу, чтобы сбой опроса был виден в ответе.
func SubscribeHandler(c *gin.Context) {
	p, ok := principalOrAbort(c)
	if !ok {
		return
	}

	s := hub.Subscribe(p)

	resp := gin.H{
		"success":    true,
		"session_id": s.ID,
	}
	if err := s.PollNow(); err != nil {
		resp["sync_warning"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

// SyncEventsHandler отдаёт и очищает накопленные события сессии
func SyncEventsHandler(c *gin.Context) {
	p, ok := principalOrAbort(c)
	if !ok {
		return
	}

	var s *poller.Session
	if id := c.Query("session_id"); id != "" {
		s, ok = hub.SessionByID(id)
	} else {
		s, ok = hub.SessionOf(p.UserID)
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active sync session, subscribe first"})
		return
	}
	if s.UserID() != p.UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "session belongs to another user"})
		return
	}

	events := s.Events()
	c.JSON(http.StatusOK, gin.H{
		"events":   events,
		"count":    len(events),
		"snapshot": s.Snapshot(),
	})
}

// UnsubscribeHandler останавливает сессию синхронизации
func UnsubscribeHandler(c *gin.Context) {
	p, ok := principalOrAbort(c)
	if !ok {
		return
	}

	hub.Unsubscribe(p.UserID)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

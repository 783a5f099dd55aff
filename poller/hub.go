package poller

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Gunjankadam/Vendofy-sub001/ledger"
	"github.com/Gunjankadam/Vendofy-sub001/logging"
	"github.com/Gunjankadam/Vendofy-sub001/models"
	"github.com/Gunjankadam/Vendofy-sub001/monitoring"
	"github.com/Gunjankadam/Vendofy-sub001/rollup"
)

// Hub управляет сессиями опроса: одна сессия на пользователя,
// таймер гасится при завершении сессии — осиротевших опросов нет
type Hub struct {
	mu       sync.Mutex
	sessions map[string]*Session // ключ — UserID
	byID     map[string]*Session

	ledger   *ledger.Ledger
	engine   *rollup.Engine
	interval time.Duration
}

func NewHub(l *ledger.Ledger, e *rollup.Engine, interval time.Duration) *Hub {
	if interval <= 0 {
		interval = 4 * time.Second
	}
	return &Hub{
		sessions: make(map[string]*Session),
		byID:     make(map[string]*Session),
		ledger:   l,
		engine:   e,
		interval: interval,
	}
}

// Subscribe создаёт (или возвращает существующую) сессию пользователя
// и запускает её таймер
func (h *Hub) Subscribe(p models.Principal) *Session {
	h.mu.Lock()
	defer h.mu.Unlock()

	if s, ok := h.sessions[p.UserID]; ok {
		return s
	}

	s := newSession(p, h.ledger, h.engine, h.interval)
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	h.sessions[p.UserID] = s
	h.byID[s.ID] = s
	monitoring.ActiveSessions.Inc()

	go s.run(ctx)
	logging.L().Info("sync session started",
		zap.String("session", s.ID),
		zap.String("user", p.UserID),
		zap.String("role", string(p.Role)))
	return s
}

// SessionOf возвращает сессию пользователя, если она активна
func (h *Hub) SessionOf(userID string) (*Session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[userID]
	return s, ok
}

// SessionByID ищет сессию по её идентификатору
func (h *Hub) SessionByID(id string) (*Session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.byID[id]
	return s, ok
}

// Unsubscribe останавливает и удаляет сессию пользователя
func (h *Hub) Unsubscribe(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[userID]
	if !ok {
		return
	}
	s.Stop()
	delete(h.sessions, userID)
	delete(h.byID, s.ID)
	monitoring.ActiveSessions.Dec()
	logging.L().Info("sync session stopped", zap.String("session", s.ID))
}

// Shutdown гасит все сессии (останов сервера)
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, s := range h.sessions {
		s.Stop()
		delete(h.sessions, userID)
		delete(h.byID, s.ID)
		monitoring.ActiveSessions.Dec()
	}
}

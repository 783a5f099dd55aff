package handlers

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Gunjankadam/Vendofy-sub001/config"
	"github.com/Gunjankadam/Vendofy-sub001/hierarchy"
	"github.com/Gunjankadam/Vendofy-sub001/ledger"
	"github.com/Gunjankadam/Vendofy-sub001/middleware"
	"github.com/Gunjankadam/Vendofy-sub001/models"
	"github.com/Gunjankadam/Vendofy-sub001/poller"
	"github.com/Gunjankadam/Vendofy-sub001/rollup"
	"github.com/Gunjankadam/Vendofy-sub001/utils"
)

var (
	cfg      *config.Config
	dir      *hierarchy.Directory
	ldg      *ledger.Ledger
	engine   *rollup.Engine
	hub      *poller.Hub
	emailSvc *utils.EmailService

	// Лимитер на логин: 5 попыток в минуту с одного IP
	LoginLimiter = middleware.NewRateLimiter(5, time.Minute)
)

// Init связывает обработчики с ядром
func Init(c *config.Config, d *hierarchy.Directory, l *ledger.Ledger, e *rollup.Engine, h *poller.Hub) {
	cfg = c
	dir = d
	ldg = l
	engine = e
	hub = h
	emailSvc = utils.NewEmailService(c)
	log.Println("✅ Handlers initialized")
}

// respondError переводит ошибку ядра в HTTP-ответ
func respondError(c *gin.Context, err error) {
	c.JSON(models.HTTPStatus(err), gin.H{"error": err.Error()})
}

// principalOrAbort достаёт принципала из контекста
func principalOrAbort(c *gin.Context) (models.Principal, bool) {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(401, gin.H{"error": "unauthorized"})
		return models.Principal{}, false
	}
	return p, true
}

// kickSession запускает принудительный цикл синхронизации после
// действия пользователя; его ошибка возвращается наружу, чтобы
// пользователь узнал о сбое сразу, а не через интервал
func kickSession(p models.Principal) string {
	if hub == nil {
		return ""
	}
	s, ok := hub.SessionOf(p.UserID)
	if !ok {
		return ""
	}
	if err := s.PollNow(); err != nil {
		return err.Error()
	}
	return ""
}

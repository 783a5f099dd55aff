// Package poller — слой синхронизации: на каждую активную сессию
// работает свой таймер, который перечитывает видимое состояние,
// сравнивает с прошлым срезом и при росте наблюдаемого счётчика
// выпускает ровно одно событие на пачку изменений.
package poller

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Gunjankadam/Vendofy-sub001/ledger"
	"github.com/Gunjankadam/Vendofy-sub001/logging"
	"github.com/Gunjankadam/Vendofy-sub001/models"
	"github.com/Gunjankadam/Vendofy-sub001/monitoring"
	"github.com/Gunjankadam/Vendofy-sub001/rollup"
)

// Event — уведомление о пачке изменений (одно на пачку, не на элемент)
type Event struct {
	Type    string    `json:"type"`
	Delta   int       `json:"delta"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// view — срез видимого состояния сессии для глубокого сравнения
type view struct {
	Orders        []models.Order
	Notifications []models.AdminNotification
	Agg           rollup.Result
}

// monitoredCount — наблюдаемый счётчик, рост которого рождает событие
func (v *view) monitoredCount(role models.Role) int {
	if role == models.RoleAdmin {
		return len(v.Notifications)
	}
	return len(v.Orders)
}

type Session struct {
	ID        string
	principal models.Principal
	interval  time.Duration

	ledger *ledger.Ledger
	engine *rollup.Engine

	cancel   context.CancelFunc
	inFlight atomic.Bool

	mu     sync.Mutex
	last   *view
	events []Event
}

func newSession(p models.Principal, l *ledger.Ledger, e *rollup.Engine, interval time.Duration) *Session {
	return &Session{
		ID:        uuid.NewString(),
		principal: p,
		interval:  interval,
		ledger:    l,
		engine:    e,
	}
}

// fetch перечитывает срез, видимый роли сессии: админ — пересланные
// заказы и лента пополнений, дистрибьютор — заказы в рейсе,
// клиент — собственные заказы
func (s *Session) fetch() (*view, error) {
	var f ledger.ListFilter
	switch s.principal.Role {
	case models.RoleAdmin:
		f.SentToAdmin = true
	case models.RoleDistributor:
		f.InTransit = true
	}

	orders, err := s.ledger.List(s.principal, f)
	if err != nil {
		return nil, err
	}
	agg, err := s.engine.Aggregate(s.principal, rollup.LevelAll, "", rollup.DateFilter{Kind: rollup.FilterToday})
	if err != nil {
		return nil, err
	}

	v := &view{Orders: orders, Agg: *agg}
	if s.principal.Role == models.RoleAdmin {
		v.Notifications = s.ledger.Notifications(s.principal.NodeID)
	}
	return v, nil
}

// poll выполняет один цикл. Пересекающиеся циклы одной сессии не
// выполняются параллельно: новый пропускается, пока идёт текущий.
// Ошибка чтения = «изменений нет в этом цикле»; вызывающая сторона
// решает, показывать ли её (принудительный опрос после действия
// пользователя — показывает).
func (s *Session) poll() error {
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil
	}
	defer s.inFlight.Store(false)

	monitoring.PollCyclesTotal.Inc()
	cur, err := s.fetch()
	if err != nil {
		logging.L().Warn("poll cycle failed", zap.String("session", s.ID), zap.Error(err))
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.last != nil && reflect.DeepEqual(*s.last, *cur) {
		// Без изменений — без события, без перерисовок
		return nil
	}
	if s.last != nil {
		delta := cur.monitoredCount(s.principal.Role) - s.last.monitoredCount(s.principal.Role)
		if delta > 0 {
			s.events = append(s.events, Event{
				Type:    eventType(s.principal.Role),
				Delta:   delta,
				Message: fmt.Sprintf("%d new %s", delta, eventType(s.principal.Role)),
				At:      time.Now(),
			})
			monitoring.NotificationsEmitted.Inc()
		}
	}
	s.last = cur
	return nil
}

func eventType(role models.Role) string {
	if role == models.RoleAdmin {
		return "notifications"
	}
	return "orders"
}

// UserID возвращает владельца сессии
func (s *Session) UserID() string {
	return s.principal.UserID
}

// PollNow — принудительный цикл сразу после действия пользователя;
// его ошибка возвращается наружу, чтобы действие не потерялось молча
func (s *Session) PollNow() error {
	return s.poll()
}

// Events отдаёт накопленные события и очищает очередь
func (s *Session) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := s.events
	s.events = nil
	return events
}

// Snapshot возвращает последний срез агрегации (для отображения)
func (s *Session) Snapshot() *rollup.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	agg := s.last.Agg
	return &agg
}

func (s *Session) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Ошибки таймерных циклов не всплывают — следующая
			// попытка через интервал
			_ = s.poll()
		}
	}
}

// Stop останавливает таймер сессии
func (s *Session) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

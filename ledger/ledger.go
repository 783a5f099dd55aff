// Package ledger — авторитетное хранилище заказов и машина состояний
// их исполнения: Placed → MarkedForTransit → [SentToAdmin] → Received →
// PaymentRecorded.
package ledger

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Gunjankadam/Vendofy-sub001/hierarchy"
	"github.com/Gunjankadam/Vendofy-sub001/logging"
	"github.com/Gunjankadam/Vendofy-sub001/models"
	"github.com/Gunjankadam/Vendofy-sub001/monitoring"
)

// entry хранит заказ вместе с его персональным мьютексом.
// Дисциплина блокировок: каждый переход держит l.mu.RLock на всё
// время мутации плюс e.mu для взаимного исключения по заказу;
// Snapshot берёт l.mu.Lock и получает срез на единый момент времени.
type entry struct {
	mu sync.Mutex
	o  *models.Order
}

type Ledger struct {
	mu     sync.RWMutex
	orders map[string]*entry

	auditMu sync.Mutex
	audit   []models.AuditFact
	seq     uint64

	notifMu       sync.Mutex
	notifications []models.AdminNotification

	dir      *hierarchy.Directory
	currency string
}

func NewLedger(dir *hierarchy.Directory, currency string) *Ledger {
	if currency == "" {
		currency = "INR"
	}
	return &Ledger{
		orders:   make(map[string]*entry),
		dir:      dir,
		currency: currency,
	}
}

// Hydrate загружает заказы и журнал аудита при старте
func (l *Ledger) Hydrate(orders []models.Order, facts []models.AuditFact, notifs []models.AdminNotification) {
	l.mu.Lock()
	for i := range orders {
		o := orders[i].Clone()
		l.orders[o.ID] = &entry{o: &o}
	}
	l.mu.Unlock()

	l.auditMu.Lock()
	l.audit = append(l.audit, facts...)
	for _, f := range facts {
		if f.Seq > l.seq {
			l.seq = f.Seq
		}
	}
	l.auditMu.Unlock()

	l.notifMu.Lock()
	l.notifications = append(l.notifications, notifs...)
	l.notifMu.Unlock()
}

// recordFact добавляет неизменяемый факт аудита и пишет его в БД
func (l *Ledger) recordFact(orderID, actorID, action string, from, to models.OrderStatus, at time.Time) {
	l.auditMu.Lock()
	l.seq++
	fact := models.AuditFact{
		Seq:       l.seq,
		OrderID:   orderID,
		ActorID:   actorID,
		Action:    action,
		FromState: from,
		ToState:   to,
		At:        at,
	}
	l.audit = append(l.audit, fact)
	l.auditMu.Unlock()

	monitoring.OrderTransitionsTotal.WithLabelValues(action).Inc()
	go persistAudit(fact)
}

// ChangesSince возвращает факты аудита после seq и последний номер
func (l *Ledger) ChangesSince(seq uint64) ([]models.AuditFact, uint64) {
	l.auditMu.Lock()
	defer l.auditMu.Unlock()
	idx := sort.Search(len(l.audit), func(i int) bool { return l.audit[i].Seq > seq })
	facts := make([]models.AuditFact, len(l.audit)-idx)
	copy(facts, l.audit[idx:])
	return facts, l.seq
}

// LineInput — входная позиция заказа
type LineInput struct {
	ProductID string          `json:"product_id" binding:"required"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// CreateOrder создаёт заказ от имени клиента. Сумма всегда
// пересчитывается из позиций, входной total не принимается.
func (l *Ledger) CreateOrder(actor models.Principal, customerID string, lines []LineInput, desiredDate time.Time) (*models.Order, error) {
	if customerID == "" {
		customerID = actor.NodeID
	}
	if actor.Role == models.RoleCustomer && customerID != actor.NodeID {
		return nil, models.ScopeViolationf("customer may create orders only for itself")
	}
	if actor.Role != models.RoleCustomer {
		scope, err := l.dir.ResolveScope(actor)
		if err != nil {
			return nil, err
		}
		if !scope.Contains(customerID) {
			return nil, models.ScopeViolationf("customer %s is outside the caller scope", customerID)
		}
	}

	orderLines := make([]models.OrderLine, len(lines))
	for i, in := range lines {
		orderLines[i] = models.OrderLine{
			ProductID: in.ProductID,
			Name:      in.Name,
			Quantity:  in.Quantity,
			UnitPrice: in.UnitPrice,
		}
	}
	if err := models.ValidateLines(orderLines); err != nil {
		return nil, err
	}

	distributorID, adminID, err := l.dir.ServiceChain(customerID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	order := &models.Order{
		ID:                  uuid.NewString(),
		CustomerID:          customerID,
		DistributorID:       distributorID,
		AdminID:             adminID,
		Lines:               orderLines,
		TotalAmount:         models.ComputeTotal(orderLines),
		Currency:            l.currency,
		Status:              models.OrderPlaced,
		AmountPaid:          decimal.Zero,
		PaymentStatus:       models.PaymentUnpaid,
		DesiredDeliveryDate: desiredDate,
		CurrentDeliveryDate: desiredDate,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	l.mu.Lock()
	l.orders[order.ID] = &entry{o: order}
	l.mu.Unlock()

	l.recordFact(order.ID, actor.UserID, models.ActionOrderCreated, "", models.OrderPlaced, now)
	cp := order.Clone()
	go persistOrder(cp)
	return &cp, nil
}

// Get возвращает заказ, если он входит в область видимости субъекта
func (l *Ledger) Get(actor models.Principal, id string) (*models.Order, error) {
	scope, err := l.dir.ResolveScope(actor)
	if err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.orders[id]
	if !ok {
		return nil, models.NotFoundf("order %s not found", id)
	}
	if !scope.Contains(e.o.CustomerID) {
		return nil, models.ScopeViolationf("order %s is outside the caller scope", id)
	}
	e.mu.Lock()
	cp := e.o.Clone()
	e.mu.Unlock()
	return &cp, nil
}

// validateBatchScope проверяет всю пачку до каких-либо мутаций:
// при любом чужом или несуществующем заказе отклоняется весь запрос
func (l *Ledger) validateBatchScope(actor models.Principal, ids []string) (models.Scope, error) {
	if len(ids) == 0 {
		return models.Scope{}, models.Validationf("order ids are required")
	}
	scope, err := l.dir.ResolveScope(actor)
	if err != nil {
		return models.Scope{}, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, id := range ids {
		e, ok := l.orders[id]
		if !ok {
			return models.Scope{}, models.NotFoundf("order %s not found", id)
		}
		// CustomerID неизменяем после создания, читается без entry-локов
		if !scope.Contains(e.o.CustomerID) {
			return models.Scope{}, models.ScopeViolationf("order %s is outside the caller scope", id)
		}
	}
	return scope, nil
}

// TransitResult — результат по одному заказу в групповом переходе
type TransitResult struct {
	OrderID string `json:"order_id"`
	OK      bool   `json:"ok"`
	Already bool   `json:"already,omitempty"`
	Error   string `json:"error,omitempty"`
}

// MarkForTransit ставит заказы в сегодняшний рейс. Валидация области —
// всё или ничего; сами переходы независимы, частичный успех допустим.
// Повторная пометка уже помеченного заказа — no-op, не ошибка.
func (l *Ledger) MarkForTransit(actor models.Principal, ids []string) ([]TransitResult, error) {
	if actor.Role == models.RoleCustomer {
		return nil, models.ScopeViolationf("customers cannot stage orders for transit")
	}
	if _, err := l.validateBatchScope(actor, ids); err != nil {
		return nil, err
	}

	results := make([]TransitResult, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			results[i] = l.markOneForTransit(actor, id)
		}(i, id)
	}
	wg.Wait()
	return results, nil
}

func (l *Ledger) markOneForTransit(actor models.Principal, id string) TransitResult {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.orders[id]
	if !ok {
		return TransitResult{OrderID: id, Error: "order not found"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	o := e.o
	if o.MarkedForToday {
		return TransitResult{OrderID: id, OK: true, Already: true}
	}
	if o.ReceivedAt != nil {
		return TransitResult{OrderID: id, Error: "order already received"}
	}

	now := time.Now()
	from := o.Status
	o.MarkedForToday = true
	o.MarkedAt = &now
	o.Status = models.OrderInTransit
	o.UpdatedAt = now

	l.recordFact(id, actor.UserID, models.ActionMarkedForTransit, from, o.Status, now)
	cp := o.Clone()
	go persistOrder(cp)
	return TransitResult{OrderID: id, OK: true}
}

// SendToAdmin пересылает пачку заказов в ленту уведомлений админа.
// Позиции всех заказов пачки сводятся в один платёж уведомления;
// жизненный цикл самих заказов не блокируется. Уже отправленные
// заказы пропускаются без ошибки.
func (l *Ledger) SendToAdmin(actor models.Principal, ids []string) (*models.AdminNotification, error) {
	if actor.Role == models.RoleCustomer {
		return nil, models.ScopeViolationf("customers cannot forward orders to admin")
	}
	if _, err := l.validateBatchScope(actor, ids); err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	// Локи всей пачки берутся разом в детерминированном порядке,
	// чтобы проверить предусловия до каких-либо мутаций: частично
	// пересланная пачка потеряла бы позиции из ленты админа
	uniq := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			uniq = append(uniq, id)
		}
	}
	sort.Strings(uniq)

	entries := make([]*entry, len(uniq))
	for i, id := range uniq {
		entries[i] = l.orders[id]
	}
	for _, e := range entries {
		e.mu.Lock()
	}
	defer func() {
		for _, e := range entries {
			e.mu.Unlock()
		}
	}()

	adminID := ""
	pending := make([]*models.Order, 0, len(entries))
	for i, e := range entries {
		o := e.o
		if !o.MarkedForToday {
			return nil, models.InvalidTransitionf("order %s is not staged for transit", uniq[i])
		}
		if o.SentToAdmin {
			continue
		}
		if adminID == "" {
			adminID = o.AdminID
		} else if adminID != o.AdminID {
			return nil, models.Validationf("orders in one batch must share the same admin")
		}
		pending = append(pending, o)
	}
	if len(pending) == 0 {
		return nil, models.InvalidTransitionf("all orders were already sent to admin")
	}

	now := time.Now()
	agg := make(map[string]*models.NotificationItem)
	var aggOrder []string
	for _, o := range pending {
		o.SentToAdmin = true
		o.SentToAdminAt = &now
		o.UpdatedAt = now
		for _, line := range o.Lines {
			item, ok := agg[line.ProductID]
			if !ok {
				agg[line.ProductID] = &models.NotificationItem{
					ProductID: line.ProductID,
					Name:      line.Name,
					Quantity:  line.Quantity,
				}
				aggOrder = append(aggOrder, line.ProductID)
			} else {
				item.Quantity += line.Quantity
			}
		}
		cp := o.Clone()
		l.recordFact(o.ID, actor.UserID, models.ActionSentToAdmin, cp.Status, cp.Status, now)
		go persistOrder(cp)
	}

	items := make([]models.NotificationItem, 0, len(aggOrder))
	for _, pid := range aggOrder {
		items = append(items, *agg[pid])
	}
	notif := models.AdminNotification{
		ID:          uuid.NewString(),
		AdminID:     adminID,
		SenderID:    actor.NodeID,
		OrdersCount: len(pending),
		Items:       items,
		CreatedAt:   now,
	}

	l.notifMu.Lock()
	l.notifications = append(l.notifications, notif)
	l.notifMu.Unlock()

	go persistNotification(notif)
	logging.L().Info("restock notification created",
		zap.String("notification_id", notif.ID),
		zap.String("admin_id", adminID),
		zap.Int("orders", len(pending)))
	return &notif, nil
}

// ReceiveResult — результат подтверждения получения по одному заказу
type ReceiveResult struct {
	OrderID string        `json:"order_id"`
	Order   *models.Order `json:"order,omitempty"`
	Already bool          `json:"already,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// MarkReceived подтверждает физическое получение. Идемпотентно:
// повторный вызов возвращает тот же ReceivedAt и не пишет второй
// факт аудита. Требует MarkedForToday.
func (l *Ledger) MarkReceived(actor models.Principal, ids []string) ([]ReceiveResult, error) {
	if _, err := l.validateBatchScope(actor, ids); err != nil {
		return nil, err
	}

	results := make([]ReceiveResult, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			results[i] = l.markOneReceived(actor, id)
		}(i, id)
	}
	wg.Wait()
	return results, nil
}

func (l *Ledger) markOneReceived(actor models.Principal, id string) ReceiveResult {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.orders[id]
	if !ok {
		return ReceiveResult{OrderID: id, Error: "order not found"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	o := e.o
	if o.ReceivedAt != nil {
		cp := o.Clone()
		return ReceiveResult{OrderID: id, Order: &cp, Already: true}
	}
	if !o.MarkedForToday {
		return ReceiveResult{OrderID: id, Error: "order is not staged for transit"}
	}

	now := time.Now()
	from := o.Status
	o.ReceivedAt = &now
	o.Status = models.OrderReceived
	o.UpdatedAt = now

	l.recordFact(id, actor.UserID, models.ActionReceived, from, o.Status, now)
	cp := o.Clone()
	go persistOrder(cp)
	return ReceiveResult{OrderID: id, Order: &cp}
}

// RecordPayment фиксирует оплату после получения. Каждый вызов
// перезаписывает сумму целиком (последняя запись побеждает).
// Переплата допустима, но помечается как аномалия.
func (l *Ledger) RecordPayment(actor models.Principal, id string, amount decimal.Decimal) (*models.Order, bool, error) {
	scope, err := l.dir.ResolveScope(actor)
	if err != nil {
		return nil, false, err
	}
	if amount.IsNegative() {
		return nil, false, models.Validationf("amount_paid must not be negative")
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.orders[id]
	if !ok {
		return nil, false, models.NotFoundf("order %s not found", id)
	}
	if !scope.Contains(e.o.CustomerID) {
		return nil, false, models.ScopeViolationf("order %s is outside the caller scope", id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	o := e.o
	if o.ReceivedAt == nil {
		return nil, false, models.InvalidTransitionf("payment can be recorded only after receipt")
	}

	now := time.Now()
	o.AmountPaid = amount
	o.PaymentStatus = models.DerivePaymentStatus(amount, o.TotalAmount)
	o.UpdatedAt = now

	l.recordFact(id, actor.UserID, models.ActionPaymentRecorded, o.Status, o.Status, now)
	cp := o.Clone()
	go persistOrder(cp)

	overpaid := amount.GreaterThan(o.TotalAmount)
	if overpaid {
		logging.L().Warn("payment exceeds order total",
			zap.String("order_id", id),
			zap.String("amount_paid", amount.String()),
			zap.String("total_amount", o.TotalAmount.String()))
	}
	return &cp, overpaid, nil
}

// ReviseDeliveryDate заменяет текущую дату доставки. Доступно только
// дистрибьютору, до получения заказа, и только датой позже текущего
// момента. Статус заказа не меняется.
func (l *Ledger) ReviseDeliveryDate(actor models.Principal, id string, newDate time.Time) (*models.Order, error) {
	if actor.Role != models.RoleDistributor {
		return nil, models.ScopeViolationf("only the servicing distributor may revise delivery dates")
	}
	scope, err := l.dir.ResolveScope(actor)
	if err != nil {
		return nil, err
	}
	if !newDate.After(time.Now()) {
		return nil, models.Validationf("new delivery date must be in the future")
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.orders[id]
	if !ok {
		return nil, models.NotFoundf("order %s not found", id)
	}
	if !scope.Contains(e.o.CustomerID) {
		return nil, models.ScopeViolationf("order %s is outside the caller scope", id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	o := e.o
	if o.ReceivedAt != nil {
		return nil, models.InvalidTransitionf("delivery date cannot be revised after receipt")
	}

	now := time.Now()
	o.CurrentDeliveryDate = newDate
	o.UpdatedAt = now

	l.recordFact(id, actor.UserID, models.ActionDeliveryDateRevised, o.Status, o.Status, now)
	cp := o.Clone()
	go persistOrder(cp)
	return &cp, nil
}

// Snapshot возвращает копии всех заказов области на единый момент
// времени. Полная блокировка исключает заказы в середине перехода,
// поэтому выручка не задвоится и не потеряется.
func (l *Ledger) Snapshot(scope models.Scope) []models.Order {
	l.mu.Lock()
	defer l.mu.Unlock()

	orders := make([]models.Order, 0, len(l.orders))
	for _, e := range l.orders {
		if scope.Contains(e.o.CustomerID) {
			orders = append(orders, e.o.Clone())
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })
	return orders
}

// ListFilter — фильтры выборки заказов
type ListFilter struct {
	Status       models.OrderStatus
	CustomerID   string
	InTransit    bool   // только заказы в рейсе
	SentToAdmin  bool   // только пересланные админу
	DeliveryPart string // today | upcoming | overdue (по текущей дате доставки)
}

// List возвращает заказы области с фильтрами; для дистрибьюторских
// экранов поддерживается разбивка по дате доставки
func (l *Ledger) List(actor models.Principal, f ListFilter) ([]models.Order, error) {
	scope, err := l.dir.ResolveScope(actor)
	if err != nil {
		return nil, err
	}
	if f.CustomerID != "" && !scope.Contains(f.CustomerID) {
		return nil, models.ScopeViolationf("customer %s is outside the caller scope", f.CustomerID)
	}

	orders := l.Snapshot(scope)
	today := time.Now()
	result := orders[:0]
	for _, o := range orders {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.CustomerID != "" && o.CustomerID != f.CustomerID {
			continue
		}
		if f.InTransit && (!o.MarkedForToday || o.ReceivedAt != nil) {
			continue
		}
		if f.SentToAdmin && !o.SentToAdmin {
			continue
		}
		if f.DeliveryPart != "" && !matchDeliveryPart(o.CurrentDeliveryDate, today, f.DeliveryPart) {
			continue
		}
		result = append(result, o)
	}
	return result, nil
}

func matchDeliveryPart(deliveryDate, now time.Time, part string) bool {
	dy, dm, dd := deliveryDate.Date()
	ny, nm, nd := now.Date()
	sameDay := dy == ny && dm == nm && dd == nd
	switch part {
	case "today":
		return sameDay
	case "upcoming":
		return !sameDay && deliveryDate.After(now)
	case "overdue":
		return !sameDay && deliveryDate.Before(now)
	}
	return false
}

// Notifications возвращает ленту уведомлений админа (новые первыми)
func (l *Ledger) Notifications(adminID string) []models.AdminNotification {
	l.notifMu.Lock()
	defer l.notifMu.Unlock()
	var feed []models.AdminNotification
	for i := len(l.notifications) - 1; i >= 0; i-- {
		if l.notifications[i].AdminID == adminID {
			feed = append(feed, l.notifications[i])
		}
	}
	return feed
}

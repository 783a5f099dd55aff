package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Статусы заказа. Пересылка админу (SentToAdmin) — флаг, а не статус:
// она информационная и не блокирует получение.
type OrderStatus string

const (
	OrderPlaced    OrderStatus = "placed"
	OrderInTransit OrderStatus = "in_transit"
	OrderReceived  OrderStatus = "received"
)

// Статус оплаты, производный от AmountPaid и TotalAmount
type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPartial  PaymentStatus = "partial"
	PaymentPaid     PaymentStatus = "paid"
	PaymentOverpaid PaymentStatus = "overpaid"
)

// OrderLine — позиция заказа. Цена — снимок на момент создания,
// после создания не меняется.
type OrderLine struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func (l OrderLine) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Order — заказ клиента. Цепочка customer → distributor → admin
// фиксируется при создании через справочник иерархии.
type Order struct {
	ID            string      `json:"id"`
	CustomerID    string      `json:"customer_id"`
	DistributorID string      `json:"distributor_id"`
	AdminID       string      `json:"admin_id"`
	Lines         []OrderLine `json:"lines"`

	TotalAmount decimal.Decimal `json:"total_amount"`
	Currency    string          `json:"currency"`

	Status         OrderStatus `json:"status"`
	MarkedForToday bool        `json:"marked_for_today"`
	MarkedAt       *time.Time  `json:"marked_at,omitempty"`
	SentToAdmin    bool        `json:"sent_to_admin"`
	SentToAdminAt  *time.Time  `json:"sent_to_admin_at,omitempty"`
	ReceivedAt     *time.Time  `json:"received_at,omitempty"`

	AmountPaid    decimal.Decimal `json:"amount_paid"`
	PaymentStatus PaymentStatus   `json:"payment_status"`

	DesiredDeliveryDate time.Time `json:"desired_delivery_date"`
	CurrentDeliveryDate time.Time `json:"current_delivery_date"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ComputeTotal пересчитывает сумму заказа из позиций.
// Входной total никогда не принимается на веру.
func ComputeTotal(lines []OrderLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Total())
	}
	return total
}

// ValidateLines проверяет список позиций перед созданием заказа
func ValidateLines(lines []OrderLine) error {
	if len(lines) == 0 {
		return Validationf("order must contain at least one line")
	}
	for i, l := range lines {
		if l.ProductID == "" {
			return Validationf("line %d: product_id is required", i)
		}
		if l.Quantity <= 0 {
			return Validationf("line %d: quantity must be positive", i)
		}
		if l.UnitPrice.IsNegative() {
			return Validationf("line %d: unit_price must not be negative", i)
		}
	}
	return nil
}

// DerivePaymentStatus сравнивает оплаченное с суммой заказа
func DerivePaymentStatus(paid, total decimal.Decimal) PaymentStatus {
	switch {
	case paid.IsZero():
		return PaymentUnpaid
	case paid.LessThan(total):
		return PaymentPartial
	case paid.Equal(total):
		return PaymentPaid
	default:
		return PaymentOverpaid
	}
}

// DeliveryDateRevised — расходятся ли желаемая и текущая даты доставки.
// Для потребителей это сигнал уведомить клиента.
func (o *Order) DeliveryDateRevised() bool {
	return !o.CurrentDeliveryDate.Equal(o.DesiredDeliveryDate)
}

// Clone возвращает глубокую копию заказа
func (o *Order) Clone() Order {
	cp := *o
	cp.Lines = make([]OrderLine, len(o.Lines))
	copy(cp.Lines, o.Lines)
	if o.MarkedAt != nil {
		t := *o.MarkedAt
		cp.MarkedAt = &t
	}
	if o.SentToAdminAt != nil {
		t := *o.SentToAdminAt
		cp.SentToAdminAt = &t
	}
	if o.ReceivedAt != nil {
		t := *o.ReceivedAt
		cp.ReceivedAt = &t
	}
	return cp
}

// AuditFact — неизменяемый факт перехода для журнала аудита.
// Seq монотонно растёт, по нему слой синхронизации вычисляет
// изменения с последнего опроса без полного пересканирования.
type AuditFact struct {
	Seq       uint64      `json:"seq"`
	OrderID   string      `json:"order_id"`
	ActorID   string      `json:"actor_id"`
	Action    string      `json:"action"`
	FromState OrderStatus `json:"from_state"`
	ToState   OrderStatus `json:"to_state"`
	At        time.Time   `json:"at"`
}

// Действия аудита
const (
	ActionOrderCreated        = "order_created"
	ActionMarkedForTransit    = "marked_for_transit"
	ActionSentToAdmin         = "sent_to_admin"
	ActionReceived            = "received"
	ActionPaymentRecorded     = "payment_recorded"
	ActionDeliveryDateRevised = "delivery_date_revised"
)

// NotificationItem — агрегированная позиция в уведомлении админу
type NotificationItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
}

// AdminNotification — уведомление о пополнении: агрегат позиций
// всех заказов, отправленных одной пачкой
type AdminNotification struct {
	ID          string             `json:"id"`
	AdminID     string             `json:"admin_id"`
	SenderID    string             `json:"sender_id"`
	OrdersCount int                `json:"orders_count"`
	Items       []NotificationItem `json:"items"`
	CreatedAt   time.Time          `json:"created_at"`
}

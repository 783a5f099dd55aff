package ledger

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/Gunjankadam/Vendofy-sub001/database"
	"github.com/Gunjankadam/Vendofy-sub001/models"
)

// LoadFromDB восстанавливает заказы, журнал аудита и ленту
// уведомлений из PostgreSQL при старте
func (l *Ledger) LoadFromDB() error {
	orders, err := loadOrders()
	if err != nil {
		return err
	}
	facts, err := loadAudit()
	if err != nil {
		return err
	}
	notifs, err := loadNotifications()
	if err != nil {
		return err
	}
	l.Hydrate(orders, facts, notifs)
	return nil
}

func loadOrders() ([]models.Order, error) {
	rows, err := database.Pool.Query(context.Background(), `
		SELECT id, customer_id, distributor_id, admin_id, total_amount::text, currency,
			status, marked_for_today, marked_at, sent_to_admin, sent_to_admin_at, received_at,
			amount_paid::text, payment_status, desired_delivery_date, current_delivery_date,
			created_at, updated_at
		FROM orders`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var o models.Order
		var total, paid, status, payStatus string
		if err := rows.Scan(&o.ID, &o.CustomerID, &o.DistributorID, &o.AdminID, &total, &o.Currency,
			&status, &o.MarkedForToday, &o.MarkedAt, &o.SentToAdmin, &o.SentToAdminAt, &o.ReceivedAt,
			&paid, &payStatus, &o.DesiredDeliveryDate, &o.CurrentDeliveryDate,
			&o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		o.Status = models.OrderStatus(status)
		o.PaymentStatus = models.PaymentStatus(payStatus)
		if o.TotalAmount, err = decimal.NewFromString(total); err != nil {
			return nil, err
		}
		if o.AmountPaid, err = decimal.NewFromString(paid); err != nil {
			return nil, err
		}
		if o.Lines, err = loadOrderLines(o.ID); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func loadOrderLines(orderID string) ([]models.OrderLine, error) {
	rows, err := database.Pool.Query(context.Background(), `
		SELECT product_id, COALESCE(name, ''), quantity, unit_price::text
		FROM order_lines WHERE order_id = $1 ORDER BY position`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []models.OrderLine
	for rows.Next() {
		var l models.OrderLine
		var price string
		if err := rows.Scan(&l.ProductID, &l.Name, &l.Quantity, &price); err != nil {
			return nil, err
		}
		if l.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func loadAudit() ([]models.AuditFact, error) {
	rows, err := database.Pool.Query(context.Background(), `
		SELECT seq, order_id, actor_id, action, from_state, to_state, at
		FROM order_audit ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var facts []models.AuditFact
	for rows.Next() {
		var f models.AuditFact
		var from, to string
		if err := rows.Scan(&f.Seq, &f.OrderID, &f.ActorID, &f.Action, &from, &to, &f.At); err != nil {
			return nil, err
		}
		f.FromState = models.OrderStatus(from)
		f.ToState = models.OrderStatus(to)
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

func loadNotifications() ([]models.AdminNotification, error) {
	rows, err := database.Pool.Query(context.Background(), `
		SELECT id, admin_id, sender_id, orders_count, items, created_at
		FROM admin_notifications ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifs []models.AdminNotification
	for rows.Next() {
		var n models.AdminNotification
		var items []byte
		if err := rows.Scan(&n.ID, &n.AdminID, &n.SenderID, &n.OrdersCount, &items, &n.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(items, &n.Items); err != nil {
			return nil, err
		}
		notifs = append(notifs, n)
	}
	return notifs, rows.Err()
}

package ledger

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/Gunjankadam/Vendofy-sub001/database"
	"github.com/Gunjankadam/Vendofy-sub001/logging"
	"github.com/Gunjankadam/Vendofy-sub001/models"
)

// Фоновая запись в PostgreSQL. Истина живёт в памяти; БД нужна для
// восстановления после перезапуска, поэтому ошибки записи только
// логируются и не влияют на переходы.

func persistOrder(o models.Order) {
	if database.Pool == nil {
		return
	}
	ctx := context.Background()

	_, err := database.Pool.Exec(ctx, `
		INSERT INTO orders (id, customer_id, distributor_id, admin_id, total_amount, currency,
			status, marked_for_today, marked_at, sent_to_admin, sent_to_admin_at, received_at,
			amount_paid, payment_status, desired_delivery_date, current_delivery_date,
			created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			marked_for_today = EXCLUDED.marked_for_today,
			marked_at = EXCLUDED.marked_at,
			sent_to_admin = EXCLUDED.sent_to_admin,
			sent_to_admin_at = EXCLUDED.sent_to_admin_at,
			received_at = EXCLUDED.received_at,
			amount_paid = EXCLUDED.amount_paid,
			payment_status = EXCLUDED.payment_status,
			current_delivery_date = EXCLUDED.current_delivery_date,
			updated_at = EXCLUDED.updated_at`,
		o.ID, o.CustomerID, o.DistributorID, o.AdminID, o.TotalAmount.String(), o.Currency,
		string(o.Status), o.MarkedForToday, o.MarkedAt, o.SentToAdmin, o.SentToAdminAt, o.ReceivedAt,
		o.AmountPaid.String(), string(o.PaymentStatus), o.DesiredDeliveryDate, o.CurrentDeliveryDate,
		o.CreatedAt, o.UpdatedAt)
	if err != nil {
		logging.L().Error("persist order failed", zap.String("order_id", o.ID), zap.Error(err))
		return
	}

	// Позиции неизменяемы — пишутся один раз при создании
	for i, line := range o.Lines {
		_, err := database.Pool.Exec(ctx, `
			INSERT INTO order_lines (order_id, position, product_id, name, quantity, unit_price)
			VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (order_id, position) DO NOTHING`,
			o.ID, i, line.ProductID, line.Name, line.Quantity, line.UnitPrice.String())
		if err != nil {
			logging.L().Error("persist order line failed", zap.String("order_id", o.ID), zap.Error(err))
		}
	}
}

func persistAudit(f models.AuditFact) {
	if database.Pool == nil {
		return
	}
	_, err := database.Pool.Exec(context.Background(), `
		INSERT INTO order_audit (seq, order_id, actor_id, action, from_state, to_state, at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (seq) DO NOTHING`,
		f.Seq, f.OrderID, f.ActorID, f.Action, string(f.FromState), string(f.ToState), f.At)
	if err != nil {
		logging.L().Error("persist audit fact failed", zap.Uint64("seq", f.Seq), zap.Error(err))
	}
}

func persistNotification(n models.AdminNotification) {
	if database.Pool == nil {
		return
	}
	items, _ := json.Marshal(n.Items)
	_, err := database.Pool.Exec(context.Background(), `
		INSERT INTO admin_notifications (id, admin_id, sender_id, orders_count, items, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO NOTHING`,
		n.ID, n.AdminID, n.SenderID, n.OrdersCount, items, n.CreatedAt)
	if err != nil {
		logging.L().Error("persist notification failed", zap.String("notification_id", n.ID), zap.Error(err))
	}
}

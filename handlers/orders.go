package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/Gunjankadam/Vendofy-sub001/database"
	"github.com/Gunjankadam/Vendofy-sub001/ledger"
	"github.com/Gunjankadam/Vendofy-sub001/models"
)

const dateLayout = "2006-01-02"

// CreateOrderHandler оформляет новый заказ
func CreateOrderHandler(c *gin.Context) {
	p, ok := principalOrAbort(c)
	if !ok {
		return
	}

	var req struct {
		CustomerID          string             `json:"customer_id"`
		Lines               []ledger.LineInput `json:"lines" binding:"required"`
		DesiredDeliveryDate string             `json:"desired_delivery_date" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	desired, err := time.ParseInLocation(dateLayout, req.DesiredDeliveryDate, time.Local)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "desired_delivery_date must be YYYY-MM-DD"})
		return
	}

	order, err := ldg.CreateOrder(p, req.CustomerID, req.Lines, desired)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"order":   order,
	})
}

// MarkForTransitHandler ставит пачку заказов в сегодняшний рейс.
// Область проверяется целиком, переходы независимы — результат по
// каждому id отдельно.
func MarkForTransitHandler(c *gin.Context) {
	p, ok := principalOrAbort(c)
	if !ok {
		return
	}

	var req struct {
		OrderIDs []string `json:"order_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results, err := ldg.MarkForTransit(p, req.OrderIDs)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{
		"success": true,
		"results": results,
	}
	if warn := kickSession(p); warn != "" {
		resp["sync_warning"] = warn
	}
	c.JSON(http.StatusOK, resp)
}

// SendToAdminHandler пересылает заказы в ленту пополнения админа
func SendToAdminHandler(c *gin.Context) {
	p, ok := principalOrAbort(c)
	if !ok {
		return
	}

	var req struct {
		OrderIDs []string `json:"order_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	notif, err := ldg.SendToAdmin(p, req.OrderIDs)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{
		"success":         true,
		"orders_count":    notif.OrdersCount,
		"notification_id": notif.ID,
	}
	if warn := kickSession(p); warn != "" {
		resp["sync_warning"] = warn
	}
	c.JSON(http.StatusOK, resp)
}

// MarkReceivedHandler подтверждает получение одного заказа
func MarkReceivedHandler(c *gin.Context) {
	p, ok := principalOrAbort(c)
	if !ok {
		return
	}
	orderID := c.Param("id")

	results, err := ldg.MarkReceived(p, []string{orderID})
	if err != nil {
		respondError(c, err)
		return
	}
	r := results[0]
	if r.Error != "" {
		c.JSON(http.StatusConflict, gin.H{"error": r.Error, "order_id": r.OrderID})
		return
	}

	resp := gin.H{
		"success": true,
		"order":   r.Order,
		"already": r.Already,
	}
	if warn := kickSession(p); warn != "" {
		resp["sync_warning"] = warn
	}
	c.JSON(http.StatusOK, resp)
}

// MarkReceivedBulkHandler подтверждает получение пачки заказов
func MarkReceivedBulkHandler(c *gin.Context) {
	p, ok := principalOrAbort(c)
	if !ok {
		return
	}

	var req struct {
		OrderIDs []string `json:"order_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results, err := ldg.MarkReceived(p, req.OrderIDs)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{
		"success": true,
		"results": results,
	}
	if warn := kickSession(p); warn != "" {
		resp["sync_warning"] = warn
	}
	c.JSON(http.StatusOK, resp)
}

// RecordPaymentHandler фиксирует оплату (последняя запись побеждает)
func RecordPaymentHandler(c *gin.Context) {
	p, ok := principalOrAbort(c)
	if !ok {
		return
	}
	orderID := c.Param("id")

	var req struct {
		AmountPaid decimal.Decimal `json:"amount_paid"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, overpaid, err := ldg.RecordPayment(p, orderID, req.AmountPaid)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{
		"success": true,
		"order":   order,
	}
	if overpaid {
		// Переплата допустима (возвраты и т.п.), но помечается
		resp["anomaly"] = "amount_paid exceeds total_amount"
	}
	c.JSON(http.StatusOK, resp)
}

// ReviseDeliveryDateHandler заменяет текущую дату доставки
func ReviseDeliveryDateHandler(c *gin.Context) {
	p, ok := principalOrAbort(c)
	if !ok {
		return
	}
	orderID := c.Param("id")

	var req struct {
		NewDate string `json:"new_date" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	newDate, err := time.ParseInLocation(dateLayout, req.NewDate, time.Local)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "new_date must be YYYY-MM-DD"})
		return
	}

	order, err := ldg.ReviseDeliveryDate(p, orderID, newDate)
	if err != nil {
		respondError(c, err)
		return
	}

	// Расхождение дат — сигнал уведомить клиента
	if order.DeliveryDateRevised() {
		go notifyCustomerDateChange(*order)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"order":   order,
	})
}

// notifyCustomerDateChange шлёт клиенту письмо о переносе доставки
func notifyCustomerDateChange(order models.Order) {
	if database.Pool == nil {
		return
	}
	var email, name string
	err := database.Pool.QueryRow(context.Background(),
		"SELECT email, COALESCE(name, '') FROM users WHERE node_id = $1 LIMIT 1",
		order.CustomerID).Scan(&email, &name)
	if err != nil {
		log.Printf("⚠️ Не найден email клиента для заказа %s: %v", order.ID, err)
		return
	}
	if err := emailSvc.SendDeliveryDateNotice(email, name, order.ID, order.CurrentDeliveryDate); err != nil {
		log.Printf("❌ Не удалось отправить письмо о переносе доставки: %v", err)
	}
}

// GetOrderHandler возвращает заказ по id
func GetOrderHandler(c *gin.Context) {
	p, ok := principalOrAbort(c)
	if !ok {
		return
	}

	order, err := ldg.Get(p, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// ListOrdersHandler возвращает заказы области с фильтрами.
// delivery=today|upcoming|overdue — разбивка для экранов дистрибьютора.
func ListOrdersHandler(c *gin.Context) {
	p, ok := principalOrAbort(c)
	if !ok {
		return
	}

	f := ledger.ListFilter{
		Status:       models.OrderStatus(c.Query("status")),
		CustomerID:   c.Query("customer_id"),
		InTransit:    c.Query("in_transit") == "true",
		SentToAdmin:  c.Query("sent_to_admin") == "true",
		DeliveryPart: c.Query("delivery"),
	}

	orders, err := ldg.List(p, f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"count":  len(orders),
	})
}

// AdminNotificationsHandler — лента уведомлений о пополнении
func AdminNotificationsHandler(c *gin.Context) {
	p, ok := principalOrAbort(c)
	if !ok {
		return
	}
	if p.Role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin access required"})
		return
	}

	feed := ldg.Notifications(p.NodeID)
	c.JSON(http.StatusOK, gin.H{
		"notifications": feed,
		"count":         len(feed),
	})
}

// OrderAuditHandler возвращает факты аудита после seq
func OrderAuditHandler(c *gin.Context) {
	p, ok := principalOrAbort(c)
	if !ok {
		return
	}
	if p.Role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin access required"})
		return
	}

	var since uint64
	if s := c.Query("since"); s != "" {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be a number"})
			return
		}
		since = v
	}

	facts, latest := ldg.ChangesSince(since)
	c.JSON(http.StatusOK, gin.H{
		"facts":  facts,
		"latest": latest,
	})
}

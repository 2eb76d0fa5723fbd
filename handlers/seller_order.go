package handlers

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Figuelia98/wdd430-group-project/kafka"
	"github.com/Figuelia98/wdd430-group-project/middleware"
	"github.com/Figuelia98/wdd430-group-project/models"

	"github.com/IBM/sarama"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type SellerOrderHandler struct {
	db       *sql.DB
	producer sarama.SyncProducer
	logger   *zap.Logger
}

func NewSellerOrderHandler(db *sql.DB, producer sarama.SyncProducer, logger *zap.Logger) *SellerOrderHandler {
	return &SellerOrderHandler{
		db:       db,
		producer: producer,
		logger:   logger,
	}
}

// sellerOrderColumns joins buyer contact details onto the order row so a
// seller can reach the customer about fulfilment.
const sellerOrderColumns = "o.id, o.order_number, o.buyer_id, o.subtotal, o.shipping, o.tax, o.total, o.status, " +
	"o.ship_full_name, o.ship_address_line1, o.ship_address_line2, o.ship_city, o.ship_state, " +
	"o.ship_postal_code, o.ship_country, o.ship_phone, o.payment_method, o.transaction_id, " +
	"o.payment_status, o.payment_amount, o.payment_currency, o.notes, o.tracking_number, " +
	"o.estimated_delivery, o.created_at, o.updated_at, u.name, u.email"

func (h *SellerOrderHandler) GetSellerOrders(c *gin.Context) {
	ctx, span := otel.Tracer(tracerName).Start(c.Request.Context(), "GetSellerOrders")
	defer span.End()

	user := middleware.CurrentUser(c)
	page, limit := pageParams(c, 10)
	status := c.Query("status")

	query := "SELECT " + sellerOrderColumns + " FROM orders o JOIN users u ON u.id = o.buyer_id " +
		"WHERE o.id IN (SELECT order_id FROM order_items WHERE seller_id = $1)"
	countQuery := "SELECT COUNT(*) FROM orders o " +
		"WHERE o.id IN (SELECT order_id FROM order_items WHERE seller_id = $1)"
	args := []interface{}{user.ID}
	if status != "" {
		query += " AND o.status = $2"
		countQuery += " AND o.status = $2"
		args = append(args, status)
	}
	query += " ORDER BY o.created_at DESC LIMIT " + strconv.Itoa(limit) +
		" OFFSET " + strconv.Itoa((page-1)*limit)

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to fetch seller orders", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	defer rows.Close()

	orders := make([]models.Order, 0)
	orderIDs := make([]int, 0)
	for rows.Next() {
		var buyerName, buyerEmail string
		order, err := scanOrder(rows, &buyerName, &buyerEmail)
		if err != nil {
			span.RecordError(err)
			h.logger.Error("Failed to scan seller order", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		order.BuyerName = buyerName
		order.BuyerEmail = buyerEmail
		orders = append(orders, order)
		orderIDs = append(orderIDs, order.ID)
	}
	rows.Close()

	var total int
	if err := h.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to count seller orders", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	var itemsByOrder map[int][]models.OrderItem
	if len(orderIDs) > 0 {
		itemsByOrder, err = loadOrderItems(ctx, h.db, orderIDs)
		if err != nil {
			span.RecordError(err)
			h.logger.Error("Failed to load order items", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
	}

	sellerOrders := make([]models.SellerOrder, 0, len(orders))
	for _, order := range orders {
		sellerOrders = append(sellerOrders, sellerView(order, itemsByOrder[order.ID], user.ID))
	}

	span.SetAttributes(attribute.Int("orders.count", len(sellerOrders)))
	c.JSON(http.StatusOK, gin.H{
		"orders":     sellerOrders,
		"pagination": models.NewPagination(page, limit, total),
	})
}

func (h *SellerOrderHandler) GetSellerOrder(c *gin.Context) {
	ctx, span := otel.Tracer(tracerName).Start(c.Request.Context(), "GetSellerOrder")
	defer span.End()

	user := middleware.CurrentUser(c)

	orderID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}
	span.SetAttributes(attribute.Int("order.id", orderID))

	order, err := getOrderByID(ctx, h.db, orderID)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		span.RecordError(err)
		h.logger.Error("Failed to get order", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	itemsByOrder, err := loadOrderItems(ctx, h.db, []int{order.ID})
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to load order items", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	items := itemsByOrder[order.ID]

	if !hasSellerItems(items, user.ID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only view orders containing your products"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": sellerView(order, items, user.ID)})
}

func (h *SellerOrderHandler) UpdateSellerOrder(c *gin.Context) {
	ctx, span := otel.Tracer(tracerName).Start(c.Request.Context(), "UpdateSellerOrder")
	defer span.End()

	user := middleware.CurrentUser(c)

	orderID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}
	span.SetAttributes(attribute.Int("order.id", orderID))

	var req models.UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Status != "" && !models.ValidOrderStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}

	order, err := getOrderByID(ctx, h.db, orderID)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		span.RecordError(err)
		h.logger.Error("Failed to get order", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	itemsByOrder, err := loadOrderItems(ctx, h.db, []int{order.ID})
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to load order items", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	items := itemsByOrder[order.ID]

	if !hasSellerItems(items, user.ID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only update orders containing your products"})
		return
	}

	// Status, tracking and notes live on the order itself, so an update by
	// one seller is visible to every other seller with items on the order.
	setClauses := []string{}
	args := []interface{}{}
	argCount := 1

	if req.Status != "" {
		setClauses = append(setClauses, "status = $"+strconv.Itoa(argCount))
		args = append(args, req.Status)
		argCount++
	}
	if req.TrackingNumber != "" {
		setClauses = append(setClauses, "tracking_number = $"+strconv.Itoa(argCount))
		args = append(args, req.TrackingNumber)
		argCount++
	}
	if req.EstimatedDelivery != "" {
		est, err := parseDeliveryDate(req.EstimatedDelivery)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid estimated delivery date"})
			return
		}
		setClauses = append(setClauses, "estimated_delivery = $"+strconv.Itoa(argCount))
		args = append(args, est)
		argCount++
	}
	if req.Notes != "" {
		setClauses = append(setClauses, "notes = $"+strconv.Itoa(argCount))
		args = append(args, req.Notes)
		argCount++
	}

	if len(setClauses) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No fields to update"})
		return
	}

	setClauses = append(setClauses, "updated_at = CURRENT_TIMESTAMP")
	query := "UPDATE orders SET " + strings.Join(setClauses, ", ") +
		" WHERE id = $" + strconv.Itoa(argCount)
	args = append(args, orderID)

	if _, err := h.db.ExecContext(ctx, query, args...); err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to update order", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	updated, err := getOrderByID(ctx, h.db, orderID)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to reload order", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	statusChanged := req.Status != "" && updated.Status != order.Status
	if statusChanged && h.producer != nil {
		event := models.OrderEvent{
			OrderID:     updated.ID,
			OrderNumber: updated.OrderNumber,
			BuyerID:     updated.BuyerID,
			Status:      updated.Status,
			Total:       updated.Total,
			EventType:   "order_status_updated",
		}
		if err := kafka.PublishOrderEvent(ctx, h.producer, kafka.OrderEventsTopic, event, h.logger); err != nil {
			h.logger.Error("Failed to publish order_status_updated event", zap.Error(err))
			// Don't fail the request, but log the error
		}
	}

	h.logger.Info("Order updated by seller",
		zap.String("trace_id", middleware.GetTraceID(ctx)),
		zap.Int("order_id", orderID),
		zap.Int("seller_id", user.ID),
		zap.String("status", string(updated.Status)),
	)
	c.JSON(http.StatusOK, gin.H{
		"message": "Order updated successfully",
		"order":   sellerView(updated, items, user.ID),
	})
}

func hasSellerItems(items []models.OrderItem, sellerID int) bool {
	for _, item := range items {
		if item.SellerID == sellerID {
			return true
		}
	}
	return false
}

// sellerView filters an order's items down to one seller and computes that
// seller's share of the order.
func sellerView(order models.Order, items []models.OrderItem, sellerID int) models.SellerOrder {
	sellerItems := make([]models.OrderItem, 0, len(items))
	var subtotal float64
	for _, item := range items {
		if item.SellerID == sellerID {
			sellerItems = append(sellerItems, item)
			subtotal += item.Price * float64(item.Quantity)
		}
	}
	order.Items = sellerItems
	return models.SellerOrder{
		Order:          order,
		SellerSubtotal: subtotal,
		OriginalTotal:  order.Total,
	}
}

func parseDeliveryDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}

package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Figuelia98/wdd430-group-project/cache"
	"github.com/Figuelia98/wdd430-group-project/kafka"
	"github.com/Figuelia98/wdd430-group-project/middleware"
	"github.com/Figuelia98/wdd430-group-project/models"

	"github.com/IBM/sarama"
	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const tracerName = "handcrafted-haven"

const orderColumns = "id, order_number, buyer_id, subtotal, shipping, tax, total, status, " +
	"ship_full_name, ship_address_line1, ship_address_line2, ship_city, ship_state, " +
	"ship_postal_code, ship_country, ship_phone, payment_method, transaction_id, " +
	"payment_status, payment_amount, payment_currency, notes, tracking_number, " +
	"estimated_delivery, created_at, updated_at"

type OrderHandler struct {
	db          *sql.DB
	producer    sarama.SyncProducer
	redisClient *redis.Client
	logger      *zap.Logger
}

func NewOrderHandler(db *sql.DB, producer sarama.SyncProducer, redisClient *redis.Client, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		db:          db,
		producer:    producer,
		redisClient: redisClient,
		logger:      logger,
	}
}

// orderProduct is the slice of a product row the checkout path needs.
type orderProduct struct {
	ID             int
	Name           string
	Price          float64
	Quantity       int
	TrackQuantity  bool
	AllowBackorder bool
	SellerID       int
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	ctx, span := otel.Tracer(tracerName).Start(c.Request.Context(), "CreateOrder")
	defer span.End()

	user := middleware.CurrentUser(c)

	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if len(req.Items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Order must contain at least one item"})
		return
	}

	addr := req.ShippingAddress
	if addr.FullName == "" || addr.AddressLine1 == "" || addr.City == "" ||
		addr.State == "" || addr.PostalCode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Complete shipping address is required"})
		return
	}
	if addr.Country == "" {
		addr.Country = "United States"
	}

	if req.PaymentInfo.Method == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Payment information is required"})
		return
	}

	span.SetAttributes(
		attribute.Int("user_id", user.ID),
		attribute.Int("items.count", len(req.Items)),
	)

	productIDs := make([]int, 0, len(req.Items))
	seen := make(map[int]bool, len(req.Items))
	for _, item := range req.Items {
		if !seen[item.Product] {
			seen[item.Product] = true
			productIDs = append(productIDs, item.Product)
		}
	}

	rows, err := h.db.QueryContext(ctx,
		"SELECT id, name, price, quantity, track_quantity, allow_backorder, seller_id FROM products WHERE id = ANY($1) AND is_active = TRUE",
		pq.Array(productIDs),
	)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to load products for order", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	defer rows.Close()

	products := make(map[int]orderProduct, len(productIDs))
	for rows.Next() {
		var p orderProduct
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Quantity, &p.TrackQuantity, &p.AllowBackorder, &p.SellerID); err != nil {
			span.RecordError(err)
			h.logger.Error("Failed to scan product", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		products[p.ID] = p
	}
	rows.Close()

	if len(products) != len(productIDs) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Some products are no longer available"})
		return
	}

	for _, item := range req.Items {
		p := products[item.Product]
		if p.TrackQuantity && p.Quantity < item.Quantity && !p.AllowBackorder {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Insufficient stock for %s", p.Name)})
			return
		}
	}

	// Simulated payment: no gateway behind this, it always completes. The
	// transaction id is time+random and is not an idempotency key.
	transactionID := newTransactionID()
	paymentStatus := models.PaymentStatusCompleted

	status := models.OrderStatusPending
	if paymentStatus == models.PaymentStatusCompleted {
		status = models.OrderStatusConfirmed
	}

	currency := strings.ToUpper(req.PaymentInfo.Currency)
	if currency == "" {
		currency = "USD"
	}

	order := models.Order{
		OrderNumber:     newOrderNumber(),
		BuyerID:         user.ID,
		Subtotal:        req.Subtotal,
		Shipping:        req.Shipping,
		Tax:             req.Tax,
		Total:           req.Total,
		Status:          status,
		ShippingAddress: addr,
		PaymentInfo: models.PaymentInfo{
			Method:        models.PaymentMethod(req.PaymentInfo.Method),
			TransactionID: transactionID,
			Status:        paymentStatus,
			Amount:        req.Total,
			Currency:      currency,
		},
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to begin transaction", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO orders (order_number, buyer_id, subtotal, shipping, tax, total, status,
			ship_full_name, ship_address_line1, ship_address_line2, ship_city, ship_state,
			ship_postal_code, ship_country, ship_phone, payment_method, transaction_id,
			payment_status, payment_amount, payment_currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING id, created_at, updated_at`,
		order.OrderNumber, order.BuyerID, order.Subtotal, order.Shipping, order.Tax, order.Total,
		order.Status, addr.FullName, addr.AddressLine1, addr.AddressLine2, addr.City, addr.State,
		addr.PostalCode, addr.Country, addr.Phone, order.PaymentInfo.Method, transactionID,
		order.PaymentInfo.Status, order.PaymentInfo.Amount, currency,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		tx.Rollback()
		span.RecordError(err)
		h.logger.Error("Failed to create order", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	order.Items = make([]models.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		p := products[item.Product]

		// Name and price are captured from the live product row so the
		// snapshot matches the catalog at submission time.
		line := models.OrderItem{
			OrderID:   order.ID,
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  item.Quantity,
			Image:     item.Image,
			SellerID:  p.SellerID,
		}

		err = tx.QueryRowContext(ctx,
			"INSERT INTO order_items (order_id, product_id, name, price, quantity, image, seller_id) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id",
			line.OrderID, line.ProductID, line.Name, line.Price, line.Quantity, line.Image, line.SellerID,
		).Scan(&line.ID)
		if err != nil {
			tx.Rollback()
			span.RecordError(err)
			h.logger.Error("Failed to create order item", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		order.Items = append(order.Items, line)
	}

	if err := tx.Commit(); err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to commit order", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	// Inventory is adjusted after the order commit as independent writes:
	// a crash in between leaves an order without its decrements, and two
	// concurrent checkouts for the last unit can drive quantity negative.
	for _, item := range req.Items {
		p := products[item.Product]
		if !p.TrackQuantity {
			continue
		}
		if _, err := h.db.ExecContext(ctx,
			"UPDATE products SET quantity = quantity - $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2",
			item.Quantity, item.Product,
		); err != nil {
			span.RecordError(err)
			h.logger.Error("Failed to decrement inventory",
				zap.Int("product_id", item.Product), zap.Error(err))
			continue
		}
		if h.redisClient != nil {
			if err := cache.DeleteProduct(ctx, h.redisClient, strconv.Itoa(item.Product)); err != nil {
				h.logger.Warn("Failed to invalidate product cache", zap.Error(err))
			}
		}
	}

	span.SetAttributes(attribute.Int("order.id", order.ID))

	if h.producer != nil {
		event := models.OrderEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			BuyerID:     order.BuyerID,
			Status:      order.Status,
			Total:       order.Total,
			EventType:   "order_placed",
		}
		if err := kafka.PublishOrderEvent(ctx, h.producer, kafka.OrderEventsTopic, event, h.logger); err != nil {
			h.logger.Error("Failed to publish order_placed event", zap.Error(err))
			// Don't fail the request, but log the error
		}
	}

	middleware.RecordOrderPlaced(string(order.Status))

	h.logger.Info("Order placed",
		zap.String("trace_id", middleware.GetTraceID(ctx)),
		zap.String("order_number", order.OrderNumber),
		zap.Int("buyer_id", order.BuyerID),
	)
	c.JSON(http.StatusCreated, gin.H{
		"message": "Order placed successfully",
		"order":   order,
	})
}

func (h *OrderHandler) GetOrders(c *gin.Context) {
	ctx, span := otel.Tracer(tracerName).Start(c.Request.Context(), "GetOrders")
	defer span.End()

	user := middleware.CurrentUser(c)
	page, limit := pageParams(c, 10)
	status := c.Query("status")

	query := "SELECT " + orderColumns + " FROM orders WHERE buyer_id = $1"
	countQuery := "SELECT COUNT(*) FROM orders WHERE buyer_id = $1"
	args := []interface{}{user.ID}
	if status != "" {
		query += " AND status = $2"
		countQuery += " AND status = $2"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC LIMIT " + strconv.Itoa(limit) +
		" OFFSET " + strconv.Itoa((page-1)*limit)

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to fetch orders", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	defer rows.Close()

	orders := make([]models.Order, 0)
	orderIDs := make([]int, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			span.RecordError(err)
			h.logger.Error("Failed to scan order", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		orders = append(orders, order)
		orderIDs = append(orderIDs, order.ID)
	}
	rows.Close()

	var total int
	if err := h.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to count orders", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if len(orderIDs) > 0 {
		itemsByOrder, err := loadOrderItems(ctx, h.db, orderIDs)
		if err != nil {
			span.RecordError(err)
			h.logger.Error("Failed to load order items", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		for i := range orders {
			orders[i].Items = itemsByOrder[orders[i].ID]
		}
	}

	span.SetAttributes(attribute.Int("orders.count", len(orders)))
	c.JSON(http.StatusOK, gin.H{
		"orders":     orders,
		"pagination": models.NewPagination(page, limit, total),
	})
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	ctx, span := otel.Tracer(tracerName).Start(c.Request.Context(), "GetOrder")
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

	if order.BuyerID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only view your own orders"})
		return
	}

	itemsByOrder, err := loadOrderItems(ctx, h.db, []int{order.ID})
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to load order items", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	order.Items = itemsByOrder[order.ID]

	c.JSON(http.StatusOK, gin.H{"order": order})
}

func getOrderByID(ctx context.Context, db *sql.DB, orderID int) (models.Order, error) {
	row := db.QueryRowContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE id = $1", orderID)
	return scanOrder(row)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(s rowScanner, extra ...interface{}) (models.Order, error) {
	var order models.Order
	var estimatedDelivery sql.NullTime
	dests := make([]interface{}, 0, 26+len(extra))
	dests = append(dests,
		&order.ID, &order.OrderNumber, &order.BuyerID, &order.Subtotal, &order.Shipping,
		&order.Tax, &order.Total, &order.Status,
		&order.ShippingAddress.FullName, &order.ShippingAddress.AddressLine1,
		&order.ShippingAddress.AddressLine2, &order.ShippingAddress.City,
		&order.ShippingAddress.State, &order.ShippingAddress.PostalCode,
		&order.ShippingAddress.Country, &order.ShippingAddress.Phone,
		&order.PaymentInfo.Method, &order.PaymentInfo.TransactionID,
		&order.PaymentInfo.Status, &order.PaymentInfo.Amount, &order.PaymentInfo.Currency,
		&order.Notes, &order.TrackingNumber, &estimatedDelivery,
		&order.CreatedAt, &order.UpdatedAt,
	)
	dests = append(dests, extra...)
	if err := s.Scan(dests...); err != nil {
		return models.Order{}, err
	}
	if estimatedDelivery.Valid {
		order.EstimatedDelivery = &estimatedDelivery.Time
	}
	return order, nil
}

// loadOrderItems populates line items for a batch of orders in one query,
// joining live product slug and seller display name onto each snapshot.
func loadOrderItems(ctx context.Context, db *sql.DB, orderIDs []int) (map[int][]models.OrderItem, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT oi.id, oi.order_id, oi.product_id, oi.name, oi.price, oi.quantity, oi.image, oi.seller_id,
			COALESCE(p.slug, ''), COALESCE(NULLIF(u.business_name, ''), u.name, '')
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		LEFT JOIN users u ON u.id = oi.seller_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.id`,
		pq.Array(orderIDs),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	itemsByOrder := make(map[int][]models.OrderItem)
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Name, &item.Price,
			&item.Quantity, &item.Image, &item.SellerID, &item.ProductSlug, &item.SellerName); err != nil {
			return nil, err
		}
		itemsByOrder[item.OrderID] = append(itemsByOrder[item.OrderID], item)
	}
	return itemsByOrder, rows.Err()
}

func pageParams(c *gin.Context, defaultLimit int) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	return page, limit
}

const txnAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// newTransactionID mimics a gateway reference: timestamp plus a short random
// suffix. Not cryptographic, not usable as an idempotency token.
func newTransactionID() string {
	suffix := make([]byte, 13)
	for i := range suffix {
		suffix[i] = txnAlphabet[rand.Intn(len(txnAlphabet))]
	}
	return fmt.Sprintf("txn_%d_%s", time.Now().UnixMilli(), suffix)
}

func newOrderNumber() string {
	return fmt.Sprintf("HH-%s-%06d", time.Now().Format("20060102"), rand.Intn(1000000))
}
